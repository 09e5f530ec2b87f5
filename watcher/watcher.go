package watcher

import (
	"reflect"

	"github.com/ProtonMail/localstore/async"
	"github.com/ProtonMail/localstore/internal/queue"
)

// Watcher delivers the events of the types it watches through an unbounded queue, so senders never block.
type Watcher[T any] struct {
	types   map[reflect.Type]struct{}
	eventCh *queue.QueuedChannel[T]
}

// New returns a watcher of the given event types. Without types, it watches every event.
func New[T any](panicHandler async.PanicHandler, ofType ...T) *Watcher[T] {
	types := make(map[reflect.Type]struct{}, len(ofType))

	for _, t := range ofType {
		types[reflect.TypeOf(t)] = struct{}{}
	}

	return &Watcher[T]{
		types:   types,
		eventCh: queue.NewQueuedChannel[T](1, 1, panicHandler, "Store Watcher"),
	}
}

func (w *Watcher[T]) IsWatching(event T) bool {
	if len(w.types) == 0 {
		return true
	}

	_, ok := w.types[reflect.TypeOf(event)]

	return ok
}

func (w *Watcher[T]) GetChannel() <-chan T {
	return w.eventCh.GetChannel()
}

// Send queues the event. It returns false once the watcher is closed.
func (w *Watcher[T]) Send(event T) bool {
	return w.eventCh.Enqueue(event)
}

// Close drops undelivered events and waits for the channel to be closed.
func (w *Watcher[T]) Close() {
	w.eventCh.CloseAndDiscardQueued()

	go func() {
		for range w.eventCh.GetChannel() {
			// Drain what was already handed over so the queue can stop.
		}
	}()

	w.eventCh.Wait()
}
