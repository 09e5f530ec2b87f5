package queue

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ProtonMail/localstore/async"
	"github.com/ProtonMail/localstore/logging"
	"github.com/sirupsen/logrus"
)

// QueuedChannel represents a channel on which queued items can be published without having to worry if the reader
// has actually consumed existing items first or if there's no way of knowing ahead of time what the ideal channel
// buffer size should be. Enqueue never blocks.
type QueuedChannel[T any] struct {
	ch     chan T
	items  []T
	cond   *sync.Cond
	closed atomic.Bool
	done   chan struct{}
}

func NewQueuedChannel[T any](chanBufferSize, queueCapacity int, panicHandler async.PanicHandler, name string) *QueuedChannel[T] {
	queue := &QueuedChannel[T]{
		ch:    make(chan T, chanBufferSize),
		items: make([]T, 0, queueCapacity),
		cond:  sync.NewCond(&sync.Mutex{}),
		done:  make(chan struct{}),
	}

	logging.GoAnnotated(context.Background(), panicHandler, func(context.Context) {
		defer close(queue.done)
		defer close(queue.ch)

		logrus.WithField("queue", name).Trace("Queue started")

		for {
			item, ok := queue.pop()
			if !ok {
				logrus.WithField("queue", name).Trace("Queue stopped")
				return
			}

			queue.ch <- item
		}
	}, logging.Labels{"queue": name})

	return queue
}

// Enqueue appends items to the queue. It returns false if the queue is closed.
func (q *QueuedChannel[T]) Enqueue(items ...T) bool {
	if q.closed.Load() {
		return false
	}

	q.cond.L.Lock()
	defer q.cond.L.Unlock()

	q.items = append(q.items, items...)

	q.cond.Broadcast()

	return true
}

func (q *QueuedChannel[T]) GetChannel() <-chan T {
	return q.ch
}

// Close stops accepting items. Items already queued are still delivered.
func (q *QueuedChannel[T]) Close() {
	q.closed.Store(true)

	q.cond.L.Lock()
	defer q.cond.L.Unlock()

	q.cond.Broadcast()
}

// CloseAndDiscardQueued stops accepting items and drops those not yet delivered.
func (q *QueuedChannel[T]) CloseAndDiscardQueued() {
	q.closed.Store(true)

	q.cond.L.Lock()
	defer q.cond.L.Unlock()

	q.items = nil

	q.cond.Broadcast()
}

// Wait blocks until the channel has been closed, which happens after the queue is closed and drained.
// A reader must keep consuming the channel for this to return.
func (q *QueuedChannel[T]) Wait() {
	<-q.done
}

func (q *QueuedChannel[T]) pop() (T, bool) {
	q.cond.L.Lock()
	defer q.cond.L.Unlock()

	var item T

	// Wait until there are items to pop, returning false immediately if the queue is closed.
	// This allows the queue to continue popping elements if it's closed,
	// but will prevent it from hanging indefinitely once it runs out of items.
	for len(q.items) == 0 {
		if q.closed.Load() {
			return item, false
		}

		q.cond.Wait()
	}

	item, q.items = q.items[0], q.items[1:]

	return item, true
}
