package store

import "context"

// Semaphore bounds the number of attachment files read or written at the same time.
// One semaphore may be shared by the stores of several accounts.
type Semaphore struct {
	slots chan struct{}
}

// NewSemaphore returns a semaphore with the given number of slots. A limit below one is raised to one.
func NewSemaphore(limit int) *Semaphore {
	if limit < 1 {
		limit = 1
	}

	return &Semaphore{slots: make(chan struct{}, limit)}
}

// Lock waits until a slot is free and takes it.
func (sem *Semaphore) Lock() {
	sem.slots <- struct{}{}
}

// Acquire is Lock with cancellation.
func (sem *Semaphore) Acquire(ctx context.Context) error {
	select {
	case sem.slots <- struct{}{}:
		return nil

	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryLock takes a slot if one is free.
func (sem *Semaphore) TryLock() bool {
	select {
	case sem.slots <- struct{}{}:
		return true

	default:
		return false
	}
}

// Unlock frees a slot taken by Lock, Acquire or TryLock.
func (sem *Semaphore) Unlock() {
	select {
	case <-sem.slots:

	default:
		panic("store: unlock of unlocked semaphore")
	}
}

// InUse returns the number of slots currently taken.
func (sem *Semaphore) InUse() int {
	return len(sem.slots)
}

// Limit returns the number of slots.
func (sem *Semaphore) Limit() int {
	return cap(sem.slots)
}
