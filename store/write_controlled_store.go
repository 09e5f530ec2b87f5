package store

import (
	"io"
	"sync"
)

// partLock guards the body of one part. It is dropped from the table once nobody holds it.
type partLock struct {
	sync.RWMutex
	refs int
}

var partLockPool = sync.Pool{New: func() any { return new(partLock) }}

// WriteControlledStore lets any number of readers stream a body while writers that replace or delete it wait
// for them. Readers hold their part lock until they close the reader.
type WriteControlledStore struct {
	impl Store

	lock  sync.Mutex
	locks map[int64]*partLock
}

func NewWriteControlledStore(impl Store) *WriteControlledStore {
	return &WriteControlledStore{
		impl:  impl,
		locks: make(map[int64]*partLock),
	}
}

func (w *WriteControlledStore) acquire(partID int64) *partLock {
	w.lock.Lock()
	defer w.lock.Unlock()

	l, ok := w.locks[partID]
	if !ok {
		l = partLockPool.Get().(*partLock) //nolint:forcetypeassert
		w.locks[partID] = l
	}

	l.refs++

	return l
}

func (w *WriteControlledStore) release(partID int64, l *partLock) {
	w.lock.Lock()
	defer w.lock.Unlock()

	if l.refs--; l.refs == 0 {
		delete(w.locks, partID)
		partLockPool.Put(l)
	}
}

// lockedReader releases its part lock on the first Close.
type lockedReader struct {
	io.ReadCloser

	once    sync.Once
	release func()
}

func (r *lockedReader) Close() error {
	err := r.ReadCloser.Close()

	r.once.Do(r.release)

	return err
}

func (w *WriteControlledStore) Open(partID int64) (io.ReadCloser, error) {
	l := w.acquire(partID)
	l.RLock()

	release := func() {
		l.RUnlock()
		w.release(partID, l)
	}

	rc, err := w.impl.Open(partID)
	if err != nil {
		release()
		return nil, err
	}

	return &lockedReader{ReadCloser: rc, release: release}, nil
}

func (w *WriteControlledStore) Set(partID int64, r io.Reader) (int64, error) {
	var n int64

	err := w.write(partID, func() (err error) {
		n, err = w.impl.Set(partID, r)
		return
	})

	return n, err
}

// SetUnchecked writes a body without taking its lock. Only use it for parts nobody else can know about yet,
// such as parts inserted by a transaction that has not committed.
func (w *WriteControlledStore) SetUnchecked(partID int64, r io.Reader) (int64, error) {
	return w.impl.Set(partID, r)
}

// Delete removes the bodies one at a time, each once its readers are done.
func (w *WriteControlledStore) Delete(partIDs ...int64) error {
	for _, partID := range partIDs {
		partID := partID

		if err := w.write(partID, func() error { return w.impl.Delete(partID) }); err != nil {
			return err
		}
	}

	return nil
}

func (w *WriteControlledStore) write(partID int64, fn func() error) error {
	l := w.acquire(partID)
	defer w.release(partID, l)

	l.Lock()
	defer l.Unlock()

	return fn()
}

func (w *WriteControlledStore) List() ([]int64, error) {
	return w.impl.List()
}

func (w *WriteControlledStore) Size() (int64, error) {
	return w.impl.Size()
}

func (w *WriteControlledStore) Close() error {
	return w.impl.Close()
}
