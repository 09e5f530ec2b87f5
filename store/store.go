package store

import (
	"errors"
	"io"
)

var ErrNotFound = errors.New("no such part in store")

type Store interface {
	// Open returns a reader on the body of the part. The caller must close it.
	Open(partID int64) (io.ReadCloser, error)

	// Set stores the body of the part, replacing any previous body, and returns the number of bytes written.
	Set(partID int64, r io.Reader) (int64, error)

	Delete(partIDs ...int64) error
	List() ([]int64, error)

	// Size returns the number of bytes used by all stored bodies.
	Size() (int64, error)

	Close() error
}

type Builder interface {
	New(dir string) (Store, error)
	Delete(dir string) error
}

// Get reads the whole body of the part.
func Get(store Store, partID int64) ([]byte, error) {
	rc, err := store.Open(partID)
	if err != nil {
		return nil, err
	}

	defer rc.Close()

	return io.ReadAll(rc)
}
