package store

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"golang.org/x/exp/maps"
)

type inMemoryStore struct {
	data map[int64][]byte
	lock sync.RWMutex
}

func NewInMemoryStore() Store {
	return &inMemoryStore{
		data: make(map[int64][]byte),
	}
}

func (c *inMemoryStore) Open(partID int64) (io.ReadCloser, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	b, ok := c.data[partID]
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, partID)
	}

	return io.NopCloser(bytes.NewReader(b)), nil
}

func (c *inMemoryStore) Set(partID int64, r io.Reader) (int64, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	c.data[partID] = b

	return int64(len(b)), nil
}

func (c *inMemoryStore) Delete(ids ...int64) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	for _, id := range ids {
		delete(c.data, id)
	}

	return nil
}

func (c *inMemoryStore) List() ([]int64, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return maps.Keys(c.data), nil
}

func (c *inMemoryStore) Size() (int64, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	var size int64

	for _, b := range c.data {
		size += int64(len(b))
	}

	return size, nil
}

func (c *inMemoryStore) Close() error {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.data = make(map[int64][]byte)

	return nil
}

type InMemoryStoreBuilder struct{}

func (*InMemoryStoreBuilder) New(string) (Store, error) {
	return NewInMemoryStore(), nil
}

func (*InMemoryStoreBuilder) Delete(string) error {
	return nil
}
