package store

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sirupsen/logrus"
)

type onDiskStore struct {
	path string
	sem  *Semaphore
	mode uint32
}

func NewOnDiskStore(path string, opt ...Option) (Store, error) {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return nil, err
	}

	store := &onDiskStore{
		path: path,
		mode: 0o600,
	}

	for _, opt := range opt {
		opt.config(store)
	}

	return store, nil
}

func (c *onDiskStore) Open(partID int64) (io.ReadCloser, error) {
	if c.sem != nil {
		c.sem.Lock()
		defer c.sem.Unlock()
	}

	f, err := os.Open(c.file(partID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, partID)
	} else if err != nil {
		return nil, err
	}

	return f, nil
}

// Set writes the body to a temporary file first so that readers never observe a partially written body.
func (c *onDiskStore) Set(partID int64, r io.Reader) (int64, error) {
	if c.sem != nil {
		c.sem.Lock()
		defer c.sem.Unlock()
	}

	tmp, err := os.CreateTemp(c.path, fmt.Sprintf("%v-*.tmp", partID))
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}

	if err == nil {
		err = os.Chmod(tmp.Name(), fs.FileMode(c.mode))
	}

	if err == nil {
		err = os.Rename(tmp.Name(), c.file(partID))
	}

	if err != nil {
		if rerr := os.Remove(tmp.Name()); rerr != nil && !errors.Is(rerr, fs.ErrNotExist) {
			logrus.WithError(rerr).Warn("Failed to remove temporary attachment file")
		}

		return 0, err
	}

	return n, nil
}

func (c *onDiskStore) Delete(partIDs ...int64) error {
	if c.sem != nil {
		c.sem.Lock()
		defer c.sem.Unlock()
	}

	for _, partID := range partIDs {
		if err := os.RemoveAll(c.file(partID)); err != nil {
			return err
		}
	}

	return nil
}

func (c *onDiskStore) List() ([]int64, error) {
	if c.sem != nil {
		c.sem.Lock()
		defer c.sem.Unlock()
	}

	var ids []int64

	if err := c.walk(func(info fs.FileInfo) {
		id, err := strconv.ParseInt(info.Name(), 10, 64)
		if err != nil {
			logrus.WithError(err).Debugf("Ignoring foreign file in attachment directory: %v", info.Name())
			return
		}

		ids = append(ids, id)
	}); err != nil {
		return nil, err
	}

	return ids, nil
}

func (c *onDiskStore) Size() (int64, error) {
	var size int64

	if err := c.walk(func(info fs.FileInfo) {
		size += info.Size()
	}); err != nil {
		return 0, err
	}

	return size, nil
}

func (c *onDiskStore) Close() error {
	return nil
}

func (c *onDiskStore) walk(fn func(fs.FileInfo)) error {
	return filepath.Walk(c.path, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			return nil
		}

		fn(info)

		return nil
	})
}

func (c *onDiskStore) file(partID int64) string {
	return filepath.Join(c.path, strconv.FormatInt(partID, 10))
}

type OnDiskStoreBuilder struct {
	opts []Option
}

func NewOnDiskStoreBuilder(opts ...Option) *OnDiskStoreBuilder {
	return &OnDiskStoreBuilder{opts: opts}
}

func (b *OnDiskStoreBuilder) New(dir string) (Store, error) {
	return NewOnDiskStore(dir, b.opts...)
}

// Delete removes the stored bodies. The directory itself, and files that are not bodies, are left in place.
func (b *OnDiskStoreBuilder) Delete(dir string) error {
	st, err := NewOnDiskStore(dir)
	if err != nil {
		return err
	}

	ids, err := st.List()
	if err != nil {
		return err
	}

	return st.Delete(ids...)
}
