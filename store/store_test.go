package store_test

import (
	"bytes"
	"crypto/rand"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/ProtonMail/localstore/store"
	"github.com/stretchr/testify/require"
)

func TestOnDiskStore_SetOpenDelete(t *testing.T) {
	dir := t.TempDir()

	st, err := store.NewOnDiskStore(
		dir,
		store.WithSemaphore(store.NewSemaphore(runtime.NumCPU())),
	)
	require.NoError(t, err)

	data := make([]byte, 1024*1204)
	{
		_, err := rand.Read(data) //nolint:gosec
		require.NoError(t, err)
	}

	n, err := st.Set(42, bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, int64(len(data)), n)

	// Bodies are stored as plain files named by the part id.
	onDisk, err := os.ReadFile(filepath.Join(dir, "42"))
	require.NoError(t, err)
	require.True(t, bytes.Equal(data, onDisk))

	read, err := store.Get(st, 42)
	require.NoError(t, err)
	require.True(t, bytes.Equal(read, data))

	size, err := st.Size()
	require.NoError(t, err)
	require.Equal(t, int64(len(data)), size)

	require.NoError(t, st.Delete(42))

	_, err = st.Open(42)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestOnDiskStore_SetReplaces(t *testing.T) {
	st, err := store.NewOnDiskStore(t.TempDir())
	require.NoError(t, err)

	_, err = st.Set(1, bytes.NewReader([]byte("first version")))
	require.NoError(t, err)

	_, err = st.Set(1, bytes.NewReader([]byte("second")))
	require.NoError(t, err)

	read, err := store.Get(st, 1)
	require.NoError(t, err)
	require.Equal(t, []byte("second"), read)
}

func TestOnDiskStore_ListIgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()

	st, err := store.NewOnDiskStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".nomedia"), nil, 0o600))

	for _, id := range []int64{3, 1, 2} {
		_, err := st.Set(id, bytes.NewReader([]byte("x")))
		require.NoError(t, err)
	}

	ids, err := st.List()
	require.NoError(t, err)
	require.ElementsMatch(t, []int64{1, 2, 3}, ids)

	require.NoError(t, store.NewOnDiskStoreBuilder().Delete(dir))

	ids, err = st.List()
	require.NoError(t, err)
	require.Empty(t, ids)
	require.FileExists(t, filepath.Join(dir, ".nomedia"))
}

func TestInMemoryStore(t *testing.T) {
	st := store.NewInMemoryStore()

	_, err := st.Set(7, bytes.NewReader([]byte("seven")))
	require.NoError(t, err)

	read, err := store.Get(st, 7)
	require.NoError(t, err)
	require.Equal(t, []byte("seven"), read)

	ids, err := st.List()
	require.NoError(t, err)
	require.Equal(t, []int64{7}, ids)

	require.NoError(t, st.Delete(7))

	_, err = st.Open(7)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func BenchmarkStoreRead(t *testing.B) {
	st, err := store.NewOnDiskStore(
		t.TempDir(),
		store.WithSemaphore(store.NewSemaphore(runtime.NumCPU())),
	)
	require.NoError(t, err)

	data := make([]byte, 15*1024*1204)
	{
		_, err := rand.Read(data) //nolint:gosec
		require.NoError(t, err)
	}

	_, err = st.Set(1, bytes.NewReader(data))
	require.NoError(t, err)

	t.ResetTimer()

	for i := 0; i < t.N; i++ {
		_, err := store.Get(st, 1)
		require.NoError(t, err)
	}
}
