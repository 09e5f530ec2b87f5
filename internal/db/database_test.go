package db

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ProtonMail/localstore/internal/db/schema"
	"github.com/ProtonMail/localstore/internal/db/utils"
	"github.com/stretchr/testify/require"
)

func newTestDatabase(t *testing.T, dir string) *Database {
	d := New(dir, "account")
	require.NoError(t, d.Open(context.Background()))

	t.Cleanup(func() {
		require.NoError(t, d.Close())
	})

	require.NoError(t, d.Execute(context.Background(), true, func(ctx context.Context, conn *Conn) error {
		_, err := utils.ExecQuery(ctx, conn, "CREATE TABLE IF NOT EXISTS `test` (`value` integer NOT NULL)")
		return err
	}))

	return d
}

func countRows(t *testing.T, d *Database) int {
	count, err := ExecuteResult(context.Background(), d, false, func(ctx context.Context, conn *Conn) (int, error) {
		return utils.MapQueryRow[int](ctx, conn, "SELECT COUNT(*) FROM `test`")
	})
	require.NoError(t, err)

	return count
}

func insert(ctx context.Context, conn *Conn, v int) error {
	_, err := utils.ExecQuery(ctx, conn, "INSERT INTO `test` (`value`) VALUES (?)", v)
	return err
}

func TestDatabase_TransactionCommits(t *testing.T) {
	d := newTestDatabase(t, t.TempDir())

	require.NoError(t, d.Execute(context.Background(), true, func(ctx context.Context, conn *Conn) error {
		require.True(t, conn.InTransaction())

		if err := insert(ctx, conn, 1); err != nil {
			return err
		}

		return insert(ctx, conn, 2)
	}))

	require.Equal(t, 2, countRows(t, d))
}

func TestDatabase_TransactionRollsBackOnError(t *testing.T) {
	d := newTestDatabase(t, t.TempDir())

	errFail := errors.New("fail")

	err := d.Execute(context.Background(), true, func(ctx context.Context, conn *Conn) error {
		if err := insert(ctx, conn, 1); err != nil {
			return err
		}

		if err := insert(ctx, conn, 2); err != nil {
			return err
		}

		return errFail
	})
	require.ErrorIs(t, err, errFail)

	require.Equal(t, 0, countRows(t, d))
}

func TestDatabase_TransactionRollsBackOnPanic(t *testing.T) {
	d := newTestDatabase(t, t.TempDir())

	require.Panics(t, func() {
		_ = d.Execute(context.Background(), true, func(ctx context.Context, conn *Conn) error {
			require.NoError(t, insert(ctx, conn, 1))
			require.NoError(t, insert(ctx, conn, 2))

			panic("boom")
		})
	})

	require.Equal(t, 0, countRows(t, d))
}

func TestDatabase_NestedExecuteJoinsTransaction(t *testing.T) {
	d := newTestDatabase(t, t.TempDir())

	errFail := errors.New("fail")

	err := d.Execute(context.Background(), true, func(ctx context.Context, outer *Conn) error {
		if err := outer.Execute(ctx, true, func(ctx context.Context, inner *Conn) error {
			require.True(t, inner.InTransaction())
			require.Same(t, outer, inner)

			return insert(ctx, inner, 1)
		}); err != nil {
			return err
		}

		return errFail
	})
	require.ErrorIs(t, err, errFail)

	// The inner write belonged to the outer transaction and was rolled back with it.
	require.Equal(t, 0, countRows(t, d))
}

func TestDatabase_NestedExecuteStartsTransaction(t *testing.T) {
	d := newTestDatabase(t, t.TempDir())

	require.NoError(t, d.Execute(context.Background(), false, func(ctx context.Context, outer *Conn) error {
		require.False(t, outer.InTransaction())

		err := outer.Execute(ctx, true, func(ctx context.Context, inner *Conn) error {
			require.True(t, inner.InTransaction())

			if err := insert(ctx, inner, 1); err != nil {
				return err
			}

			return errors.New("fail")
		})
		require.Error(t, err)

		require.NoError(t, outer.Execute(ctx, true, func(ctx context.Context, inner *Conn) error {
			return insert(ctx, inner, 2)
		}))

		return nil
	}))

	require.Equal(t, 1, countRows(t, d))
}

func TestDatabase_ConcurrentExecute(t *testing.T) {
	d := newTestDatabase(t, t.TempDir())

	var wg sync.WaitGroup

	for i := 0; i < 16; i++ {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			require.NoError(t, d.Execute(context.Background(), true, func(ctx context.Context, conn *Conn) error {
				return insert(ctx, conn, i)
			}))
		}(i)
	}

	wg.Wait()

	require.Equal(t, 16, countRows(t, d))
}

func TestDatabase_CreatesMarkerFiles(t *testing.T) {
	dir := t.TempDir()
	d := newTestDatabase(t, dir)

	require.FileExists(t, filepath.Join(dir, NoMediaFile))
	require.FileExists(t, filepath.Join(d.AttachmentDir(), NoMediaFile))
	require.FileExists(t, d.Path())
}

func TestDatabase_VersionTooHigh(t *testing.T) {
	dir := t.TempDir()

	{
		d := New(dir, "account")
		require.NoError(t, d.Open(context.Background()))

		require.NoError(t, d.Execute(context.Background(), true, func(ctx context.Context, conn *Conn) error {
			return updateDBVersion(ctx, conn, 999999)
		}))

		require.NoError(t, d.Close())
	}

	d := New(dir, "account")

	err := d.Open(context.Background())
	require.ErrorIs(t, err, ErrInvalidDatabaseVersion)
	require.ErrorIs(t, err, ErrMigrationFailed)

	require.ErrorIs(t, d.Execute(context.Background(), false, func(context.Context, *Conn) error {
		return nil
	}), ErrClosed)
}

func TestDatabase_ReopenKeepsData(t *testing.T) {
	dir := t.TempDir()

	{
		d := newTestDatabase(t, dir)

		require.NoError(t, d.Execute(context.Background(), true, func(ctx context.Context, conn *Conn) error {
			return insert(ctx, conn, 1)
		}))

		require.NoError(t, d.Close())
	}

	d := newTestDatabase(t, dir)
	require.Equal(t, 1, countRows(t, d))

	version, err := ExecuteResult(context.Background(), d, false, func(ctx context.Context, conn *Conn) (int, error) {
		return getDatabaseVersion(ctx, conn)
	})
	require.NoError(t, err)
	require.Equal(t, Version(), version)
}

func TestDatabase_RecreatesCorruptFile(t *testing.T) {
	dir := t.TempDir()

	d := New(dir, "account")
	require.NoError(t, os.WriteFile(d.Path(), []byte("this is definitely not a database, just some garbage bytes"), 0o600))

	require.NoError(t, d.Open(context.Background()))

	defer func() { require.NoError(t, d.Close()) }()

	exists, err := ExecuteResult(context.Background(), d, false, func(ctx context.Context, conn *Conn) (bool, error) {
		return utils.QueryExists(ctx, conn, "SELECT 1 FROM sqlite_master WHERE `type` = 'table' AND `name` = ?", schema.MessagesTableName)
	})
	require.NoError(t, err)
	require.True(t, exists)
}

func TestDatabase_Delete(t *testing.T) {
	dir := t.TempDir()

	d := New(dir, "account")
	require.NoError(t, d.Open(context.Background()))
	require.NoError(t, os.WriteFile(filepath.Join(d.AttachmentDir(), "42"), []byte("data"), 0o600))

	d.Delete()

	require.NoFileExists(t, d.Path())
	require.NoDirExists(t, d.AttachmentDir())

	// Deleting twice only logs.
	d.Delete()

	require.ErrorIs(t, d.Execute(context.Background(), false, func(context.Context, *Conn) error {
		return nil
	}), ErrClosed)
}
