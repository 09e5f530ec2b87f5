package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/ProtonMail/localstore/internal/db/utils"
	"github.com/ProtonMail/localstore/reporter"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// ChunkLimit is the maximum number of bound parameters put into a single statement.
const ChunkLimit = 500

// NoMediaFile marks a directory so media scanners skip it.
const NoMediaFile = ".nomedia"

// Database guards the single connection to the SQLite database of one account.
//
// Execute takes the lock in shared mode; Open, Close and Delete take it exclusively.
// The database has at most one open connection, so statements of concurrent callers are serialised by it.
type Database struct {
	dir       string
	accountID string

	lock sync.RWMutex
	db   *sqlx.DB

	debug    bool
	reporter reporter.Reporter
}

type Option interface {
	apply(*Database)
}

type debugOption struct{}

func (debugOption) apply(d *Database) {
	d.debug = true
}

// Debug enables logging of the SQL queries and their values. Written to debug log.
func Debug() Option {
	return &debugOption{}
}

type reporterOption struct {
	reporter reporter.Reporter
}

func (o reporterOption) apply(d *Database) {
	d.reporter = o.reporter
}

// WithReporter sets the reporter notified of failed commits.
func WithReporter(r reporter.Reporter) Option {
	return &reporterOption{reporter: r}
}

// New returns a database for the account. It is not usable until Open is called.
func New(dir, accountID string, options ...Option) *Database {
	d := &Database{
		dir:       dir,
		accountID: accountID,
	}

	for _, opt := range options {
		opt.apply(d)
	}

	return d
}

// Path returns the path of the database file.
func (d *Database) Path() string {
	return filepath.Join(d.dir, fmt.Sprintf("%v.db", d.accountID))
}

// AttachmentDir returns the directory holding attachment bodies that are too large for the database.
func (d *Database) AttachmentDir() string {
	return d.Path() + "_att"
}

// Open creates the directories and the database file if needed and migrates the schema.
// A database file that turns out to be corrupt is deleted and created anew, once.
func (d *Database) Open(ctx context.Context) error {
	d.lock.Lock()
	defer d.lock.Unlock()

	if d.db != nil {
		return nil
	}

	if err := prepareDir(d.dir); err != nil {
		return err
	}

	if err := prepareDir(d.AttachmentDir()); err != nil {
		return err
	}

	err := d.open(ctx)
	if err == nil {
		return nil
	}

	if !isCorruption(err) {
		return err
	}

	logrus.WithError(err).WithField("account", d.accountID).Error("Database is corrupt, recreating it")

	if err := removeDatabaseFiles(d.Path()); err != nil {
		return fmt.Errorf("failed to delete corrupt database: %w", err)
	}

	return d.open(ctx)
}

func (d *Database) open(ctx context.Context) error {
	db, err := sqlx.Open("sqlite3", getDatabaseConn(d.Path()))
	if err != nil {
		return err
	}

	db.SetMaxOpenConns(1)

	d.db = db

	if err := d.withConn(ctx, func(ctx context.Context, conn *Conn) error {
		return d.wrapTx(ctx, conn, func(ctx context.Context, tx *Conn) error {
			tx.entry.Debugf("Running database migrations")

			if err := RunMigrations(ctx, tx); err != nil {
				return fmt.Errorf("%w: %w", ErrMigrationFailed, err)
			}

			return nil
		})
	}); err != nil {
		d.db = nil

		if cerr := db.Close(); cerr != nil {
			logrus.WithError(cerr).Error("Failed to close database after failed open")
		}

		return err
	}

	return nil
}

// Execute runs fn with a connection. If transactional is set, fn runs within a transaction which is committed if
// fn returns without error and rolled back otherwise, including when fn panics.
func (d *Database) Execute(ctx context.Context, transactional bool, fn func(context.Context, *Conn) error) error {
	d.lock.RLock()
	defer d.lock.RUnlock()

	if d.db == nil {
		return ErrClosed
	}

	return d.withConn(ctx, func(ctx context.Context, conn *Conn) error {
		return conn.Execute(ctx, transactional, fn)
	})
}

// Executor is implemented by Database and Conn.
type Executor interface {
	Execute(ctx context.Context, transactional bool, fn func(context.Context, *Conn) error) error
}

// ExecuteResult is Execute for callbacks that produce a value.
func ExecuteResult[T any](ctx context.Context, e Executor, transactional bool, fn func(context.Context, *Conn) (T, error)) (T, error) {
	var result T

	if err := e.Execute(ctx, transactional, func(ctx context.Context, conn *Conn) error {
		val, err := fn(ctx, conn)
		if err != nil {
			return err
		}

		result = val

		return nil
	}); err != nil {
		var zero T
		return zero, err
	}

	return result, nil
}

func (d *Database) withConn(ctx context.Context, fn func(context.Context, *Conn) error) error {
	if d.reporter != nil {
		if _, ok := reporter.GetReporterFromContext(ctx); !ok {
			ctx = reporter.NewContextWithReporter(ctx, d.reporter)
		}
	}

	sc, err := d.db.Connx(ctx)
	if err != nil {
		return err
	}

	defer utils.WrapClose(sc)

	var entry *logrus.Entry

	if d.debug {
		entry = logrus.WithField("conn", uuid.NewString())
	} else {
		entry = logrus.WithField("conn", "conn")
	}

	conn := &Conn{db: d, conn: sc, entry: entry}
	conn.qw = d.wrap(utils.ConnWrapper{Conn: sc}, entry)

	return fn(ctx, conn)
}

func (d *Database) wrapTx(ctx context.Context, conn *Conn, fn func(context.Context, *Conn) error) error {
	var entry *logrus.Entry

	if d.debug {
		entry = logrus.WithField("tx", uuid.NewString())
	} else {
		entry = logrus.WithField("tx", "tx")
	}

	tx, err := conn.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	if d.debug {
		entry.Debugf("Begin Transaction")
	}

	defer func() {
		if v := recover(); v != nil {
			if d.debug {
				entry.Debugf("Panic during Transaction")
			}

			if err := tx.Rollback(); err != nil {
				panic(fmt.Errorf("rolling back while recovering (%v): %w", v, err))
			}

			panic(v)
		}
	}()

	txConn := &Conn{
		db:    d,
		conn:  conn.conn,
		tx:    tx,
		qw:    d.wrap(utils.TXWrapper{TX: tx}, entry),
		entry: entry,
	}

	if err := fn(ctx, txConn); err != nil {
		if d.debug {
			entry.Debugf("Rolling back Transaction")
		}

		if rerr := tx.Rollback(); rerr != nil {
			return fmt.Errorf("rolling back transaction: %w", rerr)
		}

		return err
	}

	if err := tx.Commit(); err != nil {
		if !errors.Is(err, context.Canceled) {
			reporter.MessageWithContext(ctx,
				"Failed to commit database transaction",
				reporter.Context{"error": err, "type": ErrCause(err)},
			)
		}

		if d.debug {
			entry.Debugf("Failed to commit Transaction")
		}

		return fmt.Errorf("%v: %w", err, ErrTransactionFailed)
	}

	if d.debug {
		entry.Debugf("Transaction Committed")
	}

	return nil
}

func (d *Database) wrap(qw utils.QueryWrapper, entry *logrus.Entry) utils.QueryWrapper {
	if !d.debug {
		return qw
	}

	return &utils.DebugQueryWrapper{QW: qw, Entry: entry}
}

// Close closes the connection. The database can be opened again afterwards.
func (d *Database) Close() error {
	d.lock.Lock()
	defer d.lock.Unlock()

	if d.db == nil {
		return nil
	}

	err := d.db.Close()
	d.db = nil

	return err
}

// Delete closes the connection and removes the attachment directory and the database file.
// Every step is attempted even if a previous one failed; failures are only logged.
func (d *Database) Delete() {
	d.lock.Lock()
	defer d.lock.Unlock()

	entry := logrus.WithField("account", d.accountID)

	if d.db != nil {
		if err := d.db.Close(); err != nil {
			entry.WithError(err).Warn("Failed to close database")
		}

		d.db = nil
	}

	attDir := d.AttachmentDir()

	if entries, err := os.ReadDir(attDir); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			entry.WithError(err).Warn("Failed to list attachment directory")
		}
	} else {
		for _, e := range entries {
			if err := os.RemoveAll(filepath.Join(attDir, e.Name())); err != nil {
				entry.WithError(err).WithField("file", e.Name()).Warn("Failed to delete attachment file")
			}
		}
	}

	if err := os.Remove(attDir); err != nil && !errors.Is(err, fs.ErrNotExist) {
		entry.WithError(err).Warn("Failed to delete attachment directory")
	}

	if err := removeDatabaseFiles(d.Path()); err != nil {
		entry.WithError(err).Warn("Failed to delete database file")
	}
}

// Size returns the size in bytes of the database file.
func (d *Database) Size() (int64, error) {
	var size int64

	for _, path := range databaseFiles(d.Path()) {
		info, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		} else if err != nil {
			return 0, err
		}

		size += info.Size()
	}

	return size, nil
}

// Conn is a handle on the connection, optionally within a transaction. It must not be used after the callback that
// received it returns.
type Conn struct {
	db    *Database
	conn  *sqlx.Conn
	tx    *sqlx.Tx
	qw    utils.QueryWrapper
	entry *logrus.Entry
}

// Execute runs fn on this connection. Transactional calls join the transaction of c if there is one and start a new
// one otherwise. It does not take the database lock again.
func (c *Conn) Execute(ctx context.Context, transactional bool, fn func(context.Context, *Conn) error) error {
	if !transactional || c.tx != nil {
		return fn(ctx, c)
	}

	return c.db.wrapTx(ctx, c, fn)
}

// InTransaction returns whether statements on c run within a transaction.
func (c *Conn) InTransaction() bool {
	return c.tx != nil
}

func (c *Conn) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.qw.QueryContext(ctx, query, args...)
}

func (c *Conn) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return c.qw.QueryRowContext(ctx, query, args...)
}

func (c *Conn) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.qw.ExecContext(ctx, query, args...)
}

func (c *Conn) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	return c.qw.SelectContext(ctx, dest, query, args...)
}

func (c *Conn) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	return c.qw.GetContext(ctx, dest, query, args...)
}

func (c *Conn) Rebind(query string) string {
	return c.qw.Rebind(query)
}

func prepareDir(dir string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	path := filepath.Join(dir, NoMediaFile)

	if exists, err := pathExists(path); err != nil {
		return err
	} else if exists {
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	return f.Close()
}

func pathExists(path string) (bool, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, err
	}

	return true, nil
}

func databaseFiles(path string) []string {
	return []string{path, path + "-wal", path + "-shm", path + "-journal"}
}

func removeDatabaseFiles(path string) error {
	var errs []error

	for _, file := range databaseFiles(path) {
		if err := os.Remove(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func isCorruption(err error) bool {
	var sqliteErr sqlite3.Error

	if !errors.As(err, &sqliteErr) {
		return false
	}

	return sqliteErr.Code == sqlite3.ErrCorrupt || sqliteErr.Code == sqlite3.ErrNotADB
}

func getDatabaseConn(path string) string {
	return fmt.Sprintf("file:%v?_fk=1&_journal=WAL&_busy_timeout=5000", path)
}
