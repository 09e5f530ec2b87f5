package utils

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// QueryWrapper is implemented by the pinned connection and by transactions so the same helpers work on both.
// It can be decorated (e.g.: DebugQueryWrapper).
type QueryWrapper interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	Rebind(query string) string
}

type ConnWrapper struct {
	Conn *sqlx.Conn
}

func (c ConnWrapper) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.Conn.QueryContext(ctx, query, args...)
}

func (c ConnWrapper) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return c.Conn.QueryRowContext(ctx, query, args...)
}

func (c ConnWrapper) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.Conn.ExecContext(ctx, query, args...)
}

func (c ConnWrapper) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	return c.Conn.SelectContext(ctx, dest, query, args...)
}

func (c ConnWrapper) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	return c.Conn.GetContext(ctx, dest, query, args...)
}

func (c ConnWrapper) Rebind(query string) string {
	return c.Conn.Rebind(query)
}

type TXWrapper struct {
	TX *sqlx.Tx
}

func (t TXWrapper) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.TX.QueryContext(ctx, query, args...)
}

func (t TXWrapper) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return t.TX.QueryRowContext(ctx, query, args...)
}

func (t TXWrapper) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.TX.ExecContext(ctx, query, args...)
}

func (t TXWrapper) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	return t.TX.SelectContext(ctx, dest, query, args...)
}

func (t TXWrapper) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	return t.TX.GetContext(ctx, dest, query, args...)
}

func (t TXWrapper) Rebind(query string) string {
	return t.TX.Rebind(query)
}

// DebugQueryWrapper logs every statement and its arguments at debug level.
type DebugQueryWrapper struct {
	QW    QueryWrapper
	Entry *logrus.Entry
}

func (d DebugQueryWrapper) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	d.Entry.Debugf("query=%v args=%v", query, args)

	return d.QW.QueryContext(ctx, query, args...)
}

func (d DebugQueryWrapper) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	d.Entry.Debugf("query=%v args=%v", query, args)

	return d.QW.QueryRowContext(ctx, query, args...)
}

func (d DebugQueryWrapper) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	d.Entry.Debugf("exec=%v args=%v", query, args)

	return d.QW.ExecContext(ctx, query, args...)
}

func (d DebugQueryWrapper) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	d.Entry.Debugf("select=%v args=%v", query, args)

	return d.QW.SelectContext(ctx, dest, query, args...)
}

func (d DebugQueryWrapper) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	d.Entry.Debugf("get=%v args=%v", query, args)

	return d.QW.GetContext(ctx, dest, query, args...)
}

func (d DebugQueryWrapper) Rebind(query string) string {
	return d.QW.Rebind(query)
}
