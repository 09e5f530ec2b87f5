package utils

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/bradenaw/juniper/xslices"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// Collection of SQL utilities to process SQL Rows and to convert SQL errors to ErrNotFound.

var ErrNotFound = errors.New("value not found")

type RowScanner interface {
	Scan(args ...any) error
}

func MapQueryRowsFn[T any](ctx context.Context, qw QueryWrapper, query string, m func(RowScanner) (T, error), args ...any) ([]T, error) {
	var result []T

	if err := ForEachRow(ctx, qw, query, func(scanner RowScanner) error {
		val, err := m(scanner)
		if err != nil {
			return err
		}

		result = append(result, val)

		return nil
	}, args...); err != nil {
		return nil, err
	}

	return result, nil
}

func MapQueryRows[T any](ctx context.Context, qw QueryWrapper, query string, args ...any) ([]T, error) {
	return MapQueryRowsFn(ctx, qw, query, func(scanner RowScanner) (T, error) {
		var v T

		err := scanner.Scan(&v)

		return v, err
	}, args...)
}

func MapQueryRowFn[T any](ctx context.Context, qw QueryWrapper, query string, m func(RowScanner) (T, error), args ...any) (T, error) {
	row := qw.QueryRowContext(ctx, query, args...)

	v, err := m(row)

	return v, mapSQLError(err)
}

func MapQueryRow[T any](ctx context.Context, qw QueryWrapper, query string, args ...any) (T, error) {
	return MapQueryRowFn(ctx, qw, query, func(scanner RowScanner) (T, error) {
		var v T

		err := scanner.Scan(&v)

		return v, err
	}, args...)
}

// ForEachRow runs fn on every row of the query. The rows are closed on every return path, including panics.
func ForEachRow(ctx context.Context, qw QueryWrapper, query string, fn func(RowScanner) error, args ...any) error {
	rows, err := qw.QueryContext(ctx, query, args...)
	if err != nil {
		return mapSQLError(err)
	}

	defer func() { _ = rows.Close() }()

	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}

	return rows.Err()
}

// Select scans all rows of the query into structs tagged with `db`.
func Select[T any](ctx context.Context, qw QueryWrapper, query string, args ...any) ([]T, error) {
	var result []T

	if err := qw.SelectContext(ctx, &result, query, args...); err != nil {
		return nil, mapSQLError(err)
	}

	return result, nil
}

// Get scans a single row into a struct tagged with `db`.
func Get[T any](ctx context.Context, qw QueryWrapper, query string, args ...any) (T, error) {
	var result T

	err := qw.GetContext(ctx, &result, query, args...)

	return result, mapSQLError(err)
}

func ExecQueryAndCheckUpdatedNotZero(ctx context.Context, wrapper QueryWrapper, query string, args ...any) error {
	updated, err := ExecQuery(ctx, wrapper, query, args...)
	if err != nil {
		return err
	}

	if updated == 0 {
		return fmt.Errorf("no values changed")
	}

	return nil
}

func ExecQuery(ctx context.Context, wrapper QueryWrapper, query string, args ...any) (int, error) {
	r, err := wrapper.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}

	affected, err := r.RowsAffected()
	if err != nil {
		panic("affected rows is unsupported")
	}

	return int(affected), nil
}

// ExecInsert runs an insert statement and returns the id of the new row.
func ExecInsert(ctx context.Context, wrapper QueryWrapper, query string, args ...any) (int64, error) {
	r, err := wrapper.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}

	return r.LastInsertId()
}

// In expands slice arguments of the query into IN lists and rebinds it for the wrapper's driver.
func In(qw QueryWrapper, query string, args ...any) (string, []any, error) {
	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, err
	}

	return qw.Rebind(query), args, nil
}

func GenSQLIn(count int) string {
	if count <= 0 {
		panic("count can't be less or equal to 0")
	}

	if count == 1 {
		return "?"
	}

	return strings.Repeat("?,", count-1) + "?"
}

func MapSliceToAny[T any](v []T) []any {
	return xslices.Map(v, func(t T) any {
		return t
	})
}

func QueryExists(ctx context.Context, qw QueryWrapper, query string, args ...any) (bool, error) {
	if _, err := MapQueryRow[int](ctx, qw, query, args...); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}

		return false, err
	}

	return true, nil
}

func WrapClose(c interface{ Close() error }) {
	if err := c.Close(); err != nil {
		logrus.WithError(err).Error("Failed to close")
	}
}

func mapSQLError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	return err
}
