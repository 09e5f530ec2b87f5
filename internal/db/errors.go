package db

import (
	"errors"

	"github.com/ProtonMail/localstore/internal/db/utils"
)

var ErrNotFound = utils.ErrNotFound
var ErrTransactionFailed = errors.New("transaction failed")
var ErrMigrationFailed = errors.New("database migration failed")
var ErrInvalidDatabaseVersion = errors.New("database version is newer than supported")
var ErrClosed = errors.New("database is closed")

func IsErrNotFound(err error) bool {
	if err == nil {
		return false
	}

	return errors.Is(err, ErrNotFound)
}

// ErrCause returns the innermost error of a wrap chain.
func ErrCause(err error) error {
	cause := err

	for errors.Unwrap(cause) != nil {
		cause = errors.Unwrap(cause)
	}

	return cause
}
