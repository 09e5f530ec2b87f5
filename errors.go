package localstore

import (
	"errors"
	"fmt"
)

var (
	// ErrStorage is matched by every failure of the database or the attachment files.
	ErrStorage = errors.New("storage failure")

	ErrPartNotFound    = errors.New("part not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrFolderNotFound  = errors.New("folder not found")
	ErrFolderExists    = errors.New("folder already exists")
	ErrUnsupportedFlag = errors.New("flag has no dedicated column")
)

// StorageError is a failed persistence operation. It matches both ErrStorage and the underlying error.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%v: %v: %v", ErrStorage, e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error {
	return []error{ErrStorage, e.Err}
}

// IsStorageError returns true if the error is a failed persistence operation.
func IsStorageError(err error) bool {
	return errors.Is(err, ErrStorage)
}

// IsNotFound returns true if the error reports a missing folder, message or part.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrFolderNotFound) || errors.Is(err, ErrMessageNotFound) || errors.Is(err, ErrPartNotFound)
}

// storageError wraps err as a StorageError unless it already is one or reports a caller mistake.
func storageError(op string, err error) error {
	if err == nil {
		return nil
	}

	var storageErr *StorageError

	if errors.As(err, &storageErr) {
		return err
	}

	for _, target := range []error{ErrFolderNotFound, ErrFolderExists, ErrUnsupportedFlag, ErrMessageNotFound} {
		if errors.Is(err, target) {
			return err
		}
	}

	return &StorageError{Op: op, Err: err}
}

// integrityError reports data that the schema should have prevented from going missing.
func integrityError(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
