package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a lookup resolves no record. It is not a
// StorageError: the device is fine, the record does not exist.
var ErrNotFound = errors.New("record not found")

// StorageError wraps a local persistence failure (device unavailable,
// quota exceeded, lock timeout). It is recoverable: the caller may retry
// the operation, and records committed before the failure are intact.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
