package storage

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a lookup by id matches no row.
var ErrNotFound = errors.New("not found")

// StorageError reports an I/O or constraint failure at the store boundary.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// UpdateResult tells whether an update matched a row.
type UpdateResult int

const (
	Updated UpdateResult = iota
	NotFound
)

func (r UpdateResult) String() string {
	if r == NotFound {
		return "not found"
	}
	return "updated"
}
