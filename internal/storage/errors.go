// file: internal/storage/errors.go
// version: 1.0.0
// guid: 6c2d9e0f-1a3b-4c5d-8e7f-9a0b1c2d3e4f

package storage

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the storage engine. Callers match them with
// errors.Is; raw Pebble errors never leave this package.
var (
	// ErrConnectionFailed means the database could not be opened, including
	// the case where another process holds the directory lock.
	ErrConnectionFailed = errors.New("storage: connection failed")

	// ErrMigrationFailed means a schema upgrade step failed. The upgrade
	// batch is discarded, so the on-disk schema stays at the old version.
	ErrMigrationFailed = errors.New("storage: migration failed")

	// ErrTransactionFailed means a read/write against the store aborted.
	// Retrying the operation is safe; commits are all-or-nothing.
	ErrTransactionFailed = errors.New("storage: transaction failed")

	// ErrValidation means the caller supplied malformed input, e.g. an
	// unparseable backup payload or a book without a title.
	ErrValidation = errors.New("storage: validation error")

	// ErrNotFound means an operation required an id that does not exist.
	// Lookups that tolerate absence return a nil record instead.
	ErrNotFound = errors.New("storage: not found")

	// ErrUnknown wraps unexpected failures, preserving the cause text.
	ErrUnknown = errors.New("storage: unknown error")
)

// wrap attaches an operation description and optional cause to a kind.
func wrap(kind error, op string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%w: %s", kind, op)
	}
	return fmt.Errorf("%w: %s: %v", kind, op, cause)
}
