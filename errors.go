package rbac

import (
	"errors"
	"fmt"
)

// Custom errors
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotFound         = errors.New("resource not found")
	ErrPermissionDenied = errors.New("permission denied")

	// ErrValidation rejects a mutation before anything is written.
	ErrValidation = errors.New("validation failed")
	// ErrConfiguration reports a rule table that cannot be compiled.
	ErrConfiguration = errors.New("invalid configuration")
	// ErrStorage wraps failures of the underlying store.
	ErrStorage = errors.New("storage failure")
)

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}
