// Package apperr defines the error taxonomy shared by the record store, the
// toggle engine and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound covers both a missing habit and a habit owned by someone
	// else. Callers must not be able to tell the two apart.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned by the store when a (habit, date) completion
	// already exists.
	ErrConflict = errors.New("conflict")

	// ErrStorageUnavailable marks transient failures reaching the store.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// ValidationError rejects caller input that cannot be coerced.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NewValidationError returns a *ValidationError for field.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// Unavailable wraps err so that errors.Is(err, ErrStorageUnavailable) holds
// while the original cause stays reachable through errors.As.
func Unavailable(op string, err error) error {
	return &storageError{op: op, err: err}
}

type storageError struct {
	op  string
	err error
}

func (e *storageError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.op, ErrStorageUnavailable, e.err)
}

func (e *storageError) Unwrap() []error {
	return []error{ErrStorageUnavailable, e.err}
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

func IsUnavailable(err error) bool {
	return errors.Is(err, ErrStorageUnavailable)
}

// AsValidation returns the *ValidationError in err's chain, if any.
func AsValidation(err error) (*ValidationError, bool) {
	var v *ValidationError
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}
