package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is; the concrete values returned by the
// service are usually wrapped with operation context.
var (
	ErrValidation        = errors.New("validation failed")
	ErrInvalidManager    = errors.New("invalid manager")
	ErrUserNotFound      = errors.New("user not found")
	ErrUserExists        = errors.New("user already exists")
	ErrIncorrectPassword = errors.New("the password is incorrect")
	ErrUnauthenticated   = errors.New("not valid credentials")
	ErrForbidden         = errors.New("access forbidden")
	ErrStore             = errors.New("store failure")
	ErrConflict          = errors.New("concurrent modification")
	// ErrPartialWrite marks a failure raised after some records of a
	// multi-record operation were already written.
	ErrPartialWrite = errors.New("operation may have been partially applied")
)

// ValidationError is a client fault: bad input or a broken invariant.
type ValidationError struct {
	Reason string
	cause  error
}

// NewValidationError formats a ValidationError.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// InvalidManagerError is a ValidationError that also matches ErrInvalidManager.
func InvalidManagerError(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...), cause: ErrInvalidManager}
}

func (e *ValidationError) Error() string { return e.Reason }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func (e *ValidationError) Unwrap() error { return e.cause }

// StoreError reports a backing store failure. It may be transient, and when
// raised in the middle of a multi-record operation the operation may have been
// partially applied.
type StoreError struct {
	Op  string
	Key string
	Err error
}

func (e *StoreError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Is(target error) bool { return target == ErrStore }

func (e *StoreError) Unwrap() error { return e.Err }
