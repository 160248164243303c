package models

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks client-side input problems; nothing was written.
	ErrValidation = errors.New("validation failed")
	// ErrStoreUnavailable marks a remote read or write that could not complete.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrRecordNotFound is returned when an id does not exist in its collection.
	ErrRecordNotFound = errors.New("record not found")
	// ErrNoRenderSurface is returned by printers that cannot open an output.
	ErrNoRenderSurface = errors.New("no render surface")
	// ErrNotPermitted is returned for edit and delete calls without the admin capability.
	ErrNotPermitted = errors.New("admin capability required")
	// ErrPartialFailure marks a multi-collection operation that only partly applied.
	ErrPartialFailure = errors.New("partial failure")
)

// ValidationError describes which input blocked a submission.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid is shorthand for a *ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// StoreFailure wraps a backend error so callers can match ErrStoreUnavailable.
func StoreFailure(op string, c Collection, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrRecordNotFound) {
		return fmt.Errorf("%s %s: %w", op, c, err)
	}
	return fmt.Errorf("%s %s: %w: %w", op, c, ErrStoreUnavailable, err)
}
