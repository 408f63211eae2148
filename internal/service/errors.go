package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfiguration is returned when construction-time validation fails
	// (chunk sizes, search weights, top-k bounds). These surface immediately.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrInvalidInput is returned when per-call input validation fails.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDimensionMismatch is returned when an embedding width disagrees with
	// the index's fixed dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrNotFound is returned when a requested resource is not found.
	ErrNotFound = errors.New("not found")
	// ErrExternalService is returned when an external service call fails.
	ErrExternalService = errors.New("external service error")
)

// ValidationError represents a validation error with a field name.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfiguration
}

// WrapError wraps an error with additional context.
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}
