package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for pipeline entry validation.
var (
	ErrMalformedInput      = errors.New("malformed input")
	ErrInvalidWindowConfig = errors.New("invalid window config")
	ErrEmptyDocID          = errors.New("empty doc id")
)

// ValidationError wraps a sentinel with the offending field and value.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}
