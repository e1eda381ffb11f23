package domain

import (
	"errors"
	"fmt"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = fmt.Errorf("%w: invalid ID", ErrValidation)

	// ErrInvalidTimeRange is returned when an interval does not satisfy start < end.
	ErrInvalidTimeRange = fmt.Errorf("%w: start must be before end", ErrValidation)

	// ErrInvalidSessionStatus is returned when a session status is not one of the known values.
	ErrInvalidSessionStatus = fmt.Errorf("%w: invalid session status", ErrValidation)

	// ErrInvalidStatusTransition is returned when a session status change is not allowed.
	ErrInvalidStatusTransition = errors.New("invalid session status transition")

	// ErrInvalidOutboxTransition is returned when an outbox task is moved out of order.
	ErrInvalidOutboxTransition = errors.New("invalid outbox task transition")

	// ErrUnauthorized is returned when an operation is not permitted.
	ErrUnauthorized = errors.New("unauthorized operation")

	// ErrForbidden is returned when the caller is authenticated but may not act on the resource.
	ErrForbidden = errors.New("forbidden")
)

// ValidationError describes a single invalid field.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ValidationError) Unwrap() error {
	if e.Err == nil {
		return ErrValidation
	}
	return e.Err
}

// NewValidationError creates a ValidationError for the given field.
// If err is nil, the error unwraps to ErrValidation.
func NewValidationError(field, message string, err error) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Err:     err,
	}
}
