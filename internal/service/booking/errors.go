package booking

import (
	"errors"
	"fmt"

	"github.com/phrazzld/mentorbook-api/internal/domain"
	"github.com/phrazzld/mentorbook-api/internal/store"
)

// Sentinel errors returned by the booking service.
// The API layer maps ErrConflict to 409 and ErrSessionNotScheduled to 409.
var (
	// ErrConflict indicates the requested interval overlaps an availability
	// block or a scheduled session of the same mentor.
	ErrConflict = errors.New("time range conflicts with existing calendar entries")

	// ErrSessionNotScheduled indicates a lifecycle change on a session that
	// has already been completed, cancelled or rescheduled.
	ErrSessionNotScheduled = errors.New("session is not scheduled")
)

// ServiceError wraps errors from the booking service with context.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "create_booking")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("booking service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("booking service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
// Errors the caller is expected to branch on (conflicts, lifecycle and
// validation failures, missing entities, authorization) are returned as they are.
func NewServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, ErrSessionNotScheduled),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrForbidden),
		errors.Is(err, store.ErrNotFound):
		return err
	}

	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
