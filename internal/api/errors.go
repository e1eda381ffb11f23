package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/mentorbook-api/internal/api/shared"
	"github.com/phrazzld/mentorbook-api/internal/domain"
	"github.com/phrazzld/mentorbook-api/internal/outbox"
	"github.com/phrazzld/mentorbook-api/internal/service/auth"
	"github.com/phrazzld/mentorbook-api/internal/service/booking"
	"github.com/phrazzld/mentorbook-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// exposing internal error types to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidRole),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized

	// Authorization errors
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden

	// Not found errors
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, booking.ErrConflict),
		errors.Is(err, booking.ErrSessionNotScheduled),
		errors.Is(err, domain.ErrInvalidStatusTransition),
		errors.Is(err, outbox.ErrNotReplayable),
		errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-safe message for err.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var validationErr *domain.ValidationError
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"
	case MapErrorToStatusCode(err) == http.StatusUnauthorized:
		return "Invalid token"

	case errors.Is(err, domain.ErrForbidden):
		return "You are not a participant of this resource"

	case errors.Is(err, store.ErrMentorNotFound):
		return "Mentor not found"
	case errors.Is(err, store.ErrSessionNotFound):
		return "Session not found"
	case errors.Is(err, store.ErrBlockNotFound):
		return "Availability block not found"
	case errors.Is(err, store.ErrOutboxTaskNotFound):
		return "Outbox task not found"
	case errors.Is(err, store.ErrNotFound):
		return "Resource not found"

	case errors.Is(err, booking.ErrConflict):
		return "The requested time conflicts with the mentor's calendar"
	case errors.Is(err, booking.ErrSessionNotScheduled),
		errors.Is(err, domain.ErrInvalidStatusTransition):
		return "Session is no longer scheduled"
	case errors.Is(err, outbox.ErrNotReplayable):
		return "Only failed tasks can be replayed"

	case errors.As(err, &validationErr):
		return "Invalid request: " + validationErr.Error()
	case errors.Is(err, domain.ErrInvalidTimeRange):
		return "Invalid time range: start must be before end"
	case errors.Is(err, domain.ErrInvalidMeetingType):
		return "Invalid meeting type"
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		return "Invalid request data"

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError turns request validation failures into a
// client-safe summary plus per-field details.
func SanitizeValidationError(err error) (string, []shared.FieldError) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Validation error", nil
	}

	fields := make([]shared.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, shared.FieldError{
			Field:   fe.Field(),
			Message: getValidationTagMessage(fe.Tag(), fe.Param()),
		})
	}
	return fmt.Sprintf("Invalid %s: %s", fields[0].Field, fields[0].Message), fields
}

func getValidationTagMessage(tag, param string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "must be one of " + param
	case "gtfield":
		return "must be after " + param
	case "uuid":
		return "invalid identifier"
	case "gte", "lte":
		return "out of range"
	default:
		return "validation failed"
	}
}

// HandleAPIError writes the mapped status and safe message for err.
// fallback replaces the generic message for unexpected errors.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && fallback != "" {
		message = fallback
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err)
}
