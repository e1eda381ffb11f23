package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/mentorbook-api/internal/api/shared"
	"github.com/phrazzld/mentorbook-api/internal/domain"
	"github.com/phrazzld/mentorbook-api/internal/platform/logger"
	"github.com/phrazzld/mentorbook-api/internal/service/booking"
)

// BookingService is the booking behaviour the HTTP layer depends on.
type BookingService interface {
	CreateBooking(ctx context.Context, req booking.BookingRequest) (*domain.BookedSession, error)
	RescheduleSession(ctx context.Context, sessionID, callerID uuid.UUID, newStart, newEnd time.Time) (*domain.BookedSession, error)
	UpdateSessionStatus(ctx context.Context, sessionID, callerID uuid.UUID, status domain.SessionStatus) (*domain.BookedSession, error)
	GetSession(ctx context.Context, sessionID, callerID uuid.UUID) (*domain.BookedSession, error)
	AddAvailability(ctx context.Context, mentorID uuid.UUID, start, end time.Time, location string) (*domain.AvailabilityBlock, error)
	RemoveAvailability(ctx context.Context, mentorID, blockID uuid.UUID) error
	GetAvailability(ctx context.Context, mentorID uuid.UUID, from, to *time.Time) (*booking.Availability, error)
}

var _ BookingService = (*booking.Service)(nil)

// BookingHandler handles availability and session requests.
type BookingHandler struct {
	bookingService BookingService
	logger         *slog.Logger
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(bookingService BookingService, logger *slog.Logger) *BookingHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for BookingHandler")
	}

	return &BookingHandler{
		bookingService: bookingService,
		logger:         logger.With(slog.String("component", "booking_handler")),
	}
}

// GetAvailability handles GET /api/mentors/{mentorID}/availability.
// Optional from and to query parameters bound the range.
func (h *BookingHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	mentorID, err := getPathUUID(r, "mentorID")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	from, err := getQueryTime(r, "from")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	to, err := getQueryTime(r, "to")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	view, err := h.bookingService.GetAvailability(r.Context(), mentorID, from, to)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load availability")
		return
	}

	log.Debug("availability served",
		slog.String("mentor_id", mentorID.String()),
		slog.Int("available", len(view.AvailableSlots)),
		slog.Int("booked", len(view.BookedSlots)))

	resp := AvailabilityResponse{
		MentorID:       view.MentorID.String(),
		RangeStart:     view.RangeStart,
		RangeEnd:       view.RangeEnd,
		Timezone:       view.Timezone,
		AvailableSlots: view.AvailableSlots,
		BookedSlots:    view.BookedSlots,
	}
	if resp.AvailableSlots == nil {
		resp.AvailableSlots = []domain.TimeSlot{}
	}
	if resp.BookedSlots == nil {
		resp.BookedSlots = []domain.TimeSlot{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// AddAvailability handles POST /api/mentors/{mentorID}/availability.
// Only the mentor may edit their own calendar.
func (h *BookingHandler) AddAvailability(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, mentorID, ok := handleUserIDAndPathUUID(w, r, "mentorID", log)
	if !ok {
		return
	}
	if userID != mentorID {
		HandleAPIError(w, r, domain.ErrForbidden, "")
		return
	}

	var req CreateAvailabilityRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	block, err := h.bookingService.AddAvailability(r.Context(), mentorID, req.Start, req.End, req.Location)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to add availability")
		return
	}

	log.Info("availability added",
		slog.String("mentor_id", mentorID.String()),
		slog.String("block_id", block.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, blockToResponse(block))
}

// RemoveAvailability handles DELETE /api/mentors/{mentorID}/availability/{blockID}.
func (h *BookingHandler) RemoveAvailability(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, mentorID, ok := handleUserIDAndPathUUID(w, r, "mentorID", log)
	if !ok {
		return
	}
	if userID != mentorID {
		HandleAPIError(w, r, domain.ErrForbidden, "")
		return
	}
	blockID, err := getPathUUID(r, "blockID")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if err := h.bookingService.RemoveAvailability(r.Context(), mentorID, blockID); err != nil {
		HandleAPIError(w, r, err, "Failed to remove availability")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CreateSession handles POST /api/mentors/{mentorID}/sessions.
// The authenticated caller books as the mentee.
func (h *BookingHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	menteeID, mentorID, ok := handleUserIDAndPathUUID(w, r, "mentorID", log)
	if !ok {
		return
	}
	if menteeID == mentorID {
		HandleAPIError(w, r, domain.NewValidationError("mentorID", "cannot book a session with yourself", nil), "")
		return
	}

	var req CreateSessionRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	session, err := h.bookingService.CreateBooking(r.Context(), booking.BookingRequest{
		MentorID:    mentorID,
		MenteeID:    menteeID,
		Start:       req.Start,
		End:         req.End,
		MeetingType: domain.MeetingType(req.MeetingType),
		Goals:       req.Goals,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to book session")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, sessionToResponse(session))
}

// GetSession handles GET /api/sessions/{sessionID}.
func (h *BookingHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, sessionID, ok := handleUserIDAndPathUUID(w, r, "sessionID", log)
	if !ok {
		return
	}

	session, err := h.bookingService.GetSession(r.Context(), sessionID, userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load session")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, sessionToResponse(session))
}

// UpdateSessionStatus handles PATCH /api/sessions/{sessionID}/status.
func (h *BookingHandler) UpdateSessionStatus(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, sessionID, ok := handleUserIDAndPathUUID(w, r, "sessionID", log)
	if !ok {
		return
	}

	var req UpdateSessionStatusRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	session, err := h.bookingService.UpdateSessionStatus(r.Context(), sessionID, userID, domain.SessionStatus(req.Status))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update session")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, sessionToResponse(session))
}

// RescheduleSession handles POST /api/sessions/{sessionID}/reschedule.
// The response is the replacement session.
func (h *BookingHandler) RescheduleSession(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, sessionID, ok := handleUserIDAndPathUUID(w, r, "sessionID", log)
	if !ok {
		return
	}

	var req RescheduleSessionRequest
	if !decodeAndValidate(w, r, &req, log) {
		return
	}

	session, err := h.bookingService.RescheduleSession(r.Context(), sessionID, userID, req.Start, req.End)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to reschedule session")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, sessionToResponse(session))
}
