package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/mentorbook-api/internal/config"
	"github.com/phrazzld/mentorbook-api/internal/domain"
	"github.com/phrazzld/mentorbook-api/internal/domain/schedule"
	"github.com/phrazzld/mentorbook-api/internal/platform/logger"
	"github.com/phrazzld/mentorbook-api/internal/store"
)

// Calendar events carried in mentor sync payloads.
const (
	EventSessionBooked        = "session_booked"
	EventSessionRescheduled   = "session_rescheduled"
	EventSessionStatusChanged = "session_status_changed"
	EventAvailabilityAdded    = "availability_added"
	EventAvailabilityRemoved  = "availability_removed"
)

// SyncEnqueuer hands entity changes to the outbox. Implementations never
// fail the caller.
type SyncEnqueuer interface {
	Enqueue(ctx context.Context, entityType, entityID string, action domain.OutboxAction, payload any)
}

// CalendarEvent is the payload of a mentor sync task raised by a calendar change.
type CalendarEvent struct {
	MentorID   uuid.UUID `json:"mentor_id"`
	Event      string    `json:"event"`
	SubjectID  uuid.UUID `json:"subject_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// BookingRequest describes a new session.
type BookingRequest struct {
	MentorID    uuid.UUID
	MenteeID    uuid.UUID
	Start       time.Time
	End         time.Time
	MeetingType domain.MeetingType
	Goals       string
}

// Availability is a mentor's calendar view over a range.
type Availability struct {
	MentorID       uuid.UUID         `json:"mentor_id"`
	RangeStart     time.Time         `json:"range_start"`
	RangeEnd       time.Time         `json:"range_end"`
	AvailableSlots []domain.TimeSlot `json:"available_slots"`
	BookedSlots    []domain.TimeSlot `json:"booked_slots"`
	Timezone       string            `json:"timezone"`
}

// Service implements the booking operations.
type Service struct {
	txRunner     store.TxRunner
	availability store.AvailabilityStore
	sessions     store.SessionStore
	mentors      store.MentorStore
	detector     *ConflictDetector
	sync         SyncEnqueuer

	defaultRange time.Duration
	timezone     string
	location     *time.Location
	now          func() time.Time
	logger       *slog.Logger
}

// NewService creates a booking service.
// It returns an error if a dependency is nil or the timezone cannot be loaded.
func NewService(
	cfg config.BookingConfig,
	txRunner store.TxRunner,
	availability store.AvailabilityStore,
	sessions store.SessionStore,
	mentors store.MentorStore,
	sync SyncEnqueuer,
	logger *slog.Logger,
) (*Service, error) {
	if txRunner == nil || availability == nil || sessions == nil || mentors == nil || sync == nil {
		return nil, &ServiceError{
			Operation: "create_service",
			Message:   "txRunner, stores and sync enqueuer are required",
		}
	}
	if cfg.DefaultRangeDays <= 0 {
		return nil, &ServiceError{
			Operation: "create_service",
			Message:   fmt.Sprintf("default range must be positive, got %d days", cfg.DefaultRangeDays),
		}
	}

	tz := cfg.Timezone
	if tz == "" {
		tz = "UTC"
	}
	location, err := time.LoadLocation(tz)
	if err != nil {
		return nil, &ServiceError{Operation: "create_service", Message: "invalid timezone", Err: err}
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		txRunner:     txRunner,
		availability: availability,
		sessions:     sessions,
		mentors:      mentors,
		detector:     NewConflictDetector(availability, sessions),
		sync:         sync,
		defaultRange: time.Duration(cfg.DefaultRangeDays) * 24 * time.Hour,
		timezone:     tz,
		location:     location,
		now:          func() time.Time { return time.Now().UTC() },
		logger:       logger.With(slog.String("component", "booking_service")),
	}, nil
}

// CreateBooking validates the request, checks the mentor's calendar and
// persists a scheduled session. A block offered for exactly the requested
// interval is consumed by the booking; every other overlap is ErrConflict.
func (s *Service) CreateBooking(ctx context.Context, req BookingRequest) (*domain.BookedSession, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	iv, err := domain.NewInterval(req.Start, req.End)
	if err != nil {
		return nil, err
	}
	session, err := domain.NewBookedSession(req.MentorID, req.MenteeID, iv.Start, iv.End, req.MeetingType, req.Goals)
	if err != nil {
		return nil, err
	}
	if _, err := s.mentors.GetCandidate(ctx, req.MentorID); err != nil {
		return nil, NewServiceError("create_booking", "failed to load mentor", err)
	}

	err = s.txRunner.RunInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		sessions := s.sessions.WithTx(tx)
		if err := sessions.LockMentor(ctx, req.MentorID); err != nil {
			return err
		}

		conflict, offered, err := s.detector.WithTx(tx).HasBookingConflict(ctx, req.MentorID, iv, uuid.Nil)
		if err != nil {
			return err
		}
		if conflict {
			return ErrConflict
		}

		if err := sessions.Create(ctx, session); err != nil {
			return err
		}
		if offered != nil {
			return s.availability.WithTx(tx).Delete(ctx, offered.ID)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			log.Info("booking rejected by conflict",
				slog.String("mentor_id", req.MentorID.String()),
				slog.Time("start", iv.Start),
				slog.Time("end", iv.End))
		} else {
			log.Error("failed to create booking",
				slog.String("error", err.Error()),
				slog.String("mentor_id", req.MentorID.String()))
		}
		return nil, NewServiceError("create_booking", "failed to create booking", err)
	}

	log.Info("session booked",
		slog.String("session_id", session.ID.String()),
		slog.String("mentor_id", session.MentorID.String()))
	s.enqueueMentorSync(ctx, session.MentorID, EventSessionBooked, session.ID)
	return session, nil
}

// RescheduleSession moves a scheduled session to a new interval. The old
// session is marked rescheduled and a new scheduled session linked to it is
// created; both happen under the mentor's calendar lock. The session's own
// current interval does not count as a conflict.
func (s *Service) RescheduleSession(
	ctx context.Context,
	sessionID, callerID uuid.UUID,
	newStart, newEnd time.Time,
) (*domain.BookedSession, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	iv, err := domain.NewInterval(newStart, newEnd)
	if err != nil {
		return nil, err
	}

	var replacement *domain.BookedSession
	err = s.txRunner.RunInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		sessions := s.sessions.WithTx(tx)
		old, err := s.lockSession(ctx, sessions, sessionID, callerID)
		if err != nil {
			return err
		}

		conflict, offered, err := s.detector.WithTx(tx).HasBookingConflict(ctx, old.MentorID, iv, old.ID)
		if err != nil {
			return err
		}
		if conflict {
			return ErrConflict
		}

		next, err := domain.NewBookedSession(old.MentorID, old.MenteeID, iv.Start, iv.End, old.MeetingType, old.Goals)
		if err != nil {
			return err
		}
		next.RescheduledFrom = &old.ID
		if err := old.TransitionTo(domain.SessionStatusRescheduled); err != nil {
			return err
		}

		if err := sessions.UpdateStatus(ctx, old.ID, domain.SessionStatusRescheduled); err != nil {
			return err
		}
		if err := sessions.Create(ctx, next); err != nil {
			return err
		}
		if offered != nil {
			if err := s.availability.WithTx(tx).Delete(ctx, offered.ID); err != nil {
				return err
			}
		}
		replacement = next
		return nil
	})
	if err != nil {
		log.Warn("failed to reschedule session",
			slog.String("error", err.Error()),
			slog.String("session_id", sessionID.String()))
		return nil, NewServiceError("reschedule_session", "failed to reschedule session", err)
	}

	log.Info("session rescheduled",
		slog.String("session_id", sessionID.String()),
		slog.String("new_session_id", replacement.ID.String()))
	s.enqueueMentorSync(ctx, replacement.MentorID, EventSessionRescheduled, replacement.ID)
	return replacement, nil
}

// UpdateSessionStatus completes or cancels a scheduled session.
// Rescheduling goes through RescheduleSession.
func (s *Service) UpdateSessionStatus(
	ctx context.Context,
	sessionID, callerID uuid.UUID,
	status domain.SessionStatus,
) (*domain.BookedSession, error) {
	if status != domain.SessionStatusCompleted && status != domain.SessionStatusCancelled {
		return nil, domain.NewValidationError("status", "must be completed or cancelled", domain.ErrInvalidSessionStatus)
	}

	var updated *domain.BookedSession
	err := s.txRunner.RunInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		sessions := s.sessions.WithTx(tx)
		session, err := s.lockSession(ctx, sessions, sessionID, callerID)
		if err != nil {
			return err
		}
		if err := session.TransitionTo(status); err != nil {
			return err
		}
		if err := sessions.UpdateStatus(ctx, session.ID, status); err != nil {
			return err
		}
		updated = session
		return nil
	})
	if err != nil {
		return nil, NewServiceError("update_session_status", "failed to update session status", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("session status changed",
		slog.String("session_id", sessionID.String()),
		slog.String("status", string(status)))
	s.enqueueMentorSync(ctx, updated.MentorID, EventSessionStatusChanged, updated.ID)
	return updated, nil
}

// GetSession returns a session visible to callerID.
func (s *Service) GetSession(ctx context.Context, sessionID, callerID uuid.UUID) (*domain.BookedSession, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, NewServiceError("get_session", "failed to load session", err)
	}
	if !isParticipant(session, callerID) {
		return nil, domain.ErrForbidden
	}
	return session, nil
}

// AddAvailability offers a new block on the mentor's calendar. The block
// may not overlap any existing block or scheduled session.
func (s *Service) AddAvailability(
	ctx context.Context,
	mentorID uuid.UUID,
	start, end time.Time,
	location string,
) (*domain.AvailabilityBlock, error) {
	block, err := domain.NewAvailabilityBlock(mentorID, start, end, location)
	if err != nil {
		return nil, err
	}
	if _, err := s.mentors.GetCandidate(ctx, mentorID); err != nil {
		return nil, NewServiceError("add_availability", "failed to load mentor", err)
	}

	err = s.txRunner.RunInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.sessions.WithTx(tx).LockMentor(ctx, mentorID); err != nil {
			return err
		}
		conflict, err := s.detector.WithTx(tx).HasConflict(ctx, mentorID, block.Start, block.End)
		if err != nil {
			return err
		}
		if conflict {
			return ErrConflict
		}
		return s.availability.WithTx(tx).Create(ctx, block)
	})
	if err != nil {
		return nil, NewServiceError("add_availability", "failed to add availability", err)
	}

	s.enqueueMentorSync(ctx, mentorID, EventAvailabilityAdded, block.ID)
	return block, nil
}

// RemoveAvailability revokes one of the mentor's blocks. A block owned by
// another mentor is reported as not found.
func (s *Service) RemoveAvailability(ctx context.Context, mentorID, blockID uuid.UUID) error {
	err := s.txRunner.RunInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.sessions.WithTx(tx).LockMentor(ctx, mentorID); err != nil {
			return err
		}
		blocks := s.availability.WithTx(tx)
		block, err := blocks.GetByID(ctx, blockID)
		if err != nil {
			return err
		}
		if block.MentorID != mentorID {
			return store.ErrBlockNotFound
		}
		return blocks.Delete(ctx, blockID)
	})
	if err != nil {
		return NewServiceError("remove_availability", "failed to remove availability", err)
	}

	s.enqueueMentorSync(ctx, mentorID, EventAvailabilityRemoved, blockID)
	return nil
}

// GetAvailability returns the mentor's slot view for [from, to]. A nil from
// defaults to now and a nil to defaults to from plus the configured range.
func (s *Service) GetAvailability(ctx context.Context, mentorID uuid.UUID, from, to *time.Time) (*Availability, error) {
	rangeStart := s.now()
	if from != nil {
		rangeStart = from.UTC()
	}
	rangeEnd := rangeStart.Add(s.defaultRange)
	if to != nil {
		rangeEnd = to.UTC()
	}
	if rangeEnd.Before(rangeStart) {
		return nil, domain.ErrInvalidTimeRange
	}

	if _, err := s.mentors.GetCandidate(ctx, mentorID); err != nil {
		return nil, NewServiceError("get_availability", "failed to load mentor", err)
	}

	blocks, err := s.availability.ListByMentor(ctx, mentorID, rangeStart, rangeEnd)
	if err != nil {
		return nil, NewServiceError("get_availability", "failed to list availability", err)
	}
	sessions, err := s.sessions.ListScheduled(ctx, mentorID, rangeStart, rangeEnd)
	if err != nil {
		return nil, NewServiceError("get_availability", "failed to list sessions", err)
	}

	available, booked := schedule.GenerateSlots(blocks, sessions, rangeStart, rangeEnd)
	localize(available, s.location)
	localize(booked, s.location)

	return &Availability{
		MentorID:       mentorID,
		RangeStart:     rangeStart.In(s.location),
		RangeEnd:       rangeEnd.In(s.location),
		AvailableSlots: available,
		BookedSlots:    booked,
		Timezone:       s.timezone,
	}, nil
}

// lockSession loads a session, takes its mentor's calendar lock and re-reads
// it so the status check sees every write committed before the lock.
func (s *Service) lockSession(
	ctx context.Context,
	sessions store.SessionStore,
	sessionID, callerID uuid.UUID,
) (*domain.BookedSession, error) {
	session, err := sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !isParticipant(session, callerID) {
		return nil, domain.ErrForbidden
	}
	if err := sessions.LockMentor(ctx, session.MentorID); err != nil {
		return nil, err
	}
	session, err = sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsScheduled() {
		return nil, ErrSessionNotScheduled
	}
	return session, nil
}

func (s *Service) enqueueMentorSync(ctx context.Context, mentorID uuid.UUID, event string, subjectID uuid.UUID) {
	s.sync.Enqueue(ctx, domain.EntityTypeMentor, mentorID.String(), domain.OutboxActionUpsert, CalendarEvent{
		MentorID:   mentorID,
		Event:      event,
		SubjectID:  subjectID,
		OccurredAt: s.now(),
	})
}

func isParticipant(session *domain.BookedSession, callerID uuid.UUID) bool {
	return callerID == session.MentorID || callerID == session.MenteeID
}

func localize(slots []domain.TimeSlot, loc *time.Location) {
	for i := range slots {
		slots[i].Start = slots[i].Start.In(loc)
		slots[i].End = slots[i].End.In(loc)
	}
}
