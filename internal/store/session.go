package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/mentorbook-api/internal/domain"
)

// SessionStore persists booked sessions.
type SessionStore interface {
	// Create saves a new session.
	Create(ctx context.Context, session *domain.BookedSession) error

	// GetByID retrieves a session. Returns ErrSessionNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.BookedSession, error)

	// UpdateStatus changes the status of a session.
	// Returns ErrSessionNotFound if it does not exist.
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.SessionStatus) error

	// ListScheduled returns the mentor's scheduled sessions whose start lies
	// in [from, to], ordered by start.
	ListScheduled(ctx context.Context, mentorID uuid.UUID, from, to time.Time) ([]domain.BookedSession, error)

	// FindOverlappingScheduled returns the mentor's scheduled sessions that
	// intersect iv under half-open semantics.
	FindOverlappingScheduled(ctx context.Context, mentorID uuid.UUID, iv domain.Interval) ([]domain.BookedSession, error)

	// LockMentor serializes writers to one mentor's calendar until the
	// surrounding transaction ends. Must be called through WithTx.
	LockMentor(ctx context.Context, mentorID uuid.UUID) error

	// WithTx returns a store bound to tx.
	WithTx(tx *sql.Tx) SessionStore
}
