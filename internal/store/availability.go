package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/mentorbook-api/internal/domain"
)

// AvailabilityStore persists the open availability blocks of mentors.
type AvailabilityStore interface {
	// Create saves a new block. Returns validation errors for invalid blocks.
	Create(ctx context.Context, block *domain.AvailabilityBlock) error

	// GetByID retrieves a block. Returns ErrBlockNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.AvailabilityBlock, error)

	// Delete removes a block. Returns ErrBlockNotFound if it does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// ListByMentor returns the mentor's blocks whose start lies in [from, to],
	// ordered by start.
	ListByMentor(ctx context.Context, mentorID uuid.UUID, from, to time.Time) ([]domain.AvailabilityBlock, error)

	// FindOverlapping returns the mentor's blocks that intersect iv under
	// half-open semantics (stored.start < iv.End AND stored.end > iv.Start).
	FindOverlapping(ctx context.Context, mentorID uuid.UUID, iv domain.Interval) ([]domain.AvailabilityBlock, error)

	// WithTx returns a store bound to tx.
	WithTx(tx *sql.Tx) AvailabilityStore
}
