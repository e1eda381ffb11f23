package booking

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/mentorbook-api/internal/domain"
	"github.com/phrazzld/mentorbook-api/internal/domain/schedule"
	"github.com/phrazzld/mentorbook-api/internal/store"
)

// ConflictDetector decides whether a candidate interval collides with a
// mentor's existing calendar. It only reads; callers serialize the check and
// the following write by holding the mentor's calendar lock in the same
// transaction.
type ConflictDetector struct {
	availability store.AvailabilityStore
	sessions     store.SessionStore
}

// NewConflictDetector creates a detector reading from the given stores.
func NewConflictDetector(availability store.AvailabilityStore, sessions store.SessionStore) *ConflictDetector {
	return &ConflictDetector{availability: availability, sessions: sessions}
}

// WithTx returns a detector that reads inside tx.
func (d *ConflictDetector) WithTx(tx *sql.Tx) *ConflictDetector {
	return &ConflictDetector{
		availability: d.availability.WithTx(tx),
		sessions:     d.sessions.WithTx(tx),
	}
}

// HasConflict reports whether [start, end) overlaps any availability block
// or any scheduled session of the mentor. Intervals that merely touch do not
// conflict. An invalid range is rejected with domain.ErrInvalidTimeRange.
func (d *ConflictDetector) HasConflict(ctx context.Context, mentorID uuid.UUID, start, end time.Time) (bool, error) {
	iv, err := domain.NewInterval(start, end)
	if err != nil {
		return false, err
	}

	blocks, err := d.availability.FindOverlapping(ctx, mentorID, iv)
	if err != nil {
		return false, fmt.Errorf("failed to query overlapping blocks: %w", err)
	}
	if schedule.OverlapsAnyBlock(iv, blocks) {
		return true, nil
	}

	sessions, err := d.sessions.FindOverlappingScheduled(ctx, mentorID, iv)
	if err != nil {
		return false, fmt.Errorf("failed to query overlapping sessions: %w", err)
	}
	return schedule.OverlapsAnyScheduled(iv, sessions), nil
}

// HasBookingConflict is the check used when a mentee books an interval.
// A block whose bounds equal iv exactly is the slot being booked: it is
// returned so the caller can consume it, and does not count as a conflict.
// Any other overlapping block or scheduled session does. The session with id
// exclude (uuid.Nil for none) is ignored, which lets a reschedule move a
// session into a window that overlaps its current one.
func (d *ConflictDetector) HasBookingConflict(
	ctx context.Context,
	mentorID uuid.UUID,
	iv domain.Interval,
	exclude uuid.UUID,
) (bool, *domain.AvailabilityBlock, error) {
	if err := iv.Validate(); err != nil {
		return false, nil, err
	}

	blocks, err := d.availability.FindOverlapping(ctx, mentorID, iv)
	if err != nil {
		return false, nil, fmt.Errorf("failed to query overlapping blocks: %w", err)
	}

	var offered *domain.AvailabilityBlock
	others := make([]domain.AvailabilityBlock, 0, len(blocks))
	for i := range blocks {
		if offered == nil && blocks[i].Interval().Equal(iv) {
			offered = &blocks[i]
			continue
		}
		others = append(others, blocks[i])
	}
	if schedule.OverlapsAnyBlock(iv, others) {
		return true, nil, nil
	}

	sessions, err := d.sessions.FindOverlappingScheduled(ctx, mentorID, iv)
	if err != nil {
		return false, nil, fmt.Errorf("failed to query overlapping sessions: %w", err)
	}
	remaining := make([]domain.BookedSession, 0, len(sessions))
	for _, s := range sessions {
		if s.ID != exclude {
			remaining = append(remaining, s)
		}
	}
	if schedule.OverlapsAnyScheduled(iv, remaining) {
		return true, nil, nil
	}

	return false, offered, nil
}
