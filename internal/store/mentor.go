package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/mentorbook-api/internal/domain"
)

// MentorStore reads the mentor profile projection. Profiles are owned by the
// profile service; this store never writes them.
type MentorStore interface {
	// GetCandidate returns the match projection of one active mentor.
	// Returns ErrMentorNotFound if the mentor does not exist or is inactive.
	GetCandidate(ctx context.Context, id uuid.UUID) (*domain.MatchCandidate, error)

	// ListCandidates returns up to limit active mentors in a stable order
	// (display name, then id). HasOpenAvailability reports whether the mentor
	// has a block starting at or after now.
	ListCandidates(ctx context.Context, limit int) ([]domain.MatchCandidate, error)
}
