package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/mentorbook-api/internal/domain"
	"github.com/phrazzld/mentorbook-api/internal/store"
)

// MockMentorStore implements store.MentorStore over a fixed candidate list.
type MockMentorStore struct {
	// Function fields for customizable behavior
	GetCandidateFn   func(ctx context.Context, id uuid.UUID) (*domain.MatchCandidate, error)
	ListCandidatesFn func(ctx context.Context, limit int) ([]domain.MatchCandidate, error)

	// Data for default implementation
	Candidates []domain.MatchCandidate
	Err        error
}

var _ store.MentorStore = (*MockMentorStore)(nil)

// NewMockMentorStore creates a store holding candidates in the given order.
func NewMockMentorStore(candidates ...domain.MatchCandidate) *MockMentorStore {
	return &MockMentorStore{Candidates: candidates}
}

// GetCandidate implements store.MentorStore.
func (m *MockMentorStore) GetCandidate(ctx context.Context, id uuid.UUID) (*domain.MatchCandidate, error) {
	if m.GetCandidateFn != nil {
		return m.GetCandidateFn(ctx, id)
	}
	if m.Err != nil {
		return nil, m.Err
	}

	for i := range m.Candidates {
		if m.Candidates[i].ID == id {
			c := m.Candidates[i]
			return &c, nil
		}
	}
	return nil, store.ErrMentorNotFound
}

// ListCandidates implements store.MentorStore.
func (m *MockMentorStore) ListCandidates(ctx context.Context, limit int) ([]domain.MatchCandidate, error) {
	if m.ListCandidatesFn != nil {
		return m.ListCandidatesFn(ctx, limit)
	}
	if m.Err != nil {
		return nil, m.Err
	}

	n := len(m.Candidates)
	if limit > 0 && limit < n {
		n = limit
	}
	result := make([]domain.MatchCandidate, n)
	copy(result, m.Candidates[:n])
	return result, nil
}
