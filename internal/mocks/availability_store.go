package mocks

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/mentorbook-api/internal/domain"
	"github.com/phrazzld/mentorbook-api/internal/store"
)

// MockAvailabilityStore implements store.AvailabilityStore in memory.
type MockAvailabilityStore struct {
	mu     sync.Mutex
	blocks map[uuid.UUID]domain.AvailabilityBlock

	// KnownMentors, when non-nil, restricts Create to these mentors and
	// returns store.ErrMentorNotFound for anyone else.
	KnownMentors map[uuid.UUID]bool

	// Error overrides
	CreateErr          error
	DeleteErr          error
	ListErr            error
	FindOverlappingErr error
}

var _ store.AvailabilityStore = (*MockAvailabilityStore)(nil)

// NewMockAvailabilityStore creates an empty store.
func NewMockAvailabilityStore() *MockAvailabilityStore {
	return &MockAvailabilityStore{
		blocks: make(map[uuid.UUID]domain.AvailabilityBlock),
	}
}

// Create implements store.AvailabilityStore.
func (m *MockAvailabilityStore) Create(ctx context.Context, block *domain.AvailabilityBlock) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	if err := block.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.KnownMentors != nil && !m.KnownMentors[block.MentorID] {
		return store.ErrMentorNotFound
	}
	if _, exists := m.blocks[block.ID]; exists {
		return store.ErrDuplicate
	}
	m.blocks[block.ID] = *block
	return nil
}

// GetByID implements store.AvailabilityStore.
func (m *MockAvailabilityStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.AvailabilityBlock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	block, ok := m.blocks[id]
	if !ok {
		return nil, store.ErrBlockNotFound
	}
	return &block, nil
}

// Delete implements store.AvailabilityStore.
func (m *MockAvailabilityStore) Delete(ctx context.Context, id uuid.UUID) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.blocks[id]; !ok {
		return store.ErrBlockNotFound
	}
	delete(m.blocks, id)
	return nil
}

// ListByMentor implements store.AvailabilityStore.
func (m *MockAvailabilityStore) ListByMentor(
	ctx context.Context,
	mentorID uuid.UUID,
	from, to time.Time,
) ([]domain.AvailabilityBlock, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	return m.filter(func(b domain.AvailabilityBlock) bool {
		return b.MentorID == mentorID && !b.Start.Before(from) && !b.Start.After(to)
	}), nil
}

// FindOverlapping implements store.AvailabilityStore.
func (m *MockAvailabilityStore) FindOverlapping(
	ctx context.Context,
	mentorID uuid.UUID,
	iv domain.Interval,
) ([]domain.AvailabilityBlock, error) {
	if m.FindOverlappingErr != nil {
		return nil, m.FindOverlappingErr
	}
	return m.filter(func(b domain.AvailabilityBlock) bool {
		return b.MentorID == mentorID && b.Interval().Overlaps(iv)
	}), nil
}

// WithTx implements store.AvailabilityStore.
func (m *MockAvailabilityStore) WithTx(tx *sql.Tx) store.AvailabilityStore {
	return m
}

// Count returns the number of stored blocks.
func (m *MockAvailabilityStore) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blocks)
}

func (m *MockAvailabilityStore) filter(keep func(domain.AvailabilityBlock) bool) []domain.AvailabilityBlock {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := []domain.AvailabilityBlock{}
	for _, b := range m.blocks {
		if keep(b) {
			result = append(result, b)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Start.Before(result[j].Start)
	})
	return result
}
