package mocks

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/mentorbook-api/internal/domain"
	"github.com/phrazzld/mentorbook-api/internal/store"
)

// MockOutboxStore implements store.OutboxStore in memory, driving each
// transition through the domain.OutboxTask state machine.
type MockOutboxStore struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*domain.OutboxTask

	// Now supplies timestamps; defaults to time.Now.
	Now func() time.Time

	// Error overrides
	CreateErr       error
	FetchErr        error
	MarkCompleteErr error
}

var _ store.OutboxStore = (*MockOutboxStore)(nil)

// NewMockOutboxStore creates an empty store.
func NewMockOutboxStore() *MockOutboxStore {
	return &MockOutboxStore{
		tasks: make(map[uuid.UUID]*domain.OutboxTask),
		Now:   func() time.Time { return time.Now().UTC() },
	}
}

// Create implements store.OutboxStore.
func (m *MockOutboxStore) Create(ctx context.Context, task *domain.OutboxTask) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	if err := task.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.tasks[task.ID]; exists {
		return store.ErrDuplicate
	}
	stored := *task
	m.tasks[task.ID] = &stored
	return nil
}

// GetByID implements store.OutboxStore.
func (m *MockOutboxStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.OutboxTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.tasks[id]
	if !ok {
		return nil, store.ErrOutboxTaskNotFound
	}
	copied := *task
	return &copied, nil
}

// FetchPending implements store.OutboxStore.
func (m *MockOutboxStore) FetchPending(ctx context.Context, limit int) ([]*domain.OutboxTask, error) {
	if m.FetchErr != nil {
		return nil, m.FetchErr
	}
	return m.ListByStatus(ctx, domain.OutboxStatusPending, limit)
}

// ListByStatus implements store.OutboxStore.
func (m *MockOutboxStore) ListByStatus(
	ctx context.Context,
	status domain.OutboxStatus,
	limit int,
) ([]*domain.OutboxTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := []*domain.OutboxTask{}
	for _, task := range m.tasks {
		if task.Status == status {
			copied := *task
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID.String() < result[j].ID.String()
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// MarkProcessing implements store.OutboxStore.
func (m *MockOutboxStore) MarkProcessing(ctx context.Context, id uuid.UUID, workerID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.tasks[id]
	if !ok {
		return false, nil
	}
	if err := task.Claim(workerID, m.Now()); err != nil {
		return false, nil
	}
	return true, nil
}

// MarkCompleted implements store.OutboxStore.
func (m *MockOutboxStore) MarkCompleted(ctx context.Context, id uuid.UUID, workerID string) error {
	if m.MarkCompleteErr != nil {
		return m.MarkCompleteErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.tasks[id]
	if !ok {
		return store.ErrClaimLost
	}
	return claimError(task.Complete(workerID, m.Now()))
}

// MarkFailed implements store.OutboxStore.
func (m *MockOutboxStore) MarkFailed(
	ctx context.Context,
	id uuid.UUID,
	workerID, errorMessage string,
	maxAttempts int,
) (domain.OutboxStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.tasks[id]
	if !ok {
		return "", store.ErrClaimLost
	}
	if err := task.Fail(workerID, errorMessage, maxAttempts, m.Now()); err != nil {
		return "", claimError(err)
	}
	return task.Status, nil
}

// ReclaimStale implements store.OutboxStore.
func (m *MockOutboxStore) ReclaimStale(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, task := range m.tasks {
		if task.Status != domain.OutboxStatusProcessing || task.ClaimedAt == nil {
			continue
		}
		if task.ClaimedAt.Before(cutoff) {
			if err := task.Release(m.Now()); err == nil {
				n++
			}
		}
	}
	return n, nil
}

// Tasks returns a copy of every stored task, oldest first.
func (m *MockOutboxStore) Tasks() []*domain.OutboxTask {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]*domain.OutboxTask, 0, len(m.tasks))
	for _, task := range m.tasks {
		copied := *task
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

func claimError(err error) error {
	if errors.Is(err, domain.ErrInvalidOutboxTransition) {
		return store.ErrClaimLost
	}
	return err
}
