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

// MockSessionStore implements store.SessionStore in memory.
type MockSessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]domain.BookedSession

	// KnownMentors, when non-nil, restricts Create to these mentors.
	KnownMentors map[uuid.UUID]bool

	// Error overrides
	CreateErr       error
	UpdateStatusErr error
	LockErr         error

	// LockedMentors records every LockMentor call in order.
	LockedMentors []uuid.UUID

	mentorLocks map[uuid.UUID]*sync.Mutex
}

var _ store.SessionStore = (*MockSessionStore)(nil)

// NewMockSessionStore creates an empty store.
func NewMockSessionStore() *MockSessionStore {
	return &MockSessionStore{
		sessions: make(map[uuid.UUID]domain.BookedSession),
	}
}

// Create implements store.SessionStore.
func (m *MockSessionStore) Create(ctx context.Context, session *domain.BookedSession) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	if err := session.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.KnownMentors != nil && !m.KnownMentors[session.MentorID] {
		return store.ErrMentorNotFound
	}
	if _, exists := m.sessions[session.ID]; exists {
		return store.ErrDuplicate
	}
	m.sessions[session.ID] = *session
	return nil
}

// GetByID implements store.SessionStore.
func (m *MockSessionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.BookedSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[id]
	if !ok {
		return nil, store.ErrSessionNotFound
	}
	return &session, nil
}

// UpdateStatus implements store.SessionStore.
func (m *MockSessionStore) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.SessionStatus) error {
	if m.UpdateStatusErr != nil {
		return m.UpdateStatusErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[id]
	if !ok {
		return store.ErrSessionNotFound
	}
	session.Status = status
	session.UpdatedAt = time.Now().UTC()
	m.sessions[id] = session
	return nil
}

// ListScheduled implements store.SessionStore.
func (m *MockSessionStore) ListScheduled(
	ctx context.Context,
	mentorID uuid.UUID,
	from, to time.Time,
) ([]domain.BookedSession, error) {
	return m.filter(func(s domain.BookedSession) bool {
		return s.MentorID == mentorID && s.IsScheduled() &&
			!s.Start.Before(from) && !s.Start.After(to)
	}), nil
}

// FindOverlappingScheduled implements store.SessionStore.
func (m *MockSessionStore) FindOverlappingScheduled(
	ctx context.Context,
	mentorID uuid.UUID,
	iv domain.Interval,
) ([]domain.BookedSession, error) {
	return m.filter(func(s domain.BookedSession) bool {
		return s.MentorID == mentorID && s.IsScheduled() && s.Interval().Overlaps(iv)
	}), nil
}

// LockMentor implements store.SessionStore. Inside MockTxRunner.RunInTx the
// mentor stays locked until the unit of work returns.
func (m *MockSessionStore) LockMentor(ctx context.Context, mentorID uuid.UUID) error {
	if m.LockErr != nil {
		return m.LockErr
	}

	m.mu.Lock()
	if m.mentorLocks == nil {
		m.mentorLocks = make(map[uuid.UUID]*sync.Mutex)
	}
	lock, ok := m.mentorLocks[mentorID]
	if !ok {
		lock = &sync.Mutex{}
		m.mentorLocks[mentorID] = lock
	}
	m.mu.Unlock()

	acquireForTx(ctx, mentorID, lock)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.LockedMentors = append(m.LockedMentors, mentorID)
	return nil
}

// WithTx implements store.SessionStore.
func (m *MockSessionStore) WithTx(tx *sql.Tx) store.SessionStore {
	return m
}

// All returns every stored session ordered by start.
func (m *MockSessionStore) All() []domain.BookedSession {
	return m.filter(func(domain.BookedSession) bool { return true })
}

func (m *MockSessionStore) filter(keep func(domain.BookedSession) bool) []domain.BookedSession {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := []domain.BookedSession{}
	for _, s := range m.sessions {
		if keep(s) {
			result = append(result, s)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Start.Before(result[j].Start)
	})
	return result
}
