package booking

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/mentorbook-api/internal/config"
	"github.com/phrazzld/mentorbook-api/internal/domain"
	"github.com/phrazzld/mentorbook-api/internal/mocks"
	"github.com/phrazzld/mentorbook-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type enqueued struct {
	entityType string
	entityID   string
	action     domain.OutboxAction
	payload    any
}

type recordingEnqueuer struct {
	mu    sync.Mutex
	calls []enqueued
}

func (r *recordingEnqueuer) Enqueue(ctx context.Context, entityType, entityID string, action domain.OutboxAction, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, enqueued{entityType, entityID, action, payload})
}

func (r *recordingEnqueuer) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

type fixture struct {
	svc          *Service
	tx           *mocks.MockTxRunner
	availability *mocks.MockAvailabilityStore
	sessions     *mocks.MockSessionStore
	sync         *recordingEnqueuer
	mentorID     uuid.UUID
	menteeID     uuid.UUID
}

var nine = time.Date(2030, 3, 4, 9, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return time.Date(2030, 3, 4, h, m, 0, 0, time.UTC)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mentorID := uuid.New()
	f := &fixture{
		tx:           mocks.NewMockTxRunner(),
		availability: mocks.NewMockAvailabilityStore(),
		sessions:     mocks.NewMockSessionStore(),
		sync:         &recordingEnqueuer{},
		mentorID:     mentorID,
		menteeID:     uuid.New(),
	}
	mentors := mocks.NewMockMentorStore(domain.MatchCandidate{ID: mentorID, ExpertiseTags: []string{"Sales"}})

	svc, err := NewService(
		config.BookingConfig{DefaultRangeDays: 14, Timezone: "UTC"},
		f.tx, f.availability, f.sessions, mentors, f.sync, nil,
	)
	require.NoError(t, err)
	svc.now = func() time.Time { return nine.Add(-time.Hour) }
	f.svc = svc
	return f
}

func (f *fixture) addBlock(t *testing.T, start, end time.Time) *domain.AvailabilityBlock {
	t.Helper()
	block, err := f.svc.AddAvailability(context.Background(), f.mentorID, start, end, "Zoom")
	require.NoError(t, err)
	return block
}

func (f *fixture) book(start, end time.Time) (*domain.BookedSession, error) {
	return f.svc.CreateBooking(context.Background(), BookingRequest{
		MentorID:    f.mentorID,
		MenteeID:    f.menteeID,
		Start:       start,
		End:         end,
		MeetingType: domain.MeetingTypeVideo,
	})
}

func TestNewService_Validation(t *testing.T) {
	t.Parallel()

	deps := func() (store.TxRunner, store.AvailabilityStore, store.SessionStore, store.MentorStore, SyncEnqueuer) {
		return mocks.NewMockTxRunner(), mocks.NewMockAvailabilityStore(), mocks.NewMockSessionStore(),
			mocks.NewMockMentorStore(), &recordingEnqueuer{}
	}

	tx, a, s, m, e := deps()
	_, err := NewService(config.BookingConfig{DefaultRangeDays: 14, Timezone: "Mars/Olympus"}, tx, a, s, m, e, nil)
	var svcErr *ServiceError
	assert.ErrorAs(t, err, &svcErr)

	_, err = NewService(config.BookingConfig{DefaultRangeDays: 0, Timezone: "UTC"}, tx, a, s, m, e, nil)
	assert.Error(t, err)

	_, err = NewService(config.BookingConfig{DefaultRangeDays: 14, Timezone: "UTC"}, nil, a, s, m, e, nil)
	assert.Error(t, err)

	svc, err := NewService(config.BookingConfig{DefaultRangeDays: 14}, tx, a, s, m, e, nil)
	require.NoError(t, err)
	assert.Equal(t, "UTC", svc.timezone)
}

func TestCreateBooking_BlockScenario(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.addBlock(t, at(9, 0), at(10, 0))

	_, err := f.book(at(9, 30), at(10, 30))
	assert.ErrorIs(t, err, ErrConflict, "partial overlap with the block must conflict")

	session, err := f.book(at(10, 0), at(10, 30))
	require.NoError(t, err, "touching the block boundary is not a conflict")
	assert.Equal(t, domain.SessionStatusScheduled, session.Status)

	from, to := at(0, 0), at(23, 59)
	view, err := f.svc.GetAvailability(context.Background(), f.mentorID, &from, &to)
	require.NoError(t, err)
	require.Len(t, view.AvailableSlots, 1)
	assert.True(t, view.AvailableSlots[0].Start.Equal(at(9, 0)))
	require.Len(t, view.BookedSlots, 1)
	assert.True(t, view.BookedSlots[0].Start.Equal(at(10, 0)))
	assert.Equal(t, 30, view.BookedSlots[0].DurationMinutes)
	assert.False(t, view.BookedSlots[0].Available)
}

func TestCreateBooking_ConsumesExactBlock(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.addBlock(t, at(9, 0), at(10, 0))

	session, err := f.book(at(9, 0), at(10, 0))
	require.NoError(t, err)
	assert.Equal(t, 0, f.availability.Count(), "booked block should be consumed")
	assert.Equal(t, []uuid.UUID{f.mentorID}, f.sessions.LockedMentors[1:])

	_, err = f.book(at(9, 0), at(10, 0))
	assert.ErrorIs(t, err, ErrConflict, "the session now occupies the interval")

	got, err := f.sessions.GetByID(context.Background(), session.ID)
	require.NoError(t, err)
	assert.True(t, got.Start.Equal(at(9, 0)))
}

func TestCreateBooking_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(r *BookingRequest)
		wantErr error
	}{
		{
			name:    "start equals end",
			mutate:  func(r *BookingRequest) { r.End = r.Start },
			wantErr: domain.ErrInvalidTimeRange,
		},
		{
			name:    "start after end",
			mutate:  func(r *BookingRequest) { r.Start, r.End = r.End, r.Start },
			wantErr: domain.ErrInvalidTimeRange,
		},
		{
			name:    "unknown meeting type",
			mutate:  func(r *BookingRequest) { r.MeetingType = "carrier_pigeon" },
			wantErr: domain.ErrValidation,
		},
		{
			name:    "unknown mentor",
			mutate:  func(r *BookingRequest) { r.MentorID = uuid.New() },
			wantErr: store.ErrMentorNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			req := BookingRequest{
				MentorID:    f.mentorID,
				MenteeID:    f.menteeID,
				Start:       at(11, 0),
				End:         at(12, 0),
				MeetingType: domain.MeetingTypePhone,
			}
			tt.mutate(&req)

			_, err := f.svc.CreateBooking(context.Background(), req)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 0, f.tx.Calls(), "invalid requests never open a unit of work")
			assert.Empty(t, f.sessions.All())
			assert.Equal(t, 0, f.sync.count())
		})
	}
}

func TestCreateBooking_StoreFailureIsWrapped(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.sessions.CreateErr = errors.New("connection reset")

	_, err := f.book(at(11, 0), at(12, 0))
	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "create_booking", svcErr.Operation)
	assert.Equal(t, 0, f.sync.count(), "nothing is enqueued when the write fails")
}

func TestCreateBooking_EnqueuesMentorSync(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	session, err := f.book(at(11, 0), at(12, 0))
	require.NoError(t, err)

	require.Equal(t, 1, f.sync.count())
	call := f.sync.calls[0]
	assert.Equal(t, domain.EntityTypeMentor, call.entityType)
	assert.Equal(t, f.mentorID.String(), call.entityID)
	assert.Equal(t, domain.OutboxActionUpsert, call.action)
	event, ok := call.payload.(CalendarEvent)
	require.True(t, ok)
	assert.Equal(t, EventSessionBooked, event.Event)
	assert.Equal(t, session.ID, event.SubjectID)
}

func TestCreateBooking_ConcurrentRequestsForOneWindow(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.book(at(14, 0), at(15, 0))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrConflict):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, attempts-1, conflicts)
	assert.Len(t, f.sessions.All(), 1)
}

func TestCreateBooking_WaitsForMentorLock(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	locked := make(chan struct{})
	release := make(chan struct{})
	var holderFinished atomic.Bool
	go func() {
		_ = f.tx.RunInTx(ctx, func(ctx context.Context, _ *sql.Tx) error {
			if err := f.sessions.LockMentor(ctx, f.mentorID); err != nil {
				return err
			}
			close(locked)
			<-release
			holderFinished.Store(true)
			return nil
		})
	}()
	<-locked

	booked := make(chan error, 1)
	go func() {
		_, err := f.book(at(14, 0), at(15, 0))
		booked <- err
	}()

	select {
	case err := <-booked:
		t.Fatalf("booking completed while the mentor calendar was locked: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-booked)
	assert.True(t, holderFinished.Load(), "booking ran only after the holder's unit of work ended")
}

func TestRescheduleSession(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	original, err := f.book(at(11, 0), at(12, 0))
	require.NoError(t, err)

	moved, err := f.svc.RescheduleSession(context.Background(), original.ID, f.menteeID, at(11, 30), at(12, 30))
	require.NoError(t, err, "overlapping only its own old interval is allowed")
	require.NotNil(t, moved.RescheduledFrom)
	assert.Equal(t, original.ID, *moved.RescheduledFrom)
	assert.Equal(t, domain.SessionStatusScheduled, moved.Status)

	old, err := f.sessions.GetByID(context.Background(), original.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusRescheduled, old.Status)

	_, err = f.svc.RescheduleSession(context.Background(), original.ID, f.menteeID, at(16, 0), at(17, 0))
	assert.ErrorIs(t, err, ErrSessionNotScheduled)
}

func TestRescheduleSession_Rejections(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	first, err := f.book(at(11, 0), at(12, 0))
	require.NoError(t, err)
	_, err = f.book(at(13, 0), at(14, 0))
	require.NoError(t, err)

	_, err = f.svc.RescheduleSession(context.Background(), first.ID, f.menteeID, at(13, 30), at(14, 30))
	assert.ErrorIs(t, err, ErrConflict)

	_, err = f.svc.RescheduleSession(context.Background(), first.ID, uuid.New(), at(15, 0), at(16, 0))
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.svc.RescheduleSession(context.Background(), first.ID, f.menteeID, at(15, 0), at(15, 0))
	assert.ErrorIs(t, err, domain.ErrInvalidTimeRange)

	_, err = f.svc.RescheduleSession(context.Background(), uuid.New(), f.menteeID, at(15, 0), at(16, 0))
	assert.ErrorIs(t, err, store.ErrSessionNotFound)

	unchanged, err := f.sessions.GetByID(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusScheduled, unchanged.Status, "rejected reschedules leave the session alone")
	assert.Len(t, f.sessions.All(), 2)
}

func TestUpdateSessionStatus(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	session, err := f.book(at(11, 0), at(12, 0))
	require.NoError(t, err)

	_, err = f.svc.UpdateSessionStatus(context.Background(), session.ID, f.mentorID, domain.SessionStatusRescheduled)
	assert.ErrorIs(t, err, domain.ErrValidation)

	updated, err := f.svc.UpdateSessionStatus(context.Background(), session.ID, f.mentorID, domain.SessionStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusCancelled, updated.Status)

	_, err = f.svc.UpdateSessionStatus(context.Background(), session.ID, f.mentorID, domain.SessionStatusCompleted)
	assert.ErrorIs(t, err, ErrSessionNotScheduled)

	_, err = f.book(at(11, 0), at(12, 0))
	assert.NoError(t, err, "cancelled sessions never block new bookings")
}

func TestGetSession(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	session, err := f.book(at(11, 0), at(12, 0))
	require.NoError(t, err)

	got, err := f.svc.GetSession(context.Background(), session.ID, f.mentorID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)

	_, err = f.svc.GetSession(context.Background(), session.ID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestAddAvailability(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.addBlock(t, at(9, 0), at(10, 0))
	_, err := f.book(at(12, 0), at(13, 0))
	require.NoError(t, err)

	tests := []struct {
		name       string
		start, end time.Time
		wantErr    error
	}{
		{"touches existing block", at(10, 0), at(11, 0), nil},
		{"overlaps block", at(9, 45), at(10, 15), ErrConflict},
		{"inside block", at(9, 15), at(9, 45), ErrConflict},
		{"overlaps session", at(12, 30), at(13, 30), ErrConflict},
		{"touches session", at(13, 0), at(14, 0), nil},
		{"invalid range", at(15, 0), at(14, 0), domain.ErrInvalidTimeRange},
	}

	for _, tt := range tests {
		_, err := f.svc.AddAvailability(context.Background(), f.mentorID, tt.start, tt.end, "")
		if tt.wantErr == nil {
			assert.NoError(t, err, tt.name)
		} else {
			assert.ErrorIs(t, err, tt.wantErr, tt.name)
		}
	}

	_, err = f.svc.AddAvailability(context.Background(), uuid.New(), at(18, 0), at(19, 0), "")
	assert.ErrorIs(t, err, store.ErrMentorNotFound)
}

func TestRemoveAvailability(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	block := f.addBlock(t, at(9, 0), at(10, 0))

	err := f.svc.RemoveAvailability(context.Background(), uuid.New(), block.ID)
	assert.ErrorIs(t, err, store.ErrBlockNotFound, "blocks of other mentors are invisible")

	require.NoError(t, f.svc.RemoveAvailability(context.Background(), f.mentorID, block.ID))
	assert.Equal(t, 0, f.availability.Count())

	err = f.svc.RemoveAvailability(context.Background(), f.mentorID, block.ID)
	assert.ErrorIs(t, err, store.ErrBlockNotFound)
}

func TestGetAvailability_Defaults(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.addBlock(t, at(9, 0), at(10, 0))
	f.addBlock(t, nine.Add(20*24*time.Hour), nine.Add(20*24*time.Hour+time.Hour))

	view, err := f.svc.GetAvailability(context.Background(), f.mentorID, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "UTC", view.Timezone)
	assert.True(t, view.RangeStart.Equal(nine.Add(-time.Hour)))
	assert.True(t, view.RangeEnd.Equal(nine.Add(-time.Hour).Add(14*24*time.Hour)))
	assert.Len(t, view.AvailableSlots, 1, "blocks past the default range are not shown")
	assert.NotNil(t, view.BookedSlots)

	from, to := at(12, 0), at(11, 0)
	_, err = f.svc.GetAvailability(context.Background(), f.mentorID, &from, &to)
	assert.ErrorIs(t, err, domain.ErrInvalidTimeRange)

	_, err = f.svc.GetAvailability(context.Background(), uuid.New(), nil, nil)
	assert.ErrorIs(t, err, store.ErrMentorNotFound)
}

func TestGetAvailability_Timezone(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.addBlock(t, at(9, 0), at(10, 0))

	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	f.svc.location = loc
	f.svc.timezone = "America/New_York"

	from, to := at(0, 0), at(23, 0)
	view, err := f.svc.GetAvailability(context.Background(), f.mentorID, &from, &to)
	require.NoError(t, err)
	require.Len(t, view.AvailableSlots, 1)
	assert.Equal(t, loc, view.AvailableSlots[0].Start.Location())
	assert.True(t, view.AvailableSlots[0].Start.Equal(at(9, 0)))
	assert.Equal(t, "America/New_York", view.Timezone)
}
