package mocks

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// holdMentor locks mentorID inside a unit of work and keeps it until release
// is closed. It returns once the lock is held.
func holdMentor(t *testing.T, runner *MockTxRunner, sessions *MockSessionStore, mentorID uuid.UUID, release <-chan struct{}) <-chan error {
	t.Helper()

	locked := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- runner.RunInTx(context.Background(), func(ctx context.Context, _ *sql.Tx) error {
			if err := sessions.LockMentor(ctx, mentorID); err != nil {
				return err
			}
			close(locked)
			<-release
			return nil
		})
	}()
	<-locked
	return done
}

func TestLockMentor_HeldUntilUnitOfWorkEnds(t *testing.T) {
	runner := NewMockTxRunner()
	sessions := NewMockSessionStore()
	mentorID := uuid.New()

	release := make(chan struct{})
	holder := holdMentor(t, runner, sessions, mentorID, release)

	acquired := make(chan struct{})
	go func() {
		_ = runner.RunInTx(context.Background(), func(ctx context.Context, _ *sql.Tx) error {
			err := sessions.LockMentor(ctx, mentorID)
			close(acquired)
			return err
		})
	}()

	select {
	case <-acquired:
		t.Fatal("second unit of work locked a mentor that was already held")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-holder)
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("lock was not released when the unit of work returned")
	}
}

func TestLockMentor_OtherMentorsProceed(t *testing.T) {
	runner := NewMockTxRunner()
	sessions := NewMockSessionStore()

	release := make(chan struct{})
	holder := holdMentor(t, runner, sessions, uuid.New(), release)
	defer func() {
		close(release)
		assert.NoError(t, <-holder)
	}()

	done := make(chan error, 1)
	go func() {
		done <- runner.RunInTx(context.Background(), func(ctx context.Context, _ *sql.Tx) error {
			return sessions.LockMentor(ctx, uuid.New())
		})
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("locking a different mentor blocked")
	}
}

func TestLockMentor_Reentrant(t *testing.T) {
	runner := NewMockTxRunner()
	sessions := NewMockSessionStore()
	mentorID := uuid.New()

	err := runner.RunInTx(context.Background(), func(ctx context.Context, _ *sql.Tx) error {
		if err := sessions.LockMentor(ctx, mentorID); err != nil {
			return err
		}
		return sessions.LockMentor(ctx, mentorID)
	})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{mentorID, mentorID}, sessions.LockedMentors)
	assert.Equal(t, 1, runner.Calls())
}

func TestMockTxRunner_Err(t *testing.T) {
	runner := NewMockTxRunner()
	runner.Err = errors.New("begin failed")

	called := false
	err := runner.RunInTx(context.Background(), func(ctx context.Context, _ *sql.Tx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, runner.Err)
	assert.False(t, called)
}
