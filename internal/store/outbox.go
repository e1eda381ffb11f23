package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/mentorbook-api/internal/domain"
)

// OutboxStore persists outbox tasks and implements their claim protocol.
// Every transition is a conditional update so that concurrent workers never
// process the same task at the same time.
type OutboxStore interface {
	// Create saves a new pending task.
	Create(ctx context.Context, task *domain.OutboxTask) error

	// GetByID retrieves a task. Returns ErrOutboxTaskNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.OutboxTask, error)

	// FetchPending returns up to limit pending tasks, oldest first.
	FetchPending(ctx context.Context, limit int) ([]*domain.OutboxTask, error)

	// MarkProcessing atomically claims a pending task for workerID.
	// It returns false without error when the task is no longer pending.
	MarkProcessing(ctx context.Context, id uuid.UUID, workerID string) (bool, error)

	// MarkCompleted records a successful delivery.
	// Returns ErrClaimLost if workerID no longer holds the claim.
	MarkCompleted(ctx context.Context, id uuid.UUID, workerID string) error

	// MarkFailed records a failed delivery, incrementing attempts. The task goes
	// back to pending while attempts < maxAttempts and to failed otherwise.
	// Returns the resulting status, or ErrClaimLost if workerID no longer holds the claim.
	MarkFailed(ctx context.Context, id uuid.UUID, workerID, errorMessage string, maxAttempts int) (domain.OutboxStatus, error)

	// ReclaimStale returns processing tasks claimed before cutoff to pending,
	// leaving attempts unchanged. Returns the number of reclaimed tasks.
	ReclaimStale(ctx context.Context, cutoff time.Time) (int64, error)

	// ListByStatus returns up to limit tasks in status, oldest first.
	ListByStatus(ctx context.Context, status domain.OutboxStatus, limit int) ([]*domain.OutboxTask, error)
}
