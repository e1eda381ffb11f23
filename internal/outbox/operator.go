package outbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/mentorbook-api/internal/domain"
	"github.com/phrazzld/mentorbook-api/internal/platform/logger"
	"github.com/phrazzld/mentorbook-api/internal/store"
)

// ErrNotReplayable is returned when replaying a task that has not failed.
var ErrNotReplayable = errors.New("only failed outbox tasks can be replayed")

// Operator exposes parked tasks to operators.
type Operator struct {
	store  store.OutboxStore
	logger *slog.Logger
}

// NewOperator creates an Operator on outboxStore.
func NewOperator(outboxStore store.OutboxStore, logger *slog.Logger) *Operator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Operator{
		store:  outboxStore,
		logger: logger.With(slog.String("component", "outbox_operator")),
	}
}

// ListFailed returns up to limit failed tasks, oldest first.
func (o *Operator) ListFailed(ctx context.Context, limit int) ([]*domain.OutboxTask, error) {
	tasks, err := o.store.ListByStatus(ctx, domain.OutboxStatusFailed, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list failed outbox tasks: %w", err)
	}
	return tasks, nil
}

// Replay enqueues a fresh pending copy of a failed task. The failed task
// itself stays terminal so its history is kept.
func (o *Operator) Replay(ctx context.Context, id uuid.UUID) (*domain.OutboxTask, error) {
	failed, err := o.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if failed.Status != domain.OutboxStatusFailed {
		return nil, fmt.Errorf("%w: task %s is %s", ErrNotReplayable, id, failed.Status)
	}

	replay, err := domain.NewOutboxTask(failed.EntityType, failed.EntityID, failed.Action, failed.Payload)
	if err != nil {
		return nil, err
	}
	if err := o.store.Create(ctx, replay); err != nil {
		return nil, fmt.Errorf("failed to create replay task: %w", err)
	}

	logger.FromContextOrDefault(ctx, o.logger).Info("outbox task replayed",
		slog.String("failed_task_id", id.String()),
		slog.String("task_id", replay.ID.String()))
	return replay, nil
}
