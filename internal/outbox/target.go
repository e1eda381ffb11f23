package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/phrazzld/mentorbook-api/internal/domain"
)

// SyncTarget is the external system's upsert/delete contract, keyed by
// entity type and id. The Dispatcher is its only caller.
type SyncTarget interface {
	Upsert(ctx context.Context, entityType, entityID string, payload json.RawMessage) error
	Delete(ctx context.Context, entityType, entityID string) error
}

// Deliver performs the task's action against target.
func Deliver(ctx context.Context, target SyncTarget, task *domain.OutboxTask) error {
	switch task.Action {
	case domain.OutboxActionUpsert:
		return target.Upsert(ctx, task.EntityType, task.EntityID, task.Payload)
	case domain.OutboxActionDelete:
		return target.Delete(ctx, task.EntityType, task.EntityID)
	default:
		return fmt.Errorf("%w: %q", domain.ErrInvalidOutboxAction, task.Action)
	}
}

// LogTarget is a SyncTarget that only logs. It is used when no external
// system is configured.
type LogTarget struct {
	logger *slog.Logger
}

// NewLogTarget creates a LogTarget.
func NewLogTarget(logger *slog.Logger) *LogTarget {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogTarget{logger: logger.With(slog.String("component", "log_sync_target"))}
}

// Upsert implements SyncTarget.
func (t *LogTarget) Upsert(ctx context.Context, entityType, entityID string, payload json.RawMessage) error {
	t.logger.InfoContext(ctx, "sync upsert",
		slog.String("entity_type", entityType),
		slog.String("entity_id", entityID),
		slog.Int("payload_bytes", len(payload)))
	return nil
}

// Delete implements SyncTarget.
func (t *LogTarget) Delete(ctx context.Context, entityType, entityID string) error {
	t.logger.InfoContext(ctx, "sync delete",
		slog.String("entity_type", entityType),
		slog.String("entity_id", entityID))
	return nil
}
