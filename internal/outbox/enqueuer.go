package outbox

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/phrazzld/mentorbook-api/internal/domain"
	"github.com/phrazzld/mentorbook-api/internal/platform/logger"
	"github.com/phrazzld/mentorbook-api/internal/redact"
	"github.com/phrazzld/mentorbook-api/internal/store"
)

// Enqueuer records sync tasks. It never reports failure to the caller: a
// task that cannot be recorded is logged and dropped, so sync queueing can
// never undo or block the primary write.
type Enqueuer struct {
	store  store.OutboxStore
	logger *slog.Logger
}

// NewEnqueuer creates an Enqueuer writing to outboxStore.
func NewEnqueuer(outboxStore store.OutboxStore, logger *slog.Logger) *Enqueuer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enqueuer{
		store:  outboxStore,
		logger: logger.With(slog.String("component", "outbox_enqueuer")),
	}
}

// Enqueue records a pending task for (entityType, entityID). The payload is
// JSON-encoded unless it already is a json.RawMessage; nil means no payload.
func (e *Enqueuer) Enqueue(
	ctx context.Context,
	entityType, entityID string,
	action domain.OutboxAction,
	payload any,
) {
	log := logger.FromContextOrDefault(ctx, e.logger).With(
		slog.String("entity_type", entityType),
		slog.String("entity_id", entityID),
		slog.String("action", string(action)),
	)

	raw, err := encodePayload(payload)
	if err != nil {
		log.Error("failed to encode outbox payload", slog.String("error", err.Error()))
		return
	}

	task, err := domain.NewOutboxTask(entityType, entityID, action, raw)
	if err != nil {
		log.Error("invalid outbox task", slog.String("error", err.Error()))
		return
	}

	if err := e.store.Create(ctx, task); err != nil {
		log.Error("failed to enqueue outbox task", slog.String("error", redact.Error(err)))
		return
	}

	log.Debug("outbox task enqueued", slog.String("task_id", task.ID.String()))
}

func encodePayload(payload any) (json.RawMessage, error) {
	switch p := payload.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return p, nil
	default:
		return json.Marshal(p)
	}
}
