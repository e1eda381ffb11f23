package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/phrazzld/mentorbook-api/internal/api/shared"
	"github.com/phrazzld/mentorbook-api/internal/domain"
	"github.com/phrazzld/mentorbook-api/internal/platform/logger"
)

const (
	defaultFailedListLimit = 50
	maxFailedListLimit     = 500
)

// OutboxOperator lists and replays parked outbox tasks.
type OutboxOperator interface {
	ListFailed(ctx context.Context, limit int) ([]*domain.OutboxTask, error)
	Replay(ctx context.Context, id uuid.UUID) (*domain.OutboxTask, error)
}

// OutboxHandler serves the operator endpoints under /api/admin/outbox.
type OutboxHandler struct {
	operator OutboxOperator
	logger   *slog.Logger
}

// NewOutboxHandler creates a new OutboxHandler.
func NewOutboxHandler(operator OutboxOperator, logger *slog.Logger) *OutboxHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for OutboxHandler")
	}

	return &OutboxHandler{
		operator: operator,
		logger:   logger.With(slog.String("component", "outbox_handler")),
	}
}

// ListFailed handles GET /api/admin/outbox/failed?limit=N.
func (h *OutboxHandler) ListFailed(w http.ResponseWriter, r *http.Request) {
	limit := defaultFailedListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxFailedListLimit {
			HandleAPIError(w, r,
				domain.NewValidationError("limit", "must be between 1 and "+strconv.Itoa(maxFailedListLimit), nil), "")
			return
		}
		limit = n
	}

	tasks, err := h.operator.ListFailed(r.Context(), limit)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list outbox tasks")
		return
	}

	resp := OutboxTaskListResponse{Tasks: make([]OutboxTaskResponse, 0, len(tasks))}
	for _, task := range tasks {
		resp.Tasks = append(resp.Tasks, outboxTaskToResponse(task))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// Replay handles POST /api/admin/outbox/{taskID}/replay.
func (h *OutboxHandler) Replay(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	taskID, err := getPathUUID(r, "taskID")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	replay, err := h.operator.Replay(r.Context(), taskID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to replay outbox task")
		return
	}

	log.Info("outbox task replay requested",
		slog.String("failed_task_id", taskID.String()),
		slog.String("task_id", replay.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusAccepted, outboxTaskToResponse(replay))
}
