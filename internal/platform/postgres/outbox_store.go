package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/mentorbook-api/internal/domain"
	"github.com/phrazzld/mentorbook-api/internal/platform/logger"
	"github.com/phrazzld/mentorbook-api/internal/store"
)

const outboxColumns = `id, entity_type, entity_id, action, payload, status, attempts,
	error_message, claimed_by, claimed_at, created_at, updated_at`

// PostgresOutboxStore implements store.OutboxStore.
type PostgresOutboxStore struct {
	db     store.DBTX
	logger *slog.Logger
	now    func() time.Time
}

// NewPostgresOutboxStore creates an outbox store on db.
// If logger is nil, a default logger will be used.
func NewPostgresOutboxStore(db store.DBTX, logger *slog.Logger) *PostgresOutboxStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresOutboxStore{
		db:     db,
		logger: logger.With(slog.String("component", "outbox_store")),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

var _ store.OutboxStore = (*PostgresOutboxStore)(nil)

// Create implements store.OutboxStore.
func (s *PostgresOutboxStore) Create(ctx context.Context, task *domain.OutboxTask) error {
	if err := task.Validate(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO outbox_tasks (id, entity_type, entity_id, action, payload, status, attempts,
			error_message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		task.ID,
		task.EntityType,
		task.EntityID,
		task.Action,
		nullableJSON(task.Payload),
		task.Status,
		task.Attempts,
		task.ErrorMessage,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to create outbox task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return MapError(err)
	}
	return nil
}

// GetByID implements store.OutboxStore.
func (s *PostgresOutboxStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.OutboxTask, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+outboxColumns+` FROM outbox_tasks WHERE id = $1`, id)
	task, err := scanOutboxTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrOutboxTaskNotFound
		}
		return nil, MapError(err)
	}
	return task, nil
}

// FetchPending implements store.OutboxStore.
func (s *PostgresOutboxStore) FetchPending(ctx context.Context, limit int) ([]*domain.OutboxTask, error) {
	return s.ListByStatus(ctx, domain.OutboxStatusPending, limit)
}

// ListByStatus implements store.OutboxStore.
func (s *PostgresOutboxStore) ListByStatus(
	ctx context.Context,
	status domain.OutboxStatus,
	limit int,
) ([]*domain.OutboxTask, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+outboxColumns+`
		FROM outbox_tasks
		WHERE status = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2
	`, status, limit)
	if err != nil {
		log.Error("failed to query outbox tasks",
			slog.String("status", string(status)),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	tasks := []*domain.OutboxTask{}
	for rows.Next() {
		task, err := scanOutboxTask(rows)
		if err != nil {
			log.Error("failed to scan outbox task", slog.String("error", err.Error()))
			return nil, fmt.Errorf("failed to scan outbox task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating outbox tasks: %w", err)
	}
	return tasks, nil
}

// MarkProcessing implements store.OutboxStore. The WHERE clause makes the
// claim atomic: of several workers racing for one row only one sees an
// affected row.
func (s *PostgresOutboxStore) MarkProcessing(ctx context.Context, id uuid.UUID, workerID string) (bool, error) {
	now := s.now()
	result, err := s.db.ExecContext(ctx, `
		UPDATE outbox_tasks
		SET status = 'processing', claimed_by = $2, claimed_at = $3, updated_at = $3
		WHERE id = $1 AND status = 'pending'
	`, id, workerID, now)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to claim outbox task",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return false, MapError(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

// MarkCompleted implements store.OutboxStore.
func (s *PostgresOutboxStore) MarkCompleted(ctx context.Context, id uuid.UUID, workerID string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE outbox_tasks
		SET status = 'completed', error_message = '', updated_at = $3
		WHERE id = $1 AND status = 'processing' AND claimed_by = $2
	`, id, workerID, s.now())
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to complete outbox task",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return MapError(err)
	}
	return checkRowsAffected(result, store.ErrClaimLost)
}

// MarkFailed implements store.OutboxStore. Right-hand expressions in an
// UPDATE see the old row, so attempts + 1 is the new attempt count.
func (s *PostgresOutboxStore) MarkFailed(
	ctx context.Context,
	id uuid.UUID,
	workerID, errorMessage string,
	maxAttempts int,
) (domain.OutboxStatus, error) {
	var status string
	err := s.db.QueryRowContext(ctx, `
		UPDATE outbox_tasks
		SET attempts = attempts + 1,
			error_message = $3,
			status = CASE WHEN attempts + 1 >= $4 THEN 'failed' ELSE 'pending' END,
			claimed_by = CASE WHEN attempts + 1 >= $4 THEN claimed_by ELSE NULL END,
			claimed_at = CASE WHEN attempts + 1 >= $4 THEN claimed_at ELSE NULL END,
			updated_at = $5
		WHERE id = $1 AND status = 'processing' AND claimed_by = $2
		RETURNING status
	`, id, workerID, errorMessage, maxAttempts, s.now()).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", store.ErrClaimLost
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to record outbox failure",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return "", MapError(err)
	}
	return domain.OutboxStatus(status), nil
}

// ReclaimStale implements store.OutboxStore.
func (s *PostgresOutboxStore) ReclaimStale(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE outbox_tasks
		SET status = 'pending', claimed_by = NULL, claimed_at = NULL, updated_at = $2
		WHERE status = 'processing' AND claimed_at < $1
	`, cutoff, s.now())
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to reclaim stale outbox tasks",
			slog.String("error", err.Error()))
		return 0, MapError(err)
	}
	return result.RowsAffected()
}

func scanOutboxTask(row rowScanner) (*domain.OutboxTask, error) {
	var (
		t         domain.OutboxTask
		action    string
		status    string
		payload   []byte
		claimedBy sql.NullString
		claimedAt sql.NullTime
	)
	if err := row.Scan(
		&t.ID,
		&t.EntityType,
		&t.EntityID,
		&action,
		&payload,
		&status,
		&t.Attempts,
		&t.ErrorMessage,
		&claimedBy,
		&claimedAt,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		return nil, err
	}

	t.Action = domain.OutboxAction(action)
	t.Status = domain.OutboxStatus(status)
	if len(payload) > 0 {
		t.Payload = payload
	}
	t.ClaimedBy = claimedBy.String
	if claimedAt.Valid {
		at := claimedAt.Time.UTC()
		t.ClaimedAt = &at
	}
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return &t, nil
}

// nullableJSON maps an empty payload to SQL NULL.
func nullableJSON(payload []byte) any {
	if len(payload) == 0 {
		return nil
	}
	return string(payload)
}
