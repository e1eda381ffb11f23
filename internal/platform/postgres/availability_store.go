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

const availabilityColumns = `id, mentor_id, start_time, end_time, location, created_at`

// PostgresAvailabilityStore implements store.AvailabilityStore.
type PostgresAvailabilityStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresAvailabilityStore creates an availability store on db.
// If logger is nil, a default logger will be used.
func NewPostgresAvailabilityStore(db store.DBTX, logger *slog.Logger) *PostgresAvailabilityStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresAvailabilityStore{
		db:     db,
		logger: logger.With(slog.String("component", "availability_store")),
	}
}

var _ store.AvailabilityStore = (*PostgresAvailabilityStore)(nil)

// WithTx implements store.AvailabilityStore.
func (s *PostgresAvailabilityStore) WithTx(tx *sql.Tx) store.AvailabilityStore {
	return &PostgresAvailabilityStore{db: tx, logger: s.logger}
}

// Create implements store.AvailabilityStore.
// Returns store.ErrMentorNotFound if the mentor profile does not exist.
func (s *PostgresAvailabilityStore) Create(ctx context.Context, block *domain.AvailabilityBlock) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := block.Validate(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO availability_blocks (id, mentor_id, start_time, end_time, location, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, block.ID, block.MentorID, block.Start, block.End, block.Location, block.CreatedAt)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: %s", store.ErrMentorNotFound, block.MentorID)
		}
		log.Error("failed to create availability block",
			slog.String("error", err.Error()),
			slog.String("block_id", block.ID.String()))
		return MapError(err)
	}

	log.Debug("availability block created",
		slog.String("block_id", block.ID.String()),
		slog.String("mentor_id", block.MentorID.String()))
	return nil
}

// GetByID implements store.AvailabilityStore.
func (s *PostgresAvailabilityStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.AvailabilityBlock, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+availabilityColumns+` FROM availability_blocks WHERE id = $1`, id)

	block, err := scanBlock(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrBlockNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get availability block",
			slog.String("error", err.Error()),
			slog.String("block_id", id.String()))
		return nil, MapError(err)
	}
	return block, nil
}

// Delete implements store.AvailabilityStore.
func (s *PostgresAvailabilityStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM availability_blocks WHERE id = $1`, id)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to delete availability block",
			slog.String("error", err.Error()),
			slog.String("block_id", id.String()))
		return MapError(err)
	}
	return checkRowsAffected(result, store.ErrBlockNotFound)
}

// ListByMentor implements store.AvailabilityStore.
func (s *PostgresAvailabilityStore) ListByMentor(
	ctx context.Context,
	mentorID uuid.UUID,
	from, to time.Time,
) ([]domain.AvailabilityBlock, error) {
	return s.queryBlocks(ctx, `
		SELECT `+availabilityColumns+`
		FROM availability_blocks
		WHERE mentor_id = $1 AND start_time >= $2 AND start_time <= $3
		ORDER BY start_time ASC, id ASC
	`, mentorID, from, to)
}

// FindOverlapping implements store.AvailabilityStore.
func (s *PostgresAvailabilityStore) FindOverlapping(
	ctx context.Context,
	mentorID uuid.UUID,
	iv domain.Interval,
) ([]domain.AvailabilityBlock, error) {
	return s.queryBlocks(ctx, `
		SELECT `+availabilityColumns+`
		FROM availability_blocks
		WHERE mentor_id = $1 AND start_time < $3 AND end_time > $2
		ORDER BY start_time ASC, id ASC
	`, mentorID, iv.Start, iv.End)
}

func (s *PostgresAvailabilityStore) queryBlocks(ctx context.Context, query string, args ...any) ([]domain.AvailabilityBlock, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query availability blocks", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	blocks := []domain.AvailabilityBlock{}
	for rows.Next() {
		block, err := scanBlock(rows)
		if err != nil {
			log.Error("failed to scan availability block", slog.String("error", err.Error()))
			return nil, fmt.Errorf("failed to scan availability block: %w", err)
		}
		blocks = append(blocks, *block)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating availability blocks: %w", err)
	}
	return blocks, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanBlock(row rowScanner) (*domain.AvailabilityBlock, error) {
	var b domain.AvailabilityBlock
	if err := row.Scan(&b.ID, &b.MentorID, &b.Start, &b.End, &b.Location, &b.CreatedAt); err != nil {
		return nil, err
	}
	b.Start = b.Start.UTC()
	b.End = b.End.UTC()
	b.CreatedAt = b.CreatedAt.UTC()
	return &b, nil
}
