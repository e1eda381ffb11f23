package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/mentorbook-api/internal/domain"
	"github.com/phrazzld/mentorbook-api/internal/platform/logger"
	"github.com/phrazzld/mentorbook-api/internal/store"
)

// candidateSelect projects active mentor profiles into match candidates.
// has_open_availability is true when the mentor has a block that has not started yet.
const candidateSelect = `
	SELECT m.id, m.display_name, m.expertise_tags, m.industry, m.stage, m.rating,
		EXISTS (
			SELECT 1 FROM availability_blocks b
			WHERE b.mentor_id = m.id AND b.start_time >= NOW()
		) AS has_open_availability
	FROM mentor_profiles m
	WHERE m.active`

// PostgresMentorStore implements store.MentorStore.
type PostgresMentorStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresMentorStore creates a mentor store on db.
// If logger is nil, a default logger will be used.
func NewPostgresMentorStore(db store.DBTX, logger *slog.Logger) *PostgresMentorStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresMentorStore{
		db:     db,
		logger: logger.With(slog.String("component", "mentor_store")),
	}
}

var _ store.MentorStore = (*PostgresMentorStore)(nil)

// GetCandidate implements store.MentorStore.
func (s *PostgresMentorStore) GetCandidate(ctx context.Context, id uuid.UUID) (*domain.MatchCandidate, error) {
	row := s.db.QueryRowContext(ctx, candidateSelect+` AND m.id = $1`, id)

	candidate, err := scanCandidate(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrMentorNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get mentor",
			slog.String("error", err.Error()),
			slog.String("mentor_id", id.String()))
		return nil, MapError(err)
	}
	return candidate, nil
}

// ListCandidates implements store.MentorStore.
func (s *PostgresMentorStore) ListCandidates(ctx context.Context, limit int) ([]domain.MatchCandidate, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, candidateSelect+` ORDER BY m.display_name ASC, m.id ASC LIMIT $1`, limit)
	if err != nil {
		log.Error("failed to list mentors", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	candidates := []domain.MatchCandidate{}
	for rows.Next() {
		candidate, err := scanCandidate(rows)
		if err != nil {
			log.Error("failed to scan mentor", slog.String("error", err.Error()))
			return nil, err
		}
		candidates = append(candidates, *candidate)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating mentors: %w", err)
	}
	return candidates, nil
}

func scanCandidate(row rowScanner) (*domain.MatchCandidate, error) {
	var (
		c    domain.MatchCandidate
		tags []byte
	)
	if err := row.Scan(&c.ID, &c.DisplayName, &tags, &c.Industry, &c.Stage, &c.Rating, &c.HasOpenAvailability); err != nil {
		return nil, err
	}

	c.ExpertiseTags = []string{}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &c.ExpertiseTags); err != nil {
			return nil, fmt.Errorf("failed to decode expertise tags for mentor %s: %w", c.ID, err)
		}
	}
	return &c, nil
}
