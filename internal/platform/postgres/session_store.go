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

const sessionColumns = `id, mentor_id, mentee_id, start_time, end_time, status,
	meeting_type, goals, rescheduled_from, created_at, updated_at`

// advisoryLockNamespace keeps mentor calendar locks apart from any other
// advisory locks taken on the same database.
const advisoryLockNamespace = "mentor_calendar:"

// PostgresSessionStore implements store.SessionStore.
type PostgresSessionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresSessionStore creates a session store on db.
// If logger is nil, a default logger will be used.
func NewPostgresSessionStore(db store.DBTX, logger *slog.Logger) *PostgresSessionStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresSessionStore{
		db:     db,
		logger: logger.With(slog.String("component", "session_store")),
	}
}

var _ store.SessionStore = (*PostgresSessionStore)(nil)

// WithTx implements store.SessionStore.
func (s *PostgresSessionStore) WithTx(tx *sql.Tx) store.SessionStore {
	return &PostgresSessionStore{db: tx, logger: s.logger}
}

// LockMentor takes a transaction-scoped advisory lock keyed by the mentor id.
// Concurrent writers for the same mentor block here until the holder commits
// or rolls back; the lock is released automatically at transaction end.
func (s *PostgresSessionStore) LockMentor(ctx context.Context, mentorID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`SELECT pg_advisory_xact_lock(hashtext($1))`, advisoryLockNamespace+mentorID.String())
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to lock mentor calendar",
			slog.String("error", err.Error()),
			slog.String("mentor_id", mentorID.String()))
		return fmt.Errorf("failed to lock mentor calendar: %w", err)
	}
	return nil
}

// Create implements store.SessionStore.
// Returns store.ErrMentorNotFound if the mentor profile does not exist.
func (s *PostgresSessionStore) Create(ctx context.Context, session *domain.BookedSession) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := session.Validate(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO booked_sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		session.ID,
		session.MentorID,
		session.MenteeID,
		session.Start,
		session.End,
		session.Status,
		session.MeetingType,
		session.Goals,
		session.RescheduledFrom,
		session.CreatedAt,
		session.UpdatedAt,
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: %s", store.ErrMentorNotFound, session.MentorID)
		}
		log.Error("failed to create session",
			slog.String("error", err.Error()),
			slog.String("session_id", session.ID.String()))
		return MapError(err)
	}

	log.Info("session created",
		slog.String("session_id", session.ID.String()),
		slog.String("mentor_id", session.MentorID.String()),
		slog.Time("start", session.Start))
	return nil
}

// GetByID implements store.SessionStore.
func (s *PostgresSessionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.BookedSession, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM booked_sessions WHERE id = $1`, id)

	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrSessionNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get session",
			slog.String("error", err.Error()),
			slog.String("session_id", id.String()))
		return nil, MapError(err)
	}
	return session, nil
}

// UpdateStatus implements store.SessionStore.
func (s *PostgresSessionStore) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.SessionStatus) error {
	if !domain.IsValidSessionStatus(status) {
		return domain.ErrInvalidSessionStatus
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE booked_sessions SET status = $2, updated_at = $3 WHERE id = $1
	`, id, status, time.Now().UTC())
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to update session status",
			slog.String("error", err.Error()),
			slog.String("session_id", id.String()))
		return MapError(err)
	}
	return checkRowsAffected(result, store.ErrSessionNotFound)
}

// ListScheduled implements store.SessionStore.
func (s *PostgresSessionStore) ListScheduled(
	ctx context.Context,
	mentorID uuid.UUID,
	from, to time.Time,
) ([]domain.BookedSession, error) {
	return s.querySessions(ctx, `
		SELECT `+sessionColumns+`
		FROM booked_sessions
		WHERE mentor_id = $1 AND status = 'scheduled' AND start_time >= $2 AND start_time <= $3
		ORDER BY start_time ASC, id ASC
	`, mentorID, from, to)
}

// FindOverlappingScheduled implements store.SessionStore.
func (s *PostgresSessionStore) FindOverlappingScheduled(
	ctx context.Context,
	mentorID uuid.UUID,
	iv domain.Interval,
) ([]domain.BookedSession, error) {
	return s.querySessions(ctx, `
		SELECT `+sessionColumns+`
		FROM booked_sessions
		WHERE mentor_id = $1 AND status = 'scheduled' AND start_time < $3 AND end_time > $2
		ORDER BY start_time ASC, id ASC
	`, mentorID, iv.Start, iv.End)
}

func (s *PostgresSessionStore) querySessions(ctx context.Context, query string, args ...any) ([]domain.BookedSession, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query sessions", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	sessions := []domain.BookedSession{}
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			log.Error("failed to scan session", slog.String("error", err.Error()))
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}
	return sessions, nil
}

func scanSession(row rowScanner) (*domain.BookedSession, error) {
	var (
		s               domain.BookedSession
		status          string
		meetingType     string
		rescheduledFrom uuid.NullUUID
	)
	if err := row.Scan(
		&s.ID,
		&s.MentorID,
		&s.MenteeID,
		&s.Start,
		&s.End,
		&status,
		&meetingType,
		&s.Goals,
		&rescheduledFrom,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		return nil, err
	}

	s.Status = domain.SessionStatus(status)
	s.MeetingType = domain.MeetingType(meetingType)
	if rescheduledFrom.Valid {
		id := rescheduledFrom.UUID
		s.RescheduledFrom = &id
	}
	s.Start = s.Start.UTC()
	s.End = s.End.UTC()
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	return &s, nil
}
