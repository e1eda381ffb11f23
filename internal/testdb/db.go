package testdb

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/phrazzld/mentorbook-api/internal/platform/postgres"
	"github.com/stretchr/testify/require"
)

// TestTimeout defines a default timeout for test database operations.
const TestTimeout = 5 * time.Second

// GetTestDatabaseURL returns DATABASE_URL, falling back to MENTORBOOK_TEST_DB_URL.
func GetTestDatabaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	return os.Getenv("MENTORBOOK_TEST_DB_URL")
}

// IsIntegrationTestEnvironment reports whether a test database is configured.
func IsIntegrationTestEnvironment() bool {
	return GetTestDatabaseURL() != ""
}

// SetupTestDB opens the test database, applies all migrations and registers
// cleanup. The test is skipped when no database is configured.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	url := GetTestDatabaseURL()
	if url == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	db, err := sql.Open("pgx", url)
	require.NoError(t, err, "Failed to open database connection")
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()
	require.NoError(t, db.PingContext(ctx), "Failed to ping database")

	require.NoError(t, postgres.Migrate(context.Background(), db, "up", nil), "Failed to run migrations")
	return db
}

// WithTx runs fn inside a transaction that is always rolled back, so tests
// leave no rows behind and can run in parallel.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	tx, err := db.Begin()
	require.NoError(t, err, "Failed to begin transaction")

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			t.Logf("Warning: failed to rollback transaction: %v", err)
		}
	}()

	fn(t, tx)
}

// InsertMentor creates an active mentor profile row and returns its id.
func InsertMentor(t *testing.T, tx *sql.Tx, name string, tags string, industry, stage string, rating float64) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := tx.Exec(`
		INSERT INTO mentor_profiles (id, display_name, expertise_tags, industry, stage, rating, active)
		VALUES ($1, $2, $3::jsonb, $4, $5, $6, TRUE)
	`, id, name, tags, industry, stage, rating)
	require.NoError(t, err, "Failed to insert mentor profile")
	return id
}

// CreateMentor commits an active mentor profile outside any test transaction,
// for tests that need several concurrent transactions to see the same mentor.
// The mentor and everything referencing it are deleted on cleanup.
func CreateMentor(t *testing.T, db *sql.DB, name string) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := db.Exec(`
		INSERT INTO mentor_profiles (id, display_name, expertise_tags, industry, stage, rating, active)
		VALUES ($1, $2, '[]'::jsonb, '', '', 0, TRUE)
	`, id, name)
	require.NoError(t, err, "Failed to insert mentor profile")

	t.Cleanup(func() {
		for _, query := range []string{
			`DELETE FROM booked_sessions WHERE mentor_id = $1`,
			`DELETE FROM availability_blocks WHERE mentor_id = $1`,
			`DELETE FROM mentor_profiles WHERE id = $1`,
		} {
			if _, err := db.Exec(query, id); err != nil {
				t.Logf("Warning: cleanup failed: %v", err)
			}
		}
	})
	return id
}
