// Package store persists analysis runs to PostgreSQL so growth rates can
// be compared across experiments. Persistence is optional: the CLI only
// opens a store when a DSN is configured.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/linsu-lab/growthrate/internal/analysis"
)

// Schema creates the tables used by the store. Callers run it once per
// database; CREATE IF NOT EXISTS keeps it idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS analysis_runs (
	id          UUID PRIMARY KEY,
	source      TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS replicate_results (
	run_id         UUID NOT NULL REFERENCES analysis_runs(id) ON DELETE CASCADE,
	replicate      TEXT NOT NULL,
	window_start   INT NOT NULL,
	window_end     INT NOT NULL,
	growth_rate    DOUBLE PRECISION NOT NULL,
	doubling_time  DOUBLE PRECISION,
	r_squared      DOUBLE PRECISION NOT NULL,
	phase_detected BOOLEAN NOT NULL,
	error          TEXT,
	PRIMARY KEY (run_id, replicate)
);`

// Run is a stored analysis run header.
type Run struct {
	ID        uuid.UUID `db:"id"`
	Source    string    `db:"source"`
	CreatedAt time.Time `db:"created_at"`
}

// Store writes analysis runs to PostgreSQL.
type Store struct {
	db      *sqlx.DB
	timeout time.Duration
}

// Open connects to PostgreSQL and ensures the schema exists.
func Open(dsn string, timeout time.Duration) (*Store, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}
	return New(db, timeout), nil
}

// New wraps an existing connection. Used by tests with a mock driver.
func New(db *sqlx.DB, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Store{db: db, timeout: timeout}
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun persists one analysis run and all its replicate results
// atomically, returning the generated run ID. Source identifies the input
// (typically the CSV path).
func (s *Store) SaveRun(ctx context.Context, source string, results []analysis.ReplicateResult) (uuid.UUID, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	runID := uuid.New()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO analysis_runs (id, source) VALUES ($1, $2)`,
		runID, source); err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert run: %w", err)
	}

	const insertResult = `
		INSERT INTO replicate_results
		(run_id, replicate, window_start, window_end, growth_rate,
		 doubling_time, r_squared, phase_detected, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	for _, r := range results {
		var doubling sql.NullFloat64
		if !math.IsNaN(r.DoublingTime) {
			doubling = sql.NullFloat64{Float64: r.DoublingTime, Valid: true}
		}
		var errMsg sql.NullString
		if r.Err != nil {
			errMsg = sql.NullString{String: r.Err.Error(), Valid: true}
		}

		if _, err := tx.ExecContext(ctx, insertResult,
			runID, r.Name, r.Detection.Start, r.Detection.End,
			r.GrowthRate, doubling, r.Detection.RSquared,
			r.PhaseDetected(), errMsg); err != nil {
			return uuid.Nil, fmt.Errorf("failed to insert result for %s: %w", r.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("failed to commit run: %w", err)
	}
	return runID, nil
}

// ListRuns returns the most recent run headers, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if limit <= 0 {
		limit = 20
	}

	var runs []Run
	err := s.db.SelectContext(ctx, &runs,
		`SELECT id, source, created_at FROM analysis_runs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}
