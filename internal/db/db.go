// Package db persists matching runs to PostgreSQL for auditing: one row per
// pipeline run, one row per pipeline step, and the final report per
// material. Persistence is optional; the pipeline runs without a database
// and only logs a warning when none is configured.
package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Run status values.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	// RunStatusPartial marks runs where some materials failed matching but
	// the run itself finished.
	RunStatusPartial = "partial"
	RunStatusFailed  = "failed"
)

// DB wraps a PostgreSQL connection pool.
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool and verifies it.
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool.
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Init creates the audit tables when they do not exist yet. The tool
// provisions its own schema so a run against a fresh database works without
// a migration step.
func (db *DB) Init(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS matching_runs (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			input_file TEXT NOT NULL,
			status TEXT NOT NULL,
			material_count INT NOT NULL DEFAULT 0,
			matched_count INT NOT NULL DEFAULT 0,
			failed_count INT NOT NULL DEFAULT 0,
			llm_calls INT NOT NULL DEFAULT 0,
			llm_total_tokens BIGINT NOT NULL DEFAULT 0,
			llm_cost_usd DOUBLE PRECISION NOT NULL DEFAULT 0,
			config JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			completed_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS run_steps (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			run_id UUID NOT NULL REFERENCES matching_runs(id) ON DELETE CASCADE,
			step TEXT NOT NULL,
			status TEXT NOT NULL,
			started_at TIMESTAMPTZ,
			completed_at TIMESTAMPTZ,
			duration_ms INT,
			error_message TEXT,
			detail JSONB,
			UNIQUE (run_id, step)
		)`,
		`CREATE TABLE IF NOT EXISTS match_reports (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			run_id UUID NOT NULL REFERENCES matching_runs(id) ON DELETE CASCADE,
			material_id TEXT NOT NULL,
			material_name TEXT,
			report JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (run_id, material_id)
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// Run is one pipeline run record.
type Run struct {
	ID            uuid.UUID       `json:"id"`
	InputFile     string          `json:"input_file"`
	Status        string          `json:"status"`
	MaterialCount int             `json:"material_count"`
	MatchedCount  int             `json:"matched_count"`
	FailedCount   int             `json:"failed_count"`
	LLMCalls      int             `json:"llm_calls"`
	LLMTokens     int64           `json:"llm_total_tokens"`
	LLMCostUSD    float64         `json:"llm_cost_usd"`
	Config        json.RawMessage `json:"config,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
}

// RunSummary carries the final counters written when a run completes.
type RunSummary struct {
	MaterialCount int
	MatchedCount  int
	FailedCount   int
	LLMCalls      int
	LLMTokens     int64
	LLMCostUSD    float64
}

// CreateRun inserts a new run in running state and returns its id. The
// config snapshot is stored as JSONB so a report can always be traced back
// to the toggles that produced it.
func (db *DB) CreateRun(ctx context.Context, inputFile string, cfg any) (uuid.UUID, error) {
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal config snapshot: %w", err)
	}

	var id uuid.UUID
	err = db.pool.QueryRow(ctx,
		`INSERT INTO matching_runs (input_file, status, config)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		inputFile, RunStatusRunning, cfgJSON,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create run: %w", err)
	}
	return id, nil
}

// CompleteRun writes the final status and counters.
func (db *DB) CompleteRun(ctx context.Context, runID uuid.UUID, status string, summary RunSummary) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE matching_runs
		 SET status = $1, material_count = $2, matched_count = $3, failed_count = $4,
		     llm_calls = $5, llm_total_tokens = $6, llm_cost_usd = $7, completed_at = NOW()
		 WHERE id = $8`,
		status, summary.MaterialCount, summary.MatchedCount, summary.FailedCount,
		summary.LLMCalls, summary.LLMTokens, summary.LLMCostUSD, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

// GetRun retrieves one run, nil when it does not exist.
func (db *DB) GetRun(ctx context.Context, runID uuid.UUID) (*Run, error) {
	var run Run
	err := db.pool.QueryRow(ctx,
		`SELECT id, input_file, status, material_count, matched_count, failed_count,
		        llm_calls, llm_total_tokens, llm_cost_usd, config, created_at, completed_at
		 FROM matching_runs WHERE id = $1`,
		runID,
	).Scan(&run.ID, &run.InputFile, &run.Status, &run.MaterialCount, &run.MatchedCount,
		&run.FailedCount, &run.LLMCalls, &run.LLMTokens, &run.LLMCostUSD, &run.Config,
		&run.CreatedAt, &run.CompletedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &run, nil
}

// ListRuns retrieves the most recent runs.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.pool.Query(ctx,
		`SELECT id, input_file, status, material_count, matched_count, failed_count,
		        llm_calls, llm_total_tokens, llm_cost_usd, config, created_at, completed_at
		 FROM matching_runs ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.InputFile, &run.Status, &run.MaterialCount,
			&run.MatchedCount, &run.FailedCount, &run.LLMCalls, &run.LLMTokens,
			&run.LLMCostUSD, &run.Config, &run.CreatedAt, &run.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// DeleteRun removes a run and, via cascade, its steps and reports.
func (db *DB) DeleteRun(ctx context.Context, runID uuid.UUID) error {
	result, err := db.pool.Exec(ctx, `DELETE FROM matching_runs WHERE id = $1`, runID)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("run not found: %s", runID)
	}
	return nil
}
