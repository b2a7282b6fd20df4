package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Step status values.
const (
	StepStatusInProgress = "in_progress"
	StepStatusCompleted  = "completed"
	StepStatusFailed     = "failed"
	StepStatusSkipped    = "skipped"
)

// Pipeline step names, in execution order.
const (
	StepExtractContext     = "extract_context"
	StepParseDesignation   = "parse_designation"
	StepFilterCandidates   = "filter_candidates"
	StepMatchEpds          = "match_epds"
	StepValidateConfidence = "validate_confidence"
)

// RunStep is one step execution within a run.
type RunStep struct {
	ID           uuid.UUID      `json:"id"`
	RunID        uuid.UUID      `json:"run_id"`
	Step         string         `json:"step"`
	Status       string         `json:"status"`
	StartedAt    *time.Time     `json:"started_at,omitempty"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	DurationMs   *int           `json:"duration_ms,omitempty"`
	ErrorMessage *string        `json:"error_message,omitempty"`
	Detail       map[string]any `json:"detail,omitempty"`
}

// StartStep records a step as in progress. Re-running a step resets its
// timing so a retried stage reports its own duration.
func (db *DB) StartStep(ctx context.Context, runID uuid.UUID, step string) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO run_steps (run_id, step, status, started_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (run_id, step) DO UPDATE
		 SET status = $3, started_at = NOW(), completed_at = NULL,
		     duration_ms = NULL, error_message = NULL`,
		runID, step, StepStatusInProgress,
	)
	if err != nil {
		return fmt.Errorf("failed to start step %s: %w", step, err)
	}
	return nil
}

// FinishStep closes a step with its final status. detail may carry
// step-specific counters (materials parsed, candidates filtered, calls made)
// and is stored as JSONB; nil leaves it empty.
func (db *DB) FinishStep(ctx context.Context, runID uuid.UUID, step, status string, errMsg *string, detail map[string]any) error {
	var detailJSON []byte
	if detail != nil {
		var err error
		detailJSON, err = json.Marshal(detail)
		if err != nil {
			return fmt.Errorf("failed to marshal step detail: %w", err)
		}
	}

	_, err := db.pool.Exec(ctx,
		`UPDATE run_steps
		 SET status = $1, completed_at = NOW(),
		     duration_ms = (EXTRACT(EPOCH FROM (NOW() - started_at)) * 1000)::INT,
		     error_message = $2, detail = COALESCE($3, detail)
		 WHERE run_id = $4 AND step = $5`,
		status, errMsg, detailJSON, runID, step,
	)
	if err != nil {
		return fmt.Errorf("failed to finish step %s: %w", step, err)
	}
	return nil
}

// GetStep retrieves one step, nil when it does not exist.
func (db *DB) GetStep(ctx context.Context, runID uuid.UUID, step string) (*RunStep, error) {
	var s RunStep
	var detailJSON []byte

	err := db.pool.QueryRow(ctx,
		`SELECT id, run_id, step, status, started_at, completed_at,
		        duration_ms, error_message, detail
		 FROM run_steps WHERE run_id = $1 AND step = $2`,
		runID, step,
	).Scan(&s.ID, &s.RunID, &s.Step, &s.Status, &s.StartedAt, &s.CompletedAt,
		&s.DurationMs, &s.ErrorMessage, &detailJSON)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get step %s: %w", step, err)
	}

	if detailJSON != nil {
		_ = json.Unmarshal(detailJSON, &s.Detail)
	}
	return &s, nil
}

// ListSteps retrieves all steps of a run in start order.
func (db *DB) ListSteps(ctx context.Context, runID uuid.UUID) ([]RunStep, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, run_id, step, status, started_at, completed_at,
		        duration_ms, error_message, detail
		 FROM run_steps WHERE run_id = $1 ORDER BY started_at`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list steps: %w", err)
	}
	defer rows.Close()

	var steps []RunStep
	for rows.Next() {
		var s RunStep
		var detailJSON []byte
		if err := rows.Scan(&s.ID, &s.RunID, &s.Step, &s.Status, &s.StartedAt,
			&s.CompletedAt, &s.DurationMs, &s.ErrorMessage, &detailJSON); err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		if detailJSON != nil {
			_ = json.Unmarshal(detailJSON, &s.Detail)
		}
		steps = append(steps, s)
	}
	return steps, nil
}
