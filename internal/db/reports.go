package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/epd-matcher/internal/types"
)

// SaveReport stores the final report for one material. Saving the same
// material again within a run replaces the earlier report.
func (db *DB) SaveReport(ctx context.Context, runID uuid.UUID, report types.MaterialMatchReport) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO match_reports (run_id, material_id, material_name, report)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (run_id, material_id) DO UPDATE
		 SET material_name = $3, report = $4, created_at = NOW()`,
		runID, report.MaterialID, report.MaterialName, reportJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to save report for %s: %w", report.MaterialID, err)
	}
	return nil
}

// GetReport retrieves one material's report, nil when it does not exist.
func (db *DB) GetReport(ctx context.Context, runID uuid.UUID, materialID string) (*types.MaterialMatchReport, error) {
	var reportJSON []byte
	err := db.pool.QueryRow(ctx,
		`SELECT report FROM match_reports WHERE run_id = $1 AND material_id = $2`,
		runID, materialID,
	).Scan(&reportJSON)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get report for %s: %w", materialID, err)
	}

	var report types.MaterialMatchReport
	if err := json.Unmarshal(reportJSON, &report); err != nil {
		return nil, fmt.Errorf("failed to decode report for %s: %w", materialID, err)
	}
	return &report, nil
}

// ListReports retrieves all reports of a run keyed by material id.
func (db *DB) ListReports(ctx context.Context, runID uuid.UUID) (map[string]types.MaterialMatchReport, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT material_id, report FROM match_reports WHERE run_id = $1`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	reports := make(map[string]types.MaterialMatchReport)
	for rows.Next() {
		var materialID string
		var reportJSON []byte
		if err := rows.Scan(&materialID, &reportJSON); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		var report types.MaterialMatchReport
		if err := json.Unmarshal(reportJSON, &report); err != nil {
			return nil, fmt.Errorf("failed to decode report for %s: %w", materialID, err)
		}
		reports[materialID] = report
	}
	return reports, nil
}
