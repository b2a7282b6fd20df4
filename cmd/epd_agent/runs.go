package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/jonathan/epd-matcher/internal/db"
	"github.com/spf13/cobra"
)

var listRunsCmd = &cobra.Command{
	Use:   "list-runs",
	Short: "List recent matching runs from the database",
	RunE:  runListRuns,
}

var showRunCmd = &cobra.Command{
	Use:   "show-run",
	Short: "Show one matching run with its steps and reports",
	Long:  "Shows the run record, its per-step status rows and a per-material result summary. Use --material to dump one full match report as JSON.",
	RunE:  runShowRun,
}

var (
	listRunsLimit  int
	listRunsDBURL  string
	showRunID      string
	showRunDBURL   string
	showRunMaterial string
)

func init() {
	listRunsCmd.Flags().IntVar(&listRunsLimit, "limit", 20, "Maximum number of runs to list")
	listRunsCmd.Flags().StringVar(&listRunsDBURL, "db-url", "", "PostgreSQL connection URL (defaults to DATABASE_URL env var)")

	showRunCmd.Flags().StringVar(&showRunID, "run-id", "", "Run ID to show (required)")
	showRunCmd.Flags().StringVar(&showRunDBURL, "db-url", "", "PostgreSQL connection URL (defaults to DATABASE_URL env var)")
	showRunCmd.Flags().StringVar(&showRunMaterial, "material", "", "Material ID to dump the full match report for")

	if err := showRunCmd.MarkFlagRequired("run-id"); err != nil {
		panic(fmt.Sprintf("failed to mark run-id flag as required: %v", err))
	}

	rootCmd.AddCommand(listRunsCmd)
	rootCmd.AddCommand(showRunCmd)
}

func connectStore(ctx context.Context, dbURL string) (*db.DB, error) {
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable or --db-url flag is required")
	}
	store, err := db.Connect(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return store, nil
}

func runListRuns(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	store, err := connectStore(ctx, listRunsDBURL)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(ctx, listRunsLimit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		_, _ = fmt.Fprintln(os.Stdout, "No runs found")
		return nil
	}

	for _, run := range runs {
		_, _ = fmt.Fprintf(os.Stdout, "%s  %-10s  %s  %d materials (%d matched, %d failed)  %d calls  $%.4f\n",
			run.ID, run.Status, run.CreatedAt.Format("2006-01-02 15:04:05"),
			run.MaterialCount, run.MatchedCount, run.FailedCount, run.LLMCalls, run.LLMCostUSD)
	}

	return nil
}

func runShowRun(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	runID, err := uuid.Parse(showRunID)
	if err != nil {
		return fmt.Errorf("invalid run-id: %w", err)
	}

	store, err := connectStore(ctx, showRunDBURL)
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.GetRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to get run: %w", err)
	}
	if run == nil {
		return fmt.Errorf("run not found: %s", runID)
	}

	// Single report dump mode
	if showRunMaterial != "" {
		report, err := store.GetReport(ctx, runID, showRunMaterial)
		if err != nil {
			return fmt.Errorf("failed to get report: %w", err)
		}
		if report == nil {
			return fmt.Errorf("no report for material %s in run %s", showRunMaterial, runID)
		}
		jsonBytes, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
		_, _ = fmt.Fprintln(os.Stdout, string(jsonBytes))
		return nil
	}

	_, _ = fmt.Fprintf(os.Stdout, "Run %s (%s)\n", run.ID, run.Status)
	_, _ = fmt.Fprintf(os.Stdout, "Input: %s\n", run.InputFile)
	_, _ = fmt.Fprintf(os.Stdout, "Materials: %d (%d matched, %d failed)\n",
		run.MaterialCount, run.MatchedCount, run.FailedCount)
	_, _ = fmt.Fprintf(os.Stdout, "Matcher usage: %d calls, %d tokens, ~$%.4f\n",
		run.LLMCalls, run.LLMTokens, run.LLMCostUSD)

	steps, err := store.ListSteps(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to list steps: %w", err)
	}
	if len(steps) > 0 {
		_, _ = fmt.Fprintln(os.Stdout, "\nSteps:")
		for _, step := range steps {
			duration := ""
			if step.DurationMs != nil {
				duration = fmt.Sprintf("  %dms", *step.DurationMs)
			}
			_, _ = fmt.Fprintf(os.Stdout, "  %-20s %-12s%s\n", step.Step, step.Status, duration)
			if step.ErrorMessage != nil {
				_, _ = fmt.Fprintf(os.Stdout, "    error: %s\n", *step.ErrorMessage)
			}
		}
	}

	reports, err := store.ListReports(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to list reports: %w", err)
	}
	if len(reports) > 0 {
		_, _ = fmt.Fprintln(os.Stdout, "\nReports:")
		for materialID, report := range reports {
			status := fmt.Sprintf("%d matches", len(report.Results))
			if report.Failed() {
				status = "failed: " + report.Err.Message
			}
			_, _ = fmt.Fprintf(os.Stdout, "  %-16s %s\n", materialID, status)
		}
	}

	return nil
}
