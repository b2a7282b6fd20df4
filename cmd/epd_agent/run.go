package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jonathan/epd-matcher/internal/config"
	"github.com/jonathan/epd-matcher/internal/pipeline"
	"github.com/jonathan/epd-matcher/internal/schemas"
	"github.com/spf13/cobra"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Run the full EPD matching pipeline end-to-end",
	Long: `Orchestrates the entire matching process: context extraction -> designation parsing -> candidate filtering -> semantic matching -> confidence validation.

Reads a bill of quantities JSON ({"Gruppen": [...]}) and writes the same document back with per-group "id" and "id_confidence" fields added.

Configuration can be loaded from a JSON file using --config. Environment variables override the file, command-line arguments override both.`,
	RunE: runPipelineCmd,
}

var (
	runConfigPath     string
	runInputFile      string
	runOutputFile     string
	runReportDir      string
	runNoBatch        bool
	runMaxResults     int
	runModelTier      string
	runDetailMatching bool
	runWorkers        int
	runAPIKey         string
	runVerbose        bool
	runDatabaseURL    string
)

func init() {
	// Config file flag (processed first)
	runCommand.Flags().StringVar(&runConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	runCommand.Flags().StringVarP(&runInputFile, "input", "i", "", "Path to bill of quantities JSON file (required)")
	runCommand.Flags().StringVarP(&runOutputFile, "out", "o", "output.json", "Path to enriched output JSON file")
	runCommand.Flags().StringVar(&runReportDir, "report-dir", "", "Directory for per-material match report JSON files (optional)")
	runCommand.Flags().BoolVar(&runNoBatch, "no-batch", false, "Match each layer in a separate request instead of one batch request")
	runCommand.Flags().IntVar(&runMaxResults, "max-results", 0, "Maximum matches requested per material")
	runCommand.Flags().StringVar(&runModelTier, "model-tier", "", "Matcher model tier (standard or advanced)")
	runCommand.Flags().BoolVar(&runDetailMatching, "detail-matching", false, "Fetch extended catalog columns before matching")
	runCommand.Flags().IntVar(&runWorkers, "workers", 0, "Parallel matcher requests in single mode")
	runCommand.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print detailed debug information")

	// API key can be passed as a flag, or read from env var GEMINI_API_KEY
	runCommand.Flags().StringVar(&runAPIKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")

	// Database URL for run persistence
	runCommand.Flags().StringVar(&runDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")

	if err := runCommand.MarkFlagRequired("input"); err != nil {
		panic(fmt.Sprintf("failed to mark input flag as required: %v", err))
	}

	rootCmd.AddCommand(runCommand)
}

func runPipelineCmd(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	// Step 1: Defaults, then config file if provided
	cfg := config.Default()
	if runConfigPath != "" {
		loaded, err := config.Load(runConfigPath, cfg)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		if runVerbose {
			_, _ = fmt.Fprintf(os.Stdout, "Loaded config from: %s\n", runConfigPath)
		}
	}

	// Step 2: Environment overrides (including GEMINI_API_KEY and DATABASE_URL)
	cfg = config.FromEnv(cfg)

	// Step 3: Apply CLI overrides (command-line args take priority)
	// Only override if the flag was explicitly set
	if cmd.Flags().Changed("no-batch") {
		cfg.UseBatchMode = !runNoBatch
	}
	if cmd.Flags().Changed("max-results") {
		cfg.MaxResults = runMaxResults
	}
	if cmd.Flags().Changed("model-tier") {
		cfg.ModelTier = runModelTier
	}
	if cmd.Flags().Changed("detail-matching") {
		cfg.UseDetailMatching = runDetailMatching
	}
	if cmd.Flags().Changed("workers") {
		cfg.ParallelWorkers = runWorkers
	}
	if cmd.Flags().Changed("api-key") {
		cfg.GeminiAPIKey = runAPIKey
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = runVerbose
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = runDatabaseURL
	}

	// Step 4: Validate the merged configuration
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Step 5: API Key handling
	if cfg.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable or --api-key flag is required")
	}

	// Step 6: Read and decode the input document
	inputContent, err := os.ReadFile(runInputFile)
	if err != nil {
		return fmt.Errorf("failed to read input file %s: %w", runInputFile, err)
	}
	doc, err := pipeline.DecodeGroups(inputContent)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(os.Stdout, "Input:  %s (%d groups)\n", runInputFile, len(doc.Items))
	_, _ = fmt.Fprintf(os.Stdout, "Output: %s\n", runOutputFile)

	result, err := pipeline.Run(ctx, pipeline.RunOptions{
		Items:     doc.Items,
		InputFile: runInputFile,
		Config:    cfg,
	})
	if err != nil {
		return err
	}

	// Step 7: Write the enriched document
	enriched, err := doc.Encode(result.Reports)
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	outputDir := filepath.Dir(runOutputFile)
	if outputDir != "" && outputDir != "." {
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", outputDir, err)
		}
	}
	if err := os.WriteFile(runOutputFile, enriched, 0644); err != nil {
		return fmt.Errorf("failed to write output file %s: %w", runOutputFile, err)
	}
	_, _ = fmt.Fprintf(os.Stdout, "Wrote enriched output: %s\n", runOutputFile)

	// Step 8: Optional per-material report files
	if runReportDir != "" {
		if err := writeReports(runReportDir, result); err != nil {
			return err
		}
	}

	return nil
}

// writeReports dumps one JSON file per material match report and validates
// each against the embedded match_report schema.
func writeReports(dir string, result *pipeline.Result) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create report directory %s: %w", dir, err)
	}

	for _, report := range result.Reports {
		jsonBytes, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal report for %s: %w", report.MaterialID, err)
		}

		if err := schemas.ValidateMatchReport(string(jsonBytes)); err != nil {
			// Distinguish between validation errors (data doesn't match schema) and schema load errors
			var validationErr *schemas.ValidationError
			var schemaLoadErr *schemas.SchemaLoadError
			if errors.As(err, &validationErr) {
				return fmt.Errorf("report for %s does not validate against schema: %w", report.MaterialID, err)
			} else if errors.As(err, &schemaLoadErr) {
				_, _ = fmt.Fprintf(os.Stderr, "Warning: Could not validate report against schema (schema loading failed): %v\n", err)
			} else {
				_, _ = fmt.Fprintf(os.Stderr, "Warning: Could not validate report against schema: %v\n", err)
			}
		}

		path := filepath.Join(dir, fmt.Sprintf("%s.json", report.MaterialID))
		if err := os.WriteFile(path, jsonBytes, 0644); err != nil {
			return fmt.Errorf("failed to write report file %s: %w", path, err)
		}
	}

	_, _ = fmt.Fprintf(os.Stdout, "Wrote %d match reports to %s\n", len(result.Reports), dir)
	return nil
}
