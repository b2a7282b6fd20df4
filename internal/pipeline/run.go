// Package pipeline provides the high-level orchestration for the EPD
// matching process: context extraction, designation parsing, candidate
// filtering, semantic matching and confidence validation, with optional
// persistence of runs, steps and reports.
package pipeline

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/jonathan/epd-matcher/internal/catalog"
	"github.com/jonathan/epd-matcher/internal/config"
	"github.com/jonathan/epd-matcher/internal/db"
	"github.com/jonathan/epd-matcher/internal/designation"
	"github.com/jonathan/epd-matcher/internal/filter"
	"github.com/jonathan/epd-matcher/internal/glossary"
	"github.com/jonathan/epd-matcher/internal/llm"
	"github.com/jonathan/epd-matcher/internal/matching"
	"github.com/jonathan/epd-matcher/internal/material"
	"github.com/jonathan/epd-matcher/internal/observability"
	"github.com/jonathan/epd-matcher/internal/pipeline/steps"
	"github.com/jonathan/epd-matcher/internal/types"
	"github.com/jonathan/epd-matcher/internal/validation"
)

// ProgressEvent represents a progress update during pipeline execution.
type ProgressEvent struct {
	Step       string `json:"step"`
	Message    string `json:"message"`
	RunID      string `json:"run_id,omitempty"`
	MaterialID string `json:"material_id,omitempty"`
	Content    any    `json:"content,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs.
type ProgressCallback func(event ProgressEvent)

// RunOptions holds everything one pipeline run needs.
type RunOptions struct {
	// Items are the decoded input line items, in input order.
	Items []types.RawLineItem
	// InputFile is recorded on the run row for auditing.
	InputFile string
	Config    config.Config
	// Grammar defaults to the asphalt grammar when left empty.
	Grammar glossary.Grammar
	// Client is the semantic matcher. When nil, a Gemini client is built
	// from the configuration and closed when the run ends.
	Client llm.Client
	// Catalog bypasses the catalog service. When nil, the catalog is
	// loaded once via the HTTP client.
	Catalog []types.EpdRecord
	// Details loads extended record fields for detail matching. Defaults
	// to the catalog client when one is constructed.
	Details    matching.DetailLoader
	OnProgress ProgressCallback
}

// Result carries the outcome of one full pipeline run.
type Result struct {
	// RunID is uuid.Nil when persistence was disabled or unavailable.
	RunID uuid.UUID
	// Reports holds one report per material, in input order.
	Reports []types.MaterialMatchReport
	// Usage aggregates the matcher calls of this run.
	Usage llm.UsageTotals
}

// MatchedCount returns the number of materials with at least one accepted
// result.
func (r *Result) MatchedCount() int {
	n := 0
	for _, report := range r.Reports {
		if !report.Failed() && len(report.Results) > 0 {
			n++
		}
	}
	return n
}

// FailedCount returns the number of materials whose matching errored out.
func (r *Result) FailedCount() int {
	n := 0
	for _, report := range r.Reports {
		if report.Failed() {
			n++
		}
	}
	return n
}

// emitProgress calls the progress callback if configured.
func emitProgress(opts *RunOptions, runID uuid.UUID, step, message, materialID string, content any) {
	if opts.OnProgress == nil {
		return
	}
	event := ProgressEvent{
		Step:       step,
		Message:    message,
		MaterialID: materialID,
		Content:    content,
	}
	if runID != uuid.Nil {
		event.RunID = runID.String()
	}
	opts.OnProgress(event)
}

// stepRecorder persists step rows when a database is connected. All methods
// degrade to warnings; persistence never fails a run.
type stepRecorder struct {
	store *db.DB
	runID uuid.UUID
}

func (r stepRecorder) start(ctx context.Context, step string) {
	if r.store == nil {
		return
	}
	if err := steps.ValidateDependencies(ctx, r.store, r.runID, step); err != nil {
		fmt.Printf("Warning: step order check failed for %s: %v\n", step, err)
	}
	if err := r.store.StartStep(ctx, r.runID, step); err != nil {
		fmt.Printf("Warning: failed to record start of step %s: %v\n", step, err)
	}
}

func (r stepRecorder) finish(ctx context.Context, step string, detail map[string]any) {
	if r.store == nil {
		return
	}
	if err := r.store.FinishStep(ctx, r.runID, step, db.StepStatusCompleted, nil, detail); err != nil {
		fmt.Printf("Warning: failed to record completion of step %s: %v\n", step, err)
	}
}

func (r stepRecorder) fail(ctx context.Context, step string, cause error) {
	if r.store == nil {
		return
	}
	msg := cause.Error()
	if err := r.store.FinishStep(ctx, r.runID, step, db.StepStatusFailed, &msg, nil); err != nil {
		fmt.Printf("Warning: failed to record failure of step %s: %v\n", step, err)
	}
}

// Run executes the full matching pipeline over the given line items. The
// returned error covers run-level failures only; per-material matcher
// failures are reported on the affected reports, not as an error.
func Run(ctx context.Context, opts RunOptions) (*Result, error) {
	cfg := opts.Config
	printer := observability.NewPrinter(os.Stdout)
	logger := observability.NewLogger(cfg.LogLevel, true, os.Stderr)

	g := opts.Grammar
	if len(g.Types) == 0 {
		g = glossary.Asphalt()
	}

	// Database persistence is optional; any failure degrades to a warning.
	var store *db.DB
	var runID uuid.UUID
	if cfg.DatabaseURL != "" {
		connected, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			fmt.Printf("Warning: failed to connect to database: %v\n", err)
			fmt.Printf("Continuing without run persistence...\n")
		} else {
			defer connected.Close()
			if err := connected.Init(ctx); err != nil {
				fmt.Printf("Warning: failed to prepare database schema: %v\n", err)
			} else {
				store = connected
			}
		}
	}
	if store != nil {
		id, err := store.CreateRun(ctx, opts.InputFile, cfg)
		if err != nil {
			fmt.Printf("Warning: failed to create run record: %v\n", err)
			store = nil
		} else {
			runID = id
			if cfg.Verbose {
				fmt.Printf("[VERBOSE] Created run %s\n", runID)
			}
		}
	}
	rec := stepRecorder{store: store, runID: runID}

	failRun := func(err error) (*Result, error) {
		if store != nil {
			if cerr := store.CompleteRun(ctx, runID, db.RunStatusFailed, db.RunSummary{
				MaterialCount: len(opts.Items),
			}); cerr != nil {
				fmt.Printf("Warning: failed to record run failure: %v\n", cerr)
			}
		}
		return nil, err
	}

	client := opts.Client
	if client == nil {
		built, err := llm.NewClient(ctx, llm.DefaultGeminiConfig(), cfg.GeminiAPIKey)
		if err != nil {
			return failRun(fmt.Errorf("failed to create matcher client: %w", err))
		}
		defer built.Close()
		client = built
	}

	// The catalog is loaded once per run; every material filters against
	// the same listing.
	records := opts.Catalog
	details := opts.Details
	if records == nil {
		if !cfg.CatalogConfigured() {
			return failRun(fmt.Errorf("no catalog provided and catalog service credentials are not configured"))
		}
		fmt.Printf("Loading EPD catalog from %s...\n", cfg.CatalogBaseURL)
		svc, err := catalog.NewClient(cfg)
		if err != nil {
			return failRun(fmt.Errorf("failed to create catalog client: %w", err))
		}
		var hints []string
		if cfg.FilterStrategy() == config.FilterStrategyLabels {
			hints = cfg.FilterLabels
		}
		records, err = svc.List(ctx, hints)
		if err != nil {
			return failRun(fmt.Errorf("failed to load EPD catalog: %w", err))
		}
		if details == nil {
			details = svc
		}
	}
	fmt.Printf("Catalog ready: %d EPDs\n", len(records))

	// Step 1/5: context extraction.
	fmt.Printf("Step 1/5: Extracting material contexts (%d line items)...\n", len(opts.Items))
	rec.start(ctx, db.StepExtractContext)
	contexts := material.ExtractAll(opts.Items, cfg)
	rec.finish(ctx, db.StepExtractContext, map[string]any{"materials": len(contexts)})
	emitProgress(&opts, runID, db.StepExtractContext,
		fmt.Sprintf("Extracted %d material contexts", len(contexts)), "", nil)

	// Step 2/5: designation parsing.
	fmt.Printf("Step 2/5: Parsing designations...\n")
	rec.start(ctx, db.StepParseDesignation)
	parsed := make([]types.ParsedDesignation, len(contexts))
	decoded := 0
	if cfg.UseGlossar {
		for i, mc := range contexts {
			p, trace := designation.ParseContext(mc, g)
			parsed[i] = p
			if p.Matched() {
				decoded++
			}
			if cfg.GlossarDebug {
				logger.Info().
					Str("material", mc.ID).
					Str("raw_name", mc.RawName).
					Interface("trace", trace.Steps).
					Msg("designation trace")
			}
			if cfg.Verbose {
				printer.PrintMaterialContext(&contexts[i], &parsed[i])
			}
		}
	} else if cfg.Verbose {
		for i := range contexts {
			printer.PrintMaterialContext(&contexts[i], nil)
		}
	}
	rec.finish(ctx, db.StepParseDesignation, map[string]any{
		"materials": len(contexts),
		"decoded":   decoded,
	})
	emitProgress(&opts, runID, db.StepParseDesignation,
		fmt.Sprintf("Decoded %d of %d designations", decoded, len(contexts)), "", nil)

	// Step 3/5: candidate filtering.
	fmt.Printf("Step 3/5: Filtering candidates (%s strategy)...\n", cfg.FilterStrategy())
	rec.start(ctx, db.StepFilterCandidates)
	sets := make([]types.CandidateSet, len(contexts))
	failOpen := 0
	retained := 0
	for i, mc := range contexts {
		sets[i] = filter.Apply(mc, parsed[i], records, g, cfg)
		retained += sets[i].Len()
		if sets[i].FailOpen {
			failOpen++
		}
		if cfg.Verbose {
			printer.PrintCandidateStats(&sets[i])
		}
	}
	rec.finish(ctx, db.StepFilterCandidates, map[string]any{
		"catalog":   len(records),
		"retained":  retained,
		"fail_open": failOpen,
	})
	emitProgress(&opts, runID, db.StepFilterCandidates,
		fmt.Sprintf("Filtered %d EPDs down to %d candidates", len(records), retained), "", nil)

	// Step 4/5: semantic matching.
	mode := "single"
	if cfg.UseBatchMode {
		mode = "batch"
	}
	fmt.Printf("Step 4/5: Matching EPDs (%s mode)...\n", mode)
	rec.start(ctx, db.StepMatchEpds)
	mats := make([]matching.MaterialCandidates, len(contexts))
	for i := range contexts {
		mats[i] = matching.MaterialCandidates{
			Context:    contexts[i],
			Parsed:     parsed[i],
			Candidates: sets[i],
		}
	}
	outcomes := matching.New(client, details, records, g, cfg).Match(ctx, mats)
	callsFailed := 0
	for _, outcome := range outcomes {
		if outcome.Failed() {
			callsFailed++
		}
	}
	if callsFailed > 0 {
		fmt.Printf("Warning: matching failed for %d of %d materials\n", callsFailed, len(contexts))
	}
	rec.finish(ctx, db.StepMatchEpds, map[string]any{
		"materials": len(contexts),
		"failed":    callsFailed,
	})
	emitProgress(&opts, runID, db.StepMatchEpds,
		fmt.Sprintf("Matched %d materials (%d failed)", len(contexts)-callsFailed, callsFailed), "", nil)

	// Step 5/5: confidence validation and report assembly. Failed matcher
	// outcomes skip validation and keep their error marker.
	fmt.Printf("Step 5/5: Validating confidence scores...\n")
	rec.start(ctx, db.StepValidateConfidence)
	results := make(map[string][]types.MatchResult)
	infos := make(map[string]validation.MaterialInfo)
	for i, mc := range contexts {
		outcome := outcomes[mc.ID]
		if outcome.Failed() {
			continue
		}
		results[mc.ID] = outcome.Results
		infos[mc.ID] = validation.MaterialInfo{Context: mc, Parsed: parsed[i]}
	}
	validated := validation.New(records, g, cfg).Validate(results, infos)

	reports := make([]types.MaterialMatchReport, 0, len(contexts))
	for _, mc := range contexts {
		var report types.MaterialMatchReport
		if outcome := outcomes[mc.ID]; outcome.Failed() {
			report = types.MaterialMatchReport{
				MaterialID:   mc.ID,
				MaterialName: mc.DisplayName(),
				Results:      []types.MatchResult{},
				Err:          outcome.Err,
			}
		} else {
			report = validated[mc.ID]
		}
		reports = append(reports, report)

		if cfg.Verbose {
			printer.PrintMatchReport(&report)
			printer.PrintExclusions(&report)
		}
		if store != nil {
			if err := store.SaveReport(ctx, runID, report); err != nil {
				fmt.Printf("Warning: failed to save report for %s: %v\n", mc.ID, err)
			}
		}
		emitProgress(&opts, runID, db.StepValidateConfidence,
			fmt.Sprintf("%s: %d matches, %d excluded", report.MaterialName, len(report.Results), len(report.Excluded)),
			mc.ID, report)
	}
	rec.finish(ctx, db.StepValidateConfidence, map[string]any{
		"materials": len(reports),
	})

	result := &Result{
		RunID:   runID,
		Reports: reports,
		Usage:   client.Usage(),
	}

	if store != nil {
		status := runStatus(len(reports), result.FailedCount())
		summary := db.RunSummary{
			MaterialCount: len(reports),
			MatchedCount:  result.MatchedCount(),
			FailedCount:   result.FailedCount(),
			LLMCalls:      result.Usage.Calls,
			LLMTokens:     result.Usage.TotalTokens,
			LLMCostUSD:    result.Usage.CostUSD,
		}
		if err := store.CompleteRun(ctx, runID, status, summary); err != nil {
			fmt.Printf("Warning: failed to record run completion: %v\n", err)
		}
	}

	fmt.Printf("Done! %d materials: %d with matches, %d failed.\n",
		len(result.Reports), result.MatchedCount(), result.FailedCount())
	fmt.Printf("Matcher usage: %d calls, %d tokens, ~$%.4f\n",
		result.Usage.Calls, result.Usage.TotalTokens, result.Usage.CostUSD)

	return result, nil
}

// runStatus derives the final run status from the per-material outcome
// counts. A run where every material failed counts as failed; a mix counts
// as partial.
func runStatus(total, failed int) string {
	switch {
	case total > 0 && failed == total:
		return db.RunStatusFailed
	case failed > 0:
		return db.RunStatusPartial
	default:
		return db.RunStatusCompleted
	}
}
