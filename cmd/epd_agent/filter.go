package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jonathan/epd-matcher/internal/catalog"
	"github.com/jonathan/epd-matcher/internal/config"
	"github.com/jonathan/epd-matcher/internal/designation"
	"github.com/jonathan/epd-matcher/internal/filter"
	"github.com/jonathan/epd-matcher/internal/glossary"
	"github.com/jonathan/epd-matcher/internal/material"
	"github.com/jonathan/epd-matcher/internal/pipeline"
	"github.com/jonathan/epd-matcher/internal/types"
	"github.com/spf13/cobra"
)

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Filter EPD candidates for each material without calling the matcher",
	Long: `Runs context extraction, designation parsing and candidate filtering and reports how far each material narrows the catalog.

The catalog is loaded from the configured catalog service, or from a local JSON file (an array of EPD records) given with --catalog.`,
	RunE: runFilter,
}

var (
	filterInput       string
	filterCatalogFile string
	filterOutput      string
	filterConfigPath  string
)

func init() {
	filterCmd.Flags().StringVarP(&filterInput, "input", "i", "", "Path to bill of quantities JSON file (required)")
	filterCmd.Flags().StringVar(&filterCatalogFile, "catalog", "", "Path to a local catalog JSON file (skips the catalog service)")
	filterCmd.Flags().StringVarP(&filterOutput, "out", "o", "", "Path to output JSON file with the full candidate sets (optional)")
	filterCmd.Flags().StringVar(&filterConfigPath, "config", "", "Path to config.json file")

	if err := filterCmd.MarkFlagRequired("input"); err != nil {
		panic(fmt.Sprintf("failed to mark input flag as required: %v", err))
	}

	rootCmd.AddCommand(filterCmd)
}

func runFilter(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg := config.Default()
	if filterConfigPath != "" {
		loaded, err := config.Load(filterConfigPath, cfg)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	cfg = config.FromEnv(cfg)

	inputContent, err := os.ReadFile(filterInput)
	if err != nil {
		return fmt.Errorf("failed to read input file %s: %w", filterInput, err)
	}
	doc, err := pipeline.DecodeGroups(inputContent)
	if err != nil {
		return err
	}

	records, err := loadCatalog(ctx, cfg, filterCatalogFile)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(os.Stdout, "Catalog ready: %d EPDs\n", len(records))

	g := glossary.Asphalt()
	contexts := material.ExtractAll(doc.Items, cfg)
	sets := make([]types.CandidateSet, len(contexts))
	for i, mc := range contexts {
		var parsed types.ParsedDesignation
		if cfg.UseGlossar {
			parsed, _ = designation.ParseContext(mc, g)
		}
		sets[i] = filter.Apply(mc, parsed, records, g, cfg)

		marker := ""
		if sets[i].FailOpen {
			marker = " (fail-open)"
		}
		_, _ = fmt.Fprintf(os.Stdout, "%s: %d -> %d candidates, %.1f%% reduction%s\n",
			mc.ID, sets[i].Stats.CatalogTotal, sets[i].Stats.Returned, sets[i].Stats.ReductionPercent, marker)
	}

	if filterOutput == "" {
		return nil
	}
	jsonBytes, err := json.MarshalIndent(sets, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal candidate sets: %w", err)
	}
	if err := os.WriteFile(filterOutput, jsonBytes, 0644); err != nil {
		return fmt.Errorf("failed to write output file %s: %w", filterOutput, err)
	}
	_, _ = fmt.Fprintf(os.Stdout, "Output: %s\n", filterOutput)

	return nil
}

// loadCatalog reads EPD records from a local JSON file, or from the
// configured catalog service when no file is given.
func loadCatalog(ctx context.Context, cfg config.Config, path string) ([]types.EpdRecord, error) {
	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog file %s: %w", path, err)
		}
		var records []types.EpdRecord
		if err := json.Unmarshal(content, &records); err != nil {
			return nil, fmt.Errorf("failed to parse catalog file %s: %w", path, err)
		}
		return records, nil
	}

	if !cfg.CatalogConfigured() {
		return nil, fmt.Errorf("catalog service credentials are not configured; provide --catalog or set ONLINE_EPD_API_BASE_URL, ONLINE_EPD_API_USERNAME and ONLINE_EPD_API_PASSWORD")
	}
	client, err := catalog.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog client: %w", err)
	}
	var hints []string
	if cfg.FilterStrategy() == config.FilterStrategyLabels {
		hints = cfg.FilterLabels
	}
	records, err := client.List(ctx, hints)
	if err != nil {
		return nil, fmt.Errorf("failed to load EPD catalog: %w", err)
	}
	return records, nil
}
