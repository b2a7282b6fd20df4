package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jonathan/epd-matcher/internal/catalog"
	"github.com/jonathan/epd-matcher/internal/config"
	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Fetch the EPD catalog from the configured catalog service",
	Long: `Fetches the EPD dataset listing from the catalog service and prints or saves it.

A saved listing can be reused offline with 'epd_agent filter --catalog <file>'.`,
	RunE: runCatalog,
}

var (
	catalogOutput     string
	catalogCountOnly  bool
	catalogSearch     []string
	catalogConfigPath string
)

func init() {
	catalogCmd.Flags().StringVarP(&catalogOutput, "out", "o", "", "Path to output JSON file (prints a summary when omitted)")
	catalogCmd.Flags().BoolVar(&catalogCountOnly, "count", false, "Only count matching datasets instead of fetching them")
	catalogCmd.Flags().StringSliceVar(&catalogSearch, "search", nil, "Name search terms, repeatable (empty fetches the full listing)")
	catalogCmd.Flags().StringVar(&catalogConfigPath, "config", "", "Path to config.json file")

	rootCmd.AddCommand(catalogCmd)
}

func runCatalog(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg := config.Default()
	if catalogConfigPath != "" {
		loaded, err := config.Load(catalogConfigPath, cfg)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	cfg = config.FromEnv(cfg)

	if !cfg.CatalogConfigured() {
		return fmt.Errorf("catalog service credentials are not configured; set ONLINE_EPD_API_BASE_URL, ONLINE_EPD_API_USERNAME and ONLINE_EPD_API_PASSWORD")
	}
	client, err := catalog.NewClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to create catalog client: %w", err)
	}

	if catalogCountOnly {
		count, err := client.Count(ctx, catalogSearch)
		if err != nil {
			return fmt.Errorf("failed to count datasets: %w", err)
		}
		_, _ = fmt.Fprintf(os.Stdout, "%d datasets\n", count)
		return nil
	}

	records, err := client.List(ctx, catalogSearch)
	if err != nil {
		return fmt.Errorf("failed to load EPD catalog: %w", err)
	}

	if catalogOutput == "" {
		_, _ = fmt.Fprintf(os.Stdout, "Fetched %d EPDs\n", len(records))
		return nil
	}
	jsonBytes, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}
	if err := os.WriteFile(catalogOutput, jsonBytes, 0644); err != nil {
		return fmt.Errorf("failed to write output file %s: %w", catalogOutput, err)
	}
	_, _ = fmt.Fprintf(os.Stdout, "Fetched %d EPDs\n", len(records))
	_, _ = fmt.Fprintf(os.Stdout, "Output: %s\n", catalogOutput)

	return nil
}
