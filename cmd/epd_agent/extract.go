package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jonathan/epd-matcher/internal/config"
	"github.com/jonathan/epd-matcher/internal/material"
	"github.com/jonathan/epd-matcher/internal/pipeline"
	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract material contexts from a bill of quantities JSON",
	Long:  "Extracts the normalized material contexts (id, raw name, free text, volume) from the Gruppen array of a bill of quantities export, without calling any external service.",
	RunE:  runExtract,
}

var (
	extractInput      string
	extractOutput     string
	extractConfigPath string
)

func init() {
	extractCmd.Flags().StringVarP(&extractInput, "input", "i", "", "Path to bill of quantities JSON file (required)")
	extractCmd.Flags().StringVarP(&extractOutput, "out", "o", "", "Path to output JSON file (prints to stdout when omitted)")
	extractCmd.Flags().StringVar(&extractConfigPath, "config", "", "Path to config.json file")

	if err := extractCmd.MarkFlagRequired("input"); err != nil {
		panic(fmt.Sprintf("failed to mark input flag as required: %v", err))
	}

	rootCmd.AddCommand(extractCmd)
}

func runExtract(_ *cobra.Command, _ []string) error {
	cfg := config.Default()
	if extractConfigPath != "" {
		loaded, err := config.Load(extractConfigPath, cfg)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	cfg = config.FromEnv(cfg)

	inputContent, err := os.ReadFile(extractInput)
	if err != nil {
		return fmt.Errorf("failed to read input file %s: %w", extractInput, err)
	}
	doc, err := pipeline.DecodeGroups(inputContent)
	if err != nil {
		return err
	}

	contexts := material.ExtractAll(doc.Items, cfg)

	jsonBytes, err := json.MarshalIndent(contexts, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal contexts: %w", err)
	}

	if extractOutput == "" {
		_, _ = fmt.Fprintln(os.Stdout, string(jsonBytes))
		return nil
	}
	if err := os.WriteFile(extractOutput, jsonBytes, 0644); err != nil {
		return fmt.Errorf("failed to write output file %s: %w", extractOutput, err)
	}

	_, _ = fmt.Fprintf(os.Stdout, "Extracted %d material contexts\n", len(contexts))
	_, _ = fmt.Fprintf(os.Stdout, "Output: %s\n", extractOutput)

	return nil
}
