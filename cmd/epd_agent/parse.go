package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jonathan/epd-matcher/internal/config"
	"github.com/jonathan/epd-matcher/internal/designation"
	"github.com/jonathan/epd-matcher/internal/glossary"
	"github.com/jonathan/epd-matcher/internal/material"
	"github.com/jonathan/epd-matcher/internal/pipeline"
	"github.com/jonathan/epd-matcher/internal/types"
	"github.com/spf13/cobra"
)

var parseCmd = &cobra.Command{
	Use:   "parse",
	Short: "Parse standardized designations from a bill of quantities JSON",
	Long:  "Extracts material contexts and decodes their standardized designation codes (material type, nominal size, layer, stress class) against the asphalt glossary. Useful for checking which line items the glossary understands before spending matcher calls.",
	RunE:  runParse,
}

// parsedMaterial pairs one material context with its decoded designation.
type parsedMaterial struct {
	MaterialID string                  `json:"material_id"`
	RawName    string                  `json:"raw_name"`
	Parsed     types.ParsedDesignation `json:"parsed"`
	Trace      *designation.Trace      `json:"trace,omitempty"`
}

var (
	parseInput      string
	parseOutput     string
	parseConfigPath string
	parseDebug      bool
)

func init() {
	parseCmd.Flags().StringVarP(&parseInput, "input", "i", "", "Path to bill of quantities JSON file (required)")
	parseCmd.Flags().StringVarP(&parseOutput, "out", "o", "", "Path to output JSON file (prints to stdout when omitted)")
	parseCmd.Flags().StringVar(&parseConfigPath, "config", "", "Path to config.json file")
	parseCmd.Flags().BoolVar(&parseDebug, "debug", false, "Include the per-token decision trace in the output")

	if err := parseCmd.MarkFlagRequired("input"); err != nil {
		panic(fmt.Sprintf("failed to mark input flag as required: %v", err))
	}

	rootCmd.AddCommand(parseCmd)
}

func runParse(_ *cobra.Command, _ []string) error {
	cfg := config.Default()
	if parseConfigPath != "" {
		loaded, err := config.Load(parseConfigPath, cfg)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	cfg = config.FromEnv(cfg)

	inputContent, err := os.ReadFile(parseInput)
	if err != nil {
		return fmt.Errorf("failed to read input file %s: %w", parseInput, err)
	}
	doc, err := pipeline.DecodeGroups(inputContent)
	if err != nil {
		return err
	}

	g := glossary.Asphalt()
	contexts := material.ExtractAll(doc.Items, cfg)
	parsed := make([]parsedMaterial, len(contexts))
	decoded := 0
	for i, mc := range contexts {
		p, trace := designation.ParseContext(mc, g)
		parsed[i] = parsedMaterial{
			MaterialID: mc.ID,
			RawName:    mc.RawName,
			Parsed:     p,
		}
		if parseDebug {
			parsed[i].Trace = &trace
		}
		if p.Matched() {
			decoded++
		}
	}

	jsonBytes, err := json.MarshalIndent(parsed, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal parsed designations: %w", err)
	}

	if parseOutput == "" {
		_, _ = fmt.Fprintln(os.Stdout, string(jsonBytes))
	} else {
		if err := os.WriteFile(parseOutput, jsonBytes, 0644); err != nil {
			return fmt.Errorf("failed to write output file %s: %w", parseOutput, err)
		}
		_, _ = fmt.Fprintf(os.Stdout, "Output: %s\n", parseOutput)
	}

	_, _ = fmt.Fprintf(os.Stdout, "Decoded %d of %d designations\n", decoded, len(contexts))

	return nil
}
