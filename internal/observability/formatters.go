// Package observability provides formatted output utilities for verbose CLI
// mode and the shared structured logger.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/epd-matcher/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintMaterialContext outputs a human-readable summary of one extracted
// material together with its parsed designation.
func (p *Printer) PrintMaterialContext(ctx *types.MaterialContext, parsed *types.ParsedDesignation) {
	if ctx == nil {
		return
	}

	var sb strings.Builder

	name := ctx.RawName
	if len(name) > 45 {
		name = name[:42] + "..."
	}
	sb.WriteString(fmt.Sprintf("Material: %s\n", name))
	if ctx.PreferredField != nil {
		sb.WriteString(fmt.Sprintf("Source:   %s field\n", *ctx.PreferredField))
	}
	if ctx.HasVolume() {
		sb.WriteString(fmt.Sprintf("Volume:   %.2f m³\n", *ctx.Volume))
	}
	if len(ctx.SourceIDs) > 0 {
		sb.WriteString(fmt.Sprintf("Elements: %d GUIDs\n", len(ctx.SourceIDs)))
	}

	if parsed != nil && parsed.Matched() {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("Decoded:  %s\n", parsed.Canonical()))
		if parsed.LayerRole != "" {
			sb.WriteString(fmt.Sprintf("Layer:    %s\n", parsed.LayerRole))
		}
		if parsed.Binder != "" {
			sb.WriteString(fmt.Sprintf("Binder:   %s\n", parsed.Binder))
		}
		if parsed.Partial() {
			remainder := parsed.UnparsedRemainder
			if len(remainder) > 40 {
				remainder = remainder[:37] + "..."
			}
			sb.WriteString(fmt.Sprintf("Unparsed: %s\n", remainder))
		}
	} else if parsed != nil {
		sb.WriteString("\nDecoded:  no designation recognized\n")
	}

	p.printBox("MATERIAL CONTEXT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintCandidateStats outputs how the filter reduced the catalog for one
// material.
func (p *Printer) PrintCandidateStats(set *types.CandidateSet) {
	if set == nil {
		return
	}

	var sb strings.Builder
	stats := set.Stats

	sb.WriteString(fmt.Sprintf("Catalog:   %d EPDs\n", stats.CatalogTotal))
	sb.WriteString(fmt.Sprintf("Retained:  %d (%.1f%% reduction)\n", stats.Returned, stats.ReductionPercent))
	sb.WriteString(fmt.Sprintf("Primary:   %d (type + layer)\n", stats.Primary))
	sb.WriteString(fmt.Sprintf("Secondary: %d (type only)\n", stats.Secondary))
	if set.FailOpen {
		sb.WriteString("\nStrict filter matched nothing; full catalog passed on")
	}

	p.printBox("CANDIDATE FILTER", sb.String())
}

// PrintMatchReport outputs the validated matches for one material with
// confidence scores and exclusion markers.
func (p *Printer) PrintMatchReport(report *types.MaterialMatchReport) {
	if report == nil {
		return
	}

	if report.Failed() {
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("Material: %s\n", report.MaterialName))
		sb.WriteString(fmt.Sprintf("Stage:    %s\n", report.Err.Stage))
		message := report.Err.Message
		if len(message) > 45 {
			message = message[:42] + "..."
		}
		sb.WriteString(fmt.Sprintf("Error:    %s", message))
		p.printBox("MATCHING FAILED", sb.String())
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Material: %s\n", report.MaterialName))
	sb.WriteString(fmt.Sprintf("Accepted: %d, excluded: %d\n\n", len(report.Results), len(report.Excluded)))

	count := min(len(report.Results), maxItemsToShow)
	for i := 0; i < count; i++ {
		result := report.Results[i]
		name := result.EpdName
		if len(name) > 40 {
			name = name[:37] + "..."
		}
		sb.WriteString(fmt.Sprintf("#%d  %s\n", i+1, name))
		sb.WriteString(fmt.Sprintf("    Confidence: %d%%", result.CorrectedConfidence))
		if result.CorrectedConfidence != result.RawConfidence {
			sb.WriteString(fmt.Sprintf(" (raw: %d%%)", result.RawConfidence))
		}
		sb.WriteString("\n")
		if len(result.ReasonCodes) > 0 {
			reasons := strings.Join(result.ReasonCodes, ", ")
			if len(reasons) > 40 {
				reasons = reasons[:37] + "..."
			}
			sb.WriteString(fmt.Sprintf("    [%s]\n", reasons))
		}
		if i < count-1 {
			sb.WriteString("\n")
		}
	}

	if len(report.Results) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more matches", len(report.Results)-maxItemsToShow))
	}
	if len(report.Results) == 0 {
		sb.WriteString("All candidates excluded")
	}

	p.printBox("MATCH REPORT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintExclusions outputs the excluded results with their reasons.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintExclusions(report *types.MaterialMatchReport) {
	if report == nil || len(report.Excluded) == 0 {
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, "✅ NO EXCLUSIONS")
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Excluded %d candidates:\n\n", len(report.Excluded)))

	count := min(len(report.Excluded), maxItemsToShow)
	for i := 0; i < count; i++ {
		result := report.Excluded[i]
		name := result.EpdName
		if name == "" {
			name = result.EpdID
		}
		if len(name) > 45 {
			name = name[:42] + "..."
		}
		sb.WriteString(fmt.Sprintf("⚠ %s\n", name))
		sb.WriteString(fmt.Sprintf("  %s (%d%%)\n", strings.Join(result.ReasonCodes, ", "), result.CorrectedConfidence))
		if i < count-1 {
			sb.WriteString("\n")
		}
	}

	if len(report.Excluded) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more", len(report.Excluded)-maxItemsToShow))
	}

	p.printBox("EXCLUDED CANDIDATES", strings.TrimSuffix(sb.String(), "\n"))
}
