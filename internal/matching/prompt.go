package matching

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jonathan/epd-matcher/internal/config"
	"github.com/jonathan/epd-matcher/internal/glossary"
	"github.com/jonathan/epd-matcher/internal/prompts"
	"github.com/jonathan/epd-matcher/internal/types"
)

// Prompt field limits in runes. Catalog fields carry umlauts, so byte
// slicing would split characters.
const (
	maxNameChars   = 200
	maxClassChars  = 100
	maxDetailChars = 200
)

// promptExclusionTerms caps how many grammar exclusion terms the task
// section lists.
const promptExclusionTerms = 8

// BuildBatchPrompt renders the shared prompt for one batch: every layer with
// its parsed attribute summary, the combined candidate list, and the task
// section with the confidence rubric and the expected response shape.
func BuildBatchPrompt(batch []MaterialCandidates, combined []types.EpdRecord, g glossary.Grammar, cfg config.Config) string {
	return joinSections(
		buildBatchHeader(batch, g),
		buildEpdList(combined, cfg),
		buildBatchTask(batch, g, cfg),
	)
}

// BuildSinglePrompt renders the prompt for one material.
func BuildSinglePrompt(mat MaterialCandidates, records []types.EpdRecord, g glossary.Grammar, cfg config.Config) string {
	return joinSections(
		buildSingleHeader(mat, g),
		buildContextSection(mat.Context),
		buildEpdList(records, cfg),
		buildSingleTask(mat, g, cfg),
	)
}

func joinSections(sections ...string) string {
	kept := make([]string, 0, len(sections))
	for _, s := range sections {
		if s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, "\n")
}

func buildBatchHeader(batch []MaterialCandidates, g glossary.Grammar) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "EPD-Matching für %d Bauschichten\n\n", len(batch))

	for i, mat := range batch {
		name := displayMaterial(mat.Context)
		if mat.Context.LayerName != "" {
			fmt.Fprintf(&sb, "SCHICHT %d: %s\n", i+1, mat.Context.LayerName)
			fmt.Fprintf(&sb, "  Material: %s\n", name)
		} else {
			fmt.Fprintf(&sb, "SCHICHT %d: \"%s\"\n", i+1, name)
		}
		fmt.Fprintf(&sb, "  → %s\n\n", attributeSummary(mat.Context, mat.Parsed, g))
	}
	return sb.String()
}

func buildSingleHeader(mat MaterialCandidates, g glossary.Grammar) string {
	var sb strings.Builder
	sb.WriteString("EPD-Matching\n\n")
	if mat.Context.LayerName != "" {
		fmt.Fprintf(&sb, "Schicht: %s\n", mat.Context.LayerName)
	}
	fmt.Fprintf(&sb, "Material: \"%s\"\n", displayMaterial(mat.Context))
	fmt.Fprintf(&sb, "→ %s\n", attributeSummary(mat.Context, mat.Parsed, g))
	return sb.String()
}

// buildContextSection lists volume and element count when the input carried
// them; empty otherwise so the section joiner drops it.
func buildContextSection(mctx types.MaterialContext) string {
	var lines []string
	if mctx.HasVolume() {
		lines = append(lines, fmt.Sprintf("- Volumen: %s m³", strconv.FormatFloat(*mctx.Volume, 'f', -1, 64)))
	}
	if len(mctx.SourceIDs) > 0 {
		lines = append(lines, fmt.Sprintf("- IFC GUIDs: %d Elemente", len(mctx.SourceIDs)))
	}
	if len(lines) == 0 {
		return ""
	}
	return "\nKontext:\n" + strings.Join(lines, "\n")
}

// buildEpdList renders the candidate list. Detail mode includes the
// configured matching columns per record; compact mode is one line per
// record.
func buildEpdList(records []types.EpdRecord, cfg config.Config) string {
	banner := strings.Repeat("=", 60)
	var sb strings.Builder
	fmt.Fprintf(&sb, "\n%s\nVERFÜGBARE EPDs (%d)\n%s\n", banner, len(records), banner)

	if cfg.UseDetailMatching {
		for i, r := range records {
			writeDetailEntry(&sb, i+1, r, cfg.MatchingColumns)
		}
	} else {
		for i, r := range records {
			fmt.Fprintf(&sb, "%d. ID: %s | %s\n", i+1, r.ID, displayName(r))
		}
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

func writeDetailEntry(sb *strings.Builder, n int, r types.EpdRecord, columns []string) {
	fmt.Fprintf(sb, "\n%d. ID: %s\n", n, r.ID)
	fmt.Fprintf(sb, "   Name: %s\n", clip(displayName(r), maxNameChars))

	for _, column := range columns {
		if column == "name" {
			continue
		}
		value := r.FieldByColumn(column)
		if value == "" {
			continue
		}
		limit := maxDetailChars
		if column == "klassifizierung" || column == "classification" {
			limit = maxClassChars
		}
		fmt.Fprintf(sb, "   %s: %s\n", columnLabel(column), clip(value, limit))
	}
}

func buildBatchTask(batch []MaterialCandidates, g glossary.Grammar, cfg config.Config) string {
	lines := make([]string, 0, len(batch))
	for i, mat := range batch {
		line := fmt.Sprintf("  %d. \"%s\" (Schicht: %s)", i+1, displayMaterial(mat.Context), displayLayer(mat.Context))
		if term := requiredTerm(mat.Parsed, g); term != "" {
			line += fmt.Sprintf(" → bevorzuge EPDs mit \"%s\"", term)
		}
		lines = append(lines, line)
	}

	template := prompts.MustGet("batch-task")
	return prompts.Format(template, map[string]string{
		"MaxResults":     strconv.Itoa(cfg.MaxResults),
		"LayerCount":     strconv.Itoa(len(batch)),
		"MaterialList":   strings.Join(lines, "\n"),
		"ExclusionTerms": exclusionList(g),
	})
}

func buildSingleTask(mat MaterialCandidates, g glossary.Grammar, cfg config.Config) string {
	hint := ""
	if term := requiredTerm(mat.Parsed, g); term != "" {
		hint = prompts.Format(prompts.MustGet("single-hint"), map[string]string{
			"RequiredTerm": term,
		})
	}

	template := prompts.MustGet("single-task")
	return prompts.Format(template, map[string]string{
		"MaxResults":     strconv.Itoa(cfg.MaxResults),
		"MaterialName":   displayMaterial(mat.Context),
		"Hint":           hint,
		"ExclusionTerms": exclusionList(g),
	})
}

// attributeSummary renders the parsed designation for the prompt, e.g.
// "AC=Asphaltbeton, B=Asphaltbinder, EPD muss 'Binder' enthalten".
// Materials the grammar did not recognize are labelled as such so the
// matcher does not overreach.
func attributeSummary(mctx types.MaterialContext, parsed types.ParsedDesignation, g glossary.Grammar) string {
	if !parsed.Matched() {
		return fmt.Sprintf("Material: %s (kein Asphalt erkannt)", displayMaterial(mctx))
	}

	var parts []string
	if rule, ok := g.TypeByCode(parsed.MaterialType); ok {
		parts = append(parts, rule.Code+"="+rule.Name)
	}
	if parsed.LayerRole != "" {
		if rule, ok := g.LayerByRole(parsed.LayerRole); ok {
			parts = append(parts, rule.Code+"="+rule.Name)
			if rule.RequiredTerm != "" {
				parts = append(parts, fmt.Sprintf("EPD muss '%s' enthalten", rule.RequiredTerm))
			}
		}
	}
	if parsed.StressClass != "" {
		if rule, ok := g.StressByToken(parsed.StressClass); ok {
			parts = append(parts, rule.Code+"="+rule.Name)
		}
	}
	if parsed.Binder != "" {
		parts = append(parts, "PmB vorhanden")
	}
	if g.IsKnownDesignation(parsed.Canonical()) {
		parts = append(parts, "[Normierte Bezeichnung erkannt]")
	}

	if len(parts) == 0 {
		return "Material: " + displayMaterial(mctx)
	}
	return strings.Join(parts, ", ")
}

// displayMaterial names the material in prompts: the raw MATERIAL field when
// present, the parse text otherwise.
func displayMaterial(mctx types.MaterialContext) string {
	if mctx.MaterialName != "" {
		return mctx.MaterialName
	}
	if mctx.RawName != "" {
		return mctx.RawName
	}
	return "Unbekannt"
}

func displayLayer(mctx types.MaterialContext) string {
	if mctx.LayerName != "" {
		return mctx.LayerName
	}
	return "Unbekannt"
}

func displayName(r types.EpdRecord) string {
	if r.Name == "" {
		return "N/A"
	}
	return r.Name
}

// requiredTerm is the layer keyword an EPD name should carry for this
// material, when the designation decoded a layer.
func requiredTerm(parsed types.ParsedDesignation, g glossary.Grammar) string {
	if parsed.LayerRole == "" {
		return ""
	}
	rule, ok := g.LayerByRole(parsed.LayerRole)
	if !ok {
		return ""
	}
	return rule.RequiredTerm
}

// exclusionList joins the leading grammar exclusion terms for the task
// warning.
func exclusionList(g glossary.Grammar) string {
	terms := g.ExclusionTerms
	if len(terms) > promptExclusionTerms {
		terms = terms[:promptExclusionTerms]
	}
	return strings.Join(terms, ", ")
}

// columnLabel maps wire column names onto the German prompt labels.
func columnLabel(column string) string {
	switch column {
	case "klassifizierung", "classification":
		return "Klassifizierung"
	case "technischeBeschreibung", "technical_description":
		return "Beschreibung"
	case "anmerkungen", "remarks":
		return "Anmerkungen"
	case "anwendungsgebiet", "application_area":
		return "Anwendungsgebiet"
	case "anwendungshinweis", "application_note":
		return "Anwendungshinweis"
	case "gliederungsnummer", "outline_number":
		return "Gliederungsnummer"
	}
	return column
}

// clip truncates to max runes, marking the cut.
func clip(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
