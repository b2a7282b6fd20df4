// Package material normalizes raw bill of quantities line items into the
// MaterialContext records the rest of the pipeline consumes. Extraction is
// pure: one context per line item, immutable after creation.
package material

import (
	"fmt"
	"strings"

	"github.com/jonathan/epd-matcher/internal/config"
	"github.com/jonathan/epd-matcher/internal/types"
)

// Source field names recorded in MaterialContext.PreferredField.
const (
	fieldName     = "NAME"
	fieldMaterial = "MATERIAL"
)

// Extract builds the context for one line item. index is the zero-based
// input position and doubles as the fallback identity when the item carries
// no GUIDs.
func Extract(item types.RawLineItem, index int, cfg config.Config) types.MaterialContext {
	materialText := strings.TrimSpace(item.Material)
	nameText := strings.TrimSpace(item.Name)

	ctx := types.MaterialContext{
		Index:        index,
		ID:           identityFor(item, index),
		MaterialName: materialText,
		LayerName:    nameText,
		FreeText:     joinDistinct(materialText, nameText),
	}

	switch {
	case cfg.PreferNameField && nameText != "":
		ctx.RawName = nameText
		ctx.PreferredField = ptr(fieldName)
	case materialText != "":
		ctx.RawName = materialText
		ctx.PreferredField = ptr(fieldMaterial)
	case nameText != "":
		// NAME is the only populated field, use it even without the preference.
		ctx.RawName = nameText
		ctx.PreferredField = ptr(fieldName)
	}

	if cfg.ExtractVolume && item.Volume != nil && float64(*item.Volume) > 0 {
		v := float64(*item.Volume)
		ctx.Volume = &v
	}

	if len(item.GUIDs) > 0 {
		ctx.SourceIDs = append([]string(nil), item.GUIDs...)
	}

	return ctx
}

// ExtractAll builds contexts for a whole input, preserving input order.
func ExtractAll(items []types.RawLineItem, cfg config.Config) []types.MaterialContext {
	contexts := make([]types.MaterialContext, 0, len(items))
	for i, item := range items {
		contexts = append(contexts, Extract(item, i, cfg))
	}
	return contexts
}

// identityFor prefers the first element GUID; otherwise a stable synthetic
// id derived from the input position.
func identityFor(item types.RawLineItem, index int) string {
	for _, guid := range item.GUIDs {
		if g := strings.TrimSpace(guid); g != "" {
			return g
		}
	}
	return fmt.Sprintf("material-%03d", index+1)
}

// joinDistinct concatenates the descriptive fields, skipping blanks and
// exact duplicates so the fallback text does not repeat itself.
func joinDistinct(parts ...string) string {
	var out []string
	for _, p := range parts {
		if p == "" {
			continue
		}
		dup := false
		for _, seen := range out {
			if strings.EqualFold(seen, p) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

func ptr(s string) *string { return &s }
