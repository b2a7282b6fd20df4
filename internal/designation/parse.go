// Package designation decodes structured material codes such as "AC 16 B S"
// into typed attributes by walking the ordered rule tables of a
// glossary.Grammar. Parsing never fails: tokens no rule matches accumulate
// into the unparsed remainder and the best-effort partial result is returned.
package designation

import (
	"strconv"
	"strings"

	"github.com/jonathan/epd-matcher/internal/glossary"
	"github.com/jonathan/epd-matcher/internal/types"
)

// Trace categories emitted per matched token.
const (
	CategoryType      = "type"
	CategorySize      = "size"
	CategoryLayer     = "layer"
	CategoryStress    = "stress"
	CategoryCompound  = "layer+stress"
	CategoryDuplicate = "duplicate"
	CategoryImplied   = "implied_layer"
	CategoryTypeAlias = "type_alias"
	CategoryCodeText  = "code_from_text"
	CategoryLayerText = "layer_from_text"
	CategoryGeneric   = "generic_default"
	CategoryBinder    = "binder"
	CategoryUnmatched = "unmatched"
)

// TraceStep records one tokenizer decision for debug diagnostics.
type TraceStep struct {
	Token    string `json:"token"`
	Category string `json:"category"`
	RuleID   string `json:"rule_id,omitempty"`
}

// Trace is the ordered decision record of one parse. It exists purely for
// diagnostics and never influences the returned ParsedDesignation.
type Trace struct {
	Code  string      `json:"code"`
	Steps []TraceStep `json:"steps,omitempty"`
}

func (t *Trace) add(token, category, ruleID string) {
	t.Steps = append(t.Steps, TraceStep{Token: token, Category: category, RuleID: ruleID})
}

// Parse decodes a designation code against the grammar. Same code and same
// grammar always yield an identical result.
func Parse(code string, g glossary.Grammar) types.ParsedDesignation {
	parsed, _ := ParseWithTrace(code, g)
	return parsed
}

// ParseWithTrace decodes a designation code and additionally returns the
// per-token decision trace.
func ParseWithTrace(code string, g glossary.Grammar) (types.ParsedDesignation, Trace) {
	trace := Trace{Code: code}
	parsed := types.ParsedDesignation{}

	tokens := Tokenize(code, g)
	parsed.RawTokens = tokens

	var remainder []string
	for _, token := range tokens {
		if matchToken(token, g, &parsed, &trace) {
			continue
		}
		remainder = append(remainder, token)
		trace.add(token, CategoryUnmatched, "")
	}
	parsed.UnparsedRemainder = strings.Join(remainder, " ")

	applyImpliedLayer(g, &parsed, &trace)

	if g.IsPmB(code) {
		parsed.Binder = "PmB"
		trace.add("", CategoryBinder, "PmB")
	}

	return parsed, trace
}

// matchToken tries the grammar categories in order: type, size, layer,
// stress, then compound layer+stress tokens. The first open category whose
// rule matches consumes the token; a token restating an already decoded rule
// is consumed silently.
func matchToken(token string, g glossary.Grammar, parsed *types.ParsedDesignation, trace *Trace) bool {
	if rule, ok := g.TypeByToken(token); ok {
		if parsed.MaterialType == "" {
			parsed.MaterialType = rule.Code
			trace.add(token, CategoryType, rule.Code)
			return true
		}
		if parsed.MaterialType == rule.Code {
			trace.add(token, CategoryDuplicate, rule.Code)
			return true
		}
		return false
	}

	if size, ok := parseSize(token); ok {
		if parsed.NominalSize == 0 {
			parsed.NominalSize = size
			trace.add(token, CategorySize, token)
			return true
		}
		return false
	}

	if rule, ok := g.LayerByToken(token); ok {
		if parsed.LayerRole == "" {
			parsed.LayerRole = rule.Role
			trace.add(token, CategoryLayer, rule.Code)
			return true
		}
		if parsed.LayerRole == rule.Role {
			trace.add(token, CategoryDuplicate, rule.Code)
			return true
		}
		return false
	}

	if rule, ok := g.StressByToken(token); ok {
		if parsed.StressClass == "" {
			parsed.StressClass = rule.Code
			trace.add(token, CategoryStress, rule.Code)
			return true
		}
		if parsed.StressClass == rule.Code {
			trace.add(token, CategoryDuplicate, rule.Code)
			return true
		}
		return false
	}

	return matchCompound(token, g, parsed, trace)
}

// matchCompound resolves fused layer+stress tokens ("BS", "TDN") that appear
// when codes are written without spaces. Layer rules are tried in table
// order, longest code first.
func matchCompound(token string, g glossary.Grammar, parsed *types.ParsedDesignation, trace *Trace) bool {
	if parsed.LayerRole != "" || parsed.StressClass != "" {
		return false
	}
	upper := strings.ToUpper(token)
	for _, layer := range g.Layers {
		rest, found := strings.CutPrefix(upper, layer.Code)
		if !found || rest == "" {
			continue
		}
		stress, ok := g.StressByToken(rest)
		if !ok {
			continue
		}
		parsed.LayerRole = layer.Role
		parsed.StressClass = stress.Code
		trace.add(token, CategoryCompound, layer.Code+"+"+stress.Code)
		return true
	}
	return false
}

func parseSize(token string) (int, bool) {
	size, err := strconv.Atoi(token)
	if err != nil || size <= 0 {
		return 0, false
	}
	return size, true
}

// applyImpliedLayer fills the layer for types that are surface mixtures by
// definition (SMA, MA, PA carry no layer token).
func applyImpliedLayer(g glossary.Grammar, parsed *types.ParsedDesignation, trace *Trace) {
	if parsed.MaterialType == "" || parsed.LayerRole != "" {
		return
	}
	rule, ok := g.TypeByCode(parsed.MaterialType)
	if !ok || rule.ImpliedLayer == "" {
		return
	}
	parsed.LayerRole = rule.ImpliedLayer
	trace.add("", CategoryImplied, rule.Code)
}

// ParseContext decodes a material context with the full fallback chain: the
// raw name is parsed first, a full code decode of the joined free text
// follows when the raw name carried no type (the designation usually sits in
// the other input field), then type aliases, layer names and the generic
// family default. The trace covers every applied fallback.
func ParseContext(mc types.MaterialContext, g glossary.Grammar) (types.ParsedDesignation, Trace) {
	parsed, trace := ParseWithTrace(mc.RawName, g)

	if parsed.MaterialType == "" && mc.FreeText != "" && mc.FreeText != mc.RawName {
		if fallback, _ := ParseWithTrace(mc.FreeText, g); fallback.MaterialType != "" {
			parsed.MaterialType = fallback.MaterialType
			trace.add(shorten(mc.FreeText), CategoryCodeText, fallback.MaterialType)
			if parsed.NominalSize == 0 {
				parsed.NominalSize = fallback.NominalSize
			}
			if parsed.LayerRole == "" {
				parsed.LayerRole = fallback.LayerRole
			}
			if parsed.StressClass == "" {
				parsed.StressClass = fallback.StressClass
			}
		}
	}

	if parsed.MaterialType == "" {
		for _, text := range []string{mc.RawName, mc.FreeText} {
			if text == "" {
				continue
			}
			if rule, ok := g.TypeByAlias(text); ok {
				parsed.MaterialType = rule.Code
				trace.add(shorten(text), CategoryTypeAlias, rule.Code)
				break
			}
		}
	}

	if parsed.LayerRole == "" {
		for _, text := range []string{mc.RawName, mc.FreeText} {
			if text == "" {
				continue
			}
			if rule, ok := g.LayerFromText(text); ok {
				parsed.LayerRole = rule.Role
				trace.add(shorten(text), CategoryLayerText, rule.Code)
				break
			}
		}
	}

	applyImpliedLayer(g, &parsed, &trace)

	if parsed.MaterialType == "" && (g.IsGeneric(mc.RawName) || g.IsGeneric(mc.FreeText)) {
		if rule, ok := g.DefaultType(); ok {
			parsed.MaterialType = rule.Code
			trace.add("", CategoryGeneric, rule.Code)
		}
	}

	if parsed.Binder == "" && (g.IsPmB(mc.RawName) || g.IsPmB(mc.FreeText)) {
		parsed.Binder = "PmB"
		trace.add("", CategoryBinder, "PmB")
	}

	return parsed, trace
}

func shorten(text string) string {
	if len(text) <= 40 {
		return text
	}
	return text[:37] + "..."
}
