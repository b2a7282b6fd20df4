// Package glossary defines the designation grammars used to decode material
// codes into typed attributes. A Grammar is a declarative, ordered rule table
// keyed by category; the designation parser walks these tables without any
// grammar-specific control flow, so new designation standards plug in as new
// Grammar values.
package glossary

import (
	"strings"

	"github.com/jonathan/epd-matcher/internal/types"
)

// TypeRule describes one mixture type category (e.g. asphalt concrete).
type TypeRule struct {
	// Code is the designation token, e.g. "AC".
	Code string
	// Name is the German trade name used in prompts and summaries.
	Name string
	// Norm is the governing product standard.
	Norm string
	// SearchTerms are the catalog keywords compatible with this type. A
	// token equal to any of them also decodes to this type.
	SearchTerms []string
	// Aliases are lowercase substrings recognized in free text, including
	// common misspellings.
	Aliases []string
	// ImpliedLayer is set for types that are surface mixtures by
	// definition, so a missing layer token still resolves.
	ImpliedLayer types.LayerRole
}

// LayerRule describes one pavement layer category.
type LayerRule struct {
	// Code is the designation token, e.g. "B".
	Code string
	// Name is the full German layer name.
	Name string
	// Role is the typed value the parser emits.
	Role types.LayerRole
	// RequiredTerm must appear in an EPD name for the record to count as
	// layer-compatible.
	RequiredTerm string
	// SearchTerms are the catalog keywords for this layer.
	SearchTerms []string
	// NameVariants are lowercase substrings that identify the layer in
	// free text fields.
	NameVariants []string
}

// StressRule describes one traffic load class.
type StressRule struct {
	// Code is the designation token, e.g. "S".
	Code string
	// Name is the German description.
	Name string
	// Applications lists typical uses, for prompt context.
	Applications []string
}

// ForcedExclusionRule names a record category that is a known false positive
// for materials of this grammar and must be excluded regardless of score.
type ForcedExclusionRule struct {
	// ID is recorded as the reason code when the rule fires.
	ID string
	// Terms are lowercase substrings matched against record name and
	// classification.
	Terms []string
	// Description explains the conflict.
	Description string
}

// Grammar is the complete rule set for one designation standard. Rule order
// within each table is matching order: specific rules come before generic
// ones so catch-all aliases cannot shadow them.
type Grammar struct {
	// Name identifies the grammar, e.g. "asphalt".
	Name string
	// Delimiters are the characters the tokenizer splits on, in addition
	// to whitespace.
	Delimiters string
	// Types, Layers and StressClasses are the per-category rule tables.
	Types         []TypeRule
	Layers        []LayerRule
	StressClasses []StressRule
	// KnownDesignations lists the standardized full codes of this grammar.
	KnownDesignations []string
	// PmBKeywords are uppercase markers for polymer-modified binders.
	PmBKeywords []string
	// ExclusionTerms are record keywords incompatible with this material
	// family (used for score caps and the term+threshold exclusion).
	ExclusionTerms []string
	// GenericTerms are lowercase substrings that identify the material
	// family without naming a type.
	GenericTerms []string
	// ForcedExclusions are the unconditional false-positive rules.
	ForcedExclusions []ForcedExclusionRule
}

// TypeByToken resolves a single token to a type rule by case-insensitive
// equality against the rule code or any search term.
func (g Grammar) TypeByToken(token string) (TypeRule, bool) {
	for _, rule := range g.Types {
		if strings.EqualFold(token, rule.Code) {
			return rule, true
		}
		for _, term := range rule.SearchTerms {
			if strings.EqualFold(token, term) {
				return rule, true
			}
		}
	}
	return TypeRule{}, false
}

// TypeByCode resolves an exact type code.
func (g Grammar) TypeByCode(code string) (TypeRule, bool) {
	for _, rule := range g.Types {
		if strings.EqualFold(code, rule.Code) {
			return rule, true
		}
	}
	return TypeRule{}, false
}

// TypeByAlias scans free text for type aliases. First rule in table order
// wins, which is why specific mixtures precede the generic asphalt rule.
func (g Grammar) TypeByAlias(text string) (TypeRule, bool) {
	lower := strings.ToLower(text)
	for _, rule := range g.Types {
		for _, alias := range rule.Aliases {
			if strings.Contains(lower, alias) {
				return rule, true
			}
		}
	}
	return TypeRule{}, false
}

// LayerByToken resolves a single token to a layer rule by code equality.
func (g Grammar) LayerByToken(token string) (LayerRule, bool) {
	for _, rule := range g.Layers {
		if strings.EqualFold(token, rule.Code) {
			return rule, true
		}
	}
	return LayerRule{}, false
}

// LayerByRole resolves a layer rule from its typed role.
func (g Grammar) LayerByRole(role types.LayerRole) (LayerRule, bool) {
	for _, rule := range g.Layers {
		if rule.Role == role {
			return rule, true
		}
	}
	return LayerRule{}, false
}

// LayerFromText recovers a layer from a free text field such as an element
// name. Table order decides ambiguity: "Tragdeckschicht" must resolve to the
// combined layer, not to "Trag".
func (g Grammar) LayerFromText(text string) (LayerRule, bool) {
	lower := strings.ToLower(text)
	for _, rule := range g.Layers {
		for _, variant := range rule.NameVariants {
			if strings.Contains(lower, variant) {
				return rule, true
			}
		}
	}
	return LayerRule{}, false
}

// StressByToken resolves a single token to a load class.
func (g Grammar) StressByToken(token string) (StressRule, bool) {
	for _, rule := range g.StressClasses {
		if strings.EqualFold(token, rule.Code) {
			return rule, true
		}
	}
	return StressRule{}, false
}

// IsPmB reports whether the text signals a polymer-modified binder.
func (g Grammar) IsPmB(text string) bool {
	upper := strings.ToUpper(text)
	for _, kw := range g.PmBKeywords {
		if strings.Contains(upper, kw) {
			return true
		}
	}
	return false
}

// IsGeneric reports whether the text mentions the material family without a
// decodable type.
func (g Grammar) IsGeneric(text string) bool {
	lower := strings.ToLower(text)
	for _, term := range g.GenericTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// ExclusionTerm returns the first exclusion term found in the text.
func (g Grammar) ExclusionTerm(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, term := range g.ExclusionTerms {
		if strings.Contains(lower, strings.ToLower(term)) {
			return term, true
		}
	}
	return "", false
}

// ForcedExclusion returns the first forced-exclusion rule whose terms match
// the text.
func (g Grammar) ForcedExclusion(text string) (ForcedExclusionRule, bool) {
	lower := strings.ToLower(text)
	for _, rule := range g.ForcedExclusions {
		for _, term := range rule.Terms {
			if strings.Contains(lower, term) {
				return rule, true
			}
		}
	}
	return ForcedExclusionRule{}, false
}

// IsKnownDesignation reports whether the canonical code is one of the
// standardized designations of this grammar.
func (g Grammar) IsKnownDesignation(canonical string) bool {
	for _, d := range g.KnownDesignations {
		if strings.EqualFold(canonical, d) {
			return true
		}
	}
	return false
}

// DefaultType returns the grammar's fallback type for generic family
// mentions, by convention the last (most generic) entry in the type table.
func (g Grammar) DefaultType() (TypeRule, bool) {
	if len(g.Types) == 0 {
		return TypeRule{}, false
	}
	return g.Types[len(g.Types)-1], true
}
