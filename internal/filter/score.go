// Package filter reduces the EPD catalog to a bounded candidate set per
// material, using the parsed designation attributes (glossary strategy) or a
// static keyword list (legacy label strategy).
package filter

import (
	"strings"

	"github.com/jonathan/epd-matcher/internal/glossary"
	"github.com/jonathan/epd-matcher/internal/types"
)

// Weights for relevance components. The layer weight exceeds the sum of the
// others so layer-compatible records always rank ahead of type-only matches.
const (
	layerTermWeight   = 0.6
	typeTermWeight    = 0.25
	binderTermWeight  = 0.1
	genericTermWeight = 0.05
)

// binderTerms identify polymer-modified products in catalog text.
var binderTerms = []string{"polymermodifiziert", "pmb", "elastomer", "modifiziert"}

// relevanceScore rates how well a catalog record matches the parsed
// attributes. Returns a score in [0, 1]; layer compatibility dominates.
func relevanceScore(searchText string, parsed types.ParsedDesignation, g glossary.Grammar) float64 {
	lower := strings.ToLower(searchText)
	score := 0.0

	if layerTermMatches(lower, parsed, g) {
		score += layerTermWeight
	}
	if typeTermMatches(lower, parsed, g) {
		score += typeTermWeight
	}
	if parsed.Binder != "" && containsAny(lower, binderTerms) {
		score += binderTermWeight
	}
	if g.IsGeneric(lower) {
		score += genericTermWeight
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

// layerTermMatches checks the parsed layer's required catalog term.
func layerTermMatches(lowerText string, parsed types.ParsedDesignation, g glossary.Grammar) bool {
	if parsed.LayerRole == "" {
		return false
	}
	rule, ok := g.LayerByRole(parsed.LayerRole)
	if !ok || rule.RequiredTerm == "" {
		return false
	}
	return strings.Contains(lowerText, strings.ToLower(rule.RequiredTerm))
}

// typeTermMatches checks the parsed type's catalog search terms.
func typeTermMatches(lowerText string, parsed types.ParsedDesignation, g glossary.Grammar) bool {
	if parsed.MaterialType == "" {
		return false
	}
	rule, ok := g.TypeByCode(parsed.MaterialType)
	if !ok {
		return false
	}
	for _, term := range rule.SearchTerms {
		if strings.Contains(lowerText, strings.ToLower(term)) {
			return true
		}
	}
	return false
}

func containsAny(lowerText string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(lowerText, term) {
			return true
		}
	}
	return false
}

// labelHits counts how many configured labels appear in the record text.
func labelHits(searchText string, labels []string) int {
	lower := strings.ToLower(searchText)
	hits := 0
	for _, label := range labels {
		if label = strings.ToLower(strings.TrimSpace(label)); label == "" {
			continue
		}
		if strings.Contains(lower, label) {
			hits++
		}
	}
	return hits
}
