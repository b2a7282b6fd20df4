// Package types provides type definitions for structured data used throughout the epd-matcher system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"strconv"
	"strings"
)

// LayerRole identifies the pavement layer a mixture is designated for.
type LayerRole string

// Layer roles decoded from designation codes (T, B, D, TD).
const (
	LayerBase        LayerRole = "Base"
	LayerBinder      LayerRole = "Binder"
	LayerSurface     LayerRole = "Surface"
	LayerBaseSurface LayerRole = "BaseSurface"
)

// ParsedDesignation is the typed result of decoding a material designation
// code such as "AC 16 B S". Produced by the designation parser; never mutated
// afterwards. A non-empty UnparsedRemainder signals a partial match.
type ParsedDesignation struct {
	// MaterialType is the mixture type code ("AC", "SMA", "MA", "PA");
	// empty when nothing in the input matched the grammar.
	MaterialType string `json:"material_type,omitempty"`
	// NominalSize is the maximum aggregate size in mm (AC 16 -> 16); 0 when absent.
	NominalSize int `json:"nominal_size,omitempty"`
	// LayerRole is empty when the code carries no layer token and none could
	// be recovered from surrounding text.
	LayerRole LayerRole `json:"layer_role,omitempty"`
	// StressClass is the traffic load class ("S", "N", "L"); empty when absent.
	StressClass string `json:"stress_class,omitempty"`
	// Binder is set to the detected binder marker ("PmB") for
	// polymer-modified mixtures; empty otherwise.
	Binder string `json:"binder,omitempty"`
	// RawTokens is the ordered token sequence the parser consumed.
	RawTokens []string `json:"raw_tokens,omitempty"`
	// UnparsedRemainder joins the tokens no grammar rule matched.
	UnparsedRemainder string `json:"unparsed_remainder,omitempty"`
}

// Matched reports whether any material type was decoded.
func (p ParsedDesignation) Matched() bool {
	return p.MaterialType != ""
}

// Partial reports whether some tokens stayed unmatched.
func (p ParsedDesignation) Partial() bool {
	return p.UnparsedRemainder != ""
}

// Canonical reassembles the decoded attributes into the standard designation
// form, e.g. "AC 16 B S". Returns "" when no type was decoded.
func (p ParsedDesignation) Canonical() string {
	if p.MaterialType == "" {
		return ""
	}
	parts := []string{p.MaterialType}
	if p.NominalSize > 0 {
		parts = append(parts, strconv.Itoa(p.NominalSize))
	}
	if p.LayerRole != "" {
		if code := layerCode(p.LayerRole); code != "" {
			parts = append(parts, code)
		}
	}
	if p.StressClass != "" {
		parts = append(parts, p.StressClass)
	}
	return strings.Join(parts, " ")
}

func layerCode(r LayerRole) string {
	switch r {
	case LayerBase:
		return "T"
	case LayerBinder:
		return "B"
	case LayerSurface:
		return "D"
	case LayerBaseSurface:
		return "TD"
	}
	return ""
}
