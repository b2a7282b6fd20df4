// Package types provides type definitions for structured data used throughout the epd-matcher system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlexibleFloat decodes JSON numbers as well as numeric strings, tolerating
// German decimal commas ("12,5") and thousands dots ("1.234,5") as they
// appear in bill of quantities exports.
type FlexibleFloat float64

func (f *FlexibleFloat) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = FlexibleFloat(num)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("volume is neither number nor string: %s", string(data))
	}
	s = strings.TrimSpace(s)
	if s == "" {
		*f = 0
		return nil
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	num, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid volume %q: %w", s, err)
	}
	*f = FlexibleFloat(num)
	return nil
}

// RawLineItem is one material line item as it arrives from a bill of
// quantities export. Field names follow the upstream export format.
type RawLineItem struct {
	Material string         `json:"MATERIAL"`
	Name     string         `json:"NAME"`
	Volume   *FlexibleFloat `json:"Volumen,omitempty"`
	GUIDs    []string       `json:"GUID,omitempty"`
}

// MaterialContext is the normalized view of one line item. Built once by the
// context extractor and immutable afterwards.
type MaterialContext struct {
	// ID keys this material in candidate sets, matcher responses and reports.
	ID string `json:"id"`
	// Index is the zero-based input position; output order follows it.
	Index int `json:"index"`
	// RawName is the text handed to the designation parser.
	RawName string `json:"raw_name"`
	// MaterialName and LayerName keep the raw MATERIAL and NAME input
	// fields; prompts render them separately.
	MaterialName string `json:"material_name,omitempty"`
	LayerName    string `json:"layer_name,omitempty"`
	// PreferredField names the input field RawName was taken from
	// ("NAME" or "MATERIAL"); nil when no field resolved.
	PreferredField *string `json:"preferred_field,omitempty"`
	// Volume in cubic meters; nil when absent so volume-dependent steps skip.
	Volume *float64 `json:"volume,omitempty"`
	// FreeText is the concatenated descriptive text used for fallback parsing.
	FreeText string `json:"free_text"`
	// SourceIDs carries the element GUIDs from the input line item.
	SourceIDs []string `json:"source_ids,omitempty"`
}

// HasVolume reports whether a usable volume was extracted.
func (m MaterialContext) HasVolume() bool {
	return m.Volume != nil && *m.Volume > 0
}

// DisplayName returns a short label for progress output.
func (m MaterialContext) DisplayName() string {
	if m.RawName != "" {
		return m.RawName
	}
	return fmt.Sprintf("material %d", m.Index+1)
}
