package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/jonathan/epd-matcher/internal/types"
)

// GroupsDocument is a decoded Gruppen input file. The raw group objects and
// any sibling top-level fields are kept verbatim so the enriched output
// echoes the input instead of a lossy re-projection.
type GroupsDocument struct {
	// Items are the typed line items, in input order.
	Items []types.RawLineItem

	groups []json.RawMessage
	extra  map[string]json.RawMessage
}

// DecodeGroups parses a bill of quantities export of the form
// {"Gruppen":[{"MATERIAL","NAME","Volumen","GUID":[...]}, ...]}.
func DecodeGroups(data []byte) (*GroupsDocument, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("failed to parse input JSON: %w", err)
	}

	rawGroups, ok := top["Gruppen"]
	if !ok {
		return nil, fmt.Errorf("input JSON has no \"Gruppen\" array")
	}
	var groups []json.RawMessage
	if err := json.Unmarshal(rawGroups, &groups); err != nil {
		return nil, fmt.Errorf("\"Gruppen\" is not an array: %w", err)
	}

	items := make([]types.RawLineItem, len(groups))
	for i, raw := range groups {
		if err := json.Unmarshal(raw, &items[i]); err != nil {
			return nil, fmt.Errorf("failed to parse group %d: %w", i+1, err)
		}
	}

	delete(top, "Gruppen")
	return &GroupsDocument{Items: items, groups: groups, extra: top}, nil
}

// Encode returns the input document with each group's matching result
// attached: "id" carries the accepted EPD ids in confidence order and
// "id_confidence" maps each id to its corrected confidence. reports must be
// in input order, one per group.
func (d *GroupsDocument) Encode(reports []types.MaterialMatchReport) ([]byte, error) {
	if len(reports) != len(d.groups) {
		return nil, fmt.Errorf("report count (%d) does not match group count (%d)", len(reports), len(d.groups))
	}

	groups := make([]map[string]any, len(d.groups))
	for i, raw := range d.groups {
		var group map[string]any
		if err := json.Unmarshal(raw, &group); err != nil {
			return nil, fmt.Errorf("failed to parse group %d: %w", i+1, err)
		}
		group["id"] = reports[i].AcceptedIDs()
		group["id_confidence"] = reports[i].ConfidenceByID()
		groups[i] = group
	}

	out := make(map[string]any, len(d.extra)+1)
	for key, raw := range d.extra {
		out[key] = raw
	}
	out["Gruppen"] = groups
	return json.MarshalIndent(out, "", "  ")
}
