// Package types provides type definitions for structured data used throughout the epd-matcher system.
//
//nolint:revive // types is a standard Go package name pattern
package types

// EpdRecord is one catalog entry as projected by the catalog client. The core
// pipeline only reads it. List responses fill the identity fields; the detail
// fields are populated on demand when detail matching is enabled.
type EpdRecord struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Classification string `json:"classification,omitempty"`
	RefYear        string `json:"ref_year,omitempty"`
	Validity       string `json:"validity,omitempty"`

	// Detail fields, loaded via the detail endpoint.
	TechnicalDescription string `json:"technical_description,omitempty"`
	Remarks              string `json:"remarks,omitempty"`
	ApplicationArea      string `json:"application_area,omitempty"`
	ApplicationNote      string `json:"application_note,omitempty"`
	OutlineNumber        string `json:"outline_number,omitempty"`
	BauDatRef            string `json:"baudat_ref,omitempty"`

	// DetailLoaded marks records whose detail fetch succeeded.
	DetailLoaded bool `json:"-"`
}

// FieldByColumn resolves a configured matching column name (the catalog wire
// names, e.g. "technischeBeschreibung") to the record's field value.
// Unknown columns resolve to "".
func (r EpdRecord) FieldByColumn(column string) string {
	switch column {
	case "name":
		return r.Name
	case "klassifizierung", "classification":
		return r.Classification
	case "technischeBeschreibung", "technical_description":
		return r.TechnicalDescription
	case "anmerkungen", "remarks":
		return r.Remarks
	case "anwendungsgebiet", "application_area":
		return r.ApplicationArea
	case "anwendungshinweis", "application_note":
		return r.ApplicationNote
	case "gliederungsnummer", "outline_number":
		return r.OutlineNumber
	case "referenzjahr", "ref_year":
		return r.RefYear
	case "gueltigkeit", "validity":
		return r.Validity
	case "bauDatRef", "baudat_ref":
		return r.BauDatRef
	}
	return ""
}

// SearchText returns the concatenation of name and classification used by
// keyword and compatibility checks.
func (r EpdRecord) SearchText() string {
	if r.Classification == "" {
		return r.Name
	}
	return r.Name + " " + r.Classification
}

// FilterStats records how the candidate filter reduced the catalog for one
// material.
type FilterStats struct {
	CatalogTotal int `json:"catalog_total"`
	// Primary counts records compatible with type and layer.
	Primary int `json:"primary"`
	// Secondary counts records compatible with type only.
	Secondary int `json:"secondary"`
	Returned  int `json:"returned"`
	// ReductionPercent is 100 * (1 - Returned/CatalogTotal), 0 for an empty catalog.
	ReductionPercent float64 `json:"reduction_percent"`
}

// CandidateSet is the bounded, relevance-ordered list of catalog records
// considered for one material. Produced by the candidate filter, consumed and
// discarded by the matching orchestrator.
type CandidateSet struct {
	MaterialID string      `json:"material_id"`
	Records    []EpdRecord `json:"records"`
	Stats      FilterStats `json:"stats"`
	// FailOpen marks sets where the strict filter matched nothing and the
	// entire catalog was returned instead.
	FailOpen bool `json:"fail_open,omitempty"`
}

// Len returns the number of candidate records.
func (c CandidateSet) Len() int { return len(c.Records) }
