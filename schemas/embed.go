// Package schemas ships the JSON Schema documents for matcher responses and
// match reports. The documents are embedded at compile time so validation
// works regardless of the working directory.
package schemas

import "embed"

// Files holds every schema document in this directory.
//
//go:embed *.schema.json
var Files embed.FS

// Names of the shipped schema documents.
const (
	BatchResponse  = "batch_response.schema.json"
	SingleResponse = "single_response.schema.json"
	MatchReport    = "match_report.schema.json"
)

// Read returns the raw bytes of a shipped schema document.
func Read(name string) ([]byte, error) {
	return Files.ReadFile(name)
}
