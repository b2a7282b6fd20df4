// Package schemas validates matcher responses and match reports against the
// JSON Schema documents shipped in the repository's schemas directory.
package schemas

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	schemadocs "github.com/jonathan/epd-matcher/schemas"
)

// ValidationError reports which fields of a document violated the schema.
type ValidationError struct {
	Errors []FieldError
}

// FieldError is one schema violation at a specific field path.
type FieldError struct {
	Field   string
	Message string
}

// SchemaLoadError signals the schema itself could not be loaded or compiled,
// as opposed to the document failing validation.
type SchemaLoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	msg := fmt.Sprintf("schema %s unusable: %s", e.Path, e.Message)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation failed:")
	for _, fe := range ve.Errors {
		sb.WriteString("\n  - " + fe.Field + ": " + fe.Message)
	}
	return sb.String()
}

// ValidateBatchResponse checks a batch matcher reply against the shipped
// schema before any result is read from it.
func ValidateBatchResponse(jsonContent string) error {
	return validateEmbedded(schemadocs.BatchResponse, jsonContent)
}

// ValidateSingleResponse checks a single-material matcher reply against the
// shipped schema.
func ValidateSingleResponse(jsonContent string) error {
	return validateEmbedded(schemadocs.SingleResponse, jsonContent)
}

// ValidateMatchReport checks a serialized material match report against the
// shipped schema.
func ValidateMatchReport(jsonContent string) error {
	return validateEmbedded(schemadocs.MatchReport, jsonContent)
}

func validateEmbedded(name, jsonContent string) error {
	schema, err := schemadocs.Read(name)
	if err != nil {
		return &SchemaLoadError{Path: name, Message: "embedded schema missing", Cause: err}
	}
	return ValidateJSONString(string(schema), jsonContent)
}

// ValidateJSONString validates a JSON document against a schema, both given
// as raw string content.
func ValidateJSONString(schemaContent, jsonContent string) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schemaContent),
		gojsonschema.NewStringLoader(jsonContent),
	)
	if err != nil {
		return &SchemaLoadError{Path: "(inline)", Message: "not loadable", Cause: err}
	}
	return resultError(result)
}

// resultError converts a gojsonschema result into a structured error, nil
// when valid.
func resultError(result *gojsonschema.Result) error {
	if result.Valid() {
		return nil
	}

	fields := make([]FieldError, len(result.Errors()))
	for i, desc := range result.Errors() {
		fields[i] = FieldError{Field: desc.Field(), Message: desc.Description()}
		if fields[i].Field == "" {
			fields[i].Field = "(root)"
		}
	}
	return &ValidationError{Errors: fields}
}
