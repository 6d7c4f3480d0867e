// Package validation checks job and request payloads against JSON schemas.
package validation

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// GetErrorMessages returns "field: message" strings, sorted for stable output.
func (r *ValidationResult) GetErrorMessages() []string {
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, fmt.Sprintf("%s: %s", e.Field, e.Message))
	}
	sort.Strings(msgs)
	return msgs
}

// Schema is a compiled JSON schema, safe for concurrent use.
type Schema struct {
	source string
	once   sync.Once
	schema *gojsonschema.Schema
	err    error
}

// NewSchema wraps a JSON schema document. It is compiled on first use.
func NewSchema(source string) *Schema {
	return &Schema{source: source}
}

func (s *Schema) compile() (*gojsonschema.Schema, error) {
	s.once.Do(func() {
		s.schema, s.err = gojsonschema.NewSchema(gojsonschema.NewStringLoader(s.source))
	})
	return s.schema, s.err
}

// Validate checks input (any JSON-marshalable Go value) against the schema.
func (s *Schema) Validate(input interface{}) (*ValidationResult, error) {
	schema, err := s.compile()
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(input))
	if err != nil {
		return nil, fmt.Errorf("validate input: %w", err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, re := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   fieldName(re),
			Message: re.Description(),
			Code:    strings.ToUpper(re.Type()),
		})
	}
	return out, nil
}

func fieldName(re gojsonschema.ResultError) string {
	if re.Type() == "required" {
		if prop, ok := re.Details()["property"].(string); ok {
			if re.Field() == gojsonschema.STRING_ROOT_SCHEMA_PROPERTY {
				return prop
			}
			return re.Field() + "." + prop
		}
	}
	return re.Field()
}
