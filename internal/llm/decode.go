package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const fence = "```"

// StripFences removes a leading ``` or ```json line and a trailing ```
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, fence) {
		return s
	}
	s = strings.TrimPrefix(s, fence)
	// language tag up to the first newline
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		tag := strings.TrimSpace(s[:nl])
		if tag == "" || strings.EqualFold(tag, "json") {
			s = s[nl+1:]
		}
	} else if len(s) >= 4 && strings.EqualFold(s[:4], "json") {
		s = s[4:]
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, fence)
	return strings.TrimSpace(s)
}

// Schema validates model output before it is decoded
type Schema struct {
	schema *gojsonschema.Schema
}

// NewSchema compiles a JSON schema document
func NewSchema(doc string) (*Schema, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return &Schema{schema: s}, nil
}

// MustSchema is NewSchema for package level schemas
func MustSchema(doc string) *Schema {
	s, err := NewSchema(doc)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate checks a JSON document against the schema
func (s *Schema) Validate(data []byte) error {
	result, err := s.schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return err
	}
	if result.Valid() {
		return nil
	}
	problems := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		problems = append(problems, e.String())
	}
	return errors.New(strings.Join(problems, "; "))
}

// Decode strips fences, validates against schema (when given) and
// unmarshals raw into v. Every failure is a *ParseError.
func Decode(operation, raw string, schema *Schema, v any) error {
	body := StripFences(raw)
	if body == "" {
		return &ParseError{Operation: operation, Raw: raw, Err: ErrEmptyResponse}
	}

	data := []byte(body)
	if !json.Valid(data) {
		return &ParseError{Operation: operation, Raw: raw, Err: errors.New("response is not valid JSON")}
	}

	if schema != nil {
		if err := schema.Validate(data); err != nil {
			return &ParseError{Operation: operation, Raw: raw, Err: err}
		}
	}

	if err := json.Unmarshal(data, v); err != nil {
		return &ParseError{Operation: operation, Raw: raw, Err: err}
	}
	return nil
}
