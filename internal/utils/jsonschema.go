package utils

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// JSONSchemaValidator holds compiled schemas for the payloads the engine
// accepts over HTTP and Kafka, keyed by name. Schemas are compiled once at
// startup so per-message validation stays cheap.
type JSONSchemaValidator struct {
	schemas map[string]*gojsonschema.Schema
}

func NewJSONSchemaValidator() *JSONSchemaValidator {
	return &JSONSchemaValidator{
		schemas: make(map[string]*gojsonschema.Schema),
	}
}

// LoadSchema compiles a schema document and registers it under name,
// replacing any schema previously stored there.
func (v *JSONSchemaValidator) LoadSchema(name, schema string) error {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		return fmt.Errorf("failed to compile schema %s: %w", name, err)
	}

	v.schemas[name] = compiled
	return nil
}

// ValidateAgainstSchema checks data against the named schema. All field
// violations are collected into a single error so the caller can report the
// whole problem at once.
func (v *JSONSchemaValidator) ValidateAgainstSchema(name string, data interface{}) error {
	schema, ok := v.schemas[name]
	if !ok {
		return fmt.Errorf("schema %s not found", name)
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(jsonData))
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, violation := range result.Errors() {
			details = append(details, fmt.Sprintf("%s: %s", violation.Field(), violation.Description()))
		}
		return fmt.Errorf("validation failed: %s", strings.Join(details, "; "))
	}

	return nil
}
