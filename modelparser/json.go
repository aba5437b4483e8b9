package modelparser

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xeipuuv/gojsonschema"
)

// ModelSchemaPath is the JSON Schema this package validates declarative
// model documents against, mirroring the engine's schema-json/schema.json
// convention for its database-schema JSON format.
var ModelSchemaPath = "file://model-json/model.json"

// LoadJSONDocument reads and validates a JSON declarative model file.
func LoadJSONDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}
	return ParseJSONDocument(data)
}

// ParseJSONDocument unmarshals and validates a JSON declarative model
// document already read into memory.
func ParseJSONDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse model JSON: %w", err)
	}

	schemaLoader := gojsonschema.NewReferenceLoader(ModelSchemaPath)
	documentLoader := gojsonschema.NewStringLoader(string(data))

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		// No schema file on disk: skip validation rather than fail,
		// matching the engine's own backwards-compatible JSON loader.
		return &doc, nil
	}
	if !result.Valid() {
		msg := "model JSON Schema validation failed:\n"
		for _, desc := range result.Errors() {
			msg += fmt.Sprintf("- %s\n", desc)
		}
		return nil, fmt.Errorf("%s", msg)
	}

	return &doc, nil
}
