package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

const metadataSchemaID = "inmemory://card/metadata.schema.json"

const metadataSchema = `{
  "type": "object",
  "required": ["card_id", "name"],
  "properties": {
    "card_id": {"type": "string", "pattern": "^[0-9A-Za-z]{10}$"},
    "name": {"type": "string", "minLength": 1},
    "standards_version": {"type": ["string", "number"]},
    "created_at": {"type": "string"},
    "modified_at": {"type": "string"},
    "description": {"type": "string"},
    "theme": {"type": "string"},
    "tags": {"type": "array", "items": {"type": "string"}},
    "visibility": {"type": "string"},
    "license": {"type": "string"},
    "age_rating": {"type": "string"},
    "file_info": {
      "type": "object",
      "properties": {
        "total_size": {"type": "integer", "minimum": 0},
        "file_count": {"type": "integer", "minimum": 0},
        "checksum": {"type": "string"},
        "generated_at": {"type": "string"}
      }
    }
  }
}`

var (
	compiledMetadataSchema *jsonschema.Schema
	compileOnce            sync.Once
	compileErr             error
)

func metadataSchemaValidator() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(metadataSchemaID, strings.NewReader(metadataSchema)); err != nil {
			compileErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		compiledMetadataSchema, compileErr = compiler.Compile(metadataSchemaID)
	})
	return compiledMetadataSchema, compileErr
}

// validateMetadataSchema returns one message per schema violation.
func validateMetadataSchema(data []byte) ([]string, error) {
	schema, err := metadataSchemaValidator()
	if err != nil {
		return nil, err
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	payload, err := normalize(doc)
	if err != nil {
		return []string{err.Error()}, nil
	}

	err = schema.Validate(payload)
	if err == nil {
		return nil, nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return nil, err
	}
	return leafMessages(ve), nil
}

// normalize round-trips a YAML value through JSON so the schema sees the
// same types json.Unmarshal would produce.
func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("metadata is not representable as JSON: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func leafMessages(ve *jsonschema.ValidationError) []string {
	if len(ve.Causes) == 0 {
		loc := ve.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		return []string{fmt.Sprintf("%s: %s", loc, ve.Message)}
	}
	var out []string
	for _, c := range ve.Causes {
		out = append(out, leafMessages(c)...)
	}
	return out
}
