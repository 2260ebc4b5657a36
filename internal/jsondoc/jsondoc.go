// Package jsondoc loads JSON documents that must conform to a JSON Schema
// before they are decoded.
package jsondoc

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Schema names a JSON Schema definition.
type Schema struct {
	Name       string
	Definition map[string]any
}

var compiled sync.Map // map[string]*jsonschema.Schema

// ValidationError is returned when a document does not satisfy its schema.
type ValidationError struct {
	Schema string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s document invalid: %v", e.Schema, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Validate checks that raw is JSON satisfying schema.
func Validate(schema *Schema, raw []byte) error {
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return &ValidationError{Schema: schema.Name, Err: fmt.Errorf("invalid JSON: %w", err)}
	}

	sch, err := compile(schema)
	if err != nil {
		return fmt.Errorf("compile schema %q: %w", schema.Name, err)
	}
	if err := sch.Validate(parsed); err != nil {
		return &ValidationError{Schema: schema.Name, Err: err}
	}
	return nil
}

// Decode validates raw against schema and unmarshals it into v.
func Decode(schema *Schema, raw []byte, v any) error {
	if err := Validate(schema, raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &ValidationError{Schema: schema.Name, Err: err}
	}
	return nil
}

// DecodeFile reads path and decodes it with Decode.
func DecodeFile(schema *Schema, path string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := Decode(schema, raw, v); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func compile(schema *Schema) (*jsonschema.Schema, error) {
	if cached, ok := compiled.Load(schema.Name); ok {
		return cached.(*jsonschema.Schema), nil
	}

	// The compiler wants a decoded JSON value, not Go maps with typed slices.
	defBytes, err := json.Marshal(schema.Definition)
	if err != nil {
		return nil, fmt.Errorf("marshal definition: %w", err)
	}
	var def any
	if err := json.Unmarshal(defBytes, &def); err != nil {
		return nil, fmt.Errorf("parse definition: %w", err)
	}

	c := jsonschema.NewCompiler()
	url := fmt.Sprintf("schema://%s.json", schema.Name)
	if err := c.AddResource(url, def); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}
	sch, err := c.Compile(url)
	if err != nil {
		return nil, err
	}
	compiled.Store(schema.Name, sch)
	return sch, nil
}
