package registry

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaName = "formula.schema.json"

//go:embed formula.schema.json
var schemaJSON []byte

var (
	compiledOnce   sync.Once
	compiledSchema *jsonschema.Schema
	errCompile     error
)

func formulaSchema() (*jsonschema.Schema, error) {
	compiledOnce.Do(func() {
		comp := jsonschema.NewCompiler()
		if err := comp.AddResource(schemaName, bytes.NewReader(schemaJSON)); err != nil {
			errCompile = fmt.Errorf("loading schema %q: %w", schemaName, err)
			return
		}

		compiledSchema, errCompile = comp.Compile(schemaName)
		if errCompile != nil {
			errCompile = fmt.Errorf("compiling schema %q: %w", schemaName, errCompile)
		}
	})

	return compiledSchema, errCompile
}

// ValidateJSON runs the formula schema against a JSON document.
func ValidateJSON(data []byte) error {
	sch, err := formulaSchema()
	if err != nil {
		return err
	}

	// Unmarshal into any so the validator can walk it.
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	if err := sch.Validate(doc); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	return nil
}
