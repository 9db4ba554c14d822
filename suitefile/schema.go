package suitefile

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed suite.schema.json
var schemaData []byte

var (
	suiteSchema *jsonschema.Schema
	compileOnce sync.Once
	compileErr  error
)

// compileSchema compiles the embedded schema once
func compileSchema() error {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaData))
		if err != nil {
			compileErr = fmt.Errorf("unmarshal suite schema: %w", err)
			return
		}

		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("suite.schema.json", doc); err != nil {
			compileErr = fmt.Errorf("add suite schema resource: %w", err)
			return
		}

		suiteSchema, err = compiler.Compile("suite.schema.json")
		if err != nil {
			compileErr = fmt.Errorf("compile suite schema: %w", err)
		}
	})
	return compileErr
}

// validate checks a decoded YAML document against the suite schema. The
// document is round-tripped through JSON so numbers take the form the
// validator expects.
func validate(doc any) error {
	if err := compileSchema(); err != nil {
		return err
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("suite is not representable as JSON: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	if err := suiteSchema.Validate(inst); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
