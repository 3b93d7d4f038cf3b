package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed fixture.schema.json
var fixtureSchemaJSON []byte

const fixtureSchemaURL = "fixture.schema.json"

var (
	fixtureSchema     *jsonschema.Schema
	fixtureSchemaErr  error
	fixtureSchemaOnce sync.Once
)

func compiledFixtureSchema() (*jsonschema.Schema, error) {
	fixtureSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource(fixtureSchemaURL, bytes.NewReader(fixtureSchemaJSON)); err != nil {
			fixtureSchemaErr = fmt.Errorf("failed to add fixture schema: %w", err)
			return
		}
		fixtureSchema, fixtureSchemaErr = compiler.Compile(fixtureSchemaURL)
	})
	return fixtureSchema, fixtureSchemaErr
}

// validateFixtureValue checks a decoded YAML value against the fixture
// schema. The value is converted to its JSON form first so that numbers and
// maps have the types the validator expects.
func validateFixtureValue(v any) error {
	schema, err := compiledFixtureSchema()
	if err != nil {
		return err
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFixture, err)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFixture, err)
	}

	if err := schema.Validate(doc); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return fmt.Errorf("%w: %s", ErrInvalidFixture, strings.Join(schemaMessages(verr, nil), "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidFixture, err)
	}
	return nil
}

// schemaMessages flattens the leaf causes of a schema validation error.
func schemaMessages(err *jsonschema.ValidationError, out []string) []string {
	if len(err.Causes) == 0 {
		loc := err.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		return append(out, loc+": "+err.Message)
	}
	for _, cause := range err.Causes {
		out = schemaMessages(cause, out)
	}
	return out
}
