package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "habitat-config.schema.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("adding config schema: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile(schemaURL)
	})
	return schema, schemaErr
}

// Validate checks the configuration against the embedded JSON schema and the
// cross-field rules the schema cannot express.
func (c *Config) Validate() error {
	s, err := compiledSchema()
	if err != nil {
		return err
	}

	// Round-trip through JSON so the validator sees plain JSON values
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config for validation: %w", err)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decoding config for validation: %w", err)
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	var errs []error
	if c.Mutation.Min >= c.Mutation.Max {
		errs = append(errs, fmt.Errorf("mutation.min (%d) must be below mutation.max (%d)", c.Mutation.Min, c.Mutation.Max))
	}
	if c.World.Variant == VariantFire {
		if c.Fire.Interval < 1 {
			errs = append(errs, fmt.Errorf("fire.interval must be positive for the fire variant"))
		}
		if c.Fire.Duration < 1 {
			errs = append(errs, fmt.Errorf("fire.duration must be positive for the fire variant"))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
