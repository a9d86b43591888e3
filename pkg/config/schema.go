package config

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/invopop/jsonschema"
)

// RunSchema generates the JSON schema of a run file
func RunSchema() *jsonschema.Schema {
	schema := reflector().Reflect(&RunConfig{})
	schema.Title = "signal-backtester-run"
	schema.Description = "Configuration schema for a single backtest run"
	schema.Version = "http://json-schema.org/draft-07/schema#"
	return schema
}

// SweepSchema generates the JSON schema of a sweep file
func SweepSchema() *jsonschema.Schema {
	schema := reflector().Reflect(&SweepConfig{})
	schema.Title = "signal-backtester-sweep"
	schema.Description = "Configuration schema for a parameter sweep"
	schema.Version = "http://json-schema.org/draft-07/schema#"
	return schema
}

// WriteSchema writes an indented schema to w
func WriteSchema(w io.Writer, schema *jsonschema.Schema) error {
	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode schema: %w", err)
	}
	_, err = w.Write(append(out, '\n'))
	return err
}

func reflector() *jsonschema.Reflector {
	return &jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
	}
}
