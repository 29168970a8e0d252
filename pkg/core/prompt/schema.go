package prompt

import (
	"bytes"
	"fmt"

	jsv "github.com/santhosh-tekuri/jsonschema/v6"
)

// Schema is a compiled JSON Schema that model replies are checked against.
type Schema struct {
	ID       string
	compiled *jsv.Schema
}

// CompileSchema compiles raw JSON Schema text under id.
func CompileSchema(id string, raw []byte) (*Schema, error) {
	doc, err := jsv.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decoding schema %s: %w", id, err)
	}

	url := id + ".schema.json"
	c := jsv.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("adding schema %s: %w", id, err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compiling schema %s: %w", id, err)
	}
	return &Schema{ID: id, compiled: compiled}, nil
}

// Validate checks a JSON reply.
func (s *Schema) Validate(reply []byte) error {
	inst, err := jsv.UnmarshalJSON(bytes.NewReader(reply))
	if err != nil {
		return fmt.Errorf("decoding reply: %w", err)
	}
	if err := s.compiled.Validate(inst); err != nil {
		return fmt.Errorf("reply does not match schema %s: %w", s.ID, err)
	}
	return nil
}
