package report

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	jsv "github.com/santhosh-tekuri/jsonschema/v6"
)

// Kind names an output document type.
type Kind string

const (
	KindReport   Kind = "report"
	KindFlat     Kind = "flat"
	KindRequired Kind = "required"
	KindTables   Kind = "tables"
	KindMaster   Kind = "master"
)

// Schema reflects the JSON Schema for kind from the Go types.
func Schema(kind Kind) (*jsonschema.Schema, error) {
	r := &jsonschema.Reflector{
		Anonymous:      true,
		DoNotReference: true,
	}

	switch kind {
	case KindReport:
		return r.Reflect(&Report{}), nil
	case KindFlat:
		return Accounts{}.JSONSchema(), nil
	case KindRequired:
		return r.Reflect([]Table{}), nil
	case KindTables:
		s := r.Reflect([]Table{})
		s.Items.Properties.Delete("sourcePage")
		return s, nil
	case KindMaster:
		return r.Reflect(&Master{}), nil
	}
	return nil, fmt.Errorf("unknown document kind %q", kind)
}

// Validator checks documents against the reflected schemas before they are
// written.
type Validator struct {
	schemas map[Kind]*jsv.Schema
}

// NewValidator compiles the schema of every kind.
func NewValidator() (*Validator, error) {
	v := &Validator{schemas: make(map[Kind]*jsv.Schema)}
	for _, kind := range []Kind{KindReport, KindFlat, KindRequired, KindTables, KindMaster} {
		compiled, err := compile(kind)
		if err != nil {
			return nil, err
		}
		v.schemas[kind] = compiled
	}
	return v, nil
}

func compile(kind Kind) (*jsv.Schema, error) {
	s, err := Schema(kind)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshaling %s schema: %w", kind, err)
	}
	doc, err := jsv.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decoding %s schema: %w", kind, err)
	}

	url := string(kind) + ".schema.json"
	c := jsv.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("adding %s schema: %w", kind, err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compiling %s schema: %w", kind, err)
	}
	return compiled, nil
}

// Validate marshals doc and checks it against the schema for kind.
func (v *Validator) Validate(kind Kind, doc any) error {
	schema, ok := v.schemas[kind]
	if !ok {
		return fmt.Errorf("unknown document kind %q", kind)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", kind, err)
	}
	return validate(kind, schema, raw)
}

// ValidateJSON checks an already encoded document.
func (v *Validator) ValidateJSON(kind Kind, raw []byte) error {
	schema, ok := v.schemas[kind]
	if !ok {
		return fmt.Errorf("unknown document kind %q", kind)
	}
	return validate(kind, schema, raw)
}

func validate(kind Kind, schema *jsv.Schema, raw []byte) error {
	inst, err := jsv.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("decoding %s: %w", kind, err)
	}
	if err := schema.Validate(inst); err != nil {
		return fmt.Errorf("%s document does not match schema: %w", kind, err)
	}
	return nil
}
