// Package report turns resolved extraction results into the JSON shapes and
// workbook consumed downstream. Every amount is in 千円.
package report

import (
	"encoding/json"

	"univ_financials/pkg/core/fields"

	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Values supplies resolved amounts by catalog key.
type Values interface {
	Value(key string) (int64, bool)
}

type node = orderedmap.OrderedMap[string, any]

func newNode() *node {
	return orderedmap.New[string, any]()
}

// Tree is the statement → section → account mapping. Keys keep catalog order.
// Leaves are int64 amounts.
type Tree struct {
	root *node
}

// BuildTree places every tree field of the catalog at its TreePath. Fields
// without a value are left out.
func BuildTree(values Values) *Tree {
	t := &Tree{root: newNode()}
	for _, f := range fields.Catalog() {
		if !f.InTree() {
			continue
		}
		if v, ok := values.Value(f.Key); ok {
			t.set(f.TreePath, v)
		}
	}
	return t
}

func (t *Tree) set(path []string, v int64) {
	n := t.root
	for _, key := range path[:len(path)-1] {
		child, _ := n.Get(key)
		next, ok := child.(*node)
		if !ok {
			next = newNode()
			n.Set(key, next)
		}
		n = next
	}
	n.Set(path[len(path)-1], v)
}

// Lookup returns the amount at path.
func (t *Tree) Lookup(path ...string) (int64, bool) {
	if len(path) == 0 {
		return 0, false
	}
	n := t.root
	for i, key := range path {
		v, ok := n.Get(key)
		if !ok {
			return 0, false
		}
		if i == len(path)-1 {
			amount, isAmount := v.(int64)
			return amount, isAmount
		}
		if n, ok = v.(*node); !ok {
			return 0, false
		}
	}
	return 0, false
}

// Statements lists the top-level statement names in order.
func (t *Tree) Statements() []string {
	var out []string
	for pair := t.root.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

// MarshalJSON implements json.Marshaler, keeping key order.
func (t *Tree) MarshalJSON() ([]byte, error) {
	if t == nil || t.root == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(t.root)
}

// JSONSchema describes a tree two section levels deep with integer leaves.
func (Tree) JSONSchema() *jsonschema.Schema {
	amount := &jsonschema.Schema{Type: "integer"}
	section := &jsonschema.Schema{
		Type:                 "object",
		AdditionalProperties: &jsonschema.Schema{AnyOf: []*jsonschema.Schema{amount, {Type: "object", AdditionalProperties: amount}}},
	}
	return &jsonschema.Schema{
		Type: "object",
		AdditionalProperties: &jsonschema.Schema{
			Type:                 "object",
			AdditionalProperties: &jsonschema.Schema{AnyOf: []*jsonschema.Schema{amount, section}},
		},
	}
}

// Accounts is the flat account label → amount map.
type Accounts struct {
	m *orderedmap.OrderedMap[string, int64]
}

// Get returns the amount for an account label.
func (a *Accounts) Get(account string) (int64, bool) {
	return a.m.Get(account)
}

// Len is the number of accounts.
func (a *Accounts) Len() int {
	return a.m.Len()
}

// Labels lists account labels in catalog order.
func (a *Accounts) Labels() []string {
	out := make([]string, 0, a.m.Len())
	for pair := a.m.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

// MarshalJSON implements json.Marshaler, keeping key order.
func (a *Accounts) MarshalJSON() ([]byte, error) {
	if a == nil || a.m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(a.m)
}

// JSONSchema describes a map of integer amounts.
func (Accounts) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:                 "object",
		AdditionalProperties: &jsonschema.Schema{Type: "integer"},
	}
}

// ToFlat maps every catalog account label to its amount.
func ToFlat(values Values) *Accounts {
	m := orderedmap.New[string, int64]()
	for _, f := range fields.Catalog() {
		if v, ok := values.Value(f.Key); ok {
			m.Set(f.Account, v)
		}
	}
	return &Accounts{m: m}
}
