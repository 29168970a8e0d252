// Package verify checks written output documents against known figures using
// jq expressions, so any output shape can be verified the same way.
package verify

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"

	"univ_financials/pkg/core/jpnum"

	"github.com/itchyny/gojq"
	"gopkg.in/yaml.v2"
)

// DefaultExpectationsPath is read when no other path is configured.
const DefaultExpectationsPath = "config/expectations.yaml"

// Expectation is one known figure. Either Query or Account is set; Account
// is shorthand for AccountQuery(Account).
type Expectation struct {
	Name     string `yaml:"name"`
	Query    string `yaml:"query,omitempty"`
	Account  string `yaml:"account,omitempty"`
	Expected string `yaml:"expected"`
}

// Result is the outcome of one expectation.
type Result struct {
	Name     string `json:"name"`
	Query    string `json:"query"`
	Expected int64  `json:"expected"`
	Actual   *int64 `json:"actual"`
	Passed   bool   `json:"passed"`
	Error    string `json:"error,omitempty"`
}

// DefaultExpectations are the published figures of the reference statements.
var DefaultExpectations = []Expectation{
	{Name: "total assets", Account: "資産合計", Expected: "71,892,603"},
	{Name: "hospital segment profit/loss", Account: "附属病院業務損益", Expected: "△410,984"},
}

// AccountQuery finds an account's amount in any output shape: the flat map,
// the report's accounts, or a {category, account, amount} row. The first
// non-null match wins.
func AccountQuery(account string) string {
	a := strconv.Quote(account)
	return fmt.Sprintf(`[.accounts?[%[1]s]?, .[%[1]s]?, (.. | objects | select(.account? == %[1]s) | .amount)] | map(select(. != null)) | first`, a)
}

func (e Expectation) query() string {
	if e.Query != "" {
		return e.Query
	}
	return AccountQuery(e.Account)
}

type expectationFile struct {
	Expectations []Expectation `yaml:"expectations"`
}

// LoadExpectations reads expectations from YAML. A missing file yields
// DefaultExpectations.
func LoadExpectations(path string) ([]Expectation, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultExpectations, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var file expectationFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	for i, e := range file.Expectations {
		if e.Query == "" && e.Account == "" {
			return nil, fmt.Errorf("%s: expectation %d (%s) has neither query nor account", path, i+1, e.Name)
		}
		if _, ok := jpnum.ParseJapaneseNumber(e.Expected); !ok {
			return nil, fmt.Errorf("%s: expectation %s: expected value %q is not an amount", path, e.Name, e.Expected)
		}
	}
	return file.Expectations, nil
}

// VerifyJSON decodes raw and runs the expectations against it.
func VerifyJSON(raw []byte, expectations []Expectation) ([]Result, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("invalid JSON document: %w", err)
	}
	return Verify(doc, expectations), nil
}

// Verify runs each expectation against doc, which must be a decoded JSON
// value (map[string]any, []any, float64, ...).
func Verify(doc any, expectations []Expectation) []Result {
	results := make([]Result, 0, len(expectations))
	for _, e := range expectations {
		results = append(results, run(doc, e))
	}
	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}

func run(doc any, e Expectation) Result {
	src := e.query()
	r := Result{Name: e.Name, Query: src}

	expected, ok := jpnum.ParseJapaneseNumber(e.Expected)
	if !ok {
		r.Error = fmt.Sprintf("expected value %q is not an amount", e.Expected)
		return r
	}
	r.Expected = expected

	query, err := gojq.Parse(src)
	if err != nil {
		r.Error = fmt.Sprintf("invalid jq expression: %v", err)
		return r
	}
	code, err := gojq.Compile(query)
	if err != nil {
		r.Error = fmt.Sprintf("failed to compile jq expression: %v", err)
		return r
	}

	v, ok := code.Run(doc).Next()
	if !ok {
		r.Error = "query produced no value"
		return r
	}
	if err, isErr := v.(error); isErr {
		r.Error = err.Error()
		return r
	}

	if v == nil {
		r.Error = "no value found"
		return r
	}
	actual, ok := toInt64(v)
	if !ok {
		r.Error = fmt.Sprintf("query result %v is not a number", v)
		return r
	}
	r.Actual = &actual
	r.Passed = actual == expected
	return r
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int64(math.Round(n)), true
	}
	return 0, false
}
