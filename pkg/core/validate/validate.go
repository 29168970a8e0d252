// Package validate checks extracted statements for internal consistency.
// A figure read from the wrong row rarely still satisfies the accounting
// identities, so these checks catch most misreads.
package validate

import (
	"fmt"
	"math"
	"strings"
)

// DefaultTolerancePct is the allowed gap, in percent of the reported figure.
const DefaultTolerancePct = 0.1

// Values supplies resolved amounts by catalog key.
type Values interface {
	Value(key string) (int64, bool)
}

// =============================================================================
// CHECK DEFINITIONS
// =============================================================================

// Term is one signed operand of a check.
type Term struct {
	Key  string
	Sign int64
}

// Check compares a reported figure with a sum of other figures.
type Check struct {
	Name     string
	Reported string
	Terms    []Term
	// Magnitude compares absolute values. 損失 lines are printed as positive
	// amounts even though they represent a negative result.
	Magnitude bool
}

// DefaultChecks are the identities every statement set must satisfy.
var DefaultChecks = []Check{
	{
		Name:     "資産合計 = 負債合計 + 純資産合計",
		Reported: "total_assets",
		Terms:    []Term{{"total_liabilities", 1}, {"total_equity", 1}},
	},
	{
		Name:     "流動資産合計 + 固定資産合計 = 資産合計",
		Reported: "total_assets",
		Terms:    []Term{{"current_assets", 1}, {"fixed_assets", 1}},
	},
	{
		Name:      "経常収益合計 - 経常費用合計 = 経常損失",
		Reported:  "operating_loss",
		Terms:     []Term{{"total_revenue", 1}, {"ordinary_expenses", -1}},
		Magnitude: true,
	},
}

// =============================================================================
// FINDINGS
// =============================================================================

// Finding is the outcome of one check.
type Finding struct {
	Name         string  `json:"name"`
	Calculated   int64   `json:"calculated"`
	Reported     int64   `json:"reported"`
	Difference   int64   `json:"difference"`
	DiffPct      float64 `json:"diff_pct"`
	TolerancePct float64 `json:"tolerance_pct"`
	Passed       bool    `json:"passed"`
	Skipped      bool    `json:"skipped,omitempty"`
	Note         string  `json:"note,omitempty"`
}

// Report collects all findings of a run.
type Report struct {
	Findings     []Finding `json:"findings"`
	AllPassed    bool      `json:"all_passed"`
	FailedChecks []string  `json:"failed_checks,omitempty"`
}

// Add records a finding.
func (r *Report) Add(f Finding) {
	r.Findings = append(r.Findings, f)
	if !f.Passed {
		r.AllPassed = false
		r.FailedChecks = append(r.FailedChecks, f.Name)
	}
}

// Err returns an error naming the failed checks, or nil.
func (r *Report) Err() error {
	if r.AllPassed {
		return nil
	}
	return fmt.Errorf("consistency checks failed: %s", strings.Join(r.FailedChecks, "; "))
}

// =============================================================================
// EVALUATION
// =============================================================================

// Compare evaluates calculated against reported. A zero reported figure
// passes only when the difference is zero.
func Compare(name string, calculated, reported int64, tolerancePct float64) Finding {
	diff := calculated - reported
	absDiff := math.Abs(float64(diff))

	var pct float64
	switch {
	case reported != 0:
		pct = absDiff / math.Abs(float64(reported)) * 100
	case diff != 0:
		pct = math.Inf(1)
	}

	return Finding{
		Name:         name,
		Calculated:   calculated,
		Reported:     reported,
		Difference:   diff,
		DiffPct:      pct,
		TolerancePct: tolerancePct,
		Passed:       pct <= tolerancePct,
	}
}

// Evaluate runs one check. Missing figures skip the check rather than fail it.
func Evaluate(c Check, values Values, tolerancePct float64) Finding {
	reported, ok := values.Value(c.Reported)
	if !ok {
		return skipped(c.Name, c.Reported)
	}

	var calculated int64
	for _, t := range c.Terms {
		v, ok := values.Value(t.Key)
		if !ok {
			return skipped(c.Name, t.Key)
		}
		calculated += t.Sign * v
	}

	if c.Magnitude {
		calculated, reported = abs(calculated), abs(reported)
	}
	return Compare(c.Name, calculated, reported, tolerancePct)
}

// Run evaluates checks against values. tolerancePct <= 0 uses the default.
func Run(values Values, checks []Check, tolerancePct float64) *Report {
	if tolerancePct <= 0 {
		tolerancePct = DefaultTolerancePct
	}
	r := &Report{AllPassed: true}
	for _, c := range checks {
		r.Add(Evaluate(c, values, tolerancePct))
	}
	return r
}

func skipped(name, missing string) Finding {
	return Finding{Name: name, Passed: true, Skipped: true, Note: "missing " + missing}
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
