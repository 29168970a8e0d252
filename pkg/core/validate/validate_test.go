package validate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type valueMap map[string]int64

func (m valueMap) Value(key string) (int64, bool) {
	v, ok := m[key]
	return v, ok
}

// consistent figures in 千円; the balance sheet totals are the published ones
func consistent() valueMap {
	return valueMap{
		"total_assets":      71892603,
		"total_liabilities": 27947258,
		"total_equity":      43945345,
		"current_assets":    9000000,
		"fixed_assets":      62892603,
		"total_revenue":     34312555,
		"ordinary_expenses": 34723539,
		"operating_loss":    410984,
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name       string
		calculated int64
		reported   int64
		tolerance  float64
		wantPass   bool
		wantPct    float64
	}{
		{"exact", 100, 100, 0.1, true, 0},
		{"within tolerance", 1000999, 1000000, 0.1, true, 0.0999},
		{"outside tolerance", 1002000, 1000000, 0.1, false, 0.2},
		{"negative reported", -1000, -1001, 0.1, true, 0.0999},
		{"zero both", 0, 0, 0.1, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Compare(tt.name, tt.calculated, tt.reported, tt.tolerance)
			assert.Equal(t, tt.wantPass, f.Passed)
			assert.InDelta(t, tt.wantPct, f.DiffPct, 0.001)
			assert.Equal(t, tt.calculated-tt.reported, f.Difference)
		})
	}

	f := Compare("zero reported", 5, 0, 0.1)
	assert.False(t, f.Passed)
	assert.True(t, math.IsInf(f.DiffPct, 1))
}

func TestRun_Consistent(t *testing.T) {
	r := Run(consistent(), DefaultChecks, 0)
	require.Len(t, r.Findings, len(DefaultChecks))
	assert.True(t, r.AllPassed)
	assert.NoError(t, r.Err())
	for _, f := range r.Findings {
		assert.Equal(t, DefaultTolerancePct, f.TolerancePct)
		assert.False(t, f.Skipped, f.Name)
	}
}

func TestRun_DetectsMisread(t *testing.T) {
	v := consistent()
	// 負債純資産合計 read instead of 純資産合計
	v["total_equity"] = 71892603

	r := Run(v, DefaultChecks, 0.1)
	assert.False(t, r.AllPassed)
	assert.Equal(t, []string{DefaultChecks[0].Name}, r.FailedChecks)
	require.Error(t, r.Err())
	assert.Contains(t, r.Err().Error(), "資産合計 = 負債合計 + 純資産合計")
}

func TestEvaluate_Magnitude(t *testing.T) {
	v := consistent()
	v["operating_loss"] = -410984

	f := Evaluate(DefaultChecks[2], v, 0.1)
	assert.True(t, f.Passed)
	assert.Equal(t, int64(410984), f.Reported)
}

func TestEvaluate_MissingSkips(t *testing.T) {
	v := consistent()
	delete(v, "fixed_assets")

	f := Evaluate(DefaultChecks[1], v, 0.1)
	assert.True(t, f.Skipped)
	assert.True(t, f.Passed)
	assert.Equal(t, "missing fixed_assets", f.Note)
}
