package verify

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const reportDoc = `{
  "companyName": "国立大学法人山梨大学",
  "unit": "千円",
  "statements": {"貸借対照表": {"資産の部": {"資産合計": 71892603}}},
  "accounts": {"資産合計": 71892603, "附属病院業務損益": -410984}
}`

const masterDoc = `{
  "companyName": "国立大学法人山梨大学",
  "totalTables": 2,
  "financialStatements": [
    {"tableName": "貸借対照表", "unit": "千円", "data": [{"category": "資産の部", "account": "資産合計", "amount": 71892603}]},
    {"tableName": "開示すべきセグメント情報", "unit": "千円", "data": [{"category": "セグメント情報", "account": "附属病院業務損益", "amount": -410984}]}
  ]
}`

const flatDoc = `{"資産合計": 71892603, "附属病院業務損益": -410984}`

func TestVerifyJSON_Defaults(t *testing.T) {
	docs := map[string]string{"report": reportDoc, "master": masterDoc, "flat": flatDoc}

	for name, doc := range docs {
		t.Run(name, func(t *testing.T) {
			results, err := VerifyJSON([]byte(doc), DefaultExpectations)
			require.NoError(t, err)
			require.Len(t, results, 2)
			for _, r := range results {
				assert.True(t, r.Passed, "%s: %s", r.Name, r.Error)
				require.NotNil(t, r.Actual)
			}
			assert.True(t, AllPassed(results))
		})
	}
}

func TestVerify_Failures(t *testing.T) {
	tests := []struct {
		name        string
		expectation Expectation
		wantError   bool
	}{
		{"wrong value", Expectation{Name: "assets", Account: "資産合計", Expected: "1"}, false},
		{"missing account", Expectation{Name: "x", Account: "存在しない", Expected: "1"}, true},
		{"bad query", Expectation{Name: "x", Query: ".[", Expected: "1"}, true},
		{"string result", Expectation{Name: "x", Query: ".companyName", Expected: "1"}, true},
		{"bad expected", Expectation{Name: "x", Account: "資産合計", Expected: "n/a"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := VerifyJSON([]byte(reportDoc), []Expectation{tt.expectation})
			require.NoError(t, err)
			r := results[0]
			assert.False(t, r.Passed)
			assert.Equal(t, tt.wantError, r.Error != "")
		})
	}
}

func TestVerify_CustomQuery(t *testing.T) {
	results, err := VerifyJSON([]byte(reportDoc), []Expectation{{
		Name:     "tree",
		Query:    `.statements["貸借対照表"]["資産の部"]["資産合計"]`,
		Expected: "71,892,603",
	}})
	require.NoError(t, err)
	assert.True(t, results[0].Passed, results[0].Error)
}

func TestVerifyJSON_InvalidDocument(t *testing.T) {
	_, err := VerifyJSON([]byte("{"), DefaultExpectations)
	assert.Error(t, err)
}

func TestLoadExpectations(t *testing.T) {
	got, err := LoadExpectations(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultExpectations, got)

	dir := t.TempDir()
	path := filepath.Join(dir, "expectations.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`expectations:
  - name: equity
    account: 純資産合計
    expected: "43,945,344"
`), 0644))
	got, err = LoadExpectations(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "純資産合計", got[0].Account)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("expectations:\n  - name: empty\n    expected: \"1\"\n"), 0644))
	_, err = LoadExpectations(bad)
	assert.Error(t, err)
}
