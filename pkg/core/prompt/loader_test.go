package prompt

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

const amountsSchema = `{
	"type": "object",
	"required": ["amounts"],
	"properties": {"amounts": {"type": "array", "items": {"type": "number"}}}
}`

func TestLoadInto(t *testing.T) {
	base := t.TempDir()
	writeFile(t, filepath.Join(base, "prompts", "extraction", "system.json"), `{
		"name": "Extraction system prompt",
		"system_prompt": "数値のみを答えてください。"
	}`)
	writeFile(t, filepath.Join(base, "prompts", "fields", "total_assets.json"), `{
		"id": "fields.total_assets",
		"user_prompt_template": "{{.Location}}の{{.Subject}}を返してください。",
		"response_schema_ref": "amounts"
	}`)
	writeFile(t, filepath.Join(base, "prompts", "fields", "notes.txt"), "ignored")
	writeFile(t, filepath.Join(base, "schemas", "amounts.json"), amountsSchema)

	r := NewRegistry()
	require.NoError(t, LoadInto(r, base))

	assert.Equal(t, 2, r.Count())
	assert.Equal(t, []string{"extraction.system", "fields.total_assets"}, r.ListPrompts())

	pt, ok := r.Prompt("extraction.system")
	require.True(t, ok)
	assert.Equal(t, "extraction", pt.Category)
	assert.Equal(t, "数値のみを答えてください。", r.SystemPromptOr("extraction.system", "fallback"))

	assert.NoError(t, r.ValidateResponse("fields.total_assets", []byte(`{"amounts": [1, 2]}`)))
	assert.Error(t, r.ValidateResponse("fields.total_assets", []byte(`{"amounts": ["x"]}`)))
	assert.NoError(t, r.ValidateResponse("extraction.system", []byte(`"anything"`)))
}

func TestLoadInto_Errors(t *testing.T) {
	t.Run("missing prompts directory", func(t *testing.T) {
		err := LoadInto(NewRegistry(), t.TempDir())
		require.Error(t, err)
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})

	t.Run("unknown schema reference", func(t *testing.T) {
		base := t.TempDir()
		writeFile(t, filepath.Join(base, "prompts", "segments", "disclosure.json"), `{"response_schema_ref": "nope"}`)
		assert.ErrorContains(t, LoadInto(NewRegistry(), base), "unknown schema nope")
	})

	t.Run("broken schema", func(t *testing.T) {
		base := t.TempDir()
		writeFile(t, filepath.Join(base, "prompts", "extraction", "system.json"), `{}`)
		writeFile(t, filepath.Join(base, "schemas", "broken.json"), `{"type": 12}`)
		assert.Error(t, LoadInto(NewRegistry(), base))
	})
}

func TestLoadInto_ShippedResources(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, LoadInto(r, filepath.Join("..", "..", "..", "resources")))

	pt, ok := r.Prompt(SegmentDisclosureID)
	require.True(t, ok)
	assert.Equal(t, "segment_disclosure", pt.ResponseSchema)

	tests := []struct {
		name  string
		reply string
		ok    bool
	}{
		{"bare table", `{"operatingProfitLoss": [{"segment": "附属病院", "amount": "△410,984"}], "segmentAssets": [{"segment": "合計", "amount": 71892603}]}`, true},
		{"wrapped table", `{"tableName": "セグメント情報", "data": {"operatingProfitLoss": [{"segment": "合計", "amount": -654006}]}}`, true},
		{"row without segment", `{"operatingProfitLoss": [{"amount": 100}]}`, false},
		{"no profit rows", `{"segmentAssets": []}`, false},
		{"amount as object", `{"operatingProfitLoss": [{"segment": "合計", "amount": {"value": 1}}]}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.ValidateResponse(SegmentDisclosureID, []byte(tt.reply))
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestGenerateIDFromPath(t *testing.T) {
	base := filepath.Join("resources", "prompts")
	got := generateIDFromPath(filepath.Join(base, "segments", "disclosure.json"), base)
	assert.Equal(t, "segments.disclosure", got)
	assert.Equal(t, "segments", detectCategory(filepath.Join(base, "segments", "disclosure.json"), base))
	assert.Equal(t, "default", detectCategory(filepath.Join(base, "top.json"), base))
}
