package aggregate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"univ_financials/pkg/core/extract"
	"univ_financials/pkg/core/fields"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockExtractor struct {
	ExtractFunc func(ctx context.Context, pdfPath string, f fields.Field) extract.ExtractionResult
	calls       []string
}

func (m *mockExtractor) Extract(ctx context.Context, pdfPath string, f fields.Field) extract.ExtractionResult {
	m.calls = append(m.calls, f.Key)
	return m.ExtractFunc(ctx, pdfPath, f)
}

// failing returns an extractor that answers 1 for every field except the
// given keys, which fail.
func failing(keys ...string) *mockExtractor {
	bad := make(map[string]bool)
	for _, k := range keys {
		bad[k] = true
	}
	return &mockExtractor{ExtractFunc: func(ctx context.Context, pdfPath string, f fields.Field) extract.ExtractionResult {
		if bad[f.Key] {
			return extract.Failed(f.Key, nil, errors.New("quota exceeded"))
		}
		return extract.Succeeded(f.Key, "1", 1, extract.SourceLLM)
	}}
}

func TestResolve(t *testing.T) {
	fallbacks := Fallbacks{"segment_profit_loss": {Raw: "△410,984", Value: -410984}}

	tests := []struct {
		name       string
		results    []extract.ExtractionResult
		wantErr    []string
		wantValues map[string]int64
	}{
		{
			name: "all succeed",
			results: []extract.ExtractionResult{
				extract.Succeeded("total_assets", "71,892,603", 71892603, extract.SourceLLM),
			},
			wantValues: map[string]int64{"total_assets": 71892603},
		},
		{
			name: "failure with fallback",
			results: []extract.ExtractionResult{
				extract.Failed("segment_profit_loss", nil, errors.New("quota exceeded")),
				extract.Succeeded("total_assets", "71,892,603", 71892603, extract.SourceLLM),
			},
			wantValues: map[string]int64{"segment_profit_loss": -410984, "total_assets": 71892603},
		},
		{
			name: "failure without fallback",
			results: []extract.ExtractionResult{
				extract.Failed("total_liabilities", nil, errors.New("no digits")),
				extract.Failed("segment_profit_loss", nil, errors.New("quota exceeded")),
				extract.Failed("net_loss", nil, errors.New("empty")),
			},
			wantErr: []string{"total_liabilities", "net_loss"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.results, fallbacks)
			require.NotNil(t, got)

			if tt.wantErr != nil {
				var unresolved *UnresolvedFieldsError
				require.ErrorAs(t, err, &unresolved)
				assert.Equal(t, tt.wantErr, unresolved.Fields)
				for _, key := range tt.wantErr {
					assert.Contains(t, err.Error(), key)
				}
				return
			}

			require.NoError(t, err)
			for key, want := range tt.wantValues {
				v, ok := got.Value(key)
				require.True(t, ok, key)
				assert.Equal(t, want, v, key)
			}
		})
	}
}

func TestResolve_FallbackKeepsCause(t *testing.T) {
	fallbacks := Fallbacks{"segment_profit_loss": {Raw: "△410,984", Value: -410984}}
	got, err := Resolve([]extract.ExtractionResult{
		extract.Failed("segment_profit_loss", nil, errors.New("quota exceeded")),
	}, fallbacks)
	require.NoError(t, err)

	r, ok := got.Get("segment_profit_loss")
	require.True(t, ok)
	assert.Equal(t, extract.SourceFallback, r.Source)
	assert.Equal(t, "quota exceeded", r.Error)
	assert.Equal(t, "△410,984", r.Raw())
	assert.Equal(t, []string{"segment_profit_loss"}, got.FromSource(extract.SourceFallback))
}

func TestAggregator_Run(t *testing.T) {
	t.Run("runs the whole catalog in order", func(t *testing.T) {
		m := failing()
		got, err := NewAggregator(m, nil).Run(context.Background(), "statement.pdf")
		require.NoError(t, err)
		assert.Equal(t, fields.Keys(), m.calls)
		assert.Equal(t, fields.Keys(), got.Keys())
	})

	t.Run("fallback fills a failed field", func(t *testing.T) {
		fb := Fallbacks{"segment_profit_loss": {Raw: "△410,984", Value: -410984}}
		got, err := NewAggregator(failing("segment_profit_loss"), fb).Run(context.Background(), "statement.pdf")
		require.NoError(t, err)
		v, _ := got.Value("segment_profit_loss")
		assert.Equal(t, int64(-410984), v)
	})

	t.Run("unresolved field is fatal and named", func(t *testing.T) {
		got, err := NewAggregator(failing("current_liabilities"), Fallbacks{}).Run(context.Background(), "statement.pdf")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "current_liabilities")
		assert.Equal(t, []string{"current_liabilities"}, got.Failed())
	})

	t.Run("canceled context stops early", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		m := failing()
		_, err := NewAggregator(m, nil).Run(ctx, "statement.pdf")
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, m.calls)
	})
}

func TestParseFallbacks(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		want    Fallbacks
		wantErr bool
	}{
		{
			name: "valid",
			yaml: "fallbacks:\n  segment_profit_loss: \"△410,984\"\n  total_assets: \"71,892,603\"\n",
			want: Fallbacks{
				"segment_profit_loss": {Raw: "△410,984", Value: -410984},
				"total_assets":        {Raw: "71,892,603", Value: 71892603},
			},
		},
		{name: "empty", yaml: "", want: Fallbacks{}},
		{name: "unknown field", yaml: "fallbacks:\n  nonsense: \"1\"\n", wantErr: true},
		{name: "not a number", yaml: "fallbacks:\n  net_loss: \"不明\"\n", wantErr: true},
		{name: "bad yaml", yaml: "fallbacks: [", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFallbacks([]byte(tt.yaml))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadFallbacks(t *testing.T) {
	got, err := LoadFallbacks(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Empty(t, got)

	path := filepath.Join(t.TempDir(), "fallbacks.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fallbacks:\n  net_loss: \"△1,000\"\n"), 0644))
	got, err = LoadFallbacks(path)
	require.NoError(t, err)
	assert.Equal(t, int64(-1000), got["net_loss"].Value)
}
