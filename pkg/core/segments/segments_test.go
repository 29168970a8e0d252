package segments

import (
	"context"
	"errors"
	"testing"

	"univ_financials/pkg/core/document"
	"univ_financials/pkg/core/fields"
	"univ_financials/pkg/core/llm"
	"univ_financials/pkg/core/prompt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleReply = "```json\n" + `{
  "operatingProfitLoss": [
    {"segment": "学部研究科等", "amount": 354270},
    {"segment": "附属病院", "amount": "△410,984"},
    {"segment": "附属学校", "amount": 93455},
    {"segment": "法人共通", "amount": -503837},
    {"segment": "合計", "amount": -654006},
  ],
  "segmentAssets": [
    {"segment": "合計", "amount": "71,892,603"}
  ]
}` + "\n```"

type mockProvider struct {
	GenerateFromDocumentFunc func(ctx context.Context, prompt, systemPrompt string, options map[string]interface{}) (string, error)
}

func (m *mockProvider) GenerateResponse(ctx context.Context, prompt, systemPrompt string, options map[string]interface{}) (string, error) {
	return "", errors.New("not used")
}

func (m *mockProvider) GenerateFromDocument(ctx context.Context, prompt, systemPrompt string, doc llm.Document, options map[string]interface{}) (string, error) {
	return m.GenerateFromDocumentFunc(ctx, prompt, systemPrompt, options)
}

func (m *mockProvider) Name() string { return "mock" }

type mockDocs struct{}

func (mockDocs) Load(path string) (*document.Document, error) {
	return &document.Document{Path: path, Data: []byte("%PDF"), SHA256: "abc", Pages: 30}, nil
}

func TestParse(t *testing.T) {
	d, err := Parse(sampleReply)
	require.NoError(t, err)
	require.Len(t, d.OperatingProfitLoss, 5)

	tests := []struct {
		segment string
		want    int64
	}{
		{"附属病院", -410984},
		{"学部・研究科等", 354270},
		{"附属学校", 93455},
		{TotalSegment, -654006},
	}
	for _, tt := range tests {
		t.Run(tt.segment, func(t *testing.T) {
			got, ok := d.ProfitLoss(tt.segment)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	assets, ok := d.Assets(TotalSegment)
	require.True(t, ok)
	assert.Equal(t, int64(71892603), assets)
}

func TestParse_Wrapped(t *testing.T) {
	d, err := Parse(`{"tableName":"セグメント情報","unit":"千円","data":{"operatingProfitLoss":[{"segment":"附属病院","amount":-410984}]}}`)
	require.NoError(t, err)
	got, ok := d.ProfitLoss("附属病院")
	require.True(t, ok)
	assert.Equal(t, int64(-410984), got)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"empty object", `{}`},
		{"no rows", `{"operatingProfitLoss": []}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.reply)
			assert.ErrorIs(t, err, ErrEmptyDisclosure)
		})
	}
}

func TestTable(t *testing.T) {
	d, err := Parse(sampleReply)
	require.NoError(t, err)

	tbl := d.Table()
	assert.Equal(t, fields.SegmentTree, tbl.TableName)
	assert.Zero(t, tbl.SourcePage, "structured tables carry no page")
	assert.Equal(t, fields.Unit, tbl.Unit)
	require.Len(t, tbl.Data, 6)
	assert.Equal(t, CategoryProfitLoss, tbl.Data[1].Category)
	assert.Equal(t, int64(-410984), tbl.Data[1].Amount)
	assert.Equal(t, CategoryAssets, tbl.Data[5].Category)
}

func TestExtractor_Extract(t *testing.T) {
	var gotPrompt string
	var gotOptions map[string]interface{}
	p := &mockProvider{GenerateFromDocumentFunc: func(ctx context.Context, userPrompt, systemPrompt string, options map[string]interface{}) (string, error) {
		gotPrompt, gotOptions = userPrompt, options
		return sampleReply, nil
	}}

	d, err := NewExtractor(p, mockDocs{}, nil).Extract(context.Background(), "statement.pdf")
	require.NoError(t, err)
	assert.Len(t, d.OperatingProfitLoss, 5)
	assert.Contains(t, gotPrompt, "開示すべきセグメント情報")
	assert.Equal(t, map[string]interface{}{"type": "json_object"}, gotOptions["response_format"])
}

func TestExtractor_RegistryPrompt(t *testing.T) {
	reg := prompt.NewRegistry()
	require.NoError(t, reg.Register(&prompt.Template{
		ID:             prompt.SegmentDisclosureID,
		UserPromptTmpl: "{{.Page}}ページの{{.Statement}}（{{.Unit}}）",
	}))

	var gotPrompt string
	p := &mockProvider{GenerateFromDocumentFunc: func(ctx context.Context, userPrompt, systemPrompt string, options map[string]interface{}) (string, error) {
		gotPrompt = userPrompt
		return sampleReply, nil
	}}

	_, err := NewExtractor(p, mockDocs{}, reg).Extract(context.Background(), "statement.pdf")
	require.NoError(t, err)
	assert.Equal(t, "24ページの開示すべきセグメント情報（千円）", gotPrompt)
}

func TestExtractor_ResponseSchema(t *testing.T) {
	schema, err := prompt.CompileSchema("segment_disclosure", []byte(`{
		"type": "object",
		"required": ["operatingProfitLoss"],
		"properties": {
			"operatingProfitLoss": {
				"type": "array",
				"items": {"type": "object", "required": ["segment", "amount"]}
			}
		}
	}`))
	require.NoError(t, err)

	reg := prompt.NewRegistry()
	require.NoError(t, reg.RegisterSchema(schema))
	require.NoError(t, reg.Register(&prompt.Template{
		ID:             prompt.SegmentDisclosureID,
		ResponseSchema: "segment_disclosure",
	}))

	tests := []struct {
		name    string
		reply   string
		wantErr bool
	}{
		{"repaired reply passes", sampleReply, false},
		{"row without segment", `{"operatingProfitLoss": [{"amount": 100}]}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &mockProvider{GenerateFromDocumentFunc: func(ctx context.Context, userPrompt, systemPrompt string, options map[string]interface{}) (string, error) {
				return tt.reply, nil
			}}
			d, err := NewExtractor(p, mockDocs{}, reg).Extract(context.Background(), "statement.pdf")
			if tt.wantErr {
				assert.ErrorContains(t, err, "segment reply rejected")
				assert.Nil(t, d)
				return
			}
			require.NoError(t, err)
			assert.Len(t, d.OperatingProfitLoss, 5)
		})
	}
}

func TestExtractor_ProviderError(t *testing.T) {
	p := &mockProvider{GenerateFromDocumentFunc: func(ctx context.Context, userPrompt, systemPrompt string, options map[string]interface{}) (string, error) {
		return "", errors.New("quota exceeded")
	}}
	_, err := NewExtractor(p, mockDocs{}, nil).Extract(context.Background(), "statement.pdf")
	assert.ErrorContains(t, err, "quota exceeded")
}
