package fields

import (
	"strings"
	"testing"

	"univ_financials/pkg/core/prompt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var coreKeys = []string{
	"segment_profit_loss", "total_liabilities", "current_liabilities", "ordinary_expenses",
	"total_assets", "current_assets", "fixed_assets", "total_revenue", "total_equity",
	"hospital_revenue", "operating_grant_revenue", "tuition_revenue", "research_revenue",
	"personnel_costs", "medical_costs", "education_costs", "research_costs",
	"operating_loss", "net_loss", "operating_cf", "investing_cf", "financing_cf",
	"academic_segment", "school_segment",
}

func TestCatalog_Integrity(t *testing.T) {
	cat := Catalog()
	require.Len(t, cat, 28)

	seenKeys := make(map[string]bool)
	seenAccounts := make(map[string]bool)
	for _, f := range cat {
		assert.False(t, seenKeys[f.Key], "duplicate key %s", f.Key)
		assert.False(t, seenAccounts[f.Account], "duplicate account %s", f.Account)
		seenKeys[f.Key] = true
		seenAccounts[f.Account] = true

		assert.NotEmpty(t, f.Statement, f.Key)
		assert.NotEmpty(t, f.Category, f.Key)
		assert.NotEmpty(t, f.Location, f.Key)
		assert.Contains(t, StatementOrder, f.Statement, f.Key)
		if f.InTree() {
			assert.Equal(t, f.TreePath[len(f.TreePath)-1] == f.Account || f.Statement == SegmentInformation, true, f.Key)
		}
	}

	for _, key := range coreKeys {
		f, ok := Lookup(key)
		require.True(t, ok, key)
		assert.True(t, f.InTree(), "%s should be part of the report tree", key)
	}
}

func TestCatalog_ReturnsCopy(t *testing.T) {
	cat := Catalog()
	cat[0].Account = "changed"
	f, _ := Lookup(cat[0].Key)
	assert.NotEqual(t, "changed", f.Account)
	assert.Equal(t, len(Catalog()), len(Keys()))
}

func TestKeys_ExtractionOrder(t *testing.T) {
	want := []string{
		// 貸借対照表
		"current_assets", "fixed_assets", "total_assets",
		"current_liabilities", "total_liabilities", "total_equity",
		// 損益計算書
		"total_revenue", "hospital_revenue", "operating_grant_revenue",
		"tuition_revenue", "research_revenue", "ordinary_expenses",
		"personnel_costs", "medical_costs", "education_costs", "research_costs",
		"operating_loss", "net_loss",
		// キャッシュフロー計算書
		"operating_cf", "investing_cf", "financing_cf",
		// セグメント情報
		"academic_segment", "segment_profit_loss", "school_segment",
		// 明細
		"business_implementation_cost", "fixed_asset_details",
		"borrowing_details", "operational_cost_details",
	}
	assert.Equal(t, want, Keys())
}

func TestStatementPage(t *testing.T) {
	assert.Equal(t, 3, StatementPage(BalanceSheet))
	assert.Equal(t, 5, StatementPage(IncomeStatement))
	assert.Equal(t, 24, StatementPage(SegmentTree))
	assert.Equal(t, 24, StatementPage(SegmentInformation))
	assert.Equal(t, 0, StatementPage("存在しない表"))
}

func TestApplyPageHints(t *testing.T) {
	out := ApplyPageHints(Catalog(), map[string]int{
		BalanceSheet:       7,
		SegmentInformation: 30,
	})

	for _, f := range out {
		switch f.Statement {
		case BalanceSheet:
			assert.Equal(t, 7, f.Page, f.Key)
		case SegmentInformation:
			// location already names page 24
			assert.Equal(t, 24, f.Page, f.Key)
		}
	}
	orig, _ := Lookup("total_assets")
	assert.Equal(t, 3, orig.Page)
}

func TestRender_Builtin(t *testing.T) {
	r := &PromptRenderer{}
	f, _ := Lookup("total_liabilities")

	got, err := r.Render(f)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(got, "このPDFファイルの貸借対照表から「負債合計」の値を正確に抽出してください。"))
	assert.Contains(t, got, "1. 貸借対照表の「負債の部」セクションを探してください")
	assert.Contains(t, got, "値が△記号で始まっている場合は、それは負の値を意味します")
	assert.Contains(t, got, "（例：27,947,258）")
	assert.Contains(t, got, "注意：「純資産合計」「資産合計」ではなく、必ず「負債合計」を抽出してください。")
	assert.Contains(t, got, "4ページ付近")
	assert.True(t, strings.HasSuffix(got, "回答は抽出した値のみを返してください。説明は不要です。"))
}

func TestRender_SegmentRow(t *testing.T) {
	r := &PromptRenderer{}
	f, _ := Lookup("segment_profit_loss")

	got, err := r.Render(f)
	require.NoError(t, err)
	assert.Contains(t, got, "24ページにある「(19) 開示すべきセグメント情報」という表から「附属病院」行の「業務損益」の値")
	assert.Contains(t, got, "（例：△410,984）")
	assert.NotContains(t, got, "ページ付近")
	assert.NotContains(t, got, "注意：")
}

func TestRender_RegistryOverride(t *testing.T) {
	reg := prompt.NewRegistry()
	require.NoError(t, reg.Register(&prompt.Template{
		ID:             "fields.net_loss",
		UserPromptTmpl: "{{.Statement}}の「{{.Account}}」を{{.Unit}}で答えてください。",
	}))
	require.NoError(t, reg.Register(&prompt.Template{
		ID:           prompt.ExtractionSystemID,
		SystemPrompt: "custom system",
	}))
	r := &PromptRenderer{Registry: reg}

	f, _ := Lookup("net_loss")
	got, err := r.Render(f)
	require.NoError(t, err)
	assert.Equal(t, "損益計算書の「当期純損失」を千円で答えてください。", got)
	assert.Equal(t, "custom system", r.SystemPrompt())

	other, _ := Lookup("operating_loss")
	got, err = r.Render(other)
	require.NoError(t, err)
	assert.Contains(t, got, "「経常損失」")

	assert.Equal(t, defaultSystemPrompt, (&PromptRenderer{}).SystemPrompt())
}
