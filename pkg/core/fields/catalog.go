// Package fields defines the fixed list of figures pulled from a national
// university corporation's financial statements and the prompt used for each.
package fields

import "strings"

// Statement (table) names as printed in the statements.
const (
	BalanceSheet         = "貸借対照表"
	IncomeStatement      = "損益計算書"
	CashFlowStatement    = "キャッシュフロー計算書"
	SegmentInformation   = "開示すべきセグメント情報"
	BusinessCost         = "国立大学法人等業務実施コスト計算書"
	FixedAssetDetails    = "固定資産の取得及び処分並びに減価償却費及び減損損失の明細"
	BorrowingDetails     = "借入金の明細"
	OperatingCostDetails = "業務費及び一般管理費の明細"

	// SegmentTree is the statement key used for segments in the report tree.
	SegmentTree = "セグメント情報"
)

// Unit is the unit of every amount in the statements and in all outputs.
const Unit = "千円"

// Field is one figure to extract.
type Field struct {
	Key       string   // catalog key, e.g. "total_liabilities"
	Statement string   // table the figure belongs to
	Category  string   // row category inside the table
	Account   string   // account label; also the flat-map key
	TreePath  []string // path in the report tree; empty for table-only fields
	Page      int      // page hint in the source PDF (0 = unknown)

	// Prompt material
	Location string   // where to look, e.g. "貸借対照表"
	Subject  string   // what to extract; defaults to 「Account」
	Steps    []string // field-specific numbered instructions
	Avoid    []string // neighbouring accounts the model tends to confuse
	Example  string   // sample answer as printed
}

// SubjectText returns the phrase naming the figure in prompts.
func (f Field) SubjectText() string {
	if f.Subject != "" {
		return f.Subject
	}
	return "「" + f.Account + "」"
}

// InTree reports whether the field appears in the nested report tree.
func (f Field) InTree() bool {
	return len(f.TreePath) > 0
}

const segmentLocation = "24ページにある「(19) 開示すべきセグメント情報」という表"

func segmentField(key, segment, account string, tree string, example string) Field {
	return Field{
		Key:       key,
		Statement: SegmentInformation,
		Category:  "セグメント情報",
		Account:   account,
		TreePath:  []string{SegmentTree, tree, "業務損益"},
		Page:      24,
		Location:  segmentLocation,
		Subject:   "「" + segment + "」行の「業務損益」",
		Steps: []string{
			"24ページの「(19) 開示すべきセグメント情報」表を探してください",
			"その表の中で「" + segment + "」という行を見つけてください",
			"「" + segment + "」行の「業務損益」列の値を抽出してください",
		},
		Example: example,
	}
}

func detailField(key, statement, category, account string, page int, pages string) Field {
	return Field{
		Key:       key,
		Statement: statement,
		Category:  category,
		Account:   account,
		Page:      page,
		Location:  pages + "ページにある「" + statement + "」",
		Subject:   "表の最終行にある合計額",
		Steps: []string{
			pages + "ページの「" + statement + "」を探してください",
			"表の最終行（合計）の金額を特定してください。複数列がある場合は期末残高または合計の列を使ってください",
		},
	}
}

var catalog = []Field{
	// 貸借対照表
	{
		Key: "current_assets", Statement: BalanceSheet, Category: "資産の部", Account: "流動資産合計",
		TreePath: []string{BalanceSheet, "資産の部", "流動資産", "流動資産合計"}, Page: 3,
		Location: BalanceSheet,
		Steps: []string{
			"貸借対照表の「資産の部」セクションを探してください",
			"「流動資産」サブセクションの最後にある「流動資産合計」を見つけてください",
		},
		Avoid: []string{"固定資産合計", "資産合計"},
	},
	{
		Key: "fixed_assets", Statement: BalanceSheet, Category: "資産の部", Account: "固定資産合計",
		TreePath: []string{BalanceSheet, "資産の部", "固定資産", "固定資産合計"}, Page: 3,
		Location: BalanceSheet,
		Steps: []string{
			"貸借対照表の「資産の部」セクションを探してください",
			"「固定資産」サブセクションの最後にある「固定資産合計」を見つけてください",
		},
		Avoid: []string{"流動資産合計", "資産合計"},
	},
	{
		Key: "total_assets", Statement: BalanceSheet, Category: "資産の部", Account: "資産合計",
		TreePath: []string{BalanceSheet, "資産の部", "資産合計"}, Page: 3,
		Location: BalanceSheet,
		Steps: []string{
			"貸借対照表の「資産の部」セクションを探してください",
			"「資産の部」の最後にある「資産合計」を見つけてください",
		},
		Avoid:   []string{"負債純資産合計", "固定資産合計"},
		Example: "71,892,603",
	},
	{
		Key: "current_liabilities", Statement: BalanceSheet, Category: "負債の部", Account: "流動負債合計",
		TreePath: []string{BalanceSheet, "負債の部", "流動負債", "流動負債合計"}, Page: 4,
		Location: BalanceSheet,
		Steps: []string{
			"貸借対照表の「負債の部」セクションを探してください",
			"「負債の部」の中の「流動負債」サブセクションを特定してください",
			"「流動負債」サブセクションの最後にある「流動負債合計」という項目を見つけてください",
		},
		Avoid: []string{"固定負債合計", "負債合計", "純資産合計"},
	},
	{
		Key: "total_liabilities", Statement: BalanceSheet, Category: "負債の部", Account: "負債合計",
		TreePath: []string{BalanceSheet, "負債の部", "負債合計"}, Page: 4,
		Location: BalanceSheet,
		Steps: []string{
			"貸借対照表の「負債の部」セクションを探してください",
			"「負債の部」の最後にある「負債合計」という項目を特定してください",
		},
		Avoid:   []string{"純資産合計", "資産合計"},
		Example: "27,947,258",
	},
	{
		Key: "total_equity", Statement: BalanceSheet, Category: "純資産の部", Account: "純資産合計",
		TreePath: []string{BalanceSheet, "純資産の部", "純資産合計"}, Page: 4,
		Location: BalanceSheet,
		Steps: []string{
			"貸借対照表の「純資産の部」セクションを探してください",
			"「純資産の部」の最後にある「純資産合計」を見つけてください",
		},
		Avoid: []string{"負債合計", "負債純資産合計"},
	},

	// 損益計算書
	{
		Key: "total_revenue", Statement: IncomeStatement, Category: "経常収益", Account: "経常収益合計",
		TreePath: []string{IncomeStatement, "経常収益", "経常収益合計"}, Page: 5,
		Location: IncomeStatement,
		Steps:    []string{"損益計算書の「経常収益」セクションの最後にある「経常収益合計」を見つけてください"},
		Avoid:    []string{"経常費用合計"},
	},
	{
		Key: "hospital_revenue", Statement: IncomeStatement, Category: "経常収益", Account: "附属病院収益",
		TreePath: []string{IncomeStatement, "経常収益", "附属病院収益"}, Page: 5,
		Location: IncomeStatement,
		Steps:    []string{"損益計算書の「経常収益」セクションから「附属病院収益」を見つけてください"},
	},
	{
		Key: "operating_grant_revenue", Statement: IncomeStatement, Category: "経常収益", Account: "運営費交付金収益",
		TreePath: []string{IncomeStatement, "経常収益", "運営費交付金収益"}, Page: 5,
		Location: IncomeStatement,
		Steps:    []string{"損益計算書の「経常収益」セクションから「運営費交付金収益」を見つけてください"},
	},
	{
		Key: "tuition_revenue", Statement: IncomeStatement, Category: "経常収益", Account: "学生納付金等収益",
		TreePath: []string{IncomeStatement, "経常収益", "学生納付金等収益"}, Page: 5,
		Location: IncomeStatement,
		Steps: []string{
			"損益計算書の「経常収益」セクションを探してください",
			"授業料収益・入学金収益・検定料収益がある場合はその合計を「学生納付金等収益」として扱ってください",
		},
	},
	{
		Key: "research_revenue", Statement: IncomeStatement, Category: "経常収益", Account: "受託研究等収益",
		TreePath: []string{IncomeStatement, "経常収益", "受託研究等収益"}, Page: 5,
		Location: IncomeStatement,
		Steps:    []string{"損益計算書の「経常収益」セクションから「受託研究等収益」を見つけてください"},
	},
	{
		Key: "ordinary_expenses", Statement: IncomeStatement, Category: "経常費用", Account: "経常費用合計",
		TreePath: []string{IncomeStatement, "経常費用", "経常費用合計"}, Page: 5,
		Location: IncomeStatement,
		Steps: []string{
			"損益計算書（収支計算書）を探してください",
			"損益計算書の「経常費用」セクションを特定してください",
			"「経常費用」セクションの最後にある「経常費用合計」という項目を見つけてください",
		},
		Avoid: []string{"経常収益合計", "当期純利益", "負債合計"},
	},
	{
		Key: "personnel_costs", Statement: IncomeStatement, Category: "経常費用", Account: "人件費",
		TreePath: []string{IncomeStatement, "経常費用", "人件費"}, Page: 5,
		Location: IncomeStatement,
		Steps:    []string{"損益計算書の「経常費用」セクションから「人件費」の合計額を見つけてください"},
	},
	{
		Key: "medical_costs", Statement: IncomeStatement, Category: "経常費用", Account: "診療経費",
		TreePath: []string{IncomeStatement, "経常費用", "診療経費"}, Page: 5,
		Location: IncomeStatement,
		Steps:    []string{"損益計算書の「経常費用」セクションから「診療経費」を見つけてください"},
	},
	{
		Key: "education_costs", Statement: IncomeStatement, Category: "経常費用", Account: "教育経費",
		TreePath: []string{IncomeStatement, "経常費用", "教育経費"}, Page: 5,
		Location: IncomeStatement,
		Steps:    []string{"損益計算書の「経常費用」セクションから「教育経費」を見つけてください"},
	},
	{
		Key: "research_costs", Statement: IncomeStatement, Category: "経常費用", Account: "研究経費",
		TreePath: []string{IncomeStatement, "経常費用", "研究経費"}, Page: 5,
		Location: IncomeStatement,
		Steps:    []string{"損益計算書の「経常費用」セクションから「研究経費」を見つけてください"},
	},
	{
		Key: "operating_loss", Statement: IncomeStatement, Category: "損益", Account: "経常損失",
		TreePath: []string{IncomeStatement, "経常損失"}, Page: 5,
		Location: IncomeStatement,
		Steps:    []string{"損益計算書を探してください", "「経常損失」という項目を見つけてください"},
	},
	{
		Key: "net_loss", Statement: IncomeStatement, Category: "損益", Account: "当期純損失",
		TreePath: []string{IncomeStatement, "当期純損失"}, Page: 5,
		Location: IncomeStatement,
		Steps:    []string{"損益計算書を探してください", "「当期純損失」という項目を見つけてください"},
	},

	// キャッシュフロー計算書
	{
		Key: "operating_cf", Statement: CashFlowStatement, Category: "営業活動によるキャッシュフロー", Account: "営業活動によるキャッシュフロー合計",
		TreePath: []string{CashFlowStatement, "営業活動によるキャッシュフロー", "営業活動によるキャッシュフロー合計"}, Page: 6,
		Location: CashFlowStatement,
		Steps: []string{
			"キャッシュフロー計算書を探してください",
			"「営業活動によるキャッシュフロー」セクションを見つけてください",
			"「営業活動によるキャッシュフロー合計」という項目を特定してください",
		},
	},
	{
		Key: "investing_cf", Statement: CashFlowStatement, Category: "投資活動によるキャッシュフロー", Account: "投資活動によるキャッシュフロー合計",
		TreePath: []string{CashFlowStatement, "投資活動によるキャッシュフロー", "投資活動によるキャッシュフロー合計"}, Page: 6,
		Location: CashFlowStatement,
		Steps: []string{
			"キャッシュフロー計算書を探してください",
			"「投資活動によるキャッシュフロー」セクションを見つけてください",
			"「投資活動によるキャッシュフロー合計」という項目を特定してください",
		},
	},
	{
		Key: "financing_cf", Statement: CashFlowStatement, Category: "財務活動によるキャッシュフロー", Account: "財務活動によるキャッシュフロー合計",
		TreePath: []string{CashFlowStatement, "財務活動によるキャッシュフロー", "財務活動によるキャッシュフロー合計"}, Page: 6,
		Location: CashFlowStatement,
		Steps: []string{
			"キャッシュフロー計算書を探してください",
			"「財務活動によるキャッシュフロー」セクションを見つけてください",
			"「財務活動によるキャッシュフロー合計」という項目を特定してください",
		},
	},

	// 開示すべきセグメント情報
	segmentField("academic_segment", "学部・研究科等", "学部・研究科等業務損益", "学部・研究科等", ""),
	segmentField("segment_profit_loss", "附属病院", "附属病院業務損益", "附属病院", "△410,984"),
	segmentField("school_segment", "附属学校", "附属学校業務損益", "附属学校", ""),

	// 明細 and cost statement
	detailField("business_implementation_cost", BusinessCost, "業務実施コスト", "業務実施コスト合計", 8, "8"),
	detailField("fixed_asset_details", FixedAssetDetails, "固定資産", "固定資産明細", 11, "11"),
	detailField("borrowing_details", BorrowingDetails, "借入金", "借入金明細", 13, "13"),
	detailField("operational_cost_details", OperatingCostDetails, "業務費及び一般管理費", "業務費及び一般管理費明細", 15, "15-16"),
}

// Catalog returns the fixed, ordered list of fields. Callers get a copy.
func Catalog() []Field {
	out := make([]Field, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup returns the catalog entry for key.
func Lookup(key string) (Field, bool) {
	for _, f := range catalog {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// Keys returns the catalog keys in order.
func Keys() []string {
	keys := make([]string, len(catalog))
	for i, f := range catalog {
		keys[i] = f.Key
	}
	return keys
}

// StatementOrder is the table order used by every table-list output.
var StatementOrder = []string{
	BalanceSheet,
	IncomeStatement,
	CashFlowStatement,
	BusinessCost,
	FixedAssetDetails,
	BorrowingDetails,
	OperatingCostDetails,
	SegmentInformation,
}

// StatementPage returns the first page of a statement as referenced by the
// catalog, or 0 when no field of that statement carries a page.
func StatementPage(statement string) int {
	page := 0
	for _, f := range catalog {
		if f.Statement != statement && (len(f.TreePath) == 0 || f.TreePath[0] != statement) {
			continue
		}
		if f.Page > 0 && (page == 0 || f.Page < page) {
			page = f.Page
		}
	}
	return page
}

// ApplyPageHints returns a copy of fs with Page replaced for every field whose
// statement (or tree root) has an entry in pages. Fields whose location already
// names a page keep their hint.
func ApplyPageHints(fs []Field, pages map[string]int) []Field {
	out := make([]Field, len(fs))
	for i, f := range fs {
		page, ok := pages[f.Statement]
		if ok && page > 0 && !locationHasPage(f) {
			f.Page = page
		}
		out[i] = f
	}
	return out
}

func locationHasPage(f Field) bool {
	return strings.Contains(f.Location, "ページ")
}
