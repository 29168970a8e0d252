package report

import (
	"univ_financials/pkg/core/fields"
)

// Row is one account line of a table.
type Row struct {
	Category string `json:"category"`
	Account  string `json:"account"`
	Amount   int64  `json:"amount"`
}

// Table is one statement in table-list form.
type Table struct {
	TableName  string `json:"tableName"`
	SourcePage int    `json:"sourcePage,omitempty"`
	Unit       string `json:"unit"`
	Data       []Row  `json:"data"`
}

// otherCategory is the category given to amounts sitting directly under a
// statement rather than inside a section.
var otherCategory = map[string]string{
	fields.IncomeStatement:   "その他",
	fields.CashFlowStatement: "キャッシュフロー",
	fields.SegmentTree:       "セグメント",
}

// ToRequiredFormat flattens the report tree into tables, one per statement.
// Each leaf is categorised by its first-level section.
func ToRequiredFormat(values Values) []Table {
	tree := BuildTree(values)

	tables := make([]Table, 0, tree.root.Len())
	for st := tree.root.Oldest(); st != nil; st = st.Next() {
		statement, ok := st.Value.(*node)
		if !ok {
			continue
		}

		rows := make([]Row, 0)
		for sec := statement.Oldest(); sec != nil; sec = sec.Next() {
			switch v := sec.Value.(type) {
			case int64:
				category, ok := otherCategory[st.Key]
				if !ok {
					category = st.Key
				}
				rows = append(rows, Row{Category: category, Account: sec.Key, Amount: v})
			case *node:
				rows = appendLeaves(rows, sec.Key, v)
			}
		}

		tables = append(tables, Table{
			TableName:  st.Key,
			SourcePage: fields.StatementPage(st.Key),
			Unit:       fields.Unit,
			Data:       rows,
		})
	}
	return tables
}

func appendLeaves(rows []Row, category string, n *node) []Row {
	for pair := n.Oldest(); pair != nil; pair = pair.Next() {
		switch v := pair.Value.(type) {
		case int64:
			rows = append(rows, Row{Category: category, Account: pair.Key, Amount: v})
		case *node:
			rows = appendLeaves(rows, category, v)
		}
	}
	return rows
}

// ToStructuredTables builds the table list straight from the catalog's
// Statement, Category and Account, including the detail tables. A table is
// emitted only when at least one of its fields has a value.
func ToStructuredTables(values Values) []Table {
	byStatement := make(map[string][]Row)
	for _, f := range fields.Catalog() {
		v, ok := values.Value(f.Key)
		if !ok {
			continue
		}
		byStatement[f.Statement] = append(byStatement[f.Statement], Row{
			Category: f.Category,
			Account:  f.Account,
			Amount:   v,
		})
	}

	tables := make([]Table, 0, len(byStatement))
	for _, statement := range fields.StatementOrder {
		rows, ok := byStatement[statement]
		if !ok {
			continue
		}
		tables = append(tables, Table{TableName: statement, Unit: fields.Unit, Data: rows})
	}
	return tables
}

// FindRow returns the first row with the given account in the named table.
func FindRow(tables []Table, tableName, account string) (Row, bool) {
	for _, t := range tables {
		if t.TableName != tableName {
			continue
		}
		for _, r := range t.Data {
			if r.Account == account {
				return r, true
			}
		}
	}
	return Row{}, false
}
