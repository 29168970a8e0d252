package report

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// maxSheetName is Excel's limit on sheet name length.
const maxSheetName = 31

var xlsxHeaders = []string{"区分", "勘定科目", "金額（千円）"}

// BuildWorkbook writes one sheet per table. The caller closes the file.
func BuildWorkbook(tables []Table) (*excelize.File, error) {
	f := excelize.NewFile()
	defaultSheet := f.GetSheetName(0)

	used := make(map[string]bool)
	for i, t := range tables {
		sheet := sheetName(t.TableName, i, used)
		if _, err := f.NewSheet(sheet); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to create sheet %s: %w", sheet, err)
		}

		for col, h := range xlsxHeaders {
			cell, _ := excelize.CoordinatesToCellName(col+1, 1)
			_ = f.SetCellValue(sheet, cell, h)
		}
		for r, row := range t.Data {
			write := func(col int, v any) {
				cell, _ := excelize.CoordinatesToCellName(col, r+2)
				_ = f.SetCellValue(sheet, cell, v)
			}
			write(1, row.Category)
			write(2, row.Account)
			write(3, row.Amount)
		}

		_ = f.SetColWidth(sheet, "A", "A", 24)
		_ = f.SetColWidth(sheet, "B", "B", 40)
		_ = f.SetColWidth(sheet, "C", "C", 16)
	}

	if len(tables) > 0 {
		if err := f.DeleteSheet(defaultSheet); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to remove default sheet: %w", err)
		}
		f.SetActiveSheet(0)
	}
	return f, nil
}

// WriteXLSX writes the tables as an .xlsx workbook to w.
func WriteXLSX(w io.Writer, tables []Table) error {
	f, err := BuildWorkbook(tables)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// sheetName truncates long table names to Excel's limit and keeps them
// unique.
func sheetName(name string, index int, used map[string]bool) string {
	if utf8.RuneCountInString(name) > maxSheetName {
		name = string([]rune(name)[:maxSheetName])
	}
	if used[name] {
		suffix := fmt.Sprintf("_%d", index+1)
		runes := []rune(name)
		if len(runes)+len(suffix) > maxSheetName {
			runes = runes[:maxSheetName-len(suffix)]
		}
		name = string(runes) + suffix
	}
	used[name] = true
	return name
}
