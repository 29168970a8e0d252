package report

import (
	"fmt"
	"time"

	"univ_financials/pkg/core/fields"
)

const (
	DefaultCompanyName = "国立大学法人山梨大学"
	DefaultFiscalYear  = "平成27年度"
)

// Meta identifies the statements being reported on.
type Meta struct {
	CompanyName    string
	FiscalYear     string
	SourcePath     string
	ExtractionDate time.Time
}

func (m Meta) withDefaults() Meta {
	if m.CompanyName == "" {
		m.CompanyName = DefaultCompanyName
	}
	if m.FiscalYear == "" {
		m.FiscalYear = DefaultFiscalYear
	}
	if m.ExtractionDate.IsZero() {
		m.ExtractionDate = time.Now()
	}
	return m
}

// Report is the nested document read by the HTML report generator.
type Report struct {
	CompanyName   string    `json:"companyName"`
	FiscalYear    string    `json:"fiscalYear"`
	Unit          string    `json:"unit"`
	Statements    *Tree     `json:"statements"`
	ExtractedText string    `json:"extractedText"`
	Accounts      *Accounts `json:"accounts"`
}

// ToReport builds the nested report.
func ToReport(meta Meta, values Values) *Report {
	meta = meta.withDefaults()
	return &Report{
		CompanyName:   meta.CompanyName,
		FiscalYear:    meta.FiscalYear,
		Unit:          fields.Unit,
		Statements:    BuildTree(values),
		ExtractedText: fmt.Sprintf("Direct PDF extraction completed from %s", meta.SourcePath),
		Accounts:      ToFlat(values),
	}
}

// Master bundles the structured tables with run metadata.
type Master struct {
	CompanyName         string  `json:"companyName"`
	FiscalYear          string  `json:"fiscalYear"`
	ExtractionDate      string  `json:"extractionDate"`
	TotalTables         int     `json:"totalTables"`
	FinancialStatements []Table `json:"financialStatements"`
}

// ToMaster builds the master document.
func ToMaster(meta Meta, values Values) *Master {
	meta = meta.withDefaults()
	tables := ToStructuredTables(values)
	return &Master{
		CompanyName:         meta.CompanyName,
		FiscalYear:          meta.FiscalYear,
		ExtractionDate:      meta.ExtractionDate.Format("2006-01-02"),
		TotalTables:         len(tables),
		FinancialStatements: tables,
	}
}
