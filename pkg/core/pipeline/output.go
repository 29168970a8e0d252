package pipeline

import (
	"encoding/json"
	"fmt"
	"io"

	"univ_financials/pkg/core/report"
)

// Shape returns the shape selected by format, ready for JSON encoding.
func (o *Outcome) Shape(format string) (any, error) {
	switch format {
	case "report":
		return o.Report, nil
	case "flat":
		return o.Flat, nil
	case "required":
		return o.Required, nil
	case "tables":
		return o.Tables, nil
	case "master":
		return o.Master, nil
	}
	return nil, fmt.Errorf("unknown output format %q", format)
}

// Write encodes the selected shape to w. "xlsx" writes a workbook of the
// structured tables; every other format is indented JSON with Japanese text
// left unescaped.
func (o *Outcome) Write(w io.Writer, format string) error {
	if format == "xlsx" {
		return report.WriteXLSX(w, o.Tables)
	}
	doc, err := o.Shape(format)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode %s output: %w", format, err)
	}
	return nil
}
