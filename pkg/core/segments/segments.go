// Package segments extracts the full 開示すべきセグメント情報 table in one
// structured request.
package segments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"univ_financials/pkg/core/extract"
	"univ_financials/pkg/core/fields"
	"univ_financials/pkg/core/jpnum"
	"univ_financials/pkg/core/llm"
	"univ_financials/pkg/core/prompt"
	"univ_financials/pkg/core/report"
	"univ_financials/pkg/core/utils"
)

// TotalSegment is the label of the table's total row.
const TotalSegment = "合計"

const (
	CategoryProfitLoss = "業務損益"
	CategoryAssets     = "セグメント資産"
)

var ErrEmptyDisclosure = errors.New("segment disclosure has no operating profit rows")

// SegmentAmount is one row of a segment column.
type SegmentAmount struct {
	Segment string       `json:"segment"`
	Amount  jpnum.Amount `json:"amount"`
}

// Disclosure is the parsed segment table.
type Disclosure struct {
	OperatingProfitLoss []SegmentAmount `json:"operatingProfitLoss"`
	SegmentAssets       []SegmentAmount `json:"segmentAssets"`
}

// envelope accepts both the bare object and one wrapped in a table-shaped
// {"tableName": ..., "data": {...}} reply.
type envelope struct {
	Data *Disclosure `json:"data"`
	Disclosure
}

// Parse decodes a model reply.
func Parse(reply string) (*Disclosure, error) {
	d, _, err := parse(reply)
	return d, err
}

// parse also returns the JSON text that decoded, after fence removal and
// repair, for schema validation.
func parse(reply string) (*Disclosure, string, error) {
	var env envelope
	text, err := utils.SmartParse(reply, &env)
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse segment reply: %w", err)
	}

	d := env.Disclosure
	if env.Data != nil && len(env.Data.OperatingProfitLoss) > 0 {
		d = *env.Data
	}
	if len(d.OperatingProfitLoss) == 0 {
		return nil, text, ErrEmptyDisclosure
	}
	return &d, text, nil
}

// ProfitLoss returns the 業務損益 of a segment. Names are compared without
// spaces and middle dots, so 学部研究科等 matches 学部・研究科等.
func (d *Disclosure) ProfitLoss(segment string) (int64, bool) {
	return find(d.OperatingProfitLoss, segment)
}

// Assets returns the segment assets of a segment.
func (d *Disclosure) Assets(segment string) (int64, bool) {
	return find(d.SegmentAssets, segment)
}

func find(rows []SegmentAmount, segment string) (int64, bool) {
	want := normalizeSegment(segment)
	for _, r := range rows {
		if normalizeSegment(r.Segment) == want {
			return int64(r.Amount), true
		}
	}
	return 0, false
}

func normalizeSegment(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '　', '・', '･':
			return -1
		}
		return r
	}, jpnum.Normalize(s))
}

// Table converts the disclosure into a table for the structured outputs.
// Like every structured table it carries no source page.
func (d *Disclosure) Table() report.Table {
	rows := make([]report.Row, 0, len(d.OperatingProfitLoss)+len(d.SegmentAssets))
	for _, r := range d.OperatingProfitLoss {
		rows = append(rows, report.Row{Category: CategoryProfitLoss, Account: r.Segment, Amount: int64(r.Amount)})
	}
	for _, r := range d.SegmentAssets {
		rows = append(rows, report.Row{Category: CategoryAssets, Account: r.Segment, Amount: int64(r.Amount)})
	}
	return report.Table{
		TableName: fields.SegmentTree,
		Unit:      fields.Unit,
		Data:      rows,
	}
}

const defaultSystemPrompt = "あなたは日本の国立大学法人の財務諸表を読み取る専門家です。指示されたJSONのみを返してください。"

const defaultPrompt = `このPDFファイルの24ページにある「(19) 開示すべきセグメント情報」から、各セグメントの業務損益とセグメント資産を正確に抽出してください。

重要な指示：
1. 24ページの「(19) 開示すべきセグメント情報」表を探してください
2. 「業務損益」の行または列から、各セグメントの値を読み取ってください
3. 「セグメント資産」の行または列から、各セグメントの値を読み取ってください
4. 合計がある場合は「合計」というセグメント名で含めてください
5. △記号がある場合は負の値、△記号がない場合は正の値です
6. 金額は千円単位の整数で返してください

以下のJSONフォーマットで返してください：
{
  "operatingProfitLoss": [{"segment": "セグメント名", "amount": 0}],
  "segmentAssets": [{"segment": "セグメント名", "amount": 0}]
}

JSONのみを返してください。`

// Extractor requests and parses the segment table.
type Extractor struct {
	provider llm.Provider
	docs     extract.DocumentSource
	registry *prompt.Registry
	logger   *slog.Logger
}

// NewExtractor creates a segment extractor. registry may be nil.
func NewExtractor(provider llm.Provider, docs extract.DocumentSource, registry *prompt.Registry) *Extractor {
	return &Extractor{provider: provider, docs: docs, registry: registry, logger: slog.Default()}
}

// SetLogger replaces the logger.
func (e *Extractor) SetLogger(l *slog.Logger) {
	if l != nil {
		e.logger = l
	}
}

// Extract sends the segment prompt with the PDF and parses the reply.
func (e *Extractor) Extract(ctx context.Context, pdfPath string) (*Disclosure, error) {
	start := time.Now()

	doc, err := e.docs.Load(pdfPath)
	if err != nil {
		return nil, err
	}

	userPrompt, err := e.registry.UserPromptOr(prompt.SegmentDisclosureID, map[string]interface{}{
		"Page":      fields.StatementPage(fields.SegmentInformation),
		"Statement": fields.SegmentInformation,
		"Unit":      fields.Unit,
	}, defaultPrompt)
	if err != nil {
		return nil, fmt.Errorf("failed to render segment prompt: %w", err)
	}
	systemPrompt := e.registry.SystemPromptOr(prompt.SegmentDisclosureID, defaultSystemPrompt)

	reply, err := e.provider.GenerateFromDocument(ctx, userPrompt, systemPrompt, doc.ForLLM(), map[string]interface{}{
		"response_format": map[string]interface{}{"type": "json_object"},
	})
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", e.provider.Name(), err)
	}

	d, text, err := parse(reply)
	if err != nil {
		return nil, err
	}
	if err := e.registry.ValidateResponse(prompt.SegmentDisclosureID, []byte(text)); err != nil {
		return nil, fmt.Errorf("segment reply rejected: %w", err)
	}
	e.logger.Info("segments.extract.ok",
		"segments", len(d.OperatingProfitLoss),
		"elapsed_ms", time.Since(start).Milliseconds())
	return d, nil
}
