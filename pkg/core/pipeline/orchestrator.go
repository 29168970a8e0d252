package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"univ_financials/pkg/core/aggregate"
	"univ_financials/pkg/core/document"
	"univ_financials/pkg/core/extract"
	"univ_financials/pkg/core/fields"
	"univ_financials/pkg/core/report"
	"univ_financials/pkg/core/segments"
	"univ_financials/pkg/core/store"
	"univ_financials/pkg/core/validate"

	"github.com/google/uuid"
)

// Documents preflights and loads statement PDFs.
type Documents interface {
	Preflight(path string) (os.FileInfo, error)
	Load(path string) (*document.Document, error)
}

// FieldRunner extracts the whole catalog and applies the fallback policy.
type FieldRunner interface {
	Run(ctx context.Context, pdfPath string) (*aggregate.Results, error)
	SetCatalog(fs []fields.Field)
}

// SegmentExtractor reads the full segment disclosure table.
type SegmentExtractor interface {
	Extract(ctx context.Context, pdfPath string) (*segments.Disclosure, error)
}

// RunRepository archives finished runs.
type RunRepository interface {
	Save(ctx context.Context, run *store.Run) error
}

// PageLocator finds the first page mentioning each keyword.
type PageLocator func(path string, keywords ...string) (map[string]int, error)

// ValidationConfig controls the accounting consistency stage.
type ValidationConfig struct {
	EnableStrictValidation bool    // failing checks stop the run
	TolerancePct           float64 // <= 0 uses validate.DefaultTolerancePct
}

// Options describe one run.
type Options struct {
	RunID          uuid.UUID // generated when nil
	PDFPath        string
	Meta           report.Meta
	SegmentsDetail bool
	LocatePages    bool
	Provider       string // recorded in the archive
	Model          string
}

// Outcome carries every shape built from one run.
type Outcome struct {
	RunID      uuid.UUID
	Document   *document.Document
	Results    *aggregate.Results
	Disclosure *segments.Disclosure

	Report   *report.Report
	Flat     *report.Accounts
	Required []report.Table
	Tables   []report.Table
	Master   *report.Master

	Checks   *validate.Report
	Archived bool
	Elapsed  time.Duration
}

// Orchestrator runs preflight, extraction, shaping, checks and archiving.
type Orchestrator struct {
	docs             Documents
	runner           FieldRunner
	segments         SegmentExtractor
	repo             RunRepository
	locate           PageLocator
	validator        *report.Validator
	validationConfig ValidationConfig
	logger           *slog.Logger
}

// NewOrchestrator wires the required stages. Segment extraction and
// archiving are attached with SetSegmentExtractor and SetRepository.
func NewOrchestrator(docs Documents, runner FieldRunner) (*Orchestrator, error) {
	validator, err := report.NewValidator()
	if err != nil {
		return nil, err
	}
	return &Orchestrator{
		docs:      docs,
		runner:    runner,
		locate:    document.FindPages,
		validator: validator,
		validationConfig: ValidationConfig{
			TolerancePct: validate.DefaultTolerancePct,
		},
		logger: slog.Default(),
	}, nil
}

// SetSegmentExtractor enables the segment detail stage.
func (p *Orchestrator) SetSegmentExtractor(s SegmentExtractor) {
	p.segments = s
}

// SetRepository enables archiving. A nil repository disables it.
func (p *Orchestrator) SetRepository(repo RunRepository) {
	p.repo = repo
}

// SetPageLocator replaces the page search used for page hints.
func (p *Orchestrator) SetPageLocator(l PageLocator) {
	p.locate = l
}

// SetValidationConfig updates the validation configuration.
func (p *Orchestrator) SetValidationConfig(config ValidationConfig) {
	p.validationConfig = config
}

// SetLogger replaces the logger.
func (p *Orchestrator) SetLogger(l *slog.Logger) {
	if l != nil {
		p.logger = l
	}
}

// Run executes one extraction. Fatal conditions are returned as errors; the
// Outcome is returned alongside so callers can report what was extracted.
func (p *Orchestrator) Run(ctx context.Context, opts Options) (*Outcome, error) {
	start := time.Now()
	out := &Outcome{RunID: opts.RunID}
	if out.RunID == uuid.Nil {
		out.RunID = uuid.New()
	}
	logger := p.logger.With("run_id", out.RunID.String())

	// 1. Preflight
	if _, err := p.docs.Preflight(opts.PDFPath); err != nil {
		return out, fmt.Errorf("preflight failed: %w", err)
	}
	doc, err := p.docs.Load(opts.PDFPath)
	if err != nil {
		return out, fmt.Errorf("preflight failed: %w", err)
	}
	out.Document = doc
	logger.Info("pipeline.start", "pdf", opts.PDFPath, "pages", doc.Pages, "sha256", doc.SHA256)

	if opts.LocatePages && p.locate != nil {
		p.applyPageHints(opts.PDFPath, logger)
	}

	// 2. Aggregate
	results, err := p.runner.Run(ctx, opts.PDFPath)
	out.Results = results
	if err != nil {
		return out, err
	}

	// 3. Segment detail
	if opts.SegmentsDetail && p.segments != nil {
		disclosure, err := p.segments.Extract(ctx, opts.PDFPath)
		if err != nil {
			logger.Warn("pipeline.segments.failed", "error", err)
		} else {
			out.Disclosure = disclosure
		}
	}

	// 4. Shapes
	meta := opts.Meta
	if meta.SourcePath == "" {
		meta.SourcePath = opts.PDFPath
	}
	if err := p.buildShapes(out, meta, results); err != nil {
		return out, err
	}

	// 5. Consistency
	out.Checks = p.check(results, out.Disclosure, logger)
	if p.validationConfig.EnableStrictValidation {
		if err := out.Checks.Err(); err != nil {
			return out, err
		}
	}

	// 6. Archive
	if p.repo != nil {
		if err := p.archive(ctx, out, opts); err != nil {
			logger.Error("pipeline.archive.failed", "error", err)
		} else {
			out.Archived = true
		}
	}

	out.Elapsed = time.Since(start)
	logger.Info("pipeline.complete",
		"fields", results.Len(),
		"fallbacks", len(results.FromSource(extract.SourceFallback)),
		"elapsed_ms", out.Elapsed.Milliseconds())
	return out, nil
}

func (p *Orchestrator) applyPageHints(path string, logger *slog.Logger) {
	found, err := p.locate(path, fields.StatementOrder...)
	if err != nil {
		logger.Warn("pipeline.pages.failed", "error", err)
		return
	}
	if len(found) == 0 {
		return
	}
	logger.Debug("pipeline.pages.located", "pages", found)
	p.runner.SetCatalog(fields.ApplyPageHints(fields.Catalog(), found))
}

func (p *Orchestrator) buildShapes(out *Outcome, meta report.Meta, values report.Values) error {
	out.Report = report.ToReport(meta, values)
	out.Flat = report.ToFlat(values)
	out.Required = report.ToRequiredFormat(values)
	out.Tables = report.ToStructuredTables(values)
	out.Master = report.ToMaster(meta, values)

	if out.Disclosure != nil {
		extra := out.Disclosure.Table()
		out.Tables = append(out.Tables, extra)
		out.Master.FinancialStatements = append(out.Master.FinancialStatements, extra)
		out.Master.TotalTables = len(out.Master.FinancialStatements)
	}

	shapes := []struct {
		kind report.Kind
		doc  any
	}{
		{report.KindReport, out.Report},
		{report.KindFlat, out.Flat},
		{report.KindRequired, out.Required},
		{report.KindTables, out.Tables},
		{report.KindMaster, out.Master},
	}
	for _, s := range shapes {
		if err := p.validator.Validate(s.kind, s.doc); err != nil {
			return err
		}
	}
	return nil
}

func (p *Orchestrator) check(values validate.Values, disclosure *segments.Disclosure, logger *slog.Logger) *validate.Report {
	tol := p.validationConfig.TolerancePct
	if tol <= 0 {
		tol = validate.DefaultTolerancePct
	}
	checks := validate.Run(values, validate.DefaultChecks, tol)

	if disclosure != nil {
		if total, ok := disclosure.Assets(segments.TotalSegment); ok {
			if assets, ok := values.Value("total_assets"); ok {
				checks.Add(validate.Compare("セグメント資産合計 = 資産合計", total, assets, tol))
			}
		}
		if hospital, ok := disclosure.ProfitLoss("附属病院"); ok {
			if reported, ok := values.Value("segment_profit_loss"); ok {
				checks.Add(validate.Compare("附属病院業務損益", hospital, reported, tol))
			}
		}
	}

	for _, f := range checks.Findings {
		switch {
		case f.Skipped:
			logger.Debug("validate.check.skipped", "check", f.Name, "note", f.Note)
		case f.Passed:
			logger.Debug("validate.check.ok", "check", f.Name, "diff_pct", f.DiffPct)
		case p.validationConfig.EnableStrictValidation:
			logger.Error("validate.check.failed", "check", f.Name,
				"calculated", f.Calculated, "reported", f.Reported, "diff_pct", f.DiffPct)
		default:
			logger.Warn("validate.check.failed", "check", f.Name,
				"calculated", f.Calculated, "reported", f.Reported, "diff_pct", f.DiffPct)
		}
	}
	return checks
}

func (p *Orchestrator) archive(ctx context.Context, out *Outcome, opts Options) error {
	results, err := json.Marshal(out.Results.All())
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	rep, err := json.Marshal(out.Report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	run := &store.Run{
		ID:        out.RunID,
		PDFPath:   opts.PDFPath,
		PDFSHA256: out.Document.SHA256,
		Provider:  opts.Provider,
		Model:     opts.Model,
		Results:   results,
		Report:    rep,
		CreatedAt: time.Now().UTC(),
	}
	return p.repo.Save(ctx, run)
}

// UnresolvedFields returns the field keys named by an unresolved-fields error.
func UnresolvedFields(err error) []string {
	var ue *aggregate.UnresolvedFieldsError
	if errors.As(err, &ue) {
		return ue.Fields
	}
	return nil
}
