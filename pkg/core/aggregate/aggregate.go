// Package aggregate runs every catalog field through the extractor and
// applies the fallback policy: a failed field is tolerated only when a
// pre-approved figure exists for it.
package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"univ_financials/pkg/core/extract"
	"univ_financials/pkg/core/fields"
)

// UnresolvedFieldsError lists the fields that failed and had no fallback.
type UnresolvedFieldsError struct {
	Fields []string
}

func (e *UnresolvedFieldsError) Error() string {
	return fmt.Sprintf("failed to extract: %s", strings.Join(e.Fields, ", "))
}

// FieldExtractor extracts one catalog field.
type FieldExtractor interface {
	Extract(ctx context.Context, pdfPath string, f fields.Field) extract.ExtractionResult
}

// Aggregator extracts the catalog sequentially.
type Aggregator struct {
	extractor FieldExtractor
	catalog   []fields.Field
	fallbacks Fallbacks
	logger    *slog.Logger
}

// NewAggregator creates an aggregator over the full catalog.
func NewAggregator(extractor FieldExtractor, fallbacks Fallbacks) *Aggregator {
	return &Aggregator{
		extractor: extractor,
		catalog:   fields.Catalog(),
		fallbacks: fallbacks,
		logger:    slog.Default(),
	}
}

// SetCatalog replaces the field list, e.g. with page hints applied.
func (a *Aggregator) SetCatalog(fs []fields.Field) {
	a.catalog = fs
}

// SetLogger replaces the logger.
func (a *Aggregator) SetLogger(l *slog.Logger) {
	if l != nil {
		a.logger = l
	}
}

// Run extracts every field in order and resolves failures. The returned
// Results are non-nil even when an *UnresolvedFieldsError is returned.
func (a *Aggregator) Run(ctx context.Context, pdfPath string) (*Results, error) {
	raw := make([]extract.ExtractionResult, 0, len(a.catalog))
	for i, f := range a.catalog {
		if err := ctx.Err(); err != nil {
			return NewResults(raw), fmt.Errorf("aggregation interrupted at %s: %w", f.Key, err)
		}
		a.logger.Debug("aggregate.field", "index", i+1, "total", len(a.catalog), "field", f.Key)
		raw = append(raw, a.extractor.Extract(ctx, pdfPath, f))
	}

	results, err := Resolve(raw, a.fallbacks)
	if used := results.FromSource(extract.SourceFallback); len(used) > 0 {
		a.logger.Warn("aggregate.fallback.used", "fields", used)
	}
	if err != nil {
		a.logger.Error("aggregate.unresolved", "fields", results.Failed())
		return results, err
	}
	a.logger.Info("aggregate.complete", "fields", results.Len())
	return results, nil
}

// Resolve substitutes fallbacks for failed results and reports what is left.
func Resolve(results []extract.ExtractionResult, fallbacks Fallbacks) (*Results, error) {
	resolved := make([]extract.ExtractionResult, len(results))
	for i, r := range results {
		resolved[i] = r
		if r.Success {
			continue
		}
		if fb, ok := fallbacks[r.Field]; ok {
			resolved[i] = extract.FromFallback(r.Field, fb.Raw, fb.Value, r.Error)
		}
	}

	out := NewResults(resolved)
	if failed := out.Failed(); len(failed) > 0 {
		return out, &UnresolvedFieldsError{Fields: failed}
	}
	return out, nil
}
