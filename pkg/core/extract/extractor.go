package extract

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"univ_financials/pkg/core/document"
	"univ_financials/pkg/core/fields"
	"univ_financials/pkg/core/llm"
)

// DocumentSource loads a PDF for sending to the model.
type DocumentSource interface {
	Load(path string) (*document.Document, error)
}

// Extractor extracts single figures from a statement PDF. It never returns
// an error: every failure is folded into the ExtractionResult.
type Extractor struct {
	provider llm.Provider
	docs     DocumentSource
	prompts  *fields.PromptRenderer
	cache    *ResponseCache
	logger   *slog.Logger
	options  map[string]interface{}
}

// NewExtractor creates an extractor. prompts may be nil, in which case the
// built-in prompts are used.
func NewExtractor(provider llm.Provider, docs DocumentSource, prompts *fields.PromptRenderer) *Extractor {
	if prompts == nil {
		prompts = &fields.PromptRenderer{}
	}
	return &Extractor{
		provider: provider,
		docs:     docs,
		prompts:  prompts,
		logger:   slog.Default(),
		options:  make(map[string]interface{}),
	}
}

// SetCache enables answer caching. nil disables it.
func (e *Extractor) SetCache(c *ResponseCache) {
	e.cache = c
}

// SetLogger replaces the logger, typically with one carrying a run id.
func (e *Extractor) SetLogger(l *slog.Logger) {
	if l != nil {
		e.logger = l
	}
}

// SetOption sets a provider option such as "model" or "temperature".
func (e *Extractor) SetOption(key string, value interface{}) {
	e.options[key] = value
}

// ExtractField sends an arbitrary prompt together with the PDF.
func (e *Extractor) ExtractField(ctx context.Context, pdfPath, prompt string) ExtractionResult {
	return e.extract(ctx, pdfPath, "", prompt)
}

// Extract renders the catalog prompt for f and extracts it.
func (e *Extractor) Extract(ctx context.Context, pdfPath string, f fields.Field) ExtractionResult {
	prompt, err := e.prompts.Render(f)
	if err != nil {
		e.logger.Warn("extract.field.failed", "field", f.Key, "error", err)
		return Failed(f.Key, nil, fmt.Errorf("failed to render prompt: %w", err))
	}
	return e.extract(ctx, pdfPath, f.Key, prompt)
}

func (e *Extractor) extract(ctx context.Context, pdfPath, key, prompt string) ExtractionResult {
	start := time.Now()
	log := e.logger.With("field", key)
	log.Debug("extract.field.start", "pdf", pdfPath)

	fail := func(raw *string, err error) ExtractionResult {
		log.Warn("extract.field.failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return Failed(key, raw, err)
	}

	if err := ctx.Err(); err != nil {
		return fail(nil, err)
	}

	doc, err := e.docs.Load(pdfPath)
	if err != nil {
		return fail(nil, err)
	}

	source := SourceLLM
	var answer, cacheKey string
	if e.cache != nil {
		cacheKey = e.cache.Key(doc.SHA256, e.cacheModel(), prompt)
		if cached, ok := e.cache.Get(cacheKey); ok {
			answer, source = cached, SourceCache
		}
	}

	if source == SourceLLM {
		answer, err = e.provider.GenerateFromDocument(ctx, prompt, e.prompts.SystemPrompt(), doc.ForLLM(), e.options)
		if err != nil {
			return fail(nil, fmt.Errorf("%s request failed: %w", e.provider.Name(), err))
		}
	}

	result := Interpret(key, answer, source)
	if !result.Success {
		log.Warn("extract.field.failed", "error", result.Error, "raw", result.Raw(), "elapsed_ms", time.Since(start).Milliseconds())
		return result
	}

	if source == SourceLLM && e.cache != nil {
		if err := e.cache.Set(cacheKey, answer); err != nil {
			log.Warn("extract.cache.write_failed", "error", err)
		}
	}

	value, _ := result.Value()
	log.Info("extract.field.ok", "value", value, "source", source, "elapsed_ms", time.Since(start).Milliseconds())
	return result
}

func (e *Extractor) cacheModel() string {
	if m, ok := e.options["model"].(string); ok && m != "" {
		return e.provider.Name() + "/" + m
	}
	return e.provider.Name()
}
