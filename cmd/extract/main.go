// Command extract reads a national university financial-statement PDF
// through an LLM and writes the extracted figures in one of the supported
// output shapes.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"univ_financials/pkg/core/agent"
	"univ_financials/pkg/core/aggregate"
	"univ_financials/pkg/core/config"
	"univ_financials/pkg/core/document"
	"univ_financials/pkg/core/extract"
	"univ_financials/pkg/core/fields"
	"univ_financials/pkg/core/logging"
	"univ_financials/pkg/core/pipeline"
	"univ_financials/pkg/core/prompt"
	"univ_financials/pkg/core/report"
	"univ_financials/pkg/core/segments"
	"univ_financials/pkg/core/store"
	"univ_financials/pkg/core/verify"

	"github.com/google/uuid"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	cfg, err := config.Load(filepath.Base(os.Args[0]), os.Args[1:], os.Stderr)
	if errors.Is(err, config.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.LogLevel
	logCfg.FilePath = cfg.LogFile
	closeLog, err := logging.Setup(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to set up logging: %v\n", err)
		return 1
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := extractAndWrite(ctx, cfg); err != nil {
		if unresolved := pipeline.UnresolvedFields(err); len(unresolved) > 0 {
			slog.Error("extract.failed", "unresolved", unresolved, "error", err)
		} else {
			slog.Error("extract.failed", "error", err)
		}
		return 1
	}
	return 0
}

func extractAndWrite(ctx context.Context, cfg *config.Config) error {
	runID := uuid.New()
	logger := logging.ForRun(runID.String())
	logger.Debug("extract.config", "config", cfg.String())

	// Providers
	modelCfg, err := agent.LoadConfig(cfg.ModelsConfig)
	if err != nil {
		return err
	}
	manager := agent.NewManager(modelCfg)
	if cfg.Provider != "" {
		if err := manager.SetGlobalProvider(cfg.Provider); err != nil {
			return err
		}
	}
	if cfg.Model != "" {
		manager.SetModel(manager.GetActiveProvider(), cfg.Model)
	}
	fieldProvider, err := manager.GetProvider(agent.RoleFieldExtractor)
	if err != nil {
		return err
	}

	// Prompts
	registry := prompt.NewRegistry()
	if err := prompt.LoadInto(registry, cfg.PromptsDir); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		logger.Debug("extract.prompts.builtin", "dir", cfg.PromptsDir)
	}

	docs, err := document.NewLoader(document.DefaultMaxFileSize, 0)
	if err != nil {
		return err
	}

	extractor := extract.NewExtractor(fieldProvider, docs, &fields.PromptRenderer{Registry: registry})
	extractor.SetLogger(logger)
	if cfg.CacheEnabled() {
		cache, err := extract.NewResponseCache(cfg.CacheDir)
		if err != nil {
			return err
		}
		extractor.SetCache(cache)
	}

	fallbacks, err := aggregate.LoadFallbacks(cfg.FallbacksPath)
	if err != nil {
		return err
	}
	aggregator := aggregate.NewAggregator(extractor, fallbacks)
	aggregator.SetLogger(logger)

	orch, err := pipeline.NewOrchestrator(docs, aggregator)
	if err != nil {
		return err
	}
	orch.SetValidationConfig(pipeline.ValidationConfig{
		EnableStrictValidation: cfg.Strict,
		TolerancePct:           cfg.TolerancePct,
	})

	if cfg.SegmentsDetail {
		segmentProvider, err := manager.GetProvider(agent.RoleSegmentExtractor)
		if err != nil {
			return err
		}
		seg := segments.NewExtractor(segmentProvider, docs, registry)
		seg.SetLogger(logger)
		orch.SetSegmentExtractor(seg)
	}

	if cfg.DatabaseURL != "" {
		if err := store.InitDB(ctx, cfg.DatabaseURL); err != nil {
			logger.Warn("store.unavailable", "error", err)
		} else {
			defer store.Close()
			repo := store.NewRunRepo(store.GetPool())
			if err := repo.EnsureSchema(ctx); err != nil {
				logger.Warn("store.schema.failed", "error", err)
			} else {
				orch.SetRepository(repo)
			}
		}
	} else {
		logger.Info("store.disabled", "reason", store.ErrNotConfigured.Error())
	}

	out, err := orch.Run(ctx, pipeline.Options{
		RunID:   runID,
		PDFPath: cfg.PDFPath,
		Meta: report.Meta{
			CompanyName: cfg.CompanyName,
			FiscalYear:  cfg.FiscalYear,
			SourcePath:  cfg.PDFPath,
		},
		SegmentsDetail: cfg.SegmentsDetail,
		LocatePages:    cfg.LocatePages,
		Provider:       manager.GetActiveProvider(),
		Model:          fieldProvider.Name(),
	})
	if err != nil {
		return err
	}

	if err := write(out, cfg.Format, cfg.Out, logger); err != nil {
		return err
	}
	verifyReport(out, cfg.ExpectationsPath, logger)
	return nil
}

// verifyReport checks the published figures against the report. Mismatches
// are logged; the written output is left as is.
func verifyReport(out *pipeline.Outcome, path string, logger *slog.Logger) {
	expectations, err := verify.LoadExpectations(path)
	if err != nil {
		logger.Warn("verify.skipped", "error", err)
		return
	}
	raw, err := json.Marshal(out.Report)
	if err != nil {
		logger.Warn("verify.skipped", "error", err)
		return
	}
	results, err := verify.VerifyJSON(raw, expectations)
	if err != nil {
		logger.Warn("verify.skipped", "error", err)
		return
	}
	for _, r := range results {
		if r.Passed {
			logger.Info("verify.ok", "check", r.Name, "value", *r.Actual)
			continue
		}
		var actual any
		if r.Actual != nil {
			actual = *r.Actual
		}
		logger.Warn("verify.failed", "check", r.Name, "expected", r.Expected, "actual", actual, "error", r.Error)
	}
}

func write(out *pipeline.Outcome, format, path string, logger *slog.Logger) error {
	var w io.Writer = os.Stdout
	if path != "" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		defer f.Close()
		w = f
	}

	if err := out.Write(w, format); err != nil {
		return err
	}
	if path != "" {
		logger.Info("extract.written", "path", path, "format", format, "elapsed_ms", out.Elapsed.Milliseconds())
	}
	return nil
}
