// Package config resolves run settings from defaults, a .env file,
// UNIVFIN_ environment variables and command-line flags, in increasing order
// of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"univ_financials/pkg/core/aggregate"
	"univ_financials/pkg/core/document"
	"univ_financials/pkg/core/extract"
	"univ_financials/pkg/core/validate"
	"univ_financials/pkg/core/verify"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces every environment override.
const EnvPrefix = "UNIVFIN"

// Output formats.
const (
	FormatReport   = "report"
	FormatFlat     = "flat"
	FormatRequired = "required"
	FormatTables   = "tables"
	FormatMaster   = "master"
	FormatXLSX     = "xlsx"
)

// Formats lists every accepted --format value.
var Formats = []string{FormatReport, FormatFlat, FormatRequired, FormatTables, FormatMaster, FormatXLSX}

// ErrHelp is returned when -h/--help was requested.
var ErrHelp = pflag.ErrHelp

// Config holds the settings for one extraction run.
type Config struct {
	PDFPath string
	Format  string
	Out     string

	Provider     string
	Model        string
	ModelsConfig string

	FallbacksPath    string
	ExpectationsPath string
	PromptsDir       string

	Cache    bool
	CacheDir string

	SegmentsDetail bool
	LocatePages    bool
	Strict         bool
	TolerancePct   float64

	LogLevel string
	LogFile  string

	CompanyName string
	FiscalYear  string

	DatabaseURL string
}

// DefaultConfig returns the settings used when nothing is overridden.
func DefaultConfig() *Config {
	return &Config{
		PDFPath:          document.DefaultPath,
		Format:           FormatReport,
		ModelsConfig:     "config/models.yaml",
		FallbacksPath:    aggregate.DefaultFallbacksPath,
		ExpectationsPath: verify.DefaultExpectationsPath,
		PromptsDir:       "resources",
		CacheDir:         extract.DefaultCacheDir,
		TolerancePct:     validate.DefaultTolerancePct,
		LogLevel:         "info",
	}
}

// LoadDotEnv loads a .env file into the process environment. A missing file
// is not an error; existing variables are never overwritten.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Load parses args (without the program name) against defaults and the
// environment, then validates the result.
func Load(program string, args []string, usageOut io.Writer) (*Config, error) {
	v := viper.New()
	setupViperEnvironment(v)

	fs := pflag.NewFlagSet(program, pflag.ContinueOnError)
	fs.SetOutput(usageOut)
	defineFlags(fs)
	setupUsageMessage(fs, program, usageOut)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := bindFlags(v, fs); err != nil {
		return nil, err
	}

	// A single positional argument names the PDF.
	if fs.NArg() > 1 {
		return nil, fmt.Errorf("expected at most one PDF path, got %d", fs.NArg())
	}

	cfg := populateConfig(v)
	if fs.NArg() == 1 {
		cfg.PDFPath = fs.Arg(0)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupViperEnvironment(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	d := DefaultConfig()
	v.SetDefault("pdf", d.PDFPath)
	v.SetDefault("format", d.Format)
	v.SetDefault("out", d.Out)
	v.SetDefault("provider", d.Provider)
	v.SetDefault("model", d.Model)
	v.SetDefault("models-config", d.ModelsConfig)
	v.SetDefault("fallbacks", d.FallbacksPath)
	v.SetDefault("expectations", d.ExpectationsPath)
	v.SetDefault("prompts-dir", d.PromptsDir)
	v.SetDefault("cache-dir", d.CacheDir)
	v.SetDefault("cache", d.Cache)
	v.SetDefault("segments-detail", d.SegmentsDetail)
	v.SetDefault("locate-pages", d.LocatePages)
	v.SetDefault("strict", d.Strict)
	v.SetDefault("tolerance", d.TolerancePct)
	v.SetDefault("loglevel", d.LogLevel)
	v.SetDefault("logfile", d.LogFile)
	v.SetDefault("company", d.CompanyName)
	v.SetDefault("fiscal-year", d.FiscalYear)

	// The archive keeps the conventional unprefixed name.
	_ = v.BindEnv("database-url", "DATABASE_URL")
}

func defineFlags(fs *pflag.FlagSet) {
	d := DefaultConfig()
	fs.String("pdf", d.PDFPath, "Statement PDF to extract from")
	fs.StringP("format", "f", d.Format, "Output format: "+strings.Join(Formats, ", "))
	fs.StringP("out", "o", "", "Output file (default stdout)")
	fs.String("provider", "", "LLM provider override (gemini, openai)")
	fs.String("model", "", "Model override for the selected provider")
	fs.String("models-config", d.ModelsConfig, "Model routing config")
	fs.String("fallbacks", d.FallbacksPath, "Pre-approved fallback figures")
	fs.String("expectations", d.ExpectationsPath, "Verification expectations")
	fs.String("prompts-dir", d.PromptsDir, "Directory containing prompts/*.json overrides")
	fs.Bool("cache", false, "Reuse model answers cached on disk from earlier runs")
	fs.String("cache-dir", d.CacheDir, "Response cache directory (used with --cache)")
	fs.Bool("segments-detail", false, "Also extract the full segment disclosure table")
	fs.Bool("locate-pages", false, "Search the PDF text for statement pages before prompting")
	fs.Bool("strict", false, "Fail the run when a consistency check fails")
	fs.Float64("tolerance", d.TolerancePct, "Consistency tolerance in percent")
	fs.String("loglevel", d.LogLevel, "Log level (debug, info, warn, error)")
	fs.String("logfile", "", "Write logs to this rotated file instead of stderr")
	fs.String("company", "", "Company name in the output")
	fs.String("fiscal-year", "", "Fiscal year in the output")
	fs.String("database-url", "", "Postgres URL for the run archive")
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var bindErr error
	fs.VisitAll(func(f *pflag.Flag) {
		if err := v.BindPFlag(f.Name, f); err != nil && bindErr == nil {
			bindErr = fmt.Errorf("failed to bind flag %s: %w", f.Name, err)
		}
	})
	return bindErr
}

func setupUsageMessage(fs *pflag.FlagSet, program string, out io.Writer) {
	fs.Usage = func() {
		fmt.Fprintf(out, "Usage: %s [options] [statement.pdf]\n\n", program)
		fmt.Fprintf(out, "Extracts financial figures from a national university statement PDF.\n\n")
		fmt.Fprintf(out, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(out, "\nEnvironment variables:\n")
		fmt.Fprintf(out, "  GEMINI_API_KEY      Gemini API key\n")
		fmt.Fprintf(out, "  OPENAI_API_KEY      OpenAI API key\n")
		fmt.Fprintf(out, "  DATABASE_URL        Postgres URL for the run archive\n")
		fmt.Fprintf(out, "  %s_<FLAG>      Any flag, upper-cased with '-' as '_'\n", EnvPrefix)
	}
}

func populateConfig(v *viper.Viper) *Config {
	return &Config{
		PDFPath:          v.GetString("pdf"),
		Format:           strings.ToLower(v.GetString("format")),
		Out:              v.GetString("out"),
		Provider:         v.GetString("provider"),
		Model:            v.GetString("model"),
		ModelsConfig:     v.GetString("models-config"),
		FallbacksPath:    v.GetString("fallbacks"),
		ExpectationsPath: v.GetString("expectations"),
		PromptsDir:       v.GetString("prompts-dir"),
		CacheDir:         v.GetString("cache-dir"),
		Cache:            v.GetBool("cache"),
		SegmentsDetail:   v.GetBool("segments-detail"),
		LocatePages:      v.GetBool("locate-pages"),
		Strict:           v.GetBool("strict"),
		TolerancePct:     v.GetFloat64("tolerance"),
		LogLevel:         strings.ToLower(v.GetString("loglevel")),
		LogFile:          v.GetString("logfile"),
		CompanyName:      v.GetString("company"),
		FiscalYear:       v.GetString("fiscal-year"),
		DatabaseURL:      v.GetString("database-url"),
	}
}

// Validate checks the configuration for values no run could use.
func (c *Config) Validate() error {
	if c.PDFPath == "" {
		return errors.New("PDF path cannot be empty")
	}
	if !c.IsFormat(c.Format) {
		return fmt.Errorf("invalid format: %s (must be one of: %s)", c.Format, strings.Join(Formats, ", "))
	}
	if c.Format == FormatXLSX && c.Out == "" {
		return errors.New("xlsx output needs --out")
	}
	if c.TolerancePct <= 0 {
		return errors.New("tolerance must be positive")
	}
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}
	if c.Provider != "" && c.Provider != "gemini" && c.Provider != "openai" {
		return fmt.Errorf("unknown provider: %s", c.Provider)
	}
	return nil
}

// IsFormat reports whether f is an accepted output format.
func (c *Config) IsFormat(f string) bool {
	for _, known := range Formats {
		if f == known {
			return true
		}
	}
	return false
}

// CacheEnabled reports whether responses should be cached on disk. The cache
// is off unless --cache is given.
func (c *Config) CacheEnabled() bool {
	return c.Cache && c.CacheDir != ""
}

func (c *Config) String() string {
	return fmt.Sprintf("Config{PDF: %s, Format: %s, Out: %s, Provider: %s, Model: %s, Strict: %t, Segments: %t}",
		c.PDFPath, c.Format, c.Out, c.Provider, c.Model, c.Strict, c.SegmentsDetail)
}
