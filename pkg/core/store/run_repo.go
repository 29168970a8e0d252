package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrRunNotFound is returned by Load for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// DB is the subset of *pgxpool.Pool the repository needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Run is one archived extraction run.
type Run struct {
	ID        uuid.UUID       `json:"run_id"`
	PDFPath   string          `json:"pdf_path"`
	PDFSHA256 string          `json:"pdf_sha256"`
	Provider  string          `json:"provider"`
	Model     string          `json:"model"`
	Results   json.RawMessage `json:"results"`
	Report    json.RawMessage `json:"report"`
	CreatedAt time.Time       `json:"created_at"`
}

const createRunsTable = `
	CREATE TABLE IF NOT EXISTS extraction_runs (
		run_id     UUID PRIMARY KEY,
		pdf_path   TEXT NOT NULL,
		pdf_sha256 TEXT NOT NULL,
		provider   TEXT NOT NULL,
		model      TEXT NOT NULL,
		results    JSONB NOT NULL,
		report     JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);
`

// RunRepo stores extraction runs in Postgres.
type RunRepo struct {
	db DB
}

// NewRunRepo creates a repository over db, usually GetPool().
func NewRunRepo(db DB) *RunRepo {
	return &RunRepo{db: db}
}

// EnsureSchema creates the runs table if it does not exist.
func (r *RunRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, createRunsTable); err != nil {
		return fmt.Errorf("failed to create extraction_runs: %w", err)
	}
	return nil
}

// Save upserts a run keyed by its id.
func (r *RunRepo) Save(ctx context.Context, run *Run) error {
	if run.ID == uuid.Nil {
		return errors.New("run id is required")
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO extraction_runs (run_id, pdf_path, pdf_sha256, provider, model, results, report, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (run_id)
		DO UPDATE SET
			pdf_path = EXCLUDED.pdf_path,
			pdf_sha256 = EXCLUDED.pdf_sha256,
			provider = EXCLUDED.provider,
			model = EXCLUDED.model,
			results = EXCLUDED.results,
			report = EXCLUDED.report,
			created_at = EXCLUDED.created_at;
	`

	_, err := r.db.Exec(ctx, query,
		run.ID.String(), run.PDFPath, run.PDFSHA256, run.Provider, run.Model,
		string(jsonOrNull(run.Results)), string(jsonOrNull(run.Report)), run.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}
	return nil
}

// Load reads a run back.
func (r *RunRepo) Load(ctx context.Context, id uuid.UUID) (*Run, error) {
	query := `
		SELECT run_id::text, pdf_path, pdf_sha256, provider, model, results::text, report::text, created_at
		FROM extraction_runs WHERE run_id = $1
	`

	var (
		rawID           string
		results, report string
		run             Run
	)
	err := r.db.QueryRow(ctx, query, id.String()).Scan(
		&rawID, &run.PDFPath, &run.PDFSHA256, &run.Provider, &run.Model, &results, &report, &run.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return nil, fmt.Errorf("failed to load run %s: %w", id, err)
	}

	if run.ID, err = uuid.Parse(rawID); err != nil {
		return nil, fmt.Errorf("invalid run id %q: %w", rawID, err)
	}
	run.Results = json.RawMessage(results)
	run.Report = json.RawMessage(report)
	return &run, nil
}

func jsonOrNull(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("null")
	}
	return raw
}
