package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/docprep/internal/core/domain"
	"github.com/kirillkom/docprep/internal/core/ports"
)

// RunRepository stores one row per document per batch run.
type RunRepository struct {
	db *sql.DB
}

func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *RunRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent CLI and server startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026101901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS extraction_runs (
	id BIGSERIAL PRIMARY KEY,
	run_id TEXT NOT NULL,
	document_key TEXT NOT NULL,
	state TEXT NOT NULL,
	outcome TEXT NOT NULL,
	strategy TEXT,
	metadata JSONB,
	text_chars INTEGER NOT NULL DEFAULT 0,
	ocr_pages INTEGER NOT NULL DEFAULT 0,
	ocr_failed_pages INTEGER NOT NULL DEFAULT 0,
	insufficient BOOLEAN NOT NULL DEFAULT FALSE,
	error_message TEXT,
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_extraction_runs_run_id ON extraction_runs(run_id);
CREATE INDEX IF NOT EXISTS idx_extraction_runs_document_key ON extraction_runs(document_key, finished_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *RunRepository) Record(ctx context.Context, entry ports.LedgerEntry) error {
	if strings.TrimSpace(entry.RunID) == "" || strings.TrimSpace(entry.Result.Key) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "record run", fmt.Errorf("run id and document key are required"))
	}

	var metadataJSON []byte
	if entry.Result.Metadata != nil {
		raw, err := json.Marshal(entry.Result.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		metadataJSON = raw
	}

	res := entry.Result
	_, err := r.db.ExecContext(ctx, `
INSERT INTO extraction_runs (
	run_id, document_key, state, outcome, strategy, metadata, text_chars, ocr_pages, ocr_failed_pages, insufficient, error_message, started_at, finished_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
`,
		entry.RunID, res.Key, string(res.State), string(res.Outcome), res.Strategy, metadataJSON,
		res.TextChars, res.OCRPages, res.OCRFailedPages, res.Insufficient, res.Error,
		entry.StartedAt.UTC(), entry.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert extraction run: %w", err)
	}
	return nil
}

// RunCounts returns the outcome histogram recorded for runID.
func (r *RunRepository) RunCounts(ctx context.Context, runID string) (map[domain.Outcome]int, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT outcome, COUNT(*)
FROM extraction_runs
WHERE run_id = $1
GROUP BY outcome
`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.Outcome]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("scan run counts: %w", err)
		}
		counts[domain.Outcome(outcome)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run counts: %w", err)
	}
	if len(counts) == 0 {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "run counts", fmt.Errorf("run not found: %s", runID))
	}
	return counts, nil
}
