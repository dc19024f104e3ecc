package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/docprep/internal/core/domain"
	"github.com/kirillkom/docprep/internal/core/ports"
)

func newRepoWithMock(t *testing.T) (*RunRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &RunRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestEnsureSchemaTakesAdvisoryLock(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WithArgs(int64(2026101901)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS extraction_runs").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRecordInsertsResult(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	started := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	finished := started.Add(3 * time.Second)

	mock.ExpectExec("INSERT INTO extraction_runs").
		WithArgs(
			"run-1", "agency/1/doc.pdf", string(domain.StateDone), string(domain.OutcomeFallback), "pdf",
			sqlmock.AnyArg(), 120, 2, 1, false, "", started, finished,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Record(context.Background(), ports.LedgerEntry{
		RunID: "run-1",
		Result: domain.Result{
			Key:            "agency/1/doc.pdf",
			State:          domain.StateDone,
			Outcome:        domain.OutcomeFallback,
			Strategy:       "pdf",
			Metadata:       &domain.MetadataRecord{FileType: "pdf"},
			TextChars:      120,
			OCRPages:       2,
			OCRFailedPages: 1,
		},
		StartedAt:  started,
		FinishedAt: finished,
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRecordRejectsMissingRunID(t *testing.T) {
	repo, _, done := newRepoWithMock(t)
	defer done()

	err := repo.Record(context.Background(), ports.LedgerEntry{Result: domain.Result{Key: "a.pdf"}})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestRecordWrapsInsertError(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	dbErr := errors.New("connection reset")
	mock.ExpectExec("INSERT INTO extraction_runs").WillReturnError(dbErr)

	err := repo.Record(context.Background(), ports.LedgerEntry{RunID: "run-1", Result: domain.Result{Key: "a.pdf"}})
	if !errors.Is(err, dbErr) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestRunCounts(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT outcome, COUNT").
		WithArgs("run-1").
		WillReturnRows(sqlmock.NewRows([]string{"outcome", "count"}).
			AddRow("text", 3).
			AddRow("failed", 1))

	counts, err := repo.RunCounts(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("RunCounts() error = %v", err)
	}
	if counts[domain.OutcomeText] != 3 || counts[domain.OutcomeFailed] != 1 {
		t.Fatalf("unexpected counts %+v", counts)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRunCountsUnknownRun(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT outcome, COUNT").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"outcome", "count"}))

	if _, err := repo.RunCounts(context.Background(), "missing"); !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}
