package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/docprep/internal/core/domain"
	"github.com/kirillkom/docprep/internal/core/ports"
)

const DefaultMaxConcurrency = 4

// BatchRunner fans a document list out to the orchestrator with bounded concurrency.
// Ledger, publisher and observer are optional.
type BatchRunner struct {
	store          ports.DocumentStore
	analysis       ports.AnalysisService
	processor      ports.DocumentProcessor
	ledger         ports.RunLedger
	publisher      ports.EventPublisher
	observer       ports.PipelineObserver
	maxConcurrency int
	logger         *slog.Logger
}

type BatchDeps struct {
	Store     ports.DocumentStore
	Analysis  ports.AnalysisService
	Processor ports.DocumentProcessor
	Ledger    ports.RunLedger
	Publisher ports.EventPublisher
	Observer  ports.PipelineObserver
}

func NewBatchRunner(deps BatchDeps, maxConcurrency int, logger *slog.Logger) *BatchRunner {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchRunner{
		store:          deps.Store,
		analysis:       deps.Analysis,
		processor:      deps.Processor,
		ledger:         deps.Ledger,
		publisher:      deps.Publisher,
		observer:       deps.Observer,
		maxConcurrency: maxConcurrency,
		logger:         logger,
	}
}

// Discover lists source documents under prefix, skipping pipeline artifacts and archives.
func (r *BatchRunner) Discover(ctx context.Context, prefix string) ([]domain.Document, error) {
	keys, err := r.store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	docs := make([]domain.Document, 0, len(keys))
	for _, key := range keys {
		if domain.IsArtifactKey(key) {
			continue
		}
		if strings.EqualFold(path.Ext(key), ".zip") {
			continue
		}
		docs = append(docs, domain.NewDocument(key))
	}
	return docs, nil
}

// Run waits for the analysis service once, then processes docs. A single document
// failure never aborts the batch; only an unavailable analysis service does.
func (r *BatchRunner) Run(ctx context.Context, docs []domain.Document, opts ports.ProcessOptions) (domain.BatchReport, error) {
	report := domain.BatchReport{
		RunID:   uuid.NewString(),
		Results: make([]domain.Result, len(docs)),
		Counts:  make(map[domain.Outcome]int),
	}
	if len(docs) == 0 {
		return report, nil
	}

	if err := r.analysis.WaitReady(ctx); err != nil {
		return report, domain.WrapError(domain.ErrUnavailable, "wait for analysis service", err)
	}

	logger := r.logger.With("run_id", report.RunID)
	logger.Info("batch started", "documents", len(docs), "max_concurrency", r.maxConcurrency)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.maxConcurrency)
	for i, doc := range docs {
		g.Go(func() error {
			report.Results[i] = r.processOne(gctx, report.RunID, doc, opts)
			return nil
		})
	}
	_ = g.Wait()

	for _, res := range report.Results {
		report.Counts[res.Outcome]++
	}
	logger.Info("batch finished",
		"text", report.Counts[domain.OutcomeText],
		"fallback", report.Counts[domain.OutcomeFallback],
		"skipped", report.Counts[domain.OutcomeSkipped],
		"failed", report.Counts[domain.OutcomeFailed],
	)
	return report, ctx.Err()
}

func (r *BatchRunner) processOne(ctx context.Context, runID string, doc domain.Document, opts ports.ProcessOptions) domain.Result {
	if r.observer != nil {
		r.observer.StartDocument()
	}
	started := time.Now().UTC()

	res, err := r.processor.Process(ctx, doc, opts)
	if err != nil && res.Outcome != domain.OutcomeFailed {
		res.Key = doc.Key
		res.Outcome = domain.OutcomeFailed
		res.Error = err.Error()
	}
	finished := time.Now().UTC()

	if r.observer != nil {
		r.observer.FinishDocument(res.Outcome, finished.Sub(started))
		if res.OCRPages > 0 {
			r.observer.ObserveOCRPages(res.OCRPages-res.OCRFailedPages, res.OCRFailedPages)
		}
	}

	if r.ledger != nil {
		entry := ports.LedgerEntry{RunID: runID, Result: res, StartedAt: started, FinishedAt: finished}
		if err := r.ledger.Record(ctx, entry); err != nil {
			r.logger.Warn("record ledger entry failed", "document", doc.Key, "error", err)
		}
	}

	if r.publisher != nil && (res.Outcome == domain.OutcomeText || res.Outcome == domain.OutcomeFallback) {
		event := ports.ExtractionEvent{
			RunID:    runID,
			Key:      doc.Key,
			TextKey:  doc.TextKey(),
			Outcome:  res.Outcome,
			Metadata: res.Metadata,
		}
		if err := r.publisher.PublishExtracted(ctx, event); err != nil {
			r.logger.Warn("publish extraction event failed", "document", doc.Key, "error", err)
		}
	}
	return res
}
