package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/kirillkom/docprep/internal/core/domain"
	"github.com/kirillkom/docprep/internal/core/ports"
)

type OrchestratorOptions struct {
	// WordThreshold is the content threshold; negative means DefaultWordThreshold.
	WordThreshold int
	// StagingRoot is where non-local documents are copied for probing and rendering.
	StagingRoot string
}

// ExtractionOrchestrator runs the per-document state machine:
// start -> metadata_extracted -> (text_ok | needs_fallback) -> done.
type ExtractionOrchestrator struct {
	store      ports.DocumentStore
	analysis   ports.AnalysisService
	strategies *StrategySet
	checker    *SufficiencyChecker
	opts       OrchestratorOptions
	logger     *slog.Logger
}

func NewExtractionOrchestrator(
	store ports.DocumentStore,
	analysis ports.AnalysisService,
	strategies *StrategySet,
	opts OrchestratorOptions,
	logger *slog.Logger,
) *ExtractionOrchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractionOrchestrator{
		store:      store,
		analysis:   analysis,
		strategies: strategies,
		checker:    NewSufficiencyChecker(opts.WordThreshold),
		opts:       opts,
		logger:     logger,
	}
}

func (o *ExtractionOrchestrator) Process(ctx context.Context, doc domain.Document, opts ports.ProcessOptions) (domain.Result, error) {
	res := domain.Result{Key: doc.Key, State: domain.StateStart}
	logger := o.logger.With("document", doc.Key)

	if !opts.Force {
		converted, err := o.store.Exists(ctx, doc.TextKey())
		if err != nil {
			return o.fail(logger, res, fmt.Errorf("check text artifact: %w", err))
		}
		if converted {
			res.Outcome = domain.OutcomeSkipped
			logger.Info("document already converted")
			return res, nil
		}
	}

	localPath, release, err := o.stage(ctx, doc)
	if err != nil {
		return o.fail(logger, res, err)
	}
	defer release()

	record, err := o.extractMetadata(ctx, logger, doc, localPath)
	if err != nil {
		return o.fail(logger, res, err)
	}
	res.Metadata = &record
	o.transition(logger, &res, domain.StateMetadataExtracted)

	strategy := o.strategies.For(doc.Ext())
	res.Strategy = strategy.Name()

	primary, ok := o.primaryText(ctx, logger, strategy, doc, localPath)
	if ok {
		o.transition(logger, &res, domain.StateTextOK)
		if err := o.saveText(ctx, doc, primary); err != nil {
			return o.fail(logger, res, err)
		}
		res.Outcome = domain.OutcomeText
		res.TextChars = len(primary)
		o.transition(logger, &res, domain.StateDone)
		return res, nil
	}

	o.transition(logger, &res, domain.StateNeedsFallback)
	text, err := o.fallbackText(ctx, logger, strategy, localPath, primary, &res)
	if err != nil {
		return o.fail(logger, res, err)
	}
	if err := o.saveText(ctx, doc, text); err != nil {
		return o.fail(logger, res, err)
	}
	res.TextChars = len(text)
	o.transition(logger, &res, domain.StateDone)
	return res, nil
}

// primaryText returns the analysis-service text and whether it is usable as is.
func (o *ExtractionOrchestrator) primaryText(
	ctx context.Context,
	logger *slog.Logger,
	strategy ports.ExtractionStrategy,
	doc domain.Document,
	localPath string,
) (string, bool) {
	hasText, err := o.checker.HasStructuralText(ctx, strategy, localPath)
	if err != nil {
		logger.Warn("structural text check failed; assuming fallback", "error", err)
	}
	if !hasText {
		logger.Info("document has no structural text")
		return "", false
	}

	text, err := o.extractText(ctx, doc, localPath)
	if err != nil {
		logger.Warn("text extraction failed; treating as empty", "error", err)
		return "", false
	}
	if !o.checker.MeetsContentThreshold(text) {
		logger.Info("extracted text below threshold", "words", CountWords(text), "threshold", o.checker.Threshold())
		return text, false
	}
	return text, true
}

func (o *ExtractionOrchestrator) fallbackText(
	ctx context.Context,
	logger *slog.Logger,
	strategy ports.ExtractionStrategy,
	localPath, primary string,
	res *domain.Result,
) (string, error) {
	converter := strategy.Fallback()
	if converter == nil {
		res.Outcome = domain.OutcomeText
		res.Insufficient = true
		logger.Warn("no fallback for format; keeping primary text", "strategy", strategy.Name())
		return primary, nil
	}

	res.Outcome = domain.OutcomeFallback
	out, err := converter.Convert(ctx, localPath)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("fallback conversion: %w", ctxErr)
		}
		logger.Warn("fallback conversion failed; writing empty text", "error", err)
		return "", nil
	}
	res.OCRPages = out.Pages
	res.OCRFailedPages = out.FailedPages
	if out.FailedPages > 0 {
		logger.Warn("fallback degraded", "pages", out.Pages, "failed_pages", out.FailedPages)
	}
	return out.Text, nil
}

// extractMetadata asks the analysis service for metadata and persists the normalized record.
// Service failures yield an empty record; only persistence failures are returned.
func (o *ExtractionOrchestrator) extractMetadata(ctx context.Context, logger *slog.Logger, doc domain.Document, localPath string) (domain.MetadataRecord, error) {
	raw, err := func() (map[string]any, error) {
		f, err := openStaged(localPath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return o.analysis.ExtractMetadata(ctx, path.Base(doc.Key), f)
	}()
	if err != nil {
		logger.Warn("metadata extraction failed; continuing with empty metadata", "error", err)
		raw = nil
	}

	record := NormalizeRecord(domain.NormalizeAnalysis(raw))
	if record.FileType == "" {
		record.FileType = doc.Ext()
	}

	payload, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return domain.MetadataRecord{}, fmt.Errorf("marshal metadata: %w", err)
	}
	if err := o.store.Save(ctx, doc.MetadataKey(), bytes.NewReader(payload)); err != nil {
		return domain.MetadataRecord{}, fmt.Errorf("save metadata artifact: %w", err)
	}
	return record, nil
}

func (o *ExtractionOrchestrator) extractText(ctx context.Context, doc domain.Document, localPath string) (string, error) {
	f, err := openStaged(localPath)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return o.analysis.ExtractText(ctx, path.Base(doc.Key), f)
}

func openStaged(localPath string) (*os.File, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("open staged document: %w", err)
	}
	return f, nil
}

func (o *ExtractionOrchestrator) saveText(ctx context.Context, doc domain.Document, text string) error {
	if err := o.store.Save(ctx, doc.TextKey(), strings.NewReader(text)); err != nil {
		return fmt.Errorf("save text artifact: %w", err)
	}
	return nil
}

// stage returns a local path for the document. Stores without local files get a transient copy.
func (o *ExtractionOrchestrator) stage(ctx context.Context, doc domain.Document) (string, func(), error) {
	if lp, ok := o.store.(ports.LocalPather); ok {
		localPath := lp.LocalPath(doc.Key)
		if _, err := os.Stat(localPath); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return "", nil, domain.WrapError(domain.ErrDocumentNotFound, "stage document", err)
			}
			return "", nil, fmt.Errorf("stat document: %w", err)
		}
		return localPath, func() {}, nil
	}

	src, err := o.store.Open(ctx, doc.Key)
	if err != nil {
		return "", nil, fmt.Errorf("open source document: %w", err)
	}
	defer src.Close()

	dir, err := os.MkdirTemp(o.opts.StagingRoot, "docprep-stage-*")
	if err != nil {
		return "", nil, fmt.Errorf("create staging dir: %w", err)
	}
	release := func() {
		if err := os.RemoveAll(dir); err != nil {
			o.logger.Warn("remove staging dir", "dir", dir, "error", err)
		}
	}

	localPath := filepath.Join(dir, path.Base(doc.Key))
	dst, err := os.Create(localPath)
	if err != nil {
		release()
		return "", nil, fmt.Errorf("create staged document: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		release()
		return "", nil, fmt.Errorf("copy staged document: %w", err)
	}
	if err := dst.Close(); err != nil {
		release()
		return "", nil, fmt.Errorf("close staged document: %w", err)
	}
	return localPath, release, nil
}

func (o *ExtractionOrchestrator) transition(logger *slog.Logger, res *domain.Result, next domain.State) {
	logger.Debug("state transition", "from", res.State, "to", next)
	res.State = next
}

func (o *ExtractionOrchestrator) fail(logger *slog.Logger, res domain.Result, err error) (domain.Result, error) {
	res.Outcome = domain.OutcomeFailed
	res.Error = err.Error()
	logger.Error("document processing failed", "state", res.State, "error", err)
	return res, err
}
