package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/kirillkom/docprep/internal/config"
	"github.com/kirillkom/docprep/internal/core/domain"
	"github.com/kirillkom/docprep/internal/core/ports"
	"github.com/kirillkom/docprep/internal/core/usecase"
	"github.com/kirillkom/docprep/internal/infrastructure/analysis/tika"
	"github.com/kirillkom/docprep/internal/infrastructure/execrun"
	"github.com/kirillkom/docprep/internal/infrastructure/manifestfmt"
	"github.com/kirillkom/docprep/internal/infrastructure/ocr/tesseract"
	"github.com/kirillkom/docprep/internal/infrastructure/pdfprobe"
	"github.com/kirillkom/docprep/internal/infrastructure/queue/nats"
	"github.com/kirillkom/docprep/internal/infrastructure/render/ghostscript"
	"github.com/kirillkom/docprep/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/docprep/internal/infrastructure/resilience"
	"github.com/kirillkom/docprep/internal/infrastructure/sheet"
	"github.com/kirillkom/docprep/internal/infrastructure/storage/gcs"
	"github.com/kirillkom/docprep/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/docprep/internal/infrastructure/supplement/jsonfile"
	"github.com/kirillkom/docprep/internal/observability/metrics"
)

const serviceName = "docprep"

type App struct {
	Config config.Config
	Logger *slog.Logger

	Store        ports.DocumentStore
	Orchestrator *usecase.ExtractionOrchestrator
	Batches      *usecase.BatchRunner
	Manifests    *usecase.ManifestBuilder
	Metrics      *metrics.PipelineMetrics
	// Runs is nil when no ledger database is configured.
	Runs *postgres.RunRepository

	closers []func()
}

// New wires every component from cfg. Optional integrations stay nil when unset.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{Config: cfg, Logger: logger}
	ready := false
	defer func() {
		if !ready {
			app.Close()
		}
	}()

	app.Metrics = metrics.NewPipelineMetrics(serviceName)
	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    cfg.RetryMaxAttempts,
		RetryInitialBackoff: cfg.RetryInitialBackoff,
		RetryMaxBackoff:     cfg.RetryMaxBackoff,
		BreakerEnabled:      cfg.BreakerEnabled,
		BreakerOpenTimeout:  cfg.BreakerOpenTimeout,
		Logger:              logger,
		OnStateChange:       app.Metrics.ObserveBreakerState,
	})

	store, err := app.openStore(ctx, cfg, executor)
	if err != nil {
		return nil, err
	}
	app.Store = store

	analysis := tika.New(tika.Options{
		TextURL:           cfg.AnalysisTextURL,
		MetaURL:           cfg.AnalysisMetaURL,
		Timeout:           cfg.AnalysisTimeout,
		RequestsPerSecond: cfg.AnalysisRPS,
		Readiness: resilience.ReadinessConfig{
			Deadline: cfg.AnalysisReadyTimeout,
			Logger:   logger,
		},
		Executor: executor,
	})

	runner := execrun.New(logger)
	renderer := ghostscript.New(runner, ghostscript.Config{
		Binary:           cfg.GhostscriptBin,
		DPI:              cfg.RenderDPI,
		Device:           cfg.RenderDevice,
		RenderingThreads: cfg.RenderThreads,
	})
	ocr := tesseract.New(runner, tesseract.Config{
		Binary:      cfg.TesseractBin,
		Lang:        cfg.TesseractLang,
		TessdataDir: cfg.TessdataDir,
	})

	var inspector ports.FontInspector
	switch strings.ToLower(strings.TrimSpace(cfg.StructuralProbe)) {
	case "pdffonts":
		inspector = pdfprobe.NewPDFFontsInspector(runner, cfg.PDFFontsBin)
	case "", "native":
		inspector = pdfprobe.NewNativeFontInspector()
	default:
		return nil, domain.WrapError(domain.ErrInvalidInput, "structural probe", fmt.Errorf("unknown probe %q", cfg.StructuralProbe))
	}

	strategies := usecase.NewStrategySet(usecase.StrategyDeps{
		FontInspector: inspector,
		PDFFallback: usecase.NewRenderOCRConverter(renderer, ocr, pdfprobe.NewPageCounter(), usecase.RenderOCROptions{
			WorkRoot:    cfg.StagingDir,
			MaxPages:    cfg.RenderMaxPages,
			Concurrency: cfg.OCRConcurrency,
		}, logger),
		ImageFallback: usecase.NewImageOCRConverter(ocr, logger),
		SheetFallback: sheet.NewConverter(logger),
	})

	app.Orchestrator = usecase.NewExtractionOrchestrator(store, analysis, strategies, usecase.OrchestratorOptions{
		WordThreshold: cfg.WordThreshold,
		StagingRoot:   cfg.StagingDir,
	}, logger)

	batchDeps := usecase.BatchDeps{
		Store:     store,
		Analysis:  analysis,
		Processor: app.Orchestrator,
		Observer:  app.Metrics,
	}
	if strings.TrimSpace(cfg.PostgresDSN) != "" {
		runs, err := app.openLedger(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		app.Runs = runs
		batchDeps.Ledger = runs
	}
	if strings.TrimSpace(cfg.NATSURL) != "" {
		publisher, err := nats.New(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ResilienceExecutor: executor,
			Logger:             logger,
		})
		if err != nil {
			return nil, fmt.Errorf("init event publisher: %w", err)
		}
		app.closers = append(app.closers, publisher.Close)
		batchDeps.Publisher = publisher
	}
	app.Batches = usecase.NewBatchRunner(batchDeps, cfg.MaxConcurrency, logger)

	manifestDeps := usecase.ManifestDeps{
		Store:        store,
		Supplements:  jsonfile.New(store),
		Encoder:      manifestfmt.NewYAML(),
		RemotePrefix: cfg.RemotePrefix,
	}
	if strings.TrimSpace(cfg.RemoteBucket) != "" {
		remote, err := app.openGCS(ctx, cfg.RemoteBucket, "", executor)
		if err != nil {
			return nil, fmt.Errorf("init remote store: %w", err)
		}
		manifestDeps.Remote = remote
	}
	app.Manifests = usecase.NewManifestBuilder(manifestDeps, logger)

	ready = true
	return app, nil
}

func (a *App) openStore(ctx context.Context, cfg config.Config, executor *resilience.Executor) (ports.DocumentStore, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.StoreBackend)) {
	case "", "local":
		store, err := localfs.New(cfg.StoragePath)
		if err != nil {
			return nil, fmt.Errorf("init local storage: %w", err)
		}
		return store, nil
	case "gcs":
		store, err := a.openGCS(ctx, cfg.GCSBucket, cfg.GCSPrefix, executor)
		if err != nil {
			return nil, fmt.Errorf("init gcs storage: %w", err)
		}
		return store, nil
	default:
		return nil, domain.WrapError(domain.ErrInvalidInput, "store backend", fmt.Errorf("unknown backend %q", cfg.StoreBackend))
	}
}

func (a *App) openGCS(ctx context.Context, bucket, prefix string, executor *resilience.Executor) (*gcs.Storage, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "gcs storage", errors.New("bucket is required"))
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	store, err := gcs.New(client, gcs.Options{Bucket: bucket, Prefix: prefix, Executor: executor})
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	a.closers = append(a.closers, func() { _ = store.Close() })
	return store, nil
}

func (a *App) openLedger(ctx context.Context, dsn string) (*postgres.RunRepository, error) {
	db, err := postgres.OpenDB(dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	a.closers = append(a.closers, func() { _ = db.Close() })
	runs := postgres.NewRunRepository(db)
	if err := runs.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return runs, nil
}

// Close releases clients in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
