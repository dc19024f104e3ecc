package bootstrap

import (
	"context"
	"testing"

	"github.com/kirillkom/docprep/internal/config"
	"github.com/kirillkom/docprep/internal/core/domain"
)

func localConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		StoreBackend:    "local",
		StoragePath:     t.TempDir(),
		AnalysisTextURL: "http://127.0.0.1:9998",
		StructuralProbe: "native",
		WordThreshold:   10,
		MaxConcurrency:  2,
	}
}

func TestNewWiresLocalPipeline(t *testing.T) {
	app, err := New(context.Background(), localConfig(t), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer app.Close()

	if app.Store == nil || app.Orchestrator == nil || app.Batches == nil || app.Manifests == nil || app.Metrics == nil {
		t.Fatalf("expected core components to be wired: %+v", app)
	}
	if app.Runs != nil {
		t.Fatalf("ledger must stay disabled without a dsn")
	}
}

func TestNewRejectsUnknownStoreBackend(t *testing.T) {
	cfg := localConfig(t)
	cfg.StoreBackend = "s3"
	if _, err := New(context.Background(), cfg, nil); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestNewRejectsUnknownProbe(t *testing.T) {
	cfg := localConfig(t)
	cfg.StructuralProbe = "magic"
	if _, err := New(context.Background(), cfg, nil); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestNewRequiresBucketForGCS(t *testing.T) {
	cfg := localConfig(t)
	cfg.StoreBackend = "gcs"
	if _, err := New(context.Background(), cfg, nil); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
