package ports

import (
	"context"

	"github.com/kirillkom/docprep/internal/core/domain"
)

// ProcessOptions are caller-level knobs for one orchestration pass.
type ProcessOptions struct {
	// Force re-converts documents that already have a text artifact.
	Force bool
}

// DocumentProcessor runs the extraction state machine for a single document.
type DocumentProcessor interface {
	Process(ctx context.Context, doc domain.Document, opts ProcessOptions) (domain.Result, error)
}

// BatchRunner runs many document pipelines with bounded concurrency.
type BatchRunner interface {
	Discover(ctx context.Context, prefix string) ([]domain.Document, error)
	Run(ctx context.Context, docs []domain.Document, opts ProcessOptions) (domain.BatchReport, error)
}

// ManifestService builds and publishes folder manifests.
type ManifestService interface {
	BuildFolder(ctx context.Context, folder string) (domain.ManifestSummary, error)
	PrepareAgency(ctx context.Context, agencyDir string) ([]domain.ManifestSummary, error)
}
