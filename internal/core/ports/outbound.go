package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/docprep/internal/core/domain"
)

// DocumentStore stores named blobs. Keys are slash separated and relative.
type DocumentStore interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// List returns every key under prefix, recursively, in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)
	Exists(ctx context.Context, key string) (bool, error)
	Remove(ctx context.Context, key string) error
}

// LocalPather is implemented by stores whose keys map onto local files.
type LocalPather interface {
	LocalPath(key string) string
}

// AnalysisService is the document-analysis collaborator.
type AnalysisService interface {
	ExtractText(ctx context.Context, name string, body io.Reader) (string, error)
	ExtractMetadata(ctx context.Context, name string, body io.Reader) (map[string]any, error)
	WaitReady(ctx context.Context) error
}

// FontInspector reports whether a page-description document exposes embedded text resources.
type FontInspector interface {
	HasFonts(ctx context.Context, localPath string) (bool, error)
}

// PageCounter reports the number of pages of a page-description document.
type PageCounter interface {
	PageCount(ctx context.Context, localPath string) (int, error)
}

// Renderer turns a document into page images inside outDir.
type Renderer interface {
	Render(ctx context.Context, localPath, outDir string, maxPages int) (domain.PageImageSet, error)
}

// OCREngine recognizes the text of one page image.
type OCREngine interface {
	Recognize(ctx context.Context, imagePath string) (string, error)
}

// FallbackResult is the outcome of a fallback conversion.
type FallbackResult struct {
	Text  string
	Pages int
	// FailedPages counts pages whose OCR failed and contributed no text.
	FailedPages int
}

// FallbackConverter produces text when primary extraction was insufficient.
type FallbackConverter interface {
	Convert(ctx context.Context, localPath string) (FallbackResult, error)
}

// ExtractionStrategy bundles the structural check and the fallback for a family of formats.
type ExtractionStrategy interface {
	Name() string
	HasStructuralText(ctx context.Context, localPath string) (bool, error)
	// Fallback may be nil when the format has no fallback path.
	Fallback() FallbackConverter
}

// SupplementParser reads source-specific metadata for the document whose key without
// extension is docRoot. ok is false when no supplement exists.
type SupplementParser interface {
	Parse(ctx context.Context, docRoot string) (record domain.MetadataRecord, ok bool, err error)
}

// ManifestEncoder serializes a manifest.
type ManifestEncoder interface {
	Encode(records []domain.MetadataRecord) ([]byte, error)
	Decode(data []byte) ([]domain.MetadataRecord, error)
}

// LedgerEntry is one persisted per-document outcome of a batch run.
type LedgerEntry struct {
	RunID      string
	Result     domain.Result
	StartedAt  time.Time
	FinishedAt time.Time
}

// RunLedger persists batch outcomes.
type RunLedger interface {
	Record(ctx context.Context, entry LedgerEntry) error
}

// ExtractionEvent is published for downstream indexers after a document reaches DONE.
type ExtractionEvent struct {
	RunID    string                 `json:"run_id"`
	Key      string                 `json:"key"`
	TextKey  string                 `json:"text_key"`
	Outcome  domain.Outcome         `json:"outcome"`
	Metadata *domain.MetadataRecord `json:"metadata,omitempty"`
}

// EventPublisher notifies downstream consumers.
type EventPublisher interface {
	PublishExtracted(ctx context.Context, event ExtractionEvent) error
}

// PipelineObserver receives per-document measurements.
type PipelineObserver interface {
	StartDocument()
	FinishDocument(outcome domain.Outcome, duration time.Duration)
	ObserveOCRPages(ok, failed int)
}
