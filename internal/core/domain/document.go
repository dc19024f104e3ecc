package domain

import (
	"path"
	"strings"
)

// Artifact suffixes written next to a document key.
const (
	TextSuffix       = ".txt"
	MetadataSuffix   = "_metadata.json"
	SupplementSuffix = ".json"
	ManifestName     = "manifest.yaml"
)

type Outcome string

const (
	OutcomeText     Outcome = "text"
	OutcomeFallback Outcome = "fallback"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeFailed   Outcome = "failed"
)

// State is a step of the per-document extraction state machine.
type State string

const (
	StateStart             State = "start"
	StateMetadataExtracted State = "metadata_extracted"
	StateTextOK            State = "text_ok"
	StateNeedsFallback     State = "needs_fallback"
	StateDone              State = "done"
)

// Document is addressed by its store key, e.g. "agency/20150331/090004d2805baaa4/record.pdf".
type Document struct {
	Key string `json:"key"`
}

func NewDocument(key string) Document {
	return Document{Key: strings.TrimPrefix(path.Clean(filepathToSlash(key)), "./")}
}

// Ext returns the normalized extension without the leading dot.
func (d Document) Ext() string {
	return NormalizeExt(path.Ext(d.Key))
}

// Root is the key without its extension.
func (d Document) Root() string {
	return strings.TrimSuffix(d.Key, path.Ext(d.Key))
}

func (d Document) Base() string {
	return path.Base(d.Root())
}

func (d Document) TextKey() string       { return d.Root() + TextSuffix }
func (d Document) MetadataKey() string   { return d.Root() + MetadataSuffix }
func (d Document) SupplementKey() string { return d.Root() + SupplementSuffix }

// IsArtifactKey reports whether key names a pipeline artifact rather than a source document.
func IsArtifactKey(key string) bool {
	base := path.Base(key)
	switch {
	case base == ManifestName:
		return true
	case strings.HasSuffix(base, MetadataSuffix):
		return true
	case strings.HasSuffix(base, SupplementSuffix), strings.HasSuffix(base, TextSuffix):
		return true
	default:
		return false
	}
}

func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

func filepathToSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

// PageImage is one rendered page. Number starts at 1.
type PageImage struct {
	Number int
	Path   string
}

// PageImageSet is the transient output of rendering one document.
type PageImageSet struct {
	Dir   string
	Pages []PageImage
}

func (s PageImageSet) Len() int { return len(s.Pages) }

// Result describes one orchestration pass over a document.
type Result struct {
	Key            string          `json:"key"`
	State          State           `json:"state"`
	Outcome        Outcome         `json:"outcome"`
	Strategy       string          `json:"strategy,omitempty"`
	Metadata       *MetadataRecord `json:"metadata,omitempty"`
	TextChars      int             `json:"text_chars"`
	OCRPages       int             `json:"ocr_pages,omitempty"`
	OCRFailedPages int             `json:"ocr_failed_pages,omitempty"`
	Insufficient   bool            `json:"insufficient,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// BatchReport lists one Result per document in input order.
type BatchReport struct {
	RunID   string          `json:"run_id"`
	Results []Result        `json:"results"`
	Counts  map[Outcome]int `json:"counts"`
}
