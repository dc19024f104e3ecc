package usecase

import (
	"context"

	"github.com/kirillkom/docprep/internal/core/ports"
)

const (
	StrategyPDF         = "pdf"
	StrategyImage       = "image"
	StrategySpreadsheet = "spreadsheet"
	StrategyPlain       = "plain"
)

var (
	imageExts       = []string{"png", "jpg", "jpeg", "tif", "tiff", "gif", "bmp"}
	spreadsheetExts = []string{"xlsx", "xlsm", "xltx", "xltm"}
)

type formatStrategy struct {
	name      string
	inspector ports.FontInspector
	fallback  ports.FallbackConverter
}

func (s formatStrategy) Name() string { return s.name }

// HasStructuralText only inspects page-description formats; every other format passes.
func (s formatStrategy) HasStructuralText(ctx context.Context, localPath string) (bool, error) {
	if s.inspector == nil {
		return true, nil
	}
	return s.inspector.HasFonts(ctx, localPath)
}

func (s formatStrategy) Fallback() ports.FallbackConverter { return s.fallback }

// StrategyDeps are the collaborators strategies are assembled from. Any of them may be nil.
type StrategyDeps struct {
	FontInspector ports.FontInspector
	PDFFallback   ports.FallbackConverter
	ImageFallback ports.FallbackConverter
	SheetFallback ports.FallbackConverter
}

// StrategySet picks an ExtractionStrategy by normalized extension.
type StrategySet struct {
	byExt map[string]ports.ExtractionStrategy
	plain ports.ExtractionStrategy
}

func NewStrategySet(deps StrategyDeps) *StrategySet {
	set := &StrategySet{
		byExt: make(map[string]ports.ExtractionStrategy),
		plain: formatStrategy{name: StrategyPlain},
	}
	set.Register("pdf", formatStrategy{
		name:      StrategyPDF,
		inspector: deps.FontInspector,
		fallback:  deps.PDFFallback,
	})
	image := formatStrategy{name: StrategyImage, fallback: deps.ImageFallback}
	for _, ext := range imageExts {
		set.Register(ext, image)
	}
	sheet := formatStrategy{name: StrategySpreadsheet, fallback: deps.SheetFallback}
	for _, ext := range spreadsheetExts {
		set.Register(ext, sheet)
	}
	return set
}

func (s *StrategySet) Register(ext string, strategy ports.ExtractionStrategy) {
	s.byExt[ext] = strategy
}

func (s *StrategySet) For(ext string) ports.ExtractionStrategy {
	if strategy, ok := s.byExt[ext]; ok {
		return strategy
	}
	return s.plain
}
