package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/docprep/internal/core/domain"
	"github.com/kirillkom/docprep/internal/core/ports"
)

// PageText is the OCR output of one page.
type PageText struct {
	Number int
	Text   string
}

// Reassemble concatenates page texts in ascending page order.
func Reassemble(pages []PageText) string {
	ordered := make([]PageText, len(pages))
	copy(ordered, pages)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Number < ordered[j].Number })

	var b strings.Builder
	for _, p := range ordered {
		b.WriteString(p.Text)
	}
	return b.String()
}

type RenderOCROptions struct {
	// WorkRoot is where transient page images are rendered; empty means os.TempDir().
	WorkRoot string
	// MaxPages caps rendering; 0 renders every page.
	MaxPages int
	// Concurrency bounds parallel OCR calls per document.
	Concurrency int
}

// RenderOCRConverter renders a document to page images, OCRs each page and reassembles the text.
type RenderOCRConverter struct {
	renderer ports.Renderer
	ocr      ports.OCREngine
	pages    ports.PageCounter
	opts     RenderOCROptions
	logger   *slog.Logger
}

func NewRenderOCRConverter(
	renderer ports.Renderer,
	ocr ports.OCREngine,
	pages ports.PageCounter,
	opts RenderOCROptions,
	logger *slog.Logger,
) *RenderOCRConverter {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RenderOCRConverter{
		renderer: renderer,
		ocr:      ocr,
		pages:    pages,
		opts:     opts,
		logger:   logger,
	}
}

func (c *RenderOCRConverter) Convert(ctx context.Context, localPath string) (ports.FallbackResult, error) {
	workDir, err := os.MkdirTemp(c.opts.WorkRoot, "docprep-pages-*")
	if err != nil {
		return ports.FallbackResult{}, fmt.Errorf("create page work dir: %w", err)
	}
	// Page images and OCR outputs never outlive the conversion.
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			c.logger.Warn("remove page work dir", "dir", workDir, "error", err)
		}
	}()

	c.logExpectedPages(ctx, localPath)

	set, err := c.renderer.Render(ctx, localPath, workDir, c.opts.MaxPages)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ports.FallbackResult{}, ctxErr
		}
		c.logger.Warn("render failed; fallback yields empty text", "path", localPath, "error", err)
		return ports.FallbackResult{}, nil
	}
	if set.Len() == 0 {
		c.logger.Warn("render produced no pages", "path", localPath)
		return ports.FallbackResult{}, nil
	}

	texts, failed, err := c.recognizePages(ctx, set.Pages)
	if err != nil {
		return ports.FallbackResult{}, err
	}
	return ports.FallbackResult{
		Text:        Reassemble(texts),
		Pages:       set.Len(),
		FailedPages: failed,
	}, nil
}

func (c *RenderOCRConverter) logExpectedPages(ctx context.Context, localPath string) {
	if c.pages == nil {
		return
	}
	n, err := c.pages.PageCount(ctx, localPath)
	if err != nil {
		c.logger.Debug("page count unavailable", "path", localPath, "error", err)
		return
	}
	if c.opts.MaxPages > 0 && n > c.opts.MaxPages {
		c.logger.Info("rendering truncated", "path", localPath, "pages", n, "max_pages", c.opts.MaxPages)
		return
	}
	c.logger.Debug("rendering pages", "path", localPath, "pages", n)
}

// recognizePages OCRs pages concurrently. A failed page contributes an empty string.
func (c *RenderOCRConverter) recognizePages(ctx context.Context, pages []domain.PageImage) ([]PageText, int, error) {
	texts := make([]PageText, len(pages))
	var failed atomic.Int32

	var g errgroup.Group
	g.SetLimit(c.opts.Concurrency)
	for i, page := range pages {
		g.Go(func() error {
			texts[i] = PageText{Number: page.Number}
			if err := ctx.Err(); err != nil {
				return err
			}
			text, err := c.ocr.Recognize(ctx, page.Path)
			if err != nil {
				failed.Add(1)
				c.logger.Warn("page ocr failed", "page", page.Number, "image", page.Path, "error", err)
				return nil
			}
			texts[i].Text = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return texts, int(failed.Load()), nil
}

// ImageOCRConverter OCRs a single-image document in place.
type ImageOCRConverter struct {
	ocr    ports.OCREngine
	logger *slog.Logger
}

func NewImageOCRConverter(ocr ports.OCREngine, logger *slog.Logger) *ImageOCRConverter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImageOCRConverter{ocr: ocr, logger: logger}
}

func (c *ImageOCRConverter) Convert(ctx context.Context, localPath string) (ports.FallbackResult, error) {
	text, err := c.ocr.Recognize(ctx, localPath)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ports.FallbackResult{}, ctxErr
		}
		c.logger.Warn("image ocr failed", "path", localPath, "error", err)
		return ports.FallbackResult{Pages: 1, FailedPages: 1}, nil
	}
	return ports.FallbackResult{Text: text, Pages: 1}, nil
}
