package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/kirillkom/docprep/internal/core/domain"
)

type rendererFake struct {
	pages  int
	err    error
	outDir string
}

func (f *rendererFake) Render(_ context.Context, _ string, outDir string, _ int) (domain.PageImageSet, error) {
	f.outDir = outDir
	if f.err != nil {
		return domain.PageImageSet{}, f.err
	}
	set := domain.PageImageSet{Dir: outDir}
	// Reverse order so reassembly has to sort.
	for n := f.pages; n >= 1; n-- {
		p := filepath.Join(outDir, fmt.Sprintf("record_%03d.png", n))
		if err := os.WriteFile(p, []byte("png"), 0o644); err != nil {
			return domain.PageImageSet{}, err
		}
		set.Pages = append(set.Pages, domain.PageImage{Number: n, Path: p})
	}
	return set, nil
}

type ocrFake struct {
	mu     sync.Mutex
	failOn map[string]bool
	calls  int
}

func (f *ocrFake) Recognize(_ context.Context, imagePath string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	base := filepath.Base(imagePath)
	if f.failOn[base] {
		return "", errors.New("tesseract exited 1")
	}
	return "[" + base + "]", nil
}

type pageCounterFake struct{ n int }

func (f pageCounterFake) PageCount(context.Context, string) (int, error) { return f.n, nil }

func TestReassembleOrdersByPageNumber(t *testing.T) {
	got := Reassemble([]PageText{{Number: 3, Text: "c"}, {Number: 1, Text: "a"}, {Number: 2, Text: "b"}})
	if got != "abc" {
		t.Fatalf("Reassemble() = %q, want %q", got, "abc")
	}
	if Reassemble(nil) != "" {
		t.Fatalf("Reassemble(nil) should be empty")
	}
}

func TestRenderOCRConverterConcatenatesPagesInOrder(t *testing.T) {
	renderer := &rendererFake{pages: 3}
	ocr := &ocrFake{}
	conv := NewRenderOCRConverter(renderer, ocr, pageCounterFake{n: 3}, RenderOCROptions{WorkRoot: t.TempDir(), Concurrency: 2}, nil)

	out, err := conv.Convert(context.Background(), "/docs/record.pdf")
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	want := "[record_001.png][record_002.png][record_003.png]"
	if out.Text != want {
		t.Fatalf("Convert() text = %q, want %q", out.Text, want)
	}
	if out.Pages != 3 || out.FailedPages != 0 {
		t.Fatalf("unexpected counts: %+v", out)
	}
	if _, err := os.Stat(renderer.outDir); !os.IsNotExist(err) {
		t.Fatalf("expected page work dir removed, stat err = %v", err)
	}
}

func TestRenderOCRConverterFailedPageContributesNothing(t *testing.T) {
	renderer := &rendererFake{pages: 3}
	ocr := &ocrFake{failOn: map[string]bool{"record_002.png": true}}
	conv := NewRenderOCRConverter(renderer, ocr, nil, RenderOCROptions{WorkRoot: t.TempDir()}, nil)

	out, err := conv.Convert(context.Background(), "/docs/record.pdf")
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if out.Text != "[record_001.png][record_003.png]" {
		t.Fatalf("unexpected text %q", out.Text)
	}
	if out.FailedPages != 1 || ocr.calls != 3 {
		t.Fatalf("expected one failed page out of three calls, got %+v calls=%d", out, ocr.calls)
	}
}

func TestRenderOCRConverterZeroPages(t *testing.T) {
	ocr := &ocrFake{}
	conv := NewRenderOCRConverter(&rendererFake{pages: 0}, ocr, nil, RenderOCROptions{WorkRoot: t.TempDir()}, nil)

	out, err := conv.Convert(context.Background(), "/docs/empty.pdf")
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if out.Text != "" || out.Pages != 0 || ocr.calls != 0 {
		t.Fatalf("expected empty result without OCR, got %+v calls=%d", out, ocr.calls)
	}
}

func TestRenderOCRConverterRenderFailureYieldsEmptyText(t *testing.T) {
	renderer := &rendererFake{err: errors.New("gs: exec: not found")}
	conv := NewRenderOCRConverter(renderer, &ocrFake{}, nil, RenderOCROptions{WorkRoot: t.TempDir()}, nil)

	out, err := conv.Convert(context.Background(), "/docs/record.pdf")
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if out.Text != "" {
		t.Fatalf("expected empty text, got %q", out.Text)
	}
	if _, err := os.Stat(renderer.outDir); !os.IsNotExist(err) {
		t.Fatalf("expected page work dir removed after render failure")
	}
}

func TestRenderOCRConverterCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	renderer := &rendererFake{err: context.Canceled}
	conv := NewRenderOCRConverter(renderer, &ocrFake{}, nil, RenderOCROptions{WorkRoot: t.TempDir()}, nil)

	if _, err := conv.Convert(ctx, "/docs/record.pdf"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestImageOCRConverter(t *testing.T) {
	conv := NewImageOCRConverter(&ocrFake{}, nil)
	out, err := conv.Convert(context.Background(), "/docs/scan.tiff")
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if out.Text != "[scan.tiff]" || out.Pages != 1 {
		t.Fatalf("unexpected result %+v", out)
	}

	failing := NewImageOCRConverter(&ocrFake{failOn: map[string]bool{"scan.tiff": true}}, nil)
	out, err = failing.Convert(context.Background(), "/docs/scan.tiff")
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if out.Text != "" || out.FailedPages != 1 {
		t.Fatalf("expected failed page, got %+v", out)
	}
}
