package pdfprobe

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/kirillkom/docprep/internal/infrastructure/execrun"
)

// NativeFontInspector reads page font resources in-process.
type NativeFontInspector struct{}

func NewNativeFontInspector() *NativeFontInspector {
	return &NativeFontInspector{}
}

// HasFonts is true when any page references at least one font resource.
func (NativeFontInspector) HasFonts(ctx context.Context, localPath string) (found bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			found, err = false, fmt.Errorf("inspect fonts %s: malformed document: %v", localPath, r)
		}
	}()

	f, r, err := pdf.Open(localPath)
	if err != nil {
		return false, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		if len(page.Fonts()) > 0 {
			return true, nil
		}
	}
	return false, nil
}

// PDFFontsInspector shells out to poppler's pdffonts.
type PDFFontsInspector struct {
	runner execrun.Runner
	binary string
}

func NewPDFFontsInspector(runner execrun.Runner, binary string) *PDFFontsInspector {
	if strings.TrimSpace(binary) == "" {
		binary = "pdffonts"
	}
	return &PDFFontsInspector{runner: runner, binary: binary}
}

// HasFonts is true when pdffonts lists more than its two header lines.
func (p *PDFFontsInspector) HasFonts(ctx context.Context, localPath string) (bool, error) {
	out, _, err := p.runner.Run(ctx, p.binary, localPath)
	if err != nil {
		return false, fmt.Errorf("list fonts: %w", err)
	}
	return countLines(string(out)) > 2, nil
}

func countLines(s string) int {
	n := 0
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}

// PageCounter counts pages with pdfcpu.
type PageCounter struct{}

func NewPageCounter() *PageCounter {
	return &PageCounter{}
}

func (PageCounter) PageCount(_ context.Context, localPath string) (int, error) {
	n, err := api.PageCountFile(localPath)
	if err != nil {
		return 0, fmt.Errorf("count pages: %w", err)
	}
	return n, nil
}
