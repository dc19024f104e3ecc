package ghostscript

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/kirillkom/docprep/internal/core/domain"
	"github.com/kirillkom/docprep/internal/infrastructure/execrun"
)

type Config struct {
	Binary string
	DPI    int
	// Device is a Ghostscript PNG device such as pnggray or png16m.
	Device           string
	RenderingThreads int
}

func DefaultConfig() Config {
	return Config{
		Binary:           "gs",
		DPI:              300,
		Device:           "pnggray",
		RenderingThreads: 8,
	}
}

// Renderer rasterizes page-description documents into one PNG per page.
type Renderer struct {
	runner execrun.Runner
	cfg    Config
}

func New(runner execrun.Runner, cfg Config) *Renderer {
	def := DefaultConfig()
	if strings.TrimSpace(cfg.Binary) == "" {
		cfg.Binary = def.Binary
	}
	if cfg.DPI <= 0 {
		cfg.DPI = def.DPI
	}
	if strings.TrimSpace(cfg.Device) == "" {
		cfg.Device = def.Device
	}
	if cfg.RenderingThreads <= 0 {
		cfg.RenderingThreads = def.RenderingThreads
	}
	return &Renderer{runner: runner, cfg: cfg}
}

// Args returns the Ghostscript argument list for rendering localPath into outDir.
func (r *Renderer) Args(localPath, outDir string, maxPages int) []string {
	args := []string{
		"-q",
		"-dNOPAUSE",
		"-dBATCH",
		"-dSAFER",
		"-sDEVICE=" + r.cfg.Device,
		"-dINTERPOLATE",
		"-r" + strconv.Itoa(r.cfg.DPI),
		"-dNumRenderingThreads=" + strconv.Itoa(r.cfg.RenderingThreads),
	}
	if maxPages > 0 {
		args = append(args, "-dFirstPage=1", "-dLastPage="+strconv.Itoa(maxPages))
	}
	args = append(args, "-sOutputFile="+outputPattern(outDir), localPath)
	return args
}

func (r *Renderer) Render(ctx context.Context, localPath, outDir string, maxPages int) (domain.PageImageSet, error) {
	if _, _, err := r.runner.Run(ctx, r.cfg.Binary, r.Args(localPath, outDir, maxPages)...); err != nil {
		return domain.PageImageSet{}, fmt.Errorf("render %s: %w", filepath.Base(localPath), err)
	}
	return collectPages(outDir, pagePrefix)
}

// pagePrefix is fixed because outDir belongs to a single document.
const pagePrefix = "page_"

// outputPattern is Ghostscript's printf-style OutputFile; literal '%' must be doubled.
func outputPattern(outDir string) string {
	return strings.ReplaceAll(filepath.Join(outDir, pagePrefix), "%", "%%") + "%03d.png"
}

// collectPages finds "<prefix>NNN.png" files and orders them by page number.
func collectPages(dir, prefix string) (domain.PageImageSet, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return domain.PageImageSet{}, fmt.Errorf("read render dir: %w", err)
	}
	set := domain.PageImageSet{Dir: dir}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".png") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".png"))
		if err != nil || n <= 0 {
			continue
		}
		set.Pages = append(set.Pages, domain.PageImage{Number: n, Path: filepath.Join(dir, name)})
	}
	sort.Slice(set.Pages, func(i, j int) bool { return set.Pages[i].Number < set.Pages[j].Number })
	return set, nil
}
