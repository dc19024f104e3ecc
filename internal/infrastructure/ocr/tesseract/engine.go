package tesseract

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kirillkom/docprep/internal/infrastructure/execrun"
)

type Config struct {
	Binary      string
	Lang        string
	TessdataDir string
	// PSM is the page segmentation mode; 0 keeps the tesseract default.
	PSM int
}

// Engine recognizes page images with the tesseract CLI.
type Engine struct {
	runner execrun.Runner
	cfg    Config
}

func New(runner execrun.Runner, cfg Config) *Engine {
	if strings.TrimSpace(cfg.Binary) == "" {
		cfg.Binary = "tesseract"
	}
	if strings.TrimSpace(cfg.Lang) == "" {
		cfg.Lang = "eng"
	}
	return &Engine{runner: runner, cfg: cfg}
}

func (e *Engine) Args(imagePath string) []string {
	args := []string{imagePath, "stdout", "-l", e.cfg.Lang}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.PSM))
	}
	return args
}

func (e *Engine) Recognize(ctx context.Context, imagePath string) (string, error) {
	out, _, err := e.runner.Run(ctx, e.cfg.Binary, e.Args(imagePath)...)
	if err != nil {
		return "", fmt.Errorf("ocr %s: %w", filepath.Base(imagePath), err)
	}
	return string(out), nil
}
