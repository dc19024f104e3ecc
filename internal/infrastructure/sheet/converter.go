package sheet

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/docprep/internal/core/ports"
)

// Converter dumps workbook cell values as tab separated text, one block per sheet.
type Converter struct {
	logger *slog.Logger
}

func NewConverter(logger *slog.Logger) *Converter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Converter{logger: logger}
}

func (c *Converter) Convert(ctx context.Context, localPath string) (ports.FallbackResult, error) {
	f, err := excelize.OpenFile(localPath)
	if err != nil {
		return ports.FallbackResult{}, fmt.Errorf("open workbook: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			c.logger.Warn("close workbook", "path", localPath, "error", err)
		}
	}()

	var b strings.Builder
	sheets := f.GetSheetList()
	failed := 0
	for _, name := range sheets {
		if err := ctx.Err(); err != nil {
			return ports.FallbackResult{}, err
		}
		rows, err := f.GetRows(name)
		if err != nil {
			failed++
			c.logger.Warn("read sheet failed", "path", localPath, "sheet", name, "error", err)
			continue
		}
		writeSheet(&b, name, rows)
	}
	return ports.FallbackResult{Text: b.String(), Pages: len(sheets), FailedPages: failed}, nil
}

func writeSheet(b *strings.Builder, name string, rows [][]string) {
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	b.WriteString(name)
	b.WriteString("\n")
	for _, row := range rows {
		line := strings.TrimRight(strings.Join(row, "\t"), "\t ")
		if line == "" {
			continue
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
}
