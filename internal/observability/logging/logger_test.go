package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestJSONLoggerCarriesService(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "docprep", "info", "json")
	logger.Debug("hidden")
	logger.Info("document_done", "document", "a/b.pdf")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected one json record, got %q: %v", buf.String(), err)
	}
	if rec["service"] != "docprep" || rec["document"] != "a/b.pdf" || rec["msg"] != "document_done" {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestTextLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, "docprep", "debug", "text").Debug("probe", "attempt", 2)
	if !strings.Contains(buf.String(), "service=docprep") || !strings.Contains(buf.String(), "attempt=2") {
		t.Fatalf("unexpected text output %q", buf.String())
	}
}
