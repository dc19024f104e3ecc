package pdfprobe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// writePDF assembles a one-page document with a valid cross-reference table.
func writePDF(t *testing.T, withFont bool) string {
	t.Helper()
	content := "BT 72 720 Td ET"
	resources := "<< >>"
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
	}
	if withFont {
		content = "BT /F1 12 Tf 72 720 Td (Hello) Tj ET"
		resources = "<< /Font << /F1 5 0 R >> >>"
	}
	objects = append(objects,
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources "+resources+" /Contents 4 0 R >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
	)
	if withFont {
		objects = append(objects, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	path := filepath.Join(t.TempDir(), "doc.pdf")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write pdf: %v", err)
	}
	return path
}

func TestNativeFontInspector(t *testing.T) {
	inspector := NewNativeFontInspector()

	has, err := inspector.HasFonts(context.Background(), writePDF(t, true))
	if err != nil {
		t.Fatalf("HasFonts() error = %v", err)
	}
	if !has {
		t.Fatalf("expected fonts for text document")
	}

	has, err = inspector.HasFonts(context.Background(), writePDF(t, false))
	if err != nil {
		t.Fatalf("HasFonts() error = %v", err)
	}
	if has {
		t.Fatalf("expected no fonts for image-only document")
	}
}

func TestNativeFontInspectorRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.pdf")
	if err := os.WriteFile(path, []byte("not a pdf"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewNativeFontInspector().HasFonts(context.Background(), path); err == nil {
		t.Fatalf("expected error for malformed document")
	}
}

type runnerFake struct {
	out  string
	err  error
	args []string
}

func (f *runnerFake) Run(_ context.Context, _ string, args ...string) ([]byte, []byte, error) {
	f.args = args
	return []byte(f.out), nil, f.err
}

func TestPDFFontsInspector(t *testing.T) {
	header := "name                                 type              encoding         emb sub uni object ID\n" +
		"------------------------------------ ----------------- ---------------- --- --- --- ---------\n"
	cases := []struct {
		name string
		out  string
		want bool
	}{
		{name: "header only", out: header, want: false},
		{name: "one font", out: header + "Helvetica                            Type 1            Standard         no  no  no       5  0\n", want: true},
		{name: "empty", out: "", want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			runner := &runnerFake{out: tc.out}
			got, err := NewPDFFontsInspector(runner, "").HasFonts(context.Background(), "/in/a.pdf")
			if err != nil {
				t.Fatalf("HasFonts() error = %v", err)
			}
			if got != tc.want {
				t.Fatalf("HasFonts() = %v, want %v", got, tc.want)
			}
			if len(runner.args) != 1 || runner.args[0] != "/in/a.pdf" {
				t.Fatalf("unexpected args %v", runner.args)
			}
		})
	}
}

func TestPDFFontsInspectorError(t *testing.T) {
	runner := &runnerFake{err: errors.New("exit status 1")}
	if _, err := NewPDFFontsInspector(runner, "pdffonts").HasFonts(context.Background(), "/in/a.pdf"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestPageCounterRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.pdf")
	if err := os.WriteFile(path, []byte("not a pdf"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewPageCounter().PageCount(context.Background(), path); err == nil {
		t.Fatalf("expected error for malformed document")
	}
}
