package tesseract

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type runnerFake struct {
	name string
	args []string
	out  string
	err  error
}

func (f *runnerFake) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.name = name
	f.args = args
	return []byte(f.out), nil, f.err
}

func TestRecognizeUsesStdout(t *testing.T) {
	runner := &runnerFake{out: "Page text\n"}
	engine := New(runner, Config{})

	text, err := engine.Recognize(context.Background(), "/work/record_001.png")
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	if text != "Page text\n" {
		t.Fatalf("unexpected text %q", text)
	}
	if runner.name != "tesseract" || strings.Join(runner.args, " ") != "/work/record_001.png stdout -l eng" {
		t.Fatalf("unexpected invocation %s %v", runner.name, runner.args)
	}
}

func TestArgsWithOptionalFlags(t *testing.T) {
	engine := New(&runnerFake{}, Config{Lang: "eng+fra", TessdataDir: "/tessdata", PSM: 6})
	got := strings.Join(engine.Args("p.png"), " ")
	if got != "p.png stdout -l eng+fra --tessdata-dir /tessdata --psm 6" {
		t.Fatalf("unexpected args %q", got)
	}
}

func TestRecognizeFailure(t *testing.T) {
	engine := New(&runnerFake{err: errors.New("exit status 1")}, Config{})
	if _, err := engine.Recognize(context.Background(), "/work/p.png"); err == nil || !strings.Contains(err.Error(), "p.png") {
		t.Fatalf("expected error naming the image, got %v", err)
	}
}
