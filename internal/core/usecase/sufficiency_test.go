package usecase

import (
	"context"
	"errors"
	"testing"
)

func TestMeetsContentThreshold(t *testing.T) {
	cases := []struct {
		name      string
		text      string
		threshold int
		want      bool
	}{
		{name: "plain words", text: "word words more words", threshold: 3, want: true},
		{name: "digits and short tokens", text: "12323 word w a9s90s", threshold: 3, want: false},
		{name: "empty", text: "", threshold: 0, want: false},
		{name: "whitespace only", text: " \n\t ", threshold: 0, want: false},
		{name: "exactly threshold", text: "one two three", threshold: 3, want: false},
		{name: "punctuation splits", text: "alpha,beta;gamma.delta", threshold: 3, want: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := MeetsContentThreshold(tc.text, tc.threshold); got != tc.want {
				t.Fatalf("MeetsContentThreshold(%q, %d) = %v, want %v", tc.text, tc.threshold, got, tc.want)
			}
		})
	}
}

func TestCountWordsIgnoresNonASCIILetters(t *testing.T) {
	if got := CountWords("naïve ça"); got != 0 {
		t.Fatalf("expected 0 words, got %d", got)
	}
}

func TestNewSufficiencyCheckerDefaultsNegativeThreshold(t *testing.T) {
	if got := NewSufficiencyChecker(-1).Threshold(); got != DefaultWordThreshold {
		t.Fatalf("expected default threshold, got %d", got)
	}
	if got := NewSufficiencyChecker(0).Threshold(); got != 0 {
		t.Fatalf("expected zero threshold to be kept, got %d", got)
	}
}

func TestHasStructuralTextTreatsErrorAsNoText(t *testing.T) {
	checker := NewSufficiencyChecker(DefaultWordThreshold)
	strategy := NewStrategySet(StrategyDeps{
		FontInspector: &fontInspectorFake{hasFonts: true, err: errors.New("broken")},
	}).For("pdf")

	ok, err := checker.HasStructuralText(context.Background(), strategy, "/tmp/x.pdf")
	if err == nil {
		t.Fatalf("expected inspector error to surface")
	}
	if ok {
		t.Fatalf("expected no structural text on error")
	}
}

func TestStrategySetSelection(t *testing.T) {
	set := NewStrategySet(StrategyDeps{
		PDFFallback:   &converterFake{},
		ImageFallback: &converterFake{},
	})
	cases := map[string]string{
		"pdf":  StrategyPDF,
		"tiff": StrategyImage,
		"png":  StrategyImage,
		"xlsx": StrategySpreadsheet,
		"docx": StrategyPlain,
		"":     StrategyPlain,
	}
	for ext, want := range cases {
		if got := set.For(ext).Name(); got != want {
			t.Fatalf("For(%q) = %s, want %s", ext, got, want)
		}
	}
	if set.For("xlsx").Fallback() != nil {
		t.Fatalf("spreadsheet fallback should be nil when not configured")
	}
	if set.For("docx").Fallback() != nil {
		t.Fatalf("plain strategy must not have a fallback")
	}
	ok, err := set.For("png").HasStructuralText(context.Background(), "scan.png")
	if err != nil || !ok {
		t.Fatalf("non page-description formats always pass the structural check")
	}
}
