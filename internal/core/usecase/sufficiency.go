package usecase

import (
	"context"
	"regexp"
	"strings"

	"github.com/kirillkom/docprep/internal/core/ports"
)

// DefaultWordThreshold is the minimal number of words a usable extraction must exceed.
const DefaultWordThreshold = 10

var wordPattern = regexp.MustCompile(`[A-Za-z]{3,}`)

// CountWords counts runs of three or more ASCII letters.
func CountWords(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	return len(wordPattern.FindAllStringIndex(text, -1))
}

// MeetsContentThreshold is true iff text holds strictly more than threshold words.
func MeetsContentThreshold(text string, threshold int) bool {
	return CountWords(text) > threshold
}

// SufficiencyChecker combines the structural pre-check with the content threshold.
type SufficiencyChecker struct {
	threshold int
}

func NewSufficiencyChecker(threshold int) *SufficiencyChecker {
	if threshold < 0 {
		threshold = DefaultWordThreshold
	}
	return &SufficiencyChecker{threshold: threshold}
}

func (c *SufficiencyChecker) Threshold() int { return c.threshold }

// HasStructuralText asks the strategy whether the document carries a text layer.
// An undecidable check counts as "no text" so the document goes through the fallback.
func (c *SufficiencyChecker) HasStructuralText(ctx context.Context, strategy ports.ExtractionStrategy, localPath string) (bool, error) {
	ok, err := strategy.HasStructuralText(ctx, localPath)
	return ok && err == nil, err
}

func (c *SufficiencyChecker) MeetsContentThreshold(text string) bool {
	return MeetsContentThreshold(text, c.threshold)
}
