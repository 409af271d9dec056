// Package trust computes a bounded confidence score for an agent run from
// risk severity, upstream reliability and response-shape heuristics.
package trust

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Kushall-07/Ai-tower/internal/risk"
)

// Score penalties. All penalties subtract from the baseline, never add.
var (
	baseline           = decimal.NewFromFloat(0.9)
	penaltyUpstreamErr = decimal.NewFromFloat(0.3)
	penaltyHighRisk    = decimal.NewFromFloat(0.3)
	penaltyMediumRisk  = decimal.NewFromFloat(0.1)
	penaltyShortAnswer = decimal.NewFromFloat(0.1)
)

// Short-answer heuristic thresholds: a prompt longer than minPromptWords
// answered with fewer than maxShortResponseWords is suspicious.
const (
	minPromptWords        = 5
	maxShortResponseWords = 3
)

// Score computes the trust score for a run. It starts from a 0.9 baseline
// and applies independent additive penalties for an upstream error, risk
// severity and a disproportionately short response, then clamps the result
// to [0, 1] rounded to 2 decimal places. Pure and deterministic.
func Score(promptWords, responseWords int, level risk.Level, hadUpstreamError bool) float64 {
	score := baseline

	if hadUpstreamError {
		score = score.Sub(penaltyUpstreamErr)
	}

	switch level {
	case risk.LevelHigh:
		score = score.Sub(penaltyHighRisk)
	case risk.LevelMedium:
		score = score.Sub(penaltyMediumRisk)
	}

	if promptWords > minPromptWords && responseWords < maxShortResponseWords {
		score = score.Sub(penaltyShortAnswer)
	}

	if score.IsNegative() {
		score = decimal.Zero
	}
	if score.GreaterThan(decimal.NewFromInt(1)) {
		score = decimal.NewFromInt(1)
	}

	f, _ := score.Round(2).Float64()
	return f
}

// WordCount returns the number of whitespace-separated words in text.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
