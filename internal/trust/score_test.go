package trust

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Kushall-07/Ai-tower/internal/risk"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name          string
		promptWords   int
		responseWords int
		level         risk.Level
		upstreamErr   bool
		want          float64
	}{
		{"baseline", 3, 10, risk.LevelLow, false, 0.9},
		{"upstream error", 3, 10, risk.LevelLow, true, 0.6},
		{"high risk", 3, 10, risk.LevelHigh, false, 0.6},
		{"medium risk", 3, 10, risk.LevelMedium, false, 0.8},
		{"short answer to long prompt", 6, 2, risk.LevelLow, false, 0.8},
		{"short answer needs long prompt", 5, 2, risk.LevelLow, false, 0.9},
		{"three word answer is not short", 6, 3, risk.LevelLow, false, 0.9},
		{"all penalties stack to the floor", 6, 2, risk.LevelHigh, true, 0.2},
		{"unknown level takes no risk penalty", 3, 10, risk.Level("bogus"), false, 0.9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.promptWords, tt.responseWords, tt.level, tt.upstreamErr)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestWordCount(t *testing.T) {
	assert.Equal(t, 0, WordCount(""))
	assert.Equal(t, 0, WordCount("   \n\t"))
	assert.Equal(t, 3, WordCount("one two three"))
	assert.Equal(t, 3, WordCount("  one\ttwo \n three  "))
}
