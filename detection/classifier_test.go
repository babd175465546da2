package detection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelOf(t *testing.T) {
	tests := []struct {
		confidence float32
		want       ConfidenceLevel
		kept       bool
	}{
		{1.0, LevelHigh, true},
		{0.92, LevelHigh, true},
		{0.85, LevelHigh, true},
		{0.849, LevelMedium, true},
		{0.78, LevelMedium, true},
		{0.70, LevelMedium, true},
		{0.65, LevelLow, true},
		{0.60, LevelLow, true},
		{0.599, 0, false},
		{0.50, 0, false},
		{0, 0, false},
	}
	for _, tt := range tests {
		level, kept := LevelOf(tt.confidence)
		assert.Equal(t, tt.kept, kept, "confidence %v", tt.confidence)
		if tt.kept {
			assert.Equal(t, tt.want, level, "confidence %v", tt.confidence)
		}
	}
}

func TestClassifyFiltersAndSorts(t *testing.T) {
	in := []Detection{
		{Label: "cup", Confidence: 0.65},
		{Label: "dog", Confidence: 0.50},
		{Label: "person", Confidence: 0.92},
		{Label: "chair", Confidence: 0.78},
	}

	got := Classify(in)

	require.Len(t, got, 3)
	assert.Equal(t, "person", got[0].Label)
	assert.Equal(t, LevelHigh, got[0].Level)
	assert.Equal(t, "chair", got[1].Label)
	assert.Equal(t, LevelMedium, got[1].Level)
	assert.Equal(t, "cup", got[2].Label)
	assert.Equal(t, LevelLow, got[2].Level)
}

func TestClassifyStableForTies(t *testing.T) {
	got := Classify([]Detection{
		{Label: "a", Confidence: 0.9},
		{Label: "b", Confidence: 0.9},
	})
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Label)
	assert.Equal(t, "b", got[1].Label)
}

func TestClassifyEmpty(t *testing.T) {
	assert.Empty(t, Classify(nil))
	assert.Empty(t, Classify([]Detection{{Label: "dog", Confidence: 0.1}}))
}

func TestConfidenceLevelString(t *testing.T) {
	assert.Equal(t, "HIGH", LevelHigh.String())
	assert.Equal(t, "MEDIUM", LevelMedium.String())
	assert.Equal(t, "LOW", LevelLow.String())
	assert.Equal(t, "ConfidenceLevel(9)", ConfidenceLevel(9).String())
}
