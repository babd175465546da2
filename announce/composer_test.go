package announce

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-sightline/detection"
)

func item(label string, confidence float32) detection.FilteredDetection {
	level, _ := detection.LevelOf(confidence)
	return detection.FilteredDetection{
		Detection: detection.Detection{Label: label, Confidence: confidence},
		Level:     level,
	}
}

func newTestComposer(t *testing.T) *Composer {
	t.Helper()
	c, err := NewComposer(DefaultTemplates, FirstSelector)
	require.NoError(t, err)
	return c
}

func TestComposeEmpty(t *testing.T) {
	c := newTestComposer(t)
	assert.Equal(t, NoObjectsSentence, c.Compose(nil))
	assert.Equal(t, NoObjectsSentence, c.Compose([]detection.FilteredDetection{}))
}

func TestComposeSingle(t *testing.T) {
	c := newTestComposer(t)

	got := c.Compose([]detection.FilteredDetection{item("person", 0.92)})

	assert.Equal(t, "I see a person", got)
	assert.NotContains(t, got, "and")
	assert.NotContains(t, got, ",")
}

func TestComposeTwo(t *testing.T) {
	c := newTestComposer(t)

	got := c.Compose([]detection.FilteredDetection{item("person", 0.92), item("umbrella", 0.65)})

	assert.Equal(t, "I see a person, and there might be an umbrella", got)
}

func TestComposeThree(t *testing.T) {
	c := newTestComposer(t)

	got := c.Compose([]detection.FilteredDetection{
		item("person", 0.92),
		item("chair", 0.78),
		item("cup", 0.65),
	})

	assert.Equal(t, "I see a person, I think I see a chair, and there might be a cup", got)
	assert.Equal(t, 1, strings.Count(got, "and"))
	parts := strings.Split(got, ", ")
	require.Len(t, parts, 3)
	assert.True(t, strings.HasPrefix(parts[2], "and "))
}

func TestComposePreservesOrder(t *testing.T) {
	c := newTestComposer(t)
	filtered := detection.Classify([]detection.Detection{
		{Label: "cup", Confidence: 0.65},
		{Label: "person", Confidence: 0.92},
	})

	got := c.Compose(filtered)

	assert.Less(t, strings.Index(got, "person"), strings.Index(got, "cup"))
}

func TestJoin(t *testing.T) {
	assert.Equal(t, NoObjectsSentence, Join(nil))
	assert.Equal(t, "p1", Join([]string{"p1"}))
	assert.Equal(t, "p1, and p2", Join([]string{"p1", "p2"}))
	assert.Equal(t, "p1, p2, and p3", Join([]string{"p1", "p2", "p3"}))
	assert.Equal(t, "p1, p2, p3, and p4", Join([]string{"p1", "p2", "p3", "p4"}))
}

func TestPhraseUsesLevelPool(t *testing.T) {
	pick := SelectorFunc(func(_ detection.ConfidenceLevel, n int) int { return n - 1 })
	c, err := NewComposer(DefaultTemplates, pick)
	require.NoError(t, err)

	assert.Equal(t, "I can see a dog", c.Phrase(item("dog", 0.9)))
	assert.Equal(t, "there is probably a dog", c.Phrase(item("dog", 0.75)))
	assert.Equal(t, "I may be seeing a dog", c.Phrase(item("dog", 0.61)))
}

func TestPhraseIgnoresOutOfRangeSelection(t *testing.T) {
	bad := SelectorFunc(func(detection.ConfidenceLevel, int) int { return 99 })
	c, err := NewComposer(DefaultTemplates, bad)
	require.NoError(t, err)

	assert.Equal(t, "I see a dog", c.Phrase(item("dog", 0.9)))
}

func TestSeededSelectorIsDeterministic(t *testing.T) {
	items := []detection.FilteredDetection{item("person", 0.92), item("chair", 0.78), item("cup", 0.65)}

	a, err := NewComposer(DefaultTemplates, NewSeededSelector(7))
	require.NoError(t, err)
	b, err := NewComposer(DefaultTemplates, NewSeededSelector(7))
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		assert.Equal(t, a.Compose(items), b.Compose(items))
	}
}

func TestRandomSelectorRange(t *testing.T) {
	s := NewRandomSelector()
	for i := 0; i < 100; i++ {
		v := s.Select(detection.LevelHigh, 3)
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 3)
	}
	assert.Equal(t, 0, s.Select(detection.LevelHigh, 1))
}

func TestTemplatesValidate(t *testing.T) {
	require.NoError(t, DefaultTemplates.Validate())

	_, err := NewComposer(Templates{High: []string{"{object}"}, Medium: []string{"{object}"}}, nil)
	assert.Error(t, err, "empty pool")

	_, err = NewComposer(Templates{
		High:   []string{"no placeholder"},
		Medium: []string{"{object}"},
		Low:    []string{"{object}"},
	}, nil)
	assert.Error(t, err)
}

func TestWithArticle(t *testing.T) {
	assert.Equal(t, "a person", WithArticle("person"))
	assert.Equal(t, "an umbrella", WithArticle("umbrella"))
	assert.Equal(t, "an orange", WithArticle(" orange "))
	assert.Equal(t, "", WithArticle(""))
}
