// Package announce composes natural-language announcements from classified detections.
package announce

import (
	"strings"

	"github.com/nvr-ai/go-sightline/detection"
)

// NoObjectsSentence is announced when nothing passed the confidence floor.
const NoObjectsSentence = "I don't see any objects right now."

// CaptureFailedSentence is announced when no frame could be captured, so that a failed look is
// never mistaken for an empty scene.
const CaptureFailedSentence = "I can't see anything, the camera is not responding."

// Composer turns classified detections into a spoken sentence.
type Composer struct {
	templates Templates
	selector  Selector
}

// NewComposer creates a composer.
//
// Arguments:
//   - templates: The phrase pools. They must pass Validate.
//   - selector: The template-selection strategy. nil selects a RandomSelector.
//
// Returns:
//   - *Composer: The composer.
//   - error: An error if the templates are invalid.
func NewComposer(templates Templates, selector Selector) (*Composer, error) {
	if err := templates.Validate(); err != nil {
		return nil, err
	}
	if selector == nil {
		selector = NewRandomSelector()
	}
	return &Composer{templates: templates, selector: selector}, nil
}

// Compose builds the announcement for detections that are already filtered and sorted.
//
//   - none: NoObjectsSentence
//   - one: the phrase itself
//   - two: "<first>, and <second>"
//   - more: "<first>, <second>, ..., and <last>"
func (c *Composer) Compose(items []detection.FilteredDetection) string {
	phrases := make([]string, len(items))
	for i, item := range items {
		phrases[i] = c.Phrase(item)
	}
	return Join(phrases)
}

// Phrase renders one detection with a template from its level's pool.
func (c *Composer) Phrase(item detection.FilteredDetection) string {
	pool := c.templates.Pool(item.Level)
	i := c.selector.Select(item.Level, len(pool))
	if i < 0 || i >= len(pool) {
		i = 0
	}
	return strings.Replace(pool[i], Placeholder, WithArticle(item.Label), 1)
}

// Join combines phrases into a single sentence.
func Join(phrases []string) string {
	switch len(phrases) {
	case 0:
		return NoObjectsSentence
	case 1:
		return phrases[0]
	default:
		last := len(phrases) - 1
		return strings.Join(phrases[:last], ", ") + ", and " + phrases[last]
	}
}

// WithArticle prefixes a label with its indefinite article.
func WithArticle(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return label
	}
	switch label[0] {
	case 'a', 'e', 'i', 'o', 'u', 'A', 'E', 'I', 'O', 'U':
		return "an " + label
	default:
		return "a " + label
	}
}
