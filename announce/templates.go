package announce

import (
	"fmt"
	"strings"

	"github.com/nvr-ai/go-sightline/detection"
)

// Placeholder marks where the object phrase ("a person", "an umbrella") is substituted.
const Placeholder = "{object}"

// Templates holds one pool of phrase templates per confidence level.
type Templates struct {
	// High templates are assertive.
	High []string `json:"high"   yaml:"high"`
	// Medium templates are qualified.
	Medium []string `json:"medium" yaml:"medium"`
	// Low templates are hedged.
	Low []string `json:"low"    yaml:"low"`
}

// DefaultTemplates are the built-in English phrase pools.
var DefaultTemplates = Templates{
	High: []string{
		"I see {object}",
		"there is {object} in front of you",
		"I can see {object}",
	},
	Medium: []string{
		"I think I see {object}",
		"that looks like {object}",
		"there is probably {object}",
	},
	Low: []string{
		"there might be {object}",
		"possibly {object}",
		"I may be seeing {object}",
	},
}

// Pool returns the templates for a level.
func (t Templates) Pool(level detection.ConfidenceLevel) []string {
	switch level {
	case detection.LevelHigh:
		return t.High
	case detection.LevelMedium:
		return t.Medium
	default:
		return t.Low
	}
}

// Validate checks that every pool is non-empty and every template has exactly one placeholder.
func (t Templates) Validate() error {
	for _, level := range []detection.ConfidenceLevel{detection.LevelHigh, detection.LevelMedium, detection.LevelLow} {
		pool := t.Pool(level)
		if len(pool) == 0 {
			return fmt.Errorf("no templates for level %s", level)
		}
		for _, tmpl := range pool {
			if strings.Count(tmpl, Placeholder) != 1 {
				return fmt.Errorf("template %q for level %s must contain %s exactly once", tmpl, level, Placeholder)
			}
		}
	}
	return nil
}
