// Package detection decodes raw detector outputs into labeled detections and buckets them by
// confidence.
package detection

import "fmt"

// BoundingBox is a normalized box: every coordinate is a fraction of the image size in [0,1].
type BoundingBox struct {
	YMin float32 `json:"y_min"`
	XMin float32 `json:"x_min"`
	YMax float32 `json:"y_max"`
	XMax float32 `json:"x_max"`
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("(%.3f, %.3f), (%.3f, %.3f)", b.YMin, b.XMin, b.YMax, b.XMax)
}

// Detection is one recognized object.
type Detection struct {
	Label      string      `json:"label"`
	Confidence float32     `json:"confidence"`
	Box        BoundingBox `json:"bounding_box"`
}

func (d Detection) String() string {
	return fmt.Sprintf("Object %s (confidence %f): %s", d.Label, d.Confidence, d.Box)
}

// ConfidenceLevel is a coarse bucket of a detection's confidence.
type ConfidenceLevel int

const (
	// LevelLow covers [0.60, 0.70).
	LevelLow ConfidenceLevel = iota
	// LevelMedium covers [0.70, 0.85).
	LevelMedium
	// LevelHigh covers [0.85, 1].
	LevelHigh
)

func (l ConfidenceLevel) String() string {
	switch l {
	case LevelHigh:
		return "HIGH"
	case LevelMedium:
		return "MEDIUM"
	case LevelLow:
		return "LOW"
	default:
		return fmt.Sprintf("ConfidenceLevel(%d)", int(l))
	}
}

// FilteredDetection is a detection that passed the confidence floor, paired with its level.
type FilteredDetection struct {
	Detection
	Level ConfidenceLevel `json:"level"`
}
