package detection

import "sort"

// Fixed confidence thresholds. They are not user-configurable.
const (
	HighThreshold   float32 = 0.85
	MediumThreshold float32 = 0.70
	// MinConfidence is the floor below which detections are never surfaced.
	MinConfidence float32 = 0.60
)

// LevelOf buckets a confidence value.
//
// Returns:
//   - ConfidenceLevel: The bucket.
//   - bool: false if the confidence is below MinConfidence.
func LevelOf(confidence float32) (ConfidenceLevel, bool) {
	switch {
	case confidence >= HighThreshold:
		return LevelHigh, true
	case confidence >= MediumThreshold:
		return LevelMedium, true
	case confidence >= MinConfidence:
		return LevelLow, true
	default:
		return 0, false
	}
}

// Classify drops detections below the confidence floor, attaches a level to the rest and sorts
// them by descending confidence. Ties keep their input order.
func Classify(detections []Detection) []FilteredDetection {
	filtered := make([]FilteredDetection, 0, len(detections))
	for _, d := range detections {
		level, ok := LevelOf(d.Confidence)
		if !ok {
			continue
		}
		filtered = append(filtered, FilteredDetection{Detection: d, Level: level})
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Confidence > filtered[j].Confidence
	})
	return filtered
}
