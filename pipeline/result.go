package pipeline

import (
	"time"

	"github.com/google/uuid"

	"github.com/nvr-ai/go-sightline/detection"
)

// RecognitionResult is the immutable record of one completed cycle. An empty Detections list
// means the pipeline looked and saw nothing; a cycle that could not look returns an error
// instead of a result.
type RecognitionResult struct {
	// ID identifies the cycle in logs.
	ID uuid.UUID `json:"id"`
	// Detections passed the confidence floor, sorted by descending confidence.
	Detections []detection.Detection `json:"detections"`
	// TimestampMs is the completion time in Unix milliseconds.
	TimestampMs int64 `json:"timestamp_ms"`
	// LatencyMs spans frame acquisition to the composed announcement.
	LatencyMs int64 `json:"latency_ms"`
}

// Latency returns LatencyMs as a duration.
func (r RecognitionResult) Latency() time.Duration {
	return time.Duration(r.LatencyMs) * time.Millisecond
}

// Outcome is everything one cycle produces.
type Outcome struct {
	Result RecognitionResult
	// Filtered are the detections that passed the confidence floor, sorted by confidence.
	Filtered []detection.FilteredDetection
	// Announcement is the sentence to hand to speech synthesis.
	Announcement string
}
