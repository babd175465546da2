package detection

import (
	"github.com/chewxy/math32"
	"github.com/sirupsen/logrus"

	"github.com/nvr-ai/go-sightline/inference"
)

// Decoder turns raw detector outputs into detections. It never fails: malformed counts, ids,
// scores and boxes are clamped or dropped.
type Decoder struct {
	vocabulary *inference.Vocabulary
	logger     logrus.FieldLogger
}

// NewDecoder creates a decoder that resolves class ids against vocabulary.
func NewDecoder(vocabulary *inference.Vocabulary, logger logrus.FieldLogger) *Decoder {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Decoder{
		vocabulary: vocabulary,
		logger:     logger.WithField("component", "decoder"),
	}
}

// Decode converts the first count slots of out into detections.
//
// Slots whose class id resolves to an unlabeled entry or falls outside the vocabulary are
// dropped, as are slots with a non-finite score or a box that is empty after clamping to [0,1].
// A box buffer that does not hold whole boxes yields no detections.
//
// Arguments:
//   - out: The raw model outputs.
//
// Returns:
//   - []Detection: At most inference.MaxDetections detections, in slot order.
func (d *Decoder) Decode(out inference.RawOutput) []Detection {
	n := clampCount(out.Count, min(inference.MaxDetections, out.Slots()))
	if n == 0 {
		return nil
	}

	boxes, err := out.BoxTensor()
	if err != nil {
		d.logger.WithError(err).Warn("discarding malformed detector output")
		return nil
	}

	detections := make([]Detection, 0, n)
	dropped := 0
	for i := 0; i < n; i++ {
		id := out.ClassIDs[i]
		if math32.IsNaN(id) || math32.IsInf(id, 0) {
			dropped++
			continue
		}
		label, ok := d.vocabulary.Lookup(int(math32.Round(id)))
		if !ok {
			dropped++
			continue
		}

		score := out.Scores[i]
		if math32.IsNaN(score) {
			dropped++
			continue
		}

		var coords [4]float32
		for j := range coords {
			v, _ := boxes.At(i, j)
			coords[j] = clampUnit(v.(float32))
		}
		box := BoundingBox{YMin: coords[0], XMin: coords[1], YMax: coords[2], XMax: coords[3]}
		if !(box.YMax > box.YMin && box.XMax > box.XMin) {
			dropped++
			continue
		}

		detections = append(detections, Detection{
			Label:      label,
			Confidence: clampUnit(score),
			Box:        box,
		})
	}

	if dropped > 0 {
		d.logger.WithField("dropped", dropped).Debug("discarded unusable detection slots")
	}
	return detections
}

// clampCount converts a declared count into a slot count in [0, limit].
func clampCount(count float32, limit int) int {
	if math32.IsNaN(count) || count <= 0 || limit <= 0 {
		return 0
	}
	if count >= float32(limit) {
		return limit
	}
	return int(count)
}

// clampUnit clamps v into [0,1]; NaN maps to 0.
func clampUnit(v float32) float32 {
	if math32.IsNaN(v) {
		return 0
	}
	return math32.Min(math32.Max(v, 0), 1)
}
