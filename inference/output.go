package inference

import (
	"fmt"

	"gorgonia.org/tensor"
)

// MaxDetections is the fixed number of detection slots the model produces per call.
const MaxDetections = 10

// RawOutput holds the four fixed-shape detector outputs.
type RawOutput struct {
	// Boxes is [N,4] row-major: ymin, xmin, ymax, xmax, normalized to [0,1].
	Boxes []float32
	// ClassIDs is [N]; ids are integral values carried as floats.
	ClassIDs []float32
	// Scores is [N].
	Scores []float32
	// Count is the number of valid slots declared by the model.
	Count float32
}

// NewRawOutput allocates zeroed output buffers for MaxDetections slots.
func NewRawOutput() RawOutput {
	return RawOutput{
		Boxes:    make([]float32, MaxDetections*4),
		ClassIDs: make([]float32, MaxDetections),
		Scores:   make([]float32, MaxDetections),
	}
}

// EmptyOutput is the result of a degraded forward pass: no detections.
func EmptyOutput() RawOutput {
	return NewRawOutput()
}

// Slots returns the number of complete slots present in all three arrays.
func (o RawOutput) Slots() int {
	return min(len(o.Boxes)/4, len(o.ClassIDs), len(o.Scores))
}

// BoxTensor returns a [slots,4] view over the box buffer. No data is copied.
//
// Returns:
//   - *tensor.Dense: The view, limited to the slots present in all three arrays.
//   - error: If there are no slots, or the box buffer does not hold whole boxes.
func (o RawOutput) BoxTensor() (*tensor.Dense, error) {
	if len(o.Boxes)%4 != 0 {
		return nil, fmt.Errorf("box buffer holds %d values, not a whole number of boxes", len(o.Boxes))
	}
	n := o.Slots()
	if n == 0 {
		return nil, fmt.Errorf("no detection slots")
	}
	return tensor.New(tensor.WithShape(n, 4), tensor.WithBacking(o.Boxes[:n*4])), nil
}

// Clone returns a deep copy detached from any runtime-owned buffers.
func (o RawOutput) Clone() RawOutput {
	return RawOutput{
		Boxes:    append([]float32(nil), o.Boxes...),
		ClassIDs: append([]float32(nil), o.ClassIDs...),
		Scores:   append([]float32(nil), o.Scores...),
		Count:    o.Count,
	}
}
