package preprocess

import (
	"unsafe"

	"github.com/chewxy/math32"
)

const (
	// InputSize is the square edge, in pixels, of the detector input.
	InputSize = 300
	// Channels is the number of colour channels per pixel (R, G, B).
	Channels = 3
	// TensorLen is the number of float32 values in a packed tensor.
	TensorLen = InputSize * InputSize * Channels
	// TensorBytes is the size of a packed tensor in bytes.
	TensorBytes = 4 * TensorLen
)

// Tensor is a packed 300x300x3 detector input: row-major, interleaved R,G,B, each channel a
// float32 in [0, 255].
//
// A Tensor is owned by one stage at a time and is handed to the inference engine without
// copying.
type Tensor struct {
	data []float32
}

// NewTensor allocates a zeroed tensor.
func NewTensor() *Tensor {
	return &Tensor{data: make([]float32, TensorLen)}
}

// Float32s returns the backing values. The slice aliases the tensor.
func (t *Tensor) Float32s() []float32 {
	return t.data
}

// Bytes returns the tensor as native-order bytes. The slice aliases the tensor; no copy is made.
func (t *Tensor) Bytes() []byte {
	if len(t.data) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&t.data[0])), len(t.data)*4)
}

// ByteSize is the size of the buffer in bytes. It is TensorBytes for any live tensor.
func (t *Tensor) ByteSize() int {
	return len(t.data) * 4
}

// Shape returns the NHWC shape of the tensor.
func (t *Tensor) Shape() []int64 {
	return []int64{1, InputSize, InputSize, Channels}
}

// At returns the three channels of the pixel at (x, y).
func (t *Tensor) At(x, y int) (float32, float32, float32) {
	i := (y*InputSize + x) * Channels
	return t.data[i], t.data[i+1], t.data[i+2]
}

// Release drops the buffer. Using the tensor afterwards is a programming error.
func (t *Tensor) Release() {
	if t != nil {
		t.data = nil
	}
}

// CopyUint8 narrows the tensor into dst for runtimes with 8-bit inputs, rounding and clamping
// each value to [0, 255].
//
// Returns:
//   - int: The number of values written.
func (t *Tensor) CopyUint8(dst []uint8) int {
	n := min(len(dst), len(t.data))
	for i := 0; i < n; i++ {
		dst[i] = uint8(math32.Min(math32.Max(math32.Round(t.data[i]), 0), 255))
	}
	return n
}
