// Package frame defines the raw camera frame handed from a capture subsystem to the
// recognition pipeline, the source contract that yields frames, and the latest-frame mailbox
// that decouples a fast sensor from a slower consumer.
package frame

import (
	"fmt"
	"sync"
	"time"
)

// Rotation is the clockwise sensor orientation, in degrees, that must be applied to a frame
// to make it upright.
type Rotation int

const (
	Rotate0   Rotation = 0
	Rotate90  Rotation = 90
	Rotate180 Rotation = 180
	Rotate270 Rotation = 270
)

// Valid reports whether r is one of the four supported orientations.
func (r Rotation) Valid() bool {
	switch r {
	case Rotate0, Rotate90, Rotate180, Rotate270:
		return true
	}
	return false
}

// Frame is one raw camera frame in planar luma/chroma (YUV 4:2:0) layout.
//
// The chroma planes are subsampled by two in both directions. UVPixelStride is the distance in
// bytes between two neighbouring chroma samples in a row: 1 for fully planar I420, 2 for
// interleaved NV12/NV21 views where U and V alias the same buffer.
//
// A Frame is owned by exactly one stage at a time. Whoever holds it last calls Release.
type Frame struct {
	// Seq is the capture sequence number assigned by the source.
	Seq uint64
	// TraceID correlates a frame with the recognition cycle that consumed it.
	TraceID string
	// Timestamp is the capture time reported by the source.
	Timestamp time.Time

	Width  int
	Height int

	Y []byte
	U []byte
	V []byte

	YStride       int
	UVStride      int
	UVPixelStride int

	Rotation Rotation

	release func()
	once    sync.Once
}

// NewI420 allocates a tightly packed planar frame of the given size.
//
// Arguments:
//   - width: The frame width in pixels.
//   - height: The frame height in pixels.
//
// Returns:
//   - *Frame: A zeroed frame with allocated planes.
func NewI420(width, height int) *Frame {
	cw, ch := ChromaSize(width, height)
	return &Frame{
		Width:         width,
		Height:        height,
		Y:             make([]byte, width*height),
		U:             make([]byte, cw*ch),
		V:             make([]byte, cw*ch),
		YStride:       width,
		UVStride:      cw,
		UVPixelStride: 1,
		Timestamp:     time.Now(),
	}
}

// ChromaSize returns the dimensions of a 4:2:0 chroma plane for a luma plane of the given size.
func ChromaSize(width, height int) (int, int) {
	return (width + 1) / 2, (height + 1) / 2
}

// OnRelease registers a hook that runs once when the frame is released. It is used by sources
// that recycle native buffers.
func (f *Frame) OnRelease(fn func()) {
	f.release = fn
}

// Release returns the frame's buffers to their owner. It is safe to call more than once and on
// a nil frame.
func (f *Frame) Release() {
	if f == nil {
		return
	}
	f.once.Do(func() {
		if f.release != nil {
			f.release()
		}
		f.Y, f.U, f.V = nil, nil, nil
	})
}

// Validate checks that the plane sizes and strides can hold a frame of the declared geometry.
//
// Returns:
//   - error: A description of the first inconsistency found, or nil.
func (f *Frame) Validate() error {
	if f == nil {
		return fmt.Errorf("frame is nil")
	}
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("invalid frame dimensions %dx%d", f.Width, f.Height)
	}
	if !f.Rotation.Valid() {
		return fmt.Errorf("invalid rotation %d", f.Rotation)
	}
	if f.YStride < f.Width {
		return fmt.Errorf("luma stride %d is smaller than width %d", f.YStride, f.Width)
	}
	if need := f.YStride*(f.Height-1) + f.Width; len(f.Y) < need {
		return fmt.Errorf("luma plane has %d bytes, need %d", len(f.Y), need)
	}

	cw, ch := ChromaSize(f.Width, f.Height)
	if f.UVPixelStride < 1 {
		return fmt.Errorf("invalid chroma pixel stride %d", f.UVPixelStride)
	}
	rowBytes := (cw-1)*f.UVPixelStride + 1
	if f.UVStride < rowBytes {
		return fmt.Errorf("chroma stride %d is smaller than row size %d", f.UVStride, rowBytes)
	}
	need := f.UVStride*(ch-1) + rowBytes
	if len(f.U) < need {
		return fmt.Errorf("U plane has %d bytes, need %d", len(f.U), need)
	}
	if len(f.V) < need {
		return fmt.Errorf("V plane has %d bytes, need %d", len(f.V), need)
	}
	return nil
}

// Fill paints the whole frame with a single YUV colour.
func (f *Frame) Fill(y, u, v uint8) {
	for row := 0; row < f.Height; row++ {
		line := f.Y[row*f.YStride : row*f.YStride+f.Width]
		for i := range line {
			line[i] = y
		}
	}
	cw, ch := ChromaSize(f.Width, f.Height)
	for row := 0; row < ch; row++ {
		for col := 0; col < cw; col++ {
			off := row*f.UVStride + col*f.UVPixelStride
			f.U[off] = u
			f.V[off] = v
		}
	}
}
