package frame

import (
	"context"
	"errors"
	"fmt"
)

// ErrSourceClosed is returned by a Source after Close has been called.
var ErrSourceClosed = errors.New("frame source closed")

// Source yields raw frames one at a time from a capture subsystem.
type Source interface {
	// Next blocks until a frame is available, the context is cancelled, or the source fails.
	// The caller owns the returned frame and must Release it.
	Next(ctx context.Context) (*Frame, error)
	// Close unbinds the capture device. It is safe to call more than once.
	Close() error
}

// CaptureError reports that the capture subsystem could not deliver a frame.
type CaptureError struct {
	Message string
	Cause   error
}

// NewCaptureError wraps cause as a capture failure.
func NewCaptureError(message string, cause error) *CaptureError {
	return &CaptureError{Message: message, Cause: cause}
}

func (e *CaptureError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("capture failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("capture failed: %s", e.Message)
}

func (e *CaptureError) Unwrap() error {
	return e.Cause
}
