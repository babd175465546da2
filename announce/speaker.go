package announce

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Speaker delivers an announcement to the user.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// WriterSpeaker prints announcements, one per line. It stands in for a text-to-speech engine.
type WriterSpeaker struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSpeaker creates a speaker that writes to w.
func NewWriterSpeaker(w io.Writer) *WriterSpeaker {
	return &WriterSpeaker{w: w}
}

// Speak writes text followed by a newline.
func (s *WriterSpeaker) Speak(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintln(s.w, text)
	return err
}
