// Package capture runs frame readers on a background goroutine and hands the most recent frame
// to the recognition pipeline.
package capture

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nvr-ai/go-sightline/frame"
)

// DefaultMaxFailures is the number of consecutive read failures after which a stream gives up.
const DefaultMaxFailures = 5

// ErrEmptyFrame is returned by a Reader that produced no image for one read. It counts as a
// skipped frame, not a failure.
var ErrEmptyFrame = errors.New("empty frame")

// Reader produces frames from a capture device. Read is only ever called from one goroutine.
type Reader interface {
	// Read blocks until the device produces a frame. io.EOF ends the stream.
	Read(ctx context.Context) (*frame.Frame, error)
	// Close releases the device.
	Close() error
}

// StreamConfig tunes the capture loop.
type StreamConfig struct {
	// Interval paces reads. Zero reads as fast as the device delivers.
	Interval time.Duration `yaml:"interval"`
	// MaxFailures is the number of consecutive read errors tolerated. Zero selects
	// DefaultMaxFailures.
	MaxFailures int `yaml:"max_failures"`
	// Rotation is stamped on every frame that does not carry its own.
	Rotation frame.Rotation `yaml:"rotation"`
}

// Stream is a frame.Source fed by a capture goroutine. Frames that arrive faster than they are
// consumed are dropped, oldest first.
type Stream struct {
	reader  Reader
	config  StreamConfig
	mailbox *frame.Mailbox
	logger  logrus.FieldLogger

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	seq     atomic.Uint64
	errMu   sync.Mutex
	lastErr error
}

// NewStream starts capturing from reader.
//
// Arguments:
//   - reader: The device to read. The stream owns it and closes it in Close.
//   - config: Pacing and failure tolerance.
//   - logger: The logger. nil selects the standard logger.
//
// Returns:
//   - *Stream: The running stream.
func NewStream(reader Reader, config StreamConfig, logger logrus.FieldLogger) *Stream {
	if config.MaxFailures <= 0 {
		config.MaxFailures = DefaultMaxFailures
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Stream{
		reader:  reader,
		config:  config,
		mailbox: frame.NewMailbox(),
		logger:  logger.WithField("component", "capture"),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go s.loop(ctx)
	return s
}

func (s *Stream) loop(ctx context.Context) {
	defer close(s.done)
	// Frames published before the end of the stream stay deliverable.
	defer s.mailbox.Finish()

	var ticker *time.Ticker
	if s.config.Interval > 0 {
		ticker = time.NewTicker(s.config.Interval)
		defer ticker.Stop()
	}

	failures := 0
	for {
		f, err := s.reader.Read(ctx)
		switch {
		case ctx.Err() != nil:
			f.Release()
			return
		case errors.Is(err, ErrEmptyFrame):
			s.logger.Debug("device returned an empty frame")
		case errors.Is(err, io.EOF):
			s.fail(io.EOF)
			s.logger.Info("capture stream ended")
			return
		case err != nil:
			failures++
			s.logger.WithError(err).WithField("failures", failures).Warn("frame read failed")
			if failures >= s.config.MaxFailures {
				s.fail(err)
				s.logger.WithError(err).Error("capture device stopped responding")
				return
			}
		case f == nil:
			s.logger.Debug("device returned no frame")
		default:
			failures = 0
			f.Seq = s.seq.Add(1)
			if f.Timestamp.IsZero() {
				f.Timestamp = time.Now()
			}
			if f.Rotation == frame.Rotate0 {
				f.Rotation = s.config.Rotation
			}
			s.mailbox.Publish(f)
		}

		if ticker != nil {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}
}

func (s *Stream) fail(err error) {
	s.errMu.Lock()
	s.lastErr = err
	s.errMu.Unlock()
}

func (s *Stream) err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.lastErr
}

// Next returns the most recent frame, waiting for one if none is pending. After the device has
// ended or failed, the last frame it produced is still delivered before the error.
//
// Returns:
//   - *frame.Frame: The frame, owned by the caller.
//   - error: ctx.Err(), frame.ErrSourceClosed after Close, or a *frame.CaptureError once the
//     device has failed or run out of frames.
func (s *Stream) Next(ctx context.Context) (*frame.Frame, error) {
	f, err := s.mailbox.Next(ctx)
	if errors.Is(err, frame.ErrSourceClosed) {
		if cause := s.err(); cause != nil {
			if errors.Is(cause, io.EOF) {
				return nil, frame.NewCaptureError("end of stream", cause)
			}
			return nil, frame.NewCaptureError("device failed", cause)
		}
	}
	return f, err
}

// Stats returns the hand-off counters. Dropped counts frames released without being delivered.
func (s *Stream) Stats() frame.MailboxStats {
	return s.mailbox.Stats()
}

// Close stops the capture goroutine and closes the reader. It is idempotent.
func (s *Stream) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		<-s.done
		s.mailbox.Close()
		err = s.reader.Close()
	})
	return err
}
