package capture

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-sightline/frame"
)

type readResult struct {
	frame *frame.Frame
	err   error
}

// scriptedReader replays results, then blocks until the context is cancelled.
type scriptedReader struct {
	mu      sync.Mutex
	results []readResult
	closed  int
}

func (r *scriptedReader) Read(ctx context.Context) (*frame.Frame, error) {
	r.mu.Lock()
	if len(r.results) > 0 {
		next := r.results[0]
		r.results = r.results[1:]
		r.mu.Unlock()
		return next.frame, next.err
	}
	r.mu.Unlock()
	<-ctx.Done()
	return nil, ctx.Err()
}

func (r *scriptedReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed++
	return nil
}

func newFrame() *frame.Frame {
	f := frame.NewI420(4, 4)
	f.Fill(16, 128, 128)
	return f
}

func TestStreamDeliversFrames(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	reader := &scriptedReader{results: []readResult{{frame: newFrame()}}}
	s := NewStream(reader, StreamConfig{Rotation: frame.Rotate90}, logger)
	defer s.Close()

	f, err := s.Next(context.Background())
	require.NoError(t, err)
	defer f.Release()

	assert.Equal(t, uint64(1), f.Seq)
	assert.Equal(t, frame.Rotate90, f.Rotation)
	assert.False(t, f.Timestamp.IsZero())
}

func TestStreamSkipsEmptyFramesAndToleratesFailures(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	reader := &scriptedReader{results: []readResult{
		{err: ErrEmptyFrame},
		{err: errors.New("timeout")},
		{},
		{frame: newFrame()},
	}}
	s := NewStream(reader, StreamConfig{MaxFailures: 2}, logger)
	defer s.Close()

	f, err := s.Next(context.Background())
	require.NoError(t, err)
	f.Release()
}

func TestStreamReportsDeviceFailure(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	boom := errors.New("device unplugged")
	reader := &scriptedReader{results: []readResult{{err: boom}, {err: boom}}}
	s := NewStream(reader, StreamConfig{MaxFailures: 2}, logger)
	defer s.Close()

	_, err := s.Next(context.Background())
	var captureErr *frame.CaptureError
	require.ErrorAs(t, err, &captureErr)
	assert.ErrorIs(t, err, boom)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "capture device stopped responding", hook.LastEntry().Message)
}

func TestStreamEndOfFrames(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	reader := &scriptedReader{results: []readResult{{err: io.EOF}}}
	s := NewStream(reader, StreamConfig{}, logger)
	defer s.Close()

	_, err := s.Next(context.Background())
	var captureErr *frame.CaptureError
	require.ErrorAs(t, err, &captureErr)
	assert.ErrorIs(t, err, io.EOF)
}

func TestStreamNextHonoursContext(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	s := NewStream(&scriptedReader{}, StreamConfig{}, logger)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := s.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStreamKeepsLatestFrame(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	first, second := newFrame(), newFrame()
	reader := &scriptedReader{results: []readResult{{frame: first}, {frame: second}}}
	s := NewStream(reader, StreamConfig{}, logger)
	defer s.Close()

	require.Eventually(t, func() bool { return s.Stats().Published == 2 }, time.Second, time.Millisecond)

	f, err := s.Next(context.Background())
	require.NoError(t, err)
	assert.Same(t, second, f)
	assert.Nil(t, first.Y, "superseded frame released")
	assert.Equal(t, uint64(1), s.Stats().Dropped)
}

func TestStreamClose(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	reader := &scriptedReader{}
	s := NewStream(reader, StreamConfig{}, logger)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, 1, reader.closed)

	_, err := s.Next(context.Background())
	assert.ErrorIs(t, err, frame.ErrSourceClosed)
}

func TestStreamDeliversLastFrameBeforeEnd(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	last := newFrame()
	reader := &scriptedReader{results: []readResult{{frame: last}, {err: io.EOF}}}
	s := NewStream(reader, StreamConfig{}, logger)
	defer s.Close()

	require.Eventually(t, func() bool { return s.Stats().Published == 1 }, time.Second, time.Millisecond)

	f, err := s.Next(context.Background())
	require.NoError(t, err)
	assert.Same(t, last, f)
	f.Release()

	_, err = s.Next(context.Background())
	var captureErr *frame.CaptureError
	require.ErrorAs(t, err, &captureErr)
	assert.ErrorIs(t, err, io.EOF)

	stats := s.Stats()
	assert.Equal(t, uint64(1), stats.Delivered)
	assert.Equal(t, uint64(0), stats.Dropped)
}

func TestStreamCloseDropsUndeliveredFrame(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	pending := newFrame()
	reader := &scriptedReader{results: []readResult{{frame: pending}, {err: io.EOF}}}
	s := NewStream(reader, StreamConfig{}, logger)

	require.Eventually(t, func() bool { return s.Stats().Published == 1 }, time.Second, time.Millisecond)
	require.NoError(t, s.Close())

	assert.Nil(t, pending.Y, "undelivered frame released on Close")
	assert.Equal(t, uint64(1), s.Stats().Dropped)
}
