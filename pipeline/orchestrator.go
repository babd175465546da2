// Package pipeline sequences capture, preprocessing, inference, decoding, classification and
// announcement composition into timed recognition cycles.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/nvr-ai/go-sightline/announce"
	"github.com/nvr-ai/go-sightline/detection"
	"github.com/nvr-ai/go-sightline/frame"
	"github.com/nvr-ai/go-sightline/inference"
	"github.com/nvr-ai/go-sightline/preprocess"
	"github.com/nvr-ai/go-sightline/profiler"
)

const (
	// DefaultLatencyTarget is the soft end-to-end budget of one cycle.
	DefaultLatencyTarget = 320 * time.Millisecond
	// DefaultLatencyHardCap is the hard end-to-end budget of one cycle.
	DefaultLatencyHardCap = 500 * time.Millisecond
)

// Engine is the inference engine contract the orchestrator drives. *inference.Engine
// implements it.
type Engine interface {
	Initialize() error
	Infer(ctx context.Context, input *preprocess.Tensor) (inference.RawOutput, error)
	Vocabulary() *inference.Vocabulary
	Close() error
}

// Preprocessor converts frames into tensors. *preprocess.Preprocessor implements it.
type Preprocessor interface {
	Preprocess(f *frame.Frame) (*preprocess.Tensor, error)
}

// Config holds the latency budget. Exceeding it is logged, never enforced.
type Config struct {
	LatencyTarget  time.Duration `json:"target"   yaml:"target"`
	LatencyHardCap time.Duration `json:"hard_cap" yaml:"hard_cap"`
}

// Orchestrator runs recognition cycles. At most one cycle is in flight; overlapping calls are
// rejected with ErrBusy.
//
// Frame acquisition runs on a dedicated capture worker, everything after it on a compute
// worker. The frame moves from one to the other; neither shares it.
type Orchestrator struct {
	config       Config
	source       frame.Source
	preprocessor Preprocessor
	engine       Engine
	composer     *announce.Composer
	profiler     *profiler.StageProfiler
	logger       logrus.FieldLogger

	state     atomic.Int32
	lifecycle sync.Mutex
	inflight  sync.Mutex
	decoder   *detection.Decoder

	// closing is cancelled by Close and interrupts the cycle in flight.
	closing  context.Context
	shutdown context.CancelFunc

	capture *worker
	compute *worker
}

// New creates an uninitialized orchestrator. The orchestrator takes ownership of source and
// engine and closes them in Close.
//
// Arguments:
//   - config: The latency budget. Zero values select the defaults.
//   - source: The frame source.
//   - preprocessor: The frame preprocessor.
//   - engine: The inference engine.
//   - composer: The announcement composer.
//   - logger: The logger. nil selects the standard logger.
//
// Returns:
//   - *Orchestrator: The orchestrator. Call Initialize before RunOnce.
func New(
	config Config,
	source frame.Source,
	preprocessor Preprocessor,
	engine Engine,
	composer *announce.Composer,
	logger logrus.FieldLogger,
) *Orchestrator {
	if config.LatencyTarget <= 0 {
		config.LatencyTarget = DefaultLatencyTarget
	}
	if config.LatencyHardCap <= 0 {
		config.LatencyHardCap = DefaultLatencyHardCap
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	closing, shutdown := context.WithCancel(context.Background())
	return &Orchestrator{
		closing:      closing,
		shutdown:     shutdown,
		config:       config,
		source:       source,
		preprocessor: preprocessor,
		engine:       engine,
		composer:     composer,
		profiler:     profiler.NewStageProfiler(0),
		logger:       logger.WithField("component", "pipeline"),
		capture:      newWorker("capture"),
		compute:      newWorker("compute"),
	}
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

// Initialize prepares the inference engine and the decoder. It is a no-op when already ready.
//
// Returns:
//   - error: The engine's initialization error; the orchestrator is then StateFailed.
func (o *Orchestrator) Initialize() error {
	o.lifecycle.Lock()
	defer o.lifecycle.Unlock()

	switch o.State() {
	case StateReady, StateRunning:
		return nil
	case StateClosed:
		return ErrClosed
	}

	if err := o.engine.Initialize(); err != nil {
		o.state.Store(int32(StateFailed))
		o.logger.WithError(err).Error("pipeline initialization failed")
		return err
	}

	o.decoder = detection.NewDecoder(o.engine.Vocabulary(), o.logger)
	o.state.Store(int32(StateReady))
	o.logger.Info("pipeline ready")
	return nil
}

// RunOnce executes one capture, preprocess, infer, decode, classify and compose cycle.
//
// A failed forward pass still yields an outcome, with no detections. Capture failures are
// returned as *frame.CaptureError and never retried.
//
// Arguments:
//   - ctx: Cancels the cycle between stages. A stage that has started runs to completion and
//     every buffer it produced is released. Close cancels the cycle the same way.
//
// Returns:
//   - *Outcome: The result and its announcement.
//   - error: ErrNotReady, ErrBusy, ErrClosed, a capture or preprocess error, or ctx.Err().
func (o *Orchestrator) RunOnce(ctx context.Context) (_ *Outcome, err error) {
	if !o.state.CompareAndSwap(int32(StateReady), int32(StateRunning)) {
		switch s := o.State(); s {
		case StateRunning:
			return nil, ErrBusy
		case StateClosed:
			return nil, ErrClosed
		default:
			return nil, fmt.Errorf("%w: %s", ErrNotReady, s)
		}
	}
	o.inflight.Lock()
	defer o.inflight.Unlock()
	defer o.state.Store(int32(StateReady))

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	defer context.AfterFunc(o.closing, func() { cancel(ErrClosed) })()
	defer func() {
		if errors.Is(err, context.Canceled) && errors.Is(context.Cause(ctx), ErrClosed) {
			err = ErrClosed
		}
	}()

	id := uuid.New()
	logger := o.logger.WithField("cycle_id", id)
	start := time.Now()

	f, err := submit(ctx, o.capture, func() (*frame.Frame, error) {
		stop := o.profiler.StartOperation(profiler.StageCapture)
		defer stop()
		return o.source.Next(ctx)
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var captureErr *frame.CaptureError
		if !errors.As(err, &captureErr) {
			captureErr = frame.NewCaptureError("frame source", err)
		}
		logger.WithError(captureErr).Warn("could not capture a frame")
		return nil, captureErr
	}
	if f == nil {
		return nil, frame.NewCaptureError("frame source returned no frame", nil)
	}
	f.TraceID = id.String()

	out, err := submit(ctx, o.compute, func() (*Outcome, error) {
		return o.process(ctx, f)
	})
	if err != nil {
		// The hand-off may have been cancelled before the compute worker took the frame.
		f.Release()
		return nil, err
	}

	end := time.Now()
	latency := max(end.Sub(start), 0)
	o.profiler.Record(profiler.StageCycle, latency)

	out.Result.ID = id
	out.Result.TimestampMs = end.UnixMilli()
	out.Result.LatencyMs = latency.Milliseconds()
	o.reportLatency(logger, out, latency)
	return out, nil
}

// process runs every compute stage. It owns f and releases it.
func (o *Orchestrator) process(ctx context.Context, f *frame.Frame) (*Outcome, error) {
	defer f.Release()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stop := o.profiler.StartOperation(profiler.StagePreprocess)
	tensor, err := o.preprocessor.Preprocess(f)
	stop()
	f.Release()
	if err != nil {
		return nil, err
	}
	defer tensor.Release()

	stop = o.profiler.StartOperation(profiler.StageInference)
	raw, err := o.engine.Infer(ctx, tensor)
	stop()
	if err != nil {
		return nil, err
	}

	stop = o.profiler.StartOperation(profiler.StageDecode)
	detections := o.decoder.Decode(raw)
	stop()

	stop = o.profiler.StartOperation(profiler.StageClassify)
	filtered := detection.Classify(detections)
	stop()

	stop = o.profiler.StartOperation(profiler.StageCompose)
	announcement := o.composer.Compose(filtered)
	stop()

	announced := make([]detection.Detection, len(filtered))
	for i, fd := range filtered {
		announced[i] = fd.Detection
	}
	return &Outcome{
		Result:       RecognitionResult{Detections: announced},
		Filtered:     filtered,
		Announcement: announcement,
	}, nil
}

func (o *Orchestrator) reportLatency(logger logrus.FieldLogger, out *Outcome, latency time.Duration) {
	entry := logger.WithFields(logrus.Fields{
		"latency_ms": out.Result.LatencyMs,
		"detections": len(out.Result.Detections),
	})

	switch {
	case latency > o.config.LatencyHardCap:
		entry.WithField("hard_cap_ms", o.config.LatencyHardCap.Milliseconds()).
			Error("recognition cycle exceeded latency hard cap")
	case latency > o.config.LatencyTarget:
		entry.WithField("target_ms", o.config.LatencyTarget.Milliseconds()).
			Warn("recognition cycle exceeded latency target")
	default:
		entry.Debug("recognition cycle complete")
	}
}

// Run calls RunOnce every interval until ctx is done, handing every outcome to fn. Ticks that
// arrive while a cycle is in flight are skipped. A cycle that completes is delivered even if
// ctx is cancelled while it runs.
//
// Returns:
//   - error: ctx.Err(), or ErrClosed / ErrNotReady if the orchestrator cannot run.
func (o *Orchestrator) Run(ctx context.Context, interval time.Duration, fn func(*Outcome, error)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		out, err := o.RunOnce(ctx)
		switch {
		case err == nil:
			fn(out, nil)
		case errors.Is(err, ErrBusy):
			o.logger.Debug("skipping tick, cycle in flight")
		case errors.Is(err, ErrClosed), errors.Is(err, ErrNotReady):
			return err
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			fn(out, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Timings returns per-stage latency statistics.
func (o *Orchestrator) Timings() []profiler.Summary {
	return o.profiler.Summaries()
}

// Close cancels an in-flight cycle and waits for it to unwind, then releases the engine, the
// source and the workers. It is idempotent.
func (o *Orchestrator) Close() error {
	o.lifecycle.Lock()
	defer o.lifecycle.Unlock()

	o.shutdown()

	for {
		s := o.State()
		if s == StateClosed {
			return nil
		}
		if s != StateRunning && o.state.CompareAndSwap(int32(s), int32(StateClosed)) {
			break
		}
		// Wait for the cycle in flight to finish.
		o.inflight.Lock()
		o.inflight.Unlock()
	}

	o.capture.stop()
	o.compute.stop()

	var errs []error
	if err := o.source.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing frame source: %w", err))
	}
	if err := o.engine.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing inference engine: %w", err))
	}
	o.logger.Info("pipeline closed")
	return errors.Join(errs...)
}
