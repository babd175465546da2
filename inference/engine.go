package inference

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/nvr-ai/go-sightline/inference/providers"
	"github.com/nvr-ai/go-sightline/preprocess"
)

// DefaultThreads is the number of compute threads used when none is configured.
const DefaultThreads = 4

// Config describes the model, vocabulary and compute resources owned by an Engine.
type Config struct {
	// ModelPath is the detector model file.
	ModelPath string `json:"path"         yaml:"path"`
	// LabelsPath is the vocabulary file. Empty selects the bundled COCO label map.
	LabelsPath string `json:"labels_path"  yaml:"labels_path"`
	// LabelOffset is added to class ids before indexing LabelsPath. Ignored for the bundled map.
	LabelOffset int `json:"label_offset" yaml:"label_offset"`
	// Threads is the number of compute threads. Defaults to DefaultThreads.
	Threads int `json:"threads"      yaml:"threads"`
	// Delegate selects an optional hardware-acceleration delegate.
	Delegate providers.Config `yaml:",inline"`
}

// Stats is a snapshot of the engine's state and counters.
type Stats struct {
	Initialized      bool
	Engine           EngineType
	Delegate         providers.ProviderBackend
	DelegateFallback bool
	InputPrecision   Precision
	Passes           uint64
	FailedPasses     uint64
}

// Engine owns a loaded detector model and its vocabulary, and executes forward passes.
//
// All methods are serialized by an internal lock, so the engine never runs two forward passes
// at once.
type Engine struct {
	mu      sync.Mutex
	config  Config
	runtime Runtime
	logger  logrus.FieldLogger

	initialized bool
	session     Session
	vocabulary  *Vocabulary
	delegate    providers.ProviderBackend
	fellBack    bool

	passes   uint64
	failures uint64
}

// NewEngine creates an uninitialized engine.
//
// Arguments:
//   - config: The model, vocabulary and compute configuration.
//   - runtime: The native runtime that opens model sessions.
//   - logger: The logger. nil selects the standard logger.
//
// Returns:
//   - *Engine: The engine. Call Initialize before Infer.
func NewEngine(config Config, runtime Runtime, logger logrus.FieldLogger) *Engine {
	if config.Threads <= 0 {
		config.Threads = DefaultThreads
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Engine{
		config:  config,
		runtime: runtime,
		logger:  logger.WithField("component", "inference"),
	}
}

// Initialize loads the vocabulary and the model. Calling it again while initialized is a no-op.
//
// A delegate that fails to attach is logged and the session is opened on the default compute
// path instead. The delegate is tried again on the next Initialize after Close.
//
// Returns:
//   - error: An *InitializationError if the engine cannot be prepared.
func (e *Engine) Initialize() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.initialized {
		return nil
	}
	if e.runtime == nil {
		return &InitializationError{Message: "no inference runtime configured"}
	}

	info, err := os.Stat(e.config.ModelPath)
	if err != nil {
		return &InitializationError{Message: "model asset unavailable", Cause: err}
	}
	if info.IsDir() || info.Size() == 0 {
		return &InitializationError{
			Message: fmt.Sprintf("model asset %s is empty", e.config.ModelPath),
		}
	}

	vocabulary, err := e.loadVocabulary()
	if err != nil {
		return &InitializationError{Message: "vocabulary unavailable", Cause: err}
	}

	opts := SessionOptions{
		ModelPath: e.config.ModelPath,
		Threads:   e.config.Threads,
		Delegate:  e.config.Delegate,
	}
	if opts.Delegate.Backend == "" {
		opts.Delegate.Backend = providers.CPUProviderBackend
	}

	fellBack := false
	session, err := e.runtime.Open(opts)
	if err != nil && errors.Is(err, ErrDelegateUnavailable) &&
		opts.Delegate.Backend != providers.CPUProviderBackend {
		e.logger.WithError(err).WithField("delegate", opts.Delegate.Backend).
			Warn("acceleration delegate unavailable, using default compute path")
		opts.Delegate = opts.Delegate.WithBackend(providers.CPUProviderBackend)
		fellBack = true
		session, err = e.runtime.Open(opts)
	}
	if err != nil {
		return &InitializationError{Message: "error opening model session", Cause: err}
	}

	e.session = session
	e.vocabulary = vocabulary
	e.delegate = opts.Delegate.Backend
	e.fellBack = fellBack
	e.initialized = true

	e.logger.WithFields(logrus.Fields{
		"backend":    e.runtime.Type(),
		"delegate":   e.delegate,
		"precision":  sessionPrecision(session),
		"threads":    opts.Threads,
		"model":      e.config.ModelPath,
		"vocabulary": vocabulary.Len(),
	}).Info("inference engine initialized")
	return nil
}

func (e *Engine) loadVocabulary() (*Vocabulary, error) {
	if e.config.LabelsPath == "" {
		return DefaultVocabulary(), nil
	}
	return LoadVocabulary(e.config.LabelsPath, e.config.LabelOffset)
}

// Infer runs one forward pass.
//
// A forward pass that fails or panics is recovered: it is logged, counted, and reported as an
// empty output with a zero count.
//
// Arguments:
//   - ctx: Checked before the pass starts; a pass that has started always completes.
//   - input: The packed input tensor.
//
// Returns:
//   - RawOutput: The model outputs.
//   - error: ErrNotInitialized before Initialize, ErrInvalidInput for a malformed tensor, or the
//     context error.
func (e *Engine) Infer(ctx context.Context, input *preprocess.Tensor) (RawOutput, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return RawOutput{}, ErrNotInitialized
	}
	if input == nil || input.ByteSize() != preprocess.TensorBytes {
		return RawOutput{}, fmt.Errorf("%w: expected %d bytes", ErrInvalidInput, preprocess.TensorBytes)
	}
	if err := ctx.Err(); err != nil {
		return RawOutput{}, err
	}

	e.passes++
	out, err := e.run(input)
	if err != nil {
		e.failures++
		e.logger.WithError(&InferenceError{Cause: err}).
			Warn("forward pass failed, reporting no detections")
		return EmptyOutput(), nil
	}
	return out, nil
}

func (e *Engine) run(input *preprocess.Tensor) (out RawOutput, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during forward pass: %v", r)
		}
	}()
	return e.session.Run(input)
}

// Vocabulary returns the loaded vocabulary, or nil before Initialize.
func (e *Engine) Vocabulary() *Vocabulary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.vocabulary
}

// Stats returns a snapshot of the engine state.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Stats{
		Initialized:      e.initialized,
		Delegate:         e.delegate,
		DelegateFallback: e.fellBack,
		Passes:           e.passes,
		FailedPasses:     e.failures,
	}
	if e.runtime != nil {
		s.Engine = e.runtime.Type()
	}
	if e.session != nil {
		s.InputPrecision = sessionPrecision(e.session)
	}
	return s
}

// Close releases the model session. The engine can be initialized again afterwards.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return nil
	}
	err := e.session.Close()
	e.session = nil
	e.vocabulary = nil
	e.initialized = false
	if err != nil {
		return fmt.Errorf("error closing model session: %w", err)
	}
	return nil
}
