// Package onnx runs the detector on ONNX Runtime.
package onnx

import (
	"fmt"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/nvr-ai/go-sightline/inference"
	"github.com/nvr-ai/go-sightline/inference/providers"
	"github.com/nvr-ai/go-sightline/preprocess"
)

// Default tensor names of a TensorFlow object-detection export converted with tf2onnx.
var (
	DefaultInputName   = "image_tensor:0"
	DefaultOutputNames = []string{
		"detection_boxes:0",
		"detection_classes:0",
		"detection_scores:0",
		"num_detections:0",
	}
)

// Config configures the ONNX Runtime backend.
type Config struct {
	// LibraryPath is the onnxruntime shared library. Empty selects the platform default.
	LibraryPath string `json:"onnxruntime_library" yaml:"onnxruntime_library"`
	// InputName is the image input of the model.
	InputName string `json:"input_name"          yaml:"input_name"`
	// OutputNames are the boxes, classes, scores and count outputs, in that order.
	OutputNames []string `json:"output_names"        yaml:"output_names"`
}

// Runtime opens sessions on ONNX Runtime.
type Runtime struct {
	config Config
	logger logrus.FieldLogger
}

// NewRuntime creates an ONNX Runtime backend.
func NewRuntime(config Config, logger logrus.FieldLogger) *Runtime {
	if config.InputName == "" {
		config.InputName = DefaultInputName
	}
	if len(config.OutputNames) == 0 {
		config.OutputNames = DefaultOutputNames
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Runtime{config: config, logger: logger.WithField("backend", inference.EngineONNX)}
}

// Type implements inference.Runtime.
func (r *Runtime) Type() inference.EngineType {
	return inference.EngineONNX
}

var environmentMu sync.Mutex

// initializeEnvironment loads the native library once per process.
func (r *Runtime) initializeEnvironment() error {
	environmentMu.Lock()
	defer environmentMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}

	libPath, err := providers.GetSharedLibPath(r.config.LibraryPath)
	if err != nil {
		return err
	}
	if _, err := os.Stat(libPath); err != nil {
		return fmt.Errorf("ONNX Runtime library not found at %s: %w", libPath, err)
	}

	ort.SetSharedLibraryPath(libPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("error initializing ORT environment: %w", err)
	}
	return nil
}

// Open implements inference.Runtime.
//
// Order of operations:
//  1. Environment setup: loads the native library once per process.
//  2. Input inspection: picks a float32 or uint8 input from the model metadata.
//  3. Session options: thread count, graph optimizations and the execution provider.
//  4. Session creation and output tensor allocation.
func (r *Runtime) Open(opts inference.SessionOptions) (inference.Session, error) {
	if len(r.config.OutputNames) != 4 {
		return nil, fmt.Errorf("expected 4 output names, got %d", len(r.config.OutputNames))
	}
	if err := r.initializeEnvironment(); err != nil {
		return nil, err
	}

	quantized, err := r.quantizedInput(opts.ModelPath)
	if err != nil {
		return nil, err
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("error creating ORT session options: %w", err)
	}
	defer options.Destroy()

	// Intra-op threads parallelize work inside a node; the detector graph is mostly sequential,
	// so inter-op parallelism stays at one.
	if err := options.SetIntraOpNumThreads(opts.Threads); err != nil {
		return nil, fmt.Errorf("error setting thread count: %w", err)
	}
	if err := options.SetInterOpNumThreads(1); err != nil {
		return nil, fmt.Errorf("error setting inter-op thread count: %w", err)
	}
	if err := options.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableExtended); err != nil {
		return nil, fmt.Errorf("error setting optimization level: %w", err)
	}

	// An execution provider that cannot be attached is reported to the engine, which retries
	// without it.
	if err := opts.Delegate.Apply(options); err != nil {
		return nil, err
	}

	session, err := ort.NewDynamicAdvancedSession(
		opts.ModelPath,
		[]string{r.config.InputName},
		r.config.OutputNames,
		options,
	)
	if err != nil {
		return nil, fmt.Errorf("error creating ORT session: %w", err)
	}

	s := &Session{session: session, quantized: quantized}
	if err := s.allocate(); err != nil {
		s.Close()
		return nil, err
	}

	r.logger.WithFields(logrus.Fields{
		"delegate":  opts.Delegate.Backend,
		"quantized": quantized,
	}).Debug("onnxruntime session opened")
	return s, nil
}

// quantizedInput reports whether the model's image input is 8-bit.
func (r *Runtime) quantizedInput(modelPath string) (bool, error) {
	inputs, _, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return false, fmt.Errorf("error reading model metadata: %w", err)
	}
	for _, info := range inputs {
		if info.Name != r.config.InputName {
			continue
		}
		switch info.DataType {
		case ort.TensorElementDataTypeUint8:
			return true, nil
		case ort.TensorElementDataTypeFloat:
			return false, nil
		default:
			return false, fmt.Errorf("unsupported input element type %v", info.DataType)
		}
	}
	return false, fmt.Errorf("model has no input named %q", r.config.InputName)
}

// Session is one loaded ONNX model with preallocated output tensors.
type Session struct {
	session   *ort.DynamicAdvancedSession
	quantized bool

	inputU8 *ort.Tensor[uint8]
	boxes   *ort.Tensor[float32]
	classes *ort.Tensor[float32]
	scores  *ort.Tensor[float32]
	count   *ort.Tensor[float32]
}

func (s *Session) allocate() error {
	var err error
	if s.quantized {
		s.inputU8, err = ort.NewEmptyTensor[uint8](ort.NewShape(1, preprocess.InputSize, preprocess.InputSize, preprocess.Channels))
		if err != nil {
			return fmt.Errorf("error creating input tensor: %w", err)
		}
	}
	if s.boxes, err = ort.NewEmptyTensor[float32](ort.NewShape(1, inference.MaxDetections, 4)); err != nil {
		return fmt.Errorf("error creating boxes tensor: %w", err)
	}
	if s.classes, err = ort.NewEmptyTensor[float32](ort.NewShape(1, inference.MaxDetections)); err != nil {
		return fmt.Errorf("error creating classes tensor: %w", err)
	}
	if s.scores, err = ort.NewEmptyTensor[float32](ort.NewShape(1, inference.MaxDetections)); err != nil {
		return fmt.Errorf("error creating scores tensor: %w", err)
	}
	if s.count, err = ort.NewEmptyTensor[float32](ort.NewShape(1)); err != nil {
		return fmt.Errorf("error creating count tensor: %w", err)
	}
	return nil
}

// InputPrecision implements inference.PrecisionReporter.
func (s *Session) InputPrecision() inference.Precision {
	if s.quantized {
		return inference.PrecisionUINT8
	}
	return inference.PrecisionFP32
}

// Run implements inference.Session.
func (s *Session) Run(input *preprocess.Tensor) (inference.RawOutput, error) {
	var in ort.ArbitraryTensor
	if s.quantized {
		input.CopyUint8(s.inputU8.GetData())
		in = s.inputU8
	} else {
		// Wraps the preprocessed buffer without copying.
		t, err := ort.NewTensor(ort.NewShape(input.Shape()...), input.Float32s())
		if err != nil {
			return inference.RawOutput{}, fmt.Errorf("error wrapping input tensor: %w", err)
		}
		defer t.Destroy()
		in = t
	}

	outputs := []ort.ArbitraryTensor{s.boxes, s.classes, s.scores, s.count}
	if err := s.session.Run([]ort.ArbitraryTensor{in}, outputs); err != nil {
		return inference.RawOutput{}, fmt.Errorf("error running ORT session: %w", err)
	}

	out := inference.RawOutput{
		Boxes:    s.boxes.GetData(),
		ClassIDs: s.classes.GetData(),
		Scores:   s.scores.GetData(),
		Count:    s.count.GetData()[0],
	}
	// Output tensors are reused by the next pass.
	return out.Clone(), nil
}

// Close releases the session and its tensors.
func (s *Session) Close() error {
	if s.inputU8 != nil {
		s.inputU8.Destroy()
		s.inputU8 = nil
	}
	for _, t := range []**ort.Tensor[float32]{&s.boxes, &s.classes, &s.scores, &s.count} {
		if *t != nil {
			(*t).Destroy()
			*t = nil
		}
	}

	if s.session != nil {
		err := s.session.Destroy()
		s.session = nil
		if err != nil {
			return fmt.Errorf("error destroying ORT session: %w", err)
		}
	}
	return nil
}
