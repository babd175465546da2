// Package tflite runs the quantized detector on TensorFlow Lite.
package tflite

import (
	"fmt"

	"github.com/mattn/go-tflite"
	"github.com/mattn/go-tflite/delegates"
	"github.com/mattn/go-tflite/delegates/xnnpack"
	"github.com/sirupsen/logrus"

	"github.com/nvr-ai/go-sightline/inference"
	"github.com/nvr-ai/go-sightline/inference/providers"
	"github.com/nvr-ai/go-sightline/preprocess"
)

// Output tensor positions of the TFLite SSD detection postprocess op.
const (
	outputBoxes = iota
	outputClasses
	outputScores
	outputCount
	outputTensors
)

// Runtime opens sessions on TensorFlow Lite.
type Runtime struct {
	logger logrus.FieldLogger
}

// NewRuntime creates a TensorFlow Lite backend.
func NewRuntime(logger logrus.FieldLogger) *Runtime {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Runtime{logger: logger.WithField("backend", inference.EngineTFLite)}
}

// Type implements inference.Runtime.
func (r *Runtime) Type() inference.EngineType {
	return inference.EngineTFLite
}

// Open implements inference.Runtime. Only the XNNPACK delegate is available on this runtime;
// any other delegate is reported as unavailable.
func (r *Runtime) Open(opts inference.SessionOptions) (inference.Session, error) {
	model := tflite.NewModelFromFile(opts.ModelPath)
	if model == nil {
		return nil, fmt.Errorf("cannot load model %s", opts.ModelPath)
	}
	s := &Session{model: model}

	s.options = tflite.NewInterpreterOptions()
	s.options.SetNumThread(opts.Threads)
	s.options.SetErrorReporter(func(msg string, _ interface{}) {
		r.logger.WithField("source", "tflite").Debug(msg)
	}, nil)

	switch opts.Delegate.Backend {
	case "", providers.CPUProviderBackend:
	case providers.XNNPACKProviderBackend:
		s.delegate = xnnpack.New(xnnpack.DelegateOptions{NumThreads: int32(opts.Threads)})
		if s.delegate == nil {
			s.Close()
			return nil, fmt.Errorf("%w: xnnpack: cannot create delegate", providers.ErrUnavailable)
		}
		s.options.AddDelegate(s.delegate)
	default:
		s.Close()
		return nil, fmt.Errorf("%w: %s: not supported by tflite", providers.ErrUnavailable, opts.Delegate.Backend)
	}

	s.interpreter = tflite.NewInterpreter(model, s.options)
	if s.interpreter == nil {
		s.Close()
		if opts.Delegate.Backend == providers.XNNPACKProviderBackend {
			return nil, fmt.Errorf("%w: xnnpack: cannot create interpreter", providers.ErrUnavailable)
		}
		return nil, fmt.Errorf("cannot create interpreter")
	}
	if status := s.interpreter.AllocateTensors(); status != tflite.OK {
		s.Close()
		return nil, fmt.Errorf("allocate failed: %v", status)
	}

	if err := s.validate(); err != nil {
		s.Close()
		return nil, err
	}

	r.logger.WithFields(logrus.Fields{
		"delegate":   opts.Delegate.Backend,
		"input_type": s.interpreter.GetInputTensor(0).Type(),
	}).Debug("tflite interpreter ready")
	return s, nil
}

// Session is one loaded TFLite model.
type Session struct {
	model       *tflite.Model
	options     *tflite.InterpreterOptions
	delegate    delegates.Delegater
	interpreter *tflite.Interpreter
}

// validate checks the model against the fixed detector contract.
func (s *Session) validate() error {
	input := s.interpreter.GetInputTensor(0)
	if input == nil {
		return fmt.Errorf("model has no input tensor")
	}
	if t := input.Type(); t != tflite.Float32 && t != tflite.UInt8 {
		return fmt.Errorf("unsupported input type %v", t)
	}
	want := []int{1, preprocess.InputSize, preprocess.InputSize, preprocess.Channels}
	if input.NumDims() != len(want) {
		return fmt.Errorf("input has %d dims, want %d", input.NumDims(), len(want))
	}
	for i, d := range want {
		if input.Dim(i) != d {
			return fmt.Errorf("input dim %d is %d, want %d", i, input.Dim(i), d)
		}
	}

	if n := s.interpreter.GetOutputTensorCount(); n < outputTensors {
		return fmt.Errorf("model has %d outputs, want %d", n, outputTensors)
	}
	return nil
}

// InputPrecision implements inference.PrecisionReporter.
func (s *Session) InputPrecision() inference.Precision {
	if s.interpreter.GetInputTensor(0).Type() == tflite.UInt8 {
		return inference.PrecisionUINT8
	}
	return inference.PrecisionFP32
}

// Run implements inference.Session.
func (s *Session) Run(input *preprocess.Tensor) (inference.RawOutput, error) {
	in := s.interpreter.GetInputTensor(0)
	switch in.Type() {
	case tflite.UInt8:
		input.CopyUint8(in.UInt8s())
	default:
		if status := in.CopyFromBuffer(input.Float32s()); status != tflite.OK {
			return inference.RawOutput{}, fmt.Errorf("input copy failed: %v", status)
		}
	}

	if status := s.interpreter.Invoke(); status != tflite.OK {
		return inference.RawOutput{}, fmt.Errorf("invoke failed: %v", status)
	}

	count := s.interpreter.GetOutputTensor(outputCount).Float32s()
	out := inference.RawOutput{
		Boxes:    s.interpreter.GetOutputTensor(outputBoxes).Float32s(),
		ClassIDs: s.interpreter.GetOutputTensor(outputClasses).Float32s(),
		Scores:   s.interpreter.GetOutputTensor(outputScores).Float32s(),
	}
	if len(count) > 0 {
		out.Count = count[0]
	}
	// Output buffers belong to the interpreter.
	return out.Clone(), nil
}

// Close releases the interpreter, its delegate and the model.
func (s *Session) Close() error {
	if s.interpreter != nil {
		s.interpreter.Delete()
		s.interpreter = nil
	}
	if s.options != nil {
		s.options.Delete()
		s.options = nil
	}
	if s.delegate != nil {
		s.delegate.Delete()
		s.delegate = nil
	}
	if s.model != nil {
		s.model.Delete()
		s.model = nil
	}
	return nil
}
