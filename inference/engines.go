// Package inference - Inference engine, runtime contract and model outputs.
package inference

import (
	"fmt"

	"github.com/nvr-ai/go-sightline/inference/providers"
	"github.com/nvr-ai/go-sightline/preprocess"
)

// EngineType is the native runtime backing an Engine.
type EngineType string

const (
	// EngineONNX is the ONNX engine that uses the onnxruntime library.
	EngineONNX EngineType = "onnx"
	// EngineTFLite is the TensorFlow Lite engine that uses the tflite C library.
	EngineTFLite EngineType = "tflite"
)

// Engines is a list of all supported engines.
var Engines = []EngineType{EngineONNX, EngineTFLite}

// ParseEngineType maps a configuration value to an engine type.
func ParseEngineType(s string) (EngineType, error) {
	for _, e := range Engines {
		if string(e) == s {
			return e, nil
		}
	}
	return "", fmt.Errorf("unknown inference engine %q", s)
}

// SessionOptions describe the session a Runtime must open.
type SessionOptions struct {
	// ModelPath is the detector model file.
	ModelPath string
	// Threads is the number of compute threads.
	Threads int
	// Delegate selects the hardware-acceleration delegate.
	Delegate providers.Config
}

// Runtime opens model sessions on a native inference library.
type Runtime interface {
	// Type names the runtime.
	Type() EngineType
	// Open loads the model and prepares a session. A delegate that cannot be attached is
	// reported with an error wrapping providers.ErrUnavailable so the caller can fall back.
	Open(opts SessionOptions) (Session, error)
}

// Session executes forward passes on a loaded model. Sessions are not reentrant.
type Session interface {
	// Run executes one forward pass over the packed input tensor.
	Run(input *preprocess.Tensor) (RawOutput, error)
	// Close releases native resources.
	Close() error
}
