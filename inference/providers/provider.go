// Package providers - Hardware-acceleration delegates for inference runtimes.
package providers

import (
	"errors"
	"fmt"

	ort "github.com/yalue/onnxruntime_go"
)

// ErrUnavailable reports that a requested acceleration delegate could not be attached. Callers
// fall back to the default compute path when they see it.
var ErrUnavailable = errors.New("acceleration delegate unavailable")

// ProviderBackend names a hardware-acceleration delegate.
type ProviderBackend string

const (
	// CPUProviderBackend runs on the runtime's default CPU kernels with no delegate attached.
	CPUProviderBackend ProviderBackend = "none"
	// XNNPACKProviderBackend uses the XNNPACK CPU delegate (TensorFlow Lite).
	XNNPACKProviderBackend ProviderBackend = "xnnpack"
)

// ParseBackend maps a configuration value to a backend. An empty string or "cpu" selects the
// default compute path.
func ParseBackend(s string) (ProviderBackend, error) {
	switch b := ProviderBackend(s); b {
	case "", "cpu", CPUProviderBackend:
		return CPUProviderBackend, nil
	case CUDAProviderBackend, CoreMLProviderBackend, OpenVINOProviderBackend, XNNPACKProviderBackend:
		return b, nil
	default:
		return "", fmt.Errorf("unknown acceleration delegate %q", s)
	}
}

// Config selects a delegate and carries the options for each supported backend.
type Config struct {
	// Backend is the delegate to attach.
	Backend ProviderBackend `json:"delegate" yaml:"delegate"`
	// CUDA holds options for CUDAProviderBackend.
	CUDA CUDAOptions `json:"cuda"     yaml:"cuda"`
	// CoreML holds options for CoreMLProviderBackend.
	CoreML CoreMLOptions `json:"coreml"   yaml:"coreml"`
	// OpenVINO holds options for OpenVINOProviderBackend.
	OpenVINO OpenVINOOptions `json:"openvino" yaml:"openvino"`
}

// WithBackend returns a copy of c that selects backend b.
func (c Config) WithBackend(b ProviderBackend) Config {
	c.Backend = b
	return c
}

// Apply attaches the selected execution provider to ONNX Runtime session options.
//
// Arguments:
//   - options: The session options to extend.
//
// Returns:
//   - error: An error wrapping ErrUnavailable if the provider cannot be attached.
func (c Config) Apply(options *ort.SessionOptions) error {
	var err error

	switch c.Backend {
	case "", CPUProviderBackend:
		return nil
	case CoreMLProviderBackend:
		err = options.AppendExecutionProviderCoreML(c.CoreML.Flags())
	case OpenVINOProviderBackend:
		err = options.AppendExecutionProviderOpenVINO(c.OpenVINO.ToNativeProviderOptions())
	case CUDAProviderBackend:
		var cuda *ort.CUDAProviderOptions
		cuda, err = c.CUDA.ToNativeProviderOptions()
		if err == nil {
			defer cuda.Destroy()
			err = options.AppendExecutionProviderCUDA(cuda)
		}
	default:
		err = fmt.Errorf("not supported by onnxruntime")
	}

	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, c.Backend, err)
	}
	return nil
}
