package providers

import "fmt"

const (
	// OpenVINOProviderBackend uses Intel OpenVINO for inference optimization.
	OpenVINOProviderBackend ProviderBackend = "openvino"
)

// OpenVINOOptions contains arguments for the OpenVINO provider.
// See:
// https://onnxruntime.ai/docs/execution-providers/OpenVINO-ExecutionProvider.html#summary-of-options
type OpenVINOOptions struct {
	// Overrides the accelerator hardware type (CPU, GPU, NPU). Defaults to CPU.
	DeviceType string `json:"device_type"    yaml:"device_type"`
	// Inference precision (FP32, FP16, ACCURACY). Defaults to FP32.
	Precision string `json:"precision"      yaml:"precision"`
	// Overrides the accelerator default number of threads. Zero leaves the default.
	NumOfThreads int `json:"num_of_threads" yaml:"num_of_threads"`
}

// ToNativeProviderOptions converts the options into the provider's key/value form.
func (o OpenVINOOptions) ToNativeProviderOptions() map[string]string {
	values := map[string]string{
		"device_type": "CPU",
		"precision":   "FP32",
	}
	if o.DeviceType != "" {
		values["device_type"] = o.DeviceType
	}
	if o.Precision != "" {
		values["precision"] = o.Precision
	}
	if o.NumOfThreads > 0 {
		values["num_of_threads"] = fmt.Sprintf("%d", o.NumOfThreads)
	}
	return values
}
