package providers

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"
)

const (
	// CUDAProviderBackend uses NVIDIA CUDA for inference optimization.
	CUDAProviderBackend ProviderBackend = "cuda"
)

// CUDAOptions contains arguments for the CUDA provider.
// See:
// https://onnxruntime.ai/docs/execution-providers/CUDA-ExecutionProvider.html#configuration-options
type CUDAOptions struct {
	// The device ID.
	DeviceID int `json:"device_id"              yaml:"device_id"`
	// The size limit of the device memory arena in bytes. Zero leaves the runtime default.
	GPUMemLimit int64 `json:"gpu_mem_limit"          yaml:"gpu_mem_limit"`
	// The strategy for extending the device memory arena.
	// 0: kNextPowerOfTwo, 1: kSameAsRequested.
	ArenaExtendStrategy int `json:"arena_extend_strategy"  yaml:"arena_extend_strategy"`
	// The type of search done for cuDNN convolution algorithms.
	// 0: EXHAUSTIVE, 1: HEURISTIC, 2: DEFAULT.
	CudnnConvAlgoSearch int `json:"cudnn_conv_algo_search" yaml:"cudnn_conv_algo_search"`
	// Whether to do copies in the default stream or use separate streams.
	DoCopyInDefaultStream bool `json:"copy_in_default_stream" yaml:"copy_in_default_stream"`
}

// ToNativeProviderOptions converts the CUDA options to native CUDA provider options. The caller
// must Destroy the result.
func (o CUDAOptions) ToNativeProviderOptions() (*ort.CUDAProviderOptions, error) {
	opts, err := ort.NewCUDAProviderOptions()
	if err != nil {
		return nil, err
	}

	values := map[string]string{
		"device_id":                 fmt.Sprintf("%d", o.DeviceID),
		"arena_extend_strategy":     arenaStrategies[o.ArenaExtendStrategy%len(arenaStrategies)],
		"cudnn_conv_algo_search":    convSearches[o.CudnnConvAlgoSearch%len(convSearches)],
		"do_copy_in_default_stream": fmt.Sprintf("%d", boolToInt(o.DoCopyInDefaultStream)),
	}
	if o.GPUMemLimit > 0 {
		values["gpu_mem_limit"] = fmt.Sprintf("%d", o.GPUMemLimit)
	}

	if err := opts.Update(values); err != nil {
		opts.Destroy()
		return nil, err
	}
	return opts, nil
}

var (
	arenaStrategies = []string{"kNextPowerOfTwo", "kSameAsRequested"}
	convSearches    = []string{"EXHAUSTIVE", "HEURISTIC", "DEFAULT"}
)

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
