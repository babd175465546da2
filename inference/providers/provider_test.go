package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBackend(t *testing.T) {
	tests := []struct {
		in   string
		want ProviderBackend
	}{
		{"", CPUProviderBackend},
		{"cpu", CPUProviderBackend},
		{"none", CPUProviderBackend},
		{"cuda", CUDAProviderBackend},
		{"coreml", CoreMLProviderBackend},
		{"openvino", OpenVINOProviderBackend},
		{"xnnpack", XNNPACKProviderBackend},
	}
	for _, tt := range tests {
		got, err := ParseBackend(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseBackend("tpu")
	assert.Error(t, err)
}

func TestCoreMLFlags(t *testing.T) {
	assert.Equal(t, uint32(0), CoreMLOptions{}.Flags())
	assert.Equal(t, uint32(0x001|0x010), CoreMLOptions{CPUOnly: true, MLProgram: true}.Flags())
}

func TestOpenVINOOptionsDefaults(t *testing.T) {
	values := OpenVINOOptions{}.ToNativeProviderOptions()
	assert.Equal(t, "CPU", values["device_type"])
	assert.Equal(t, "FP32", values["precision"])
	assert.NotContains(t, values, "num_of_threads")

	values = OpenVINOOptions{DeviceType: "GPU", NumOfThreads: 4}.ToNativeProviderOptions()
	assert.Equal(t, "GPU", values["device_type"])
	assert.Equal(t, "4", values["num_of_threads"])
}

func TestWithBackend(t *testing.T) {
	c := Config{Backend: CUDAProviderBackend, CUDA: CUDAOptions{DeviceID: 1}}
	fallback := c.WithBackend(CPUProviderBackend)

	assert.Equal(t, CPUProviderBackend, fallback.Backend)
	assert.Equal(t, 1, fallback.CUDA.DeviceID)
	assert.Equal(t, CUDAProviderBackend, c.Backend)
}

func TestGetSharedLibPathOverride(t *testing.T) {
	path, err := GetSharedLibPath("/opt/ort/libonnxruntime.so")
	require.NoError(t, err)
	assert.Equal(t, "/opt/ort/libonnxruntime.so", path)
}
