package onnx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-sightline/inference"
)

func TestNewRuntimeDefaults(t *testing.T) {
	rt := NewRuntime(Config{}, nil)

	assert.Equal(t, inference.EngineONNX, rt.Type())
	assert.Equal(t, DefaultInputName, rt.config.InputName)
	assert.Equal(t, DefaultOutputNames, rt.config.OutputNames)
}

func TestOpenRejectsIncompleteOutputs(t *testing.T) {
	rt := NewRuntime(Config{OutputNames: []string{"boxes", "scores"}}, nil)

	_, err := rt.Open(inference.SessionOptions{ModelPath: "detect.onnx", Threads: 4})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 4 output names")
}

func TestOpenMissingLibrary(t *testing.T) {
	rt := NewRuntime(Config{LibraryPath: "/nonexistent/libonnxruntime.so"}, nil)

	_, err := rt.Open(inference.SessionOptions{ModelPath: "detect.onnx", Threads: 4})
	assert.Error(t, err)
}
