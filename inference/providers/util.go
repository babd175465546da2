package providers

import (
	"fmt"
	"runtime"
)

// GetSharedLibPath returns the conventional location of the onnxruntime shared library for the
// current platform.
//
// Arguments:
//   - override: A configured path. When non-empty it is returned unchanged.
//
// Returns:
//   - string: The path to the shared library.
//   - error: An error if the platform has no known library.
func GetSharedLibPath(override string) (string, error) {
	if override != "" {
		return override, nil
	}

	switch runtime.GOOS {
	case "windows":
		if runtime.GOARCH == "amd64" {
			return "./third_party/onnxruntime.dll", nil
		}
	case "darwin":
		return "./third_party/libonnxruntime.dylib", nil
	case "linux":
		if runtime.GOARCH == "arm64" {
			return "./third_party/onnxruntime_arm64.so", nil
		}
		return "./third_party/onnxruntime.so", nil
	}
	return "", fmt.Errorf("no onnxruntime library known for %s/%s", runtime.GOOS, runtime.GOARCH)
}
