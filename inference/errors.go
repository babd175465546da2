package inference

import (
	"errors"
	"fmt"

	"github.com/nvr-ai/go-sightline/inference/providers"
)

var (
	// ErrNotInitialized is returned by Infer before Initialize has succeeded.
	ErrNotInitialized = errors.New("inference engine not initialized")
	// ErrDelegateUnavailable reports that an acceleration delegate could not be attached.
	ErrDelegateUnavailable = providers.ErrUnavailable
	// ErrInvalidInput is returned by Infer for a tensor that does not match the model input.
	ErrInvalidInput = errors.New("invalid input tensor")
)

// InitializationError reports that the model, the vocabulary or the runtime session could not
// be prepared. The engine stays uninitialized until Initialize succeeds.
type InitializationError struct {
	Message string
	Cause   error
}

func (e *InitializationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("inference initialization failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("inference initialization failed: %s", e.Message)
}

func (e *InitializationError) Unwrap() error {
	return e.Cause
}

// InferenceError describes a failed forward pass. It is recovered inside the engine and
// surfaces only through logs and Stats.
type InferenceError struct {
	Cause error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("forward pass failed: %v", e.Cause)
}

func (e *InferenceError) Unwrap() error {
	return e.Cause
}
