package pipeline

import (
	"errors"
	"fmt"
)

// State is the lifecycle state of an Orchestrator.
type State int32

const (
	// StateUninitialized is the initial state; RunOnce fails until Initialize succeeds.
	StateUninitialized State = iota
	// StateReady accepts RunOnce.
	StateReady
	// StateRunning has one cycle in flight.
	StateRunning
	// StateFailed follows a failed Initialize. Initialize may be called again.
	StateFailed
	// StateClosed is terminal.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

var (
	// ErrNotReady is returned by RunOnce before a successful Initialize or after a failed one.
	ErrNotReady = errors.New("pipeline not ready")
	// ErrBusy is returned by RunOnce while another cycle is in flight.
	ErrBusy = errors.New("pipeline busy")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("pipeline closed")
)
