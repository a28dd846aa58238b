// Package app assembles an editing session from configuration.
//
// A Session owns one timeline model together with its collaborators: the
// media bin, the playback graph, the undo stack and a command dispatcher
// that journals every edit. Sessions are independent, so several can run
// side by side.
package app

import (
	"errors"
	"fmt"
)

var (
	// ErrInitialization indicates a session component failed to start.
	ErrInitialization = errors.New("initialization failed")

	// ErrInconsistent indicates the model failed its consistency check.
	ErrInconsistent = errors.New("timeline inconsistent")
)

// InitError reports which component failed while building a session.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("init %s: %v", e.Component, e.Err)
}

func (e *InitError) Unwrap() []error {
	return []error{ErrInitialization, e.Err}
}

// OperationError records the operation and target of a failure.
type OperationError struct {
	Op     string // e.g. "run", "play", "record"
	Target string // usually a file path
	Err    error
}

// NewOperationError creates an OperationError.
func NewOperationError(op, target string, err error) *OperationError {
	return &OperationError{Op: op, Target: target, Err: err}
}

func (e *OperationError) Error() string {
	msg := e.Op
	if e.Target != "" {
		msg = fmt.Sprintf("%s %s", e.Op, e.Target)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *OperationError) Unwrap() error {
	return e.Err
}
