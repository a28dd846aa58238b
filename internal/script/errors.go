package script

import "errors"

var (
	// ErrStateClosed is returned when running code on a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrExecutionTimeout is returned when a script outlives its deadline.
	ErrExecutionTimeout = errors.New("lua execution timeout")

	// ErrCanceled is returned when the caller's context is canceled mid-run.
	ErrCanceled = errors.New("lua execution canceled")
)
