package item

import "errors"

// Errors returned by item operations.
var (
	// ErrInvalidSize indicates a non-positive size was requested.
	ErrInvalidSize = errors.New("size must be positive")

	// ErrInvalidRange indicates an in/out range with out <= in or in < 0.
	ErrInvalidRange = errors.New("invalid in/out range")

	// ErrOutOfBounds indicates a resize that would read past the source media.
	ErrOutOfBounds = errors.New("range exceeds source media")

	// ErrInvalidSpeed indicates a non-positive playback speed.
	ErrInvalidSpeed = errors.New("speed must be positive")
)
