package timeline

import (
	"errors"
	"fmt"

	"github.com/dshills/cutstorm/internal/timeline/group"
	"github.com/dshills/cutstorm/internal/timeline/item"
	"github.com/dshills/cutstorm/internal/timeline/track"
)

// Errors returned by model requests. Every failure wraps exactly one of
// them; test with errors.Is.
var (
	// ErrConflict indicates the target interval is occupied or the target
	// track has the wrong kind.
	ErrConflict = errors.New("conflict")

	// ErrNotFound indicates an id that does not exist, or an item that is
	// not attached where the request needs it.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument indicates a non-positive size, a negative position,
	// an identical a/b track pair, or a similar malformed request.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrIncompatibleState indicates the request does not fit the current
	// state, such as audio on a video track, unready media, or a locked track.
	ErrIncompatibleState = errors.New("incompatible state")
)

var taxonomy = []error{ErrConflict, ErrNotFound, ErrInvalidArgument, ErrIncompatibleState}

// classify wraps errors from the building blocks into the model taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}
	for _, t := range taxonomy {
		if errors.Is(err, t) {
			return err
		}
	}
	var kind error
	switch {
	case errors.Is(err, track.ErrOverlap), errors.Is(err, track.ErrDuplicate):
		kind = ErrConflict
	case errors.Is(err, track.ErrNotFound), errors.Is(err, group.ErrNotFound):
		kind = ErrNotFound
	case errors.Is(err, track.ErrInvalidInterval),
		errors.Is(err, item.ErrInvalidSize),
		errors.Is(err, item.ErrInvalidRange),
		errors.Is(err, item.ErrInvalidSpeed),
		errors.Is(err, item.ErrOutOfBounds),
		errors.Is(err, group.ErrTooFewItems),
		errors.Is(err, group.ErrNotGroup):
		kind = ErrInvalidArgument
	default:
		kind = ErrIncompatibleState
	}
	return fmt.Errorf("%w: %w", kind, err)
}

func notFound(what string, id fmt.Stringer) error {
	return fmt.Errorf("%w: %s %s", ErrNotFound, what, id)
}
