// Package command drives a timeline model through named commands.
//
// A Command pairs a Kind with loosely typed arguments, the shape produced
// by scripts and journals. The Dispatcher validates the arguments, runs the
// matching model request and, when a Recorder is attached, journals every
// command that changed the timeline so the session can be replayed.
package command

import (
	"errors"
	"fmt"
	"maps"
	"math"

	"github.com/dshills/cutstorm/internal/timeline"
	"github.com/dshills/cutstorm/internal/timeline/ident"
)

// Errors returned by the command layer. Argument errors also wrap
// timeline.ErrInvalidArgument.
var (
	ErrUnknownKind = errors.New("command: unknown kind")
	ErrMissingArg  = errors.New("command: missing argument")
	ErrBadArg      = errors.New("command: bad argument")
	ErrPanic       = errors.New("command: handler panic")
)

// Command is one timeline request.
type Command struct {
	Kind Kind `yaml:"kind" json:"kind"`
	Args Args `yaml:"args,omitempty" json:"args,omitempty"`
}

// New creates a command.
func New(kind Kind, args Args) Command {
	return Command{Kind: kind, Args: args}
}

// Clone returns a copy whose argument map can be changed independently.
func (c Command) Clone() Command {
	return Command{Kind: c.Kind, Args: maps.Clone(c.Args)}
}

func (c Command) String() string {
	return fmt.Sprintf("%s %v", c.Kind, map[string]any(c.Args))
}

// Result carries what a command produced.
type Result struct {
	// ID is the created object, or the suggested track for SuggestMove.
	ID ident.ID `yaml:"id" json:"id"`
	// Position is the suggested position for SuggestMove.
	Position int `yaml:"position,omitempty" json:"position,omitempty"`
	// Size is the applied size for ResizeItem.
	Size int `yaml:"size,omitempty" json:"size,omitempty"`
}

// Args holds command arguments by name. Numbers may arrive as any Go
// numeric type; integral floats are accepted where integers are expected.
type Args map[string]any

func missing(name string) error {
	return fmt.Errorf("%w: %w %q", timeline.ErrInvalidArgument, ErrMissingArg, name)
}

func bad(name string, v any) error {
	return fmt.Errorf("%w: %w %q: %v (%T)", timeline.ErrInvalidArgument, ErrBadArg, name, v, v)
}

// Has reports whether name is present.
func (a Args) Has(name string) bool {
	_, ok := a[name]
	return ok
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		return int(n), true
	case ident.ID:
		return int(n), true
	case float32:
		return toInt(float64(n))
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}

// Int returns a required integer argument.
func (a Args) Int(name string) (int, error) {
	v, ok := a[name]
	if !ok {
		return 0, missing(name)
	}
	n, ok := toInt(v)
	if !ok {
		return 0, bad(name, v)
	}
	return n, nil
}

// IntOr returns an optional integer argument.
func (a Args) IntOr(name string, def int) (int, error) {
	if !a.Has(name) {
		return def, nil
	}
	return a.Int(name)
}

// ID returns a required identifier argument.
func (a Args) ID(name string) (ident.ID, error) {
	n, err := a.Int(name)
	return ident.ID(n), err
}

// IDOr returns an optional identifier argument.
func (a Args) IDOr(name string, def ident.ID) (ident.ID, error) {
	if !a.Has(name) {
		return def, nil
	}
	return a.ID(name)
}

// IDs returns a required list of identifiers.
func (a Args) IDs(name string) ([]ident.ID, error) {
	v, ok := a[name]
	if !ok {
		return nil, missing(name)
	}
	var out []ident.ID
	switch list := v.(type) {
	case []ident.ID:
		return append(out, list...), nil
	case []int:
		for _, n := range list {
			out = append(out, ident.ID(n))
		}
		return out, nil
	case []any:
		for _, e := range list {
			n, ok := toInt(e)
			if !ok {
				return nil, bad(name, e)
			}
			out = append(out, ident.ID(n))
		}
		return out, nil
	}
	return nil, bad(name, v)
}

// Float returns a required number argument.
func (a Args) Float(name string) (float64, error) {
	v, ok := a[name]
	if !ok {
		return 0, missing(name)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	}
	if n, ok := toInt(v); ok {
		return float64(n), nil
	}
	return 0, bad(name, v)
}

// Text returns a required string argument.
func (a Args) Text(name string) (string, error) {
	v, ok := a[name]
	if !ok {
		return "", missing(name)
	}
	s, ok := v.(string)
	if !ok {
		return "", bad(name, v)
	}
	return s, nil
}

// TextOr returns an optional string argument.
func (a Args) TextOr(name, def string) (string, error) {
	if !a.Has(name) {
		return def, nil
	}
	return a.Text(name)
}

// BoolOr returns an optional boolean argument.
func (a Args) BoolOr(name string, def bool) (bool, error) {
	v, ok := a[name]
	if !ok {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, bad(name, v)
	}
	return b, nil
}
