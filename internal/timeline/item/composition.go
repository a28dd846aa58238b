package item

import (
	"fmt"
	"maps"

	"github.com/dshills/cutstorm/internal/timeline/history"
	"github.com/dshills/cutstorm/internal/timeline/ident"
)

// Composition blends the output of its own track with an a-track below it.
type Composition struct {
	id       ident.ID
	service  string
	track    ident.ID
	position int
	duration int

	// aTrack is the explicitly requested a-track; ident.None selects the
	// nearest lower track of the same kind automatically.
	aTrack ident.ID

	params    map[string]string
	keyframes Keyframes

	fakeTrack    ident.ID
	fakePosition int
}

// NewComposition creates an unattached composition of the given service.
func NewComposition(id ident.ID, service string, duration int) (*Composition, error) {
	if duration <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, duration)
	}
	return &Composition{
		id:           id,
		service:      service,
		track:        ident.None,
		duration:     duration,
		aTrack:       ident.None,
		params:       map[string]string{},
		keyframes:    Keyframes{},
		fakeTrack:    ident.None,
		fakePosition: -1,
	}, nil
}

func (c *Composition) ID() ident.ID    { return c.id }
func (c *Composition) Service() string { return c.service }
func (c *Composition) Track() ident.ID { return c.track }
func (c *Composition) Position() int   { return c.position }
func (c *Composition) Playtime() int   { return c.duration }
func (c *Composition) End() int        { return c.position + c.duration }
func (c *Composition) Attached() bool  { return c.track != ident.None }

// ATrack returns the requested a-track, or ident.None when automatic.
func (c *Composition) ATrack() ident.ID { return c.aTrack }

// Forced reports whether the a-track was chosen explicitly.
func (c *Composition) Forced() bool { return c.aTrack != ident.None }

// SetATrack forces an a-track. ident.None returns to automatic selection.
func (c *Composition) SetATrack(track ident.ID) { c.aTrack = track }

func (c *Composition) SetTrack(track ident.ID)  { c.track = track }
func (c *Composition) SetPosition(position int) { c.position = position }

// Params returns a copy of the service parameters.
func (c *Composition) Params() map[string]string {
	return maps.Clone(c.params)
}

// SetParam sets one service parameter.
func (c *Composition) SetParam(name, value string) {
	c.params[name] = value
}

// Keyframes returns a copy of the composition's keyframes.
func (c *Composition) Keyframes() Keyframes {
	return c.keyframes.Clone()
}

// SetKeyframes replaces the keyframes. k must not be modified afterwards.
func (c *Composition) SetKeyframes(k Keyframes) {
	c.keyframes = k
}

// SetFake records a drag-preview placement.
func (c *Composition) SetFake(track ident.ID, position int) {
	c.fakeTrack, c.fakePosition = track, position
}

// Fake returns the drag-preview placement, or (ident.None, -1).
func (c *Composition) Fake() (ident.ID, int) {
	return c.fakeTrack, c.fakePosition
}

// Duplicate returns an unattached copy of c with a new id.
func (c *Composition) Duplicate(id ident.ID) *Composition {
	dup := *c
	dup.id = id
	dup.track = ident.None
	dup.params = maps.Clone(c.params)
	dup.keyframes = c.keyframes.Clone()
	dup.fakeTrack = ident.None
	dup.fakePosition = -1
	return &dup
}

// RequestResize changes the duration to size by moving one edge.
// Compositions have no source media, so any positive size is accepted as
// long as place agrees.
func (c *Composition) RequestResize(size int, right bool, place Placement, edit *history.Edit) error {
	if size <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	oldSize := c.duration
	if size == oldSize {
		return nil
	}
	oldPos := c.position
	pos := oldPos
	if !right {
		pos = oldPos + oldSize - size
	}
	oldKf := c.keyframes
	newKf := oldKf.Rescale(oldSize, size)

	redo := func() error {
		if place != nil {
			if err := place(pos, size); err != nil {
				return err
			}
		}
		c.position, c.duration, c.keyframes = pos, size, newKf
		return nil
	}
	undo := func() error {
		if place != nil {
			if err := place(oldPos, oldSize); err != nil {
				return err
			}
		}
		c.position, c.duration, c.keyframes = oldPos, oldSize, oldKf
		return nil
	}
	return edit.Do(redo, undo)
}
