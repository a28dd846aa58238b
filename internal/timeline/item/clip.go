package item

import (
	"fmt"
	"math"

	"github.com/dshills/cutstorm/internal/timeline/history"
	"github.com/dshills/cutstorm/internal/timeline/ident"
)

// State selects which streams of its source a clip plays.
type State int

const (
	AudioAndVideo State = iota
	VideoOnly
	AudioOnly
	// Disabled clips keep their place but play nothing.
	Disabled
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case AudioAndVideo:
		return "audio+video"
	case VideoOnly:
		return "video"
	case AudioOnly:
		return "audio"
	case Disabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// ParseState parses a state name as produced by String.
func ParseState(s string) (State, error) {
	switch s {
	case "audio+video", "av", "":
		return AudioAndVideo, nil
	case "video":
		return VideoOnly, nil
	case "audio":
		return AudioOnly, nil
	case "disabled":
		return Disabled, nil
	}
	return AudioAndVideo, fmt.Errorf("unknown clip state %q", s)
}

// HasAudio reports whether the state plays audio.
func (s State) HasAudio() bool {
	return s == AudioAndVideo || s == AudioOnly
}

// HasVideo reports whether the state plays video.
func (s State) HasVideo() bool {
	return s == AudioAndVideo || s == VideoOnly
}

// Placement asks the holder of an item to accept the interval
// [position, position+size). It is called before the item's own fields
// change, so the item still reports its previous interval.
type Placement func(position, size int) error

// Clip is a placed reference to a segment of bin media.
type Clip struct {
	id       ident.ID
	binRef   string
	track    ident.ID
	position int

	// in and out are in frames of the speed-adjusted source; out is exclusive.
	in, out int
	speed   float64

	state  State
	active State

	// natural is the source length at speed 1; non-positive means endless.
	natural int

	keyframes Keyframes

	fakeTrack    ident.ID
	fakePosition int
}

// NewClip creates an unattached clip playing [in, out) of binRef.
func NewClip(id ident.ID, binRef string, in, out, natural int, state State) (*Clip, error) {
	if in < 0 || out <= in {
		return nil, fmt.Errorf("%w: [%d, %d)", ErrInvalidRange, in, out)
	}
	if natural > 0 && out > natural {
		return nil, fmt.Errorf("%w: out %d > length %d", ErrOutOfBounds, out, natural)
	}
	active := state
	if state == Disabled {
		active = AudioAndVideo
	}
	return &Clip{
		id:           id,
		binRef:       binRef,
		track:        ident.None,
		in:           in,
		out:          out,
		speed:        1,
		state:        state,
		active:       active,
		natural:      natural,
		keyframes:    Keyframes{},
		fakeTrack:    ident.None,
		fakePosition: -1,
	}, nil
}

// Duplicate returns an unattached copy of c with a new id.
func (c *Clip) Duplicate(id ident.ID) *Clip {
	dup := *c
	dup.id = id
	dup.track = ident.None
	dup.keyframes = c.keyframes.Clone()
	dup.fakeTrack = ident.None
	dup.fakePosition = -1
	return &dup
}

func (c *Clip) ID() ident.ID       { return c.id }
func (c *Clip) BinRef() string     { return c.binRef }
func (c *Clip) Track() ident.ID    { return c.track }
func (c *Clip) Position() int      { return c.position }
func (c *Clip) In() int            { return c.in }
func (c *Clip) Out() int           { return c.out }
func (c *Clip) Playtime() int      { return c.out - c.in }
func (c *Clip) End() int           { return c.position + c.Playtime() }
func (c *Clip) Speed() float64     { return c.speed }
func (c *Clip) State() State       { return c.state }
func (c *Clip) Natural() int       { return c.natural }
func (c *Clip) Attached() bool     { return c.track != ident.None }
func (c *Clip) Enabled() bool      { return c.state != Disabled }
func (c *Clip) ActiveState() State { return c.active }

// Keyframes returns a copy of the clip's keyframes.
func (c *Clip) Keyframes() Keyframes {
	return c.keyframes.Clone()
}

// SetKeyframes replaces the keyframes. k must not be modified afterwards.
func (c *Clip) SetKeyframes(k Keyframes) {
	c.keyframes = k
}

// MaxOut returns the largest out point the source allows at the current
// speed, or -1 for endless sources.
func (c *Clip) MaxOut() int {
	if c.natural <= 0 {
		return -1
	}
	return int(math.Floor(float64(c.natural) / c.speed))
}

// SetTrack records the track that accepted the clip.
func (c *Clip) SetTrack(track ident.ID) {
	c.track = track
}

// SetPosition records the clip's start on its track.
func (c *Clip) SetPosition(position int) {
	c.position = position
}

// SetInOut replaces the crop range.
func (c *Clip) SetInOut(in, out int) {
	c.in, c.out = in, out
}

// SetNatural updates the source length after a reload.
func (c *Clip) SetNatural(natural int) {
	c.natural = natural
}

// SetState changes the state. Disabling remembers the previous state so it
// can be restored.
func (c *Clip) SetState(s State) {
	if s != Disabled {
		c.active = s
	}
	c.state = s
}

// SetFake records a drag-preview placement.
func (c *Clip) SetFake(track ident.ID, position int) {
	c.fakeTrack, c.fakePosition = track, position
}

// Fake returns the drag-preview placement, or (ident.None, -1).
func (c *Clip) Fake() (ident.ID, int) {
	return c.fakeTrack, c.fakePosition
}

// RequestResize changes the playtime to size by moving the right or the left
// edge. The crop range follows the moving edge, keyframes are rescaled onto
// the new duration, and place is asked to accept the new interval first.
// On success the inverse is recorded in edit.
func (c *Clip) RequestResize(size int, right bool, place Placement, edit *history.Edit) error {
	if size <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	oldSize := c.Playtime()
	delta := size - oldSize
	if delta == 0 {
		return nil
	}

	in, out := c.in, c.out
	pos := c.position
	if right {
		out += delta
	} else {
		in -= delta
		pos -= delta
	}
	if in < 0 {
		return fmt.Errorf("%w: in point %d", ErrOutOfBounds, in)
	}
	if max := c.MaxOut(); max >= 0 && out > max {
		return fmt.Errorf("%w: out point %d > %d", ErrOutOfBounds, out, max)
	}

	oldIn, oldOut, oldPos := c.in, c.out, c.position
	oldKf := c.keyframes
	newKf := oldKf.Rescale(oldSize, size)

	redo := func() error {
		if place != nil {
			if err := place(pos, size); err != nil {
				return err
			}
		}
		c.in, c.out, c.position = in, out, pos
		c.keyframes = newKf
		return nil
	}
	undo := func() error {
		if place != nil {
			if err := place(oldPos, oldSize); err != nil {
				return err
			}
		}
		c.in, c.out, c.position = oldIn, oldOut, oldPos
		c.keyframes = oldKf
		return nil
	}
	return edit.Do(redo, undo)
}

// RequestTimeWarp changes the playback speed. The crop range and playtime
// scale by oldSpeed/speed with the start edge fixed; the out point is
// clamped to what the source provides at the new speed.
func (c *Clip) RequestTimeWarp(speed float64, place Placement, edit *history.Edit) error {
	if speed <= 0 || math.IsNaN(speed) || math.IsInf(speed, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidSpeed, speed)
	}
	if speed == c.speed {
		return nil
	}

	ratio := c.speed / speed
	oldSize := c.Playtime()
	in := int(math.Round(float64(c.in) * ratio))
	size := max(1, int(math.Round(float64(oldSize)*ratio)))
	out := in + size
	if c.natural > 0 {
		limit := int(math.Floor(float64(c.natural) / speed))
		if out > limit {
			out = limit
			size = out - in
		}
		if size <= 0 {
			return fmt.Errorf("%w: speed %v leaves no frames", ErrOutOfBounds, speed)
		}
	}

	oldIn, oldOut, oldSpeed := c.in, c.out, c.speed
	oldKf := c.keyframes
	newKf := oldKf.Rescale(oldSize, size)
	pos := c.position

	redo := func() error {
		if place != nil {
			if err := place(pos, size); err != nil {
				return err
			}
		}
		c.in, c.out, c.speed = in, out, speed
		c.keyframes = newKf
		return nil
	}
	undo := func() error {
		if place != nil {
			if err := place(pos, oldSize); err != nil {
				return err
			}
		}
		c.in, c.out, c.speed = oldIn, oldOut, oldSpeed
		c.keyframes = oldKf
		return nil
	}
	return edit.Do(redo, undo)
}
