// Package track implements a single timeline track: an ordered, gap-tolerant
// sequence of non-overlapping clip intervals plus the compositions anchored
// to the track.
//
// A Track stores only ids and intervals. The items themselves are owned by
// the timeline model, which consults the track before changing an item's
// placement.
package track

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/dshills/cutstorm/internal/timeline/ident"
)

// Errors returned by track operations.
var (
	// ErrOverlap indicates the interval collides with an existing item.
	ErrOverlap = errors.New("interval overlaps an existing item")

	// ErrNotFound indicates the item is not on this track.
	ErrNotFound = errors.New("item not on track")

	// ErrInvalidInterval indicates a negative start or a non-positive length.
	ErrInvalidInterval = errors.New("invalid interval")

	// ErrDuplicate indicates the item is already on this track.
	ErrDuplicate = errors.New("item already on track")
)

// Unbounded is returned by blank queries when the free space never ends.
const Unbounded = math.MaxInt

// Kind is the media kind a track carries.
type Kind int

const (
	Audio Kind = iota
	Video
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Audio:
		return "audio"
	case Video:
		return "video"
	default:
		return "unknown"
	}
}

// ParseKind parses a kind name.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "audio", "a":
		return Audio, nil
	case "video", "v":
		return Video, nil
	}
	return Video, fmt.Errorf("unknown track kind %q", s)
}

// Span is the half-open interval [Start, End) an item occupies.
type Span struct {
	ID    ident.ID
	Start int
	End   int
}

// Len returns the span length.
func (s Span) Len() int {
	return s.End - s.Start
}

// Overlaps reports whether s and o share at least one frame.
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// CompositionSpan is the interval of a composition together with the
// a-track it blends against. ident.None means the background. Two spans
// with the same a-track must not overlap.
type CompositionSpan struct {
	Span
	ATrack ident.ID
}

// Track holds the item intervals of one timeline track.
type Track struct {
	id     ident.ID
	kind   Kind
	name   string
	locked bool

	clips []Span
	comps []CompositionSpan
}

// New creates an empty track.
func New(id ident.ID, kind Kind, name string) *Track {
	return &Track{id: id, kind: kind, name: name}
}

func (t *Track) ID() ident.ID          { return t.id }
func (t *Track) Kind() Kind            { return t.kind }
func (t *Track) Name() string          { return t.name }
func (t *Track) Locked() bool          { return t.locked }
func (t *Track) SetLocked(locked bool) { t.locked = locked }

// Empty reports whether the track holds no item.
func (t *Track) Empty() bool {
	return len(t.clips) == 0 && len(t.comps) == 0
}

// Duration returns the end of the last item on the track.
func (t *Track) Duration() int {
	d := 0
	if n := len(t.clips); n > 0 {
		d = t.clips[n-1].End
	}
	for _, c := range t.comps {
		d = max(d, c.End)
	}
	return d
}

func checkInterval(pos, length int) error {
	if pos < 0 || length <= 0 {
		return fmt.Errorf("%w: start %d length %d", ErrInvalidInterval, pos, length)
	}
	return nil
}

// Clips returns the clip spans in position order.
func (t *Track) Clips() []Span {
	return slices.Clone(t.clips)
}

// ClipIDs returns the clip ids in position order.
func (t *Track) ClipIDs() []ident.ID {
	ids := make([]ident.ID, len(t.clips))
	for i, s := range t.clips {
		ids[i] = s.ID
	}
	return ids
}

func (t *Track) clipIndex(id ident.ID) int {
	return slices.IndexFunc(t.clips, func(s Span) bool { return s.ID == id })
}

// HasClip reports whether the clip is on the track.
func (t *Track) HasClip(id ident.ID) bool {
	return t.clipIndex(id) >= 0
}

// ClipSpan returns the interval of a clip.
func (t *Track) ClipSpan(id ident.ID) (Span, bool) {
	if i := t.clipIndex(id); i >= 0 {
		return t.clips[i], true
	}
	return Span{}, false
}

// fits reports whether span can be placed among clips without overlap and
// returns the index it would be inserted at.
func fits(clips []Span, span Span) (int, bool) {
	i := sort.Search(len(clips), func(i int) bool { return clips[i].Start >= span.Start })
	if i > 0 && clips[i-1].End > span.Start {
		return i, false
	}
	if i < len(clips) && clips[i].Start < span.End {
		return i, false
	}
	return i, true
}

// InsertClip places a clip on [pos, pos+length).
func (t *Track) InsertClip(id ident.ID, pos, length int) error {
	if err := checkInterval(pos, length); err != nil {
		return err
	}
	if t.HasClip(id) {
		return fmt.Errorf("%w: clip %s", ErrDuplicate, id)
	}
	span := Span{ID: id, Start: pos, End: pos + length}
	i, ok := fits(t.clips, span)
	if !ok {
		return fmt.Errorf("%w: clip %s at [%d, %d)", ErrOverlap, id, span.Start, span.End)
	}
	t.clips = slices.Insert(t.clips, i, span)
	return nil
}

// CanInsertClip reports whether [pos, pos+length) is free of clips,
// ignoring the clips in except.
func (t *Track) CanInsertClip(pos, length int, except ...ident.ID) bool {
	if checkInterval(pos, length) != nil {
		return false
	}
	span := Span{Start: pos, End: pos + length}
	for _, s := range t.clips {
		if s.Overlaps(span) && !slices.Contains(except, s.ID) {
			return false
		}
	}
	return true
}

// RemoveClip takes a clip off the track and returns the interval it held.
func (t *Track) RemoveClip(id ident.ID) (Span, error) {
	i := t.clipIndex(id)
	if i < 0 {
		return Span{}, fmt.Errorf("%w: clip %s", ErrNotFound, id)
	}
	span := t.clips[i]
	t.clips = slices.Delete(t.clips, i, i+1)
	return span, nil
}

// PlaceClip moves a clip already on the track to [pos, pos+size).
// The clip keeps its old interval on failure.
func (t *Track) PlaceClip(id ident.ID, pos, size int) error {
	if err := checkInterval(pos, size); err != nil {
		return err
	}
	i := t.clipIndex(id)
	if i < 0 {
		return fmt.Errorf("%w: clip %s", ErrNotFound, id)
	}
	rest := slices.Delete(slices.Clone(t.clips), i, i+1)
	span := Span{ID: id, Start: pos, End: pos + size}
	j, ok := fits(rest, span)
	if !ok {
		return fmt.Errorf("%w: clip %s at [%d, %d)", ErrOverlap, id, span.Start, span.End)
	}
	t.clips = slices.Insert(rest, j, span)
	return nil
}

// MoveClip shifts a clip to pos keeping its length.
func (t *Track) MoveClip(id ident.ID, pos int) error {
	span, ok := t.ClipSpan(id)
	if !ok {
		return fmt.Errorf("%w: clip %s", ErrNotFound, id)
	}
	return t.PlaceClip(id, pos, span.Len())
}

// ResizeClip grows or shrinks a clip from its right or left edge. Sizes
// below one are clamped to one. It returns the new interval.
func (t *Track) ResizeClip(id ident.ID, size int, right bool) (Span, error) {
	span, ok := t.ClipSpan(id)
	if !ok {
		return Span{}, fmt.Errorf("%w: clip %s", ErrNotFound, id)
	}
	size = max(size, 1)
	pos := span.Start
	if !right {
		pos = span.End - size
	}
	if err := t.PlaceClip(id, pos, size); err != nil {
		return span, err
	}
	return Span{ID: id, Start: pos, End: pos + size}, nil
}

// ClipAt returns the clip covering pos, or ident.None.
func (t *Track) ClipAt(pos int) ident.ID {
	i := sort.Search(len(t.clips), func(i int) bool { return t.clips[i].End > pos })
	if i < len(t.clips) && t.clips[i].Start <= pos {
		return t.clips[i].ID
	}
	return ident.None
}

// BlankSizeNear returns the free space next to a clip: after its end when
// after is true, before its start otherwise. Space after the last clip is
// Unbounded; space before the first clip is bounded by frame zero.
func (t *Track) BlankSizeNear(id ident.ID, after bool) (int, error) {
	i := t.clipIndex(id)
	if i < 0 {
		return 0, fmt.Errorf("%w: clip %s", ErrNotFound, id)
	}
	if after {
		if i == len(t.clips)-1 {
			return Unbounded, nil
		}
		return t.clips[i+1].Start - t.clips[i].End, nil
	}
	if i == 0 {
		return t.clips[0].Start, nil
	}
	return t.clips[i].Start - t.clips[i-1].End, nil
}

// Check verifies ordering and the no-overlap invariant.
func (t *Track) Check() error {
	var errs []error
	for i, s := range t.clips {
		if s.Start < 0 || s.Len() <= 0 {
			errs = append(errs, fmt.Errorf("track %s: clip %s has invalid interval [%d, %d)", t.id, s.ID, s.Start, s.End))
		}
		if i > 0 && t.clips[i-1].End > s.Start {
			errs = append(errs, fmt.Errorf("track %s: clips %s and %s overlap", t.id, t.clips[i-1].ID, s.ID))
		}
	}
	for i, c := range t.comps {
		if c.Start < 0 || c.Len() <= 0 {
			errs = append(errs, fmt.Errorf("track %s: composition %s has invalid interval", t.id, c.ID))
		}
		if i > 0 && less(c, t.comps[i-1]) {
			errs = append(errs, fmt.Errorf("track %s: compositions out of order at %s", t.id, c.ID))
		}
		for _, o := range t.comps[i+1:] {
			if o.ATrack == c.ATrack && o.Overlaps(c.Span) {
				errs = append(errs, fmt.Errorf("track %s: compositions %s and %s collide", t.id, c.ID, o.ID))
			}
		}
	}
	return errors.Join(errs...)
}
