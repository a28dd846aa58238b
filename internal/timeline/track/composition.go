package track

import (
	"fmt"
	"slices"
	"sort"

	"github.com/dshills/cutstorm/internal/timeline/ident"
)

func less(a, b CompositionSpan) bool {
	if a.Start != b.Start {
		return a.Start < b.Start
	}
	return a.ID < b.ID
}

func (t *Track) compIndex(id ident.ID) int {
	return slices.IndexFunc(t.comps, func(c CompositionSpan) bool { return c.ID == id })
}

// Compositions returns the composition spans ordered by position.
func (t *Track) Compositions() []CompositionSpan {
	return slices.Clone(t.comps)
}

// CompositionIDs returns the composition ids ordered by position.
func (t *Track) CompositionIDs() []ident.ID {
	ids := make([]ident.ID, len(t.comps))
	for i, c := range t.comps {
		ids[i] = c.ID
	}
	return ids
}

// HasComposition reports whether the composition is on the track.
func (t *Track) HasComposition(id ident.ID) bool {
	return t.compIndex(id) >= 0
}

// CompositionSpan returns the interval and a-track of a composition.
func (t *Track) CompositionSpan(id ident.ID) (CompositionSpan, bool) {
	if i := t.compIndex(id); i >= 0 {
		return t.comps[i], true
	}
	return CompositionSpan{}, false
}

func (t *Track) compositionConflict(span CompositionSpan) error {
	for _, c := range t.comps {
		if c.ID != span.ID && c.ATrack == span.ATrack && c.Overlaps(span.Span) {
			return fmt.Errorf("%w: composition %s collides with %s", ErrOverlap, span.ID, c.ID)
		}
	}
	return nil
}

func (t *Track) insertComp(span CompositionSpan) {
	i := sort.Search(len(t.comps), func(i int) bool { return !less(t.comps[i], span) })
	t.comps = slices.Insert(t.comps, i, span)
}

// InsertComposition places a composition blending against aTrack on
// [pos, pos+length). It collides only with compositions sharing the same
// a-track; clips never block it.
func (t *Track) InsertComposition(id ident.ID, pos, length int, aTrack ident.ID) error {
	if err := checkInterval(pos, length); err != nil {
		return err
	}
	if t.HasComposition(id) {
		return fmt.Errorf("%w: composition %s", ErrDuplicate, id)
	}
	span := CompositionSpan{Span: Span{ID: id, Start: pos, End: pos + length}, ATrack: aTrack}
	if err := t.compositionConflict(span); err != nil {
		return err
	}
	t.insertComp(span)
	return nil
}

// RemoveComposition takes a composition off the track.
func (t *Track) RemoveComposition(id ident.ID) (CompositionSpan, error) {
	i := t.compIndex(id)
	if i < 0 {
		return CompositionSpan{}, fmt.Errorf("%w: composition %s", ErrNotFound, id)
	}
	span := t.comps[i]
	t.comps = slices.Delete(t.comps, i, i+1)
	return span, nil
}

// PlaceComposition changes the interval of a composition on the track.
func (t *Track) PlaceComposition(id ident.ID, pos, size int) error {
	if err := checkInterval(pos, size); err != nil {
		return err
	}
	i := t.compIndex(id)
	if i < 0 {
		return fmt.Errorf("%w: composition %s", ErrNotFound, id)
	}
	span := t.comps[i]
	span.Start, span.End = pos, pos+size
	if err := t.compositionConflict(span); err != nil {
		return err
	}
	t.comps = slices.Delete(t.comps, i, i+1)
	t.insertComp(span)
	return nil
}

// ResizeComposition grows or shrinks a composition from one edge.
func (t *Track) ResizeComposition(id ident.ID, size int, right bool) (Span, error) {
	span, ok := t.CompositionSpan(id)
	if !ok {
		return Span{}, fmt.Errorf("%w: composition %s", ErrNotFound, id)
	}
	size = max(size, 1)
	pos := span.Start
	if !right {
		pos = span.End - size
	}
	if err := t.PlaceComposition(id, pos, size); err != nil {
		return span.Span, err
	}
	return Span{ID: id, Start: pos, End: pos + size}, nil
}

// SetCompositionATrack changes the a-track a composition blends against.
func (t *Track) SetCompositionATrack(id, aTrack ident.ID) error {
	i := t.compIndex(id)
	if i < 0 {
		return fmt.Errorf("%w: composition %s", ErrNotFound, id)
	}
	span := t.comps[i]
	span.ATrack = aTrack
	if err := t.compositionConflict(span); err != nil {
		return err
	}
	t.comps[i] = span
	return nil
}

// RekeyCompositions changes the a-tracks of several compositions at once.
// Either every key in keys is applied or, on a collision, none is.
func (t *Track) RekeyCompositions(keys map[ident.ID]ident.ID) error {
	next := slices.Clone(t.comps)
	for i, c := range next {
		if a, ok := keys[c.ID]; ok {
			next[i].ATrack = a
		}
	}
	for i, c := range next {
		for _, o := range next[i+1:] {
			if o.ATrack == c.ATrack && o.Overlaps(c.Span) {
				return fmt.Errorf("%w: composition %s collides with %s", ErrOverlap, c.ID, o.ID)
			}
		}
	}
	t.comps = next
	return nil
}
