package timeline

import (
	"fmt"
	"slices"

	"github.com/dshills/cutstorm/internal/timeline/history"
	"github.com/dshills/cutstorm/internal/timeline/ident"
	"github.com/dshills/cutstorm/internal/timeline/item"
	"github.com/dshills/cutstorm/internal/timeline/notify"
	"github.com/dshills/cutstorm/internal/timeline/track"
)

// RequestTrackInsertion creates a track at index counted from the bottom.
// A negative or too large index puts the track on top.
func (m *Model) RequestTrackInsertion(index int, kind track.Kind, name string, flags Flags) (ident.ID, error) {
	id := ident.None
	err := m.mutate("insert track", "", flags, func(edit *history.Edit) error {
		if kind != track.Audio && kind != track.Video {
			return fmt.Errorf("%w: track kind %d", ErrInvalidArgument, kind)
		}
		if index < 0 || index > len(m.order) {
			index = len(m.order)
		}
		t := track.New(m.alloc.Next(), kind, name)
		id = t.ID()
		return edit.Do(
			func() error { return m.insertTrack(t, index) },
			func() error { return m.removeTrack(t) },
		)
	})
	if err != nil {
		return ident.None, err
	}
	return id, nil
}

func (m *Model) insertTrack(t *track.Track, index int) error {
	if _, ok := m.tracks[t.ID()]; ok {
		return fmt.Errorf("%w: track %s already exists", ErrConflict, t.ID())
	}
	m.order = slices.Insert(m.order, index, t.ID())
	m.tracks[t.ID()] = t
	if err := m.rekeyAuto(); err != nil {
		m.order = slices.Delete(m.order, index, index+1)
		delete(m.tracks, t.ID())
		return err
	}
	if g := m.graph(); g != nil {
		g.AddTrack(t.ID(), t.Kind(), index)
	}
	m.replantAuto()
	m.emit(t.ID(), notify.ChangeInsert, 0)
	return nil
}

func (m *Model) removeTrack(t *track.Track) error {
	if !t.Empty() {
		return fmt.Errorf("%w: track %s is not empty", ErrIncompatibleState, t.ID())
	}
	i := slices.Index(m.order, t.ID())
	if i < 0 {
		return notFound("track", t.ID())
	}
	m.order = slices.Delete(m.order, i, i+1)
	delete(m.tracks, t.ID())
	if err := m.rekeyAuto(); err != nil {
		m.order = slices.Insert(m.order, i, t.ID())
		m.tracks[t.ID()] = t
		return err
	}
	if g := m.graph(); g != nil {
		g.RemoveTrack(t.ID())
	}
	m.replantAuto()
	m.emit(t.ID(), notify.ChangeRemove, 0)
	return nil
}

// RequestTrackDeletion deletes a track after ungrouping and deleting every
// item on it. Compositions elsewhere that were forced onto the track fall
// back to automatic a-track selection; a locked track holding one of them
// fails the whole deletion.
func (m *Model) RequestTrackDeletion(trackID ident.ID, flags Flags) error {
	return m.mutate("delete track", "", flags, func(edit *history.Edit) error {
		m.clearSelectionLocked()
		t, err := m.writableTrack(trackID)
		if err != nil {
			return err
		}
		index := slices.Index(m.order, trackID)

		local := history.NewEdit()
		err = func() error {
			for _, id := range append(t.ClipIDs(), t.CompositionIDs()...) {
				for m.groups.InGroup(id) {
					if err := m.groups.Ungroup(id, local); err != nil {
						return err
					}
				}
				if err := m.deleteItemLocked(id, local); err != nil {
					return err
				}
			}
			for _, c := range m.comps {
				if c.ATrack() == trackID {
					if c.Attached() {
						if _, err := m.writableTrack(c.Track()); err != nil {
							return err
						}
					}
					if err := m.doSetATrack(c, ident.None, local); err != nil {
						return err
					}
				}
			}
			return local.Do(
				func() error { return m.removeTrack(t) },
				func() error { return m.insertTrack(t, index) },
			)
		}()
		if err != nil {
			if rerr := local.Revert(); rerr != nil {
				m.logger.Warn("track deletion rollback failed", "track", trackID, "error", rerr)
			}
			return err
		}
		edit.Merge(local)
		return nil
	})
}

// SetTrackLock locks or unlocks a track. Items on a locked track reject
// every mutating request.
func (m *Model) SetTrackLock(trackID ident.ID, locked bool, flags Flags) error {
	return m.mutate("lock track", "", flags, func(edit *history.Edit) error {
		t, err := m.trackFor(trackID)
		if err != nil {
			return err
		}
		old := t.Locked()
		if old == locked {
			return nil
		}
		set := func(v bool) func() error {
			return func() error {
				t.SetLocked(v)
				m.emit(trackID, notify.ChangeUpdate, notify.RoleState)
				return nil
			}
		}
		return edit.Do(set(locked), set(old))
	})
}

// TrackLocked reports whether a track is locked.
func (m *Model) TrackLocked(trackID ident.ID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tracks[trackID]
	return ok && t.Locked()
}

// doSetATrack changes the requested a-track of a composition.
func (m *Model) doSetATrack(c *item.Composition, aTrack ident.ID, edit *history.Edit) error {
	old := c.ATrack()
	set := func(a ident.ID) func() error {
		return func() error {
			if c.Attached() {
				t, err := m.trackFor(c.Track())
				if err != nil {
					return err
				}
				if err := t.SetCompositionATrack(c.ID(), m.blendTrack(a, c.Track())); err != nil {
					return err
				}
			}
			c.SetATrack(a)
			m.plant(c)
			m.refresh(c.Position(), c.End())
			m.emit(c.ID(), notify.ChangeUpdate, notify.RoleATrack)
			return nil
		}
	}
	return edit.Do(set(aTrack), set(old))
}
