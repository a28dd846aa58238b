package timeline

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/dshills/cutstorm/internal/timeline/history"
	"github.com/dshills/cutstorm/internal/timeline/ident"
	"github.com/dshills/cutstorm/internal/timeline/notify"
)

// RequestClipMove moves a clip to position on trackID. Moving a clip to
// where it already is succeeds without recording anything. A grouped clip
// moves its whole group by the same track and position delta. On failure
// the clip stays where it was.
func (m *Model) RequestClipMove(clipID, trackID ident.ID, position int, flags Flags) error {
	return m.mutate("move clip", "", flags, func(edit *history.Edit) error {
		if _, ok := m.clips[clipID]; !ok {
			return notFound("clip", clipID)
		}
		return m.moveItemLocked(clipID, trackID, position, edit)
	})
}

// RequestCompositionMove moves a composition to position on trackID.
func (m *Model) RequestCompositionMove(compID, trackID ident.ID, position int, flags Flags) error {
	return m.mutate("move composition", "", flags, func(edit *history.Edit) error {
		if _, ok := m.comps[compID]; !ok {
			return notFound("composition", compID)
		}
		return m.moveItemLocked(compID, trackID, position, edit)
	})
}

// RequestGroupMove shifts every leaf of groupID by deltaPos frames and by
// deltaTrack tracks. deltaTrack counts tracks of the anchor's kind; leaves
// on tracks of the other kind move by -deltaTrack in their own ordering, so
// that linked audio and video stay facing each other. The move is all or
// nothing.
func (m *Model) RequestGroupMove(anchorID, groupID ident.ID, deltaTrack, deltaPos int, flags Flags) error {
	return m.mutate("move group", "", flags, func(edit *history.Edit) error {
		return m.groupMoveLocked(anchorID, groupID, deltaTrack, deltaPos, edit)
	})
}

func (m *Model) moveItemLocked(id, trackID ident.ID, pos int, edit *history.Edit) error {
	curTrack, curPos, _, ok := m.itemPlacement(id)
	if !ok {
		return notFound("item", id)
	}
	if curTrack == ident.None {
		return fmt.Errorf("%w: item %s is not on a track", ErrNotFound, id)
	}
	target, err := m.trackFor(trackID)
	if err != nil {
		return err
	}
	if curTrack == trackID && curPos == pos {
		return nil
	}
	if pos < 0 {
		return fmt.Errorf("%w: position %d", ErrInvalidArgument, pos)
	}

	if m.groups.InGroup(id) {
		src := m.tracks[curTrack]
		if src.Kind() != target.Kind() {
			return fmt.Errorf("%w: grouped item %s cannot change track kind", ErrConflict, id)
		}
		deltaTrack := m.kindIndex(trackID) - m.kindIndex(curTrack)
		return m.groupMoveLocked(id, m.groups.RootOf(id), deltaTrack, pos-curPos, edit)
	}

	if _, err := m.writableTrack(curTrack); err != nil {
		return err
	}
	if _, err := m.writableTrack(trackID); err != nil {
		return err
	}

	local := history.NewEdit()
	if err := m.moveSingle(id, trackID, pos, local); err != nil {
		if rerr := local.Revert(); rerr != nil {
			m.logger.Warn("move rollback failed", "item", id, "error", rerr)
		}
		return err
	}
	edit.Merge(local)
	return nil
}

// moveSingle moves one ungrouped item. Same-track moves stay on the track.
func (m *Model) moveSingle(id, trackID ident.ID, pos int, edit *history.Edit) error {
	if c, ok := m.clips[id]; ok && c.Track() == trackID {
		return m.doShiftClip(c, pos, edit)
	}
	if c, ok := m.comps[id]; ok && c.Track() == trackID {
		return m.doShiftComposition(c, pos, edit)
	}
	if err := m.detachItem(id, edit); err != nil {
		return err
	}
	return m.attachItem(id, trackID, pos, edit)
}

// move is a computed target for one group leaf.
type move struct {
	id        ident.ID
	fromTrack ident.ID
	fromPos   int
	track     ident.ID
	pos       int
}

// groupTargets computes where every leaf of groupID lands.
func (m *Model) groupTargets(anchorID, groupID ident.ID, deltaTrack, deltaPos int) ([]move, error) {
	if !m.groups.Registered(groupID) {
		return nil, notFound("group", groupID)
	}
	leaves := m.groups.Leaves(groupID)
	if !slices.Contains(leaves, anchorID) {
		return nil, fmt.Errorf("%w: anchor %s is not in group %s", ErrInvalidArgument, anchorID, groupID)
	}
	anchorKind, ok := m.itemKind(anchorID)
	if !ok {
		return nil, fmt.Errorf("%w: anchor %s is not on a track", ErrNotFound, anchorID)
	}

	moves := make([]move, 0, len(leaves))
	for _, leaf := range leaves {
		tr, pos, _, ok := m.itemPlacement(leaf)
		if !ok || tr == ident.None {
			return nil, fmt.Errorf("%w: group leaf %s is not on a track", ErrNotFound, leaf)
		}
		kind := m.tracks[tr].Kind()
		d := deltaTrack
		if kind != anchorKind {
			d = -deltaTrack
		}
		list := m.kindTracks(kind)
		i := slices.Index(list, tr) + d
		if i < 0 || i >= len(list) {
			return nil, fmt.Errorf("%w: no %s track %d away from %s", ErrConflict, kind, d, tr)
		}
		if pos+deltaPos < 0 {
			return nil, fmt.Errorf("%w: leaf %s would start at %d", ErrInvalidArgument, leaf, pos+deltaPos)
		}
		if _, err := m.writableTrack(tr); err != nil {
			return nil, err
		}
		if _, err := m.writableTrack(list[i]); err != nil {
			return nil, err
		}
		moves = append(moves, move{id: leaf, fromTrack: tr, fromPos: pos, track: list[i], pos: pos + deltaPos})
	}

	// Rightward moves vacate the rightmost slots first, leftward the leftmost.
	slices.SortStableFunc(moves, func(a, b move) int {
		if deltaPos > 0 {
			return cmp.Compare(b.fromPos, a.fromPos)
		}
		return cmp.Compare(a.fromPos, b.fromPos)
	})
	return moves, nil
}

func (m *Model) groupMoveLocked(anchorID, groupID ident.ID, deltaTrack, deltaPos int, edit *history.Edit) error {
	moves, err := m.groupTargets(anchorID, groupID, deltaTrack, deltaPos)
	if err != nil {
		return err
	}
	if deltaTrack == 0 && deltaPos == 0 {
		return nil
	}

	local := history.NewEdit()
	err = func() error {
		for _, mv := range moves {
			if err := m.detachItem(mv.id, local); err != nil {
				return err
			}
		}
		for _, mv := range moves {
			if err := m.attachItem(mv.id, mv.track, mv.pos, local); err != nil {
				return fmt.Errorf("group move of %s: %w", mv.id, err)
			}
		}
		return nil
	}()
	if err != nil {
		if rerr := local.Revert(); rerr != nil {
			m.logger.Warn("group move rollback failed", "group", groupID, "error", rerr)
		}
		return err
	}
	edit.Merge(local)
	return nil
}

// ============================================================================
// Drag preview
// ============================================================================

// RequestFakeClipMove records where a drag would place a clip (and its
// group) without moving anything. It fails when the preview placement is
// occupied. Nothing is pushed to the undo stack.
func (m *Model) RequestFakeClipMove(clipID, trackID ident.ID, position int) error {
	return m.mutate("fake move", "", UpdateView, func(*history.Edit) error {
		c, ok := m.clips[clipID]
		if !ok {
			return notFound("clip", clipID)
		}
		if !c.Attached() {
			return fmt.Errorf("%w: clip %s is not on a track", ErrNotFound, clipID)
		}
		target, err := m.trackFor(trackID)
		if err != nil {
			return err
		}

		moves := []move{{id: clipID, fromTrack: c.Track(), fromPos: c.Position(), track: trackID, pos: position}}
		if m.groups.InGroup(clipID) {
			if m.tracks[c.Track()].Kind() != target.Kind() {
				return fmt.Errorf("%w: grouped clip %s cannot change track kind", ErrConflict, clipID)
			}
			dt := m.kindIndex(trackID) - m.kindIndex(c.Track())
			if moves, err = m.groupTargets(clipID, m.groups.RootOf(clipID), dt, position-c.Position()); err != nil {
				return err
			}
		}

		moving := make([]ident.ID, len(moves))
		for i, mv := range moves {
			moving[i] = mv.id
		}
		for _, mv := range moves {
			_, _, length, _ := m.itemPlacement(mv.id)
			t := m.tracks[mv.track]
			if cl, ok := m.clips[mv.id]; ok {
				if !stateFits(cl.State(), cl.ActiveState(), t.Kind()) {
					return fmt.Errorf("%w: clip %s cannot go on %s track", ErrConflict, mv.id, t.Kind())
				}
				if !t.CanInsertClip(mv.pos, length, moving...) {
					return fmt.Errorf("%w: preview of %s at %d collides", ErrConflict, mv.id, mv.pos)
				}
			}
		}
		for _, mv := range moves {
			m.setFake(mv.id, mv.track, mv.pos)
		}
		return nil
	})
}

// ClearFakeMoves drops every drag preview.
func (m *Model) ClearFakeMoves() {
	_ = m.mutate("clear fake moves", "", UpdateView, func(*history.Edit) error {
		for id, c := range m.clips {
			if t, _ := c.Fake(); t != ident.None {
				m.setFake(id, ident.None, -1)
			}
		}
		for id, c := range m.comps {
			if t, _ := c.Fake(); t != ident.None {
				m.setFake(id, ident.None, -1)
			}
		}
		return nil
	})
}

func (m *Model) setFake(id, trackID ident.ID, pos int) {
	var f interface{ SetFake(ident.ID, int) }
	if c, ok := m.clips[id]; ok {
		f = c
	} else if c, ok := m.comps[id]; ok {
		f = c
	} else {
		return
	}
	f.SetFake(trackID, pos)
	m.emit(id, notify.ChangeUpdate, notify.RoleFakePosition|notify.RoleFakeTrack)
}

// FakePlacement returns the drag preview of an item, or (ident.None, -1).
func (m *Model) FakePlacement(id ident.ID) (ident.ID, int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.clips[id]; ok {
		return c.Fake()
	}
	if c, ok := m.comps[id]; ok {
		return c.Fake()
	}
	return ident.None, -1
}
