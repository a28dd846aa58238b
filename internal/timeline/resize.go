package timeline

import (
	"fmt"

	"github.com/dshills/cutstorm/internal/timeline/history"
	"github.com/dshills/cutstorm/internal/timeline/ident"
	"github.com/dshills/cutstorm/internal/timeline/item"
	"github.com/dshills/cutstorm/internal/timeline/notify"
)

// RequestItemResize changes the length of a clip or composition to size by
// dragging its right or left edge, and returns the size actually applied.
// With snapDistance > 0 the moving edge snaps to the nearest snap point in
// range. Unless allowSingleResize is set, every other member of the item's
// group whose same edge sits at the same frame is resized by the same delta
// as one atomic unit. A size of zero or less is always rejected.
//
// Consecutive resizes of the same edge coalesce into one undo entry when the
// model was built WithResizeCoalescing.
func (m *Model) RequestItemResize(id ident.ID, size int, right bool, flags Flags, snapDistance int, allowSingleResize bool) (int, error) {
	side := "left"
	if right {
		side = "right"
	}
	applied := -1
	key := fmt.Sprintf("resize:%s:%s", id, side)
	err := m.mutate("resize item", key, flags, func(edit *history.Edit) error {
		var err error
		applied, err = m.resizeLocked(id, size, right, snapDistance, allowSingleResize, edit)
		return err
	})
	if err != nil {
		return -1, err
	}
	return applied, nil
}

func (m *Model) resizeLocked(id ident.ID, size int, right bool, snapDistance int, allowSingle bool, edit *history.Edit) (int, error) {
	if size <= 0 {
		return -1, fmt.Errorf("%w: size %d", ErrInvalidArgument, size)
	}
	tr, pos, length, ok := m.itemPlacement(id)
	if !ok {
		return -1, notFound("item", id)
	}
	if tr == ident.None {
		return -1, fmt.Errorf("%w: item %s is not on a track", ErrNotFound, id)
	}
	if _, err := m.writableTrack(tr); err != nil {
		return -1, err
	}
	if snapDistance > 0 {
		if snapped, ok := m.snaps.ProposeSize(pos, pos+length, size, right, snapDistance); ok {
			size = snapped
		}
	}
	delta := size - length
	if delta == 0 {
		return size, nil
	}

	targets := []ident.ID{id}
	if !allowSingle && m.groups.InGroup(id) {
		edge := pos
		if right {
			edge = pos + length
		}
		for _, leaf := range m.groups.Leaves(m.groups.RootOf(id)) {
			if leaf == id {
				continue
			}
			ltr, lpos, llen, ok := m.itemPlacement(leaf)
			if !ok || ltr == ident.None {
				continue
			}
			ledge := lpos
			if right {
				ledge = lpos + llen
			}
			if ledge == edge {
				targets = append(targets, leaf)
			}
		}
	}

	local := history.NewEdit()
	for _, t := range targets {
		_, _, l, _ := m.itemPlacement(t)
		if err := m.resizeSingle(t, l+delta, right, local); err != nil {
			if rerr := local.Revert(); rerr != nil {
				m.logger.Warn("resize rollback failed", "item", id, "error", rerr)
			}
			return -1, err
		}
	}
	edit.Merge(local)
	return size, nil
}

// resizeSingle resizes one attached item through its track.
func (m *Model) resizeSingle(id ident.ID, size int, right bool, edit *history.Edit) error {
	roles := notify.RoleStart | notify.RoleDuration
	if c, ok := m.clips[id]; ok {
		if _, err := m.writableTrack(c.Track()); err != nil {
			return err
		}
		inner := history.NewEdit()
		if err := c.RequestResize(size, right, m.clipPlacement(c), inner); err != nil {
			return err
		}
		m.wrapClip(c, inner, roles, edit)
		return nil
	}
	if c, ok := m.comps[id]; ok {
		if _, err := m.writableTrack(c.Track()); err != nil {
			return err
		}
		inner := history.NewEdit()
		if err := c.RequestResize(size, right, m.compositionPlacement(c), inner); err != nil {
			return err
		}
		m.wrapComposition(c, inner, roles, edit)
		return nil
	}
	return notFound("item", id)
}

// RequestClipTimeWarp changes the playback speed of a clip. The crop range,
// the playtime, and the keyframes scale with the speed ratio while the start
// stays put. The linked half of an AVSplit pair changes speed with it.
func (m *Model) RequestClipTimeWarp(clipID ident.ID, speed float64, flags Flags) error {
	return m.mutate("change clip speed", "", flags, func(edit *history.Edit) error {
		c, ok := m.clips[clipID]
		if !ok {
			return notFound("clip", clipID)
		}
		targets := []ident.ID{clipID}
		if p := m.avPartner(clipID); p != nil {
			targets = append(targets, p.ID())
		}

		local := history.NewEdit()
		for _, id := range targets {
			t := m.clips[id]
			if t.Attached() {
				if _, err := m.writableTrack(t.Track()); err != nil {
					if rerr := local.Revert(); rerr != nil {
						m.logger.Warn("timewarp rollback failed", "clip", clipID, "error", rerr)
					}
					return err
				}
			}
			var place item.Placement
			if t.Attached() {
				place = m.clipPlacement(t)
			}
			inner := history.NewEdit()
			if err := t.RequestTimeWarp(speed, place, inner); err != nil {
				if rerr := local.Revert(); rerr != nil {
					m.logger.Warn("timewarp rollback failed", "clip", clipID, "error", rerr)
				}
				return fmt.Errorf("timewarp %s: %w", id, err)
			}
			m.wrapClip(t, inner, notify.RoleDuration|notify.RoleState, local)
		}
		edit.Merge(local)
		m.logger.Debug("clip speed changed", "clip", c.ID(), "speed", speed)
		return nil
	})
}
