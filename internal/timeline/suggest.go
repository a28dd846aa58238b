package timeline

import (
	"fmt"
	"slices"

	"github.com/dshills/cutstorm/internal/timeline/history"
	"github.com/dshills/cutstorm/internal/timeline/ident"
	"github.com/dshills/cutstorm/internal/timeline/track"
)

// SuggestClipMove works out where a drag of clipID toward (trackID, position)
// can land without changing the model. The requested placement is snapped
// first when snapDistance > 0, using cursor as an extra snap point (pass a
// negative cursor to use the model's playhead). If it is blocked the clip's
// own track is tried, then the nearest reachable position next to the free
// space around the clip (or, for a group, the space every member can reach).
// When nothing works the current placement is returned.
func (m *Model) SuggestClipMove(clipID, trackID ident.ID, position, cursor, snapDistance int) (ident.ID, int, error) {
	m.mu.RLock()
	_, ok := m.clips[clipID]
	m.mu.RUnlock()
	if !ok {
		return ident.None, -1, notFound("clip", clipID)
	}
	return m.suggest(clipID, trackID, position, cursor, snapDistance)
}

// SuggestCompositionMove is SuggestClipMove for compositions.
func (m *Model) SuggestCompositionMove(compID, trackID ident.ID, position, cursor, snapDistance int) (ident.ID, int, error) {
	m.mu.RLock()
	_, ok := m.comps[compID]
	m.mu.RUnlock()
	if !ok {
		return ident.None, -1, notFound("composition", compID)
	}
	return m.suggest(compID, trackID, position, cursor, snapDistance)
}

func (m *Model) suggest(id, trackID ident.ID, position, cursor, snapDistance int) (ident.ID, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dryRun = true
	defer func() { m.dryRun = false }()

	curTrack, curPos, length, _ := m.itemPlacement(id)
	if curTrack == ident.None {
		return ident.None, -1, fmt.Errorf("%w: item %s is not on a track", ErrNotFound, id)
	}

	moving := []ident.ID{id}
	if m.groups.InGroup(id) {
		moving = m.groups.Leaves(m.groups.RootOf(id))
	}

	if snapDistance > 0 {
		var ignored []int
		for _, leaf := range moving {
			if _, p, l, ok := m.itemPlacement(leaf); ok {
				ignored = append(ignored, p, p+l)
			}
		}
		if cursor < 0 {
			cursor = m.cursor
		}
		if snapped, ok := m.snaps.BestSnapPos(position, length, ignored, cursor, snapDistance); ok {
			position = snapped
		}
	}

	if m.tryMove(id, trackID, position) {
		return trackID, position, nil
	}
	if trackID != curTrack && m.tryMove(id, curTrack, position) {
		return curTrack, position, nil
	}

	delta := position - curPos
	if delta != 0 {
		free := m.blankLimit(moving, delta > 0)
		reach := min(abs(delta), free)
		if reach > 0 {
			pos := curPos + reach
			if delta < 0 {
				pos = curPos - reach
			}
			if m.tryMove(id, curTrack, pos) {
				return curTrack, pos, nil
			}
		}
	}
	return curTrack, curPos, nil
}

// tryMove reports whether moving id would succeed, leaving the model as it was.
func (m *Model) tryMove(id, trackID ident.ID, pos int) bool {
	edit := history.NewEdit()
	err := m.moveItemLocked(id, trackID, pos, edit)
	if rerr := edit.Revert(); rerr != nil {
		m.logger.Warn("trial move rollback failed", "item", id, "error", rerr)
	}
	return err == nil
}

// blankLimit returns how far the clips in ids can travel on their tracks in
// one direction before touching a clip outside ids.
func (m *Model) blankLimit(ids []ident.ID, after bool) int {
	limit := track.Unbounded
	for _, id := range ids {
		c, ok := m.clips[id]
		if !ok || !c.Attached() {
			continue
		}
		t := m.tracks[c.Track()]
		gap, err := t.BlankSizeNear(id, after)
		if err != nil || gap == track.Unbounded {
			continue
		}
		neighbor := t.ClipAt(c.Position() - gap - 1)
		if after {
			neighbor = t.ClipAt(c.End() + gap)
		}
		if neighbor != ident.None && slices.Contains(ids, neighbor) {
			continue
		}
		limit = min(limit, gap)
	}
	return limit
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
