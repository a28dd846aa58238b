package timeline

import (
	"fmt"

	"github.com/dshills/cutstorm/internal/timeline/group"
	"github.com/dshills/cutstorm/internal/timeline/history"
	"github.com/dshills/cutstorm/internal/timeline/ident"
	"github.com/dshills/cutstorm/internal/timeline/notify"
	"github.com/dshills/cutstorm/internal/timeline/track"
)

// RequestClipsGroup groups the given placed items under a new root and
// returns its id. Items that already belong to groups bring their whole
// group along. When every item already shares a root, that root is returned
// and nothing is recorded.
func (m *Model) RequestClipsGroup(ids []ident.ID, kind group.Kind, flags Flags) (ident.ID, error) {
	gid := ident.None
	err := m.mutate("group items", "", flags, func(edit *history.Edit) error {
		m.clearSelectionLocked()
		if kind == group.Selection {
			return fmt.Errorf("%w: use RequestSetSelection for selections", ErrInvalidArgument)
		}
		for _, id := range ids {
			tr, _, _, ok := m.itemPlacement(id)
			if !ok {
				return notFound("item", id)
			}
			if tr == ident.None {
				return fmt.Errorf("%w: item %s is not on a track", ErrNotFound, id)
			}
		}
		if kind == group.AVSplit {
			if err := m.checkAVPair(ids); err != nil {
				return err
			}
		}
		var err error
		if gid, err = m.groups.Group(ids, kind, edit); err != nil {
			return err
		}
		if edit.Empty() {
			// Every id already shares gid.
			return nil
		}
		return m.doEmitGroup(gid, edit)
	})
	if err != nil {
		return ident.None, err
	}
	return gid, nil
}

// checkAVPair validates the two halves of an AVSplit group.
func (m *Model) checkAVPair(ids []ident.ID) error {
	if len(ids) != 2 {
		return fmt.Errorf("%w: AVSplit needs exactly two clips", ErrInvalidArgument)
	}
	var kinds [2]track.Kind
	for i, id := range ids {
		c, ok := m.clips[id]
		if !ok {
			return fmt.Errorf("%w: AVSplit member %s is not a clip", ErrInvalidArgument, id)
		}
		if m.groups.InGroup(id) {
			return fmt.Errorf("%w: AVSplit member %s is already grouped", ErrIncompatibleState, id)
		}
		kinds[i] = m.tracks[c.Track()].Kind()
	}
	if kinds[0] == kinds[1] {
		return fmt.Errorf("%w: AVSplit needs one audio and one video clip", ErrConflict)
	}
	return nil
}

// doEmitGroup records a notification for every leaf under gid.
func (m *Model) doEmitGroup(gid ident.ID, edit *history.Edit) error {
	leaves := m.groups.Leaves(gid)
	emit := func() error {
		for _, id := range leaves {
			m.emit(id, notify.ChangeUpdate, notify.RoleGroup)
		}
		return nil
	}
	return edit.Do(emit, emit)
}

// RequestClipUngroup detaches the item from its parent group. Groups left
// with a single member collapse.
func (m *Model) RequestClipUngroup(id ident.ID, flags Flags) error {
	return m.mutate("ungroup item", "", flags, func(edit *history.Edit) error {
		m.clearSelectionLocked()
		if !m.groups.Registered(id) {
			return notFound("item", id)
		}
		if !m.groups.InGroup(id) {
			return fmt.Errorf("%w: item %s is not grouped", ErrIncompatibleState, id)
		}
		root := m.groups.RootOf(id)
		leaves := m.groups.Leaves(root)
		if err := m.groups.Ungroup(id, edit); err != nil {
			return err
		}
		return m.doEmitLeaves(leaves, edit)
	})
}

// RequestClipsUngroup dissolves the top-level group of every given item.
func (m *Model) RequestClipsUngroup(ids []ident.ID, flags Flags) error {
	return m.mutate("ungroup items", "", flags, func(edit *history.Edit) error {
		m.clearSelectionLocked()
		roots := make(map[ident.ID]bool)
		var order []ident.ID
		for _, id := range ids {
			if !m.groups.Registered(id) {
				return notFound("item", id)
			}
			r := m.groups.RootOf(id)
			if r == id || roots[r] {
				continue
			}
			roots[r] = true
			order = append(order, r)
		}
		if len(order) == 0 {
			return fmt.Errorf("%w: no grouped item given", ErrIncompatibleState)
		}
		for _, r := range order {
			leaves := m.groups.Leaves(r)
			if err := m.groups.Dissolve(r, edit); err != nil {
				return err
			}
			if err := m.doEmitLeaves(leaves, edit); err != nil {
				return err
			}
		}
		return nil
	})
}

func (m *Model) doEmitLeaves(leaves []ident.ID, edit *history.Edit) error {
	emit := func() error {
		for _, id := range leaves {
			m.emit(id, notify.ChangeUpdate, notify.RoleGroup)
		}
		return nil
	}
	return edit.Do(emit, emit)
}

// RequestGroupDeletion deletes every item of the group containing id. The
// group subtree is walked breadth first: internal nodes are dissolved, then
// each leaf is deleted. Any failure restores the whole group.
func (m *Model) RequestGroupDeletion(id ident.ID, flags Flags) error {
	return m.mutate("delete group", "", flags, func(edit *history.Edit) error {
		m.clearSelectionLocked()
		if !m.groups.Registered(id) {
			return notFound("item", id)
		}
		return m.deleteGroupLocked(m.groups.RootOf(id), edit)
	})
}

func (m *Model) deleteGroupLocked(root ident.ID, edit *history.Edit) error {
	nodes := m.groups.Subtree(root)
	local := history.NewEdit()
	err := func() error {
		var leaves []ident.ID
		for _, n := range nodes {
			if !m.groups.IsGroup(n) {
				leaves = append(leaves, n)
				continue
			}
			// Collapsing may already have removed a node with one child left.
			if !m.groups.Registered(n) {
				continue
			}
			if err := m.groups.Dissolve(n, local); err != nil {
				return err
			}
		}
		for _, leaf := range leaves {
			if err := m.deleteItemLocked(leaf, local); err != nil {
				return err
			}
		}
		return nil
	}()
	if err != nil {
		if rerr := local.Revert(); rerr != nil {
			m.logger.Warn("group deletion rollback failed", "group", root, "error", rerr)
		}
		return err
	}
	edit.Merge(local)
	return nil
}

// ============================================================================
// Selection
// ============================================================================

// RequestSetSelection replaces the selection with ids. The selection is a
// transient group that moves and resizes like any other but is never
// recorded in undo history. An empty ids clears it.
func (m *Model) RequestSetSelection(ids []ident.ID) error {
	return m.mutate("select", "", UpdateView, func(*history.Edit) error {
		m.clearSelectionLocked()
		if len(ids) == 0 {
			return nil
		}
		for _, id := range ids {
			tr, _, _, ok := m.itemPlacement(id)
			if !ok {
				return notFound("item", id)
			}
			if tr == ident.None {
				return fmt.Errorf("%w: item %s is not on a track", ErrNotFound, id)
			}
		}
		gid, err := m.groups.Group(ids, group.Selection, history.NewEdit())
		if err != nil {
			return err
		}
		m.selection = gid
		for _, id := range m.groups.Leaves(gid) {
			m.emit(id, notify.ChangeUpdate, notify.RoleGroup)
		}
		return nil
	})
}

// Selection returns the selected items.
func (m *Model) Selection() []ident.ID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.selection == ident.None {
		return nil
	}
	return m.groups.Leaves(m.selection)
}

// ClearSelection empties the selection.
func (m *Model) ClearSelection() {
	_ = m.RequestSetSelection(nil)
}

// clearSelectionLocked tears the selection group down without recording it.
func (m *Model) clearSelectionLocked() {
	if m.selection == ident.None {
		return
	}
	sel := m.selection
	m.selection = ident.None
	if !m.groups.IsGroup(sel) {
		return
	}
	leaves := m.groups.Leaves(sel)
	if err := m.groups.Dissolve(sel, history.NewEdit()); err != nil {
		m.logger.Warn("selection teardown failed", "group", sel, "error", err)
		return
	}
	for _, id := range leaves {
		m.emit(id, notify.ChangeUpdate, notify.RoleGroup)
	}
}
