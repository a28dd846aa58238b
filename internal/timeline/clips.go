package timeline

import (
	"fmt"
	"math"

	"github.com/dshills/cutstorm/internal/timeline/group"
	"github.com/dshills/cutstorm/internal/timeline/history"
	"github.com/dshills/cutstorm/internal/timeline/ident"
	"github.com/dshills/cutstorm/internal/timeline/item"
	"github.com/dshills/cutstorm/internal/timeline/notify"
	"github.com/dshills/cutstorm/internal/timeline/track"
)

// ClipSpec describes a clip to create from the bin.
type ClipSpec struct {
	BinRef string
	In     int
	// Out is exclusive; zero plays up to the natural end of the media.
	Out   int
	State item.State

	// SplitAudio places an audio+video source as a video-only clip plus an
	// audio-only twin on the facing audio track, linked as an AVSplit group.
	SplitAudio bool
}

// RequestClipInsertion creates a clip from the bin and places it at
// position on trackID. It returns the id of the (video) clip.
func (m *Model) RequestClipInsertion(spec ClipSpec, trackID ident.ID, position int, flags Flags) (ident.ID, error) {
	id := ident.None
	err := m.mutate("insert clip", "", flags, func(edit *history.Edit) error {
		var err error
		id, err = m.insertClipLocked(spec, trackID, position, edit)
		return err
	})
	if err != nil {
		return ident.None, err
	}
	return id, nil
}

func (m *Model) insertClipLocked(spec ClipSpec, trackID ident.ID, pos int, edit *history.Edit) (ident.ID, error) {
	if spec.BinRef == "" {
		return ident.None, fmt.Errorf("%w: empty bin reference", ErrInvalidArgument)
	}
	natural, ok := m.catalog.Duration(spec.BinRef)
	if !ok {
		return ident.None, fmt.Errorf("%w: bin reference %q", ErrNotFound, spec.BinRef)
	}
	if !m.catalog.Ready(spec.BinRef) {
		return ident.None, fmt.Errorf("%w: media %q is not ready", ErrIncompatibleState, spec.BinRef)
	}
	if !m.catalog.SupportsState(spec.BinRef, spec.State) {
		return ident.None, fmt.Errorf("%w: media %q has no streams for %s", ErrIncompatibleState, spec.BinRef, spec.State)
	}
	out := spec.Out
	if out <= 0 {
		if natural <= 0 {
			return ident.None, fmt.Errorf("%w: endless media %q needs an out point", ErrInvalidArgument, spec.BinRef)
		}
		out = natural
	}
	t, err := m.writableTrack(trackID)
	if err != nil {
		return ident.None, err
	}

	state := spec.State
	split := spec.SplitAudio && state == item.AudioAndVideo && t.Kind() == track.Video
	if split {
		state = item.VideoOnly
	}
	if !stateFits(state, item.AudioAndVideo, t.Kind()) {
		return ident.None, fmt.Errorf("%w: %s clip on %s track", ErrIncompatibleState, state, t.Kind())
	}

	c, err := item.NewClip(m.alloc.Next(), spec.BinRef, spec.In, out, natural, state)
	if err != nil {
		return ident.None, err
	}

	local := history.NewEdit()
	err = func() error {
		if err := m.doRegisterClip(c, local); err != nil {
			return err
		}
		if err := m.doAttachClip(c, trackID, pos, local); err != nil {
			return err
		}
		if !split {
			return nil
		}
		audioTrack := m.mirrorTrack(trackID)
		if audioTrack == ident.None {
			return fmt.Errorf("%w: no audio track facing %s", ErrConflict, trackID)
		}
		if _, err := m.writableTrack(audioTrack); err != nil {
			return err
		}
		twin := c.Duplicate(m.alloc.Next())
		twin.SetState(item.AudioOnly)
		if err := m.doRegisterClip(twin, local); err != nil {
			return err
		}
		if err := m.doAttachClip(twin, audioTrack, pos, local); err != nil {
			return err
		}
		_, err := m.groups.Group([]ident.ID{c.ID(), twin.ID()}, group.AVSplit, local)
		return err
	}()
	if err != nil {
		if rerr := local.Revert(); rerr != nil {
			m.logger.Warn("insert rollback failed", "error", rerr)
		}
		return ident.None, err
	}
	edit.Merge(local)
	m.logger.Debug("clip inserted", "clip", c.ID(), "track", trackID, "position", pos)
	return c.ID(), nil
}

// RequestClipState switches which streams a clip plays. Disabling keeps the
// clip in place.
func (m *Model) RequestClipState(clipID ident.ID, state item.State, flags Flags) error {
	return m.mutate("change clip state", "", flags, func(edit *history.Edit) error {
		c, ok := m.clips[clipID]
		if !ok {
			return notFound("clip", clipID)
		}
		if c.State() == state {
			return nil
		}
		if state != item.Disabled && !m.catalog.SupportsState(c.BinRef(), state) {
			return fmt.Errorf("%w: media %q has no streams for %s", ErrIncompatibleState, c.BinRef(), state)
		}
		if c.Attached() {
			t, err := m.writableTrack(c.Track())
			if err != nil {
				return err
			}
			if !stateFits(state, c.ActiveState(), t.Kind()) {
				return fmt.Errorf("%w: %s clip on %s track", ErrIncompatibleState, state, t.Kind())
			}
		}
		oldState, oldActive := c.State(), c.ActiveState()
		apply := func(set func()) func() error {
			return func() error {
				set()
				m.syncProducer(c)
				m.refresh(c.Position(), c.End())
				m.emit(c.ID(), notify.ChangeUpdate, notify.RoleState)
				return nil
			}
		}
		return edit.Do(
			apply(func() { c.SetState(state) }),
			apply(func() { c.SetState(oldActive); c.SetState(oldState) }),
		)
	})
}

// RequestClipReload re-reads the natural length of a clip's media and trims
// the clip when the media got shorter.
func (m *Model) RequestClipReload(clipID ident.ID, flags Flags) error {
	return m.mutate("reload clip", "", flags, func(edit *history.Edit) error {
		c, ok := m.clips[clipID]
		if !ok {
			return notFound("clip", clipID)
		}
		if !m.catalog.Ready(c.BinRef()) {
			return fmt.Errorf("%w: media %q is not ready", ErrIncompatibleState, c.BinRef())
		}
		natural, ok := m.catalog.Duration(c.BinRef())
		if !ok {
			return fmt.Errorf("%w: bin reference %q", ErrNotFound, c.BinRef())
		}
		old := c.Natural()
		if natural == old {
			return nil
		}
		if err := edit.Do(
			func() error { c.SetNatural(natural); return nil },
			func() error { c.SetNatural(old); return nil },
		); err != nil {
			return err
		}
		limit := c.MaxOut()
		if limit < 0 || c.Out() <= limit {
			return nil
		}
		if limit <= c.In() {
			return fmt.Errorf("%w: media %q no longer covers clip %s", ErrIncompatibleState, c.BinRef(), clipID)
		}
		if c.Attached() {
			if _, err := m.writableTrack(c.Track()); err != nil {
				return err
			}
		}
		kf := c.Keyframes().Slice(0, limit-c.In())
		return m.doCrop(c, c.Position(), c.In(), limit, kf, edit)
	})
}

// doCrop sets the placement and crop range of a clip in one step.
func (m *Model) doCrop(c *item.Clip, pos, in, out int, kf item.Keyframes, edit *history.Edit) error {
	oldPos, oldIn, oldOut, oldKf := c.Position(), c.In(), c.Out(), c.Keyframes()
	set := func(pos, in, out int, kf item.Keyframes) func() error {
		return func() error {
			if c.Attached() {
				t, err := m.trackFor(c.Track())
				if err != nil {
					return err
				}
				if err := t.PlaceClip(c.ID(), pos, out-in); err != nil {
					return err
				}
				m.removeSnaps(c.Position(), c.End())
				m.addSnaps(pos, pos+out-in)
				m.refresh(min(pos, c.Position()), max(pos+out-in, c.End()))
			}
			c.SetPosition(pos)
			c.SetInOut(in, out)
			c.SetKeyframes(kf)
			m.syncProducer(c)
			m.emit(c.ID(), notify.ChangeUpdate, notify.RoleStart|notify.RoleDuration)
			return nil
		}
	}
	return edit.Do(set(pos, in, out, kf), set(oldPos, oldIn, oldOut, oldKf))
}

// RequestClipCut splits a clip at position into two adjacent clips and
// returns the id of the right part. The linked half of an AVSplit pair is
// cut too when it spans position, and the two right parts are linked.
func (m *Model) RequestClipCut(clipID ident.ID, position int, flags Flags) (ident.ID, error) {
	id := ident.None
	err := m.mutate("cut clip", "", flags, func(edit *history.Edit) error {
		c, ok := m.clips[clipID]
		if !ok {
			return notFound("clip", clipID)
		}
		targets := []*item.Clip{c}
		if partner := m.avPartner(clipID); partner != nil && partner.Attached() &&
			partner.Position() < position && position < partner.End() {
			targets = append(targets, partner)
		}

		local := history.NewEdit()
		var parts []ident.ID
		for _, t := range targets {
			right, err := m.cutLocked(t, position, local)
			if err != nil {
				if rerr := local.Revert(); rerr != nil {
					m.logger.Warn("clip cut rollback failed", "clip", clipID, "error", rerr)
				}
				return err
			}
			parts = append(parts, right.ID())
		}
		if len(parts) == 2 {
			if _, err := m.groups.Group(parts, group.AVSplit, local); err != nil {
				if rerr := local.Revert(); rerr != nil {
					m.logger.Warn("clip cut rollback failed", "clip", clipID, "error", rerr)
				}
				return err
			}
		}
		edit.Merge(local)
		id = parts[0]
		return nil
	})
	if err != nil {
		return ident.None, err
	}
	return id, nil
}

func (m *Model) cutLocked(c *item.Clip, position int, edit *history.Edit) (*item.Clip, error) {
	if !c.Attached() {
		return nil, fmt.Errorf("%w: clip %s is not on a track", ErrNotFound, c.ID())
	}
	if _, err := m.writableTrack(c.Track()); err != nil {
		return nil, err
	}
	if position <= c.Position() || position >= c.End() {
		return nil, fmt.Errorf("%w: cut at %d outside clip %s [%d, %d)",
			ErrInvalidArgument, position, c.ID(), c.Position(), c.End())
	}
	offset := position - c.Position()
	kf := c.Keyframes()

	right := c.Duplicate(m.alloc.Next())
	right.SetInOut(c.In()+offset, c.Out())
	right.SetKeyframes(kf.Slice(offset, c.Playtime()))

	trackID := c.Track()
	if err := m.doCrop(c, c.Position(), c.In(), c.In()+offset, kf.Slice(0, offset), edit); err != nil {
		return nil, err
	}
	if err := m.doRegisterClip(right, edit); err != nil {
		return nil, err
	}
	if err := m.doAttachClip(right, trackID, position, edit); err != nil {
		return nil, err
	}
	return right, nil
}

// avPartner returns the other half of the AVSplit pair clipID belongs to.
func (m *Model) avPartner(clipID ident.ID) *item.Clip {
	parent := m.groups.Parent(clipID)
	if parent == ident.None {
		return nil
	}
	if k, _ := m.groups.Kind(parent); k != group.AVSplit {
		return nil
	}
	for _, leaf := range m.groups.Leaves(parent) {
		if leaf != clipID {
			return m.clips[leaf]
		}
	}
	return nil
}

// RequestItemKeyframe sets a keyframe on a clip or composition. frame is
// relative to the item start and must lie inside the item.
func (m *Model) RequestItemKeyframe(id ident.ID, param string, frame int, value float64, flags Flags) error {
	return m.mutate("set keyframe", "", flags, func(edit *history.Edit) error {
		if param == "" {
			return fmt.Errorf("%w: empty parameter name", ErrInvalidArgument)
		}
		if math.IsNaN(value) {
			return fmt.Errorf("%w: value is NaN", ErrInvalidArgument)
		}
		type keyed interface {
			Keyframes() item.Keyframes
			SetKeyframes(item.Keyframes)
			Playtime() int
			Track() ident.ID
		}
		var it keyed
		if c, ok := m.clips[id]; ok {
			it = c
		} else if c, ok := m.comps[id]; ok {
			it = c
		} else {
			return notFound("item", id)
		}
		if frame < 0 || frame >= it.Playtime() {
			return fmt.Errorf("%w: frame %d outside [0, %d)", ErrInvalidArgument, frame, it.Playtime())
		}
		if it.Track() != ident.None {
			if _, err := m.writableTrack(it.Track()); err != nil {
				return err
			}
		}
		old := it.Keyframes()
		next := it.Keyframes()
		if next == nil {
			next = item.Keyframes{}
		}
		next.Set(param, frame, value)
		set := func(k item.Keyframes) func() error {
			return func() error {
				it.SetKeyframes(k)
				m.emit(id, notify.ChangeUpdate, notify.RoleState)
				return nil
			}
		}
		return edit.Do(set(next), set(old))
	})
}

// RequestItemDeletion removes a clip or composition. A grouped item takes
// its whole group with it.
func (m *Model) RequestItemDeletion(id ident.ID, flags Flags) error {
	return m.mutate("delete item", "", flags, func(edit *history.Edit) error {
		m.clearSelectionLocked()
		if !m.groups.Registered(id) {
			return notFound("item", id)
		}
		if m.groups.InGroup(id) {
			return m.deleteGroupLocked(m.groups.RootOf(id), edit)
		}
		return m.deleteItemLocked(id, edit)
	})
}

// deleteItemLocked detaches, ungroups, and unregisters one item.
func (m *Model) deleteItemLocked(id ident.ID, edit *history.Edit) error {
	tr, _, _, ok := m.itemPlacement(id)
	if !ok {
		return notFound("item", id)
	}
	local := history.NewEdit()
	err := func() error {
		if tr != ident.None {
			if _, err := m.writableTrack(tr); err != nil {
				return err
			}
			if err := m.detachItem(id, local); err != nil {
				return err
			}
		}
		for m.groups.InGroup(id) {
			if err := m.groups.Ungroup(id, local); err != nil {
				return err
			}
		}
		if c, ok := m.clips[id]; ok {
			return m.doUnregisterClip(c, local)
		}
		return m.doUnregisterComposition(m.comps[id], local)
	}()
	if err != nil {
		if rerr := local.Revert(); rerr != nil {
			m.logger.Warn("item deletion rollback failed", "item", id, "error", rerr)
		}
		return err
	}
	edit.Merge(local)
	return nil
}
