package timeline

import (
	"fmt"

	"github.com/dshills/cutstorm/internal/timeline/history"
	"github.com/dshills/cutstorm/internal/timeline/ident"
	"github.com/dshills/cutstorm/internal/timeline/item"
	"github.com/dshills/cutstorm/internal/timeline/notify"
	"github.com/dshills/cutstorm/internal/timeline/track"
)

// The primitives below mutate one item and keep the track, the snap
// registry, and the compositor in step. They record nothing; the do*
// helpers pair them into history steps. Callers hold the write lock.

func (m *Model) addSnaps(start, end int) {
	m.snaps.AddPoint(start)
	m.snaps.AddPoint(end)
}

func (m *Model) removeSnaps(start, end int) {
	m.snaps.RemovePoint(start)
	m.snaps.RemovePoint(end)
}

func (m *Model) syncProducer(c *item.Clip) {
	g := m.graph()
	if g == nil || !c.Attached() {
		return
	}
	g.SetProducer(Producer{
		Clip:     c.ID(),
		Ref:      c.BinRef(),
		Track:    c.Track(),
		Position: c.Position(),
		In:       c.In(),
		Out:      c.Out(),
		Speed:    c.Speed(),
		State:    c.State(),
	})
}

func (m *Model) attachClip(c *item.Clip, trackID ident.ID, pos int) error {
	t, err := m.trackFor(trackID)
	if err != nil {
		return err
	}
	if err := t.InsertClip(c.ID(), pos, c.Playtime()); err != nil {
		return err
	}
	c.SetTrack(trackID)
	c.SetPosition(pos)
	m.addSnaps(pos, c.End())
	m.syncProducer(c)
	m.refresh(pos, c.End())
	m.emit(c.ID(), notify.ChangeUpdate, notify.RoleStart|notify.RoleTrack)
	return nil
}

func (m *Model) detachClip(c *item.Clip) error {
	t, err := m.trackFor(c.Track())
	if err != nil {
		return err
	}
	if _, err := t.RemoveClip(c.ID()); err != nil {
		return err
	}
	m.removeSnaps(c.Position(), c.End())
	if g := m.graph(); g != nil {
		g.RemoveProducer(c.ID())
	}
	m.refresh(c.Position(), c.End())
	c.SetTrack(ident.None)
	return nil
}

// doAttachClip places an unattached clip.
func (m *Model) doAttachClip(c *item.Clip, trackID ident.ID, pos int, edit *history.Edit) error {
	return edit.Do(
		func() error { return m.attachClip(c, trackID, pos) },
		func() error { return m.detachClip(c) },
	)
}

// doDetachClip takes a clip off its track.
func (m *Model) doDetachClip(c *item.Clip, edit *history.Edit) error {
	trackID, pos := c.Track(), c.Position()
	return edit.Do(
		func() error { return m.detachClip(c) },
		func() error { return m.attachClip(c, trackID, pos) },
	)
}

// shiftClip moves a clip along its own track without leaving it.
func (m *Model) shiftClip(c *item.Clip, pos int) error {
	t, err := m.trackFor(c.Track())
	if err != nil {
		return err
	}
	old, end := c.Position(), c.End()
	if err := t.MoveClip(c.ID(), pos); err != nil {
		return err
	}
	m.removeSnaps(old, end)
	c.SetPosition(pos)
	m.addSnaps(pos, c.End())
	m.syncProducer(c)
	m.refresh(min(old, pos), max(end, c.End()))
	m.emit(c.ID(), notify.ChangeUpdate, notify.RoleStart)
	return nil
}

func (m *Model) doShiftClip(c *item.Clip, pos int, edit *history.Edit) error {
	old := c.Position()
	return edit.Do(
		func() error { return m.shiftClip(c, pos) },
		func() error { return m.shiftClip(c, old) },
	)
}

// resizeEdge reports which edge of [start, end) moves to reach
// [pos, pos+size): the right edge when the start stays put, the left edge
// when the end does.
func resizeEdge(start, end, pos, size int) (right bool, err error) {
	switch {
	case pos == start:
		return true, nil
	case pos+size == end:
		return false, nil
	}
	return false, fmt.Errorf("%w: [%d, %d) keeps neither edge of [%d, %d)",
		ErrInvalidArgument, pos, pos+size, start, end)
}

// clipPlacement lets a clip resize go through its track.
func (m *Model) clipPlacement(c *item.Clip) item.Placement {
	return func(pos, size int) error {
		t, err := m.trackFor(c.Track())
		if err != nil {
			return err
		}
		right, err := resizeEdge(c.Position(), c.End(), pos, size)
		if err != nil {
			return err
		}
		span, err := t.ResizeClip(c.ID(), size, right)
		if err != nil {
			return err
		}
		m.removeSnaps(c.Position(), c.End())
		m.addSnaps(span.Start, span.End)
		m.refresh(min(span.Start, c.Position()), max(span.End, c.End()))
		return nil
	}
}

// wrapClip records local as one step followed by a producer sync and a
// notification, in both directions.
func (m *Model) wrapClip(c *item.Clip, local *history.Edit, roles notify.Role, edit *history.Edit) {
	after := func() {
		m.syncProducer(c)
		m.emit(c.ID(), notify.ChangeUpdate, roles)
	}
	after()
	edit.Push(
		func() error {
			if err := local.Apply(); err != nil {
				return err
			}
			after()
			return nil
		},
		func() error {
			if err := local.Revert(); err != nil {
				return err
			}
			after()
			return nil
		},
	)
}

// doRegisterClip adds a new clip to the arena and the group forest.
func (m *Model) doRegisterClip(c *item.Clip, edit *history.Edit) error {
	return edit.Do(
		func() error { return m.registerClip(c) },
		func() error { return m.unregisterClip(c) },
	)
}

// doUnregisterClip removes a detached, ungrouped clip from the model.
func (m *Model) doUnregisterClip(c *item.Clip, edit *history.Edit) error {
	return edit.Do(
		func() error { return m.unregisterClip(c) },
		func() error { return m.registerClip(c) },
	)
}

func (m *Model) registerClip(c *item.Clip) error {
	if _, ok := m.clips[c.ID()]; ok {
		return fmt.Errorf("%w: clip %s already exists", ErrConflict, c.ID())
	}
	if err := m.groups.Register(c.ID()); err != nil {
		return err
	}
	m.clips[c.ID()] = c
	m.emit(c.ID(), notify.ChangeInsert, 0)
	return nil
}

func (m *Model) unregisterClip(c *item.Clip) error {
	if c.Attached() {
		return fmt.Errorf("%w: clip %s is still on track %s", ErrIncompatibleState, c.ID(), c.Track())
	}
	if err := m.groups.Deregister(c.ID()); err != nil {
		return err
	}
	delete(m.clips, c.ID())
	m.emit(c.ID(), notify.ChangeRemove, 0)
	return nil
}

// ============================================================================
// Compositions
// ============================================================================

// resolvedATrack returns the track a composition blends against.
func (m *Model) resolvedATrack(c *item.Composition) ident.ID {
	return m.blendTrack(c.ATrack(), c.Track())
}

// blendTrack resolves a requested a-track for a composition anchored on
// trackID: a forced track wins, otherwise the nearest lower track of the
// same kind, or ident.None for the background.
func (m *Model) blendTrack(forced, trackID ident.ID) ident.ID {
	if forced != ident.None {
		return forced
	}
	return m.lowerTrack(trackID)
}

// checkCompositionPair validates the kinds of a composition anchored on
// trackID and blending against the requested aTrack.
func (m *Model) checkCompositionPair(trackID, aTrack ident.ID) error {
	b, err := m.trackFor(trackID)
	if err != nil {
		return err
	}
	if b.Kind() != track.Video {
		return fmt.Errorf("%w: compositions cannot go on %s track %s", ErrIncompatibleState, b.Kind(), trackID)
	}
	if aTrack == ident.None {
		return nil
	}
	if aTrack == trackID {
		return fmt.Errorf("%w: a-track equals b-track %s", ErrInvalidArgument, trackID)
	}
	a, err := m.trackFor(aTrack)
	if err != nil {
		return err
	}
	if a.Kind() != b.Kind() {
		return fmt.Errorf("%w: %s track %s cannot blend against %s track %s",
			ErrIncompatibleState, b.Kind(), trackID, a.Kind(), aTrack)
	}
	return nil
}

func (m *Model) plant(c *item.Composition) {
	g := m.graph()
	if g == nil || !c.Attached() {
		return
	}
	g.Plant(Plant{
		ID:      c.ID(),
		Service: c.Service(),
		ATrack:  m.resolvedATrack(c),
		BTrack:  c.Track(),
		Start:   c.Position(),
		End:     c.End(),
	})
}

// rekeyAuto re-resolves the a-track of every automatic composition after
// the track order changed. When a new pair would collide nothing changes.
func (m *Model) rekeyAuto() error {
	keys := make(map[ident.ID]map[ident.ID]ident.ID)
	for _, c := range m.comps {
		if !c.Attached() || c.Forced() {
			continue
		}
		if keys[c.Track()] == nil {
			keys[c.Track()] = make(map[ident.ID]ident.ID)
		}
		keys[c.Track()][c.ID()] = m.lowerTrack(c.Track())
	}

	type rekeyed struct {
		t   *track.Track
		old map[ident.ID]ident.ID
	}
	var done []rekeyed
	for tid, k := range keys {
		t, err := m.trackFor(tid)
		if err != nil {
			return err
		}
		old := make(map[ident.ID]ident.ID, len(k))
		for id := range k {
			span, _ := t.CompositionSpan(id)
			old[id] = span.ATrack
		}
		if err := t.RekeyCompositions(k); err != nil {
			for _, d := range done {
				if rerr := d.t.RekeyCompositions(d.old); rerr != nil {
					m.logger.Warn("a-track rekey rollback failed", "track", d.t.ID(), "error", rerr)
				}
			}
			return err
		}
		done = append(done, rekeyed{t: t, old: old})
	}
	return nil
}

// replantAuto pushes the re-resolved automatic compositions to the
// compositor.
func (m *Model) replantAuto() {
	for _, c := range m.comps {
		if c.Attached() && !c.Forced() {
			m.plant(c)
			m.emit(c.ID(), notify.ChangeUpdate, notify.RoleATrack)
		}
	}
}

func (m *Model) attachComposition(c *item.Composition, trackID ident.ID, pos int) error {
	t, err := m.trackFor(trackID)
	if err != nil {
		return err
	}
	if err := m.checkCompositionPair(trackID, c.ATrack()); err != nil {
		return err
	}
	if err := t.InsertComposition(c.ID(), pos, c.Playtime(), m.blendTrack(c.ATrack(), trackID)); err != nil {
		return err
	}
	c.SetTrack(trackID)
	c.SetPosition(pos)
	m.addSnaps(pos, c.End())
	m.plant(c)
	m.refresh(pos, c.End())
	m.emit(c.ID(), notify.ChangeUpdate, notify.RoleStart|notify.RoleTrack|notify.RoleATrack)
	return nil
}

func (m *Model) detachComposition(c *item.Composition) error {
	t, err := m.trackFor(c.Track())
	if err != nil {
		return err
	}
	if _, err := t.RemoveComposition(c.ID()); err != nil {
		return err
	}
	m.removeSnaps(c.Position(), c.End())
	if g := m.graph(); g != nil {
		g.Unplant(c.ID())
	}
	m.refresh(c.Position(), c.End())
	c.SetTrack(ident.None)
	return nil
}

func (m *Model) doAttachComposition(c *item.Composition, trackID ident.ID, pos int, edit *history.Edit) error {
	return edit.Do(
		func() error { return m.attachComposition(c, trackID, pos) },
		func() error { return m.detachComposition(c) },
	)
}

func (m *Model) doDetachComposition(c *item.Composition, edit *history.Edit) error {
	trackID, pos := c.Track(), c.Position()
	return edit.Do(
		func() error { return m.detachComposition(c) },
		func() error { return m.attachComposition(c, trackID, pos) },
	)
}

func (m *Model) compositionPlacement(c *item.Composition) item.Placement {
	return func(pos, size int) error {
		t, err := m.trackFor(c.Track())
		if err != nil {
			return err
		}
		right, err := resizeEdge(c.Position(), c.End(), pos, size)
		if err != nil {
			return err
		}
		span, err := t.ResizeComposition(c.ID(), size, right)
		if err != nil {
			return err
		}
		m.removeSnaps(c.Position(), c.End())
		m.addSnaps(span.Start, span.End)
		m.refresh(min(span.Start, c.Position()), max(span.End, c.End()))
		return nil
	}
}

func (m *Model) wrapComposition(c *item.Composition, local *history.Edit, roles notify.Role, edit *history.Edit) {
	after := func() {
		m.plant(c)
		m.emit(c.ID(), notify.ChangeUpdate, roles)
	}
	after()
	edit.Push(
		func() error {
			if err := local.Apply(); err != nil {
				return err
			}
			after()
			return nil
		},
		func() error {
			if err := local.Revert(); err != nil {
				return err
			}
			after()
			return nil
		},
	)
}

func (m *Model) doRegisterComposition(c *item.Composition, edit *history.Edit) error {
	return edit.Do(
		func() error { return m.registerComposition(c) },
		func() error { return m.unregisterComposition(c) },
	)
}

func (m *Model) doUnregisterComposition(c *item.Composition, edit *history.Edit) error {
	return edit.Do(
		func() error { return m.unregisterComposition(c) },
		func() error { return m.registerComposition(c) },
	)
}

func (m *Model) registerComposition(c *item.Composition) error {
	if _, ok := m.comps[c.ID()]; ok {
		return fmt.Errorf("%w: composition %s already exists", ErrConflict, c.ID())
	}
	if err := m.groups.Register(c.ID()); err != nil {
		return err
	}
	m.comps[c.ID()] = c
	m.emit(c.ID(), notify.ChangeInsert, 0)
	return nil
}

func (m *Model) unregisterComposition(c *item.Composition) error {
	if c.Attached() {
		return fmt.Errorf("%w: composition %s is still on track %s", ErrIncompatibleState, c.ID(), c.Track())
	}
	if err := m.groups.Deregister(c.ID()); err != nil {
		return err
	}
	delete(m.comps, c.ID())
	m.emit(c.ID(), notify.ChangeRemove, 0)
	return nil
}

// ============================================================================
// Generic item helpers
// ============================================================================

// detachItem takes any attached item off its track.
func (m *Model) detachItem(id ident.ID, edit *history.Edit) error {
	if c, ok := m.clips[id]; ok {
		return m.doDetachClip(c, edit)
	}
	if c, ok := m.comps[id]; ok {
		return m.doDetachComposition(c, edit)
	}
	return notFound("item", id)
}

// attachItem places any unattached item.
func (m *Model) attachItem(id, trackID ident.ID, pos int, edit *history.Edit) error {
	if c, ok := m.clips[id]; ok {
		t, err := m.trackFor(trackID)
		if err != nil {
			return err
		}
		if !stateFits(c.State(), c.ActiveState(), t.Kind()) {
			return fmt.Errorf("%w: clip %s (%s) cannot go on %s track %s",
				ErrConflict, id, c.State(), t.Kind(), trackID)
		}
		return m.doAttachClip(c, trackID, pos, edit)
	}
	if c, ok := m.comps[id]; ok {
		return m.doAttachComposition(c, trackID, pos, edit)
	}
	return notFound("item", id)
}

// itemPlacement returns the track and position of any item.
func (m *Model) itemPlacement(id ident.ID) (ident.ID, int, int, bool) {
	if c, ok := m.clips[id]; ok {
		return c.Track(), c.Position(), c.Playtime(), true
	}
	if c, ok := m.comps[id]; ok {
		return c.Track(), c.Position(), c.Playtime(), true
	}
	return ident.None, 0, 0, false
}

// shiftComposition moves a composition along its own track.
func (m *Model) shiftComposition(c *item.Composition, pos int) error {
	t, err := m.trackFor(c.Track())
	if err != nil {
		return err
	}
	old, end := c.Position(), c.End()
	if err := t.PlaceComposition(c.ID(), pos, c.Playtime()); err != nil {
		return err
	}
	m.removeSnaps(old, end)
	c.SetPosition(pos)
	m.addSnaps(pos, c.End())
	m.plant(c)
	m.refresh(min(old, pos), max(end, c.End()))
	m.emit(c.ID(), notify.ChangeUpdate, notify.RoleStart)
	return nil
}

func (m *Model) doShiftComposition(c *item.Composition, pos int, edit *history.Edit) error {
	old := c.Position()
	return edit.Do(
		func() error { return m.shiftComposition(c, pos) },
		func() error { return m.shiftComposition(c, old) },
	)
}
