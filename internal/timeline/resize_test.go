package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/cutstorm/internal/timeline/group"
	"github.com/dshills/cutstorm/internal/timeline/ident"
	"github.com/dshills/cutstorm/internal/timeline/item"
)

func TestResizeRejectsNonPositiveSize(t *testing.T) {
	f := newFixture(t)
	c := f.clip(t, f.v1, 0, 100)
	before := f.m.Snapshot()

	for _, size := range []int{0, -5} {
		_, err := f.m.RequestItemResize(c, size, true, Defaults, 0, false)
		require.ErrorIs(t, err, ErrInvalidArgument, "size %d", size)
	}
	assert.Equal(t, before, f.m.Snapshot())
}

func TestResizeClipEdges(t *testing.T) {
	f := newFixture(t)
	m := f.m
	c, err := m.RequestClipInsertion(ClipSpec{BinRef: "long", In: 100, Out: 200, State: item.VideoOnly}, f.v1, 100, Defaults)
	require.NoError(t, err)

	size, err := m.RequestItemResize(c, 150, true, Defaults, 0, false)
	require.NoError(t, err)
	assert.Equal(t, 150, size)
	info, _ := m.ClipInfo(c)
	assert.Equal(t, 100, info.Position)
	assert.Equal(t, 100, info.In)
	assert.Equal(t, 250, info.Out)

	size, err = m.RequestItemResize(c, 200, false, Defaults, 0, false)
	require.NoError(t, err)
	assert.Equal(t, 200, size)
	info, _ = m.ClipInfo(c)
	assert.Equal(t, 50, info.Position)
	assert.Equal(t, 50, info.In)
	assert.Equal(t, 250, info.Out)
	assert.Equal(t, 250, f.graph.producers[c].Out)
	assert.Equal(t, 50, f.graph.producers[c].Position)

	// The crop cannot start before the source does.
	_, err = m.RequestItemResize(c, 300, false, Defaults, 0, false)
	require.ErrorIs(t, err, ErrInvalidArgument)

	f.clip(t, f.v1, 300, 10)
	_, err = m.RequestItemResize(c, 260, true, Defaults, 0, false)
	require.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 200, f.playtime(t, c))
	f.consistent(t)

	require.NoError(t, m.Undo())
	require.NoError(t, m.Undo())
	require.NoError(t, m.Undo())
	info, _ = m.ClipInfo(c)
	assert.Equal(t, 100, info.Position)
	assert.Equal(t, 100, info.In)
	assert.Equal(t, 200, info.Out)
	f.consistent(t)
}

func TestResizeSnaps(t *testing.T) {
	f := newFixture(t)
	c := f.clip(t, f.v1, 0, 100)
	f.clip(t, f.v2, 150, 50)

	size, err := f.m.RequestItemResize(c, 145, true, Defaults, 10, false)
	require.NoError(t, err)
	assert.Equal(t, 150, size)
	assert.Equal(t, 150, f.playtime(t, c))

	size, err = f.m.RequestItemResize(c, 170, true, Defaults, 10, false)
	require.NoError(t, err)
	assert.Equal(t, 170, size)
	f.consistent(t)
}

func TestResizeGroupedSiblings(t *testing.T) {
	f := newFixture(t)
	m := f.m
	c1 := f.clip(t, f.v1, 0, 100)
	c2 := f.clip(t, f.v2, 0, 100)
	c3 := f.clip(t, f.v2, 200, 100)
	_, err := m.RequestClipsGroup([]ident.ID{c1, c2, c3}, group.Normal, Defaults)
	require.NoError(t, err)

	_, err = m.RequestItemResize(c1, 120, true, Defaults, 0, false)
	require.NoError(t, err)
	assert.Equal(t, 120, f.playtime(t, c1))
	assert.Equal(t, 120, f.playtime(t, c2))
	assert.Equal(t, 100, f.playtime(t, c3))

	_, err = m.RequestItemResize(c1, 130, true, Defaults, 0, true)
	require.NoError(t, err)
	assert.Equal(t, 130, f.playtime(t, c1))
	assert.Equal(t, 120, f.playtime(t, c2))

	// c2 would run into c3.
	before := m.Snapshot()
	_, err = m.RequestItemResize(c2, 210, true, Defaults, 0, false)
	require.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, before, m.Snapshot())

	require.NoError(t, m.Undo())
	assert.Equal(t, 120, f.playtime(t, c1))
	require.NoError(t, m.Undo())
	assert.Equal(t, 100, f.playtime(t, c1))
	assert.Equal(t, 100, f.playtime(t, c2))
	f.consistent(t)
}

func TestResizeCoalescing(t *testing.T) {
	f := newFixture(t, WithResizeCoalescing(true))
	c := f.clip(t, f.v1, 0, 100)
	undos := f.stack.UndoCount()

	for _, size := range []int{110, 120, 130} {
		_, err := f.m.RequestItemResize(c, size, true, Defaults, 0, false)
		require.NoError(t, err)
	}
	assert.Equal(t, undos+1, f.stack.UndoCount())

	_, err := f.m.RequestItemResize(c, 90, false, Defaults, 0, false)
	require.NoError(t, err)
	assert.Equal(t, undos+2, f.stack.UndoCount())

	require.NoError(t, f.m.Undo())
	assert.Equal(t, 130, f.playtime(t, c))
	require.NoError(t, f.m.Undo())
	assert.Equal(t, 100, f.playtime(t, c))
	f.consistent(t)
}

func TestResizeWithoutCoalescing(t *testing.T) {
	f := newFixture(t)
	c := f.clip(t, f.v1, 0, 100)
	undos := f.stack.UndoCount()
	for _, size := range []int{110, 120, 130} {
		_, err := f.m.RequestItemResize(c, size, true, Defaults, 0, false)
		require.NoError(t, err)
	}
	assert.Equal(t, undos+3, f.stack.UndoCount())
}

func TestResizeComposition(t *testing.T) {
	f := newFixture(t)
	comp, err := f.m.RequestCompositionInsertion("wipe", f.v2, 100, 50, ident.None, Defaults)
	require.NoError(t, err)

	_, err = f.m.RequestItemResize(comp, 80, false, Defaults, 0, false)
	require.NoError(t, err)
	assert.Equal(t, 70, f.position(t, comp))
	assert.Equal(t, 80, f.playtime(t, comp))
	assert.Equal(t, 70, f.graph.plants[comp].Start)
	assert.Equal(t, 150, f.graph.plants[comp].End)
	f.consistent(t)

	_, err = f.m.RequestCompositionInsertion("wipe", f.v2, 0, 60, ident.None, Defaults)
	require.NoError(t, err)
	_, err = f.m.RequestItemResize(comp, 100, false, Defaults, 0, false)
	require.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 70, f.position(t, comp))
	assert.Equal(t, []int{0, 60, 70, 150}, f.m.SnapPoints())

	require.NoError(t, f.m.Undo())
	require.NoError(t, f.m.Undo())
	assert.Equal(t, 100, f.position(t, comp))
	assert.Equal(t, 150, f.graph.plants[comp].End)
	f.consistent(t)
}

func TestClipTimeWarp(t *testing.T) {
	f := newFixture(t)
	m := f.m
	c := f.clip(t, f.v1, 10, 100)
	before := m.Snapshot()

	require.NoError(t, m.RequestClipTimeWarp(c, 2, Defaults))
	assert.Equal(t, 50, f.playtime(t, c))
	assert.Equal(t, 10, f.position(t, c))
	info, _ := m.ClipInfo(c)
	assert.InDelta(t, 2.0, info.Speed, 1e-9)
	assert.InDelta(t, 2.0, f.graph.producers[c].Speed, 1e-9)

	require.ErrorIs(t, m.RequestClipTimeWarp(c, 0, Defaults), ErrInvalidArgument)
	require.ErrorIs(t, m.RequestClipTimeWarp(c, -1, Defaults), ErrInvalidArgument)
	f.consistent(t)

	require.NoError(t, m.Undo())
	assert.Equal(t, before, m.Snapshot())
}

func TestClipTimeWarpBlocked(t *testing.T) {
	f := newFixture(t)
	c := f.clip(t, f.v1, 0, 100)
	f.clip(t, f.v1, 150, 10)
	before := f.m.Snapshot()

	require.ErrorIs(t, f.m.RequestClipTimeWarp(c, 0.5, Defaults), ErrConflict)
	assert.Equal(t, before, f.m.Snapshot())
}

func TestClipTimeWarpFollowsPartner(t *testing.T) {
	f := newFixture(t)
	v, err := f.m.RequestClipInsertion(ClipSpec{BinRef: "short", SplitAudio: true}, f.v1, 0, Defaults)
	require.NoError(t, err)
	a := f.m.ClipAt(f.a1, 0)

	require.NoError(t, f.m.RequestClipTimeWarp(v, 2, Defaults))
	assert.Equal(t, 30, f.playtime(t, v))
	assert.Equal(t, 30, f.playtime(t, a))
	f.consistent(t)
}
