package group

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dshills/cutstorm/internal/timeline/history"
	"github.com/dshills/cutstorm/internal/timeline/ident"
)

// newTree registers n leaves with ids 1..n and starts group ids at 100.
func newTree(t *testing.T, n int) *Tree {
	t.Helper()
	tree := New(ident.NewAllocator(100))
	for i := 1; i <= n; i++ {
		require.NoError(t, tree.Register(ident.ID(i)))
	}
	return tree
}

func TestRegisterSingletons(t *testing.T) {
	tree := newTree(t, 2)
	require.Equal(t, ident.ID(1), tree.RootOf(1))
	require.True(t, tree.IsLeaf(1))
	require.False(t, tree.InGroup(1))
	require.Equal(t, []ident.ID{1}, tree.Leaves(1))
	require.ErrorIs(t, tree.Register(1), ErrAlreadyRegistered)
	require.NoError(t, tree.Check())

	require.NoError(t, tree.Deregister(2))
	require.False(t, tree.Registered(2))
	require.ErrorIs(t, tree.Deregister(2), ErrNotFound)
}

func TestGroupRequiresTwoItems(t *testing.T) {
	tree := newTree(t, 2)
	edit := history.NewEdit()

	_, err := tree.Group([]ident.ID{1}, Normal, edit)
	require.ErrorIs(t, err, ErrTooFewItems)
	_, err = tree.Group([]ident.ID{1, 1}, Normal, edit)
	require.ErrorIs(t, err, ErrTooFewItems)
	_, err = tree.Group([]ident.ID{1, 9}, Normal, edit)
	require.ErrorIs(t, err, ErrNotFound)
	require.True(t, edit.Empty())
}

func TestGroupAndUngroupRoundTrip(t *testing.T) {
	tree := newTree(t, 2)
	before := tree.Parents()

	edit := history.NewEdit()
	gid, err := tree.Group([]ident.ID{1, 2}, Normal, edit)
	require.NoError(t, err)
	require.Equal(t, gid, tree.RootOf(1))
	require.Equal(t, gid, tree.RootOf(2))
	require.Equal(t, []ident.ID{1, 2}, tree.Leaves(gid))
	require.NoError(t, tree.Check())

	// Grouping members of one root again is a no-op.
	again, err := tree.Group([]ident.ID{2, 1}, Normal, history.NewEdit())
	require.NoError(t, err)
	require.Equal(t, gid, again)

	require.NoError(t, tree.Ungroup(1, history.NewEdit()))
	require.Equal(t, before, tree.Parents())
	require.False(t, tree.IsGroup(gid))
	require.NoError(t, tree.Check())

	require.ErrorIs(t, tree.Ungroup(1, history.NewEdit()), ErrNotGrouped)
}

func TestGroupEditReverts(t *testing.T) {
	tree := newTree(t, 3)
	before := tree.Parents()

	edit := history.NewEdit()
	inner, err := tree.Group([]ident.ID{1, 2}, Normal, edit)
	require.NoError(t, err)
	outer, err := tree.Group([]ident.ID{2, 3}, Normal, edit)
	require.NoError(t, err)
	require.Equal(t, outer, tree.Parent(inner))
	require.Equal(t, []ident.ID{1, 2, 3}, tree.Leaves(outer))
	after := tree.Parents()

	require.NoError(t, edit.Revert())
	require.Equal(t, before, tree.Parents())
	require.Empty(t, tree.Groups())

	require.NoError(t, edit.Apply())
	require.Equal(t, after, tree.Parents())
	require.NoError(t, tree.Check())
}

func TestUngroupCollapsesNestedGroup(t *testing.T) {
	tree := newTree(t, 3)
	edit := history.NewEdit()
	inner, err := tree.Group([]ident.ID{1, 2}, Normal, edit)
	require.NoError(t, err)
	outer, err := tree.Group([]ident.ID{1, 3}, Normal, edit)
	require.NoError(t, err)
	before := tree.Parents()

	// Detaching 1 leaves inner with one child: 2 moves up into outer.
	ungroup := history.NewEdit()
	require.NoError(t, tree.Ungroup(1, ungroup))
	require.False(t, tree.InGroup(1))
	require.False(t, tree.IsGroup(inner))
	require.Equal(t, outer, tree.Parent(2))
	require.Equal(t, []ident.ID{2, 3}, tree.Leaves(outer))
	require.NoError(t, tree.Check())

	require.NoError(t, ungroup.Revert())
	require.Equal(t, before, tree.Parents())
	require.NoError(t, tree.Check())
}

func TestDissolve(t *testing.T) {
	tree := newTree(t, 4)
	edit := history.NewEdit()
	inner, err := tree.Group([]ident.ID{1, 2}, Normal, edit)
	require.NoError(t, err)
	outer, err := tree.Group([]ident.ID{1, 3, 4}, Normal, edit)
	require.NoError(t, err)
	before := tree.Parents()

	dissolve := history.NewEdit()
	require.NoError(t, tree.Dissolve(inner, dissolve))
	require.Equal(t, outer, tree.Parent(1))
	require.Equal(t, outer, tree.Parent(2))
	require.Len(t, tree.Children(outer), 4)
	require.NoError(t, tree.Check())

	require.NoError(t, tree.Dissolve(outer, dissolve))
	for i := ident.ID(1); i <= 4; i++ {
		require.False(t, tree.InGroup(i))
	}
	require.Empty(t, tree.Groups())

	require.NoError(t, dissolve.Revert())
	require.Equal(t, before, tree.Parents())

	require.ErrorIs(t, tree.Dissolve(1, history.NewEdit()), ErrNotGroup)
	require.ErrorIs(t, tree.Dissolve(77, history.NewEdit()), ErrNotFound)
}

func TestSubtreeBreadthFirst(t *testing.T) {
	tree := newTree(t, 3)
	edit := history.NewEdit()
	inner, err := tree.Group([]ident.ID{1, 2}, Normal, edit)
	require.NoError(t, err)
	outer, err := tree.Group([]ident.ID{2, 3}, Normal, edit)
	require.NoError(t, err)

	require.Equal(t, []ident.ID{outer, 3, inner, 1, 2}, tree.Subtree(outer))
	require.Nil(t, tree.Subtree(999))
}

func TestDeregisterGroupedLeafFails(t *testing.T) {
	tree := newTree(t, 2)
	_, err := tree.Group([]ident.ID{1, 2}, Normal, history.NewEdit())
	require.NoError(t, err)
	require.ErrorIs(t, tree.Deregister(1), ErrStillLinked)
}

func TestSelectionGroupAllowsSingleItem(t *testing.T) {
	tree := newTree(t, 1)
	gid, err := tree.Group([]ident.ID{1}, Selection, history.NewEdit())
	require.NoError(t, err)
	kind, ok := tree.Kind(gid)
	require.True(t, ok)
	require.Equal(t, Selection, kind)
	require.NoError(t, tree.Check())
}

func TestAVSplitCheck(t *testing.T) {
	tree := newTree(t, 3)
	edit := history.NewEdit()
	_, err := tree.Group([]ident.ID{1, 2, 3}, AVSplit, edit)
	require.NoError(t, err)
	require.Error(t, tree.Check())

	require.NoError(t, edit.Revert())
	_, err = tree.Group([]ident.ID{1, 2}, AVSplit, history.NewEdit())
	require.NoError(t, err)
	require.NoError(t, tree.Check())
}

func TestParseKind(t *testing.T) {
	for _, k := range []Kind{Normal, AVSplit, Selection} {
		got, err := ParseKind(k.String())
		require.NoError(t, err)
		require.Equal(t, k, got)
	}
	_, err := ParseKind("weird")
	require.Error(t, err)
}
