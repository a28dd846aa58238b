// Package group maintains the forest of groups over timeline items.
//
// Every registered item starts as its own single-node root. Grouping creates
// a new node parenting the current roots of the given items; ungrouping
// detaches a subtree again. Groups that are left with a single child collapse
// so that the tree never carries trivial levels.
//
// Structural mutations take a *history.Edit and record their inverse in it.
// The Tree is not safe for concurrent use; the timeline model serializes
// access.
package group

import (
	"errors"
	"fmt"
	"slices"

	"github.com/dshills/cutstorm/internal/timeline/history"
	"github.com/dshills/cutstorm/internal/timeline/ident"
)

// Errors returned by tree operations.
var (
	ErrNotFound          = errors.New("group node not found")
	ErrAlreadyRegistered = errors.New("item already registered")
	ErrTooFewItems       = errors.New("grouping needs at least two items")
	ErrNotGrouped        = errors.New("item is not grouped")
	ErrNotGroup          = errors.New("node is not a group")
	ErrStillLinked       = errors.New("item is still linked to a group")
)

// Kind tags a group node.
type Kind int

const (
	// Normal is a user-created group.
	Normal Kind = iota
	// AVSplit links the audio and video halves of one source clip.
	AVSplit
	// Selection is the transient multi-select group. It is never recorded
	// in undo history.
	Selection
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Normal:
		return "normal"
	case AVSplit:
		return "avsplit"
	case Selection:
		return "selection"
	default:
		return "unknown"
	}
}

// ParseKind parses a kind name.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "normal", "":
		return Normal, nil
	case "avsplit":
		return AVSplit, nil
	case "selection":
		return Selection, nil
	}
	return Normal, fmt.Errorf("unknown group kind %q", s)
}

// Tree is a forest of group nodes over item identifiers.
type Tree struct {
	alloc *ident.Allocator

	up    map[ident.ID]ident.ID
	down  map[ident.ID]map[ident.ID]struct{}
	kinds map[ident.ID]Kind
}

// New creates an empty tree drawing group ids from alloc.
func New(alloc *ident.Allocator) *Tree {
	return &Tree{
		alloc: alloc,
		up:    make(map[ident.ID]ident.ID),
		down:  make(map[ident.ID]map[ident.ID]struct{}),
		kinds: make(map[ident.ID]Kind),
	}
}

// Register makes id a single-node root.
func (t *Tree) Register(id ident.ID) error {
	if _, ok := t.up[id]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, id)
	}
	t.up[id] = ident.None
	t.down[id] = make(map[ident.ID]struct{})
	return nil
}

// Deregister forgets a leaf. The leaf must be a root.
func (t *Tree) Deregister(id ident.ID) error {
	parent, ok := t.up[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if t.IsGroup(id) {
		return fmt.Errorf("%w: %s is a group", ErrStillLinked, id)
	}
	if parent != ident.None {
		return fmt.Errorf("%w: %s", ErrStillLinked, id)
	}
	delete(t.up, id)
	delete(t.down, id)
	return nil
}

// Registered reports whether id is a node of the tree.
func (t *Tree) Registered(id ident.ID) bool {
	_, ok := t.up[id]
	return ok
}

// IsGroup reports whether id is a group node.
func (t *Tree) IsGroup(id ident.ID) bool {
	_, ok := t.kinds[id]
	return ok
}

// IsLeaf reports whether id is a registered item.
func (t *Tree) IsLeaf(id ident.ID) bool {
	return t.Registered(id) && !t.IsGroup(id)
}

// InGroup reports whether id has a parent.
func (t *Tree) InGroup(id ident.ID) bool {
	p, ok := t.up[id]
	return ok && p != ident.None
}

// Parent returns the parent of id, or ident.None.
func (t *Tree) Parent(id ident.ID) ident.ID {
	if p, ok := t.up[id]; ok {
		return p
	}
	return ident.None
}

// RootOf returns the root of the tree containing id. An unknown id is its own root.
func (t *Tree) RootOf(id ident.ID) ident.ID {
	for {
		p, ok := t.up[id]
		if !ok || p == ident.None {
			return id
		}
		id = p
	}
}

// Kind returns the kind of a group node.
func (t *Tree) Kind(id ident.ID) (Kind, bool) {
	k, ok := t.kinds[id]
	return k, ok
}

// Children returns the direct children of id in ascending order.
func (t *Tree) Children(id ident.ID) []ident.ID {
	return sortedKeys(t.down[id])
}

// Leaves returns every item below id in ascending order. A leaf is its own
// single leaf.
func (t *Tree) Leaves(id ident.ID) []ident.ID {
	if !t.Registered(id) {
		return nil
	}
	var leaves []ident.ID
	stack := []ident.ID{id}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !t.IsGroup(n) {
			leaves = append(leaves, n)
			continue
		}
		for c := range t.down[n] {
			stack = append(stack, c)
		}
	}
	slices.Sort(leaves)
	return leaves
}

// Subtree returns id and every node below it in breadth-first order.
// Siblings are visited in ascending order.
func (t *Tree) Subtree(id ident.ID) []ident.ID {
	if !t.Registered(id) {
		return nil
	}
	order := []ident.ID{id}
	for i := 0; i < len(order); i++ {
		order = append(order, t.Children(order[i])...)
	}
	return order
}

// Groups returns every group node in ascending order.
func (t *Tree) Groups() []ident.ID {
	out := make([]ident.ID, 0, len(t.kinds))
	for id := range t.kinds {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Parents returns a copy of the child to parent map covering every node.
func (t *Tree) Parents() map[ident.ID]ident.ID {
	out := make(map[ident.ID]ident.ID, len(t.up))
	for k, v := range t.up {
		out[k] = v
	}
	return out
}

// Group creates a new root parenting the roots of ids and returns its id.
// If every id already shares one group root, that root is returned and
// nothing changes.
func (t *Tree) Group(ids []ident.ID, kind Kind, edit *history.Edit) (ident.ID, error) {
	if kind != Selection && len(ids) < 2 {
		return ident.None, ErrTooFewItems
	}
	if len(ids) == 0 {
		return ident.None, ErrTooFewItems
	}

	var roots []ident.ID
	for _, id := range ids {
		if !t.Registered(id) {
			return ident.None, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		r := t.RootOf(id)
		if !slices.Contains(roots, r) {
			roots = append(roots, r)
		}
	}
	slices.Sort(roots)

	if len(roots) == 1 && kind != Selection {
		if t.IsGroup(roots[0]) {
			return roots[0], nil
		}
		return ident.None, ErrTooFewItems
	}

	gid := t.alloc.Next()
	redo := func() error {
		t.createNode(gid, kind)
		for _, r := range roots {
			t.setParent(r, gid)
		}
		return nil
	}
	undo := func() error {
		for _, r := range roots {
			t.detach(r)
		}
		t.destroyNode(gid)
		return nil
	}
	if err := edit.Do(redo, undo); err != nil {
		return ident.None, err
	}
	return gid, nil
}

// Ungroup detaches the subtree rooted at id from its parent, making id a
// root. Ancestors left with fewer than two children collapse.
func (t *Tree) Ungroup(id ident.ID, edit *history.Edit) error {
	parent, ok := t.up[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if parent == ident.None {
		return fmt.Errorf("%w: %s", ErrNotGrouped, id)
	}

	local := history.NewEdit()
	if err := local.Do(
		func() error { t.detach(id); return nil },
		func() error { t.setParent(id, parent); return nil },
	); err != nil {
		return err
	}
	t.collapse(parent, local)
	edit.Merge(local)
	return nil
}

// Dissolve removes the group node gid. Its children move up to gid's parent,
// or become roots when gid was a root.
func (t *Tree) Dissolve(gid ident.ID, edit *history.Edit) error {
	kind, ok := t.kinds[gid]
	if !ok {
		if t.Registered(gid) {
			return fmt.Errorf("%w: %s", ErrNotGroup, gid)
		}
		return fmt.Errorf("%w: %s", ErrNotFound, gid)
	}
	parent := t.up[gid]
	children := t.Children(gid)

	redo := func() error {
		for _, c := range children {
			t.detach(c)
		}
		t.destroyNode(gid)
		if parent != ident.None {
			for _, c := range children {
				t.setParent(c, parent)
			}
		}
		return nil
	}
	undo := func() error {
		if parent != ident.None {
			for _, c := range children {
				t.detach(c)
			}
		}
		t.createNode(gid, kind)
		if parent != ident.None {
			t.setParent(gid, parent)
		}
		for _, c := range children {
			t.setParent(c, gid)
		}
		return nil
	}

	local := history.NewEdit()
	if err := local.Do(redo, undo); err != nil {
		return err
	}
	if parent != ident.None {
		t.collapse(parent, local)
	}
	edit.Merge(local)
	return nil
}

// collapse removes trivial ancestors starting at g: an empty group is
// destroyed, and a group with one child is replaced by that child.
func (t *Tree) collapse(g ident.ID, edit *history.Edit) {
	for g != ident.None && t.IsGroup(g) {
		children := t.Children(g)
		if len(children) >= 2 {
			return
		}
		grand := t.up[g]
		kind := t.kinds[g]

		if len(children) == 1 {
			c := children[0]
			_ = edit.Do(
				func() error {
					t.detach(c)
					t.destroyNode(g)
					if grand != ident.None {
						t.setParent(c, grand)
					}
					return nil
				},
				func() error {
					if grand != ident.None {
						t.detach(c)
					}
					t.createNode(g, kind)
					if grand != ident.None {
						t.setParent(g, grand)
					}
					t.setParent(c, g)
					return nil
				},
			)
			return
		}

		_ = edit.Do(
			func() error { t.destroyNode(g); return nil },
			func() error {
				t.createNode(g, kind)
				if grand != ident.None {
					t.setParent(g, grand)
				}
				return nil
			},
		)
		g = grand
	}
}

// Check verifies the forest invariants.
func (t *Tree) Check() error {
	var errs []error
	for id, p := range t.up {
		if _, ok := t.down[id]; !ok {
			errs = append(errs, fmt.Errorf("node %s has no child set", id))
		}
		if p == ident.None {
			continue
		}
		if _, ok := t.down[p][id]; !ok {
			errs = append(errs, fmt.Errorf("node %s not listed under parent %s", id, p))
		}
		if !t.IsGroup(p) {
			errs = append(errs, fmt.Errorf("node %s has non-group parent %s", id, p))
		}
	}
	for id, children := range t.down {
		for c := range children {
			if t.up[c] != id {
				errs = append(errs, fmt.Errorf("child %s of %s points to %s", c, id, t.up[c]))
			}
		}
		if !t.IsGroup(id) && len(children) > 0 {
			errs = append(errs, fmt.Errorf("leaf %s has children", id))
		}
	}
	for id, kind := range t.kinds {
		if !t.Registered(id) {
			errs = append(errs, fmt.Errorf("group %s is not linked", id))
			continue
		}
		if kind != Selection && len(t.down[id]) < 2 {
			errs = append(errs, fmt.Errorf("group %s has %d children", id, len(t.down[id])))
		}
		if kind == AVSplit && len(t.Leaves(id)) != 2 {
			errs = append(errs, fmt.Errorf("avsplit group %s has %d leaves", id, len(t.Leaves(id))))
		}
	}
	for id := range t.up {
		seen := 0
		for n := id; n != ident.None; n = t.up[n] {
			if seen > len(t.up) {
				errs = append(errs, fmt.Errorf("cycle through %s", id))
				break
			}
			seen++
		}
	}
	return errors.Join(errs...)
}

func (t *Tree) createNode(gid ident.ID, kind Kind) {
	t.up[gid] = ident.None
	t.down[gid] = make(map[ident.ID]struct{})
	t.kinds[gid] = kind
}

// destroyNode unlinks gid from its parent and forgets it.
func (t *Tree) destroyNode(gid ident.ID) {
	t.detach(gid)
	delete(t.up, gid)
	delete(t.down, gid)
	delete(t.kinds, gid)
}

func (t *Tree) setParent(id, parent ident.ID) {
	t.up[id] = parent
	if t.down[parent] == nil {
		t.down[parent] = make(map[ident.ID]struct{})
	}
	t.down[parent][id] = struct{}{}
}

func (t *Tree) detach(id ident.ID) {
	p, ok := t.up[id]
	if !ok || p == ident.None {
		return
	}
	delete(t.down[p], id)
	t.up[id] = ident.None
}

func sortedKeys(set map[ident.ID]struct{}) []ident.ID {
	out := make([]ident.ID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
