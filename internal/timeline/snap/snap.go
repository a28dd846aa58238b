// Package snap keeps the set of frame positions that drag and resize
// gestures are attracted to.
//
// Every clip or composition boundary contributes one reference to the point
// at its position. A point is visible while its reference count is positive.
// The registry is derived data owned by the timeline model; it is not safe
// for concurrent use on its own and relies on the model lock.
package snap

import (
	"maps"
	"slices"
	"sort"
)

// Registry is a reference-counted multiset of snap positions.
type Registry struct {
	refs    map[int]int
	sorted  []int
	ignored []int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{refs: make(map[int]int)}
}

// AddPoint adds one reference to pos.
func (r *Registry) AddPoint(pos int) {
	n := r.refs[pos]
	if n == 0 {
		i := sort.SearchInts(r.sorted, pos)
		r.sorted = slices.Insert(r.sorted, i, pos)
	}
	r.refs[pos] = n + 1
}

// RemovePoint drops one reference to pos. Removing an absent point is a no-op.
func (r *Registry) RemovePoint(pos int) {
	n, ok := r.refs[pos]
	if !ok {
		return
	}
	if n > 1 {
		r.refs[pos] = n - 1
		return
	}
	delete(r.refs, pos)
	i := sort.SearchInts(r.sorted, pos)
	if i < len(r.sorted) && r.sorted[i] == pos {
		r.sorted = slices.Delete(r.sorted, i, i+1)
	}
}

// Points returns the visible points in ascending order.
func (r *Registry) Points() []int {
	return slices.Clone(r.sorted)
}

// Multiset returns a copy of the position to reference count map.
func (r *Registry) Multiset() map[int]int {
	return maps.Clone(r.refs)
}

// Closest returns the visible point nearest to pos. Ties go to the earlier point.
func (r *Registry) Closest(pos int) (int, bool) {
	if len(r.sorted) == 0 {
		return 0, false
	}
	i := sort.SearchInts(r.sorted, pos)
	if i == len(r.sorted) {
		return r.sorted[i-1], true
	}
	if r.sorted[i] == pos || i == 0 {
		return r.sorted[i], true
	}
	before, after := r.sorted[i-1], r.sorted[i]
	if pos-before <= after-pos {
		return before, true
	}
	return after, true
}

// Next returns the first visible point strictly after pos.
func (r *Registry) Next(pos int) (int, bool) {
	i := sort.SearchInts(r.sorted, pos+1)
	if i == len(r.sorted) {
		return 0, false
	}
	return r.sorted[i], true
}

// Previous returns the last visible point strictly before pos.
func (r *Registry) Previous(pos int) (int, bool) {
	i := sort.SearchInts(r.sorted, pos)
	if i == 0 {
		return 0, false
	}
	return r.sorted[i-1], true
}

// Ignore temporarily drops one reference from each of points. Points that are
// not present are skipped. The references come back with Unignore.
func (r *Registry) Ignore(points []int) {
	for _, p := range points {
		if r.refs[p] == 0 {
			continue
		}
		r.RemovePoint(p)
		r.ignored = append(r.ignored, p)
	}
}

// Unignore restores every reference dropped by Ignore.
func (r *Registry) Unignore() {
	for _, p := range r.ignored {
		r.AddPoint(p)
	}
	r.ignored = r.ignored[:0]
}

// ProposeSize snaps the moving edge of the interval [in, out) while the other
// edge stays put. When right is true the end moves, otherwise the start.
// The interval's own boundaries are ignored. It returns the snapped size and
// true, or size and false when no point lies within tolerance.
func (r *Registry) ProposeSize(in, out, size int, right bool, tolerance int) (int, bool) {
	r.Ignore([]int{in, out})
	defer r.Unignore()

	if right {
		target := in + size
		if p, ok := r.Closest(target); ok && abs(p-target) <= tolerance && p > in {
			return p - in, true
		}
		return size, false
	}

	target := out - size
	if p, ok := r.Closest(target); ok && abs(p-target) <= tolerance && p < out {
		return out - p, true
	}
	return size, false
}

// BestSnapPos proposes a start position for an interval of the given length
// placed at pos. Both the start and the end of the interval are tried
// against the visible points, minus ignored, plus a synthetic point at cursor
// (pass a negative cursor to omit it). The closer candidate within tolerance
// wins. It returns false when nothing is close enough.
func (r *Registry) BestSnapPos(pos, length int, ignored []int, cursor, tolerance int) (int, bool) {
	r.Ignore(ignored)
	defer r.Unignore()
	if cursor >= 0 {
		r.AddPoint(cursor)
		defer r.RemovePoint(cursor)
	}

	best, bestDist := -1, tolerance+1
	if p, ok := r.Closest(pos); ok {
		if d := abs(p - pos); d < bestDist {
			best, bestDist = p, d
		}
	}
	end := pos + length
	if p, ok := r.Closest(end); ok && p-length >= 0 {
		if d := abs(p - end); d < bestDist {
			best = p - length
		}
	}
	if best < 0 {
		return pos, false
	}
	return best, true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
