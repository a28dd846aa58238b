package playback

import (
	"sort"
	"sync"
)

// Range is a half-open frame interval [From, To).
type Range struct {
	From int
	To   int
}

// NewRange creates a range, swapping the bounds if needed.
func NewRange(from, to int) Range {
	if to < from {
		from, to = to, from
	}
	return Range{From: from, To: to}
}

// IsEmpty returns true if the range covers no frame.
func (r Range) IsEmpty() bool {
	return r.From >= r.To
}

// Contains returns true if frame lies inside the range.
func (r Range) Contains(frame int) bool {
	return frame >= r.From && frame < r.To
}

// Merge combines two overlapping or touching ranges.
func (r Range) Merge(other Range) (Range, bool) {
	if r.To < other.From || other.To < r.From {
		return r, false
	}
	return Range{From: min(r.From, other.From), To: max(r.To, other.To)}, true
}

// DirtySet accumulates frame ranges that must be re-rendered.
// Overlapping and touching ranges are coalesced.
type DirtySet struct {
	mu        sync.Mutex
	ranges    []Range
	maxRanges int
}

// NewDirtySet creates an empty set that collapses to one covering range
// once it holds more than maxRanges pieces. Non-positive means 32.
func NewDirtySet(maxRanges int) *DirtySet {
	if maxRanges <= 0 {
		maxRanges = 32
	}
	return &DirtySet{maxRanges: maxRanges}
}

// Mark adds a range.
func (d *DirtySet) Mark(r Range) {
	if r.IsEmpty() {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.ranges = append(d.ranges, r)
	d.coalesce()
	if len(d.ranges) > d.maxRanges {
		d.ranges = []Range{{From: d.ranges[0].From, To: d.ranges[len(d.ranges)-1].To}}
	}
}

// coalesce sorts the ranges and merges neighbours. Caller holds the lock.
func (d *DirtySet) coalesce() {
	sort.Slice(d.ranges, func(i, j int) bool {
		return d.ranges[i].From < d.ranges[j].From
	})
	out := d.ranges[:0]
	for _, r := range d.ranges {
		if n := len(out); n > 0 {
			if merged, ok := out[n-1].Merge(r); ok {
				out[n-1] = merged
				continue
			}
		}
		out = append(out, r)
	}
	d.ranges = out
}

// IsDirty returns true if any range is marked.
func (d *DirtySet) IsDirty() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.ranges) > 0
}

// Contains reports whether frame needs re-rendering.
func (d *DirtySet) Contains(frame int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, r := range d.ranges {
		if r.Contains(frame) {
			return true
		}
	}
	return false
}

// Ranges returns a copy of the marked ranges in ascending order.
func (d *DirtySet) Ranges() []Range {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Range, len(d.ranges))
	copy(out, d.ranges)
	return out
}

// Drain returns the marked ranges and clears the set.
func (d *DirtySet) Drain() []Range {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := d.ranges
	d.ranges = nil
	return out
}
