package snap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newRegistry(points ...int) *Registry {
	r := NewRegistry()
	for _, p := range points {
		r.AddPoint(p)
	}
	return r
}

func TestRefcounting(t *testing.T) {
	r := newRegistry(10, 10, 20)
	require.Equal(t, []int{10, 20}, r.Points())
	require.Equal(t, map[int]int{10: 2, 20: 1}, r.Multiset())

	r.RemovePoint(10)
	require.Equal(t, []int{10, 20}, r.Points())
	r.RemovePoint(10)
	require.Equal(t, []int{20}, r.Points())
	require.NotContains(t, r.Multiset(), 10)

	r.RemovePoint(99)
	require.Equal(t, []int{20}, r.Points())
}

func TestClosestNextPrevious(t *testing.T) {
	r := newRegistry(0, 100, 150)

	tests := []struct {
		pos  int
		want int
	}{
		{-5, 0},
		{40, 0},
		{50, 0},
		{60, 100},
		{100, 100},
		{130, 150},
		{1000, 150},
	}
	for _, tt := range tests {
		got, ok := r.Closest(tt.pos)
		require.True(t, ok)
		require.Equal(t, tt.want, got, "closest to %d", tt.pos)
	}

	next, ok := r.Next(100)
	require.True(t, ok)
	require.Equal(t, 150, next)
	_, ok = r.Next(150)
	require.False(t, ok)

	prev, ok := r.Previous(100)
	require.True(t, ok)
	require.Equal(t, 0, prev)
	_, ok = r.Previous(0)
	require.False(t, ok)

	_, ok = NewRegistry().Closest(3)
	require.False(t, ok)
}

func TestIgnoreUnignore(t *testing.T) {
	r := newRegistry(0, 100, 100, 150)
	r.Ignore([]int{100, 150, 7})
	require.Equal(t, []int{0, 100}, r.Points())
	require.Equal(t, 1, r.Multiset()[100])

	r.Unignore()
	require.Equal(t, []int{0, 100, 150}, r.Points())
	require.Equal(t, 2, r.Multiset()[100])
}

func TestProposeSize(t *testing.T) {
	// Item occupies [100, 150); neighbours end at 90 and start at 200.
	r := newRegistry(40, 90, 100, 150, 200, 260)

	size, ok := r.ProposeSize(100, 150, 96, true, 5)
	require.True(t, ok)
	require.Equal(t, 100, size)

	size, ok = r.ProposeSize(100, 150, 70, true, 5)
	require.False(t, ok)
	require.Equal(t, 70, size)

	// Growing the left edge to 58 snaps to 90 only within tolerance.
	size, ok = r.ProposeSize(100, 150, 58, false, 3)
	require.True(t, ok)
	require.Equal(t, 60, size)

	// The item's own boundaries never attract.
	require.Equal(t, []int{40, 90, 100, 150, 200, 260}, r.Points())
	size, ok = r.ProposeSize(100, 150, 51, true, 2)
	require.False(t, ok)
	require.Equal(t, 51, size)
}

func TestBestSnapPos(t *testing.T) {
	r := newRegistry(0, 100, 300, 350)

	// Moving a 50 frame item from 300: its own points are ignored.
	pos, ok := r.BestSnapPos(104, 50, []int{300, 350}, -1, 10)
	require.True(t, ok)
	require.Equal(t, 100, pos)

	// Start and end are equally close; the start wins.
	pos, ok = r.BestSnapPos(98, 50, []int{300, 350}, 150, 5)
	require.True(t, ok)
	require.Equal(t, 100, pos)

	pos, ok = r.BestSnapPos(210, 20, []int{300, 350}, 233, 5)
	require.True(t, ok)
	require.Equal(t, 213, pos)

	pos, ok = r.BestSnapPos(200, 20, nil, -1, 5)
	require.False(t, ok)
	require.Equal(t, 200, pos)

	// The cursor point is synthetic and does not survive the call.
	require.Equal(t, []int{0, 100, 300, 350}, r.Points())
}
