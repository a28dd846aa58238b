package timeline

import (
	"slices"

	"github.com/dshills/cutstorm/internal/timeline/ident"
	"github.com/dshills/cutstorm/internal/timeline/item"
)

// Snapshot is a deep copy of the observable model state. Two snapshots are
// equal exactly when the timelines are indistinguishable.
type Snapshot struct {
	Tracks       []TrackSnapshot       `json:"tracks"`
	Clips        []ClipSnapshot        `json:"clips"`
	Compositions []CompositionSnapshot `json:"compositions"`
	Groups       []GroupSnapshot       `json:"groups"`
	Snaps        map[int]int           `json:"snaps"`
}

// TrackSnapshot describes one track.
type TrackSnapshot struct {
	ID           ident.ID   `json:"id"`
	Kind         string     `json:"kind"`
	Name         string     `json:"name"`
	Locked       bool       `json:"locked"`
	Clips        []ident.ID `json:"clips"`
	Compositions []ident.ID `json:"compositions"`
}

// ClipSnapshot describes one clip.
type ClipSnapshot struct {
	ID        ident.ID       `json:"id"`
	BinRef    string         `json:"binRef"`
	Track     ident.ID       `json:"track"`
	Position  int            `json:"position"`
	In        int            `json:"in"`
	Out       int            `json:"out"`
	Speed     float64        `json:"speed"`
	State     string         `json:"state"`
	Natural   int            `json:"natural"`
	Keyframes item.Keyframes `json:"keyframes,omitempty"`
}

// CompositionSnapshot describes one composition.
type CompositionSnapshot struct {
	ID        ident.ID       `json:"id"`
	Service   string         `json:"service"`
	Track     ident.ID       `json:"track"`
	ATrack    ident.ID       `json:"aTrack"`
	Forced    bool           `json:"forced"`
	Position  int            `json:"position"`
	Duration  int            `json:"duration"`
	Keyframes item.Keyframes `json:"keyframes,omitempty"`
}

// GroupSnapshot describes one group node.
type GroupSnapshot struct {
	ID       ident.ID   `json:"id"`
	Kind     string     `json:"kind"`
	Parent   ident.ID   `json:"parent"`
	Children []ident.ID `json:"children"`
}

// Snapshot captures the whole model.
func (m *Model) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Snapshot{Snaps: m.snaps.Multiset()}
	for _, id := range m.order {
		t := m.tracks[id]
		s.Tracks = append(s.Tracks, TrackSnapshot{
			ID:           id,
			Kind:         t.Kind().String(),
			Name:         t.Name(),
			Locked:       t.Locked(),
			Clips:        t.ClipIDs(),
			Compositions: t.CompositionIDs(),
		})
	}
	for _, id := range sortedIDs(m.clips) {
		s.Clips = append(s.Clips, snapshotClip(m.clips[id]))
	}
	for _, id := range sortedIDs(m.comps) {
		s.Compositions = append(s.Compositions, m.snapshotComposition(m.comps[id]))
	}
	for _, gid := range m.groups.Groups() {
		kind, _ := m.groups.Kind(gid)
		s.Groups = append(s.Groups, GroupSnapshot{
			ID:       gid,
			Kind:     kind.String(),
			Parent:   m.groups.Parent(gid),
			Children: m.groups.Children(gid),
		})
	}
	return s
}

func snapshotClip(c *item.Clip) ClipSnapshot {
	return ClipSnapshot{
		ID:        c.ID(),
		BinRef:    c.BinRef(),
		Track:     c.Track(),
		Position:  c.Position(),
		In:        c.In(),
		Out:       c.Out(),
		Speed:     c.Speed(),
		State:     c.State().String(),
		Natural:   c.Natural(),
		Keyframes: c.Keyframes(),
	}
}

func (m *Model) snapshotComposition(c *item.Composition) CompositionSnapshot {
	a := ident.None
	if c.Attached() {
		a = m.resolvedATrack(c)
	}
	return CompositionSnapshot{
		ID:        c.ID(),
		Service:   c.Service(),
		Track:     c.Track(),
		ATrack:    a,
		Forced:    c.Forced(),
		Position:  c.Position(),
		Duration:  c.Playtime(),
		Keyframes: c.Keyframes(),
	}
}

func sortedIDs[V any](m map[ident.ID]V) []ident.ID {
	ids := make([]ident.ID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
