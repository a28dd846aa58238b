// Package playback is an in-memory compositing graph.
//
// Graph receives producers, tracks and compositions from the timeline model
// and answers what would be rendered at a given frame. It never decodes
// media; its job is to make the model's placement decisions observable.
package playback

import (
	"slices"
	"sort"
	"sync"

	"github.com/dshills/cutstorm/internal/timeline"
	"github.com/dshills/cutstorm/internal/timeline/ident"
	"github.com/dshills/cutstorm/internal/timeline/item"
	"github.com/dshills/cutstorm/internal/timeline/track"
)

// Track is one graph track.
type Track struct {
	ID   ident.ID
	Kind track.Kind
}

// Layer is what one track contributes at a frame.
type Layer struct {
	Track    ident.ID
	Kind     track.Kind
	Producer timeline.Producer
	// SourceFrame is the frame read from the producer's media, in the
	// clip's warped time base.
	SourceFrame int
}

// Frame is the composited state at one timeline frame.
type Frame struct {
	Position int
	// Layers are ordered from the top of the stack down.
	Layers []Layer
	// Transitions are the compositions active at Position.
	Transitions []timeline.Plant
}

// Graph implements timeline.Compositor.
type Graph struct {
	mu        sync.RWMutex
	tracks    []Track
	producers map[ident.ID]timeline.Producer
	plants    map[ident.ID]timeline.Plant

	displayed int
	redraws   int
	dirty     *DirtySet
}

var _ timeline.Compositor = (*Graph)(nil)

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		producers: make(map[ident.ID]timeline.Producer),
		plants:    make(map[ident.ID]timeline.Plant),
		displayed: -1,
		dirty:     NewDirtySet(0),
	}
}

// AddTrack inserts a track at index; out-of-range indexes append.
func (g *Graph) AddTrack(id ident.ID, kind track.Kind, index int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if index < 0 || index > len(g.tracks) {
		index = len(g.tracks)
	}
	g.tracks = slices.Insert(g.tracks, index, Track{ID: id, Kind: kind})
}

// RemoveTrack removes a track.
func (g *Graph) RemoveTrack(id ident.ID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tracks = slices.DeleteFunc(g.tracks, func(t Track) bool { return t.ID == id })
}

// SetProducer inserts or replaces the producer of a clip.
func (g *Graph) SetProducer(p timeline.Producer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.producers[p.Clip] = p
}

// RemoveProducer removes the producer of a clip.
func (g *Graph) RemoveProducer(clip ident.ID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.producers, clip)
}

// Plant inserts or replaces a composition.
func (g *Graph) Plant(p timeline.Plant) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.plants[p.ID] = p
}

// Unplant removes a composition.
func (g *Graph) Unplant(id ident.ID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.plants, id)
}

// Planted returns all compositions ordered by id.
func (g *Graph) Planted() []timeline.Plant {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]timeline.Plant, 0, len(g.plants))
	for _, p := range g.plants {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Refresh marks [from, to) dirty and counts a redraw when the displayed
// frame lies inside it.
func (g *Graph) Refresh(from, to int) {
	r := NewRange(from, to)
	g.dirty.Mark(r)

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.displayed >= 0 && r.Contains(g.displayed) {
		g.redraws++
	}
}

// SetDisplayed sets the frame shown to the user; negative hides it.
func (g *Graph) SetDisplayed(frame int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.displayed = frame
}

// Redraws returns how often the displayed frame was invalidated.
func (g *Graph) Redraws() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.redraws
}

// Dirty returns the set of invalidated ranges.
func (g *Graph) Dirty() *DirtySet {
	return g.dirty
}

// Tracks returns the tracks from the bottom of the stack to the top.
func (g *Graph) Tracks() []Track {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.tracks)
}

// Producers returns every producer ordered by clip id.
func (g *Graph) Producers() []timeline.Producer {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]timeline.Producer, 0, len(g.producers))
	for _, p := range g.producers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Clip < out[j].Clip })
	return out
}

// Producer returns the producer of a clip.
func (g *Graph) Producer(clip ident.ID) (timeline.Producer, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	p, ok := g.producers[clip]
	return p, ok
}

// At returns the composited state at frame.
func (g *Graph) At(frame int) Frame {
	g.mu.RLock()
	defer g.mu.RUnlock()

	f := Frame{Position: frame}
	for i := len(g.tracks) - 1; i >= 0; i-- {
		t := g.tracks[i]
		for _, p := range g.producers {
			if p.Track != t.ID || p.State == item.Disabled {
				continue
			}
			if frame < p.Position || frame >= p.Position+p.Out-p.In {
				continue
			}
			f.Layers = append(f.Layers, Layer{
				Track:       t.ID,
				Kind:        t.Kind,
				Producer:    p,
				SourceFrame: p.In + frame - p.Position,
			})
			break
		}
	}
	for _, p := range g.plants {
		if frame >= p.Start && frame < p.End {
			f.Transitions = append(f.Transitions, p)
		}
	}
	sort.Slice(f.Transitions, func(i, j int) bool { return f.Transitions[i].ID < f.Transitions[j].ID })
	return f
}
