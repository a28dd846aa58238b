package timeline

import (
	"maps"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dshills/cutstorm/internal/timeline/history"
	"github.com/dshills/cutstorm/internal/timeline/ident"
	"github.com/dshills/cutstorm/internal/timeline/item"
	"github.com/dshills/cutstorm/internal/timeline/notify"
	"github.com/dshills/cutstorm/internal/timeline/track"
)

type media struct {
	duration     int
	audio, video bool
	ready        bool
}

type fakeCatalog map[string]media

func (c fakeCatalog) Ready(ref string) bool {
	m, ok := c[ref]
	return ok && m.ready
}

func (c fakeCatalog) SupportsState(ref string, s item.State) bool {
	m, ok := c[ref]
	if !ok {
		return false
	}
	switch s {
	case item.AudioAndVideo:
		return m.audio && m.video
	case item.VideoOnly:
		return m.video
	case item.AudioOnly:
		return m.audio
	}
	return true
}

func (c fakeCatalog) Duration(ref string) (int, bool) {
	m, ok := c[ref]
	return m.duration, ok
}

type fakeGraph struct {
	mu        sync.Mutex
	tracks    []ident.ID
	producers map[ident.ID]Producer
	plants    map[ident.ID]Plant
	refreshes int
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{producers: map[ident.ID]Producer{}, plants: map[ident.ID]Plant{}}
}

func (g *fakeGraph) AddTrack(id ident.ID, _ track.Kind, index int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tracks = slices.Insert(g.tracks, index, id)
}

func (g *fakeGraph) RemoveTrack(id ident.ID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if i := slices.Index(g.tracks, id); i >= 0 {
		g.tracks = slices.Delete(g.tracks, i, i+1)
	}
}

func (g *fakeGraph) SetProducer(p Producer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.producers[p.Clip] = p
}

func (g *fakeGraph) RemoveProducer(clip ident.ID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.producers, clip)
}

func (g *fakeGraph) Plant(p Plant) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.plants[p.ID] = p
}

func (g *fakeGraph) Unplant(id ident.ID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.plants, id)
}

func (g *fakeGraph) Planted() []Plant {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Collect(maps.Values(g.plants))
}

func (g *fakeGraph) Refresh(int, int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refreshes++
}

var testCatalog = fakeCatalog{
	"long":    {duration: 1000, audio: true, video: true, ready: true},
	"short":   {duration: 60, audio: true, video: true, ready: true},
	"voice":   {duration: 500, audio: true, ready: true},
	"pending": {duration: 100, audio: true, video: true},
	"color":   {duration: 0, video: true, ready: true},
}

// fixture is a model with tracks A2, A1, V1, V2 from bottom to top.
type fixture struct {
	m              *Model
	graph          *fakeGraph
	stack          *history.Stack
	a2, a1, v1, v2 ident.ID
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{graph: newFakeGraph(), stack: history.NewStack(0)}
	opts = append([]Option{
		WithCatalog(testCatalog),
		WithCompositor(f.graph),
		WithUndoStack(f.stack),
		WithSnapTolerance(0),
	}, opts...)
	f.m = New(opts...)

	// The base tracks stay out of the undo history.
	const setup = UpdateView | Invalidate
	var err error
	f.a2, err = f.m.RequestTrackInsertion(-1, track.Audio, "A2", setup)
	require.NoError(t, err)
	f.a1, err = f.m.RequestTrackInsertion(-1, track.Audio, "A1", setup)
	require.NoError(t, err)
	f.v1, err = f.m.RequestTrackInsertion(-1, track.Video, "V1", setup)
	require.NoError(t, err)
	f.v2, err = f.m.RequestTrackInsertion(-1, track.Video, "V2", setup)
	require.NoError(t, err)
	return f
}

// clip inserts a video-only clip of the "long" media with the given length.
func (f *fixture) clip(t *testing.T, trackID ident.ID, pos, length int) ident.ID {
	t.Helper()
	state := item.VideoOnly
	if k, _ := f.m.TrackKind(trackID); k == track.Audio {
		state = item.AudioOnly
	}
	id, err := f.m.RequestClipInsertion(ClipSpec{BinRef: "long", Out: length, State: state}, trackID, pos, Defaults)
	require.NoError(t, err)
	return id
}

func (f *fixture) position(t *testing.T, id ident.ID) int {
	t.Helper()
	pos, ok := f.m.ItemPosition(id)
	require.True(t, ok, "item %s", id)
	return pos
}

func (f *fixture) playtime(t *testing.T, id ident.ID) int {
	t.Helper()
	n, ok := f.m.ItemPlaytime(id)
	require.True(t, ok, "item %s", id)
	return n
}

func (f *fixture) consistent(t *testing.T) {
	t.Helper()
	require.NoError(t, f.m.CheckConsistency())
}

// recorder collects delivered notifications.
type recorder struct {
	mu      sync.Mutex
	changes []notify.Change
}

func (r *recorder) observe(c notify.Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
}

func (r *recorder) roles(id ident.ID) notify.Role {
	r.mu.Lock()
	defer r.mu.Unlock()
	var roles notify.Role
	for _, c := range r.changes {
		if c.Item == id {
			roles |= c.Roles
		}
	}
	return roles
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.changes)
}
