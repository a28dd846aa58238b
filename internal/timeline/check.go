package timeline

import (
	"errors"
	"fmt"
	"maps"

	"github.com/dshills/cutstorm/internal/timeline/group"
	"github.com/dshills/cutstorm/internal/timeline/ident"
	"github.com/dshills/cutstorm/internal/timeline/track"
)

// CheckConsistency verifies every model invariant from scratch: track
// ordering and overlap, back references between tracks and items, the group
// forest, the snap registry against a recomputed multiset, composition
// pairs, and the planted compositions against the compositor. A non-nil
// result means the model is corrupt; it is a diagnostic for tests, not part
// of any request.
func (m *Model) CheckConsistency() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if len(m.order) != len(m.tracks) {
		fail("track order lists %d tracks, registry has %d", len(m.order), len(m.tracks))
	}
	expected := make(map[int]int)
	for _, tid := range m.order {
		t, ok := m.tracks[tid]
		if !ok {
			fail("ordered track %s missing from registry", tid)
			continue
		}
		if err := t.Check(); err != nil {
			errs = append(errs, err)
		}
		for _, span := range t.Clips() {
			c, ok := m.clips[span.ID]
			if !ok {
				fail("track %s holds unknown clip %s", tid, span.ID)
				continue
			}
			if c.Track() != tid {
				fail("clip %s on track %s points to track %s", c.ID(), tid, c.Track())
			}
			if c.Position() != span.Start || c.End() != span.End {
				fail("clip %s is [%d, %d) but track %s has [%d, %d)",
					c.ID(), c.Position(), c.End(), tid, span.Start, span.End)
			}
			if !stateFits(c.State(), c.ActiveState(), t.Kind()) {
				fail("clip %s (%s) on %s track %s", c.ID(), c.State(), t.Kind(), tid)
			}
			expected[span.Start]++
			expected[span.End]++
		}
		for _, span := range t.Compositions() {
			c, ok := m.comps[span.ID]
			if !ok {
				fail("track %s holds unknown composition %s", tid, span.ID)
				continue
			}
			if c.Track() != tid {
				fail("composition %s on track %s points to track %s", c.ID(), tid, c.Track())
			}
			if c.Position() != span.Start || c.End() != span.End {
				fail("composition %s interval differs from track %s", c.ID(), tid)
			}
			if want := m.resolvedATrack(c); span.ATrack != want {
				fail("composition %s blends against %s but track %s records %s", c.ID(), want, tid, span.ATrack)
			}
			if t.Kind() != track.Video {
				fail("composition %s on %s track %s", c.ID(), t.Kind(), tid)
			}
			expected[span.Start]++
			expected[span.End]++
		}
	}

	for id, c := range m.clips {
		if c.Attached() {
			t, ok := m.tracks[c.Track()]
			if !ok || !t.HasClip(id) {
				fail("clip %s claims track %s which does not hold it", id, c.Track())
			}
		}
		if c.Out() <= c.In() {
			fail("clip %s has empty range [%d, %d)", id, c.In(), c.Out())
		}
		if !m.groups.Registered(id) {
			fail("clip %s is not in the group forest", id)
		}
	}
	for id, c := range m.comps {
		if c.Attached() {
			t, ok := m.tracks[c.Track()]
			if !ok || !t.HasComposition(id) {
				fail("composition %s claims track %s which does not hold it", id, c.Track())
			}
		}
		if c.Forced() {
			if c.ATrack() == c.Track() {
				fail("composition %s blends against its own track", id)
			}
			a, ok := m.tracks[c.ATrack()]
			if !ok {
				fail("composition %s forced onto missing track %s", id, c.ATrack())
			} else if a.Kind() != track.Video {
				fail("composition %s forced onto %s track %s", id, a.Kind(), c.ATrack())
			}
		}
		if !m.groups.Registered(id) {
			fail("composition %s is not in the group forest", id)
		}
	}

	if err := m.groups.Check(); err != nil {
		errs = append(errs, err)
	}
	for id := range m.groups.Parents() {
		if m.groups.IsGroup(id) {
			continue
		}
		_, isClip := m.clips[id]
		_, isComp := m.comps[id]
		if !isClip && !isComp {
			fail("group forest holds unknown item %s", id)
		}
	}
	for _, gid := range m.groups.Groups() {
		kind, _ := m.groups.Kind(gid)
		if kind == group.Selection && gid != m.selection {
			fail("stale selection group %s", gid)
		}
		if kind == group.AVSplit {
			leaves := m.groups.Leaves(gid)
			if len(leaves) == 2 {
				k0, ok0 := m.itemKind(leaves[0])
				k1, ok1 := m.itemKind(leaves[1])
				if ok0 && ok1 && k0 == k1 {
					fail("AVSplit group %s links two %s items", gid, k0)
				}
			}
		}
	}

	if live := m.snaps.Multiset(); !maps.Equal(live, expected) {
		fail("snap registry %v differs from recomputed %v", live, expected)
	}

	if m.compositor != nil {
		planted := make(map[ident.ID]Plant)
		for _, p := range m.compositor.Planted() {
			planted[p.ID] = p
		}
		for id, c := range m.comps {
			p, ok := planted[id]
			if !c.Attached() {
				if ok {
					fail("detached composition %s is still planted", id)
					delete(planted, id)
				}
				continue
			}
			if !ok {
				fail("composition %s is not planted", id)
				continue
			}
			delete(planted, id)
			if p.BTrack != c.Track() || p.Start != c.Position() || p.End != c.End() {
				fail("planted composition %s is stale", id)
			}
			if p.ATrack != m.resolvedATrack(c) {
				fail("planted composition %s blends against %s, expected %s", id, p.ATrack, m.resolvedATrack(c))
			}
		}
		for id := range planted {
			fail("compositor holds unknown composition %s", id)
		}
	}

	return errors.Join(errs...)
}
