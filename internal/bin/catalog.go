// Package bin holds the media sources clips are created from.
//
// A Catalog answers the three questions the timeline asks when it creates or
// reloads a clip: is the source usable, does it carry the requested streams,
// and how long is it. Sources are registered by reference name.
package bin

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/dshills/cutstorm/internal/config"
	"github.com/dshills/cutstorm/internal/timeline/item"
)

// Errors returned by catalog operations.
var (
	ErrNotFound  = errors.New("bin: no such source")
	ErrDuplicate = errors.New("bin: source already exists")
	ErrInvalid   = errors.New("bin: invalid source")
)

// Source is one media entry.
type Source struct {
	Ref string
	// Duration is the natural length in frames; zero or less means endless.
	Duration int
	Audio    bool
	Video    bool
	Ready    bool
}

func (s Source) validate() error {
	if s.Ref == "" {
		return fmt.Errorf("%w: empty ref", ErrInvalid)
	}
	if !s.Audio && !s.Video {
		return fmt.Errorf("%w: %s has no streams", ErrInvalid, s.Ref)
	}
	return nil
}

// Catalog is a thread-safe set of sources.
type Catalog struct {
	mu      sync.RWMutex
	sources map[string]Source

	onChange []func(s Source, removed bool)
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{sources: make(map[string]Source)}
}

// FromConfig builds a catalog from configured bin entries.
func FromConfig(entries []config.BinEntry) (*Catalog, error) {
	c := NewCatalog()
	for _, e := range entries {
		err := c.Add(Source{
			Ref:      e.Ref,
			Duration: e.Duration,
			Audio:    e.Audio,
			Video:    e.Video,
			Ready:    e.IsReady(),
		})
		if err != nil {
			return nil, err
		}
	}
	return c, nil
}

// OnChange registers a handler called after a source is added, updated or
// removed.
func (c *Catalog) OnChange(fn func(s Source, removed bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = append(c.onChange, fn)
}

func (c *Catalog) notify(s Source, removed bool) {
	c.mu.RLock()
	handlers := make([]func(Source, bool), len(c.onChange))
	copy(handlers, c.onChange)
	c.mu.RUnlock()

	for _, h := range handlers {
		h(s, removed)
	}
}

// Add registers a new source.
func (c *Catalog) Add(s Source) error {
	if err := s.validate(); err != nil {
		return err
	}

	c.mu.Lock()
	if _, ok := c.sources[s.Ref]; ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicate, s.Ref)
	}
	c.sources[s.Ref] = s
	c.mu.Unlock()

	c.notify(s, false)
	return nil
}

// Update replaces an existing source, e.g. after the media was re-rendered
// with a different length.
func (c *Catalog) Update(s Source) error {
	if err := s.validate(); err != nil {
		return err
	}

	c.mu.Lock()
	if _, ok := c.sources[s.Ref]; !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, s.Ref)
	}
	c.sources[s.Ref] = s
	c.mu.Unlock()

	c.notify(s, false)
	return nil
}

// Remove deletes a source. Clips already on the timeline keep playing their
// current range; only creation and reload consult the catalog.
func (c *Catalog) Remove(ref string) error {
	c.mu.Lock()
	s, ok := c.sources[ref]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	delete(c.sources, ref)
	c.mu.Unlock()

	c.notify(s, true)
	return nil
}

// SetReady marks a source usable or not.
func (c *Catalog) SetReady(ref string, ready bool) error {
	c.mu.Lock()
	s, ok := c.sources[ref]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	s.Ready = ready
	c.sources[ref] = s
	c.mu.Unlock()

	c.notify(s, false)
	return nil
}

// Get returns the source registered under ref.
func (c *Catalog) Get(ref string) (Source, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.sources[ref]
	return s, ok
}

// Refs returns all references in sorted order.
func (c *Catalog) Refs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	refs := make([]string, 0, len(c.sources))
	for ref := range c.sources {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}

// Len returns the number of sources.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sources)
}

// Ready reports whether ref exists and is usable.
func (c *Catalog) Ready(ref string) bool {
	s, ok := c.Get(ref)
	return ok && s.Ready
}

// SupportsState reports whether the source provides the streams state plays.
// Disabled is supported by every source.
func (c *Catalog) SupportsState(ref string, state item.State) bool {
	s, ok := c.Get(ref)
	if !ok {
		return false
	}
	switch state {
	case item.AudioAndVideo:
		return s.Audio && s.Video
	case item.VideoOnly:
		return s.Video
	case item.AudioOnly:
		return s.Audio
	case item.Disabled:
		return true
	}
	return false
}

// Duration returns the natural length of ref.
func (c *Catalog) Duration(ref string) (int, bool) {
	s, ok := c.Get(ref)
	if !ok {
		return 0, false
	}
	return s.Duration, true
}
