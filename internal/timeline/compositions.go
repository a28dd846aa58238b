package timeline

import (
	"fmt"

	"github.com/dshills/cutstorm/internal/timeline/history"
	"github.com/dshills/cutstorm/internal/timeline/ident"
	"github.com/dshills/cutstorm/internal/timeline/item"
)

// RequestCompositionInsertion creates a composition of service on the video
// track trackID. aTrack forces the video track it blends against; ident.None
// selects the nearest lower video track, re-resolved whenever tracks change.
// Two compositions blending the same pair of tracks never overlap.
func (m *Model) RequestCompositionInsertion(service string, trackID ident.ID, position, length int, aTrack ident.ID, flags Flags) (ident.ID, error) {
	id := ident.None
	err := m.mutate("insert composition", "", flags, func(edit *history.Edit) error {
		if service == "" {
			return fmt.Errorf("%w: empty composition service", ErrInvalidArgument)
		}
		if _, err := m.writableTrack(trackID); err != nil {
			return err
		}
		if err := m.checkCompositionPair(trackID, aTrack); err != nil {
			return err
		}
		c, err := item.NewComposition(m.alloc.Next(), service, length)
		if err != nil {
			return err
		}
		c.SetATrack(aTrack)

		local := history.NewEdit()
		if err := m.doRegisterComposition(c, local); err != nil {
			return err
		}
		if err := m.doAttachComposition(c, trackID, position, local); err != nil {
			if rerr := local.Revert(); rerr != nil {
				m.logger.Warn("composition insertion rollback failed", "composition", c.ID(), "error", rerr)
			}
			return err
		}
		edit.Merge(local)
		id = c.ID()
		return nil
	})
	if err != nil {
		return ident.None, err
	}
	return id, nil
}

// RequestCompositionATrack forces the a-track of a composition, or returns
// it to automatic selection with ident.None.
func (m *Model) RequestCompositionATrack(compID, aTrack ident.ID, flags Flags) error {
	return m.mutate("set composition a-track", "", flags, func(edit *history.Edit) error {
		c, ok := m.comps[compID]
		if !ok {
			return notFound("composition", compID)
		}
		if c.ATrack() == aTrack {
			return nil
		}
		if c.Attached() {
			if _, err := m.writableTrack(c.Track()); err != nil {
				return err
			}
			if err := m.checkCompositionPair(c.Track(), aTrack); err != nil {
				return err
			}
		} else if aTrack != ident.None {
			if _, err := m.trackFor(aTrack); err != nil {
				return err
			}
		}
		return m.doSetATrack(c, aTrack, edit)
	})
}

// ResolvedATrack returns the track a composition currently blends against,
// or ident.None for the background.
func (m *Model) ResolvedATrack(compID ident.ID) ident.ID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.comps[compID]
	if !ok || !c.Attached() {
		return ident.None
	}
	return m.resolvedATrack(c)
}
