// Package item defines the positioned entities of a timeline: clips, which
// reference a segment of bin media through an in/out crop range, and
// compositions, which blend one track over another for an interval.
//
// Items carry their own placement (track and position) but never move
// themselves; the timeline model calls the setters only after a track has
// accepted the placement. Resizes and timewarps are expressed through a
// Placement callback so that the holder of the item can veto the new
// interval, and they record their inverse in a *history.Edit.
package item
