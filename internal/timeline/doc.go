// Package timeline implements the non-linear editing timeline model.
//
// A Model owns every track, clip, and composition of a timeline, the group
// forest over those items, and the snap registry derived from their
// boundaries. Items live in an arena addressed by ident.ID; tracks, groups,
// and items refer to each other only by id.
//
// # Requests
//
// Every mutating request follows the same shape: validate, perform the
// mutation on the affected tracks and items while recording a reversible
// history.Edit, roll the edit back if any step fails, and otherwise push
// the edit onto the external undo stack and notify observers:
//
//	m := timeline.New(timeline.WithUndoStack(history.NewStack(0)))
//	v1, _ := m.RequestTrackInsertion(-1, track.Video, "V1", true)
//	c1, _ := m.RequestClipInsertion(timeline.ClipSpec{BinRef: "intro"}, v1, 0, timeline.Defaults)
//	err := m.RequestClipMove(c1, v1, 200, timeline.Defaults)
//	_ = m.Undo()
//
// Compound requests such as group moves or track deletions are all or
// nothing: on failure the model is left exactly as it was before the call.
//
// # Thread Safety
//
// A Model is safe for concurrent use. Read queries share a read lock;
// each request holds the write lock for its whole multi-step operation, so
// no reader observes an intermediate state. Notifications are delivered
// after the lock is released.
package timeline
