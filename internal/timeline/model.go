package timeline

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/dshills/cutstorm/internal/timeline/group"
	"github.com/dshills/cutstorm/internal/timeline/history"
	"github.com/dshills/cutstorm/internal/timeline/ident"
	"github.com/dshills/cutstorm/internal/timeline/item"
	"github.com/dshills/cutstorm/internal/timeline/notify"
	"github.com/dshills/cutstorm/internal/timeline/snap"
	"github.com/dshills/cutstorm/internal/timeline/track"
)

// Flags tune how a request is carried out.
type Flags uint8

const (
	// UpdateView emits change notifications.
	UpdateView Flags = 1 << iota
	// LogUndo pushes the request onto the undo stack.
	LogUndo
	// Invalidate asks the compositor to refresh the affected range.
	Invalidate

	// Defaults is what interactive requests use.
	Defaults = UpdateView | LogUndo | Invalidate
)

// Has reports whether every flag in f is set.
func (fl Flags) Has(f Flags) bool {
	return fl&f == f
}

// Model is the timeline: tracks, items, groups, and snap points.
type Model struct {
	mu sync.RWMutex

	alloc  *ident.Allocator
	tracks map[ident.ID]*track.Track
	// order lists track ids from the bottom of the stack to the top.
	order  []ident.ID
	clips  map[ident.ID]*item.Clip
	comps  map[ident.ID]*item.Composition
	groups *group.Tree
	snaps  *snap.Registry

	selection ident.ID
	cursor    int

	catalog    Catalog
	compositor Compositor
	stack      *history.Stack
	notifier   *notify.Notifier
	logger     *slog.Logger

	snapTolerance int
	coalesce      bool
	sessionID     uuid.UUID

	// Per-request state, valid while the write lock is held.
	batch        *notify.Batch
	silent       bool
	noInvalidate bool
	dryRun       bool
}

// New creates an empty timeline.
func New(opts ...Option) *Model {
	m := &Model{
		tracks:        make(map[ident.ID]*track.Track),
		clips:         make(map[ident.ID]*item.Clip),
		comps:         make(map[ident.ID]*item.Composition),
		snaps:         snap.NewRegistry(),
		selection:     ident.None,
		cursor:        -1,
		catalog:       nopCatalog{},
		snapTolerance: DefaultSnapTolerance,
		sessionID:     uuid.New(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.alloc == nil {
		m.alloc = ident.NewAllocator(1)
	}
	if m.notifier == nil {
		m.notifier = notify.New()
	}
	if m.logger == nil {
		m.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	m.groups = group.New(m.alloc)
	return m
}

// SessionID identifies this model instance in logs and dumps.
func (m *Model) SessionID() uuid.UUID {
	return m.sessionID
}

// Notifier returns the notifier observers subscribe to.
func (m *Model) Notifier() *notify.Notifier {
	return m.notifier
}

// SnapTolerance returns the configured default snap distance.
func (m *Model) SnapTolerance() int {
	return m.snapTolerance
}

// UndoStack returns the undo stack, or nil.
func (m *Model) UndoStack() *history.Stack {
	return m.stack
}

// ============================================================================
// Request plumbing
// ============================================================================

// mutate runs fn under the write lock against a fresh edit. If fn fails the
// edit is reverted and the error classified; otherwise the edit is pushed to
// the undo stack when flags asks for it. Notifications queued by fn are
// delivered after the lock is released.
func (m *Model) mutate(op, key string, flags Flags, fn func(edit *history.Edit) error) error {
	m.mu.Lock()
	batch := m.notifier.NewBatch()
	m.batch = batch
	m.silent = !flags.Has(UpdateView)
	m.noInvalidate = !flags.Has(Invalidate)

	edit := history.NewEdit()
	err := fn(edit)
	if err != nil {
		if rerr := edit.Revert(); rerr != nil {
			m.logger.Warn("rollback failed", "op", op, "error", rerr)
		}
		batch.Discard()
	} else if flags.Has(LogUndo) && !edit.Empty() {
		m.commit(op, key, edit)
	}

	m.batch = nil
	m.silent = false
	m.noInvalidate = false
	m.mu.Unlock()

	if err != nil {
		err = classify(err)
		m.logger.Debug("request rejected", "op", op, "error", err)
		return err
	}
	batch.Commit()
	return nil
}

// commit hands edit to the undo stack. Must hold the write lock.
func (m *Model) commit(label, key string, edit *history.Edit) {
	if m.stack == nil {
		return
	}
	entry := &lockedEdit{m: m, edit: edit}
	if key != "" && m.coalesce {
		m.stack.PushMergeable(label, key, entry)
		return
	}
	m.stack.Push(label, entry)
}

// lockedEdit replays a committed edit under the model lock.
type lockedEdit struct {
	m    *Model
	edit *history.Edit
}

func (l *lockedEdit) Apply() error  { return l.m.replay(l.edit.Apply) }
func (l *lockedEdit) Revert() error { return l.m.replay(l.edit.Revert) }

func (m *Model) replay(fn func() error) error {
	m.mu.Lock()
	m.clearSelectionLocked()
	batch := m.notifier.NewBatch()
	m.batch = batch
	err := fn()
	m.batch = nil
	m.mu.Unlock()

	if err != nil {
		batch.Discard()
		return classify(err)
	}
	batch.Commit()
	return nil
}

// Undo reverts the last request pushed to the undo stack.
func (m *Model) Undo() error {
	if m.stack == nil {
		return fmt.Errorf("%w: no undo stack", ErrIncompatibleState)
	}
	if m.stack.IsGrouping() {
		return fmt.Errorf("%w: undo inside an open transaction", ErrIncompatibleState)
	}
	return m.stack.Undo()
}

// Redo re-applies the last undone request.
func (m *Model) Redo() error {
	if m.stack == nil {
		return fmt.Errorf("%w: no undo stack", ErrIncompatibleState)
	}
	if m.stack.IsGrouping() {
		return fmt.Errorf("%w: redo inside an open transaction", ErrIncompatibleState)
	}
	return m.stack.Redo()
}

// emit queues a notification for the running request.
func (m *Model) emit(id ident.ID, typ notify.ChangeType, roles notify.Role) {
	if m.batch == nil || m.silent || m.dryRun {
		return
	}
	m.batch.Add(notify.Change{Item: id, Type: typ, Roles: roles})
}

// refresh asks the compositor to redraw [from, to).
func (m *Model) refresh(from, to int) {
	if m.compositor == nil || m.noInvalidate || m.dryRun {
		return
	}
	m.compositor.Refresh(from, to)
}

// graph returns the compositor unless the request is a dry run.
func (m *Model) graph() Compositor {
	if m.dryRun {
		return nil
	}
	return m.compositor
}

// ============================================================================
// Read Operations
// ============================================================================

// TrackIDs returns every track id from bottom to top.
func (m *Model) TrackIDs() []ident.ID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.order)
}

// TrackCount returns the number of tracks.
func (m *Model) TrackCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.order)
}

// TrackKind returns the kind of a track.
func (m *Model) TrackKind(id ident.ID) (track.Kind, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tracks[id]
	if !ok {
		return 0, false
	}
	return t.Kind(), true
}

// TrackIndex returns the position of a track from the bottom, or -1.
func (m *Model) TrackIndex(id ident.ID) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Index(m.order, id)
}

// ClipAt returns the clip covering pos on a track, or ident.None.
func (m *Model) ClipAt(trackID ident.ID, pos int) ident.ID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tracks[trackID]
	if !ok {
		return ident.None
	}
	return t.ClipAt(pos)
}

// TrackClips returns the clips of a track in position order.
func (m *Model) TrackClips(trackID ident.ID) []ident.ID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t, ok := m.tracks[trackID]; ok {
		return t.ClipIDs()
	}
	return nil
}

// TrackCompositions returns the compositions of a track in position order.
func (m *Model) TrackCompositions(trackID ident.ID) []ident.ID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t, ok := m.tracks[trackID]; ok {
		return t.CompositionIDs()
	}
	return nil
}

// IsClip reports whether id is a clip.
func (m *Model) IsClip(id ident.ID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.clips[id]
	return ok
}

// IsComposition reports whether id is a composition.
func (m *Model) IsComposition(id ident.ID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.comps[id]
	return ok
}

// IsTrack reports whether id is a track.
func (m *Model) IsTrack(id ident.ID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.tracks[id]
	return ok
}

// ItemPosition returns the start of a clip or composition.
func (m *Model) ItemPosition(id ident.ID) (int, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.clips[id]; ok {
		return c.Position(), true
	}
	if c, ok := m.comps[id]; ok {
		return c.Position(), true
	}
	return 0, false
}

// ItemPlaytime returns the length of a clip or composition.
func (m *Model) ItemPlaytime(id ident.ID) (int, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.clips[id]; ok {
		return c.Playtime(), true
	}
	if c, ok := m.comps[id]; ok {
		return c.Playtime(), true
	}
	return 0, false
}

// ItemTrack returns the track of a clip or composition, or ident.None.
func (m *Model) ItemTrack(id ident.ID) ident.ID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.clips[id]; ok {
		return c.Track()
	}
	if c, ok := m.comps[id]; ok {
		return c.Track()
	}
	return ident.None
}

// ClipInfo returns a copy of a clip's state.
func (m *Model) ClipInfo(id ident.ID) (ClipSnapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.clips[id]
	if !ok {
		return ClipSnapshot{}, false
	}
	return snapshotClip(c), true
}

// CompositionInfo returns a copy of a composition's state.
func (m *Model) CompositionInfo(id ident.ID) (CompositionSnapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.comps[id]
	if !ok {
		return CompositionSnapshot{}, false
	}
	return m.snapshotComposition(c), true
}

// GroupRoot returns the root of the group tree containing id.
func (m *Model) GroupRoot(id ident.ID) ident.ID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.groups.Registered(id) {
		return ident.None
	}
	return m.groups.RootOf(id)
}

// GroupLeaves returns the items below a group node, or the item itself.
func (m *Model) GroupLeaves(id ident.ID) []ident.ID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.groups.Registered(id) {
		return nil
	}
	return m.groups.Leaves(id)
}

// IsGrouped reports whether an item belongs to a group other than itself.
func (m *Model) IsGrouped(id ident.ID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.groups.Registered(id) && m.groups.InGroup(id)
}

// GroupKind returns the kind of a group node.
func (m *Model) GroupKind(id ident.ID) (group.Kind, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.groups.Kind(id)
}

// SnapPoints returns the visible snap positions in ascending order.
func (m *Model) SnapPoints() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snaps.Points()
}

// NextSnap returns the first snap position after pos.
func (m *Model) NextSnap(pos int) (int, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snaps.Next(pos)
}

// PreviousSnap returns the last snap position before pos.
func (m *Model) PreviousSnap(pos int) (int, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snaps.Previous(pos)
}

// Duration returns the end of the last item on any track.
func (m *Model) Duration() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d := 0
	for _, t := range m.tracks {
		d = max(d, t.Duration())
	}
	return d
}

// SetCursor moves the playhead, which acts as an extra snap point.
// A negative position removes it.
func (m *Model) SetCursor(pos int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cursor = pos
}

// Cursor returns the playhead position, or -1.
func (m *Model) Cursor() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cursor
}

// ============================================================================
// Track ordering helpers. Callers hold the lock.
// ============================================================================

// kindTracks returns the tracks of kind from bottom to top.
func (m *Model) kindTracks(kind track.Kind) []ident.ID {
	var ids []ident.ID
	for _, id := range m.order {
		if m.tracks[id].Kind() == kind {
			ids = append(ids, id)
		}
	}
	return ids
}

// kindIndex returns the position of a track among tracks of its kind.
func (m *Model) kindIndex(id ident.ID) int {
	t, ok := m.tracks[id]
	if !ok {
		return -1
	}
	return slices.Index(m.kindTracks(t.Kind()), id)
}

// mirrorTrack returns the track of the opposite kind facing id: the n-th
// video track counted upward pairs with the n-th audio track counted
// downward.
func (m *Model) mirrorTrack(id ident.ID) ident.ID {
	t, ok := m.tracks[id]
	if !ok {
		return ident.None
	}
	own := m.kindTracks(t.Kind())
	other := track.Audio
	if t.Kind() == track.Audio {
		other = track.Video
	}
	opposite := m.kindTracks(other)
	n := slices.Index(own, id)
	if t.Kind() == track.Audio {
		n = len(own) - 1 - n
		if n >= len(opposite) {
			return ident.None
		}
		return opposite[n]
	}
	if n >= len(opposite) {
		return ident.None
	}
	return opposite[len(opposite)-1-n]
}

// lowerTrack returns the nearest track of the same kind below id.
func (m *Model) lowerTrack(id ident.ID) ident.ID {
	t, ok := m.tracks[id]
	if !ok {
		return ident.None
	}
	i := slices.Index(m.order, id)
	for j := i - 1; j >= 0; j-- {
		if m.tracks[m.order[j]].Kind() == t.Kind() {
			return m.order[j]
		}
	}
	return ident.None
}

func (m *Model) trackFor(id ident.ID) (*track.Track, error) {
	t, ok := m.tracks[id]
	if !ok {
		return nil, notFound("track", id)
	}
	return t, nil
}

func (m *Model) writableTrack(id ident.ID) (*track.Track, error) {
	t, err := m.trackFor(id)
	if err != nil {
		return nil, err
	}
	if t.Locked() {
		return nil, fmt.Errorf("%w: track %s is locked", ErrIncompatibleState, id)
	}
	return t, nil
}

// stateFits reports whether a clip in state s may live on a track of kind k.
// Disabled clips are judged by the state they return to.
func stateFits(s, active item.State, k track.Kind) bool {
	if s == item.Disabled {
		s = active
	}
	if s == item.AudioOnly {
		return k == track.Audio
	}
	return k == track.Video
}

// itemKind returns the track kind an item lives on.
func (m *Model) itemKind(id ident.ID) (track.Kind, bool) {
	tid := ident.None
	if c, ok := m.clips[id]; ok {
		tid = c.Track()
	} else if c, ok := m.comps[id]; ok {
		tid = c.Track()
	}
	t, ok := m.tracks[tid]
	if !ok {
		return 0, false
	}
	return t.Kind(), true
}
