package command

import (
	"github.com/dshills/cutstorm/internal/timeline"
	"github.com/dshills/cutstorm/internal/timeline/group"
	"github.com/dshills/cutstorm/internal/timeline/ident"
	"github.com/dshills/cutstorm/internal/timeline/item"
	"github.com/dshills/cutstorm/internal/timeline/track"
)

// builtinHandlers returns the dispatch table. Argument names:
//
//	insert_track       index? kind name?
//	delete_track       id
//	lock_track         id locked?
//	insert_clip        ref track position in? out? state? split?
//	insert_composition service track position length atrack?
//	move_clip          id track position
//	move_composition   id track position
//	move_group         id group? dtrack dpos
//	resize_item        id size right? snap? single?
//	cut_clip           id position
//	set_clip_state     id state
//	reload_clip        id
//	time_warp          id speed
//	set_keyframe       id param frame value
//	set_atrack         id atrack?
//	delete_item        id
//	group              ids kind?
//	ungroup            id
//	ungroup_all        ids
//	delete_group       id
//	select             ids
//	fake_move          id track position
//	set_cursor         position
//	suggest_move       id track position cursor? snap?
func builtinHandlers() map[Kind]Handler {
	return map[Kind]Handler{
		InsertTrack:       (*Dispatcher).insertTrack,
		DeleteTrack:       (*Dispatcher).deleteTrack,
		LockTrack:         (*Dispatcher).lockTrack,
		InsertClip:        (*Dispatcher).insertClip,
		InsertComposition: (*Dispatcher).insertComposition,
		MoveClip:          (*Dispatcher).moveClip,
		MoveComposition:   (*Dispatcher).moveComposition,
		MoveGroup:         (*Dispatcher).moveGroup,
		ResizeItem:        (*Dispatcher).resizeItem,
		CutClip:           (*Dispatcher).cutClip,
		SetClipState:      (*Dispatcher).setClipState,
		ReloadClip:        (*Dispatcher).reloadClip,
		TimeWarp:          (*Dispatcher).timeWarp,
		SetKeyframe:       (*Dispatcher).setKeyframe,
		SetATrack:         (*Dispatcher).setATrack,
		DeleteItem:        (*Dispatcher).deleteItem,
		Group:             (*Dispatcher).group,
		Ungroup:           (*Dispatcher).ungroup,
		UngroupAll:        (*Dispatcher).ungroupAll,
		DeleteGroup:       (*Dispatcher).deleteGroup,
		Select:            (*Dispatcher).selectItems,
		ClearSelection:    (*Dispatcher).clearSelection,
		FakeMove:          (*Dispatcher).fakeMove,
		ClearFakeMoves:    (*Dispatcher).clearFakeMoves,
		SetCursor:         (*Dispatcher).setCursor,
		Undo:              (*Dispatcher).undo,
		Redo:              (*Dispatcher).redo,
		SuggestMove:       (*Dispatcher).suggestMove,
		Check:             (*Dispatcher).check,
	}
}

// placement reads the common id/track/position triple.
func placement(a Args) (id, trackID ident.ID, pos int, err error) {
	if id, err = a.ID("id"); err != nil {
		return
	}
	if trackID, err = a.ID("track"); err != nil {
		return
	}
	pos, err = a.Int("position")
	return
}

func created(id ident.ID, err error) (Result, error) {
	if err != nil {
		return Result{}, err
	}
	return Result{ID: id}, nil
}

func done(err error) (Result, error) {
	return Result{}, err
}

func (d *Dispatcher) insertTrack(a Args) (Result, error) {
	index, err := a.IntOr("index", -1)
	if err != nil {
		return Result{}, err
	}
	kindName, err := a.Text("kind")
	if err != nil {
		return Result{}, err
	}
	kind, err := track.ParseKind(kindName)
	if err != nil {
		return Result{}, bad("kind", kindName)
	}
	name, err := a.TextOr("name", "")
	if err != nil {
		return Result{}, err
	}
	return created(d.model.RequestTrackInsertion(index, kind, name, d.flags))
}

func (d *Dispatcher) deleteTrack(a Args) (Result, error) {
	id, err := a.ID("id")
	if err != nil {
		return Result{}, err
	}
	return done(d.model.RequestTrackDeletion(id, d.flags))
}

func (d *Dispatcher) lockTrack(a Args) (Result, error) {
	id, err := a.ID("id")
	if err != nil {
		return Result{}, err
	}
	locked, err := a.BoolOr("locked", true)
	if err != nil {
		return Result{}, err
	}
	return done(d.model.SetTrackLock(id, locked, d.flags))
}

func parseState(a Args) (item.State, error) {
	name, err := a.TextOr("state", "")
	if err != nil {
		return 0, err
	}
	s, err := item.ParseState(name)
	if err != nil {
		return 0, bad("state", name)
	}
	return s, nil
}

func (d *Dispatcher) insertClip(a Args) (Result, error) {
	var (
		spec timeline.ClipSpec
		err  error
	)
	if spec.BinRef, err = a.Text("ref"); err != nil {
		return Result{}, err
	}
	if spec.In, err = a.IntOr("in", 0); err != nil {
		return Result{}, err
	}
	if spec.Out, err = a.IntOr("out", 0); err != nil {
		return Result{}, err
	}
	if spec.State, err = parseState(a); err != nil {
		return Result{}, err
	}
	if spec.SplitAudio, err = a.BoolOr("split", false); err != nil {
		return Result{}, err
	}
	trackID, err := a.ID("track")
	if err != nil {
		return Result{}, err
	}
	pos, err := a.Int("position")
	if err != nil {
		return Result{}, err
	}
	return created(d.model.RequestClipInsertion(spec, trackID, pos, d.flags))
}

func (d *Dispatcher) insertComposition(a Args) (Result, error) {
	service, err := a.Text("service")
	if err != nil {
		return Result{}, err
	}
	trackID, err := a.ID("track")
	if err != nil {
		return Result{}, err
	}
	pos, err := a.Int("position")
	if err != nil {
		return Result{}, err
	}
	length, err := a.Int("length")
	if err != nil {
		return Result{}, err
	}
	aTrack, err := a.IDOr("atrack", ident.None)
	if err != nil {
		return Result{}, err
	}
	return created(d.model.RequestCompositionInsertion(service, trackID, pos, length, aTrack, d.flags))
}

func (d *Dispatcher) moveClip(a Args) (Result, error) {
	id, trackID, pos, err := placement(a)
	if err != nil {
		return Result{}, err
	}
	return done(d.model.RequestClipMove(id, trackID, pos, d.flags))
}

func (d *Dispatcher) moveComposition(a Args) (Result, error) {
	id, trackID, pos, err := placement(a)
	if err != nil {
		return Result{}, err
	}
	return done(d.model.RequestCompositionMove(id, trackID, pos, d.flags))
}

func (d *Dispatcher) moveGroup(a Args) (Result, error) {
	anchor, err := a.ID("id")
	if err != nil {
		return Result{}, err
	}
	gid, err := a.IDOr("group", d.model.GroupRoot(anchor))
	if err != nil {
		return Result{}, err
	}
	dTrack, err := a.IntOr("dtrack", 0)
	if err != nil {
		return Result{}, err
	}
	dPos, err := a.IntOr("dpos", 0)
	if err != nil {
		return Result{}, err
	}
	return done(d.model.RequestGroupMove(anchor, gid, dTrack, dPos, d.flags))
}

func (d *Dispatcher) resizeItem(a Args) (Result, error) {
	id, err := a.ID("id")
	if err != nil {
		return Result{}, err
	}
	size, err := a.Int("size")
	if err != nil {
		return Result{}, err
	}
	right, err := a.BoolOr("right", true)
	if err != nil {
		return Result{}, err
	}
	snapDistance, err := a.IntOr("snap", d.model.SnapTolerance())
	if err != nil {
		return Result{}, err
	}
	single, err := a.BoolOr("single", false)
	if err != nil {
		return Result{}, err
	}
	applied, err := d.model.RequestItemResize(id, size, right, d.flags, snapDistance, single)
	if err != nil {
		return Result{}, err
	}
	return Result{ID: id, Size: applied}, nil
}

func (d *Dispatcher) cutClip(a Args) (Result, error) {
	id, err := a.ID("id")
	if err != nil {
		return Result{}, err
	}
	pos, err := a.Int("position")
	if err != nil {
		return Result{}, err
	}
	return created(d.model.RequestClipCut(id, pos, d.flags))
}

func (d *Dispatcher) setClipState(a Args) (Result, error) {
	id, err := a.ID("id")
	if err != nil {
		return Result{}, err
	}
	if !a.Has("state") {
		return Result{}, missing("state")
	}
	state, err := parseState(a)
	if err != nil {
		return Result{}, err
	}
	return done(d.model.RequestClipState(id, state, d.flags))
}

func (d *Dispatcher) reloadClip(a Args) (Result, error) {
	id, err := a.ID("id")
	if err != nil {
		return Result{}, err
	}
	return done(d.model.RequestClipReload(id, d.flags))
}

func (d *Dispatcher) timeWarp(a Args) (Result, error) {
	id, err := a.ID("id")
	if err != nil {
		return Result{}, err
	}
	speed, err := a.Float("speed")
	if err != nil {
		return Result{}, err
	}
	return done(d.model.RequestClipTimeWarp(id, speed, d.flags))
}

func (d *Dispatcher) setKeyframe(a Args) (Result, error) {
	id, err := a.ID("id")
	if err != nil {
		return Result{}, err
	}
	param, err := a.Text("param")
	if err != nil {
		return Result{}, err
	}
	frame, err := a.Int("frame")
	if err != nil {
		return Result{}, err
	}
	value, err := a.Float("value")
	if err != nil {
		return Result{}, err
	}
	return done(d.model.RequestItemKeyframe(id, param, frame, value, d.flags))
}

func (d *Dispatcher) setATrack(a Args) (Result, error) {
	id, err := a.ID("id")
	if err != nil {
		return Result{}, err
	}
	aTrack, err := a.IDOr("atrack", ident.None)
	if err != nil {
		return Result{}, err
	}
	return done(d.model.RequestCompositionATrack(id, aTrack, d.flags))
}

func (d *Dispatcher) deleteItem(a Args) (Result, error) {
	id, err := a.ID("id")
	if err != nil {
		return Result{}, err
	}
	return done(d.model.RequestItemDeletion(id, d.flags))
}

func (d *Dispatcher) group(a Args) (Result, error) {
	ids, err := a.IDs("ids")
	if err != nil {
		return Result{}, err
	}
	kindName, err := a.TextOr("kind", "normal")
	if err != nil {
		return Result{}, err
	}
	kind, err := group.ParseKind(kindName)
	if err != nil {
		return Result{}, bad("kind", kindName)
	}
	return created(d.model.RequestClipsGroup(ids, kind, d.flags))
}

func (d *Dispatcher) ungroup(a Args) (Result, error) {
	id, err := a.ID("id")
	if err != nil {
		return Result{}, err
	}
	return done(d.model.RequestClipUngroup(id, d.flags))
}

func (d *Dispatcher) ungroupAll(a Args) (Result, error) {
	ids, err := a.IDs("ids")
	if err != nil {
		return Result{}, err
	}
	return done(d.model.RequestClipsUngroup(ids, d.flags))
}

func (d *Dispatcher) deleteGroup(a Args) (Result, error) {
	id, err := a.ID("id")
	if err != nil {
		return Result{}, err
	}
	return done(d.model.RequestGroupDeletion(id, d.flags))
}

func (d *Dispatcher) selectItems(a Args) (Result, error) {
	ids, err := a.IDs("ids")
	if err != nil {
		return Result{}, err
	}
	return done(d.model.RequestSetSelection(ids))
}

func (d *Dispatcher) clearSelection(Args) (Result, error) {
	d.model.ClearSelection()
	return Result{}, nil
}

func (d *Dispatcher) fakeMove(a Args) (Result, error) {
	id, trackID, pos, err := placement(a)
	if err != nil {
		return Result{}, err
	}
	return done(d.model.RequestFakeClipMove(id, trackID, pos))
}

func (d *Dispatcher) clearFakeMoves(Args) (Result, error) {
	d.model.ClearFakeMoves()
	return Result{}, nil
}

func (d *Dispatcher) setCursor(a Args) (Result, error) {
	pos, err := a.Int("position")
	if err != nil {
		return Result{}, err
	}
	d.model.SetCursor(pos)
	return Result{}, nil
}

func (d *Dispatcher) undo(Args) (Result, error) {
	return done(d.model.Undo())
}

func (d *Dispatcher) redo(Args) (Result, error) {
	return done(d.model.Redo())
}

func (d *Dispatcher) suggestMove(a Args) (Result, error) {
	id, trackID, pos, err := placement(a)
	if err != nil {
		return Result{}, err
	}
	cursor, err := a.IntOr("cursor", -1)
	if err != nil {
		return Result{}, err
	}
	snapDistance, err := a.IntOr("snap", d.model.SnapTolerance())
	if err != nil {
		return Result{}, err
	}
	suggest := d.model.SuggestClipMove
	if d.model.IsComposition(id) {
		suggest = d.model.SuggestCompositionMove
	}
	t, p, err := suggest(id, trackID, pos, cursor, snapDistance)
	if err != nil {
		return Result{}, err
	}
	return Result{ID: t, Position: p}, nil
}

func (d *Dispatcher) check(Args) (Result, error) {
	return done(d.model.CheckConsistency())
}
