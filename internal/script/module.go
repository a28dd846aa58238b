package script

import (
	"context"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/cutstorm/internal/command"
	"github.com/dshills/cutstorm/internal/timeline/ident"
)

// ModuleName is the global and require name of the timeline module.
const ModuleName = "timeline"

// Module exposes a dispatcher to Lua.
type Module struct {
	d *command.Dispatcher
}

// NewModule creates a module that drives d.
func NewModule(d *command.Dispatcher) *Module {
	return &Module{d: d}
}

// Install registers the timeline table in s.
func (m *Module) Install(s *State) {
	funcs := make(map[string]lua.LGFunction, len(command.Kinds())+12)
	for _, kind := range command.Kinds() {
		funcs[kind.String()] = m.commandFunc(kind)
	}
	funcs["tracks"] = m.tracks
	funcs["track_kind"] = m.trackKind
	funcs["clips"] = m.clips
	funcs["compositions"] = m.compositions
	funcs["clip"] = m.clip
	funcs["position"] = m.position
	funcs["playtime"] = m.playtime
	funcs["track_of"] = m.trackOf
	funcs["snaps"] = m.snaps
	funcs["next_snap"] = m.nextSnap
	funcs["previous_snap"] = m.previousSnap
	funcs["duration"] = m.duration
	funcs["cursor"] = m.cursor
	s.Register(ModuleName, funcs)
}

// commandFunc returns the Lua function for kind. It takes an optional
// argument table and returns nil plus a message on failure.
func (m *Module) commandFunc(kind command.Kind) lua.LGFunction {
	return func(L *lua.LState) int {
		args := argsFromTable(L.OptTable(1, L.NewTable()))
		res, err := m.d.Dispatch(command.New(kind, args))
		if err != nil {
			L.Push(lua.LNil)
			L.Push(lua.LString(err.Error()))
			return 2
		}
		switch kind {
		case command.InsertTrack, command.InsertClip, command.InsertComposition,
			command.CutClip, command.Group:
			L.Push(luaID(res.ID))
		case command.SuggestMove:
			L.Push(luaID(res.ID))
			L.Push(lua.LNumber(res.Position))
			return 2
		case command.ResizeItem:
			L.Push(lua.LNumber(res.Size))
		default:
			L.Push(lua.LTrue)
		}
		return 1
	}
}

// argsFromTable keeps the string-keyed fields of t.
func argsFromTable(t *lua.LTable) command.Args {
	args := command.Args{}
	t.ForEach(func(k, v lua.LValue) {
		if key, ok := k.(lua.LString); ok {
			args[string(key)] = toGo(v)
		}
	})
	return args
}

func luaID(id ident.ID) lua.LValue {
	if id == ident.None {
		return lua.LNil
	}
	return lua.LNumber(id)
}

func idList(L *lua.LState, ids []ident.ID) *lua.LTable {
	tbl := L.CreateTable(len(ids), 0)
	for _, id := range ids {
		tbl.Append(lua.LNumber(id))
	}
	return tbl
}

func checkID(L *lua.LState, n int) ident.ID {
	return ident.ID(L.CheckInt64(n))
}

func (m *Module) tracks(L *lua.LState) int {
	L.Push(idList(L, m.d.Model().TrackIDs()))
	return 1
}

func (m *Module) trackKind(L *lua.LState) int {
	kind, ok := m.d.Model().TrackKind(checkID(L, 1))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LString(kind.String()))
	return 1
}

func (m *Module) clips(L *lua.LState) int {
	L.Push(idList(L, m.d.Model().TrackClips(checkID(L, 1))))
	return 1
}

func (m *Module) compositions(L *lua.LState) int {
	L.Push(idList(L, m.d.Model().TrackCompositions(checkID(L, 1))))
	return 1
}

func (m *Module) clip(L *lua.LState) int {
	info, ok := m.d.Model().ClipInfo(checkID(L, 1))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(toLua(L, map[string]any{
		"id":       int64(info.ID),
		"ref":      info.BinRef,
		"track":    int64(info.Track),
		"position": info.Position,
		"in":       info.In,
		"out":      info.Out,
		"speed":    info.Speed,
		"state":    info.State,
	}))
	return 1
}

func (m *Module) position(L *lua.LState) int {
	v, ok := m.d.Model().ItemPosition(checkID(L, 1))
	return pushInt(L, v, ok)
}

func (m *Module) playtime(L *lua.LState) int {
	v, ok := m.d.Model().ItemPlaytime(checkID(L, 1))
	return pushInt(L, v, ok)
}

func pushInt(L *lua.LState, v int, ok bool) int {
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LNumber(v))
	return 1
}

func (m *Module) trackOf(L *lua.LState) int {
	L.Push(luaID(m.d.Model().ItemTrack(checkID(L, 1))))
	return 1
}

func (m *Module) snaps(L *lua.LState) int {
	L.Push(toLua(L, m.d.Model().SnapPoints()))
	return 1
}

func (m *Module) nextSnap(L *lua.LState) int {
	v, ok := m.d.Model().NextSnap(L.CheckInt(1))
	return pushInt(L, v, ok)
}

func (m *Module) previousSnap(L *lua.LState) int {
	v, ok := m.d.Model().PreviousSnap(L.CheckInt(1))
	return pushInt(L, v, ok)
}

func (m *Module) duration(L *lua.LState) int {
	L.Push(lua.LNumber(m.d.Model().Duration()))
	return 1
}

func (m *Module) cursor(L *lua.LState) int {
	L.Push(lua.LNumber(m.d.Model().Cursor()))
	return 1
}

// RunFile runs the script at path against d in a fresh state.
func RunFile(ctx context.Context, d *command.Dispatcher, path string, opts ...Option) error {
	s := NewState(opts...)
	defer s.Close()
	NewModule(d).Install(s)
	return s.DoFile(ctx, path)
}

// RunString runs code against d in a fresh state.
func RunString(ctx context.Context, d *command.Dispatcher, code string, opts ...Option) error {
	s := NewState(opts...)
	defer s.Close()
	NewModule(d).Install(s)
	return s.DoString(ctx, code)
}
