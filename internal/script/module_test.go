package script

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/cutstorm/internal/bin"
	"github.com/dshills/cutstorm/internal/command"
	"github.com/dshills/cutstorm/internal/timeline"
	"github.com/dshills/cutstorm/internal/timeline/history"
)

func newDispatcher(t *testing.T) *command.Dispatcher {
	t.Helper()
	cat := bin.NewCatalog()
	require.NoError(t, cat.Add(bin.Source{Ref: "src", Duration: 1000, Audio: true, Video: true, Ready: true}))
	m := timeline.New(
		timeline.WithCatalog(cat),
		timeline.WithUndoStack(history.NewStack(0)),
	)
	return command.NewDispatcher(m, command.WithRecorder(command.NewRecorder()))
}

func TestModuleEditSession(t *testing.T) {
	d := newDispatcher(t)
	s := NewState()
	defer s.Close()
	NewModule(d).Install(s)

	require.NoError(t, s.DoString(t.Context(), `
local tl = require("timeline")
v1 = tl.insert_track{kind = "video", name = "V1"}
clip = tl.insert_clip{ref = "src", track = v1, position = 10, ["in"] = 0, out = 100}
right = tl.cut_clip{id = clip, position = 60}
left_len = tl.playtime(clip)
right_pos = tl.position(right)
count = #tl.clips(v1)
kind = tl.track_kind(v1)
owner = tl.track_of(right)
`))

	m := d.Model()
	v1 := s.Value("v1").(int64)
	assert.Equal(t, []int64{v1}, toInt64s(m.TrackIDs()))
	assert.Equal(t, int64(50), s.Value("left_len"))
	assert.Equal(t, int64(60), s.Value("right_pos"))
	assert.Equal(t, int64(2), s.Value("count"))
	assert.Equal(t, "video", s.Value("kind"))
	assert.Equal(t, v1, s.Value("owner"))
	assert.Equal(t, 110, m.Duration())
	assert.NoError(t, m.CheckConsistency())
}

func TestModuleErrorsReturnNilAndMessage(t *testing.T) {
	d := newDispatcher(t)
	s := NewState()
	defer s.Close()
	NewModule(d).Install(s)

	require.NoError(t, s.DoString(t.Context(), `
id, msg = timeline.insert_clip{ref = "missing", track = 99, position = 0}
bad, kindmsg = timeline.insert_track{kind = "subtitle"}
nopos = timeline.position(999)
nolen = timeline.playtime(999)
`))
	assert.Nil(t, s.Value("id"))
	assert.NotEmpty(t, s.Value("msg"))
	assert.Nil(t, s.Value("bad"))
	assert.Contains(t, s.Value("kindmsg"), "kind")
	assert.Nil(t, s.Value("nopos"))
	assert.Nil(t, s.Value("nolen"))
}

func TestModuleUndoRedoAndQueries(t *testing.T) {
	d := newDispatcher(t)
	s := NewState()
	defer s.Close()
	NewModule(d).Install(s)

	require.NoError(t, s.DoString(t.Context(), `
local v = timeline.insert_track{kind = "video"}
local c = timeline.insert_clip{ref = "src", track = v, position = 0, out = 40}
moved = timeline.move_clip{id = c, track = v, position = 20}
after_move = timeline.position(c)
timeline.undo()
after_undo = timeline.position(c)
timeline.redo()
after_redo = timeline.position(c)
size = timeline.resize_item{id = c, size = 30, snap = 0}
strack, spos = timeline.suggest_move{id = c, track = v, position = 5, snap = 0}
snaps = timeline.snaps()
first_snap = timeline.next_snap(-1) == snaps[1]
last_snap = timeline.previous_snap(100000) == snaps[#snaps]
no_snap = timeline.next_snap(100000)
info = timeline.clip(c)
missing = timeline.position(12345)
checked = timeline.check()
`))
	assert.Equal(t, true, s.Value("moved"))
	assert.Equal(t, int64(20), s.Value("after_move"))
	assert.Equal(t, int64(0), s.Value("after_undo"))
	assert.Equal(t, int64(20), s.Value("after_redo"))
	assert.Equal(t, int64(30), s.Value("size"))
	assert.Equal(t, int64(5), s.Value("spos"))
	assert.NotNil(t, s.Value("strack"))
	assert.NotEmpty(t, s.Value("snaps"))
	assert.Equal(t, true, s.Value("first_snap"))
	assert.Equal(t, true, s.Value("last_snap"))
	assert.Nil(t, s.Value("no_snap"))
	assert.Nil(t, s.Value("missing"))
	assert.Equal(t, true, s.Value("checked"))

	info := s.Value("info").(map[string]any)
	assert.Equal(t, "src", info["ref"])
	assert.Equal(t, int64(30), info["out"])
}

func TestModuleJournalsScriptedCommands(t *testing.T) {
	d := newDispatcher(t)
	require.NoError(t, d.Recorder().StartRecording("scripted"))

	require.NoError(t, RunString(t.Context(), d, `
local v = timeline.insert_track{kind = "video"}
local c = timeline.insert_clip{ref = "src", track = v, position = 0, out = 40}
timeline.suggest_move{id = c, track = v, position = 100}
timeline.delete_item{id = c}
`))
	d.Recorder().StopRecording()

	cmds := d.Recorder().Get("scripted")
	require.Len(t, cmds, 3)
	assert.Equal(t, command.InsertTrack, cmds[0].Kind)
	assert.Equal(t, command.InsertClip, cmds[1].Kind)
	assert.Equal(t, command.DeleteItem, cmds[2].Kind)
}

func TestRunFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build.lua")
	require.NoError(t, os.WriteFile(path, []byte(`
local a = timeline.insert_track{kind = "audio"}
local v = timeline.insert_track{kind = "video"}
timeline.insert_composition{service = "dissolve", track = v, position = 0, length = 25}
print(#timeline.tracks(), timeline.duration())
`), 0o644))

	var out bytes.Buffer
	d := newDispatcher(t)
	require.NoError(t, RunFile(t.Context(), d, path, WithOutput(&out)))
	assert.Equal(t, "2\t25\n", out.String())
	assert.Equal(t, 2, d.Model().TrackCount())
}

func TestRunFileCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	err := RunString(ctx, newDispatcher(t), `timeline.insert_track{kind = "video"}`)
	assert.ErrorIs(t, err, ErrCanceled)
}

func toInt64s[T ~int64](ids []T) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}
