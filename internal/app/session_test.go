package app

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/cutstorm/internal/bin"
	"github.com/dshills/cutstorm/internal/config"
	"github.com/dshills/cutstorm/internal/timeline/track"
)

const editScript = `
local ids = timeline.tracks()
local v1 = ids[2]
local c = timeline.insert_clip{ref = "src", track = v1, position = 0, out = 100}
timeline.move_clip{id = c, track = v1, position = 50}
local r = timeline.cut_clip{id = c, position = 100}
timeline.resize_item{id = r, size = 20, snap = 0}
print("clips", #timeline.clips(v1))
`

func testConfig() *config.Config {
	return &config.Config{
		Timeline: config.Timeline{
			SnapTolerance:   5,
			MaxUndoEntries:  100,
			CoalesceResizes: true,
			VideoTracks:     2,
			AudioTracks:     1,
		},
		Bin: []config.BinEntry{{Ref: "src", Duration: 1000, Audio: true, Video: true}},
	}
}

func newSession(t *testing.T, opts ...Option) *Session {
	t.Helper()
	s, err := New(testConfig(), opts...)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func writeScript(t *testing.T, code string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "edit.lua")
	require.NoError(t, os.WriteFile(path, []byte(code), 0o644))
	return path
}

func TestNewCreatesConfiguredTracks(t *testing.T) {
	s := newSession(t)
	m := s.Model()

	ids := m.TrackIDs()
	require.Len(t, ids, 3)
	var kinds []track.Kind
	for _, id := range ids {
		k, ok := m.TrackKind(id)
		require.True(t, ok)
		kinds = append(kinds, k)
	}
	assert.Equal(t, []track.Kind{track.Audio, track.Video, track.Video}, kinds)
	assert.Len(t, s.Graph().Tracks(), 3)
	assert.Equal(t, 0, m.UndoStack().UndoCount())
	assert.Empty(t, s.Journal())
	assert.Equal(t, 5, m.SnapTolerance())
	assert.NoError(t, s.Check())
}

func TestNewWithoutDefaultTracks(t *testing.T) {
	s := newSession(t, WithoutDefaultTracks())
	assert.Equal(t, 0, s.Model().TrackCount())
}

func TestNewNilConfigUsesDefaults(t *testing.T) {
	s, err := New(nil)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, 4, s.Model().TrackCount())
	assert.Equal(t, 0, s.Catalog().Len())
}

func TestNewReportsFailingComponent(t *testing.T) {
	cfg := testConfig()
	cfg.Bin = append(cfg.Bin, cfg.Bin[0])

	_, err := New(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInitialization)
	assert.ErrorIs(t, err, bin.ErrDuplicate)

	var initErr *InitError
	require.ErrorAs(t, err, &initErr)
	assert.Equal(t, "bin", initErr.Component)
}

func TestRunScript(t *testing.T) {
	var out bytes.Buffer
	s := newSession(t, WithOutput(&out))

	require.NoError(t, s.RunScript(t.Context(), writeScript(t, editScript)))
	assert.Equal(t, "clips\t2\n", out.String())
	assert.Equal(t, 120, s.Model().Duration())
	assert.Len(t, s.Journal(), 4)
	assert.Positive(t, s.Changes())
	assert.NoError(t, s.Check())

	// Playback follows the edits.
	frame := s.Graph().At(110)
	require.NotEmpty(t, frame.Layers)

	// The whole script is one undo entry.
	stack := s.Model().UndoStack()
	require.Equal(t, 1, stack.UndoCount())
	assert.Equal(t, "script edit.lua", stack.UndoInfo()[0].Label)
	require.NoError(t, s.Model().Undo())
	assert.Zero(t, s.Model().Duration())
	assert.NoError(t, s.Check())
	require.NoError(t, s.Model().Redo())
	assert.Equal(t, 120, s.Model().Duration())
}

func TestRunScriptError(t *testing.T) {
	s := newSession(t)
	path := writeScript(t, `error("boom")`)

	err := s.RunScript(t.Context(), path)
	var opErr *OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "run", opErr.Op)
	assert.Equal(t, path, opErr.Target)
	assert.Contains(t, err.Error(), "boom")
}

func TestRunScriptFailurePartwayIsOneUndo(t *testing.T) {
	s := newSession(t)
	path := writeScript(t, `
local v1 = timeline.tracks()[2]
timeline.insert_clip{ref = "src", track = v1, position = 0, out = 100}
timeline.insert_clip{ref = "src", track = v1, position = 200, out = 100}
undone, msg = timeline.undo()
error(msg)
`)

	err := s.RunScript(t.Context(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transaction")
	assert.Equal(t, 300, s.Model().Duration())
	assert.Equal(t, 1, s.Model().UndoStack().UndoCount())

	require.NoError(t, s.Model().Undo())
	assert.Zero(t, s.Model().Duration())
	assert.NoError(t, s.Check())
}

func TestJournalReplayReproducesTimeline(t *testing.T) {
	first := newSession(t)
	require.NoError(t, first.RunScript(t.Context(), writeScript(t, editScript)))

	journal := filepath.Join(t.TempDir(), "session.yaml")
	require.NoError(t, first.SaveJournal(journal))

	second := newSession(t)
	report, err := second.PlayJournal(t.Context(), journal, false)
	require.NoError(t, err)
	assert.Equal(t, 4, report.Applied)
	assert.Empty(t, report.Failures)
	assert.Equal(t, first.Model().Snapshot(), second.Model().Snapshot())
	assert.NoError(t, second.Check())
}

func TestPlayJournalErrors(t *testing.T) {
	s := newSession(t)
	_, err := s.PlayJournal(t.Context(), filepath.Join(t.TempDir(), "missing.yaml"), false)
	var opErr *OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "load", opErr.Op)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestOperationErrorMessage(t *testing.T) {
	err := NewOperationError("play", "a.yaml", errors.New("bad"))
	assert.Equal(t, "play a.yaml: bad", err.Error())
	assert.Equal(t, "check", NewOperationError("check", "", nil).Error())
}
