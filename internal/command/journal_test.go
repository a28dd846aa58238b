package command

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJournalSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "edit.yaml")
	in := Journal{
		Name:    "edit",
		Session: "abc",
		Commands: []Command{
			New(InsertTrack, Args{"kind": "video"}),
			New(Group, Args{"ids": []int{3, 4}, "kind": "avsplit"}),
		},
	}
	require.NoError(t, Save(in, path))
	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	out, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Version)
	assert.Equal(t, "edit", out.Name)
	assert.Equal(t, "abc", out.Session)
	assert.False(t, out.SavedAt.IsZero())
	require.Len(t, out.Commands, 2)
	assert.Equal(t, Group, out.Commands[1].Kind)
	ids, err := out.Commands[1].Args.IDs("ids")
	require.NoError(t, err)
	assert.Len(t, ids, 2)
}

func TestJournalDecodeHandWritten(t *testing.T) {
	j, err := Decode([]byte(`
version: 1
name: demo
commands:
  - kind: insert_track
    args: {kind: video}
  - kind: insert_clip
    args: {ref: src, track: 1, position: 0, out: 50}
  - kind: check
`))
	require.NoError(t, err)

	m := newModel(t)
	report, err := NewPlayer(NewDispatcher(m)).Play(t.Context(), j.Commands)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Applied)
	assert.Len(t, m.TrackClips(1), 1)
}

func TestJournalErrors(t *testing.T) {
	_, err := Decode([]byte("version: 9\nname: x\n"))
	require.ErrorIs(t, err, ErrUnsupportedVersion)

	_, err = Decode([]byte("commands:\n  - kind: explode\n"))
	require.ErrorIs(t, err, ErrUnknownKind)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestRecorderPersistence(t *testing.T) {
	dir := t.TempDir()
	r := NewRecorder()
	require.Error(t, SaveRecorder(r, "none", "", filepath.Join(dir, "none.yaml")))

	require.NoError(t, r.Set("cut", []Command{New(SetCursor, Args{"position": 5})}))
	path := filepath.Join(dir, "cut.yaml")
	require.NoError(t, SaveRecorder(r, "cut", "session", path))

	loaded := NewRecorder()
	name, err := LoadRecorder(loaded, path)
	require.NoError(t, err)
	assert.Equal(t, "cut", name)
	require.Len(t, loaded.Get("cut"), 1)

	name, err = LoadRecorder(loaded, filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Empty(t, name)
}
