package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderRecording(t *testing.T) {
	r := NewRecorder()
	assert.False(t, r.IsRecording())
	assert.Nil(t, r.StopRecording())

	r.Record(New(Undo, nil))
	require.Error(t, r.StartRecording(""))
	require.NoError(t, r.StartRecording("a"))
	require.Error(t, r.StartRecording("b"))
	assert.Equal(t, "a", r.Current())

	r.Record(New(SetCursor, Args{"position": 1}))
	r.Record(New(Undo, nil))
	pending := r.Pending()
	require.Len(t, pending, 2)
	pending[0].Args["position"] = 7
	got := r.StopRecording()
	require.Len(t, got, 2)
	assert.Equal(t, "", r.Current())
	assert.True(t, r.Has("a"))

	// The stored journal is independent of the returned slice.
	got[0].Args["position"] = 99
	assert.Equal(t, 1, r.Get("a")[0].Args["position"])
}

func TestRecorderEmptyRecordingIsNotStored(t *testing.T) {
	r := NewRecorder()
	require.NoError(t, r.StartRecording("empty"))
	r.StopRecording()
	assert.False(t, r.Has("empty"))
	assert.Empty(t, r.Get("empty"))
}

func TestRecorderSetAndNames(t *testing.T) {
	r := NewRecorder()
	require.NoError(t, r.Set("b", []Command{New(Redo, nil)}))
	require.NoError(t, r.Set("a", []Command{New(Undo, nil)}))
	require.Error(t, r.Set("", nil))
	assert.Equal(t, []string{"a", "b"}, r.Names())

	require.NoError(t, r.Set("a", nil))
	assert.Equal(t, []string{"b"}, r.Names())
	r.Clear("b")
	assert.Empty(t, r.Names())
}
