package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWatcher(t *testing.T, opts ...Option) *Watcher {
	t.Helper()
	w, err := New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func waitEvent(t *testing.T, w *Watcher) Event {
	t.Helper()
	select {
	case ev := <-w.Events():
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestOpString(t *testing.T) {
	assert.Equal(t, "none", Op(0).String())
	assert.Equal(t, "write", OpWrite.String())
	assert.Equal(t, "create|write", (OpCreate | OpWrite).String())
	assert.True(t, (OpCreate | OpWrite).Has(OpWrite))
	assert.False(t, OpWrite.Has(OpCreate|OpWrite))
}

func TestConvertOp(t *testing.T) {
	assert.Equal(t, OpCreate|OpWrite, convertOp(fsnotify.Create|fsnotify.Write))
	assert.Equal(t, OpRemove, convertOp(fsnotify.Remove))
	assert.Equal(t, OpRename|OpChmod, convertOp(fsnotify.Rename|fsnotify.Chmod))
	assert.Equal(t, Op(0), convertOp(0))
}

func TestAccepts(t *testing.T) {
	all := &Watcher{}
	assert.True(t, all.accepts("/x/edit.lua"))
	assert.False(t, all.accepts("/x/.edit.lua.swp"))

	lua := &Watcher{exts: []string{".lua"}}
	assert.True(t, lua.accepts("/x/EDIT.LUA"))
	assert.False(t, lua.accepts("/x/notes.txt"))
}

func TestAddErrors(t *testing.T) {
	w := newWatcher(t)
	assert.ErrorIs(t, w.Add(filepath.Join(t.TempDir(), "missing")), ErrPathNotExist)

	dir := t.TempDir()
	require.NoError(t, w.Add(dir))
	require.NoError(t, w.Add(dir))
	assert.Len(t, w.Paths(), 1)

	require.NoError(t, w.Remove(dir))
	assert.Empty(t, w.Paths())
	require.NoError(t, w.Remove(dir))

	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.Add(dir), ErrClosed)
	require.NoError(t, w.Close())
}

func TestCoalescesBurst(t *testing.T) {
	w := newWatcher(t, WithDelay(time.Hour))

	for range 3 {
		w.handle(fsnotify.Event{Name: "/s/edit.lua", Op: fsnotify.Write})
	}
	w.handle(fsnotify.Event{Name: "/s/edit.lua", Op: fsnotify.Chmod})
	w.handle(fsnotify.Event{Name: "/s/other.lua", Op: fsnotify.Create})
	assert.Equal(t, 2, w.PendingCount())

	w.Flush()
	assert.Equal(t, 0, w.PendingCount())

	first := waitEvent(t, w)
	second := waitEvent(t, w)
	assert.Equal(t, "/s/edit.lua", first.Path)
	assert.Equal(t, OpWrite|OpChmod, first.Op)
	assert.Equal(t, "/s/other.lua", second.Path)
	assert.Equal(t, OpCreate, second.Op)
}

func TestFilteredEventsNeverPend(t *testing.T) {
	w := newWatcher(t, WithDelay(time.Hour), WithExtensions(".lua"))
	w.handle(fsnotify.Event{Name: "/s/readme.md", Op: fsnotify.Write})
	w.handle(fsnotify.Event{Name: "/s/.hidden.lua", Op: fsnotify.Write})
	assert.Equal(t, 0, w.PendingCount())
}

func TestWatchDirectory(t *testing.T) {
	dir := t.TempDir()
	w := newWatcher(t, WithDelay(20*time.Millisecond), WithExtensions(".lua"))
	require.NoError(t, w.Add(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("x"), 0o644))
	path := filepath.Join(dir, "edit.lua")
	require.NoError(t, os.WriteFile(path, []byte("x = 1"), 0o644))

	ev := waitEvent(t, w)
	assert.Equal(t, path, ev.Path)
	assert.True(t, ev.Op.Has(OpCreate) || ev.Op.Has(OpWrite), ev.Op.String())
}

func TestCloseDropsPending(t *testing.T) {
	w, err := New(WithDelay(time.Hour))
	require.NoError(t, err)
	w.handle(fsnotify.Event{Name: "/s/edit.lua", Op: fsnotify.Write})
	require.NoError(t, w.Close())

	_, open := <-w.Events()
	assert.False(t, open)
	assert.Equal(t, 0, w.PendingCount())
}
