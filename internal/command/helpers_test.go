package command

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dshills/cutstorm/internal/bin"
	"github.com/dshills/cutstorm/internal/timeline"
	"github.com/dshills/cutstorm/internal/timeline/history"
	"github.com/dshills/cutstorm/internal/timeline/ident"
)

func newModel(t *testing.T) *timeline.Model {
	t.Helper()
	cat := bin.NewCatalog()
	require.NoError(t, cat.Add(bin.Source{Ref: "src", Duration: 1000, Audio: true, Video: true, Ready: true}))
	return timeline.New(
		timeline.WithCatalog(cat),
		timeline.WithUndoStack(history.NewStack(0)),
	)
}

func mustID(t *testing.T, d *Dispatcher, kind Kind, args Args) ident.ID {
	t.Helper()
	res, err := d.Dispatch(New(kind, args))
	require.NoError(t, err)
	return res.ID
}

func mustDo(t *testing.T, d *Dispatcher, kind Kind, args Args) Result {
	t.Helper()
	res, err := d.Dispatch(New(kind, args))
	require.NoError(t, err)
	return res
}
