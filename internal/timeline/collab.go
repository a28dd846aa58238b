package timeline

import (
	"github.com/dshills/cutstorm/internal/timeline/ident"
	"github.com/dshills/cutstorm/internal/timeline/item"
	"github.com/dshills/cutstorm/internal/timeline/track"
)

// Catalog resolves bin references to media. It is consulted synchronously
// during clip creation and reload; a negative answer fails the request.
type Catalog interface {
	// Ready reports whether the media behind ref can be used.
	Ready(ref string) bool

	// SupportsState reports whether the media provides the streams state needs.
	SupportsState(ref string, state item.State) bool

	// Duration returns the natural length in frames. A non-positive length
	// marks an endless source such as a color or title generator.
	Duration(ref string) (int, bool)
}

// Producer describes how a clip feeds the playback graph.
type Producer struct {
	Clip     ident.ID
	Ref      string
	Track    ident.ID
	Position int
	In       int
	Out      int
	Speed    float64
	State    item.State
}

// Plant describes a composition in the playback graph.
type Plant struct {
	ID      ident.ID
	Service string
	ATrack  ident.ID
	BTrack  ident.ID
	Start   int
	End     int
}

// Compositor is the playback graph the model pushes its state into. The
// model never reads media; it only places producers and compositions.
type Compositor interface {
	AddTrack(id ident.ID, kind track.Kind, index int)
	RemoveTrack(id ident.ID)

	SetProducer(p Producer)
	RemoveProducer(clip ident.ID)

	// Plant inserts or replaces a composition.
	Plant(p Plant)
	Unplant(id ident.ID)
	Planted() []Plant

	// Refresh asks for a redraw when [from, to) contains the displayed frame.
	Refresh(from, to int)
}

// nopCatalog accepts every reference as endless audio+video media.
type nopCatalog struct{}

func (nopCatalog) Ready(string) bool                     { return true }
func (nopCatalog) SupportsState(string, item.State) bool { return true }
func (nopCatalog) Duration(string) (int, bool)           { return 0, true }
