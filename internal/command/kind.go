package command

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Kind names a timeline command. The set is closed: every Kind has a
// handler in the Dispatcher table.
type Kind uint8

const (
	KindInvalid Kind = iota

	// Tracks.
	InsertTrack
	DeleteTrack
	LockTrack

	// Items.
	InsertClip
	InsertComposition
	MoveClip
	MoveComposition
	MoveGroup
	ResizeItem
	CutClip
	SetClipState
	ReloadClip
	TimeWarp
	SetKeyframe
	SetATrack
	DeleteItem

	// Groups and selection.
	Group
	Ungroup
	UngroupAll
	DeleteGroup
	Select
	ClearSelection

	// Drag preview.
	FakeMove
	ClearFakeMoves

	// Session.
	SetCursor
	Undo
	Redo

	// Queries.
	SuggestMove
	Check

	kindCount
)

var kindNames = [...]string{
	KindInvalid:       "invalid",
	InsertTrack:       "insert_track",
	DeleteTrack:       "delete_track",
	LockTrack:         "lock_track",
	InsertClip:        "insert_clip",
	InsertComposition: "insert_composition",
	MoveClip:          "move_clip",
	MoveComposition:   "move_composition",
	MoveGroup:         "move_group",
	ResizeItem:        "resize_item",
	CutClip:           "cut_clip",
	SetClipState:      "set_clip_state",
	ReloadClip:        "reload_clip",
	TimeWarp:          "time_warp",
	SetKeyframe:       "set_keyframe",
	SetATrack:         "set_atrack",
	DeleteItem:        "delete_item",
	Group:             "group",
	Ungroup:           "ungroup",
	UngroupAll:        "ungroup_all",
	DeleteGroup:       "delete_group",
	Select:            "select",
	ClearSelection:    "clear_selection",
	FakeMove:          "fake_move",
	ClearFakeMoves:    "clear_fake_moves",
	SetCursor:         "set_cursor",
	Undo:              "undo",
	Redo:              "redo",
	SuggestMove:       "suggest_move",
	Check:             "check",
}

// String returns the wire name of the kind.
func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind parses a wire name.
func ParseKind(s string) (Kind, error) {
	for k := InsertTrack; k < kindCount; k++ {
		if kindNames[k] == s {
			return k, nil
		}
	}
	return KindInvalid, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Kinds returns every valid kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, kindCount-1)
	for k := InsertTrack; k < kindCount; k++ {
		out = append(out, k)
	}
	return out
}

// Valid reports whether k is a known command.
func (k Kind) Valid() bool {
	return k > KindInvalid && k < kindCount
}

// ReadOnly reports whether the command leaves the timeline untouched.
// Read-only commands are never journaled.
func (k Kind) ReadOnly() bool {
	return k == SuggestMove || k == Check
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, uint8(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (k Kind) MarshalYAML() (any, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, uint8(k))
	}
	return k.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (k *Kind) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	return k.UnmarshalText([]byte(s))
}
