package history

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Common errors for stack operations.
var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// DefaultMaxEntries is used when a non-positive limit is requested.
const DefaultMaxEntries = 1000

// entry wraps a reversible unit with metadata.
type entry struct {
	id        uuid.UUID
	label     string
	key       string
	edit      Reversible
	steps     int
	timestamp time.Time

	// sealed entries never absorb later pushes.
	sealed bool
}

// Info describes a stack entry for display.
type Info struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Timestamp time.Time `json:"time"`
	Merges    int       `json:"merges,omitempty"`
}

func (e *entry) info() Info {
	return Info{
		ID:        e.id.String(),
		Label:     e.label,
		Timestamp: e.timestamp,
		Merges:    e.steps - 1,
	}
}

// Stack manages undo/redo state for a timeline.
type Stack struct {
	mu sync.Mutex

	undoStack []*entry
	redoStack []*entry

	// Grouping state
	depth      int
	groupName  string
	groupEdits Sequence

	maxEntries int
}

// NewStack creates a stack holding at most maxEntries undo entries.
func NewStack(maxEntries int) *Stack {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Stack{maxEntries: maxEntries}
}

// Push adds an already-applied unit to the undo stack and clears redo.
func (s *Stack) Push(label string, edit Reversible) {
	s.PushMergeable(label, "", edit)
}

// PushMergeable is Push with a merge key. When the top entry carries the same
// non-empty key and has not been undone or redone since, the new unit is
// folded into it instead of creating a new entry.
func (s *Stack) PushMergeable(label, key string, edit Reversible) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.depth > 0 {
		s.groupEdits = append(s.groupEdits, edit)
		return
	}

	s.pushLocked(label, key, edit)
}

// pushLocked adds a unit without acquiring the lock.
func (s *Stack) pushLocked(label, key string, edit Reversible) {
	if key != "" && len(s.undoStack) > 0 {
		top := s.undoStack[len(s.undoStack)-1]
		if !top.sealed && top.key == key {
			top.edit = Sequence{top.edit, edit}
			top.steps++
			top.timestamp = time.Now()
			s.redoStack = nil
			return
		}
	}

	s.undoStack = append(s.undoStack, &entry{
		id:        uuid.New(),
		label:     label,
		key:       key,
		edit:      edit,
		steps:     1,
		timestamp: time.Now(),
	})

	// Clear redo stack
	s.redoStack = nil

	if len(s.undoStack) > s.maxEntries {
		excess := len(s.undoStack) - s.maxEntries
		s.undoStack = s.undoStack[excess:]
	}
}

// Undo reverts the last entry.
// The lock is released while the entry runs so that the edit may call back
// into code that inspects the stack.
func (s *Stack) Undo() error {
	s.mu.Lock()
	if len(s.undoStack) == 0 {
		s.mu.Unlock()
		return ErrNothingToUndo
	}

	e := s.undoStack[len(s.undoStack)-1]
	s.undoStack = s.undoStack[:len(s.undoStack)-1]
	s.mu.Unlock()

	if err := e.edit.Revert(); err != nil {
		s.mu.Lock()
		s.undoStack = append(s.undoStack, e)
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	e.sealed = true
	s.redoStack = append(s.redoStack, e)
	if n := len(s.undoStack); n > 0 {
		s.undoStack[n-1].sealed = true
	}
	s.mu.Unlock()
	return nil
}

// Redo re-applies the last undone entry.
func (s *Stack) Redo() error {
	s.mu.Lock()
	if len(s.redoStack) == 0 {
		s.mu.Unlock()
		return ErrNothingToRedo
	}

	e := s.redoStack[len(s.redoStack)-1]
	s.redoStack = s.redoStack[:len(s.redoStack)-1]
	s.mu.Unlock()

	if err := e.edit.Apply(); err != nil {
		s.mu.Lock()
		s.redoStack = append(s.redoStack, e)
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.undoStack = append(s.undoStack, e)
	s.mu.Unlock()
	return nil
}

// UndoCount returns the number of undo entries.
func (s *Stack) UndoCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.undoStack)
}

// RedoCount returns the number of redo entries.
func (s *Stack) RedoCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.redoStack)
}

// BeginGroup starts collecting pushes into one entry. Nested groups fold
// into the outermost one, which keeps its name.
func (s *Stack) BeginGroup(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.depth == 0 {
		s.groupName = name
		s.groupEdits = nil
	}
	s.depth++
}

// EndGroup closes the innermost group. Closing the outermost one records
// everything pushed since BeginGroup as a single entry.
func (s *Stack) EndGroup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.depth == 0 {
		return
	}
	s.depth--
	if s.depth > 0 {
		return
	}

	if len(s.groupEdits) == 0 {
		s.groupEdits = nil
		return
	}

	s.pushLocked(s.groupName, "", s.groupEdits)
	s.groupEdits = nil
}

// IsGrouping returns true while a group is open.
func (s *Stack) IsGrouping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.depth > 0
}

// UndoInfo describes the undo entries, oldest first.
func (s *Stack) UndoInfo() []Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]Info, len(s.undoStack))
	for i, e := range s.undoStack {
		result[i] = e.info()
	}
	return result
}

// RedoInfo describes the redo entries, oldest first.
func (s *Stack) RedoInfo() []Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]Info, len(s.redoStack))
	for i, e := range s.redoStack {
		result[i] = e.info()
	}
	return result
}
