package history

import (
	"errors"
	"testing"
)

// counter is a tiny mutable state used to observe edits.
type counter struct {
	value int
	log   []string
}

func (c *counter) add(n int) Step {
	return func() error {
		c.value += n
		return nil
	}
}

// addEdit builds an edit that has already added n to c.
func addEdit(c *counter, n int) *Edit {
	e := NewEdit()
	if err := e.Do(c.add(n), c.add(-n)); err != nil {
		panic(err)
	}
	return e
}

var errBoom = errors.New("boom")

// Edit Tests

func TestEditDoRecordsOnlyOnSuccess(t *testing.T) {
	c := &counter{}
	e := NewEdit()

	if err := e.Do(c.add(3), c.add(-3)); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if err := e.Do(func() error { return errBoom }, c.add(0)); !errors.Is(err, errBoom) {
		t.Fatalf("Do error = %v, want boom", err)
	}
	if e.Len() != 1 {
		t.Errorf("Len() = %d, want 1", e.Len())
	}
	if c.value != 3 {
		t.Errorf("value = %d, want 3", c.value)
	}
}

func TestEditRevertRunsInReverse(t *testing.T) {
	c := &counter{}
	e := NewEdit()
	step := func(name string) Step {
		return func() error {
			c.log = append(c.log, name)
			return nil
		}
	}
	e.Push(step("redo1"), step("undo1"))
	e.Push(step("redo2"), step("undo2"))

	if err := e.Revert(); err != nil {
		t.Fatal(err)
	}
	if err := e.Apply(); err != nil {
		t.Fatal(err)
	}

	want := []string{"undo2", "undo1", "redo1", "redo2"}
	if len(c.log) != len(want) {
		t.Fatalf("log = %v, want %v", c.log, want)
	}
	for i := range want {
		if c.log[i] != want[i] {
			t.Errorf("log[%d] = %s, want %s", i, c.log[i], want[i])
		}
	}
}

func TestEditApplyRollsBackOnFailure(t *testing.T) {
	c := &counter{}
	e := NewEdit()
	e.Push(c.add(1), c.add(-1))
	e.Push(c.add(10), c.add(-10))
	e.Push(func() error { return errBoom }, c.add(0))

	err := e.Apply()
	if !errors.Is(err, errBoom) {
		t.Fatalf("Apply error = %v, want boom", err)
	}
	if c.value != 0 {
		t.Errorf("value = %d after failed apply, want 0", c.value)
	}
}

func TestEditRevertRestoresOnFailure(t *testing.T) {
	c := &counter{value: 11}
	e := NewEdit()
	e.Push(c.add(1), func() error { return errBoom })
	e.Push(c.add(10), c.add(-10))

	if err := e.Revert(); !errors.Is(err, errBoom) {
		t.Fatalf("Revert error = %v, want boom", err)
	}
	if c.value != 11 {
		t.Errorf("value = %d after failed revert, want 11", c.value)
	}
}

func TestEditMerge(t *testing.T) {
	c := &counter{}
	a := addEdit(c, 2)
	b := addEdit(c, 5)
	a.Merge(b)
	a.Merge(nil)

	if a.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", a.Len())
	}
	if err := a.Revert(); err != nil {
		t.Fatal(err)
	}
	if c.value != 0 {
		t.Errorf("value = %d, want 0", c.value)
	}
}

// Stack Tests

func TestStackUndoRedo(t *testing.T) {
	c := &counter{}
	s := NewStack(10)

	s.Push("add 1", addEdit(c, 1))
	s.Push("add 2", addEdit(c, 2))
	if c.value != 3 {
		t.Fatalf("value = %d", c.value)
	}

	if err := s.Undo(); err != nil {
		t.Fatal(err)
	}
	if c.value != 1 {
		t.Errorf("after undo value = %d, want 1", c.value)
	}
	if s.RedoCount() != 1 {
		t.Errorf("RedoCount = %d, want 1", s.RedoCount())
	}

	if err := s.Redo(); err != nil {
		t.Fatal(err)
	}
	if c.value != 3 {
		t.Errorf("after redo value = %d, want 3", c.value)
	}

	if err := s.Undo(); err != nil {
		t.Fatal(err)
	}
	if err := s.Undo(); err != nil {
		t.Fatal(err)
	}
	if err := s.Undo(); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("Undo on empty = %v", err)
	}
	if c.value != 0 {
		t.Errorf("value = %d, want 0", c.value)
	}
}

func TestStackPushClearsRedo(t *testing.T) {
	c := &counter{}
	s := NewStack(10)
	s.Push("a", addEdit(c, 1))
	_ = s.Undo()
	s.Push("b", addEdit(c, 4))

	if s.RedoCount() != 0 {
		t.Error("push should clear redo")
	}
	if err := s.Redo(); !errors.Is(err, ErrNothingToRedo) {
		t.Errorf("Redo = %v, want ErrNothingToRedo", err)
	}
}

func TestStackFailedUndoKeepsEntry(t *testing.T) {
	s := NewStack(10)
	e := NewEdit()
	e.Push(func() error { return nil }, func() error { return errBoom })
	s.Push("broken", e)

	if err := s.Undo(); !errors.Is(err, errBoom) {
		t.Fatalf("Undo = %v", err)
	}
	if s.UndoCount() != 1 {
		t.Errorf("UndoCount = %d, want 1", s.UndoCount())
	}
}

func TestStackCoalescing(t *testing.T) {
	c := &counter{}
	s := NewStack(10)

	s.PushMergeable("Resize", "resize:7:right", addEdit(c, 1))
	s.PushMergeable("Resize", "resize:7:right", addEdit(c, 1))
	s.PushMergeable("Resize", "resize:7:left", addEdit(c, 1))

	if s.UndoCount() != 2 {
		t.Fatalf("UndoCount = %d, want 2", s.UndoCount())
	}
	info := s.UndoInfo()
	if info[1].Merges != 0 {
		t.Errorf("top entry = %+v", info[1])
	}
	if info[0].Merges != 1 || info[0].Label != "Resize" {
		t.Errorf("first entry = %+v", info[0])
	}

	_ = s.Undo()
	_ = s.Undo()
	if c.value != 0 {
		t.Errorf("value = %d, want 0", c.value)
	}

	// A redone entry is sealed and never absorbs new pushes.
	_ = s.Redo()
	s.PushMergeable("Resize", "resize:7:right", addEdit(c, 1))
	if s.UndoCount() != 2 {
		t.Errorf("UndoCount = %d, want 2", s.UndoCount())
	}
}

func TestStackMaxEntries(t *testing.T) {
	c := &counter{}
	s := NewStack(2)
	for i := 0; i < 5; i++ {
		s.Push("add", addEdit(c, 1))
	}
	if s.UndoCount() != 2 {
		t.Errorf("UndoCount = %d, want 2", s.UndoCount())
	}
	if NewStack(0).maxEntries != DefaultMaxEntries {
		t.Error("non-positive limit should use the default")
	}
}

func TestStackGrouping(t *testing.T) {
	c := &counter{}
	s := NewStack(10)

	s.BeginGroup("batch")
	s.BeginGroup("nested")
	s.Push("a", addEdit(c, 1))
	s.EndGroup()
	if !s.IsGrouping() {
		t.Error("closing a nested group should keep the outer one open")
	}
	s.Push("b", addEdit(c, 2))
	s.EndGroup()
	if s.IsGrouping() {
		t.Error("group should be closed")
	}

	info := s.UndoInfo()
	if len(info) != 1 {
		t.Fatalf("UndoCount = %d, want 1", len(info))
	}
	if info[0].Label != "batch" {
		t.Errorf("label = %q", info[0].Label)
	}
	_ = s.Undo()
	if c.value != 0 {
		t.Errorf("value = %d, want 0", c.value)
	}
	if got := s.RedoInfo(); len(got) != 1 || got[0].Label != "batch" {
		t.Errorf("RedoInfo = %+v", got)
	}

	// An empty group records nothing.
	s.BeginGroup("empty")
	s.EndGroup()
	s.EndGroup()
	if s.UndoCount() != 0 || s.RedoCount() != 1 {
		t.Errorf("undo = %d redo = %d", s.UndoCount(), s.RedoCount())
	}
}

func TestStackTransaction(t *testing.T) {
	c := &counter{}
	s := NewStack(10)

	err := s.Transaction("tx", func() error {
		s.Push("a", addEdit(c, 1))
		s.Push("b", addEdit(c, 2))
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("Transaction = %v", err)
	}
	if s.IsGrouping() {
		t.Error("Transaction left the group open")
	}
	if s.UndoCount() != 1 {
		t.Fatalf("UndoCount = %d, want 1", s.UndoCount())
	}
	if err := s.Undo(); err != nil {
		t.Fatal(err)
	}
	if c.value != 0 {
		t.Errorf("value = %d, want 0", c.value)
	}

	if err := s.Transaction("noop", func() error { return nil }); err != nil {
		t.Fatal(err)
	}
	if s.UndoCount() != 0 {
		t.Errorf("empty transaction recorded %d entries", s.UndoCount())
	}
}
