package history

import (
	"errors"
	"fmt"
)

// Step is one direction of a reversible mutation.
type Step func() error

// Reversible is a unit the Stack can replay in both directions.
type Reversible interface {
	// Apply performs (or re-performs) the unit.
	Apply() error

	// Revert undoes the unit.
	Revert() error
}

// Edit is a forward mutation paired with its exact inverse, built from
// ordered steps. Redo steps run in the order they were recorded; undo steps
// run in reverse.
type Edit struct {
	redo []Step
	undo []Step
}

// NewEdit creates an empty edit.
func NewEdit() *Edit {
	return &Edit{}
}

// Push records a step that has already been performed.
func (e *Edit) Push(redo, undo Step) {
	e.redo = append(e.redo, redo)
	e.undo = append(e.undo, undo)
}

// Do runs redo and, if it succeeds, records the pair.
func (e *Edit) Do(redo, undo Step) error {
	if err := redo(); err != nil {
		return err
	}
	e.Push(redo, undo)
	return nil
}

// Merge appends every step of other after the steps of e.
// other must not be used afterwards.
func (e *Edit) Merge(other *Edit) {
	if other == nil {
		return
	}
	e.redo = append(e.redo, other.redo...)
	e.undo = append(e.undo, other.undo...)
}

// Len returns the number of recorded steps.
func (e *Edit) Len() int {
	return len(e.redo)
}

// Empty reports whether no step has been recorded.
func (e *Edit) Empty() bool {
	return len(e.redo) == 0
}

// Apply runs every redo step in order. If a step fails, the steps already
// applied are reverted and the error is returned.
func (e *Edit) Apply() error {
	for i, step := range e.redo {
		if err := step(); err != nil {
			var rollback error
			for j := i - 1; j >= 0; j-- {
				rollback = errors.Join(rollback, e.undo[j]())
			}
			return errors.Join(fmt.Errorf("apply step %d: %w", i, err), rollback)
		}
	}
	return nil
}

// Revert runs every undo step in reverse order. If a step fails, the steps
// already reverted are re-applied and the error is returned.
func (e *Edit) Revert() error {
	for i := len(e.undo) - 1; i >= 0; i-- {
		if err := e.undo[i](); err != nil {
			var rollback error
			for j := i + 1; j < len(e.redo); j++ {
				rollback = errors.Join(rollback, e.redo[j]())
			}
			return errors.Join(fmt.Errorf("revert step %d: %w", i, err), rollback)
		}
	}
	return nil
}

// Reset forgets every recorded step without running any of them.
func (e *Edit) Reset() {
	e.redo = nil
	e.undo = nil
}

// Sequence groups several reversible units as one.
type Sequence []Reversible

// Apply applies every unit in order, reverting the applied prefix on failure.
func (s Sequence) Apply() error {
	for i, r := range s {
		if err := r.Apply(); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = s[j].Revert()
			}
			return fmt.Errorf("sequence step %d: %w", i, err)
		}
	}
	return nil
}

// Revert reverts every unit in reverse order.
func (s Sequence) Revert() error {
	for i := len(s) - 1; i >= 0; i-- {
		if err := s[i].Revert(); err != nil {
			return fmt.Errorf("revert sequence step %d: %w", i, err)
		}
	}
	return nil
}
