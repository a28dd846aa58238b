// Package history provides the reversible edit primitive used by every
// timeline mutation, and an undo/redo stack that sequences those edits.
//
// # Edits
//
// An Edit pairs forward steps with their exact inverses. Model code performs a
// mutation, then records how to redo and undo it:
//
//	edit := history.NewEdit()
//	if err := edit.Do(attach, detach); err != nil {
//	    return err
//	}
//
// Edits compose: a compound operation builds a local Edit, reverts it on
// failure, and merges it into the caller's Edit only once every step has
// succeeded.
//
// # Stack
//
// The Stack is the collaborator that owns history. It never inspects an edit;
// it only calls Apply and Revert:
//
//	stack := history.NewStack(1000)
//	stack.Push("Move clip", edit)
//	stack.Undo()
//	stack.Redo()
//
// Consecutive edits pushed with the same merge key (for example repeated
// resizes of one clip edge) coalesce into a single entry. Undo and redo seal
// the entries they touch, so later pushes start a new one.
//
// # Grouping
//
// Several pushes can be collected into one undo unit:
//
//	err := stack.Transaction("script edit.lua", func() error {
//	    // ... pushes ...
//	    return nil
//	})
package history
