// Package ident provides the integer handle namespace shared by every
// timeline object.
//
// Clips, compositions, tracks and groups all draw their identifiers from a
// single Allocator, so an ID is unique across the whole model and which
// registry holds it tells its kind. Identifiers are never reused.
package ident

import (
	"strconv"
	"sync/atomic"
)

// ID is a process-unique handle for a timeline object.
type ID int64

// None marks the absence of an object (an unattached item, a root group).
const None ID = -1

// Valid reports whether id refers to an object rather than None.
func (id ID) Valid() bool {
	return id >= 0
}

// String returns the decimal form of the id, or "none".
func (id ID) String() string {
	if id == None {
		return "none"
	}
	return strconv.FormatInt(int64(id), 10)
}

// Allocator hands out monotonically increasing identifiers.
// It is safe for concurrent use.
type Allocator struct {
	next atomic.Int64
}

// NewAllocator creates an allocator whose first identifier is start.
func NewAllocator(start ID) *Allocator {
	a := &Allocator{}
	a.next.Store(int64(start))
	return a
}

// Next returns a fresh identifier.
func (a *Allocator) Next() ID {
	return ID(a.next.Add(1) - 1)
}

// Peek returns the identifier the next call to Next will return.
func (a *Allocator) Peek() ID {
	return ID(a.next.Load())
}
