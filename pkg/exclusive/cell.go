// Package exclusive provides a checked single-owner access cell for mutable
// kernel state. The kernel runs on one logical executor, so a cell is never
// contended by parallel callers; the hazard it guards against is re-entrant
// acquisition from nested call paths. Acquiring a cell that is already held
// is a kernel invariant violation and panics unconditionally.
package exclusive

import (
	"sync/atomic"
)

// Cell holds a value that may only be reached through a scoped exclusive
// acquisition.
type Cell[T any] struct {
	held  atomic.Bool
	value T
}

// NewCell creates a cell owning value.
func NewCell[T any](value T) *Cell[T] {
	return &Cell[T]{value: value}
}

// Access acquires the cell. The returned guard must be released before any
// path that could acquire the same cell again.
func (c *Cell[T]) Access() *Guard[T] {
	if !c.held.CompareAndSwap(false, true) {
		panic("exclusive: re-entrant acquisition of held cell")
	}
	return &Guard[T]{cell: c}
}

// Guard is a scoped exclusive hold on a cell's value.
type Guard[T any] struct {
	cell     *Cell[T]
	released bool
}

// Get returns the guarded value. Using the pointer after Release is a bug,
// but one the guard cannot detect; callers keep guards short-lived.
func (g *Guard[T]) Get() *T {
	if g.released {
		panic("exclusive: access through released guard")
	}
	return &g.cell.value
}

// Release ends the hold. Releasing twice is harmless.
func (g *Guard[T]) Release() {
	if g.released {
		return
	}
	g.released = true
	g.cell.held.Store(false)
}

// With runs fn under a scoped acquisition of the cell and returns its result.
func With[T, R any](c *Cell[T], fn func(*T) R) R {
	guard := c.Access()
	defer guard.Release()
	return fn(guard.Get())
}
