// Package values holds versioned value cells. Every GPU-bound field of a
// render object lives in a cell; consumers compare versions to detect
// changes without comparing contents.
package values

import "sync/atomic"

var nextCellID atomic.Int64

// Ref is the shared reference held by a cell. Version only ever grows.
type Ref[T any] struct {
	Value   T
	Version int
}

type Cell[T any] struct {
	id  int64
	ref *Ref[T]
}

func NewCell[T any](v T) *Cell[T] {
	return &Cell[T]{
		id:  nextCellID.Add(1),
		ref: &Ref[T]{Value: v},
	}
}

func (c *Cell[T]) ID() int64    { return c.id }
func (c *Cell[T]) Ref() *Ref[T] { return c.ref }
func (c *Cell[T]) Get() T       { return c.ref.Value }
func (c *Cell[T]) Version() int { return c.ref.Version }

// Update sets the value and bumps the version unconditionally; use it for
// in-place mutated slices whose identity does not change.
func (c *Cell[T]) Update(v T) *Cell[T] {
	c.ref.Value = v
	c.ref.Version++
	return c
}

// UpdateFunc updates the value only when eq reports a difference.
func (c *Cell[T]) UpdateFunc(v T, eq func(a, b T) bool) bool {
	if eq(c.ref.Value, v) {
		return false
	}
	c.Update(v)
	return true
}

// UpdateIfChanged updates a comparable cell only when the value differs.
func UpdateIfChanged[T comparable](c *Cell[T], v T) bool {
	if c.ref.Value == v {
		return false
	}
	c.Update(v)
	return true
}

// Versioned is implemented by every cell regardless of its value type.
type Versioned interface {
	ID() int64
	Version() int
}

// Tracker remembers the last seen version per cell.
type Tracker struct {
	seen map[int64]int
}

func NewTracker() *Tracker {
	return &Tracker{seen: make(map[int64]int)}
}

// Changed reports whether v changed since the last call for the same cell
// and records the current version. A cell seen for the first time counts as
// changed.
func (t *Tracker) Changed(v Versioned) bool {
	last, ok := t.seen[v.ID()]
	t.seen[v.ID()] = v.Version()
	return !ok || last != v.Version()
}

func (t *Tracker) Reset() {
	clear(t.seen)
}
