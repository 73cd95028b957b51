// Copyright 2024 The ever-vm Authors
// This file is part of ever-vm.
//
// ever-vm is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package tvm

import "github.com/everx-labs/ever-vm/tvm/cell"

// ItemKind tags the variant a StackItem holds (spec.md §3.3).
type ItemKind uint8

const (
	KindNull ItemKind = iota
	KindInteger
	KindCell
	KindSlice
	KindBuilder
	KindContinuation
	KindTuple
)

// maxTupleDepth bounds the number of items one tuple holds (spec.md §3.3).
const maxTupleDepth = 255

// StackItem is the polymorphic value the operand stack and tuples hold.
// It is an immutable-by-value handle: Cell/Slice/Builder/Continuation/Tuple
// payloads are shared by reference, never bitcopied (spec.md §5).
type StackItem struct {
	kind ItemKind
	i    IntegerData
	c    *cell.Cell
	s    *cell.Slice
	b    *cell.Builder
	k    *Continuation
	t    []StackItem
}

// Null is the singleton null stack item.
var Null = StackItem{kind: KindNull}

func NewInteger(v IntegerData) StackItem    { return StackItem{kind: KindInteger, i: v} }
func NewCell(c *cell.Cell) StackItem        { return StackItem{kind: KindCell, c: c} }
func NewSlice(s *cell.Slice) StackItem      { return StackItem{kind: KindSlice, s: s} }
func NewBuilder(b *cell.Builder) StackItem  { return StackItem{kind: KindBuilder, b: b} }
func NewContinuation(k *Continuation) StackItem { return StackItem{kind: KindContinuation, k: k} }

// NewTuple builds a tuple item, rejecting tuples with more than
// maxTupleDepth items.
func NewTuple(items []StackItem) (StackItem, error) {
	if len(items) > maxTupleDepth {
		return StackItem{}, newVMError(TypeCheck, 0)
	}
	return StackItem{kind: KindTuple, t: items}, nil
}

func (s StackItem) Kind() ItemKind { return s.kind }
func (s StackItem) IsNull() bool   { return s.kind == KindNull }

func (s StackItem) Integer() (IntegerData, error) {
	if s.kind != KindInteger {
		return IntegerData{}, newVMError(TypeCheck, 0)
	}
	return s.i, nil
}

func (s StackItem) Cell() (*cell.Cell, error) {
	if s.kind != KindCell {
		return nil, newVMError(TypeCheck, 0)
	}
	return s.c, nil
}

func (s StackItem) Slice() (*cell.Slice, error) {
	if s.kind != KindSlice {
		return nil, newVMError(TypeCheck, 0)
	}
	return s.s, nil
}

func (s StackItem) Builder() (*cell.Builder, error) {
	if s.kind != KindBuilder {
		return nil, newVMError(TypeCheck, 0)
	}
	return s.b, nil
}

func (s StackItem) Continuation() (*Continuation, error) {
	if s.kind != KindContinuation {
		return nil, newVMError(TypeCheck, 0)
	}
	return s.k, nil
}

func (s StackItem) Tuple() ([]StackItem, error) {
	if s.kind != KindTuple {
		return nil, newVMError(TypeCheck, 0)
	}
	return s.t, nil
}

// Equal compares two stack items by value, treating tuples structurally
// (spec.md §3.3: "the engine treats them by value for equality").
func (a StackItem) Equal(b StackItem) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindInteger:
		if a.i.IsNaN() || b.i.IsNaN() {
			return false
		}
		c, err := Cmp(a.i, b.i)
		return err == nil && c == 0
	case KindCell:
		return a.c == b.c || (a.c != nil && b.c != nil && a.c.Hash() == b.c.Hash())
	case KindSlice:
		return a.s == b.s
	case KindBuilder:
		return a.b == b.b
	case KindContinuation:
		return a.k == b.k
	case KindTuple:
		if len(a.t) != len(b.t) {
			return false
		}
		for i := range a.t {
			if !a.t[i].Equal(b.t[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// Stack is the ordered operand stack (spec.md §3.4). Index 0 is the
// bottom; the last element is the top.
type Stack struct {
	items []StackItem
}

// NewStack returns an empty stack.
func NewStack() *Stack { return &Stack{} }

// Depth returns the current number of items.
func (s *Stack) Depth() int { return len(s.items) }

// Push appends an item to the top.
func (s *Stack) Push(v StackItem) { s.items = append(s.items, v) }

// Pop removes and returns the top item.
func (s *Stack) Pop() (StackItem, error) {
	if len(s.items) == 0 {
		return StackItem{}, newVMError(StackUnderflow, 0)
	}
	v := s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]
	return v, nil
}

// Top returns the top item without removing it.
func (s *Stack) Top() (StackItem, error) {
	if len(s.items) == 0 {
		return StackItem{}, newVMError(StackUnderflow, 0)
	}
	return s.items[len(s.items)-1], nil
}

// At returns the item at depth n below the top (0 = top).
func (s *Stack) At(n int) (StackItem, error) {
	idx := len(s.items) - 1 - n
	if n < 0 || idx < 0 {
		return StackItem{}, newVMError(StackUnderflow, 0)
	}
	return s.items[idx], nil
}

// SetAt overwrites the item at depth n below the top.
func (s *Stack) SetAt(n int, v StackItem) error {
	idx := len(s.items) - 1 - n
	if n < 0 || idx < 0 {
		return newVMError(StackUnderflow, 0)
	}
	s.items[idx] = v
	return nil
}

// PushDup duplicates the item at depth n onto the top (PUSH n).
func (s *Stack) PushDup(n int) error {
	v, err := s.At(n)
	if err != nil {
		return err
	}
	s.Push(v)
	return nil
}

// Pop replaces the item at depth n with the current top, dropping the top
// (POP n).
func (s *Stack) PopTo(n int) error {
	top, err := s.Pop()
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	return s.SetAt(n-1, top)
}

// Xchg swaps the items at depths i and j.
func (s *Stack) Xchg(i, j int) error {
	vi, err := s.At(i)
	if err != nil {
		return err
	}
	vj, err := s.At(j)
	if err != nil {
		return err
	}
	if err := s.SetAt(i, vj); err != nil {
		return err
	}
	return s.SetAt(j, vi)
}

// Drop removes the top n items.
func (s *Stack) Drop(n int) error {
	if n < 0 || n > len(s.items) {
		return newVMError(StackUnderflow, 0)
	}
	s.items = s.items[:len(s.items)-n]
	return nil
}

// BlkSwap rotates the top i+j items, bringing the bottom i of that window
// above the top j (spec.md §4.2).
func (s *Stack) BlkSwap(i, j int) error {
	total := i + j
	if total < 0 || total > len(s.items) {
		return newVMError(StackUnderflow, 0)
	}
	base := len(s.items) - total
	window := append([]StackItem{}, s.items[base:]...)
	rotated := append(append([]StackItem{}, window[i:]...), window[:i]...)
	copy(s.items[base:], rotated)
	return nil
}

// Roll rotates the top n+1 items so the (n)-th item moves to the top.
func (s *Stack) Roll(n int) error {
	if n < 0 || n+1 > len(s.items) {
		return newVMError(StackUnderflow, 0)
	}
	base := len(s.items) - (n + 1)
	v := s.items[base]
	copy(s.items[base:], s.items[base+1:])
	s.items[len(s.items)-1] = v
	return nil
}

// RollRev is Roll's inverse: the top item moves down to depth n.
func (s *Stack) RollRev(n int) error {
	if n < 0 || n+1 > len(s.items) {
		return newVMError(StackUnderflow, 0)
	}
	base := len(s.items) - (n + 1)
	v := s.items[len(s.items)-1]
	copy(s.items[base+1:], s.items[base:len(s.items)-1])
	s.items[base] = v
	return nil
}

// Reverse reverses i items starting at depth j below the top.
func (s *Stack) Reverse(i, j int) error {
	if i < 0 || j < 0 || j+i > len(s.items) {
		return newVMError(StackUnderflow, 0)
	}
	lo := len(s.items) - j - i
	hi := len(s.items) - j - 1
	for lo < hi {
		s.items[lo], s.items[hi] = s.items[hi], s.items[lo]
		lo++
		hi--
	}
	return nil
}

// Snapshot returns an independent copy of the current items, used when a
// continuation must carry its own saved stack.
func (s *Stack) Snapshot() []StackItem {
	cp := make([]StackItem, len(s.items))
	copy(cp, s.items)
	return cp
}

// Truncate resets the stack to exactly the given depth, dropping any
// excess top items — the primitive TRYKEEP's catch-time truncation
// (spec.md §4.1.3) relies on.
func (s *Stack) Truncate(depth int) error {
	if depth < 0 || depth > len(s.items) {
		return newVMError(StackUnderflow, 0)
	}
	s.items = s.items[:depth]
	return nil
}
