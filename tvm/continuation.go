// Copyright 2024 The ever-vm Authors
// This file is part of ever-vm.
//
// ever-vm is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package tvm

import "github.com/everx-labs/ever-vm/tvm/cell"

// ContKind distinguishes the continuation type variants of spec.md §3.6.
// Only Ordinary continuations carry directly executable code; the others
// are control-flow drivers the engine interprets specially when they
// become cc (see engine.go switchTo).
type ContKind uint8

const (
	ContOrdinary ContKind = iota
	ContTryCatch
	ContCatchRevert
	ContUntil
	ContRepeat
	ContAgain
	ContWhileCond
	ContWhileBody
	ContExcQuit
	ContPushInt
)

// Continuation is a first-class, resumable code value (spec.md §3.6): a
// code pointer plus an optional saved stack, saved control registers, and
// an nargs limit, with a type variant that governs return semantics.
type Continuation struct {
	Kind ContKind

	Code  *cell.Slice // nil for driver variants that never execute bytecode directly
	Nargs int         // -1 = all
	Stack []StackItem // closure stack SETCONTVARARGS populates
	Saved SaveList

	// ContCatchRevert payload: stack is truncated to exactly this depth on
	// catch (TRYKEEP, spec.md §4.1.3).
	CatchDepth int

	// ContRepeat payload.
	RepeatCount int64

	// Loop driver payload (ContUntil/ContRepeat/ContAgain/ContWhileCond/
	// ContWhileBody): the body (and, for while, the condition) to re-run.
	Body *Continuation
	Cond *Continuation

	// ContPushInt payload.
	PushValue IntegerData
}

// NewOrdinary wraps a code slice as a plain sequential continuation.
func NewOrdinary(code *cell.Slice) *Continuation {
	return &Continuation{Kind: ContOrdinary, Code: code, Nargs: -1}
}

// NewExcQuit returns the terminal continuation that ends execution and
// surfaces the pending exception to the host (spec.md GLOSSARY).
func NewExcQuit() *Continuation { return &Continuation{Kind: ContExcQuit, Nargs: -1} }

// NewPushInt returns the optimized value-push continuation: invoking it
// pushes x then performs an implicit RET via after.
func NewPushInt(x IntegerData, after *Continuation) *Continuation {
	k := &Continuation{Kind: ContPushInt, Nargs: -1, PushValue: x}
	_ = k.Saved.Set(C0, NewContinuation(after))
	return k
}

// Clone deep-copies only what switching-while-preserving-the-donor
// requires: the savelist (its payload items remain shared handles) and
// loop/catch scalar fields. Code slices and closure stacks are shared by
// reference, consistent with spec.md §5/§9 (copy-on-write at the handle
// boundary, never a blanket deep clone).
func (k *Continuation) Clone() *Continuation {
	cp := *k
	cp.Saved = *k.Saved.Clone()
	return &cp
}

// WithNargs returns a copy of k with its nargs limit set (SETCONTARGS-style
// wrapping). No registered opcode calls it.
func (k *Continuation) WithNargs(n int) *Continuation {
	cp := k.Clone()
	cp.Nargs = n
	return cp
}
