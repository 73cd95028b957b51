// Copyright 2024 The ever-vm Authors
// This file is part of ever-vm.
//
// ever-vm is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package tvm

// Control register indices (spec.md §3.5).
const (
	C0  = 0  // return continuation
	C1  = 1  // alternate return (conditional loops)
	C2  = 2  // exception handler continuation
	C3  = 3  // current code dictionary continuation
	C4  = 4  // root cell (persistent data)
	C5  = 5  // actions output (output action list)
	C7  = 7  // SmartContractInfo tuple
	C12 = 12
	C13 = 13
	C14 = 14
	C15 = 15

	numCtrlRegs = 16
)

// SaveList is the direct-indexed, sixteen-slot bank of control registers a
// Continuation carries (spec.md §3.5/§3.6). A nil slot means "not saved".
type SaveList struct {
	regs [numCtrlRegs]*StackItem
}

// Get returns the value at slot i, or (zero, false) if unset.
func (sl *SaveList) Get(i int) (StackItem, bool) {
	if i < 0 || i >= numCtrlRegs || sl.regs[i] == nil {
		return StackItem{}, false
	}
	return *sl.regs[i], true
}

// Has reports whether slot i is populated.
func (sl *SaveList) Has(i int) bool {
	return i >= 0 && i < numCtrlRegs && sl.regs[i] != nil
}

// Set writes v into slot i after validating its kind against the slot's
// required type (c7 must be a Tuple; c4/c5 must be a Cell), raising
// TypeCheck on mismatch, per spec.md §4.3.
func (sl *SaveList) Set(i int, v StackItem) error {
	if i < 0 || i >= numCtrlRegs {
		return newVMError(RangeCheck, 0)
	}
	if err := checkCtrlType(i, v); err != nil {
		return err
	}
	cp := v
	sl.regs[i] = &cp
	return nil
}

// SaveOnce copies the current value of slot i from src into sl only if sl
// does not already have it populated — the SAVE opcode's "save-once"
// semantics (spec.md §4.3).
func (sl *SaveList) SaveOnce(i int, src *SaveList) error {
	if sl.Has(i) {
		return nil
	}
	v, ok := src.Get(i)
	if !ok {
		return nil
	}
	return sl.Set(i, v)
}

func checkCtrlType(i int, v StackItem) error {
	switch i {
	case C7:
		if v.Kind() != KindTuple {
			return newVMError(TypeCheck, 0)
		}
	case C4, C5:
		if v.Kind() != KindCell {
			return newVMError(TypeCheck, 0)
		}
	}
	return nil
}

// Clone returns an independent copy of the save list (slots share their
// StackItem payloads by handle, per spec.md §5).
func (sl *SaveList) Clone() *SaveList {
	cp := &SaveList{}
	copy(cp.regs[:], sl.regs[:])
	return cp
}
