// Copyright 2024 The ever-vm Authors
// This file is part of ever-vm.
//
// ever-vm is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package tvm

// registerCtrl wires the control-register family (spec.md §4.3) to opcode
// prefixes 0x60-0x6F.
func registerCtrl(r *Registry) {
	r.add("PUSHCTR", 0x60, 8, 0, HandlerFunc(opPushCtr), decodeNibble)
	r.add("POPCTR", 0x61, 8, 0, HandlerFunc(opPopCtr), decodeNibble)
	r.add("SAVE", 0x62, 8, 0, HandlerFunc(opSave), decodeNibble)
}

func opPushCtr(e *Engine, ops Operands) error {
	v, ok := e.ctrls.Get(int(ops.Int))
	if !ok {
		return newVMError(RangeCheck, 0)
	}
	e.stack.Push(v)
	return nil
}

func opPopCtr(e *Engine, ops Operands) error {
	v, err := e.stack.Pop()
	if err != nil {
		return err
	}
	return e.ctrls.Set(int(ops.Int), v)
}

// opSave implements the SAVE i opcode: copy the live value of ctrl register
// i into cc's own savelist, but only if cc does not already carry one for
// that slot (spec.md §4.3's save-once rule — repeated SAVE within the same
// continuation is a no-op on the second call).
func opSave(e *Engine, ops Operands) error {
	return e.cc.Saved.SaveOnce(int(ops.Int), &e.ctrls)
}
