// Copyright 2024 The ever-vm Authors
// This file is part of ever-vm.
//
// ever-vm is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package tvm

// stackOverThreshold is the depth beyond which the stack-manipulation
// handlers in this file charge an extra per-slot fee (spec.md §4.2).
const stackOverThreshold = 32

func chargeStackDepth(e *Engine, touchedDepth int) error {
	if touchedDepth <= stackOverThreshold {
		return nil
	}
	return e.gas.ChargeStackOver(touchedDepth - stackOverThreshold)
}

// registerStack wires the stack-manipulation family (spec.md §4.2) to
// opcode prefixes 0x00-0x1F.
func registerStack(r *Registry) {
	r.add("NOP", 0x00, 8, 0, HandlerFunc(opNop), decodeNone)
	r.add("XCHG0", 0x01, 8, 0, HandlerFunc(opXchg0), decodeU8)
	r.add("PUSH", 0x02, 8, 0, HandlerFunc(opPush), decodeU8)
	r.add("POP", 0x03, 8, 0, HandlerFunc(opPop), decodeU8)
	r.add("PUSHNULL", 0x04, 8, 0, HandlerFunc(opPushNull), decodeNone)
	r.add("DROP", 0x05, 8, 0, HandlerFunc(opDrop), decodeNone)
	r.add("DUP", 0x06, 8, 0, HandlerFunc(opDup), decodeNone)
	r.add("SWAP", 0x07, 8, 0, HandlerFunc(opSwap), decodeNone)
	r.add("ROT", 0x08, 8, 0, HandlerFunc(opRot), decodeNone)
	r.add("ROLL", 0x09, 8, 0, HandlerFunc(opRoll), decodeU8)
	r.add("ROLLREV", 0x0A, 8, 0, HandlerFunc(opRollRev), decodeU8)
	r.add("BLKSWAP", 0x0B, 8, 0, HandlerFunc(opBlkSwap), decodeNibblePair)
	r.add("REVERSE", 0x0C, 8, 0, HandlerFunc(opReverse), decodeNibblePair)
	r.add("DEPTH", 0x0D, 8, 0, HandlerFunc(opDepth), decodeNone)
	r.add("XCHG2", 0x0E, 8, 0, HandlerFunc(opXchg2), decodeNibblePair)
	r.add("TUCK", 0x0F, 8, 0, HandlerFunc(opTuck), decodeNone)
	r.add("OVER", 0x10, 8, 0, HandlerFunc(opOver), decodeNone)
	r.add("DROP2", 0x11, 8, 0, HandlerFunc(opDrop2), decodeNone)
	r.add("PUSHTUPLE", 0x12, 8, 0, HandlerFunc(opPushTuple), decodeU8)
	r.add("UNTUPLE", 0x13, 8, 0, HandlerFunc(opUnTuple), decodeU8)
	r.add("INDEX", 0x14, 8, 0, HandlerFunc(opIndex), decodeU8)
	r.add("NIP", 0x15, 8, 0, HandlerFunc(opNip), decodeNone)
	r.add("PICK", 0x16, 8, 0, HandlerFunc(opPick), decodeNone)
}

func opNop(e *Engine, ops Operands) error { return nil }

func opXchg0(e *Engine, ops Operands) error {
	if err := chargeStackDepth(e, int(ops.UInt)); err != nil {
		return err
	}
	return e.stack.Xchg(0, int(ops.UInt))
}

func opPush(e *Engine, ops Operands) error {
	if err := chargeStackDepth(e, int(ops.UInt)); err != nil {
		return err
	}
	return e.stack.PushDup(int(ops.UInt))
}

func opPop(e *Engine, ops Operands) error {
	if err := chargeStackDepth(e, int(ops.UInt)); err != nil {
		return err
	}
	return e.stack.PopTo(int(ops.UInt))
}

func opPushNull(e *Engine, ops Operands) error {
	e.stack.Push(Null)
	return nil
}

func opDrop(e *Engine, ops Operands) error {
	_, err := e.stack.Pop()
	return err
}

func opDup(e *Engine, ops Operands) error { return e.stack.PushDup(0) }

func opSwap(e *Engine, ops Operands) error { return e.stack.Xchg(0, 1) }

func opRot(e *Engine, ops Operands) error {
	// ROT: (a b c -- b c a), equivalent to rolling the top 3 so the third
	// from top moves to the top.
	return e.stack.Roll(2)
}

func opRoll(e *Engine, ops Operands) error {
	if err := chargeStackDepth(e, int(ops.UInt)); err != nil {
		return err
	}
	return e.stack.Roll(int(ops.UInt))
}

func opRollRev(e *Engine, ops Operands) error {
	if err := chargeStackDepth(e, int(ops.UInt)); err != nil {
		return err
	}
	return e.stack.RollRev(int(ops.UInt))
}

func opBlkSwap(e *Engine, ops Operands) error {
	i, j := int(ops.Int), int(ops.Spec)
	if err := chargeStackDepth(e, i+j); err != nil {
		return err
	}
	return e.stack.BlkSwap(i+1, j+1)
}

func opReverse(e *Engine, ops Operands) error {
	i, j := int(ops.Int), int(ops.Spec)
	if err := chargeStackDepth(e, i+j); err != nil {
		return err
	}
	return e.stack.Reverse(i+2, j)
}

func opDepth(e *Engine, ops Operands) error {
	e.stack.Push(NewInteger(FromInt64(int64(e.stack.Depth()))))
	return nil
}

func opXchg2(e *Engine, ops Operands) error {
	i, j := int(ops.Int), int(ops.Spec)
	if err := chargeStackDepth(e, i+j); err != nil {
		return err
	}
	return e.stack.Xchg(i, j)
}

func opTuck(e *Engine, ops Operands) error {
	// TUCK: (a b -- b a b)
	top, err := e.stack.Pop()
	if err != nil {
		return err
	}
	under, err := e.stack.Pop()
	if err != nil {
		return err
	}
	e.stack.Push(top)
	e.stack.Push(under)
	e.stack.Push(top)
	return nil
}

func opOver(e *Engine, ops Operands) error { return e.stack.PushDup(1) }

// opNip implements NIP: (a b -- b), dropping the second-from-top item.
func opNip(e *Engine, ops Operands) error {
	top, err := e.stack.Pop()
	if err != nil {
		return err
	}
	if _, err := e.stack.Pop(); err != nil {
		return err
	}
	e.stack.Push(top)
	return nil
}

// opPick implements PICK (spec.md §4.2): pop the top as an index n and
// push a copy of the item n deep in the remaining stack.
func opPick(e *Engine, ops Operands) error {
	n, err := popInt(e)
	if err != nil {
		return err
	}
	if n.IsNaN() {
		return newVMError(TypeCheck, 0)
	}
	idx := n.BigInt().Int64()
	if idx < 0 || idx >= int64(e.stack.Depth()) {
		return newVMError(RangeCheck, 0)
	}
	if err := chargeStackDepth(e, int(idx)); err != nil {
		return err
	}
	return e.stack.PushDup(int(idx))
}

func opDrop2(e *Engine, ops Operands) error { return e.stack.Drop(2) }

func opPushTuple(e *Engine, ops Operands) error {
	n := int(ops.UInt)
	if n < 0 || n > e.stack.Depth() {
		return newVMError(StackUnderflow, 0)
	}
	items := make([]StackItem, n)
	for i := n - 1; i >= 0; i-- {
		v, err := e.stack.Pop()
		if err != nil {
			return err
		}
		items[i] = v
	}
	t, err := NewTuple(items)
	if err != nil {
		return err
	}
	e.stack.Push(t)
	return nil
}

func opUnTuple(e *Engine, ops Operands) error {
	v, err := e.stack.Pop()
	if err != nil {
		return err
	}
	items, err := v.Tuple()
	if err != nil {
		return err
	}
	if len(items) != int(ops.UInt) {
		return newVMError(TypeCheck, 0)
	}
	for _, it := range items {
		e.stack.Push(it)
	}
	return nil
}

func opIndex(e *Engine, ops Operands) error {
	v, err := e.stack.Pop()
	if err != nil {
		return err
	}
	items, err := v.Tuple()
	if err != nil {
		return err
	}
	idx := int(ops.UInt)
	if idx < 0 || idx >= len(items) {
		return newVMError(RangeCheck, 0)
	}
	e.stack.Push(items[idx])
	return nil
}
