// Copyright 2024 The ever-vm Authors
// This file is part of ever-vm.
//
// ever-vm is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package tvm

import "github.com/everx-labs/ever-vm/tvm/cell"

// registerDict wires the dictionary family (spec.md §4.5 supplement, backed
// by the simplified tvm/cell.Dict bit-trie) to opcode prefixes 0x90-0x9F.
// Keys are carried as plain uint64s (spec.md's "Supplemented features"
// documents the 64-bit key-width simplification).
func registerDict(r *Registry) {
	r.add("DICTIGET", 0x90, 8, 0, HandlerFunc(opDictiget), decodeU8)
	r.add("DICTISET", 0x91, 8, 0, HandlerFunc(opDictiset), decodeU8)
	r.add("DICTIDEL", 0x92, 8, 0, HandlerFunc(opDictidel), decodeU8)
}

func dictErr(err error) error {
	if err == cell.ErrDictMalformed {
		return newVMError(DictError, 0)
	}
	return newVMError(DictError, 0)
}

// opDictiget: (key dict keyBits -- value found?), dict may be Null.
func opDictiget(e *Engine, ops Operands) error {
	d, err := e.stack.Pop()
	if err != nil {
		return err
	}
	k, err := popInt(e)
	if err != nil {
		return err
	}
	if d.IsNull() || k.IsNaN() {
		pushBool(e, false)
		return nil
	}
	root, err := d.Cell()
	if err != nil {
		return err
	}
	key := uint64(k.BigInt().Int64())
	leaf, found, err := cell.DictGet(root, int(ops.UInt), key)
	if err != nil {
		return dictErr(err)
	}
	if !found {
		pushBool(e, false)
		return nil
	}
	e.stack.Push(NewSlice(leaf.NewSlice()))
	pushBool(e, true)
	return nil
}

// opDictiset: (value key dict keyBits -- newDict).
func opDictiset(e *Engine, ops Operands) error {
	d, err := e.stack.Pop()
	if err != nil {
		return err
	}
	k, err := popInt(e)
	if err != nil {
		return err
	}
	val, err := popSlice(e)
	if err != nil {
		return err
	}
	var root *cell.Cell
	if !d.IsNull() {
		root, err = d.Cell()
		if err != nil {
			return err
		}
	}
	b := cell.NewBuilder()
	if err := b.StoreSlice(val); err != nil {
		return cellErr(err)
	}
	leaf, err := b.Finalize()
	if err != nil {
		return cellErr(err)
	}
	if k.IsNaN() {
		return newVMError(IntegerOverflow, 0)
	}
	key := uint64(k.BigInt().Int64())
	newRoot, err := cell.DictSet(root, int(ops.UInt), key, leaf)
	if err != nil {
		return dictErr(err)
	}
	e.stack.Push(NewCell(newRoot))
	return nil
}

// opDictidel: (key dict keyBits -- newDict found?).
func opDictidel(e *Engine, ops Operands) error {
	d, err := e.stack.Pop()
	if err != nil {
		return err
	}
	k, err := popInt(e)
	if err != nil {
		return err
	}
	if d.IsNull() || k.IsNaN() {
		e.stack.Push(Null)
		pushBool(e, false)
		return nil
	}
	root, err := d.Cell()
	if err != nil {
		return err
	}
	key := uint64(k.BigInt().Int64())
	newRoot, found, err := cell.DictDelete(root, int(ops.UInt), key)
	if err != nil {
		return dictErr(err)
	}
	if newRoot == nil {
		e.stack.Push(Null)
	} else {
		e.stack.Push(NewCell(newRoot))
	}
	pushBool(e, found)
	return nil
}
