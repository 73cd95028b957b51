// Copyright 2024 The ever-vm Authors
// This file is part of ever-vm.
//
// ever-vm is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package tvm

import (
	"github.com/everx-labs/ever-vm/common"
	"github.com/everx-labs/ever-vm/tvm/cell"
)

// registerCell wires the cell/slice/builder family (spec.md §4.5) to opcode
// prefixes 0x40-0x5F.
func registerCell(r *Registry) {
	r.add("NEWC", 0x40, 8, 0, HandlerFunc(opNewc), decodeNone)
	r.add("ENDC", 0x41, 8, 0, HandlerFunc(opEndc), decodeNone)
	r.add("STU", 0x42, 8, 0, HandlerFunc(opStu), decodeU8)
	r.add("STI", 0x43, 8, 0, HandlerFunc(opSti), decodeU8)
	r.add("STREF", 0x44, 8, 0, HandlerFunc(opStref), decodeNone)
	r.add("STSLICE", 0x45, 8, 0, HandlerFunc(opStslice), decodeNone)
	r.add("STDICT", 0x46, 8, 0, HandlerFunc(opStdict), decodeNone)
	r.add("CTOS", 0x47, 8, 0, HandlerFunc(opCtos), decodeNone)
	r.add("LDU", 0x48, 8, 0, HandlerFunc(opLdu), decodeU8)
	r.add("LDI", 0x49, 8, 0, HandlerFunc(opLdi), decodeU8)
	r.add("LDREF", 0x4A, 8, 0, HandlerFunc(opLdref), decodeNone)
	r.add("LDSLICE", 0x4B, 8, 0, HandlerFunc(opLdslice), decodeU8)
	r.add("LDDICT", 0x4C, 8, 0, HandlerFunc(opLddict), decodeNone)
	r.add("ENDS", 0x4D, 8, 0, HandlerFunc(opEnds), decodeNone)
	r.add("PLDU", 0x4E, 8, 0, HandlerFunc(opPldu), decodeU8)
	r.add("PLDI", 0x4F, 8, 0, HandlerFunc(opPldi), decodeU8)
	r.add("SCHKBITSQ", 0x50, 8, 0, HandlerFunc(opSchkbitsq), decodeU8)
	r.add("SDBEGINS", 0x51, 8, 0, HandlerFunc(opSdbegins), decodeSliceLiteral)
	r.add("DATASIZE", 0x52, 8, 0, HandlerFunc(opDatasize), decodeNone)
	r.add("XLOAD", 0x53, 8, 0, HandlerFunc(opXload), decodeNone)
	r.add("ENDXC", 0x54, 8, 0, HandlerFunc(opEndxc), decodeNone)
}

// maxDataSizeCells bounds DATASIZE's traversal (spec.md §4.5 CellOverflow
// condition).
const maxDataSizeCells = 1 << 20

func opNewc(e *Engine, ops Operands) error {
	e.stack.Push(NewBuilder(cell.NewBuilder()))
	return nil
}

func opEndc(e *Engine, ops Operands) error {
	b, err := popBuilder(e)
	if err != nil {
		return err
	}
	if err := e.gas.ChargeFinalize(); err != nil {
		return err
	}
	c, err := b.Finalize()
	if err != nil {
		return cellErr(err)
	}
	e.stack.Push(NewCell(c))
	return nil
}

func opStu(e *Engine, ops Operands) error {
	b, err := popBuilder(e)
	if err != nil {
		return err
	}
	v, err := popInt(e)
	if err != nil {
		return err
	}
	data, err := v.ToBytesMSB(int(ops.UInt), true)
	if err != nil {
		return err
	}
	if err := e.gas.ChargeBuilder(int(ops.UInt), 0); err != nil {
		return err
	}
	if err := b.StoreBitsMSB(data, int(ops.UInt)); err != nil {
		return cellErr(err)
	}
	e.stack.Push(NewBuilder(b))
	return nil
}

func opSti(e *Engine, ops Operands) error {
	b, err := popBuilder(e)
	if err != nil {
		return err
	}
	v, err := popInt(e)
	if err != nil {
		return err
	}
	data, err := v.ToBytesMSB(int(ops.UInt), false)
	if err != nil {
		return err
	}
	if err := e.gas.ChargeBuilder(int(ops.UInt), 0); err != nil {
		return err
	}
	if err := b.StoreBitsMSB(data, int(ops.UInt)); err != nil {
		return cellErr(err)
	}
	e.stack.Push(NewBuilder(b))
	return nil
}

func opStref(e *Engine, ops Operands) error {
	b, err := popBuilder(e)
	if err != nil {
		return err
	}
	c, err := popCell(e)
	if err != nil {
		return err
	}
	if err := e.gas.ChargeBuilder(0, 1); err != nil {
		return err
	}
	if err := b.StoreRef(c); err != nil {
		return cellErr(err)
	}
	e.stack.Push(NewBuilder(b))
	return nil
}

func opStslice(e *Engine, ops Operands) error {
	b, err := popBuilder(e)
	if err != nil {
		return err
	}
	s, err := popSlice(e)
	if err != nil {
		return err
	}
	if err := e.gas.ChargeBuilder(s.RemainingBits(), s.RemainingRefs()); err != nil {
		return err
	}
	if err := b.StoreSlice(s); err != nil {
		return cellErr(err)
	}
	e.stack.Push(NewBuilder(b))
	return nil
}

func opStdict(e *Engine, ops Operands) error {
	b, err := popBuilder(e)
	if err != nil {
		return err
	}
	v, err := e.stack.Pop()
	if err != nil {
		return err
	}
	if v.IsNull() {
		if err := b.StoreUint(0, 1); err != nil {
			return cellErr(err)
		}
		e.stack.Push(NewBuilder(b))
		return nil
	}
	c, err := v.Cell()
	if err != nil {
		return err
	}
	if err := e.gas.ChargeBuilder(1, 1); err != nil {
		return err
	}
	if err := b.StoreUint(1, 1); err != nil {
		return cellErr(err)
	}
	if err := b.StoreRef(c); err != nil {
		return cellErr(err)
	}
	e.stack.Push(NewBuilder(b))
	return nil
}

func opCtos(e *Engine, ops Operands) error {
	c, err := popCell(e)
	if err != nil {
		return err
	}
	if err := e.gas.ChargeCellLoad(c.Hash()); err != nil {
		return err
	}
	e.stack.Push(NewSlice(c.NewSlice()))
	return nil
}

func opLdu(e *Engine, ops Operands) error {
	s, err := popSlice(e)
	if err != nil {
		return err
	}
	v, err := s.LoadUint(int(ops.UInt))
	if err != nil {
		return cellErr(err)
	}
	e.stack.Push(NewSlice(s))
	e.stack.Push(NewInteger(FromInt64(int64(v))))
	return nil
}

func opLdi(e *Engine, ops Operands) error {
	s, err := popSlice(e)
	if err != nil {
		return err
	}
	v, err := s.LoadInt(int(ops.UInt))
	if err != nil {
		return cellErr(err)
	}
	e.stack.Push(NewSlice(s))
	e.stack.Push(NewInteger(FromInt64(v)))
	return nil
}

func opLdref(e *Engine, ops Operands) error {
	s, err := popSlice(e)
	if err != nil {
		return err
	}
	c, err := s.LoadRef()
	if err != nil {
		return cellErr(err)
	}
	e.stack.Push(NewSlice(s))
	e.stack.Push(NewCell(c))
	return nil
}

func opLdslice(e *Engine, ops Operands) error {
	s, err := popSlice(e)
	if err != nil {
		return err
	}
	sub, err := s.LoadSlice(int(ops.UInt))
	if err != nil {
		return cellErr(err)
	}
	e.stack.Push(NewSlice(s))
	e.stack.Push(NewSlice(sub))
	return nil
}

func opLddict(e *Engine, ops Operands) error {
	s, err := popSlice(e)
	if err != nil {
		return err
	}
	flag, err := s.LoadUint(1)
	if err != nil {
		return cellErr(err)
	}
	e.stack.Push(NewSlice(s))
	if flag == 0 {
		e.stack.Push(Null)
		return nil
	}
	c, err := s.LoadRef()
	if err != nil {
		return cellErr(err)
	}
	e.stack.Push(NewCell(c))
	return nil
}

func opEnds(e *Engine, ops Operands) error {
	s, err := popSlice(e)
	if err != nil {
		return err
	}
	if !s.IsEmpty() {
		return newVMError(CellUnderflow, 0)
	}
	return nil
}

func opPldu(e *Engine, ops Operands) error {
	s, err := popSlice(e)
	if err != nil {
		return err
	}
	v, err := s.PreloadUint(int(ops.UInt))
	if err != nil {
		return cellErr(err)
	}
	e.stack.Push(NewInteger(FromInt64(int64(v))))
	return nil
}

func opPldi(e *Engine, ops Operands) error {
	s, err := popSlice(e)
	if err != nil {
		return err
	}
	v, err := s.PreloadUint(int(ops.UInt))
	if err != nil {
		return cellErr(err)
	}
	n := int(ops.UInt)
	iv := int64(v)
	if n < 64 {
		signBit := int64(1) << (n - 1)
		if iv&signBit != 0 {
			iv -= int64(1) << n
		}
	}
	e.stack.Push(NewInteger(FromInt64(iv)))
	return nil
}

func opSchkbitsq(e *Engine, ops Operands) error {
	s, err := popSlice(e)
	if err != nil {
		return err
	}
	pushBool(e, s.RemainingBits() >= int(ops.UInt))
	return nil
}

func opSdbegins(e *Engine, ops Operands) error {
	s, err := popSlice(e)
	if err != nil {
		return err
	}
	ok, err := s.BeginsWith(ops.Raw, int(ops.Int))
	if err != nil {
		return cellErr(err)
	}
	if !ok {
		return newVMError(CellUnderflow, 0)
	}
	if err := s.SkipBits(int(ops.Int)); err != nil {
		return cellErr(err)
	}
	e.stack.Push(NewSlice(s))
	return nil
}

func opDatasize(e *Engine, ops Operands) error {
	c, err := popCell(e)
	if err != nil {
		return err
	}
	cells, bits, refs, ok := cell.DataSize(c, maxDataSizeCells)
	if !ok {
		return newVMError(CellOverflow, 0)
	}
	e.stack.Push(NewInteger(FromInt64(int64(cells))))
	e.stack.Push(NewInteger(FromInt64(int64(bits))))
	e.stack.Push(NewInteger(FromInt64(int64(refs))))
	return nil
}

// opXload implements XLOAD: pops a LibraryReference cell carrying a 256-bit
// hash as its sole data, resolves it through the engine's library cache,
// and pushes the resolved cell (spec.md §4.5 CTOS library resolution).
func opXload(e *Engine, ops Operands) error {
	c, err := popCell(e)
	if err != nil {
		return err
	}
	if c.Kind() != cell.LibraryReference {
		return newVMError(TypeCheck, 0)
	}
	raw, err := c.NewSlice().LoadBitsMSB(common.HashLength * 8)
	if err != nil {
		return cellErr(err)
	}
	hash := common.BytesToHash(raw)
	resolved, ok := e.Libraries().Resolve(hash)
	if !ok {
		return newVMError(CellUnderflow, 0)
	}
	if err := e.gas.ChargeCellLoad(resolved.Hash()); err != nil {
		return err
	}
	e.stack.Push(NewCell(resolved))
	return nil
}

func opEndxc(e *Engine, ops Operands) error {
	b, err := popBuilder(e)
	if err != nil {
		return err
	}
	special, err := popBool(e)
	if err != nil {
		return err
	}
	if special {
		if err := b.SetKind(cell.PrunedBranch); err != nil {
			return cellErr(err)
		}
	}
	if err := e.gas.ChargeFinalize(); err != nil {
		return err
	}
	c, err := b.Finalize()
	if err != nil {
		return cellErr(err)
	}
	e.stack.Push(NewCell(c))
	return nil
}

// cellErr maps a tvm/cell package error into the matching VM exception
// code (spec.md §4.5/§7).
func cellErr(err error) error {
	switch err {
	case cell.ErrOverflow:
		return newVMError(CellOverflow, 0)
	case cell.ErrUnderflow:
		return newVMError(CellUnderflow, 0)
	case cell.ErrBadExotic:
		return newVMError(TypeCheck, 0)
	default:
		return newVMError(CellUnderflow, 0)
	}
}
