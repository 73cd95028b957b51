// Copyright 2024 The ever-vm Authors
// This file is part of ever-vm.
//
// ever-vm is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package tvm

import "github.com/everx-labs/ever-vm/tvm/cell"

// Small immediate-decoding helpers shared across the handler family files,
// each reading exactly the bits one opcode's encoding defines and packing
// them into Operands (spec.md §4.7).

func decodeNone(s *cell.Slice) (Operands, error) { return Operands{}, nil }

func decodeU8(s *cell.Slice) (Operands, error) {
	v, err := s.LoadUint(8)
	if err != nil {
		return Operands{}, err
	}
	return Operands{UInt: v, Int: int64(v)}, nil
}

func decodeI8(s *cell.Slice) (Operands, error) {
	v, err := s.LoadInt(8)
	if err != nil {
		return Operands{}, err
	}
	return Operands{Int: v}, nil
}

func decodeU16(s *cell.Slice) (Operands, error) {
	v, err := s.LoadUint(16)
	if err != nil {
		return Operands{}, err
	}
	return Operands{UInt: v, Int: int64(v)}, nil
}

func decodeU64(s *cell.Slice) (Operands, error) {
	v, err := s.LoadUint(64)
	if err != nil {
		return Operands{}, err
	}
	return Operands{UInt: v}, nil
}

// decodeNibblePair reads two 4-bit fields (i, j), the encoding BLKSWAP,
// REVERSE, and the two-register forms use.
func decodeNibblePair(s *cell.Slice) (Operands, error) {
	i, err := s.LoadUint(4)
	if err != nil {
		return Operands{}, err
	}
	j, err := s.LoadUint(4)
	if err != nil {
		return Operands{}, err
	}
	return Operands{Int: int64(i), Spec: int64(j)}, nil
}

// decodeNibble reads a single 4-bit field, the control-register index
// encoding PUSHCTR/POPCTR/SAVE use.
func decodeNibble(s *cell.Slice) (Operands, error) {
	v, err := s.LoadUint(4)
	if err != nil {
		return Operands{}, err
	}
	return Operands{Int: int64(v)}, nil
}

// decodeRefCont reads the next child cell reference of the current code and
// wraps it as a fresh Ordinary continuation — CALLREF/JMPREF/PUSHCONT's
// shared encoding (spec.md §4.1.1; bodies live in a ref rather than inline
// bits, the common real-world case for anything but trivial one-liners).
func decodeRefCont(s *cell.Slice) (Operands, error) {
	c, err := s.LoadRef()
	if err != nil {
		return Operands{}, err
	}
	return Operands{Cont: NewOrdinary(c.NewSlice())}, nil
}

// decodeBigInt reads an 8-bit bit-width n followed by n sign bits packed
// MSB-first, PUSHINT's general encoding for values that do not fit a small
// immediate.
func decodeBigInt(s *cell.Slice) (Operands, error) {
	n, err := s.LoadUint(8)
	if err != nil {
		return Operands{}, err
	}
	data, err := s.LoadBitsMSB(int(n))
	if err != nil {
		return Operands{}, err
	}
	v := FromBytesMSB(data, int(n), false)
	return Operands{Big: &v}, nil
}

// decodeSliceLiteral reads an 8-bit bit-count n followed by n bits, the
// encoding SDBEGINS-class primitives use for an inline bit-pattern operand.
func decodeSliceLiteral(s *cell.Slice) (Operands, error) {
	n, err := s.LoadUint(8)
	if err != nil {
		return Operands{}, err
	}
	data, err := s.LoadBitsMSB(int(n))
	if err != nil {
		return Operands{}, err
	}
	return Operands{Raw: data, Int: int64(n)}, nil
}

func popInt(e *Engine) (IntegerData, error) {
	v, err := e.stack.Pop()
	if err != nil {
		return IntegerData{}, err
	}
	return v.Integer()
}

func popBool(e *Engine) (bool, error) {
	v, err := popInt(e)
	if err != nil {
		return false, err
	}
	if v.IsNaN() {
		return false, newVMError(IntegerOverflow, 0)
	}
	return v.BigInt().Sign() != 0, nil
}

func pushBool(e *Engine, b bool) {
	if b {
		e.stack.Push(NewInteger(FromInt64(-1)))
	} else {
		e.stack.Push(NewInteger(FromInt64(0)))
	}
}

func popCont(e *Engine) (*Continuation, error) {
	v, err := e.stack.Pop()
	if err != nil {
		return nil, err
	}
	return v.Continuation()
}

func popCell(e *Engine) (*cell.Cell, error) {
	v, err := e.stack.Pop()
	if err != nil {
		return nil, err
	}
	return v.Cell()
}

func popSlice(e *Engine) (*cell.Slice, error) {
	v, err := e.stack.Pop()
	if err != nil {
		return nil, err
	}
	return v.Slice()
}

func popBuilder(e *Engine) (*cell.Builder, error) {
	v, err := e.stack.Pop()
	if err != nil {
		return nil, err
	}
	return v.Builder()
}
