// Copyright 2024 The ever-vm Authors
// This file is part of ever-vm.
//
// ever-vm is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package tvmtest is the conformance harness for the engine in the
// parent tvm package: a small bytecode-builder (the exported analogue of
// tvm's own internal asm test helper, lang/vm/vm_test.go's instr/program
// style) plus the six concrete scenarios of spec.md §8.2, each run as its
// own test against the public tvm API only.
package tvmtest

import (
	"math/big"

	"github.com/everx-labs/ever-vm/tvm"
	"github.com/everx-labs/ever-vm/tvm/cell"
)

// Asm is a bytecode-builder: each method appends bits to the underlying
// cell and returns the receiver, so a program reads as a flat chain.
type Asm struct {
	b *cell.Builder
}

func New() *Asm { return &Asm{b: cell.NewBuilder()} }

func (a *Asm) Op(code byte) *Asm {
	if err := a.b.StoreUint(uint64(code), 8); err != nil {
		panic(err)
	}
	return a
}

func (a *Asm) U(v uint64, n int) *Asm {
	if err := a.b.StoreUint(v, n); err != nil {
		panic(err)
	}
	return a
}

// Big appends PUSHINTX's general encoding (0x38, an 8-bit width, then the
// signed two's-complement value packed MSB-first across width bits) for
// values that do not fit PUSHINT's 8-bit immediate.
func (a *Asm) Big(v *big.Int, width int) *Asm {
	a.Op(0x38)
	a.U(uint64(width), 8)
	if err := a.b.StoreBitsMSB(signedBitsMSB(v, width), width); err != nil {
		panic(err)
	}
	return a
}

func (a *Asm) Ref(c *cell.Cell) *Asm {
	if err := a.b.StoreRef(c); err != nil {
		panic(err)
	}
	return a
}

func (a *Asm) Finish() *cell.Cell {
	c, err := a.b.Finalize()
	if err != nil {
		panic(err)
	}
	return c
}

// signedBitsMSB packs v's two's-complement representation into exactly
// width bits, MSB-first, left-justified within the returned byte slice
// (the layout cell.Builder.StoreBitsMSB expects).
func signedBitsMSB(v *big.Int, width int) []byte {
	u := new(big.Int).Set(v)
	if v.Sign() < 0 {
		mod := new(big.Int).Lsh(big.NewInt(1), uint(width))
		u.Add(mod, v)
	}
	out := make([]byte, (width+7)/8)
	for i := 0; i < width; i++ {
		if u.Bit(width-1-i) == 1 {
			out[i/8] |= 1 << uint(7-i%8)
		}
	}
	return out
}

// Run executes code to completion with a fresh engine and an empty initial
// stack, the common case every scenario below needs.
func Run(code *cell.Cell, gasLimit uint64) *tvm.Output {
	in := &tvm.Input{
		Code:  code.NewSlice(),
		Stack: tvm.NewStack(),
		Gas:   tvm.NewGas(gasLimit, 0, tvm.DefaultPriceTable(), 0),
	}
	return tvm.Execute(in, tvm.NewRegistry())
}

// RunWithStack is Run, but seeded with an initial stack the caller built
// (scenarios 4 and 5 need a non-empty stack before the tested code runs).
func RunWithStack(code *cell.Cell, stack *tvm.Stack, gasLimit uint64) *tvm.Output {
	in := &tvm.Input{
		Code:  code.NewSlice(),
		Stack: stack,
		Gas:   tvm.NewGas(gasLimit, 0, tvm.DefaultPriceTable(), 0),
	}
	return tvm.Execute(in, tvm.NewRegistry())
}
