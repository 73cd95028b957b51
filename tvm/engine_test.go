// Copyright 2024 The ever-vm Authors
// This file is part of ever-vm.
//
// ever-vm is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package tvm

import (
	"testing"

	"github.com/everx-labs/ever-vm/tvm/cell"
	"github.com/stretchr/testify/require"
)

// asm is a tiny bytecode-builder helper in the teacher's table-driven test
// style (lang/vm/vm_test.go's instr/program helpers), generalized from
// fixed-width bytes to the bit-level encoding this decoder uses.
type asm struct {
	b *cell.Builder
}

func newAsm() *asm { return &asm{b: cell.NewBuilder()} }

func (a *asm) op(code byte) *asm {
	if err := a.b.StoreUint(uint64(code), 8); err != nil {
		panic(err)
	}
	return a
}

func (a *asm) u(v uint64, n int) *asm {
	if err := a.b.StoreUint(v, n); err != nil {
		panic(err)
	}
	return a
}

func (a *asm) ref(c *cell.Cell) *asm {
	if err := a.b.StoreRef(c); err != nil {
		panic(err)
	}
	return a
}

func (a *asm) finish() *cell.Cell {
	c, err := a.b.Finalize()
	if err != nil {
		panic(err)
	}
	return c
}

func runProgram(t *testing.T, code *cell.Cell, gasLimit uint64) *Output {
	t.Helper()
	registry := NewRegistry()
	in := &Input{
		Code:  code.NewSlice(),
		Stack: NewStack(),
		Gas:   NewGas(gasLimit, 0, DefaultPriceTable(), 0),
	}
	return Execute(in, registry)
}

func TestArithmeticAdd(t *testing.T) {
	code := newAsm().
		op(0x20).u(100, 8). // PUSHINT 100
		op(0x20).u(5, 8).   // PUSHINT 5
		op(0x21).           // ADD
		finish()
	out := runProgram(t, code, 1_000_000)
	require.Equal(t, NormalExit, out.ExitCode)
	require.Equal(t, 1, out.Stack.Depth())
	v, err := out.Stack.Pop()
	require.NoError(t, err)
	iv, err := v.Integer()
	require.NoError(t, err)
	require.Equal(t, int64(105), iv.BigInt().Int64())
}

func TestDivisionByZeroRaisesIntegerOverflow(t *testing.T) {
	code := newAsm().
		op(0x20).u(10, 8). // PUSHINT 10
		op(0x20).u(0, 8).  // PUSHINT 0
		op(0x27).          // DIVMODFLOOR
		finish()
	out := runProgram(t, code, 1_000_000)
	require.Equal(t, IntegerOverflow, out.ExitCode)
}

func TestCellStoreLoadRoundTrip(t *testing.T) {
	// STI/STU consume (value, builder) with the builder on top (spec.md
	// §4.5's "x b -- b'"), so the value is pushed first and NEWC second;
	// symmetrically LDI/LDU leave (rest-of-slice, value) with the value on
	// top, so a SWAP brings the slice back to the top for ENDS to check.
	code := newAsm().
		op(0x20).u(77, 8).
		op(0x40).          // NEWC
		op(0x43).u(16, 8). // STI 16
		op(0x41).          // ENDC
		op(0x47).          // CTOS
		op(0x49).u(16, 8). // LDI 16
		op(0x07).          // SWAP
		op(0x4D).          // ENDS
		finish()
	out := runProgram(t, code, 1_000_000)
	require.Equal(t, NormalExit, out.ExitCode)
	require.Equal(t, 1, out.Stack.Depth())
	v, err := out.Stack.Pop()
	require.NoError(t, err)
	iv, err := v.Integer()
	require.NoError(t, err)
	require.Equal(t, int64(77), iv.BigInt().Int64())
}

func TestOutOfGasHalts(t *testing.T) {
	b := newAsm()
	// Two PUSHINTs per ADD so every ADD always has two operands available
	// (the running total plus the fresh push), regardless of where gas
	// runs out. 40 rounds keep the program inside one 1023-bit code cell.
	b.op(0x20).u(1, 8)
	for i := 0; i < 40; i++ {
		b.op(0x20).u(1, 8).op(0x21)
	}
	code := b.finish()
	out := runProgram(t, code, 20)
	require.Equal(t, OutOfGas, out.ExitCode)
}

func TestTryCatchCatchesThrow(t *testing.T) {
	body := newAsm().
		op(0x82).u(77, 16). // THROW 77
		finish()
	catch := newAsm().finish() // empty: falls straight through to implicit RET
	main := newAsm().
		op(0x70).ref(body).
		op(0x70).ref(catch).
		op(0x80). // TRY
		finish()
	out := runProgram(t, main, 1_000_000)
	require.Equal(t, NormalExit, out.ExitCode)
	require.Equal(t, 2, out.Stack.Depth())
	code, err := out.Stack.Pop()
	require.NoError(t, err)
	codeIV, err := code.Integer()
	require.NoError(t, err)
	require.Equal(t, int64(77), codeIV.BigInt().Int64())
	val, err := out.Stack.Pop()
	require.NoError(t, err)
	valIV, err := val.Integer()
	require.NoError(t, err)
	require.Equal(t, int64(0), valIV.BigInt().Int64())
}

// TestTryContinuesAfterBodyOnSuccess covers the success path: when body
// completes without raising, execution must resume at the code following
// TRY rather than halting on the live (outer) c0.
func TestTryContinuesAfterBodyOnSuccess(t *testing.T) {
	body := newAsm().
		op(0x20).u(1, 8). // PUSHINT 1
		finish()
	catch := newAsm().finish()
	main := newAsm().
		op(0x70).ref(body).
		op(0x70).ref(catch).
		op(0x80).          // TRY
		op(0x20).u(42, 8). // PUSHINT 42: must still run after TRY completes
		finish()
	out := runProgram(t, main, 1_000_000)
	require.Equal(t, NormalExit, out.ExitCode)
	require.Equal(t, 2, out.Stack.Depth())
	top, err := out.Stack.Pop()
	require.NoError(t, err)
	topIV, err := top.Integer()
	require.NoError(t, err)
	require.Equal(t, int64(42), topIV.BigInt().Int64())
	rest, err := out.Stack.Pop()
	require.NoError(t, err)
	restIV, err := rest.Integer()
	require.NoError(t, err)
	require.Equal(t, int64(1), restIV.BigInt().Int64())
}

// TestTryCatchContinuesAfterCatchOnException is the same check on the
// exception path: once the catch body finishes, execution must also
// resume after TRY.
func TestTryCatchContinuesAfterCatchOnException(t *testing.T) {
	body := newAsm().
		op(0x82).u(5, 16). // THROW 5
		finish()
	catch := newAsm().
		op(0x05). // DROP the thrown code
		op(0x05). // DROP the thrown value
		finish()
	main := newAsm().
		op(0x70).ref(body).
		op(0x70).ref(catch).
		op(0x80).          // TRY
		op(0x20).u(9, 8).  // PUSHINT 9: must still run after TRY completes
		finish()
	out := runProgram(t, main, 1_000_000)
	require.Equal(t, NormalExit, out.ExitCode)
	require.Equal(t, 1, out.Stack.Depth())
	v, err := out.Stack.Pop()
	require.NoError(t, err)
	iv, err := v.Integer()
	require.NoError(t, err)
	require.Equal(t, int64(9), iv.BigInt().Int64())
}

func TestNipDropsSecondFromTop(t *testing.T) {
	code := newAsm().
		op(0x20).u(1, 8).
		op(0x20).u(2, 8).
		op(0x15). // NIP
		finish()
	out := runProgram(t, code, 1_000_000)
	require.Equal(t, NormalExit, out.ExitCode)
	require.Equal(t, 1, out.Stack.Depth())
	v, err := out.Stack.Pop()
	require.NoError(t, err)
	iv, err := v.Integer()
	require.NoError(t, err)
	require.Equal(t, int64(2), iv.BigInt().Int64())
}

func TestPickPushesIndexedCopy(t *testing.T) {
	code := newAsm().
		op(0x20).u(10, 8).
		op(0x20).u(20, 8).
		op(0x20).u(30, 8).
		op(0x20).u(1, 8). // index 1: depth 1 below top is 20
		op(0x16).         // PICK
		finish()
	out := runProgram(t, code, 1_000_000)
	require.Equal(t, NormalExit, out.ExitCode)
	require.Equal(t, 4, out.Stack.Depth())
	v, err := out.Stack.Pop()
	require.NoError(t, err)
	iv, err := v.Integer()
	require.NoError(t, err)
	require.Equal(t, int64(20), iv.BigInt().Int64())
}

func TestPickOutOfRangeIsRangeCheck(t *testing.T) {
	code := newAsm().
		op(0x20).u(10, 8).
		op(0x20).u(5, 8). // index 5, but only one item below it
		op(0x16).         // PICK
		finish()
	out := runProgram(t, code, 1_000_000)
	require.Equal(t, RangeCheck, out.ExitCode)
}

func TestTryKeepTruncatesStack(t *testing.T) {
	body := newAsm().
		op(0x20).u(9, 8). // PUSHINT 9 (extra junk left on the stack)
		op(0x82).u(5, 16).
		finish()
	catch := newAsm().
		op(0x05).
		finish()
	main := newAsm().
		op(0x20).u(1, 8). // one item present before TRYKEEP runs
		op(0x70).ref(body).
		op(0x70).ref(catch).
		op(0x81). // TRYKEEP
		finish()
	out := runProgram(t, main, 1_000_000)
	require.Equal(t, NormalExit, out.ExitCode)
	// Pre-try depth (1) + the pushed exception value and code (2) = 3, minus
	// the catch body's DROP = 2; the body's extra PUSHINT 9 must not survive
	// the catch.
	require.Equal(t, 2, out.Stack.Depth())
}

func TestRunIsDeterministic(t *testing.T) {
	code := newAsm().
		op(0x20).u(3, 8).
		op(0x20).u(4, 8).
		op(0x23). // MUL
		finish()
	out1 := runProgram(t, code, 1_000_000)
	out2 := runProgram(t, code, 1_000_000)
	require.Equal(t, out1.ExitCode, out2.ExitCode)
	require.Equal(t, out1.GasUsed, out2.GasUsed)
	require.Equal(t, out1.Steps, out2.Steps)
}
