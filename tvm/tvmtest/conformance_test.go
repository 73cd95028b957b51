// Copyright 2024 The ever-vm Authors
// This file is part of ever-vm.
//
// ever-vm is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package tvmtest

import (
	"math/big"
	"testing"

	"github.com/everx-labs/ever-vm/common"
	"github.com/everx-labs/ever-vm/tvm"
	"github.com/stretchr/testify/require"
)

// Scenario 1: arithmetic + overflow (spec.md §8.2.1). The largest 257-bit
// value, 2^256 - 1, does not fit PUSHINTX's 8-bit width field, so it is
// built as 2^255 + (2^255 - 1); PUSHINT 1; ADD then overflows the checked
// ADD; ADDQ instead yields NaN.
func TestScenarioArithmeticOverflow(t *testing.T) {
	code := New().
		Op(0x20).U(1, 8).   // PUSHINT 1
		Op(0x34).U(255, 8). // LSHIFT 255: 2^255
		Op(0x06).           // DUP
		Op(0x26).           // DEC: 2^255 - 1
		Op(0x21).           // ADD: 2^256 - 1
		Op(0x20).U(1, 8).   // PUSHINT 1
		Op(0x21).           // ADD (checked)
		Finish()
	out := Run(code, 1_000_000)
	require.Equal(t, tvm.IntegerOverflow, out.ExitCode)
}

// ADDQ's prefix is the 16-bit value 0x2100, too wide for Op's 8-bit
// helper, so it is written directly with U.
func TestScenarioArithmeticOverflowQuiet(t *testing.T) {
	code := New().
		Op(0x20).U(1, 8).   // PUSHINT 1
		Op(0x34).U(255, 8). // LSHIFT 255: 2^255
		Op(0x06).           // DUP
		Op(0x26).           // DEC: 2^255 - 1
		Op(0x21).           // ADD: 2^256 - 1
		Op(0x20).U(1, 8).
		U(0x2100, 16). // ADDQ
		Finish()
	out := Run(code, 1_000_000)
	require.Equal(t, tvm.NormalExit, out.ExitCode)
	require.Equal(t, 1, out.Stack.Depth())
	v, err := out.Stack.Pop()
	require.NoError(t, err)
	iv, err := v.Integer()
	require.NoError(t, err)
	require.True(t, iv.IsNaN())
}

// Scenario 2: cell round-trip (spec.md §8.2.2).
// PUSHINT 0xDEADBEEF; NEWC; STU 32; ENDC; CTOS; LDU 32; SWAP; ENDS.
// STU consumes (value, builder) with the builder on top, so the value is
// pushed before NEWC; LDU leaves (rest-of-slice, value) with the value on
// top, so SWAP restores the slice to the top before ENDS checks it.
func TestScenarioCellRoundTrip(t *testing.T) {
	deadbeef := big.NewInt(0xDEADBEEF)

	code := New().
		Big(deadbeef, 33). // PUSHINT 0xDEADBEEF (33 signed bits: fits positive)
		Op(0x40).          // NEWC
		Op(0x42).U(32, 8). // STU 32
		Op(0x41).          // ENDC
		Op(0x47).          // CTOS
		Op(0x48).U(32, 8). // LDU 32
		Op(0x07).          // SWAP
		Op(0x4D).          // ENDS
		Finish()
	out := Run(code, 1_000_000)
	require.Equal(t, tvm.NormalExit, out.ExitCode)
	require.Equal(t, 1, out.Stack.Depth())
	v, err := out.Stack.Pop()
	require.NoError(t, err)
	iv, err := v.Integer()
	require.NoError(t, err)
	require.Equal(t, uint64(0xDEADBEEF), iv.BigInt().Uint64())
}

// Scenario 3: gas limit (spec.md §8.2.3): a long ADD loop with a tight
// limit must halt with OutOfGas, consuming no more than limit plus one
// instruction's worth of overshoot.
func TestScenarioGasLimit(t *testing.T) {
	a := New()
	// Seed one operand so every ADD below always has two items available
	// (the running total plus the fresh push). 40 rounds keep the program
	// inside one 1023-bit code cell and still cost far more than 100 gas.
	a.Op(0x20).U(1, 8)
	for i := 0; i < 40; i++ {
		a.Op(0x20).U(1, 8).Op(0x21)
	}
	out := Run(a.Finish(), 100)
	require.Equal(t, tvm.OutOfGas, out.ExitCode)
	require.LessOrEqual(t, out.GasUsed, uint64(100)+tvm.DefaultPriceTable().InstrBase+tvm.DefaultPriceTable().InstrPerByte)
}

// Scenario 4: TRY/CATCH (spec.md §8.2.4): stack before TRY is [5]; the
// body throws 77, the catch increments the thrown code.
func TestScenarioTryCatch(t *testing.T) {
	body := New().
		Op(0x82).U(77, 16). // THROW 77
		Finish()
	catch := New().
		Op(0x25). // INC
		Finish()
	main := New().
		Op(0x70).Ref(body).
		Op(0x70).Ref(catch).
		Op(0x80). // TRY
		Finish()

	stack := tvm.NewStack()
	stack.Push(tvm.NewInteger(tvm.FromInt64(5)))

	out := RunWithStack(main, stack, 1_000_000)
	require.Equal(t, tvm.NormalExit, out.ExitCode)
	require.Equal(t, 3, out.Stack.Depth())

	// The unwinder pushes (value, code) then runs the catch body, which
	// here increments the top (the code, 77 -> 78) in place; the
	// exception value (0, THROW's default) and the pre-existing 5 are
	// left untouched beneath it.
	catchResult, err := out.Stack.Pop()
	require.NoError(t, err)
	civ, err := catchResult.Integer()
	require.NoError(t, err)
	require.Equal(t, int64(78), civ.BigInt().Int64())

	excValue, err := out.Stack.Pop()
	require.NoError(t, err)
	excIV, err := excValue.Integer()
	require.NoError(t, err)
	require.Equal(t, int64(0), excIV.BigInt().Int64())

	val, err := out.Stack.Pop()
	require.NoError(t, err)
	valIV, err := val.Integer()
	require.NoError(t, err)
	require.Equal(t, int64(5), valIV.BigInt().Int64())
}

// Scenario 5: TRYKEEP (spec.md §8.2.5): stack before is [100]; the body
// pushes junk and then divides by zero; TRYKEEP must discard whatever the
// body left above the pre-try depth before pushing (value, code).
func TestScenarioTryKeep(t *testing.T) {
	body := New().
		Op(0x25).         // INC: mutates the one surviving slot in place, 100 -> 101
		Op(0x20).U(7, 8). // PUSHINT 7 (junk above the pre-try depth, must not survive)
		Op(0x20).U(0, 8). // PUSHINT 0
		Op(0x27).         // DIVMODFLOOR by zero
		Finish()
	catch := New().
		Op(0x25). // INC
		Finish()
	main := New().
		Op(0x70).Ref(body).
		Op(0x70).Ref(catch).
		Op(0x81). // TRYKEEP
		Finish()

	stack := tvm.NewStack()
	stack.Push(tvm.NewInteger(tvm.FromInt64(100)))

	out := RunWithStack(main, stack, 1_000_000)
	require.Equal(t, tvm.NormalExit, out.ExitCode)
	// TRYKEEP truncates back to the pre-try depth (1) before pushing
	// (value, code): the junk PUSHINT 7 is dropped, but the body's INC
	// had already mutated the one surviving slot in place (100 -> 101),
	// so that mutation is NOT undone by the truncation.
	require.Equal(t, 3, out.Stack.Depth())

	catchResult, err := out.Stack.Pop()
	require.NoError(t, err)
	civ, err := catchResult.Integer()
	require.NoError(t, err)
	require.Equal(t, int64(tvm.IntegerOverflow)+1, civ.BigInt().Int64())

	excValue, err := out.Stack.Pop()
	require.NoError(t, err)
	excIV, err := excValue.Integer()
	require.NoError(t, err)
	require.Equal(t, int64(0), excIV.BigInt().Int64())

	survivor, err := out.Stack.Pop()
	require.NoError(t, err)
	survivorIV, err := survivor.Integer()
	require.NoError(t, err)
	require.Equal(t, int64(101), survivorIV.BigInt().Int64())
}

// Scenario 6: determinism (spec.md §8.2.6): running identical (code,
// stack, gas) twice must produce byte-identical results, including
// gas_used and the step count.
func TestScenarioDeterminism(t *testing.T) {
	code := New().
		Op(0x20).U(3, 8).
		Op(0x20).U(4, 8).
		Op(0x23). // MUL
		Op(0x20).U(5, 8).
		Op(0x21). // ADD
		Finish()
	out1 := Run(code, 1_000_000)
	out2 := Run(code, 1_000_000)
	require.Equal(t, out1.ExitCode, out2.ExitCode)
	require.Equal(t, out1.GasUsed, out2.GasUsed)
	require.Equal(t, out1.Steps, out2.Steps)
	v1, err := out1.Stack.Pop()
	require.NoError(t, err)
	v2, err := out2.Stack.Pop()
	require.NoError(t, err)
	iv1, err := v1.Integer()
	require.NoError(t, err)
	iv2, err := v2.Integer()
	require.NoError(t, err)
	require.Equal(t, iv1.BigInt(), iv2.BigInt())
}

// Invariant: stack depth consistency (spec.md §8.1) — depth_after equals
// depth_before plus the sum of per-instruction deltas for a known chain.
func TestInvariantStackDepthConsistency(t *testing.T) {
	code := New().
		Op(0x20).U(1, 8). // +1
		Op(0x20).U(2, 8). // +1
		Op(0x21).         // ADD: net -1
		Op(0x06).         // DUP: +1
		Finish()
	out := Run(code, 1_000_000)
	require.Equal(t, tvm.NormalExit, out.ExitCode)
	require.Equal(t, 2, out.Stack.Depth())
}

// Invariant: cell load dedup (spec.md §8.1) — the Nth load of the same
// cell must cost exactly the repeated-load price, independent of N.
func TestInvariantCellLoadDedup(t *testing.T) {
	price := tvm.DefaultPriceTable()
	hash := common.Hash{0xAA}

	g := tvm.NewGas(1_000_000, 0, price, 0)
	require.NoError(t, g.ChargeCellLoad(hash))
	afterFirst := g.Consumed()
	require.Equal(t, price.LoadCellFirst, afterFirst)

	for i := 0; i < 4; i++ {
		require.NoError(t, g.ChargeCellLoad(hash))
	}
	perRepeat := (g.Consumed() - afterFirst) / 4
	require.Equal(t, price.LoadCellAgain, perRepeat)
}
