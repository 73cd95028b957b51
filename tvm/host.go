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

// SmartContractInfo is the fixed-shape tuple the host installs into c7
// before a run (spec.md §6.1), the one piece of ambient context contract
// code can read without an explicit operand.
type SmartContractInfo struct {
	Now          int64
	BlockLT      int64
	TransLT      int64
	RandSeed     IntegerData
	BalanceGrams int64
	MyAddr       []byte // 256-bit account id, MSB-first
}

// Tuple packs the info into the StackItem tuple contract code observes via
// c7 (index order mirrors the field order above; unused legacy slots a real
// deployment would also carry are omitted — out of scope per spec.md §1).
func (sci SmartContractInfo) Tuple() (StackItem, error) {
	addr := FromBytesMSB(sci.MyAddr, 256, true)
	return NewTuple([]StackItem{
		NewInteger(FromInt64(sci.Now)),
		NewInteger(FromInt64(sci.BlockLT)),
		NewInteger(FromInt64(sci.TransLT)),
		NewInteger(sci.RandSeed),
		NewInteger(FromInt64(sci.BalanceGrams)),
		NewInteger(addr),
	})
}

// Input is everything the host must supply to run one contract invocation
// (spec.md §6.1): the code to execute, the initial stack, the gas budget,
// the persistent-data root (c4), the enabled capability set, and the
// behavior modifiers in effect for this run.
type Input struct {
	Code         *cell.Slice
	Stack        *Stack
	Gas          *Gas
	Capabilities uint64
	BehaviorModifiers
	Ctrls SaveList

	// Libraries seeds the resolver XLOAD consults to turn a
	// LibraryReference cell's hash into the library cell it names
	// (spec.md §4.5 CTOS library resolution). May be nil.
	Libraries map[common.Hash]*cell.Cell
}

// NewInput builds a host Input with c4 (persistent data) and c7
// (SmartContractInfo) pre-populated, the common case every real invocation
// needs (spec.md §6.1).
func NewInput(code *cell.Slice, stack *Stack, gas *Gas, data *cell.Cell, sci SmartContractInfo, capabilities uint64, mods BehaviorModifiers) (*Input, error) {
	in := &Input{Code: code, Stack: stack, Gas: gas, Capabilities: capabilities, BehaviorModifiers: mods}
	if err := in.Ctrls.Set(C4, NewCell(data)); err != nil {
		return nil, err
	}
	t, err := sci.Tuple()
	if err != nil {
		return nil, err
	}
	if err := in.Ctrls.Set(C7, t); err != nil {
		return nil, err
	}
	return in, nil
}

// Output is what a completed run hands back to the host (spec.md §6.2): the
// exit code/argument, the final stack, gas consumed, and the (possibly
// updated) c4/c5 registers the contract may have rewritten.
type Output struct {
	ExitCode ExceptionCode
	ExitArg  StackItem
	Stack    *Stack
	GasUsed  uint64
	Steps    uint64
	NewData  *cell.Cell // c4 on exit, nil if unset or not a cell
	Actions  *cell.Cell // c5 on exit, nil if unset
}

// Execute runs one contract invocation end to end: construct an Engine,
// drive it to completion, and package the result (the direct analogue of
// the teacher's integration.Execute).
func Execute(in *Input, registry *Registry) *Output {
	e := New(in, registry)
	code, arg := e.Run()
	out := &Output{ExitCode: code, ExitArg: arg, Stack: e.Stack(), GasUsed: e.Gas().Consumed(), Steps: e.Steps()}
	if v, ok := e.Ctrls().Get(C4); ok {
		if c, err := v.Cell(); err == nil {
			out.NewData = c
		}
	}
	if v, ok := e.Ctrls().Get(C5); ok {
		if c, err := v.Cell(); err == nil {
			out.Actions = c
		}
	}
	return out
}
