// Copyright 2024 The ever-vm Authors
// This file is part of ever-vm.
//
// ever-vm is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package tvm

// registerMisc wires the gas-control family (spec.md §4.4) to opcode
// prefixes 0xB0-0xBF.
func registerMisc(r *Registry) {
	r.add("ACCEPT", 0xB0, 8, 0, HandlerFunc(opAccept), decodeNone)
	r.add("SETGASLIMIT", 0xB1, 8, 0, HandlerFunc(opSetGasLimit), decodeNone)
	r.add("BUYGAS", 0xB2, 8, 0, HandlerFunc(opBuyGas), decodeNone)
	r.add("GASREMAINING", 0xB3, 8, 0, HandlerFunc(opGasRemaining), decodeNone)
}

func opAccept(e *Engine, ops Operands) error {
	e.gas.Accept()
	return nil
}

func opSetGasLimit(e *Engine, ops Operands) error {
	v, err := popInt(e)
	if err != nil {
		return err
	}
	if v.IsNaN() || v.BigInt().Sign() < 0 {
		return newVMError(RangeCheck, 0)
	}
	return e.gas.SetLimit(v.BigInt().Uint64())
}

func opBuyGas(e *Engine, ops Operands) error {
	v, err := popInt(e)
	if err != nil {
		return err
	}
	if v.IsNaN() || v.BigInt().Sign() < 0 {
		return newVMError(RangeCheck, 0)
	}
	return e.gas.BuyGas(v.BigInt().Uint64())
}

func opGasRemaining(e *Engine, ops Operands) error {
	e.stack.Push(NewInteger(FromInt64(e.gas.Remaining())))
	return nil
}
