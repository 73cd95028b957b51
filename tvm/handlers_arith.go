// Copyright 2024 The ever-vm Authors
// This file is part of ever-vm.
//
// ever-vm is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package tvm

// registerArith wires the arithmetic instruction family (spec.md §4.6) to
// opcode prefixes 0x20-0x3F: small/wide PUSHINT, checked and quiet binary
// and unary ops, the four DIVMOD rounding modes, comparisons, bitwise ops,
// and shifts.
func registerArith(r *Registry) {
	r.add("PUSHINT", 0x20, 8, 0, HandlerFunc(opPushInt), decodeI8)
	r.add("PUSHINTX", 0x38, 8, 0, HandlerFunc(opPushIntX), decodeBigInt)

	r.add("ADD", 0x21, 8, 0, HandlerFunc(binWrap(Add, true)), decodeNone)
	r.add("ADDQ", 0x2100, 16, 0, HandlerFunc(binWrap(Add, false)), decodeNone)
	r.add("SUB", 0x22, 8, 0, HandlerFunc(binWrap(Sub, true)), decodeNone)
	r.add("SUBQ", 0x2200, 16, 0, HandlerFunc(binWrap(Sub, false)), decodeNone)
	r.add("MUL", 0x23, 8, 0, HandlerFunc(binWrap(Mul, true)), decodeNone)
	r.add("MULQ", 0x2300, 16, 0, HandlerFunc(binWrap(Mul, false)), decodeNone)

	r.add("NEGATE", 0x24, 8, 0, HandlerFunc(unWrap(Neg, true)), decodeNone)
	r.add("INC", 0x25, 8, 0, HandlerFunc(opInc), decodeNone)
	r.add("DEC", 0x26, 8, 0, HandlerFunc(opDec), decodeNone)

	r.add("DIVMODFLOOR", 0x27, 8, 0, HandlerFunc(divWrap(DivFloor, true)), decodeNone)
	r.add("DIVMODCEIL", 0x28, 8, 0, HandlerFunc(divWrap(DivCeil, true)), decodeNone)
	r.add("DIVMODEUC", 0x29, 8, 0, HandlerFunc(divWrap(DivEuclidean, true)), decodeNone)
	r.add("DIVMODZERO", 0x2A, 8, 0, HandlerFunc(divWrap(DivToZero, true)), decodeNone)
	r.add("QDIVMODFLOOR", 0x2B, 8, 0, HandlerFunc(divWrap(DivFloor, false)), decodeNone)

	r.add("CMP", 0x2C, 8, 0, HandlerFunc(opCmp), decodeNone)
	r.add("EQUAL", 0x2D, 8, 0, HandlerFunc(cmpWrap(func(c int) bool { return c == 0 })), decodeNone)
	r.add("LESS", 0x2E, 8, 0, HandlerFunc(cmpWrap(func(c int) bool { return c < 0 })), decodeNone)
	r.add("GREATER", 0x2F, 8, 0, HandlerFunc(cmpWrap(func(c int) bool { return c > 0 })), decodeNone)

	r.add("AND", 0x30, 8, 0, HandlerFunc(binWrap(And, true)), decodeNone)
	r.add("OR", 0x31, 8, 0, HandlerFunc(binWrap(Or, true)), decodeNone)
	r.add("XOR", 0x32, 8, 0, HandlerFunc(binWrap(Xor, true)), decodeNone)
	r.add("NOT", 0x33, 8, 0, HandlerFunc(unWrap(Not, true)), decodeNone)

	r.add("LSHIFT", 0x34, 8, 0, HandlerFunc(opLShift), decodeU8)
	r.add("RSHIFT", 0x35, 8, 0, HandlerFunc(opRShift), decodeU8)

	r.add("ISNAN", 0x36, 8, 0, HandlerFunc(opIsNaN), decodeNone)
	r.add("CHKNAN", 0x37, 8, 0, HandlerFunc(opChkNaN), decodeNone)
}

func opPushInt(e *Engine, ops Operands) error {
	e.stack.Push(NewInteger(FromInt64(ops.Int)))
	return nil
}

func opPushIntX(e *Engine, ops Operands) error {
	e.stack.Push(NewInteger(*ops.Big))
	return nil
}

func binWrap(f func(a, b IntegerData, checked bool) (IntegerData, error), checked bool) func(e *Engine, ops Operands) error {
	return func(e *Engine, ops Operands) error {
		b, err := popInt(e)
		if err != nil {
			return err
		}
		a, err := popInt(e)
		if err != nil {
			return err
		}
		v, err := f(a, b, checked)
		if err != nil {
			return err
		}
		e.stack.Push(NewInteger(v))
		return nil
	}
}

func unWrap(f func(a IntegerData, checked bool) (IntegerData, error), checked bool) func(e *Engine, ops Operands) error {
	return func(e *Engine, ops Operands) error {
		a, err := popInt(e)
		if err != nil {
			return err
		}
		v, err := f(a, checked)
		if err != nil {
			return err
		}
		e.stack.Push(NewInteger(v))
		return nil
	}
}

func opInc(e *Engine, ops Operands) error {
	a, err := popInt(e)
	if err != nil {
		return err
	}
	v, err := Add(a, FromInt64(1), true)
	if err != nil {
		return err
	}
	e.stack.Push(NewInteger(v))
	return nil
}

func opDec(e *Engine, ops Operands) error {
	a, err := popInt(e)
	if err != nil {
		return err
	}
	v, err := Sub(a, FromInt64(1), true)
	if err != nil {
		return err
	}
	e.stack.Push(NewInteger(v))
	return nil
}

func divWrap(mode DivMode, checked bool) func(e *Engine, ops Operands) error {
	return func(e *Engine, ops Operands) error {
		b, err := popInt(e)
		if err != nil {
			return err
		}
		a, err := popInt(e)
		if err != nil {
			return err
		}
		q, rem, err := DivMod(a, b, mode, checked)
		if err != nil {
			return err
		}
		e.stack.Push(NewInteger(q))
		e.stack.Push(NewInteger(rem))
		return nil
	}
}

func opCmp(e *Engine, ops Operands) error {
	b, err := popInt(e)
	if err != nil {
		return err
	}
	a, err := popInt(e)
	if err != nil {
		return err
	}
	c, err := Cmp(a, b)
	if err != nil {
		return err
	}
	e.stack.Push(NewInteger(FromInt64(int64(c))))
	return nil
}

func cmpWrap(pred func(c int) bool) func(e *Engine, ops Operands) error {
	return func(e *Engine, ops Operands) error {
		b, err := popInt(e)
		if err != nil {
			return err
		}
		a, err := popInt(e)
		if err != nil {
			return err
		}
		c, err := Cmp(a, b)
		if err != nil {
			return err
		}
		pushBool(e, pred(c))
		return nil
	}
}

func opLShift(e *Engine, ops Operands) error {
	a, err := popInt(e)
	if err != nil {
		return err
	}
	v, err := Shl(a, uint(ops.UInt), true)
	if err != nil {
		return err
	}
	e.stack.Push(NewInteger(v))
	return nil
}

func opRShift(e *Engine, ops Operands) error {
	a, err := popInt(e)
	if err != nil {
		return err
	}
	v, err := Shr(a, uint(ops.UInt), true)
	if err != nil {
		return err
	}
	e.stack.Push(NewInteger(v))
	return nil
}

func opIsNaN(e *Engine, ops Operands) error {
	a, err := popInt(e)
	if err != nil {
		return err
	}
	pushBool(e, a.IsNaN())
	return nil
}

func opChkNaN(e *Engine, ops Operands) error {
	a, err := popInt(e)
	if err != nil {
		return err
	}
	if a.IsNaN() {
		return newVMError(IntegerOverflow, 0)
	}
	e.stack.Push(NewInteger(a))
	return nil
}
