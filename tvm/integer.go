// Copyright 2024 The ever-vm Authors
// This file is part of ever-vm.
//
// ever-vm is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package tvm

import "math/big"

// minInt and maxInt bound the 257-bit signed range a non-NaN IntegerData
// may hold: -2^256 <= v <= 2^256 - 1 (spec.md §3.2).
var (
	minInt = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 256))
	maxInt = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
)

// IntegerData is a signed integer whose magnitude fits in 257 bits, plus a
// distinguished NaN. Arithmetic is provided by the package-level helpers
// below rather than methods, so that quiet (NaN-producing) and checked
// (trapping) variants can share the same core computation.
//
// There is no suitable third-party arbitrary-precision integer library in
// the teacher's dependency set that also models a NaN state and traps on a
// fixed 257-bit range with byte-exact determinism (holiman/uint256 is a
// fixed 256-bit *unsigned* type with no NaN concept); math/big.Int is used
// here as the only faithful fit, per DESIGN.md.
type IntegerData struct {
	val *big.Int // nil iff nan
	nan bool
}

// NaN returns the distinguished not-a-number value.
func NaN() IntegerData { return IntegerData{nan: true} }

// IsNaN reports whether v is the NaN value.
func (v IntegerData) IsNaN() bool { return v.nan }

// FromInt64 constructs an IntegerData from an int64.
func FromInt64(x int64) IntegerData { return IntegerData{val: big.NewInt(x)} }

// FromBigInt constructs an IntegerData from a big.Int, returning NaN if out
// of the representable range.
func FromBigInt(x *big.Int) IntegerData {
	if x.Cmp(minInt) < 0 || x.Cmp(maxInt) > 0 {
		return NaN()
	}
	return IntegerData{val: new(big.Int).Set(x)}
}

// BigInt returns the underlying value. Callers must not mutate it. Panics
// if v is NaN; callers must check IsNaN first.
func (v IntegerData) BigInt() *big.Int {
	if v.nan {
		panic("tvm: BigInt called on NaN IntegerData")
	}
	return v.val
}

// inRange reports whether x falls within the representable 257-bit range.
func inRange(x *big.Int) bool {
	return x.Cmp(minInt) >= 0 && x.Cmp(maxInt) <= 0
}

// binOp applies f to a and b. If either operand is NaN, or the checked
// result overflows and checked is true, it raises IntegerOverflow; if
// checked is false (quiet "Q"-suffixed opcode) it returns NaN instead.
func binOp(a, b IntegerData, checked bool, f func(z, x, y *big.Int) *big.Int) (IntegerData, error) {
	if a.IsNaN() || b.IsNaN() {
		if checked {
			return IntegerData{}, newVMError(IntegerOverflow, 0)
		}
		return NaN(), nil
	}
	z := new(big.Int)
	f(z, a.val, b.val)
	if !inRange(z) {
		if checked {
			return IntegerData{}, newVMError(IntegerOverflow, 0)
		}
		return NaN(), nil
	}
	return IntegerData{val: z}, nil
}

func unOp(a IntegerData, checked bool, f func(z, x *big.Int) *big.Int) (IntegerData, error) {
	if a.IsNaN() {
		if checked {
			return IntegerData{}, newVMError(IntegerOverflow, 0)
		}
		return NaN(), nil
	}
	z := new(big.Int)
	f(z, a.val)
	if !inRange(z) {
		if checked {
			return IntegerData{}, newVMError(IntegerOverflow, 0)
		}
		return NaN(), nil
	}
	return IntegerData{val: z}, nil
}

// Add computes a + b.
func Add(a, b IntegerData, checked bool) (IntegerData, error) {
	return binOp(a, b, checked, func(z, x, y *big.Int) *big.Int { return z.Add(x, y) })
}

// Sub computes a - b.
func Sub(a, b IntegerData, checked bool) (IntegerData, error) {
	return binOp(a, b, checked, func(z, x, y *big.Int) *big.Int { return z.Sub(x, y) })
}

// Mul computes a * b.
func Mul(a, b IntegerData, checked bool) (IntegerData, error) {
	return binOp(a, b, checked, func(z, x, y *big.Int) *big.Int { return z.Mul(x, y) })
}

// Neg computes -a.
func Neg(a IntegerData, checked bool) (IntegerData, error) {
	return unOp(a, checked, func(z, x *big.Int) *big.Int { return z.Neg(x) })
}

// DivMode selects the rounding rule DIVMOD-family opcodes apply.
type DivMode int

const (
	DivFloor DivMode = iota
	DivCeil
	DivEuclidean
	DivToZero
)

// DivMod computes the quotient and remainder of a/b under the given mode.
// Division by zero always raises IntegerOverflow (TVM's reference
// implementation treats it as an integer-range fault since there is no
// finite quotient to represent), regardless of quiet/checked: the CORE
// test vectors in spec.md §8.2 scenario 5 expect exactly this code.
func DivMod(a, b IntegerData, mode DivMode, checked bool) (q, r IntegerData, err error) {
	if !a.IsNaN() && !b.IsNaN() && b.val.Sign() == 0 {
		return IntegerData{}, IntegerData{}, newVMError(IntegerOverflow, 0)
	}
	if a.IsNaN() || b.IsNaN() {
		if checked {
			return IntegerData{}, IntegerData{}, newVMError(IntegerOverflow, 0)
		}
		return NaN(), NaN(), nil
	}
	qq, rr := new(big.Int), new(big.Int)
	switch mode {
	case DivFloor:
		// big.Int.DivMod already yields 0 <= rr < |b|, which coincides with
		// floor semantics whenever b > 0; a negative divisor needs one step
		// down to round toward negative infinity instead of toward +ceil.
		qq.DivMod(a.val, b.val, rr)
		if b.val.Sign() < 0 && rr.Sign() != 0 {
			qq.Sub(qq, big.NewInt(1))
			rr.Add(rr, b.val)
		}
	case DivEuclidean:
		qq.DivMod(a.val, b.val, rr)
	case DivCeil:
		// Symmetric to the DivFloor case: DivMod's quotient already equals
		// the ceiling quotient when b < 0, so only a positive divisor needs
		// the one-step-up correction.
		qq.DivMod(a.val, b.val, rr)
		if b.val.Sign() > 0 && rr.Sign() != 0 {
			qq.Add(qq, big.NewInt(1))
			rr.Sub(rr, b.val)
		}
	default: // DivToZero
		qq.Quo(a.val, b.val)
		rr.Rem(a.val, b.val)
	}
	if !inRange(qq) || !inRange(rr) {
		if checked {
			return IntegerData{}, IntegerData{}, newVMError(IntegerOverflow, 0)
		}
		return NaN(), NaN(), nil
	}
	return IntegerData{val: qq}, IntegerData{val: rr}, nil
}

// Cmp returns -1, 0, or +1 per spec.md §4.6 (comparisons are not booleans).
func Cmp(a, b IntegerData) (int, error) {
	if a.IsNaN() || b.IsNaN() {
		return 0, newVMError(IntegerOverflow, 0)
	}
	return a.val.Cmp(b.val), nil
}

// bitwise treats both operands as sign-extended infinite-precision values.
func bitwise(a, b IntegerData, checked bool, f func(z, x, y *big.Int) *big.Int) (IntegerData, error) {
	return binOp(a, b, checked, f)
}

func And(a, b IntegerData, checked bool) (IntegerData, error) {
	return bitwise(a, b, checked, func(z, x, y *big.Int) *big.Int { return z.And(x, y) })
}

func Or(a, b IntegerData, checked bool) (IntegerData, error) {
	return bitwise(a, b, checked, func(z, x, y *big.Int) *big.Int { return z.Or(x, y) })
}

func Xor(a, b IntegerData, checked bool) (IntegerData, error) {
	return bitwise(a, b, checked, func(z, x, y *big.Int) *big.Int { return z.Xor(x, y) })
}

func Not(a IntegerData, checked bool) (IntegerData, error) {
	return unOp(a, checked, func(z, x *big.Int) *big.Int { return z.Not(x) })
}

func Shl(a IntegerData, shift uint, checked bool) (IntegerData, error) {
	return unOp(a, checked, func(z, x *big.Int) *big.Int { return z.Lsh(x, shift) })
}

func Shr(a IntegerData, shift uint, checked bool) (IntegerData, error) {
	return unOp(a, checked, func(z, x *big.Int) *big.Int { return z.Rsh(x, shift) })
}

// ToBytesMSB serializes v as a two's-complement, MSB-first byte string of
// exactly n bits (n in [1,257]), range-checking against a signed (or, if
// unsigned is true, unsigned) n-bit field as STI/STU require.
func (v IntegerData) ToBytesMSB(n int, unsigned bool) ([]byte, error) {
	if v.IsNaN() {
		return nil, newVMError(TypeCheck, 0)
	}
	if unsigned {
		if v.val.Sign() < 0 {
			return nil, newVMError(RangeCheck, 0)
		}
		limit := new(big.Int).Lsh(big.NewInt(1), uint(n))
		if v.val.Cmp(limit) >= 0 {
			return nil, newVMError(RangeCheck, 0)
		}
	} else {
		limit := new(big.Int).Lsh(big.NewInt(1), uint(n-1))
		negLimit := new(big.Int).Neg(limit)
		if v.val.Cmp(negLimit) < 0 || v.val.Cmp(limit) >= 0 {
			return nil, newVMError(RangeCheck, 0)
		}
	}
	mod := new(big.Int).Lsh(big.NewInt(1), uint(n))
	u := new(big.Int).Mod(v.val, mod)
	out := make([]byte, (n+7)/8)
	u.FillBytes(out)
	// FillBytes left-pads to len(out)*8 bits; shift left so the n
	// significant bits are MSB-aligned within the byte string.
	shift := uint(len(out)*8 - n)
	if shift > 0 {
		shiftLeftBits(out, shift)
	}
	return out, nil
}

// FromBytesMSB parses n bits (MSB-first, two's complement if signed) back
// into an IntegerData (LDI/LDU's inverse of ToBytesMSB).
func FromBytesMSB(data []byte, n int, unsigned bool) IntegerData {
	// Right-align the n significant bits within a big-endian buffer so
	// big.Int.SetBytes reads them as a plain unsigned magnitude.
	total := len(data) * 8
	shift := uint(total - n)
	buf := make([]byte, len(data))
	copy(buf, data)
	if shift > 0 {
		shiftRightBits(buf, shift)
	}
	u := new(big.Int).SetBytes(buf)
	if unsigned || n == 0 {
		return IntegerData{val: u}
	}
	signBit := new(big.Int).Lsh(big.NewInt(1), uint(n-1))
	if u.Cmp(signBit) >= 0 {
		mod := new(big.Int).Lsh(big.NewInt(1), uint(n))
		u.Sub(u, mod)
	}
	return IntegerData{val: u}
}

func shiftLeftBits(b []byte, n uint) {
	bytes, bits := n/8, n%8
	if bytes > 0 {
		copy(b, b[bytes:])
		for i := len(b) - int(bytes); i < len(b); i++ {
			b[i] = 0
		}
	}
	if bits == 0 {
		return
	}
	for i := 0; i < len(b); i++ {
		cur := b[i] << bits
		if i+1 < len(b) {
			cur |= b[i+1] >> (8 - bits)
		}
		b[i] = cur
	}
}

func shiftRightBits(b []byte, n uint) {
	bytes, bits := n/8, n%8
	if bytes > 0 {
		copy(b[bytes:], b[:uint(len(b))-bytes])
		for i := 0; i < int(bytes); i++ {
			b[i] = 0
		}
	}
	if bits == 0 {
		return
	}
	for i := len(b) - 1; i >= 0; i-- {
		cur := b[i] >> bits
		if i > 0 {
			cur |= b[i-1] << (8 - bits)
		}
		b[i] = cur
	}
}
