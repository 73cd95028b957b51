// Copyright 2024 The ever-vm Authors
// This file is part of ever-vm.
//
// ever-vm is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package tvm

import (
	"errors"
	"fmt"
)

// ExceptionCode is one of the closed set of exception kinds described in
// spec.md §7. Codes are preserved across nodes and are part of the
// consensus-visible exit behavior.
type ExceptionCode int

const (
	NormalExit      ExceptionCode = 0
	StackUnderflow  ExceptionCode = 2
	StackOverflow   ExceptionCode = 3
	IntegerOverflow ExceptionCode = 4
	RangeCheck      ExceptionCode = 5
	InvalidOpcode   ExceptionCode = 6
	TypeCheck       ExceptionCode = 7
	CellOverflow    ExceptionCode = 8
	CellUnderflow   ExceptionCode = 9
	DictError       ExceptionCode = 10
	UnknownError    ExceptionCode = 11
	Fatal           ExceptionCode = 12
	OutOfGas        ExceptionCode = 13
)

var exceptionNames = map[ExceptionCode]string{
	NormalExit:      "normal",
	StackUnderflow:  "StackUnderflow",
	StackOverflow:   "StackOverflow",
	IntegerOverflow: "IntegerOverflow",
	RangeCheck:      "RangeCheck",
	InvalidOpcode:   "InvalidOpcode",
	TypeCheck:       "TypeCheck",
	CellOverflow:    "CellOverflow",
	CellUnderflow:   "CellUnderflow",
	DictError:       "DictError",
	UnknownError:    "Unknown",
	Fatal:           "Fatal",
	OutOfGas:        "OutOfGas",
}

func (c ExceptionCode) String() string {
	if s, ok := exceptionNames[c]; ok {
		return s
	}
	return fmt.Sprintf("exception(%d)", int(c))
}

// VMError carries a raised exception's code and value through the
// unwinder, mirroring the teacher's sentinel-error family (ErrOutOfGas,
// ErrStackUnderflow, ...) but parameterized since every TVM exception
// carries a value alongside its code (spec.md §7).
type VMError struct {
	Code  ExceptionCode
	Value StackItem
}

func (e *VMError) Error() string {
	return fmt.Sprintf("tvm: exception %s (code %d)", e.Code, int(e.Code))
}

// newVMError constructs a VMError carrying an Integer value, the common
// case for arithmetic/range/type faults raised deep inside a handler that
// has no stack item of its own to attach.
func newVMError(code ExceptionCode, value int64) *VMError {
	return &VMError{Code: code, Value: NewInteger(FromInt64(value))}
}

// AsVMError unwraps err into a *VMError if it is (or wraps) one.
func AsVMError(err error) (*VMError, bool) {
	var ve *VMError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
