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

	"github.com/stretchr/testify/require"
)

func intItem(v int64) StackItem { return NewInteger(FromInt64(v)) }

func TestPushPopTopOrder(t *testing.T) {
	s := NewStack()
	s.Push(intItem(1))
	s.Push(intItem(2))
	s.Push(intItem(3))

	top, err := s.Top()
	require.NoError(t, err)
	iv, _ := top.Integer()
	require.Equal(t, int64(3), iv.BigInt().Int64())

	v, err := s.Pop()
	require.NoError(t, err)
	iv, _ = v.Integer()
	require.Equal(t, int64(3), iv.BigInt().Int64())
	require.Equal(t, 2, s.Depth())
}

func TestPopUnderflow(t *testing.T) {
	s := NewStack()
	_, err := s.Pop()
	ve, ok := AsVMError(err)
	require.True(t, ok)
	require.Equal(t, StackUnderflow, ve.Code)
}

func TestAtAndSetAt(t *testing.T) {
	s := NewStack()
	s.Push(intItem(10))
	s.Push(intItem(20))
	s.Push(intItem(30))

	v, err := s.At(1)
	require.NoError(t, err)
	iv, _ := v.Integer()
	require.Equal(t, int64(20), iv.BigInt().Int64())

	require.NoError(t, s.SetAt(1, intItem(99)))
	v, _ = s.At(1)
	iv, _ = v.Integer()
	require.Equal(t, int64(99), iv.BigInt().Int64())
}

func TestPushDup(t *testing.T) {
	s := NewStack()
	s.Push(intItem(1))
	s.Push(intItem(2))
	require.NoError(t, s.PushDup(1))
	require.Equal(t, 3, s.Depth())
	v, _ := s.Top()
	iv, _ := v.Integer()
	require.Equal(t, int64(1), iv.BigInt().Int64())
}

func TestPopTo(t *testing.T) {
	s := NewStack()
	s.Push(intItem(1))
	s.Push(intItem(2))
	s.Push(intItem(3)) // top

	require.NoError(t, s.PopTo(1))
	require.Equal(t, 2, s.Depth())
	v, _ := s.At(0)
	iv, _ := v.Integer()
	require.Equal(t, int64(3), iv.BigInt().Int64())
}

func TestXchg(t *testing.T) {
	s := NewStack()
	s.Push(intItem(1))
	s.Push(intItem(2))
	s.Push(intItem(3))
	require.NoError(t, s.Xchg(0, 2))
	top, _ := s.At(0)
	bottom, _ := s.At(2)
	ti, _ := top.Integer()
	bi, _ := bottom.Integer()
	require.Equal(t, int64(1), ti.BigInt().Int64())
	require.Equal(t, int64(3), bi.BigInt().Int64())
}

func TestBlkSwap(t *testing.T) {
	s := NewStack()
	for _, v := range []int64{1, 2, 3, 4} {
		s.Push(intItem(v))
	}
	// window is the whole stack [1,2,3,4]; i=2, j=2 swaps the two halves.
	require.NoError(t, s.BlkSwap(2, 2))
	want := []int64{3, 4, 1, 2}
	for idx, w := range want {
		v, err := s.At(3 - idx)
		require.NoError(t, err)
		iv, _ := v.Integer()
		require.Equal(t, w, iv.BigInt().Int64())
	}
}

func TestRollAndRollRev(t *testing.T) {
	s := NewStack()
	for _, v := range []int64{1, 2, 3} {
		s.Push(intItem(v))
	}
	require.NoError(t, s.Roll(2)) // bottom item (1) moves to top
	top, _ := s.Top()
	iv, _ := top.Integer()
	require.Equal(t, int64(1), iv.BigInt().Int64())

	require.NoError(t, s.RollRev(2)) // undo
	top, _ = s.Top()
	iv, _ = top.Integer()
	require.Equal(t, int64(3), iv.BigInt().Int64())
}

func TestReverse(t *testing.T) {
	s := NewStack()
	for _, v := range []int64{1, 2, 3, 4} {
		s.Push(intItem(v))
	}
	require.NoError(t, s.Reverse(4, 0))
	want := []int64{1, 2, 3, 4}
	for idx := 0; idx < 4; idx++ {
		v, _ := s.At(idx)
		iv, _ := v.Integer()
		require.Equal(t, want[idx], iv.BigInt().Int64())
	}
}

func TestSnapshotIsIndependentCopy(t *testing.T) {
	s := NewStack()
	s.Push(intItem(1))
	snap := s.Snapshot()
	s.Push(intItem(2))
	require.Equal(t, 1, len(snap))
	require.Equal(t, 2, s.Depth())
}

func TestTruncate(t *testing.T) {
	s := NewStack()
	for _, v := range []int64{1, 2, 3} {
		s.Push(intItem(v))
	}
	require.NoError(t, s.Truncate(1))
	require.Equal(t, 1, s.Depth())
	v, _ := s.Top()
	iv, _ := v.Integer()
	require.Equal(t, int64(1), iv.BigInt().Int64())

	require.Error(t, s.Truncate(5))
}

func TestStackItemEqualityByValue(t *testing.T) {
	require.True(t, intItem(5).Equal(intItem(5)))
	require.False(t, intItem(5).Equal(intItem(6)))
	require.True(t, Null.Equal(Null))
	require.False(t, Null.Equal(intItem(0)))

	nanA := NewInteger(NaN())
	nanB := NewInteger(NaN())
	require.False(t, nanA.Equal(nanB))
}

func TestTupleDepthLimit(t *testing.T) {
	items := make([]StackItem, maxTupleDepth+1)
	for i := range items {
		items[i] = Null
	}
	_, err := NewTuple(items)
	ve, ok := AsVMError(err)
	require.True(t, ok)
	require.Equal(t, TypeCheck, ve.Code)
}

func TestTupleEqualityStructural(t *testing.T) {
	a, err := NewTuple([]StackItem{intItem(1), intItem(2)})
	require.NoError(t, err)
	b, err := NewTuple([]StackItem{intItem(1), intItem(2)})
	require.NoError(t, err)
	c, err := NewTuple([]StackItem{intItem(1), intItem(3)})
	require.NoError(t, err)

	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c))
}

func TestTypeMismatchAccessorsReturnTypeCheck(t *testing.T) {
	_, err := intItem(1).Cell()
	ve, ok := AsVMError(err)
	require.True(t, ok)
	require.Equal(t, TypeCheck, ve.Code)
}
