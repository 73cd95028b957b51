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

func TestNewOrdinaryWrapsCode(t *testing.T) {
	c, err := cell.NewBuilder().Finalize()
	require.NoError(t, err)
	k := NewOrdinary(c.NewSlice())
	require.Equal(t, ContOrdinary, k.Kind)
	require.Equal(t, -1, k.Nargs)
	require.NotNil(t, k.Code)
}

func TestNewPushIntSavesC0ToAfter(t *testing.T) {
	after := NewExcQuit()
	k := NewPushInt(FromInt64(42), after)
	require.Equal(t, ContPushInt, k.Kind)
	require.Equal(t, int64(42), k.PushValue.BigInt().Int64())

	saved, ok := k.Saved.Get(C0)
	require.True(t, ok)
	cont, err := saved.Continuation()
	require.NoError(t, err)
	require.Equal(t, after, cont)
}

func TestCloneSharesCodeButIndependentSaveList(t *testing.T) {
	c, err := cell.NewBuilder().Finalize()
	require.NoError(t, err)
	k := NewOrdinary(c.NewSlice())
	require.NoError(t, k.Saved.Set(C0, intItem(1)))

	cp := k.Clone()
	require.Same(t, k.Code, cp.Code)

	require.NoError(t, cp.Saved.Set(C0, intItem(2)))
	v, _ := k.Saved.Get(C0)
	iv, _ := v.Integer()
	require.Equal(t, int64(1), iv.BigInt().Int64())
}

func TestWithNargsDoesNotMutateOriginal(t *testing.T) {
	c, err := cell.NewBuilder().Finalize()
	require.NoError(t, err)
	k := NewOrdinary(c.NewSlice())
	restricted := k.WithNargs(2)
	require.Equal(t, -1, k.Nargs)
	require.Equal(t, 2, restricted.Nargs)
}
