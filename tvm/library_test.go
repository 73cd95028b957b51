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

	"github.com/everx-labs/ever-vm/common"
	"github.com/everx-labs/ever-vm/tvm/cell"
	"github.com/stretchr/testify/require"
)

func TestLibraryResolverFindsSeededEntry(t *testing.T) {
	libBody := cell.NewBuilder()
	require.NoError(t, libBody.StoreUint(0xCAFE, 16))
	libCell, err := libBody.Finalize()
	require.NoError(t, err)

	hash := libCell.Hash()
	r := NewLibraryResolver(map[common.Hash]*cell.Cell{hash: libCell})

	got, ok := r.Resolve(hash)
	require.True(t, ok)
	require.Same(t, libCell, got)
}

func TestLibraryResolverMissReturnsFalse(t *testing.T) {
	r := NewLibraryResolver(nil)
	_, ok := r.Resolve(common.Hash{9})
	require.False(t, ok)
}

func TestNilLibraryResolverResolveIsSafe(t *testing.T) {
	var r *LibraryResolver
	_, ok := r.Resolve(common.Hash{1})
	require.False(t, ok)
}

func TestXloadResolvesLibraryCellThroughEngine(t *testing.T) {
	libBody := cell.NewBuilder()
	require.NoError(t, libBody.StoreUint(7, 8))
	libCell, err := libBody.Finalize()
	require.NoError(t, err)
	hash := libCell.Hash()

	refBuilder := cell.NewBuilder()
	require.NoError(t, refBuilder.StoreBitsMSB(hash.Bytes(), common.HashLength*8))
	require.NoError(t, refBuilder.SetKind(cell.LibraryReference))
	refCell, err := refBuilder.Finalize()
	require.NoError(t, err)

	emptyCode, err := cell.NewBuilder().Finalize()
	require.NoError(t, err)

	in := &Input{
		Code:      emptyCode.NewSlice(),
		Stack:     NewStack(),
		Gas:       NewGas(1_000_000, 0, DefaultPriceTable(), 0),
		Libraries: map[common.Hash]*cell.Cell{hash: libCell},
	}
	e := New(in, NewRegistry())
	e.stack.Push(NewCell(refCell))

	require.NoError(t, opXload(e, Operands{}))
	require.Equal(t, 1, e.stack.Depth())
	v, err := e.stack.Pop()
	require.NoError(t, err)
	gotCell, err := v.Cell()
	require.NoError(t, err)
	require.Same(t, libCell, gotCell)
}
