// Copyright 2024 The ever-vm Authors
// This file is part of ever-vm.
//
// ever-vm is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package tvm

import (
	lru "github.com/hashicorp/golang-lru"

	"github.com/everx-labs/ever-vm/common"
	"github.com/everx-labs/ever-vm/tvm/cell"
)

// libraryCacheSize bounds the in-run ARC cache of resolved library cells,
// sized the same way consensus/pob/snapshot.go sizes its header cache: a
// small fixed capacity rather than scaling with the code being run.
const libraryCacheSize = 256

// LibraryResolver resolves a LibraryReference cell's 256-bit hash to the
// actual library cell it names, with recently-resolved entries cached in an
// ARC cache (recency and frequency both matter here: a hot library called
// from a loop body should stay resident even if the run briefly scans
// through a long run of cold, unique ones).
type LibraryResolver struct {
	seed  map[common.Hash]*cell.Cell
	cache *lru.ARCCache
}

// NewLibraryResolver builds a resolver pre-seeded with the host-supplied
// library set (spec.md §6.1's persistent-data/library context); seed may be
// nil.
func NewLibraryResolver(seed map[common.Hash]*cell.Cell) *LibraryResolver {
	c, err := lru.NewARC(libraryCacheSize)
	if err != nil {
		// Only returns an error for a non-positive size, which
		// libraryCacheSize never is.
		panic(err)
	}
	return &LibraryResolver{seed: seed, cache: c}
}

// Resolve looks up hash, checking the ARC cache before falling back to the
// host-seeded library set.
func (r *LibraryResolver) Resolve(hash common.Hash) (*cell.Cell, bool) {
	if r == nil {
		return nil, false
	}
	if v, ok := r.cache.Get(hash); ok {
		return v.(*cell.Cell), true
	}
	if c, ok := r.seed[hash]; ok {
		r.cache.Add(hash, c)
		return c, true
	}
	return nil, false
}
