// Copyright 2024 The ever-vm Authors
// This file is part of ever-vm.
//
// ever-vm is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// ever-vm is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with ever-vm. If not, see <http://www.gnu.org/licenses/>.

// Package cell implements the minimum faithful rendition of the cellular
// data model the VM core treats as an external collaborator (spec.md §3.1,
// §6.1): immutable, content-addressed cells of up to 1023 bits and 4 child
// references, slices (read cursors), and builders (append-only
// accumulators). It does not implement BOC (de)serialization; that remains
// the host's concern.
package cell

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/everx-labs/ever-vm/common"
)

// MaxBits is the maximum number of data bits a cell may hold.
const MaxBits = 1023

// MaxRefs is the maximum number of child references a cell may hold.
const MaxRefs = 4

// Kind distinguishes ordinary cells from the exotic variants the opcode set
// (ENDXC, CTOS library resolution) must recognize.
type Kind uint8

const (
	Ordinary Kind = iota
	PrunedBranch
	LibraryReference
	MerkleProof
	MerkleUpdate
)

var (
	// ErrOverflow is raised (as CellOverflow) when a builder would exceed
	// MaxBits or MaxRefs.
	ErrOverflow = errors.New("cell: builder overflow")
	// ErrUnderflow is raised (as CellUnderflow) when a slice read demands
	// more bits or refs than remain.
	ErrUnderflow = errors.New("cell: slice underflow")
	// ErrBadExotic is raised when an exotic cell's tag/shape is invalid.
	ErrBadExotic = errors.New("cell: malformed exotic cell")
)

// Cell is an immutable node: a bitstring of at most MaxBits bits plus up to
// MaxRefs child cells. Cells are shared by pointer; callers must never
// mutate a Cell's fields after Finalize has produced it.
type Cell struct {
	bits    []byte // MSB-first packed bits, length = ceil(bitLen/8)
	bitLen  int
	refs    []*Cell
	kind    Kind
	hash    common.Hash
	hashSet bool
}

// BitLen returns the number of data bits stored in the cell.
func (c *Cell) BitLen() int { return c.bitLen }

// RefCount returns the number of child references.
func (c *Cell) RefCount() int { return len(c.refs) }

// Ref returns the i-th child cell.
func (c *Cell) Ref(i int) *Cell { return c.refs[i] }

// Kind returns the cell's exotic tag.
func (c *Cell) Kind() Kind { return c.kind }

// Hash returns the content hash of the cell, computing and caching it on
// first access. The hash covers the bit-length, packed bits, kind tag, and
// the hashes of all children, which is sufficient for the within-run
// content-addressing the gas model's load-dedup invariant (spec.md §8.1)
// relies on; it is not the canonical TVM/BOC cell hash algorithm, which also
// folds in per-level cell descriptors the host's BOC codec (out of scope
// here) is responsible for.
func (c *Cell) Hash() common.Hash {
	if c.hashSet {
		return c.hash
	}
	h := sha256.New()
	h.Write([]byte{byte(c.kind)})
	var lenBuf [4]byte
	lenBuf[0] = byte(c.bitLen)
	lenBuf[1] = byte(c.bitLen >> 8)
	h.Write(lenBuf[:2])
	h.Write(c.bits)
	for _, r := range c.refs {
		rh := r.Hash()
		h.Write(rh[:])
	}
	c.hash = common.BytesToHash(h.Sum(nil))
	c.hashSet = true
	return c.hash
}

// NewSlice returns a read cursor positioned at the start of the cell.
func (c *Cell) NewSlice() *Slice {
	return &Slice{cell: c, bitEnd: c.bitLen, refEnd: len(c.refs)}
}

// bitAt returns the bit at index i (0 = most significant bit of byte 0).
func (c *Cell) bitAt(i int) uint {
	b := c.bits[i/8]
	shift := 7 - uint(i%8)
	return uint((b >> shift) & 1)
}

func checkKind(k Kind) error {
	if k > MerkleUpdate {
		return fmt.Errorf("%w: unknown kind %d", ErrBadExotic, k)
	}
	return nil
}
