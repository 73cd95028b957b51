// Copyright 2024 The ever-vm Authors
// This file is part of ever-vm.
//
// ever-vm is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package cell

import "errors"

// ErrDictMalformed is raised (as DictError, code 10) when a dictionary
// operation encounters a cell that does not have the two-ref fork shape a
// non-leaf dict node requires.
var ErrDictMalformed = errors.New("cell: malformed dictionary node")

// emptyBranch is a sentinel marking an unset fork branch. It is
// distinguished by pointer identity, never by content, and is never
// returned to callers as a value cell.
var emptyBranch = &Cell{}

// DictGet looks up key (its low keyBits bits, MSB-first) in the tree rooted
// at root. It returns (nil, false, nil) if absent.
//
// This is a deliberately simplified stand-in for the real TVM HashmapE
// encoding (see SPEC_FULL.md "Supplemented features"): one bit consumed per
// tree level with no common-prefix label compression, and keys bounded to
// 64 bits so they fit the register/stack-item representation used
// elsewhere in the core.
func DictGet(root *Cell, keyBits int, key uint64) (*Cell, bool, error) {
	return dictGetRec(root, keyBits, key)
}

func dictGetRec(node *Cell, bitsLeft int, key uint64) (*Cell, bool, error) {
	if node == nil || node == emptyBranch {
		return nil, false, nil
	}
	if bitsLeft == 0 {
		return node, true, nil
	}
	if node.RefCount() != 2 {
		return nil, false, ErrDictMalformed
	}
	bit := (key >> uint(bitsLeft-1)) & 1
	return dictGetRec(node.Ref(int(bit)), bitsLeft-1, key)
}

// DictSet inserts or replaces the value at key, returning the new root.
// The original tree is left untouched (nodes on the updated path are
// rebuilt; untouched subtrees are shared), matching the VM's handle-based,
// copy-on-write sharing discipline (spec.md §5).
func DictSet(root *Cell, keyBits int, key uint64, value *Cell) (*Cell, error) {
	return dictSetRec(root, keyBits, key, value)
}

func dictSetRec(node *Cell, bitsLeft int, key uint64, value *Cell) (*Cell, error) {
	if bitsLeft == 0 {
		return value, nil
	}
	left, right := emptyBranch, emptyBranch
	if node != nil && node != emptyBranch {
		if node.RefCount() != 2 {
			return nil, ErrDictMalformed
		}
		left, right = node.Ref(0), node.Ref(1)
	}
	bit := (key >> uint(bitsLeft-1)) & 1
	var err error
	if bit == 0 {
		left, err = dictSetRec(left, bitsLeft-1, key, value)
	} else {
		right, err = dictSetRec(right, bitsLeft-1, key, value)
	}
	if err != nil {
		return nil, err
	}
	b := NewBuilder()
	if err := b.StoreRef(left); err != nil {
		return nil, err
	}
	if err := b.StoreRef(right); err != nil {
		return nil, err
	}
	return b.Finalize()
}

// DictDelete removes key from the tree, returning the new root (nil if the
// dictionary becomes empty) and whether the key was present.
func DictDelete(root *Cell, keyBits int, key uint64) (*Cell, bool, error) {
	newRoot, found, err := dictDeleteRec(root, keyBits, key)
	if err != nil {
		return nil, false, err
	}
	if newRoot == emptyBranch {
		newRoot = nil
	}
	return newRoot, found, nil
}

func dictDeleteRec(node *Cell, bitsLeft int, key uint64) (*Cell, bool, error) {
	if node == nil || node == emptyBranch {
		return emptyBranch, false, nil
	}
	if bitsLeft == 0 {
		return emptyBranch, true, nil
	}
	if node.RefCount() != 2 {
		return nil, false, ErrDictMalformed
	}
	left, right := node.Ref(0), node.Ref(1)
	bit := (key >> uint(bitsLeft-1)) & 1
	var found bool
	var err error
	if bit == 0 {
		left, found, err = dictDeleteRec(left, bitsLeft-1, key)
	} else {
		right, found, err = dictDeleteRec(right, bitsLeft-1, key)
	}
	if err != nil {
		return nil, false, err
	}
	if !found {
		return node, false, nil
	}
	if left == emptyBranch && right == emptyBranch {
		return emptyBranch, true, nil
	}
	b := NewBuilder()
	if err := b.StoreRef(left); err != nil {
		return nil, false, err
	}
	if err := b.StoreRef(right); err != nil {
		return nil, false, err
	}
	newNode, err := b.Finalize()
	if err != nil {
		return nil, false, err
	}
	return newNode, true, nil
}
