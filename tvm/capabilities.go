// Copyright 2024 The ever-vm Authors
// This file is part of ever-vm.
//
// ever-vm is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package tvm

// Global capability bits the host enables per spec.md §9 ("Global
// capability gates"): each gates one opcode family at decode time
// (Registry.Decode), independent of the contract's own code.
const (
	CapHashExt uint64 = 1 << iota
	CapPQSig
)
