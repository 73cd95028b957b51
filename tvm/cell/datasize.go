// Copyright 2024 The ever-vm Authors
// This file is part of ever-vm.
//
// ever-vm is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package cell

// DataSize performs the BFS cell/bit/ref count described in spec.md §4.5
// (DATASIZE/CDATASIZE), visiting at most maxCells distinct cells (by
// pointer identity). It returns ok=false if the traversal would exceed
// maxCells, matching the CellOverflow condition the opcode raises.
func DataSize(root *Cell, maxCells int) (cells, bits, refs int, ok bool) {
	if root == nil {
		return 0, 0, 0, true
	}
	seen := make(map[*Cell]struct{})
	queue := []*Cell{root}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		if len(seen) > maxCells {
			return 0, 0, 0, false
		}
		cells++
		bits += c.BitLen()
		refs += c.RefCount()
		for i := 0; i < c.RefCount(); i++ {
			queue = append(queue, c.Ref(i))
		}
	}
	return cells, bits, refs, true
}
