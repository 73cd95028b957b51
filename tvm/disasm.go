// Copyright 2024 The ever-vm Authors
// This file is part of ever-vm.
//
// ever-vm is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package tvm

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/everx-labs/ever-vm/tvm/cell"
)

// Disassemble decodes code into one mnemonic line per instruction,
// following refs depth-first for PUSHCONT/CALLREF/JMPREF bodies (indented
// one level deeper), in the spirit of the teacher's lang/vm/vm.go
// Disassemble helper. Bits the registry cannot decode are rendered one per
// line as `.bit N` while the cursor advances one bit at a time to
// resynchronize, rather than aborting the whole dump.
func Disassemble(root *cell.Cell, registry *Registry, capabilities uint64) string {
	var b strings.Builder
	disassembleSlice(&b, root.NewSlice(), registry, capabilities, 0)
	return b.String()
}

func disassembleSlice(b *strings.Builder, s *cell.Slice, registry *Registry, capabilities uint64, depth int) {
	indent := strings.Repeat("  ", depth)
	for !s.IsEmpty() || s.RemainingRefs() > 0 {
		if s.RemainingBits() == 0 {
			break
		}
		h, ops, _, err := registry.Decode(s, capabilities)
		if err != nil {
			bit, _ := s.LoadUint(1)
			fmt.Fprintf(b, "%s.bit %d\n", indent, bit)
			continue
		}
		name := handlerName(registry, h)
		fmt.Fprintf(b, "%s%s%s\n", indent, name, formatOperands(ops))
		if ops.Cont != nil && ops.Cont.Code != nil {
			fmt.Fprintf(b, "%s{\n", indent)
			disassembleSlice(b, ops.Cont.Code.Clone(), registry, capabilities, depth+1)
			fmt.Fprintf(b, "%s}\n", indent)
		}
	}
}

func formatOperands(ops Operands) string {
	switch {
	case ops.Big != nil:
		return fmt.Sprintf(" %s", ops.Big.BigInt().String())
	case ops.Raw != nil:
		return fmt.Sprintf(" x%x", ops.Raw)
	case ops.Cont != nil:
		return ""
	case ops.UInt != 0:
		return fmt.Sprintf(" %d", ops.UInt)
	case ops.Int != 0:
		return fmt.Sprintf(" %d", ops.Int)
	default:
		return ""
	}
}

// handlerName looks up the mnemonic an entry was registered under. Handlers
// are compared by identity: HandlerFunc values do not support ==, so the
// func value's own closure pointer is compared (distinct for every closure
// binWrap and its siblings return, unlike the shared code pointer %p
// prints), matching the only purpose this serves: a readable disassembly,
// not a semantic lookup.
func handlerName(r *Registry, h Handler) string {
	f, ok := h.(HandlerFunc)
	if !ok {
		return "UNKNOWN"
	}
	target := *(*unsafe.Pointer)(unsafe.Pointer(&f))
	for _, e := range r.entries {
		if ef, ok := e.handler.(HandlerFunc); ok && *(*unsafe.Pointer)(unsafe.Pointer(&ef)) == target {
			return e.name
		}
	}
	return "UNKNOWN"
}
