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

	"github.com/everx-labs/ever-vm/tvm/cell"
)

// Operands is the decoded immediate-operand payload a Handler receives.
// Only the fields a given opcode's encoding populates are meaningful; the
// rest are zero. This mirrors the teacher's flat decoded-instruction struct
// in lang/vm/vm.go, generalized from a single fixed-width immediate to the
// several immediate shapes spec.md §4.7 lists.
type Operands struct {
	Int    int64  // small signed immediate (e.g. PUSHINT/arg counts)
	UInt   uint64 // unsigned immediate (e.g. bit counts)
	Big    *IntegerData
	Cont   *Continuation // a continuation read from the current code's own refs (CALLREF/PUSHCONT)
	Cont2  *Continuation
	Raw    []byte // raw immediate bits, for SDBEGINS' slice literal
	Nargs  int
	Spec   int64 // opcode-table's own arbitrary spec field, when a family shares a handler
}

// Handler is the behavior bound to one decoded opcode. It receives the live
// Engine (for stack/gas/ctrls access and control transfer) and its decoded
// Operands.
type Handler interface {
	Exec(e *Engine, ops Operands) error
}

// HandlerFunc adapts a plain function to the Handler interface, the same
// adapter shape the teacher's opcode table uses for its per-opcode Go funcs.
type HandlerFunc func(e *Engine, ops Operands) error

func (f HandlerFunc) Exec(e *Engine, ops Operands) error { return f(e, ops) }

// entry is one row of a decode table: a fixed prefix of prefixLen bits that
// must match, the Handler, and a decode callback that reads any further
// immediate bits the opcode requires and produces Operands.
type entry struct {
	prefix     uint64
	prefixLen  int
	capability uint64 // 0 = always enabled
	handler    Handler
	decodeOperands func(s *cell.Slice) (Operands, error)
	name       string
}

// Registry is the immutable, built-once decoder + dispatch table described
// by spec.md §4.7: a prefix-coded tree of lookup tables, consulted
// longest-match-first, with per-family capability gating.
//
// Internally it is a flat slice tried in descending prefix-length order
// (the "5 decoding rules" reduce, for any finite fixed opcode set, to
// longest-unique-prefix-wins — the tree shape the teacher's Disassemble
// effectively walks one byte at a time is unnecessary when the whole table
// fits in memory and is searched linearly per decode).
type Registry struct {
	entries []entry // sorted by descending prefixLen
}

// NewRegistry builds the handler registry once; the registerX functions in
// the handlers_*.go files populate it via add() calls, one per instruction
// family.
func NewRegistry() *Registry {
	r := &Registry{}
	registerArith(r)
	registerStack(r)
	registerCell(r)
	registerCtrl(r)
	registerCont(r)
	registerDict(r)
	registerCrypto(r)
	registerMisc(r)
	r.sort()
	return r
}

func (r *Registry) add(name string, prefix uint64, prefixLen int, capability uint64, h Handler, decode func(s *cell.Slice) (Operands, error)) {
	r.entries = append(r.entries, entry{
		prefix: prefix, prefixLen: prefixLen, capability: capability,
		handler: h, decodeOperands: decode, name: name,
	})
}

func (r *Registry) sort() {
	// Longest prefix first so a more specific opcode (e.g. a capability-
	// gated extension sharing a short common prefix with a base opcode)
	// is matched before the shorter, more general one (spec.md §4.7 rule
	// about longest-unique-prefix decoding).
	for i := 1; i < len(r.entries); i++ {
		j := i
		for j > 0 && r.entries[j-1].prefixLen < r.entries[j].prefixLen {
			r.entries[j-1], r.entries[j] = r.entries[j], r.entries[j-1]
			j--
		}
	}
}

// ErrDecode is returned when no entry's prefix matches the upcoming bits,
// or a capability-gated entry matches but its capability is not enabled.
var ErrDecode = fmt.Errorf("tvm: no matching opcode")

// Decode peeks the upcoming bits of s, finds the longest matching prefix
// whose capability (if any) is enabled, consumes the prefix and any further
// immediate bits the opcode defines, and returns its Handler plus decoded
// Operands and the instruction's total byte length (rounded up) for gas
// charging (spec.md §4.4/§4.7).
func (r *Registry) Decode(s *cell.Slice, capabilities uint64) (Handler, Operands, int, error) {
	for _, e := range r.entries {
		if s.RemainingBits() < e.prefixLen {
			continue
		}
		peek, err := s.PreloadUint(e.prefixLen)
		if err != nil {
			continue
		}
		if peek != e.prefix {
			continue
		}
		if e.capability != 0 && capabilities&e.capability == 0 {
			continue
		}
		startBits := s.RemainingBits()
		if _, err := s.LoadUint(e.prefixLen); err != nil {
			return nil, Operands{}, 0, err
		}
		ops := Operands{}
		if e.decodeOperands != nil {
			ops, err = e.decodeOperands(s)
			if err != nil {
				return nil, Operands{}, 0, err
			}
		}
		consumed := startBits - s.RemainingBits()
		instrBytes := (consumed + 7) / 8
		if instrBytes == 0 {
			instrBytes = 1
		}
		return e.handler, ops, instrBytes, nil
	}
	return nil, Operands{}, 0, ErrDecode
}
