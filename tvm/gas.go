// Copyright 2024 The ever-vm Authors
// This file is part of ever-vm.
//
// ever-vm is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package tvm

import (
	"github.com/VictoriaMetrics/fastcache"
	"github.com/everx-labs/ever-vm/common"
	"github.com/holiman/uint256"
)

// DefaultMaxGas is the absolute ceiling on the gas limit (2^63 - 1,
// spec.md §3.7).
const DefaultMaxGas uint64 = (1 << 63) - 1

// PriceTable supplies the per-instruction-byte, per-bit/per-ref builder,
// and fixed costs spec.md §4.4 describes.
type PriceTable struct {
	InstrBase      uint64 // fixed per-instruction fee
	InstrPerByte   uint64 // per opcode byte beyond the first
	LoadCellFirst  uint64 // first load of a given cell in this run
	LoadCellAgain  uint64 // subsequent loads of an already-seen cell
	BuilderPerBit  uint64
	BuilderPerRef  uint64
	FinalizeCell   uint64
	ExceptionFee   uint64
	StackOverDepth uint64 // per slot moved above depth 32
}

// DefaultPriceTable mirrors the published TVM cost schedule's shape
// (small fixed fees, cell I/O dominating real contracts' budgets).
func DefaultPriceTable() PriceTable {
	return PriceTable{
		InstrBase:      10,
		InstrPerByte:   1,
		LoadCellFirst:  100,
		LoadCellAgain:  25,
		BuilderPerBit:  1,
		BuilderPerRef:  100,
		FinalizeCell:   500,
		ExceptionFee:   50,
		StackOverDepth: 1,
	}
}

// cellLoadCacheBytes bounds the per-run fastcache backing the loaded-cell
// fingerprint dedup (spec.md §5, §8.1's cell-load-dedup invariant). One run
// rarely touches more than a few thousand distinct cells, so a small cache
// is ample; it never persists across runs (spec.md §5 "no shared mutable
// structure" between engine instances).
const cellLoadCacheBytes = 1 << 16

// Gas is the metering state for one contract invocation (spec.md §3.7).
type Gas struct {
	limit     uint64
	remaining int64 // signed; negative means out-of-gas
	credit    uint64
	max       uint64
	consumed  uint64
	price     PriceTable
	gasPrice  uint64 // host-supplied gram-per-gas-unit rate for BUYGAS

	seenCells *fastcache.Cache // hash -> presence, for load-dedup pricing
}

// NewGas constructs a Gas tracker with the given limit/credit and price
// table; gasPrice is the host-supplied BUYGAS conversion
// rate.
func NewGas(limit, credit uint64, price PriceTable, gasPrice uint64) *Gas {
	max := DefaultMaxGas
	if limit > max {
		limit = max
	}
	return &Gas{
		limit:     limit,
		remaining: int64(limit + credit),
		credit:    credit,
		max:       max,
		price:     price,
		gasPrice:  gasPrice,
		seenCells: fastcache.New(cellLoadCacheBytes),
	}
}

// Remaining returns limit - consumed (GASREMAINING's value), which may be
// negative after an out-of-gas fault.
func (g *Gas) Remaining() int64 { return int64(g.limit) - int64(g.consumed) }

// Consumed returns total gas charged so far.
func (g *Gas) Consumed() uint64 { return g.consumed }

// Limit returns the current gas limit.
func (g *Gas) Limit() uint64 { return g.limit }

// Credit returns the outstanding unpaid credit.
func (g *Gas) Credit() uint64 { return g.credit }

// Charge deducts cost from the remaining budget, returning OutOfGas if it
// would drive remaining negative. On success the invariant remaining <=
// limit (spec.md §3.7) is maintained by construction.
func (g *Gas) Charge(cost uint64) error {
	g.consumed += cost
	g.remaining -= int64(cost)
	if g.remaining < 0 {
		return newVMError(OutOfGas, int64(g.consumed))
	}
	return nil
}

// ChargeInstruction charges the base + per-byte fee for an instruction
// occupying instrBytes bytes of code.
func (g *Gas) ChargeInstruction(instrBytes int) error {
	cost := g.price.InstrBase
	if instrBytes > 1 {
		cost += g.price.InstrPerByte * uint64(instrBytes-1)
	}
	return g.Charge(cost)
}

// ChargeCellLoad charges the first-load or repeated-load fee for a cell
// identified by hash, using the fastcache-backed within-run fingerprint
// cache to distinguish them (spec.md §4.4/§8.1).
func (g *Gas) ChargeCellLoad(hash common.Hash) error {
	key := hash.Bytes()
	if g.seenCells.Has(key) {
		return g.Charge(g.price.LoadCellAgain)
	}
	g.seenCells.Set(key, []byte{1})
	return g.Charge(g.price.LoadCellFirst)
}

// ChargeBuilder charges the per-bit/per-ref fee for appending to a builder.
func (g *Gas) ChargeBuilder(bits, refs int) error {
	return g.Charge(uint64(bits)*g.price.BuilderPerBit + uint64(refs)*g.price.BuilderPerRef)
}

// ChargeFinalize charges ENDC's flat finalize fee.
func (g *Gas) ChargeFinalize() error { return g.Charge(g.price.FinalizeCell) }

// ChargeException charges the fixed fee for invoking an exception handler.
func (g *Gas) ChargeException() error { return g.Charge(g.price.ExceptionFee) }

// ChargeStackOver charges the per-moved-slot fee for stack operations that
// touch slots beyond depth 32 (spec.md §4.2).
func (g *Gas) ChargeStackOver(movedAboveThreshold int) error {
	if movedAboveThreshold <= 0 {
		return nil
	}
	return g.Charge(uint64(movedAboveThreshold) * g.price.StackOverDepth)
}

// Accept transfers outstanding credit into committed consumption; once
// accepted, prior credit cannot be un-spent even if the run later fails
// (spec.md §4.4 ACCEPT).
func (g *Gas) Accept() {
	g.credit = 0
}

// SetLimit implements SETGASLIMIT: raising or lowering the limit, trapping
// OutOfGas if the new limit is already below what has been consumed.
func (g *Gas) SetLimit(x uint64) error {
	if x > g.max {
		x = g.max
	}
	if x < g.consumed {
		return newVMError(OutOfGas, int64(g.consumed))
	}
	g.limit = x
	g.remaining = int64(x) - int64(g.consumed)
	return nil
}

// BuyGas implements BUYGAS: converts gram at gasPrice into gas units using
// checked 256-bit arithmetic (so a pathological gram value cannot silently
// wrap), clamping the resulting limit to max and trapping OutOfGas if the
// conversion underflows below what has already been consumed.
func (g *Gas) BuyGas(gram uint64) error {
	if g.gasPrice == 0 {
		return g.SetLimit(g.max)
	}
	gramU, priceU := uint256.NewInt(gram), uint256.NewInt(g.gasPrice)
	units, overflow := new(uint256.Int).MulDivOverflow(gramU, uint256.NewInt(1), priceU)
	if overflow || !units.IsUint64() {
		return g.SetLimit(g.max)
	}
	newLimit := g.limit + units.Uint64()
	if newLimit < g.limit { // overflow
		newLimit = g.max
	}
	return g.SetLimit(newLimit)
}
