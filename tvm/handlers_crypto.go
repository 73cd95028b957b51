// Copyright 2024 The ever-vm Authors
// This file is part of ever-vm.
//
// ever-vm is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package tvm

import (
	"crypto/ed25519"

	dilithium "github.com/cloudflare/circl/sign/dilithium/mode3"
	"golang.org/x/crypto/sha3"
)

// registerCrypto wires the signature/hash family (spec.md §4.6 supplement)
// to opcode prefixes 0xA0-0xAF. HASHEXT's extended hash functions and the
// post-quantum signature check are each gated behind a capability bit
// (spec.md §9), matching how CHKSIGNU's ed25519 baseline is always
// available but its exotic siblings are opt-in per workchain.
func registerCrypto(r *Registry) {
	r.add("HASHEXT_SHA3", 0xA0, 8, CapHashExt, HandlerFunc(opHashExtSha3), decodeNone)
	r.add("CHKSIGNU", 0xA1, 8, 0, HandlerFunc(opChksignu), decodeNone)
	r.add("CHKSIGNS_PQ", 0xA2, 8, CapPQSig, HandlerFunc(opChksignsPQ), decodeNone)
}

// opHashExtSha3 pops a slice, hashes its data bits with SHA3-256, and
// pushes the digest as an unsigned 256-bit integer.
func opHashExtSha3(e *Engine, ops Operands) error {
	s, err := popSlice(e)
	if err != nil {
		return err
	}
	data, err := s.LoadBitsMSB(s.RemainingBits())
	if err != nil {
		return cellErr(err)
	}
	h := sha3.Sum256(data)
	e.stack.Push(NewInteger(FromBytesMSB(h[:], 256, true)))
	return nil
}

// opChksignu implements CHKSIGNU: (hash signature pubkey -- ok?), the
// mandatory ed25519 signature check every capability set supports.
// chksig_always_succeed short-circuits it for test harnesses that do not
// want to construct real keypairs (spec.md §9 behavior modifiers).
func opChksignu(e *Engine, ops Operands) error {
	pub, err := popInt(e)
	if err != nil {
		return err
	}
	sig, err := popSlice(e)
	if err != nil {
		return err
	}
	hash, err := popInt(e)
	if err != nil {
		return err
	}
	if e.modifiers.ChksigAlwaysSucceed {
		pushBool(e, true)
		return nil
	}
	if pub.IsNaN() || hash.IsNaN() {
		pushBool(e, false)
		return nil
	}
	sigBytes, err := sig.LoadBitsMSB(sig.RemainingBits())
	if err != nil {
		return cellErr(err)
	}
	if len(sigBytes) != ed25519.SignatureSize {
		pushBool(e, false)
		return nil
	}
	pubBytes, err := pub.ToBytesMSB(256, true)
	if err != nil {
		pushBool(e, false)
		return nil
	}
	msg, err := hash.ToBytesMSB(256, true)
	if err != nil {
		return err
	}
	ok := ed25519.Verify(ed25519.PublicKey(pubBytes), msg, sigBytes)
	pushBool(e, ok)
	return nil
}

// opChksignsPQ implements the post-quantum signature family: (msgSlice
// signatureSlice pubkeySlice -- ok?), verified with CRYSTALS-Dilithium
// (mode3) rather than ed25519 (spec.md §9's pq_sig capability gate).
func opChksignsPQ(e *Engine, ops Operands) error {
	pubSlice, err := popSlice(e)
	if err != nil {
		return err
	}
	sigSlice, err := popSlice(e)
	if err != nil {
		return err
	}
	msgSlice, err := popSlice(e)
	if err != nil {
		return err
	}
	if e.modifiers.ChksigAlwaysSucceed {
		pushBool(e, true)
		return nil
	}
	pubBytes, err := pubSlice.LoadBitsMSB(pubSlice.RemainingBits())
	if err != nil {
		return cellErr(err)
	}
	sigBytes, err := sigSlice.LoadBitsMSB(sigSlice.RemainingBits())
	if err != nil {
		return cellErr(err)
	}
	msgBytes, err := msgSlice.LoadBitsMSB(msgSlice.RemainingBits())
	if err != nil {
		return cellErr(err)
	}
	if len(pubBytes) != dilithium.PublicKeySize || len(sigBytes) != dilithium.SignatureSize {
		pushBool(e, false)
		return nil
	}
	var pub dilithium.PublicKey
	if err := pub.UnmarshalBinary(pubBytes); err != nil {
		pushBool(e, false)
		return nil
	}
	pushBool(e, dilithium.Verify(&pub, msgBytes, sigBytes))
	return nil
}
