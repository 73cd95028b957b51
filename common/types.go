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

// Package common holds small value types shared across the VM core and its
// host-facing interfaces.
package common

import (
	"encoding/hex"
	"fmt"
)

// HashLength is the size in bytes of a cell hash (SHA-256).
const HashLength = 32

// AddressLength is the size in bytes of a workchain account address.
const AddressLength = 32

// Hash is the SHA-256 content hash of a cell.
type Hash [HashLength]byte

// BytesToHash sets b to hash, cropping from the left if b is longer than Hash.
func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
	return h
}

// Bytes returns the byte representation of the hash.
func (h Hash) Bytes() []byte { return h[:] }

// Hex returns the 0x-prefixed hex encoding of the hash.
func (h Hash) Hex() string { return "0x" + hex.EncodeToString(h[:]) }

// String implements fmt.Stringer.
func (h Hash) String() string { return h.Hex() }

// TerminalString implements a terse form for log output.
func (h Hash) TerminalString() string {
	return fmt.Sprintf("%x..%x", h[:3], h[HashLength-3:])
}

// Address is a 32-byte workchain-qualified account identifier.
type Address [AddressLength]byte

// BytesToAddress sets b to address, cropping from the left if oversized.
func BytesToAddress(b []byte) Address {
	var a Address
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
	return a
}

// Bytes returns the byte representation of the address.
func (a Address) Bytes() []byte { return a[:] }

// Hex returns the 0x-prefixed hex encoding of the address.
func (a Address) Hex() string { return "0x" + hex.EncodeToString(a[:]) }

func (a Address) String() string { return a.Hex() }
