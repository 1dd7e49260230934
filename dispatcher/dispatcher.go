// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dispatcher drives the NTS dispatcher bus bridge.
//
// The dispatcher block exposes a command/status/data register triplet.
// An access to an engine register is one bus transaction:
//   - the command word (engine, operation, 12-bit address) is written to
//     the command register (and, for writes, the value to the data register),
//   - 1 is written to the status register to trigger the transaction,
//   - the status register is polled until it reads back zero (idle),
//   - for reads, the result is read from the data register.
//
// Only one transaction may be outstanding at any time.
// A Bridge serializes its transactions with a mutex; it does not protect
// against other processes driving the same device.
package dispatcher // import "github.com/go-lpc/nts/dispatcher"

// Bus is the raw 32-bit register accessor of the memory-mapped device.
// Addresses are absolute word addresses, as used by the dispatcher base.
type Bus interface {
	Read32(addr uint32) (uint32, error)
	Write32(addr, v uint32) error
}

// Registers is a 32-bit register space.
//
// Engine views and the dispatcher window both implement Registers, so the
// wide-register helpers work on either of them.
type Registers interface {
	Read32(addr uint32) (uint32, error)
	Write32(addr, v uint32) error
}

// EngineID selects an engine behind the dispatcher.
type EngineID uint32

// MaxEngine is the largest engine selector a command word can carry.
const MaxEngine EngineID = 0xfff
