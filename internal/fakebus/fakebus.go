// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fakebus provides an in-memory model of the NTS dispatcher,
// for tests.
//
// The model answers raw 32-bit accesses on the dispatcher window and
// executes the bus transactions triggered through the command/status/data
// registers against per-engine register memories.
package fakebus // import "github.com/go-lpc/nts/internal/fakebus"

import (
	"fmt"
	"sync"

	"github.com/go-lpc/nts/internal/regs"
)

// Op is a raw register access.
type Op struct {
	Write bool
	Addr  uint32 // dispatcher-relative word address
	Value uint32
}

func (op Op) String() string {
	if op.Write {
		return fmt.Sprintf("w[0x%03x]=0x%08x", op.Addr, op.Value)
	}
	return fmt.Sprintf("r[0x%03x]=0x%08x", op.Addr, op.Value)
}

// Tx is an executed bus transaction.
type Tx struct {
	Engine uint32
	Write  bool
	Addr   uint32
	Value  uint32
}

func (tx Tx) String() string {
	if tx.Write {
		return fmt.Sprintf("engine[%d] w[0x%03x]=0x%08x", tx.Engine, tx.Addr, tx.Value)
	}
	return fmt.Sprintf("engine[%d] r[0x%03x]=0x%08x", tx.Engine, tx.Addr, tx.Value)
}

// Device is a fake dispatcher with echoing engine memories.
type Device struct {
	mu sync.Mutex

	base    uint32
	disp    [regs.DispatcherSpan]uint32
	engines map[uint32]*[regs.EngineSpan]uint32

	busy    []uint32 // status values reported after each trigger
	pending []uint32
	hang    bool

	ops []Op
	txs []Tx

	// ReadBack, when set, returns the value a read transaction puts in
	// the data register, in place of the stored engine value.
	// It is called with the device lock held.
	ReadBack func(tx Tx) uint32

	// Fail, when set, is called before each raw access.
	// A non-nil error aborts the access.
	// It is called with the device lock held.
	Fail func(op Op) error
}

// New returns a fake dispatcher mapped at regs.DispatcherBase.
func New() *Device {
	return &Device{
		base:    regs.DispatcherBase,
		engines: make(map[uint32]*[regs.EngineSpan]uint32),
	}
}

// SetBusy sets the status values reported by the polls following each
// trigger, before the status register reads back idle.
func (dev *Device) SetBusy(status ...uint32) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	dev.busy = append([]uint32(nil), status...)
}

// Hang makes every triggered transaction stay busy forever (or not).
func (dev *Device) Hang(v bool) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	dev.hang = v
	if !v {
		dev.pending = nil
	}
}

// Ops returns the raw accesses seen so far.
func (dev *Device) Ops() []Op {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return append([]Op(nil), dev.ops...)
}

// Txs returns the bus transactions executed so far.
func (dev *Device) Txs() []Tx {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return append([]Tx(nil), dev.txs...)
}

// Writes returns the engine write transactions executed so far.
func (dev *Device) Writes() []Tx {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	var ws []Tx
	for _, tx := range dev.txs {
		if tx.Write {
			ws = append(ws, tx)
		}
	}
	return ws
}

// ClearLogs drops the recorded accesses and transactions.
func (dev *Device) ClearLogs() {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	dev.ops = nil
	dev.txs = nil
}

// Count returns the number of raw accesses to the dispatcher register addr.
func (dev *Device) Count(write bool, addr uint32) int {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	n := 0
	for _, op := range dev.ops {
		if op.Write == write && op.Addr == addr {
			n++
		}
	}
	return n
}

// Reg returns the dispatcher register addr.
func (dev *Device) Reg(addr uint32) uint32 {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.disp[addr]
}

// SetReg sets the dispatcher register addr.
func (dev *Device) SetReg(addr, v uint32) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	dev.disp[addr] = v
}

// Peek returns the register addr of engine e.
func (dev *Device) Peek(e, addr uint32) uint32 {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.engine(e)[addr&regs.EngineMask]
}

// Poke sets the register addr of engine e.
func (dev *Device) Poke(e, addr, v uint32) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	dev.engine(e)[addr&regs.EngineMask] = v
}

func (dev *Device) engine(e uint32) *[regs.EngineSpan]uint32 {
	mem, ok := dev.engines[e]
	if !ok {
		mem = new([regs.EngineSpan]uint32)
		dev.engines[e] = mem
	}
	return mem
}

func (dev *Device) offset(addr uint32) (uint32, error) {
	if addr < dev.base || addr-dev.base >= regs.DispatcherSpan {
		return 0, fmt.Errorf("fakebus: address 0x%x out of dispatcher window", addr)
	}
	return addr - dev.base, nil
}

// Read32 implements the raw register read.
func (dev *Device) Read32(addr uint32) (uint32, error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	off, err := dev.offset(addr)
	if err != nil {
		return 0, err
	}
	if dev.Fail != nil {
		err = dev.Fail(Op{Addr: off})
		if err != nil {
			return 0, err
		}
	}

	var v uint32
	switch off {
	case regs.DispBusStatus:
		switch {
		case dev.hang:
			v = 1
		case len(dev.pending) > 0:
			v = dev.pending[0]
			dev.pending = dev.pending[1:]
		default:
			v = 0
		}
	default:
		v = dev.disp[off]
	}
	dev.ops = append(dev.ops, Op{Addr: off, Value: v})
	return v, nil
}

// Write32 implements the raw register write.
func (dev *Device) Write32(addr, v uint32) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	off, err := dev.offset(addr)
	if err != nil {
		return err
	}
	op := Op{Write: true, Addr: off, Value: v}
	if dev.Fail != nil {
		err = dev.Fail(op)
		if err != nil {
			return err
		}
	}
	dev.ops = append(dev.ops, op)

	switch off {
	case regs.DispBusStatus:
		if v != 0 {
			dev.exec()
		}
	default:
		dev.disp[off] = v
	}
	return nil
}

func (dev *Device) exec() {
	var (
		cmd  = dev.disp[regs.DispBusIDCmdAddr]
		e    = cmd >> 20
		op   = (cmd >> 12) & 0xff
		addr = cmd & regs.EngineMask
		mem  = dev.engine(e)
	)

	dev.pending = append([]uint32(nil), dev.busy...)

	switch op {
	case regs.BusRead:
		tx := Tx{Engine: e, Addr: addr, Value: mem[addr]}
		if dev.ReadBack != nil {
			tx.Value = dev.ReadBack(tx)
		}
		dev.disp[regs.DispBusData] = tx.Value
		dev.txs = append(dev.txs, tx)
	case regs.BusWrite:
		tx := Tx{Engine: e, Write: true, Addr: addr, Value: dev.disp[regs.DispBusData]}
		mem[addr] = tx.Value
		dev.txs = append(dev.txs, tx)
	}
}
