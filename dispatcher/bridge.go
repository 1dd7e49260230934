// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dispatcher

import (
	"fmt"
	"sync"

	"github.com/go-lpc/nts/internal/regs"
)

const (
	statusIdle    = 0
	statusTrigger = 1
)

// Bridge issues bus transactions to the engines behind the dispatcher.
//
// Bridge is safe for concurrent use: each transaction holds the bridge
// lock from the command write until the status register reads idle.
type Bridge struct {
	mu  sync.Mutex
	bus Bus
	cfg Config

	// stale is set while a triggered transaction has not been seen
	// completing. The next transaction waits for idle before issuing
	// its command.
	stale bool
}

// New returns a bridge driving the dispatcher of the provided bus.
func New(bus Bus, opts ...Option) *Bridge {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Bridge{bus: bus, cfg: cfg}
}

// Read32 reads the engine-relative register addr of engine e.
func (b *Bridge) Read32(e EngineID, addr uint32) (uint32, error) {
	if e > MaxEngine {
		return 0, fmt.Errorf("dispatcher: invalid engine id %d", e)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	cmd := NewCommand(e, OpRead, addr)
	err := b.settle(cmd)
	if err != nil {
		return 0, err
	}

	err = b.issue(cmd)
	if err != nil {
		return 0, err
	}

	v, err := b.bus.Read32(b.cfg.Base + regs.DispBusData)
	if err != nil {
		return 0, fmt.Errorf("dispatcher: could not read bus data (%v): %w", cmd, err)
	}
	return v, nil
}

// Write32 writes v to the engine-relative register addr of engine e.
func (b *Bridge) Write32(e EngineID, addr, v uint32) error {
	if e > MaxEngine {
		return fmt.Errorf("dispatcher: invalid engine id %d", e)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	cmd := NewCommand(e, OpWrite, addr)
	err := b.settle(cmd)
	if err != nil {
		return err
	}

	err = b.bus.Write32(b.cfg.Base+regs.DispBusData, v)
	if err != nil {
		return fmt.Errorf("dispatcher: could not write bus data (%v): %w", cmd, err)
	}

	return b.issue(cmd)
}

// WriteVerified writes v to the register addr of engine e and reads it back.
// A differing read-back value is reported as a *MismatchError.
func (b *Bridge) WriteVerified(e EngineID, addr, v uint32) error {
	return WriteVerified(b.Engine(e), addr, v)
}

// Read64 reads the 64-bit value held by the registers addr (high word)
// and addr+1 (low word) of engine e.
func (b *Bridge) Read64(e EngineID, addr uint32) (uint64, error) {
	return ReadU64(b.Engine(e), addr)
}

// issue writes the command word, triggers the transaction and
// polls the status register until the transaction completed.
func (b *Bridge) issue(cmd Command) error {
	err := b.bus.Write32(b.cfg.Base+regs.DispBusIDCmdAddr, uint32(cmd))
	if err != nil {
		return fmt.Errorf("dispatcher: could not write bus command (%v): %w", cmd, err)
	}

	b.stale = true
	err = b.bus.Write32(b.cfg.Base+regs.DispBusStatus, statusTrigger)
	if err != nil {
		return fmt.Errorf("dispatcher: could not trigger bus transaction (%v): %w", cmd, err)
	}

	err = b.wait(cmd)
	if err != nil {
		return err
	}
	b.stale = false
	return nil
}

// settle waits for a previously timed out transaction to complete.
func (b *Bridge) settle(cmd Command) error {
	if !b.stale {
		return nil
	}
	err := b.wait(cmd)
	if err != nil {
		return fmt.Errorf("dispatcher: previous bus transaction did not complete: %w", err)
	}
	b.stale = false
	return nil
}

func (b *Bridge) wait(cmd Command) error {
	for i := 0; i < b.cfg.Retries; i++ {
		status, err := b.bus.Read32(b.cfg.Base + regs.DispBusStatus)
		if err != nil {
			return fmt.Errorf("dispatcher: could not read bus status (%v): %w", cmd, err)
		}
		if status == statusIdle {
			return nil
		}
		if b.cfg.Interval > 0 {
			b.cfg.Sleep(b.cfg.Interval)
		}
	}
	b.cfg.Logger.Printf("bus transaction %v: timeout after %d polls", cmd, b.cfg.Retries)
	return &TimeoutError{Cmd: cmd, Polls: b.cfg.Retries}
}

// Engine returns the register space of engine e.
func (b *Bridge) Engine(e EngineID) *Engine {
	return &Engine{id: e, brd: b}
}

// Window returns the dispatcher register space.
// Window accesses go straight to the device and do not use the bus bridge.
func (b *Bridge) Window() *Window {
	return &Window{brd: b}
}

// Engine is the register space of one engine, reached through the bridge.
type Engine struct {
	id  EngineID
	brd *Bridge
}

// ID returns the engine selector.
func (e *Engine) ID() EngineID { return e.id }

func (e *Engine) Read32(addr uint32) (uint32, error) {
	return e.brd.Read32(e.id, addr)
}

func (e *Engine) Write32(addr, v uint32) error {
	return e.brd.Write32(e.id, addr, v)
}

// WriteVerified writes v at addr and checks the read-back value.
func (e *Engine) WriteVerified(addr, v uint32) error {
	return WriteVerified(e, addr, v)
}

// Read64 reads the 64-bit value held at addr (high word) and addr+1 (low word).
func (e *Engine) Read64(addr uint32) (uint64, error) {
	return ReadU64(e, addr)
}

func (e *Engine) String() string {
	return fmt.Sprintf("engine[%d]", e.id)
}

// Window is the register space of the dispatcher block itself.
type Window struct {
	brd *Bridge
}

func (w *Window) Read32(addr uint32) (uint32, error) {
	if addr >= regs.DispatcherSpan {
		return 0, fmt.Errorf("dispatcher: address 0x%x out of dispatcher range", addr)
	}

	w.brd.mu.Lock()
	defer w.brd.mu.Unlock()

	v, err := w.brd.bus.Read32(w.brd.cfg.Base + addr)
	if err != nil {
		return 0, fmt.Errorf("dispatcher: could not read register 0x%03x: %w", addr, err)
	}
	return v, nil
}

func (w *Window) Write32(addr, v uint32) error {
	if addr >= regs.DispatcherSpan {
		return fmt.Errorf("dispatcher: address 0x%x out of dispatcher range", addr)
	}

	w.brd.mu.Lock()
	defer w.brd.mu.Unlock()

	err := w.brd.bus.Write32(w.brd.cfg.Base+addr, v)
	if err != nil {
		return fmt.Errorf("dispatcher: could not write register 0x%03x: %w", addr, err)
	}
	return nil
}

// Read64 reads the 64-bit value held at addr (high word) and addr+1 (low word).
func (w *Window) Read64(addr uint32) (uint64, error) {
	return ReadU64(w, addr)
}

func (w *Window) String() string { return "dispatcher" }

var (
	_ Registers = (*Engine)(nil)
	_ Registers = (*Window)(nil)
)
