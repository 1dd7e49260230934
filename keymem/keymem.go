// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package keymem installs 256-bit keys into the NTS key memory engine.
//
// The key memory holds NumSlots key slots. Each slot has a key id
// register, a key length register and 16 words of key material, of which
// only the lower 8 are used for 256-bit keys.
// A slot is used by the hardware only while its bit is set in the
// control register.
package keymem // import "github.com/go-lpc/nts/keymem"

import (
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/go-lpc/nts/dispatcher"
	"github.com/go-lpc/nts/internal/regs"
)

const (
	NumSlots = 4 // number of key slots
	KeyWords = 8 // number of 32-bit words in a 256-bit key
)

// Slot identifies a key slot, in [0, NumSlots).
type Slot int

// Valid reports whether s is a key slot of the key memory.
func (s Slot) Valid() bool { return 0 <= s && s < NumSlots }

func (s Slot) bit() uint32 { return 1 << uint(s) }

// Key256 is a 256-bit key, most significant word first.
type Key256 [KeyWords]uint32

// ErrInvalidSlot is the target of errors.Is for out of range key slots.
var ErrInvalidSlot = errors.New("keymem: invalid key slot")

// SlotError reports an out of range key slot.
type SlotError struct {
	Slot Slot
}

func (e *SlotError) Error() string {
	return fmt.Sprintf("keymem: invalid key slot %d (valid slots: 0-%d)", e.Slot, NumSlots-1)
}

func (e *SlotError) Is(target error) bool { return target == ErrInvalidSlot }

// State is the progress of the last key installation.
type State uint8

const (
	Idle          State = iota // no installation attempted
	Disabled                   // slot disabled in the control register
	FieldsWritten              // key id, length and material written and verified
	Enabled                    // slot enabled again, installation complete
	Aborted                    // installation stopped on an error
)

func (st State) String() string {
	switch st {
	case Idle:
		return "idle"
	case Disabled:
		return "slot-disabled"
	case FieldsWritten:
		return "fields-written"
	case Enabled:
		return "slot-enabled"
	case Aborted:
		return "aborted"
	}
	return fmt.Sprintf("State(%d)", uint8(st))
}

// layout holds the registers of a key slot.
type layout struct {
	start  uint32 // first word of key material
	id     uint32
	length uint32
}

var slots = [NumSlots]layout{
	{regs.KeyMemKey0Start, regs.KeyMemKey0ID, regs.KeyMemKey0Length},
	{regs.KeyMemKey1Start, regs.KeyMemKey1ID, regs.KeyMemKey1Length},
	{regs.KeyMemKey2Start, regs.KeyMemKey2ID, regs.KeyMemKey2Length},
	{regs.KeyMemKey3Start, regs.KeyMemKey3ID, regs.KeyMemKey3Length},
}

func slotLayout(s Slot) (layout, error) {
	if !s.Valid() {
		return layout{}, &SlotError{Slot: s}
	}
	return slots[s], nil
}

// materialOffset returns the position in a Key256 of the word stored
// at start+i: the key memory holds keys least significant word first.
func materialOffset(i int) int { return KeyWords - 1 - i }

// Option configures a KeyMem.
type Option func(*KeyMem)

// WithLogger sets the logger of the key memory.
func WithLogger(msg *log.Logger) Option {
	return func(km *KeyMem) {
		km.msg = msg
	}
}

// KeyMem drives the key memory engine.
//
// KeyMem values are not safe for concurrent use.
type KeyMem struct {
	eng   dispatcher.Registers
	msg   *log.Logger
	state State
}

// New returns a key memory driver over the engine register space eng.
func New(eng dispatcher.Registers, opts ...Option) *KeyMem {
	km := &KeyMem{
		eng: eng,
		msg: log.New(io.Discard, "keymem: ", 0),
	}
	for _, opt := range opts {
		opt(km)
	}
	return km
}

// State returns the state reached by the last call to Install.
func (km *KeyMem) State() State { return km.state }

// Install installs a 256-bit key with the given key id into slot.
//
// The slot is disabled while its fields are written, and enabled again
// once every write has been read back successfully.
// On error, Install tries to leave the slot disabled and returns the
// first error encountered.
func (km *KeyMem) Install(slot Slot, id uint32, key Key256) (err error) {
	lay, err := slotLayout(slot)
	if err != nil {
		return err
	}

	km.state = Idle
	km.msg.Printf(
		"install key: slot=%d, key=0x%03x, key-id=0x%03x, key-length=0x%03x",
		slot, lay.start, lay.id, lay.length,
	)

	ctrl, err := km.eng.Read32(regs.KeyMemCtrl)
	if err != nil {
		km.state = Aborted
		return fmt.Errorf("keymem: could not read control register: %w", err)
	}
	ctrl &^= slot.bit()

	err = dispatcher.WriteVerified(km.eng, regs.KeyMemCtrl, ctrl)
	if err != nil {
		km.state = Aborted
		return fmt.Errorf("keymem: could not disable slot %d: %w", slot, err)
	}
	km.state = Disabled

	defer func() {
		if err == nil {
			return
		}
		km.state = Aborted
		e := km.eng.Write32(regs.KeyMemCtrl, ctrl)
		if e != nil {
			km.msg.Printf("could not keep slot %d disabled: %+v", slot, e)
		}
	}()

	err = dispatcher.WriteVerified(km.eng, lay.id, id)
	if err != nil {
		return fmt.Errorf("keymem: could not write key id of slot %d: %w", slot, err)
	}

	err = dispatcher.WriteVerified(km.eng, lay.length, 0)
	if err != nil {
		return fmt.Errorf("keymem: could not write key length of slot %d: %w", slot, err)
	}

	for i := 0; i < KeyWords; i++ {
		var (
			addr = lay.start + uint32(i)
			v    = key[materialOffset(i)]
		)
		km.msg.Printf("install key: engine[0x%03x]=0x%08x", addr, v)
		err = dispatcher.WriteVerified(km.eng, addr, v)
		if err != nil {
			return fmt.Errorf("keymem: could not write key word %d of slot %d: %w", i, slot, err)
		}
		err = dispatcher.WriteVerified(km.eng, addr+KeyWords, 0)
		if err != nil {
			return fmt.Errorf("keymem: could not clear key word %d of slot %d: %w", i+KeyWords, slot, err)
		}
	}
	km.state = FieldsWritten

	got, err := km.readKey(lay)
	if err != nil {
		return err
	}
	for i := KeyWords - 1; i >= 0; i-- {
		km.msg.Printf("key[%d]: %08x", i, got[materialOffset(i)])
	}

	cur, err := km.eng.Read32(regs.KeyMemCtrl)
	if err != nil {
		return fmt.Errorf("keymem: could not read control register: %w", err)
	}
	ctrl = cur &^ slot.bit()

	err = dispatcher.WriteVerified(km.eng, regs.KeyMemCtrl, cur|slot.bit())
	if err != nil {
		return fmt.Errorf("keymem: could not enable slot %d: %w", slot, err)
	}
	km.state = Enabled

	return nil
}

// Disable clears the control bit of slot.
func (km *KeyMem) Disable(slot Slot) error {
	if !slot.Valid() {
		return &SlotError{Slot: slot}
	}

	ctrl, err := km.eng.Read32(regs.KeyMemCtrl)
	if err != nil {
		return fmt.Errorf("keymem: could not read control register: %w", err)
	}

	err = dispatcher.WriteVerified(km.eng, regs.KeyMemCtrl, ctrl&^slot.bit())
	if err != nil {
		return fmt.Errorf("keymem: could not disable slot %d: %w", slot, err)
	}
	return nil
}

// Enabled reports whether the control bit of slot is set.
func (km *KeyMem) Enabled(slot Slot) (bool, error) {
	if !slot.Valid() {
		return false, &SlotError{Slot: slot}
	}

	ctrl, err := km.eng.Read32(regs.KeyMemCtrl)
	if err != nil {
		return false, fmt.Errorf("keymem: could not read control register: %w", err)
	}
	return ctrl&slot.bit() != 0, nil
}

// ReadKey reads back the key material of slot.
func (km *KeyMem) ReadKey(slot Slot) (Key256, error) {
	lay, err := slotLayout(slot)
	if err != nil {
		return Key256{}, err
	}
	return km.readKey(lay)
}

// KeyID reads back the key id of slot.
func (km *KeyMem) KeyID(slot Slot) (uint32, error) {
	lay, err := slotLayout(slot)
	if err != nil {
		return 0, err
	}
	id, err := km.eng.Read32(lay.id)
	if err != nil {
		return 0, fmt.Errorf("keymem: could not read key id of slot %d: %w", slot, err)
	}
	return id, nil
}

func (km *KeyMem) readKey(lay layout) (Key256, error) {
	var key Key256
	for i := 0; i < KeyWords; i++ {
		v, err := km.eng.Read32(lay.start + uint32(i))
		if err != nil {
			return key, fmt.Errorf("keymem: could not read key word 0x%03x: %w", lay.start+uint32(i), err)
		}
		key[materialOffset(i)] = v
	}
	return key, nil
}
