// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package noncegen seeds the NTS nonce generator engine.
package noncegen // import "github.com/go-lpc/nts/noncegen"

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/go-lpc/nts/dispatcher"
	"github.com/go-lpc/nts/internal/regs"
)

// Seed is the key material of the nonce generator.
type Seed struct {
	Key     [4]uint32
	Context [6]uint32
}

// LegacySeed is the fixed seed historically loaded into the nonce generator.
var LegacySeed = Seed{
	Key: [4]uint32{
		0x5eb63bbb, 0xe01eeed0, 0x93cb22bb, 0x8f5acdc3,
	},
	Context: [6]uint32{
		0x6adfb183, 0xa4a2c94a, 0x2f92dab5, 0xade762a4, 0x7889a5a1, 0xdeadbeef,
	},
}

// Provider provides seeds for the nonce generator.
type Provider interface {
	Seed() (Seed, error)
}

// FixedProvider always provides the same seed.
type FixedProvider Seed

func (p FixedProvider) Seed() (Seed, error) { return Seed(p), nil }

// RandomProvider draws seeds from a source of randomness.
type RandomProvider struct {
	// Rand is the source of randomness.
	// crypto/rand.Reader is used when nil.
	Rand io.Reader
}

func (p RandomProvider) Seed() (Seed, error) {
	src := p.Rand
	if src == nil {
		src = rand.Reader
	}

	var (
		seed Seed
		buf  [4 * (len(seed.Key) + len(seed.Context))]byte
	)
	_, err := io.ReadFull(src, buf[:])
	if err != nil {
		return seed, fmt.Errorf("noncegen: could not draw random seed: %w", err)
	}

	for i := range seed.Key {
		seed.Key[i] = binary.BigEndian.Uint32(buf[4*i:])
	}
	buf2 := buf[4*len(seed.Key):]
	for i := range seed.Context {
		seed.Context[i] = binary.BigEndian.Uint32(buf2[4*i:])
	}
	return seed, nil
}

var (
	keyRegs = [4]uint32{
		regs.NonceGenKey0, regs.NonceGenKey1, regs.NonceGenKey2, regs.NonceGenKey3,
	}
	ctxRegs = [6]uint32{
		regs.NonceGenContext0, regs.NonceGenContext1, regs.NonceGenContext2,
		regs.NonceGenContext3, regs.NonceGenContext4, regs.NonceGenContext5,
	}
)

// Init seeds the nonce generator behind eng with a seed from p and
// starts it.
//
// The key words are written first, then the context words, then the
// label is cleared and the generator enabled.
func Init(eng dispatcher.Registers, p Provider) error {
	seed, err := p.Seed()
	if err != nil {
		return fmt.Errorf("noncegen: could not get seed: %w", err)
	}

	for i, addr := range keyRegs {
		err = eng.Write32(addr, seed.Key[i])
		if err != nil {
			return fmt.Errorf("noncegen: could not write key%d: %w", i, err)
		}
	}

	for i, addr := range ctxRegs {
		err = eng.Write32(addr, seed.Context[i])
		if err != nil {
			return fmt.Errorf("noncegen: could not write context%d: %w", i, err)
		}
	}

	err = eng.Write32(regs.NonceGenLabel, 0)
	if err != nil {
		return fmt.Errorf("noncegen: could not write label: %w", err)
	}

	err = eng.Write32(regs.NonceGenCtrl, 1)
	if err != nil {
		return fmt.Errorf("noncegen: could not enable nonce generator: %w", err)
	}

	return nil
}

// Name returns the name of the nonce generator core.
func Name(eng dispatcher.Registers) (string, error) {
	return dispatcher.ReadASCII(eng, regs.NonceGenName, 2)
}
