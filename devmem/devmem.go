// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package devmem gives raw 32-bit access to the registers of a
// memory-mapped device file, such as /dev/mem or a PCI resource file.
package devmem // import "github.com/go-lpc/nts/devmem"

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/go-lpc/nts/internal/mmap"
	"github.com/go-lpc/nts/internal/regs"
)

type config struct {
	offset int64  // file offset of the mapping
	span   int    // size of the mapping, in bytes
	origin uint32 // word address mapped at the start of the mapping
	stride int    // bytes between two consecutive word addresses
}

func newConfig() config {
	return config{
		offset: 0,
		span:   regs.DispatcherSpan * 4,
		origin: regs.DispatcherBase,
		stride: 4,
	}
}

// Option configures the mapping of a Device.
type Option func(*config)

// WithOffset sets the (page aligned) file offset of the mapping.
func WithOffset(off int64) Option {
	return func(cfg *config) {
		cfg.offset = off
	}
}

// WithSpan sets the size in bytes of the mapping.
func WithSpan(n int) Option {
	return func(cfg *config) {
		cfg.span = n
	}
}

// WithOrigin sets the word address found at the start of the mapping.
func WithOrigin(addr uint32) Option {
	return func(cfg *config) {
		cfg.origin = addr
	}
}

// WithStride sets the number of bytes between two consecutive word addresses.
func WithStride(n int) Option {
	return func(cfg *config) {
		cfg.stride = n
	}
}

// Device is a memory-mapped register window.
//
// Register values are 32-bit little-endian words.
// Address a lives at byte (a-origin)*stride of the mapping.
type Device struct {
	fd  *os.File
	mem *mmap.Handle
	cfg config
}

// Open opens and maps the named device file.
func Open(fname string, opts ...Option) (*Device, error) {
	cfg := newConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.stride < 4 {
		return nil, fmt.Errorf("devmem: invalid stride %d", cfg.stride)
	}

	fd, err := os.OpenFile(fname, os.O_RDWR|os.O_SYNC, 0666)
	if err != nil {
		return nil, fmt.Errorf("devmem: could not open %q: %w", fname, err)
	}
	defer func() {
		if err != nil {
			_ = fd.Close()
		}
	}()

	mem, err := mmap.Map(fd, cfg.offset, cfg.span)
	if err != nil {
		return nil, fmt.Errorf("devmem: could not map %q: %w", fname, err)
	}

	return &Device{fd: fd, mem: mem, cfg: cfg}, nil
}

func (dev *Device) offset(addr uint32) (int64, error) {
	if dev.mem == nil {
		return 0, fmt.Errorf("devmem: device closed")
	}
	if addr < dev.cfg.origin {
		return 0, fmt.Errorf("devmem: address 0x%x below window origin 0x%x", addr, dev.cfg.origin)
	}
	off := int64(addr-dev.cfg.origin) * int64(dev.cfg.stride)
	if off+4 > int64(dev.mem.Len()) {
		return 0, fmt.Errorf("devmem: address 0x%x beyond window end", addr)
	}
	return off, nil
}

// Read32 reads the 32-bit register at addr.
func (dev *Device) Read32(addr uint32) (uint32, error) {
	off, err := dev.offset(addr)
	if err != nil {
		return 0, err
	}
	var buf [4]byte
	_, err = dev.mem.ReadAt(buf[:], off)
	if err != nil {
		return 0, fmt.Errorf("devmem: could not read register 0x%x: %w", addr, err)
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

// Write32 writes v to the 32-bit register at addr.
func (dev *Device) Write32(addr, v uint32) error {
	off, err := dev.offset(addr)
	if err != nil {
		return err
	}
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err = dev.mem.WriteAt(buf[:], off)
	if err != nil {
		return fmt.Errorf("devmem: could not write register 0x%x: %w", addr, err)
	}
	return nil
}

// Close unmaps the register window and closes the device file.
func (dev *Device) Close() error {
	if dev.fd == nil {
		return nil
	}

	var (
		errMem = dev.mem.Close()
		errFD  = dev.fd.Close()
	)
	dev.fd = nil
	dev.mem = nil

	if errMem != nil {
		return fmt.Errorf("devmem: could not unmap register window: %w", errMem)
	}
	if errFD != nil {
		return fmt.Errorf("devmem: could not close device file: %w", errFD)
	}
	return nil
}
