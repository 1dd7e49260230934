// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dispatcher

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// ReadU64 reads a 64-bit value split over two consecutive registers:
// addr holds the most significant word, addr+1 the least significant one.
// Counters and the NTP timestamp all follow this layout.
func ReadU64(r Registers, addr uint32) (uint64, error) {
	msb, err := r.Read32(addr)
	if err != nil {
		return 0, fmt.Errorf("dispatcher: could not read msb of 0x%03x: %w", addr, err)
	}
	lsb, err := r.Read32(addr + 1)
	if err != nil {
		return 0, fmt.Errorf("dispatcher: could not read lsb of 0x%03x: %w", addr, err)
	}
	return uint64(msb)<<32 | uint64(lsb), nil
}

// ReadASCII reads n consecutive words starting at addr and decodes their
// big-endian bytes as text. NUL padding is trimmed and bytes outside of
// printable ASCII are replaced with '.'.
// The result is meant for display: names and versions of the cores.
func ReadASCII(r Registers, addr uint32, n int) (string, error) {
	buf := make([]byte, 4*n)
	for i := 0; i < n; i++ {
		v, err := r.Read32(addr + uint32(i))
		if err != nil {
			return "", fmt.Errorf("dispatcher: could not read name word 0x%03x: %w", addr+uint32(i), err)
		}
		binary.BigEndian.PutUint32(buf[4*i:], v)
	}
	return ascii(buf), nil
}

func ascii(p []byte) string {
	p = bytes.Trim(p, "\x00")
	for i, c := range p {
		if c < 0x20 || c > 0x7e {
			p[i] = '.'
		}
	}
	return string(p)
}

// WriteVerified writes v at addr and reads it back.
// A differing value is reported as a *MismatchError.
func WriteVerified(r Registers, addr, v uint32) error {
	err := r.Write32(addr, v)
	if err != nil {
		return err
	}
	got, err := r.Read32(addr)
	if err != nil {
		return err
	}
	if got != v {
		return &MismatchError{
			Where: where(r),
			Addr:  addr,
			Want:  v,
			Got:   got,
		}
	}
	return nil
}

func where(r Registers) string {
	if s, ok := r.(fmt.Stringer); ok {
		return s.String()
	}
	return "register"
}
