// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dispatcher

import (
	"github.com/go-lpc/nts/internal/regs"
)

// Word is a register address and its content.
type Word struct {
	Addr  uint32
	Value uint32
}

// Scan reads every one of the 4096 addresses of r and calls fn for each
// non-zero word, in increasing address order.
// Scan stops at the first error.
func Scan(r Registers, fn func(w Word) error) error {
	for addr := uint32(0); addr < regs.EngineSpan; addr++ {
		v, err := r.Read32(addr)
		if err != nil {
			return err
		}
		if v == 0 {
			continue
		}
		err = fn(Word{Addr: addr, Value: v})
		if err != nil {
			return err
		}
	}
	return nil
}

// NonZero returns all the non-zero words of r.
func NonZero(r Registers) ([]Word, error) {
	var ws []Word
	err := Scan(r, func(w Word) error {
		ws = append(ws, w)
		return nil
	})
	return ws, err
}
