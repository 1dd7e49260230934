// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nts

import (
	"fmt"

	"github.com/go-lpc/nts/devmem"
	"github.com/go-lpc/nts/dispatcher"
)

// Board is an NTS board reached through a memory-mapped device file.
type Board struct {
	*dispatcher.Bridge

	mem *devmem.Device
}

// Open maps the dispatcher block found at the given file offset of the
// named device file and returns a bus bridge over it.
func Open(fname string, offset int64, opts ...dispatcher.Option) (*Board, error) {
	mem, err := devmem.Open(fname, devmem.WithOffset(offset))
	if err != nil {
		return nil, fmt.Errorf("nts: could not open board: %w", err)
	}

	return &Board{
		Bridge: dispatcher.New(mem, opts...),
		mem:    mem,
	}, nil
}

// Close releases the device file.
func (brd *Board) Close() error {
	err := brd.mem.Close()
	if err != nil {
		return fmt.Errorf("nts: could not close board: %w", err)
	}
	return nil
}
