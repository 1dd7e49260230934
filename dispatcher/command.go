// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dispatcher

import (
	"fmt"

	"github.com/go-lpc/nts/internal/regs"
)

// Op is a bus operation code.
type Op uint8

const (
	OpRead  Op = regs.BusRead
	OpWrite Op = regs.BusWrite
)

func (op Op) String() string {
	switch op {
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	default:
		return fmt.Sprintf("op(0x%02x)", uint8(op))
	}
}

const (
	shiftEngine = 20
	shiftOp     = 12
)

// Command is a bus command word:
//
//	bits 20-31: engine selector
//	bits 12-19: operation code
//	bits  0-11: engine-relative address
type Command uint32

// NewCommand builds the command word for an access to the engine-relative
// address addr of engine e. addr is masked to 12 bits.
func NewCommand(e EngineID, op Op, addr uint32) Command {
	return Command(uint32(e)<<shiftEngine | uint32(op)<<shiftOp | addr&regs.EngineMask)
}

func (cmd Command) Engine() EngineID { return EngineID(uint32(cmd) >> shiftEngine) }
func (cmd Command) Op() Op           { return Op(uint32(cmd) >> shiftOp) }
func (cmd Command) Addr() uint32     { return uint32(cmd) & regs.EngineMask }

func (cmd Command) String() string {
	return fmt.Sprintf("%v engine[%d][0x%03x]", cmd.Op(), cmd.Engine(), cmd.Addr())
}
