// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package regs holds the register address map of the NTS FPGA design.
//
// Dispatcher registers are word offsets from DispatcherBase and are
// accessed directly. Engine registers live in the 12-bit engine-relative
// address space and are only reachable through the dispatcher bus bridge.
// These values are part of the hardware contract and must match the
// target bit-stream.
package regs // import "github.com/go-lpc/nts/internal/regs"

const (
	DispatcherBase = 0x20000000 // absolute word address of the dispatcher block
	DispatcherSpan = 0x1000     // number of 32-bit words in the dispatcher block

	EngineSpan = 0x1000 // number of 32-bit words in an engine address space
	EngineMask = 0xfff  // mask applied to engine-relative addresses
)

// dispatcher registers
const (
	DispName              = 0x000 // 64b, ASCII core name
	DispVersion           = 0x002 // 32b, ASCII version
	DispDummy             = 0x003 // 32b, scratch register
	DispSysTick32         = 0x004 // 32b
	DispNTPTime           = 0x006 // 64b, NTP timestamp
	DispBytesRx           = 0x00a // 64b
	DispCounterFrames     = 0x020 // 64b, frames detected
	DispCounterGood       = 0x022 // 64b
	DispCounterBad        = 0x024 // 64b
	DispCounterDispatched = 0x026 // 64b
	DispCounterError      = 0x028 // 64b

	DispBusIDCmdAddr = 80 // bus command word (engine|op|addr)
	DispBusStatus    = 81 // write 1 to trigger, non-zero while busy
	DispBusData      = 82 // bus data in/out
)

// bus operation codes
const (
	BusRead  = 0x55
	BusWrite = 0xAA
)

// core engine
const (
	EngineBase    = 0x000
	EngineName0   = EngineBase + 0
	EngineName1   = EngineBase + 1
	EngineVersion = EngineBase + 2
)

// clock engine
const (
	ClockBase  = 0x010
	ClockName0 = ClockBase + 0
	ClockName1 = ClockBase + 1
)

// nonce generator
const (
	NonceGenBase     = 0x020
	NonceGenName     = NonceGenBase + 0x00
	NonceGenCtrl     = NonceGenBase + 0x08
	NonceGenKey0     = NonceGenBase + 0x10
	NonceGenKey1     = NonceGenBase + 0x11
	NonceGenKey2     = NonceGenBase + 0x12
	NonceGenKey3     = NonceGenBase + 0x13
	NonceGenLabel    = NonceGenBase + 0x20
	NonceGenContext0 = NonceGenBase + 0x40
	NonceGenContext1 = NonceGenBase + 0x41
	NonceGenContext2 = NonceGenBase + 0x42
	NonceGenContext3 = NonceGenBase + 0x43
	NonceGenContext4 = NonceGenBase + 0x44
	NonceGenContext5 = NonceGenBase + 0x45
)

// key memory
const (
	KeyMemBase  = 0x080
	KeyMemName0 = KeyMemBase + 0x00
	KeyMemName1 = KeyMemBase + 0x01
	KeyMemCtrl  = KeyMemBase + 0x08

	KeyMemKey0ID     = KeyMemBase + 0x10
	KeyMemKey0Length = KeyMemBase + 0x11
	KeyMemKey0Start  = KeyMemBase + 0x40
	KeyMemKey0End    = KeyMemBase + 0x4f

	KeyMemKey1ID     = KeyMemBase + 0x12
	KeyMemKey1Length = KeyMemBase + 0x13
	KeyMemKey1Start  = KeyMemBase + 0x50
	KeyMemKey1End    = KeyMemBase + 0x5f

	KeyMemKey2ID     = KeyMemBase + 0x14
	KeyMemKey2Length = KeyMemBase + 0x15
	KeyMemKey2Start  = KeyMemBase + 0x60
	KeyMemKey2End    = KeyMemBase + 0x6f

	KeyMemKey3ID     = KeyMemBase + 0x16
	KeyMemKey3Length = KeyMemBase + 0x17
	KeyMemKey3Start  = KeyMemBase + 0x70
	KeyMemKey3End    = KeyMemBase + 0x7f
)

// debug counters
const (
	DebugBase         = 0x180
	DebugNTSProc      = DebugBase + 0x00 // 64b
	DebugNTSBadCookie = DebugBase + 0x02 // 64b
	DebugNTSBadAuth   = DebugBase + 0x04 // 64b
	DebugNTSBadKeyID  = DebugBase + 0x06 // 64b
	DebugName         = DebugBase + 0x08 // 32b
	DebugSysTick32    = DebugBase + 0x09
	DebugErrCrypto    = DebugBase + 0x20 // 64b
	DebugErrTxBuf     = DebugBase + 0x22 // 64b
)

// parser
const (
	ParserBase        = 0x200
	ParserName0       = ParserBase + 0x00
	ParserName1       = ParserBase + 0x01
	ParserVersion     = ParserBase + 0x02
	ParserState       = ParserBase + 0x10
	ParserStateCrypto = ParserBase + 0x12
	ParserErrorState  = ParserBase + 0x13
	ParserErrorCount  = ParserBase + 0x14
)
