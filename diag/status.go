// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package diag reads status snapshots and register dumps from the NTS
// dispatcher and its engines.
package diag // import "github.com/go-lpc/nts/diag"

import (
	"bufio"
	"fmt"
	"io"

	"github.com/go-lpc/nts/dispatcher"
	"github.com/go-lpc/nts/internal/regs"
)

// Board holds the register spaces a status snapshot is read from.
type Board struct {
	Dispatcher dispatcher.Registers // dispatcher block
	Engine     dispatcher.Registers // engine register space
}

// NewBoard returns the dispatcher window of brd and the register space
// of engine e.
func NewBoard(brd *dispatcher.Bridge, e dispatcher.EngineID) Board {
	return Board{
		Dispatcher: brd.Window(),
		Engine:     brd.Engine(e),
	}
}

// Frames holds the frame counters of the dispatcher.
type Frames struct {
	Detected   uint64
	Good       uint64
	Bad        uint64
	Dispatched uint64
	Error      uint64
}

// Names holds the names of the engine cores.
type Names struct {
	Core     string
	Clock    string
	Debug    string
	KeyMem   string
	NonceGen string
	Parser   string
}

// NTS holds the NTS processing counters of the debug engine.
type NTS struct {
	Processed uint64
	BadCookie uint64
	BadAuth   uint64
	BadKeyID  uint64
}

// Errors holds the error counters of the debug engine.
type Errors struct {
	Crypto uint64
	TxBuf  uint64
}

// Parser holds the state registers of the parser engine.
type Parser struct {
	State       uint32
	StateCrypto uint32
	ErrorState  uint32
	ErrorCount  uint32
}

// Status is a snapshot of the dispatcher and engine counters.
type Status struct {
	Name    string // dispatcher core name
	Version string // dispatcher core version
	NTPTime uint64 // NTP timestamp, 32.32 fixed point
	SysTick uint32
	BytesRx uint64
	Frames  Frames

	Engines      Names
	NTS          NTS
	Errors       Errors
	DebugSysTick uint32
	Parser       Parser
}

// reader reads registers and remembers the first error.
type reader struct {
	r   dispatcher.Registers
	err error
}

func (r *reader) u32(addr uint32) uint32 {
	if r.err != nil {
		return 0
	}
	var v uint32
	v, r.err = r.r.Read32(addr)
	return v
}

func (r *reader) u64(addr uint32) uint64 {
	if r.err != nil {
		return 0
	}
	var v uint64
	v, r.err = dispatcher.ReadU64(r.r, addr)
	return v
}

func (r *reader) name(addr uint32, n int) string {
	if r.err != nil {
		return ""
	}
	var v string
	v, r.err = dispatcher.ReadASCII(r.r, addr, n)
	return v
}

// Read reads a status snapshot from the board.
func Read(brd Board) (Status, error) {
	var (
		st   Status
		disp = reader{r: brd.Dispatcher}
		eng  = reader{r: brd.Engine}
	)

	st.Name = disp.name(regs.DispName, 2)
	st.Version = disp.name(regs.DispVersion, 1)
	st.NTPTime = disp.u64(regs.DispNTPTime)
	st.SysTick = disp.u32(regs.DispSysTick32)
	st.BytesRx = disp.u64(regs.DispBytesRx)
	st.Frames = Frames{
		Detected:   disp.u64(regs.DispCounterFrames),
		Good:       disp.u64(regs.DispCounterGood),
		Bad:        disp.u64(regs.DispCounterBad),
		Dispatched: disp.u64(regs.DispCounterDispatched),
		Error:      disp.u64(regs.DispCounterError),
	}
	if disp.err != nil {
		return st, fmt.Errorf("diag: could not read dispatcher status: %w", disp.err)
	}

	st.Engines = Names{
		Core:     eng.name(regs.EngineName0, 2),
		Clock:    eng.name(regs.ClockName0, 2),
		Debug:    eng.name(regs.DebugName, 1),
		KeyMem:   eng.name(regs.KeyMemName0, 2),
		NonceGen: eng.name(regs.NonceGenName, 2),
		Parser:   eng.name(regs.ParserName0, 2),
	}
	st.NTS = NTS{
		Processed: eng.u64(regs.DebugNTSProc),
		BadCookie: eng.u64(regs.DebugNTSBadCookie),
		BadAuth:   eng.u64(regs.DebugNTSBadAuth),
		BadKeyID:  eng.u64(regs.DebugNTSBadKeyID),
	}
	st.Errors = Errors{
		Crypto: eng.u64(regs.DebugErrCrypto),
		TxBuf:  eng.u64(regs.DebugErrTxBuf),
	}
	st.DebugSysTick = eng.u32(regs.DebugSysTick32)
	st.Parser = Parser{
		State:       eng.u32(regs.ParserState),
		StateCrypto: eng.u32(regs.ParserStateCrypto),
		ErrorState:  eng.u32(regs.ParserErrorState),
		ErrorCount:  eng.u32(regs.ParserErrorCount),
	}
	if eng.err != nil {
		return st, fmt.Errorf("diag: could not read engine status: %w", eng.err)
	}

	return st, nil
}

// NTPSeconds returns the NTP timestamp of the snapshot, in seconds.
func (st Status) NTPSeconds() float64 {
	return float64(st.NTPTime) / (1 << 32)
}

// WriteTo writes a human readable report of the status snapshot.
func (st Status) WriteTo(w io.Writer) (int64, error) {
	var (
		cw     = &countWriter{w: w}
		buf    = bufio.NewWriter(cw)
		err    error
		printf = func(format string, args ...interface{}) {
			_, e := fmt.Fprintf(buf, format, args...)
			if err == nil {
				err = e
			}
		}
	)

	printf("Core:    %s\n", st.Name)
	printf("Version: %s\n", st.Version)
	printf("\n")
	printf("NTP_TIME:    0x%016x\n", st.NTPTime)
	printf("BYTES_RX:    %d\n", st.BytesRx)
	printf("SYSTICK32:   %d\n", st.SysTick)
	printf("\n")
	printf("FRAMES:\n")
	printf(" - DETECTED:   %d\n", st.Frames.Detected)
	printf(" - GOOD:       %d\n", st.Frames.Good)
	printf(" - BAD:        %d\n", st.Frames.Bad)
	printf(" - DISPATCHED: %d\n", st.Frames.Dispatched)
	printf(" - ERROR:      %d\n", st.Frames.Error)
	printf("\n")
	printf("ENGINE:\n")
	printf(" Core:     %s\n", st.Engines.Core)
	printf(" Clock:    %s\n", st.Engines.Clock)
	printf(" Debug:    %s\n", st.Engines.Debug)
	printf(" KeyMem:   %s\n", st.Engines.KeyMem)
	printf(" NonceGen: %s\n", st.Engines.NonceGen)
	printf(" Parser:   %s\n", st.Engines.Parser)
	printf("\n")
	printf("ENGINE Debug\n")
	printf(" - NTS\n")
	printf("   - Processed:  %d\n", st.NTS.Processed)
	printf("   - Bad cookie: %d\n", st.NTS.BadCookie)
	printf("   - Bad auth:   %d\n", st.NTS.BadAuth)
	printf("   - Bad keyid:  %d\n", st.NTS.BadKeyID)
	printf(" - Error counters\n")
	printf("   - Crypto:     %d\n", st.Errors.Crypto)
	printf("   - TxBuf:      %d\n", st.Errors.TxBuf)
	printf(" - Other debug measurements:\n")
	printf("   - Systick32:  %d\n", st.DebugSysTick)
	printf("\n")
	printf("Parser\n")
	printf(" - State:         0x%x\n", st.Parser.State)
	printf(" - State Crypto:  0x%x\n", st.Parser.StateCrypto)
	printf(" - Error State:   0x%x\n", st.Parser.ErrorState)
	printf(" - Error Counter: %d\n", st.Parser.ErrorCount)

	if err != nil {
		return cw.n, fmt.Errorf("diag: could not write status: %w", err)
	}

	err = buf.Flush()
	if err != nil {
		return cw.n, fmt.Errorf("diag: could not write status: %w", err)
	}
	return cw.n, nil
}

type countWriter struct {
	w io.Writer
	n int64
}

func (w *countWriter) Write(p []byte) (int, error) {
	n, err := w.w.Write(p)
	w.n += int64(n)
	return n, err
}
