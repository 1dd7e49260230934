// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dispatcher

import (
	"errors"
	"fmt"
)

var (
	// ErrBusTimeout is matched by errors.Is for bus transactions that
	// never returned to idle.
	ErrBusTimeout = errors.New("dispatcher: bus timeout")

	// ErrMismatch is matched by errors.Is for verified writes whose
	// read-back value differs from the written one.
	ErrMismatch = errors.New("dispatcher: read-back mismatch")
)

// TimeoutError reports a bus transaction whose status register was still
// busy after the configured number of polls.
type TimeoutError struct {
	Cmd   Command
	Polls int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("dispatcher: bus transaction %v still busy after %d status polls",
		e.Cmd, e.Polls,
	)
}

func (e *TimeoutError) Is(target error) bool { return target == ErrBusTimeout }

// MismatchError reports a verified write that did not read back.
type MismatchError struct {
	Where string // register space, e.g. "engine[0]" or "dispatcher"
	Addr  uint32
	Want  uint32
	Got   uint32
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("dispatcher: write %s[0x%03x]=0x%08x, read back was 0x%08x",
		e.Where, e.Addr, e.Want, e.Got,
	)
}

func (e *MismatchError) Is(target error) bool { return target == ErrMismatch }
