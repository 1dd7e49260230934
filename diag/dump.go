// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package diag

import (
	"bufio"
	"fmt"
	"io"

	"github.com/go-lpc/nts/dispatcher"
	"github.com/go-lpc/nts/internal/regs"
)

// DumpDispatcher writes the non-zero registers of the dispatcher block.
func DumpDispatcher(w io.Writer, win dispatcher.Registers) error {
	return dump(w, win, "dispatcher")
}

// DumpEngine writes the non-zero registers of an engine register space.
func DumpEngine(w io.Writer, eng dispatcher.Registers) error {
	return dump(w, eng, "engine")
}

func dump(w io.Writer, r dispatcher.Registers, name string) error {
	var (
		buf    = bufio.NewWriter(w)
		errW   error
		printf = func(format string, args ...interface{}) {
			_, e := fmt.Fprintf(buf, format, args...)
			if errW == nil {
				errW = e
			}
		}
	)
	defer buf.Flush()

	err := dispatcher.Scan(r, func(word dispatcher.Word) error {
		printf("%s[%03x] = %08x\n", name, word.Addr, word.Value)
		return errW
	})
	if err != nil {
		return fmt.Errorf("diag: could not dump %s registers: %w", name, err)
	}

	err = buf.Flush()
	if err != nil {
		return fmt.Errorf("diag: could not dump %s registers: %w", name, err)
	}
	return nil
}

// Dummy values written to the dispatcher scratch register by CheckDummy.
var Dummy = [...]uint32{0xdeadbeef, 0x1cec001d}

// CheckDummy checks write access to the dispatcher block by writing
// Dummy values to its scratch register and reading them back.
// The scratch register is left with the last Dummy value.
func CheckDummy(win dispatcher.Registers) error {
	for _, v := range Dummy {
		err := dispatcher.WriteVerified(win, regs.DispDummy, v)
		if err != nil {
			return fmt.Errorf("diag: dummy register check failed: %w", err)
		}
	}
	return nil
}
