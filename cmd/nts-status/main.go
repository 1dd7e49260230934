// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command nts-status displays the build information of the NTS board
// and a status snapshot of its dispatcher and engines.
package main // import "github.com/go-lpc/nts/cmd/nts-status"

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/go-lpc/nts"
	"github.com/go-lpc/nts/devmem"
	"github.com/go-lpc/nts/diag"
	"github.com/go-lpc/nts/dispatcher"
	"github.com/go-lpc/nts/fpga"
)

func main() {
	log.SetPrefix("nts-status: ")
	log.SetFlags(0)

	var (
		fname  = flag.String("dev", "/dev/mem", "path to the device file")
		offset = flag.Int64("offset", 0, "file offset of the dispatcher block")
		engine = flag.Uint("engine", 0, "engine to read the status from")
		user   = flag.String("user", "", "path to the device file of the user registers (if any)")
		uoff   = flag.Int64("user-offset", 0, "file offset of the user registers")
		dummy  = flag.Bool("check-dummy", false, "check write access to the dispatcher scratch register")
	)

	flag.Parse()

	brd, err := nts.Open(*fname, *offset)
	if err != nil {
		log.Fatalf("could not open device: %+v", err)
	}
	defer brd.Close()

	var ureg dispatcher.Registers
	if *user != "" {
		dev, err := devmem.Open(*user,
			devmem.WithOffset(*uoff),
			devmem.WithOrigin(0),
			devmem.WithSpan(4*0x1000),
		)
		if err != nil {
			log.Fatalf("could not open user registers: %+v", err)
		}
		defer dev.Close()
		ureg = dev
	}

	err = run(os.Stdout, diag.NewBoard(brd.Bridge, dispatcher.EngineID(*engine)), ureg, *dummy)
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func run(w io.Writer, brd diag.Board, user dispatcher.Registers, dummy bool) error {
	if user != nil {
		fmt.Fprintf(w, "Checking build information about the FPGA and reading board temp.\n")
		bi, err := fpga.Read(user, fpga.DefaultMap)
		if err != nil {
			return fmt.Errorf("could not read build information: %w", err)
		}
		_, err = bi.WriteTo(w)
		if err != nil {
			return fmt.Errorf("could not write build information: %w", err)
		}
		fmt.Fprintf(w, "\n")
	}

	if dummy {
		err := diag.CheckDummy(brd.Dispatcher)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "DUMMY:       ok\n\n")
	}

	st, err := diag.Read(brd)
	if err != nil {
		return fmt.Errorf("could not read status: %w", err)
	}

	_, err = st.WriteTo(w)
	if err != nil {
		return fmt.Errorf("could not write status: %w", err)
	}
	return nil
}
