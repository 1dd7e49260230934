// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command nts-dump dumps the non-zero registers of the NTS dispatcher
// and of one of its engines.
package main // import "github.com/go-lpc/nts/cmd/nts-dump"

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/go-lpc/nts"
	"github.com/go-lpc/nts/diag"
	"github.com/go-lpc/nts/dispatcher"
)

func main() {
	log.SetPrefix("nts-dump: ")
	log.SetFlags(0)

	var (
		fname  = flag.String("dev", "/dev/mem", "path to the device file")
		offset = flag.Int64("offset", 0, "file offset of the dispatcher block")
		engine = flag.Uint("engine", 0, "engine to dump")
		disp   = flag.Bool("dispatcher", true, "dump the dispatcher block")
	)

	flag.Parse()

	brd, err := nts.Open(*fname, *offset)
	if err != nil {
		log.Fatalf("could not open device: %+v", err)
	}
	defer brd.Close()

	err = run(os.Stdout, brd.Bridge, dispatcher.EngineID(*engine), *disp)
	if err != nil {
		log.Fatalf("could not dump registers: %+v", err)
	}
}

func run(w io.Writer, brd *dispatcher.Bridge, e dispatcher.EngineID, disp bool) error {
	const layout = "2006-01-02 15:04:05 MST"
	fmt.Fprintf(w, "------------------------------------------------\n")
	fmt.Fprintf(w, "%v\n", time.Now().Format(layout))

	if disp {
		err := diag.DumpDispatcher(w, brd.Window())
		if err != nil {
			return err
		}
	}

	return diag.DumpEngine(w, brd.Engine(e))
}
