// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command nts-shell is an interactive console to read and write the
// registers of the NTS dispatcher and of its engines.
package main // import "github.com/go-lpc/nts/cmd/nts-shell"

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-lpc/nts"
	"github.com/go-lpc/nts/dispatcher"
	"github.com/peterh/liner"
)

func main() {
	log.SetPrefix("nts-shell: ")
	log.SetFlags(0)

	var (
		fname  = flag.String("dev", "/dev/mem", "path to the device file")
		offset = flag.Int64("offset", 0, "file offset of the dispatcher block")
		engine = flag.Uint("engine", 0, "initial engine")
		hist   = flag.String("history", histFile(), "path to the history file")
	)

	flag.Parse()

	brd, err := nts.Open(*fname, *offset)
	if err != nil {
		log.Fatalf("could not open device: %+v", err)
	}
	defer brd.Close()

	sh := newShell(os.Stdout, brd.Bridge, dispatcher.EngineID(*engine))
	err = run(sh, *hist)
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func histFile() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, ".nts_history")
}

func run(sh *shell, hist string) error {
	term := liner.NewLiner()
	defer term.Close()

	term.SetCtrlCAborts(true)
	term.SetCompleter(sh.complete)

	if hist != "" {
		f, err := os.Open(hist)
		if err == nil {
			_, _ = term.ReadHistory(f)
			_ = f.Close()
		}
	}

	defer func() {
		if hist == "" {
			return
		}
		f, err := os.Create(hist)
		if err != nil {
			log.Printf("could not save history: %+v", err)
			return
		}
		defer f.Close()
		_, _ = term.WriteHistory(f)
	}()

	for {
		line, err := term.Prompt(sh.prompt())
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Fprintf(sh.w, "\n")
				return nil
			}
			return fmt.Errorf("could not read command: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		term.AppendHistory(line)

		err = sh.exec(line)
		switch err {
		case nil:
		case errQuit:
			return nil
		default:
			fmt.Fprintf(sh.w, "error: %+v\n", err)
		}
	}
}
