// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/go-lpc/nts/diag"
	"github.com/go-lpc/nts/dispatcher"
)

var errQuit = errors.New("quit")

type shell struct {
	w   io.Writer
	brd *dispatcher.Bridge
	eng dispatcher.EngineID

	cmds map[string]command
}

type command struct {
	args  string
	help  string
	nargs int
	run   func(args []uint32) error
}

func newShell(w io.Writer, brd *dispatcher.Bridge, e dispatcher.EngineID) *shell {
	sh := &shell{w: w, brd: brd, eng: e}
	sh.cmds = map[string]command{
		"help":   {"", "display this help", 0, sh.help},
		"quit":   {"", "leave the shell", 0, func([]uint32) error { return errQuit }},
		"engine": {"ID", "select the engine register space", 1, sh.engine},
		"r":      {"ADDR", "read an engine register", 1, sh.read},
		"r64":    {"ADDR", "read a 64-bit engine register", 1, sh.read64},
		"w":      {"ADDR VALUE", "write an engine register", 2, sh.write},
		"wv":     {"ADDR VALUE", "write an engine register and check its read-back value", 2, sh.writeVerified},
		"name":   {"ADDR WORDS", "read an ASCII name from engine registers", 2, sh.name},
		"dr":     {"ADDR", "read a dispatcher register", 1, sh.dispRead},
		"dr64":   {"ADDR", "read a 64-bit dispatcher register", 1, sh.dispRead64},
		"dw":     {"ADDR VALUE", "write a dispatcher register", 2, sh.dispWrite},
		"dump":   {"", "dump the non-zero engine registers", 0, sh.dumpEngine},
		"ddump":  {"", "dump the non-zero dispatcher registers", 0, sh.dumpDispatcher},
		"status": {"", "display a status snapshot", 0, sh.status},
	}
	return sh
}

func (sh *shell) prompt() string {
	return fmt.Sprintf("nts[%d]> ", sh.eng)
}

func (sh *shell) complete(line string) []string {
	var out []string
	for name := range sh.cmds {
		if strings.HasPrefix(name, line) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func (sh *shell) exec(line string) error {
	toks := strings.Fields(line)
	if len(toks) == 0 {
		return nil
	}

	name := toks[0]
	if name == "exit" {
		name = "quit"
	}
	cmd, ok := sh.cmds[name]
	if !ok {
		return fmt.Errorf("unknown command %q (try \"help\")", toks[0])
	}

	toks = toks[1:]
	if len(toks) != cmd.nargs {
		return fmt.Errorf("usage: %s %s", name, cmd.args)
	}

	args := make([]uint32, len(toks))
	for i, tok := range toks {
		v, err := strconv.ParseUint(tok, 0, 32)
		if err != nil {
			return fmt.Errorf("invalid argument %q: %w", tok, err)
		}
		args[i] = uint32(v)
	}

	return cmd.run(args)
}

func (sh *shell) help([]uint32) error {
	names := make([]string, 0, len(sh.cmds))
	for name := range sh.cmds {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		cmd := sh.cmds[name]
		fmt.Fprintf(sh.w, "%-22s %s\n", strings.TrimSpace(name+" "+cmd.args), cmd.help)
	}
	fmt.Fprintf(sh.w, "numbers may be given in decimal, hexadecimal (0x) or octal (0).\n")
	return nil
}

func (sh *shell) engine(args []uint32) error {
	e := dispatcher.EngineID(args[0])
	if e > dispatcher.MaxEngine {
		return fmt.Errorf("invalid engine id %d", e)
	}
	sh.eng = e
	return nil
}

func (sh *shell) read(args []uint32) error {
	v, err := sh.brd.Read32(sh.eng, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.w, "engine[%03x] = %08x\n", args[0], v)
	return nil
}

func (sh *shell) read64(args []uint32) error {
	v, err := sh.brd.Read64(sh.eng, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.w, "engine[%03x] = %016x (%d)\n", args[0], v, v)
	return nil
}

func (sh *shell) write(args []uint32) error {
	return sh.brd.Write32(sh.eng, args[0], args[1])
}

func (sh *shell) writeVerified(args []uint32) error {
	return sh.brd.WriteVerified(sh.eng, args[0], args[1])
}

func (sh *shell) name(args []uint32) error {
	if args[1] == 0 || args[1] > 16 {
		return fmt.Errorf("invalid number of name words %d (max: 16)", args[1])
	}
	s, err := dispatcher.ReadASCII(sh.brd.Engine(sh.eng), args[0], int(args[1]))
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.w, "engine[%03x] = %q\n", args[0], s)
	return nil
}

func (sh *shell) dispRead(args []uint32) error {
	v, err := sh.brd.Window().Read32(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.w, "dispatcher[%03x] = %08x\n", args[0], v)
	return nil
}

func (sh *shell) dispRead64(args []uint32) error {
	v, err := sh.brd.Window().Read64(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.w, "dispatcher[%03x] = %016x (%d)\n", args[0], v, v)
	return nil
}

func (sh *shell) dispWrite(args []uint32) error {
	return sh.brd.Window().Write32(args[0], args[1])
}

func (sh *shell) dumpEngine([]uint32) error {
	return diag.DumpEngine(sh.w, sh.brd.Engine(sh.eng))
}

func (sh *shell) dumpDispatcher([]uint32) error {
	return diag.DumpDispatcher(sh.w, sh.brd.Window())
}

func (sh *shell) status([]uint32) error {
	st, err := diag.Read(diag.NewBoard(sh.brd, sh.eng))
	if err != nil {
		return err
	}
	_, err = st.WriteTo(sh.w)
	return err
}
