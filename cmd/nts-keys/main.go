// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command nts-keys seeds the NTS nonce generator and installs the keys
// listed in a YAML key file.
//
// Usage: nts-keys [OPTIONS] keys.yaml
//
// Example:
//
//	$> nts-keys -seed=random ./keys.yaml
package main // import "github.com/go-lpc/nts/cmd/nts-keys"

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/go-lpc/nts"
	"github.com/go-lpc/nts/dispatcher"
	"github.com/go-lpc/nts/keymem"
	"github.com/go-lpc/nts/noncegen"
)

func main() {
	log.SetPrefix("nts-keys: ")
	log.SetFlags(0)

	var (
		fname   = flag.String("dev", "/dev/mem", "path to the device file")
		offset  = flag.Int64("offset", 0, "file offset of the dispatcher block")
		engine  = flag.Uint("engine", 0, "engine holding the key memory and nonce generator")
		seed    = flag.String("seed", "random", "nonce generator seed (random, legacy or none)")
		verbose = flag.Bool("v", false, "enable verbose mode")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `nts-keys seeds the NTS nonce generator and installs keys.

Usage: nts-keys [OPTIONS] [keys.yaml]

Example:

$> nts-keys -seed=random ./keys.yaml

Options:
`)
		flag.PrintDefaults()
	}

	flag.Parse()

	if flag.NArg() > 1 {
		flag.Usage()
		log.Fatalf("too many input key files")
	}

	var keys []keymem.Entry
	if flag.NArg() == 1 {
		var err error
		keys, err = keymem.LoadFile(flag.Arg(0))
		if err != nil {
			log.Fatalf("could not load keys: %+v", err)
		}
	}

	seeder, err := provider(*seed)
	if err != nil {
		flag.Usage()
		log.Fatalf("%+v", err)
	}

	msg := log.New(io.Discard, "keymem: ", 0)
	if *verbose {
		msg.SetOutput(os.Stdout)
	}

	brd, err := nts.Open(*fname, *offset)
	if err != nil {
		log.Fatalf("could not open device: %+v", err)
	}
	defer brd.Close()

	err = run(brd.Engine(dispatcher.EngineID(*engine)), seeder, keys, msg)
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func provider(name string) (noncegen.Provider, error) {
	switch name {
	case "random":
		return noncegen.RandomProvider{}, nil
	case "legacy":
		return noncegen.FixedProvider(noncegen.LegacySeed), nil
	case "none", "":
		return nil, nil
	}
	return nil, fmt.Errorf("invalid seed provider %q", name)
}

func run(eng dispatcher.Registers, seed noncegen.Provider, keys []keymem.Entry, msg *log.Logger) error {
	if seed != nil {
		log.Printf("init nonce generator...")
		err := noncegen.Init(eng, seed)
		if err != nil {
			return fmt.Errorf("could not init nonce generator: %w", err)
		}
	}

	km := keymem.New(eng, keymem.WithLogger(msg))
	for _, key := range keys {
		log.Printf("install key 0x%08x in slot %d...", key.ID, key.Slot)
		err := km.Install(key.Slot, key.ID, key.Key)
		if err != nil {
			return fmt.Errorf("could not install key 0x%08x in slot %d (state=%v): %w",
				key.ID, key.Slot, km.State(), err,
			)
		}
	}

	return nil
}
