// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command nts-srv starts a TDAQ server driving an NTS board.
//
// The board is selected with the following environment variables:
//   - NTS_DEVMEM: path to the device file (default: /dev/mem),
//   - NTS_OFFSET: file offset of the dispatcher block (default: 0),
//   - NTS_ENGINE: engine holding the key memory and nonce generator (default: 0),
//   - NTS_KEYS: path to a YAML key file installed on /init (optional).
//
// Status snapshots are published as JSON on the /status output while running.
package main // import "github.com/go-lpc/nts/cmd/nts-srv"

import (
	"context"
	"log"
	"os"

	"github.com/go-daq/tdaq"
	"github.com/go-daq/tdaq/flags"
)

func main() {
	cmd := flags.New()

	cfg, err := configFromEnv(os.Getenv)
	if err != nil {
		log.Panicf("could not configure nts-srv: %+v", err)
	}

	dev := newServer(cfg)

	srv := tdaq.New(cmd, os.Stdout)
	srv.CmdHandle("/config", dev.OnConfig)
	srv.CmdHandle("/init", dev.OnInit)
	srv.CmdHandle("/reset", dev.OnReset)
	srv.CmdHandle("/start", dev.OnStart)
	srv.CmdHandle("/stop", dev.OnStop)
	srv.CmdHandle("/quit", dev.OnQuit)

	srv.OutputHandle("/status", dev.status)

	srv.RunHandle(dev.run)

	err = srv.Run(context.Background())
	if err != nil {
		log.Panicf("error: %+v", err)
	}
}
