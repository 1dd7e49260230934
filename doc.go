// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package nts holds code to drive the NTS FPGA engines through
// the dispatcher bus bridge.
//
// The dispatcher exposes a single command/status/data register triplet
// that multiplexes accesses to the private register spaces of all the
// engines (clock, key memory, nonce generator, parser, debug counters).
// Sub-packages provide:
//   - devmem: raw 32-bit register access over a memory-mapped device file,
//   - dispatcher: the bus bridge, wide-register reads and address scans,
//   - keymem: key installation with read-back verification,
//   - noncegen: nonce generator seeding,
//   - fpga: board build information,
//   - diag and metrics: status snapshots and their Prometheus export.
//
// Open maps the dispatcher of a device file and returns a Board ready to
// issue bus transactions. The commands under cmd/ build on it:
// nts-dump, nts-status, nts-keys, nts-shell, nts-exporter and nts-srv.
package nts // import "github.com/go-lpc/nts"

import (
	"fmt"
	"runtime/debug"
)

// Version returns the version of nts and its checksum.
// The returned values are only valid in binaries built with module support.
func Version() (version, sum string) {
	b, ok := debug.ReadBuildInfo()
	if !ok {
		return "", ""
	}
	return versionOf(b)
}

func versionOf(b *debug.BuildInfo) (version, sum string) {
	if b == nil {
		return "", ""
	}

	const root = "github.com/go-lpc/nts"
	if b.Main.Path == root {
		return b.Main.Version, b.Main.Sum
	}
	for _, m := range b.Deps {
		if m.Path != root {
			continue
		}
		if m.Replace != nil {
			switch {
			case m.Replace.Version != "" && m.Replace.Path != "":
				return fmt.Sprintf("%s %s", m.Replace.Path, m.Replace.Version), m.Replace.Sum
			case m.Replace.Version != "":
				return m.Replace.Version, m.Replace.Sum
			case m.Replace.Path != "":
				return m.Replace.Path, m.Replace.Sum
			default:
				return m.Version + "*", ""
			}
		}
		return m.Version, m.Sum
	}
	return "", ""
}
