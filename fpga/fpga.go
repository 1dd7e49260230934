// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fpga decodes the build information exposed by the user
// registers of the NTS FPGA board.
package fpga // import "github.com/go-lpc/nts/fpga"

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/go-lpc/nts/dispatcher"
)

// Map holds the word addresses of the user registers.
type Map struct {
	BuildTime uint32 // unix time of the bit-stream build
	BuildInfo uint32 // tool version and dirty flag
	GitHash   uint32 // short git hash of the firmware sources
	DieTemp   uint32 // raw die temperature sensor value
}

// DefaultMap is the user register layout of the reference design.
var DefaultMap = Map{
	BuildTime: 0x0,
	BuildInfo: 0x1,
	GitHash:   0x2,
	DieTemp:   0x3,
}

const dirtyBit = 1 << 24

// BuildInfo describes a firmware build.
type BuildInfo struct {
	Time    time.Time // build time, UTC
	Major   uint16    // Vivado major version
	Minor   uint8     // Vivado minor version
	GitHash uint32
	Dirty   bool    // whether the sources had uncommitted changes
	DieTemp float64 // die temperature in degrees Celsius
}

// Vivado returns the tool version used for the build.
func (bi BuildInfo) Vivado() string {
	return fmt.Sprintf("%d.%d", bi.Major, bi.Minor)
}

// Hash returns the git hash of the build, with a -dirty suffix when
// the sources had uncommitted changes.
func (bi BuildInfo) Hash() string {
	if bi.Dirty {
		return fmt.Sprintf("%08x-dirty", bi.GitHash)
	}
	return fmt.Sprintf("%08x", bi.GitHash)
}

func (bi BuildInfo) String() string {
	return fmt.Sprintf("vivado=%s git=%s built=%s temp=%.1fC",
		bi.Vivado(), bi.Hash(), bi.Time.Format(time.RFC3339), bi.DieTemp,
	)
}

// WriteTo writes a human readable report of the build information.
func (bi BuildInfo) WriteTo(w io.Writer) (int64, error) {
	n, err := fmt.Fprintf(w,
		"FPGA build at %s (%d)\nFPGA built with Vivado %s from git hash %s\nFPGA die temperature is %.1fC.\n",
		bi.Time.Format("2006-01-02 15:04:05"), bi.Time.Unix(),
		bi.Vivado(), bi.Hash(),
		bi.DieTemp,
	)
	return int64(n), err
}

// Read reads and decodes the build information from the user registers.
func Read(r dispatcher.Registers, m Map) (BuildInfo, error) {
	var (
		bi  BuildInfo
		err error
		raw [4]uint32
	)

	for i, v := range []struct {
		name string
		addr uint32
	}{
		{"build time", m.BuildTime},
		{"build info", m.BuildInfo},
		{"git hash", m.GitHash},
		{"die temperature", m.DieTemp},
	} {
		raw[i], err = r.Read32(v.addr)
		if err != nil {
			return bi, fmt.Errorf("fpga: could not read %s: %w", v.name, err)
		}
	}

	bi.Time = time.Unix(int64(raw[0]), 0).UTC()
	bi.Major = uint16(raw[1] >> 8)
	bi.Minor = uint8(raw[1])
	bi.Dirty = raw[1]&dirtyBit != 0
	bi.GitHash = raw[2]
	bi.DieTemp = DieTemp(raw[3])

	return bi, nil
}

// DieTemp converts a raw die temperature sensor value to degrees Celsius,
// rounded to 0.1 degree.
func DieTemp(raw uint32) float64 {
	v := float64(raw)*504.0/1024.0 - 273.0
	return math.Round(v*10) / 10
}
