// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"io"
	"log"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-lpc/nts/diag"
	"github.com/go-lpc/nts/dispatcher"
	"github.com/go-lpc/nts/internal/fakebus"
	"github.com/go-lpc/nts/internal/regs"
)

func newBoard() (*fakebus.Device, diag.Board) {
	dev := fakebus.New()
	brd := dispatcher.New(dev, dispatcher.WithLogger(log.New(io.Discard, "", 0)))
	return dev, diag.NewBoard(brd, 0)
}

func TestHandler(t *testing.T) {
	dev, brd := newBoard()
	dev.SetReg(regs.DispCounterGood+1, 42)

	srv := httptest.NewServer(newHandler(brd))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("could not get metrics: %+v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("invalid status: %v", resp.Status)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("could not read metrics: %+v", err)
	}
	for _, want := range []string{
		`nts_frames_total{kind="good"} 42`,
		`nts_scrape_errors_total 0`,
	} {
		if !strings.Contains(string(raw), want) {
			t.Fatalf("missing %q in metrics:\n%s", want, raw)
		}
	}
}

func TestRates(t *testing.T) {
	var (
		prev = diag.Frames{Detected: 10, Good: 8, Bad: 2, Dispatched: 8}
		cur  = diag.Frames{Detected: 30, Good: 27, Bad: 3, Dispatched: 25, Error: 1}
	)

	for _, tc := range []struct {
		prev, cur diag.Frames
		dt        time.Duration
		want      string
	}{
		{prev, cur, 2 * time.Second, "frames/s: detected=10.0 good=9.5 bad=0.5 dispatched=8.5 error=0.5"},
		{prev, cur, 0, "frames/s: detected=0.0 good=0.0 bad=0.0 dispatched=0.0 error=0.0"},
		{cur, prev, time.Second, "frames/s: detected=0.0 good=0.0 bad=0.0 dispatched=0.0 error=0.0"},
	} {
		if got := rates(tc.prev, tc.cur, tc.dt); got != tc.want {
			t.Fatalf("invalid rates:\ngot= %q\nwant=%q", got, tc.want)
		}
	}
}

func TestRun(t *testing.T) {
	out := log.Writer()
	log.SetOutput(io.Discard)
	defer log.SetOutput(out)

	// find a free port.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("could not find a free port: %+v", err)
	}
	addr := l.Addr().String()
	_ = l.Close()

	_, brd := newBoard()

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		errc <- run(ctx, addr, brd, 10*time.Millisecond)
	}()

	var resp *http.Response
	for i := 0; i < 100; i++ {
		resp, err = http.Get("http://" + addr + "/metrics")
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		cancel()
		t.Fatalf("could not reach exporter: %+v", err)
	}
	_ = resp.Body.Close()

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("could not run exporter: %+v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("exporter did not stop")
	}
}
