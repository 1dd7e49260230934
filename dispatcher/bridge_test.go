// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dispatcher_test

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/go-lpc/nts/dispatcher"
	"github.com/go-lpc/nts/internal/fakebus"
	"github.com/go-lpc/nts/internal/regs"
	"github.com/google/go-cmp/cmp"
)

func newBridge(dev *fakebus.Device, opts ...dispatcher.Option) *dispatcher.Bridge {
	opts = append([]dispatcher.Option{
		dispatcher.WithLogger(log.New(io.Discard, "", 0)),
	}, opts...)
	return dispatcher.New(dev, opts...)
}

func TestRoundTrip(t *testing.T) {
	dev := fakebus.New()
	brd := newBridge(dev)

	for _, tc := range []struct {
		e    dispatcher.EngineID
		addr uint32
		v    uint32
	}{
		{0, 0x000, 0},
		{0, 0x003, 0xdeadbeef},
		{0, 0xfff, 0xffffffff},
		{1, 0x088, 0x13fe78e9},
		{15, 0x200, 0x1cec001d},
		{7, 0x1001, 0x00000001}, // masked to 0x001
	} {
		t.Run(fmt.Sprintf("e=%d-addr=0x%x", tc.e, tc.addr), func(t *testing.T) {
			err := brd.Write32(tc.e, tc.addr, tc.v)
			if err != nil {
				t.Fatalf("could not write: %+v", err)
			}
			got, err := brd.Read32(tc.e, tc.addr)
			if err != nil {
				t.Fatalf("could not read: %+v", err)
			}
			if got != tc.v {
				t.Fatalf("invalid round trip: got=0x%08x, want=0x%08x", got, tc.v)
			}
			if got, want := dev.Peek(uint32(tc.e), tc.addr), tc.v; got != want {
				t.Fatalf("invalid engine memory: got=0x%08x, want=0x%08x", got, want)
			}
		})
	}
}

func TestWriteSequence(t *testing.T) {
	dev := fakebus.New()
	brd := newBridge(dev)

	err := brd.Write32(2, 0x88, 0xcafe)
	if err != nil {
		t.Fatalf("could not write: %+v", err)
	}

	want := []fakebus.Op{
		{Write: true, Addr: regs.DispBusData, Value: 0xcafe},
		{Write: true, Addr: regs.DispBusIDCmdAddr, Value: 0x002aa088},
		{Write: true, Addr: regs.DispBusStatus, Value: 1},
		{Addr: regs.DispBusStatus, Value: 0},
	}
	if diff := cmp.Diff(want, dev.Ops()); diff != "" {
		t.Fatalf("invalid bus accesses (-want +got):\n%s", diff)
	}
}

func TestStatusPolling(t *testing.T) {
	dev := fakebus.New()
	dev.Poke(0, 0x42, 0x1234)
	dev.SetBusy(1, 1) // busy, busy, idle

	brd := newBridge(dev)
	v, err := brd.Read32(0, 0x42)
	if err != nil {
		t.Fatalf("could not read: %+v", err)
	}
	if v != 0x1234 {
		t.Fatalf("invalid value: got=0x%x, want=0x1234", v)
	}

	want := []fakebus.Op{
		{Write: true, Addr: regs.DispBusIDCmdAddr, Value: 0x00055042},
		{Write: true, Addr: regs.DispBusStatus, Value: 1},
		{Addr: regs.DispBusStatus, Value: 1},
		{Addr: regs.DispBusStatus, Value: 1},
		{Addr: regs.DispBusStatus, Value: 0},
		{Addr: regs.DispBusData, Value: 0x1234},
	}
	if diff := cmp.Diff(want, dev.Ops()); diff != "" {
		t.Fatalf("invalid bus accesses (-want +got):\n%s", diff)
	}
}

func TestTimeout(t *testing.T) {
	dev := fakebus.New()
	dev.Hang(true)

	var (
		sleeps int
		slept  time.Duration
	)
	brd := newBridge(dev,
		dispatcher.WithRetries(5),
		dispatcher.WithInterval(time.Millisecond),
		dispatcher.WithSleep(func(d time.Duration) {
			sleeps++
			slept += d
		}),
	)

	_, err := brd.Read32(0, 0x10)
	if !errors.Is(err, dispatcher.ErrBusTimeout) {
		t.Fatalf("invalid error: %+v", err)
	}
	var terr *dispatcher.TimeoutError
	if !errors.As(err, &terr) {
		t.Fatalf("error is not a timeout error: %T", err)
	}
	if got, want := terr.Polls, 5; got != want {
		t.Fatalf("invalid number of polls: got=%d, want=%d", got, want)
	}
	if got, want := terr.Cmd, dispatcher.NewCommand(0, dispatcher.OpRead, 0x10); got != want {
		t.Fatalf("invalid command: got=%v, want=%v", got, want)
	}
	if got, want := err.Error(), "dispatcher: bus transaction read engine[0][0x010] still busy after 5 status polls"; got != want {
		t.Fatalf("invalid error message:\ngot= %q\nwant=%q", got, want)
	}
	if sleeps != 5 || slept != 5*time.Millisecond {
		t.Fatalf("invalid sleeps: n=%d, d=%v", sleeps, slept)
	}
	if got, want := dev.Count(false, regs.DispBusData), 0; got != want {
		t.Fatalf("data register read after timeout: %d", got)
	}

	// a stuck bridge does not issue new commands.
	dev.ClearLogs()
	err = brd.Write32(0, 0x10, 1)
	if !errors.Is(err, dispatcher.ErrBusTimeout) {
		t.Fatalf("invalid error: %+v", err)
	}
	if got := dev.Count(true, regs.DispBusIDCmdAddr); got != 0 {
		t.Fatalf("command issued on a stale bridge: %d", got)
	}

	// once the device recovers, the bridge waits for idle first.
	dev.Hang(false)
	dev.ClearLogs()
	dev.Poke(0, 0x10, 0xbeef)
	v, err := brd.Read32(0, 0x10)
	if err != nil {
		t.Fatalf("could not read after recovery: %+v", err)
	}
	if v != 0xbeef {
		t.Fatalf("invalid value: got=0x%x", v)
	}
	if got, want := dev.Count(false, regs.DispBusStatus), 2; got != want {
		t.Fatalf("invalid number of status polls: got=%d, want=%d", got, want)
	}

	// and goes back to one poll per idle transaction.
	dev.ClearLogs()
	_, err = brd.Read32(0, 0x10)
	if err != nil {
		t.Fatalf("could not read: %+v", err)
	}
	if got, want := dev.Count(false, regs.DispBusStatus), 1; got != want {
		t.Fatalf("invalid number of status polls: got=%d, want=%d", got, want)
	}
}

func TestRead64(t *testing.T) {
	dev := fakebus.New()
	brd := newBridge(dev)

	for i, tc := range []struct {
		msb, lsb uint32
	}{
		{0, 0},
		{0, 1},
		{1, 0},
		{0xdeadbeef, 0x1cec001d},
		{0xffffffff, 0xffffffff},
	} {
		addr := uint32(0x180 + 2*i)
		dev.Poke(1, addr, tc.msb)
		dev.Poke(1, addr+1, tc.lsb)

		got, err := brd.Read64(1, addr)
		if err != nil {
			t.Fatalf("could not read64: %+v", err)
		}

		msb, _ := brd.Read32(1, addr)
		lsb, _ := brd.Read32(1, addr+1)
		if want := uint64(msb)<<32 | uint64(lsb); got != want {
			t.Fatalf("invalid read64: got=0x%016x, want=0x%016x", got, want)
		}
	}
}

func TestWriteVerified(t *testing.T) {
	dev := fakebus.New()
	brd := newBridge(dev)

	err := brd.WriteVerified(0, 0x88, 0x5)
	if err != nil {
		t.Fatalf("could not write: %+v", err)
	}
	if got, want := len(dev.Txs()), 2; got != want {
		t.Fatalf("invalid number of transactions: got=%d, want=%d", got, want)
	}

	dev.ReadBack = func(tx fakebus.Tx) uint32 {
		return tx.Value &^ 0x1
	}
	err = brd.WriteVerified(0, 0x88, 0x7)
	if !errors.Is(err, dispatcher.ErrMismatch) {
		t.Fatalf("invalid error: %+v", err)
	}
	var merr *dispatcher.MismatchError
	if !errors.As(err, &merr) {
		t.Fatalf("error is not a mismatch: %T", err)
	}
	want := dispatcher.MismatchError{Where: "engine[0]", Addr: 0x88, Want: 0x7, Got: 0x6}
	if *merr != want {
		t.Fatalf("invalid mismatch:\ngot= %+v\nwant=%+v", *merr, want)
	}
	if got, want := err.Error(), "dispatcher: write engine[0][0x088]=0x00000007, read back was 0x00000006"; got != want {
		t.Fatalf("invalid error message:\ngot= %q\nwant=%q", got, want)
	}
}

func TestRawErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		fail fakebus.Op
		f    func(brd *dispatcher.Bridge) error
		want string
	}{
		{
			name: "read-cmd",
			fail: fakebus.Op{Write: true, Addr: regs.DispBusIDCmdAddr},
			f: func(brd *dispatcher.Bridge) error {
				_, err := brd.Read32(0, 1)
				return err
			},
			want: "dispatcher: could not write bus command (read engine[0][0x001]): EOF",
		},
		{
			name: "read-trigger",
			fail: fakebus.Op{Write: true, Addr: regs.DispBusStatus},
			f: func(brd *dispatcher.Bridge) error {
				_, err := brd.Read32(0, 1)
				return err
			},
			want: "dispatcher: could not trigger bus transaction (read engine[0][0x001]): EOF",
		},
		{
			name: "read-status",
			fail: fakebus.Op{Addr: regs.DispBusStatus},
			f: func(brd *dispatcher.Bridge) error {
				_, err := brd.Read32(0, 1)
				return err
			},
			want: "dispatcher: could not read bus status (read engine[0][0x001]): EOF",
		},
		{
			name: "read-data",
			fail: fakebus.Op{Addr: regs.DispBusData},
			f: func(brd *dispatcher.Bridge) error {
				_, err := brd.Read32(0, 1)
				return err
			},
			want: "dispatcher: could not read bus data (read engine[0][0x001]): EOF",
		},
		{
			name: "write-data",
			fail: fakebus.Op{Write: true, Addr: regs.DispBusData},
			f: func(brd *dispatcher.Bridge) error {
				return brd.Write32(0, 1, 2)
			},
			want: "dispatcher: could not write bus data (write engine[0][0x001]): EOF",
		},
		{
			name: "window-read",
			fail: fakebus.Op{Addr: regs.DispDummy},
			f: func(brd *dispatcher.Bridge) error {
				_, err := brd.Window().Read32(regs.DispDummy)
				return err
			},
			want: "dispatcher: could not read register 0x003: EOF",
		},
		{
			name: "window-write",
			fail: fakebus.Op{Write: true, Addr: regs.DispDummy},
			f: func(brd *dispatcher.Bridge) error {
				return brd.Window().Write32(regs.DispDummy, 1)
			},
			want: "dispatcher: could not write register 0x003: EOF",
		},
		{
			name: "read64-lsb",
			fail: fakebus.Op{Addr: regs.DispNTPTime + 1},
			f: func(brd *dispatcher.Bridge) error {
				_, err := brd.Window().Read64(regs.DispNTPTime)
				return err
			},
			want: "dispatcher: could not read lsb of 0x006: dispatcher: could not read register 0x007: EOF",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			dev := fakebus.New()
			dev.Fail = func(op fakebus.Op) error {
				if op.Write == tc.fail.Write && op.Addr == tc.fail.Addr {
					return io.EOF
				}
				return nil
			}
			brd := newBridge(dev)
			err := tc.f(brd)
			if !errors.Is(err, io.EOF) {
				t.Fatalf("invalid error: %+v", err)
			}
			if got, want := err.Error(), tc.want; got != want {
				t.Fatalf("invalid error message:\ngot= %q\nwant=%q", got, want)
			}
		})
	}
}

func TestInvalidEngine(t *testing.T) {
	dev := fakebus.New()
	brd := newBridge(dev)

	_, err := brd.Read32(dispatcher.MaxEngine+1, 0)
	if err == nil {
		t.Fatalf("expected an error")
	}
	err = brd.Write32(dispatcher.MaxEngine+1, 0, 0)
	if err == nil {
		t.Fatalf("expected an error")
	}
	if n := len(dev.Ops()); n != 0 {
		t.Fatalf("invalid engine id reached the bus: %d accesses", n)
	}
}

func TestWindow(t *testing.T) {
	dev := fakebus.New()
	dev.SetReg(regs.DispName, 0x4e54535f)   // "NTS_"
	dev.SetReg(regs.DispName+1, 0x44495350) // "DISP"
	dev.SetReg(regs.DispNTPTime, 0xe5b1)
	dev.SetReg(regs.DispNTPTime+1, 0x80000000)

	brd := newBridge(dev)
	win := brd.Window()

	name, err := dispatcher.ReadASCII(win, regs.DispName, 2)
	if err != nil {
		t.Fatalf("could not read name: %+v", err)
	}
	if got, want := name, "NTS_DISP"; got != want {
		t.Fatalf("invalid name: got=%q, want=%q", got, want)
	}

	ntp, err := win.Read64(regs.DispNTPTime)
	if err != nil {
		t.Fatalf("could not read ntp time: %+v", err)
	}
	if got, want := ntp, uint64(0xe5b180000000); got != want {
		t.Fatalf("invalid ntp time: got=0x%x, want=0x%x", got, want)
	}

	err = dispatcher.WriteVerified(win, regs.DispDummy, 0xdeadbeef)
	if err != nil {
		t.Fatalf("could not write dummy: %+v", err)
	}

	_, err = win.Read32(regs.DispatcherSpan)
	if got, want := err.Error(), "dispatcher: address 0x1000 out of dispatcher range"; got != want {
		t.Fatalf("invalid error: got=%q, want=%q", got, want)
	}
	err = win.Write32(regs.DispatcherSpan, 0)
	if err == nil {
		t.Fatalf("expected an error")
	}

	if len(dev.Txs()) != 0 {
		t.Fatalf("window accesses went through the bus bridge")
	}
}

func TestEngineASCII(t *testing.T) {
	dev := fakebus.New()
	dev.Poke(0, regs.KeyMemName0, 0x4b45594d) // "KEYM"
	dev.Poke(0, regs.KeyMemName1, 0x454d0000) // "EM"

	brd := newBridge(dev)
	name, err := dispatcher.ReadASCII(brd.Engine(0), regs.KeyMemName0, 2)
	if err != nil {
		t.Fatalf("could not read name: %+v", err)
	}
	if got, want := name, "KEYMEM"; got != want {
		t.Fatalf("invalid name: got=%q, want=%q", got, want)
	}
}

func TestScan(t *testing.T) {
	dev := fakebus.New()
	dev.Poke(0, 0x000, 0x4e545330)
	dev.Poke(0, 0x088, 0xf)
	dev.Poke(0, 0xfff, 1)
	dev.Poke(1, 0x010, 2) // other engine

	brd := newBridge(dev)
	ws, err := dispatcher.NonZero(brd.Engine(0))
	if err != nil {
		t.Fatalf("could not scan: %+v", err)
	}
	want := []dispatcher.Word{
		{Addr: 0x000, Value: 0x4e545330},
		{Addr: 0x088, Value: 0xf},
		{Addr: 0xfff, Value: 1},
	}
	if diff := cmp.Diff(want, ws); diff != "" {
		t.Fatalf("invalid scan (-want +got):\n%s", diff)
	}
	if got, want := len(dev.Txs()), 0x1000; got != want {
		t.Fatalf("invalid number of transactions: got=%d, want=%d", got, want)
	}

	errStop := errors.New("stop")
	n := 0
	err = dispatcher.Scan(brd.Engine(0), func(w dispatcher.Word) error {
		n++
		if n == 2 {
			return errStop
		}
		return nil
	})
	if !errors.Is(err, errStop) || n != 2 {
		t.Fatalf("scan did not stop: n=%d, err=%+v", n, err)
	}
}

func TestConcurrentAccess(t *testing.T) {
	dev := fakebus.New()
	dev.SetBusy(1)
	brd := newBridge(dev)

	const (
		nworkers = 8
		nloops   = 64
	)

	var (
		wg   sync.WaitGroup
		errc = make(chan error, nworkers)
	)
	for i := 0; i < nworkers; i++ {
		wg.Add(1)
		go func(e dispatcher.EngineID) {
			defer wg.Done()
			for j := uint32(0); j < nloops; j++ {
				v := uint32(e)<<16 | j
				err := brd.WriteVerified(e, j, v)
				if err != nil {
					errc <- err
					return
				}
			}
		}(dispatcher.EngineID(i))
	}
	wg.Wait()
	close(errc)

	for err := range errc {
		t.Fatalf("concurrent access failed: %+v", err)
	}
}
