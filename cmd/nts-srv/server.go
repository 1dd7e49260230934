// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-daq/tdaq"
	"github.com/go-lpc/nts"
	"github.com/go-lpc/nts/diag"
	"github.com/go-lpc/nts/dispatcher"
	"github.com/go-lpc/nts/keymem"
	"github.com/go-lpc/nts/noncegen"
)

type config struct {
	devmem string
	offset int64
	engine dispatcher.EngineID
	keys   string
	freq   time.Duration
}

func configFromEnv(getenv func(string) string) (config, error) {
	cfg := config{
		devmem: "/dev/mem",
		freq:   time.Second,
	}
	if v := getenv("NTS_DEVMEM"); v != "" {
		cfg.devmem = v
	}
	if v := getenv("NTS_OFFSET"); v != "" {
		off, err := strconv.ParseInt(v, 0, 64)
		if err != nil {
			return cfg, fmt.Errorf("invalid NTS_OFFSET %q: %w", v, err)
		}
		cfg.offset = off
	}
	if v := getenv("NTS_ENGINE"); v != "" {
		e, err := strconv.ParseUint(v, 0, 12)
		if err != nil {
			return cfg, fmt.Errorf("invalid NTS_ENGINE %q: %w", v, err)
		}
		cfg.engine = dispatcher.EngineID(e)
	}
	cfg.keys = getenv("NTS_KEYS")
	return cfg, nil
}

type server struct {
	cfg  config
	open func(cfg config) (*dispatcher.Bridge, func() error, error)
	seed noncegen.Provider

	brd   *dispatcher.Bridge
	close func() error

	mu    sync.Mutex
	start diag.Frames // frame counters at the start of the run
	n     int         // number of published snapshots
	data  chan []byte
}

func newServer(cfg config) *server {
	return &server{
		cfg: cfg,
		open: func(cfg config) (*dispatcher.Bridge, func() error, error) {
			brd, err := nts.Open(cfg.devmem, cfg.offset)
			if err != nil {
				return nil, nil, err
			}
			return brd.Bridge, brd.Close, nil
		},
		seed: noncegen.RandomProvider{},
	}
}

func (srv *server) board() diag.Board {
	return diag.NewBoard(srv.brd, srv.cfg.engine)
}

func (srv *server) OnConfig(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /config command...")
	err := srv.configure()
	if err != nil {
		ctx.Msg.Errorf("could not configure board: %+v", err)
		return err
	}
	return nil
}

func (srv *server) OnInit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /init command...")
	n, err := srv.initialize()
	if err != nil {
		ctx.Msg.Errorf("could not initialize board: %+v", err)
		return err
	}
	ctx.Msg.Infof("nonce generator seeded, %d key(s) installed", n)
	return nil
}

func (srv *server) OnReset(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /reset command...")
	err := srv.reset()
	if err != nil {
		ctx.Msg.Errorf("could not reset board: %+v", err)
		return err
	}
	return nil
}

func (srv *server) OnStart(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /start command...")
	err := srv.begin()
	if err != nil {
		ctx.Msg.Errorf("could not start run: %+v", err)
		return err
	}
	return nil
}

func (srv *server) OnStop(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	frames, err := srv.end()
	if err != nil {
		ctx.Msg.Errorf("could not stop run: %+v", err)
		return err
	}
	srv.mu.Lock()
	n := srv.n
	srv.mu.Unlock()
	ctx.Msg.Debugf("received /stop command... -> n=%d", n)
	ctx.Msg.Infof(
		"frames: detected=%d good=%d bad=%d dispatched=%d error=%d",
		frames.Detected, frames.Good, frames.Bad, frames.Dispatched, frames.Error,
	)
	return nil
}

func (srv *server) OnQuit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /quit command...")
	err := srv.quit()
	if err != nil {
		ctx.Msg.Errorf("could not release board: %+v", err)
		return err
	}
	return nil
}

func (srv *server) status(ctx tdaq.Context, dst *tdaq.Frame) error {
	select {
	case <-ctx.Ctx.Done():
		dst.Body = nil
		return nil
	case data := <-srv.data:
		dst.Body = data
	}
	return nil
}

func (srv *server) run(ctx tdaq.Context) error {
	tick := time.NewTicker(srv.cfg.freq)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Ctx.Done():
			return nil
		case <-tick.C:
			err := srv.publish()
			if err != nil {
				ctx.Msg.Errorf("could not publish status: %+v", err)
			}
		}
	}
}

func (srv *server) configure() error {
	if srv.brd != nil {
		return nil
	}
	brd, closer, err := srv.open(srv.cfg)
	if err != nil {
		return fmt.Errorf("could not open board: %w", err)
	}
	srv.brd = brd
	srv.close = closer
	srv.data = make(chan []byte, 1024)

	err = diag.CheckDummy(brd.Window())
	if err != nil {
		return fmt.Errorf("could not access dispatcher: %w", err)
	}
	return nil
}

func (srv *server) initialize() (int, error) {
	if srv.brd == nil {
		return 0, fmt.Errorf("board not configured")
	}

	eng := srv.brd.Engine(srv.cfg.engine)
	err := noncegen.Init(eng, srv.seed)
	if err != nil {
		return 0, err
	}

	if srv.cfg.keys == "" {
		return 0, nil
	}

	keys, err := keymem.LoadFile(srv.cfg.keys)
	if err != nil {
		return 0, err
	}

	km := keymem.New(eng)
	for i, key := range keys {
		err = km.Install(key.Slot, key.ID, key.Key)
		if err != nil {
			return i, fmt.Errorf("could not install key 0x%08x in slot %d: %w", key.ID, key.Slot, err)
		}
	}
	return len(keys), nil
}

func (srv *server) reset() error {
	if srv.brd == nil {
		return nil
	}

	km := keymem.New(srv.brd.Engine(srv.cfg.engine))
	for slot := keymem.Slot(0); slot < keymem.NumSlots; slot++ {
		err := km.Disable(slot)
		if err != nil {
			return err
		}
	}

	srv.mu.Lock()
	srv.n = 0
	srv.start = diag.Frames{}
	srv.mu.Unlock()
	return nil
}

func (srv *server) begin() error {
	if srv.brd == nil {
		return fmt.Errorf("board not configured")
	}
	st, err := diag.Read(srv.board())
	if err != nil {
		return err
	}
	srv.mu.Lock()
	srv.start = st.Frames
	srv.n = 0
	srv.mu.Unlock()
	return nil
}

// end returns the frame counters accumulated since the start of the run.
func (srv *server) end() (diag.Frames, error) {
	if srv.brd == nil {
		return diag.Frames{}, fmt.Errorf("board not configured")
	}
	st, err := diag.Read(srv.board())
	if err != nil {
		return diag.Frames{}, err
	}

	srv.mu.Lock()
	defer srv.mu.Unlock()
	beg := srv.start
	return diag.Frames{
		Detected:   st.Frames.Detected - beg.Detected,
		Good:       st.Frames.Good - beg.Good,
		Bad:        st.Frames.Bad - beg.Bad,
		Dispatched: st.Frames.Dispatched - beg.Dispatched,
		Error:      st.Frames.Error - beg.Error,
	}, nil
}

func (srv *server) publish() error {
	if srv.brd == nil {
		return nil
	}
	st, err := diag.Read(srv.board())
	if err != nil {
		return err
	}
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("could not encode status: %w", err)
	}
	select {
	case srv.data <- raw:
		srv.mu.Lock()
		srv.n++
		srv.mu.Unlock()
	default:
	}
	return nil
}

func (srv *server) quit() error {
	if srv.close == nil {
		return nil
	}
	err := srv.close()
	srv.brd = nil
	srv.close = nil
	return err
}
