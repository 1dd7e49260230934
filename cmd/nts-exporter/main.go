// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command nts-exporter serves the NTS status counters as Prometheus
// metrics and periodically logs the frame rates of the dispatcher.
package main // import "github.com/go-lpc/nts/cmd/nts-exporter"

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-lpc/nts"
	"github.com/go-lpc/nts/diag"
	"github.com/go-lpc/nts/dispatcher"
	"github.com/go-lpc/nts/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

func main() {
	log.SetPrefix("nts-exporter: ")
	log.SetFlags(0)

	var (
		fname  = flag.String("dev", "/dev/mem", "path to the device file")
		offset = flag.Int64("offset", 0, "file offset of the dispatcher block")
		engine = flag.Uint("engine", 0, "engine to read the status from")
		addr   = flag.String("addr", ":9142", "[ip]:port to listen on")
		freq   = flag.Duration("freq", 30*time.Second, "frame rates logging interval (0 to disable)")
	)

	flag.Parse()

	brd, err := nts.Open(*fname, *offset)
	if err != nil {
		log.Fatalf("could not open device: %+v", err)
	}
	defer brd.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err = run(ctx, *addr, diag.NewBoard(brd.Bridge, dispatcher.EngineID(*engine)), *freq)
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func newHandler(brd diag.Board) http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(metrics.NewCollector(brd, metrics.WithLogger(log.Default())))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return mux
}

func run(ctx context.Context, addr string, brd diag.Board, freq time.Duration) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: newHandler(brd),
	}

	grp, ctx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		log.Printf("serving metrics on %q...", addr)
		err := srv.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	grp.Go(func() error {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	if freq > 0 {
		grp.Go(func() error {
			poll(ctx, brd, freq)
			return nil
		})
	}

	return grp.Wait()
}

// poll logs the frame rates of the dispatcher every freq, until ctx is done.
func poll(ctx context.Context, brd diag.Board, freq time.Duration) {
	tick := time.NewTicker(freq)
	defer tick.Stop()

	var (
		prev  diag.Frames
		last  time.Time
		valid bool
	)
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-tick.C:
			st, err := diag.Read(brd)
			if err != nil {
				log.Printf("could not read status: %+v", err)
				valid = false
				continue
			}
			if valid {
				log.Print(rates(prev, st.Frames, now.Sub(last)))
			}
			prev, last, valid = st.Frames, now, true
		}
	}
}

func rates(prev, cur diag.Frames, dt time.Duration) string {
	sec := dt.Seconds()
	rate := func(a, b uint64) float64 {
		if sec <= 0 || b < a {
			return 0
		}
		return float64(b-a) / sec
	}
	return fmt.Sprintf(
		"frames/s: detected=%.1f good=%.1f bad=%.1f dispatched=%.1f error=%.1f",
		rate(prev.Detected, cur.Detected),
		rate(prev.Good, cur.Good),
		rate(prev.Bad, cur.Bad),
		rate(prev.Dispatched, cur.Dispatched),
		rate(prev.Error, cur.Error),
	)
}
