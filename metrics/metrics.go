// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package metrics exports the NTS status counters as Prometheus metrics.
package metrics // import "github.com/go-lpc/nts/metrics"

import (
	"io"
	"log"
	"sync"

	"github.com/go-lpc/nts/diag"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "nts"

// Option configures a Collector.
type Option func(*Collector)

// WithLogger sets the logger used to report failed scrapes.
func WithLogger(msg *log.Logger) Option {
	return func(c *Collector) {
		c.msg = msg
	}
}

// Collector reads a status snapshot from the board on every scrape.
type Collector struct {
	mu  sync.Mutex
	brd diag.Board
	msg *log.Logger

	info       *prometheus.Desc
	frames     *prometheus.Desc
	bytesRx    *prometheus.Desc
	debug      *prometheus.Desc
	errors     *prometheus.Desc
	parserErrs *prometheus.Desc
	ntpTime    *prometheus.Desc

	scrapeErrs prometheus.Counter
}

// NewCollector returns a collector of the board status counters.
func NewCollector(brd diag.Board, opts ...Option) *Collector {
	c := &Collector{
		brd: brd,
		msg: log.New(io.Discard, "metrics: ", 0),
		info: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "dispatcher_info"),
			"Name and version of the dispatcher core.",
			[]string{"name", "version"}, nil,
		),
		frames: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "frames_total"),
			"Number of frames seen by the dispatcher.",
			[]string{"kind"}, nil,
		),
		bytesRx: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "bytes_rx_total"),
			"Number of bytes received by the dispatcher.",
			nil, nil,
		),
		debug: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "debug_total"),
			"NTS processing counters of the debug engine.",
			[]string{"kind"}, nil,
		),
		errors: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "errors_total"),
			"Error counters of the debug engine.",
			[]string{"kind"}, nil,
		),
		parserErrs: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "parser", "error_count"),
			"Error counter of the parser engine.",
			nil, nil,
		),
		ntpTime: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "ntp_time_seconds"),
			"NTP time of the dispatcher, in seconds since the NTP epoch.",
			nil, nil,
		),
		scrapeErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scrape_errors_total",
			Help:      "Number of failed reads of the board status.",
		}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.info
	ch <- c.frames
	ch <- c.bytesRx
	ch <- c.debug
	ch <- c.errors
	ch <- c.parserErrs
	ch <- c.ntpTime
	c.scrapeErrs.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()

	defer c.scrapeErrs.Collect(ch)

	st, err := diag.Read(c.brd)
	if err != nil {
		c.msg.Printf("could not read board status: %+v", err)
		c.scrapeErrs.Inc()
		return
	}

	counter := func(desc *prometheus.Desc, v uint64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(v), labels...)
	}
	gauge := func(desc *prometheus.Desc, v float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, v, labels...)
	}

	gauge(c.info, 1, st.Name, st.Version)

	counter(c.frames, st.Frames.Detected, "detected")
	counter(c.frames, st.Frames.Good, "good")
	counter(c.frames, st.Frames.Bad, "bad")
	counter(c.frames, st.Frames.Dispatched, "dispatched")
	counter(c.frames, st.Frames.Error, "error")
	counter(c.bytesRx, st.BytesRx)

	counter(c.debug, st.NTS.Processed, "processed")
	counter(c.debug, st.NTS.BadCookie, "bad_cookie")
	counter(c.debug, st.NTS.BadAuth, "bad_auth")
	counter(c.debug, st.NTS.BadKeyID, "bad_keyid")

	counter(c.errors, st.Errors.Crypto, "crypto")
	counter(c.errors, st.Errors.TxBuf, "txbuf")

	gauge(c.parserErrs, float64(st.Parser.ErrorCount))
	gauge(c.ntpTime, st.NTPSeconds())
}

var _ prometheus.Collector = (*Collector)(nil)
