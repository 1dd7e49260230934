// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dispatcher

import (
	"log"
	"os"
	"time"

	"github.com/go-lpc/nts/internal/regs"
)

// Config holds the bridge configuration.
type Config struct {
	// Base is the absolute word address of the dispatcher block.
	Base uint32

	// Retries is the maximum number of status polls per transaction.
	Retries int

	// Interval is the pause between two status polls.
	// A zero interval busy-polls.
	Interval time.Duration

	// Sleep pauses the polling loop. It defaults to time.Sleep.
	Sleep func(time.Duration)

	// Logger reports transaction timeouts.
	Logger *log.Logger
}

func defaultConfig() Config {
	return Config{
		Base:    regs.DispatcherBase,
		Retries: 1000000,
		Sleep:   time.Sleep,
		Logger:  log.New(os.Stdout, "dispatcher: ", 0),
	}
}

// Option configures a Bridge.
type Option func(*Config)

// WithBase sets the absolute word address of the dispatcher block.
func WithBase(base uint32) Option {
	return func(cfg *Config) {
		cfg.Base = base
	}
}

// WithRetries sets the maximum number of status polls of a bus transaction.
// Non-positive values are ignored.
func WithRetries(n int) Option {
	return func(cfg *Config) {
		if n > 0 {
			cfg.Retries = n
		}
	}
}

// WithInterval sets the pause between two status polls.
func WithInterval(d time.Duration) Option {
	return func(cfg *Config) {
		if d >= 0 {
			cfg.Interval = d
		}
	}
}

// WithSleep replaces the function used to pause between status polls.
func WithSleep(sleep func(time.Duration)) Option {
	return func(cfg *Config) {
		if sleep != nil {
			cfg.Sleep = sleep
		}
	}
}

// WithLogger sets the logger of the bridge.
func WithLogger(msg *log.Logger) Option {
	return func(cfg *Config) {
		if msg != nil {
			cfg.Logger = msg
		}
	}
}
