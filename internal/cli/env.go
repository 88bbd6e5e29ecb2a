// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// env.go - Shared state handed to every command handler.

package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/jeranaias/authramp/internal/bounce"
	"github.com/jeranaias/authramp/internal/config"
	"github.com/jeranaias/authramp/internal/gate"
	"github.com/jeranaias/authramp/internal/identity"
	"github.com/jeranaias/authramp/internal/lockout"
	"github.com/jeranaias/authramp/internal/tally"
)

// Env carries configuration, logging and I/O for one process.
type Env struct {
	Config *config.Config
	Logger *slog.Logger
	// ConfigErr is the error from loading Config, if any. Config then
	// holds defaults.
	ConfigErr error

	Out io.Writer // command output
	Err io.Writer // messages to the person at the terminal

	// Now is the clock used by every component.
	Now func() time.Time
	// Geteuid reports the effective uid, -1 where there is none.
	Geteuid func() int
	// Resolver maps user names to principals.
	Resolver gate.Resolver
	// Sleep overrides how the bounce loop waits; nil means real time.
	Sleep func(ctx context.Context, d time.Duration) error
	// NewPrompter opens the login prompt; nil means the terminal.
	NewPrompter func(env *Env) (Prompter, error)
}

// NewEnv returns an Env over the real system: stdout, stderr, wall clock
// and the system account database.
func NewEnv(cfg *config.Config, logger *slog.Logger) *Env {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Env{
		Config:   cfg,
		Logger:   logger,
		Out:      os.Stdout,
		Err:      os.Stderr,
		Now:      time.Now,
		Geteuid:  geteuid,
		Resolver: identity.NewResolver(),
	}
}

// store opens the tally store.
func (e *Env) store() *tally.Store {
	return tally.NewStore(e.Config.TallyDir,
		tally.WithLogger(e.Logger),
		tally.WithClock(e.Now))
}

// newGate wires resolver, engine and bouncer, with conv showing lock
// messages to the user.
func (e *Env) newGate(conv bounce.Conversation) (*gate.Gate, error) {
	engine, err := lockout.NewEngine(e.store(), e.Config.Lockout(),
		lockout.WithLogger(e.Logger),
		lockout.WithClock(e.Now))
	if err != nil {
		return nil, err
	}

	opts := []bounce.Option{
		bounce.WithLogger(e.Logger),
		bounce.WithClock(e.Now),
		bounce.WithCountdown(e.Config.Countdown),
	}
	if e.Sleep != nil {
		opts = append(opts, bounce.WithSleep(e.Sleep))
	}
	if e.Config.ReleaseOnReset {
		opts = append(opts, bounce.WithResetWatch(e.Config.TallyDir))
	}

	return gate.New(e.Resolver, engine, bounce.New(conv, opts...), gate.WithLogger(e.Logger))
}
