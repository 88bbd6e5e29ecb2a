// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package bounce holds a locked authentication attempt until its unlock time.
//
// Each invocation is its own process bound to one authentication
// transaction, so the only way to enforce the wait is to block that
// transaction. The loop polls about once per second and recomputes the
// remaining time on every pass, which tolerates clock adjustments and stale
// records. Only the caller's context can end the wait early.
package bounce

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/jeranaias/authramp/internal/ramp"
)

// =============================================================================
// CONVERSATION
// =============================================================================

// Style is the presentation hint for a conversation message.
type Style int

const (
	// StyleErrorMsg marks lockout and countdown text.
	StyleErrorMsg Style = iota
	// StyleTextInfo marks neutral information.
	StyleTextInfo
)

// Conversation delivers text to the user being authenticated. The returned
// string is the user's response, if the channel collects one.
type Conversation interface {
	Send(ctx context.Context, style Style, msg string) (string, error)
}

// ErrConversation wraps a failure to deliver a countdown message.
var ErrConversation = errors.New("conversation failed")

// ErrInterrupted is logged when the caller's context ends a wait.
var ErrInterrupted = errors.New("wait interrupted")

// errTallyReset is the cancel cause used when the tally file disappears.
var errTallyReset = errors.New("tally reset")

// =============================================================================
// RESULT
// =============================================================================

// Result is how a bounce ended.
type Result int

const (
	// Denied means countdown is disabled; the caller was told the unlock
	// time and must deny now.
	Denied Result = iota
	// Released means the unlock time passed or the tally was reset.
	Released
	// Interrupted means the context ended the wait.
	Interrupted
)

func (r Result) String() string {
	switch r {
	case Denied:
		return "denied"
	case Released:
		return "released"
	case Interrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// =============================================================================
// BOUNCER
// =============================================================================

// Bouncer runs the wait loop for one locked principal.
type Bouncer struct {
	conv      Conversation
	logger    *slog.Logger
	now       func() time.Time
	sleep     func(context.Context, time.Duration) error
	countdown bool
	interval  time.Duration
	watchDir  string
}

// Option configures a Bouncer.
type Option func(*Bouncer)

// WithLogger sets the logger for conversation failures and wait events.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bouncer) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(b *Bouncer) {
		if now != nil {
			b.now = now
		}
	}
}

// WithSleep overrides how the loop waits between passes. The function must
// return ctx.Err() once ctx is done.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(b *Bouncer) {
		if sleep != nil {
			b.sleep = sleep
		}
	}
}

// WithCountdown enables or disables the blocking countdown.
func WithCountdown(enabled bool) Option {
	return func(b *Bouncer) {
		b.countdown = enabled
	}
}

// WithInterval sets the minimum spacing between countdown messages. Values
// under one second are raised to one second.
func WithInterval(d time.Duration) Option {
	return func(b *Bouncer) {
		if d > time.Second {
			b.interval = d
		}
	}
}

// WithResetWatch releases the wait early when the principal's tally file is
// removed from dir.
func WithResetWatch(dir string) Option {
	return func(b *Bouncer) {
		b.watchDir = dir
	}
}

// New returns a Bouncer that writes through conv. Countdown is enabled by
// default.
func New(conv Conversation, opts ...Option) *Bouncer {
	b := &Bouncer{
		conv:      conv,
		logger:    slog.New(slog.DiscardHandler),
		now:       time.Now,
		sleep:     sleepContext,
		countdown: true,
		interval:  time.Second,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Bounce holds principal until unlockAt.
//
// With countdown disabled it sends one message naming the unlock time and
// returns Denied. Otherwise it blocks, sending a countdown at most once per
// interval, and returns Released when the unlock time passes or Interrupted
// when ctx is done first. Conversation failures are logged and never end
// the wait.
func (b *Bouncer) Bounce(ctx context.Context, principal string, unlockAt time.Time) Result {
	b.logger.InfoContext(ctx, "bouncing locked account",
		"principal", principal, "unlock_at", unlockAt, "countdown", b.countdown)

	if !b.countdown {
		b.send(ctx, StyleErrorMsg, LockedUntilMessage(unlockAt))
		return Denied
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	waitCtx, release := context.WithCancelCause(runCtx)
	defer release(nil)

	g, gctx := errgroup.WithContext(runCtx)
	if b.watchDir != "" {
		if w, err := b.startWatch(); err != nil {
			b.logger.WarnContext(ctx, "reset watch unavailable", "dir", b.watchDir, "error", err)
		} else {
			target := filepath.Join(b.watchDir, principal)
			g.Go(func() error {
				defer w.Close()
				b.watchRemoval(gctx, w, target, release)
				return nil
			})
		}
	}

	var result Result
	g.Go(func() error {
		result = b.wait(waitCtx, unlockAt)
		stop()
		return nil
	})
	_ = g.Wait()

	if result == Interrupted {
		b.logger.WarnContext(ctx, "bounce ended before unlock", "principal", principal,
			"error", fmt.Errorf("%w: %w", ErrInterrupted, context.Cause(ctx)))
	} else {
		b.logger.InfoContext(ctx, "bounce finished", "principal", principal, "result", result.String())
	}
	return result
}

func (b *Bouncer) wait(ctx context.Context, unlockAt time.Time) Result {
	limiter := rate.NewLimiter(rate.Every(b.interval), 1)

	for {
		now := b.now()
		if !now.Before(unlockAt) {
			return Released
		}

		remaining := unlockAt.Sub(now)
		if limiter.AllowN(now, 1) {
			b.send(ctx, StyleErrorMsg, CountdownMessage(ramp.Capped(remaining)))
		}

		step := time.Second
		if remaining < step {
			step = remaining
		}
		if err := b.sleep(ctx, step); err != nil {
			if errors.Is(context.Cause(ctx), errTallyReset) {
				return Released
			}
			return Interrupted
		}
	}
}

func (b *Bouncer) send(ctx context.Context, style Style, msg string) {
	if b.conv == nil {
		return
	}
	if _, err := b.conv.Send(ctx, style, msg); err != nil {
		b.logger.ErrorContext(ctx, "countdown message not delivered",
			"error", fmt.Errorf("%w: %w", ErrConversation, err))
	}
}

// =============================================================================
// RESET WATCH
// =============================================================================

func (b *Bouncer) startWatch() (*fsnotify.Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(b.watchDir); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}

func (b *Bouncer) watchRemoval(ctx context.Context, w *fsnotify.Watcher, target string, release context.CancelCauseFunc) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) == target && (ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)) {
				b.logger.InfoContext(ctx, "tally reset during wait, releasing", "path", target)
				release(errTallyReset)
				return
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			b.logger.WarnContext(ctx, "reset watch error", "error", err)
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
