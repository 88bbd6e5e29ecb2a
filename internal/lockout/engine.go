// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package lockout decides whether a principal may attempt authentication.
//
// Engine.Apply loads the principal's tally, applies one Action, persists the
// result when the action mutates it, and returns a Decision. Any tally store
// error aborts the transition and is returned to the caller, which must deny.
package lockout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jeranaias/authramp/internal/ramp"
	"github.com/jeranaias/authramp/internal/tally"
)

// =============================================================================
// TYPES
// =============================================================================

// Store is the subset of the tally store the engine needs.
type Store interface {
	LoadOrCreate(principal string) (tally.Record, error)
	Persist(principal string, r tally.Record) error
}

// Principal identifies the account being authenticated.
type Principal struct {
	Name string
	UID  uint32
}

// IsRoot reports whether p is the privileged root identity.
func (p Principal) IsRoot() bool {
	return p.UID == 0
}

// State is the lock state of a principal at decision time.
type State int

const (
	Unlocked State = iota
	Locked
)

func (s State) String() string {
	if s == Locked {
		return "locked"
	}
	return "unlocked"
}

// Decision is the result of applying an Action.
type Decision struct {
	State State
	// UnlockAt is set when State is Locked.
	UnlockAt time.Time
	// Record is the tally after the action.
	Record tally.Record
	// PriorCount is the failure count before the action.
	PriorCount int
	// Exempt is true when a root principal bypassed the lock.
	Exempt bool
}

// Settings is the lockout policy.
type Settings struct {
	Ramp         ramp.Settings
	EvenDenyRoot bool
}

// =============================================================================
// ENGINE
// =============================================================================

// Engine applies actions to tallies.
type Engine struct {
	store    Store
	settings Settings
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for lockout events.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine returns an Engine over store.
func NewEngine(store Store, settings Settings, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, errors.New("lockout: store is required")
	}
	e := &Engine{
		store:    store,
		settings: settings,
		logger:   slog.New(slog.DiscardHandler),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Settings returns the engine's policy.
func (e *Engine) Settings() Settings {
	return e.settings
}

// Apply runs action for p and returns the resulting Decision.
func (e *Engine) Apply(ctx context.Context, p Principal, action Action) (Decision, error) {
	rec, err := e.store.LoadOrCreate(p.Name)
	if err != nil {
		return Decision{}, fmt.Errorf("load tally: %w", err)
	}
	now := e.now().UTC()

	if action == ActionUnrecognized {
		e.logger.WarnContext(ctx, "unrecognized action, treating as authsucc",
			"principal", p.Name)
	}

	var d Decision
	switch action.Effective() {
	case ActionPreAuth:
		d = e.preAuth(ctx, p, rec, now)
	case ActionAuthFail:
		d, err = e.authFail(ctx, p, rec, now)
	default:
		d, err = e.authSuccess(ctx, p, rec)
	}
	if err != nil {
		return Decision{}, err
	}

	if p.IsRoot() && !e.settings.EvenDenyRoot && d.State == Locked {
		e.logger.InfoContext(ctx, "root exempt from lockout",
			"principal", p.Name, "count", d.Record.Count)
		d.State = Unlocked
		d.UnlockAt = time.Time{}
		d.Exempt = true
	}
	return d, nil
}

// preAuth reports the current lock without touching the store.
func (e *Engine) preAuth(ctx context.Context, p Principal, rec tally.Record, now time.Time) Decision {
	d := Decision{State: Unlocked, Record: rec, PriorCount: rec.Count}
	if !e.settings.Ramp.Exceeds(rec.Count) {
		return d
	}

	var unlock time.Time
	if rec.UnlockInstant != nil {
		unlock = *rec.UnlockInstant
	} else {
		delay, _ := e.settings.Ramp.CappedDelay(rec.Count)
		unlock = rec.Instant.Add(delay)
	}

	if !now.Before(unlock) {
		return d
	}
	// A stale or skewed record never holds longer than the cap from now.
	if limit := now.Add(ramp.MaxDelay); unlock.After(limit) {
		unlock = limit
	}

	d.State = Locked
	d.UnlockAt = unlock
	e.logger.InfoContext(ctx, "account locked",
		"principal", p.Name, "count", rec.Count, "unlock_at", unlock)
	return d
}

func (e *Engine) authFail(ctx context.Context, p Principal, rec tally.Record, now time.Time) (Decision, error) {
	prior := rec.Count
	if rec.Count < math.MaxInt32 {
		rec.Count++
	}
	rec.Instant = now
	rec.UnlockInstant = nil

	d := Decision{State: Unlocked, PriorCount: prior}
	if e.settings.Ramp.Exceeds(rec.Count) {
		delay, err := e.settings.Ramp.CappedDelay(rec.Count)
		if err != nil {
			return Decision{}, err
		}
		unlock := now.Add(delay)
		rec.UnlockInstant = &unlock
		d.State = Locked
		d.UnlockAt = unlock
	}

	if err := e.store.Persist(p.Name, rec); err != nil {
		return Decision{}, fmt.Errorf("persist tally: %w", err)
	}
	d.Record = rec

	if d.State == Locked {
		e.logger.WarnContext(ctx, "authentication failure, account locked",
			"principal", p.Name, "count", rec.Count, "unlock_at", d.UnlockAt)
	} else {
		e.logger.InfoContext(ctx, "authentication failure recorded",
			"principal", p.Name, "count", rec.Count,
			"free_tries", e.settings.Ramp.FreeTries)
	}
	return d, nil
}

func (e *Engine) authSuccess(ctx context.Context, p Principal, rec tally.Record) (Decision, error) {
	prior := rec.Count
	rec.Count = 0
	rec.UnlockInstant = nil

	if err := e.store.Persist(p.Name, rec); err != nil {
		return Decision{}, fmt.Errorf("persist tally: %w", err)
	}

	if prior > 0 {
		e.logger.InfoContext(ctx, "tally cleared after success",
			"principal", p.Name, "prior_count", prior)
	}
	return Decision{State: Unlocked, Record: rec, PriorCount: prior}, nil
}
