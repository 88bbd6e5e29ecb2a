// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gate runs one authentication-gate invocation end to end.
//
// A Run resolves the principal, applies the action through the lockout
// engine, holds locked callers in the bounce loop, and maps the result to
// an admit or deny Outcome. Every internal failure denies; the user sees
// only a generic message while the cause goes to the log.
package gate

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jeranaias/authramp/internal/bounce"
	"github.com/jeranaias/authramp/internal/lockout"
	"github.com/jeranaias/authramp/internal/logging"
)

// GenericFailure is the only text shown to the user for internal failures.
const GenericFailure = "Authentication failed."

// Hook names the entry point the gate was invoked from.
type Hook string

const (
	HookAuth    Hook = "auth"
	HookAccount Hook = "account"
)

// ParseHook maps a hook name, defaulting to HookAuth for anything unknown.
func ParseHook(s string) Hook {
	if Hook(s) == HookAccount {
		return HookAccount
	}
	return HookAuth
}

// Reason explains an Outcome.
type Reason string

const (
	ReasonAdmitted      Reason = "admitted"
	ReasonLocked        Reason = "locked"
	ReasonReleased      Reason = "released"
	ReasonAuthFailed    Reason = "auth_failed"
	ReasonIdentityError Reason = "identity_error"
	ReasonSystemError   Reason = "system_error"
)

// Request is one gate invocation.
type Request struct {
	Service string
	Hook    Hook
	User    string
	Action  lockout.Action
}

// Outcome is the gate's final answer.
type Outcome struct {
	Admit  bool
	Reason Reason
	// Message is safe to show the user. Empty when the bounce loop already
	// told the user about the lock.
	Message   string
	Principal lockout.Principal
	Decision  lockout.Decision
	// Err is the internal cause of an identity or system failure.
	Err error
}

// =============================================================================
// COLLABORATORS
// =============================================================================

// Resolver maps login names to principals.
type Resolver interface {
	Resolve(name string) (lockout.Principal, error)
}

// Engine applies lockout actions.
type Engine interface {
	Apply(ctx context.Context, p lockout.Principal, action lockout.Action) (lockout.Decision, error)
}

// Waiter holds a locked caller.
type Waiter interface {
	Bounce(ctx context.Context, principal string, unlockAt time.Time) bounce.Result
}

// =============================================================================
// GATE
// =============================================================================

// Gate wires the collaborators for a single invocation.
type Gate struct {
	resolver Resolver
	engine   Engine
	waiter   Waiter
	logger   *slog.Logger
}

// Option configures a Gate.
type Option func(*Gate)

// WithLogger sets the base logger. Each Run tags it with the service, hook
// and a fresh invocation id.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// New returns a Gate. All three collaborators are required.
func New(resolver Resolver, engine Engine, waiter Waiter, opts ...Option) (*Gate, error) {
	if resolver == nil || engine == nil || waiter == nil {
		return nil, errors.New("gate: resolver, engine and waiter are required")
	}
	g := &Gate{
		resolver: resolver,
		engine:   engine,
		waiter:   waiter,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Run executes req and returns its Outcome. It never panics on collaborator
// errors and never admits after one.
func (g *Gate) Run(ctx context.Context, req Request) Outcome {
	log := logging.Invocation(g.logger, req.Service, string(req.Hook))

	p, err := g.resolver.Resolve(req.User)
	if err != nil {
		log.ErrorContext(ctx, "principal resolution failed", "user", req.User, "error", err)
		return deny(ReasonIdentityError, lockout.Principal{}, lockout.Decision{}, err)
	}

	d, err := g.engine.Apply(ctx, p, req.Action)
	if err != nil {
		log.ErrorContext(ctx, "lockout decision failed", "principal", p.Name,
			"action", req.Action.String(), "error", err)
		return deny(ReasonSystemError, p, d, err)
	}

	if d.State == lockout.Unlocked {
		return g.unlocked(ctx, log, req, p, d)
	}

	res := g.waiter.Bounce(ctx, p.Name, d.UnlockAt)
	log.InfoContext(ctx, "locked attempt handled", "principal", p.Name,
		"action", req.Action.String(), "bounce", res.String(), "unlock_at", d.UnlockAt)

	switch {
	case res == bounce.Released && req.Action.Effective() == lockout.ActionPreAuth:
		return Outcome{Admit: true, Reason: ReasonReleased, Principal: p, Decision: d}
	case res == bounce.Released:
		return Outcome{Reason: ReasonAuthFailed, Message: GenericFailure, Principal: p, Decision: d}
	default:
		return Outcome{Reason: ReasonLocked, Principal: p, Decision: d}
	}
}

func (g *Gate) unlocked(ctx context.Context, log *slog.Logger, req Request, p lockout.Principal, d lockout.Decision) Outcome {
	if req.Action.Effective() == lockout.ActionAuthFail {
		log.InfoContext(ctx, "authentication failure recorded", "principal", p.Name, "count", d.Record.Count)
		return Outcome{Reason: ReasonAuthFailed, Message: GenericFailure, Principal: p, Decision: d}
	}
	log.DebugContext(ctx, "admitted", "principal", p.Name, "action", req.Action.String(), "exempt", d.Exempt)
	return Outcome{Admit: true, Reason: ReasonAdmitted, Principal: p, Decision: d}
}

func deny(reason Reason, p lockout.Principal, d lockout.Decision, err error) Outcome {
	return Outcome{Reason: reason, Message: GenericFailure, Principal: p, Decision: d, Err: err}
}
