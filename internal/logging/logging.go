// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the *slog.Logger handle that main passes into every
// authramp component.
//
// There is no package-level logger. A logger is constructed once per process
// with New, then narrowed per invocation with Invocation so each line carries
// the calling service, hook, and a unique invocation id.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/natefinch/lumberjack.v2"
)

// =============================================================================
// CONFIG
// =============================================================================

// Config selects the sinks and verbosity of the logger.
type Config struct {
	Level      slog.Level // default: Info
	Format     string     // "text" or "json" for file and stderr sinks
	File       string     // rotating log file; empty disables
	Syslog     bool       // send records to the system log (AUTHPRIV)
	Stderr     bool       // also write to stderr
	MaxSizeMB  int        // rotation threshold for File
	MaxBackups int        // rotated files kept
}

// DefaultConfig logs at info level to syslog only.
func DefaultConfig() Config {
	return Config{
		Level:      slog.LevelInfo,
		Format:     "text",
		Syslog:     true,
		MaxSizeMB:  10,
		MaxBackups: 3,
	}
}

// ParseLevel maps a level name to a slog.Level. Unknown names yield info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ApplyEnv adjusts cfg from AUTHRAMP_LOG_* variables read through getenv.
// The environment can only make logging more verbose or change its format;
// destinations configured by the file are never redirected or disabled.
func (cfg *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("AUTHRAMP_LOG_LEVEL"); v != "" {
		if lvl := ParseLevel(v); lvl < cfg.Level {
			cfg.Level = lvl
		}
	}
	switch strings.ToLower(getenv("AUTHRAMP_LOG_FORMAT")) {
	case "json":
		cfg.Format = "json"
	case "text":
		cfg.Format = "text"
	}
	cfg.Stderr = cfg.Stderr || envBool(getenv("AUTHRAMP_LOG_STDERR"), false)
}

func envBool(s string, def bool) bool {
	if s == "" {
		return def
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return v
}

// =============================================================================
// MULTI HANDLER
// =============================================================================

// MultiHandler fans out to multiple slog.Handlers.
type MultiHandler struct{ hs []slog.Handler }

// NewMultiHandler returns a handler writing to every h.
func NewMultiHandler(hs ...slog.Handler) MultiHandler {
	return MultiHandler{hs: hs}
}

func (m MultiHandler) Enabled(ctx context.Context, lvl slog.Level) bool {
	for _, h := range m.hs {
		if h.Enabled(ctx, lvl) {
			return true
		}
	}
	return false
}

func (m MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range m.hs {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Handler, len(m.hs))
	for i, h := range m.hs {
		out[i] = h.WithAttrs(attrs)
	}
	return MultiHandler{hs: out}
}

func (m MultiHandler) WithGroup(name string) slog.Handler {
	out := make([]slog.Handler, len(m.hs))
	for i, h := range m.hs {
		out[i] = h.WithGroup(name)
	}
	return MultiHandler{hs: out}
}

// =============================================================================
// SETUP
// =============================================================================

// closers closes every sink in order, returning all errors.
type closers []io.Closer

func (c closers) Close() error {
	var errs []error
	for _, cl := range c {
		if err := cl.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// New builds a logger from cfg. Sinks that cannot be opened are reported on
// stderr and skipped; logging never prevents an authentication decision.
// The returned Closer releases file and syslog handles.
func New(cfg Config) (*slog.Logger, io.Closer) {
	var (
		handlers []slog.Handler
		toClose  closers
	)
	opts := &slog.HandlerOptions{Level: cfg.Level}

	if cfg.Syslog {
		h, c, err := newSyslogHandler(opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "authramp: syslog disabled: %v\n", err)
		} else {
			handlers = append(handlers, h)
			toClose = append(toClose, c)
		}
	}

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o750); err != nil {
			fmt.Fprintf(os.Stderr, "authramp: log file %q disabled: %v\n", cfg.File, err)
		} else {
			lj := &lumberjack.Logger{
				Filename:   cfg.File,
				MaxSize:    cfg.MaxSizeMB,
				MaxBackups: cfg.MaxBackups,
				Compress:   true,
			}
			handlers = append(handlers, formatHandler(lj, cfg.Format, opts))
			toClose = append(toClose, lj)
		}
	}

	if cfg.Stderr {
		handlers = append(handlers, formatHandler(os.Stderr, cfg.Format, opts))
	}

	if len(handlers) == 0 {
		return slog.New(slog.DiscardHandler), toClose
	}
	if len(handlers) == 1 {
		return slog.New(handlers[0]), toClose
	}
	return slog.New(NewMultiHandler(handlers...)), toClose
}

func formatHandler(w io.Writer, format string, opts *slog.HandlerOptions) slog.Handler {
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// Invocation returns a child logger tagged for one gate invocation.
func Invocation(logger *slog.Logger, service, hook string) *slog.Logger {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return logger.With(
		slog.String("module", "authramp"),
		slog.String("service", service),
		slog.String("hook", hook),
		slog.String("invocation", uuid.NewString()),
	)
}
