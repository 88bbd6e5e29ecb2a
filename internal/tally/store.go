// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tally persists per-principal failure records.
//
// Each principal owns one TOML file named after it under the storage root.
// Access is whole-file read, in-memory transform, whole-file overwrite; there
// is no locking across processes, so concurrent writers for the same
// principal resolve as last writer wins. Every I/O or decode failure is
// returned as a *StoreError so callers can deny rather than guess.
package tally

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/authramp/internal/util"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotFound is returned by Load when the principal has no tally file.
	ErrNotFound = errors.New("tally not found")
	// ErrInsecureDir is returned when the storage root fails its ownership
	// or permission check.
	ErrInsecureDir = errors.New("insecure tally directory")
)

// StoreError wraps any failure to read, write, or remove a tally.
type StoreError struct {
	Op        string // "load", "persist", "reset", "list"
	Principal string
	Err       error
}

func (e *StoreError) Error() string {
	if e.Principal == "" {
		return fmt.Sprintf("tally %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("tally %s %q: %v", e.Op, e.Principal, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func storeErr(op, principal string, err error) error {
	return &StoreError{Op: op, Principal: principal, Err: err}
}

// =============================================================================
// STORE
// =============================================================================

const (
	filePerm os.FileMode = 0600
	dirPerm  os.FileMode = 0700
)

// ResetResult is the outcome of a successful Reset.
type ResetResult int

const (
	// ResetDeleted means a tally file existed and was removed.
	ResetDeleted ResetResult = iota
	// ResetNotFound means there was nothing to remove.
	ResetNotFound
)

func (r ResetResult) String() string {
	switch r {
	case ResetDeleted:
		return "deleted"
	case ResetNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Entry is one tally returned by List. Err is set instead of Record when the
// file could not be decoded.
type Entry struct {
	Principal string
	Record    Record
	Err       error
}

// Store reads and writes tally files under a root directory.
type Store struct {
	root   string
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source used to stamp newly created records.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore returns a Store rooted at root. The directory is created lazily
// on the first write.
func NewStore(root string, opts ...Option) *Store {
	s := &Store{
		root:   root,
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the storage root directory.
func (s *Store) Root() string {
	return s.root
}

// Path returns the tally file path for principal after validating the name.
func (s *Store) Path(principal string) (string, error) {
	if err := ValidateName(principal); err != nil {
		return "", err
	}
	return filepath.Join(s.root, principal), nil
}

// Load reads the tally for principal. A missing file yields ErrNotFound
// wrapped in a *StoreError.
func (s *Store) Load(principal string) (Record, error) {
	path, err := s.Path(principal)
	if err != nil {
		return Record{}, storeErr("load", principal, err)
	}
	if err := checkDir(s.root); err != nil {
		return Record{}, storeErr("load", principal, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Record{}, storeErr("load", principal, ErrNotFound)
		}
		return Record{}, storeErr("load", principal, err)
	}

	r, err := Unmarshal(data)
	if err != nil {
		return Record{}, storeErr("load", principal, err)
	}
	return r, nil
}

// LoadOrCreate returns the tally for principal, writing a fresh zero-failure
// record first if none exists. A file that exists but cannot be read or
// decoded is an error; it is never replaced with defaults.
func (s *Store) LoadOrCreate(principal string) (Record, error) {
	r, err := s.Load(principal)
	if err == nil {
		return r, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Record{}, err
	}

	r = NewRecord(s.now())
	if err := s.Persist(principal, r); err != nil {
		return Record{}, err
	}
	s.logger.Debug("created tally", "principal", principal, "path", filepath.Join(s.root, principal))
	return r, nil
}

// Persist overwrites the tally for principal with r.
func (s *Store) Persist(principal string, r Record) error {
	path, err := s.Path(principal)
	if err != nil {
		return storeErr("persist", principal, err)
	}
	if err := checkDir(s.root); err != nil {
		return storeErr("persist", principal, err)
	}

	data, err := Marshal(r)
	if err != nil {
		return storeErr("persist", principal, err)
	}
	if err := util.AtomicWriteFile(path, data, filePerm, dirPerm); err != nil {
		return storeErr("persist", principal, err)
	}

	s.logger.Debug("persisted tally", "principal", principal, "count", r.Count, "locked", r.Locked())
	return nil
}

// Reset removes the tally for principal.
func (s *Store) Reset(principal string) (ResetResult, error) {
	path, err := s.Path(principal)
	if err != nil {
		return 0, storeErr("reset", principal, err)
	}
	if err := checkDir(s.root); err != nil {
		return 0, storeErr("reset", principal, err)
	}

	removed, err := util.RemoveFile(path)
	if err != nil {
		return 0, storeErr("reset", principal, err)
	}
	if !removed {
		return ResetNotFound, nil
	}
	s.logger.Debug("removed tally", "principal", principal)
	return ResetDeleted, nil
}

// List returns every tally under the root, sorted by principal. A missing
// root yields an empty list. Files that fail to decode are returned with
// Err set so one corrupt tally does not hide the rest.
func (s *Store) List() ([]Entry, error) {
	if err := checkDir(s.root); err != nil {
		return nil, storeErr("list", "", err)
	}

	dirEntries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, storeErr("list", "", err)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		r, err := s.Load(name)
		entries = append(entries, Entry{Principal: name, Record: r, Err: err})
	}
	return entries, nil
}
