// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tally

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// ErrMalformed is wrapped by every decode or validation failure.
var ErrMalformed = errors.New("malformed tally record")

// timeLayouts lists accepted timestamp encodings. The first entry is the one
// written. The second is the "2006-01-02 15:04:05 UTC" form found in tally
// files produced by older pam_authramp builds.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999 UTC",
}

// =============================================================================
// RECORD
// =============================================================================

// Record is the persisted failure state of one principal.
type Record struct {
	// Count is the number of consecutive failures since the last success.
	Count int
	// Instant is the time of the most recent failure, or of record creation.
	// It may be zero for a record that has never failed.
	Instant time.Time
	// UnlockInstant is set only while Count exceeds the free tries threshold.
	UnlockInstant *time.Time
}

// NewRecord returns a zero-failure record created at now.
func NewRecord(now time.Time) Record {
	return Record{Instant: now.UTC()}
}

// Locked reports whether the record carries an unlock instant.
func (r Record) Locked() bool {
	return r.UnlockInstant != nil
}

// Equal reports whether r and o describe the same state.
func (r Record) Equal(o Record) bool {
	if r.Count != o.Count || !r.Instant.Equal(o.Instant) {
		return false
	}
	if r.UnlockInstant == nil || o.UnlockInstant == nil {
		return r.UnlockInstant == nil && o.UnlockInstant == nil
	}
	return r.UnlockInstant.Equal(*o.UnlockInstant)
}

// Validate checks the record invariants that do not depend on configuration.
func (r Record) Validate() error {
	if r.Count < 0 {
		return fmt.Errorf("%w: negative count %d", ErrMalformed, r.Count)
	}
	if r.Count > 0 && r.Instant.IsZero() {
		return fmt.Errorf("%w: count %d without instant", ErrMalformed, r.Count)
	}
	if r.UnlockInstant != nil {
		if r.Count == 0 {
			return fmt.Errorf("%w: unlock_instant with zero count", ErrMalformed)
		}
		if r.UnlockInstant.Before(r.Instant) {
			return fmt.Errorf("%w: unlock_instant before instant", ErrMalformed)
		}
	}
	return nil
}

// =============================================================================
// TOML CODEC
// =============================================================================

// tallyFile mirrors the on-disk layout:
//
//	[Fails]
//	count = 3
//	instant = "2024-05-01T10:00:00Z"
//	unlock_instant = "2024-05-01T10:00:30Z"
type tallyFile struct {
	Fails *failsTable `toml:"Fails"`
}

type failsTable struct {
	Count         *int   `toml:"count"`
	Instant       string `toml:"instant,omitempty"`
	UnlockInstant string `toml:"unlock_instant,omitempty"`
}

// Marshal encodes r in the tally file format.
func Marshal(r Record) ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	count := r.Count
	table := &failsTable{Count: &count}
	if !r.Instant.IsZero() {
		table.Instant = r.Instant.UTC().Format(timeLayouts[0])
	}
	if r.UnlockInstant != nil {
		table.UnlockInstant = r.UnlockInstant.UTC().Format(timeLayouts[0])
	}

	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.Indent = ""
	if err := enc.Encode(tallyFile{Fails: table}); err != nil {
		return nil, fmt.Errorf("encode tally: %w", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a tally file. Any structural problem is reported as
// ErrMalformed; unknown keys are ignored.
func Unmarshal(data []byte) (Record, error) {
	var f tallyFile
	if _, err := toml.Decode(string(data), &f); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if f.Fails == nil {
		return Record{}, fmt.Errorf("%w: missing [Fails] table", ErrMalformed)
	}
	if f.Fails.Count == nil {
		return Record{}, fmt.Errorf("%w: missing count", ErrMalformed)
	}

	r := Record{Count: *f.Fails.Count}
	if f.Fails.Instant != "" {
		t, err := parseTime(f.Fails.Instant)
		if err != nil {
			return Record{}, fmt.Errorf("%w: instant: %v", ErrMalformed, err)
		}
		r.Instant = t
	}
	if f.Fails.UnlockInstant != "" {
		t, err := parseTime(f.Fails.UnlockInstant)
		if err != nil {
			return Record{}, fmt.Errorf("%w: unlock_instant: %v", ErrMalformed, err)
		}
		r.UnlockInstant = &t
	}

	if err := r.Validate(); err != nil {
		return Record{}, err
	}
	return r, nil
}

func parseTime(s string) (time.Time, error) {
	var firstErr error
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}
