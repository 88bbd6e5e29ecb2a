// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/authramp/internal/lockout"
	"github.com/jeranaias/authramp/internal/logging"
	"github.com/jeranaias/authramp/internal/ramp"
)

// =============================================================================
// CONFIG STRUCTURE
// =============================================================================

const (
	// DefaultPath is the system-wide configuration file.
	DefaultPath = "/etc/security/authramp.conf"

	// tableName is the TOML table holding all options.
	tableName = "Configuration"
)

// Config holds every recognized option.
type Config struct {
	// Lockout policy
	TallyDir         string  `json:"tally_dir"`
	FreeTries        int     `json:"free_tries"`
	BaseDelaySeconds int     `json:"base_delay_seconds"`
	RampMultiplier   int     `json:"ramp_multiplier"`
	EvenDenyRoot     bool    `json:"even_deny_root"`

	// Lockout presentation
	Countdown      bool `json:"countdown"`
	ReleaseOnReset bool `json:"release_on_reset"`

	// login command
	CredentialsFile string `json:"credentials_file"`

	// Logging
	LogLevel string `json:"log_level"`
	LogFile  string `json:"log_file"`
	Syslog   bool   `json:"syslog"`

	// Path is the file the configuration was read from, empty for defaults.
	Path string `json:"path,omitempty"`

	// Warnings lists keys that were ignored or replaced by their default.
	Warnings []string `json:"warnings,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		TallyDir:         "/var/run/authramp",
		FreeTries:        6,
		BaseDelaySeconds: 30,
		RampMultiplier:   50,
		EvenDenyRoot:     false,
		Countdown:        true,
		ReleaseOnReset:   false,
		CredentialsFile:  "/etc/security/authramp.credentials",
		LogLevel:         "info",
		LogFile:          "",
		Syslog:           true,
	}
}

// Ramp returns the delay formula coefficients.
func (c *Config) Ramp() ramp.Settings {
	return ramp.Settings{
		FreeTries:        c.FreeTries,
		BaseDelaySeconds: c.BaseDelaySeconds,
		RampMultiplier:   c.RampMultiplier,
	}
}

// Lockout returns the engine policy.
func (c *Config) Lockout() lockout.Settings {
	return lockout.Settings{Ramp: c.Ramp(), EvenDenyRoot: c.EvenDenyRoot}
}

// Logging returns the logger settings.
func (c *Config) Logging() logging.Config {
	lc := logging.DefaultConfig()
	lc.Level = logging.ParseLevel(c.LogLevel)
	lc.File = c.LogFile
	lc.Syslog = c.Syslog
	return lc
}

func (c *Config) warnf(format string, args ...any) {
	c.Warnings = append(c.Warnings, fmt.Sprintf(format, args...))
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// LoadError reports a configuration file that exists but could not be read
// or decoded.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load config %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ResolvePath returns path if non-empty, otherwise DefaultPath. The
// environment is never consulted: the gate runs inside the PAM stack of
// setuid programs and must not let the caller pick its policy.
func ResolvePath(path string) string {
	if path != "" {
		return path
	}
	return DefaultPath
}

// Load reads the configuration file at path (see ResolvePath).
//
// Load always returns a usable Config. The error is informational: it is a
// *LoadError when the file existed but could not be read or parsed, in which
// case the returned Config holds defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	path = ResolvePath(path)

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		cfg, perr := Parse(data)
		if perr != nil {
			return Default(), &LoadError{Path: path, Err: perr}
		}
		cfg.Path = path
		return cfg, nil
	case errors.Is(err, fs.ErrNotExist):
		return Default(), nil
	default:
		return Default(), &LoadError{Path: path, Err: err}
	}
}

// Parse decodes a configuration document. Unknown keys and values of the
// wrong type are recorded in Warnings and replaced by their defaults. Only a
// document that is not valid TOML is an error.
func Parse(data []byte) (*Config, error) {
	var doc map[string]any
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode TOML: %w", err)
	}

	cfg := Default()
	raw, ok := doc[tableName]
	if !ok {
		cfg.warnf("missing [%s] table, using defaults", tableName)
		return cfg, nil
	}
	table, ok := raw.(map[string]any)
	if !ok {
		cfg.warnf("%s is not a table, using defaults", tableName)
		return cfg, nil
	}

	f := fields{cfg: cfg, table: table}
	cfg.TallyDir = f.str("tally_dir", cfg.TallyDir)
	cfg.FreeTries = f.nonNegInt("free_tries", cfg.FreeTries)
	cfg.BaseDelaySeconds = f.nonNegInt("base_delay_seconds", cfg.BaseDelaySeconds)
	cfg.RampMultiplier = f.truncInt("ramp_multiplier", cfg.RampMultiplier)
	cfg.EvenDenyRoot = f.boolean("even_deny_root", cfg.EvenDenyRoot)
	cfg.Countdown = f.boolean("countdown", cfg.Countdown)
	cfg.ReleaseOnReset = f.boolean("release_on_reset", cfg.ReleaseOnReset)
	cfg.CredentialsFile = f.str("credentials_file", cfg.CredentialsFile)
	cfg.LogLevel = f.str("log_level", cfg.LogLevel)
	cfg.LogFile = f.optionalStr("log_file", cfg.LogFile)
	cfg.Syslog = f.boolean("syslog", cfg.Syslog)
	f.reportUnknown()

	return cfg, nil
}

// =============================================================================
// FIELD EXTRACTION
// =============================================================================

// fields pulls typed values out of the decoded table, falling back to the
// supplied default and recording a warning on any mismatch.
type fields struct {
	cfg   *Config
	table map[string]any
	seen  []string
}

func (f *fields) lookup(key string) (any, bool) {
	f.seen = append(f.seen, key)
	v, ok := f.table[key]
	return v, ok
}

func (f *fields) str(key, def string) string {
	v, ok := f.lookup(key)
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		f.cfg.warnf("%s: expected a non-empty string, using default %q", key, def)
		return def
	}
	return s
}

// optionalStr accepts an empty string as a deliberate value.
func (f *fields) optionalStr(key, def string) string {
	v, ok := f.lookup(key)
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		f.cfg.warnf("%s: expected a string, using default %q", key, def)
		return def
	}
	return s
}

func (f *fields) nonNegInt(key string, def int) int {
	v, ok := f.lookup(key)
	if !ok {
		return def
	}
	var n int64
	switch x := v.(type) {
	case int64:
		n = x
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) {
			f.cfg.warnf("%s: expected an integer, using default %d", key, def)
			return def
		}
		n = int64(x)
	default:
		f.cfg.warnf("%s: expected an integer, using default %d", key, def)
		return def
	}
	if n < 0 || n > math.MaxInt32 {
		f.cfg.warnf("%s: %d out of range, using default %d", key, n, def)
		return def
	}
	return int(n)
}

// truncInt accepts an integer or a float, truncating the float toward zero.
func (f *fields) truncInt(key string, def int) int {
	v, ok := f.lookup(key)
	if !ok {
		return def
	}
	var x float64
	switch n := v.(type) {
	case int64:
		x = float64(n)
	case float64:
		x = math.Trunc(n)
	default:
		f.cfg.warnf("%s: expected a number, using default %d", key, def)
		return def
	}
	if x < 0 || x > math.MaxInt32 || math.IsNaN(x) {
		f.cfg.warnf("%s: %v out of range, using default %d", key, v, def)
		return def
	}
	return int(x)
}

func (f *fields) boolean(key string, def bool) bool {
	v, ok := f.lookup(key)
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		f.cfg.warnf("%s: expected true or false, using default %t", key, def)
		return def
	}
	return b
}

func (f *fields) reportUnknown() {
	known := make(map[string]bool, len(f.seen))
	for _, k := range f.seen {
		known[k] = true
	}
	var unknown []string
	for k := range f.table {
		if !known[k] {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)
	for _, k := range unknown {
		f.cfg.warnf("%s: unknown option ignored", k)
	}
}
