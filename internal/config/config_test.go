// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "authramp.conf")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "/var/run/authramp", cfg.TallyDir)
	assert.Equal(t, 6, cfg.FreeTries)
	assert.Equal(t, 30, cfg.BaseDelaySeconds)
	assert.Equal(t, 50, cfg.RampMultiplier)
	assert.False(t, cfg.EvenDenyRoot)
	assert.True(t, cfg.Countdown)

	r := cfg.Ramp()
	assert.Equal(t, 6, r.FreeTries)
	assert.Equal(t, 30, r.BaseDelaySeconds)
	assert.Equal(t, 50, r.RampMultiplier)
}

func TestLoad_FullFile(t *testing.T) {
	path := writeConfig(t, `
[Configuration]
tally_dir = "/tmp/tallies"
free_tries = 3
base_delay_seconds = 10
ramp_multiplier = 20
even_deny_root = true
countdown = false
release_on_reset = true
log_level = "debug"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.Path)
	assert.Equal(t, "/tmp/tallies", cfg.TallyDir)
	assert.Equal(t, 3, cfg.FreeTries)
	assert.Equal(t, 10, cfg.BaseDelaySeconds)
	assert.Equal(t, 20, cfg.RampMultiplier)
	assert.True(t, cfg.EvenDenyRoot)
	assert.False(t, cfg.Countdown)
	assert.True(t, cfg.ReleaseOnReset)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Empty(t, cfg.Warnings)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.conf"))
	require.NoError(t, err)
	assert.Equal(t, Default().TallyDir, cfg.TallyDir)
	assert.Empty(t, cfg.Path)
}

func TestLoad_UnparsableFileUsesDefaults(t *testing.T) {
	path := writeConfig(t, "[Configuration\nfree_tries = ")

	cfg, err := Load(path)
	require.Error(t, err, "parse failure is reported for logging")
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, path, loadErr.Path)
	require.NotNil(t, cfg)
	assert.Equal(t, 6, cfg.FreeTries)
	assert.Empty(t, cfg.Path)
}

func TestParse_PerFieldFallback(t *testing.T) {
	cfg, err := Parse([]byte(`
[Configuration]
free_tries = -1
base_delay_seconds = "thirty"
ramp_multiplier = 12.5
even_deny_root = "yes"
tally_dir = ""
colour = "blue"
`))
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.FreeTries)
	assert.Equal(t, 30, cfg.BaseDelaySeconds)
	assert.Equal(t, 12, cfg.RampMultiplier)
	assert.False(t, cfg.EvenDenyRoot)
	assert.Equal(t, "/var/run/authramp", cfg.TallyDir)
	assert.Len(t, cfg.Warnings, 5)
	assert.Contains(t, cfg.Warnings[len(cfg.Warnings)-1], "colour")
}

func TestParse_IntegralFloatAccepted(t *testing.T) {
	cfg, err := Parse([]byte("[Configuration]\nfree_tries = 4.0\nbase_delay_seconds = 2.5\n"))
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.FreeTries)
	assert.Equal(t, 30, cfg.BaseDelaySeconds)
	assert.Len(t, cfg.Warnings, 1)
}

func TestParse_MissingTable(t *testing.T) {
	cfg, err := Parse([]byte("free_tries = 1\n"))
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.FreeTries)
	require.Len(t, cfg.Warnings, 1)
	assert.Contains(t, cfg.Warnings[0], "missing [Configuration]")
}

func TestParse_RampMultiplierTruncates(t *testing.T) {
	cfg, err := Parse([]byte("[Configuration]\nramp_multiplier = 1.5\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.RampMultiplier)
	assert.Empty(t, cfg.Warnings)

	d, err := cfg.Ramp().Delay(8)
	require.NoError(t, err)
	assert.Equal(t, 31*time.Second, d)
}

func TestParse_RampMultiplierRejected(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"negative", "ramp_multiplier = -3"},
		{"too large", "ramp_multiplier = 1e12"},
		{"nan", "ramp_multiplier = nan"},
		{"string", `ramp_multiplier = "fifty"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte("[Configuration]\n" + tt.body + "\n"))
			require.NoError(t, err)
			assert.Equal(t, 50, cfg.RampMultiplier)
			require.Len(t, cfg.Warnings, 1)
			assert.Contains(t, cfg.Warnings[0], "ramp_multiplier")
		})
	}
}

func TestLoad_IgnoresEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("AUTHRAMP_CONFIG", writeConfig(t, "[Configuration]\nfree_tries = 100\n"))
	t.Setenv("AUTHRAMP_TALLY_DIR", filepath.Join(dir, "elsewhere"))
	t.Setenv("AUTHRAMP_FREE_TRIES", "2147483647")
	t.Setenv("AUTHRAMP_BASE_DELAY", "0")
	t.Setenv("AUTHRAMP_RAMP_MULTIPLIER", "0")
	t.Setenv("AUTHRAMP_EVEN_DENY_ROOT", "0")
	t.Setenv("AUTHRAMP_LOG_FILE", filepath.Join(dir, "log"))

	path := writeConfig(t, "[Configuration]\neven_deny_root = true\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/run/authramp", cfg.TallyDir)
	assert.Equal(t, 6, cfg.FreeTries)
	assert.Equal(t, 30, cfg.BaseDelaySeconds)
	assert.Equal(t, 50, cfg.RampMultiplier)
	assert.True(t, cfg.EvenDenyRoot)
	assert.Empty(t, cfg.LogFile)

	assert.Equal(t, DefaultPath, ResolvePath(""), "AUTHRAMP_CONFIG does not move the file")
}

func TestResolvePath(t *testing.T) {
	assert.Equal(t, DefaultPath, ResolvePath(""))
	assert.Equal(t, "/x.conf", ResolvePath("/x.conf"))
}

func TestProjections(t *testing.T) {
	cfg := Default()
	cfg.EvenDenyRoot = true
	cfg.LogLevel = "debug"
	cfg.LogFile = "/var/log/authramp.log"
	cfg.Syslog = false

	ls := cfg.Lockout()
	assert.True(t, ls.EvenDenyRoot)
	assert.Equal(t, 6, ls.Ramp.FreeTries)
	assert.Equal(t, 50, ls.Ramp.RampMultiplier)

	lc := cfg.Logging()
	assert.Equal(t, slog.LevelDebug, lc.Level)
	assert.Equal(t, "/var/log/authramp.log", lc.File)
	assert.False(t, lc.Syslog)
}
