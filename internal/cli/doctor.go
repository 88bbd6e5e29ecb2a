// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// doctor.go - Doctor command implementation for authramp.
//
// Command: doctor
// Short:   Check that the lockout gate can run on this host
// Aliases: diag
//
// Health Checks Performed:
//   1. Config          - Config file parsed, no keys fell back to defaults
//   2. Tally Dir       - Directory is owned by root or the caller, not group/world writable
//   3. Tallies         - Every tally file decodes
//   4. Delay Policy    - Base delay and ramp actually slow an attacker down
//   5. Root Policy     - Whether root is exempt from lockout
//   6. Credentials     - Credentials file for "authramp login" (optional)
//   7. Log File        - log_file is private to its owner (optional)
//
// Examples:
//   authramp doctor
//   authramp doctor --json
//
// Exit Codes:
//   0   No check failed (warnings allowed)
//   1   One or more checks failed

package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"

	"github.com/jeranaias/authramp/internal/credential"
	"github.com/jeranaias/authramp/internal/tally"
)

// =============================================================================
// HEALTH CHECK TYPES
// =============================================================================

// CheckStatus represents the status of a health check.
type CheckStatus int

const (
	// CheckPass indicates the check passed successfully.
	CheckPass CheckStatus = iota
	// CheckWarn indicates the check passed with warnings.
	CheckWarn
	// CheckFail indicates the check failed.
	CheckFail
)

// String returns the lower-case name used in JSON output.
func (s CheckStatus) String() string {
	switch s {
	case CheckPass:
		return "pass"
	case CheckWarn:
		return "warn"
	case CheckFail:
		return "fail"
	default:
		return "unknown"
	}
}

func (s CheckStatus) symbol() string {
	switch s {
	case CheckPass:
		return RenderStatus("ok")
	case CheckWarn:
		return RenderStatus("warning")
	default:
		return RenderStatus("error")
	}
}

var fixStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("245")).
	Italic(true).
	PaddingLeft(2)

// HealthCheck represents a single health check result.
type HealthCheck struct {
	Name    string
	Status  CheckStatus
	Message string
	Fix     string // what the operator should do, empty on pass
}

func (c *HealthCheck) render() string {
	out := fmt.Sprintf("%s %s %s", c.Status.symbol(), RenderLabel(c.Name), ValueStyle.Render(c.Message))
	if c.Status != CheckPass && c.Fix != "" {
		out += "\n" + fixStyle.Render("-> "+c.Fix)
	}
	return out
}

// =============================================================================
// HANDLE DOCTOR
// =============================================================================

// HandleDoctor handles the "doctor" command.
func HandleDoctor(env *Env, args Args) error {
	checks := runChecks(env)
	failed := lo.CountBy(checks, func(c *HealthCheck) bool { return c.Status == CheckFail })
	warned := lo.CountBy(checks, func(c *HealthCheck) bool { return c.Status == CheckWarn })

	var result error
	if failed > 0 {
		result = fmt.Errorf("%d health check(s) failed", failed)
	}

	if args.JSON {
		data := DoctorData{
			Checks: lo.Map(checks, func(c *HealthCheck, _ int) DoctorCheck {
				return DoctorCheck{Name: c.Name, Status: c.Status.String(), Message: c.Message, Fix: c.Fix}
			}),
			Passed:  len(checks) - failed - warned,
			Warned:  warned,
			Failed:  failed,
			Healthy: failed == 0,
		}
		resp := NewJSONResponse("doctor", data)
		if result != nil {
			resp = NewJSONErrorResponse("doctor", data, result)
		}
		if err := resp.Write(env.Out); err != nil {
			return err
		}
		return markReported(result)
	}

	w := env.Out
	fmt.Fprintln(w)
	fmt.Fprintln(w, TitleStyle.Render("authramp Doctor"))
	fmt.Fprintln(w, RenderSeparator())
	for _, c := range checks {
		fmt.Fprintln(w, c.render())
	}
	fmt.Fprintln(w)

	summary := []string{fmt.Sprintf("%d passed", len(checks)-failed-warned)}
	if warned > 0 {
		summary = append(summary, WarningStyle.Render(fmt.Sprintf("%d warning", warned)))
	}
	if failed > 0 {
		summary = append(summary, ErrorStyle.Render(fmt.Sprintf("%d failed", failed)))
	}
	fmt.Fprintln(w, DimStyle.Render(strings.Join(summary, ", ")))
	fmt.Fprintln(w)
	return markReported(result)
}

// =============================================================================
// HEALTH CHECK FUNCTIONS
// =============================================================================

func runChecks(env *Env) []*HealthCheck {
	return []*HealthCheck{
		checkConfig(env),
		checkTallyDir(env),
		checkTallies(env),
		checkDelayPolicy(env),
		checkRootPolicy(env),
		checkCredentials(env),
		checkLogFile(env),
	}
}

func checkConfig(env *Env) *HealthCheck {
	c := &HealthCheck{Name: "Config"}
	cfg := env.Config
	switch {
	case len(cfg.Warnings) > 0:
		c.Status = CheckWarn
		c.Message = fmt.Sprintf("%d key(s) ignored: %s", len(cfg.Warnings), strings.Join(cfg.Warnings, "; "))
		c.Fix = "Correct the listed keys in " + lo.Ternary(cfg.Path != "", cfg.Path, "the config file")
	case cfg.Path == "":
		c.Message = "No config file, using built-in defaults"
	default:
		c.Message = "Loaded " + cfg.Path
	}
	return c
}

func checkTallyDir(env *Env) *HealthCheck {
	c := &HealthCheck{Name: "Tally Dir"}
	dir := env.Config.TallyDir

	info, err := os.Lstat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		c.Message = dir + " does not exist yet, created on first failure"
		return c
	}
	if err != nil {
		c.Status = CheckFail
		c.Message = err.Error()
		return c
	}
	if !info.IsDir() {
		c.Status = CheckFail
		c.Message = dir + " is not a directory"
		c.Fix = "Remove it or point tally_dir elsewhere"
		return c
	}

	// List runs the same ownership and mode check as every gate call.
	if _, err := env.store().List(); errors.Is(err, tally.ErrInsecureDir) {
		c.Status = CheckFail
		c.Message = err.Error()
		c.Fix = fmt.Sprintf("Run: chown root:root %s && chmod 700 %s", dir, dir)
		return c
	}
	c.Message = dir + " is private"
	return c
}

func checkTallies(env *Env) *HealthCheck {
	c := &HealthCheck{Name: "Tallies"}
	entries, err := env.store().List()
	if err != nil {
		c.Status = CheckFail
		c.Message = "cannot list tallies: " + err.Error()
		return c
	}

	bad := lo.Filter(entries, func(e tally.Entry, _ int) bool { return e.Err != nil })
	if len(bad) > 0 {
		names := lo.Map(bad, func(e tally.Entry, _ int) string { return e.Principal })
		c.Status = CheckWarn
		c.Message = fmt.Sprintf("%d unreadable: %s (these users are denied)", len(bad), strings.Join(names, ", "))
		c.Fix = "Inspect the files, then run: authramp reset --user NAME"
		return c
	}

	now := env.Now()
	locked := lo.CountBy(entries, func(e tally.Entry) bool {
		return e.Record.UnlockInstant != nil && now.Before(*e.Record.UnlockInstant)
	})
	c.Message = fmt.Sprintf("%d tally(ies), %d locked", len(entries), locked)
	return c
}

func checkDelayPolicy(env *Env) *HealthCheck {
	c := &HealthCheck{Name: "Delay Policy"}
	settings := env.Config.Ramp()
	first, err := settings.CappedDelay(settings.FreeTries + 1)
	if err != nil {
		c.Status = CheckFail
		c.Message = err.Error()
		return c
	}
	if first == 0 && settings.RampMultiplier == 0 {
		c.Status = CheckWarn
		c.Message = "base_delay_seconds and ramp_multiplier are both zero, failures never lock"
		c.Fix = "Set base_delay_seconds or ramp_multiplier above zero"
		return c
	}
	c.Message = fmt.Sprintf("lock after %d failure(s), first delay %s", settings.FreeTries+1, first)
	return c
}

func checkRootPolicy(env *Env) *HealthCheck {
	c := &HealthCheck{Name: "Root Policy"}
	if env.Config.EvenDenyRoot {
		c.Message = "root is locked like any other user"
		return c
	}
	c.Message = "root is exempt from lockout"
	return c
}

func checkCredentials(env *Env) *HealthCheck {
	c := &HealthCheck{Name: "Credentials"}
	path := env.Config.CredentialsFile
	if _, err := credential.LoadFile(path); err != nil {
		c.Status = CheckWarn
		c.Message = "login command unavailable: " + err.Error()
		c.Fix = "Only needed for authramp login"
		return c
	}
	c.Message = path + " parsed"
	return c
}

func checkLogFile(env *Env) *HealthCheck {
	c := &HealthCheck{Name: "Log File"}
	path := env.Config.LogFile
	if path == "" {
		c.Message = "not configured"
		return c
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		c.Message = path + " created on first write"
		return c
	}
	if err != nil {
		c.Status = CheckWarn
		c.Message = err.Error()
		return c
	}
	if info.Mode().Perm()&0o077 != 0 {
		c.Status = CheckWarn
		c.Message = fmt.Sprintf("%s has mode %s, user names are visible to others", path, info.Mode().Perm())
		c.Fix = "Run: chmod 600 " + path
		return c
	}
	c.Message = path
	return c
}
