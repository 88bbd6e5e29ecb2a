// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - Config command implementation for authramp.
//
// Command: config
// Short:   Show the effective configuration
//
// Prints every option after file values and per-key defaults have been
// applied, followed by any warnings about keys that fell back to their
// default. Exits with the config error code when the file exists but could
// not be loaded.
//
// Examples:
//   authramp config
//   authramp config --json
//   authramp --config ./authramp.conf config

package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jeranaias/authramp/internal/ramp"
)

// HandleConfig handles the "config" command.
func HandleConfig(env *Env, args Args) error {
	cfg := env.Config
	if args.JSON {
		resp := NewJSONResponse("config", cfg)
		if env.ConfigErr != nil {
			resp = NewJSONErrorResponse("config", cfg, env.ConfigErr)
		}
		if err := resp.Write(env.Out); err != nil {
			return err
		}
		return markReported(env.ConfigErr)
	}

	w := env.Out
	source := cfg.Path
	if source == "" {
		source = "(built-in defaults)"
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, TitleStyle.Render("authramp Configuration"))
	fmt.Fprintln(w, RenderSeparator())
	fmt.Fprintf(w, "  %s%s\n", RenderLabel("Source:"), DimStyle.Render(source))

	fmt.Fprintln(w, SectionStyle.Render("Lockout"))
	printSetting(w, "tally_dir", cfg.TallyDir)
	printSetting(w, "free_tries", strconv.Itoa(cfg.FreeTries))
	printSetting(w, "base_delay_seconds", strconv.Itoa(cfg.BaseDelaySeconds))
	printSetting(w, "ramp_multiplier", strconv.Itoa(cfg.RampMultiplier))
	printSetting(w, "even_deny_root", strconv.FormatBool(cfg.EvenDenyRoot))
	printSetting(w, "countdown", strconv.FormatBool(cfg.Countdown))
	printSetting(w, "release_on_reset", strconv.FormatBool(cfg.ReleaseOnReset))

	fmt.Fprintln(w, SectionStyle.Render("Delays"))
	settings := cfg.Ramp()
	for _, n := range []int{1, 2, 5, 10} {
		count := settings.FreeTries + n
		d, err := settings.CappedDelay(count)
		if err != nil {
			continue
		}
		label := fmt.Sprintf("failure %d", count)
		value := d.String()
		if d == ramp.MaxDelay {
			value += " (cap)"
		}
		printSetting(w, label, value)
	}

	fmt.Fprintln(w, SectionStyle.Render("Logging"))
	printSetting(w, "log_level", cfg.LogLevel)
	logFile := cfg.LogFile
	if logFile == "" {
		logFile = "(none)"
	}
	printSetting(w, "log_file", logFile)
	printSetting(w, "syslog", strconv.FormatBool(cfg.Syslog))
	printSetting(w, "credentials_file", cfg.CredentialsFile)

	if len(cfg.Warnings) > 0 {
		fmt.Fprintln(w, SectionStyle.Render("Warnings"))
		for _, warn := range cfg.Warnings {
			fmt.Fprintf(w, "  %s %s\n", RenderStatus("warning"), warn)
		}
	}
	fmt.Fprintln(w)
	return env.ConfigErr
}

func printSetting(w io.Writer, key, value string) {
	fmt.Fprintf(w, "  %s%s\n", RenderLabel(key+":"), ValueStyle.Render(value))
}
