// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// terminal.go - Terminal detection for authramp.
//
// The gate usually runs with stderr attached to a login terminal and stdout
// captured by its caller, so the two streams are checked separately:
// - Lock messages on stderr are styled only when stderr is a terminal
// - Command output on stdout follows NO_COLOR / CLICOLOR_FORCE
// - "login" refuses to prompt without a terminal on stdin

package cli

import (
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// IsTTY returns true if stdin is a terminal.
func IsTTY() bool {
	return isTerminal(os.Stdin)
}

// IsStderrTTY returns true if stderr is a terminal. Lock messages are sent
// plain otherwise so they survive being logged by the caller.
func IsStderrTTY() bool {
	return isTerminal(os.Stderr)
}

// colorProfile picks the stdout color profile. termenv honors NO_COLOR and
// CLICOLOR_FORCE and falls back to Ascii when stdout is not a terminal.
func colorProfile() termenv.Profile {
	return termenv.NewOutput(os.Stdout).EnvColorProfile()
}

// RequiresTTY returns an error if stdin is not a terminal.
func RequiresTTY(operation string) error {
	if !IsTTY() {
		return &TTYRequiredError{Operation: operation}
	}
	return nil
}

// TTYRequiredError is returned when an operation needs to prompt but stdin
// is not a terminal.
type TTYRequiredError struct {
	Operation string
}

func (e *TTYRequiredError) Error() string {
	return "stdin is not a terminal; cannot " + e.Operation + " interactively"
}
