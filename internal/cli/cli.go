// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and shared handlers for authramp.
//
// CLI: Comprehensive help and examples for all commands
package cli

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdHelp Command = iota
	CmdGate
	CmdReset
	CmdStatus
	CmdList
	CmdLogin
	CmdMetrics
	CmdConfig
	CmdDoctor
	CmdVersion
	CmdUnknown
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet      bool
	Verbose    bool
	JSON       bool   // Output in JSON format
	ConfigPath string // --config PATH

	// Name is the command word as typed, kept for error messages.
	Name string

	// Subcommand is the first positional argument after the command.
	Subcommand string

	// Raw args (remaining after global flag parsing and the command word)
	Raw []string
}

const usageText = `authramp - account lockout with ramping delays

Authramp counts consecutive authentication failures per user and locks the
account for a delay that grows with each failure past the free tries:

  delay = ramp_multiplier * (n - free_tries) * ln(n - free_tries) + base_delay_seconds

capped at 24 hours. A locked attempt waits out the delay with a countdown.

Usage:
  authramp gate <action> --user NAME   Run one gate decision
  authramp reset --user NAME           Remove a user's tally (root only)
  authramp status --user NAME          Show a user's tally
  authramp list [--locked]             Show all tallies
  authramp login --user NAME           Interactive login through the gate
  authramp metrics [--output FILE]     Write Prometheus metrics
  authramp config                      Show the effective configuration
  authramp doctor                      Check the tally dir and settings
  authramp version                     Show version information
  authramp help                        Show this help

Gate Actions:
  preauth     Check the lock before credentials are asked for
  authfail    Record a failed authentication
  authsucc    Clear the tally after a successful authentication
    --user NAME                 User being authenticated (required)
    --service NAME              Calling service, for logs (default: authramp)
    --hook auth|account         Entry point (default: auth)

  Exit codes: 0 admit, 4 deny, 6 system error, 7 unknown user

Reset Flags:
    --force                     Allow non-root callers (tally dirs they own)

Global Flags:
  --config PATH   Configuration file (default: /etc/security/authramp.conf)
  -q, --quiet     Minimal output
  -v, --verbose   Debug logging to stderr
  --json          Output in JSON format

Examples:
  authramp gate preauth --user alice --service sshd
  authramp gate authfail --user alice
  authramp status --user alice --json
  authramp list --locked
  authramp reset --user alice
  authramp metrics --output /var/lib/node_exporter/authramp.prom

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "authramp version %s\n", Version)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Build date: %s\n", BuildDate)
}

// Parse parses os.Args and returns the command and args.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses argv (without the program name).
func ParseArgs(argv []string) (Command, Args) {
	// Parse global flags first
	remaining, parsedArgs := parseGlobalFlags(argv)

	if len(remaining) == 0 {
		return CmdHelp, parsedArgs
	}

	// Check first argument for command
	cmd := strings.ToLower(remaining[0])
	parsedArgs.Name = cmd
	remaining = remaining[1:]
	parsedArgs.Raw = remaining
	if len(remaining) > 0 && !strings.HasPrefix(remaining[0], "-") {
		parsedArgs.Subcommand = remaining[0]
	}

	switch cmd {
	case "gate":
		return CmdGate, parsedArgs
	case "reset":
		return CmdReset, parsedArgs
	case "status", "s":
		return CmdStatus, parsedArgs
	case "list", "ls":
		return CmdList, parsedArgs
	case "login":
		return CmdLogin, parsedArgs
	case "metrics":
		return CmdMetrics, parsedArgs
	case "config":
		return CmdConfig, parsedArgs
	case "doctor", "diag":
		return CmdDoctor, parsedArgs
	case "version", "--version":
		return CmdVersion, parsedArgs
	case "help", "-h", "--help":
		return CmdHelp, parsedArgs
	default:
		return CmdUnknown, parsedArgs
	}
}

// parseGlobalFlags extracts global flags from args and returns remaining args.
// Global flags are recognized anywhere on the command line.
func parseGlobalFlags(args []string) ([]string, Args) {
	var parsed Args
	remaining := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "-q" || arg == "--quiet":
			parsed.Quiet = true
		case arg == "-v" || arg == "--verbose":
			parsed.Verbose = true
		case arg == "--json":
			parsed.JSON = true
		case arg == "--config" && i+1 < len(args):
			parsed.ConfigPath = args[i+1]
			i++
		case strings.HasPrefix(arg, "--config="):
			parsed.ConfigPath = strings.TrimPrefix(arg, "--config=")
		default:
			remaining = append(remaining, arg)
		}
	}
	return remaining, parsed
}

// =============================================================================
// COMMAND HANDLERS
// =============================================================================

// HandleVersion handles the "version" command with JSON output support.
func HandleVersion(w io.Writer, args Args) error {
	if args.JSON {
		data := VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
		}
		return NewJSONResponse("version", data).Write(w)
	}
	PrintVersion(w)
	return nil
}

// HandleHelp handles the "help" command.
func HandleHelp(w io.Writer) {
	PrintUsage(w)
}

// ErrUnknownCommand builds the error for an unrecognized command word.
func ErrUnknownCommand(args Args) error {
	return NewValidationErrorWithExample("command", args.Name, "unknown command", "authramp help")
}

// TrustsEnvironment reports whether AUTHRAMP_LOG_* variables may adjust
// logging for cmd. gate and login run under the PAM stack of setuid
// programs, so they never do; other commands only when the caller is an
// unprivileged user running without elevated rights.
func TrustsEnvironment(cmd Command, uid, euid int) bool {
	switch cmd {
	case CmdGate, CmdLogin:
		return false
	}
	return uid == euid && uid > 0
}
