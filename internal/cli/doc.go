// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and command handlers for
// authramp.
//
// # Key Types
//
//   - Command: Enumeration of all available CLI commands
//   - Args: Parsed command-line arguments with global flags
//   - Env: Configuration, logger and output streams shared by handlers
//
// # Usage
//
//	cmd, args := cli.Parse()
//	switch cmd {
//	case cli.CmdGate:
//	    err = cli.HandleGate(ctx, env, args)
//	// ... other commands
//	}
//
// # Commands Overview
//
//   - gate: Run one preauth/authfail/authsucc decision
//   - reset: Remove a user's tally
//   - status: Show one user's tally
//   - list: Show all tallies
//   - login: Interactive password login through the gate
//   - metrics: Prometheus textfile export
//   - config: Show the effective configuration
//   - doctor: Health checks for the tally directory and settings
//
// All commands support --json.
package cli
