// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads the authramp configuration file.
//
// The file is TOML with a single [Configuration] table. Loading favors
// availability over strictness: a missing or unparsable file yields the
// built-in defaults, and each key that is absent or has the wrong type
// falls back to its own default independently.
//
// # Configuration Precedence
//
// Configuration is resolved from (in order of precedence):
//   - /etc/security/authramp.conf (or --config)
//   - Built-in defaults
//
// Environment variables never change the lockout policy.
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    logger.Warn("using default configuration", "error", err)
//	}
//	for _, w := range cfg.Warnings {
//	    logger.Warn("config", "warning", w)
//	}
//	settings := cfg.Ramp()
package config
