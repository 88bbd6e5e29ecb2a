// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small file and string helpers shared by authramp packages.
//
// # Key Functions
//
// File Operations:
//   - AtomicWriteFile: crash-safe write (temp file, fsync, rename, dir fsync)
//   - RemoveFile: delete a file, reporting whether it existed
//
// Display Helpers:
//   - FitWidth: truncate or pad a string to an exact terminal column width
//
// # Usage
//
//	// Persist a tally without ever exposing a torn file
//	err := util.AtomicWriteFile(path, data, 0600, 0700)
//
//	// Align table cells that may contain wide characters
//	cell := util.FitWidth(name, 16)
package util
