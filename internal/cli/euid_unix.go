// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build unix

package cli

import "golang.org/x/sys/unix"

func geteuid() int {
	return unix.Geteuid()
}
