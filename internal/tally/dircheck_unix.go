// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build unix

package tally

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// checkDir verifies that an existing tally directory is a real directory
// owned by the effective user (or root) and not writable by group or others.
// A missing directory passes; it is created later with mode 0700.
func checkDir(path string) error {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		if errors.Is(err, unix.ENOENT) {
			return nil
		}
		return fmt.Errorf("stat tally dir: %w", err)
	}

	if st.Mode&unix.S_IFMT != unix.S_IFDIR {
		return fmt.Errorf("%w: %s is not a directory", ErrInsecureDir, path)
	}
	euid := uint32(unix.Geteuid())
	if st.Uid != euid && st.Uid != 0 {
		return fmt.Errorf("%w: %s owned by uid %d", ErrInsecureDir, path, st.Uid)
	}
	if st.Mode&0o022 != 0 {
		return fmt.Errorf("%w: %s is group or world writable", ErrInsecureDir, path)
	}
	return nil
}
