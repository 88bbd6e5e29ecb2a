// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tally

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// ErrInvalidPrincipal is returned for names that cannot be used as a tally
// file name inside the storage root.
var ErrInvalidPrincipal = errors.New("invalid principal name")

// maxNameLen matches NAME_MAX on common filesystems.
const maxNameLen = 255

// ValidateName rejects principal names that could escape the storage root or
// alias another principal's file.
func ValidateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty", ErrInvalidPrincipal)
	case len(name) > maxNameLen:
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidPrincipal, maxNameLen)
	case !utf8.ValidString(name):
		return fmt.Errorf("%w: not valid UTF-8", ErrInvalidPrincipal)
	case strings.HasPrefix(name, "."):
		// Covers "." and ".." as well as the store's temp files.
		return fmt.Errorf("%w: leading dot", ErrInvalidPrincipal)
	case strings.ContainsAny(name, "/\\\x00"):
		return fmt.Errorf("%w: contains a path separator or NUL", ErrInvalidPrincipal)
	case !norm.NFC.IsNormalString(name):
		return fmt.Errorf("%w: not NFC normalized", ErrInvalidPrincipal)
	}
	return nil
}
