// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package identity maps a login name to the principal the lockout engine
// works with.
package identity

import (
	"errors"
	"fmt"
	"os/user"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/authramp/internal/lockout"
	"github.com/jeranaias/authramp/internal/tally"
)

// ErrUnknownPrincipal is returned when the account database has no entry
// for a name, or when the name cannot be used as a principal.
var ErrUnknownPrincipal = errors.New("unknown principal")

// Account is the part of an account database entry the resolver needs.
type Account struct {
	Name string
	UID  string
}

// LookupFunc finds an account by name. It must return an error wrapping
// user.UnknownUserError, or any error, when the name is absent.
type LookupFunc func(name string) (*Account, error)

// Resolver turns login names into principals.
type Resolver struct {
	lookup LookupFunc
}

// NewResolver returns a Resolver over the system account database.
func NewResolver() *Resolver {
	return &Resolver{lookup: systemLookup}
}

// NewResolverWithLookup returns a Resolver over a custom account source.
func NewResolverWithLookup(lookup LookupFunc) *Resolver {
	if lookup == nil {
		lookup = systemLookup
	}
	return &Resolver{lookup: lookup}
}

// Resolve normalizes name and looks it up. Surrounding whitespace is
// trimmed and the name is converted to NFC so visually identical names
// share one tally.
func (r *Resolver) Resolve(name string) (lockout.Principal, error) {
	name = Normalize(name)
	if err := tally.ValidateName(name); err != nil {
		return lockout.Principal{}, fmt.Errorf("%w: %w", ErrUnknownPrincipal, err)
	}

	acct, err := r.lookup(name)
	if err != nil {
		return lockout.Principal{}, fmt.Errorf("%w: %q: %w", ErrUnknownPrincipal, name, err)
	}

	uid, err := strconv.ParseUint(acct.UID, 10, 32)
	if err != nil {
		return lockout.Principal{}, fmt.Errorf("%w: %q has non-numeric uid %q", ErrUnknownPrincipal, name, acct.UID)
	}
	return lockout.Principal{Name: acct.Name, UID: uint32(uid)}, nil
}

// Normalize trims name and converts it to NFC.
func Normalize(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

func systemLookup(name string) (*Account, error) {
	u, err := user.Lookup(name)
	if err != nil {
		return nil, err
	}
	return &Account{Name: u.Username, UID: u.Uid}, nil
}
