// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package credential verifies passwords and one-time codes for the
// interactive login command.
//
// Credentials live in a TOML file with one table per user:
//
//	[users.alice]
//	password_hash = "$2a$10$..."
//	totp_secret = "JBSWY3DPEHPK3PXP"
//
// The TOTP secret is optional. Unknown users and wrong secrets produce the
// same error so callers cannot enumerate accounts.
package credential

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"
)

// ErrBadCredentials is returned for any failed verification.
var ErrBadCredentials = errors.New("bad credentials")

// dummyHash is compared against when the user is unknown so the response
// time does not reveal whether the account exists.
var dummyHash = []byte("$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z3ZkF0Z0ZLh8v5S3Gx/f5Wy.")

// Entry is one user's stored credentials.
type Entry struct {
	PasswordHash string `toml:"password_hash"`
	TOTPSecret   string `toml:"totp_secret"`
}

type credentialsFile struct {
	Users map[string]Entry `toml:"users"`
}

// Verifier checks credentials against a loaded file.
type Verifier struct {
	users map[string]Entry
}

// LoadFile reads the credentials file at path.
func LoadFile(path string) (*Verifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	return Parse(data)
}

// Parse decodes a credentials document. Entries without a password hash
// are rejected.
func Parse(data []byte) (*Verifier, error) {
	var f credentialsFile
	if _, err := toml.Decode(string(data), &f); err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	for name, e := range f.Users {
		if e.PasswordHash == "" {
			return nil, fmt.Errorf("parse credentials: user %q has no password_hash", name)
		}
		if _, err := bcrypt.Cost([]byte(e.PasswordHash)); err != nil {
			return nil, fmt.Errorf("parse credentials: user %q: %w", name, err)
		}
	}
	if f.Users == nil {
		f.Users = map[string]Entry{}
	}
	return &Verifier{users: f.Users}, nil
}

// UsesOTP reports whether any user in the file has a TOTP secret. Callers
// prompt for a code on that basis rather than per user, so the prompt
// sequence is the same for every account name.
func (v *Verifier) UsesOTP() bool {
	for _, e := range v.users {
		if e.TOTPSecret != "" {
			return true
		}
	}
	return false
}

// Verify checks password and, when the user has a TOTP secret, the
// one-time code.
func (v *Verifier) Verify(user, password, otp string) error {
	e, ok := v.users[user]
	if !ok {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(e.PasswordHash), []byte(password)); err != nil {
		return ErrBadCredentials
	}
	if e.TOTPSecret != "" && !totp.Validate(otp, e.TOTPSecret) {
		return ErrBadCredentials
	}
	return nil
}
