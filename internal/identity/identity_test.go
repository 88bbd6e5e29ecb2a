// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package identity

import (
	"errors"
	"os/user"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/authramp/internal/tally"
)

func fakeAccounts(accts map[string]string) LookupFunc {
	return func(name string) (*Account, error) {
		uid, ok := accts[name]
		if !ok {
			return nil, user.UnknownUserError(name)
		}
		return &Account{Name: name, UID: uid}, nil
	}
}

func TestResolve(t *testing.T) {
	r := NewResolverWithLookup(fakeAccounts(map[string]string{
		"root":  "0",
		"alice": "1000",
	}))

	p, err := r.Resolve("alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Name)
	assert.Equal(t, uint32(1000), p.UID)
	assert.False(t, p.IsRoot())

	p, err = r.Resolve("root")
	require.NoError(t, err)
	assert.True(t, p.IsRoot())
}

func TestResolveTrimsAndNormalizes(t *testing.T) {
	var seen string
	r := NewResolverWithLookup(func(name string) (*Account, error) {
		seen = name
		return &Account{Name: name, UID: "1001"}, nil
	})

	// "u" + combining diaeresis composes to a single code point.
	_, err := r.Resolve("  ju\u0308rgen ")
	require.NoError(t, err)
	assert.Equal(t, "j\u00fcrgen", seen)
}

func TestResolveUnknown(t *testing.T) {
	r := NewResolverWithLookup(fakeAccounts(nil))

	_, err := r.Resolve("mallory")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownPrincipal)

	var unknown user.UnknownUserError
	assert.True(t, errors.As(err, &unknown))
}

func TestResolveRejectsUnsafeNames(t *testing.T) {
	called := false
	r := NewResolverWithLookup(func(name string) (*Account, error) {
		called = true
		return &Account{Name: name, UID: "1"}, nil
	})

	for _, name := range []string{"", "   ", "..", "../etc/passwd", "a/b", ".hidden"} {
		_, err := r.Resolve(name)
		assert.ErrorIs(t, err, ErrUnknownPrincipal, "name %q", name)
		assert.ErrorIs(t, err, tally.ErrInvalidPrincipal, "name %q", name)
	}
	assert.False(t, called, "lookup must not run for rejected names")
}

func TestResolveBadUID(t *testing.T) {
	r := NewResolverWithLookup(fakeAccounts(map[string]string{"svc": "S-1-5-18"}))
	_, err := r.Resolve("svc")
	assert.ErrorIs(t, err, ErrUnknownPrincipal)
}

func TestNewResolverWithNilLookup(t *testing.T) {
	r := NewResolverWithLookup(nil)
	require.NotNil(t, r.lookup)
}
