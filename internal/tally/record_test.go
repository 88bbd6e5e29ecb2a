// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tally

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 1, 10, 0, 0, 123456789, time.UTC)

func TestMarshal_Layout(t *testing.T) {
	unlock := t0.Add(30 * time.Second)
	data, err := Marshal(Record{Count: 7, Instant: t0, UnlockInstant: &unlock})
	require.NoError(t, err)

	text := string(data)
	assert.True(t, strings.HasPrefix(text, "[Fails]\n"), text)
	assert.Contains(t, text, "count = 7\n")
	assert.Contains(t, text, `instant = "2024-05-01T10:00:00.123456789Z"`)
	assert.Contains(t, text, `unlock_instant = "2024-05-01T10:00:30.123456789Z"`)
}

func TestMarshal_OmitsUnlockWhenAbsent(t *testing.T) {
	data, err := Marshal(Record{Count: 2, Instant: t0})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "unlock_instant")
}

func TestMarshal_RejectsInvalid(t *testing.T) {
	unlock := t0
	_, err := Marshal(Record{Count: 0, Instant: t0, UnlockInstant: &unlock})
	require.ErrorIs(t, err, ErrMalformed)

	_, err = Marshal(Record{Count: -1, Instant: t0})
	require.ErrorIs(t, err, ErrMalformed)
}

func TestRoundTrip(t *testing.T) {
	unlock := t0.Add(99 * time.Second)
	records := []Record{
		NewRecord(t0),
		{Count: 3, Instant: t0},
		{Count: 8, Instant: t0, UnlockInstant: &unlock},
		{Count: 0},
	}

	for _, want := range records {
		data, err := Marshal(want)
		require.NoError(t, err)

		got, err := Unmarshal(data)
		require.NoError(t, err)
		assert.True(t, want.Equal(got), "round trip of %+v produced %+v", want, got)
	}
}

func TestUnmarshal_LegacyTimestampLayout(t *testing.T) {
	data := []byte("[Fails]\ncount = 8\ninstant = \"2024-05-01 10:00:00 UTC\"\nunlock_instant = \"2024-05-01 10:01:39.5 UTC\"\n")

	r, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, 8, r.Count)
	assert.True(t, r.Instant.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)))
	require.NotNil(t, r.UnlockInstant)
	assert.True(t, r.UnlockInstant.Equal(time.Date(2024, 5, 1, 10, 1, 39, 500000000, time.UTC)))
}

func TestUnmarshal_CountOnly(t *testing.T) {
	r, err := Unmarshal([]byte("[Fails]\ncount = 0\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, r.Count)
	assert.True(t, r.Instant.IsZero())
	assert.False(t, r.Locked())
}

func TestUnmarshal_IgnoresUnknownKeys(t *testing.T) {
	r, err := Unmarshal([]byte("[Fails]\ncount = 1\ninstant = \"2024-05-01T10:00:00Z\"\nnote = \"x\"\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, r.Count)
}

func TestUnmarshal_Malformed(t *testing.T) {
	tests := map[string]string{
		"empty":              "",
		"not toml":           "{{{",
		"missing table":      "count = 1\n",
		"missing count":      "[Fails]\ninstant = \"2024-05-01T10:00:00Z\"\n",
		"string count":       "[Fails]\ncount = \"three\"\n",
		"negative count":     "[Fails]\ncount = -2\ninstant = \"2024-05-01T10:00:00Z\"\n",
		"bad instant":        "[Fails]\ncount = 1\ninstant = \"yesterday\"\n",
		"bad unlock":         "[Fails]\ncount = 9\ninstant = \"2024-05-01T10:00:00Z\"\nunlock_instant = \"soon\"\n",
		"count without time": "[Fails]\ncount = 4\n",
		"unlock before fail": "[Fails]\ncount = 9\ninstant = \"2024-05-01T10:00:00Z\"\nunlock_instant = \"2024-05-01T09:00:00Z\"\n",
		"unlock at zero":     "[Fails]\ncount = 0\ninstant = \"2024-05-01T10:00:00Z\"\nunlock_instant = \"2024-05-01T11:00:00Z\"\n",
	}

	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Unmarshal([]byte(input))
			require.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestValidateName(t *testing.T) {
	valid := []string{"alice", "bob.smith", "user-01", "m\u00fcller", "DOMAIN+user"}
	for _, name := range valid {
		assert.NoError(t, ValidateName(name), name)
	}

	invalid := []string{
		"",
		".",
		"..",
		".hidden",
		"../etc/passwd",
		"a/b",
		`a\b`,
		"nul\x00byte",
		"\xff\xfe",
		"mu\u0308ller", // decomposed umlaut
		strings.Repeat("a", 256),
	}
	for _, name := range invalid {
		assert.ErrorIs(t, ValidateName(name), ErrInvalidPrincipal, "%q", name)
	}
}
