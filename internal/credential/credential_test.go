// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package credential

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "JBSWY3DPEHPK3PXP"

func hashFor(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func testVerifier(t *testing.T) *Verifier {
	t.Helper()
	doc := fmt.Sprintf(`
[users.alice]
password_hash = %q

[users.bob]
password_hash = %q
totp_secret = %q
`, hashFor(t, "correct horse"), hashFor(t, "battery staple"), testSecret)

	v, err := Parse([]byte(doc))
	require.NoError(t, err)
	return v
}

func TestVerifyPassword(t *testing.T) {
	v := testVerifier(t)

	assert.NoError(t, v.Verify("alice", "correct horse", ""))
	assert.ErrorIs(t, v.Verify("alice", "wrong", ""), ErrBadCredentials)
	assert.ErrorIs(t, v.Verify("alice", "", ""), ErrBadCredentials)
}

func TestVerifyUnknownUser(t *testing.T) {
	v := testVerifier(t)
	assert.ErrorIs(t, v.Verify("mallory", "correct horse", ""), ErrBadCredentials)
}

func TestUsesOTP(t *testing.T) {
	assert.True(t, testVerifier(t).UsesOTP())

	v, err := Parse([]byte(fmt.Sprintf("[users.alice]\npassword_hash = %q\n", hashFor(t, "pw"))))
	require.NoError(t, err)
	assert.False(t, v.UsesOTP())
}

func TestVerifyIgnoresCodeWithoutSecret(t *testing.T) {
	v := testVerifier(t)
	assert.NoError(t, v.Verify("alice", "correct horse", "123456"))
}

func TestVerifyTOTP(t *testing.T) {
	v := testVerifier(t)
	code, err := totp.GenerateCode(testSecret, time.Now())
	require.NoError(t, err)

	assert.NoError(t, v.Verify("bob", "battery staple", code))
	assert.ErrorIs(t, v.Verify("bob", "battery staple", ""), ErrBadCredentials)
	assert.ErrorIs(t, v.Verify("bob", "battery staple", "000000x"), ErrBadCredentials)
	assert.ErrorIs(t, v.Verify("bob", "wrong", code), ErrBadCredentials)
}

func TestParseRejectsMissingHash(t *testing.T) {
	_, err := Parse([]byte("[users.alice]\ntotp_secret = \"JBSWY3DPEHPK3PXP\"\n"))
	assert.ErrorContains(t, err, "no password_hash")
}

func TestParseRejectsBadHash(t *testing.T) {
	_, err := Parse([]byte("[users.alice]\npassword_hash = \"plaintext\"\n"))
	assert.Error(t, err)
}

func TestParseEmpty(t *testing.T) {
	v, err := Parse(nil)
	require.NoError(t, err)
	assert.ErrorIs(t, v.Verify("alice", "x", ""), ErrBadCredentials)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials")
	doc := fmt.Sprintf("[users.alice]\npassword_hash = %q\n", hashFor(t, "pw"))
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	v, err := LoadFile(path)
	require.NoError(t, err)
	assert.NoError(t, v.Verify("alice", "pw", ""))

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
