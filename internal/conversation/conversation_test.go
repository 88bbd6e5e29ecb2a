// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/peterh/liner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/authramp/internal/bounce"
)

var _ bounce.Conversation = (*Writer)(nil)
var _ bounce.Conversation = Nop{}
var _ bounce.Conversation = (*Prompter)(nil)

func TestWriterPlain(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, true)

	resp, err := w.Send(t.Context(), bounce.StyleErrorMsg, "Account locked! Unlocking in 30 seconds.")
	require.NoError(t, err)
	assert.Empty(t, resp)

	_, err = w.Send(t.Context(), bounce.StyleTextInfo, "hello")
	require.NoError(t, err)

	assert.Equal(t, "Account locked! Unlocking in 30 seconds.\nhello\n", buf.String())
}

func TestWriterStyledKeepsText(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, false)

	_, err := w.Send(t.Context(), bounce.StyleErrorMsg, "locked")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "locked")
}

func TestWriterCancelledContext(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, true)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := w.Send(ctx, bounce.StyleErrorMsg, "locked")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, buf.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestWriterPropagatesWriteError(t *testing.T) {
	w := NewWriter(failingWriter{}, true)
	_, err := w.Send(t.Context(), bounce.StyleErrorMsg, "locked")
	assert.Error(t, err)
}

func TestNop(t *testing.T) {
	resp, err := Nop{}.Send(t.Context(), bounce.StyleErrorMsg, "ignored")
	assert.NoError(t, err)
	assert.Empty(t, resp)
}

func TestPromptErr(t *testing.T) {
	assert.ErrorIs(t, promptErr(liner.ErrPromptAborted), ErrAborted)
	assert.ErrorIs(t, promptErr(io.EOF), ErrAborted)

	other := errors.New("tty gone")
	err := promptErr(other)
	assert.ErrorIs(t, err, other)
	assert.NotErrorIs(t, err, ErrAborted)
}
