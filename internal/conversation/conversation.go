// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation carries lockout messages to the person at the
// terminal and reads their answers during an interactive login.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"

	"github.com/jeranaias/authramp/internal/bounce"
)

// ErrAborted is returned when the user cancels a prompt with Ctrl+C.
var ErrAborted = errors.New("prompt aborted")

var (
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")). // Red
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")) // Light gray
)

// =============================================================================
// WRITER
// =============================================================================

// Writer renders each message as one styled line on an io.Writer. It never
// collects a response.
type Writer struct {
	mu    sync.Mutex
	out   io.Writer
	plain bool
}

// NewWriter returns a Writer for out. When plain is true, messages are
// written without styling.
func NewWriter(out io.Writer, plain bool) *Writer {
	return &Writer{out: out, plain: plain}
}

// Send writes msg followed by a newline.
func (w *Writer) Send(ctx context.Context, style bounce.Style, msg string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	line := msg
	if !w.plain {
		line = render(style, msg)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := fmt.Fprintln(w.out, line); err != nil {
		return "", fmt.Errorf("write message: %w", err)
	}
	return "", nil
}

func render(style bounce.Style, msg string) string {
	switch style {
	case bounce.StyleErrorMsg:
		return errorStyle.Render(msg)
	default:
		return infoStyle.Render(msg)
	}
}

// Nop discards every message.
type Nop struct{}

// Send does nothing.
func (Nop) Send(context.Context, bounce.Style, string) (string, error) {
	return "", nil
}

// =============================================================================
// PROMPTER
// =============================================================================

// Prompter asks the user for login details with line editing. It also
// satisfies bounce.Conversation so the same terminal session can show the
// countdown.
type Prompter struct {
	line *liner.State
	msgs *Writer
}

// NewPrompter takes over the terminal. Callers must Close it to restore the
// terminal mode.
func NewPrompter(out io.Writer, plain bool) *Prompter {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	return &Prompter{line: line, msgs: NewWriter(out, plain)}
}

// Ask reads one line of visible input.
func (p *Prompter) Ask(prompt string) (string, error) {
	answer, err := p.line.Prompt(prompt)
	if err != nil {
		return "", promptErr(err)
	}
	return strings.TrimSpace(answer), nil
}

// AskSecret reads one line without echo.
func (p *Prompter) AskSecret(prompt string) (string, error) {
	answer, err := p.line.PasswordPrompt(prompt)
	if err != nil {
		return "", promptErr(err)
	}
	return answer, nil
}

// Send writes msg on the message stream.
func (p *Prompter) Send(ctx context.Context, style bounce.Style, msg string) (string, error) {
	return p.msgs.Send(ctx, style, msg)
}

// Close restores the terminal.
func (p *Prompter) Close() error {
	return p.line.Close()
}

func promptErr(err error) error {
	if errors.Is(err, liner.ErrPromptAborted) {
		return ErrAborted
	}
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: end of input", ErrAborted)
	}
	return fmt.Errorf("read input: %w", err)
}
