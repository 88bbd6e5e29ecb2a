// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// styles.go - Shared lipgloss styles for authramp command output.
//
// The profile comes from stdout (see terminal.go), so piped output of
// "status" or "list" carries no escape codes.

package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func init() {
	lipgloss.SetColorProfile(colorProfile())
}

var (
	// TitleStyle heads each command's output
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))

	// SectionStyle separates groups of settings in "config"
	SectionStyle = lipgloss.NewStyle().Bold(true).MarginTop(1)

	// LabelStyle pads field labels into a column
	LabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(22)

	ValueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	SuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	ErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	WarningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	DimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))

	// LockedStyle and UnlockedStyle color tally state in "status" and "list"
	LockedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	UnlockedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
)

// =============================================================================
// HELPER FUNCTIONS FOR COMMON PATTERNS
// =============================================================================

// RenderSeparator renders the rule printed under a title.
func RenderSeparator() string {
	return DimStyle.Render(strings.Repeat("=", 50))
}

// RenderStatus renders a bracketed status marker, or the tally state for
// "locked" and "unlocked".
func RenderStatus(status string) string {
	switch strings.ToLower(status) {
	case "ok", "success":
		return SuccessStyle.Render("[OK]")
	case "error", "fail", "failed":
		return ErrorStyle.Render("[FAIL]")
	case "warning", "warn":
		return WarningStyle.Render("[WARN]")
	case "locked":
		return LockedStyle.Render("LOCKED")
	case "unlocked":
		return UnlockedStyle.Render("UNLOCKED")
	default:
		return DimStyle.Render("[" + strings.ToUpper(status) + "]")
	}
}

// RenderLabel renders a label with consistent width.
func RenderLabel(label string) string {
	return LabelStyle.Render(label)
}
