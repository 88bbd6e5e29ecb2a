// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package lockout

import (
	"strings"

	"golang.org/x/text/cases"
)

// Action is the intent of one gate invocation.
type Action int

const (
	// ActionUnrecognized is an absent or unknown token. The engine processes
	// it as ActionAuthSuccess and logs the token.
	ActionUnrecognized Action = iota
	// ActionPreAuth checks the lock without changing the tally.
	ActionPreAuth
	// ActionAuthFail records a failed attempt.
	ActionAuthFail
	// ActionAuthSuccess clears the tally after a successful attempt.
	ActionAuthSuccess
)

var actionTokens = map[string]Action{
	"preauth":  ActionPreAuth,
	"authfail": ActionAuthFail,
	"authsucc": ActionAuthSuccess,
}

var fold = cases.Fold()

// ParseAction maps a caller-supplied token to an Action. Matching ignores
// case and surrounding space. Anything else yields ActionUnrecognized.
func ParseAction(token string) Action {
	if a, ok := actionTokens[fold.String(strings.TrimSpace(token))]; ok {
		return a
	}
	return ActionUnrecognized
}

// Effective returns the action the engine actually performs.
func (a Action) Effective() Action {
	if a == ActionUnrecognized {
		return ActionAuthSuccess
	}
	return a
}

// Mutates reports whether the action rewrites the tally.
func (a Action) Mutates() bool {
	return a.Effective() != ActionPreAuth
}

func (a Action) String() string {
	switch a {
	case ActionPreAuth:
		return "preauth"
	case ActionAuthFail:
		return "authfail"
	case ActionAuthSuccess:
		return "authsucc"
	default:
		return "unrecognized"
	}
}
