// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// login_cmd.go - Interactive login through the lockout gate.
//
// Command: login --user NAME
// Short:   Check a password (and one-time code) with lockout applied
//
// The command runs preauth, prompts for the password without echo, asks for
// a one-time code when the user has a TOTP secret, verifies against the
// credentials file, and records the result with authfail or authsucc. A
// locked account sees the countdown before the password prompt.
//
// Examples:
//   authramp login --user alice
//   authramp login alice --config ./authramp.conf

package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/jeranaias/authramp/internal/bounce"
	"github.com/jeranaias/authramp/internal/conversation"
	"github.com/jeranaias/authramp/internal/credential"
	"github.com/jeranaias/authramp/internal/gate"
	"github.com/jeranaias/authramp/internal/identity"
	"github.com/jeranaias/authramp/internal/lockout"
)

// Prompter reads login details from the user and shows lock messages.
type Prompter interface {
	bounce.Conversation
	Ask(prompt string) (string, error)
	AskSecret(prompt string) (string, error)
	Close() error
}

// terminalPrompter opens a line-editing prompt on the controlling terminal.
func terminalPrompter(env *Env) (Prompter, error) {
	if err := RequiresTTY("log in"); err != nil {
		return nil, err
	}
	return conversation.NewPrompter(env.Err, !IsStderrTTY()), nil
}

// HandleLogin handles the "login" command.
func HandleLogin(ctx context.Context, env *Env, args Args) error {
	p := NewArgParser(args.Raw)
	user := identity.Normalize(userArg(p, 0))
	if user == "" {
		return ErrMissingArgument("user", "authramp login --user NAME")
	}

	verifier, err := credential.LoadFile(env.Config.CredentialsFile)
	if err != nil {
		return NewCommandError("login", "load", "cannot read credentials file", err)
	}

	newPrompter := env.NewPrompter
	if newPrompter == nil {
		newPrompter = terminalPrompter
	}
	prompter, err := newPrompter(env)
	if err != nil {
		return err
	}
	defer prompter.Close()

	g, err := env.newGate(prompter)
	if err != nil {
		return NewCommandError("login", "setup", "gate unavailable", err)
	}
	req := gate.Request{Service: "authramp-login", Hook: gate.HookAuth, User: user}

	req.Action = lockout.ActionPreAuth
	if out := g.Run(ctx, req); !out.Admit {
		return reportOutcome(env, args, "login", user, req.Action.String(), out)
	}

	password, err := prompter.AskSecret("Password: ")
	if err != nil {
		return loginAborted(err)
	}
	var otp string
	if verifier.UsesOTP() {
		if otp, err = prompter.Ask("One-time code: "); err != nil {
			return loginAborted(err)
		}
	}

	req.Action = lockout.ActionAuthSuccess
	if err := verifier.Verify(user, password, otp); err != nil {
		req.Action = lockout.ActionAuthFail
	}
	out := g.Run(ctx, req)
	if err := reportOutcome(env, args, "login", user, req.Action.String(), out); err != nil {
		return err
	}
	if !args.JSON && !args.Quiet {
		fmt.Fprintf(env.Out, "%s Authenticated as %s\n", RenderStatus("ok"), user)
	}
	return nil
}

func loginAborted(err error) error {
	if errors.Is(err, conversation.ErrAborted) {
		return NewCommandError("login", "prompt", "cancelled", nil)
	}
	return NewCommandError("login", "prompt", "cannot read input", err)
}
