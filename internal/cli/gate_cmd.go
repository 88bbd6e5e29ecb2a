// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// gate_cmd.go - The per-attempt lockout gate.
//
// Command: gate <action> --user NAME
// Short:   Run one lockout decision
//
// Actions:
//   preauth     Before credentials are checked; blocks while locked
//   authfail    After a failed check; records the failure
//   authsucc    After a successful check; clears the tally
//
// Examples:
//   authramp gate preauth --user alice --service sshd
//   authramp gate authfail --user alice
//   authramp gate authsucc --user alice --hook account
//
// Flags:
//   --user NAME         User being authenticated (required)
//   --service NAME      Calling service, recorded in logs
//   --hook auth|account Entry point, recorded in logs
//   --json              Output in JSON format
//
// The exit code is the decision: 0 admit, 4 deny, 6 system error,
// 7 unknown user.

package cli

import (
	"context"
	"fmt"

	"github.com/jeranaias/authramp/internal/bounce"
	"github.com/jeranaias/authramp/internal/conversation"
	"github.com/jeranaias/authramp/internal/gate"
	"github.com/jeranaias/authramp/internal/lockout"
)

const gateUsage = "authramp gate <preauth|authfail|authsucc> --user NAME [--service S] [--hook auth|account]"

// GateArgs holds parsed gate command arguments.
type GateArgs struct {
	Action  lockout.Action
	Token   string
	User    string
	Service string
	Hook    gate.Hook
}

func parseGateArgs(args Args) (GateArgs, error) {
	p := NewArgParser(args.Raw)
	ga := GateArgs{
		Token:   p.Subcommand(),
		User:    userArg(p, 1),
		Service: p.FlagOrDefault("service", "authramp"),
		Hook:    gate.ParseHook(p.Flag("hook")),
	}
	if ga.User == "" {
		return ga, ErrMissingArgument("user", gateUsage)
	}
	// A missing or unknown action is handled by the engine as a success.
	ga.Action = lockout.ParseAction(ga.Token)
	return ga, nil
}

// HandleGate handles the "gate" command.
func HandleGate(ctx context.Context, env *Env, args Args) error {
	ga, err := parseGateArgs(args)
	if err != nil {
		return err
	}

	conv := bounce.Conversation(conversation.NewWriter(env.Err, !IsStderrTTY()))
	g, err := env.newGate(conv)
	if err != nil {
		return NewCommandError("gate", ga.Action.String(), "setup failed", err)
	}

	out := g.Run(ctx, gate.Request{
		Service: ga.Service,
		Hook:    ga.Hook,
		User:    ga.User,
		Action:  ga.Action,
	})
	return reportOutcome(env, args, "gate", ga.User, ga.Action.String(), out)
}

// reportOutcome prints the gate outcome and turns a deny into an error
// carrying the right exit code.
func reportOutcome(env *Env, args Args, command, user, action string, out gate.Outcome) error {
	var deny error
	if !out.Admit {
		deny = &DeniedError{Outcome: out}
	}

	if args.JSON {
		data := GateData{
			User:     user,
			Action:   action,
			Admit:    out.Admit,
			Reason:   string(out.Reason),
			Count:    out.Decision.Record.Count,
			UnlockAt: timePtr(out.Decision.UnlockAt),
			Exempt:   out.Decision.Exempt,
		}
		resp := NewJSONResponse(command, data)
		if deny != nil {
			resp = NewJSONErrorResponse(command, data, fmt.Errorf("%s", out.Reason))
		}
		if err := resp.Write(env.Out); err != nil {
			return err
		}
		return markReported(deny)
	}

	if deny != nil {
		if out.Message != "" {
			fmt.Fprintln(env.Err, ErrorStyle.Render(out.Message))
		}
		return markReported(deny)
	}
	if args.Verbose {
		fmt.Fprintf(env.Err, "%s %s admitted (%s)\n", RenderStatus("ok"), user, out.Reason)
	}
	return nil
}
