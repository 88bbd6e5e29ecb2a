// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// lockout_cmd.go - Administrative commands over the tally directory.
//
// CLI: Comprehensive help and examples for all commands
//
// Commands:
//   status --user NAME    Show one user's tally
//   list [--locked]       Show all tallies (alias: ls)
//   reset --user NAME     Remove one user's tally
//
// Examples:
//   authramp status --user alice
//   authramp status alice --json
//   authramp list --locked
//   authramp reset --user alice
//   authramp reset alice --force      Non-root caller owning the tally dir
//
// Flags:
//   --json              Output in JSON format

package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/jeranaias/authramp/internal/identity"
	"github.com/jeranaias/authramp/internal/tally"
	"github.com/jeranaias/authramp/internal/util"
)

// =============================================================================
// LOCKOUT STATUS
// =============================================================================

// HandleStatus handles the "status" command.
func HandleStatus(env *Env, args Args) error {
	p := NewArgParser(args.Raw)
	user := identity.Normalize(userArg(p, 0))
	if user == "" {
		return ErrMissingArgument("user", "authramp status --user NAME")
	}

	rec, err := env.store().Load(user)
	if err != nil {
		if errors.Is(err, tally.ErrNotFound) {
			return &NotFoundError{Resource: "tally", ID: user}
		}
		return err
	}

	now := env.Now()
	data := tallyData(user, rec, now)
	settings := env.Config.Ramp()
	if settings.Exceeds(rec.Count + 1) {
		if d, err := settings.CappedDelay(rec.Count + 1); err == nil {
			data.NextFailDelay = d.String()
		}
	}

	if args.JSON {
		return NewJSONResponse("status", data).Write(env.Out)
	}

	w := env.Out
	fmt.Fprintln(w)
	fmt.Fprintln(w, TitleStyle.Render("Tally: "+user))
	fmt.Fprintln(w, RenderSeparator())

	state := "unlocked"
	if data.Locked {
		state = "locked"
	}
	fmt.Fprintf(w, "  %s%s\n", RenderLabel("State:"), RenderStatus(state))
	fmt.Fprintf(w, "  %s%s\n", RenderLabel("Failures:"), ValueStyle.Render(fmt.Sprintf("%d (free tries: %d)", rec.Count, settings.FreeTries)))
	if data.LastFailure != nil {
		fmt.Fprintf(w, "  %s%s\n", RenderLabel("Last Failure:"), ValueStyle.Render(data.LastFailure.Local().Format(time.RFC1123)))
	}
	if data.UnlockAt != nil {
		fmt.Fprintf(w, "  %s%s\n", RenderLabel("Unlock At:"), ValueStyle.Render(data.UnlockAt.Local().Format(time.RFC1123)))
	}
	if data.Locked {
		fmt.Fprintf(w, "  %s%s\n", RenderLabel("Remaining:"), WarningStyle.Render(data.Remaining))
	}
	if data.NextFailDelay != "" {
		fmt.Fprintf(w, "  %s%s\n", RenderLabel("Next Failure Locks:"), DimStyle.Render(data.NextFailDelay))
	}
	fmt.Fprintln(w)
	return nil
}

// =============================================================================
// LOCKOUT LIST
// =============================================================================

// Column widths for the list table. Names are measured in display cells.
const (
	listUserWidth   = 20
	listCountWidth  = 8
	listStateWidth  = 10
	listUnlockWidth = 26
)

// HandleList handles the "list" command.
func HandleList(env *Env, args Args) error {
	p := NewArgParser(args.Raw)
	onlyLocked := p.BoolFlag("locked")

	store := env.store()
	entries, err := store.List()
	if err != nil {
		return err
	}

	now := env.Now()
	rows := lo.Map(entries, func(e tally.Entry, _ int) TallyData {
		if e.Err != nil {
			return TallyData{User: e.Principal, Error: e.Err.Error()}
		}
		return tallyData(e.Principal, e.Record, now)
	})
	if onlyLocked {
		rows = lo.Filter(rows, func(d TallyData, _ int) bool { return d.Locked })
	}
	locked := lo.CountBy(rows, func(d TallyData) bool { return d.Locked })

	if args.JSON {
		return NewJSONResponse("list", ListData{
			TallyDir: store.Root(),
			Tallies:  rows,
			Count:    len(rows),
			Locked:   locked,
		}).Write(env.Out)
	}

	w := env.Out
	fmt.Fprintln(w)
	fmt.Fprintln(w, TitleStyle.Render("Tallies in "+store.Root()))
	fmt.Fprintln(w, RenderSeparator())
	fmt.Fprintln(w)

	if len(rows) == 0 {
		if onlyLocked {
			fmt.Fprintln(w, UnlockedStyle.Render("  No accounts are currently locked."))
		} else {
			fmt.Fprintln(w, DimStyle.Render("  No tallies recorded."))
		}
		fmt.Fprintln(w)
		return nil
	}

	fmt.Fprintf(w, "  %s %s %s %s\n",
		util.FitWidth("User", listUserWidth),
		util.FitWidth("Failures", listCountWidth),
		util.FitWidth("State", listStateWidth),
		"Unlock At")
	fmt.Fprintln(w, DimStyle.Render("  "+strings.Repeat("-", listUserWidth+listCountWidth+listStateWidth+listUnlockWidth+3)))

	for _, r := range rows {
		user := util.FitWidth(r.User, listUserWidth)
		if r.Error != "" {
			fmt.Fprintf(w, "  %s %s\n", user, ErrorStyle.Render("[UNREADABLE] "+r.Error))
			continue
		}

		state := UnlockedStyle.Render(util.FitWidth("unlocked", listStateWidth))
		if r.Locked {
			state = LockedStyle.Render(util.FitWidth("locked", listStateWidth))
		}
		unlock := "-"
		if r.UnlockAt != nil {
			unlock = r.UnlockAt.Local().Format("2006-01-02 15:04:05")
			if r.Locked {
				unlock += " (" + r.Remaining + ")"
			}
		}
		fmt.Fprintf(w, "  %s %s %s %s\n",
			user,
			util.FitWidth(fmt.Sprintf("%d", r.Count), listCountWidth),
			state,
			unlock)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Total: %d tally(ies), %d locked\n", len(rows), locked)
	fmt.Fprintln(w)
	return nil
}

// =============================================================================
// LOCKOUT RESET
// =============================================================================

// HandleReset handles the "reset" command.
func HandleReset(env *Env, args Args) error {
	p := NewArgParser(args.Raw)
	user := identity.Normalize(userArg(p, 0))
	if user == "" {
		return ErrMissingArgument("user", "authramp reset --user NAME")
	}
	if env.Geteuid() != 0 && !p.BoolFlag("force") {
		return &PermissionError{Action: "reset", Reason: "requires root (use --force for a tally dir you own)"}
	}

	res, err := env.store().Reset(user)
	if err != nil {
		env.Logger.Error("tally reset failed", "principal", user, "error", err)
		return err
	}
	env.Logger.Info("tally reset", "principal", user, "result", res.String())

	var resultErr error
	if res == tally.ResetNotFound {
		resultErr = &NotFoundError{Resource: "tally", ID: user}
	}

	if args.JSON {
		if err := NewJSONResponse("reset", ResetData{User: user, Result: res.String()}).Write(env.Out); err != nil {
			return err
		}
		return markReported(resultErr)
	}

	if res == tally.ResetNotFound {
		fmt.Fprintf(env.Out, "%s No tally found for user %s\n", RenderStatus("warning"), user)
		return markReported(resultErr)
	}
	if !args.Quiet {
		fmt.Fprintf(env.Out, "%s Tally reset for user %s\n", RenderStatus("ok"), user)
	}
	return nil
}
