// authramp - account lockout with ramping delays.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jeranaias/authramp/internal/cli"
	"github.com/jeranaias/authramp/internal/config"
	"github.com/jeranaias/authramp/internal/logging"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	os.Exit(run())
}

func run() int {
	// Parse CLI arguments
	cmd, args := cli.Parse()

	// Commands that need no configuration
	switch cmd {
	case cli.CmdHelp:
		cli.HandleHelp(os.Stdout)
		return cli.ExitSuccess
	case cli.CmdVersion:
		return exit(cli.HandleVersion(os.Stdout, args), args)
	case cli.CmdUnknown:
		return exit(cli.ErrUnknownCommand(args), args)
	}

	// Configuration problems never stop a decision: Load always returns
	// usable settings and the error is only reported.
	cfg, cfgErr := config.Load(args.ConfigPath)

	logCfg := cfg.Logging()
	if cli.TrustsEnvironment(cmd, os.Getuid(), os.Geteuid()) {
		logCfg.ApplyEnv(os.Getenv)
	}
	if args.Verbose {
		logCfg.Stderr = true
		logCfg.Level = logging.ParseLevel("debug")
	}
	logger, closer := logging.New(logCfg)
	defer closer.Close()

	if cfgErr != nil {
		logger.Error("configuration unreadable, using defaults", "error", cfgErr)
	}
	for _, w := range cfg.Warnings {
		logger.Warn("configuration value ignored", "detail", w, "path", cfg.Path)
	}

	// A termination signal ends any lockout wait with a deny.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := cli.NewEnv(cfg, logger)
	env.ConfigErr = cfgErr

	// Route to appropriate handler
	var err error
	switch cmd {
	case cli.CmdGate:
		err = cli.HandleGate(ctx, env, args)
	case cli.CmdReset:
		err = cli.HandleReset(env, args)
	case cli.CmdStatus:
		err = cli.HandleStatus(env, args)
	case cli.CmdList:
		err = cli.HandleList(env, args)
	case cli.CmdLogin:
		err = cli.HandleLogin(ctx, env, args)
	case cli.CmdMetrics:
		err = cli.HandleMetrics(env, args)
	case cli.CmdConfig:
		err = cli.HandleConfig(env, args)
	case cli.CmdDoctor:
		err = cli.HandleDoctor(env, args)
	default:
		err = fmt.Errorf("unhandled command %q", args.Name)
	}
	return exit(err, args)
}

// exit displays err and returns the process exit code for it.
func exit(err error, args cli.Args) int {
	if err == nil {
		return cli.ExitSuccess
	}
	out := os.Stderr
	if args.JSON {
		out = os.Stdout
	}
	cli.DisplayError(out, err, args.JSON)
	return cli.GetExitCode(err)
}
