// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// metrics_cmd.go - Prometheus export of the tally directory.
//
// Command: metrics [--output FILE]
// Short:   Write lockout gauges in the Prometheus text format
//
// Without --output the metrics go to stdout. With --output the file is
// replaced atomically, which suits the node exporter textfile collector.
//
// Examples:
//   authramp metrics
//   authramp metrics --output /var/lib/node_exporter/textfile/authramp.prom

package cli

import (
	"fmt"

	"github.com/jeranaias/authramp/internal/metrics"
)

// HandleMetrics handles the "metrics" command.
func HandleMetrics(env *Env, args Args) error {
	p := NewArgParser(args.Raw)
	output := p.FirstFlag("output", "o")

	entries, err := env.store().List()
	if err != nil {
		return err
	}

	m := metrics.New()
	m.Observe(entries, env.Now())

	if output == "" {
		return m.WriteText(env.Out)
	}
	if err := m.WriteTextfile(output); err != nil {
		return NewCommandError("metrics", "write", output, err)
	}

	if args.JSON {
		return NewJSONResponse("metrics", MetricsData{Output: output, Principals: len(entries)}).Write(env.Out)
	}
	if !args.Quiet {
		fmt.Fprintf(env.Out, "%s Wrote metrics for %d tally(ies) to %s\n", RenderStatus("ok"), len(entries), output)
	}
	return nil
}
