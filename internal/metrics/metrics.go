// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package metrics exports tally state in the Prometheus text format so a
// node exporter textfile collector can pick it up.
package metrics

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
	"github.com/samber/lo"

	"github.com/jeranaias/authramp/internal/tally"
)

// Metrics holds the collectors for one export. Each export builds its own
// registry; nothing is registered globally.
type Metrics struct {
	registry *prometheus.Registry

	Principals   prometheus.Gauge
	Locked       prometheus.Gauge
	Unreadable   prometheus.Gauge
	FailureCount *prometheus.GaugeVec
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		Principals: factory.NewGauge(prometheus.GaugeOpts{
			Name: "authramp_tally_principals",
			Help: "Number of principals with a tally file",
		}),
		Locked: factory.NewGauge(prometheus.GaugeOpts{
			Name: "authramp_locked_principals",
			Help: "Number of principals currently locked out",
		}),
		Unreadable: factory.NewGauge(prometheus.GaugeOpts{
			Name: "authramp_unreadable_tallies",
			Help: "Number of tally files that could not be read or decoded",
		}),
		FailureCount: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "authramp_failure_count",
			Help: "Consecutive authentication failures per principal",
		}, []string{"user"}),
	}
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Observe sets every gauge from entries as of now.
func (m *Metrics) Observe(entries []tally.Entry, now time.Time) {
	readable := lo.Filter(entries, func(e tally.Entry, _ int) bool { return e.Err == nil })
	locked := lo.CountBy(readable, func(e tally.Entry) bool {
		return e.Record.UnlockInstant != nil && now.Before(*e.Record.UnlockInstant)
	})

	m.Principals.Set(float64(len(readable)))
	m.Locked.Set(float64(locked))
	m.Unreadable.Set(float64(len(entries) - len(readable)))

	m.FailureCount.Reset()
	for _, e := range readable {
		m.FailureCount.WithLabelValues(e.Principal).Set(float64(e.Record.Count))
	}
}

// WriteTextfile atomically writes the metrics to path.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write textfile: %w", err)
	}
	return nil
}

// WriteText writes the metrics to w in the text exposition format.
func (m *Metrics) WriteText(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
