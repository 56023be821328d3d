// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package metrics registers the Prometheus collectors served on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsProcessed counts finished queue jobs by task type and outcome.
	JobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skyglint_jobs_processed_total",
		Help: "Finished queue jobs by task type and outcome.",
	}, []string{"type", "outcome"})

	// EventsGenerated counts alignment events written into the cache.
	EventsGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skyglint_events_generated_total",
		Help: "Alignment events written into the event cache.",
	})

	// SweepDuration observes the duration of one alignment sweep window.
	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "skyglint_solver_sweep_duration_seconds",
		Help:    "Duration of one alignment sweep window.",
		Buckets: prometheus.DefBuckets,
	})
)
