// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package healthz probes the service dependencies on a fixed interval and
// caches the latest result for the health endpoint.
package healthz

import (
	"context"
	"time"
)

// Overall status words reported by the health endpoint.
const (
	// StatusHealthy means every component check passed.
	StatusHealthy = "healthy"
	// StatusDegraded means a non-critical component failed, the service keeps serving.
	StatusDegraded = "degraded"
	// StatusUnhealthy means a critical component failed.
	StatusUnhealthy = "unhealthy"
)

// Checker probes one dependency. Critical checkers take the overall status to
// unhealthy on failure; non-critical ones only degrade it.
type Checker struct {
	Name     string
	Critical bool
	Check    func(ctx context.Context) error
}

// Pinger is the probe surface shared by the database and the queue broker.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingChecker wraps a Pinger into a Checker.
func PingChecker(name string, critical bool, pinger Pinger) Checker {
	return Checker{Name: name, Critical: critical, Check: pinger.Ping}
}

// ComponentStatus is the cached result of a single component check.
type ComponentStatus struct {
	Healthy   bool      `json:"healthy"`
	Message   string    `json:"message,omitempty"`
	CheckedAt time.Time `json:"checkedAt"`
}

// Status is the aggregate of the latest check round.
type Status struct {
	Overall    string                     `json:"status"`
	Components map[string]ComponentStatus `json:"components"`
}
