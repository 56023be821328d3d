// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

package healthz

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Manager runs the registered checkers on a fixed interval and caches the
// latest aggregate status.
type Manager struct {
	log      *logrus.Logger
	interval time.Duration
	timeout  time.Duration
	checkers []Checker

	mutex   sync.RWMutex
	status  Status
	stopCh  chan struct{}
	started bool
}

// NewManager creates a Manager probing the given checkers every interval, each
// probe bounded by timeout. Start must be called to activate the loop.
func NewManager(log *logrus.Logger, interval, timeout time.Duration, checkers ...Checker) *Manager {
	return &Manager{
		log:      log,
		interval: interval,
		timeout:  timeout,
		checkers: checkers,
		status: Status{
			Overall:    StatusUnhealthy,
			Components: map[string]ComponentStatus{},
		},
	}
}

// Start runs one synchronous check round and then starts the periodic loop.
func (m *Manager) Start() {
	m.mutex.Lock()
	if m.started {
		m.mutex.Unlock()
		return
	}
	m.started = true
	m.stopCh = make(chan struct{})
	stopCh := m.stopCh
	m.mutex.Unlock()

	m.Check(context.Background())

	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				m.Check(context.Background())
			case <-stopCh:
				return
			}
		}
	}()
}

// Stop halts the periodic loop. A check already running finishes on its own.
func (m *Manager) Stop() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if !m.started {
		return
	}
	close(m.stopCh)
	m.started = false
}

// Status returns the latest aggregate status.
func (m *Manager) Status() Status {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.status
}

// Check runs every checker once, replaces the cached status and returns it.
func (m *Manager) Check(ctx context.Context) Status {
	var (
		components = make(map[string]ComponentStatus, len(m.checkers))
		overall    = StatusHealthy
	)

	for _, checker := range m.checkers {
		checkCtx, cancel := context.WithTimeout(ctx, m.timeout)
		err := checker.Check(checkCtx)
		cancel()

		component := ComponentStatus{Healthy: err == nil, CheckedAt: time.Now()}
		if err != nil {
			component.Message = err.Error()
			if checker.Critical {
				overall = StatusUnhealthy
			} else if overall == StatusHealthy {
				overall = StatusDegraded
			}
		}
		components[checker.Name] = component
	}

	status := Status{Overall: overall, Components: components}

	m.mutex.Lock()
	previous := m.status.Overall
	m.status = status
	m.mutex.Unlock()

	if previous != overall {
		if overall == StatusHealthy {
			m.log.Infof("Health status changed from %s to %s", previous, overall)
		} else {
			m.log.Warnf("Health status changed from %s to %s", previous, overall)
		}
	}

	return status
}
