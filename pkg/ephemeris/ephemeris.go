// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package ephemeris computes topocentric Sun and Moon positions for ground observers. It defines
// the provider port the alignment solver consumes and ships two interchangeable implementations,
// a fast low-order one (suncalc) and a high-precision one (meeus), plus a manager that falls back
// between them.
package ephemeris

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"
)

// Body identifies the celestial body an ephemeris query refers to.
type Body string

const (
	// BodySun is the Sun.
	BodySun Body = "sun"
	// BodyMoon is the Moon.
	BodyMoon Body = "moon"
)

// Direction selects the horizon crossing a rise/set query looks for.
type Direction string

const (
	// DirectionRise looks for the next ascending horizon crossing.
	DirectionRise Direction = "rise"
	// DirectionSet looks for the next descending horizon crossing.
	DirectionSet Direction = "set"
)

// SunPosition is the topocentric position of the Sun at an instant.
type SunPosition struct {
	// Azimuth in degrees clockwise from true north, in [0,360).
	Azimuth float64
	// Altitude is the apparent altitude in degrees, refraction included.
	Altitude float64
	// Distance is the Earth-Sun distance in astronomical units.
	Distance float64
}

// MoonPosition is the topocentric position of the Moon at an instant.
type MoonPosition struct {
	// Azimuth in degrees clockwise from true north, in [0,360).
	Azimuth float64
	// Altitude is the apparent altitude in degrees, refraction included.
	Altitude float64
	// Distance is the Earth-Moon distance in kilometers.
	Distance float64
	// Phase is the lunar phase angle in degrees [0,360), 0 = new moon, 180 = full moon.
	Phase float64
	// Illumination is the illuminated fraction in [0,1] derived linearly from the phase.
	Illumination float64
}

// ErrNotFinite is returned when a position computation does not yield finite coordinates.
var ErrNotFinite = errors.New("ephemeris result is not finite")

// Provider computes Sun and Moon positions and horizon crossings for an observer. Implementations
// must be safe for concurrent use.
type Provider interface {
	// Name returns the provider identifier used in configuration and logs.
	Name() string
	// SunPosition returns the topocentric Sun position at t for the observer coordinates.
	SunPosition(t time.Time, lat, lon float64) (SunPosition, error)
	// MoonPosition returns the topocentric Moon position at t for the observer coordinates.
	MoonPosition(t time.Time, lat, lon float64) (MoonPosition, error)
	// RiseSet returns the next horizon crossing of the given body in the given direction at or
	// after t, searching at most searchDays days. It returns nil if no crossing occurs within the
	// search window.
	RiseSet(body Body, t time.Time, lat, lon float64, direction Direction, searchDays int) (*time.Time, error)
}

// Manager is a Provider that delegates to a primary provider and falls back to a secondary one
// when the primary fails. It is the provider handed to the alignment solver.
type Manager struct {
	log      logrus.FieldLogger
	primary  Provider
	fallback Provider
}

var _ Provider = &Manager{}

// NewManager returns a new Manager delegating to the given primary provider. The fallback may be
// nil in which case primary errors are returned as-is.
func NewManager(log logrus.FieldLogger, primary, fallback Provider) *Manager {
	return &Manager{
		log:      log,
		primary:  primary,
		fallback: fallback,
	}
}

// Name implements Provider.
func (m *Manager) Name() string {
	return m.primary.Name()
}

// SunPosition implements Provider.
func (m *Manager) SunPosition(t time.Time, lat, lon float64) (SunPosition, error) {
	position, err := m.primary.SunPosition(t, lat, lon)
	if err == nil || m.fallback == nil {
		return position, err
	}

	m.log.WithFields(logrus.Fields{
		"provider": m.primary.Name(),
		"fallback": m.fallback.Name(),
	}).Warnf("Sun position failed, switching to fallback provider: %v", err)
	return m.fallback.SunPosition(t, lat, lon)
}

// MoonPosition implements Provider.
func (m *Manager) MoonPosition(t time.Time, lat, lon float64) (MoonPosition, error) {
	position, err := m.primary.MoonPosition(t, lat, lon)
	if err == nil || m.fallback == nil {
		return position, err
	}

	m.log.WithFields(logrus.Fields{
		"provider": m.primary.Name(),
		"fallback": m.fallback.Name(),
	}).Warnf("Moon position failed, switching to fallback provider: %v", err)
	return m.fallback.MoonPosition(t, lat, lon)
}

// RiseSet implements Provider.
func (m *Manager) RiseSet(body Body, t time.Time, lat, lon float64, direction Direction, searchDays int) (*time.Time, error) {
	crossing, err := m.primary.RiseSet(body, t, lat, lon, direction, searchDays)
	if err == nil || m.fallback == nil {
		return crossing, err
	}

	m.log.WithFields(logrus.Fields{
		"provider": m.primary.Name(),
		"fallback": m.fallback.Name(),
	}).Warnf("Rise/set search failed, switching to fallback provider: %v", err)
	return m.fallback.RiseSet(body, t, lat, lon, direction, searchDays)
}

// CheckHealth verifies that the manager can produce finite positions. It is plugged into the
// periodic health manager of the server.
func (m *Manager) CheckHealth(_ context.Context) error {
	now := time.Now().UTC()

	if _, err := m.SunPosition(now, 35.71, 139.81); err != nil {
		return fmt.Errorf("sun position check failed: %w", err)
	}
	if _, err := m.MoonPosition(now, 35.71, 139.81); err != nil {
		return fmt.Errorf("moon position check failed: %w", err)
	}
	return nil
}

// illuminationFromPhase derives the illuminated fraction from a phase angle in degrees using the
// piecewise linear relation new -> full -> new.
func illuminationFromPhase(phaseDegrees float64) float64 {
	if phaseDegrees <= 180 {
		return phaseDegrees / 180
	}
	return (360 - phaseDegrees) / 180
}

// normalizeDegrees maps an angle to [0,360).
func normalizeDegrees(angle float64) float64 {
	normalized := math.Mod(angle, 360)
	if normalized < 0 {
		normalized += 360
	}
	return normalized
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
