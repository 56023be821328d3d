// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

package fake

import (
	"time"

	"github.com/skyglint/skyglint/pkg/ephemeris"
)

var _ ephemeris.Provider = &Provider{}

// Provider implements ephemeris.Provider with scripted position functions so that tests can
// construct deterministic skies. Functions that are not set fall back to a body that is far below
// the horizon and to absent rise/set crossings.
type Provider struct {
	// ProviderName is returned by Name. Defaults to "fake".
	ProviderName string
	// SunFn computes the scripted sun position.
	SunFn func(t time.Time, lat, lon float64) (ephemeris.SunPosition, error)
	// MoonFn computes the scripted moon position.
	MoonFn func(t time.Time, lat, lon float64) (ephemeris.MoonPosition, error)
	// RiseSetFn computes the scripted horizon crossings.
	RiseSetFn func(body ephemeris.Body, t time.Time, lat, lon float64, direction ephemeris.Direction, searchDays int) (*time.Time, error)
}

// Name implements ephemeris.Provider.
func (p *Provider) Name() string {
	if p.ProviderName == "" {
		return "fake"
	}
	return p.ProviderName
}

// SunPosition implements ephemeris.Provider.
func (p *Provider) SunPosition(t time.Time, lat, lon float64) (ephemeris.SunPosition, error) {
	if p.SunFn == nil {
		return ephemeris.SunPosition{Azimuth: 0, Altitude: -90, Distance: 1}, nil
	}
	return p.SunFn(t, lat, lon)
}

// MoonPosition implements ephemeris.Provider.
func (p *Provider) MoonPosition(t time.Time, lat, lon float64) (ephemeris.MoonPosition, error) {
	if p.MoonFn == nil {
		return ephemeris.MoonPosition{Azimuth: 0, Altitude: -90, Distance: 384400, Phase: 180, Illumination: 1}, nil
	}
	return p.MoonFn(t, lat, lon)
}

// RiseSet implements ephemeris.Provider.
func (p *Provider) RiseSet(body ephemeris.Body, t time.Time, lat, lon float64, direction ephemeris.Direction, searchDays int) (*time.Time, error) {
	if p.RiseSetFn == nil {
		return nil, nil
	}
	return p.RiseSetFn(body, t, lat, lon, direction, searchDays)
}
