// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

package ephemeris

import (
	"fmt"
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/base"
	"github.com/soniakeys/meeus/v3/coord"
	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/moonposition"
	"github.com/soniakeys/meeus/v3/nutation"
	"github.com/soniakeys/meeus/v3/solar"
)

// meeusProvider computes positions with the algorithms of Meeus, Astronomical Algorithms
// (2nd ed.), as implemented by github.com/soniakeys/meeus. The solar position carries the full
// apparent reduction and the lunar position the complete ELP-based series, so it is roughly two
// orders of magnitude more precise than the suncalc provider at a higher computational cost.
type meeusProvider struct{}

// NewMeeusProvider returns the high-precision ephemeris provider.
func NewMeeusProvider() Provider {
	return meeusProvider{}
}

// Name implements Provider.
func (meeusProvider) Name() string {
	return "meeus"
}

const (
	// astronomicalUnitKm converts solar distances to kilometers for the phase computation.
	astronomicalUnitKm = 149597870.7

	// earthEquatorialRadiusKm is used for the lunar parallax correction.
	earthEquatorialRadiusKm = 6378.14

	// meeusMoonCrossingAltitude is the standard geocentric altitude of the Moon at rise and set
	// for mean lunar parallax (Meeus chapter 15).
	meeusMoonCrossingAltitude = 0.125 * rad
)

// apparentSiderealRad returns the apparent sidereal time at Greenwich in radians for the given
// Julian day, nutation in longitude and true obliquity (Meeus 12.4 plus the equation of the
// equinoxes).
func apparentSiderealRad(jd, dPsiRad, epsRad float64) float64 {
	t := base.J2000Century(jd)
	theta := 280.46061837 + 360.98564736629*(jd-j2000) + 0.000387933*t*t - t*t*t/38710000
	theta += dPsiRad / rad * math.Cos(epsRad)
	return normalizeDegrees(theta) * rad
}

// sunHorizontal returns the geometric (unrefracted) horizontal coordinates of the Sun in radians
// and its distance in astronomical units.
func (meeusProvider) sunHorizontal(jd, latRad, lonRad float64) (azimuth, altitude, distance float64) {
	alpha, delta := solar.ApparentEquatorial(jd)
	dPsi, dEps := nutation.Nutation(jd)
	eps := nutation.MeanObliquity(jd) + dEps

	hourAngle := apparentSiderealRad(jd, dPsi.Rad(), eps.Rad()) + lonRad - alpha.Rad()

	return azimuthRad(hourAngle, latRad, delta.Rad()),
		altitudeRad(hourAngle, latRad, delta.Rad()),
		solar.Radius(base.J2000Century(jd))
}

// moonHorizontal returns the geocentric (unrefracted, parallax-free) horizontal coordinates of
// the Moon in radians and its distance in kilometers.
func (meeusProvider) moonHorizontal(jd, latRad, lonRad float64) (azimuth, altitude, distance float64) {
	lambda, beta, delta := moonposition.Position(jd)
	dPsi, dEps := nutation.Nutation(jd)
	eps := nutation.MeanObliquity(jd) + dEps

	sinEps, cosEps := math.Sincos(eps.Rad())
	alpha, dec := coord.EclToEq(lambda+dPsi, beta, sinEps, cosEps)

	hourAngle := apparentSiderealRad(jd, dPsi.Rad(), eps.Rad()) + lonRad - alpha.Rad()

	return azimuthRad(hourAngle, latRad, dec.Rad()),
		altitudeRad(hourAngle, latRad, dec.Rad()),
		delta
}

// moonPhase01 returns the lunar phase in [0,1), 0 = new moon, from the geocentric solar and
// lunar positions at the given Julian day.
func (meeusProvider) moonPhase01(jd float64) float64 {
	alphaSun, deltaSun := solar.ApparentEquatorial(jd)
	sunDistance := solar.Radius(base.J2000Century(jd)) * astronomicalUnitKm

	lambda, beta, moonDistance := moonposition.Position(jd)
	dPsi, dEps := nutation.Nutation(jd)
	eps := nutation.MeanObliquity(jd) + dEps
	sinEps, cosEps := math.Sincos(eps.Rad())
	alphaMoon, deltaMoon := coord.EclToEq(lambda+dPsi, beta, sinEps, cosEps)

	var (
		sd = deltaSun.Rad()
		md = deltaMoon.Rad()
		da = alphaSun.Rad() - alphaMoon.Rad()

		elongation  = math.Acos(math.Sin(sd)*math.Sin(md) + math.Cos(sd)*math.Cos(md)*math.Cos(da))
		inclination = math.Atan2(sunDistance*math.Sin(elongation), moonDistance-sunDistance*math.Cos(elongation))
		angle       = math.Atan2(math.Cos(sd)*math.Sin(da), math.Sin(sd)*math.Cos(md)-math.Cos(sd)*math.Sin(md)*math.Cos(da))
	)

	sign := 1.0
	if angle < 0 {
		sign = -1
	}
	return 0.5 + 0.5*inclination*sign/math.Pi
}

// SunPosition implements Provider.
func (p meeusProvider) SunPosition(t time.Time, lat, lon float64) (SunPosition, error) {
	jd := julian.TimeToJD(t.UTC())

	azimuth, altitude, distance := p.sunHorizontal(jd, lat*rad, lon*rad)
	altitude += astroRefraction(altitude)

	position := SunPosition{
		Azimuth:  normalizeDegrees(azimuth/rad + 180),
		Altitude: altitude / rad,
		Distance: distance,
	}
	if !finite(position.Azimuth, position.Altitude, position.Distance) {
		return SunPosition{}, fmt.Errorf("%w: sun position at %s for (%v,%v)", ErrNotFinite, t.Format(time.RFC3339), lat, lon)
	}
	return position, nil
}

// MoonPosition implements Provider.
func (p meeusProvider) MoonPosition(t time.Time, lat, lon float64) (MoonPosition, error) {
	jd := julian.TimeToJD(t.UTC())

	azimuth, altitude, distance := p.moonHorizontal(jd, lat*rad, lon*rad)

	// topocentric correction for the lunar parallax, then refraction
	parallax := math.Asin(earthEquatorialRadiusKm / distance)
	altitude -= parallax * math.Cos(altitude)
	altitude += astroRefraction(altitude)

	phase := normalizeDegrees(p.moonPhase01(jd) * 360)

	position := MoonPosition{
		Azimuth:      normalizeDegrees(azimuth/rad + 180),
		Altitude:     altitude / rad,
		Distance:     distance,
		Phase:        phase,
		Illumination: illuminationFromPhase(phase),
	}
	if !finite(position.Azimuth, position.Altitude, position.Distance, position.Phase) {
		return MoonPosition{}, fmt.Errorf("%w: moon position at %s for (%v,%v)", ErrNotFinite, t.Format(time.RFC3339), lat, lon)
	}
	return position, nil
}

// RiseSet implements Provider.
func (p meeusProvider) RiseSet(body Body, t time.Time, lat, lon float64, direction Direction, searchDays int) (*time.Time, error) {
	if direction != DirectionRise && direction != DirectionSet {
		return nil, fmt.Errorf("unknown direction %q", direction)
	}
	if searchDays < 1 {
		searchDays = 1
	}

	var altAt func(base time.Time, hoursAfter float64) float64
	switch body {
	case BodySun:
		altAt = func(base time.Time, hoursAfter float64) float64 {
			jd := julian.TimeToJD(base.Add(time.Duration(hoursAfter * float64(time.Hour))).UTC())
			_, altitude, _ := p.sunHorizontal(jd, lat*rad, lon*rad)
			return altitude - sunCrossingAltitude
		}
	case BodyMoon:
		altAt = func(base time.Time, hoursAfter float64) float64 {
			jd := julian.TimeToJD(base.Add(time.Duration(hoursAfter * float64(time.Hour))).UTC())
			_, altitude, _ := p.moonHorizontal(jd, lat*rad, lon*rad)
			return altitude - meeusMoonCrossingAltitude
		}
	default:
		return nil, fmt.Errorf("unknown body %q", body)
	}

	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	for day := 0; day <= searchDays; day++ {
		base := start.AddDate(0, 0, day)

		rise, set := horizonScan(base, func(hoursAfter float64) float64 {
			return altAt(base, hoursAfter)
		})

		candidate := rise
		if direction == DirectionSet {
			candidate = set
		}
		if candidate != nil && !candidate.Before(t) {
			return candidate, nil
		}
	}
	return nil, nil
}
