// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

package ephemeris

import (
	"fmt"
	"math"
	"time"
)

// suncalcProvider computes positions with the low-order series of the suncalc algorithm family
// (https://github.com/mourner/suncalc, based on http://aa.quae.nl/en/reken/hemelpositie.html).
// It is the default provider. Accuracy is in the arc-minute range which is well below the
// tightest alignment tolerance, and its numbers match the calendars users compare against.
type suncalcProvider struct{}

// NewSuncalcProvider returns the default low-order ephemeris provider.
func NewSuncalcProvider() Provider {
	return suncalcProvider{}
}

// Name implements Provider.
func (suncalcProvider) Name() string {
	return "suncalc"
}

const (
	rad = math.Pi / 180

	dayMs = 1000 * 60 * 60 * 24
	j1970 = 2440588
	j2000 = 2451545

	// obliquity of the Earth
	obliquity = rad * 23.4397

	// sunDistanceKm is the mean Earth-Sun distance used by the moon illumination formulas.
	sunDistanceKm = 149598000.0

	// moonCrossingAltitude is the refracted altitude in radians at which the upper limb of the
	// Moon touches the horizon.
	moonCrossingAltitude = 0.133 * rad

	// sunCrossingAltitude is the geometric altitude of the Sun center at rise and set, accounting
	// for refraction and the solar semidiameter.
	sunCrossingAltitude = -0.833 * rad
)

func toJulian(t time.Time) float64 {
	return float64(t.UnixMilli())/dayMs - 0.5 + j1970
}

func fromJulian(j float64) time.Time {
	return time.UnixMilli(int64((j + 0.5 - j1970) * dayMs))
}

func toDays(t time.Time) float64 {
	return toJulian(t) - j2000
}

func rightAscension(l, b float64) float64 {
	return math.Atan2(math.Sin(l)*math.Cos(obliquity)-math.Tan(b)*math.Sin(obliquity), math.Cos(l))
}

func declination(l, b float64) float64 {
	return math.Asin(math.Sin(b)*math.Cos(obliquity) + math.Cos(b)*math.Sin(obliquity)*math.Sin(l))
}

// azimuthRad returns the azimuth in radians measured from south, west positive.
func azimuthRad(H, phi, dec float64) float64 {
	return math.Atan2(math.Sin(H), math.Cos(H)*math.Sin(phi)-math.Tan(dec)*math.Cos(phi))
}

func altitudeRad(H, phi, dec float64) float64 {
	return math.Asin(math.Sin(phi)*math.Sin(dec) + math.Cos(phi)*math.Cos(dec)*math.Cos(H))
}

func siderealTime(d, lw float64) float64 {
	return rad*(280.16+360.9856235*d) - lw
}

// astroRefraction returns the refraction correction in radians for the given apparent altitude in
// radians, following formula 16.4 of Meeus, Astronomical Algorithms (2nd ed.).
func astroRefraction(h float64) float64 {
	if h < 0 {
		// the formula works for positive altitudes only
		h = 0
	}
	// 1.02 / tan(h + 10.26 / (h + 5.10)), h in degrees, result in arc minutes, converted to rad
	return 0.0002967 / math.Tan(h+0.00312536/(h+0.08901179))
}

func solarMeanAnomaly(d float64) float64 {
	return rad * (357.5291 + 0.98560028*d)
}

func eclipticLongitude(m float64) float64 {
	var (
		// equation of center
		c = rad * (1.9148*math.Sin(m) + 0.02*math.Sin(2*m) + 0.0003*math.Sin(3*m))
		// perihelion of the Earth
		p = rad * 102.9372
	)
	return m + c + p + math.Pi
}

type equatorial struct {
	ra, dec float64
}

func sunCoords(d float64) equatorial {
	var (
		m = solarMeanAnomaly(d)
		l = eclipticLongitude(m)
	)
	return equatorial{ra: rightAscension(l, 0), dec: declination(l, 0)}
}

// sunDistanceAU approximates the Earth-Sun distance in astronomical units from the solar mean
// anomaly.
func sunDistanceAU(m float64) float64 {
	return 1.00014 - 0.01671*math.Cos(m) - 0.00014*math.Cos(2*m)
}

type lunar struct {
	ra, dec, distance float64
}

// moonCoords returns geocentric equatorial coordinates of the moon, distance in kilometers.
func moonCoords(d float64) lunar {
	var (
		l = rad * (218.316 + 13.176396*d) // ecliptic longitude
		m = rad * (134.963 + 13.064993*d) // mean anomaly
		f = rad * (93.272 + 13.229350*d)  // mean distance

		lng  = l + rad*6.289*math.Sin(m)
		lat  = rad * 5.128 * math.Sin(f)
		dist = 385001 - 20905*math.Cos(m)
	)
	return lunar{ra: rightAscension(lng, lat), dec: declination(lng, lat), distance: dist}
}

// moonPhase returns the lunar phase in [0,1), 0 = new moon, 0.5 = full moon, following the
// illumination formulas of Meeus chapter 48.
func moonPhase(d float64) float64 {
	var (
		s = sunCoords(d)
		m = moonCoords(d)

		phi = math.Acos(math.Sin(s.dec)*math.Sin(m.dec) + math.Cos(s.dec)*math.Cos(m.dec)*math.Cos(s.ra-m.ra))
		inc = math.Atan2(sunDistanceKm*math.Sin(phi), m.distance-sunDistanceKm*math.Cos(phi))
		ang = math.Atan2(math.Cos(s.dec)*math.Sin(s.ra-m.ra), math.Sin(s.dec)*math.Cos(m.dec)-math.Cos(s.dec)*math.Sin(m.dec)*math.Cos(s.ra-m.ra))
	)

	sign := 1.0
	if ang < 0 {
		sign = -1
	}
	return 0.5 + 0.5*inc*sign/math.Pi
}

// SunPosition implements Provider.
func (suncalcProvider) SunPosition(t time.Time, lat, lon float64) (SunPosition, error) {
	var (
		lw  = rad * -lon
		phi = rad * lat
		d   = toDays(t)

		m = solarMeanAnomaly(d)
		c = sunCoords(d)
		h = siderealTime(d, lw) - c.ra
	)

	altitude := altitudeRad(h, phi, c.dec)
	altitude += astroRefraction(altitude)

	position := SunPosition{
		Azimuth:  normalizeDegrees(azimuthRad(h, phi, c.dec)/rad + 180),
		Altitude: altitude / rad,
		Distance: sunDistanceAU(m),
	}
	if !finite(position.Azimuth, position.Altitude, position.Distance) {
		return SunPosition{}, fmt.Errorf("%w: sun position at %s for (%v,%v)", ErrNotFinite, t.Format(time.RFC3339), lat, lon)
	}
	return position, nil
}

// MoonPosition implements Provider.
func (suncalcProvider) MoonPosition(t time.Time, lat, lon float64) (MoonPosition, error) {
	var (
		lw  = rad * -lon
		phi = rad * lat
		d   = toDays(t)

		c = moonCoords(d)
		h = siderealTime(d, lw) - c.ra
	)

	altitude := altitudeRad(h, phi, c.dec)
	altitude += astroRefraction(altitude)

	phase := normalizeDegrees(moonPhase(d) * 360)

	position := MoonPosition{
		Azimuth:      normalizeDegrees(azimuthRad(h, phi, c.dec)/rad + 180),
		Altitude:     altitude / rad,
		Distance:     c.distance,
		Phase:        phase,
		Illumination: illuminationFromPhase(phase),
	}
	if !finite(position.Azimuth, position.Altitude, position.Distance, position.Phase) {
		return MoonPosition{}, fmt.Errorf("%w: moon position at %s for (%v,%v)", ErrNotFinite, t.Format(time.RFC3339), lat, lon)
	}
	return position, nil
}

// RiseSet implements Provider.
func (p suncalcProvider) RiseSet(body Body, t time.Time, lat, lon float64, direction Direction, searchDays int) (*time.Time, error) {
	if direction != DirectionRise && direction != DirectionSet {
		return nil, fmt.Errorf("unknown direction %q", direction)
	}
	if searchDays < 1 {
		searchDays = 1
	}

	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	for day := 0; day <= searchDays; day++ {
		base := start.AddDate(0, 0, day)

		var rise, set *time.Time
		switch body {
		case BodySun:
			rise, set = p.sunCrossings(base, lat, lon)
		case BodyMoon:
			rise, set = horizonScan(base, func(hoursAfter float64) float64 {
				position, err := p.MoonPosition(base.Add(time.Duration(hoursAfter*float64(time.Hour))), lat, lon)
				if err != nil {
					return math.NaN()
				}
				return position.Altitude*rad - moonCrossingAltitude
			})
		default:
			return nil, fmt.Errorf("unknown body %q", body)
		}

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

// sunCrossings returns sunrise and sunset for the day starting at base, using the analytic
// transit based approach of suncalc. Either value is nil when the sun does not cross the horizon
// on that day.
func (suncalcProvider) sunCrossings(base time.Time, lat, lon float64) (*time.Time, *time.Time) {
	const j0 = 0.0009

	var (
		lw  = rad * -lon
		phi = rad * lat
		d   = toDays(base)

		n  = math.Round(d - j0 - lw/(2*math.Pi))
		ds = j0 + lw/(2*math.Pi) + n

		m   = solarMeanAnomaly(ds)
		l   = eclipticLongitude(m)
		dec = declination(l, 0)

		jnoon = j2000 + ds + 0.0053*math.Sin(m) - 0.0069*math.Sin(2*l)
	)

	// hour angle under which the sun center stands at the crossing altitude
	w := math.Acos((math.Sin(sunCrossingAltitude) - math.Sin(phi)*math.Sin(dec)) / (math.Cos(phi) * math.Cos(dec)))
	if math.IsNaN(w) {
		// polar day or night
		return nil, nil
	}

	var (
		jset  = j2000 + (j0 + (w+lw)/(2*math.Pi) + n) + 0.0053*math.Sin(m) - 0.0069*math.Sin(2*l)
		jrise = jnoon - (jset - jnoon)

		rise = fromJulian(jrise).In(base.Location())
		set  = fromJulian(jset).In(base.Location())
	)
	return &rise, &set
}

// horizonScan finds the rise and set instants of a body within the 24 hours following base. It
// samples the given threshold-adjusted altitude function in one hour steps and fits a quadratic
// through each triple of samples, following the approach of
// http://www.stargazing.net/kepler/moonrise.html. Either result is nil when the body does not
// cross the threshold (always up or always down).
func horizonScan(base time.Time, altAt func(hoursAfter float64) float64) (*time.Time, *time.Time) {
	var (
		h0          = altAt(0)
		riseH, setH float64
		haveRise    bool
		haveSet     bool
	)

	for i := 1; i <= 23; i += 2 {
		var (
			h1 = altAt(float64(i))
			h2 = altAt(float64(i + 1))

			a  = (h0+h2)/2 - h1
			b  = (h2 - h0) / 2
			xe = -b / (2 * a)
			ye = (a*xe+b)*xe + h1
			dc = b*b - 4*a*h1

			roots  int
			x1, x2 float64
		)

		if dc >= 0 {
			dx := math.Sqrt(dc) / (math.Abs(a) * 2)
			x1 = xe - dx
			x2 = xe + dx
			if math.Abs(x1) <= 1 {
				roots++
			}
			if math.Abs(x2) <= 1 {
				roots++
			}
			if x1 < -1 {
				x1 = x2
			}
		}

		switch roots {
		case 1:
			if h0 < 0 {
				riseH, haveRise = float64(i)+x1, true
			} else {
				setH, haveSet = float64(i)+x1, true
			}
		case 2:
			if ye < 0 {
				riseH, haveRise = float64(i)+x2, true
				setH, haveSet = float64(i)+x1, true
			} else {
				riseH, haveRise = float64(i)+x1, true
				setH, haveSet = float64(i)+x2, true
			}
		}

		if haveRise && haveSet {
			break
		}
		h0 = h2
	}

	var rise, set *time.Time
	if haveRise {
		at := base.Add(time.Duration(riseH * float64(time.Hour)))
		rise = &at
	}
	if haveSet {
		at := base.Add(time.Duration(setH * float64(time.Hour)))
		set = &at
	}
	return rise, set
}
