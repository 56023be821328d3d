// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package solver finds the instants at which a celestial body lines up with the apex as seen
// from a ground site. It sweeps a search window at a configurable step, accepts instants inside
// the azimuth and elevation tolerances, groups them by elevation band and rise/set class and
// keeps the best candidate per group. The solver is stateless per call; failures are local to
// one site and day.
package solver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/skyglint/skyglint/pkg/ephemeris"
	"github.com/skyglint/skyglint/pkg/geometry"
	"github.com/skyglint/skyglint/pkg/metrics"
	"github.com/skyglint/skyglint/pkg/model"
)

const (
	// maxSunAltitude bounds the admissible Sun altitude band in degrees.
	maxSunAltitude = 35.0
	// maxMoonAltitude bounds the admissible Moon altitude band in degrees.
	maxMoonAltitude = 65.0
	// minVisibleAltitude rejects instants at which the body sits too far below the horizon.
	minVisibleAltitude = -6.0
	// elevationBandWidth is the width of one altitude band in degrees.
	elevationBandWidth = 5.0
	// pearlWindowHalf is the half width of the search window around a moon rise or set.
	pearlWindowHalf = 6 * time.Hour
	// classificationOffset is the probe distance for the altitude-delta rise/set classification.
	classificationOffset = 10 * time.Minute
	// budgetCheckInterval is the sweep step cadence at which context and budget are checked.
	budgetCheckInterval = 64
)

// ErrSweepBudgetExceeded is returned when the sweeps of one site and day exceed their
// wall-clock budget. Callers log it and continue with the next day.
var ErrSweepBudgetExceeded = errors.New("sweep budget exceeded")

// Solver computes alignment events for sites observing the configured apex.
type Solver struct {
	log      logrus.FieldLogger
	provider ephemeris.Provider
	apex     geometry.Apex
	location *time.Location
}

// New returns a solver for the given apex. The location fixes the calendar days the solver
// labels events with.
func New(log logrus.FieldLogger, provider ephemeris.Provider, apex geometry.Apex, location *time.Location) *Solver {
	return &Solver{
		log:      log,
		provider: provider,
		apex:     apex,
		location: location,
	}
}

// FindEvents computes all diamond and pearl events of one site on one calendar day.
func (s *Solver) FindEvents(ctx context.Context, site *model.Site, day time.Time, opts Options) ([]model.LocationEvent, error) {
	diamonds, err := s.FindDiamondEvents(ctx, site, day, opts)
	if err != nil {
		return nil, err
	}

	pearls, err := s.FindPearlEvents(ctx, site, day, opts)
	if err != nil {
		return nil, err
	}

	events := append(diamonds, pearls...)
	sortEvents(events)
	return events, nil
}

// FindDiamondEvents computes the Sun alignments of one site on one calendar day. The search
// window is the full local day since high-rise alignments can occur at any sun altitude.
func (s *Solver) FindDiamondEvents(ctx context.Context, site *model.Site, day time.Time, opts Options) ([]model.LocationEvent, error) {
	opts = opts.normalized()

	sight, err := s.sightline(site)
	if err != nil {
		return nil, err
	}

	label, start, end := s.dayBounds(day)
	deadline := time.Now().Add(opts.MaxSweepDuration)

	candidates, err := s.sweep(ctx, ephemeris.BodySun, site, sight, window{start, end}, opts, deadline)
	if err != nil {
		return nil, err
	}

	return s.buildEvents(ephemeris.BodySun, site, label, sight, candidates, opts), nil
}

// FindPearlEvents computes the Moon alignments of one site on one calendar day. The search
// windows surround the day's moon rise and moon set, falling back to the two half days when no
// crossing is found.
func (s *Solver) FindPearlEvents(ctx context.Context, site *model.Site, day time.Time, opts Options) ([]model.LocationEvent, error) {
	opts = opts.normalized()

	sight, err := s.sightline(site)
	if err != nil {
		return nil, err
	}

	label, start, end := s.dayBounds(day)
	deadline := time.Now().Add(opts.MaxSweepDuration)

	var candidates []candidate
	for _, w := range s.pearlWindows(site, start, end) {
		found, err := s.sweep(ctx, ephemeris.BodyMoon, site, sight, w, opts, deadline)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, found...)
	}

	return s.buildEvents(ephemeris.BodyMoon, site, label, sight, candidates, opts), nil
}

// sightline returns the site's cached geometry triple, computing it when not all fields are
// cached.
func (s *Solver) sightline(site *model.Site) (geometry.Sightline, error) {
	if site.HasSightline() {
		return geometry.Sightline{
			Azimuth:   *site.AzimuthToApex,
			Elevation: *site.ElevationToApex,
			Distance:  *site.DistanceToApex,
		}, nil
	}
	return geometry.SightlineToApex(site.Latitude, site.Longitude, site.Elevation, s.apex)
}

// dayBounds returns the calendar day label and the local start and end of the day containing
// the given instant.
func (s *Solver) dayBounds(day time.Time) (time.Time, time.Time, time.Time) {
	local := day.In(s.location)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.location)
	return model.Day(day, s.location), start, start.AddDate(0, 0, 1)
}

// window is a half-open search interval [start, end).
type window struct {
	start time.Time
	end   time.Time
}

// pearlWindows returns the moon search windows of the day, clamped to the day bounds.
func (s *Solver) pearlWindows(site *model.Site, start, end time.Time) []window {
	var (
		windows []window
		half    = start.Add(end.Sub(start) / 2)
	)

	rise, err := s.provider.RiseSet(ephemeris.BodyMoon, start, site.Latitude, site.Longitude, ephemeris.DirectionRise, 1)
	if err != nil {
		s.log.WithField("site", site.ID).Debugf("Moon rise search failed, falling back to the first half day: %v", err)
	}
	if err != nil || rise == nil {
		windows = append(windows, window{start, half})
	} else {
		windows = append(windows, clampWindow(rise.Add(-pearlWindowHalf), rise.Add(pearlWindowHalf), start, end))
	}

	set, err := s.provider.RiseSet(ephemeris.BodyMoon, start, site.Latitude, site.Longitude, ephemeris.DirectionSet, 1)
	if err != nil {
		s.log.WithField("site", site.ID).Debugf("Moon set search failed, falling back to the second half day: %v", err)
	}
	if err != nil || set == nil {
		windows = append(windows, window{half, end})
	} else {
		windows = append(windows, clampWindow(set.Add(-pearlWindowHalf), set.Add(pearlWindowHalf), start, end))
	}

	result := windows[:0]
	for _, w := range windows {
		if w.start.Before(w.end) {
			result = append(result, w)
		}
	}
	return result
}

func clampWindow(start, end, lower, upper time.Time) window {
	if start.Before(lower) {
		start = lower
	}
	if end.After(upper) {
		end = upper
	}
	return window{start, end}
}

// riseSetClass partitions candidates into ascending and descending alignments.
type riseSetClass string

const (
	classRising  riseSetClass = "rising"
	classSetting riseSetClass = "setting"
)

// candidate is one accepted sweep instant.
type candidate struct {
	instant       time.Time
	azimuth       float64
	altitude      float64
	azimuthDiff   float64
	elevationDiff float64
	phase         float64
	illumination  float64
	class         riseSetClass
	band          int
}

// totalScore ranks candidates within a group. Elevation misses weigh double because the apex is
// a fixed height, so small vertical misses matter more than azimuth misses.
func (c candidate) totalScore() float64 {
	return c.azimuthDiff + 2*c.elevationDiff
}

// sweep walks the window at the configured step and collects all instants inside the
// tolerances. Position errors skip the instant; exceeding the wall-clock budget aborts.
func (s *Solver) sweep(ctx context.Context, body ephemeris.Body, site *model.Site, sight geometry.Sightline, w window, opts Options, deadline time.Time) ([]candidate, error) {
	if !w.start.Before(w.end) {
		return nil, nil
	}
	defer func(begun time.Time) {
		metrics.SweepDuration.Observe(time.Since(begun).Seconds())
	}(time.Now())

	var (
		candidates  []candidate
		skipped     int
		steps       int
		maxAltitude = maxAltitudeFor(body)
	)

	for t := w.start; t.Before(w.end); t = t.Add(opts.Step) {
		if steps%budgetCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if time.Now().After(deadline) {
				return nil, fmt.Errorf("%w: site %d, day %s", ErrSweepBudgetExceeded, site.ID, w.start.Format("2006-01-02"))
			}
		}
		steps++

		azimuth, altitude, phase, illumination, err := s.position(body, t, site)
		if err != nil {
			skipped++
			continue
		}
		if altitude <= minVisibleAltitude {
			continue
		}

		azimuthDiff := geometry.AzimuthDifference(azimuth, sight.Azimuth)
		if azimuthDiff > opts.AzimuthTolerance {
			continue
		}

		elevationDiff := elevationOvershoot(altitude, maxAltitude)
		if elevationDiff > opts.ElevationTolerance {
			continue
		}

		candidates = append(candidates, candidate{
			instant:       t,
			azimuth:       azimuth,
			altitude:      altitude,
			azimuthDiff:   azimuthDiff,
			elevationDiff: elevationDiff,
			phase:         phase,
			illumination:  illumination,
			class:         s.classify(body, t, site, sight.Azimuth),
			band:          elevationBand(altitude, maxAltitude),
		})
	}

	if skipped > 0 {
		s.log.WithFields(logrus.Fields{
			"site": site.ID,
			"body": body,
		}).Debugf("Skipped %d sweep instants due to ephemeris errors", skipped)
	}
	return candidates, nil
}

func (s *Solver) position(body ephemeris.Body, t time.Time, site *model.Site) (float64, float64, float64, float64, error) {
	if body == ephemeris.BodyMoon {
		position, err := s.provider.MoonPosition(t, site.Latitude, site.Longitude)
		if err != nil {
			return 0, 0, 0, 0, err
		}
		return position.Azimuth, position.Altitude, position.Phase, position.Illumination, nil
	}

	position, err := s.provider.SunPosition(t, site.Latitude, site.Longitude)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	return position.Azimuth, position.Altitude, 0, 0, nil
}

// classify determines the rise/set class of a candidate. The Sun is classified by the apex
// bearing alone. The Moon is classified by the sign of its altitude change around the instant,
// falling back to the bearing when the probes fail or are inconclusive.
func (s *Solver) classify(body ephemeris.Body, instant time.Time, site *model.Site, apexAzimuth float64) riseSetClass {
	if body == ephemeris.BodyMoon {
		before, errBefore := s.provider.MoonPosition(instant.Add(-classificationOffset), site.Latitude, site.Longitude)
		after, errAfter := s.provider.MoonPosition(instant.Add(classificationOffset), site.Latitude, site.Longitude)

		if errBefore == nil && errAfter == nil && after.Altitude != before.Altitude {
			if after.Altitude > before.Altitude {
				return classRising
			}
			return classSetting
		}
	}

	if apexAzimuth < 180 {
		return classRising
	}
	return classSetting
}

// buildEvents keeps the best candidate per (elevation band, rise/set class) group and turns the
// winners into events.
func (s *Solver) buildEvents(body ephemeris.Body, site *model.Site, label time.Time, sight geometry.Sightline, candidates []candidate, opts Options) []model.LocationEvent {
	type groupKey struct {
		band  int
		class riseSetClass
	}

	best := make(map[groupKey]candidate)
	for _, c := range candidates {
		key := groupKey{band: c.band, class: c.class}
		if current, ok := best[key]; !ok || c.totalScore() < current.totalScore() {
			best[key] = c
		}
	}

	var events []model.LocationEvent
	for _, c := range best {
		if body == ephemeris.BodyMoon && c.illumination < opts.MinMoonIllumination {
			continue
		}

		accuracy := opts.AccuracyThresholds.Classify(c.azimuthDiff).
			Worse(opts.ElevationAccuracyThresholds.Classify(math.Abs(c.elevationDiff)))

		event := model.LocationEvent{
			SiteID:          site.ID,
			EventDate:       label,
			EventTime:       c.instant.UTC(),
			EventType:       eventTypeOf(body, c.class),
			Azimuth:         c.azimuth,
			Altitude:        sight.Elevation,
			QualityScore:    qualityScore(c.azimuthDiff, opts.AzimuthTolerance, c.altitude),
			Accuracy:        accuracy,
			CalculationYear: label.Year(),
		}

		if body == ephemeris.BodyMoon {
			phase, illumination := c.phase, c.illumination
			event.MoonPhase = &phase
			event.MoonIllumination = &illumination
		}

		events = append(events, event)
	}

	sortEvents(events)
	return events
}

func sortEvents(events []model.LocationEvent) {
	sort.Slice(events, func(i, j int) bool {
		if !events[i].EventTime.Equal(events[j].EventTime) {
			return events[i].EventTime.Before(events[j].EventTime)
		}
		return events[i].EventType < events[j].EventType
	})
}

func eventTypeOf(body ephemeris.Body, class riseSetClass) model.EventType {
	if body == ephemeris.BodyMoon {
		if class == classRising {
			return model.EventTypePearlRising
		}
		return model.EventTypePearlSetting
	}
	if class == classRising {
		return model.EventTypeDiamondSunrise
	}
	return model.EventTypeDiamondSunset
}

func maxAltitudeFor(body ephemeris.Body) float64 {
	if body == ephemeris.BodyMoon {
		return maxMoonAltitude
	}
	return maxSunAltitude
}

// elevationOvershoot is zero while the altitude sits inside the admissible band [0, maxAltitude]
// and the signed overshoot outside of it.
func elevationOvershoot(altitude, maxAltitude float64) float64 {
	switch {
	case altitude < 0:
		return altitude
	case altitude > maxAltitude:
		return altitude - maxAltitude
	default:
		return 0
	}
}

// elevationBand buckets an altitude into its 5 degree band, capped at the admissible maximum.
func elevationBand(altitude, maxAltitude float64) int {
	return int(math.Floor(math.Min(altitude, maxAltitude) / elevationBandWidth))
}

// qualityScore rates how centered and how high an alignment is on a 0-100 scale.
func qualityScore(azimuthDiff, azimuthTolerance, altitude float64) int {
	var azimuthComponent float64
	if azimuthTolerance > 0 {
		azimuthComponent = math.Max(0, 50-50*azimuthDiff/azimuthTolerance)
	}

	visibilityComponent := math.Min(30, math.Max(0, altitude+2)*15)
	altitudeComponent := math.Min(20, math.Max(0, altitude)*2)

	return int(math.Round(azimuthComponent + visibilityComponent + altitudeComponent))
}
