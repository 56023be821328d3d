// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/skyglint/skyglint/pkg/model"
	"github.com/skyglint/skyglint/pkg/settings"
	"github.com/skyglint/skyglint/pkg/solver"
)

// MapSearchRequest describes one free search at arbitrary coordinates.
type MapSearchRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	// Elevation is the observer ground elevation in meters, zero when omitted.
	Elevation float64 `json:"elevation"`
	// Scene filters the event kinds: all, diamond or pearl. Empty defaults to all.
	Scene string `json:"scene"`
	// SearchMode selects the sweep parameters: auto, fast, balanced or precise. Empty
	// defaults to auto.
	SearchMode string `json:"searchMode"`
	// StartDate and EndDate bound the searched days, inclusive, as YYYY-MM-DD.
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// MapSearchMetadata describes how a map search was executed.
type MapSearchMetadata struct {
	DaysSearched    int   `json:"daysSearched"`
	IntervalSeconds int   `json:"intervalSeconds"`
	DurationMS      int64 `json:"durationMs"`
	EventsFound     int   `json:"eventsFound"`
}

// MapSearchResult carries the found events together with the normalized request echo and the
// execution metadata.
type MapSearchResult struct {
	Events       []FoundEvent      `json:"events"`
	SearchParams MapSearchRequest  `json:"searchParams"`
	Metadata     MapSearchMetadata `json:"metadata"`
}

// MapSearch sweeps every day of the requested range at the given coordinates. Days whose
// sweep fails or exceeds the solver budget are skipped, the remaining days still contribute.
func (s *Service) MapSearch(ctx context.Context, request MapSearchRequest) (*MapSearchResult, error) {
	start, end, err := request.normalize(s.location)
	if err != nil {
		return nil, err
	}

	opts, err := s.searchOptions(ctx, request.SearchMode, rangeDays(start, end))
	if err != nil {
		return nil, err
	}

	var (
		site = &model.Site{
			Name:      "map-search",
			Latitude:  request.Latitude,
			Longitude: request.Longitude,
			Elevation: request.Elevation,
		}

		began  = time.Now()
		events = make([]FoundEvent, 0)
		days   = 0
	)

	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		days++

		found, err := s.searchDay(ctx, site, day, request.Scene, opts)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			s.log.Warnf("Map search skipped %s: %v", day.Format("2006-01-02"), err)
			continue
		}

		for _, event := range found {
			events = append(events, FoundEvent{LocationEvent: event, Latitude: request.Latitude, Longitude: request.Longitude})
		}
	}

	return &MapSearchResult{
		Events:       events,
		SearchParams: request,
		Metadata: MapSearchMetadata{
			DaysSearched:    days,
			IntervalSeconds: int(opts.Step / time.Second),
			DurationMS:      time.Since(began).Milliseconds(),
			EventsFound:     len(events),
		},
	}, nil
}

func (s *Service) searchDay(ctx context.Context, site *model.Site, day time.Time, scene string, opts solver.Options) ([]model.LocationEvent, error) {
	switch scene {
	case SceneDiamond:
		return s.solver.FindDiamondEvents(ctx, site, day, opts)
	case ScenePearl:
		return s.solver.FindPearlEvents(ctx, site, day, opts)
	}
	return s.solver.FindEvents(ctx, site, day, opts)
}

// searchOptions derives the sweep parameters from the search mode. Auto mode keeps the
// configured tolerances and picks the step from the range length, the named modes use the
// predefined precision triples.
func (s *Service) searchOptions(ctx context.Context, mode string, days int) (solver.Options, error) {
	base := solver.OptionsFromSettings(ctx, s.settings)

	switch mode {
	case ModeFast:
		return base.WithPrecision(solver.PrecisionLow), nil
	case ModeBalanced:
		return base.WithPrecision(solver.PrecisionMedium), nil
	case ModePrecise:
		return base.WithPrecision(solver.PrecisionHigh), nil
	case ModeAuto:
		base.Step = s.autoStep(ctx, days)
		return base, nil
	}
	return solver.Options{}, fmt.Errorf("%w: unknown search mode %q", ErrInvalidRequest, mode)
}

// autoStep picks the sweep step for one searched range: longer ranges use coarser steps so
// the total work stays proportional.
func (s *Service) autoStep(ctx context.Context, days int) time.Duration {
	var (
		shortDays = s.settings.Int(ctx, settings.KeyMapSearchAutoShortDays, 180)
		longDays  = s.settings.Int(ctx, settings.KeyMapSearchAutoLongDays, 730)

		seconds int
	)

	switch {
	case days <= shortDays:
		seconds = s.settings.Int(ctx, settings.KeyMapSearchAutoShortInterval, 30)
	case days <= longDays:
		seconds = s.settings.Int(ctx, settings.KeyMapSearchAutoMediumInterval, 120)
	default:
		seconds = s.settings.Int(ctx, settings.KeyMapSearchAutoLongInterval, 300)
	}
	return time.Duration(seconds) * time.Second
}

// normalize validates the request in place, filling the scene and search mode defaults, and
// returns the parsed date bounds as local midnights.
func (r *MapSearchRequest) normalize(location *time.Location) (time.Time, time.Time, error) {
	if !(r.Latitude >= -90 && r.Latitude <= 90) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: latitude %v out of range [-90,90]", ErrInvalidRequest, r.Latitude)
	}
	if !(r.Longitude >= -180 && r.Longitude <= 180) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: longitude %v out of range [-180,180]", ErrInvalidRequest, r.Longitude)
	}
	if !(r.Elevation >= -500 && r.Elevation <= 9000) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: elevation %v out of range [-500,9000]", ErrInvalidRequest, r.Elevation)
	}

	switch r.Scene {
	case "":
		r.Scene = SceneAll
	case SceneAll, SceneDiamond, ScenePearl:
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("%w: unknown scene %q", ErrInvalidRequest, r.Scene)
	}

	switch r.SearchMode {
	case "":
		r.SearchMode = ModeAuto
	case ModeAuto, ModeFast, ModeBalanced, ModePrecise:
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("%w: unknown search mode %q", ErrInvalidRequest, r.SearchMode)
	}

	start, err := time.ParseInLocation("2006-01-02", r.StartDate, location)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start date %q is not a YYYY-MM-DD date", ErrInvalidRequest, r.StartDate)
	}
	end, err := time.ParseInLocation("2006-01-02", r.EndDate, location)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end date %q is not a YYYY-MM-DD date", ErrInvalidRequest, r.EndDate)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end date %s before start date %s", ErrInvalidRequest, r.EndDate, r.StartDate)
	}
	if days := rangeDays(start, end); days > MaxSearchRangeDays {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: date range of %d days exceeds the maximum of %d", ErrInvalidRequest, days, MaxSearchRangeDays)
	}

	return start, end, nil
}

func rangeDays(start, end time.Time) int {
	return int(end.Sub(start)/(24*time.Hour)) + 1
}
