// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package calendar assembles the read side over the event cache: monthly grids, day details
// with on-demand discovery, upcoming listings, per-site listings, yearly statistics and the
// free map search at arbitrary coordinates.
package calendar

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/skyglint/skyglint/pkg/ephemeris"
	"github.com/skyglint/skyglint/pkg/geometry"
	"github.com/skyglint/skyglint/pkg/model"
	"github.com/skyglint/skyglint/pkg/season"
	"github.com/skyglint/skyglint/pkg/settings"
	"github.com/skyglint/skyglint/pkg/solver"
	"github.com/skyglint/skyglint/pkg/storage"
	"github.com/skyglint/skyglint/pkg/utils"
)

const (
	// gridDays is the fixed cell count of a monthly view, six whole weeks starting on Sunday.
	gridDays = 42

	// DefaultUpcomingLimit applies when an upcoming query does not name a limit.
	DefaultUpcomingLimit = 50
	// MaxUpcomingLimit caps the limit of one upcoming query.
	MaxUpcomingLimit = 200
	// MaxSearchRangeDays caps the date range of one map search.
	MaxSearchRangeDays = 1095

	// discoverySampleStep is the body sampling interval of the on-demand day search.
	discoverySampleStep = 30 * time.Minute
	// discoveryMinAltitude and discoveryMaxAltitude bound the body altitudes that invert into
	// a plausible sea-level observer point.
	discoveryMinAltitude = 0.5
	discoveryMaxAltitude = 30.0
	// discoveryMaxDistance drops candidate points too far out to resolve the apex.
	discoveryMaxDistance = 60000.0
)

// Scene filter values of a map search.
const (
	SceneAll     = "all"
	SceneDiamond = "diamond"
	ScenePearl   = "pearl"
)

// Search mode values of a map search.
const (
	ModeAuto     = "auto"
	ModeFast     = "fast"
	ModeBalanced = "balanced"
	ModePrecise  = "precise"
)

// Dominant type labels of one calendar cell.
const (
	CellTypeDiamond = "diamond"
	CellTypePearl   = "pearl"
	CellTypeMixed   = "mixed"
)

// Origins of the events in a day view.
const (
	SourceCache    = "cache"
	SourceComputed = "computed"
)

// ErrInvalidRequest marks validation failures of a query, mapped to a bad-request response.
var ErrInvalidRequest = errors.New("invalid request")

// Service answers the calendar queries from the event cache, falling back to direct
// computation for days and coordinates no cache rows cover.
type Service struct {
	log      *logrus.Logger
	db       *storage.Database
	settings *settings.Store
	solver   *solver.Solver
	provider ephemeris.Provider
	apex     geometry.Apex
	location *time.Location

	skipDirect bool
}

// New creates a calendar service. With skipDirect the day view serves cache content only and
// never computes events on demand.
func New(log *logrus.Logger, db *storage.Database, settingsStore *settings.Store, alignmentSolver *solver.Solver, provider ephemeris.Provider, apex geometry.Apex, location *time.Location, skipDirect bool) *Service {
	return &Service{
		log:        log,
		db:         db,
		settings:   settingsStore,
		solver:     alignmentSolver,
		provider:   provider,
		apex:       apex,
		location:   location,
		skipDirect: skipDirect,
	}
}

// Cell is one day of the monthly grid.
type Cell struct {
	// Date is the cell day formatted as YYYY-MM-DD.
	Date string `json:"date"`
	// Type is the dominant event type label, empty for cells without events.
	Type string `json:"type"`
	// Events are the cached events of the day ordered by event time.
	Events []model.LocationEvent `json:"events"`
}

// MonthView is the fixed six-week grid around one month.
type MonthView struct {
	Year   int           `json:"year"`
	Month  int           `json:"month"`
	Season season.Season `json:"season"`
	Cells  []Cell        `json:"events"`
}

// FoundEvent is one event resolved to its observer coordinates, used where the caller needs
// a point on the map rather than a site reference.
type FoundEvent struct {
	model.LocationEvent
	SiteName  string  `json:"siteName,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DayView lists the events of one day together with their origin.
type DayView struct {
	Date   string        `json:"date"`
	Season season.Season `json:"season"`
	// Source is "cache" when the events come from pre-generated rows and "computed" when the
	// day was searched on demand.
	Source string       `json:"source"`
	Events []FoundEvent `json:"events"`
}

// Stats aggregates the cached events of one calculation year.
type Stats struct {
	Year int `json:"year"`
	storage.YearStats
}

// MonthlyCalendar builds the six-week grid around the given month. Leading and trailing days
// of the neighbouring months pad the grid to whole weeks.
func (s *Service) MonthlyCalendar(ctx context.Context, year int, month time.Month) (*MonthView, error) {
	var (
		monthStart = time.Date(year, month, 1, 0, 0, 0, 0, s.location)
		gridStart  = monthStart.AddDate(0, 0, -int(monthStart.Weekday()))
	)

	events, err := s.db.Events().ListBetween(ctx, model.Day(gridStart, s.location), model.Day(gridStart.AddDate(0, 0, gridDays-1), s.location))
	if err != nil {
		return nil, err
	}

	byDay := make(map[string][]model.LocationEvent, len(events))
	for _, event := range events {
		key := event.EventDate.Format("2006-01-02")
		byDay[key] = append(byDay[key], event)
	}

	view := &MonthView{
		Year:   year,
		Month:  int(month),
		Season: season.Of(monthStart.AddDate(0, 0, 14)),
		Cells:  make([]Cell, 0, gridDays),
	}
	for i := 0; i < gridDays; i++ {
		date := gridStart.AddDate(0, 0, i).Format("2006-01-02")
		cellEvents := byDay[date]
		if cellEvents == nil {
			cellEvents = []model.LocationEvent{}
		}
		view.Cells = append(view.Cells, Cell{Date: date, Type: dominantType(cellEvents), Events: cellEvents})
	}
	return view, nil
}

// DayEvents returns the events of one day with resolved site coordinates. Days without cache
// rows are searched on demand unless direct computation is disabled.
func (s *Service) DayEvents(ctx context.Context, day time.Time) (*DayView, error) {
	label := model.Day(day, s.location)

	cached, err := s.db.Events().ListByDay(ctx, label)
	if err != nil {
		return nil, err
	}

	view := &DayView{Date: label.Format("2006-01-02"), Season: season.Of(label), Source: SourceCache}
	if len(cached) > 0 || s.skipDirect {
		view.Events, err = s.resolveSites(ctx, cached)
		return view, err
	}

	found, err := s.discoverDay(ctx, label)
	if err != nil {
		return nil, err
	}
	view.Source = SourceComputed
	view.Events = found
	return view, nil
}

// UpcomingEvents returns the next cached events after now ordered by event time. A
// non-positive limit falls back to the default, larger limits are capped.
func (s *Service) UpcomingEvents(ctx context.Context, limit int) ([]model.LocationEvent, error) {
	if limit <= 0 {
		limit = DefaultUpcomingLimit
	}
	if limit > MaxUpcomingLimit {
		limit = MaxUpcomingLimit
	}
	return s.db.Events().ListUpcoming(ctx, time.Now(), limit)
}

// SiteEvents returns the cached events of one site in one calculation year. It fails with
// storage.ErrNotFound for unknown sites.
func (s *Service) SiteEvents(ctx context.Context, siteID uint, year int) ([]model.LocationEvent, error) {
	if _, err := s.db.Sites().Get(ctx, siteID); err != nil {
		return nil, err
	}
	return s.db.Events().ListBySiteYear(ctx, siteID, year)
}

// YearStats aggregates the cached events of one calculation year.
func (s *Service) YearStats(ctx context.Context, year int) (*Stats, error) {
	stats, err := s.db.Events().Stats(ctx, year)
	if err != nil {
		return nil, err
	}
	return &Stats{Year: year, YearStats: *stats}, nil
}

// resolveSites joins the events with their site rows to carry name and coordinates.
func (s *Service) resolveSites(ctx context.Context, events []model.LocationEvent) ([]FoundEvent, error) {
	found := make([]FoundEvent, 0, len(events))
	if len(events) == 0 {
		return found, nil
	}

	sites, err := s.db.Sites().List(ctx)
	if err != nil {
		return nil, err
	}
	byID := utils.CreateMapFromSlice(sites, func(site model.Site) uint { return site.ID })

	for _, event := range events {
		resolved := FoundEvent{LocationEvent: event}
		if site, ok := byID[event.SiteID]; ok {
			resolved.SiteName = site.Name
			resolved.Latitude = site.Latitude
			resolved.Longitude = site.Longitude
		}
		found = append(found, resolved)
	}
	return found, nil
}

type candidatePoint struct {
	body     ephemeris.Body
	lat, lon float64
}

type pointKey struct {
	body     ephemeris.Body
	lat, lon float64
}

type eventKey struct {
	lat, lon  float64
	eventType model.EventType
}

// discoverDay searches one day without cache rows. The Sun and Moon tracks over the apex are
// sampled across the local day, every sample with the body low above the horizon is inverted
// into the sea-level point that sees the body behind the apex, and the solver then checks the
// whole day at every distinct candidate point. Events landing on the same rounded coordinates
// keep the best quality score.
func (s *Service) discoverDay(ctx context.Context, label time.Time) ([]FoundEvent, error) {
	var (
		seed = time.Date(label.Year(), label.Month(), label.Day(), 12, 0, 0, 0, s.location)
		opts = solver.OptionsFromSettings(ctx, s.settings)
		best = make(map[eventKey]FoundEvent)
	)

	for _, candidate := range s.candidatePoints(label) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var (
			site = &model.Site{Name: "discovery", Latitude: candidate.lat, Longitude: candidate.lon}

			events []model.LocationEvent
			err    error
		)
		if candidate.body == ephemeris.BodySun {
			events, err = s.solver.FindDiamondEvents(ctx, site, seed, opts)
		} else {
			events, err = s.solver.FindPearlEvents(ctx, site, seed, opts)
		}
		if err != nil {
			s.log.Debugf("Day search skipped candidate (%.4f, %.4f): %v", candidate.lat, candidate.lon, err)
			continue
		}

		for _, event := range events {
			key := eventKey{lat: roundCoordinate(candidate.lat), lon: roundCoordinate(candidate.lon), eventType: event.EventType}
			if current, ok := best[key]; !ok || event.QualityScore > current.QualityScore {
				best[key] = FoundEvent{LocationEvent: event, Latitude: candidate.lat, Longitude: candidate.lon}
			}
		}
	}

	found := make([]FoundEvent, 0, len(best))
	for _, event := range best {
		found = append(found, event)
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].EventTime.Equal(found[j].EventTime) {
			return found[i].EventType < found[j].EventType
		}
		return found[i].EventTime.Before(found[j].EventTime)
	})
	return found, nil
}

// candidatePoints samples the Sun and Moon across the local day and inverts each low body
// position into an observer candidate. Samples of the same body landing on the same rounded
// coordinates collapse into one candidate.
func (s *Service) candidatePoints(label time.Time) []candidatePoint {
	var (
		start = time.Date(label.Year(), label.Month(), label.Day(), 0, 0, 0, 0, s.location)
		end   = start.AddDate(0, 0, 1)

		seen   = make(map[pointKey]struct{})
		points []candidatePoint
	)

	for t := start; t.Before(end); t = t.Add(discoverySampleStep) {
		if sun, err := s.provider.SunPosition(t, s.apex.Latitude, s.apex.Longitude); err == nil {
			points = s.appendCandidate(points, seen, ephemeris.BodySun, sun.Azimuth, sun.Altitude)
		} else {
			s.log.Debugf("Day search skipped sun sample at %s: %v", t.Format(time.RFC3339), err)
		}

		if moon, err := s.provider.MoonPosition(t, s.apex.Latitude, s.apex.Longitude); err == nil {
			points = s.appendCandidate(points, seen, ephemeris.BodyMoon, moon.Azimuth, moon.Altitude)
		} else {
			s.log.Debugf("Day search skipped moon sample at %s: %v", t.Format(time.RFC3339), err)
		}
	}
	return points
}

func (s *Service) appendCandidate(points []candidatePoint, seen map[pointKey]struct{}, body ephemeris.Body, azimuth, altitude float64) []candidatePoint {
	if altitude < discoveryMinAltitude || altitude > discoveryMaxAltitude {
		return points
	}

	lat, lon, distance, err := geometry.ObserverPoint(s.apex, azimuth, altitude)
	if err != nil || distance > discoveryMaxDistance {
		return points
	}

	key := pointKey{body: body, lat: roundCoordinate(lat), lon: roundCoordinate(lon)}
	if _, ok := seen[key]; ok {
		return points
	}
	seen[key] = struct{}{}

	return append(points, candidatePoint{body: body, lat: lat, lon: lon})
}

// roundCoordinate reduces a coordinate to three decimals, about 110 m of latitude, for
// merging nearby observer points.
func roundCoordinate(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func dominantType(events []model.LocationEvent) string {
	var diamond, pearl bool
	for _, event := range events {
		diamond = diamond || event.EventType.IsDiamond()
		pearl = pearl || event.EventType.IsPearl()
	}

	switch {
	case diamond && pearl:
		return CellTypeMixed
	case diamond:
		return CellTypeDiamond
	case pearl:
		return CellTypePearl
	}
	return ""
}
