// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package eventcache populates the location event cache. It runs the alignment
// solver across calendar scopes (year, month, day) and replaces the stored
// rows of each scope in a single transaction, so every generation is
// idempotent and safe to retry.
package eventcache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/skyglint/skyglint/pkg/geometry"
	"github.com/skyglint/skyglint/pkg/logger"
	"github.com/skyglint/skyglint/pkg/metrics"
	"github.com/skyglint/skyglint/pkg/model"
	"github.com/skyglint/skyglint/pkg/settings"
	"github.com/skyglint/skyglint/pkg/solver"
	"github.com/skyglint/skyglint/pkg/storage"
	"github.com/skyglint/skyglint/pkg/utils/flow"
)

const (
	// siteBatchSize is the number of sites worked on in parallel by the multi-site entry points.
	siteBatchSize = 5
	// progressSiteInterval is the number of finished sites between two progress log lines.
	progressSiteInterval = 5
	// progressEventInterval is the number of computed events between two progress log lines.
	progressEventInterval = 100
)

// Generator computes location events and stores them in the event cache.
type Generator struct {
	log      *logrus.Logger
	sites    *storage.SiteRepository
	events   *storage.EventRepository
	settings *settings.Store
	solver   *solver.Solver
	location *time.Location
}

// New creates a new Generator working on the given database in the given observer timezone.
func New(log *logrus.Logger, db *storage.Database, settingsStore *settings.Store, alignmentSolver *solver.Solver, location *time.Location) *Generator {
	return &Generator{
		log:      log,
		sites:    db.Sites(),
		events:   db.Events(),
		settings: settingsStore,
		solver:   alignmentSolver,
		location: location,
	}
}

// Summary describes the outcome of a multi-site generation run.
type Summary struct {
	// Sites is the number of sites that were processed.
	Sites int `json:"sites"`
	// Failed is the number of sites whose generation returned an error.
	Failed int `json:"failed"`
	// Events is the total number of events written for the successful sites.
	Events int `json:"events"`
}

// GenerateLocationCache recomputes all events of one site for one calculation year.
// The year scope is cleared and refilled within a single transaction. It returns
// the number of events written. Days whose sweep fails are skipped and reported
// in the returned error; the remaining days are still persisted.
func (g *Generator) GenerateLocationCache(ctx context.Context, siteID uint, year int) (int, error) {
	site, log, err := g.site(ctx, siteID)
	if err != nil {
		return 0, err
	}

	from := time.Date(year, time.January, 1, 0, 0, 0, 0, g.location)
	events, solveErr := g.generateDays(ctx, log, site, from, from.AddDate(1, 0, 0))
	if solveErr != nil && len(events) == 0 {
		return 0, solveErr
	}

	if err := g.events.ReplaceYear(ctx, site.ID, year, events, g.batchSize(ctx)); err != nil {
		return 0, multierror.Append(solveErr, err)
	}
	metrics.EventsGenerated.Add(float64(len(events)))

	log.Infof("Cached %d events for year %d", len(events), year)
	return len(events), solveErr
}

// GenerateLocationMonthCache recomputes all events of one site for one month.
func (g *Generator) GenerateLocationMonthCache(ctx context.Context, siteID uint, year int, month time.Month) (int, error) {
	site, log, err := g.site(ctx, siteID)
	if err != nil {
		return 0, err
	}

	from := time.Date(year, month, 1, 0, 0, 0, 0, g.location)
	events, solveErr := g.generateDays(ctx, log, site, from, from.AddDate(0, 1, 0))
	if solveErr != nil && len(events) == 0 {
		return 0, solveErr
	}

	if err := g.events.ReplaceMonth(ctx, site.ID, year, month, events, g.batchSize(ctx)); err != nil {
		return 0, multierror.Append(solveErr, err)
	}
	metrics.EventsGenerated.Add(float64(len(events)))

	log.Infof("Cached %d events for %d-%02d", len(events), year, month)
	return len(events), solveErr
}

// GenerateLocationDayCache recomputes the events of one site for a single day
// and returns them. The solver is seeded with the day-local noon so that the
// computed window is unambiguous across timezone and DST boundaries.
func (g *Generator) GenerateLocationDayCache(ctx context.Context, siteID uint, year int, month time.Month, day int) ([]model.LocationEvent, error) {
	site, log, err := g.site(ctx, siteID)
	if err != nil {
		return nil, err
	}

	seed := time.Date(year, month, day, 12, 0, 0, 0, g.location)
	events, err := g.solver.FindEvents(ctx, site, seed, g.options(ctx))
	if err != nil {
		return nil, fmt.Errorf("computing events for site %d on %04d-%02d-%02d: %w", siteID, year, month, day, err)
	}

	if err := g.events.ReplaceDay(ctx, site.ID, model.Day(seed, g.location), events, g.batchSize(ctx)); err != nil {
		return nil, err
	}
	metrics.EventsGenerated.Add(float64(len(events)))

	log.Debugf("Cached %d events for %04d-%02d-%02d", len(events), year, month, day)
	return events, nil
}

// GenerateLocationRange recomputes a consecutive range of calculation years for
// one site, pacing consecutive years by the processing_delay_ms setting. Years
// with partial day failures are persisted and reported; the range continues.
func (g *Generator) GenerateLocationRange(ctx context.Context, siteID uint, startYear, endYear int) (int, error) {
	if endYear < startYear {
		return 0, fmt.Errorf("invalid year range [%d, %d]", startYear, endYear)
	}

	var (
		delay    = time.Duration(g.settings.Int(ctx, settings.KeyProcessingDelayMS, 500)) * time.Millisecond
		limiter  = rate.NewLimiter(rate.Every(delay), 1)
		failures *multierror.Error
		total    int
	)

	for year := startYear; year <= endYear; year++ {
		if err := limiter.Wait(ctx); err != nil {
			return total, err
		}

		count, err := g.GenerateLocationCache(ctx, siteID, year)
		total += count
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, geometry.ErrInvalidGeometry) || errors.Is(err, storage.ErrNotFound) {
				return total, err
			}
			failures = multierror.Append(failures, fmt.Errorf("year %d: %w", year, err))
		}
	}

	return total, failures.ErrorOrNil()
}

// GenerateAllLocations recomputes one calculation year for every given site.
// Sites are worked on in parallel batches of five; a failing site does not stop
// the remaining ones. Progress is logged in coarse batches.
func (g *Generator) GenerateAllLocations(ctx context.Context, siteIDs []uint, year int) (*Summary, error) {
	return g.generateBatched(ctx, siteIDs, fmt.Sprintf("year %d", year), func(ctx context.Context, siteID uint) (int, error) {
		return g.GenerateLocationCache(ctx, siteID, year)
	})
}

// GenerateAllLocationsMonth recomputes one month for every given site, with the
// same batching as GenerateAllLocations.
func (g *Generator) GenerateAllLocationsMonth(ctx context.Context, siteIDs []uint, year int, month time.Month) (*Summary, error) {
	return g.generateBatched(ctx, siteIDs, fmt.Sprintf("month %d-%02d", year, month), func(ctx context.Context, siteID uint) (int, error) {
		return g.GenerateLocationMonthCache(ctx, siteID, year, month)
	})
}

func (g *Generator) generateBatched(ctx context.Context, siteIDs []uint, scope string, generate func(context.Context, uint) (int, error)) (*Summary, error) {
	var (
		log = logger.NewFieldLogger(g.log, "correlationID", uuid.New().String())

		mutex   sync.Mutex
		summary Summary
	)

	tasks := make([]flow.TaskFn, 0, len(siteIDs))
	for _, siteID := range siteIDs {
		id := siteID
		tasks = append(tasks, func(ctx context.Context) error {
			count, err := generate(ctx, id)

			mutex.Lock()
			summary.Sites++
			summary.Events += count
			if err != nil {
				summary.Failed++
			}
			processed := summary.Sites
			events := summary.Events
			mutex.Unlock()

			if processed%progressSiteInterval == 0 || processed == len(siteIDs) {
				log.Infof("Generated %s for %d/%d sites (%d events)", scope, processed, len(siteIDs), events)
			}
			if err != nil {
				return fmt.Errorf("site %d: %w", id, err)
			}
			return nil
		})
	}

	submitter := flow.NewLimitSubmitter(flow.UnlimitedSubmitter, siteBatchSize)
	submitter.Start()
	defer submitter.Stop()

	err := flow.ParallelWithSubmitter(submitter, tasks...)(ctx)
	return &summary, err
}

// generateDays runs the solver for every day in [from, to) and collects the
// events. Aborting conditions (cancelled context, invalid geometry) fail the
// whole span; other per-day errors are collected and the span continues.
func (g *Generator) generateDays(ctx context.Context, log logrus.FieldLogger, site *model.Site, from, to time.Time) ([]model.LocationEvent, error) {
	var (
		opts      = g.options(ctx)
		collected []model.LocationEvent
		failures  *multierror.Error
		reported  int
	)

	for day := from; day.Before(to); day = day.AddDate(0, 0, 1) {
		events, err := g.solver.FindEvents(ctx, site, day, opts)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, geometry.ErrInvalidGeometry) {
				return nil, err
			}
			log.Errorf("Skipping %s: %v", day.Format("2006-01-02"), err)
			failures = multierror.Append(failures, fmt.Errorf("day %s: %w", day.Format("2006-01-02"), err))
			continue
		}

		collected = append(collected, events...)
		if len(collected)/progressEventInterval > reported {
			reported = len(collected) / progressEventInterval
			log.Infof("Computed %d events so far", len(collected))
		}
	}

	return collected, failures.ErrorOrNil()
}

func (g *Generator) site(ctx context.Context, siteID uint) (*model.Site, *logrus.Entry, error) {
	site, err := g.sites.Get(ctx, siteID)
	if err != nil {
		return nil, nil, err
	}
	return site, logger.NewSiteLogger(g.log, strconv.FormatUint(uint64(siteID), 10), uuid.New().String()), nil
}

func (g *Generator) options(ctx context.Context) solver.Options {
	return solver.OptionsFromSettings(ctx, g.settings)
}

func (g *Generator) batchSize(ctx context.Context) int {
	return g.settings.Int(ctx, settings.KeyEventInsertBatchSize, 100)
}
