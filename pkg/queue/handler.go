// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/skyglint/skyglint/pkg/eventcache"
	"github.com/skyglint/skyglint/pkg/geometry"
	"github.com/skyglint/skyglint/pkg/metrics"
	"github.com/skyglint/skyglint/pkg/settings"
	"github.com/skyglint/skyglint/pkg/storage"
)

// EventService executes queued calculation and maintenance jobs. It is
// constructed after the queue core and injected into it before the worker
// starts. All handlers are idempotent: the cache writes they trigger replace
// their whole scope, so redelivered jobs converge to the same state.
type EventService struct {
	log       *logrus.Logger
	db        *storage.Database
	generator *eventcache.Generator
	settings  *settings.Store
}

// NewEventService creates the job handler.
func NewEventService(log *logrus.Logger, db *storage.Database, generator *eventcache.Generator, settingsStore *settings.Store) *EventService {
	return &EventService{
		log:       log,
		db:        db,
		generator: generator,
		settings:  settingsStore,
	}
}

// Mux returns the task dispatcher wiring each task type to its handler.
func (e *EventService) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Use(countProcessedJobs)
	mux.HandleFunc(TaskTypeSiteCalculate, e.HandleSiteCalculate)
	mux.HandleFunc(TaskTypeMonthly, e.HandleMonthly)
	mux.HandleFunc(TaskTypeCleanup, e.HandleCleanup)
	return mux
}

func countProcessedJobs(next asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
		err := next.ProcessTask(ctx, task)

		outcome := "success"
		if err != nil {
			outcome = "failure"
		}
		metrics.JobsProcessed.WithLabelValues(task.Type(), outcome).Inc()

		return err
	})
}

// HandleSiteCalculate recomputes the event cache of one site for a year range.
// A missing site or invalid geometry fails the job terminally; other errors
// are retried.
func (e *EventService) HandleSiteCalculate(ctx context.Context, task *asynq.Task) error {
	var payload SiteCalculatePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshaling %s payload: %v: %w", task.Type(), err, asynq.SkipRetry)
	}

	count, err := e.generator.GenerateLocationRange(ctx, payload.SiteID, payload.StartYear, payload.EndYear)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, geometry.ErrInvalidGeometry) {
			return fmt.Errorf("site %d: %v: %w", payload.SiteID, err, asynq.SkipRetry)
		}
		return fmt.Errorf("site %d: %w", payload.SiteID, err)
	}

	e.log.Infof("Calculated %d events for site %d, years %d-%d", count, payload.SiteID, payload.StartYear, payload.EndYear)
	return nil
}

// HandleMonthly recomputes one month for the listed sites, or for all active
// sites when the payload lists none.
func (e *EventService) HandleMonthly(ctx context.Context, task *asynq.Task) error {
	var payload MonthlyPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshaling %s payload: %v: %w", task.Type(), err, asynq.SkipRetry)
	}
	if payload.Month < 1 || payload.Month > 12 {
		return fmt.Errorf("invalid month %d: %w", payload.Month, asynq.SkipRetry)
	}

	siteIDs := payload.SiteIDs
	if len(siteIDs) == 0 {
		sites, err := e.db.Sites().ListActive(ctx)
		if err != nil {
			return fmt.Errorf("listing active sites: %w", err)
		}
		for _, site := range sites {
			siteIDs = append(siteIDs, site.ID)
		}
	}
	if len(siteIDs) == 0 {
		e.log.Infof("No sites to calculate for %d-%02d", payload.Year, payload.Month)
		return nil
	}

	summary, err := e.generator.GenerateAllLocationsMonth(ctx, siteIDs, payload.Year, time.Month(payload.Month))
	if err != nil {
		return fmt.Errorf("monthly calculation %d-%02d: %w", payload.Year, payload.Month, err)
	}

	e.log.Infof("Monthly calculation %d-%02d finished: %d sites, %d events", payload.Year, payload.Month, summary.Sites, summary.Events)
	return nil
}

// HandleCleanup removes cached events older than the retention period.
func (e *EventService) HandleCleanup(ctx context.Context, task *asynq.Task) error {
	var payload CleanupPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshaling %s payload: %v: %w", task.Type(), err, asynq.SkipRetry)
	}

	years := payload.RetentionYears
	if years <= 0 {
		years = e.settings.Int(ctx, settings.KeyEventRetentionYears, 3)
	}

	cutoff := time.Now().AddDate(-years, 0, 0)
	removed, err := e.db.Events().DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("removing events older than %s: %w", cutoff.Format("2006-01-02"), err)
	}

	e.log.Infof("Removed %d events older than %s", removed, cutoff.Format("2006-01-02"))
	return nil
}
