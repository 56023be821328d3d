// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package scheduler runs the recurring maintenance triggers: yearly event
// pre-generation, daily failed-job cleanup, and monthly data cleanup. The cron
// loop is only started when background scheduling is enabled; the individual
// triggers are also exposed for manual invocation through the admin API.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/robfig/cron"
	"github.com/sirupsen/logrus"

	"github.com/skyglint/skyglint/pkg/queue"
	"github.com/skyglint/skyglint/pkg/settings"
	"github.com/skyglint/skyglint/pkg/storage"
)

// Cron expressions of the recurring triggers, evaluated in the observer timezone.
const (
	// yearlySchedule pre-generates the next calculation year on Dec 1, 02:00.
	yearlySchedule = "0 2 1 12 *"
	// dailySchedule sweeps old failed jobs every day at 03:00.
	dailySchedule = "0 3 * * *"
	// monthlySchedule enqueues the data-cleanup job on the 1st at 05:00.
	monthlySchedule = "0 5 1 * *"
)

// failedJobMaxAge is the age cutoff applied by the daily failed-job sweep.
const failedJobMaxAge = 7 * 24 * time.Hour

// Scheduler owns the cron loop and the trigger implementations.
type Scheduler struct {
	log      *logrus.Logger
	db       *storage.Database
	queue    *queue.Service
	settings *settings.Store
	location *time.Location

	mutex sync.Mutex
	cron  *cron.Cron
}

// New creates a Scheduler. Start must be called to activate the cron loop.
func New(log *logrus.Logger, db *storage.Database, queueService *queue.Service, settingsStore *settings.Store, location *time.Location) *Scheduler {
	return &Scheduler{
		log:      log,
		db:       db,
		queue:    queueService,
		settings: settingsStore,
		location: location,
	}
}

// Start registers the recurring triggers and starts the cron loop.
func (s *Scheduler) Start() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.cron != nil {
		return errors.New("scheduler already started")
	}

	cr := cron.NewWithLocation(s.location)
	for _, trigger := range []struct {
		expression string
		job        func()
	}{
		{yearlySchedule, s.runYearlyGeneration},
		{dailySchedule, s.runFailedJobCleanup},
		{monthlySchedule, s.runDataCleanup},
	} {
		schedule, err := cron.ParseStandard(trigger.expression)
		if err != nil {
			return fmt.Errorf("parsing schedule %q: %w", trigger.expression, err)
		}
		cr.Schedule(schedule, cron.FuncJob(trigger.job))
	}

	cr.Start()
	s.cron = cr
	s.log.Info("Background scheduler started")
	return nil
}

// Stop halts the cron loop. Trigger functions already running finish on their own.
func (s *Scheduler) Stop() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.cron == nil {
		return
	}
	s.cron.Stop()
	s.cron = nil
	s.log.Info("Background scheduler stopped")
}

// Running reports whether the cron loop is active.
func (s *Scheduler) Running() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.cron != nil
}

// TriggerYearlyGeneration enqueues a low-priority calculation job for the next
// calendar year for every active site. It returns the number of enqueued jobs.
func (s *Scheduler) TriggerYearlyGeneration(ctx context.Context) (int, error) {
	year := time.Now().In(s.location).Year() + 1

	sites, err := s.db.Sites().ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing active sites: %w", err)
	}

	var (
		scheduled int
		result    *multierror.Error
	)
	for _, site := range sites {
		if _, err := s.queue.ScheduleLocationCalculation(ctx, site.ID, year, year, queue.PriorityLow); err != nil {
			result = multierror.Append(result, fmt.Errorf("site %d: %w", site.ID, err))
			continue
		}
		scheduled++
	}

	return scheduled, result.ErrorOrNil()
}

// TriggerFailedJobCleanup removes failed jobs older than seven days and
// returns the removed count.
func (s *Scheduler) TriggerFailedJobCleanup(ctx context.Context) (int, error) {
	return s.queue.CleanFailedJobs(ctx, failedJobMaxAge)
}

// TriggerDataCleanup schedules a maintenance job removing cached events beyond
// the configured retention and returns the job id.
func (s *Scheduler) TriggerDataCleanup(ctx context.Context) (string, error) {
	years := s.settings.Int(ctx, settings.KeyEventRetentionYears, 3)
	return s.queue.ScheduleCleanup(ctx, years, queue.PriorityLow)
}

func (s *Scheduler) runYearlyGeneration() {
	count, err := s.TriggerYearlyGeneration(context.Background())
	if err != nil {
		s.log.Errorf("Yearly pre-generation failed: %v", err)
		return
	}
	s.log.Infof("Yearly pre-generation enqueued %d jobs", count)
}

func (s *Scheduler) runFailedJobCleanup() {
	count, err := s.TriggerFailedJobCleanup(context.Background())
	if err != nil {
		s.log.Errorf("Failed-job cleanup failed: %v", err)
		return
	}
	s.log.Infof("Failed-job cleanup removed %d jobs", count)
}

func (s *Scheduler) runDataCleanup() {
	jobID, err := s.TriggerDataCleanup(context.Background())
	if err != nil {
		s.log.Errorf("Data cleanup scheduling failed: %v", err)
		return
	}
	s.log.Infof("Data cleanup scheduled as job %s", jobID)
}
