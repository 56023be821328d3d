// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package queue implements the durable priority job queue on top of a Redis
// broker. Jobs are scheduled on three queues drained in strict priority order,
// retried with exponential backoff, and inspected for admin statistics. When
// the broker is unreachable the queue degrades to disabled mode: read paths
// keep answering, every scheduling path returns ErrQueueDisabled.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/skyglint/skyglint/pkg/model"
	"github.com/skyglint/skyglint/pkg/settings"
	"github.com/skyglint/skyglint/pkg/storage"
)

const (
	// MinConcurrency and MaxConcurrency bound the live-resizable worker slots.
	MinConcurrency = 1
	MaxConcurrency = 10

	// maxAttempts is the delivery attempt ceiling per job.
	maxAttempts = 3

	// shutdownTimeout bounds how long a stopping worker waits for in-flight
	// jobs before the broker re-queues them.
	shutdownTimeout = 2 * time.Minute

	// failureListLimit caps the recent failures returned by GetStats.
	failureListLimit = 10

	// inspectorPageSize is the page size used when walking archived tasks.
	inspectorPageSize = 100
)

// ErrQueueDisabled is returned by scheduling paths while the broker is
// unreachable or disabled by configuration.
var ErrQueueDisabled = errors.New("queue disabled")

// queueNames orders the queues from highest to lowest priority.
var queueNames = []string{QueueHigh, QueueNormal, QueueLow}

// Service is the queue core. It schedules jobs, runs the worker, and exposes
// broker statistics. The job handler is injected after construction and before
// the worker starts.
type Service struct {
	log      *logrus.Logger
	settings *settings.Store
	redis    asynq.RedisConnOpt

	client    *asynq.Client
	inspector *asynq.Inspector

	mutex       sync.Mutex
	enabled     bool
	handler     asynq.Handler
	server      *asynq.Server
	concurrency int
}

// New creates a Service connected to the given Redis broker. No connection is
// established until the first operation; call Ping to probe the broker.
func New(log *logrus.Logger, settingsStore *settings.Store, redisOpt asynq.RedisClientOpt) *Service {
	return &Service{
		log:       log,
		settings:  settingsStore,
		redis:     redisOpt,
		client:    asynq.NewClient(redisOpt),
		inspector: asynq.NewInspector(redisOpt),
		enabled:   true,
	}
}

// Ping probes the broker connection.
func (s *Service) Ping(ctx context.Context) error {
	client, ok := s.redis.MakeRedisClient().(redis.UniversalClient)
	if !ok {
		return fmt.Errorf("unsupported redis connection type %T", s.redis)
	}
	defer client.Close()

	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("pinging broker: %w", err)
	}
	return nil
}

// Enabled reports whether scheduling paths are available.
func (s *Service) Enabled() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.enabled
}

// SetEnabled toggles degraded mode. The composition root disables the queue
// when the startup broker ping fails or Redis is disabled by configuration.
func (s *Service) SetEnabled(enabled bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.enabled = enabled
}

// SetHandler injects the job handler. It must be called before StartWorker.
func (s *Service) SetHandler(handler asynq.Handler) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.handler = handler
}

// WorkerRunning reports whether a worker is processing jobs in this process.
func (s *Service) WorkerRunning() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.server != nil
}

// Concurrency returns the slot count of the running worker, or zero.
func (s *Service) Concurrency() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.server == nil {
		return 0
	}
	return s.concurrency
}

// ScheduleLocationCalculation enqueues a site calculation job covering the
// given year range and returns the broker job id.
func (s *Service) ScheduleLocationCalculation(ctx context.Context, siteID uint, startYear, endYear int, priority Priority) (string, error) {
	if endYear < startYear {
		return "", fmt.Errorf("invalid year range [%d, %d]", startYear, endYear)
	}

	task, err := newTask(TaskTypeSiteCalculate, SiteCalculatePayload{SiteID: siteID, StartYear: startYear, EndYear: endYear})
	if err != nil {
		return "", err
	}
	return s.enqueue(ctx, task, priority, "")
}

// ScheduleMonthlyCalculation enqueues a monthly calculation job. Jobs are
// deduplicated per calendar month via the broker task id: scheduling the same
// month twice returns the id of the already queued job.
func (s *Service) ScheduleMonthlyCalculation(ctx context.Context, year, month int, siteIDs []uint, priority Priority) (string, error) {
	if month < 1 || month > 12 {
		return "", fmt.Errorf("invalid month %d", month)
	}

	task, err := newTask(TaskTypeMonthly, MonthlyPayload{Year: year, Month: month, SiteIDs: siteIDs})
	if err != nil {
		return "", err
	}
	return s.enqueue(ctx, task, priority, MonthlyTaskID(year, month))
}

// ScheduleCleanup enqueues a maintenance job removing cached events older than
// the given number of years (zero means the configured retention).
func (s *Service) ScheduleCleanup(ctx context.Context, retentionYears int, priority Priority) (string, error) {
	task, err := newTask(TaskTypeCleanup, CleanupPayload{RetentionYears: retentionYears})
	if err != nil {
		return "", err
	}
	return s.enqueue(ctx, task, priority, "")
}

func (s *Service) enqueue(ctx context.Context, task *asynq.Task, priority Priority, taskID string) (string, error) {
	if !s.Enabled() {
		return "", ErrQueueDisabled
	}

	queue := s.queueFor(ctx, priority)
	opts := []asynq.Option{
		asynq.Queue(queue),
		asynq.MaxRetry(maxAttempts - 1),
	}
	if taskID != "" {
		opts = append(opts, asynq.TaskID(taskID))
	}

	// Non-high-priority jobs become visible only after the configured delay.
	if queue != QueueHigh {
		if delay := s.jobDelay(ctx); delay > 0 {
			opts = append(opts, asynq.ProcessIn(delay))
		}
	}

	info, err := s.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		if taskID != "" && errors.Is(err, asynq.ErrTaskIDConflict) {
			s.log.Debugf("Job %s already queued as %s", task.Type(), taskID)
			return taskID, nil
		}
		return "", fmt.Errorf("enqueuing %s: %w", task.Type(), err)
	}

	s.log.Infof("Enqueued %s job %s on queue %s", info.Type, info.ID, info.Queue)
	return info.ID, nil
}

// queueFor resolves the queue of a scheduling request. An unset priority uses
// the normal queue, or the low queue when low priority mode is enabled.
func (s *Service) queueFor(ctx context.Context, priority Priority) string {
	switch priority {
	case PriorityHigh:
		return QueueHigh
	case PriorityNormal:
		return QueueNormal
	case PriorityLow:
		return QueueLow
	}
	if s.settings.Boolean(ctx, settings.KeyEnableLowPriorityMode, false) {
		return QueueLow
	}
	return QueueNormal
}

func (s *Service) jobDelay(ctx context.Context) time.Duration {
	return time.Duration(s.settings.Int(ctx, settings.KeyJobDelayMS, 1000)) * time.Millisecond
}

// retryDelay implements exponential backoff with the configured base delay.
func (s *Service) retryDelay(n int, _ error, _ *asynq.Task) time.Duration {
	base := s.jobDelay(context.Background())
	if base <= 0 {
		base = time.Second
	}
	return base << uint(n)
}

// StartWorker starts a worker with the given slot count, clamped to the
// max_active_jobs ceiling. The handler must have been injected.
func (s *Service) StartWorker(concurrency int) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.enabled {
		return ErrQueueDisabled
	}
	if s.handler == nil {
		return errors.New("no job handler injected")
	}
	if s.server != nil {
		return errors.New("worker already running")
	}

	concurrency = s.clampConcurrency(concurrency)
	server := s.newServer(concurrency)
	if err := server.Start(s.handler); err != nil {
		return fmt.Errorf("starting worker: %w", err)
	}

	s.server = server
	s.concurrency = concurrency
	s.log.Infof("Worker started with %d slots", concurrency)
	return nil
}

// UpdateConcurrency persists the new slot count and, if a worker runs in this
// process, swaps in a replacement worker. In-flight jobs on the old worker are
// allowed to finish.
func (s *Service) UpdateConcurrency(ctx context.Context, concurrency int) error {
	if concurrency < MinConcurrency || concurrency > MaxConcurrency {
		return fmt.Errorf("concurrency must be between %d and %d", MinConcurrency, MaxConcurrency)
	}

	if err := s.persistConcurrency(ctx, concurrency); err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.server == nil {
		// Scheduler-only process: workers pick the setting up on their next start.
		return nil
	}

	concurrency = s.clampConcurrency(concurrency)
	replacement := s.newServer(concurrency)
	if err := replacement.Start(s.handler); err != nil {
		return fmt.Errorf("starting replacement worker: %w", err)
	}

	old := s.server
	s.server = replacement
	s.concurrency = concurrency
	go old.Shutdown()

	s.log.Infof("Worker resized to %d slots", concurrency)
	return nil
}

func (s *Service) persistConcurrency(ctx context.Context, concurrency int) error {
	setting, err := s.settings.Get(ctx, settings.KeyWorkerConcurrency)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		setting = model.NumberSetting(settings.KeyWorkerConcurrency, settings.CategoryQueue, float64(concurrency), "Concurrent job slots per worker")
		return s.settings.Upsert(ctx, setting)
	}

	value := float64(concurrency)
	setting.NumberValue = &value
	return s.settings.Upsert(ctx, setting)
}

// clampConcurrency bounds the slot count to [MinConcurrency, MaxConcurrency]
// and to the system-wide max_active_jobs ceiling.
func (s *Service) clampConcurrency(concurrency int) int {
	if concurrency < MinConcurrency {
		concurrency = MinConcurrency
	}
	if concurrency > MaxConcurrency {
		concurrency = MaxConcurrency
	}
	if ceiling := s.settings.Int(context.Background(), settings.KeyMaxActiveJobs, 10); ceiling > 0 && concurrency > ceiling {
		concurrency = ceiling
	}
	return concurrency
}

func (s *Service) newServer(concurrency int) *asynq.Server {
	return asynq.NewServer(s.redis, asynq.Config{
		Concurrency:     concurrency,
		Queues:          queueWeights,
		StrictPriority:  true,
		RetryDelayFunc:  s.retryDelay,
		ShutdownTimeout: shutdownTimeout,
		Logger:          &brokerLogger{log: s.log},
		LogLevel:        asynq.WarnLevel,
	})
}

// StopWorker shuts the worker down, waiting for in-flight jobs to finish.
func (s *Service) StopWorker() {
	s.mutex.Lock()
	server := s.server
	s.server = nil
	s.concurrency = 0
	s.mutex.Unlock()

	if server != nil {
		server.Shutdown()
		s.log.Info("Worker stopped")
	}
}

// Close stops the worker and releases the broker connections.
func (s *Service) Close() error {
	s.StopWorker()

	var result *multierror.Error
	if err := s.inspector.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := s.client.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

// Stats describes the broker state for the admin API.
type Stats struct {
	Enabled        bool         `json:"enabled"`
	WorkerRunning  bool         `json:"workerRunning"`
	Concurrency    int          `json:"concurrency"`
	Pending        int          `json:"pending"`
	Active         int          `json:"active"`
	Scheduled      int          `json:"scheduled"`
	Retry          int          `json:"retry"`
	Archived       int          `json:"archived"`
	Completed      int          `json:"completed"`
	RecentFailures []JobFailure `json:"recentFailures"`
}

// JobFailure describes one archived job.
type JobFailure struct {
	ID       string    `json:"id"`
	Type     string    `json:"type"`
	Queue    string    `json:"queue"`
	Payload  string    `json:"payload"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failedAt"`
}

// GetStats aggregates per-state job counts over all queues plus the most
// recent failures. In degraded mode it reports the queue as disabled.
func (s *Service) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		Enabled:       s.Enabled(),
		WorkerRunning: s.WorkerRunning(),
		Concurrency:   s.Concurrency(),
	}
	if !stats.Enabled {
		return stats, nil
	}

	var failures []JobFailure
	for _, queue := range queueNames {
		info, err := s.inspector.GetQueueInfo(queue)
		if err != nil {
			if errors.Is(err, asynq.ErrQueueNotFound) {
				continue
			}
			return nil, fmt.Errorf("inspecting queue %s: %w", queue, err)
		}

		stats.Pending += info.Pending
		stats.Active += info.Active
		stats.Scheduled += info.Scheduled
		stats.Retry += info.Retry
		stats.Archived += info.Archived
		stats.Completed += info.Completed

		tasks, err := s.inspector.ListArchivedTasks(queue, asynq.PageSize(failureListLimit))
		if err != nil {
			return nil, fmt.Errorf("listing archived tasks of queue %s: %w", queue, err)
		}
		for _, task := range tasks {
			failures = append(failures, JobFailure{
				ID:       task.ID,
				Type:     task.Type,
				Queue:    task.Queue,
				Payload:  string(task.Payload),
				Error:    task.LastErr,
				FailedAt: task.LastFailedAt,
			})
		}
	}

	sort.Slice(failures, func(i, j int) bool { return failures[i].FailedAt.After(failures[j].FailedAt) })
	if len(failures) > failureListLimit {
		failures = failures[:failureListLimit]
	}
	stats.RecentFailures = failures

	return stats, nil
}

// CleanFailedJobs removes archived jobs older than the given age from all
// queues and returns the removed count. A non-positive age removes all
// archived jobs.
func (s *Service) CleanFailedJobs(ctx context.Context, olderThan time.Duration) (int, error) {
	if !s.Enabled() {
		return 0, ErrQueueDisabled
	}

	if olderThan <= 0 {
		return s.cleanAllArchived()
	}

	var (
		cutoff  = time.Now().Add(-olderThan)
		removed int
	)
	for _, queue := range queueNames {
		for page := 1; ; page++ {
			tasks, err := s.inspector.ListArchivedTasks(queue, asynq.PageSize(inspectorPageSize), asynq.Page(page))
			if err != nil {
				if errors.Is(err, asynq.ErrQueueNotFound) {
					break
				}
				return removed, fmt.Errorf("listing archived tasks of queue %s: %w", queue, err)
			}

			for _, task := range tasks {
				if task.LastFailedAt.After(cutoff) {
					continue
				}
				if err := s.inspector.DeleteTask(queue, task.ID); err != nil {
					return removed, fmt.Errorf("deleting archived task %s: %w", task.ID, err)
				}
				removed++
			}

			if len(tasks) < inspectorPageSize {
				break
			}
		}
	}

	s.log.Infof("Removed %d failed jobs", removed)
	return removed, nil
}

func (s *Service) cleanAllArchived() (int, error) {
	var removed int
	for _, queue := range queueNames {
		count, err := s.inspector.DeleteAllArchivedTasks(queue)
		if err != nil {
			if errors.Is(err, asynq.ErrQueueNotFound) {
				continue
			}
			return removed, fmt.Errorf("cleaning queue %s: %w", queue, err)
		}
		removed += count
	}

	s.log.Infof("Removed %d failed jobs", removed)
	return removed, nil
}

// brokerLogger adapts the broker's log interface onto logrus.
type brokerLogger struct {
	log *logrus.Logger
}

func (l *brokerLogger) Debug(args ...interface{}) { l.log.Debug(args...) }
func (l *brokerLogger) Info(args ...interface{})  { l.log.Info(args...) }
func (l *brokerLogger) Warn(args ...interface{})  { l.log.Warn(args...) }
func (l *brokerLogger) Error(args ...interface{}) { l.log.Error(args...) }
func (l *brokerLogger) Fatal(args ...interface{}) { l.log.Fatal(args...) }
