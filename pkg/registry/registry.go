// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package registry wires the domain services per the configuration and owns
// their lifecycle from startup to graceful shutdown.
package registry

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/skyglint/skyglint/pkg/apis/config"
	"github.com/skyglint/skyglint/pkg/auth"
	"github.com/skyglint/skyglint/pkg/calendar"
	"github.com/skyglint/skyglint/pkg/ephemeris"
	"github.com/skyglint/skyglint/pkg/eventcache"
	"github.com/skyglint/skyglint/pkg/geometry"
	"github.com/skyglint/skyglint/pkg/healthz"
	"github.com/skyglint/skyglint/pkg/queue"
	"github.com/skyglint/skyglint/pkg/scheduler"
	"github.com/skyglint/skyglint/pkg/server"
	"github.com/skyglint/skyglint/pkg/server/handlers"
	"github.com/skyglint/skyglint/pkg/settings"
	"github.com/skyglint/skyglint/pkg/sites"
	"github.com/skyglint/skyglint/pkg/solver"
	"github.com/skyglint/skyglint/pkg/storage"
	"github.com/skyglint/skyglint/pkg/utils/retry"
)

const (
	// databasePingInterval and databasePingTimeout pace the startup wait for the
	// database. An unreachable database is fatal.
	databasePingInterval = 500 * time.Millisecond
	databasePingTimeout  = 10 * time.Second
	// brokerPingTimeout bounds the startup broker probe. An unreachable broker
	// does not fail startup, it degrades the queue.
	brokerPingTimeout = 3 * time.Second
	// healthCheckTimeout bounds one dependency probe of a health round.
	healthCheckTimeout = 5 * time.Second
)

// Registry holds the wired services of one server process.
type Registry struct {
	log *logrus.Logger
	cfg *config.ServerConfiguration

	Location  *time.Location
	DB        *storage.Database
	Settings  *settings.Store
	Provider  ephemeris.Provider
	Queue     *queue.Service
	Auth      *auth.Service
	Scheduler *scheduler.Scheduler
	Health    *healthz.Manager
	Server    *server.Server
}

// New builds the service graph. The database must be reachable, a missing
// broker only degrades the queue.
func New(ctx context.Context, log *logrus.Logger, cfg *config.ServerConfiguration) (*Registry, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	location, err := time.LoadLocation(cfg.Observer.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading observer timezone: %w", err)
	}
	apex := geometry.Apex{
		Latitude:  cfg.Observer.Latitude,
		Longitude: cfg.Observer.Longitude,
		Height:    cfg.Observer.Height,
	}

	db, err := storage.Open(log, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	// The database may still be coming up next to us, so the startup ping retries
	// for a while before it is fatal.
	if err := retry.UntilTimeout(ctx, databasePingInterval, databasePingTimeout, func(ctx context.Context) (bool, error) {
		if err := db.Ping(ctx); err != nil {
			return retry.MinorError(err)
		}
		return retry.Ok()
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}

	settingsStore := settings.NewStore(log, db.Settings())
	if err := settingsStore.EnsureDefaults(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	secret, err := resolveJWTSecret(log, cfg)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	authService := auth.New(log, db, secret)
	if err := authService.EnsureAdmin(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); err != nil {
		_ = db.Close()
		return nil, err
	}

	provider := newProvider(log, cfg.Calculation.Provider)
	alignment := solver.New(log, provider, apex, location)
	generator := eventcache.New(log, db, settingsStore, alignment, location)

	queueService := queue.New(log, settingsStore, asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
	})
	switch {
	case cfg.Redis.Disabled:
		queueService.SetEnabled(false)
		log.Info("Queue disabled by configuration, scheduling paths are off")
	default:
		pingCtx, cancel := context.WithTimeout(ctx, brokerPingTimeout)
		err := queueService.Ping(pingCtx)
		cancel()
		if err != nil {
			log.Warnf("Broker unreachable, running in degraded mode: %v", err)
			queueService.SetEnabled(false)
		}
	}
	queueService.SetHandler(queue.NewEventService(log, db, generator, settingsStore).Mux())

	siteService := sites.New(log, db, queueService, apex, location)
	calendarService := calendar.New(log, db, settingsStore, alignment, provider, apex, location, cfg.Calculation.SkipDirect)
	schedulerService := scheduler.New(log, db, queueService, settingsStore, location)

	checkers := []healthz.Checker{healthz.PingChecker("database", true, db)}
	if !cfg.Redis.Disabled {
		checkers = append(checkers, healthz.PingChecker("queue", false, queueService))
	}
	checkers = append(checkers, healthz.Checker{Name: "ephemeris", Check: provider.CheckHealth})
	health := healthz.NewManager(log, time.Duration(cfg.Health.IntervalSeconds)*time.Second, healthCheckTimeout, checkers...)

	h := &handlers.Handlers{
		Log:       log,
		Location:  location,
		Auth:      authService,
		Sites:     siteService,
		Calendar:  calendarService,
		Settings:  settingsStore,
		Queue:     queueService,
		Scheduler: schedulerService,
		Health:    health,
	}

	return &Registry{
		log:       log,
		cfg:       cfg,
		Location:  location,
		DB:        db,
		Settings:  settingsStore,
		Provider:  provider,
		Queue:     queueService,
		Auth:      authService,
		Scheduler: schedulerService,
		Health:    health,
		Server:    server.New(log, cfg.HTTP.Addr(), h.Router()),
	}, nil
}

// Run starts the background services and serves HTTP until ctx is cancelled,
// then tears everything down.
func (r *Registry) Run(ctx context.Context) error {
	r.Health.Start()

	if !r.cfg.Worker.Disabled && r.Queue.Enabled() {
		concurrency := r.cfg.Worker.Concurrency
		if concurrency == 0 {
			concurrency = r.Settings.Int(ctx, settings.KeyWorkerConcurrency, 2)
		}
		if err := r.Queue.StartWorker(concurrency); err != nil {
			r.shutdown()
			return fmt.Errorf("starting worker: %w", err)
		}
	}

	if r.cfg.Scheduler.Enabled {
		if err := r.Scheduler.Start(); err != nil {
			r.shutdown()
			return fmt.Errorf("starting scheduler: %w", err)
		}
	}

	r.Server.Start(ctx)
	r.shutdown()
	return nil
}

// shutdown stops producing new jobs first, then drains the worker and closes
// the broker clients and the database.
func (r *Registry) shutdown() {
	r.Scheduler.Stop()
	r.Health.Stop()
	if err := r.Queue.Close(); err != nil {
		r.log.Errorf("Closing queue: %v", err)
	}
	if err := r.DB.Close(); err != nil {
		r.log.Errorf("Closing database: %v", err)
	}
}

// resolveJWTSecret returns the configured signing secret. Development setups
// may omit it and get an ephemeral one, so issued tokens do not survive a
// restart.
func resolveJWTSecret(log *logrus.Logger, cfg *config.ServerConfiguration) (string, error) {
	if cfg.Auth.JWTSecret != "" {
		return cfg.Auth.JWTSecret, nil
	}

	buffer := make([]byte, 32)
	if _, err := rand.Read(buffer); err != nil {
		return "", fmt.Errorf("generating ephemeral JWT secret: %w", err)
	}
	log.Warn("No JWT secret configured, issued tokens will not survive a restart")
	return hex.EncodeToString(buffer), nil
}

// newProvider builds the ephemeris provider chain. The configured provider is
// primary, the other implementation serves as fallback.
func newProvider(log *logrus.Logger, name string) *ephemeris.Manager {
	if name == config.ProviderSuncalc {
		return ephemeris.NewManager(log, ephemeris.NewSuncalcProvider(), ephemeris.NewMeeusProvider())
	}
	return ephemeris.NewManager(log, ephemeris.NewMeeusProvider(), ephemeris.NewSuncalcProvider())
}
