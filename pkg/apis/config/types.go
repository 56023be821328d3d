// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package config holds the typed server configuration, its defaults and the
// YAML/environment loader. Validation lives in the validation subpackage so
// this package stays free of heavy imports.
package config

import (
	"net"
	"strconv"
)

// Environments accepted in the environment field and the SKYGLINT_ENV variable.
const (
	// EnvironmentDevelopment relaxes secret requirements for local work.
	EnvironmentDevelopment = "development"
	// EnvironmentProduction enforces a strong JWT secret at startup.
	EnvironmentProduction = "production"
)

// Database drivers accepted in the database section.
const (
	// DatabaseDriverSQLite stores data in a local SQLite file.
	DatabaseDriverSQLite = "sqlite"
	// DatabaseDriverPostgres connects to a PostgreSQL server.
	DatabaseDriverPostgres = "postgres"
)

// Ephemeris providers accepted in the calculation section.
const (
	// ProviderMeeus is the high-precision provider.
	ProviderMeeus = "meeus"
	// ProviderSuncalc is the fast low-order provider.
	ProviderSuncalc = "suncalc"
)

// ServerConfiguration is the root configuration of the skyglint server.
type ServerConfiguration struct {
	// Environment is either development or production.
	Environment string `yaml:"environment"`
	// LogLevel is one of debug, info, error. Empty means info.
	LogLevel string `yaml:"logLevel"`

	HTTP        HTTPConfiguration        `yaml:"http"`
	Database    DatabaseConfiguration    `yaml:"database"`
	Redis       RedisConfiguration       `yaml:"redis"`
	Worker      WorkerConfiguration      `yaml:"worker"`
	Scheduler   SchedulerConfiguration   `yaml:"scheduler"`
	Calculation CalculationConfiguration `yaml:"calculation"`
	Observer    ObserverConfiguration    `yaml:"observer"`
	Auth        AuthConfiguration        `yaml:"auth"`
	Health      HealthConfiguration      `yaml:"health"`
}

// IsProduction reports whether the production environment is configured.
func (c *ServerConfiguration) IsProduction() bool {
	return c.Environment == EnvironmentProduction
}

// HTTPConfiguration configures the HTTP listener.
type HTTPConfiguration struct {
	// BindAddress is the listen address, empty for all interfaces.
	BindAddress string `yaml:"bindAddress"`
	// Port is the listen port.
	Port int `yaml:"port"`
}

// Addr returns the host:port the HTTP server listens on.
func (c HTTPConfiguration) Addr() string {
	return net.JoinHostPort(c.BindAddress, strconv.Itoa(c.Port))
}

// DatabaseConfiguration configures the persistence engine.
type DatabaseConfiguration struct {
	// Driver is sqlite or postgres.
	Driver string `yaml:"driver"`
	// DSN is the driver-specific data source name, for sqlite the file path.
	DSN string `yaml:"dsn"`
}

// RedisConfiguration configures the queue broker connection.
type RedisConfiguration struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	// Disabled switches the service into degraded mode without a broker.
	Disabled bool `yaml:"disabled"`
}

// Addr returns the host:port of the broker.
func (c RedisConfiguration) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// WorkerConfiguration configures the in-process queue worker.
type WorkerConfiguration struct {
	// Disabled keeps the worker from starting; jobs stay queued for another instance.
	Disabled bool `yaml:"disabled"`
	// Concurrency overrides the stored worker_concurrency setting when non-zero.
	Concurrency int `yaml:"concurrency"`
}

// SchedulerConfiguration configures the background cron triggers.
type SchedulerConfiguration struct {
	Enabled bool `yaml:"enabled"`
}

// CalculationConfiguration configures the ephemeris and solver behavior.
type CalculationConfiguration struct {
	// Provider is the primary ephemeris provider, meeus or suncalc.
	Provider string `yaml:"provider"`
	// SkipDirect disables on-demand discovery for uncached days.
	SkipDirect bool `yaml:"skipDirect"`
}

// ObserverConfiguration pins the alignment target and the observer timezone.
type ObserverConfiguration struct {
	// Latitude of the tower apex in degrees.
	Latitude float64 `yaml:"latitude"`
	// Longitude of the tower apex in degrees.
	Longitude float64 `yaml:"longitude"`
	// Height of the apex above sea level in meters.
	Height float64 `yaml:"height"`
	// Timezone is the IANA name of the observer timezone.
	Timezone string `yaml:"timezone"`
}

// AuthConfiguration configures the admin auth collaborator.
type AuthConfiguration struct {
	// JWTSecret signs access tokens. Mandatory and at least 32 bytes in production.
	JWTSecret string `yaml:"jwtSecret"`
	// AdminUsername names the seeded admin account.
	AdminUsername string `yaml:"adminUsername"`
	// AdminPassword seeds the admin account at startup. Empty skips seeding.
	AdminPassword string `yaml:"adminPassword"`
}

// HealthConfiguration configures the periodic dependency probes.
type HealthConfiguration struct {
	// IntervalSeconds is the probe interval.
	IntervalSeconds int `yaml:"intervalSeconds"`
}
