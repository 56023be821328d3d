// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package validation validates the server configuration.
package validation

import (
	"fmt"
	"math"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/skyglint/skyglint/pkg/apis/config"
	"github.com/skyglint/skyglint/pkg/auth"
	"github.com/skyglint/skyglint/pkg/utils"
)

// ValidateConfiguration checks the complete configuration and returns every
// problem found, aggregated into one error.
func ValidateConfiguration(cfg *config.ServerConfiguration) error {
	var allErrs *multierror.Error

	if !utils.ValueExists(cfg.Environment, []string{config.EnvironmentDevelopment, config.EnvironmentProduction}) {
		allErrs = multierror.Append(allErrs, fmt.Errorf("environment %q is not supported", cfg.Environment))
	}

	if !utils.ValueExists(cfg.LogLevel, []string{"", "debug", "info", "error"}) {
		allErrs = multierror.Append(allErrs, fmt.Errorf("logLevel %q is not supported", cfg.LogLevel))
	}

	if cfg.HTTP.Port < 1 || cfg.HTTP.Port > 65535 {
		allErrs = multierror.Append(allErrs, fmt.Errorf("http.port %d is out of range", cfg.HTTP.Port))
	}

	if !utils.ValueExists(cfg.Database.Driver, []string{config.DatabaseDriverSQLite, config.DatabaseDriverPostgres}) {
		allErrs = multierror.Append(allErrs, fmt.Errorf("database.driver %q is not supported", cfg.Database.Driver))
	}
	if cfg.Database.DSN == "" {
		allErrs = multierror.Append(allErrs, fmt.Errorf("database.dsn must not be empty"))
	}

	if !cfg.Redis.Disabled {
		if cfg.Redis.Host == "" {
			allErrs = multierror.Append(allErrs, fmt.Errorf("redis.host must not be empty"))
		}
		if cfg.Redis.Port < 1 || cfg.Redis.Port > 65535 {
			allErrs = multierror.Append(allErrs, fmt.Errorf("redis.port %d is out of range", cfg.Redis.Port))
		}
	}

	if cfg.Worker.Concurrency < 0 || cfg.Worker.Concurrency > 10 {
		allErrs = multierror.Append(allErrs, fmt.Errorf("worker.concurrency %d is out of range, must be between 1 and 10 (0 keeps the stored setting)", cfg.Worker.Concurrency))
	}

	if !utils.ValueExists(cfg.Calculation.Provider, []string{config.ProviderMeeus, config.ProviderSuncalc}) {
		allErrs = multierror.Append(allErrs, fmt.Errorf("calculation.provider %q is not supported", cfg.Calculation.Provider))
	}

	allErrs = multierror.Append(allErrs, validateObserver(cfg.Observer))

	if cfg.IsProduction() && len(cfg.Auth.JWTSecret) < auth.MinSecretLength {
		allErrs = multierror.Append(allErrs, fmt.Errorf("auth.jwtSecret must be at least %d characters in production", auth.MinSecretLength))
	}

	if cfg.Health.IntervalSeconds < 1 {
		allErrs = multierror.Append(allErrs, fmt.Errorf("health.intervalSeconds %d is out of range", cfg.Health.IntervalSeconds))
	}

	return allErrs.ErrorOrNil()
}

func validateObserver(observer config.ObserverConfiguration) error {
	var allErrs *multierror.Error

	if !(observer.Latitude >= -90 && observer.Latitude <= 90) {
		allErrs = multierror.Append(allErrs, fmt.Errorf("observer.latitude %v is out of range", observer.Latitude))
	}
	if !(observer.Longitude >= -180 && observer.Longitude <= 180) {
		allErrs = multierror.Append(allErrs, fmt.Errorf("observer.longitude %v is out of range", observer.Longitude))
	}
	if !(observer.Height > 0) || math.IsInf(observer.Height, 1) {
		allErrs = multierror.Append(allErrs, fmt.Errorf("observer.height %v must be positive", observer.Height))
	}
	if _, err := time.LoadLocation(observer.Timezone); err != nil {
		allErrs = multierror.Append(allErrs, fmt.Errorf("observer.timezone %q is invalid: %w", observer.Timezone, err))
	}

	return allErrs.ErrorOrNil()
}
