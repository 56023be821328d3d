// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v2"
)

// Load reads the configuration file at path, applies the environment overrides
// and fills defaults. An empty path skips the file and builds the configuration
// from environment and defaults alone. Validation is the caller's concern.
func Load(path string) (*ServerConfiguration, error) {
	config := &ServerConfiguration{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading configuration file: %w", err)
		}
		if err := yaml.UnmarshalStrict(data, config); err != nil {
			return nil, fmt.Errorf("parsing configuration file %s: %w", path, err)
		}
	}

	if err := ApplyEnvironment(config); err != nil {
		return nil, err
	}
	SetDefaults(config)

	return config, nil
}

// ApplyEnvironment overrides configuration fields from the recognized
// environment variables.
func ApplyEnvironment(config *ServerConfiguration) error {
	overrideString(&config.Environment, "SKYGLINT_ENV")
	overrideString(&config.Redis.Host, "REDIS_HOST")
	overrideString(&config.Auth.JWTSecret, "JWT_SECRET")

	if err := overrideInt(&config.HTTP.Port, "PORT"); err != nil {
		return err
	}
	if err := overrideInt(&config.Redis.Port, "REDIS_PORT"); err != nil {
		return err
	}
	if err := overrideInt(&config.Worker.Concurrency, "WORKER_CONCURRENCY"); err != nil {
		return err
	}

	if err := overrideBool(&config.Redis.Disabled, "DISABLE_REDIS"); err != nil {
		return err
	}
	if err := overrideBool(&config.Worker.Disabled, "DISABLE_WORKER"); err != nil {
		return err
	}
	if err := overrideBool(&config.Scheduler.Enabled, "ENABLE_BACKGROUND_SCHEDULER"); err != nil {
		return err
	}
	if err := overrideBool(&config.Calculation.SkipDirect, "SKIP_DIRECT_CALCULATION"); err != nil {
		return err
	}

	return nil
}

func overrideString(target *string, name string) {
	if value, ok := os.LookupEnv(name); ok {
		*target = value
	}
}

func overrideInt(target *int, name string) error {
	value, ok := os.LookupEnv(name)
	if !ok {
		return nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	*target = parsed
	return nil
}

func overrideBool(target *bool, name string) error {
	value, ok := os.LookupEnv(name)
	if !ok {
		return nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	*target = parsed
	return nil
}
