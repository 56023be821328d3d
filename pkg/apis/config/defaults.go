// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

package config

// Default observer target, the tower apex the service is built around.
const (
	// DefaultApexLatitude is the default apex latitude in degrees.
	DefaultApexLatitude = 35.7100
	// DefaultApexLongitude is the default apex longitude in degrees.
	DefaultApexLongitude = 139.8108
	// DefaultApexHeight is the default apex height above sea level in meters.
	DefaultApexHeight = 634.0
	// DefaultTimezone is the default observer timezone.
	DefaultTimezone = "Asia/Tokyo"
)

// SetDefaults fills unset fields of the configuration with their defaults.
func SetDefaults(config *ServerConfiguration) {
	if config.Environment == "" {
		config.Environment = EnvironmentDevelopment
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}

	if config.HTTP.Port == 0 {
		config.HTTP.Port = 8080
	}

	if config.Database.Driver == "" {
		config.Database.Driver = DatabaseDriverSQLite
	}
	if config.Database.DSN == "" {
		config.Database.DSN = "data/skyglint.db"
	}

	if config.Redis.Host == "" {
		config.Redis.Host = "localhost"
	}
	if config.Redis.Port == 0 {
		config.Redis.Port = 6379
	}

	if config.Calculation.Provider == "" {
		config.Calculation.Provider = ProviderMeeus
	}

	if config.Observer.Latitude == 0 && config.Observer.Longitude == 0 {
		config.Observer.Latitude = DefaultApexLatitude
		config.Observer.Longitude = DefaultApexLongitude
	}
	if config.Observer.Height == 0 {
		config.Observer.Height = DefaultApexHeight
	}
	if config.Observer.Timezone == "" {
		config.Observer.Timezone = DefaultTimezone
	}

	if config.Auth.AdminUsername == "" {
		config.Auth.AdminUsername = "admin"
	}

	if config.Health.IntervalSeconds == 0 {
		config.Health.IntervalSeconds = 30
	}
}
