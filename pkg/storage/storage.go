// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package storage implements the persistence repositories of the service on top of GORM. Every
// repository call manages its own transaction; no locks are held across database round trips.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/skyglint/skyglint/pkg/model"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Database wraps the shared GORM handle and the repositories built on it.
type Database struct {
	log logrus.FieldLogger
	db  *gorm.DB

	sites         *SiteRepository
	events        *EventRepository
	settings      *SettingRepository
	admins        *AdminRepository
	refreshTokens *RefreshTokenRepository
}

// Open connects to the database named by driver and dsn and returns the shared handle. The
// schema is not migrated here, call Migrate before first use.
func Open(log logrus.FieldLogger, driver, dsn string) (*Database, error) {
	var dialector gorm.Dialector

	switch driver {
	case DriverSQLite:
		dialector = sqlite.Open(sqliteDSN(dsn))
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("accessing connection pool: %w", err)
	}

	if driver == DriverSQLite {
		// A pool would hand out independent in-memory databases and serialize badly on file
		// databases, so sqlite runs on a single connection.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	database := &Database{log: log, db: db}
	database.sites = &SiteRepository{db: db}
	database.events = &EventRepository{db: db}
	database.settings = &SettingRepository{db: db}
	database.admins = &AdminRepository{db: db}
	database.refreshTokens = &RefreshTokenRepository{db: db}

	return database, nil
}

// sqliteDSN makes sure foreign key enforcement is requested for every pooled connection.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys=") {
		return dsn
	}
	separator := "?"
	if strings.Contains(dsn, "?") {
		separator = "&"
	}
	return dsn + separator + "_foreign_keys=on"
}

// Migrate creates or updates the schema for all persisted types.
func (d *Database) Migrate() error {
	if err := d.db.AutoMigrate(model.AllModels()...); err != nil {
		return fmt.Errorf("migrating database schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return fmt.Errorf("accessing connection pool: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close releases all database connections.
func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return fmt.Errorf("accessing connection pool: %w", err)
	}
	return sqlDB.Close()
}

// Sites returns the site repository.
func (d *Database) Sites() *SiteRepository { return d.sites }

// Events returns the event repository.
func (d *Database) Events() *EventRepository { return d.events }

// Settings returns the settings repository.
func (d *Database) Settings() *SettingRepository { return d.settings }

// Admins returns the admin repository.
func (d *Database) Admins() *AdminRepository { return d.admins }

// RefreshTokens returns the refresh token repository.
func (d *Database) RefreshTokens() *RefreshTokenRepository { return d.refreshTokens }
