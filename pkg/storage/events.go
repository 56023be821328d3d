// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/skyglint/skyglint/pkg/model"
)

// defaultInsertBatchSize bounds a single INSERT statement when the caller passes no batch size.
const defaultInsertBatchSize = 100

// EventRepository persists computed alignment events. All Replace* methods are idempotent by
// deleting the scope and inserting the replacement set within one transaction, so readers see
// either the old set or the new set.
type EventRepository struct {
	db *gorm.DB
}

// ReplaceYear swaps all cached events of the given site and calculation year.
func (r *EventRepository) ReplaceYear(ctx context.Context, siteID uint, year int, events []model.LocationEvent, batchSize int) error {
	return r.replaceWhere(ctx, events, batchSize, "site_id = ? AND calculation_year = ?", siteID, year)
}

// ReplaceMonth swaps all cached events of the given site whose event date falls into the month.
func (r *EventRepository) ReplaceMonth(ctx context.Context, siteID uint, year int, month time.Month, events []model.LocationEvent, batchSize int) error {
	var (
		first = time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
		next  = first.AddDate(0, 1, 0)
	)
	return r.replaceWhere(ctx, events, batchSize, "site_id = ? AND event_date >= ? AND event_date < ?", siteID, first, next)
}

// ReplaceDay swaps all cached events of the given site on the given day label.
func (r *EventRepository) ReplaceDay(ctx context.Context, siteID uint, day time.Time, events []model.LocationEvent, batchSize int) error {
	return r.replaceWhere(ctx, events, batchSize, "site_id = ? AND event_date = ?", siteID, day)
}

func (r *EventRepository) replaceWhere(ctx context.Context, events []model.LocationEvent, batchSize int, condition string, args ...interface{}) error {
	if batchSize <= 0 {
		batchSize = defaultInsertBatchSize
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(condition, args...).Delete(&model.LocationEvent{}).Error; err != nil {
			return fmt.Errorf("deleting cached events: %w", err)
		}
		if len(events) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(&events, batchSize).Error; err != nil {
			return fmt.Errorf("inserting cached events: %w", err)
		}
		return nil
	})
}

// ListByDay returns all events on the given day label ordered by event time.
func (r *EventRepository) ListByDay(ctx context.Context, day time.Time) ([]model.LocationEvent, error) {
	var events []model.LocationEvent
	if err := r.db.WithContext(ctx).Where("event_date = ?", day).Order("event_time").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("listing events of %s: %w", day.Format("2006-01-02"), err)
	}
	return events, nil
}

// ListBetween returns all events whose day label lies in [from, to] ordered by event time.
func (r *EventRepository) ListBetween(ctx context.Context, from, to time.Time) ([]model.LocationEvent, error) {
	var events []model.LocationEvent
	if err := r.db.WithContext(ctx).Where("event_date >= ? AND event_date <= ?", from, to).Order("event_time").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("listing events between %s and %s: %w", from.Format("2006-01-02"), to.Format("2006-01-02"), err)
	}
	return events, nil
}

// ListUpcoming returns up to limit events with an event time strictly after the given instant,
// ordered ascending.
func (r *EventRepository) ListUpcoming(ctx context.Context, after time.Time, limit int) ([]model.LocationEvent, error) {
	var events []model.LocationEvent
	if err := r.db.WithContext(ctx).Where("event_time > ?", after).Order("event_time").Limit(limit).Find(&events).Error; err != nil {
		return nil, fmt.Errorf("listing upcoming events: %w", err)
	}
	return events, nil
}

// ListBySiteYear returns all cached events of the given site and calculation year ordered by
// event time.
func (r *EventRepository) ListBySiteYear(ctx context.Context, siteID uint, year int) ([]model.LocationEvent, error) {
	var events []model.LocationEvent
	if err := r.db.WithContext(ctx).Where("site_id = ? AND calculation_year = ?", siteID, year).Order("event_time").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("listing events of site %d in %d: %w", siteID, year, err)
	}
	return events, nil
}

// YearStats aggregates the cached events of one calculation year.
type YearStats struct {
	TotalEvents     int64 `json:"totalEvents"`
	DiamondEvents   int64 `json:"diamondEvents"`
	PearlEvents     int64 `json:"pearlEvents"`
	ActiveLocations int64 `json:"activeLocations"`
}

// Stats computes the aggregate counts for the given calculation year.
func (r *EventRepository) Stats(ctx context.Context, year int) (*YearStats, error) {
	var (
		stats        YearStats
		diamondTypes = []model.EventType{model.EventTypeDiamondSunrise, model.EventTypeDiamondSunset}
		pearlTypes   = []model.EventType{model.EventTypePearlRising, model.EventTypePearlSetting}
		scope        = func() *gorm.DB {
			return r.db.WithContext(ctx).Model(&model.LocationEvent{}).Where("calculation_year = ?", year)
		}
	)

	if err := scope().Count(&stats.TotalEvents).Error; err != nil {
		return nil, fmt.Errorf("counting events of %d: %w", year, err)
	}
	if err := scope().Where("event_type IN ?", diamondTypes).Count(&stats.DiamondEvents).Error; err != nil {
		return nil, fmt.Errorf("counting diamond events of %d: %w", year, err)
	}
	if err := scope().Where("event_type IN ?", pearlTypes).Count(&stats.PearlEvents).Error; err != nil {
		return nil, fmt.Errorf("counting pearl events of %d: %w", year, err)
	}
	if err := scope().Distinct("site_id").Count(&stats.ActiveLocations).Error; err != nil {
		return nil, fmt.Errorf("counting active sites of %d: %w", year, err)
	}

	return &stats, nil
}

// DeleteOlderThan removes all events with an event time before the cutoff and returns how many
// were removed.
func (r *EventRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("event_time < ?", cutoff).Delete(&model.LocationEvent{})
	if result.Error != nil {
		return 0, fmt.Errorf("deleting events before %s: %w", cutoff.Format(time.RFC3339), result.Error)
	}
	return result.RowsAffected, nil
}
