// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/skyglint/skyglint/pkg/model"
)

// SettingRepository persists system settings.
type SettingRepository struct {
	db *gorm.DB
}

// List returns all settings ordered by category and key.
func (r *SettingRepository) List(ctx context.Context) ([]model.SystemSetting, error) {
	var settings []model.SystemSetting
	if err := r.db.WithContext(ctx).Order("category, key").Find(&settings).Error; err != nil {
		return nil, fmt.Errorf("listing settings: %w", err)
	}
	return settings, nil
}

// Get returns the setting with the given key or ErrNotFound.
func (r *SettingRepository) Get(ctx context.Context, key string) (*model.SystemSetting, error) {
	setting := &model.SystemSetting{}
	if err := r.db.WithContext(ctx).First(setting, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: setting %q", ErrNotFound, key)
		}
		return nil, fmt.Errorf("loading setting %q: %w", key, err)
	}
	return setting, nil
}

// Upsert writes the setting, replacing any previous value under the same key.
func (r *SettingRepository) Upsert(ctx context.Context, setting *model.SystemSetting) error {
	if err := setting.Validate(); err != nil {
		return err
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		UpdateAll: true,
	}).Create(setting).Error
	if err != nil {
		return fmt.Errorf("upserting setting %q: %w", setting.Key, err)
	}
	return nil
}

// Seed inserts the given settings, leaving already existing keys untouched.
func (r *SettingRepository) Seed(ctx context.Context, settings []*model.SystemSetting) error {
	for _, setting := range settings {
		if err := setting.Validate(); err != nil {
			return err
		}

		err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoNothing: true,
		}).Create(setting).Error
		if err != nil {
			return fmt.Errorf("seeding setting %q: %w", setting.Key, err)
		}
	}
	return nil
}
