// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/skyglint/skyglint/pkg/model"
)

// SiteRepository persists observation sites.
type SiteRepository struct {
	db *gorm.DB
}

// List returns all sites ordered by id.
func (r *SiteRepository) List(ctx context.Context) ([]model.Site, error) {
	var sites []model.Site
	if err := r.db.WithContext(ctx).Order("id").Find(&sites).Error; err != nil {
		return nil, fmt.Errorf("listing sites: %w", err)
	}
	return sites, nil
}

// ListActive returns all sites with active status ordered by id.
func (r *SiteRepository) ListActive(ctx context.Context) ([]model.Site, error) {
	var sites []model.Site
	if err := r.db.WithContext(ctx).Where("status = ?", model.SiteStatusActive).Order("id").Find(&sites).Error; err != nil {
		return nil, fmt.Errorf("listing active sites: %w", err)
	}
	return sites, nil
}

// Get returns the site with the given id or ErrNotFound.
func (r *SiteRepository) Get(ctx context.Context, id uint) (*model.Site, error) {
	site := &model.Site{}
	if err := r.db.WithContext(ctx).First(site, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: site %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("loading site %d: %w", id, err)
	}
	return site, nil
}

// Create inserts a new site and backfills its id.
func (r *SiteRepository) Create(ctx context.Context, site *model.Site) error {
	if err := r.db.WithContext(ctx).Create(site).Error; err != nil {
		return fmt.Errorf("creating site %q: %w", site.Name, err)
	}
	return nil
}

// Update persists all fields of the given site.
func (r *SiteRepository) Update(ctx context.Context, site *model.Site) error {
	if err := r.db.WithContext(ctx).Save(site).Error; err != nil {
		return fmt.Errorf("updating site %d: %w", site.ID, err)
	}
	return nil
}

// Delete removes the site and all its cached events in one transaction. It returns ErrNotFound
// if no site with the given id exists.
func (r *SiteRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("site_id = ?", id).Delete(&model.LocationEvent{}).Error; err != nil {
			return fmt.Errorf("deleting events of site %d: %w", id, err)
		}

		result := tx.Delete(&model.Site{}, id)
		if result.Error != nil {
			return fmt.Errorf("deleting site %d: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: site %d", ErrNotFound, id)
		}
		return nil
	})
}

// Count returns the number of sites.
func (r *SiteRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Site{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("counting sites: %w", err)
	}
	return count, nil
}
