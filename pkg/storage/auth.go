// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/skyglint/skyglint/pkg/model"
)

// AdminRepository persists credential principals.
type AdminRepository struct {
	db *gorm.DB
}

// GetByUsername returns the admin with the given username or ErrNotFound.
func (r *AdminRepository) GetByUsername(ctx context.Context, username string) (*model.Admin, error) {
	admin := &model.Admin{}
	if err := r.db.WithContext(ctx).First(admin, "username = ?", username).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: admin %q", ErrNotFound, username)
		}
		return nil, fmt.Errorf("loading admin %q: %w", username, err)
	}
	return admin, nil
}

// Get returns the admin with the given id or ErrNotFound.
func (r *AdminRepository) Get(ctx context.Context, id uint) (*model.Admin, error) {
	admin := &model.Admin{}
	if err := r.db.WithContext(ctx).First(admin, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: admin %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("loading admin %d: %w", id, err)
	}
	return admin, nil
}

// Create inserts a new admin and backfills its id.
func (r *AdminRepository) Create(ctx context.Context, admin *model.Admin) error {
	if err := r.db.WithContext(ctx).Create(admin).Error; err != nil {
		return fmt.Errorf("creating admin %q: %w", admin.Username, err)
	}
	return nil
}

// Count returns the number of admins.
func (r *AdminRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Admin{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("counting admins: %w", err)
	}
	return count, nil
}

// RefreshTokenRepository persists hashed refresh tokens.
type RefreshTokenRepository struct {
	db *gorm.DB
}

// Create inserts a new refresh token.
func (r *RefreshTokenRepository) Create(ctx context.Context, token *model.RefreshToken) error {
	if err := r.db.WithContext(ctx).Create(token).Error; err != nil {
		return fmt.Errorf("creating refresh token for admin %d: %w", token.AdminID, err)
	}
	return nil
}

// GetByHash returns the refresh token with the given SHA-256 digest or ErrNotFound.
func (r *RefreshTokenRepository) GetByHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	token := &model.RefreshToken{}
	if err := r.db.WithContext(ctx).First(token, "token_hash = ?", tokenHash).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: refresh token", ErrNotFound)
		}
		return nil, fmt.Errorf("loading refresh token: %w", err)
	}
	return token, nil
}

// Revoke marks the token with the given id as revoked at the given instant.
func (r *RefreshTokenRepository) Revoke(ctx context.Context, id uint, now time.Time) error {
	result := r.db.WithContext(ctx).Model(&model.RefreshToken{}).Where("id = ? AND revoked_at IS NULL", id).Update("revoked_at", now)
	if result.Error != nil {
		return fmt.Errorf("revoking refresh token %d: %w", id, result.Error)
	}
	return nil
}

// RevokeAllForAdmin revokes every active token of the given admin.
func (r *RefreshTokenRepository) RevokeAllForAdmin(ctx context.Context, adminID uint, now time.Time) error {
	result := r.db.WithContext(ctx).Model(&model.RefreshToken{}).Where("admin_id = ? AND revoked_at IS NULL", adminID).Update("revoked_at", now)
	if result.Error != nil {
		return fmt.Errorf("revoking refresh tokens of admin %d: %w", adminID, result.Error)
	}
	return nil
}

// DeleteExpired removes all tokens that expired before the given instant and returns how many
// were removed.
func (r *RefreshTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&model.RefreshToken{})
	if result.Error != nil {
		return 0, fmt.Errorf("deleting expired refresh tokens: %w", result.Error)
	}
	return result.RowsAffected, nil
}
