// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package settings implements the typed tuning-value store. Reads go through a short-lived
// in-process cache, writes invalidate, so a momentary stale read up to the TTL is tolerated.
package settings

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"

	"github.com/skyglint/skyglint/pkg/model"
	"github.com/skyglint/skyglint/pkg/storage"
)

const (
	// cacheTTL bounds how long a cached setting may be served without a repository read.
	cacheTTL = 60 * time.Second
	// cacheSize bounds the number of cached settings, well above the known key set.
	cacheSize = 256
)

var (
	// ErrNotEditable is returned when an update targets a read-only setting.
	ErrNotEditable = errors.New("setting is not editable")
	// ErrTypeMismatch is returned when an update value does not match the setting type.
	ErrTypeMismatch = errors.New("value does not match the setting type")
)

// Repository is the persistence surface the store reads through to.
type Repository interface {
	List(ctx context.Context) ([]model.SystemSetting, error)
	Get(ctx context.Context, key string) (*model.SystemSetting, error)
	Upsert(ctx context.Context, setting *model.SystemSetting) error
	Seed(ctx context.Context, settings []*model.SystemSetting) error
}

// Store reads and writes typed settings with a TTL cache in front of the repository.
type Store struct {
	log   logrus.FieldLogger
	repo  Repository
	cache *expirable.LRU[string, model.SystemSetting]
}

// NewStore returns a store backed by the given repository.
func NewStore(log logrus.FieldLogger, repo Repository) *Store {
	return &Store{
		log:   log,
		repo:  repo,
		cache: expirable.NewLRU[string, model.SystemSetting](cacheSize, nil, cacheTTL),
	}
}

// EnsureDefaults seeds the recognized keys, leaving existing values untouched.
func (s *Store) EnsureDefaults(ctx context.Context) error {
	return s.repo.Seed(ctx, Defaults())
}

// Number returns the number value of the given key, or def when the key is missing, mistyped
// or unreadable.
func (s *Store) Number(ctx context.Context, key string, def float64) float64 {
	setting, ok := s.lookup(ctx, key)
	if !ok || setting.SettingType != model.SettingTypeNumber || setting.NumberValue == nil {
		return def
	}
	return *setting.NumberValue
}

// Int returns the number value of the given key rounded to an integer, or def.
func (s *Store) Int(ctx context.Context, key string, def int) int {
	return int(math.Round(s.Number(ctx, key, float64(def))))
}

// String returns the string value of the given key, or def.
func (s *Store) String(ctx context.Context, key string, def string) string {
	setting, ok := s.lookup(ctx, key)
	if !ok || setting.SettingType != model.SettingTypeString || setting.StringValue == nil {
		return def
	}
	return *setting.StringValue
}

// Boolean returns the boolean value of the given key, or def.
func (s *Store) Boolean(ctx context.Context, key string, def bool) bool {
	setting, ok := s.lookup(ctx, key)
	if !ok || setting.SettingType != model.SettingTypeBoolean || setting.BooleanValue == nil {
		return def
	}
	return *setting.BooleanValue
}

func (s *Store) lookup(ctx context.Context, key string) (model.SystemSetting, bool) {
	if setting, ok := s.cache.Get(key); ok {
		return setting, true
	}

	setting, err := s.repo.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.log.WithField("key", key).Warnf("Reading setting failed, serving default: %v", err)
		}
		return model.SystemSetting{}, false
	}

	s.cache.Add(key, *setting)
	return *setting, true
}

// Get returns the raw setting with the given key, bypassing the cache.
func (s *Store) Get(ctx context.Context, key string) (*model.SystemSetting, error) {
	return s.repo.Get(ctx, key)
}

// List returns all raw settings, bypassing the cache.
func (s *Store) List(ctx context.Context) ([]model.SystemSetting, error) {
	return s.repo.List(ctx)
}

// Upsert persists the setting and invalidates its cache entry.
func (s *Store) Upsert(ctx context.Context, setting *model.SystemSetting) error {
	if err := s.repo.Upsert(ctx, setting); err != nil {
		return err
	}
	s.cache.Remove(setting.Key)
	return nil
}

// UpdateValue sets a new value on an existing editable setting. The value must
// match the setting type; JSON-decoded numbers arrive as float64.
func (s *Store) UpdateValue(ctx context.Context, key string, value interface{}) (*model.SystemSetting, error) {
	setting, err := s.repo.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !setting.Editable {
		return nil, fmt.Errorf("%w: %s", ErrNotEditable, key)
	}

	switch setting.SettingType {
	case model.SettingTypeNumber:
		number, ok := value.(float64)
		if !ok {
			if integer, isInt := value.(int); isInt {
				number, ok = float64(integer), true
			}
		}
		if !ok || math.IsNaN(number) || math.IsInf(number, 0) {
			return nil, fmt.Errorf("%w: %s wants a finite number", ErrTypeMismatch, key)
		}
		setting.NumberValue = &number
	case model.SettingTypeString:
		str, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s wants a string", ErrTypeMismatch, key)
		}
		setting.StringValue = &str
	case model.SettingTypeBoolean:
		boolean, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: %s wants a boolean", ErrTypeMismatch, key)
		}
		setting.BooleanValue = &boolean
	default:
		return nil, fmt.Errorf("%w: %s has unknown type %q", ErrTypeMismatch, key, setting.SettingType)
	}

	if err := s.Upsert(ctx, setting); err != nil {
		return nil, err
	}
	return setting, nil
}

// Refresh repopulates the cache from the repository in one read.
func (s *Store) Refresh(ctx context.Context) error {
	settings, err := s.repo.List(ctx)
	if err != nil {
		return err
	}

	s.cache.Purge()
	for _, setting := range settings {
		s.cache.Add(setting.Key, setting)
	}
	return nil
}

// ClearCache drops all cached settings so the next reads hit the repository.
func (s *Store) ClearCache() {
	s.cache.Purge()
}
