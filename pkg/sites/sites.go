// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package sites manages the observation site inventory: CRUD with derived apex geometry,
// recalculation scheduling after coordinate changes, and JSON import/export with upsert
// semantics.
package sites

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/skyglint/skyglint/pkg/geometry"
	"github.com/skyglint/skyglint/pkg/model"
	"github.com/skyglint/skyglint/pkg/queue"
	"github.com/skyglint/skyglint/pkg/storage"
)

// ErrInvalidSite marks payload validation failures, mapped to a bad-request response.
var ErrInvalidSite = errors.New("invalid site")

// Service owns site creation and mutation. Every create and every coordinate change
// schedules a recalculation of the current and the following year; a disabled queue
// degrades that to a warning, the site write itself still succeeds.
type Service struct {
	log      *logrus.Logger
	db       *storage.Database
	queue    *queue.Service
	apex     geometry.Apex
	location *time.Location
}

// New creates a site service.
func New(log *logrus.Logger, db *storage.Database, queueService *queue.Service, apex geometry.Apex, location *time.Location) *Service {
	return &Service{
		log:      log,
		db:       db,
		queue:    queueService,
		apex:     apex,
		location: location,
	}
}

// GeometryField carries the tri-state of an optional derived-geometry value in a payload:
// absent keeps the automatic behaviour, null explicitly reverts to the computed value, a
// number pins the user's value.
type GeometryField struct {
	present bool
	null    bool
	value   float64
}

// UnmarshalJSON implements json.Unmarshaler. It is invoked for JSON null as well, which
// distinguishes an explicit null from an absent field.
func (f *GeometryField) UnmarshalJSON(data []byte) error {
	f.present = true
	if string(data) == "null" {
		f.null = true
		return nil
	}
	return json.Unmarshal(data, &f.value)
}

// Pin fills the field with a concrete value, as an unmarshalled number would.
func (f *GeometryField) Pin(value float64) {
	f.present, f.null, f.value = true, false, value
}

// Clear marks the field explicitly null, reverting it to the computed value.
func (f *GeometryField) Clear() {
	f.present, f.null, f.value = true, true, 0
}

// Pinned reports whether the payload carried a concrete value.
func (f GeometryField) Pinned() bool { return f.present && !f.null }

// Cleared reports whether the payload carried an explicit null.
func (f GeometryField) Cleared() bool { return f.present && f.null }

// Value returns the pinned value.
func (f GeometryField) Value() float64 { return f.value }

// SiteRequest is the payload of a site create or update.
type SiteRequest struct {
	Name       string  `json:"name"`
	Prefecture string  `json:"prefecture"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Elevation  float64 `json:"elevation"`

	// The derived geometry triple. A concrete value wins over the computed one, an
	// explicit null reverts the field to the computed value.
	AzimuthToApex   GeometryField `json:"azimuthToApex"`
	ElevationToApex GeometryField `json:"elevationToApex"`
	DistanceToApex  GeometryField `json:"distanceToApex"`

	Access  string `json:"access"`
	Parking string `json:"parking"`
	Notes   string `json:"notes"`
	Status  string `json:"status"`
}

func (r *SiteRequest) validate() error {
	if r.Name == "" {
		return fmt.Errorf("%w: name must not be empty", ErrInvalidSite)
	}
	if !(r.Latitude >= -90 && r.Latitude <= 90) {
		return fmt.Errorf("%w: latitude %v out of range [-90,90]", ErrInvalidSite, r.Latitude)
	}
	if !(r.Longitude >= -180 && r.Longitude <= 180) {
		return fmt.Errorf("%w: longitude %v out of range [-180,180]", ErrInvalidSite, r.Longitude)
	}
	if !(r.Elevation >= -500 && r.Elevation <= 9000) {
		return fmt.Errorf("%w: elevation %v out of range [-500,9000]", ErrInvalidSite, r.Elevation)
	}
	if r.AzimuthToApex.Pinned() && !(r.AzimuthToApex.Value() >= 0 && r.AzimuthToApex.Value() < 360) {
		return fmt.Errorf("%w: azimuthToApex %v out of range [0,360)", ErrInvalidSite, r.AzimuthToApex.Value())
	}
	if r.ElevationToApex.Pinned() && !(r.ElevationToApex.Value() > -90 && r.ElevationToApex.Value() < 90) {
		return fmt.Errorf("%w: elevationToApex %v out of range (-90,90)", ErrInvalidSite, r.ElevationToApex.Value())
	}
	if r.DistanceToApex.Pinned() && !(r.DistanceToApex.Value() > 0) {
		return fmt.Errorf("%w: distanceToApex %v must be positive", ErrInvalidSite, r.DistanceToApex.Value())
	}
	if _, err := parseStatus(r.Status); err != nil {
		return err
	}
	return nil
}

func parseStatus(raw string) (model.SiteStatus, error) {
	switch model.SiteStatus(raw) {
	case model.SiteStatusActive, model.SiteStatusRestricted:
		return model.SiteStatus(raw), nil
	case "":
		return model.SiteStatusActive, nil
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrInvalidSite, raw)
}

// List returns all sites.
func (s *Service) List(ctx context.Context) ([]model.Site, error) {
	return s.db.Sites().List(ctx)
}

// Get returns one site. It fails with storage.ErrNotFound for unknown ids.
func (s *Service) Get(ctx context.Context, id uint) (*model.Site, error) {
	return s.db.Sites().Get(ctx, id)
}

// Create validates the payload, derives the apex geometry and persists the new site. A
// calculation of the current and next year is scheduled at normal priority.
func (s *Service) Create(ctx context.Context, request *SiteRequest) (*model.Site, error) {
	if err := request.validate(); err != nil {
		return nil, err
	}

	site := &model.Site{}
	request.applyTo(site)
	if err := s.applyGeometry(site, request, true); err != nil {
		return nil, err
	}

	if err := s.db.Sites().Create(ctx, site); err != nil {
		return nil, err
	}

	s.scheduleCalculation(ctx, site.ID, queue.PriorityNormal)
	return site, nil
}

// Update validates the payload and persists the changed site. Derived geometry fields are
// recomputed when the coordinates changed or when the payload explicitly cleared them;
// pinned values always win. Coordinate changes schedule a high-priority recalculation.
func (s *Service) Update(ctx context.Context, id uint, request *SiteRequest) (*model.Site, error) {
	if err := request.validate(); err != nil {
		return nil, err
	}

	site, err := s.db.Sites().Get(ctx, id)
	if err != nil {
		return nil, err
	}

	coordinatesChanged := site.Latitude != request.Latitude ||
		site.Longitude != request.Longitude ||
		site.Elevation != request.Elevation

	request.applyTo(site)
	if err := s.applyGeometry(site, request, coordinatesChanged); err != nil {
		return nil, err
	}

	if err := s.db.Sites().Update(ctx, site); err != nil {
		return nil, err
	}

	if coordinatesChanged {
		s.scheduleCalculation(ctx, site.ID, queue.PriorityHigh)
	}
	return site, nil
}

// Delete removes a site together with its cached events. It fails with
// storage.ErrNotFound for unknown ids.
func (s *Service) Delete(ctx context.Context, id uint) error {
	return s.db.Sites().Delete(ctx, id)
}

func (r *SiteRequest) applyTo(site *model.Site) {
	site.Name = r.Name
	site.Prefecture = r.Prefecture
	site.Latitude = r.Latitude
	site.Longitude = r.Longitude
	site.Elevation = r.Elevation
	site.Access = r.Access
	site.Parking = r.Parking
	site.Notes = r.Notes
	site.Status, _ = parseStatus(r.Status)
}

// applyGeometry resolves the derived triple: pinned payload values win, cleared fields
// and, with recompute, unpinned fields take the computed sightline, anything else keeps
// its stored value.
func (s *Service) applyGeometry(site *model.Site, request *SiteRequest, recompute bool) error {
	sight, err := geometry.SightlineToApex(site.Latitude, site.Longitude, site.Elevation, s.apex)
	if err != nil {
		return err
	}

	site.AzimuthToApex = resolveGeometry(request.AzimuthToApex, site.AzimuthToApex, sight.Azimuth, recompute)
	site.ElevationToApex = resolveGeometry(request.ElevationToApex, site.ElevationToApex, sight.Elevation, recompute)
	site.DistanceToApex = resolveGeometry(request.DistanceToApex, site.DistanceToApex, sight.Distance, recompute)
	return nil
}

func resolveGeometry(field GeometryField, current *float64, computed float64, recompute bool) *float64 {
	switch {
	case field.Pinned():
		value := field.Value()
		return &value
	case field.Cleared() || recompute || current == nil:
		return &computed
	}
	return current
}

// scheduleCalculation enqueues the current and next year for the site. A disabled or
// unreachable queue only logs, the site write has already succeeded.
func (s *Service) scheduleCalculation(ctx context.Context, siteID uint, priority queue.Priority) {
	year := time.Now().In(s.location).Year()

	jobID, err := s.queue.ScheduleLocationCalculation(ctx, siteID, year, year+1, priority)
	if err != nil {
		s.log.Warnf("Site %d saved, but its calculation could not be scheduled: %v", siteID, err)
		return
	}
	s.log.Infof("Scheduled calculation job %s for site %d", jobID, siteID)
}
