// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"time"
)

// SiteStatus describes whether a site is generally usable for observation.
type SiteStatus string

const (
	// SiteStatusActive marks a site that is open and included in scheduled calculations.
	SiteStatusActive SiteStatus = "active"
	// SiteStatusRestricted marks a site with limited access, kept for reference but excluded
	// from scheduled pre-generation.
	SiteStatusRestricted SiteStatus = "restricted"
)

// Site is a ground observation point from which alignment events are computed. The three
// *ToApex fields cache the derived sightline geometry; they are recomputed whenever the site
// coordinates change unless an admin pinned them explicitly.
type Site struct {
	ID         uint    `gorm:"primaryKey" json:"id"`
	Name       string  `gorm:"not null" json:"name"`
	Prefecture string  `json:"prefecture"`
	Latitude   float64 `gorm:"not null" json:"latitude"`
	Longitude  float64 `gorm:"not null" json:"longitude"`
	// Elevation is the ground elevation in meters above sea level.
	Elevation float64 `gorm:"not null;default:0" json:"elevation"`

	// AzimuthToApex is the cached bearing from the site to the apex in degrees [0,360).
	AzimuthToApex *float64 `json:"azimuthToApex"`
	// ElevationToApex is the cached apparent elevation angle of the apex in degrees.
	ElevationToApex *float64 `json:"elevationToApex"`
	// DistanceToApex is the cached great-circle distance to the structure base in meters.
	DistanceToApex *float64 `json:"distanceToApex"`

	Access  string     `gorm:"type:text" json:"access,omitempty"`
	Parking string     `gorm:"type:text" json:"parking,omitempty"`
	Notes   string     `gorm:"type:text" json:"notes,omitempty"`
	Status  SiteStatus `gorm:"not null;default:'active'" json:"status"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Events exists only to declare the cascading delete of cached events with their site.
	Events []LocationEvent `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// HasSightline reports whether all three derived geometry fields are populated.
func (s *Site) HasSightline() bool {
	return s.AzimuthToApex != nil && s.ElevationToApex != nil && s.DistanceToApex != nil
}
