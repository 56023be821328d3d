// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"fmt"
	"time"
)

// EventType is the closed enumeration of alignment event kinds. "diamond" events involve the
// Sun, "pearl" events the Moon; the suffix names the motion phase of the body.
type EventType string

const (
	EventTypeDiamondSunrise EventType = "diamond-sunrise"
	EventTypeDiamondSunset  EventType = "diamond-sunset"
	EventTypePearlRising    EventType = "pearl-rising"
	EventTypePearlSetting   EventType = "pearl-setting"
)

// EventTypes lists all valid event types.
func EventTypes() []EventType {
	return []EventType{EventTypeDiamondSunrise, EventTypeDiamondSunset, EventTypePearlRising, EventTypePearlSetting}
}

// ParseEventType normalizes a raw string into an EventType and fails for anything outside the
// closed enumeration.
func ParseEventType(s string) (EventType, error) {
	for _, t := range EventTypes() {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown event type %q", s)
}

// IsDiamond reports whether the event involves the Sun.
func (t EventType) IsDiamond() bool {
	return t == EventTypeDiamondSunrise || t == EventTypeDiamondSunset
}

// IsPearl reports whether the event involves the Moon.
func (t EventType) IsPearl() bool {
	return t == EventTypePearlRising || t == EventTypePearlSetting
}

// Accuracy is a coarse four-step classification of how centered an alignment is.
type Accuracy string

const (
	AccuracyPerfect   Accuracy = "perfect"
	AccuracyExcellent Accuracy = "excellent"
	AccuracyGood      Accuracy = "good"
	AccuracyFair      Accuracy = "fair"
)

var accuracyRank = map[Accuracy]int{
	AccuracyPerfect:   0,
	AccuracyExcellent: 1,
	AccuracyGood:      2,
	AccuracyFair:      3,
}

// Worse returns the coarser of the two accuracies.
func (a Accuracy) Worse(other Accuracy) Accuracy {
	if accuracyRank[other] > accuracyRank[a] {
		return other
	}
	return a
}

// Day reduces an instant to its calendar day label in the given timezone. The label is encoded
// as midnight UTC of that (year, month, day) triple so date columns compare consistently across
// database drivers.
func Day(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// LocationEvent is one computed alignment occurrence at a site. Events are immutable once
// written; regeneration replaces the whole (site, year), (site, year, month) or (site, day)
// scope in a single transaction.
type LocationEvent struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	SiteID uint `gorm:"not null;index:idx_location_events_site_year_time,priority:1" json:"siteId"`

	// EventDate is the calendar day of the event in the observer timezone.
	EventDate time.Time `gorm:"type:date;not null;index" json:"eventDate"`
	// EventTime is the precise instant of the event in UTC.
	EventTime time.Time `gorm:"not null;index:idx_location_events_site_year_time,priority:3;index:idx_location_events_time" json:"eventTime"`
	EventType EventType `gorm:"not null" json:"eventType"`

	// Azimuth is the celestial body's azimuth at the event instant in degrees [0,360).
	Azimuth float64 `gorm:"not null" json:"azimuth"`
	// Altitude is the apparent elevation angle of the apex as seen from the site, not the
	// body's altitude.
	Altitude     float64  `gorm:"not null" json:"altitude"`
	QualityScore int      `gorm:"not null" json:"qualityScore"`
	Accuracy     Accuracy `gorm:"not null" json:"accuracy"`

	// MoonPhase is the phase angle in degrees [0,360), set for pearl events only.
	MoonPhase *float64 `json:"moonPhase,omitempty"`
	// MoonIllumination is the illuminated fraction in [0,1], set for pearl events only.
	MoonIllumination *float64 `json:"moonIllumination,omitempty"`

	CalculationYear int `gorm:"not null;index:idx_location_events_site_year_time,priority:2" json:"calculationYear"`

	CreatedAt time.Time `json:"createdAt"`
}
