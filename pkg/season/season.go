// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package season labels instants with the astronomical season they fall in,
// derived from the equinox and solstice times of the year.
package season

import (
	"sync"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/solstice"
)

// Season is a northern-hemisphere astronomical season.
type Season string

const (
	Winter Season = "winter"
	Spring Season = "spring"
	Summer Season = "summer"
	Autumn Season = "autumn"
)

// Boundaries holds the four season-change instants of one calendar year, in UTC.
type Boundaries struct {
	MarchEquinox     time.Time
	JuneSolstice     time.Time
	SeptemberEquinox time.Time
	DecemberSolstice time.Time
}

var (
	boundariesMutex sync.Mutex
	boundariesCache = map[int]Boundaries{}
)

// BoundariesForYear computes the equinox and solstice instants of the given year.
// Results are cached per year. The low-accuracy series is good to about a minute,
// which is more than enough for labeling calendar days.
func BoundariesForYear(year int) Boundaries {
	boundariesMutex.Lock()
	defer boundariesMutex.Unlock()

	if b, ok := boundariesCache[year]; ok {
		return b
	}

	b := Boundaries{
		MarchEquinox:     julian.JDToTime(solstice.March(year)),
		JuneSolstice:     julian.JDToTime(solstice.June(year)),
		SeptemberEquinox: julian.JDToTime(solstice.September(year)),
		DecemberSolstice: julian.JDToTime(solstice.December(year)),
	}
	boundariesCache[year] = b
	return b
}

// Of returns the astronomical season containing t.
func Of(t time.Time) Season {
	u := t.UTC()
	b := BoundariesForYear(u.Year())

	switch {
	case u.Before(b.MarchEquinox):
		return Winter
	case u.Before(b.JuneSolstice):
		return Spring
	case u.Before(b.SeptemberEquinox):
		return Summer
	case u.Before(b.DecemberSolstice):
		return Autumn
	default:
		return Winter
	}
}
