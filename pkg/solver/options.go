// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

package solver

import (
	"context"
	"time"

	"github.com/skyglint/skyglint/pkg/model"
	"github.com/skyglint/skyglint/pkg/settings"
)

// Precision names the predefined sweep parameter triples.
type Precision string

const (
	// PrecisionHigh sweeps at 10 s with tight tolerances.
	PrecisionHigh Precision = "high"
	// PrecisionMedium sweeps at 60 s with the base tolerances.
	PrecisionMedium Precision = "medium"
	// PrecisionLow sweeps at 300 s with wide tolerances.
	PrecisionLow Precision = "low"
)

// Step returns the sweep step of the precision mode.
func (p Precision) Step() time.Duration {
	switch p {
	case PrecisionHigh:
		return 10 * time.Second
	case PrecisionLow:
		return 300 * time.Second
	default:
		return 60 * time.Second
	}
}

// Tolerances returns the azimuth and elevation tolerance in degrees of the precision mode.
func (p Precision) Tolerances() (float64, float64) {
	switch p {
	case PrecisionHigh:
		return 1.0, 0.5
	case PrecisionLow:
		return 3.0, 2.0
	default:
		return 2.0, 1.0
	}
}

// Thresholds are the ascending bounds of the four accuracy steps.
type Thresholds struct {
	Perfect   float64
	Excellent float64
	Good      float64
	Fair      float64
}

// Classify maps an absolute difference in degrees to its accuracy step. Differences beyond the
// good bound rate fair, the acceptance tolerance caps them.
func (t Thresholds) Classify(diff float64) model.Accuracy {
	switch {
	case diff <= t.Perfect:
		return model.AccuracyPerfect
	case diff <= t.Excellent:
		return model.AccuracyExcellent
	case diff <= t.Good:
		return model.AccuracyGood
	default:
		return model.AccuracyFair
	}
}

// Options parameterize one solver run.
type Options struct {
	// Step is the sweep step.
	Step time.Duration
	// AzimuthTolerance is the acceptance bound on the azimuth difference in degrees.
	AzimuthTolerance float64
	// ElevationTolerance is the acceptance bound on the signed elevation overshoot in degrees.
	ElevationTolerance float64
	// AccuracyThresholds rate the azimuth difference of an emitted event.
	AccuracyThresholds Thresholds
	// ElevationAccuracyThresholds rate the absolute elevation overshoot of an emitted event.
	ElevationAccuracyThresholds Thresholds
	// MinMoonIllumination drops pearl candidates below this illuminated fraction.
	MinMoonIllumination float64
	// MaxSweepDuration is the wall-clock budget for all sweeps of one site and day.
	MaxSweepDuration time.Duration
}

// DefaultOptions returns the options used when no settings override them.
func DefaultOptions() Options {
	return Options{
		Step:                        60 * time.Second,
		AzimuthTolerance:            2.0,
		ElevationTolerance:          1.0,
		AccuracyThresholds:          Thresholds{Perfect: 0.1, Excellent: 0.25, Good: 0.4, Fair: 0.6},
		ElevationAccuracyThresholds: Thresholds{Perfect: 0.1, Excellent: 0.25, Good: 0.4, Fair: 0.6},
		MinMoonIllumination:         0.1,
		MaxSweepDuration:            10 * time.Minute,
	}
}

// WithPrecision returns a copy of the options with step and tolerances taken from the precision
// mode.
func (o Options) WithPrecision(p Precision) Options {
	o.Step = p.Step()
	o.AzimuthTolerance, o.ElevationTolerance = p.Tolerances()
	return o
}

// normalized backfills unset fields with their defaults.
func (o Options) normalized() Options {
	def := DefaultOptions()
	if o.Step <= 0 {
		o.Step = def.Step
	}
	if o.AzimuthTolerance <= 0 {
		o.AzimuthTolerance = def.AzimuthTolerance
	}
	if o.ElevationTolerance <= 0 {
		o.ElevationTolerance = def.ElevationTolerance
	}
	if o.AccuracyThresholds == (Thresholds{}) {
		o.AccuracyThresholds = def.AccuracyThresholds
	}
	if o.ElevationAccuracyThresholds == (Thresholds{}) {
		o.ElevationAccuracyThresholds = def.ElevationAccuracyThresholds
	}
	if o.MaxSweepDuration <= 0 {
		o.MaxSweepDuration = def.MaxSweepDuration
	}
	return o
}

// OptionsFromSettings builds options from the tuning values in the settings store, falling back
// to the defaults for missing keys.
func OptionsFromSettings(ctx context.Context, store *settings.Store) Options {
	def := DefaultOptions()

	return Options{
		Step:               time.Duration(store.Int(ctx, settings.KeySearchInterval, int(def.Step/time.Second))) * time.Second,
		AzimuthTolerance:   store.Number(ctx, settings.KeyAzimuthTolerance, def.AzimuthTolerance),
		ElevationTolerance: store.Number(ctx, settings.KeyElevationTolerance, def.ElevationTolerance),
		AccuracyThresholds: Thresholds{
			Perfect:   store.Number(ctx, settings.KeyAccuracyPerfectThreshold, def.AccuracyThresholds.Perfect),
			Excellent: store.Number(ctx, settings.KeyAccuracyExcellentThreshold, def.AccuracyThresholds.Excellent),
			Good:      store.Number(ctx, settings.KeyAccuracyGoodThreshold, def.AccuracyThresholds.Good),
			Fair:      store.Number(ctx, settings.KeyAccuracyFairThreshold, def.AccuracyThresholds.Fair),
		},
		ElevationAccuracyThresholds: Thresholds{
			Perfect:   store.Number(ctx, settings.KeyElevationAccuracyPerfectThreshold, def.ElevationAccuracyThresholds.Perfect),
			Excellent: store.Number(ctx, settings.KeyElevationAccuracyExcellentThreshold, def.ElevationAccuracyThresholds.Excellent),
			Good:      store.Number(ctx, settings.KeyElevationAccuracyGoodThreshold, def.ElevationAccuracyThresholds.Good),
			Fair:      store.Number(ctx, settings.KeyElevationAccuracyFairThreshold, def.ElevationAccuracyThresholds.Fair),
		},
		MinMoonIllumination: store.Number(ctx, settings.KeyPearlMinIllumination, def.MinMoonIllumination),
		MaxSweepDuration:    def.MaxSweepDuration,
	}
}
