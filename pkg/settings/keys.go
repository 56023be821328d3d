// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

package settings

import (
	"github.com/skyglint/skyglint/pkg/model"
)

// Setting keys recognized by the core. Categories group keys for display only.
const (
	// KeyAzimuthTolerance is the base azimuth tolerance in degrees when no precision mode
	// overrides it.
	KeyAzimuthTolerance = "azimuth_tolerance"
	// KeyElevationTolerance is the base elevation tolerance in degrees when no precision mode
	// overrides it.
	KeyElevationTolerance = "elevation_tolerance"
	// KeySearchInterval is the default sweep step in seconds.
	KeySearchInterval = "search_interval"

	KeyAccuracyPerfectThreshold   = "accuracy_perfect_threshold"
	KeyAccuracyExcellentThreshold = "accuracy_excellent_threshold"
	KeyAccuracyGoodThreshold      = "accuracy_good_threshold"
	KeyAccuracyFairThreshold      = "accuracy_fair_threshold"

	KeyElevationAccuracyPerfectThreshold   = "elevation_accuracy_perfect_threshold"
	KeyElevationAccuracyExcellentThreshold = "elevation_accuracy_excellent_threshold"
	KeyElevationAccuracyGoodThreshold      = "elevation_accuracy_good_threshold"
	KeyElevationAccuracyFairThreshold      = "elevation_accuracy_fair_threshold"

	// KeyPearlMinIllumination drops pearl candidates whose illuminated fraction is below the
	// threshold.
	KeyPearlMinIllumination = "pearl_min_illumination"
	// KeyEventInsertBatchSize bounds a single event INSERT statement.
	KeyEventInsertBatchSize = "event_insert_batch_size"

	// KeyWorkerConcurrency is the number of in-flight job slots per worker.
	KeyWorkerConcurrency = "worker_concurrency"
	// KeyMaxActiveJobs is the system-wide ceiling of concurrently running jobs.
	KeyMaxActiveJobs = "max_active_jobs"
	// KeyJobDelayMS is the base delay in milliseconds before non-high-priority jobs run, and
	// the base of the retry backoff.
	KeyJobDelayMS = "job_delay_ms"
	// KeyProcessingDelayMS paces consecutive years within one site job.
	KeyProcessingDelayMS = "processing_delay_ms"
	// KeyEnableLowPriorityMode defaults new jobs to the low priority queue.
	KeyEnableLowPriorityMode = "enable_low_priority_mode"

	// KeyMapSearchAutoShortDays and friends hold the piecewise thresholds that derive a sweep
	// interval from the searched date range length.
	KeyMapSearchAutoShortDays      = "map_search_auto_short_days"
	KeyMapSearchAutoLongDays       = "map_search_auto_long_days"
	KeyMapSearchAutoShortInterval  = "map_search_auto_short_interval"
	KeyMapSearchAutoMediumInterval = "map_search_auto_medium_interval"
	KeyMapSearchAutoLongInterval   = "map_search_auto_long_interval"

	// KeyEventRetentionYears is the age bound of cached events enforced by the monthly
	// maintenance job.
	KeyEventRetentionYears = "event_retention_years"
)

// Setting categories.
const (
	CategoryCalculation = "calculation"
	CategoryQueue       = "queue"
	CategoryMapSearch   = "map_search"
	CategoryMaintenance = "maintenance"
)

// Defaults returns the seed set of settings. Seeding never overwrites keys that already exist.
func Defaults() []*model.SystemSetting {
	return []*model.SystemSetting{
		model.NumberSetting(KeyAzimuthTolerance, CategoryCalculation, 2.0, "Base azimuth tolerance in degrees"),
		model.NumberSetting(KeyElevationTolerance, CategoryCalculation, 1.0, "Base elevation tolerance in degrees"),
		model.NumberSetting(KeySearchInterval, CategoryCalculation, 60, "Default sweep step in seconds"),

		model.NumberSetting(KeyAccuracyPerfectThreshold, CategoryCalculation, 0.1, "Azimuth difference bound for perfect accuracy"),
		model.NumberSetting(KeyAccuracyExcellentThreshold, CategoryCalculation, 0.25, "Azimuth difference bound for excellent accuracy"),
		model.NumberSetting(KeyAccuracyGoodThreshold, CategoryCalculation, 0.4, "Azimuth difference bound for good accuracy"),
		model.NumberSetting(KeyAccuracyFairThreshold, CategoryCalculation, 0.6, "Azimuth difference bound for fair accuracy"),

		model.NumberSetting(KeyElevationAccuracyPerfectThreshold, CategoryCalculation, 0.1, "Elevation difference bound for perfect accuracy"),
		model.NumberSetting(KeyElevationAccuracyExcellentThreshold, CategoryCalculation, 0.25, "Elevation difference bound for excellent accuracy"),
		model.NumberSetting(KeyElevationAccuracyGoodThreshold, CategoryCalculation, 0.4, "Elevation difference bound for good accuracy"),
		model.NumberSetting(KeyElevationAccuracyFairThreshold, CategoryCalculation, 0.6, "Elevation difference bound for fair accuracy"),

		model.NumberSetting(KeyPearlMinIllumination, CategoryCalculation, 0.1, "Minimum moon illumination for pearl events"),
		model.NumberSetting(KeyEventInsertBatchSize, CategoryCalculation, 100, "Events per INSERT batch during cache generation"),

		model.NumberSetting(KeyWorkerConcurrency, CategoryQueue, 2, "Concurrent job slots per worker"),
		model.NumberSetting(KeyMaxActiveJobs, CategoryQueue, 10, "System-wide ceiling of active jobs"),
		model.NumberSetting(KeyJobDelayMS, CategoryQueue, 1000, "Base delay and retry backoff base in milliseconds"),
		model.NumberSetting(KeyProcessingDelayMS, CategoryQueue, 500, "Pacing delay between years within a site job"),
		model.BooleanSetting(KeyEnableLowPriorityMode, CategoryQueue, false, "Default new jobs to the low priority queue"),

		model.NumberSetting(KeyMapSearchAutoShortDays, CategoryMapSearch, 180, "Date ranges up to this many days use the short interval"),
		model.NumberSetting(KeyMapSearchAutoLongDays, CategoryMapSearch, 730, "Date ranges beyond this many days use the long interval"),
		model.NumberSetting(KeyMapSearchAutoShortInterval, CategoryMapSearch, 30, "Sweep step in seconds for short date ranges"),
		model.NumberSetting(KeyMapSearchAutoMediumInterval, CategoryMapSearch, 120, "Sweep step in seconds for medium date ranges"),
		model.NumberSetting(KeyMapSearchAutoLongInterval, CategoryMapSearch, 300, "Sweep step in seconds for long date ranges"),

		model.NumberSetting(KeyEventRetentionYears, CategoryMaintenance, 3, "Age bound in years for cached events"),
	}
}
