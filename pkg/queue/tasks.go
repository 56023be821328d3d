// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

package queue

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// Task type names dispatched over the broker.
const (
	// TaskTypeSiteCalculate recomputes the event cache of one site for a year range.
	TaskTypeSiteCalculate = "site:calculate"
	// TaskTypeMonthly recomputes one month for a set of sites.
	TaskTypeMonthly = "calendar:monthly"
	// TaskTypeCleanup removes cached events beyond the retention period.
	TaskTypeCleanup = "maintenance:cleanup"
)

// Queue names. Workers drain them in strict priority order.
const (
	QueueHigh   = "high"
	QueueNormal = "normal"
	QueueLow    = "low"
)

// queueWeights orders the queues for the worker. With strict priority the
// weights only express the order, not a sharing ratio.
var queueWeights = map[string]int{
	QueueHigh:   10,
	QueueNormal: 5,
	QueueLow:    1,
}

// Priority selects the queue a job is scheduled on.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

// ParsePriority maps a request string to a Priority. The empty string selects
// the default priority, which the scheduling path resolves against the
// enable_low_priority_mode setting.
func ParsePriority(value string) (Priority, error) {
	switch Priority(value) {
	case PriorityHigh, PriorityNormal, PriorityLow:
		return Priority(value), nil
	case "":
		return "", nil
	default:
		return "", fmt.Errorf("unknown priority %q", value)
	}
}

// SiteCalculatePayload is the payload of TaskTypeSiteCalculate.
type SiteCalculatePayload struct {
	SiteID    uint `json:"siteId"`
	StartYear int  `json:"startYear"`
	EndYear   int  `json:"endYear"`
}

// MonthlyPayload is the payload of TaskTypeMonthly. An empty SiteIDs list
// means all active sites at execution time.
type MonthlyPayload struct {
	Year    int    `json:"year"`
	Month   int    `json:"month"`
	SiteIDs []uint `json:"siteIds,omitempty"`
}

// CleanupPayload is the payload of TaskTypeCleanup. A zero RetentionYears
// falls back to the event_retention_years setting.
type CleanupPayload struct {
	RetentionYears int `json:"retentionYears,omitempty"`
}

// MonthlyTaskID returns the broker task id that deduplicates monthly
// calculation jobs per calendar month.
func MonthlyTaskID(year, month int) string {
	return fmt.Sprintf("monthly-%d-%d", year, month)
}

func newTask(typename string, payload interface{}) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling %s payload: %w", typename, err)
	}
	return asynq.NewTask(typename, data), nil
}
