// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/skyglint/skyglint/pkg/model"
	"github.com/skyglint/skyglint/pkg/queue"
	"github.com/skyglint/skyglint/pkg/settings"
)

func (h *Handlers) getQueueStats(c *gin.Context) {
	stats, err := h.Queue.GetStats(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

type concurrencyRequest struct {
	Concurrency int `json:"concurrency"`
}

func (h *Handlers) updateQueueConcurrency(c *gin.Context) {
	var request concurrencyRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.badRequest(c, "decoding body: %v", err)
		return
	}
	if request.Concurrency < queue.MinConcurrency || request.Concurrency > queue.MaxConcurrency {
		h.badRequest(c, "concurrency %d out of range [%d, %d]", request.Concurrency, queue.MinConcurrency, queue.MaxConcurrency)
		return
	}

	// The previous value comes from the live worker when one runs in this
	// process, otherwise from the stored setting.
	old := h.Queue.Concurrency()
	if old == 0 {
		old = h.Settings.Int(c.Request.Context(), settings.KeyWorkerConcurrency, 0)
	}

	if err := h.Queue.UpdateConcurrency(c.Request.Context(), request.Concurrency); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"oldConcurrency": old,
			"newConcurrency": request.Concurrency,
		},
	})
}

func (h *Handlers) clearFailedJobs(c *gin.Context) {
	cleaned, err := h.Queue.CleanFailedJobs(c.Request.Context(), 0)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "cleanedCount": cleaned})
}

type recalculateRequest struct {
	LocationID uint   `json:"locationId"`
	StartYear  int    `json:"startYear"`
	EndYear    int    `json:"endYear"`
	Priority   string `json:"priority"`
}

// recalculateLocation schedules a cache rebuild for one site. Without an
// explicit year range the job covers the current and the next year.
func (h *Handlers) recalculateLocation(c *gin.Context) {
	var request recalculateRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.badRequest(c, "decoding body: %v", err)
		return
	}
	if request.LocationID == 0 {
		h.badRequest(c, "locationId must be a positive integer")
		return
	}

	priority, err := queue.ParsePriority(request.Priority)
	if err != nil {
		h.badRequest(c, "%v", err)
		return
	}

	if request.StartYear == 0 && request.EndYear == 0 {
		year := time.Now().In(h.Location).Year()
		request.StartYear, request.EndYear = year, year+1
	}
	if request.StartYear < MinYear || request.EndYear > MaxYear || request.EndYear < request.StartYear {
		h.badRequest(c, "year range [%d, %d] outside [%d, %d]", request.StartYear, request.EndYear, MinYear, MaxYear)
		return
	}

	if _, err := h.Sites.Get(c.Request.Context(), request.LocationID); err != nil {
		h.writeError(c, err)
		return
	}

	jobID, err := h.Queue.ScheduleLocationCalculation(c.Request.Context(), request.LocationID, request.StartYear, request.EndYear, priority)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "jobId": jobID})
}

func (h *Handlers) listSettings(c *gin.Context) {
	list, err := h.Settings.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	if list == nil {
		list = []model.SystemSetting{}
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handlers) getSetting(c *gin.Context) {
	setting, err := h.Settings.Get(c.Request.Context(), c.Param("key"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, setting)
}

type settingUpdateRequest struct {
	Value interface{} `json:"value"`
}

func (h *Handlers) updateSetting(c *gin.Context) {
	var request settingUpdateRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.badRequest(c, "decoding body: %v", err)
		return
	}

	setting, err := h.Settings.UpdateValue(c.Request.Context(), c.Param("key"), request.Value)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, setting)
}

func (h *Handlers) clearSettingsCache(c *gin.Context) {
	h.Settings.ClearCache()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handlers) triggerYearlyGeneration(c *gin.Context) {
	scheduled, err := h.Scheduler.TriggerYearlyGeneration(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "scheduledJobs": scheduled})
}

func (h *Handlers) triggerFailedJobCleanup(c *gin.Context) {
	cleaned, err := h.Scheduler.TriggerFailedJobCleanup(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "cleanedCount": cleaned})
}

func (h *Handlers) triggerDataCleanup(c *gin.Context) {
	message, err := h.Scheduler.TriggerDataCleanup(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": message})
}
