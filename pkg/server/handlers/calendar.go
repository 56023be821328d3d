// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/skyglint/skyglint/pkg/calendar"
	"github.com/skyglint/skyglint/pkg/model"
)

func (h *Handlers) getMonthlyCalendar(c *gin.Context) {
	year, ok := h.yearParam(c, "year")
	if !ok {
		return
	}
	month, err := strconv.Atoi(c.Param("month"))
	if err != nil || month < 1 || month > 12 {
		h.badRequest(c, "month %q out of range [1, 12]", c.Param("month"))
		return
	}

	view, err := h.Calendar.MonthlyCalendar(c.Request.Context(), year, time.Month(month))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handlers) getDayEvents(c *gin.Context) {
	day, err := time.ParseInLocation("2006-01-02", c.Param("date"), h.Location)
	if err != nil {
		h.badRequest(c, "date %q is not a YYYY-MM-DD date", c.Param("date"))
		return
	}

	view, err := h.Calendar.DayEvents(c.Request.Context(), day)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// getUpcomingEvents serves the next cached events. An absent limit falls back
// to the default, an out-of-range limit is rejected.
func (h *Handlers) getUpcomingEvents(c *gin.Context) {
	limit := calendar.DefaultUpcomingLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > calendar.MaxUpcomingLimit {
			h.badRequest(c, "limit %q out of range [1, %d]", raw, calendar.MaxUpcomingLimit)
			return
		}
		limit = parsed
	}

	events, err := h.Calendar.UpcomingEvents(c.Request.Context(), limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if events == nil {
		events = []model.LocationEvent{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "events": events, "count": len(events)})
}

func (h *Handlers) getSiteEvents(c *gin.Context) {
	siteID, ok := h.idParam(c, "siteId")
	if !ok {
		return
	}
	year, ok := h.yearParam(c, "year")
	if !ok {
		return
	}

	events, err := h.Calendar.SiteEvents(c.Request.Context(), siteID, year)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if events == nil {
		events = []model.LocationEvent{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "events": events, "count": len(events)})
}

func (h *Handlers) getYearStats(c *gin.Context) {
	year, ok := h.yearParam(c, "year")
	if !ok {
		return
	}

	stats, err := h.Calendar.YearStats(c.Request.Context(), year)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handlers) mapSearch(c *gin.Context) {
	var request calendar.MapSearchRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.badRequest(c, "decoding body: %v", err)
		return
	}

	result, err := h.Calendar.MapSearch(c.Request.Context(), request)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"events":       result.Events,
		"searchParams": result.SearchParams,
		"metadata":     result.Metadata,
	})
}
