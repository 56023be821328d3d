// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package handlers implements the REST API on top of the domain services.
// Handlers translate between the wire format and the service calls, validate
// path and query parameters, and map service errors onto status codes. All
// domain decisions live in the services.
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/skyglint/skyglint/pkg/auth"
	"github.com/skyglint/skyglint/pkg/calendar"
	"github.com/skyglint/skyglint/pkg/healthz"
	"github.com/skyglint/skyglint/pkg/queue"
	"github.com/skyglint/skyglint/pkg/scheduler"
	"github.com/skyglint/skyglint/pkg/settings"
	"github.com/skyglint/skyglint/pkg/sites"
	"github.com/skyglint/skyglint/pkg/storage"
)

// MinYear and MaxYear bound the calculation years accepted by the calendar
// and admin endpoints. The event cache never covers years outside this range.
const (
	MinYear = 2020
	MaxYear = 2030
)

// Handlers bundles the services behind the REST API. Location is the observer
// timezone, date parameters are interpreted in it.
type Handlers struct {
	Log       *logrus.Logger
	Location  *time.Location
	Auth      *auth.Service
	Sites     *sites.Service
	Calendar  *calendar.Service
	Settings  *settings.Store
	Queue     *queue.Service
	Scheduler *scheduler.Scheduler
	Health    *healthz.Manager
}

// Router builds the engine with all routes registered. Site and settings
// writes and the admin console require a bearer token, everything else is
// public.
func (h *Handlers) Router() *gin.Engine {
	engine := gin.New()
	engine.Use(h.logRequests, gin.Recovery())

	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/api")
	api.GET("/health", h.getHealth)

	api.POST("/auth/login", h.login)
	api.POST("/auth/refresh", h.refresh)
	api.POST("/auth/logout", h.logout)

	api.GET("/locations", h.listSites)
	api.GET("/locations/export", h.exportSites)
	api.GET("/locations/:id", h.getSite)

	api.GET("/calendar/:year/:month", h.getMonthlyCalendar)
	api.GET("/calendar/stats/:year", h.getYearStats)
	api.GET("/calendar/location/:siteId/:year", h.getSiteEvents)

	api.GET("/events/upcoming", h.getUpcomingEvents)
	api.GET("/events/:date", h.getDayEvents)

	api.POST("/map-search", h.mapSearch)

	protected := api.Group("", h.requireAdmin)
	protected.POST("/locations", h.createSite)
	protected.PUT("/locations/:id", h.updateSite)
	protected.DELETE("/locations/:id", h.deleteSite)
	protected.POST("/locations/import", h.importSites)

	admin := protected.Group("/admin")
	admin.GET("/queue/stats", h.getQueueStats)
	admin.PUT("/queue/concurrency", h.updateQueueConcurrency)
	admin.POST("/queue/clear-failed", h.clearFailedJobs)
	admin.POST("/queue/recalculate-location", h.recalculateLocation)

	admin.GET("/system-settings", h.listSettings)
	admin.GET("/system-settings/:key", h.getSetting)
	admin.PUT("/system-settings/:key", h.updateSetting)
	admin.POST("/system-settings/clear-cache", h.clearSettingsCache)

	admin.POST("/scheduler/yearly-generation", h.triggerYearlyGeneration)
	admin.POST("/scheduler/failed-job-cleanup", h.triggerFailedJobCleanup)
	admin.POST("/scheduler/data-cleanup", h.triggerDataCleanup)

	return engine
}

// logRequests writes one access log line per request, including the acting
// admin on authenticated routes.
func (h *Handlers) logRequests(c *gin.Context) {
	began := time.Now()
	c.Next()

	fields := logrus.Fields{
		"method":   c.Request.Method,
		"path":     c.Request.URL.Path,
		"status":   c.Writer.Status(),
		"duration": time.Since(began).String(),
	}
	if value, ok := c.Get(contextKeyClaims); ok {
		if claims, ok := value.(*auth.Claims); ok {
			fields["admin"] = claims.Username
		}
	}
	h.Log.WithFields(fields).Debug("Request served")
}

// writeError maps a service error onto the wire format. Every error body is a
// single {"error": ...} object. Unrecognized errors answer with a generic
// message, the cause only goes to the log.
func (h *Handlers) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, calendar.ErrInvalidRequest),
		errors.Is(err, sites.ErrInvalidSite),
		errors.Is(err, settings.ErrNotEditable),
		errors.Is(err, settings.ErrTypeMismatch):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, queue.ErrQueueDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	default:
		h.Log.Errorf("Request %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func (h *Handlers) badRequest(c *gin.Context, format string, args ...interface{}) {
	c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf(format, args...)})
}

// idParam parses a positive integer path parameter. On failure the response
// is already written and ok is false.
func (h *Handlers) idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		h.badRequest(c, "%s %q is not a positive integer", name, c.Param(name))
		return 0, false
	}
	return uint(id), true
}

// yearParam parses a calculation year path parameter and checks the bounds.
func (h *Handlers) yearParam(c *gin.Context, name string) (int, bool) {
	year, err := strconv.Atoi(c.Param(name))
	if err != nil {
		h.badRequest(c, "%s %q is not a number", name, c.Param(name))
		return 0, false
	}
	if year < MinYear || year > MaxYear {
		h.badRequest(c, "year %d out of range [%d, %d]", year, MinYear, MaxYear)
		return 0, false
	}
	return year, true
}
