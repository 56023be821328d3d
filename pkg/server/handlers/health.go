// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/skyglint/skyglint/pkg/healthz"
	"github.com/skyglint/skyglint/pkg/version"
)

// getHealth serves the cached result of the last health check round. A
// degraded service still answers 200 because the direct read paths keep
// working without the broker.
func (h *Handlers) getHealth(c *gin.Context) {
	status := h.Health.Status()

	code := http.StatusOK
	if status.Overall == healthz.StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":     status.Overall,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"version":    version.Version,
		"components": status.Components,
	})
}
