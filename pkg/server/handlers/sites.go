// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/skyglint/skyglint/pkg/model"
	"github.com/skyglint/skyglint/pkg/sites"
)

func (h *Handlers) listSites(c *gin.Context) {
	list, err := h.Sites.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	if list == nil {
		list = []model.Site{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "locations": list, "count": len(list)})
}

func (h *Handlers) getSite(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}

	site, err := h.Sites.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, site)
}

func (h *Handlers) createSite(c *gin.Context) {
	var request sites.SiteRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.badRequest(c, "decoding body: %v", err)
		return
	}

	site, err := h.Sites.Create(c.Request.Context(), &request)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, site)
}

func (h *Handlers) updateSite(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}

	var request sites.SiteRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.badRequest(c, "decoding body: %v", err)
		return
	}

	site, err := h.Sites.Update(c.Request.Context(), id, &request)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, site)
}

func (h *Handlers) deleteSite(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}

	if err := h.Sites.Delete(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// exportSites serves the portable site list. The export is public, it only
// contains data the site list exposes anyway.
func (h *Handlers) exportSites(c *gin.Context) {
	list, err := h.Sites.Export(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	if list == nil {
		list = []model.Site{}
	}
	c.JSON(http.StatusOK, list)
}

// importSites applies a previously exported site list. Per-element failures
// land in the summary, the import itself only fails on malformed bodies.
func (h *Handlers) importSites(c *gin.Context) {
	var elements []sites.ImportSite
	if err := c.ShouldBindJSON(&elements); err != nil {
		h.badRequest(c, "decoding body: %v", err)
		return
	}

	summary, err := h.Sites.Import(c.Request.Context(), elements)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
