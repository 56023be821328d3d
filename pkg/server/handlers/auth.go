// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// contextKeyClaims stores the verified access token claims on the request
// context.
const contextKeyClaims = "authClaims"

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *Handlers) login(c *gin.Context) {
	var request loginRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.badRequest(c, "decoding body: %v", err)
		return
	}

	pair, err := h.Auth.Login(c.Request.Context(), request.Username, request.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

func (h *Handlers) refresh(c *gin.Context) {
	var request refreshRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.badRequest(c, "decoding body: %v", err)
		return
	}

	pair, err := h.Auth.Refresh(c.Request.Context(), request.RefreshToken)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

// logout revokes the presented refresh token. Unknown tokens do not fail, a
// logged-out client must not see an error when it retries.
func (h *Handlers) logout(c *gin.Context) {
	var request refreshRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.badRequest(c, "decoding body: %v", err)
		return
	}

	if err := h.Auth.Logout(c.Request.Context(), request.RefreshToken); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// requireAdmin guards a route group with bearer token authentication. The
// verified claims are stored on the request context.
func (h *Handlers) requireAdmin(c *gin.Context) {
	token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok || token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
		return
	}

	claims, err := h.Auth.VerifyAccess(token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return
	}

	c.Set(contextKeyClaims, claims)
	c.Next()
}
