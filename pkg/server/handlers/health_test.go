// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

package handlers_test

import (
	"context"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skyglint/skyglint/pkg/healthz"
)

var _ = Describe("Health and metrics endpoints", func() {
	var (
		ctx context.Context
		a   *api
	)

	BeforeEach(func() {
		ctx = context.Background()
		a = newAPI(ctx)
	})

	AfterEach(func() {
		a.Close()
	})

	Describe("GET /api/health", func() {
		It("should report a healthy service", func() {
			recorder := a.request(http.MethodGet, "/api/health", nil, "")
			Expect(recorder.Code).To(Equal(http.StatusOK))

			var response struct {
				Status     string                             `json:"status"`
				Timestamp  string                             `json:"timestamp"`
				Version    string                             `json:"version"`
				Components map[string]healthz.ComponentStatus `json:"components"`
			}
			decode(recorder, &response)
			Expect(response.Status).To(Equal(healthz.StatusHealthy))
			Expect(response.Timestamp).NotTo(BeEmpty())
			Expect(response.Components["database"].Healthy).To(BeTrue())
		})

		It("should answer 503 once the database check fails", func() {
			Expect(a.db.Close()).To(Succeed())
			a.health.Check(ctx)

			recorder := a.request(http.MethodGet, "/api/health", nil, "")

			Expect(recorder.Code).To(Equal(http.StatusServiceUnavailable))
			Expect(recorder.Body.String()).To(ContainSubstring(healthz.StatusUnhealthy))
		})
	})

	Describe("GET /metrics", func() {
		It("should expose the collector registry", func() {
			recorder := a.request(http.MethodGet, "/metrics", nil, "")

			Expect(recorder.Code).To(Equal(http.StatusOK))
			Expect(recorder.Body.String()).To(ContainSubstring("# HELP"))
		})
	})
})
