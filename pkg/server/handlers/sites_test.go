// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

package handlers_test

import (
	"context"
	"fmt"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skyglint/skyglint/pkg/model"
	"github.com/skyglint/skyglint/pkg/sites"
)

var _ = Describe("Site endpoints", func() {
	var (
		ctx   context.Context
		a     *api
		token string
	)

	payload := func(name string) map[string]interface{} {
		return map[string]interface{}{
			"name":      name,
			"latitude":  35.7100,
			"longitude": 139.9200,
			"elevation": 5,
		}
	}

	create := func(name string) model.Site {
		recorder := a.request(http.MethodPost, "/api/locations", payload(name), token)
		Expect(recorder.Code).To(Equal(http.StatusCreated))

		var site model.Site
		decode(recorder, &site)
		return site
	}

	BeforeEach(func() {
		ctx = context.Background()
		a = newAPI(ctx)
		token = a.login(ctx)
	})

	AfterEach(func() {
		a.Close()
	})

	Describe("GET /api/locations", func() {
		It("should serve an empty list as an empty array", func() {
			recorder := a.request(http.MethodGet, "/api/locations", nil, "")

			Expect(recorder.Code).To(Equal(http.StatusOK))
			Expect(recorder.Body.String()).To(ContainSubstring(`"locations":[]`))
			Expect(recorder.Body.String()).To(ContainSubstring(`"count":0`))
		})

		It("should list created sites with the count", func() {
			create("Riverbank")
			create("Harbor Pier")

			recorder := a.request(http.MethodGet, "/api/locations", nil, "")
			Expect(recorder.Code).To(Equal(http.StatusOK))

			var response struct {
				Success   bool         `json:"success"`
				Locations []model.Site `json:"locations"`
				Count     int          `json:"count"`
			}
			decode(recorder, &response)
			Expect(response.Success).To(BeTrue())
			Expect(response.Count).To(Equal(2))
			Expect(response.Locations).To(HaveLen(2))
		})
	})

	Describe("POST /api/locations", func() {
		It("should create the site with derived apex geometry", func() {
			site := create("Riverbank")

			Expect(site.ID).NotTo(BeZero())
			Expect(site.AzimuthToApex).NotTo(BeNil())
			Expect(site.ElevationToApex).NotTo(BeNil())
			Expect(site.DistanceToApex).NotTo(BeNil())
		})

		It("should answer 400 for an out-of-range latitude", func() {
			body := payload("Riverbank")
			body["latitude"] = 95.0

			recorder := a.request(http.MethodPost, "/api/locations", body, token)

			Expect(recorder.Code).To(Equal(http.StatusBadRequest))
			Expect(recorder.Body.String()).To(ContainSubstring("latitude"))
		})
	})

	Describe("GET /api/locations/:id", func() {
		It("should serve one site", func() {
			site := create("Riverbank")

			recorder := a.request(http.MethodGet, fmt.Sprintf("/api/locations/%d", site.ID), nil, "")
			Expect(recorder.Code).To(Equal(http.StatusOK))

			var fetched model.Site
			decode(recorder, &fetched)
			Expect(fetched.Name).To(Equal("Riverbank"))
		})

		It("should answer 404 for an unknown id", func() {
			Expect(a.request(http.MethodGet, "/api/locations/999", nil, "").Code).To(Equal(http.StatusNotFound))
		})

		It("should answer 400 for a non-numeric id", func() {
			Expect(a.request(http.MethodGet, "/api/locations/abc", nil, "").Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("PUT /api/locations/:id", func() {
		It("should update the site", func() {
			site := create("Riverbank")

			recorder := a.request(http.MethodPut, fmt.Sprintf("/api/locations/%d", site.ID), payload("Riverbank Renamed"), token)
			Expect(recorder.Code).To(Equal(http.StatusOK))

			var updated model.Site
			decode(recorder, &updated)
			Expect(updated.Name).To(Equal("Riverbank Renamed"))
		})

		It("should answer 404 for an unknown id", func() {
			recorder := a.request(http.MethodPut, "/api/locations/999", payload("Ghost"), token)

			Expect(recorder.Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("DELETE /api/locations/:id", func() {
		It("should delete the site", func() {
			site := create("Riverbank")

			recorder := a.request(http.MethodDelete, fmt.Sprintf("/api/locations/%d", site.ID), nil, token)
			Expect(recorder.Code).To(Equal(http.StatusOK))

			Expect(a.request(http.MethodGet, fmt.Sprintf("/api/locations/%d", site.ID), nil, "").Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("export and import", func() {
		It("should round-trip the site list over the wire", func() {
			create("Riverbank")

			exported := a.request(http.MethodGet, "/api/locations/export", nil, "")
			Expect(exported.Code).To(Equal(http.StatusOK))

			var elements []sites.ImportSite
			decode(exported, &elements)
			Expect(elements).To(HaveLen(1))

			imported := a.request(http.MethodPost, "/api/locations/import", exported.Body.Bytes(), token)
			Expect(imported.Code).To(Equal(http.StatusOK))

			var summary sites.ImportSummary
			decode(imported, &summary)
			Expect(summary.Updated).To(Equal(1))
			Expect(summary.Errors).To(BeZero())
		})

		It("should require a token for imports", func() {
			recorder := a.request(http.MethodPost, "/api/locations/import", []byte("[]"), "")

			Expect(recorder.Code).To(Equal(http.StatusUnauthorized))
		})
	})
})
