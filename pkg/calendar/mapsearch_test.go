// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

package calendar_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skyglint/skyglint/pkg/calendar"
	"github.com/skyglint/skyglint/pkg/ephemeris"
	"github.com/skyglint/skyglint/pkg/ephemeris/fake"
	"github.com/skyglint/skyglint/pkg/geometry"
	"github.com/skyglint/skyglint/pkg/logger"
	"github.com/skyglint/skyglint/pkg/model"
	"github.com/skyglint/skyglint/pkg/settings"
	"github.com/skyglint/skyglint/pkg/solver"
	"github.com/skyglint/skyglint/pkg/storage"
)

var _ = Describe("MapSearch", func() {
	var (
		ctx     context.Context
		db      *storage.Database
		service *calendar.Service

		apex = geometry.Apex{Latitude: 35.7100, Longitude: 139.8108, Height: 634}
	)

	// dailyCrossingSun sweeps the sun azimuth through the apex bearing at 10:00 UTC of
	// every day at a constant altitude of 10 degrees.
	dailyCrossingSun := func(t time.Time, _, _ float64) (ephemeris.SunPosition, error) {
		u := t.UTC()
		minute := float64(u.Hour()*60+u.Minute()) + float64(u.Second())/60
		return ephemeris.SunPosition{Azimuth: 270 + (minute-600)*0.1, Altitude: 10, Distance: 1}, nil
	}

	// alignedPoint is the sea-level point east of the apex that sees it under exactly the
	// scripted sun altitude, so the sweep accepts the 10:00 crossing.
	alignedPoint := func() (float64, float64) {
		lat, lon, _, err := geometry.ObserverPoint(apex, 270, 10)
		Expect(err).NotTo(HaveOccurred())
		return lat, lon
	}

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		db, err = storage.Open(logger.NewNopLogger(), storage.DriverSQLite, ":memory:")
		Expect(err).NotTo(HaveOccurred())
		Expect(db.Migrate()).To(Succeed())

		store := settings.NewStore(logger.NewNopLogger(), db.Settings())
		Expect(store.EnsureDefaults(ctx)).To(Succeed())

		provider := &fake.Provider{SunFn: dailyCrossingSun}
		alignment := solver.New(logger.NewNopLogger(), provider, apex, time.UTC)
		service = calendar.New(logger.NewNopLogger(), db, store, alignment, provider, apex, time.UTC, false)
	})

	AfterEach(func() {
		Expect(db.Close()).To(Succeed())
	})

	It("should find the alignments of every day in the range", func() {
		lat, lon := alignedPoint()

		result, err := service.MapSearch(ctx, calendar.MapSearchRequest{
			Latitude:   lat,
			Longitude:  lon,
			SearchMode: calendar.ModeBalanced,
			StartDate:  "2025-07-01",
			EndDate:    "2025-07-03",
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(result.Events).To(HaveLen(3))
		for i, found := range result.Events {
			Expect(found.EventType).To(Equal(model.EventTypeDiamondSunset))
			Expect(found.EventTime).To(BeTemporally("==", time.Date(2025, 7, 1+i, 10, 0, 0, 0, time.UTC)))
			Expect(found.Latitude).To(Equal(lat))
			Expect(found.Longitude).To(Equal(lon))
		}

		Expect(result.SearchParams.Scene).To(Equal(calendar.SceneAll))
		Expect(result.Metadata.DaysSearched).To(Equal(3))
		Expect(result.Metadata.IntervalSeconds).To(Equal(60))
		Expect(result.Metadata.EventsFound).To(Equal(3))
	})

	It("should filter by scene", func() {
		lat, lon := alignedPoint()

		result, err := service.MapSearch(ctx, calendar.MapSearchRequest{
			Latitude:   lat,
			Longitude:  lon,
			Scene:      calendar.ScenePearl,
			SearchMode: calendar.ModeFast,
			StartDate:  "2025-07-01",
			EndDate:    "2025-07-03",
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(result.Events).To(BeEmpty())
		Expect(result.Metadata.EventsFound).To(BeZero())
	})

	It("should pick the auto step from the range length", func() {
		lat, lon := alignedPoint()

		result, err := service.MapSearch(ctx, calendar.MapSearchRequest{
			Latitude:  lat,
			Longitude: lon,
			StartDate: "2025-07-01",
			EndDate:   "2025-07-02",
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(result.SearchParams.SearchMode).To(Equal(calendar.ModeAuto))
		Expect(result.Metadata.IntervalSeconds).To(Equal(30))
	})

	DescribeTable("should reject invalid requests",
		func(mutate func(*calendar.MapSearchRequest)) {
			request := calendar.MapSearchRequest{
				Latitude:  35.7,
				Longitude: 139.9,
				StartDate: "2025-07-01",
				EndDate:   "2025-07-02",
			}
			mutate(&request)

			_, err := service.MapSearch(ctx, request)
			Expect(err).To(MatchError(calendar.ErrInvalidRequest))
		},
		Entry("latitude out of range", func(r *calendar.MapSearchRequest) { r.Latitude = 95 }),
		Entry("longitude out of range", func(r *calendar.MapSearchRequest) { r.Longitude = 200 }),
		Entry("elevation out of range", func(r *calendar.MapSearchRequest) { r.Elevation = 12000 }),
		Entry("unknown scene", func(r *calendar.MapSearchRequest) { r.Scene = "solar" }),
		Entry("unknown search mode", func(r *calendar.MapSearchRequest) { r.SearchMode = "warp" }),
		Entry("malformed start date", func(r *calendar.MapSearchRequest) { r.StartDate = "July 1st" }),
		Entry("inverted range", func(r *calendar.MapSearchRequest) { r.StartDate, r.EndDate = r.EndDate, r.StartDate }),
		Entry("range beyond the cap", func(r *calendar.MapSearchRequest) { r.EndDate = "2029-01-01" }),
	)
})
