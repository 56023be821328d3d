// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

package ephemeris_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skyglint/skyglint/pkg/ephemeris"
)

// The reference values below stem from the published test vectors of the suncalc algorithm
// family (2013-03-05 UTC at 50.5N 30.5E), converted to north-based azimuths in degrees.
var _ = Describe("suncalc provider", func() {
	var (
		provider ephemeris.Provider
		at       time.Time
		lat, lon float64
	)

	BeforeEach(func() {
		provider = ephemeris.NewSuncalcProvider()
		at = time.Date(2013, 3, 5, 0, 0, 0, 0, time.UTC)
		lat, lon = 50.5, 30.5
	})

	Describe("#SunPosition", func() {
		It("should reproduce the reference sun position", func() {
			position, err := provider.SunPosition(at, lat, lon)

			Expect(err).NotTo(HaveOccurred())
			Expect(position.Azimuth).To(BeNumerically("~", 36.7424, 1e-3))
			Expect(position.Altitude).To(BeNumerically("~", -39.6254, 1e-3))
			Expect(position.Distance).To(BeNumerically("~", 0.99179, 1e-4))
		})

		It("should compute daytime positions over Tokyo", func() {
			jst := time.FixedZone("JST", 9*60*60)

			morning, err := provider.SunPosition(time.Date(2025, 2, 20, 7, 40, 0, 0, jst), 35.77, 139.82)
			Expect(err).NotTo(HaveOccurred())
			Expect(morning.Azimuth).To(BeNumerically("~", 114.9725, 1e-2))
			Expect(morning.Altitude).To(BeNumerically("~", 13.9615, 1e-2))

			evening, err := provider.SunPosition(time.Date(2025, 2, 20, 16, 40, 0, 0, jst), 35.77, 139.82)
			Expect(err).NotTo(HaveOccurred())
			Expect(evening.Azimuth).To(BeNumerically("~", 250.0141, 1e-2))
			Expect(evening.Altitude).To(BeNumerically("~", 8.4236, 1e-2))
		})
	})

	Describe("#MoonPosition", func() {
		It("should reproduce the reference moon position", func() {
			position, err := provider.MoonPosition(at, lat, lon)

			Expect(err).NotTo(HaveOccurred())
			Expect(position.Azimuth).To(BeNumerically("~", 123.9418, 1e-3))
			Expect(position.Altitude).To(BeNumerically("~", 0.8337, 1e-3))
			Expect(position.Distance).To(BeNumerically("~", 364121.4, 0.5))
		})

		It("should derive phase and linear illumination", func() {
			position, err := provider.MoonPosition(at, lat, lon)

			Expect(err).NotTo(HaveOccurred())
			Expect(position.Phase).To(BeNumerically("~", 271.7413, 1e-3))
			Expect(position.Illumination).To(BeNumerically("~", 0.4903, 1e-3))
		})

		It("should report a full moon as fully illuminated", func() {
			// 2013-03-27 was a full moon day
			position, err := provider.MoonPosition(time.Date(2013, 3, 27, 10, 0, 0, 0, time.UTC), lat, lon)

			Expect(err).NotTo(HaveOccurred())
			Expect(position.Phase).To(BeNumerically("~", 180, 6))
			Expect(position.Illumination).To(BeNumerically(">", 0.96))
		})
	})

	Describe("#RiseSet", func() {
		It("should find the sunrise of the day", func() {
			crossing, err := provider.RiseSet(ephemeris.BodySun, at, lat, lon, ephemeris.DirectionRise, 2)

			Expect(err).NotTo(HaveOccurred())
			Expect(crossing).NotTo(BeNil())
			Expect(*crossing).To(BeTemporally("~", time.Date(2013, 3, 5, 4, 34, 56, 0, time.UTC), 2*time.Second))
		})

		It("should find the sunset of the day", func() {
			crossing, err := provider.RiseSet(ephemeris.BodySun, at, lat, lon, ephemeris.DirectionSet, 2)

			Expect(err).NotTo(HaveOccurred())
			Expect(crossing).NotTo(BeNil())
			Expect(*crossing).To(BeTemporally("~", time.Date(2013, 3, 5, 15, 46, 57, 0, time.UTC), 2*time.Second))
		})

		It("should skip to the next day when the crossing already passed", func() {
			from := time.Date(2013, 3, 5, 5, 0, 0, 0, time.UTC)

			crossing, err := provider.RiseSet(ephemeris.BodySun, from, lat, lon, ephemeris.DirectionRise, 2)

			Expect(err).NotTo(HaveOccurred())
			Expect(crossing).NotTo(BeNil())
			Expect(*crossing).To(BeTemporally("~", time.Date(2013, 3, 6, 4, 32, 47, 0, time.UTC), 2*time.Second))
		})

		It("should find the moonrise and moonset of the day", func() {
			from := time.Date(2013, 3, 4, 0, 0, 0, 0, time.UTC)

			rise, err := provider.RiseSet(ephemeris.BodyMoon, from, lat, lon, ephemeris.DirectionRise, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(rise).NotTo(BeNil())
			Expect(*rise).To(BeTemporally("~", time.Date(2013, 3, 4, 23, 54, 29, 0, time.UTC), 2*time.Minute))

			set, err := provider.RiseSet(ephemeris.BodyMoon, from, lat, lon, ephemeris.DirectionSet, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(set).NotTo(BeNil())
			Expect(*set).To(BeTemporally("~", time.Date(2013, 3, 4, 7, 47, 58, 0, time.UTC), 2*time.Minute))
		})

		It("should return nil during polar night", func() {
			// Longyearbyen in January never sees the sun rise.
			crossing, err := provider.RiseSet(ephemeris.BodySun, time.Date(2013, 1, 10, 0, 0, 0, 0, time.UTC), 78.22, 15.65, ephemeris.DirectionRise, 3)

			Expect(err).NotTo(HaveOccurred())
			Expect(crossing).To(BeNil())
		})

		It("should reject an unknown direction", func() {
			_, err := provider.RiseSet(ephemeris.BodySun, at, lat, lon, ephemeris.Direction("transit"), 1)

			Expect(err).To(HaveOccurred())
		})
	})
})
