// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

package season_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skyglint/skyglint/pkg/season"
)

var _ = Describe("Season", func() {
	Describe("#BoundariesForYear", func() {
		It("should place the 2025 quarter days on their known dates", func() {
			b := season.BoundariesForYear(2025)

			Expect(b.MarchEquinox.Month()).To(Equal(time.March))
			Expect(b.MarchEquinox.Day()).To(BeNumerically("~", 20, 1))
			Expect(b.JuneSolstice.Month()).To(Equal(time.June))
			Expect(b.JuneSolstice.Day()).To(BeNumerically("~", 21, 1))
			Expect(b.SeptemberEquinox.Month()).To(Equal(time.September))
			Expect(b.SeptemberEquinox.Day()).To(BeNumerically("~", 22, 1))
			Expect(b.DecemberSolstice.Month()).To(Equal(time.December))
			Expect(b.DecemberSolstice.Day()).To(BeNumerically("~", 21, 1))
		})

		It("should keep the instants in calendar order", func() {
			b := season.BoundariesForYear(2026)

			Expect(b.MarchEquinox.Before(b.JuneSolstice)).To(BeTrue())
			Expect(b.JuneSolstice.Before(b.SeptemberEquinox)).To(BeTrue())
			Expect(b.SeptemberEquinox.Before(b.DecemberSolstice)).To(BeTrue())
		})

		It("should return the cached value on repeated calls", func() {
			Expect(season.BoundariesForYear(2025)).To(Equal(season.BoundariesForYear(2025)))
		})
	})

	DescribeTable("#Of",
		func(instant time.Time, expected season.Season) {
			Expect(season.Of(instant)).To(Equal(expected))
		},

		Entry("mid January is winter", time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC), season.Winter),
		Entry("mid April is spring", time.Date(2025, 4, 15, 12, 0, 0, 0, time.UTC), season.Spring),
		Entry("early July is summer", time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC), season.Summer),
		Entry("mid October is autumn", time.Date(2025, 10, 15, 12, 0, 0, 0, time.UTC), season.Autumn),
		Entry("late December is winter", time.Date(2025, 12, 25, 12, 0, 0, 0, time.UTC), season.Winter),
		Entry("a local-time instant is converted before labeling", time.Date(2025, 3, 21, 3, 0, 0, 0, time.FixedZone("JST", 9*3600)), season.Spring),
	)
})
