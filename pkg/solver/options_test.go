// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

package solver_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skyglint/skyglint/pkg/logger"
	"github.com/skyglint/skyglint/pkg/model"
	"github.com/skyglint/skyglint/pkg/settings"
	"github.com/skyglint/skyglint/pkg/solver"
	"github.com/skyglint/skyglint/pkg/storage"
)

var _ = Describe("Options", func() {
	DescribeTable("Precision parameters",
		func(precision solver.Precision, step time.Duration, azimuth, elevation float64) {
			Expect(precision.Step()).To(Equal(step))

			az, el := precision.Tolerances()
			Expect(az).To(Equal(azimuth))
			Expect(el).To(Equal(elevation))
		},

		Entry("high", solver.PrecisionHigh, 10*time.Second, 1.0, 0.5),
		Entry("medium", solver.PrecisionMedium, 60*time.Second, 2.0, 1.0),
		Entry("low", solver.PrecisionLow, 300*time.Second, 3.0, 2.0),
	)

	DescribeTable("Thresholds#Classify",
		func(diff float64, expected model.Accuracy) {
			thresholds := solver.Thresholds{Perfect: 0.1, Excellent: 0.25, Good: 0.4, Fair: 0.6}
			Expect(thresholds.Classify(diff)).To(Equal(expected))
		},

		Entry("zero difference", 0.0, model.AccuracyPerfect),
		Entry("perfect bound", 0.1, model.AccuracyPerfect),
		Entry("excellent bound", 0.25, model.AccuracyExcellent),
		Entry("good bound", 0.4, model.AccuracyGood),
		Entry("beyond good", 0.41, model.AccuracyFair),
		Entry("far beyond fair", 2.0, model.AccuracyFair),
	)

	Describe("#WithPrecision", func() {
		It("should override step and tolerances only", func() {
			opts := solver.DefaultOptions().WithPrecision(solver.PrecisionHigh)
			Expect(opts.Step).To(Equal(10 * time.Second))
			Expect(opts.AzimuthTolerance).To(Equal(1.0))
			Expect(opts.ElevationTolerance).To(Equal(0.5))
			Expect(opts.MinMoonIllumination).To(Equal(0.1))
		})
	})

	Describe("#OptionsFromSettings", func() {
		var (
			ctx   context.Context
			db    *storage.Database
			store *settings.Store
		)

		BeforeEach(func() {
			ctx = context.Background()

			var err error
			db, err = storage.Open(logger.NewNopLogger(), storage.DriverSQLite, ":memory:")
			Expect(err).NotTo(HaveOccurred())
			Expect(db.Migrate()).To(Succeed())

			store = settings.NewStore(logger.NewNopLogger(), db.Settings())
			Expect(store.EnsureDefaults(ctx)).To(Succeed())
		})

		AfterEach(func() {
			Expect(db.Close()).To(Succeed())
		})

		It("should read the seeded defaults", func() {
			opts := solver.OptionsFromSettings(ctx, store)
			Expect(opts.Step).To(Equal(60 * time.Second))
			Expect(opts.AzimuthTolerance).To(Equal(2.0))
			Expect(opts.ElevationTolerance).To(Equal(1.0))
			Expect(opts.AccuracyThresholds.Perfect).To(Equal(0.1))
			Expect(opts.ElevationAccuracyThresholds.Good).To(Equal(0.4))
			Expect(opts.MinMoonIllumination).To(Equal(0.1))
		})

		It("should pick up overridden settings", func() {
			Expect(store.Upsert(ctx, model.NumberSetting(settings.KeySearchInterval, settings.CategoryCalculation, 30, ""))).To(Succeed())
			Expect(store.Upsert(ctx, model.NumberSetting(settings.KeyAzimuthTolerance, settings.CategoryCalculation, 1.2, ""))).To(Succeed())

			opts := solver.OptionsFromSettings(ctx, store)
			Expect(opts.Step).To(Equal(30 * time.Second))
			Expect(opts.AzimuthTolerance).To(Equal(1.2))
		})
	})
})
