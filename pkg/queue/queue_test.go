// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

package queue_test

import (
	"context"

	"github.com/hibiken/asynq"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skyglint/skyglint/pkg/logger"
	"github.com/skyglint/skyglint/pkg/queue"
	"github.com/skyglint/skyglint/pkg/settings"
	"github.com/skyglint/skyglint/pkg/storage"
)

var _ = Describe("Service", func() {
	var (
		ctx   context.Context
		db    *storage.Database
		store *settings.Store
		svc   *queue.Service
	)

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		db, err = storage.Open(logger.NewNopLogger(), storage.DriverSQLite, ":memory:")
		Expect(err).NotTo(HaveOccurred())
		Expect(db.Migrate()).To(Succeed())

		store = settings.NewStore(logger.NewNopLogger(), db.Settings())
		Expect(store.EnsureDefaults(ctx)).To(Succeed())

		// The broker address is never dialed by the paths under test.
		svc = queue.New(logger.NewNopLogger(), store, asynq.RedisClientOpt{Addr: "127.0.0.1:1"})
	})

	AfterEach(func() {
		Expect(db.Close()).To(Succeed())
	})

	Describe("degraded mode", func() {
		BeforeEach(func() {
			svc.SetEnabled(false)
		})

		It("should refuse to schedule site calculations", func() {
			_, err := svc.ScheduleLocationCalculation(ctx, 1, 2025, 2026, queue.PriorityNormal)
			Expect(err).To(MatchError(queue.ErrQueueDisabled))
		})

		It("should refuse to schedule monthly calculations", func() {
			_, err := svc.ScheduleMonthlyCalculation(ctx, 2025, 7, nil, queue.PriorityNormal)
			Expect(err).To(MatchError(queue.ErrQueueDisabled))
		})

		It("should refuse to clean failed jobs", func() {
			_, err := svc.CleanFailedJobs(ctx, 0)
			Expect(err).To(MatchError(queue.ErrQueueDisabled))
		})

		It("should refuse to start a worker", func() {
			Expect(svc.StartWorker(2)).To(MatchError(queue.ErrQueueDisabled))
		})

		It("should report the queue as disabled in stats", func() {
			stats, err := svc.GetStats(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Enabled).To(BeFalse())
			Expect(stats.WorkerRunning).To(BeFalse())
			Expect(stats.Pending).To(BeZero())
		})
	})

	Describe("#ScheduleLocationCalculation", func() {
		It("should reject an inverted year range", func() {
			_, err := svc.ScheduleLocationCalculation(ctx, 1, 2026, 2025, queue.PriorityNormal)
			Expect(err).To(MatchError(ContainSubstring("invalid year range")))
		})
	})

	Describe("#ScheduleMonthlyCalculation", func() {
		It("should reject an invalid month", func() {
			_, err := svc.ScheduleMonthlyCalculation(ctx, 2025, 13, nil, queue.PriorityNormal)
			Expect(err).To(MatchError(ContainSubstring("invalid month")))
		})
	})

	Describe("#StartWorker", func() {
		It("should require an injected handler", func() {
			Expect(svc.StartWorker(2)).To(MatchError(ContainSubstring("no job handler injected")))
		})
	})

	Describe("#UpdateConcurrency", func() {
		It("should reject values outside the allowed range", func() {
			Expect(svc.UpdateConcurrency(ctx, 0)).To(MatchError(ContainSubstring("between 1 and 10")))
			Expect(svc.UpdateConcurrency(ctx, 11)).To(MatchError(ContainSubstring("between 1 and 10")))
		})

		It("should persist the setting when no worker is running", func() {
			Expect(svc.UpdateConcurrency(ctx, 7)).To(Succeed())
			Expect(svc.WorkerRunning()).To(BeFalse())

			store.ClearCache()
			Expect(store.Int(ctx, settings.KeyWorkerConcurrency, 2)).To(Equal(7))
		})
	})
})

var _ = Describe("Tasks", func() {
	Describe("#MonthlyTaskID", func() {
		It("should not zero-pad the month", func() {
			Expect(queue.MonthlyTaskID(2025, 7)).To(Equal("monthly-2025-7"))
			Expect(queue.MonthlyTaskID(2025, 12)).To(Equal("monthly-2025-12"))
		})
	})

	DescribeTable("#ParsePriority",
		func(value string, expected queue.Priority, ok bool) {
			priority, err := queue.ParsePriority(value)
			if ok {
				Expect(err).NotTo(HaveOccurred())
				Expect(priority).To(Equal(expected))
			} else {
				Expect(err).To(HaveOccurred())
			}
		},

		Entry("high", "high", queue.PriorityHigh, true),
		Entry("normal", "normal", queue.PriorityNormal, true),
		Entry("low", "low", queue.PriorityLow, true),
		Entry("empty means default", "", queue.Priority(""), true),
		Entry("unknown", "urgent", queue.Priority(""), false),
	)
})
