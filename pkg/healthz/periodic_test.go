// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

package healthz_test

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skyglint/skyglint/pkg/healthz"
	"github.com/skyglint/skyglint/pkg/logger"
)

var _ = Describe("Manager", func() {
	var ctx context.Context

	passing := func(name string, critical bool) healthz.Checker {
		return healthz.Checker{Name: name, Critical: critical, Check: func(context.Context) error { return nil }}
	}
	failing := func(name string, critical bool) healthz.Checker {
		return healthz.Checker{Name: name, Critical: critical, Check: func(context.Context) error { return errors.New("boom") }}
	}

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("should report unhealthy before the first check round", func() {
		manager := healthz.NewManager(logger.NewNopLogger(), time.Hour, time.Second, passing("database", true))
		Expect(manager.Status().Overall).To(Equal(healthz.StatusUnhealthy))
	})

	Describe("#Check", func() {
		It("should report healthy when every component passes", func() {
			manager := healthz.NewManager(logger.NewNopLogger(), time.Hour, time.Second,
				passing("database", true), passing("queue", false))

			status := manager.Check(ctx)

			Expect(status.Overall).To(Equal(healthz.StatusHealthy))
			Expect(status.Components).To(HaveLen(2))
			Expect(status.Components["database"].Healthy).To(BeTrue())
			Expect(status.Components["database"].CheckedAt).NotTo(BeZero())
			Expect(status.Components["queue"].Healthy).To(BeTrue())
		})

		It("should degrade on a non-critical failure", func() {
			manager := healthz.NewManager(logger.NewNopLogger(), time.Hour, time.Second,
				passing("database", true), failing("queue", false))

			status := manager.Check(ctx)

			Expect(status.Overall).To(Equal(healthz.StatusDegraded))
			Expect(status.Components["queue"].Healthy).To(BeFalse())
			Expect(status.Components["queue"].Message).To(Equal("boom"))
			Expect(status.Components["database"].Healthy).To(BeTrue())
		})

		It("should report unhealthy on a critical failure", func() {
			manager := healthz.NewManager(logger.NewNopLogger(), time.Hour, time.Second,
				failing("database", true), passing("queue", false))

			status := manager.Check(ctx)

			Expect(status.Overall).To(Equal(healthz.StatusUnhealthy))
			Expect(status.Components["database"].Healthy).To(BeFalse())
		})

		It("should replace the cached status on recovery", func() {
			var fail atomic.Bool
			fail.Store(true)

			manager := healthz.NewManager(logger.NewNopLogger(), time.Hour, time.Second, healthz.Checker{
				Name:     "database",
				Critical: true,
				Check: func(context.Context) error {
					if fail.Load() {
						return errors.New("boom")
					}
					return nil
				},
			})

			Expect(manager.Check(ctx).Overall).To(Equal(healthz.StatusUnhealthy))

			fail.Store(false)
			Expect(manager.Check(ctx).Overall).To(Equal(healthz.StatusHealthy))
			Expect(manager.Status().Overall).To(Equal(healthz.StatusHealthy))
		})

		It("should bound a stuck checker by the timeout", func() {
			manager := healthz.NewManager(logger.NewNopLogger(), time.Hour, 10*time.Millisecond, healthz.Checker{
				Name:     "database",
				Critical: true,
				Check: func(checkCtx context.Context) error {
					<-checkCtx.Done()
					return checkCtx.Err()
				},
			})

			status := manager.Check(ctx)

			Expect(status.Overall).To(Equal(healthz.StatusUnhealthy))
			Expect(status.Components["database"].Message).To(ContainSubstring("deadline"))
		})
	})

	Describe("#Start", func() {
		It("should run an immediate check round", func() {
			manager := healthz.NewManager(logger.NewNopLogger(), time.Hour, time.Second, passing("database", true))
			defer manager.Stop()

			manager.Start()

			Expect(manager.Status().Overall).To(Equal(healthz.StatusHealthy))
		})

		It("should keep probing on the interval", func() {
			var rounds atomic.Int32

			manager := healthz.NewManager(logger.NewNopLogger(), 10*time.Millisecond, time.Second, healthz.Checker{
				Name: "database",
				Check: func(context.Context) error {
					rounds.Add(1)
					return nil
				},
			})
			defer manager.Stop()

			manager.Start()

			Eventually(func() int32 { return rounds.Load() }).Should(BeNumerically(">=", 3))
		})
	})

	Describe("#Stop", func() {
		It("should be idempotent", func() {
			manager := healthz.NewManager(logger.NewNopLogger(), time.Hour, time.Second, passing("database", true))

			manager.Start()
			manager.Stop()
			manager.Stop()

			manager.Start()
			manager.Stop()
		})
	})
})
