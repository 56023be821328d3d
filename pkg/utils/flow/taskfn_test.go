// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

package flow_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/skyglint/skyglint/pkg/utils/flow"
)

var _ = Describe("task functions", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("#TaskFn", func() {
		It("should skip the function if the condition is true", func() {
			called := false
			fn := flow.TaskFn(func(_ context.Context) error {
				called = true
				return nil
			}).SkipIf(true)

			Expect(fn(ctx)).To(Succeed())
			Expect(called).To(BeFalse())
		})

		It("should execute the function if the DoIf condition is true", func() {
			called := false
			fn := flow.TaskFn(func(_ context.Context) error {
				called = true
				return nil
			}).DoIf(true)

			Expect(fn(ctx)).To(Succeed())
			Expect(called).To(BeTrue())
		})

		It("should cancel the context once the timeout is reached", func() {
			fn := flow.TaskFn(func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			}).Timeout(5 * time.Millisecond)

			Expect(fn(ctx)).To(MatchError(context.DeadlineExceeded))
		})

		It("should retry the function until it succeeds", func() {
			calls := 0
			fn := flow.TaskFn(func(_ context.Context) error {
				calls++
				if calls < 3 {
					return errors.New("not yet")
				}
				return nil
			}).RetryUntilTimeout(time.Nanosecond, time.Second)

			Expect(fn(ctx)).To(Succeed())
			Expect(calls).To(Equal(3))
		})
	})

	Describe("#Sequential", func() {
		It("should run the functions in order and stop at the first error", func() {
			var (
				order []int
				err   = errors.New("boom")
			)

			fn := flow.Sequential(
				func(_ context.Context) error { order = append(order, 1); return nil },
				func(_ context.Context) error { order = append(order, 2); return err },
				func(_ context.Context) error { order = append(order, 3); return nil },
			)

			Expect(fn(ctx)).To(MatchError(err))
			Expect(order).To(Equal([]int{1, 2}))
		})
	})

	Describe("#Parallel", func() {
		It("should run all functions and collect their errors", func() {
			var (
				err1 = errors.New("one")
				err2 = errors.New("two")
			)

			fn := flow.Parallel(
				func(_ context.Context) error { return err1 },
				func(_ context.Context) error { return nil },
				func(_ context.Context) error { return err2 },
			)

			err := fn(ctx)
			Expect(err).To(HaveOccurred())

			var multi *multierror.Error
			Expect(errors.As(err, &multi)).To(BeTrue())
			Expect(multi.Errors).To(ConsistOf(err1, err2))
		})
	})

	Describe("#ParallelExitOnError", func() {
		It("should return the first error", func() {
			err := errors.New("first")

			fn := flow.ParallelExitOnError(
				func(_ context.Context) error { return err },
				func(ctx context.Context) error {
					<-ctx.Done()
					return nil
				},
			)

			Expect(fn(ctx)).To(MatchError(err))
		})
	})

	Describe("#LimitSubmitter", func() {
		It("should never run more functions than its size at the same time", func() {
			var (
				running int32
				peak    int32
				mutex   sync.Mutex
			)

			submitter := flow.NewLimitSubmitter(flow.UnlimitedSubmitter, 2)
			submitter.Start()
			defer submitter.Stop()

			var fns []flow.TaskFn
			for i := 0; i < 10; i++ {
				fns = append(fns, func(_ context.Context) error {
					current := atomic.AddInt32(&running, 1)
					mutex.Lock()
					if current > peak {
						peak = current
					}
					mutex.Unlock()
					time.Sleep(time.Millisecond)
					atomic.AddInt32(&running, -1)
					return nil
				})
			}

			Expect(flow.ParallelWithSubmitter(submitter, fns...)(ctx)).To(Succeed())
			Expect(peak).To(BeNumerically("<=", 2))
		})

		It("should panic when submitting on a non-running submitter", func() {
			submitter := flow.NewLimitSubmitter(flow.UnlimitedSubmitter, 1)

			Expect(func() { submitter.Submit(func() {}) }).To(Panic())
		})
	})
})
