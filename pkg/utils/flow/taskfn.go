// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

package flow

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/skyglint/skyglint/pkg/utils/retry"
)

// TaskFn is a payload function of a task.
type TaskFn func(ctx context.Context) error

// EmptyTaskFn is a TaskFn that does nothing (returns nil).
var EmptyTaskFn TaskFn = func(_ context.Context) error { return nil }

// SkipIf returns a TaskFn that does nothing if the condition is true, otherwise the function
// will be executed once called.
func (t TaskFn) SkipIf(condition bool) TaskFn {
	if condition {
		return EmptyTaskFn
	}
	return t
}

// DoIf returns a TaskFn that will be executed if the condition is true when it is called.
// Otherwise, it will do nothing when called.
func (t TaskFn) DoIf(condition bool) TaskFn {
	return t.SkipIf(!condition)
}

// Timeout returns a TaskFn that is bound to a context which times out.
func (t TaskFn) Timeout(timeout time.Duration) TaskFn {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		return t(ctx)
	}
}

// RetryUntilTimeout returns a TaskFn that is retried until the timeout is reached.
func (t TaskFn) RetryUntilTimeout(interval, timeout time.Duration) TaskFn {
	return func(ctx context.Context) error {
		return retry.UntilTimeout(ctx, interval, timeout, func(ctx context.Context) (bool, error) {
			if err := t(ctx); err != nil {
				return retry.MinorError(err)
			}
			return retry.Ok()
		})
	}
}

// Sequential runs the given TaskFns sequentially.
func Sequential(fns ...TaskFn) TaskFn {
	return func(ctx context.Context) error {
		for _, fn := range fns {
			if err := fn(ctx); err != nil {
				return err
			}

			if err := ctx.Err(); err != nil {
				return err
			}
		}
		return nil
	}
}

// ParallelWithSubmitter runs the given TaskFns in parallel with the given Submitter, collecting
// their errors in a multierror.
func ParallelWithSubmitter(s Submitter, fns ...TaskFn) TaskFn {
	return func(ctx context.Context) error {
		var (
			wg     sync.WaitGroup
			errors = make(chan error)
			result error
		)

		for _, fn := range fns {
			t := fn
			wg.Add(1)
			s.Submit(func() {
				defer wg.Done()
				errors <- t(ctx)
			})
		}

		go func() {
			defer close(errors)
			wg.Wait()
		}()

		for err := range errors {
			if err != nil {
				result = multierror.Append(result, err)
			}
		}
		return result
	}
}

// Parallel runs the given TaskFns in parallel, collecting their errors in a multierror.
func Parallel(fns ...TaskFn) TaskFn {
	return ParallelWithSubmitter(UnlimitedSubmitter, fns...)
}

// ParallelExitOnError runs the given TaskFns in parallel and stops execution as soon as one TaskFn returns an error.
func ParallelExitOnError(fns ...TaskFn) TaskFn {
	return func(ctx context.Context) error {
		var (
			wg             sync.WaitGroup
			errors         = make(chan error)
			subCtx, cancel = context.WithCancel(ctx)
		)
		defer cancel()

		for _, fn := range fns {
			t := fn
			wg.Add(1)
			go func() {
				defer wg.Done()
				errors <- t(subCtx)
			}()
		}

		go func() {
			defer close(errors)
			wg.Wait()
		}()

		for err := range errors {
			if err != nil {
				return err
			}
		}
		return nil
	}
}

// Submitter is an interface to run functions in parallel.
type Submitter interface {
	// Submit runs the given function asynchronously. This function should not block
	// during the execution of f.
	Submit(f func())
}

func workQueue() (chan<- func(), <-chan func()) {
	var (
		out   = make(chan func())
		in    = make(chan func())
		queue []func()
		exit  bool
	)

	go func() {
		defer close(out)
		for len(queue) != 0 || !exit {
			if len(queue) == 0 {
				f, ok := <-in
				if !ok {
					exit = true
					continue
				}

				queue = append(queue, f)
				continue
			}

			select {
			case f, ok := <-in:
				if !ok {
					exit = true
					continue
				}

				queue = append(queue, f)
			case out <- queue[0]:
				queue = queue[1:]
			}
		}
	}()

	return in, out
}

// LimitSubmitter contains information about the pool size which is used
// to limit the submission of functions in parallel.
type LimitSubmitter struct {
	submitter Submitter
	in        chan<- func()
	size      int
	running   bool
}

func (l *LimitSubmitter) run(work <-chan func()) {
	var (
		exit bool
		done = make(chan struct{})
		ct   int
	)
	defer close(done)

	for ct > 0 || !exit {
		if ct < l.size && !exit {
			w, ok := <-work
			if !ok {
				exit = true
				continue
			}

			ct++
			l.submitter.Submit(func() {
				w()
				done <- struct{}{}
			})
			continue
		}

		<-done
		ct--
	}
}

// Start starts the workers of the LimitSubmitter.
func (l *LimitSubmitter) Start() {
	if !l.running {
		l.running = true
		in, out := workQueue()
		go l.run(out)
		l.in = in
	}
}

// Stop stops the workers of the LimitSubmitter.
func (l *LimitSubmitter) Stop() {
	if l.running {
		l.running = false
		close(l.in)
		l.in = nil
	}
}

// Submit dispatches the given function to the LimitSubmitter.
// The LimitSubmitter must be started before calling this function.
func (l *LimitSubmitter) Submit(f func()) {
	if !l.running {
		panic("cannot submit on non-running LimitSubmitter")
	}
	l.in <- f
}

// NewLimitSubmitter returns a new instance of a LimitSubmitter and a submit pool that has the given size.
func NewLimitSubmitter(submitter Submitter, size int) *LimitSubmitter {
	return &LimitSubmitter{
		submitter: submitter,
		size:      size,
	}
}

type unlimitedSubmitter struct{}

// Submit implements Submitter.Submit
func (unlimitedSubmitter) Submit(f func()) {
	go f()
}

// UnlimitedSubmitter is a submitter with an unlimited pool to submit functions.
var UnlimitedSubmitter = unlimitedSubmitter{}
