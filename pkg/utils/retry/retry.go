// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and Skyglint contributors
//
// SPDX-License-Identifier: Apache-2.0

package retry

import (
	"context"
	"fmt"
	"time"
)

// Func is a function that reports whether an operation is done, should be retried, or failed for good.
// The following invariants hold:
//   - done == true, err == nil: the operation succeeded, retrying stops.
//   - done == true, err != nil: the operation failed severely, retrying stops and err is returned.
//   - done == false, err != nil: the operation failed intermittently, it is retried and err is
//     remembered as the last error.
//   - done == false, err == nil: the operation is not yet complete, it is retried.
type Func func(ctx context.Context) (done bool, err error)

// Ok returns (true, nil), indicating that the operation succeeded.
func Ok() (bool, error) {
	return true, nil
}

// NotOk returns (false, nil), indicating that the operation is not yet complete.
func NotOk() (bool, error) {
	return false, nil
}

// MinorError returns (false, err), indicating an intermittent failure that is worth retrying.
func MinorError(err error) (bool, error) {
	return false, err
}

// SevereError returns (true, err), indicating a failure that retrying cannot fix.
func SevereError(err error) (bool, error) {
	return true, err
}

// Error is returned when retrying was aborted by the context. It keeps the last error the retried
// function reported, if any.
type Error struct {
	ctxError error
	err      error
}

// NewError returns a new retry Error with the given context error and last recorded error.
func NewError(ctxError, err error) error {
	return &Error{ctxError, err}
}

// Unwrap returns the last recorded error, falling back to the context error.
func (e *Error) Unwrap() error {
	if e.err != nil {
		return e.err
	}
	return e.ctxError
}

// Error implements error.
func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("retry failed with %v, last error: %v", e.ctxError, e.err)
	}
	return fmt.Sprintf("retry failed with %v", e.ctxError)
}

// Until keeps retrying the given Func every interval until it is done or the context is cancelled.
func Until(ctx context.Context, interval time.Duration, f Func) error {
	var lastError error

	for {
		done, err := f(ctx)
		if err != nil {
			if done {
				return err
			}
			lastError = err
		} else if done {
			return nil
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return NewError(ctx.Err(), lastError)
		case <-timer.C:
		}
	}
}

// UntilTimeout behaves like Until but additionally bounds the total retry time by the given timeout.
func UntilTimeout(ctx context.Context, interval, timeout time.Duration, f Func) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return Until(ctx, interval, f)
}
