// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"time"

	"github.com/jllopis/telos/pkg/errors"
)

// WithTimeoutResult races fn against a deadline, returning both result and
// error. A zero duration means no limit. On timeout the underlying fn keeps
// running in its goroutine until it returns on its own; fn must therefore be
// safe to abandon.
func WithTimeoutResult(ctx context.Context, d time.Duration, fn func(ctx context.Context) (any, error)) (any, error) {
	if d <= 0 {
		return fn(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type outcome struct {
		value any
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		value, err := fn(ctx)
		done <- outcome{value, err}
	}()

	select {
	case <-ctx.Done():
		return nil, errors.New(errors.KindToolTimeout, "operation exceeded timeout", ctx.Err()).
			WithContext("timeout", d.String())
	case out := <-done:
		return out.value, out.err
	}
}
