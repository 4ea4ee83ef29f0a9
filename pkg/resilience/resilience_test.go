// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jllopis/telos/pkg/errors"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := fastRetry(3).Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return fmt.Errorf("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success on third attempt, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	err := fastRetry(3).Do(context.Background(), func() error {
		calls++
		return fmt.Errorf("always")
	})
	if err == nil {
		t.Fatal("expected the last error after exhaustion")
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetryStopsOnUnrecoverable(t *testing.T) {
	calls := 0
	fatal := errors.New(errors.KindConfiguration, "bad setup", nil)
	err := fastRetry(5).Do(context.Background(), func() error {
		calls++
		return fatal
	})
	if err != fatal {
		t.Fatalf("expected the fatal error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("unrecoverable error must not retry, got %d calls", calls)
	}
}

func TestRetryRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := RetryConfig{MaxAttempts: 3, InitialDelay: time.Hour}
	err := cfg.Do(ctx, func() error { return fmt.Errorf("fail") })
	if err == nil {
		t.Fatal("expected an error from canceled context")
	}
}

func TestDoWithResult(t *testing.T) {
	value, err := fastRetry(2).DoWithResult(context.Background(), func() (any, error) {
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != 42 {
		t.Errorf("expected 42, got %v", value)
	}
}

func TestWithTimeoutResultCompletes(t *testing.T) {
	value, err := WithTimeoutResult(context.Background(), time.Second, func(context.Context) (any, error) {
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != "ok" {
		t.Errorf("expected ok, got %v", value)
	}
}

func TestWithTimeoutResultExpires(t *testing.T) {
	_, err := WithTimeoutResult(context.Background(), 10*time.Millisecond, func(ctx context.Context) (any, error) {
		select {
		case <-time.After(time.Second):
		case <-ctx.Done():
		}
		return "late", nil
	})
	if errors.KindOf(err) != errors.KindToolTimeout {
		t.Errorf("expected TOOL_TIMEOUT, got %v", err)
	}
}

func TestWithTimeoutResultZeroMeansUnbounded(t *testing.T) {
	value, err := WithTimeoutResult(context.Background(), 0, func(context.Context) (any, error) {
		return 1, nil
	})
	if err != nil || value != 1 {
		t.Errorf("zero timeout should run inline, got %v, %v", value, err)
	}
}
