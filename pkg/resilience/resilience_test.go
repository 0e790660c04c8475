package resilience

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/hybrid-search/pkg/errors"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{MaxAttempts: attempts, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "flaky", fastRetry(3), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryGivesUp(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := Retry(context.Background(), "broken", fastRetry(2), func() error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped boom", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestRetryStopsOnPermanent(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "bad-input", fastRetry(5), func() error {
		calls++
		return Permanent(apperrors.ErrEmbeddingDimensionMismatch)
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if !errors.Is(err, apperrors.ErrEmbeddingDimensionMismatch) || !IsPermanent(err) {
		t.Errorf("err = %v", err)
	}
	if Permanent(nil) != nil {
		t.Error("Permanent(nil) should be nil")
	}
}

func TestRetryHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Retry(ctx, "cancelled", fastRetry(5), func() error { return errors.New("fail") })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestWithTimeout(t *testing.T) {
	err := WithTimeout(context.Background(), 10*time.Millisecond, "slow", func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(5 * time.Millisecond)
		return ctx.Err()
	})
	if !errors.Is(err, apperrors.ErrTimeout) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want timeout", err)
	}

	if err := WithTimeout(context.Background(), time.Second, "fast", func(context.Context) error { return nil }); err != nil {
		t.Errorf("fast call: %v", err)
	}
	if err := WithTimeout(context.Background(), 0, "unbounded", func(context.Context) error { return nil }); err != nil {
		t.Errorf("zero timeout: %v", err)
	}
}

func TestCircuitBreakerTripsAndRecovers(t *testing.T) {
	var transitions []string
	cb := NewCircuitBreaker("embedder", CircuitBreakerConfig{
		FailureThreshold: 2,
		ResetTimeout:     time.Minute,
		OnStateChange: func(_ string, from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})
	now := time.Now()
	cb.now = func() time.Time { return now }
	fail := func() error { return errors.New("down") }
	_ = cb.Execute(fail)
	_ = cb.Execute(fail)
	if cb.GetState() != StateOpen {
		t.Fatalf("state = %v, want open", cb.GetState())
	}
	err := cb.Execute(func() error { return nil })
	if !errors.Is(err, ErrCircuitOpen) || !errors.Is(err, apperrors.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
	if apperrors.HTTPStatusCode(err) != 503 {
		t.Errorf("open circuit should map to 503")
	}
	if err := cb.Healthy(context.Background()); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Healthy = %v while open", err)
	}

	now = now.Add(time.Minute)
	if err := cb.Execute(fail); err == nil {
		t.Fatal("failed trial request should return its error")
	}
	if cb.GetState() != StateOpen {
		t.Fatalf("failed trial request should reopen, state = %v", cb.GetState())
	}

	now = now.Add(time.Minute)
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("trial request: %v", err)
	}
	if cb.GetState() != StateClosed || cb.Healthy(context.Background()) != nil {
		t.Errorf("state = %v, want closed", cb.GetState())
	}

	want := []string{"closed->open", "open->half-open", "half-open->open", "open->half-open", "half-open->closed"}
	if strings.Join(transitions, " ") != strings.Join(want, " ") {
		t.Errorf("transitions = %v, want %v", transitions, want)
	}
}

func TestCircuitBreakerIgnoresPermanentErrors(t *testing.T) {
	cb := NewCircuitBreaker("embedder", CircuitBreakerConfig{FailureThreshold: 1})
	_ = cb.Execute(func() error { return Permanent(apperrors.ErrInvalidParameter) })
	if cb.GetState() != StateClosed {
		t.Errorf("permanent error tripped the circuit")
	}
}

func TestWithTimeoutParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := WithTimeout(ctx, time.Second, "cancelled", func(ctx context.Context) error { return ctx.Err() })
	if !errors.Is(err, context.Canceled) || errors.Is(err, apperrors.ErrTimeout) {
		t.Errorf("err = %v, want plain cancellation", err)
	}
}
