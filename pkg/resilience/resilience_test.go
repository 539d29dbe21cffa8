package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryStopsOnPermanent(t *testing.T) {
	sentinel := errors.New("gone")
	calls := 0
	err := Retry(context.Background(), "test", RetryConfig{MaxAttempts: 5, InitialDelay: time.Millisecond}, func() error {
		calls++
		return Permanent(sentinel)
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("err = %v, want sentinel", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryEventuallySucceeds(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "test", RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond}, func() error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
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

func TestWithinTimesOut(t *testing.T) {
	_, err := Within(context.Background(), 10*time.Millisecond, "slow", func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want DeadlineExceeded", err)
	}
}

func TestWithinReturnsValue(t *testing.T) {
	v, err := Within(context.Background(), time.Second, "fast", func(ctx context.Context) (string, error) {
		return "ok", nil
	})
	if err != nil || v != "ok" {
		t.Fatalf("Within = (%q, %v)", v, err)
	}
}

func TestCircuitBreakerOpensAndReportsTransitions(t *testing.T) {
	var states []State
	cb := NewCircuitBreaker("metadata", CircuitBreakerConfig{
		FailureThreshold: 2,
		ResetTimeout:     time.Hour,
		OnStateChange:    func(_ string, to State) { states = append(states, to) },
	})
	fail := func() error { return errors.New("boom") }
	_ = cb.Execute(fail)
	_ = cb.Execute(fail)

	if cb.GetState() != StateOpen {
		t.Fatalf("state = %v, want open", cb.GetState())
	}
	if err := cb.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("err = %v, want ErrCircuitOpen", err)
	}
	cb.Reset()
	if len(states) != 2 || states[0] != StateOpen || states[1] != StateClosed {
		t.Errorf("transitions = %v, want [open closed]", states)
	}
}
