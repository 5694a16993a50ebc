package retry

import (
	"context"
	"testing"
	"time"
)

func TestDelay_MonotonicAndCapped(t *testing.T) {
	p := DefaultPolicy()

	prev := time.Duration(0)
	for attempt := 0; attempt < 50; attempt++ {
		d := p.Delay(attempt)
		if d < prev {
			t.Fatalf("delay decreased at attempt %d: %v < %v", attempt, d, prev)
		}
		if d > p.MaxDelay {
			t.Fatalf("delay %v exceeds cap %v at attempt %d", d, p.MaxDelay, attempt)
		}
		prev = d
	}
}

func TestDelay_ExponentialGrowth(t *testing.T) {
	p := Policy{BaseDelay: time.Second, MaxDelay: 30 * time.Second, Multiplier: 2}

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second}, // 32s capped
		{6, 30 * time.Second},
	}
	for _, tc := range cases {
		if got := p.Delay(tc.attempt); got != tc.want {
			t.Errorf("attempt %d: expected %v, got %v", tc.attempt, tc.want, got)
		}
	}
}

func TestDelay_NegativeAttemptClamped(t *testing.T) {
	p := DefaultPolicy()
	if got := p.Delay(-3); got != p.BaseDelay {
		t.Fatalf("expected base delay for negative attempt, got %v", got)
	}
}

func TestWait_RespectsCancellation(t *testing.T) {
	p := Policy{BaseDelay: time.Hour, MaxDelay: time.Hour, Multiplier: 2}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := p.Wait(ctx, 0)
	if err == nil {
		t.Fatalf("expected context error")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("Wait blocked %v despite cancelled context", elapsed)
	}
}

func TestWait_ZeroDelayReturnsImmediately(t *testing.T) {
	p := Policy{BaseDelay: 0, MaxDelay: 0, Multiplier: 2}
	if err := p.Wait(context.Background(), 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
