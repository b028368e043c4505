package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestPerSecondInterval(t *testing.T) {
	tests := []struct {
		n    int
		want time.Duration
	}{
		{1, time.Second},
		{2, 500 * time.Millisecond},
		{4, 250 * time.Millisecond},
		{10, 100 * time.Millisecond},
		{0, time.Second},  // clamped
		{-5, time.Second}, // clamped
	}

	for _, tt := range tests {
		if got := PerSecond(tt.n).Interval(); got != tt.want {
			t.Errorf("PerSecond(%d).Interval() = %v, want %v", tt.n, got, tt.want)
		}
	}
}

func TestWaitPaces(t *testing.T) {
	limiter := NewIntervalLimiter(20 * time.Millisecond)

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := limiter.Wait(context.Background()); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}
	elapsed := time.Since(start)

	// Three waits at 20ms each; allow scheduler slack upward only.
	if elapsed < 60*time.Millisecond {
		t.Errorf("3 waits took %v, want at least 60ms", elapsed)
	}
}

func TestWaitHonorsContext(t *testing.T) {
	limiter := NewIntervalLimiter(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := limiter.Wait(ctx)
	if err != context.Canceled {
		t.Errorf("Wait() error = %v, want context.Canceled", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Wait() did not yield promptly on cancellation")
	}
}

func TestZeroIntervalDoesNotBlock(t *testing.T) {
	limiter := NewIntervalLimiter(0)
	if err := limiter.Wait(context.Background()); err != nil {
		t.Errorf("Wait() error = %v", err)
	}
}
