package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestSlidingWindowBoundaryTimestampLeavesWindow(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := NewSlidingWindow(2, WithWindow(time.Second), WithBuffer(0))
	s.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		if err := s.Wait(context.Background()); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}

	// The first two admissions sit exactly on the cutoff.
	now = now.Add(time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Wait(ctx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	if got := s.InWindow(); got > s.Limit() {
		t.Fatalf("InWindow() = %d, exceeds limit %d", got, s.Limit())
	}
	if got := s.InWindow(); got != 1 {
		t.Errorf("InWindow() = %d, want 1", got)
	}
	if s.Waits() != 0 {
		t.Errorf("Waits() = %d, want 0", s.Waits())
	}
}

func TestSlidingWindowJustInsideWindowWaits(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := NewSlidingWindow(1, WithWindow(time.Second), WithBuffer(0))
	s.now = func() time.Time { return now }

	if err := s.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	now = now.Add(time.Second - time.Millisecond)

	var waited time.Duration
	s.onWait = func(d time.Duration) { waited = d }
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Wait(ctx); err == nil {
		t.Fatal("Wait() error = nil, want context error while the window is full")
	}
	if waited != time.Millisecond {
		t.Errorf("wait = %s, want 1ms", waited)
	}
}
