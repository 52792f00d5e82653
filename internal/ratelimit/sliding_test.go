package ratelimit_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/torosent/cacheprobe/internal/ratelimit"
)

func TestSlidingWindowAdmitsUpToLimitWithoutWaiting(t *testing.T) {
	limiter := ratelimit.NewSlidingWindow(5, ratelimit.WithWindow(time.Second), ratelimit.WithBuffer(0))

	start := time.Now()
	for i := 0; i < 5; i++ {
		if err := limiter.Wait(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("expected no waiting below the ceiling, took %s", elapsed)
	}
	if limiter.Waits() != 0 {
		t.Fatalf("expected 0 waits, got %d", limiter.Waits())
	}
	if got := limiter.InWindow(); got != 5 {
		t.Fatalf("expected 5 requests in window, got %d", got)
	}
}

// TestSlidingWindowBlocksUntilOldestExpires checks that call N+1 does not return
// before the first call's timestamp plus the window.
func TestSlidingWindowBlocksUntilOldestExpires(t *testing.T) {
	const (
		ceiling = 3
		window  = 200 * time.Millisecond
	)
	limiter := ratelimit.NewSlidingWindow(ceiling, ratelimit.WithWindow(window), ratelimit.WithBuffer(10*time.Millisecond))

	first := time.Now()
	for i := 0; i < ceiling; i++ {
		if err := limiter.Wait(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if returned := time.Now(); returned.Before(first.Add(window)) {
		t.Fatalf("call %d returned after %s, before window %s elapsed", ceiling+1, returned.Sub(first), window)
	}
	if limiter.Waits() != 1 {
		t.Fatalf("expected 1 wait, got %d", limiter.Waits())
	}
}

func TestSlidingWindowDisabled(t *testing.T) {
	limiter := ratelimit.NewSlidingWindow(0)
	for i := 0; i < 1000; i++ {
		if err := limiter.Wait(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if limiter.Waits() != 0 {
		t.Fatalf("disabled limiter should never wait")
	}
}

func TestSlidingWindowConcurrentCallers(t *testing.T) {
	const (
		ceiling = 4
		callers = 10
		window  = 150 * time.Millisecond
	)

	var (
		mu        sync.Mutex
		maxInside int
	)
	limiter := ratelimit.NewSlidingWindow(ceiling, ratelimit.WithWindow(window), ratelimit.WithBuffer(5*time.Millisecond))

	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			if err := limiter.Wait(context.Background()); err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			inside := limiter.InWindow()
			mu.Lock()
			if inside > maxInside {
				maxInside = inside
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	if maxInside > ceiling {
		t.Fatalf("observed %d requests inside the window, ceiling is %d", maxInside, ceiling)
	}
	if limiter.Waits() < 1 {
		t.Fatalf("expected at least one forced wait with %d callers and ceiling %d", callers, ceiling)
	}
}

func TestSlidingWindowHonoursContextCancellation(t *testing.T) {
	limiter := ratelimit.NewSlidingWindow(1, ratelimit.WithWindow(time.Hour))
	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := limiter.Wait(ctx); err == nil {
		t.Fatalf("expected context error while waiting")
	}
	if got := limiter.InWindow(); got != 1 {
		t.Fatalf("cancelled wait must not record a timestamp, window holds %d", got)
	}
}

func TestSlidingWindowWaitHook(t *testing.T) {
	var hooked time.Duration
	limiter := ratelimit.NewSlidingWindow(1,
		ratelimit.WithWindow(50*time.Millisecond),
		ratelimit.WithBuffer(0),
		ratelimit.WithWaitHook(func(d time.Duration) { hooked = d }),
	)
	_ = limiter.Wait(context.Background())
	_ = limiter.Wait(context.Background())
	if hooked <= 0 || hooked > 50*time.Millisecond {
		t.Fatalf("expected hook to receive a wait within the window, got %s", hooked)
	}
}
