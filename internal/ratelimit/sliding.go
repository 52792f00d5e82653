// Package ratelimit bounds how many probes are issued per trailing time window.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultWindow is the trailing interval the ceiling applies to.
	DefaultWindow = time.Minute
	// DefaultBuffer is added to every forced wait so the next decision does not
	// land exactly on the window boundary.
	DefaultBuffer = 500 * time.Millisecond
)

// SlidingWindow permits at most Limit requests within any trailing Window.
// It is safe for concurrent use.
type SlidingWindow struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	buffer time.Duration
	times  []time.Time
	waits  int64
	now    func() time.Time
	onWait func(time.Duration)
}

// Option customises a SlidingWindow.
type Option func(*SlidingWindow)

// WithWindow overrides the trailing window length.
func WithWindow(d time.Duration) Option {
	return func(s *SlidingWindow) {
		if d > 0 {
			s.window = d
		}
	}
}

// WithBuffer overrides the extra sleep added to each forced wait.
func WithBuffer(d time.Duration) Option {
	return func(s *SlidingWindow) {
		if d >= 0 {
			s.buffer = d
		}
	}
}

// WithWaitHook registers a callback invoked (under the limiter lock) each time a
// caller is about to sleep.
func WithWaitHook(fn func(time.Duration)) Option {
	return func(s *SlidingWindow) {
		s.onWait = fn
	}
}

// NewSlidingWindow creates a limiter allowing perMinute requests per window.
// A non-positive perMinute disables limiting.
func NewSlidingWindow(perMinute int, opts ...Option) *SlidingWindow {
	s := &SlidingWindow{
		limit:  perMinute,
		window: DefaultWindow,
		buffer: DefaultBuffer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.limit > 0 {
		s.times = make([]time.Time, 0, s.limit)
	}
	return s
}

// Wait blocks until one more request fits inside the window and records it.
// The lock is held while sleeping so that concurrent callers are admitted in order.
// The only possible error is ctx being done.
func (s *SlidingWindow) Wait(ctx context.Context) error {
	if s == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.limit <= 0 {
		return nil
	}

	now := s.now()
	s.evict(now)

	if len(s.times) >= s.limit {
		wait := s.times[0].Add(s.window).Sub(now)
		if wait > 0 {
			s.waits++
			if s.onWait != nil {
				s.onWait(wait)
			}
			timer := time.NewTimer(wait + s.buffer)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			now = s.now()
			s.evict(now)
		}
	}

	s.times = append(s.times, now)
	return nil
}

// evict drops timestamps at or before now-window, so a full window always has
// a positive wait. Caller holds mu.
func (s *SlidingWindow) evict(now time.Time) {
	cutoff := now.Add(-s.window)
	drop := 0
	for drop < len(s.times) && !s.times[drop].After(cutoff) {
		drop++
	}
	if drop > 0 {
		s.times = append(s.times[:0], s.times[drop:]...)
	}
}

// Waits reports how many calls to Wait had to sleep.
func (s *SlidingWindow) Waits() int64 {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waits
}

// InWindow reports how many permitted requests are currently inside the window.
func (s *SlidingWindow) InWindow() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evict(s.now())
	return len(s.times)
}

// Limit returns the configured ceiling.
func (s *SlidingWindow) Limit() int {
	if s == nil {
		return 0
	}
	return s.limit
}
