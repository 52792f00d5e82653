package runner

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"
)

// pacer spaces probes issued by all workers combined.
type pacer interface {
	Wait(ctx context.Context) error
}

// newPacer returns nil when no per-second pacing is configured. Uniform pacing
// is a token bucket; Poisson pacing draws exponential gaps from a shared schedule.
func newPacer(opt Options) pacer {
	if opt.RatePerSecond <= 0 {
		return nil
	}
	if opt.ArrivalModel == ArrivalModelPoisson {
		sample := opt.PoissonSampler
		if sample == nil {
			sample = rand.New(rand.NewSource(opt.RandomSeed)).ExpFloat64
		}
		return &poissonPacer{
			mean:   time.Second / time.Duration(opt.RatePerSecond),
			sample: sample,
			now:    time.Now,
		}
	}
	return opt.LimiterFactory(opt.RatePerSecond)
}

// poissonPacer hands out arrival slots one exponential gap apart. Slots are
// reserved under mu, so concurrent workers share one arrival process and the
// sampler is never called concurrently.
type poissonPacer struct {
	mu     sync.Mutex
	mean   time.Duration
	next   time.Time
	sample func() float64
	now    func() time.Time
}

func (p *poissonPacer) Wait(ctx context.Context) error {
	delay := p.reserve()
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// reserve claims the next slot and returns how long until it opens.
func (p *poissonPacer) reserve() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	slot := p.next
	if slot.Before(now) {
		slot = now
	}
	p.next = slot.Add(p.gap())
	return slot.Sub(now)
}

func (p *poissonPacer) gap() time.Duration {
	g := float64(p.mean) * p.sample()
	if g > math.MaxInt64 {
		return math.MaxInt64
	}
	return time.Duration(g)
}
