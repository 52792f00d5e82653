package runner

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/torosent/cacheprobe/internal/metrics"
	"github.com/torosent/cacheprobe/internal/probe"
)

// Result captures execution summary.
type Result struct {
	Total    int64
	Errors   int64
	Duration time.Duration
}

// Runner drives a fixed pool of workers, each issuing a fixed number of probes.
type Runner struct {
	opt   Options
	pacer pacer
}

func New(opt Options) *Runner {
	opt.normalize()
	return &Runner{opt: opt, pacer: newPacer(opt)}
}

// Run starts every worker and returns once all of them have finished. A
// cancelled context stops workers before their next probe.
func (r *Runner) Run(ctx context.Context) Result {
	start := time.Now()
	if r.opt.Prober == nil || len(r.opt.Queries) == 0 || r.opt.RequestsPerWorker == 0 {
		return Result{Duration: time.Since(start)}
	}

	seed := r.opt.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	var total, errs int64
	var wg sync.WaitGroup
	wg.Add(r.opt.Workers)
	for i := 0; i < r.opt.Workers; i++ {
		w := worker{
			id:  fmt.Sprintf("w%d", i),
			rng: rand.New(rand.NewSource(seed + int64(i))),
		}
		go func() {
			defer wg.Done()
			for n := 0; n < r.opt.RequestsPerWorker; n++ {
				if ctx.Err() != nil {
					return
				}
				if r.pacer != nil {
					if err := r.pacer.Wait(ctx); err != nil {
						return
					}
				}
				rec := r.opt.Prober.Probe(ctx, probe.Request{
					Query:    r.opt.Queries[w.rng.Intn(len(r.opt.Queries))],
					Scenario: r.opt.Scenario,
					WorkerID: w.id,
				})
				atomic.AddInt64(&total, 1)
				if rec.Tier == metrics.TierError {
					atomic.AddInt64(&errs, 1)
				}
			}
		}()
	}
	wg.Wait()

	return Result{
		Total:    atomic.LoadInt64(&total),
		Errors:   atomic.LoadInt64(&errs),
		Duration: time.Since(start),
	}
}

// worker owns its random source; *rand.Rand is not safe for concurrent use.
type worker struct {
	id  string
	rng *rand.Rand
}
