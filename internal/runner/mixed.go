package runner

import (
	"context"
	"time"

	"github.com/torosent/cacheprobe/internal/metrics"
	"github.com/torosent/cacheprobe/internal/probe"
)

// DefaultMixedScenario tags records produced by Mixed.
const DefaultMixedScenario = "rapid_fire"

// MixedOptions configure a sequential mixed workload.
type MixedOptions struct {
	Queries  []string // repeated entries weight the mix toward cache hits
	Total    int
	Scenario string
	Prober   Prober
	// OnProgress is called after every probe with the number completed so far.
	OnProgress func(done, total int)
}

// Mixed issues Total probes one after another, cycling through Queries in order.
func Mixed(ctx context.Context, opt MixedOptions) Result {
	start := time.Now()
	if opt.Prober == nil || len(opt.Queries) == 0 || opt.Total <= 0 {
		return Result{Duration: time.Since(start)}
	}
	if opt.Scenario == "" {
		opt.Scenario = DefaultMixedScenario
	}

	var res Result
	for i := 0; i < opt.Total; i++ {
		if ctx.Err() != nil {
			break
		}
		rec := opt.Prober.Probe(ctx, probe.Request{
			Query:    opt.Queries[i%len(opt.Queries)],
			Scenario: opt.Scenario,
		})
		res.Total++
		if rec.Tier == metrics.TierError {
			res.Errors++
		}
		if opt.OnProgress != nil {
			opt.OnProgress(i+1, opt.Total)
		}
	}
	res.Duration = time.Since(start)
	return res
}
