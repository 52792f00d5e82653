package runner

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/torosent/cacheprobe/internal/metrics"
	"github.com/torosent/cacheprobe/internal/probe"
)

// Prober executes one probe and returns its record. *probe.Executor satisfies it.
type Prober interface {
	Probe(ctx context.Context, req probe.Request) metrics.Record
}

// ArrivalModel selects how paced probes are spread over time.
type ArrivalModel string

const (
	ArrivalModelUniform ArrivalModel = "uniform"
	ArrivalModelPoisson ArrivalModel = "poisson"
)

// DefaultScenario tags records produced by the worker pool.
const DefaultScenario = "concurrent"

// Options configure the Runner.
type Options struct {
	Workers           int      // number of worker goroutines
	RequestsPerWorker int      // probes issued by each worker
	Queries           []string // pool each probe draws from uniformly
	Scenario          string
	Prober            Prober // required
	RatePerSecond     int    // extra pacing across all workers (0 means unpaced)
	ArrivalModel      ArrivalModel
	RandomSeed        int64                       // 0 seeds from the clock
	LimiterFactory    func(rps int) *rate.Limiter // optional injection for tests
	PoissonSampler    func() float64              // optional injection for tests
}

func (o *Options) normalize() {
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.RequestsPerWorker < 0 {
		o.RequestsPerWorker = 0
	}
	if o.RatePerSecond < 0 {
		o.RatePerSecond = 0
	}
	if o.Scenario == "" {
		o.Scenario = DefaultScenario
	}
	if o.ArrivalModel == "" {
		o.ArrivalModel = ArrivalModelUniform
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(rps int) *rate.Limiter {
			if rps <= 0 {
				return rate.NewLimiter(rate.Inf, 0)
			}
			// Burst of one keeps workers from firing together at start.
			return rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}
