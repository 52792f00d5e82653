// Package runner drives probes at the caching proxy in bulk.
//
// [Runner] starts a fixed pool of workers. Each worker issues a fixed number of
// probes, picking every query uniformly at random from a shared pool with its own
// random source, and tags its records with a worker id ("w0", "w1", ...). Run
// returns once every worker has finished.
//
//	r := runner.New(runner.Options{
//		Workers:           5,
//		RequestsPerWorker: 4,
//		Queries:           queries,
//		Prober:            executor,
//	})
//	result := r.Run(ctx)
//
// [Mixed] runs a sequential workload that cycles through a query list in order,
// so repeated entries exercise the exact and semantic caches between misses.
//
// # Pacing
//
// The per-minute ceiling is enforced by the probe executor's limiter. Runner can
// additionally spread probes per second:
//   - [ArrivalModelUniform]: fixed spacing through golang.org/x/time/rate
//   - [ArrivalModelPoisson]: exponential inter-arrival times
package runner
