// Package metrics holds probe records and turns them into cache statistics.
//
// # Collector
//
// A [Collector] is the shared, append-only record set for a run. Probe workers
// append to it concurrently:
//
//	collector := metrics.NewCollector()
//	collector.Append(rec)       // classified response
//	collector.AppendError(rec)  // terminal failure, also bumps the error counter
//
// [Collector.Live] returns running counts plus histogram based p95 latencies
// per tier for progress output.
//
// # Summary
//
// [Summarize] is a pure function over a snapshot from [Collector.Records]:
//
//	summary := metrics.Summarize(collector.Records(), limiter.Waits())
//
// It reports tier counts, hit rate, simulated cost spent versus saved, token
// totals, per-tier latency (mean, median, p95) and a per-scenario breakdown.
// Summarizing the same snapshot twice yields identical results.
package metrics
