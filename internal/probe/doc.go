// Package probe sends single chat completion probes through the caching proxy
// and classifies where each response was served from.
//
// # Executor
//
// An [Executor] combines a chat client, a rate limiter and the shared record
// collector:
//
//	exec := probe.New(probe.Options{
//		Client:   chatClient,
//		Limiter:  limiter,
//		Recorder: collector,
//	})
//	rec := exec.Probe(ctx, probe.Request{Query: "Explain Rust ownership", Scenario: "max_tokens"})
//
// # Classification
//
// [Thresholds] map measured latency onto a tier: below Exact is an exact cache
// hit, below Semantic is a similarity hit, anything slower went upstream.
//
// # Throttling
//
// When [IsThrottled] matches a failure the executor sleeps for the cooldown and
// tries again with the limiter bypassed. Throttle retries are not counted as
// errors; any other failure is recorded with tier ERROR.
package probe
