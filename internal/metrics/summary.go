package metrics

import (
	"slices"
)

// LatencyStats summarises one tier's latency distribution in milliseconds.
type LatencyStats struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	P95    float64 `json:"p95"`
}

// ScenarioStats is the per-scenario breakdown.
type ScenarioStats struct {
	Total    int     `json:"total"`
	Hits     int     `json:"hits"`
	HitRate  float64 `json:"hit_rate"`
	Exact    int     `json:"exact_hits"`
	Semantic int     `json:"semantic_hits"`
	Misses   int     `json:"misses"`
	Errors   int     `json:"errors"`
}

// Summary is the aggregate view over a record snapshot.
type Summary struct {
	TotalRequests   int                      `json:"total_requests"`
	ExactHits       int                      `json:"exact_hits"`
	SemanticHits    int                      `json:"semantic_hits"`
	Misses          int                      `json:"misses"`
	Errors          int                      `json:"errors"`
	HitRate         float64                  `json:"hit_rate"`
	CostSavedUSD    float64                  `json:"cost_saved_usd"`
	CostSpentUSD    float64                  `json:"cost_spent_usd"`
	CostPossibleUSD float64                  `json:"cost_possible_usd"`
	SavingsPercent  float64                  `json:"savings_percent"`
	TokensSaved     int                      `json:"tokens_saved"`
	TokensUsed      int                      `json:"tokens_used"`
	LatencyExact    LatencyStats             `json:"latency_exact"`
	LatencySemantic LatencyStats             `json:"latency_semantic"`
	LatencyMiss     LatencyStats             `json:"latency_miss"`
	Speedup         float64                  `json:"speedup_exact_vs_miss"`
	ByScenario      map[string]ScenarioStats `json:"by_scenario"`
	ErrorKinds      map[string]int           `json:"error_kinds,omitempty"`
	RateLimitWaits  int64                    `json:"rate_limit_waits"`
}

// Summarize computes hit rates, cost and latency figures for records.
// It does not modify records and returns zeroed figures for an empty input.
func Summarize(records []Record, rateLimitWaits int64) Summary {
	s := Summary{
		TotalRequests:  len(records),
		ByScenario:     map[string]ScenarioStats{},
		RateLimitWaits: rateLimitWaits,
	}

	var exact, semantic, miss []float64
	for _, r := range records {
		sc := s.ByScenario[r.Scenario]
		sc.Total++

		switch r.Tier {
		case TierExact:
			s.ExactHits++
			sc.Exact++
			exact = append(exact, r.LatencyMs)
		case TierSemantic:
			s.SemanticHits++
			sc.Semantic++
			semantic = append(semantic, r.LatencyMs)
		case TierMiss:
			s.Misses++
			sc.Misses++
			miss = append(miss, r.LatencyMs)
			s.CostSpentUSD += r.CostUSD
			s.TokensUsed += r.Tokens
		case TierError:
			s.Errors++
			sc.Errors++
			if r.ErrorKind != "" {
				if s.ErrorKinds == nil {
					s.ErrorKinds = map[string]int{}
				}
				s.ErrorKinds[r.ErrorKind]++
			}
		}

		if r.Tier != TierError {
			s.CostPossibleUSD += r.CostUSD
		}
		if r.Tier.IsHit() {
			s.TokensSaved += r.Tokens
			sc.Hits++
		}
		s.ByScenario[r.Scenario] = sc
	}

	for name, sc := range s.ByScenario {
		sc.HitRate = percent(sc.Hits, sc.Total)
		s.ByScenario[name] = sc
	}

	s.HitRate = percent(s.ExactHits+s.SemanticHits, s.TotalRequests)
	s.CostSavedUSD = s.CostPossibleUSD - s.CostSpentUSD
	if s.CostPossibleUSD > 0 {
		s.SavingsPercent = s.CostSavedUSD / s.CostPossibleUSD * 100
	}

	s.LatencyExact = latencyStats(exact)
	s.LatencySemantic = latencyStats(semantic)
	s.LatencyMiss = latencyStats(miss)
	if s.LatencyExact.Mean > 0 && s.LatencyMiss.Mean > 0 {
		s.Speedup = s.LatencyMiss.Mean / s.LatencyExact.Mean
	}
	return s
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

func latencyStats(values []float64) LatencyStats {
	if len(values) == 0 {
		return LatencyStats{}
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	return LatencyStats{
		Mean:   sum / float64(len(sorted)),
		Median: Percentile(sorted, 50),
		P95:    Percentile(sorted, 95),
	}
}

// Percentile returns the p-th percentile of an ascending slice using inclusive
// linear interpolation between closest ranks, so the result never leaves
// [min, max]. Exclusive-method tools extrapolate on small samples and report
// higher tails: for [1, 2] p95 is 1.95 here and 2.85 there. It returns 0 for
// an empty slice and the only element for a single-element slice.
func Percentile(sorted []float64, p float64) float64 {
	switch len(sorted) {
	case 0:
		return 0
	case 1:
		return sorted[0]
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(rank)
	frac := rank - float64(lo)
	if lo+1 >= len(sorted) {
		return sorted[lo]
	}
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
