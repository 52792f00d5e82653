package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/torosent/cacheprobe/internal/metrics"
	"github.com/torosent/cacheprobe/internal/proxy"
	"github.com/torosent/cacheprobe/internal/threshold"
)

var rule = strings.Repeat("=", 70)

// PrintReport outputs a human-readable summary report.
func PrintReport(w io.Writer, s metrics.Summary) {
	fmt.Fprintf(w, "\n%s\nCACHE TEST RESULTS\n%s\n", rule, rule)

	fmt.Fprintln(w, "\nCache Performance:")
	fmt.Fprintf(w, "  Total:        %d\n", s.TotalRequests)
	fmt.Fprintf(w, "  Exact Hits:   %d (%.1f%%)\n", s.ExactHits, share(s.ExactHits, s.TotalRequests))
	fmt.Fprintf(w, "  Semantic:     %d (%.1f%%)\n", s.SemanticHits, share(s.SemanticHits, s.TotalRequests))
	fmt.Fprintf(w, "  Misses:       %d\n", s.Misses)
	fmt.Fprintf(w, "  Errors:       %d\n", s.Errors)
	fmt.Fprintf(w, "  Hit Rate:     %.1f%%\n", s.HitRate)

	fmt.Fprintln(w, "\nCost:")
	fmt.Fprintf(w, "  Saved:        $%.4f (%.1f%%)\n", s.CostSavedUSD, s.SavingsPercent)
	fmt.Fprintf(w, "  Spent:        $%.4f\n", s.CostSpentUSD)
	fmt.Fprintf(w, "  Tokens:       %d saved, %d used\n", s.TokensSaved, s.TokensUsed)

	fmt.Fprintln(w, "\nLatency (ms):")
	writeLatency(w, "Exact", s.LatencyExact)
	writeLatency(w, "Semantic", s.LatencySemantic)
	writeLatency(w, "Miss", s.LatencyMiss)
	if s.Speedup > 0 {
		fmt.Fprintf(w, "  Speedup:      %.0fx (exact vs miss)\n", s.Speedup)
	}

	fmt.Fprintln(w, "\nBy Scenario:")
	rows := metrics.FlattenScenarios(s.ByScenario)
	if len(rows) == 0 {
		fmt.Fprintln(w, "  None")
	}
	for _, row := range rows {
		fmt.Fprintf(w, "  %-20s: %d/%d (%.0f%%)\n", row.Name, row.Hits, row.Total, row.HitRate)
	}

	if kinds := metrics.FlattenErrorKinds(s.ErrorKinds); len(kinds) > 0 {
		fmt.Fprintln(w, "\nErrors:")
		for _, k := range kinds {
			fmt.Fprintf(w, "  %s: %d\n", k.Kind, k.Count)
		}
	}

	fmt.Fprintf(w, "\nRate Limiting: %d waits\n", s.RateLimitWaits)
	fmt.Fprintln(w, rule)
}

func writeLatency(w io.Writer, label string, l metrics.LatencyStats) {
	if l.Mean <= 0 {
		return
	}
	fmt.Fprintf(w, "  %-13s %.1f avg, %.1f median, %.1f p95\n", label+":", l.Mean, l.Median, l.P95)
}

func share(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, s metrics.Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// PrintProxyMetrics prints the proxy's own counters.
func PrintProxyMetrics(w io.Writer, m proxy.Metrics) {
	fmt.Fprintln(w, "\nProxy Metrics:")
	fmt.Fprintf(w, "  Total requests : %d\n", m.TotalRequests)
	fmt.Fprintf(w, "  Exact hits     : %d\n", m.ExactHits)
	fmt.Fprintf(w, "  Semantic hits  : %d\n", m.SemanticHits)
	fmt.Fprintf(w, "  Misses         : %d\n", m.Misses)
	fmt.Fprintf(w, "  Hit rate       : %.1f%%\n", m.HitRatePercent)
	fmt.Fprintf(w, "  Tokens saved   : %d\n", m.TokensSaved)
	fmt.Fprintf(w, "  Cost saved     : $%.6f\n", m.CostSavedUSD)
}

// PrintThresholds prints threshold outcomes and reports whether all passed.
func PrintThresholds(w io.Writer, results []threshold.Result) bool {
	if len(results) == 0 {
		return true
	}
	fmt.Fprintln(w, "\nThresholds:")
	for _, r := range results {
		fmt.Fprintf(w, "  %s\n", r)
	}
	return threshold.AllPass(results)
}
