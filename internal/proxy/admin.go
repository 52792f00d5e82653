package proxy

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

// ClearCache asks the proxy to drop both cache tiers.
func (c *Client) ClearCache(ctx context.Context) error {
	if _, err := c.do(ctx, http.MethodPost, "/admin/cache/clear"); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}

// Metrics is the proxy's own view of cache performance.
type Metrics struct {
	TotalRequests  int64
	ExactHits      int64
	SemanticHits   int64
	Misses         int64
	HitRatePercent float64
	TokensSaved    int64
	CostSavedUSD   float64
}

// Metrics reads GET /metrics.
func (c *Client) Metrics(ctx context.Context) (Metrics, error) {
	body, err := c.do(ctx, http.MethodGet, "/metrics")
	if err != nil {
		return Metrics{}, fmt.Errorf("fetch metrics: %w", err)
	}
	return ParseMetrics(body)
}

// ParseMetrics extracts the cache_performance, token_usage and cost_analysis
// figures.
func ParseMetrics(body []byte) (Metrics, error) {
	if !gjson.ValidBytes(body) {
		return Metrics{}, fmt.Errorf("fetch metrics: invalid JSON")
	}
	perf := gjson.GetBytes(body, "cache_performance")
	if !perf.IsObject() {
		return Metrics{}, fmt.Errorf("fetch metrics: missing cache_performance")
	}
	return Metrics{
		TotalRequests:  perf.Get("total_requests").Int(),
		ExactHits:      perf.Get("exact_hits").Int(),
		SemanticHits:   perf.Get("semantic_hits").Int(),
		Misses:         perf.Get("misses").Int(),
		HitRatePercent: perf.Get("hit_rate_percent").Float(),
		TokensSaved:    gjson.GetBytes(body, "token_usage.tokens_saved").Int(),
		CostSavedUSD:   gjson.GetBytes(body, "cost_analysis.cost_saved_usd").Float(),
	}, nil
}

// EmbedHealth checks the embedding service's GET /health for {"status": "ok"}.
func EmbedHealth(ctx context.Context, httpClient *http.Client, embedURL string) error {
	body, err := New(embedURL, httpClient).do(ctx, http.MethodGet, "/health")
	if err != nil {
		return fmt.Errorf("embedding service health: %w", err)
	}
	if status := gjson.GetBytes(body, "status").String(); status != "ok" {
		return fmt.Errorf("embedding service health: status %q", status)
	}
	return nil
}
