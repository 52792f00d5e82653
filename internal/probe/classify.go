package probe

import (
	"time"

	"github.com/torosent/cacheprobe/internal/metrics"
)

// Thresholds separate cache tiers by observed latency. The proxy does not say
// where a response came from, so timing is the only signal available; tune the
// bounds per deployment.
type Thresholds struct {
	Exact    time.Duration // below this: exact-match cache
	Semantic time.Duration // below this: similarity cache; otherwise upstream
}

// DefaultThresholds returns the 5ms / 100ms tier boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Exact:    5 * time.Millisecond,
		Semantic: 100 * time.Millisecond,
	}
}

// Classify maps a latency onto a cache tier.
func (t Thresholds) Classify(latency time.Duration) metrics.Tier {
	switch {
	case latency < t.Exact:
		return metrics.TierExact
	case latency < t.Semantic:
		return metrics.TierSemantic
	default:
		return metrics.TierMiss
	}
}

// Validate reports whether the bounds are usable.
func (t Thresholds) Validate() []string {
	var issues []string
	if t.Exact <= 0 {
		issues = append(issues, "exact threshold must be > 0")
	}
	if t.Semantic <= t.Exact {
		issues = append(issues, "semantic threshold must be greater than the exact threshold")
	}
	return issues
}
