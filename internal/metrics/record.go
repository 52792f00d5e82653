package metrics

import (
	"math"
	"time"
)

// Tier classifies where a response was served from.
type Tier string

const (
	TierExact    Tier = "EXACT_HIT"
	TierSemantic Tier = "SEMANTIC_HIT"
	TierMiss     Tier = "MISS"
	TierError    Tier = "ERROR"
)

// Tiers lists every tier in report order.
var Tiers = []Tier{TierExact, TierSemantic, TierMiss, TierError}

// IsHit reports whether the tier was served from either cache.
func (t Tier) IsHit() bool {
	return t == TierExact || t == TierSemantic
}

const (
	maxQueryChars = 100
	maxErrorChars = 200
	ellipsis      = "..."
)

// Record is the outcome of one probe. Records are never modified after creation.
type Record struct {
	Scenario        string    `json:"scenario"`
	Query           string    `json:"query"`
	Tier            Tier      `json:"cache_status"`
	LatencyMs       float64   `json:"latency_ms"`
	Tokens          int       `json:"tokens"`
	CostUSD         float64   `json:"cost_usd"`
	Timestamp       time.Time `json:"timestamp"`
	QueryLength     int       `json:"query_length"`
	ResponseLength  int       `json:"response_length"`
	WorkerID        string    `json:"thread_id,omitempty"`
	Error           string    `json:"error,omitempty"`
	ErrorKind       string    `json:"error_kind,omitempty"`
	ThrottleRetries int       `json:"throttle_retries,omitempty"`
}

// TruncateQuery caps query text at 100 characters, appending an ellipsis when cut.
func TruncateQuery(q string) string {
	return truncate(q, maxQueryChars, ellipsis)
}

// TruncateError caps an error message at 200 characters.
func TruncateError(msg string) string {
	return truncate(msg, maxErrorChars, "")
}

func truncate(s string, limit int, suffix string) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + suffix
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}

// DurationMs converts a duration to fractional milliseconds.
func DurationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
