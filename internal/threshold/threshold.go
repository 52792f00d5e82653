// Package threshold evaluates pass/fail assertions such as
// "hit_rate:percent >= 50" against a run summary.
package threshold

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/torosent/cacheprobe/internal/metrics"
)

// Operator compares an observed value with a limit.
type Operator string

const (
	Less         Operator = "<"
	LessOrEqual  Operator = "<="
	Greater      Operator = ">"
	GreaterEqual Operator = ">="
	Equal        Operator = "=="
	NotEqual     Operator = "!="
)

// epsilon absorbs float noise in equality checks.
const epsilon = 1e-9

func (op Operator) valid() bool {
	switch op {
	case Less, LessOrEqual, Greater, GreaterEqual, Equal, NotEqual:
		return true
	}
	return false
}

// Holds reports whether actual op limit is true.
func (op Operator) Holds(actual, limit float64) bool {
	equal := math.Abs(actual-limit) < epsilon
	switch op {
	case Less:
		return actual < limit && !equal
	case LessOrEqual:
		return actual < limit || equal
	case Greater:
		return actual > limit && !equal
	case GreaterEqual:
		return actual > limit || equal
	case Equal:
		return equal
	case NotEqual:
		return !equal
	}
	return false
}

// Threshold is one parsed assertion.
type Threshold struct {
	Metric    string
	Aggregate string
	Op        Operator
	Limit     float64
	Raw       string
}

// Result is the outcome of checking one threshold.
type Result struct {
	Threshold Threshold
	Actual    float64
	Pass      bool
	Err       error
}

// String renders the result as a report line.
func (r Result) String() string {
	if r.Err != nil {
		return fmt.Sprintf("✗ %s: %v", r.Threshold.Raw, r.Err)
	}
	mark := "✓"
	if !r.Pass {
		mark = "✗"
	}
	return fmt.Sprintf("%s %s: %.2f %s %.2f", mark, r.Threshold.Raw, r.Actual, r.Threshold.Op, r.Threshold.Limit)
}

// measure reads one aggregate out of a summary.
type measure func(metrics.Summary) float64

func latencyMeasures(pick func(metrics.Summary) metrics.LatencyStats) map[string]measure {
	mean := func(s metrics.Summary) float64 { return pick(s).Mean }
	median := func(s metrics.Summary) float64 { return pick(s).Median }
	return map[string]measure{
		"mean":   mean,
		"avg":    mean,
		"median": median,
		"p50":    median,
		"p95":    func(s metrics.Summary) float64 { return pick(s).P95 },
	}
}

func count[N int | int64](pick func(metrics.Summary) N) map[string]measure {
	return map[string]measure{"count": func(s metrics.Summary) float64 { return float64(pick(s)) }}
}

// metricsByName lists every metric with the aggregates it supports.
var metricsByName = map[string]map[string]measure{
	"hit_rate": {"percent": func(s metrics.Summary) float64 { return s.HitRate }},
	"savings": {
		"percent": func(s metrics.Summary) float64 { return s.SavingsPercent },
		"usd":     func(s metrics.Summary) float64 { return s.CostSavedUSD },
	},
	"speedup":          {"ratio": func(s metrics.Summary) float64 { return s.Speedup }},
	"latency_exact":    latencyMeasures(func(s metrics.Summary) metrics.LatencyStats { return s.LatencyExact }),
	"latency_semantic": latencyMeasures(func(s metrics.Summary) metrics.LatencyStats { return s.LatencySemantic }),
	"latency_miss":     latencyMeasures(func(s metrics.Summary) metrics.LatencyStats { return s.LatencyMiss }),
	"tokens_saved":     count(func(s metrics.Summary) int { return s.TokensSaved }),
	"requests":         count(func(s metrics.Summary) int { return s.TotalRequests }),
	"rate_limit_waits": count(func(s metrics.Summary) int64 { return s.RateLimitWaits }),
	"errors": {
		"count": func(s metrics.Summary) float64 { return float64(s.Errors) },
		"rate": func(s metrics.Summary) float64 {
			if s.TotalRequests == 0 {
				return 0
			}
			return float64(s.Errors) / float64(s.TotalRequests)
		},
	},
}

var syntax = regexp.MustCompile(`^([a-z_]+):([a-z0-9]+)\s*([<>=!]+)\s*([0-9.]+)$`)

// Parse reads "metric:aggregate op value". Metrics are hit_rate:percent,
// savings:percent|usd, speedup:ratio, latency_{exact,semantic,miss} with
// mean|avg|median|p50|p95 in milliseconds, errors:count|rate (rate is a
// fraction), and tokens_saved, requests and rate_limit_waits with count.
func Parse(s string) (Threshold, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Threshold{}, errors.New("empty threshold")
	}
	m := syntax.FindStringSubmatch(s)
	if m == nil {
		return Threshold{}, fmt.Errorf("%q does not match metric:aggregate <op> value (e.g. hit_rate:percent >= 50)", s)
	}
	th := Threshold{Metric: m[1], Aggregate: m[2], Op: Operator(m[3]), Raw: s}

	aggregates, ok := metricsByName[th.Metric]
	if !ok {
		return Threshold{}, fmt.Errorf("unknown metric %q (known: %s)", th.Metric, keyList(metricsByName))
	}
	if _, ok := aggregates[th.Aggregate]; !ok {
		return Threshold{}, fmt.Errorf("metric %s has no aggregate %q (known: %s)", th.Metric, th.Aggregate, keyList(aggregates))
	}
	if !th.Op.valid() {
		return Threshold{}, fmt.Errorf("unknown operator %q (known: < <= > >= == !=)", th.Op)
	}
	limit, err := strconv.ParseFloat(m[4], 64)
	if err != nil {
		return Threshold{}, fmt.Errorf("limit %q: %w", m[4], err)
	}
	th.Limit = limit
	return th, nil
}

// ParseMultiple parses each expression and reports every bad one at once.
func ParseMultiple(exprs []string) ([]Threshold, error) {
	var (
		out  []Threshold
		errs []error
	)
	for i, expr := range exprs {
		th, err := Parse(expr)
		if err != nil {
			errs = append(errs, fmt.Errorf("threshold %d: %w", i+1, err))
			continue
		}
		out = append(out, th)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return out, nil
}

// Evaluate checks every threshold against s, in order.
func Evaluate(thresholds []Threshold, s metrics.Summary) []Result {
	if len(thresholds) == 0 {
		return nil
	}
	results := make([]Result, len(thresholds))
	for i, th := range thresholds {
		results[i] = Result{Threshold: th}
		actual, err := th.observe(s)
		if err != nil {
			results[i].Err = err
			continue
		}
		results[i].Actual = actual
		results[i].Pass = th.Op.Holds(actual, th.Limit)
	}
	return results
}

// AllPass reports whether every result passed. An empty set passes.
func AllPass(results []Result) bool {
	for _, r := range results {
		if !r.Pass {
			return false
		}
	}
	return true
}

func (th Threshold) observe(s metrics.Summary) (float64, error) {
	read, ok := metricsByName[th.Metric][th.Aggregate]
	if !ok {
		return 0, fmt.Errorf("unsupported metric %s:%s", th.Metric, th.Aggregate)
	}
	return read(s), nil
}

func keyList[V any](m map[string]V) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return strings.Join(keys, ", ")
}
