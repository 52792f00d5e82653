package threshold

import (
	"strings"
	"testing"

	"github.com/torosent/cacheprobe/internal/metrics"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input   string
		want    Threshold
		wantErr string
	}{
		{
			input: "hit_rate:percent >= 50",
			want:  Threshold{Metric: "hit_rate", Aggregate: "percent", Op: GreaterEqual, Limit: 50, Raw: "hit_rate:percent >= 50"},
		},
		{
			input: "  latency_exact:p95 < 5 ",
			want:  Threshold{Metric: "latency_exact", Aggregate: "p95", Op: Less, Limit: 5, Raw: "latency_exact:p95 < 5"},
		},
		{
			input: "speedup:ratio>10",
			want:  Threshold{Metric: "speedup", Aggregate: "ratio", Op: Greater, Limit: 10, Raw: "speedup:ratio>10"},
		},
		{
			input: "errors:count != 3",
			want:  Threshold{Metric: "errors", Aggregate: "count", Op: NotEqual, Limit: 3, Raw: "errors:count != 3"},
		},
		{input: "", wantErr: "empty"},
		{input: "hit_rate:percent 50", wantErr: "does not match"},
		{input: "http_req_duration:p95 < 500", wantErr: "unknown metric"},
		{input: "latency_miss:p99 < 500", wantErr: "avg, mean, median, p50, p95"},
		{input: "errors:count << 5", wantErr: "unknown operator"},
		{input: "errors:count < 1.2.3", wantErr: "limit"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Parse() error = %v, want it to mention %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Parse() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseMultipleReportsEveryBadExpression(t *testing.T) {
	got, err := ParseMultiple([]string{"hit_rate:percent >= 40", "nonsense", "errors:count == 0", "bogus:count > 1"})
	if err == nil {
		t.Fatal("ParseMultiple() error = nil")
	}
	if got != nil {
		t.Errorf("ParseMultiple() = %v, want nil on error", got)
	}
	for _, want := range []string{"threshold 2", "threshold 4"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}

	ths, err := ParseMultiple(nil)
	if err != nil || len(ths) != 0 {
		t.Errorf("ParseMultiple(nil) = %v, %v", ths, err)
	}
}

func TestOperatorHolds(t *testing.T) {
	tests := []struct {
		actual float64
		op     Operator
		limit  float64
		want   bool
	}{
		{50, Less, 100, true},
		{100, Less, 100, false},
		{100, LessOrEqual, 100, true},
		{150, LessOrEqual, 100, false},
		{150, Greater, 100, true},
		{100, Greater, 100, false},
		{100, GreaterEqual, 100, true},
		{50, GreaterEqual, 100, false},
		{100.0000000001, Equal, 100, true},
		{100, Equal, 101, false},
		{100, NotEqual, 101, true},
		{100, NotEqual, 100, false},
		{1, Operator("<>"), 2, false},
	}

	for _, tt := range tests {
		if got := tt.op.Holds(tt.actual, tt.limit); got != tt.want {
			t.Errorf("%v %s %v = %v, want %v", tt.actual, tt.op, tt.limit, got, tt.want)
		}
	}
}

func runSummary() metrics.Summary {
	return metrics.Summary{
		TotalRequests:   84,
		ExactHits:       10,
		SemanticHits:    32,
		Misses:          40,
		Errors:          2,
		HitRate:         50,
		CostSavedUSD:    0.021,
		SavingsPercent:  51.2,
		TokensSaved:     30000,
		LatencyExact:    metrics.LatencyStats{Mean: 2.1, Median: 2, P95: 3.4},
		LatencySemantic: metrics.LatencyStats{Mean: 45, Median: 41, P95: 88},
		LatencyMiss:     metrics.LatencyStats{Mean: 840, Median: 790, P95: 1650},
		Speedup:         400,
		RateLimitWaits:  3,
	}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		expr       string
		wantActual float64
		wantPass   bool
	}{
		{"hit_rate:percent >= 50", 50, true},
		{"hit_rate:percent > 60", 50, false},
		{"savings:percent > 50", 51.2, true},
		{"savings:usd > 0.01", 0.021, true},
		{"latency_exact:avg < 5", 2.1, true},
		{"latency_semantic:p50 < 100", 41, true},
		{"latency_miss:p95 <= 1650", 1650, true},
		{"speedup:ratio > 10", 400, true},
		{"errors:count == 0", 2, false},
		{"errors:rate < 0.05", 2.0 / 84.0, true},
		{"requests:count == 84", 84, true},
		{"rate_limit_waits:count < 3", 3, false},
		{"tokens_saved:count > 1000", 30000, true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			th, err := Parse(tt.expr)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			results := Evaluate([]Threshold{th}, runSummary())
			if len(results) != 1 {
				t.Fatalf("got %d results", len(results))
			}
			r := results[0]
			if r.Actual != tt.wantActual || r.Pass != tt.wantPass {
				t.Errorf("Evaluate() actual=%v pass=%v, want actual=%v pass=%v", r.Actual, r.Pass, tt.wantActual, tt.wantPass)
			}
			if AllPass(results) != tt.wantPass {
				t.Errorf("AllPass() = %v", AllPass(results))
			}
		})
	}
}

func TestEvaluateEdgeCases(t *testing.T) {
	if results := Evaluate(nil, runSummary()); results != nil {
		t.Errorf("Evaluate(nil) = %v, want nil", results)
	}
	if !AllPass(nil) {
		t.Error("an empty result set should pass")
	}

	r := Evaluate([]Threshold{{Metric: "errors", Aggregate: "rate", Op: Equal, Raw: "errors:rate == 0"}}, metrics.Summary{})
	if !r[0].Pass || r[0].Actual != 0 {
		t.Errorf("error rate over an empty run = %+v, want 0 and pass", r[0])
	}

	r = Evaluate([]Threshold{{Metric: "errors", Aggregate: "p95", Op: Less, Raw: "errors:p95 < 1"}}, runSummary())
	if r[0].Pass || r[0].Err == nil {
		t.Errorf("hand-built threshold with an unknown aggregate = %+v, want failure", r[0])
	}
	if !strings.HasPrefix(r[0].String(), "✗ errors:p95 < 1: unsupported") {
		t.Errorf("String() = %q", r[0].String())
	}
}

func TestResultString(t *testing.T) {
	th, _ := Parse("hit_rate:percent >= 30")
	pass := Result{Threshold: th, Actual: 42.5, Pass: true}
	if got, want := pass.String(), "✓ hit_rate:percent >= 30: 42.50 >= 30.00"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	fail := Result{Threshold: th, Actual: 12}
	if !strings.HasPrefix(fail.String(), "✗ ") {
		t.Errorf("String() = %q, want failure mark", fail.String())
	}
}
