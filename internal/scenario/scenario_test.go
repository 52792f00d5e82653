package scenario_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/torosent/cacheprobe/internal/metrics"
	"github.com/torosent/cacheprobe/internal/probe"
	"github.com/torosent/cacheprobe/internal/scenario"
)

type recordingProber struct {
	reqs []probe.Request
	tier func(i int) metrics.Tier
}

func (p *recordingProber) Probe(_ context.Context, req probe.Request) metrics.Record {
	i := len(p.reqs)
	p.reqs = append(p.reqs, req)
	tier := metrics.TierMiss
	if p.tier != nil {
		tier = p.tier(i)
	}
	return metrics.Record{Scenario: req.Scenario, Query: req.Query, Tier: tier, LatencyMs: 12.5, Tokens: 30}
}

func TestBuiltinSuites(t *testing.T) {
	suites := scenario.Builtins()
	require.Equal(t, []string{"realistic_debugging", "architecture", "semantic", "temperature", "max_tokens"}, scenario.Names(suites))

	sizes := map[string]int{}
	for _, s := range suites {
		require.NoError(t, s.Validate(), s.Name)
		sizes[s.Name] = s.Len()
	}
	assert.Equal(t, 10, sizes["realistic_debugging"])
	assert.Equal(t, 10, sizes["architecture"])
	assert.Equal(t, 9, sizes["semantic"])
	assert.Equal(t, 4, sizes["temperature"])
	assert.Equal(t, 3, sizes["max_tokens"])

	assert.Equal(t, []string{"semantic_oauth", "semantic_error", "semantic_unrelated"}, suites[2].Scenarios())
	assert.Len(t, scenario.ConcurrentQueries, 8)
	assert.Len(t, scenario.MixedQueries, 10)
}

func TestRunIssuesStepsInOrder(t *testing.T) {
	prober := &recordingProber{}
	var out bytes.Buffer

	res := scenario.Run(context.Background(), scenario.Builtins()[2], prober, &out)

	require.Equal(t, 9, res.Total)
	assert.Zero(t, res.Errors)
	require.Len(t, prober.reqs, 9)
	assert.Equal(t, "semantic_oauth", prober.reqs[0].Scenario)
	assert.Equal(t, "semantic_error", prober.reqs[3].Scenario)
	assert.Equal(t, "semantic_unrelated", prober.reqs[8].Scenario)
	assert.Equal(t, "How to write unit tests in Rust with mock objects?", prober.reqs[8].Query)

	text := out.String()
	assert.Contains(t, text, "Semantic Variations (9 queries)")
	assert.Contains(t, text, "OAuth Implementation")
	assert.Contains(t, text, "oauth_base")
	assert.Equal(t, 9, strings.Count(text, "MISS"))
}

func TestRunPassesTemperatureAndMaxTokens(t *testing.T) {
	prober := &recordingProber{}
	scenario.Run(context.Background(), scenario.Builtins()[3], prober, nil)
	scenario.Run(context.Background(), scenario.Builtins()[4], prober, nil)

	require.Len(t, prober.reqs, 7)
	temps := []float32{prober.reqs[0].Temperature, prober.reqs[1].Temperature, prober.reqs[2].Temperature, prober.reqs[3].Temperature}
	assert.Equal(t, []float32{0, 0.7, 1.0, 0}, temps)
	assert.Equal(t, []int{50, 200, 0}, []int{prober.reqs[4].MaxTokens, prober.reqs[5].MaxTokens, prober.reqs[6].MaxTokens})
}

func TestRunCountsErrorsAndUsesStatusFunc(t *testing.T) {
	prober := &recordingProber{tier: func(i int) metrics.Tier {
		if i == 1 {
			return metrics.TierError
		}
		return metrics.TierExact
	}}
	var out bytes.Buffer
	r := &scenario.Runner{
		Prober: prober,
		Out:    &out,
		Status: func(rec metrics.Record) string { return "<" + string(rec.Tier) + ">" },
	}

	res := r.Run(context.Background(), scenario.Demo())

	assert.Equal(t, 5, res.Total)
	assert.Equal(t, 1, res.Errors)
	assert.Contains(t, out.String(), "<ERROR>")
	assert.Contains(t, out.String(), "<EXACT_HIT>")
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	prober := &recordingProber{}

	res := scenario.Run(ctx, scenario.Demo(), prober, nil)

	assert.Zero(t, res.Total)
	assert.Empty(t, prober.reqs)
}

func TestSelect(t *testing.T) {
	all := scenario.Builtins()

	tests := []struct {
		name    string
		only    []string
		skip    []string
		want    []string
		wantErr bool
	}{
		{name: "all", want: []string{"realistic_debugging", "architecture", "semantic", "temperature", "max_tokens"}},
		{name: "only keeps given order", only: []string{"temperature", "semantic"}, want: []string{"temperature", "semantic"}},
		{name: "skip", skip: []string{"architecture", "max_tokens"}, want: []string{"realistic_debugging", "semantic", "temperature"}},
		{name: "only and skip", only: []string{"semantic", "temperature"}, skip: []string{"semantic"}, want: []string{"temperature"}},
		{name: "unknown only", only: []string{"nope"}, wantErr: true},
		{name: "unknown skip", skip: []string{"nope"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := scenario.Select(all, tt.only, tt.skip)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, scenario.Names(got))
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "suites.yaml")
	content := `
suites:
  - name: billing
    title: Billing questions
    groups:
      - steps:
          - query: How do I get a refund?
          - label: refund_paraphrase
            query: What is the refund process?
            temperature: 0.2
            max_tokens: 64
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	suites, err := scenario.LoadFile(path)
	require.NoError(t, err)
	require.Len(t, suites, 1)

	s := suites[0]
	assert.Equal(t, "billing", s.Name)
	assert.Equal(t, "Billing questions", s.Title)
	require.Len(t, s.Groups, 1)
	assert.Equal(t, "billing", s.Groups[0].Scenario)
	assert.Equal(t, "step_1", s.Groups[0].Steps[0].Label)
	assert.Equal(t, "refund_paraphrase", s.Groups[0].Steps[1].Label)
	assert.Equal(t, float32(0.2), s.Groups[0].Steps[1].Temperature)
	assert.Equal(t, 64, s.Groups[0].Steps[1].MaxTokens)
}

func TestLoadRejectsInvalidSuites(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"empty", "", "no suites defined"},
		{"no suites", "suites: []", "no suites defined"},
		{"missing query", "suites:\n  - name: a\n    groups:\n      - steps:\n          - label: x\n", "query is required"},
		{"unknown field", "suites:\n  - name: a\n    bogus: 1\n", "decode suites"},
		{"duplicate", "suites:\n  - name: a\n    groups: [{steps: [{query: q}]}]\n  - name: a\n    groups: [{steps: [{query: q}]}]\n", "duplicate suite"},
		{"bad temperature", "suites:\n  - name: a\n    groups: [{steps: [{query: q, temperature: 3}]}]\n", "temperature"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := scenario.Load(strings.NewReader(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPlainStatus(t *testing.T) {
	assert.Equal(t, "MISS            ( 850.0ms, 42 tokens)", scenario.PlainStatus(metrics.Record{Tier: metrics.TierMiss, LatencyMs: 850, Tokens: 42}))
	assert.Equal(t, "ERROR           boom", scenario.PlainStatus(metrics.Record{Tier: metrics.TierError, Error: "boom"}))
}
