package probe

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/torosent/cacheprobe/internal/metrics"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type step struct {
	latency time.Duration
	tokens  int
	content string
	err     error
}

// scriptedCompleter replays steps in order, advancing the clock by each
// step's latency to simulate the proxy's response time.
type scriptedCompleter struct {
	mu    sync.Mutex
	clock *fakeClock
	steps []step
	calls []openai.ChatCompletionRequest
}

func (s *scriptedCompleter) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := len(s.calls)
	s.calls = append(s.calls, req)
	if idx >= len(s.steps) {
		return openai.ChatCompletionResponse{}, errors.New("unexpected call")
	}
	st := s.steps[idx]
	s.clock.Advance(st.latency)
	if st.err != nil {
		return openai.ChatCompletionResponse{}, st.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: st.content}}},
		Usage:   openai.Usage{TotalTokens: st.tokens},
	}, nil
}

type countingLimiter struct {
	calls int
	err   error
}

func (l *countingLimiter) Wait(context.Context) error {
	l.calls++
	return l.err
}

type harness struct {
	exec      *Executor
	collector *metrics.Collector
	client    *scriptedCompleter
	limiter   *countingLimiter
	slept     []time.Duration
}

func newHarness(t *testing.T, opt Options, steps ...step) *harness {
	t.Helper()
	clock := newFakeClock()
	h := &harness{
		collector: metrics.NewCollector(),
		client:    &scriptedCompleter{clock: clock, steps: steps},
		limiter:   &countingLimiter{},
	}
	opt.Client = h.client
	opt.Limiter = h.limiter
	opt.Recorder = h.collector
	h.exec = New(opt)
	h.exec.now = clock.Now
	h.exec.sleep = func(ctx context.Context, d time.Duration) error {
		h.slept = append(h.slept, d)
		return ctx.Err()
	}
	return h
}

func TestProbeClassifiesByLatency(t *testing.T) {
	tests := []struct {
		name    string
		latency time.Duration
		want    metrics.Tier
	}{
		{"exact", 2 * time.Millisecond, metrics.TierExact},
		{"semantic", 40 * time.Millisecond, metrics.TierSemantic},
		{"miss", 850 * time.Millisecond, metrics.TierMiss},
		{"exact boundary is semantic", 5 * time.Millisecond, metrics.TierSemantic},
		{"semantic boundary is miss", 100 * time.Millisecond, metrics.TierMiss},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, Options{}, step{latency: tt.latency, tokens: 10, content: "ok"})
			rec := h.exec.Probe(context.Background(), Request{Query: "q", Scenario: "s"})

			assert.Equal(t, tt.want, rec.Tier)
			assert.InDelta(t, metrics.DurationMs(tt.latency), rec.LatencyMs, 0.01)
			assert.Equal(t, 1, h.collector.Len())
		})
	}
}

func TestProbeRecordFields(t *testing.T) {
	h := newHarness(t, Options{}, step{latency: 300 * time.Millisecond, tokens: 1000, content: "Rust ownership is..."})
	rec := h.exec.Probe(context.Background(), Request{
		Query:       "Explain Rust ownership",
		Scenario:    "max_tokens",
		Temperature: 0.7,
		MaxTokens:   50,
		WorkerID:    "w2",
	})

	assert.Equal(t, metrics.TierMiss, rec.Tier)
	assert.Equal(t, 1000, rec.Tokens)
	assert.InDelta(t, 0.00069, rec.CostUSD, 1e-9)
	assert.Equal(t, len("Explain Rust ownership"), rec.QueryLength)
	assert.Equal(t, len("Rust ownership is..."), rec.ResponseLength)
	assert.Equal(t, "w2", rec.WorkerID)
	assert.Empty(t, rec.Error)

	require.Len(t, h.client.calls, 1)
	call := h.client.calls[0]
	assert.Equal(t, DefaultModel, call.Model)
	assert.Equal(t, float32(0.7), call.Temperature)
	assert.Equal(t, 50, call.MaxTokens)
	require.Len(t, call.Messages, 1)
	assert.Equal(t, openai.ChatMessageRoleUser, call.Messages[0].Role)
	assert.Equal(t, "Explain Rust ownership", call.Messages[0].Content)
}

func TestProbeTruncatesLongQuery(t *testing.T) {
	h := newHarness(t, Options{}, step{latency: time.Millisecond})
	query := strings.Repeat("x", 150)
	rec := h.exec.Probe(context.Background(), Request{Query: query})

	assert.Equal(t, strings.Repeat("x", 100)+"...", rec.Query)
	assert.Equal(t, 150, rec.QueryLength)
}

func TestProbeThrottledThenSucceeds(t *testing.T) {
	throttled := &openai.APIError{HTTPStatusCode: 429, Message: "Rate limit reached"}
	h := newHarness(t, Options{Cooldown: 30 * time.Second},
		step{latency: 10 * time.Millisecond, err: throttled},
		step{latency: 3 * time.Millisecond, tokens: 12},
	)
	var notified int
	h.exec.opt.OnThrottle = func(Request, time.Duration) { notified++ }

	rec := h.exec.Probe(context.Background(), Request{Query: "q", Scenario: "rapid_fire"})

	assert.Equal(t, metrics.TierExact, rec.Tier)
	assert.Equal(t, 1, rec.ThrottleRetries)
	assert.Equal(t, []time.Duration{30 * time.Second}, h.slept)
	assert.Equal(t, 1, notified)
	assert.Equal(t, 1, h.limiter.calls, "retry must bypass the limiter")
	assert.Equal(t, 1, h.collector.Len())
	assert.Zero(t, h.collector.ErrorCount())
}

func TestProbeThrottleRetryCap(t *testing.T) {
	throttled := errors.New("error, status code: 429, message: too many requests")
	h := newHarness(t, Options{MaxThrottleRetries: 2},
		step{err: throttled}, step{err: throttled}, step{err: throttled},
	)

	rec := h.exec.Probe(context.Background(), Request{Query: "q"})

	assert.Equal(t, metrics.TierError, rec.Tier)
	assert.Equal(t, 2, rec.ThrottleRetries)
	assert.Len(t, h.client.calls, 3)
	assert.Equal(t, int64(1), h.collector.ErrorCount())
}

func TestProbeNonThrottleErrorRecordsError(t *testing.T) {
	h := newHarness(t, Options{},
		step{latency: 5 * time.Millisecond, err: &openai.APIError{HTTPStatusCode: 500, Message: strings.Repeat("boom ", 60)}},
	)

	rec := h.exec.Probe(context.Background(), Request{Query: "q", Scenario: "architecture"})

	assert.Equal(t, metrics.TierError, rec.Tier)
	assert.Empty(t, h.slept)
	assert.Equal(t, int64(1), h.collector.ErrorCount())
	assert.LessOrEqual(t, len([]rune(rec.Error)), 200)
	assert.NotEmpty(t, rec.ErrorKind)
	assert.Zero(t, rec.Tokens)
}

func TestProbeLimiterErrorIsRecorded(t *testing.T) {
	h := newHarness(t, Options{})
	h.limiter.err = context.Canceled

	rec := h.exec.Probe(context.Background(), Request{Query: "q"})

	assert.Equal(t, metrics.TierError, rec.Tier)
	assert.Empty(t, h.client.calls)
	assert.Contains(t, rec.Error, "limiter wait")
	assert.Equal(t, "Context canceled", rec.ErrorKind)
}

func TestProbeSkipLimiter(t *testing.T) {
	h := newHarness(t, Options{}, step{latency: time.Millisecond})
	h.exec.Probe(context.Background(), Request{Query: "q", SkipLimiter: true})
	assert.Zero(t, h.limiter.calls)
}

func TestProbeCapitalOfFrance(t *testing.T) {
	var seen []metrics.Record
	h := newHarness(t, Options{OnRecord: func(r metrics.Record) { seen = append(seen, r) }},
		step{latency: 150 * time.Millisecond, tokens: 40, content: "Paris."},
		step{latency: 2 * time.Millisecond, tokens: 40, content: "Paris."},
		step{latency: 40 * time.Millisecond, tokens: 40, content: "Paris."},
	)

	for _, q := range []string{
		"What is the capital of France?",
		"What is the capital of France?",
		"Which city serves as France's capital?",
	} {
		h.exec.Probe(context.Background(), Request{Query: q, Scenario: "demo"})
	}

	require.Len(t, seen, 3)
	s := metrics.Summarize(h.collector.Records(), 0)
	assert.Equal(t, 1, s.Misses)
	assert.Equal(t, 1, s.ExactHits)
	assert.Equal(t, 1, s.SemanticHits)
	assert.InDelta(t, 66.7, s.HitRate, 0.1)
}

func TestIsThrottled(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"api 429", &openai.APIError{HTTPStatusCode: 429}, true},
		{"request 429", &openai.RequestError{HTTPStatusCode: 429, Err: errors.New("slow down")}, true},
		{"api 500", &openai.APIError{HTTPStatusCode: 500, Message: "internal"}, false},
		{"wrapped message", errors.New("upstream: Rate limit exceeded for model"), true},
		{"too many requests", errors.New("Too Many Requests"), true},
		{"rate_limit code", errors.New("code=rate_limit_exceeded"), true},
		{"unrelated rate word", errors.New("generate failed"), false},
		{"connection refused", errors.New("dial tcp: connection refused"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsThrottled(tt.err))
		})
	}
}

func TestThresholdsValidate(t *testing.T) {
	assert.Empty(t, DefaultThresholds().Validate())
	assert.Len(t, Thresholds{}.Validate(), 2)
	assert.Len(t, Thresholds{Exact: 10 * time.Millisecond, Semantic: 10 * time.Millisecond}.Validate(), 1)
}
