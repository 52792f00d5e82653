package probe

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
	"unicode/utf8"

	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/torosent/cacheprobe/internal/metrics"
	"github.com/torosent/cacheprobe/internal/tracing"
)

const (
	// DefaultCostPerToken is the simulated price of one token in USD.
	DefaultCostPerToken = 0.00000069
	// DefaultCooldown is how long to back off after the upstream throttles.
	DefaultCooldown = 60 * time.Second
	// DefaultModel is sent as the chat completion model name.
	DefaultModel = "llama-3.3-70b-versatile"
)

// Completer issues one chat completion. *openai.Client satisfies it.
type Completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Limiter gates outgoing probes.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Recorder receives finished records.
type Recorder interface {
	Append(rec metrics.Record)
	AppendError(rec metrics.Record)
}

// Request describes one probe.
type Request struct {
	Query       string
	Scenario    string
	Temperature float32
	MaxTokens   int // 0 leaves the cap to the upstream
	WorkerID    string
	SkipLimiter bool
}

// Options configure an Executor.
type Options struct {
	Client             Completer
	Limiter            Limiter  // optional
	Recorder           Recorder // required
	Model              string
	Thresholds         Thresholds
	CostPerToken       float64
	Cooldown           time.Duration
	MaxThrottleRetries int // 0 retries throttled probes forever
	Tracer             trace.Tracer
	OnThrottle         func(req Request, cooldown time.Duration)
	OnRecord           func(rec metrics.Record)
}

// Executor runs classified probes against the proxy.
type Executor struct {
	opt   Options
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

func New(opt Options) *Executor {
	if opt.Model == "" {
		opt.Model = DefaultModel
	}
	if opt.Thresholds == (Thresholds{}) {
		opt.Thresholds = DefaultThresholds()
	}
	if opt.CostPerToken <= 0 {
		opt.CostPerToken = DefaultCostPerToken
	}
	if opt.Cooldown < 0 {
		opt.Cooldown = 0
	}
	if opt.Tracer == nil {
		opt.Tracer = noop.NewTracerProvider().Tracer("cacheprobe")
	}
	return &Executor{opt: opt, sleep: sleepContext, now: time.Now}
}

// Probe issues req, classifies the response and appends the resulting record.
// Throttled attempts are retried after a cooldown without consulting the limiter
// again; every other failure becomes an ERROR record.
func (e *Executor) Probe(ctx context.Context, req Request) metrics.Record {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := tracing.StartProbeSpan(ctx, e.opt.Tracer, req.Scenario, req.WorkerID)

	var (
		retries  int
		cooldown time.Duration
	)
	for {
		resp, latency, err := e.attempt(ctx, req)

		if err == nil {
			rec := e.success(req, resp, latency, retries)
			e.opt.Recorder.Append(rec)
			e.finish(span, rec, cooldown, nil)
			return rec
		}

		if IsThrottled(err) && ctx.Err() == nil && (e.opt.MaxThrottleRetries <= 0 || retries < e.opt.MaxThrottleRetries) {
			if e.opt.OnThrottle != nil {
				e.opt.OnThrottle(req, e.opt.Cooldown)
			}
			if sleepErr := e.sleep(ctx, e.opt.Cooldown); sleepErr != nil {
				err = fmt.Errorf("throttle cooldown: %w", sleepErr)
			} else {
				retries++
				cooldown += e.opt.Cooldown
				req.SkipLimiter = true
				continue
			}
		}

		rec := e.failure(req, err, latency, retries)
		e.opt.Recorder.AppendError(rec)
		e.finish(span, rec, cooldown, err)
		return rec
	}
}

// attempt waits for the limiter, then times a single chat completion. The
// limiter wait is not part of the measured latency.
func (e *Executor) attempt(ctx context.Context, req Request) (openai.ChatCompletionResponse, time.Duration, error) {
	if !req.SkipLimiter && e.opt.Limiter != nil {
		if err := e.opt.Limiter.Wait(ctx); err != nil {
			return openai.ChatCompletionResponse{}, 0, fmt.Errorf("limiter wait: %w", err)
		}
	}
	if e.opt.Client == nil {
		return openai.ChatCompletionResponse{}, 0, errors.New("chat client is not configured")
	}
	start := e.now()
	resp, err := e.opt.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.opt.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Query},
		},
		Temperature: wireTemperature(req.Temperature),
		MaxTokens:   req.MaxTokens,
	})
	return resp, e.now().Sub(start), err
}

// wireTemperature keeps a requested 0 on the wire. go-openai omits a zero
// temperature, and upstreams then fall back to their own default.
func wireTemperature(t float32) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return t
}

func (e *Executor) success(req Request, resp openai.ChatCompletionResponse, latency time.Duration, retries int) metrics.Record {
	tokens := resp.Usage.TotalTokens
	var content string
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}
	return metrics.Record{
		Scenario:        req.Scenario,
		Query:           metrics.TruncateQuery(req.Query),
		Tier:            e.opt.Thresholds.Classify(latency),
		LatencyMs:       metrics.Round(metrics.DurationMs(latency), 2),
		Tokens:          tokens,
		CostUSD:         metrics.Round(float64(tokens)*e.opt.CostPerToken, 6),
		Timestamp:       e.now(),
		QueryLength:     utf8.RuneCountInString(req.Query),
		ResponseLength:  utf8.RuneCountInString(content),
		WorkerID:        req.WorkerID,
		ThrottleRetries: retries,
	}
}

func (e *Executor) failure(req Request, err error, latency time.Duration, retries int) metrics.Record {
	return metrics.Record{
		Scenario:        req.Scenario,
		Query:           metrics.TruncateQuery(req.Query),
		Tier:            metrics.TierError,
		LatencyMs:       metrics.Round(metrics.DurationMs(latency), 2),
		Timestamp:       e.now(),
		QueryLength:     utf8.RuneCountInString(req.Query),
		WorkerID:        req.WorkerID,
		Error:           metrics.TruncateError(err.Error()),
		ErrorKind:       metrics.ErrorKind(err),
		ThrottleRetries: retries,
	}
}

func (e *Executor) finish(span trace.Span, rec metrics.Record, cooldown time.Duration, err error) {
	if e.opt.OnRecord != nil {
		e.opt.OnRecord(rec)
	}
	tracing.EndProbeSpan(span, tracing.Outcome{
		Tier:      string(rec.Tier),
		LatencyMs: rec.LatencyMs,
		Tokens:    rec.Tokens,
		Retries:   rec.ThrottleRetries,
		Cooldown:  cooldown,
	}, err)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
