package tracing

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	attrScenario  = attribute.Key("cacheprobe.scenario")
	attrWorker    = attribute.Key("cacheprobe.worker")
	attrTier      = attribute.Key("cacheprobe.tier")
	attrLatencyMs = attribute.Key("cacheprobe.latency_ms")
	attrTokens    = attribute.Key("cacheprobe.tokens")
	attrRetries   = attribute.Key("cacheprobe.throttle_retries")
	attrCooldown  = attribute.Key("cacheprobe.cooldown_ms")
)

// Outcome is what a finished probe reports on its span.
type Outcome struct {
	Tier      string
	LatencyMs float64
	Tokens    int
	Retries   int
	Cooldown  time.Duration
}

// StartProbeSpan opens a client span for one probe. The span covers every
// attempt, including throttle cooldowns.
func StartProbeSpan(ctx context.Context, tracer trace.Tracer, scenario, workerID string) (context.Context, trace.Span) {
	name := "probe"
	if scenario != "" {
		name += " " + scenario
	}
	attrs := []attribute.KeyValue{attrScenario.String(scenario)}
	if workerID != "" {
		attrs = append(attrs, attrWorker.String(workerID))
	}
	return tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(attrs...))
}

// EndProbeSpan records the outcome and closes the span.
func EndProbeSpan(span trace.Span, o Outcome, err error) {
	EndSpan(span, err,
		attrTier.String(o.Tier),
		attrLatencyMs.Float64(o.LatencyMs),
		attrTokens.Int(o.Tokens),
		attrRetries.Int(o.Retries),
		attrCooldown.Int64(o.Cooldown.Milliseconds()),
	)
}

// EndSpan sets attrs and an Ok or Error status, then ends the span.
func EndSpan(span trace.Span, err error, attrs ...attribute.KeyValue) {
	span.SetAttributes(attrs...)
	switch err {
	case nil:
		span.SetStatus(codes.Ok, "")
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// InjectHTTPHeaders writes the W3C trace context of ctx into headers.
func InjectHTTPHeaders(ctx context.Context, headers http.Header) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(headers))
}

// Transport wraps base so requests made under a span carry its traceparent.
// A nil base uses http.DefaultTransport.
func Transport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if !trace.SpanContextFromContext(req.Context()).IsValid() {
			return base.RoundTrip(req)
		}
		out := req.Clone(req.Context())
		InjectHTTPHeaders(out.Context(), out.Header)
		return base.RoundTrip(out)
	})
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }
