package output

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/torosent/cacheprobe/internal/metrics"
)

// ProgressReporter redraws one status line while a phase runs. The probe count
// is relative to the collector when Start was called; tier counts and the hit
// rate cover the whole run.
type ProgressReporter struct {
	collector *metrics.Collector
	expected  int
	interval  time.Duration
	w         io.Writer

	mu       sync.Mutex
	cancel   context.CancelFunc
	finished chan struct{}
}

// NewProgressReporter creates a reporter for a phase expected to issue expected
// probes (0 when unknown).
func NewProgressReporter(collector *metrics.Collector, expected int, interval time.Duration, w io.Writer) *ProgressReporter {
	if w == nil {
		w = io.Discard
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &ProgressReporter{collector: collector, expected: expected, interval: interval, w: w}
}

// Start begins redrawing in a background goroutine. Calling Start on a running
// reporter does nothing.
func (p *ProgressReporter) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.finished = make(chan struct{})
	go p.loop(ctx, p.collector.Len(), p.finished)
}

// Stop halts redrawing and ends the progress line.
func (p *ProgressReporter) Stop() {
	p.mu.Lock()
	cancel, finished := p.cancel, p.finished
	p.cancel = nil
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-finished
	fmt.Fprintln(p.w)
}

func (p *ProgressReporter) loop(ctx context.Context, base int, finished chan struct{}) {
	defer close(finished)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fmt.Fprint(p.w, "\r"+ProgressLine(p.collector.Live(), p.collector.Len()-base, p.expected))
		}
	}
}

// ProgressLine formats live stats with done of expected probes.
func ProgressLine(stats metrics.LiveStats, done, expected int) string {
	var b strings.Builder
	if expected > 0 {
		fmt.Fprintf(&b, "Probes: %d/%d", done, expected)
	} else {
		fmt.Fprintf(&b, "Probes: %d", done)
	}
	fmt.Fprintf(&b, " | Exact: %d | Semantic: %d | Miss: %d | Errors: %d | Hit rate: %.1f%% | %.1f/s",
		stats.Exact, stats.Semantic, stats.Misses, stats.Errors, stats.HitRate, stats.ProbesPerSec)
	if p95, ok := stats.P95Ms[metrics.TierMiss]; ok {
		fmt.Fprintf(&b, " | Miss p95 %.1fms", p95)
	}
	return b.String()
}
