package metrics

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Collector is the shared, append-only record set for a run.
type Collector struct {
	mu      sync.Mutex
	records []Record
	errors  int64
	counts  map[Tier]int64
	hists   map[Tier]*hdrhistogram.Histogram
	start   time.Time
}

// LiveStats is a cheap running view used by progress reporting. It is approximate;
// use Summarize on Records for the final numbers.
type LiveStats struct {
	Total        int64
	Exact        int64
	Semantic     int64
	Misses       int64
	Errors       int64
	HitRate      float64
	P95Ms        map[Tier]float64
	Elapsed      time.Duration
	ProbesPerSec float64
}

func NewCollector() *Collector {
	c := &Collector{
		counts: make(map[Tier]int64, len(Tiers)),
		hists:  make(map[Tier]*hdrhistogram.Histogram, len(Tiers)),
		start:  time.Now(),
	}
	for _, tier := range Tiers {
		// Track latencies from 1µs up to 10 minutes with 3 significant figures.
		c.hists[tier] = hdrhistogram.New(1, 600_000_000, 3)
	}
	return c
}

// Start resets the reference time used for throughput.
func (c *Collector) Start() {
	c.mu.Lock()
	c.start = time.Now()
	c.mu.Unlock()
}

// Append adds a successfully classified record.
func (c *Collector) Append(rec Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.appendLocked(rec)
}

// AppendError adds an ERROR record and bumps the error counter under the same lock.
func (c *Collector) AppendError(rec Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec.Tier = TierError
	c.appendLocked(rec)
	c.errors++
}

func (c *Collector) appendLocked(rec Record) {
	c.records = append(c.records, rec)
	c.counts[rec.Tier]++

	hist, ok := c.hists[rec.Tier]
	if !ok {
		return
	}
	us := int64(rec.LatencyMs * 1000)
	if us < hist.LowestTrackableValue() {
		us = hist.LowestTrackableValue()
	}
	if us > hist.HighestTrackableValue() {
		us = hist.HighestTrackableValue()
	}
	_ = hist.RecordValue(us)
}

// Records returns a snapshot copy of every record appended so far.
func (c *Collector) Records() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Record, len(c.records))
	copy(out, c.records)
	return out
}

// Len returns the number of records appended so far.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

// ErrorCount returns how many probes ended in a terminal error.
func (c *Collector) ErrorCount() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errors
}

// Live returns running counts and histogram percentiles.
func (c *Collector) Live() LiveStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := LiveStats{
		Total:    int64(len(c.records)),
		Exact:    c.counts[TierExact],
		Semantic: c.counts[TierSemantic],
		Misses:   c.counts[TierMiss],
		Errors:   c.counts[TierError],
		P95Ms:    make(map[Tier]float64, len(Tiers)),
		Elapsed:  time.Since(c.start),
	}
	if stats.Total > 0 {
		stats.HitRate = float64(stats.Exact+stats.Semantic) / float64(stats.Total) * 100
	}
	if secs := stats.Elapsed.Seconds(); secs > 0 {
		stats.ProbesPerSec = float64(stats.Total) / secs
	}
	for tier, hist := range c.hists {
		if hist.TotalCount() > 0 {
			stats.P95Ms[tier] = float64(hist.ValueAtQuantile(95)) / 1000
		}
	}
	return stats
}
