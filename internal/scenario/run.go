package scenario

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/torosent/cacheprobe/internal/metrics"
	"github.com/torosent/cacheprobe/internal/probe"
)

// Prober executes one probe and returns its record. *probe.Executor satisfies it.
type Prober interface {
	Probe(ctx context.Context, req probe.Request) metrics.Record
}

// StatusFunc renders the outcome printed after a step's label.
type StatusFunc func(rec metrics.Record) string

// Result counts the probes a suite issued.
type Result struct {
	Total  int
	Errors int
}

// Runner issues suites sequentially and prints a status line per probe.
type Runner struct {
	Prober Prober
	Out    io.Writer  // nil discards output
	Status StatusFunc // nil uses PlainStatus
}

// Run issues every step of suite in declared order through prober, writing
// progress to w.
func Run(ctx context.Context, suite Suite, prober Prober, w io.Writer) Result {
	r := &Runner{Prober: prober, Out: w}
	return r.Run(ctx, suite)
}

// Run issues every step of suite in declared order. A cancelled context stops
// the suite before its next step.
func (r *Runner) Run(ctx context.Context, suite Suite) Result {
	out := r.Out
	if out == nil {
		out = io.Discard
	}
	status := r.Status
	if status == nil {
		status = PlainStatus
	}

	var res Result
	if r.Prober == nil {
		return res
	}

	writeTitle(out, suite)
	labelWidth := 20
	if len(suite.Groups) > 1 {
		labelWidth = 15
	}
	for _, g := range suite.Groups {
		indent := "  "
		if g.Heading != "" {
			fmt.Fprintf(out, "\n  %s\n", g.Heading)
			indent = "    "
		}
		for _, st := range g.Steps {
			if ctx.Err() != nil {
				return res
			}
			fmt.Fprintf(out, "%s%-*s: ", indent, labelWidth, st.Label)
			rec := r.Prober.Probe(ctx, probe.Request{
				Query:       st.Query,
				Scenario:    g.Scenario,
				Temperature: st.Temperature,
				MaxTokens:   st.MaxTokens,
			})
			fmt.Fprintln(out, status(rec))
			res.Total++
			if rec.Tier == metrics.TierError {
				res.Errors++
			}
		}
	}
	return res
}

func writeTitle(w io.Writer, suite Suite) {
	rule := strings.Repeat("=", 70)
	title := suite.Title
	if title == "" {
		title = suite.Name
	}
	fmt.Fprintf(w, "\n%s\n%s (%d queries)\n%s\n", rule, title, suite.Len(), rule)
	if suite.Description != "" {
		fmt.Fprintln(w, suite.Description)
	}
}

// PlainStatus renders the tier, latency and token count without colour.
func PlainStatus(rec metrics.Record) string {
	if rec.Tier == metrics.TierError {
		return fmt.Sprintf("%-15s %s", rec.Tier, rec.Error)
	}
	return fmt.Sprintf("%-15s (%6.1fms, %d tokens)", rec.Tier, rec.LatencyMs, rec.Tokens)
}
