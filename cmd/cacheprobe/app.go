package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/torosent/cacheprobe/internal/config"
	"github.com/torosent/cacheprobe/internal/logger"
	"github.com/torosent/cacheprobe/internal/metrics"
	"github.com/torosent/cacheprobe/internal/output"
	"github.com/torosent/cacheprobe/internal/probe"
	"github.com/torosent/cacheprobe/internal/proxy"
	"github.com/torosent/cacheprobe/internal/ratelimit"
	"github.com/torosent/cacheprobe/internal/runner"
	"github.com/torosent/cacheprobe/internal/scenario"
	"github.com/torosent/cacheprobe/internal/threshold"
	"github.com/torosent/cacheprobe/internal/tracing"
)

const (
	progressInterval = time.Second
	shutdownTimeout  = 5 * time.Second
)

// settleDelay gives the proxy time to drop its entries after a cache clear.
var settleDelay = time.Second

var (
	errAborted          = errors.New("aborted by operator")
	errThresholdsFailed = errors.New("one or more thresholds failed")
)

var rule = strings.Repeat("=", 70)

type app struct {
	cfg         *config.Config
	in          io.Reader
	out         io.Writer
	interactive bool
	palette     *output.Palette
	tracing     *tracing.Provider
	adminHTTP   *http.Client
	proxy       *proxy.Client
	collector   *metrics.Collector
	limiter     *ratelimit.SlidingWindow
	executor    *probe.Executor
	thresholds  []threshold.Threshold
}

// syncWriter serializes writes from workers, the limiter hook and the progress line.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func newApp(cmd *cobra.Command, stdin io.Reader) (*app, error) {
	cfg, err := config.NewLoader().Resolve(cmd.Flags())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger.Setup(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)

	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return nil, err
	}

	provider, err := tracing.Init(cmd.Context(), cfg.Tracing)
	if err != nil {
		return nil, err
	}

	stdout := cmd.OutOrStdout()
	colored := false
	if f, ok := stdout.(*os.File); ok {
		colored = output.UseColor(f, cfg.NoColor)
	}
	interactive := false
	if f, ok := stdin.(*os.File); ok {
		interactive = output.IsTerminal(f)
	}

	a := &app{
		cfg:         cfg,
		in:          stdin,
		out:         &syncWriter{w: stdout},
		interactive: interactive,
		palette:     output.NewPalette(!colored),
		tracing:     provider,
		adminHTTP:   proxy.NewHTTPClient(cfg.AdminTimeout),
		collector:   metrics.NewCollector(),
		thresholds:  thresholds,
	}
	a.proxy = proxy.New(cfg.ProxyURL, a.adminHTTP)
	a.limiter = ratelimit.NewSlidingWindow(cfg.RateLimit,
		ratelimit.WithWindow(cfg.Window),
		ratelimit.WithWaitHook(a.onRateWait),
	)
	a.executor = probe.New(probe.Options{
		Client:   proxy.NewChatClient(cfg.ProxyURL, cfg.APIKey, proxy.NewHTTPClient(0)),
		Limiter:  a.limiter,
		Recorder: a.collector,
		Model:    cfg.Model,
		Thresholds: probe.Thresholds{
			Exact:    cfg.ExactThreshold,
			Semantic: cfg.SemanticThreshold,
		},
		Cooldown:           cfg.Cooldown,
		MaxThrottleRetries: cfg.MaxThrottleRetries,
		Tracer:             provider.Tracer(),
		OnThrottle:         a.onThrottle,
	})
	logger.Debug("configured", "proxy", cfg.ProxyURL, "rate_limit", cfg.RateLimit, "window", cfg.Window,
		"tracing", cfg.Tracing.Enabled(), "propagate", provider.ShouldPropagate())
	return a, nil
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.tracing.Shutdown(ctx); err != nil {
		logger.Warn("tracing shutdown", "error", err)
	}
}

// runSuite runs the selected suites, then the concurrent and mixed phases, and
// reports over everything recorded.
func (a *app) runSuite(ctx context.Context) error {
	suites, err := a.selectSuites()
	if err != nil {
		return err
	}
	a.printBanner(suites)

	if err := a.preflight(ctx); err != nil {
		return err
	}
	a.clearCache(ctx)

	startedAt := time.Now()
	a.collector.Start()

	sr := &scenario.Runner{Prober: a.executor, Out: a.out, Status: a.palette.Status}
	for _, s := range suites {
		if ctx.Err() != nil {
			break
		}
		sr.Run(ctx, s)
	}
	if !a.cfg.SkipConcurrent && ctx.Err() == nil {
		a.runConcurrent(ctx)
	}
	if !a.cfg.SkipStress && ctx.Err() == nil {
		a.runMixed(ctx)
	}
	if ctx.Err() != nil {
		logger.Warn("run interrupted, reporting partial results")
	}
	return a.finish(ctx, startedAt)
}

func (a *app) selectSuites() ([]scenario.Suite, error) {
	demo := scenario.Demo()
	pool := append(scenario.Builtins(), demo)
	if a.cfg.SuitesFile != "" {
		extra, err := scenario.LoadFile(a.cfg.SuitesFile)
		if err != nil {
			return nil, err
		}
		known := make(map[string]bool, len(pool))
		for _, s := range pool {
			known[s.Name] = true
		}
		for _, s := range extra {
			if known[s.Name] {
				return nil, fmt.Errorf("suites file %s: suite %q shadows a built-in suite", a.cfg.SuitesFile, s.Name)
			}
		}
		pool = append(pool, extra...)
	}
	selected, err := scenario.Select(pool, a.cfg.Suites, a.cfg.SkipSuites)
	if err != nil || len(a.cfg.Suites) > 0 {
		return selected, err
	}
	// demo runs only when asked for by name.
	return slices.DeleteFunc(selected, func(s scenario.Suite) bool { return s.Name == demo.Name }), nil
}

func (a *app) printBanner(suites []scenario.Suite) {
	queries := 0
	for _, s := range suites {
		queries += s.Len()
	}

	fmt.Fprintln(a.out, a.palette.Heading.Sprint("cacheprobe: semantic cache validation"))
	fmt.Fprintln(a.out, rule)
	fmt.Fprintf(a.out, "Proxy:       %s\n", a.cfg.ProxyURL)
	if a.cfg.RateLimit > 0 {
		fmt.Fprintf(a.out, "Rate limit:  %d requests per %s\n", a.cfg.RateLimit, a.cfg.Window)
	} else {
		fmt.Fprintln(a.out, "Rate limit:  disabled")
	}
	fmt.Fprintf(a.out, "Suites:      %s (%d queries)\n", strings.Join(scenario.Names(suites), ", "), queries)
	if a.cfg.SkipConcurrent {
		fmt.Fprintln(a.out, "Concurrent:  skipped")
	} else {
		fmt.Fprintf(a.out, "Concurrent:  %d workers x %d requests\n", a.cfg.Workers, a.cfg.RequestsPerWorker)
	}
	if a.cfg.SkipStress {
		fmt.Fprintln(a.out, "Mixed:       skipped")
	} else {
		fmt.Fprintf(a.out, "Mixed:       %d requests\n", a.cfg.MixedRequests)
	}
	fmt.Fprintln(a.out, rule)
}

// preflight checks proxy and embedding health. Problems are reported and the
// operator decides whether to continue.
func (a *app) preflight(ctx context.Context) error {
	healthy := true

	health, err := a.proxy.Health(ctx)
	switch {
	case err == nil:
		logger.Debug("proxy healthy", "services", len(health.Services))
	case errors.Is(err, proxy.ErrDegraded):
		healthy = false
		fmt.Fprintln(a.out, a.palette.Warn.Sprint("Warning: some services are down:"))
		for _, s := range health.Down() {
			fmt.Fprintf(a.out, "    %s: %s\n", s.Name, s.Status)
		}
	default:
		healthy = false
		fmt.Fprintf(a.out, "%s %v\n", a.palette.Error.Sprint("Health check failed:"), err)
	}

	if a.cfg.EmbedURL != "" {
		if err := proxy.EmbedHealth(ctx, a.adminHTTP, a.cfg.EmbedURL); err != nil {
			healthy = false
			fmt.Fprintf(a.out, "%s %v\n", a.palette.Warn.Sprint("Warning:"), err)
		}
	}

	if healthy {
		return nil
	}
	return a.confirm("Services down. Continue?")
}

func (a *app) confirm(question string) error {
	if a.cfg.Yes {
		logger.Warn("continuing despite failed health checks")
		return nil
	}
	if !a.interactive {
		return errors.New("health checks failed and stdin is not a terminal; rerun with --yes to continue anyway")
	}
	fmt.Fprintf(a.out, "\n%s (y/n): ", question)
	var answer string
	if _, err := fmt.Fscanln(a.in, &answer); err != nil {
		return errAborted
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return nil
	default:
		return errAborted
	}
}

// clearCache is best effort; a failure only means hit rates start warm.
func (a *app) clearCache(ctx context.Context) {
	if err := a.proxy.ClearCache(ctx); err != nil {
		logger.Warn("could not clear cache", "error", err)
		fmt.Fprintf(a.out, "%s %v\n", a.palette.Warn.Sprint("Could not clear cache:"), err)
		return
	}
	fmt.Fprintln(a.out, "Cache cleared")
	timer := time.NewTimer(settleDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (a *app) runConcurrent(ctx context.Context) {
	fmt.Fprintf(a.out, "\n%s\nCONCURRENT: %d workers x %d requests\n%s\n", rule, a.cfg.Workers, a.cfg.RequestsPerWorker, rule)

	var progress *output.ProgressReporter
	if !a.cfg.JSONOutput {
		progress = output.NewProgressReporter(a.collector, a.cfg.Workers*a.cfg.RequestsPerWorker, progressInterval, a.out)
		progress.Start()
	}
	res := runner.New(runner.Options{
		Workers:           a.cfg.Workers,
		RequestsPerWorker: a.cfg.RequestsPerWorker,
		Queries:           scenario.ConcurrentQueries,
		Prober:            a.executor,
		RatePerSecond:     a.cfg.RatePerSecond,
		ArrivalModel:      toRunnerArrivalModel(a.cfg.Arrival),
		RandomSeed:        a.cfg.Seed,
	}).Run(ctx)
	if progress != nil {
		progress.Stop()
	}
	fmt.Fprintf(a.out, "  %d probes in %s, %d errors\n", res.Total, res.Duration.Round(time.Millisecond), res.Errors)
}

func (a *app) runMixed(ctx context.Context) {
	fmt.Fprintf(a.out, "\n%s\nRAPID FIRE: %d mixed requests\n%s\n", rule, a.cfg.MixedRequests, rule)
	res := runner.Mixed(ctx, runner.MixedOptions{
		Queries: scenario.MixedQueries,
		Total:   a.cfg.MixedRequests,
		Prober:  a.executor,
		OnProgress: func(done, total int) {
			if done%5 == 0 || done == total {
				fmt.Fprintf(a.out, "  %d/%d\n", done, total)
			}
		},
	})
	fmt.Fprintf(a.out, "  %d probes in %s, %d errors\n", res.Total, res.Duration.Round(time.Millisecond), res.Errors)
}

// finish prints the report, cross-checks the proxy's counters, exports and
// evaluates thresholds. It runs on a context detached from cancellation so an
// interrupted run still reports what it has.
func (a *app) finish(ctx context.Context, startedAt time.Time) error {
	ctx = context.WithoutCancel(ctx)
	records := a.collector.Records()
	summary := metrics.Summarize(records, a.limiter.Waits())

	if a.cfg.JSONOutput {
		if err := output.PrintJSONReport(a.out, summary); err != nil {
			return err
		}
	} else {
		output.PrintReport(a.out, summary)
		if m, err := a.proxy.Metrics(ctx); err != nil {
			logger.Warn("proxy metrics unavailable", "error", err)
		} else {
			output.PrintProxyMetrics(a.out, m)
		}
	}

	passed := output.PrintThresholds(a.out, threshold.Evaluate(a.thresholds, summary))

	if !a.cfg.NoExport {
		run := output.RunSummary{
			RunID:      output.NewRunID(startedAt).String(),
			StartedAt:  startedAt,
			FinishedAt: time.Now(),
			Summary:    summary,
		}
		paths, err := output.Export(ctx, a.cfg.OutputDir, run, records)
		if err != nil {
			logger.Error("export failed", "error", err)
		} else {
			fmt.Fprintf(a.out, "\nExported: %s, %s\n", paths.CSV, paths.JSON)
		}
	}

	fmt.Fprintf(a.out, "\nComplete! Errors: %d, Rate waits: %d\n", a.collector.ErrorCount(), a.limiter.Waits())
	if !passed {
		return errThresholdsFailed
	}
	return nil
}

// runDemo asks the five demo questions and prints the proxy's counters.
func (a *app) runDemo(ctx context.Context) error {
	if err := a.preflight(ctx); err != nil {
		return err
	}
	a.clearCache(ctx)

	demo := scenario.Demo()
	res := (&scenario.Runner{Prober: a.executor, Out: a.out, Status: a.palette.Status}).Run(ctx, demo)

	summary := metrics.Summarize(a.collector.Records(), a.limiter.Waits())
	fmt.Fprintf(a.out, "\nHit rate: %.1f%% (%d exact, %d semantic, %d misses, %d errors)\n",
		summary.HitRate, summary.ExactHits, summary.SemanticHits, summary.Misses, res.Errors)
	return a.printProxyMetrics(context.WithoutCancel(ctx))
}

func (a *app) printProxyMetrics(ctx context.Context) error {
	m, err := a.proxy.Metrics(ctx)
	if err != nil {
		return err
	}
	output.PrintProxyMetrics(a.out, m)
	return nil
}

func (a *app) onRateWait(d time.Duration) {
	fmt.Fprintln(a.out, a.palette.Warn.Sprintf("Rate limit: waiting %.1fs...", d.Seconds()))
}

func (a *app) onThrottle(req probe.Request, cooldown time.Duration) {
	logger.Debug("throttled", "scenario", req.Scenario, "worker", req.WorkerID)
	fmt.Fprintln(a.out, a.palette.Warn.Sprintf("Throttled by upstream, cooling down %s...", cooldown))
}

func toRunnerArrivalModel(model config.ArrivalModel) runner.ArrivalModel {
	switch strings.ToLower(string(model)) {
	case string(config.ArrivalModelPoisson):
		return runner.ArrivalModelPoisson
	default:
		return runner.ArrivalModelUniform
	}
}
