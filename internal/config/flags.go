package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RegisterFlags registers all CLI flags on a flag set, typically a cobra
// command's persistent flags.
func RegisterFlags(flags *pflag.FlagSet) {
	configureFlags(flags)
}

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "cacheprobe",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	d := Defaults()

	// Proxy flags
	flags.String("proxy-url", d.ProxyURL, "Base URL of the caching proxy")
	flags.String("embed-url", "", "Base URL of the embedding service (health checked when set)")
	flags.String("api-key", d.APIKey, "API key sent to the proxy")
	flags.String("model", d.Model, "Model name sent with every chat completion")
	flags.Duration("admin-timeout", d.AdminTimeout, "Timeout for health, cache clear and metrics calls")
	flags.String("config", "", "Path to configuration file (JSON or YAML)")

	// Rate limiting flags
	flags.Int("rate-limit", d.RateLimit, "Maximum probes per window (0 disables the limiter)")
	flags.Duration("window", d.Window, "Sliding window length for --rate-limit")
	flags.Duration("cooldown", d.Cooldown, "Back-off after the upstream throttles a probe")
	flags.Int("max-throttle-retries", 0, "Give up on a probe after this many throttled attempts (0 retries forever)")

	// Classification flags
	flags.Duration("exact-threshold", d.ExactThreshold, "Responses faster than this count as exact-match hits")
	flags.Duration("semantic-threshold", d.SemanticThreshold, "Responses faster than this count as semantic hits")

	// Workload flags
	flags.IntP("workers", "c", d.Workers, "Concurrent workers in the concurrent phase")
	flags.Int("requests-per-worker", d.RequestsPerWorker, "Probes issued by each concurrent worker")
	flags.Int("mixed-requests", d.MixedRequests, "Probes issued by the mixed workload phase")
	flags.IntP("rate", "r", 0, "Extra per-second pacing across concurrent workers (0 means unpaced)")
	flags.String("arrival-model", string(ArrivalModelUniform), "Arrival model to use when pacing probes (uniform or poisson)")
	flags.Int64("seed", 0, "Random seed for query selection (0 seeds from the clock)")
	flags.Bool("skip-concurrent", false, "Skip the concurrent worker phase")
	flags.Bool("skip-stress", false, "Skip the mixed workload phase")
	flags.StringSlice("suite", nil, "Run only the named suites (repeatable)")
	flags.StringSlice("skip-suite", nil, "Skip the named suites (repeatable)")
	flags.String("suites-file", "", "YAML file with additional suites")

	// Output flags
	flags.String("output-dir", d.OutputDir, "Directory for CSV and JSON exports")
	flags.Bool("no-export", false, "Do not write CSV and JSON exports")
	flags.Bool("no-color", false, "Disable coloured status lines")
	flags.BoolP("yes", "y", false, "Continue without prompting when the proxy reports degraded services")
	flags.Bool("json-output", false, "Emit the final summary as JSON")
	flags.String("log-level", d.LogLevel, "Log level: debug, info, warn or error")
	flags.String("log-format", d.LogFormat, "Log format: text or json")

	// Threshold flags
	flags.StringSlice("threshold", nil, "Pass/fail assertion over the summary (repeatable, e.g. 'hit_rate:percent >= 50')")

	// Tracing flags
	flags.String("otel-endpoint", "", "OTLP collector endpoint; enables tracing")
	flags.String("otel-protocol", "grpc", "OTLP protocol: grpc or http")
	flags.String("otel-service-name", "", "Service name reported with spans")
	flags.Float64("otel-sample-rate", 1.0, "Fraction of probes to trace")
	flags.Bool("otel-insecure", false, "Disable TLS for the OTLP exporter")
	flags.Bool("otel-propagate", true, "Inject W3C trace headers into proxy requests")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config, overriding
// values from the config file and environment. Only flags the user set win.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	strs := map[string]*string{
		"proxy-url":         &cfg.ProxyURL,
		"embed-url":         &cfg.EmbedURL,
		"api-key":           &cfg.APIKey,
		"model":             &cfg.Model,
		"suites-file":       &cfg.SuitesFile,
		"output-dir":        &cfg.OutputDir,
		"log-level":         &cfg.LogLevel,
		"log-format":        &cfg.LogFormat,
		"otel-endpoint":     &cfg.Tracing.Endpoint,
		"otel-protocol":     &cfg.Tracing.Protocol,
		"otel-service-name": &cfg.Tracing.ServiceName,
	}
	for name, dst := range strs {
		if !fs.Changed(name) {
			continue
		}
		val, err := fs.GetString(name)
		if err != nil {
			return err
		}
		*dst = strings.TrimSpace(val)
	}

	ints := map[string]*int{
		"rate-limit":           &cfg.RateLimit,
		"max-throttle-retries": &cfg.MaxThrottleRetries,
		"workers":              &cfg.Workers,
		"requests-per-worker":  &cfg.RequestsPerWorker,
		"mixed-requests":       &cfg.MixedRequests,
		"rate":                 &cfg.RatePerSecond,
	}
	for name, dst := range ints {
		if !fs.Changed(name) {
			continue
		}
		val, err := fs.GetInt(name)
		if err != nil {
			return err
		}
		*dst = val
	}

	durations := map[string]*time.Duration{
		"admin-timeout":      &cfg.AdminTimeout,
		"window":             &cfg.Window,
		"cooldown":           &cfg.Cooldown,
		"exact-threshold":    &cfg.ExactThreshold,
		"semantic-threshold": &cfg.SemanticThreshold,
	}
	for name, dst := range durations {
		if !fs.Changed(name) {
			continue
		}
		val, err := fs.GetDuration(name)
		if err != nil {
			return err
		}
		*dst = val
	}

	bools := map[string]*bool{
		"skip-concurrent": &cfg.SkipConcurrent,
		"skip-stress":     &cfg.SkipStress,
		"no-export":       &cfg.NoExport,
		"no-color":        &cfg.NoColor,
		"yes":             &cfg.Yes,
		"json-output":     &cfg.JSONOutput,
		"otel-insecure":   &cfg.Tracing.Insecure,
	}
	for name, dst := range bools {
		if !fs.Changed(name) {
			continue
		}
		val, err := fs.GetBool(name)
		if err != nil {
			return err
		}
		*dst = val
	}

	lists := map[string]*[]string{
		"suite":      &cfg.Suites,
		"skip-suite": &cfg.SkipSuites,
		"threshold":  &cfg.Thresholds,
	}
	for name, dst := range lists {
		if !fs.Changed(name) {
			continue
		}
		val, err := fs.GetStringSlice(name)
		if err != nil {
			return err
		}
		*dst = val
	}

	if fs.Changed("arrival-model") {
		val, err := fs.GetString("arrival-model")
		if err != nil {
			return err
		}
		cfg.Arrival = ArrivalModel(val)
	}
	if fs.Changed("seed") {
		val, err := fs.GetInt64("seed")
		if err != nil {
			return err
		}
		cfg.Seed = val
	}
	if fs.Changed("otel-sample-rate") {
		val, err := fs.GetFloat64("otel-sample-rate")
		if err != nil {
			return err
		}
		cfg.Tracing.SampleRate = val
	}
	if fs.Changed("otel-propagate") {
		val, err := fs.GetBool("otel-propagate")
		if err != nil {
			return err
		}
		cfg.Tracing.Propagate = &val
	}
	return nil
}
