package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. CACHEPROBE_PROXY_URL.
const EnvPrefix = "CACHEPROBE"

// Loader handles loading configuration from files, the environment and
// command-line arguments. Precedence is flags, then environment, then file.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// settingKeys lists every key the loader binds to a CACHEPROBE_ variable.
var settingKeys = []string{
	"proxy_url", "embed_url", "api_key", "model",
	"rate_limit", "window", "cooldown", "max_throttle_retries",
	"exact_threshold", "semantic_threshold",
	"workers", "requests_per_worker", "mixed_requests", "rate_per_second", "arrival_model", "seed",
	"skip_concurrent", "skip_stress", "suites", "skip_suites", "suites_file",
	"output_dir", "no_export", "no_color", "yes", "json_output", "thresholds",
	"log_level", "log_format", "admin_timeout",
	"tracing.endpoint", "tracing.protocol", "tracing.service_name", "tracing.sample_rate",
	"tracing.insecure", "tracing.propagate",
}

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses command-line arguments and configuration files to produce a Config.
func (l Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}
	return l.Resolve(flagSet)
}

// Resolve builds a Config from an already parsed flag set, layering the optional
// --config file and CACHEPROBE_ environment variables underneath the flags.
func (l Loader) Resolve(flagSet *pflag.FlagSet) (*Config, error) {
	var configPath string
	if f := flagSet.Lookup("config"); f != nil {
		configPath = strings.TrimSpace(f.Value.String())
	}

	cfgViper := viper.New()
	cfgViper.SetEnvPrefix(EnvPrefix)
	cfgViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range settingKeys {
		if err := cfgViper.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}
	if configPath != "" {
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := Defaults()
	cfg.ConfigFile = configPath

	if err := applyConfigSettings(&cfg, cfgViper.AllSettings()); err != nil {
		return nil, err
	}
	if err := applyFlagOverrides(&cfg, flagSet); err != nil {
		return nil, err
	}

	cfg.ProxyURL = strings.TrimRight(strings.TrimSpace(cfg.ProxyURL), "/")
	cfg.EmbedURL = strings.TrimRight(strings.TrimSpace(cfg.EmbedURL), "/")
	cfg.Arrival = ArrivalModel(strings.ToLower(strings.TrimSpace(string(cfg.Arrival))))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	return &cfg, nil
}

// applyConfigSettings applies settings from a config file or the environment.
func applyConfigSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	strs := []struct {
		dst  *string
		keys []string
	}{
		{&cfg.ProxyURL, []string{"proxy_url", "proxyUrl", "proxy"}},
		{&cfg.EmbedURL, []string{"embed_url", "embedUrl"}},
		{&cfg.APIKey, []string{"api_key", "apiKey"}},
		{&cfg.Model, []string{"model"}},
		{&cfg.SuitesFile, []string{"suites_file", "suitesFile"}},
		{&cfg.OutputDir, []string{"output_dir", "outputDir"}},
		{&cfg.LogLevel, []string{"log_level", "logLevel"}},
		{&cfg.LogFormat, []string{"log_format", "logFormat"}},
	}
	for _, s := range strs {
		if raw, ok := lookupSetting(settings, s.keys...); ok {
			val, err := asString(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", s.keys[0], err)
			}
			*s.dst = strings.TrimSpace(val)
		}
	}

	ints := []struct {
		dst  *int
		keys []string
	}{
		{&cfg.RateLimit, []string{"rate_limit", "rateLimit"}},
		{&cfg.MaxThrottleRetries, []string{"max_throttle_retries", "maxThrottleRetries"}},
		{&cfg.Workers, []string{"workers"}},
		{&cfg.RequestsPerWorker, []string{"requests_per_worker", "requestsPerWorker"}},
		{&cfg.MixedRequests, []string{"mixed_requests", "mixedRequests"}},
		{&cfg.RatePerSecond, []string{"rate_per_second", "ratePerSecond"}},
	}
	for _, s := range ints {
		if raw, ok := lookupSetting(settings, s.keys...); ok {
			val, err := asInt(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", s.keys[0], err)
			}
			*s.dst = val
		}
	}

	durations := []struct {
		dst  *time.Duration
		keys []string
	}{
		{&cfg.Window, []string{"window"}},
		{&cfg.Cooldown, []string{"cooldown"}},
		{&cfg.ExactThreshold, []string{"exact_threshold", "exactThreshold"}},
		{&cfg.SemanticThreshold, []string{"semantic_threshold", "semanticThreshold"}},
		{&cfg.AdminTimeout, []string{"admin_timeout", "adminTimeout"}},
	}
	for _, s := range durations {
		if raw, ok := lookupSetting(settings, s.keys...); ok {
			val, err := asDuration(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", s.keys[0], err)
			}
			*s.dst = val
		}
	}

	bools := []struct {
		dst  *bool
		keys []string
	}{
		{&cfg.SkipConcurrent, []string{"skip_concurrent", "skipConcurrent"}},
		{&cfg.SkipStress, []string{"skip_stress", "skipStress"}},
		{&cfg.NoExport, []string{"no_export", "noExport"}},
		{&cfg.NoColor, []string{"no_color", "noColor"}},
		{&cfg.Yes, []string{"yes"}},
		{&cfg.JSONOutput, []string{"json_output", "jsonOutput"}},
	}
	for _, s := range bools {
		if raw, ok := lookupSetting(settings, s.keys...); ok {
			val, err := asBool(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", s.keys[0], err)
			}
			*s.dst = val
		}
	}

	lists := []struct {
		dst  *[]string
		keys []string
	}{
		{&cfg.Suites, []string{"suites"}},
		{&cfg.SkipSuites, []string{"skip_suites", "skipSuites"}},
		{&cfg.Thresholds, []string{"thresholds"}},
	}
	for _, s := range lists {
		if raw, ok := lookupSetting(settings, s.keys...); ok {
			val, err := asStringSlice(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", s.keys[0], err)
			}
			*s.dst = val
		}
	}

	if raw, ok := lookupSetting(settings, "arrival_model", "arrivalModel"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("arrival_model: %w", err)
		}
		cfg.Arrival = ArrivalModel(val)
	}

	if raw, ok := lookupSetting(settings, "seed"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		cfg.Seed = int64(val)
	}

	if raw, ok := lookupSetting(settings, "tracing"); ok {
		tracing, err := parseTracing(raw, cfg.Tracing)
		if err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
		cfg.Tracing = tracing
	}

	return nil
}

func parseTracing(value interface{}, base TracingConfig) (TracingConfig, error) {
	settings, err := toStringKeyMap(value)
	if err != nil {
		return base, err
	}
	cfg := base
	if raw, ok := lookupSetting(settings, "endpoint"); ok {
		if cfg.Endpoint, err = asString(raw); err != nil {
			return cfg, fmt.Errorf("endpoint: %w", err)
		}
	}
	if raw, ok := lookupSetting(settings, "protocol"); ok {
		if cfg.Protocol, err = asString(raw); err != nil {
			return cfg, fmt.Errorf("protocol: %w", err)
		}
	}
	if raw, ok := lookupSetting(settings, "service_name", "serviceName"); ok {
		if cfg.ServiceName, err = asString(raw); err != nil {
			return cfg, fmt.Errorf("service_name: %w", err)
		}
	}
	if raw, ok := lookupSetting(settings, "sample_rate", "sampleRate"); ok {
		if cfg.SampleRate, err = asFloat64(raw); err != nil {
			return cfg, fmt.Errorf("sample_rate: %w", err)
		}
	}
	if raw, ok := lookupSetting(settings, "insecure"); ok {
		if cfg.Insecure, err = asBool(raw); err != nil {
			return cfg, fmt.Errorf("insecure: %w", err)
		}
	}
	if raw, ok := lookupSetting(settings, "propagate"); ok {
		val, err := asBool(raw)
		if err != nil {
			return cfg, fmt.Errorf("propagate: %w", err)
		}
		cfg.Propagate = &val
	}
	return cfg, nil
}
