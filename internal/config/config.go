package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

type ArrivalModel string

const (
	ArrivalModelUniform ArrivalModel = "uniform"
	ArrivalModelPoisson ArrivalModel = "poisson"
)

const (
	DefaultProxyURL          = "http://localhost:3000"
	DefaultModel             = "llama-3.3-70b-versatile"
	DefaultAPIKey            = "dummy-key"
	DefaultRateLimit         = 30
	DefaultWindow            = time.Minute
	DefaultCooldown          = 60 * time.Second
	DefaultExactThreshold    = 5 * time.Millisecond
	DefaultSemanticThreshold = 100 * time.Millisecond
	DefaultWorkers           = 5
	DefaultRequestsPerWorker = 4
	DefaultMixedRequests     = 25
	DefaultAdminTimeout      = 5 * time.Second
	DefaultOutputDir         = "."
)

type Config struct {
	ProxyURL           string        `mapstructure:"proxy_url"`
	EmbedURL           string        `mapstructure:"embed_url"`
	APIKey             string        `mapstructure:"api_key"`
	Model              string        `mapstructure:"model"`
	RateLimit          int           `mapstructure:"rate_limit"`
	Window             time.Duration `mapstructure:"window"`
	Cooldown           time.Duration `mapstructure:"cooldown"`
	MaxThrottleRetries int           `mapstructure:"max_throttle_retries"`
	ExactThreshold     time.Duration `mapstructure:"exact_threshold"`
	SemanticThreshold  time.Duration `mapstructure:"semantic_threshold"`
	Workers            int           `mapstructure:"workers"`
	RequestsPerWorker  int           `mapstructure:"requests_per_worker"`
	MixedRequests      int           `mapstructure:"mixed_requests"`
	RatePerSecond      int           `mapstructure:"rate_per_second"`
	Arrival            ArrivalModel  `mapstructure:"arrival_model"`
	Seed               int64         `mapstructure:"seed"`
	SkipConcurrent     bool          `mapstructure:"skip_concurrent"`
	SkipStress         bool          `mapstructure:"skip_stress"`
	Suites             []string      `mapstructure:"suites"`
	SkipSuites         []string      `mapstructure:"skip_suites"`
	SuitesFile         string        `mapstructure:"suites_file"`
	OutputDir          string        `mapstructure:"output_dir"`
	NoExport           bool          `mapstructure:"no_export"`
	NoColor            bool          `mapstructure:"no_color"`
	Yes                bool          `mapstructure:"yes"`
	JSONOutput         bool          `mapstructure:"json_output"`
	Thresholds         []string      `mapstructure:"thresholds"`
	LogLevel           string        `mapstructure:"log_level"`
	LogFormat          string        `mapstructure:"log_format"`
	AdminTimeout       time.Duration `mapstructure:"admin_timeout"`
	ConfigFile         string        `mapstructure:"-"`
	Tracing            TracingConfig `mapstructure:"tracing"`
}

// TracingConfig controls OpenTelemetry span export for probes.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Insecure    bool    `mapstructure:"insecure"`
	Propagate   *bool   `mapstructure:"propagate"`
}

// Enabled reports whether an OTLP endpoint is configured directly or through
// OTEL_EXPORTER_OTLP_ENDPOINT.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != "" || os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != ""
}

// ShouldPropagate defaults to Enabled unless explicitly overridden.
func (t TracingConfig) ShouldPropagate() bool {
	if t.Propagate != nil {
		return *t.Propagate
	}
	return t.Enabled()
}

// Defaults returns a Config populated with the built-in defaults.
func Defaults() Config {
	return Config{
		ProxyURL:          DefaultProxyURL,
		APIKey:            DefaultAPIKey,
		Model:             DefaultModel,
		RateLimit:         DefaultRateLimit,
		Window:            DefaultWindow,
		Cooldown:          DefaultCooldown,
		ExactThreshold:    DefaultExactThreshold,
		SemanticThreshold: DefaultSemanticThreshold,
		Workers:           DefaultWorkers,
		RequestsPerWorker: DefaultRequestsPerWorker,
		MixedRequests:     DefaultMixedRequests,
		Arrival:           ArrivalModelUniform,
		OutputDir:         DefaultOutputDir,
		LogLevel:          "info",
		LogFormat:         "text",
		AdminTimeout:      DefaultAdminTimeout,
		Tracing:           TracingConfig{SampleRate: 1.0},
	}
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string

	issues = append(issues, validateURL("proxy url", c.ProxyURL, true)...)
	issues = append(issues, validateURL("embed url", c.EmbedURL, false)...)

	if strings.TrimSpace(c.Model) == "" {
		issues = append(issues, "model must not be empty")
	}
	if c.RateLimit < 0 {
		issues = append(issues, "rate limit must be >= 0")
	}
	if c.Window <= 0 {
		issues = append(issues, "window must be > 0")
	}
	if c.Cooldown < 0 {
		issues = append(issues, "cooldown must be >= 0")
	}
	if c.MaxThrottleRetries < 0 {
		issues = append(issues, "max throttle retries must be >= 0")
	}
	if c.ExactThreshold <= 0 {
		issues = append(issues, "exact threshold must be > 0")
	}
	if c.SemanticThreshold <= c.ExactThreshold {
		issues = append(issues, "semantic threshold must be greater than the exact threshold")
	}
	if c.Workers <= 0 {
		issues = append(issues, "workers must be > 0")
	}
	if c.RequestsPerWorker < 0 {
		issues = append(issues, "requests per worker must be >= 0")
	}
	if c.MixedRequests < 0 {
		issues = append(issues, "mixed requests must be >= 0")
	}
	if c.RatePerSecond < 0 {
		issues = append(issues, "rate per second must be >= 0")
	}
	issues = append(issues, validateArrivalModel(c.Arrival)...)
	if c.AdminTimeout <= 0 {
		issues = append(issues, "admin timeout must be > 0")
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		issues = append(issues, fmt.Sprintf("log format %q is not supported: use text or json", c.LogFormat))
	}
	issues = append(issues, validateTracing(c.Tracing)...)

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

func validateURL(label, raw string, required bool) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if required {
			return []string{label + " is required"}
		}
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return []string{fmt.Sprintf("%s %q must be an absolute URL", label, raw)}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return []string{fmt.Sprintf("%s %q must use http or https", label, raw)}
	}
	return nil
}

func validateArrivalModel(model ArrivalModel) []string {
	if model == "" {
		model = ArrivalModelUniform
	}
	switch model {
	case ArrivalModelUniform, ArrivalModelPoisson:
		return nil
	default:
		return []string{fmt.Sprintf("arrival model %q is not supported", model)}
	}
}

func validateTracing(t TracingConfig) []string {
	var issues []string
	if t.SampleRate < 0 || t.SampleRate > 1 {
		issues = append(issues, fmt.Sprintf("tracing sample rate must be between 0.0 and 1.0, got %g", t.SampleRate))
	}
	switch strings.ToLower(t.Protocol) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing protocol %q is not supported: use grpc or http", t.Protocol))
	}
	return issues
}
