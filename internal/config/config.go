package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config is the resolved run configuration. Precedence is flag over
// config file over built-in default.
type Config struct {
	TargetURL    string        `mapstructure:"target"`
	Endpoint     string        `mapstructure:"endpoint"`
	Name         string        `mapstructure:"name"`
	Requests     int           `mapstructure:"requests"`
	Rounds       int           `mapstructure:"rounds"`
	Cooldown     time.Duration `mapstructure:"cooldown"`
	WarmupRounds int           `mapstructure:"warmup_rounds"`
	Concurrency  int           `mapstructure:"concurrency"`
	Timeout      time.Duration `mapstructure:"timeout"`
	RoundTimeout time.Duration `mapstructure:"round_timeout"`
	Rate         int           `mapstructure:"rate"`
	Average      string        `mapstructure:"average"`
	JSONOutput   bool          `mapstructure:"json_output"`
	Dashboard    bool          `mapstructure:"dashboard"`
	LogErrors    bool          `mapstructure:"log_errors"`
	Verbose      bool          `mapstructure:"verbose"`
	HTMLOutput   string        `mapstructure:"html_output"`
	Output       string        `mapstructure:"output"`
	SuiteFile    string        `mapstructure:"suite"`
	StopTarget   bool          `mapstructure:"stop_target"`
	Ready        ReadyConfig   `mapstructure:"ready"`
	Tracing      TracingConfig `mapstructure:"tracing"`
	Thresholds   []string      `mapstructure:"thresholds"`
	ConfigFile   string        `mapstructure:"-"`
}

// ReadyConfig configures the readiness poll that runs before the first
// round. An empty Path leaves it off.
type ReadyConfig struct {
	Path     string        `mapstructure:"path"`
	Expect   string        `mapstructure:"expect"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Interval time.Duration `mapstructure:"interval"`
}

// TracingConfig configures OTLP trace export. The zero value means
// tracing is off unless OTEL_EXPORTER_OTLP_ENDPOINT is set.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Insecure    bool    `mapstructure:"insecure"`
	Propagate   *bool   `mapstructure:"propagate"`
}

// Enabled reports whether an export endpoint is configured, either
// directly or through the standard OTel environment variable.
func (t TracingConfig) Enabled() bool {
	if strings.TrimSpace(t.Endpoint) != "" {
		return true
	}
	return os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != ""
}

// ShouldPropagate reports whether probes should carry W3C trace context
// headers. Defaults to the enabled state; Propagate overrides it.
func (t TracingConfig) ShouldPropagate() bool {
	if t.Propagate != nil {
		return *t.Propagate
	}
	return t.Enabled()
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

	if strings.TrimSpace(c.TargetURL) == "" && strings.TrimSpace(c.SuiteFile) == "" {
		issues = append(issues, "target is required (use --help for usage information)")
	}

	if c.Requests < 1 {
		issues = append(issues, "requests must be >= 1")
	}
	if c.Rounds < 1 {
		issues = append(issues, "rounds must be >= 1")
	}
	if c.Cooldown < 0 {
		issues = append(issues, "cooldown must be >= 0")
	}
	if c.WarmupRounds < 0 {
		issues = append(issues, "warmup_rounds must be >= 0")
	}
	if c.Concurrency < 1 {
		issues = append(issues, "concurrency must be >= 1")
	}
	if c.Timeout < 0 {
		issues = append(issues, "timeout must be >= 0")
	}
	if c.RoundTimeout < 0 {
		issues = append(issues, "round_timeout must be >= 0")
	}
	if c.Rate < 0 {
		issues = append(issues, "rate must be >= 0")
	}

	switch c.Average {
	case "dispatched", "successes":
	default:
		issues = append(issues, fmt.Sprintf("average must be 'dispatched' or 'successes', got %q", c.Average))
	}

	if c.Dashboard && c.JSONOutput {
		issues = append(issues, "dashboard and json-output are mutually exclusive")
	}
	if c.Dashboard && strings.TrimSpace(c.SuiteFile) != "" {
		issues = append(issues, "dashboard cannot be combined with a suite")
	}

	readyIssues := validateReadyConfig(c.Ready)
	if len(readyIssues) > 0 {
		issues = append(issues, readyIssues...)
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}

	return nil
}

func validateReadyConfig(ready ReadyConfig) []string {
	var issues []string
	if strings.TrimSpace(ready.Path) == "" && strings.TrimSpace(ready.Expect) != "" {
		issues = append(issues, "ready: expect requires a path")
	}
	if ready.Timeout < 0 {
		issues = append(issues, "ready: timeout must be >= 0")
	}
	if ready.Interval < 0 {
		issues = append(issues, "ready: interval must be >= 0")
	}
	return issues
}
