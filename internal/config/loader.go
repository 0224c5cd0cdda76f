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

// Loader handles loading configuration from files and command-line arguments.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses command-line arguments and configuration files to produce a Config.
func (Loader) Load(args []string) (*Config, error) {
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

	// If no arguments provided and no config file, show help/usage
	configPath := flagSet.Lookup("config").Value.String()
	if len(args) == 0 && configPath == "" {
		displayHelp(cmd)
		return nil, ErrHelpRequested
	}
	cfgViper := viper.New()
	if configPath != "" {
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	settings := cfgViper.AllSettings()

	cfg := &Config{
		Requests:    100,
		Rounds:      3,
		Cooldown:    time.Second,
		Concurrency: 10,
		Timeout:     30 * time.Second,
		Average:     "dispatched",
		Ready: ReadyConfig{
			Timeout:  30 * time.Second,
			Interval: 500 * time.Millisecond,
		},
		// Sample everything unless the file says otherwise; an
		// endpoint-only tracing block must still record spans.
		Tracing:    TracingConfig{SampleRate: 1},
		ConfigFile: configPath,
	}

	if err := applyConfigSettings(cfg, settings); err != nil {
		return nil, err
	}

	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	cfg.TargetURL = strings.TrimSpace(cfg.TargetURL)
	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	cfg.Name = strings.TrimSpace(cfg.Name)
	cfg.Average = strings.ToLower(strings.TrimSpace(cfg.Average))
	if cfg.Average == "" {
		cfg.Average = "dispatched"
	}

	return cfg, nil
}

// applyConfigSettings applies settings from a config file to the Config struct.
func applyConfigSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	if raw, ok := lookupSetting(settings, "target"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("target: %w", err)
		}
		cfg.TargetURL = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "endpoint"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("endpoint: %w", err)
		}
		cfg.Endpoint = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "name"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("name: %w", err)
		}
		cfg.Name = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "requests"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("requests: %w", err)
		}
		cfg.Requests = val
	}

	if raw, ok := lookupSetting(settings, "rounds"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("rounds: %w", err)
		}
		cfg.Rounds = val
	}

	if raw, ok := lookupSetting(settings, "cooldown", "cooldown_seconds", "cooldown-seconds", "cooldownseconds"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("cooldown: %w", err)
		}
		cfg.Cooldown = dur
	}

	if raw, ok := lookupSetting(settings, "warmuprounds", "warmup_rounds", "warmup-rounds", "warmup"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("warmupRounds: %w", err)
		}
		cfg.WarmupRounds = val
	}

	if raw, ok := lookupSetting(settings, "concurrency"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("concurrency: %w", err)
		}
		cfg.Concurrency = val
	}

	if raw, ok := lookupSetting(settings, "timeout"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		cfg.Timeout = dur
	}

	if raw, ok := lookupSetting(settings, "roundtimeout", "round_timeout", "round-timeout"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("roundTimeout: %w", err)
		}
		cfg.RoundTimeout = dur
	}

	if raw, ok := lookupSetting(settings, "rate"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("rate: %w", err)
		}
		cfg.Rate = val
	}

	if raw, ok := lookupSetting(settings, "average"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("average: %w", err)
		}
		cfg.Average = strings.ToLower(strings.TrimSpace(val))
	}

	if raw, ok := lookupSetting(settings, "jsonoutput", "json_output", "json-output"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("jsonOutput: %w", err)
		}
		cfg.JSONOutput = val
	}

	if raw, ok := lookupSetting(settings, "dashboard"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("dashboard: %w", err)
		}
		cfg.Dashboard = val
	}

	if raw, ok := lookupSetting(settings, "logerrors", "log_errors", "log-errors"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("logErrors: %w", err)
		}
		cfg.LogErrors = val
	}

	if raw, ok := lookupSetting(settings, "verbose"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("verbose: %w", err)
		}
		cfg.Verbose = val
	}

	if raw, ok := lookupSetting(settings, "htmloutput", "html_output", "html-output"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("htmlOutput: %w", err)
		}
		cfg.HTMLOutput = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "output", "output_file", "output-file", "outputfile"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("output: %w", err)
		}
		cfg.Output = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "suite", "suite_file", "suite-file", "suitefile"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("suite: %w", err)
		}
		cfg.SuiteFile = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "stoptarget", "stop_target", "stop-target"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("stopTarget: %w", err)
		}
		cfg.StopTarget = val
	}

	if raw, ok := lookupSetting(settings, "ready"); ok {
		if err := parseReady(raw, &cfg.Ready); err != nil {
			return fmt.Errorf("ready: %w", err)
		}
	}

	if raw, ok := lookupSetting(settings, "tracing"); ok {
		if err := parseTracing(raw, &cfg.Tracing); err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
	}

	if raw, ok := lookupSetting(settings, "thresholds", "threshold"); ok {
		thresholds, err := asStringSlice(raw)
		if err != nil {
			return fmt.Errorf("thresholds: %w", err)
		}
		cfg.Thresholds = thresholds
	}

	return nil
}

// parseReady fills ready from a nested config map. Keys that are absent
// keep their current values.
func parseReady(value interface{}, ready *ReadyConfig) error {
	if value == nil {
		return nil
	}
	entry, err := toStringKeyMap(value)
	if err != nil {
		return err
	}
	if raw, ok := lookupSetting(entry, "path"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("path: %w", err)
		}
		ready.Path = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(entry, "expect"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("expect: %w", err)
		}
		ready.Expect = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(entry, "timeout"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		ready.Timeout = dur
	}
	if raw, ok := lookupSetting(entry, "interval"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("interval: %w", err)
		}
		ready.Interval = dur
	}
	return nil
}

// parseTracing fills tracing from a nested config map. Keys that are
// absent keep their current values.
func parseTracing(value interface{}, tracing *TracingConfig) error {
	if value == nil {
		return nil
	}
	entry, err := toStringKeyMap(value)
	if err != nil {
		return err
	}
	if raw, ok := lookupSetting(entry, "endpoint"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("endpoint: %w", err)
		}
		tracing.Endpoint = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(entry, "protocol"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("protocol: %w", err)
		}
		tracing.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if raw, ok := lookupSetting(entry, "servicename", "service_name", "service-name"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("service_name: %w", err)
		}
		tracing.ServiceName = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(entry, "samplerate", "sample_rate", "sample-rate"); ok {
		val, err := asFloat64(raw)
		if err != nil {
			return fmt.Errorf("sample_rate: %w", err)
		}
		tracing.SampleRate = val
	}
	if raw, ok := lookupSetting(entry, "insecure"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("insecure: %w", err)
		}
		tracing.Insecure = val
	}
	if raw, ok := lookupSetting(entry, "propagate"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("propagate: %w", err)
		}
		tracing.Propagate = &val
	}
	return nil
}
