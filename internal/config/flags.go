package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RegisterFlags registers all CLI flags to a cobra command.
func RegisterFlags(cmd *cobra.Command) {
	configureFlags(cmd.Flags())
}

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ratbench",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Target flags
	flags.String("target", "", "Base URL of the service under test")
	flags.String("endpoint", "", "Path under the target to probe")
	flags.String("name", "", "Label for the series in reports")

	// Measurement plan flags
	flags.IntP("requests", "n", 100, "Requests dispatched per round")
	flags.IntP("rounds", "r", 3, "Measured rounds per series")
	flags.Duration("cooldown", time.Second, "Pause between consecutive rounds")
	flags.Int("warmup-rounds", 0, "Unmeasured rounds run before the series")

	// Load control flags
	flags.IntP("concurrency", "c", 10, "Number of pool workers dispatching probes")
	flags.Duration("timeout", 30*time.Second, "Per-request timeout (0 means none)")
	flags.Duration("round-timeout", 0, "Hard deadline per round (0 means none)")
	flags.Int("rate", 0, "Dispatch pacing per second within a round (0 means full burst)")
	flags.String("average", "dispatched", "Round average denominator: 'dispatched' or 'successes'")

	// Output flags
	flags.Bool("json-output", false, "Emit the final report as JSON")
	flags.Bool("dashboard", false, "Show live terminal dashboard")
	flags.Bool("log-errors", false, "Log each failed probe to stderr")
	flags.BoolP("verbose", "v", false, "Log round lifecycle at debug level")
	flags.String("html-output", "", "Generate HTML report to the specified file path")
	flags.StringP("output", "o", "", "Append the JSON result to the specified file")
	flags.String("config", "", "Path to configuration file (JSON or YAML)")

	// Target lifecycle flags
	flags.Bool("stop-target", false, "GET {target}/stop once the series is done")
	flags.String("ready-path", "", "Readiness path polled before measuring")
	flags.String("ready-expect", "", "Readiness JSON match, e.g. 'status=UP'")
	flags.Duration("ready-timeout", 30*time.Second, "Overall readiness poll budget (0 means none)")
	flags.Duration("ready-interval", 500*time.Millisecond, "Readiness poll cadence")

	// Suite flags
	flags.String("suite", "", "Path to a YAML suite of series run back to back")

	// Threshold flags
	flags.StringSlice("threshold", nil, "Pass/fail assertion (repeatable, e.g. 'server_time:avg < 15')")
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
// values from the config file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	if fs.Changed("target") {
		val, err := fs.GetString("target")
		if err != nil {
			return err
		}
		cfg.TargetURL = strings.TrimSpace(val)
	}
	if fs.Changed("endpoint") {
		val, err := fs.GetString("endpoint")
		if err != nil {
			return err
		}
		cfg.Endpoint = strings.TrimSpace(val)
	}
	if fs.Changed("name") {
		val, err := fs.GetString("name")
		if err != nil {
			return err
		}
		cfg.Name = strings.TrimSpace(val)
	}
	if fs.Changed("requests") {
		val, err := fs.GetInt("requests")
		if err != nil {
			return err
		}
		cfg.Requests = val
	}
	if fs.Changed("rounds") {
		val, err := fs.GetInt("rounds")
		if err != nil {
			return err
		}
		cfg.Rounds = val
	}
	if fs.Changed("cooldown") {
		val, err := fs.GetDuration("cooldown")
		if err != nil {
			return err
		}
		cfg.Cooldown = val
	}
	if fs.Changed("warmup-rounds") {
		val, err := fs.GetInt("warmup-rounds")
		if err != nil {
			return err
		}
		cfg.WarmupRounds = val
	}
	if fs.Changed("concurrency") {
		val, err := fs.GetInt("concurrency")
		if err != nil {
			return err
		}
		cfg.Concurrency = val
	}
	if fs.Changed("timeout") {
		val, err := fs.GetDuration("timeout")
		if err != nil {
			return err
		}
		cfg.Timeout = val
	}
	if fs.Changed("round-timeout") {
		val, err := fs.GetDuration("round-timeout")
		if err != nil {
			return err
		}
		cfg.RoundTimeout = val
	}
	if fs.Changed("rate") {
		val, err := fs.GetInt("rate")
		if err != nil {
			return err
		}
		cfg.Rate = val
	}
	if fs.Changed("average") {
		val, err := fs.GetString("average")
		if err != nil {
			return err
		}
		cfg.Average = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("json-output") {
		val, err := fs.GetBool("json-output")
		if err != nil {
			return err
		}
		cfg.JSONOutput = val
	}
	if fs.Changed("dashboard") {
		val, err := fs.GetBool("dashboard")
		if err != nil {
			return err
		}
		cfg.Dashboard = val
	}
	if fs.Changed("log-errors") {
		val, err := fs.GetBool("log-errors")
		if err != nil {
			return err
		}
		cfg.LogErrors = val
	}
	if fs.Changed("verbose") {
		val, err := fs.GetBool("verbose")
		if err != nil {
			return err
		}
		cfg.Verbose = val
	}
	if fs.Changed("html-output") {
		val, err := fs.GetString("html-output")
		if err != nil {
			return err
		}
		cfg.HTMLOutput = strings.TrimSpace(val)
	}
	if fs.Changed("output") {
		val, err := fs.GetString("output")
		if err != nil {
			return err
		}
		cfg.Output = strings.TrimSpace(val)
	}
	if fs.Changed("suite") {
		val, err := fs.GetString("suite")
		if err != nil {
			return err
		}
		cfg.SuiteFile = strings.TrimSpace(val)
	}
	if fs.Changed("stop-target") {
		val, err := fs.GetBool("stop-target")
		if err != nil {
			return err
		}
		cfg.StopTarget = val
	}
	if fs.Changed("ready-path") {
		val, err := fs.GetString("ready-path")
		if err != nil {
			return err
		}
		cfg.Ready.Path = strings.TrimSpace(val)
	}
	if fs.Changed("ready-expect") {
		val, err := fs.GetString("ready-expect")
		if err != nil {
			return err
		}
		cfg.Ready.Expect = strings.TrimSpace(val)
	}
	if fs.Changed("ready-timeout") {
		val, err := fs.GetDuration("ready-timeout")
		if err != nil {
			return err
		}
		cfg.Ready.Timeout = val
	}
	if fs.Changed("ready-interval") {
		val, err := fs.GetDuration("ready-interval")
		if err != nil {
			return err
		}
		cfg.Ready.Interval = val
	}
	if fs.Changed("threshold") {
		val, err := fs.GetStringSlice("threshold")
		if err != nil {
			return err
		}
		cfg.Thresholds = val
	}

	return nil
}
