package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/leleuj/ratpack/internal/bench"
	"github.com/leleuj/ratpack/internal/config"
	"github.com/leleuj/ratpack/internal/dashboard"
	"github.com/leleuj/ratpack/internal/metrics"
	"github.com/leleuj/ratpack/internal/output"
	"github.com/leleuj/ratpack/internal/pool"
	"github.com/leleuj/ratpack/internal/probe"
	"github.com/leleuj/ratpack/internal/target"
	"github.com/leleuj/ratpack/internal/threshold"
	"github.com/leleuj/ratpack/internal/tracing"
)

const (
	// traceFlushGrace bounds the final span export after the run.
	traceFlushGrace = 5 * time.Second
	// stopGrace bounds the fire-and-forget stop call to the target.
	stopGrace = 5 * time.Second
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	// Bad assertions are config errors; surface them before any probe.
	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return err
	}

	plans, err := cfg.Plans()
	if err != nil {
		return err
	}

	log := newLogger(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	provider, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), traceFlushGrace)
		defer flushCancel()
		if err := provider.Shutdown(flushCtx); err != nil {
			log.WithError(err).Warn("tracing shutdown failed")
		}
	}()

	workers := pool.New(cfg.Concurrency)
	defer workers.Close()

	client := probe.NewClient()
	evaluator := threshold.NewEvaluator(thresholds)

	failed := 0
	for _, plan := range plans {
		rep, err := runSeries(ctx, cancel, cfg, plan, workers, client, provider, log)
		if err != nil {
			return err
		}

		results := evaluator.Evaluate(rep.Series.Average, rep.Stats)
		rep.Thresholds = output.Verdicts(results)
		for _, res := range results {
			if !res.Pass {
				failed++
			}
		}

		if cfg.JSONOutput {
			if err := output.PrintJSONReport(os.Stdout, rep); err != nil {
				return err
			}
		} else {
			output.PrintReport(os.Stdout, rep)
		}

		if cfg.Output != "" {
			if err := output.AppendResults(ctx, cfg.Output, rep); err != nil {
				return fmt.Errorf("append results: %w", err)
			}
		}
		if cfg.HTMLOutput != "" {
			path := htmlPathFor(cfg.HTMLOutput, plan.Name, len(plans))
			if err := writeHTMLReport(path, rep); err != nil {
				return fmt.Errorf("html report: %w", err)
			}
			log.WithField("path", path).Info("HTML report written")
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d threshold(s) failed", failed)
	}
	return nil
}

// runSeries drives one measurement series end to end: readiness poll,
// warmup and measured rounds, the optional stop call, and report
// assembly. Request-level failures are part of the report, not an
// error; only an aborted series returns one.
func runSeries(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, plan config.Plan, workers *pool.Workers, client *http.Client, provider *tracing.Provider, log logrus.FieldLogger) (output.Report, error) {
	if plan.Name != "" {
		log = log.WithField("series", plan.Name)
	}

	collector := metrics.NewCollector()
	conns := probe.NewConnStats()
	prober := probe.New(client, plan.URL, cfg.Timeout).WithConnStats(conns)
	if provider.ShouldPropagate() {
		prober = prober.WithPropagation()
	}

	ctrl := target.New(client, plan.Target, log)
	if cfg.Ready.Path != "" {
		if err := ctrl.AwaitReady(ctx, toReadyCheck(cfg.Ready)); err != nil {
			return output.Report{}, err
		}
	}

	opts := bench.Options{
		Name:         plan.Name,
		Requests:     plan.Requests,
		Rounds:       plan.Rounds,
		Warmup:       plan.Warmup,
		Cooldown:     plan.Cooldown,
		Policy:       toAveragePolicy(cfg.Average),
		RoundTimeout: cfg.RoundTimeout,
		Rate:         cfg.Rate,
		Pool:         workers,
		Prober:       prober,
		Collector:    collector,
		Logger:       log,
		LogErrors:    cfg.LogErrors,
	}
	if provider.Active() {
		opts.Tracer = provider.Tracer()
	}

	var dash *dashboard.Dashboard
	if cfg.Dashboard {
		var err error
		dash, err = dashboard.New(collector, dashboard.RunConfig{
			TargetURL:    plan.URL,
			Concurrency:  workers.Size(),
			Requests:     plan.Requests,
			Rounds:       plan.Rounds,
			Warmup:       plan.Warmup,
			Cooldown:     plan.Cooldown,
			Rate:         cfg.Rate,
			Timeout:      cfg.Timeout,
			RoundTimeout: cfg.RoundTimeout,
			ConfigFile:   cfg.ConfigFile,
		}, cancel)
		if err != nil {
			return output.Report{}, err
		}
		dash.Start()
		opts.Reporter = dash
	} else if !cfg.JSONOutput {
		opts.Reporter = output.NewProgressReporter(os.Stdout)
	}

	// Open the measured window only now, so rates exclude the readiness
	// poll and reporter setup above.
	collector.Start()
	result, runErr := bench.New(opts).Run(ctx)

	var stats metrics.Stats
	if dash != nil {
		dash.Stop()
		stats = dash.GetFinalStats()
	}
	if runErr != nil {
		return output.Report{}, runErr
	}
	if dash == nil {
		stats = collector.Stats(result.Duration)
	}

	if cfg.StopTarget {
		stopCtx, stopCancel := context.WithTimeout(ctx, stopGrace)
		ctrl.Stop(stopCtx)
		stopCancel()
	}

	snapshot := conns.Snapshot()
	return output.Report{
		Target: plan.URL,
		Series: *result,
		Stats:  stats,
		Conns:  &snapshot,
	}, nil
}

// newLogger builds the CLI logger. Logs go to stderr so stdout stays
// reserved for reports; while the dashboard owns the terminal they are
// dropped entirely.
func newLogger(cfg *config.Config) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if cfg.Verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	if cfg.Dashboard {
		log.SetOutput(io.Discard)
	}
	return log
}

func toAveragePolicy(average string) bench.AveragePolicy {
	switch average {
	case string(bench.AverageSuccesses):
		return bench.AverageSuccesses
	default:
		return bench.AverageDispatched
	}
}

func toReadyCheck(rc config.ReadyConfig) target.ReadyCheck {
	return target.ReadyCheck{
		Path:     rc.Path,
		Expect:   rc.Expect,
		Timeout:  rc.Timeout,
		Interval: rc.Interval,
	}
}

// htmlPathFor keeps the configured path for a single series and embeds
// the series name before the extension when a suite produces several,
// so later reports do not clobber earlier ones.
func htmlPathFor(path, series string, plans int) string {
	if plans <= 1 {
		return path
	}
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "-" + sanitizeName(series) + ext
}

func sanitizeName(name string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '_', r == '-':
			return r
		default:
			return '-'
		}
	}, name)
	mapped = strings.Trim(mapped, "-")
	if mapped == "" {
		return "series"
	}
	return mapped
}

func writeHTMLReport(path string, rep output.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := output.GenerateHTMLReport(f, rep); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
