package bench

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/leleuj/ratpack/internal/fixed"
	"github.com/leleuj/ratpack/internal/tracing"
)

// Result is the outcome of a full series.
type Result struct {
	Name       string        `json:"name,omitempty"`
	RunID      string        `json:"run_id"`
	StartedAt  time.Time     `json:"started_at"`
	Average    fixed.Millis  `json:"average_ms"`
	Rounds     []RoundResult `json:"rounds"`
	Duration   time.Duration `json:"-"`
	DurationMs float64       `json:"duration_ms"`
}

// Series runs warmup plus measured rounds strictly in sequence and
// reduces the measured round averages to a single value.
type Series struct {
	opts Options
	log  logrus.FieldLogger
}

func New(opts Options) *Series {
	if opts.Policy == "" {
		opts.Policy = AverageDispatched
	}
	log := opts.Logger
	if log == nil {
		silent := logrus.New()
		silent.SetOutput(io.Discard)
		log = silent
	}
	return &Series{opts: opts, log: log}
}

// Run executes the series. The error is nil only when every round's
// barrier resolved and every cooldown completed; individual probe
// failures never fail the run, they only bias its average.
func (s *Series) Run(ctx context.Context) (*Result, error) {
	if err := s.opts.validate(); err != nil {
		return nil, err
	}

	runID := ulid.Make().String()
	log := s.log.WithField("run_id", runID)

	var span trace.Span
	if s.opts.Tracer != nil {
		ctx, span = tracing.StartSeriesSpan(ctx, s.opts.Tracer, s.opts.Name)
	}

	var limiter *rate.Limiter
	if s.opts.Rate > 0 {
		// Burst equal to the rate to smooth pacing under concurrency.
		limiter = rate.NewLimiter(rate.Limit(s.opts.Rate), s.opts.Rate)
	}

	start := time.Now()
	total := s.opts.Warmup + s.opts.Rounds
	rounds := make([]RoundResult, 0, s.opts.Rounds)
	averages := make([]fixed.Millis, 0, s.opts.Rounds)

	var runErr error
	for i := 1; i <= total; i++ {
		warmup := i <= s.opts.Warmup
		if s.opts.Reporter != nil {
			s.opts.Reporter.RoundStarted(i, total)
		}

		r := &round{
			index:     i,
			total:     total,
			requests:  s.opts.Requests,
			pool:      s.opts.Pool,
			prober:    s.opts.Prober,
			policy:    s.opts.Policy,
			timeout:   s.opts.RoundTimeout,
			limiter:   limiter,
			collector: s.opts.Collector,
			tracer:    s.opts.Tracer,
			log:       log,
			logErrors: s.opts.LogErrors,
		}
		res, err := r.run(ctx)
		if err != nil {
			runErr = fmt.Errorf("round %d/%d: %w", i, total, err)
			break
		}
		res.Warmup = warmup

		if s.opts.Reporter != nil {
			s.opts.Reporter.RoundCompleted(res)
		}
		log.WithFields(logrus.Fields{
			"round":    i,
			"rounds":   total,
			"average":  res.Average.String(),
			"failures": res.Failures,
			"warmup":   warmup,
		}).Debug("round complete")

		if !warmup {
			rounds = append(rounds, res)
			averages = append(averages, res.Average)
		}

		// Cool down between rounds, never after the last.
		if i < total && s.opts.Cooldown > 0 {
			if err := sleep(ctx, s.opts.Cooldown); err != nil {
				runErr = fmt.Errorf("cooldown after round %d/%d: %w", i, total, ErrInterrupted)
				break
			}
		}
	}

	if span != nil {
		tracing.EndSpan(span, runErr)
	}
	if runErr != nil {
		return nil, runErr
	}

	result := &Result{
		Name:      s.opts.Name,
		RunID:     runID,
		StartedAt: start.UTC(),
		Average:   fixed.MeanOf(averages),
		Rounds:    rounds,
		Duration:  time.Since(start),
	}
	result.DurationMs = float64(result.Duration) / float64(time.Millisecond)
	return result, nil
}

// sleep waits for d or until ctx is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
