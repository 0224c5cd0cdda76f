package bench

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/leleuj/ratpack/internal/fixed"
	"github.com/leleuj/ratpack/internal/metrics"
	"github.com/leleuj/ratpack/internal/pool"
	"github.com/leleuj/ratpack/internal/probe"
	"github.com/leleuj/ratpack/internal/tracing"
)

// RoundResult is one completed round of a series.
type RoundResult struct {
	Index      int           `json:"index"`
	Requests   int           `json:"requests"`
	Failures   int           `json:"failures"`
	Average    fixed.Millis  `json:"average_ms"`
	Duration   time.Duration `json:"-"`
	DurationMs float64       `json:"duration_ms"`
	Warmup     bool          `json:"warmup,omitempty"`
}

// round drives one burst: dispatch exactly requests probes onto the
// shared pool, then hold on the completion barrier until every
// dispatched probe has signalled, success or failure.
type round struct {
	index     int
	total     int
	requests  int
	pool      *pool.Workers
	prober    Prober
	policy    AveragePolicy
	timeout   time.Duration
	limiter   *rate.Limiter
	collector *metrics.Collector
	tracer    trace.Tracer
	log       logrus.FieldLogger
	logErrors bool
}

func (r *round) run(ctx context.Context) (res RoundResult, err error) {
	// The round owns its probes: abandoning the round cancels whatever
	// is still in flight so the barrier goroutine can drain.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if r.tracer != nil {
		var span trace.Span
		ctx, span = tracing.StartRoundSpan(ctx, r.tracer, r.index, r.total)
		defer func() { tracing.EndSpan(span, err) }()
	}

	start := time.Now()
	var acc fixed.Accumulator
	var failures, completed int64

	var wg sync.WaitGroup
	dispatched := 0
	for i := 0; i < r.requests; i++ {
		if r.limiter != nil {
			if werr := r.limiter.Wait(ctx); werr != nil {
				return RoundResult{}, fmt.Errorf("dispatch aborted after %d/%d requests: %w", dispatched, r.requests, ErrInterrupted)
			}
		}
		wg.Add(1)
		serr := r.pool.Submit(ctx, func() {
			defer wg.Done()
			out := r.probe(ctx)
			atomic.AddInt64(&completed, 1)
			if out.Err != nil {
				atomic.AddInt64(&failures, 1)
				if r.logErrors && r.log != nil {
					r.log.WithField("round", r.index).WithError(out.Err).Warn("probe failed")
				}
			} else {
				acc.Add(out.Elapsed)
			}
			if r.collector != nil {
				r.collector.Record(out.RTT, out.Status, out.Err)
			}
		})
		if serr != nil {
			// The task never ran; release its barrier slot.
			wg.Done()
			return RoundResult{}, fmt.Errorf("dispatch aborted after %d/%d requests: %w", dispatched, r.requests, ErrInterrupted)
		}
		dispatched++
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	if aerr := r.await(ctx, done, &completed, dispatched); aerr != nil {
		return RoundResult{}, aerr
	}

	failed := int(atomic.LoadInt64(&failures))
	res = RoundResult{
		Index:    r.index,
		Requests: dispatched,
		Failures: failed,
		Average:  r.average(acc.Sum(), dispatched, failed),
		Duration: time.Since(start),
	}
	res.DurationMs = float64(res.Duration) / float64(time.Millisecond)
	return res, nil
}

// probe runs one probe, wrapped in a client span when tracing is on.
func (r *round) probe(ctx context.Context) probe.Outcome {
	if r.tracer == nil {
		return r.prober.Do(ctx)
	}
	ctx, span := tracing.StartProbeSpan(ctx, r.tracer)
	out := r.prober.Do(ctx)
	tracing.EndSpan(span, out.Err)
	return out
}

// await blocks on the completion barrier, bounded by the optional round
// deadline and the caller's context.
func (r *round) await(ctx context.Context, done <-chan struct{}, completed *int64, dispatched int) error {
	outstanding := func() int {
		return dispatched - int(atomic.LoadInt64(completed))
	}

	if r.timeout > 0 {
		timer := time.NewTimer(r.timeout)
		defer timer.Stop()
		select {
		case <-done:
			return nil
		case <-timer.C:
			return fmt.Errorf("%d of %d requests still outstanding after %s: %w", outstanding(), dispatched, r.timeout, ErrRoundTimeout)
		case <-ctx.Done():
			return fmt.Errorf("interrupted with %d of %d requests in flight: %w", outstanding(), dispatched, ErrInterrupted)
		}
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("interrupted with %d of %d requests in flight: %w", outstanding(), dispatched, ErrInterrupted)
	}
}

// average reduces the round's exact sum under the configured policy.
func (r *round) average(sum fixed.Millis, dispatched, failed int) fixed.Millis {
	switch r.policy {
	case AverageSuccesses:
		if n := dispatched - failed; n > 0 {
			return fixed.Mean(sum, n)
		}
	default:
		if dispatched > 0 {
			return fixed.Mean(sum, dispatched)
		}
	}
	return 0
}
