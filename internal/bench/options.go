package bench

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"

	"github.com/leleuj/ratpack/internal/metrics"
	"github.com/leleuj/ratpack/internal/pool"
	"github.com/leleuj/ratpack/internal/probe"
)

// Prober issues one probe and reports its outcome.
// Implementations must be safe for concurrent use.
type Prober interface {
	Do(ctx context.Context) probe.Outcome
}

// Reporter observes round lifecycle for progress display. Calls happen
// strictly between rounds, never inside a burst.
type Reporter interface {
	RoundStarted(index, total int)
	RoundCompleted(result RoundResult)
}

// AveragePolicy selects the denominator of a round average.
type AveragePolicy string

const (
	// AverageDispatched divides the elapsed total by every dispatched
	// request, so failed probes pull the round average toward zero.
	// This is the default.
	AverageDispatched AveragePolicy = "dispatched"

	// AverageSuccesses divides by successful probes only; a round with
	// no successes averages to zero.
	AverageSuccesses AveragePolicy = "successes"
)

// Options configure a measurement series.
type Options struct {
	Name         string
	Requests     int           // probes per round
	Rounds       int           // measured rounds
	Warmup       int           // discarded leading rounds, same shape as measured ones
	Cooldown     time.Duration // pause between consecutive rounds
	Policy       AveragePolicy
	RoundTimeout time.Duration // per-round barrier deadline, 0 = none
	Rate         int           // dispatch pacing per second, 0 = full burst

	Pool      *pool.Workers      // required; owned by the caller, shared across rounds
	Prober    Prober             // required
	Collector *metrics.Collector // optional client-side stats
	Reporter  Reporter           // optional progress observer
	Logger    logrus.FieldLogger // optional; silent when nil
	Tracer    trace.Tracer       // optional; nil disables spans
	LogErrors bool
}

func (o *Options) validate() error {
	switch {
	case o.Requests < 1:
		return &ConfigError{Reason: fmt.Sprintf("requests must be >= 1, got %d", o.Requests)}
	case o.Rounds < 1:
		return &ConfigError{Reason: fmt.Sprintf("rounds must be >= 1, got %d", o.Rounds)}
	case o.Warmup < 0:
		return &ConfigError{Reason: fmt.Sprintf("warmup rounds must be >= 0, got %d", o.Warmup)}
	case o.Cooldown < 0:
		return &ConfigError{Reason: fmt.Sprintf("cooldown must be >= 0, got %s", o.Cooldown)}
	case o.RoundTimeout < 0:
		return &ConfigError{Reason: fmt.Sprintf("round timeout must be >= 0, got %s", o.RoundTimeout)}
	case o.Rate < 0:
		return &ConfigError{Reason: fmt.Sprintf("rate must be >= 0, got %d", o.Rate)}
	case o.Pool == nil:
		return &ConfigError{Reason: "worker pool is required"}
	case o.Prober == nil:
		return &ConfigError{Reason: "prober is required"}
	}
	if o.Policy != AverageDispatched && o.Policy != AverageSuccesses {
		return &ConfigError{Reason: fmt.Sprintf("unknown average policy %q", o.Policy)}
	}
	return nil
}
