package bench_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/leleuj/ratpack/internal/bench"
)

func TestInterruptWhileAwaitingBarrier(t *testing.T) {
	prober := &stuckProber{}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	s := bench.New(bench.Options{
		Requests: 4,
		Rounds:   1,
		Pool:     newPool(t, 4),
		Prober:   prober,
	})
	start := time.Now()
	_, err := s.Run(ctx)
	if !errors.Is(err, bench.ErrInterrupted) {
		t.Fatalf("Run error = %v, want ErrInterrupted", err)
	}
	if !strings.Contains(err.Error(), "in flight") {
		t.Errorf("error %q does not identify the barrier stage", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("interrupt took %s to take effect", elapsed)
	}
}

func TestInterruptWhileDispatching(t *testing.T) {
	prober := &stuckProber{}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	// One worker, many requests: the single worker blocks on the first
	// probe, so the dispatcher is stuck in Submit when the cancel lands.
	s := bench.New(bench.Options{
		Requests: 10,
		Rounds:   1,
		Pool:     newPool(t, 1),
		Prober:   prober,
	})
	_, err := s.Run(ctx)
	if !errors.Is(err, bench.ErrInterrupted) {
		t.Fatalf("Run error = %v, want ErrInterrupted", err)
	}
	if !strings.Contains(err.Error(), "dispatch aborted") {
		t.Errorf("error %q does not identify the dispatch stage", err)
	}
}

func TestRoundDeadlineResolvesStuckBurst(t *testing.T) {
	prober := &stuckProber{}

	s := bench.New(bench.Options{
		Requests:     2,
		Rounds:       1,
		RoundTimeout: 40 * time.Millisecond,
		Pool:         newPool(t, 2),
		Prober:       prober,
	})
	start := time.Now()
	_, err := s.Run(context.Background())
	elapsed := time.Since(start)

	if !errors.Is(err, bench.ErrRoundTimeout) {
		t.Fatalf("Run error = %v, want ErrRoundTimeout", err)
	}
	if !strings.Contains(err.Error(), "outstanding") {
		t.Errorf("error %q does not report the outstanding requests", err)
	}
	if elapsed < 40*time.Millisecond || elapsed > time.Second {
		t.Errorf("round deadline fired after %s, want ~40ms", elapsed)
	}
}

func TestRemainingRoundsNotAttemptedAfterFailure(t *testing.T) {
	prober := &stuckProber{}

	s := bench.New(bench.Options{
		Requests:     1,
		Rounds:       3,
		RoundTimeout: 30 * time.Millisecond,
		Pool:         newPool(t, 1),
		Prober:       prober,
	})
	_, err := s.Run(context.Background())
	if !errors.Is(err, bench.ErrRoundTimeout) {
		t.Fatalf("Run error = %v, want ErrRoundTimeout", err)
	}
	if !strings.Contains(err.Error(), "round 1/3") {
		t.Errorf("error %q does not name the failing round", err)
	}
}
