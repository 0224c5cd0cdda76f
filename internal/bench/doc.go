// Package bench orchestrates the measurement run: bursts of concurrent
// probes ("rounds") grouped into a sequential series.
//
// A round dispatches exactly Requests probes onto the caller-owned
// worker pool and blocks on a completion barrier until every dispatched
// probe has signalled, success or failure. The server-reported elapsed
// values accumulate exactly (scaled integers, atomic adds) and reduce
// to one round average with half-up rounding. A series runs its rounds
// strictly in sequence with a cancellable cooldown between consecutive
// rounds (never after the last) and reduces the round averages, again
// half-up, to the final value. Averaging is therefore two-stage by
// construction; raw samples are never pooled across rounds.
//
// # Basic Usage
//
//	workers := pool.New(concurrency)
//	defer workers.Close()
//
//	series := bench.New(bench.Options{
//		Requests: 100,
//		Rounds:   3,
//		Cooldown: 15 * time.Second,
//		Pool:     workers,
//		Prober:   prober,
//	})
//	result, err := series.Run(ctx)
//
// # Failure Model
//
// A failed probe contributes nothing to the elapsed total but keeps its
// slot in the barrier and, under [AverageDispatched], in the round
// denominator. Only three things fail a run: an unusable configuration
// ([ConfigError]), an interrupt ([ErrInterrupted]), and a round that
// outlives its deadline ([ErrRoundTimeout]).
package bench
