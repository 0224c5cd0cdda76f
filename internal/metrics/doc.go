// Package metrics provides client-side metrics collection for a
// measurement run.
//
// The central [Collector] aggregates what the client can observe on its
// own: round-trip latency distribution (HDR histogram percentiles),
// success/failure counts, response status codes, and failure buckets
// keyed by error kind. It deliberately does not handle the
// server-reported elapsed times; those flow through the exact
// fixed-point accumulator so the measured averages stay reproducible.
//
//	collector := metrics.NewCollector()
//	collector.Start() // mark run start for accurate RPS calculation
//
//	collector.Record(rtt, status, err)
//
//	stats := collector.Stats(elapsed)
//
// Record is safe to call from any number of worker goroutines.
package metrics
