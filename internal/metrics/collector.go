package metrics

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/leleuj/ratpack/internal/probe"
)

// Collector aggregates the client-side view of a run: round-trip
// distribution, status codes, and failure buckets. The server-reported
// elapsed times are accumulated exactly elsewhere; everything recorded
// here is observability, not measurement.
type Collector struct {
	mu           sync.Mutex
	hist         *hdrhistogram.Histogram
	successes    int64
	failures     int64
	minRTT       time.Duration
	maxRTT       time.Duration
	sumRTT       time.Duration
	statusCodes  map[int]int64
	errorsByType map[string]int64
	start        time.Time
}

// Stats represents aggregated client-side metrics.
type Stats struct {
	Total          int64         `json:"total"`
	Successes      int64         `json:"successes"`
	Failures       int64         `json:"failures"`
	FailedRate     float64       `json:"failed_rate"`
	MinRTT         time.Duration `json:"-"`
	MaxRTT         time.Duration `json:"-"`
	MeanRTT        time.Duration `json:"-"`
	P50RTT         time.Duration `json:"-"`
	P90RTT         time.Duration `json:"-"`
	P99RTT         time.Duration `json:"-"`
	Duration       time.Duration `json:"-"`
	RequestsPerSec float64       `json:"requests_per_sec"`

	// JSON-friendly millisecond fields.
	MinRTTMs   float64 `json:"min_rtt_ms"`
	MaxRTTMs   float64 `json:"max_rtt_ms"`
	MeanRTTMs  float64 `json:"mean_rtt_ms"`
	P50RTTMs   float64 `json:"p50_rtt_ms"`
	P90RTTMs   float64 `json:"p90_rtt_ms"`
	P99RTTMs   float64 `json:"p99_rtt_ms"`
	DurationMs float64 `json:"duration_ms"`

	StatusCodes []StatusBucket `json:"status_codes,omitempty"`
	Errors      map[string]int `json:"errors,omitempty"`
}

func NewCollector() *Collector {
	// Track round trips from 1µs up to 60s with 3 significant figures.
	h := hdrhistogram.New(1, 60_000_000, 3)
	return &Collector{
		hist:         h,
		statusCodes:  make(map[int]int64),
		errorsByType: make(map[string]int64),
		start:        time.Now(),
	}
}

// Start marks the beginning of the measured window so rates reflect
// the run itself, not collector construction time.
func (c *Collector) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.start = time.Now()
}

// Elapsed reports how long the measured window has been open.
func (c *Collector) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Since(c.start)
}

// Record folds one probe outcome into the aggregates.
func (c *Collector) Record(rtt time.Duration, status int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if rtt > 0 {
		us := rtt.Microseconds()
		if us < c.hist.LowestTrackableValue() {
			us = c.hist.LowestTrackableValue()
		}
		if us > c.hist.HighestTrackableValue() {
			us = c.hist.HighestTrackableValue()
		}
		_ = c.hist.RecordValue(us)
	}
	c.sumRTT += rtt

	if c.minRTT == 0 || rtt < c.minRTT {
		c.minRTT = rtt
	}
	if rtt > c.maxRTT {
		c.maxRTT = rtt
	}
	if status > 0 {
		c.statusCodes[status]++
	}

	if err == nil {
		c.successes++
		return
	}
	c.failures++
	c.errorsByType[errorKey(err)]++
}

// errorKey derives the failure bucket for an error. Sentinels carry no
// useful type name, so the missing-header case is mapped explicitly.
func errorKey(err error) string {
	if errors.Is(err, probe.ErrMissingHeader) {
		return "probe.MissingHeader"
	}
	kind := fmt.Sprintf("%T", err)
	if len(kind) > 30 {
		kind = kind[len(kind)-30:]
	}
	return kind
}

// Stats computes and returns current aggregated statistics.
func (c *Collector) Stats(elapsed time.Duration) Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.successes + c.failures
	stats := Stats{
		Total:     total,
		Successes: c.successes,
		Failures:  c.failures,
		MinRTT:    c.minRTT,
		MaxRTT:    c.maxRTT,
	}

	if total > 0 {
		stats.MeanRTT = time.Duration(int64(c.sumRTT) / total)
		stats.FailedRate = float64(c.failures) / float64(total)
	}

	if c.hist.TotalCount() > 0 {
		stats.P50RTT = time.Duration(c.hist.ValueAtQuantile(50)) * time.Microsecond
		stats.P90RTT = time.Duration(c.hist.ValueAtQuantile(90)) * time.Microsecond
		stats.P99RTT = time.Duration(c.hist.ValueAtQuantile(99)) * time.Microsecond
	}

	stats.MinRTTMs = float64(stats.MinRTT) / float64(time.Millisecond)
	stats.MaxRTTMs = float64(stats.MaxRTT) / float64(time.Millisecond)
	stats.MeanRTTMs = float64(stats.MeanRTT) / float64(time.Millisecond)
	stats.P50RTTMs = float64(stats.P50RTT) / float64(time.Millisecond)
	stats.P90RTTMs = float64(stats.P90RTT) / float64(time.Millisecond)
	stats.P99RTTMs = float64(stats.P99RTT) / float64(time.Millisecond)

	stats.Duration = elapsed
	stats.DurationMs = float64(elapsed) / float64(time.Millisecond)
	if elapsed > 0 && total > 0 {
		stats.RequestsPerSec = float64(total) / elapsed.Seconds()
	}

	stats.StatusCodes = FlattenStatusCodes(c.statusCodes)

	if len(c.errorsByType) > 0 {
		stats.Errors = make(map[string]int, len(c.errorsByType))
		for k, v := range c.errorsByType {
			stats.Errors[k] = int(v)
		}
	}

	return stats
}

// ErrorBreakdown returns a copy of the failure buckets.
func (c *Collector) ErrorBreakdown() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make(map[string]int)
	for k, v := range c.errorsByType {
		result[k] = int(v)
	}
	return result
}
