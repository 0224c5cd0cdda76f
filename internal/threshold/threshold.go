package threshold

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/leleuj/ratpack/internal/fixed"
	"github.com/leleuj/ratpack/internal/metrics"
)

// Threshold represents a performance assertion that can pass or fail.
type Threshold struct {
	Metric    string  // e.g., "server_time", "rtt", "requests"
	Aggregate string  // e.g., "avg", "p99", "failed_rate"
	Operator  string  // e.g., "<", "<=", ">", ">=", "=="
	Value     float64 // the threshold value to compare against
	Raw       string  // original threshold string for display
}

// Result represents the outcome of evaluating a threshold.
type Result struct {
	Threshold Threshold
	Actual    float64
	Pass      bool
	Message   string
}

// Evaluator evaluates thresholds against a finished run.
type Evaluator struct {
	thresholds []Threshold
}

// NewEvaluator creates a new threshold evaluator.
func NewEvaluator(thresholds []Threshold) *Evaluator {
	return &Evaluator{
		thresholds: thresholds,
	}
}

// Evaluate checks all thresholds against the run's final numbers: the
// exact series average for server_time, collector stats for the rest.
func (e *Evaluator) Evaluate(average fixed.Millis, stats metrics.Stats) []Result {
	if len(e.thresholds) == 0 {
		return nil
	}

	results := make([]Result, 0, len(e.thresholds))
	for _, t := range e.thresholds {
		results = append(results, evaluateOne(t, average, stats))
	}
	return results
}

func evaluateOne(t Threshold, average fixed.Millis, stats metrics.Stats) Result {
	actual, err := extractMetricValue(t, average, stats)
	if err != nil {
		return Result{
			Threshold: t,
			Actual:    0,
			Pass:      false,
			Message:   fmt.Sprintf("error: %v", err),
		}
	}

	pass := compareValues(actual, t.Operator, t.Value)
	status := "✓"
	if !pass {
		status = "✗"
	}

	message := fmt.Sprintf("%s %s: %.5f %s %g", status, t.Raw, actual, t.Operator, t.Value)
	return Result{
		Threshold: t,
		Actual:    actual,
		Pass:      pass,
		Message:   message,
	}
}

// Parse parses a threshold string into a Threshold struct.
// Supported formats:
//   - "server_time:avg < 15"       (series average, server-reported ms)
//   - "rtt:p99 < 250"              (round-trip percentile in ms)
//   - "rtt:avg < 100"              (mean round trip in ms)
//   - "requests:failed_rate < 0.01" (failure share as decimal)
//   - "requests:count >= 100"      (total dispatched probes)
//   - "requests:rate > 50"         (probes per second)
func Parse(s string) (Threshold, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Threshold{}, fmt.Errorf("empty threshold string")
	}

	// Pattern: metric:aggregate operator value
	pattern := regexp.MustCompile(`^([a-z_]+):([a-z0-9_]+)\s*([<>=!]+)\s*([0-9.]+)$`)
	matches := pattern.FindStringSubmatch(s)
	if matches == nil {
		return Threshold{}, fmt.Errorf("invalid threshold format: %q (expected metric:aggregate operator value, e.g., 'rtt:p99 < 250')", s)
	}

	metric := matches[1]
	aggregate := matches[2]
	operator := matches[3]
	valueStr := matches[4]

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return Threshold{}, fmt.Errorf("invalid threshold value %q: %v", valueStr, err)
	}

	if !isValidMetric(metric) {
		return Threshold{}, fmt.Errorf("unsupported metric: %q (supported: server_time, rtt, requests)", metric)
	}
	if !isValidAggregate(aggregate) {
		return Threshold{}, fmt.Errorf("unsupported aggregate: %q (supported: p50, p90, p95, p99, avg, min, max, rate, count, failed_rate, failed_count)", aggregate)
	}
	if !isValidOperator(operator) {
		return Threshold{}, fmt.Errorf("unsupported operator: %q (supported: <, <=, >, >=, ==)", operator)
	}

	return Threshold{
		Metric:    metric,
		Aggregate: aggregate,
		Operator:  operator,
		Value:     value,
		Raw:       s,
	}, nil
}

// ParseMultiple parses multiple threshold strings.
func ParseMultiple(thresholds []string) ([]Threshold, error) {
	if len(thresholds) == 0 {
		return nil, nil
	}

	result := make([]Threshold, 0, len(thresholds))
	var errors []string

	for i, s := range thresholds {
		t, err := Parse(s)
		if err != nil {
			errors = append(errors, fmt.Sprintf("threshold[%d]: %v", i, err))
			continue
		}
		result = append(result, t)
	}

	if len(errors) > 0 {
		return nil, fmt.Errorf("threshold parsing errors: %s", strings.Join(errors, "; "))
	}

	return result, nil
}

func isValidMetric(metric string) bool {
	switch metric {
	case "server_time", "rtt", "requests":
		return true
	}
	return false
}

func isValidAggregate(aggregate string) bool {
	switch aggregate {
	case "p50", "p90", "p95", "p99", "avg", "min", "max", "rate", "count", "failed_rate", "failed_count":
		return true
	}
	return false
}

func isValidOperator(operator string) bool {
	switch operator {
	case "<", "<=", ">", ">=", "==":
		return true
	}
	return false
}

func extractMetricValue(t Threshold, average fixed.Millis, stats metrics.Stats) (float64, error) {
	switch t.Metric {
	case "server_time":
		return extractServerTimeMetric(t.Aggregate, average)
	case "rtt":
		return extractRTTMetric(t.Aggregate, stats)
	case "requests":
		return extractRequestMetric(t.Aggregate, stats)
	default:
		return 0, fmt.Errorf("unknown metric: %s", t.Metric)
	}
}

func extractServerTimeMetric(aggregate string, average fixed.Millis) (float64, error) {
	// The harness produces exactly one server-side number: the series
	// average. Percentiles would need raw samples it never pools.
	switch aggregate {
	case "avg", "mean":
		return average.Float64(), nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q for server_time (use 'avg')", aggregate)
	}
}

func extractRTTMetric(aggregate string, stats metrics.Stats) (float64, error) {
	switch aggregate {
	case "p50":
		return stats.P50RTTMs, nil
	case "p90":
		return stats.P90RTTMs, nil
	case "p95":
		// Approximate p95 from p90 and p99.
		return (stats.P90RTTMs + stats.P99RTTMs) / 2, nil
	case "p99":
		return stats.P99RTTMs, nil
	case "avg", "mean":
		return stats.MeanRTTMs, nil
	case "min":
		return stats.MinRTTMs, nil
	case "max":
		return stats.MaxRTTMs, nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q for rtt", aggregate)
	}
}

func extractRequestMetric(aggregate string, stats metrics.Stats) (float64, error) {
	switch aggregate {
	case "count":
		return float64(stats.Total), nil
	case "rate":
		return stats.RequestsPerSec, nil
	case "failed_count":
		return float64(stats.Failures), nil
	case "failed_rate":
		if stats.Total == 0 {
			return 0, nil
		}
		return float64(stats.Failures) / float64(stats.Total), nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q for requests (use 'count', 'rate', 'failed_count' or 'failed_rate')", aggregate)
	}
}

func compareValues(actual float64, operator string, expected float64) bool {
	// Handle floating point comparison with small epsilon.
	epsilon := 1e-9

	switch operator {
	case "<":
		return actual < expected
	case "<=":
		return actual <= expected || math.Abs(actual-expected) < epsilon
	case ">":
		return actual > expected
	case ">=":
		return actual >= expected || math.Abs(actual-expected) < epsilon
	case "==":
		return math.Abs(actual-expected) < epsilon
	default:
		return false
	}
}
