package output

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/leleuj/ratpack/internal/bench"
	"github.com/leleuj/ratpack/internal/fixed"
	"github.com/leleuj/ratpack/internal/metrics"
	"github.com/leleuj/ratpack/internal/probe"
)

func mustMillis(t *testing.T, s string) fixed.Millis {
	t.Helper()
	m, err := fixed.Parse(s)
	if err != nil {
		t.Fatalf("fixed.Parse(%q): %v", s, err)
	}
	return m
}

func sampleReport(t *testing.T) Report {
	t.Helper()
	return Report{
		Target: "http://localhost:5050/perf",
		Series: bench.Result{
			Name:      "perf",
			RunID:     "01JC0TESTRUN000000000000",
			StartedAt: time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC),
			Average:   mustMillis(t, "9.00000"),
			Rounds: []bench.RoundResult{
				{Index: 1, Requests: 40, Failures: 0, Average: mustMillis(t, "8.00000"), Duration: 120 * time.Millisecond, DurationMs: 120},
				{Index: 2, Requests: 40, Failures: 3, Average: mustMillis(t, "10.00000"), Duration: 95 * time.Millisecond, DurationMs: 95},
			},
			Duration:   5 * time.Second,
			DurationMs: 5000,
		},
		Stats: metrics.Stats{
			Total:          80,
			Successes:      77,
			Failures:       3,
			FailedRate:     0.0375,
			MinRTT:         8 * time.Millisecond,
			MaxRTT:         42 * time.Millisecond,
			MeanRTT:        15 * time.Millisecond,
			P50RTT:         13 * time.Millisecond,
			P90RTT:         30 * time.Millisecond,
			P99RTT:         41 * time.Millisecond,
			RequestsPerSec: 16,
			Duration:       5 * time.Second,
			StatusCodes: []metrics.StatusBucket{
				{Code: 200, Count: 77},
				{Code: 503, Count: 3},
			},
			Errors: map[string]int{"probe.MissingHeader": 3},
		},
		Conns: &probe.ConnSnapshot{Dialed: 8, Reused: 72},
		Thresholds: []ThresholdVerdict{
			{Threshold: "server_time:avg < 15", Actual: 9, Pass: true},
			{Threshold: "requests:failed_rate < 0.01", Actual: 0.0375, Pass: false},
		},
	}
}

func TestPrintReportSections(t *testing.T) {
	var buf bytes.Buffer
	PrintReport(&buf, sampleReport(t))

	out := buf.String()
	for _, want := range []string{
		"--- perf ---",
		"Target:            http://localhost:5050/perf",
		"Run ID:            01JC0TESTRUN000000000000",
		"Rounds:            2 x 40 requests",
		"Series Average:    9.00000 ms",
		"  1:  8.00000 ms   failures 0/40",
		"  2:  10.00000 ms   failures 3/40",
		"Round Trip (client):",
		"Requests/sec:      16.00",
		"200: 77",
		"503: 3",
		"Missing timing header: 3",
		"dialed=8 reused=72 (90.0% reused)",
		"server_time:avg < 15",
		"requests:failed_rate < 0.01",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestPrintReportUnnamedSeries(t *testing.T) {
	rep := sampleReport(t)
	rep.Series.Name = ""

	var buf bytes.Buffer
	PrintReport(&buf, rep)

	if !strings.Contains(buf.String(), "--- Benchmark Results ---") {
		t.Errorf("fallback title missing:\n%s", buf.String())
	}
}

func TestPrintJSONReport(t *testing.T) {
	var buf bytes.Buffer
	if err := PrintJSONReport(&buf, sampleReport(t)); err != nil {
		t.Fatalf("PrintJSONReport failed: %v", err)
	}

	var decoded Report
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if got := decoded.Series.Average.String(); got != "9.00000" {
		t.Errorf("series average = %s, want 9.00000", got)
	}
	if len(decoded.Thresholds) != 2 {
		t.Errorf("got %d thresholds, want 2", len(decoded.Thresholds))
	}
	if decoded.Conns == nil || decoded.Conns.Reused != 72 {
		t.Errorf("connection snapshot not preserved: %+v", decoded.Conns)
	}
}

func TestAppendResults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.jsonl")
	rep := sampleReport(t)

	if err := AppendResults(context.Background(), path, rep); err != nil {
		t.Fatalf("first append failed: %v", err)
	}
	rep.Series.RunID = "01JC0TESTRUN000000000001"
	if err := AppendResults(context.Background(), path, rep); err != nil {
		t.Fatalf("second append failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read results: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d result lines, want 2", len(lines))
	}
	for i, line := range lines {
		var decoded Report
		if err := json.Unmarshal([]byte(line), &decoded); err != nil {
			t.Errorf("line %d is not valid JSON: %v", i, err)
		}
	}
	var first Report
	if err := json.Unmarshal([]byte(lines[0]), &first); err == nil {
		if first.Series.RunID != "01JC0TESTRUN000000000000" {
			t.Errorf("first run id = %s", first.Series.RunID)
		}
	}
}

func TestVerdictsEmpty(t *testing.T) {
	if got := Verdicts(nil); got != nil {
		t.Errorf("Verdicts(nil) = %v, want nil", got)
	}
}
