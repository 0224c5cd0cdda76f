package output

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gofrs/flock"

	"github.com/leleuj/ratpack/internal/bench"
	"github.com/leleuj/ratpack/internal/metrics"
	"github.com/leleuj/ratpack/internal/probe"
	"github.com/leleuj/ratpack/internal/threshold"
)

// Report is the complete outcome of one series, assembled for rendering
// and for the results file.
type Report struct {
	Target     string              `json:"target,omitempty"`
	Series     bench.Result        `json:"series"`
	Stats      metrics.Stats       `json:"stats"`
	Conns      *probe.ConnSnapshot `json:"connections,omitempty"`
	Thresholds []ThresholdVerdict  `json:"thresholds,omitempty"`
}

// ThresholdVerdict is the JSON view of one evaluated threshold.
type ThresholdVerdict struct {
	Threshold string  `json:"threshold"`
	Actual    float64 `json:"actual"`
	Pass      bool    `json:"pass"`
}

// Verdicts converts evaluator results into their report form.
func Verdicts(results []threshold.Result) []ThresholdVerdict {
	if len(results) == 0 {
		return nil
	}
	out := make([]ThresholdVerdict, len(results))
	for i, r := range results {
		out[i] = ThresholdVerdict{
			Threshold: r.Threshold.Raw,
			Actual:    r.Actual,
			Pass:      r.Pass,
		}
	}
	return out
}

// PrintReport outputs a human-readable summary report.
func PrintReport(w io.Writer, rep Report) {
	name := rep.Series.Name
	if name == "" {
		name = "Benchmark Results"
	}
	fmt.Fprintf(w, "\n--- %s ---\n", name)
	if rep.Target != "" {
		fmt.Fprintf(w, "Target:            %s\n", rep.Target)
	}
	fmt.Fprintf(w, "Run ID:            %s\n", rep.Series.RunID)
	fmt.Fprintf(w, "Started:           %s\n", rep.Series.StartedAt.Format(time.RFC3339))
	if n := len(rep.Series.Rounds); n > 0 {
		fmt.Fprintf(w, "Rounds:            %d x %d requests\n", n, rep.Series.Rounds[0].Requests)
	}
	fmt.Fprintf(w, "Series Average:    %s ms\n", rep.Series.Average)

	if len(rep.Series.Rounds) > 0 {
		fmt.Fprintln(w, "\nRounds:")
		for _, r := range rep.Series.Rounds {
			fmt.Fprintf(w, "  %3d:  %s ms   failures %d/%d   %s\n",
				r.Index, r.Average, r.Failures, r.Requests, r.Duration.Round(time.Millisecond))
		}
	}

	fmt.Fprintln(w, "\nRound Trip (client):")
	fmt.Fprintf(w, "  Min:             %s\n", rep.Stats.MinRTT)
	fmt.Fprintf(w, "  Max:             %s\n", rep.Stats.MaxRTT)
	fmt.Fprintf(w, "  Mean:            %s\n", rep.Stats.MeanRTT)
	fmt.Fprintf(w, "  P50:             %s\n", rep.Stats.P50RTT)
	fmt.Fprintf(w, "  P90:             %s\n", rep.Stats.P90RTT)
	fmt.Fprintf(w, "  P99:             %s\n", rep.Stats.P99RTT)
	fmt.Fprintf(w, "Requests/sec:      %.2f\n", rep.Stats.RequestsPerSec)

	if len(rep.Stats.StatusCodes) > 0 {
		fmt.Fprintln(w, "\nStatus Codes:")
		for _, b := range rep.Stats.StatusCodes {
			fmt.Fprintf(w, "  %d: %d\n", b.Code, b.Count)
		}
	}

	if len(rep.Stats.Errors) > 0 {
		fmt.Fprintln(w, "\nFailures:")
		for _, row := range metrics.FlattenErrors(rep.Stats.Errors) {
			fmt.Fprintf(w, "  %s: %d\n", metrics.FriendlyErrorName(row.Type), row.Count)
		}
	}

	if rep.Conns != nil {
		if total := rep.Conns.Dialed + rep.Conns.Reused; total > 0 {
			share := float64(rep.Conns.Reused) / float64(total) * 100
			fmt.Fprintf(w, "\nConnections:       dialed=%d reused=%d (%.1f%% reused)\n",
				rep.Conns.Dialed, rep.Conns.Reused, share)
		}
	}

	if len(rep.Thresholds) > 0 {
		fmt.Fprintln(w, "\nThresholds:")
		noColor := !writerIsTerminal(w)
		for _, v := range rep.Thresholds {
			icon := SuccessIcon(noColor)
			if !v.Pass {
				icon = ErrorIcon(noColor)
			}
			fmt.Fprintf(w, "  %s %s (actual %.5f)\n", icon, v.Threshold, v.Actual)
		}
	}
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, rep Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

// AppendResults appends the report as a single JSON line to path. A
// sidecar advisory lock keeps concurrent invocations from interleaving
// their writes.
func AppendResults(ctx context.Context, path string, rep Report) error {
	lock := flock.New(path + ".lock")
	if _, err := lock.TryLockContext(ctx, 50*time.Millisecond); err != nil {
		return fmt.Errorf("lock results file %s: %w", path, err)
	}
	defer func() { _ = lock.Unlock() }()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open results file: %w", err)
	}
	if err := json.NewEncoder(f).Encode(rep); err != nil {
		_ = f.Close()
		return fmt.Errorf("write results: %w", err)
	}
	return f.Close()
}
