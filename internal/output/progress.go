package output

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/leleuj/ratpack/internal/bench"
)

// ProgressReporter prints one line per completed round. It implements
// bench.Reporter; the series delivers callbacks strictly between
// rounds, so the mutex only guards against interleaved writers sharing
// the same stream.
type ProgressReporter struct {
	mu      sync.Mutex
	w       io.Writer
	animate bool
	total   int

	ok   *color.Color
	fail *color.Color
	dim  *color.Color
}

// NewProgressReporter creates a reporter writing to w. Colour and the
// in-place round ticker are enabled only when w is a terminal.
func NewProgressReporter(w io.Writer) *ProgressReporter {
	if w == nil {
		w = io.Discard
	}
	p := &ProgressReporter{
		w:       w,
		animate: writerIsTerminal(w),
		ok:      color.New(color.FgGreen),
		fail:    color.New(color.FgRed, color.Bold),
		dim:     color.New(color.Faint),
	}
	if !p.animate {
		p.ok.DisableColor()
		p.fail.DisableColor()
		p.dim.DisableColor()
	}
	return p
}

// RoundStarted marks the beginning of a burst.
func (p *ProgressReporter) RoundStarted(index, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total = total
	if p.animate {
		fmt.Fprintf(p.w, "\rround %d/%d ...", index, total)
	}
}

// RoundCompleted prints the round's outcome on its own line.
func (p *ProgressReporter) RoundCompleted(res bench.RoundResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.animate {
		fmt.Fprint(p.w, "\r")
	}

	line := fmt.Sprintf("round %d/%d", res.Index, p.total)
	if res.Warmup {
		line += p.dim.Sprint(" warmup")
	}
	line += fmt.Sprintf("  avg=%s ms", res.Average)
	if res.Failures > 0 {
		line += p.fail.Sprintf("  failures=%d/%d", res.Failures, res.Requests)
	} else {
		line += p.ok.Sprintf("  failures=0/%d", res.Requests)
	}
	line += fmt.Sprintf("  %s", res.Duration.Round(time.Millisecond))
	fmt.Fprintln(p.w, line)
}

func writerIsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}
