// Package dashboard renders a live terminal view of a running series:
// round progress, per-round averages, client round-trip stats and the
// failure breakdown.
package dashboard

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/leleuj/ratpack/internal/bench"
	"github.com/leleuj/ratpack/internal/metrics"
)

// maxRoundRows bounds the visible tail of completed rounds.
const maxRoundRows = 12

// RunConfig holds the run parameters shown in the summary header.
type RunConfig struct {
	TargetURL    string
	Concurrency  int           // worker pool size
	Requests     int           // probes per round
	Rounds       int           // measured rounds
	Warmup       int           // discarded leading rounds
	Cooldown     time.Duration // pause between rounds
	Rate         int           // dispatch pacing, 0 = full burst
	Timeout      time.Duration // per-request deadline
	RoundTimeout time.Duration // per-round barrier deadline
	ConfigFile   string        // path to config file if used
}

// Dashboard renders a live terminal UI for a measurement series. It
// implements bench.Reporter; round callbacks feed the gauge, sparkline
// and round list while a ticker refreshes the collector-side widgets.
type Dashboard struct {
	collector    *metrics.Collector
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownFunc func()
	wg           sync.WaitGroup
	mu           sync.Mutex

	// Widgets
	grid           *ui.Grid
	roundGauge     *widgets.Gauge
	averageSparkle *widgets.SparklineGroup
	rttPara        *widgets.Paragraph
	metricsPara    *widgets.Paragraph
	summaryPara    *widgets.Paragraph
	roundList      *widgets.List
	failureList    *widgets.List

	averageHistory []float64
	roundRows      []string
	currentRound   int
	totalRounds    int
	runDuration    time.Duration
	runConfig      RunConfig
}

// New creates a new Dashboard.
func New(collector *metrics.Collector, cfg RunConfig, shutdownFunc func()) (*Dashboard, error) {
	if err := ui.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize termui: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &Dashboard{
		collector:      collector,
		ctx:            ctx,
		cancel:         cancel,
		shutdownFunc:   shutdownFunc,
		averageHistory: make([]float64, 0, 100),
		totalRounds:    cfg.Warmup + cfg.Rounds,
		runConfig:      cfg,
	}

	d.initWidgets()
	d.setupGrid()

	return d, nil
}

// initWidgets initializes all dashboard widgets.
func (d *Dashboard) initWidgets() {
	// Round average sparkline
	sparkline := widgets.NewSparkline()
	sparkline.Title = "Average (ms)"
	sparkline.LineColor = ui.ColorGreen
	sparkline.Data = []float64{0}

	d.averageSparkle = widgets.NewSparklineGroup(sparkline)
	d.averageSparkle.Title = "Round Averages"
	d.averageSparkle.BorderStyle.Fg = ui.ColorCyan

	// Round-trip stats paragraph
	d.rttPara = widgets.NewParagraph()
	d.rttPara.Title = "Round Trip (client)"
	d.rttPara.Text = "Min: 0ms\nMean: 0ms\nP50: 0ms\nP90: 0ms\nP99: 0ms"
	d.rttPara.BorderStyle.Fg = ui.ColorCyan

	// Round progress gauge
	d.roundGauge = widgets.NewGauge()
	d.roundGauge.Title = "Round Progress"
	d.roundGauge.Percent = 0
	d.roundGauge.BarColor = ui.ColorBlue
	d.roundGauge.BorderStyle.Fg = ui.ColorCyan
	d.roundGauge.LabelStyle = ui.NewStyle(ui.ColorWhite)

	// Failure breakdown list
	d.failureList = widgets.NewList()
	d.failureList.Title = "Failures"
	d.failureList.Rows = []string{"No failures"}
	d.failureList.TextStyle = ui.NewStyle(ui.ColorYellow)
	d.failureList.BorderStyle.Fg = ui.ColorCyan

	// Completed round list
	d.roundList = widgets.NewList()
	d.roundList.Title = "Rounds"
	d.roundList.Rows = []string{"Awaiting first round"}
	d.roundList.TextStyle = ui.NewStyle(ui.ColorCyan)
	d.roundList.BorderStyle.Fg = ui.ColorCyan

	// Summary paragraph
	d.summaryPara = widgets.NewParagraph()
	d.summaryPara.Title = "Run Summary"
	d.summaryPara.Text = "Initializing..."
	d.summaryPara.BorderStyle.Fg = ui.ColorCyan

	// Request counters paragraph
	d.metricsPara = widgets.NewParagraph()
	d.metricsPara.Title = "Requests"
	d.metricsPara.Text = "Waiting for data..."
	d.metricsPara.BorderStyle.Fg = ui.ColorCyan
}

// setupGrid configures the layout grid.
func (d *Dashboard) setupGrid() {
	termWidth, termHeight := ui.TerminalDimensions()

	d.grid = ui.NewGrid()
	d.grid.SetRect(0, 0, termWidth, termHeight)

	d.grid.Set(
		ui.NewRow(0.14,
			ui.NewCol(1.0, d.summaryPara),
		),
		ui.NewRow(0.18,
			ui.NewCol(0.5, d.roundGauge),
			ui.NewCol(0.5, d.metricsPara),
		),
		ui.NewRow(0.26,
			ui.NewCol(0.65, d.averageSparkle),
			ui.NewCol(0.35, d.rttPara),
		),
		ui.NewRow(0.42,
			ui.NewCol(0.5, d.roundList),
			ui.NewCol(0.5, d.failureList),
		),
	)
}

// Start begins the dashboard update loop.
func (d *Dashboard) Start() {
	d.wg.Add(1)
	go d.run()
}

// Stop stops the dashboard and cleans up.
func (d *Dashboard) Stop() {
	d.cancel()
	d.wg.Wait()
	d.runDuration = d.collector.Elapsed()
	ui.Close()
	// Give terminal time to restore
	time.Sleep(100 * time.Millisecond)
}

// GetFinalStats returns the final statistics after the dashboard has stopped.
func (d *Dashboard) GetFinalStats() metrics.Stats {
	return d.collector.Stats(d.runDuration)
}

// RoundStarted feeds the progress gauge. Part of bench.Reporter.
func (d *Dashboard) RoundStarted(index, total int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.currentRound = index
	d.totalRounds = total
	d.roundGauge.Label = fmt.Sprintf("round %d/%d", index, total)
}

// RoundCompleted appends the finished round to the list and sparkline.
// Part of bench.Reporter.
func (d *Dashboard) RoundCompleted(res bench.RoundResult) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.totalRounds > 0 {
		percent := res.Index * 100 / d.totalRounds
		if percent > 100 {
			percent = 100
		}
		d.roundGauge.Percent = percent
	}

	if !res.Warmup {
		d.averageHistory = append(d.averageHistory, res.Average.Float64())
		if len(d.averageHistory) > 100 {
			d.averageHistory = d.averageHistory[1:]
		}
		d.averageSparkle.Sparklines[0].Data = d.averageHistory
		d.averageSparkle.Title = fmt.Sprintf("Round Averages | Last: %s ms", res.Average)
	}

	d.roundRows = append(d.roundRows, formatRoundRow(res))
	if len(d.roundRows) > maxRoundRows {
		d.roundRows = d.roundRows[len(d.roundRows)-maxRoundRows:]
	}
	d.roundList.Rows = d.roundRows
}

// run is the main dashboard update loop.
func (d *Dashboard) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	uiEvents := ui.PollEvents()

	d.render()

	for {
		select {
		case <-d.ctx.Done():
			// Drain any remaining events
			for len(uiEvents) > 0 {
				<-uiEvents
			}
			return
		case e := <-uiEvents:
			// Check if context is done to avoid blocking
			select {
			case <-d.ctx.Done():
				return
			default:
			}

			switch e.ID {
			case "q", "<C-c>":
				if d.shutdownFunc != nil {
					d.shutdownFunc()
				}
				// Do not return here; wait for Stop() to cancel context
			case "<Resize>":
				payload := e.Payload.(ui.Resize)
				d.grid.SetRect(0, 0, payload.Width, payload.Height)
				ui.Clear()
				d.render()
			}
		case <-ticker.C:
			d.update()
			d.render()
		}
	}
}

// update refreshes the collector-fed widgets. The elapsed window comes
// from the collector so live rates count from measurement start, not
// dashboard construction.
func (d *Dashboard) update() {
	d.mu.Lock()
	defer d.mu.Unlock()

	elapsed := d.collector.Elapsed()
	stats := d.collector.Stats(elapsed)

	successRate := 0.0
	if stats.Total > 0 {
		successRate = (float64(stats.Successes) / float64(stats.Total)) * 100
	}

	params := d.formatRunParams()
	d.summaryPara.Text = fmt.Sprintf(
		"Target: %s\n%s\nElapsed: %s | Round: %d/%d | Success Rate: %.1f%%",
		d.runConfig.TargetURL,
		params,
		elapsed.Round(time.Second),
		d.currentRound,
		d.totalRounds,
		successRate,
	)

	d.metricsPara.Text = fmt.Sprintf(
		"Total Requests:    %d\nSuccessful:        %d\nFailed:            %d\nRequests/sec:      %.2f\nStatus:            %s",
		stats.Total,
		stats.Successes,
		stats.Failures,
		stats.RequestsPerSec,
		summarizeStatusCodes(stats.StatusCodes, 3),
	)

	d.rttPara.Text = fmt.Sprintf(
		"Min:  %.2fms\nMean: %.2fms\nP50:  %.2fms\nP90:  %.2fms\nP99:  %.2fms",
		stats.MinRTTMs,
		stats.MeanRTTMs,
		stats.P50RTTMs,
		stats.P90RTTMs,
		stats.P99RTTMs,
	)

	d.failureList.Rows = formatFailureRows(stats.Errors)
}

// render draws all widgets to the screen.
func (d *Dashboard) render() {
	d.mu.Lock()
	defer d.mu.Unlock()

	ui.Render(d.grid)
}

func formatRoundRow(res bench.RoundResult) string {
	marker := ""
	if res.Warmup {
		marker = " [warmup](fg:yellow)"
	}
	failures := fmt.Sprintf("fail %d/%d", res.Failures, res.Requests)
	if res.Failures > 0 {
		failures = fmt.Sprintf("[fail %d/%d](fg:red)", res.Failures, res.Requests)
	}
	return fmt.Sprintf("[%3d](fg:cyan)%s  avg %s ms  %s  %s",
		res.Index,
		marker,
		res.Average,
		failures,
		res.Duration.Round(time.Millisecond),
	)
}

func formatFailureRows(errs map[string]int) []string {
	rows := metrics.FlattenErrors(errs)
	if len(rows) == 0 {
		return []string{"[No failures](fg:green)"}
	}
	maxRows := len(rows)
	if maxRows > 10 {
		maxRows = 10
	}
	formatted := make([]string, 0, maxRows)
	for i := 0; i < maxRows; i++ {
		row := rows[i]
		formatted = append(formatted, fmt.Sprintf("[%s](fg:red) %d", metrics.FriendlyErrorName(row.Type), row.Count))
	}
	return formatted
}

func summarizeStatusCodes(codes []metrics.StatusBucket, limit int) string {
	if len(codes) == 0 {
		return "n/a"
	}
	rows := codes
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	parts := make([]string, 0, len(rows))
	for _, row := range rows {
		parts = append(parts, fmt.Sprintf("%d x%d", row.Code, row.Count))
	}
	return strings.Join(parts, ", ")
}

// formatRunParams formats the run configuration for the summary header.
func (d *Dashboard) formatRunParams() string {
	var parts []string

	if d.runConfig.Concurrency > 0 {
		parts = append(parts, fmt.Sprintf("Workers: %d", d.runConfig.Concurrency))
	}

	if d.runConfig.Requests > 0 && d.runConfig.Rounds > 0 {
		parts = append(parts, fmt.Sprintf("Plan: %d x %d requests", d.runConfig.Rounds, d.runConfig.Requests))
	}

	if d.runConfig.Warmup > 0 {
		parts = append(parts, fmt.Sprintf("Warmup: %d", d.runConfig.Warmup))
	}

	if d.runConfig.Cooldown > 0 {
		parts = append(parts, fmt.Sprintf("Cooldown: %s", d.runConfig.Cooldown))
	}

	if d.runConfig.Rate > 0 {
		parts = append(parts, fmt.Sprintf("Rate: %d/s", d.runConfig.Rate))
	} else {
		parts = append(parts, "Rate: full burst")
	}

	if d.runConfig.Timeout > 0 {
		parts = append(parts, fmt.Sprintf("Timeout: %s", d.runConfig.Timeout))
	}

	if d.runConfig.RoundTimeout > 0 {
		parts = append(parts, fmt.Sprintf("Round Timeout: %s", d.runConfig.RoundTimeout))
	}

	if d.runConfig.ConfigFile != "" {
		parts = append(parts, fmt.Sprintf("Config: %s", d.runConfig.ConfigFile))
	}

	if len(parts) == 0 {
		return ""
	}

	return strings.Join(parts, " | ")
}
