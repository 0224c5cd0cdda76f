package output

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"time"
)

// HTMLReportData contains all data needed for the HTML report template.
type HTMLReportData struct {
	GeneratedAt      string
	Report           Report
	RoundsJSON       string
	ThresholdSummary *ThresholdSummary
}

// ThresholdSummary aggregates threshold verdicts for the report header.
type ThresholdSummary struct {
	Total   int
	Passed  int
	Failed  int
	Results []ThresholdVerdict
}

// GenerateHTMLReport generates a standalone HTML report with an
// embedded per-round chart.
func GenerateHTMLReport(w io.Writer, rep Report) error {
	var summary *ThresholdSummary
	if len(rep.Thresholds) > 0 {
		summary = &ThresholdSummary{
			Total:   len(rep.Thresholds),
			Results: rep.Thresholds,
		}
		for _, v := range rep.Thresholds {
			if v.Pass {
				summary.Passed++
			} else {
				summary.Failed++
			}
		}
	}

	// Rounds embedded as JSON for the chart script.
	roundsJSON, err := json.Marshal(rep.Series.Rounds)
	if err != nil {
		return fmt.Errorf("failed to marshal rounds: %w", err)
	}

	data := HTMLReportData{
		GeneratedAt:      time.Now().Format(time.RFC3339),
		Report:           rep,
		RoundsJSON:       string(roundsJSON),
		ThresholdSummary: summary,
	}

	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"formatDuration": func(d time.Duration) string {
			return d.String()
		},
		"formatFloat": func(f float64) string {
			return fmt.Sprintf("%.2f", f)
		},
		"formatPercent": func(part, total int64) string {
			if total == 0 {
				return "0.0"
			}
			return fmt.Sprintf("%.1f", (float64(part)/float64(total))*100)
		},
	}).Parse(htmlTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	return nil
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Ratbench Report</title>
    <style>
        * {
            margin: 0;
            padding: 0;
            box-sizing: border-box;
        }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            background: #f5f7fa;
            color: #2c3e50;
            line-height: 1.6;
            padding: 20px;
        }
        .container {
            max-width: 1200px;
            margin: 0 auto;
            background: white;
            border-radius: 8px;
            box-shadow: 0 2px 8px rgba(0,0,0,0.1);
            overflow: hidden;
        }
        header {
            background: linear-gradient(135deg, #0ea5e9 0%, #6366f1 100%);
            color: white;
            padding: 30px 40px;
        }
        header h1 {
            font-size: 2rem;
            margin-bottom: 10px;
        }
        header .meta {
            opacity: 0.9;
            font-size: 0.9rem;
        }
        .content {
            padding: 40px;
        }
        .grid {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(220px, 1fr));
            gap: 20px;
            margin-bottom: 40px;
        }
        .card {
            background: #f8f9fa;
            border-radius: 8px;
            padding: 20px;
            border-left: 4px solid #6366f1;
        }
        .card h3 {
            font-size: 0.9rem;
            color: #6c757d;
            text-transform: uppercase;
            letter-spacing: 0.5px;
            margin-bottom: 10px;
        }
        .card .value {
            font-size: 2rem;
            font-weight: bold;
            color: #2c3e50;
        }
        .card .subvalue {
            font-size: 0.85rem;
            color: #6c757d;
            margin-top: 5px;
        }
        .card.success { border-left-color: #10b981; }
        .card.error { border-left-color: #ef4444; }
        .section {
            margin-bottom: 40px;
        }
        .section h2 {
            font-size: 1.5rem;
            margin-bottom: 20px;
            padding-bottom: 10px;
            border-bottom: 2px solid #e5e7eb;
        }
        .chart-container {
            background: white;
            border-radius: 8px;
            padding: 20px;
            margin-bottom: 30px;
            border: 1px solid #e5e7eb;
        }
        .chart {
            width: 100%;
            height: 300px;
        }
        table {
            width: 100%;
            border-collapse: collapse;
            background: white;
        }
        th, td {
            text-align: left;
            padding: 12px;
            border-bottom: 1px solid #e5e7eb;
        }
        th {
            background: #f8f9fa;
            font-weight: 600;
            color: #4b5563;
            font-size: 0.9rem;
            text-transform: uppercase;
            letter-spacing: 0.5px;
        }
        tr:hover { background: #f8f9fa; }
        .badge {
            display: inline-block;
            padding: 4px 12px;
            border-radius: 12px;
            font-size: 0.85rem;
            font-weight: 600;
        }
        .badge-success { background: #d1fae5; color: #065f46; }
        .badge-error { background: #fee2e2; color: #991b1b; }
        .badge-muted { background: #e5e7eb; color: #4b5563; }
        .rtt-grid {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(140px, 1fr));
            gap: 15px;
            margin-top: 20px;
        }
        .rtt-item {
            background: #f8f9fa;
            padding: 15px;
            border-radius: 6px;
            text-align: center;
        }
        .rtt-item .label {
            font-size: 0.85rem;
            color: #6c757d;
            margin-bottom: 5px;
        }
        .rtt-item .value {
            font-size: 1.3rem;
            font-weight: bold;
            color: #2c3e50;
        }
    </style>
    <script src="https://cdn.jsdelivr.net/npm/uplot@1.6.24/dist/uPlot.iife.min.js"></script>
    <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/uplot@1.6.24/dist/uPlot.min.css">
</head>
<body>
    <div class="container">
        <header>
            <h1>Ratbench Report{{if .Report.Series.Name}}: {{.Report.Series.Name}}{{end}}</h1>
            {{if .Report.Target}}
            <div class="meta" style="margin-top: 5px;">Target: {{.Report.Target}}</div>
            {{end}}
            <div class="meta">Run {{.Report.Series.RunID}} | Generated: {{.GeneratedAt}}</div>
        </header>

        <div class="content">
            <!-- Summary Cards -->
            <div class="grid">
                <div class="card">
                    <h3>Series Average</h3>
                    <div class="value">{{.Report.Series.Average}} ms</div>
                    <div class="subvalue">server-reported, {{len .Report.Series.Rounds}} rounds</div>
                </div>
                <div class="card">
                    <h3>Total Requests</h3>
                    <div class="value">{{.Report.Stats.Total}}</div>
                </div>
                <div class="card success">
                    <h3>Successful</h3>
                    <div class="value">{{.Report.Stats.Successes}}</div>
                    <div class="subvalue">{{formatPercent .Report.Stats.Successes .Report.Stats.Total}}%</div>
                </div>
                <div class="card error">
                    <h3>Failed</h3>
                    <div class="value">{{.Report.Stats.Failures}}</div>
                    <div class="subvalue">{{formatPercent .Report.Stats.Failures .Report.Stats.Total}}%</div>
                </div>
                <div class="card">
                    <h3>Requests/sec</h3>
                    <div class="value">{{formatFloat .Report.Stats.RequestsPerSec}}</div>
                </div>
            </div>

            <!-- Rounds Chart -->
            {{if .Report.Series.Rounds}}
            <div class="section">
                <h2>Round Averages</h2>
                <div class="chart-container">
                    <div id="rounds-chart" class="chart"></div>
                </div>
            </div>

            <!-- Rounds Table -->
            <div class="section">
                <h2>Rounds</h2>
                <table>
                    <thead>
                        <tr>
                            <th>Round</th>
                            <th>Average (ms)</th>
                            <th>Requests</th>
                            <th>Failures</th>
                            <th>Duration</th>
                        </tr>
                    </thead>
                    <tbody>
                        {{range .Report.Series.Rounds}}
                        <tr>
                            <td><strong>{{.Index}}</strong></td>
                            <td>{{.Average}}</td>
                            <td>{{.Requests}}</td>
                            <td>{{if .Failures}}<span class="badge badge-error">{{.Failures}}</span>{{else}}0{{end}}</td>
                            <td>{{formatFloat .DurationMs}} ms</td>
                        </tr>
                        {{end}}
                    </tbody>
                </table>
            </div>
            {{end}}

            <!-- Round Trip Statistics -->
            <div class="section">
                <h2>Round Trip (client)</h2>
                <div class="rtt-grid">
                    <div class="rtt-item">
                        <div class="label">Min</div>
                        <div class="value">{{formatDuration .Report.Stats.MinRTT}}</div>
                    </div>
                    <div class="rtt-item">
                        <div class="label">Max</div>
                        <div class="value">{{formatDuration .Report.Stats.MaxRTT}}</div>
                    </div>
                    <div class="rtt-item">
                        <div class="label">Mean</div>
                        <div class="value">{{formatDuration .Report.Stats.MeanRTT}}</div>
                    </div>
                    <div class="rtt-item">
                        <div class="label">P50</div>
                        <div class="value">{{formatDuration .Report.Stats.P50RTT}}</div>
                    </div>
                    <div class="rtt-item">
                        <div class="label">P90</div>
                        <div class="value">{{formatDuration .Report.Stats.P90RTT}}</div>
                    </div>
                    <div class="rtt-item">
                        <div class="label">P99</div>
                        <div class="value">{{formatDuration .Report.Stats.P99RTT}}</div>
                    </div>
                </div>
            </div>

            <!-- Thresholds -->
            {{if .ThresholdSummary}}
            <div class="section">
                <h2>Thresholds ({{.ThresholdSummary.Passed}}/{{.ThresholdSummary.Total}} Passed)</h2>
                <table>
                    <thead>
                        <tr>
                            <th>Threshold</th>
                            <th>Actual</th>
                            <th>Status</th>
                        </tr>
                    </thead>
                    <tbody>
                        {{range .ThresholdSummary.Results}}
                        <tr>
                            <td>{{.Threshold}}</td>
                            <td>{{formatFloat .Actual}}</td>
                            <td>
                                {{if .Pass}}
                                <span class="badge badge-success">✓ PASS</span>
                                {{else}}
                                <span class="badge badge-error">✗ FAIL</span>
                                {{end}}
                            </td>
                        </tr>
                        {{end}}
                    </tbody>
                </table>
            </div>
            {{end}}

            <!-- Status Codes -->
            {{if .Report.Stats.StatusCodes}}
            <div class="section">
                <h2>Status Codes</h2>
                <table>
                    <thead>
                        <tr>
                            <th>Code</th>
                            <th>Count</th>
                        </tr>
                    </thead>
                    <tbody>
                        {{range .Report.Stats.StatusCodes}}
                        <tr>
                            <td>{{if and (ge .Code 200) (lt .Code 300)}}<span class="badge badge-success">{{.Code}}</span>{{else}}<span class="badge badge-muted">{{.Code}}</span>{{end}}</td>
                            <td>{{.Count}}</td>
                        </tr>
                        {{end}}
                    </tbody>
                </table>
            </div>
            {{end}}
        </div>
    </div>

    {{if .Report.Series.Rounds}}
    <script>
        const rounds = JSON.parse({{.RoundsJSON}});

        if (rounds && rounds.length > 0) {
            const indices = rounds.map(r => r.index);
            const averages = rounds.map(r => parseFloat(r.average_ms));

            new uPlot({
                title: "Average per Round (ms)",
                width: document.getElementById('rounds-chart').offsetWidth,
                height: 300,
                scales: { x: { time: false } },
                series: [
                    { label: "Round" },
                    {
                        label: "Average (ms)",
                        stroke: "#6366f1",
                        fill: "rgba(99, 102, 241, 0.1)",
                        width: 2,
                        points: { show: true }
                    }
                ],
                axes: [
                    { label: "Round" },
                    { label: "Average (ms)" }
                ]
            }, [indices, averages], document.getElementById('rounds-chart'));
        }
    </script>
    {{end}}
</body>
</html>
`
