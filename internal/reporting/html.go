package reporting

import (
	"html/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/rwx-research/conductor/internal/errors"
	"github.com/rwx-research/conductor/internal/fs"
	"github.com/rwx-research/conductor/internal/results"
)

const htmlStyle = `
        body { font-family: Arial, sans-serif; margin: 20px; }
        .header { background-color: #f8f9fa; padding: 20px; border-radius: 5px; }
        .metrics { display: grid; grid-template-columns: repeat(auto-fit, minmax(200px, 1fr)); gap: 20px; margin: 20px 0; }
        .metric-card { background-color: #fff; border: 1px solid #dee2e6; border-radius: 5px; padding: 15px; text-align: center; }
        .metric-value { font-size: 2em; font-weight: bold; }
        .metric-label { color: #6c757d; }
        .passed { color: #28a745; }
        .failed { color: #dc3545; }
        .skipped { color: #ffc107; }
        .unknown { color: #6c757d; }
        .chart-container { margin: 20px 0; text-align: center; }
        .chart-container img { max-width: 70%; height: auto; }
        table { width: 100%; border-collapse: collapse; margin: 20px 0; }
        th, td { border: 1px solid #dee2e6; padding: 8px; text-align: left; vertical-align: top; }
        th { background-color: #f8f9fa; }
        pre { white-space: pre-wrap; margin: 0; }
`

var htmlReportTemplate = template.Must(template.New("report").Funcs(sprig.FuncMap()).Parse(`<!DOCTYPE html>
<html>
<head>
    <title>{{ .SuiteName | title }} Test Report</title>
    <style>` + htmlStyle + `</style>
</head>
<body>
    <div class="header">
        <h1>Test Execution Report</h1>
        <p>Generated on: {{ .GeneratedOn }}</p>
        {{- if .RunID }}
        <p>Run: <code>{{ .RunID }}</code></p>
        {{- end }}
        {{- if .Commit }}
        <p>Commit: <code>{{ .Commit | trunc 12 }}</code></p>
        {{- end }}
    </div>

    <div class="metrics">
        <div class="metric-card">
            <div class="metric-value passed">{{ .Metrics.PassedScenarios }}</div>
            <div class="metric-label">Passed</div>
        </div>
        <div class="metric-card">
            <div class="metric-value failed">{{ .Metrics.FailedScenarios }}</div>
            <div class="metric-label">Failed</div>
        </div>
        <div class="metric-card">
            <div class="metric-value skipped">{{ .Metrics.SkippedScenarios }}</div>
            <div class="metric-label">Skipped</div>
        </div>
        <div class="metric-card">
            <div class="metric-value">{{ printf "%.2f" .Metrics.ScenarioPassRate }}%</div>
            <div class="metric-label">Pass Rate</div>
        </div>
        <div class="metric-card">
            <div class="metric-value">{{ printf "%.2f" .Metrics.TotalDuration }}s</div>
            <div class="metric-label">Total Duration</div>
        </div>
        <div class="metric-card">
            <div class="metric-value">{{ .Metrics.PassedFeatures }}/{{ .Metrics.TotalFeatures }}</div>
            <div class="metric-label">Features Passed</div>
        </div>
    </div>
    {{- if .Charts }}

    <div class="chart-container">
        {{- range .Charts }}
        <img src="{{ . }}" alt="{{ . | base | trimSuffix ".png" }}">
        {{- end }}
    </div>
    {{- end }}

    <h2>Scenario Details</h2>
    <table>
        <thead>
            <tr>
                <th>Feature</th>
                <th>Scenario</th>
                <th>Status</th>
                <th>Duration</th>
            </tr>
        </thead>
        <tbody>
            {{- range .Scenarios }}
            <tr>
                <td>{{ .Feature }}</td>
                <td>{{ .Scenario }}</td>
                <td class="{{ .Status }}">{{ .Status }}</td>
                <td>{{ printf "%.3f" .DurationSeconds }}s</td>
            </tr>
            {{- end }}
        </tbody>
    </table>
    {{- if .Failed }}

    <h2>Failures</h2>
    <table>
        <thead>
            <tr>
                <th>Scenario</th>
                <th>Step</th>
                <th>Error</th>
            </tr>
        </thead>
        <tbody>
            {{- range .Failed }}
            {{- $scenario := . }}
            {{- range .FailedSteps }}
            <tr>
                <td>{{ $scenario.Feature }}: {{ $scenario.Scenario }}{{ if $scenario.Location }}<br><code>{{ $scenario.Location }}</code>{{ end }}</td>
                <td>{{ .Keyword }} {{ .Name }}</td>
                <td><pre>{{ .Message }}</pre></td>
            </tr>
            {{- else }}
            <tr>
                <td>{{ $scenario.Feature }}: {{ $scenario.Scenario }}</td>
                <td></td>
                <td>No error message</td>
            </tr>
            {{- end }}
            {{- end }}
        </tbody>
    </table>
    {{- end }}
</body>
</html>
`))

var trendReportTemplate = template.Must(template.New("trend").Funcs(sprig.FuncMap()).Parse(`<!DOCTYPE html>
<html>
<head>
    <title>Test Trend Report</title>
    <style>` + htmlStyle + `</style>
</head>
<body>
    <div class="header">
        <h1>Test Trend Analysis Report</h1>
        <p>Generated on: {{ .GeneratedOn }}</p>
        <p>Runs analyzed: {{ len .Trends.Dates }}</p>
    </div>

    <div class="chart-container">
        <h2>Test Trends</h2>
        {{- range .Charts }}
        <img src="{{ . }}" alt="Trend Chart">
        {{- end }}
    </div>

    <table>
        <thead>
            <tr>
                <th>Run</th>
                <th>Scenarios</th>
                <th>Pass Rate</th>
                <th>Duration</th>
            </tr>
        </thead>
        <tbody>
            {{- range $index, $date := .Trends.Dates }}
            <tr>
                <td>{{ $date }}</td>
                <td>{{ index $.Trends.ScenarioCounts $index }}</td>
                <td>{{ printf "%.2f" (index $.Trends.PassRates $index) }}%</td>
                <td>{{ printf "%.2f" (index $.Trends.Durations $index) }}s</td>
            </tr>
            {{- end }}
        </tbody>
    </table>
</body>
</html>
`))

type htmlReport struct {
	SuiteName   string
	GeneratedOn string
	RunID       string
	Commit      string
	Metrics     Metrics
	Charts      []string
	Scenarios   []results.TestOutcome
	Failed      []results.TestOutcome
}

func WriteHTMLReport(file fs.File, set results.ResultSet, cfg Configuration) error {
	report := htmlReport{
		SuiteName:   cfg.suiteName(),
		GeneratedOn: cfg.generatedOn(),
		RunID:       cfg.RunID,
		Commit:      cfg.Commit,
		Metrics:     ComputeMetrics(set),
		Charts:      cfg.Charts,
		Scenarios:   set.Scenarios,
		Failed:      set.Failed(),
	}

	return errors.WithStack(htmlReportTemplate.Execute(file, report))
}

type trendReport struct {
	GeneratedOn string
	Trends      Trends
	Charts      []string
}

// WriteTrendReport writes the HTML trend report. The trend charts are taken from `cfg.Charts`.
func WriteTrendReport(file fs.File, trends Trends, cfg Configuration) error {
	report := trendReport{
		GeneratedOn: cfg.generatedOn(),
		Trends:      trends,
		Charts:      cfg.Charts,
	}

	return errors.WithStack(trendReportTemplate.Execute(file, report))
}
