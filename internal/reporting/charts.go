package reporting

import (
	"io"
	"math"
	"sort"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/rwx-research/conductor/internal/errors"
	"github.com/rwx-research/conductor/internal/results"
)

const maxDurationBars = 20

var statusColors = map[results.Status]drawing.Color{
	results.StatusPassed:  drawing.ColorFromHex("28a745"),
	results.StatusFailed:  drawing.ColorFromHex("dc3545"),
	results.StatusSkipped: drawing.ColorFromHex("ffc107"),
	results.StatusUnknown: drawing.ColorFromHex("6c757d"),
}

func colorFor(status results.Status) drawing.Color {
	if color, ok := statusColors[status]; ok {
		return color
	}

	return statusColors[results.StatusUnknown]
}

// RenderPassFailChart renders the distribution of scenario statuses as a pie chart. Zero slices are left out; a
// single grey "No Data" slice is shown if nothing ran.
func RenderPassFailChart(w io.Writer, metrics Metrics) error {
	slices := []struct {
		label  string
		count  int
		status results.Status
	}{
		{"Passed", metrics.PassedScenarios, results.StatusPassed},
		{"Failed", metrics.FailedScenarios, results.StatusFailed},
		{"Skipped", metrics.SkippedScenarios, results.StatusSkipped},
	}

	values := make([]chart.Value, 0, len(slices))
	for _, slice := range slices {
		if slice.count <= 0 {
			continue
		}

		values = append(values, chart.Value{
			Label: slice.label,
			Value: float64(slice.count),
			Style: chart.Style{FillColor: colorFor(slice.status)},
		})
	}

	if len(values) == 0 {
		values = append(values, chart.Value{
			Label: "No Data",
			Value: 1,
			Style: chart.Style{FillColor: colorFor(results.StatusUnknown)},
		})
	}

	pie := chart.PieChart{
		Title:  "Test Results Distribution",
		Width:  800,
		Height: 600,
		Values: values,
	}

	return errors.WithStack(pie.Render(chart.PNG, w))
}

type durationBar struct {
	name     string
	duration float64
}

// RenderDurationChart renders the longest scenarios as a bar chart. Scenarios without a duration are left out.
func RenderDurationChart(w io.Writer, set results.ResultSet) error {
	bars := make([]durationBar, 0, len(set.Scenarios))
	for _, scenario := range set.Scenarios {
		duration := results.SafeDuration(scenario.DurationSeconds)
		if duration <= 0 {
			continue
		}

		bars = append(bars, durationBar{name: scenario.Scenario, duration: duration})
	}

	if len(bars) == 0 {
		bars = append(bars, durationBar{name: "No Duration Data", duration: 0.1})
	}

	if len(bars) > maxDurationBars {
		sort.SliceStable(bars, func(i, j int) bool { return bars[i].duration > bars[j].duration })
		bars = bars[:maxDurationBars]
	}

	values := make([]chart.Value, 0, len(bars))
	longest := 0.0
	for _, bar := range bars {
		values = append(values, chart.Value{Label: bar.name, Value: bar.duration})
		longest = math.Max(longest, bar.duration)
	}

	barChart := chart.BarChart{
		Title:    "Scenario Execution Duration",
		Width:    1200,
		Height:   600,
		BarWidth: 40,
		XAxis:    chart.Style{TextRotationDegrees: 45},
		YAxis: chart.YAxis{
			Name:  "Duration (seconds)",
			Range: &chart.ContinuousRange{Min: 0, Max: longest * 1.1},
		},
		Bars: values,
	}

	return errors.WithStack(barChart.Render(chart.PNG, w))
}

// RenderFeatureStatusChart renders one equally sized bar per feature, colored by its status.
func RenderFeatureStatusChart(w io.Writer, set results.ResultSet) error {
	if len(set.Features) == 0 {
		return errors.NewInputError("There are no features to chart")
	}

	values := make([]chart.Value, 0, len(set.Features))
	for _, feature := range set.Features {
		values = append(values, chart.Value{
			Label: feature.Name,
			Value: 1,
			Style: chart.Style{FillColor: colorFor(feature.Status), StrokeColor: colorFor(feature.Status)},
		})
	}

	barChart := chart.BarChart{
		Title:    "Feature Test Status",
		Width:    1000,
		Height:   600,
		BarWidth: 40,
		XAxis:    chart.Style{TextRotationDegrees: 45},
		YAxis: chart.YAxis{
			Name:  "Status",
			Range: &chart.ContinuousRange{Min: 0, Max: 1.2},
		},
		Bars: values,
	}

	return errors.WithStack(barChart.Render(chart.PNG, w))
}

// RenderPassRateTrend renders the pass rate of every run in the history as a line chart
func RenderPassRateTrend(w io.Writer, trends Trends) error {
	return renderTrend(w, trends, "Test Pass Rate Trend", "Pass Rate (%)", trends.PassRates, "1f77b4")
}

// RenderDurationTrend renders the total duration of every run in the history as a line chart
func RenderDurationTrend(w io.Writer, trends Trends) error {
	return renderTrend(w, trends, "Test Execution Duration Trend", "Total Duration (seconds)", trends.Durations, "ff7f0e")
}

func renderTrend(w io.Writer, trends Trends, title, yName string, series []float64, color string) error {
	if trends.IsEmpty() || len(series) != len(trends.Dates) {
		return errors.NewInputError("There is no trend data to chart")
	}

	xValues := make([]float64, 0, len(series))
	yValues := make([]float64, 0, len(series))
	ticks := make([]chart.Tick, 0, len(series))
	highest := 0.0

	for i, value := range series {
		value = results.SafeDuration(value)

		xValues = append(xValues, float64(i))
		yValues = append(yValues, value)
		ticks = append(ticks, chart.Tick{Value: float64(i), Label: shortDate(trends.Dates[i])})
		highest = math.Max(highest, value)
	}

	if highest == 0 {
		highest = 1
	}

	xRange := &chart.ContinuousRange{Min: 0, Max: float64(len(series) - 1)}

	// a line needs two distinct x values, a single run is drawn as a short flat segment around its tick
	if len(series) == 1 {
		xValues = []float64{-0.5, 0.5}
		yValues = []float64{yValues[0], yValues[0]}
		xRange = &chart.ContinuousRange{Min: -0.5, Max: 0.5}
	}

	lineColor := drawing.ColorFromHex(color)
	graph := chart.Chart{
		Title:  title,
		Width:  1200,
		Height: 600,
		XAxis: chart.XAxis{
			Name:  "Test Runs",
			Ticks: ticks,
			Range: xRange,
			Style: chart.Style{TextRotationDegrees: 45},
		},
		YAxis: chart.YAxis{
			Name:  yName,
			Range: &chart.ContinuousRange{Min: 0, Max: highest * 1.1},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    title,
				XValues: xValues,
				YValues: yValues,
				Style: chart.Style{
					StrokeColor: lineColor,
					StrokeWidth: 2,
					DotColor:    lineColor,
					DotWidth:    4,
				},
			},
		},
	}

	return errors.WithStack(graph.Render(chart.PNG, w))
}
