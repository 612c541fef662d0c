package reporting

import (
	"time"

	"github.com/rwx-research/conductor/internal/results"
)

// Trends are the per-run series of the history, oldest first
type Trends struct {
	Dates          []string  `json:"dates"`
	PassRates      []float64 `json:"pass_rate_trend"`
	Durations      []float64 `json:"duration_trend"`
	ScenarioCounts []int     `json:"scenario_count_trend"`
}

// IsEmpty is true if there is no run to show
func (t Trends) IsEmpty() bool {
	return len(t.Dates) == 0
}

// ComputeTrends derives the trend series from the history. Metrics are recomputed from the stored scenarios, so
// snapshots written by older versions still count.
func ComputeTrends(snapshots []Snapshot) Trends {
	trends := Trends{
		Dates:          make([]string, 0, len(snapshots)),
		PassRates:      make([]float64, 0, len(snapshots)),
		Durations:      make([]float64, 0, len(snapshots)),
		ScenarioCounts: make([]int, 0, len(snapshots)),
	}

	for _, snapshot := range snapshots {
		metrics := ComputeMetrics(results.NewResultSet(snapshot.Scenarios...))

		trends.Dates = append(trends.Dates, snapshot.Timestamp)
		trends.PassRates = append(trends.PassRates, metrics.ScenarioPassRate)
		trends.Durations = append(trends.Durations, metrics.TotalDuration)
		trends.ScenarioCounts = append(trends.ScenarioCounts, metrics.TotalScenarios)
	}

	return trends
}

// shortDate is the date part of a snapshot timestamp, used as the x-axis label
func shortDate(timestamp string) string {
	if parsed, err := time.Parse(time.RFC3339, timestamp); err == nil {
		return parsed.Format("2006-01-02")
	}

	if len(timestamp) > 10 {
		return timestamp[:10]
	}

	return timestamp
}
