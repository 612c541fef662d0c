// Package telemetry collects prometheus metrics of a single conductor run. The metrics live in their own registry and
// are written to a textfile at the end of a run, e.g. for the node exporter's textfile collector.
package telemetry

import (
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rwx-research/conductor/internal/errors"
)

const namespace = "conductor"

// MetricsFileName is the name of the textfile inside the reports directory
const MetricsFileName = "conductor.prom"

// Recorder records run metrics. A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry
	runID    string

	groupsTotal     *prometheus.CounterVec
	groupDuration   *prometheus.HistogramVec
	scenariosTotal  *prometheus.GaugeVec
	attemptsTotal   *prometheus.CounterVec
	flakyTests      prometheus.Gauge
	passRate        prometheus.Gauge
	runDuration     prometheus.Gauge
	artifactsFailed *prometheus.CounterVec
}

// NewRecorder returns a recorder with a fresh registry. Every metric carries the run id as a constant label.
func NewRecorder(runID string) *Recorder {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	labels := prometheus.Labels{"run_id": runID}

	return &Recorder{
		registry: registry,
		runID:    runID,
		groupsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "groups_total",
			Help:        "Count of executed test groups by their final state",
			ConstLabels: labels,
		}, []string{"state"}),
		groupDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "group_duration_seconds",
			Help:        "Wall-clock duration of test groups",
			ConstLabels: labels,
			Buckets:     []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 1800},
		}, []string{"type"}),
		scenariosTotal: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "scenarios",
			Help:        "Number of scenarios of the run by status",
			ConstLabels: labels,
		}, []string{"status"}),
		attemptsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "retry_attempts_total",
			Help:        "Count of attempts made by the retry engine",
			ConstLabels: labels,
		}, []string{"operation", "result"}),
		flakyTests: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "flaky_tests",
			Help:        "Number of tests currently considered flaky",
			ConstLabels: labels,
		}),
		passRate: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "scenario_pass_rate_percent",
			Help:        "Scenario pass rate of the run",
			ConstLabels: labels,
		}),
		runDuration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "run_duration_seconds",
			Help:        "Wall-clock duration of the complete run",
			ConstLabels: labels,
		}),
		artifactsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "report_artifact_failures_total",
			Help:        "Count of report artifacts that could not be written",
			ConstLabels: labels,
		}, []string{"artifact"}),
	}
}

// Registry exposes the underlying registry, e.g. for gathering in tests
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}

	return r.registry
}

// RunID is the id of the run all metrics are labelled with
func (r *Recorder) RunID() string {
	if r == nil {
		return ""
	}

	return r.runID
}

// ObserveGroup records a finished group
func (r *Recorder) ObserveGroup(groupType, state string, duration time.Duration) {
	if r == nil {
		return
	}

	r.groupsTotal.WithLabelValues(state).Inc()
	r.groupDuration.WithLabelValues(groupType).Observe(duration.Seconds())
}

// ObserveAttempt records a single attempt of the retry engine
func (r *Recorder) ObserveAttempt(operation string, succeeded bool) {
	if r == nil {
		return
	}

	result := "failed"
	if succeeded {
		result = "succeeded"
	}

	r.attemptsTotal.WithLabelValues(operation, result).Inc()
}

// SetScenarioCounts records the number of scenarios per status together with the pass rate in percent
func (r *Recorder) SetScenarioCounts(counts map[string]int, passRate float64) {
	if r == nil {
		return
	}

	for status, count := range counts {
		r.scenariosTotal.WithLabelValues(status).Set(float64(count))
	}

	r.passRate.Set(passRate)
}

// SetFlakyTests records the number of flaky tests
func (r *Recorder) SetFlakyTests(count int) {
	if r == nil {
		return
	}

	r.flakyTests.Set(float64(count))
}

// SetRunDuration records the duration of the complete run
func (r *Recorder) SetRunDuration(duration time.Duration) {
	if r == nil {
		return
	}

	r.runDuration.Set(duration.Seconds())
}

// ArtifactFailed records a report artifact that could not be written
func (r *Recorder) ArtifactFailed(artifact string) {
	if r == nil {
		return
	}

	r.artifactsFailed.WithLabelValues(artifact).Inc()
}

// WriteTextfile writes all metrics in the prometheus text format to `<dir>/conductor.prom` and returns the path.
func (r *Recorder) WriteTextfile(dir string) (string, error) {
	if r == nil {
		return "", nil
	}

	path := filepath.Join(dir, MetricsFileName)
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return "", errors.NewSystemError("unable to write metrics to %q: %s", path, err)
	}

	return path, nil
}
