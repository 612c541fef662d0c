package flakiness

import (
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/rwx-research/conductor/internal/results"
)

// OverallExecutionIdentity is the identity under which the outcome of a complete run is recorded
const OverallExecutionIdentity = "Overall_Test_Execution"

// slowScenarioSeconds is the duration above which a scenario is assumed to have needed a retry
const slowScenarioSeconds = 10.0

// Flaky is a flaky test together with its analysis
type Flaky struct {
	Identity string `json:"test_name"`
	Analysis
}

// Detector records executions and analyses them. Persistence failures never surface to callers, they are logged
// and the in-memory history stays authoritative for the rest of the process.
type Detector struct {
	log       *zap.SugaredLogger
	store     Store
	clock     clock.Clock
	threshold float64

	mu      sync.Mutex
	history History
	order   []string
}

// NewDetector loads the history from `store` right away. A history that can't be loaded is logged and replaced by an
// empty one. A threshold <= 0 falls back to DefaultThreshold.
func NewDetector(log *zap.SugaredLogger, store Store, clk clock.Clock, threshold float64) *Detector {
	if clk == nil {
		clk = clock.New()
	}

	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	d := &Detector{
		log:       log,
		store:     store,
		clock:     clk,
		threshold: threshold,
		history:   History{},
	}

	history, err := store.Load()
	if err != nil {
		log.Warnf("Could not load flakiness history: %s", err)
		return d
	}

	d.history = history
	d.order = restoreOrder(history)
	log.Debugf("Loaded flakiness history of %d test(s)", len(history))

	return d
}

func restoreOrder(history History) []string {
	order := make([]string, 0, len(history))
	for identity := range history {
		order = append(order, identity)
	}

	sort.SliceStable(order, func(i, j int) bool {
		left, right := history[order[i]].firstSeen(), history[order[j]].firstSeen()
		if left != right {
			return left < right
		}

		return order[i] < order[j]
	})

	return order
}

// Threshold is the confidence at which tests are considered flaky
func (d *Detector) Threshold() float64 {
	return d.threshold
}

// Now is the current time in fractional epoch seconds, as used for timestamps in the history
func (d *Detector) Now() float64 {
	return float64(d.clock.Now().UnixNano()) / float64(time.Second)
}

// Record appends an execution of a test and persists the history.
func (d *Detector) Record(identity string, success bool, attempts int) {
	if attempts < 1 {
		attempts = 1
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	record, ok := d.history[identity]
	if !ok {
		d.order = append(d.order, identity)
	}

	record.add(Execution{Success: success, Attempts: attempts, Timestamp: d.Now()})
	d.history[identity] = record

	if err := d.store.Save(d.history); err != nil {
		d.log.Warnf("Could not save flakiness history: %s", err)
	}
}

// RecordResults records every scenario of a run plus the overall outcome of the run. Scenarios slower than 10s are
// recorded with 2 attempts since the runner does not report its own retries.
func (d *Detector) RecordResults(set results.ResultSet, overallSuccess bool) {
	if set.IsEmpty() {
		d.log.Warn("No scenario results available for flakiness recording")
	}

	for _, scenario := range set.Scenarios {
		attempts := 1
		if scenario.DurationSeconds > slowScenarioSeconds {
			attempts = 2
		}

		d.Record(scenario.Identity(), scenario.Status == results.StatusPassed, attempts)
		d.log.Debugf("Recorded flakiness data for %s (success: %v)", scenario.Identity(), scenario.Status == results.StatusPassed)
	}

	d.Record(OverallExecutionIdentity, overallSuccess, 1)
	d.log.Infof("Recorded %d scenario result(s) for flakiness detection", len(set.Scenarios))
}

// Analyze scores the history of one test. Unknown tests are not flaky.
func (d *Detector) Analyze(identity string) Analysis {
	d.mu.Lock()
	defer d.mu.Unlock()

	record, ok := d.history[identity]
	if !ok {
		return Analysis{Reason: "No execution history"}
	}

	return Analyze(record, d.threshold)
}

// ListFlaky returns all tests with a confidence of at least `threshold`, most flaky first. Tests with the same
// confidence keep the order in which they were first recorded.
func (d *Detector) ListFlaky(threshold float64) []Flaky {
	d.mu.Lock()
	defer d.mu.Unlock()

	flaky := make([]Flaky, 0)
	for _, identity := range d.order {
		analysis := Analyze(d.history[identity], threshold)
		if analysis.IsFlaky {
			flaky = append(flaky, Flaky{Identity: identity, Analysis: analysis})
		}
	}

	sort.SliceStable(flaky, func(i, j int) bool {
		return flaky[i].Confidence > flaky[j].Confidence
	})

	return flaky
}

// Identities lists every recorded test in the order it was first recorded
func (d *Detector) Identities() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]string(nil), d.order...)
}

// RecordFor returns a copy of the record of one test
func (d *Detector) RecordFor(identity string) (Record, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	record, ok := d.history[identity]
	if !ok {
		return Record{}, false
	}

	record.Executions = append([]Execution(nil), record.Executions...)
	return record, true
}

// Clear drops the complete history, both in memory & persisted.
func (d *Detector) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.history = History{}
	d.order = nil

	if err := d.store.Clear(); err != nil {
		d.log.Warnf("Could not clear flakiness history: %s", err)
		return
	}

	d.log.Info("Cleared persistent flakiness history")
}
