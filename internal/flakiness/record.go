// Package flakiness keeps a per-test execution history across runs and flags tests whose failures & retries suggest
// non-deterministic behaviour.
package flakiness

// DefaultThreshold is the confidence at which a test is considered flaky
const DefaultThreshold = 0.3

const (
	failureWeight = 0.7
	retryWeight   = 0.3
)

// Execution is a single recorded run of a test
type Execution struct {
	Success   bool    `json:"success"`
	Attempts  int     `json:"attempts"`
	Timestamp float64 `json:"timestamp"`
}

// Record is the complete history of one test. The counters always match the executions.
type Record struct {
	Executions []Execution `json:"executions"`
	TotalRuns  int         `json:"total_runs"`
	FailedRuns int         `json:"failed_runs"`
	RetryRuns  int         `json:"retry_runs"`
}

func (r *Record) add(execution Execution) {
	r.Executions = append(r.Executions, execution)
	r.TotalRuns++

	if !execution.Success {
		r.FailedRuns++
	}

	if execution.Attempts > 1 {
		r.RetryRuns++
	}
}

// firstSeen is the timestamp of the oldest execution, used to restore the insertion order of a loaded history.
func (r Record) firstSeen() float64 {
	if len(r.Executions) == 0 {
		return 0
	}

	return r.Executions[0].Timestamp
}

// Analysis is the flakiness verdict for a single test
type Analysis struct {
	IsFlaky     bool    `json:"flaky"`
	Confidence  float64 `json:"confidence"`
	FailureRate float64 `json:"failure_rate"`
	RetryRate   float64 `json:"retry_rate"`
	TotalRuns   int     `json:"total_runs"`
	FailedRuns  int     `json:"failed_runs"`
	RetryRuns   int     `json:"retry_runs"`
	Reason      string  `json:"reason,omitempty"`
}

// Analyze scores a record against the threshold. Without any runs a test is never flaky.
func Analyze(record Record, threshold float64) Analysis {
	if record.TotalRuns < 1 {
		return Analysis{Reason: "Insufficient data"}
	}

	failureRate := float64(record.FailedRuns) / float64(record.TotalRuns)
	retryRate := float64(record.RetryRuns) / float64(record.TotalRuns)
	confidence := failureRate*failureWeight + retryRate*retryWeight

	return Analysis{
		IsFlaky:     confidence >= threshold,
		Confidence:  confidence,
		FailureRate: failureRate,
		RetryRate:   retryRate,
		TotalRuns:   record.TotalRuns,
		FailedRuns:  record.FailedRuns,
		RetryRuns:   record.RetryRuns,
	}
}

// Recommendation is a short hint on what to look at for a flaky test
func (a Analysis) Recommendation() string {
	switch {
	case a.FailureRate > 0.5:
		return "High failure rate - investigate test logic"
	case a.RetryRate > 0.3:
		return "High retry rate - check for timing issues"
	default:
		return "Monitor this test - may be environment dependent"
	}
}
