package results

// Status is the outcome of a scenario or a feature.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
	StatusUnknown Status = "unknown"
)

// ParseStatus maps a status as reported by the BDD runner onto a Status. Anything unrecognised is unknown.
func ParseStatus(raw string) Status {
	switch raw {
	case "passed":
		return StatusPassed
	case "failed", "error", "errored", "undefined":
		return StatusFailed
	case "skipped", "untested", "pending":
		return StatusSkipped
	default:
		return StatusUnknown
	}
}

// String returns the string representation of a status.
func (s Status) String() string {
	if s == "" {
		return string(StatusUnknown)
	}

	return string(s)
}
