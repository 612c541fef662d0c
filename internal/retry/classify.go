package retry

import "strings"

// Classification is the verdict on whether a failed test run is worth running again
type Classification int

const (
	NonRetryable Classification = iota
	Retryable
)

func (c Classification) String() string {
	if c == Retryable {
		return "retryable"
	}

	return "non-retryable"
}

// assertionIndicators mark deterministic test-logic failures. They take precedence over transient indicators.
var assertionIndicators = []string{
	"expected status",
	"assert failed",
	"assertionerror",
	"expected",
	"but was",
	"but got",
}

var transientIndicators = []string{
	"connection refused",
	"connection timeout",
	"network unreachable",
	"temporary failure",
	"service temporarily unavailable",
	"internal server error",
	"gateway timeout",
	"bad gateway",
	"cannot connect to",
	"browser launch failed",
	"page crash",
	"browser disconnected",
	"websocket connection failed",
}

// KindForOutput classifies captured test output: any assertion indicator makes it an assertion failure, otherwise any
// transient indicator makes it transient.
func KindForOutput(output string) ErrorKind {
	lower := strings.ToLower(output)

	for _, indicator := range assertionIndicators {
		if strings.Contains(lower, indicator) {
			return KindAssertion
		}
	}

	for _, indicator := range transientIndicators {
		if strings.Contains(lower, indicator) {
			return KindTransient
		}
	}

	return KindUnknown
}

// Classify decides whether a failed run with the given output should be retried.
func Classify(output string) Classification {
	if KindForOutput(output) == KindTransient {
		return Retryable
	}

	return NonRetryable
}
