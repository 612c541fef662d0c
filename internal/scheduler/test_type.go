package scheduler

import (
	"fmt"
	"strings"

	"github.com/rwx-research/conductor/internal/errors"
)

// TestType is the scope of a run as requested by the user
type TestType string

const (
	TestTypeAll        TestType = "all"
	TestTypeAPI        TestType = "api"
	TestTypeUI         TestType = "ui"
	TestTypeSmoke      TestType = "smoke"
	TestTypeRegression TestType = "regression"
)

// TestTypes lists every supported test type
var TestTypes = []TestType{TestTypeUI, TestTypeAPI, TestTypeAll, TestTypeSmoke, TestTypeRegression}

// ParseTestType parses a test type. An empty string means "all".
func ParseTestType(value string) (TestType, error) {
	if value == "" {
		return TestTypeAll, nil
	}

	for _, testType := range TestTypes {
		if strings.EqualFold(value, string(testType)) {
			return testType, nil
		}
	}

	return "", errors.NewConfigurationError(
		fmt.Sprintf("Unknown test type %q", value),
		"The test type decides which groups are built.",
		"Use one of ui, api, all, smoke, or regression.",
	)
}

// IsTagScoped is true for test types that select scenarios by a single tag. Runs of these types are always executed
// sequentially since scenarios are not partitioned below the feature level.
func (t TestType) IsTagScoped() bool {
	return t == TestTypeAPI || t == TestTypeUI || t == TestTypeSmoke || t == TestTypeRegression
}

// Tag is the tag that selects scenarios of this type. "all" has none.
func (t TestType) Tag() string {
	if t == TestTypeAll {
		return ""
	}

	return "@" + string(t)
}

// GroupType is the execution environment a run of this type needs
func (t TestType) GroupType() GroupType {
	switch t {
	case TestTypeAPI:
		return GroupTypeAPI
	case TestTypeUI:
		return GroupTypeUI
	default:
		return GroupTypeMixed
	}
}
