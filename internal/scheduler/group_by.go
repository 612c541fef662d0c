package scheduler

import (
	"fmt"
	"strings"

	"github.com/rwx-research/conductor/internal/errors"
)

// GroupBy decides how a parallel run of all tests is partitioned
type GroupBy string

const (
	// GroupByTypes runs the default smoke, API, UI, and regression groups
	GroupByTypes GroupBy = "types"
	// GroupByTags runs one group per requested tag
	GroupByTags GroupBy = "tags"
	// GroupByFeatures runs one group per feature file
	GroupByFeatures GroupBy = "features"
	// GroupByBalanced spreads the scenarios round-robin over as many groups as run at once
	GroupByBalanced GroupBy = "balanced"
)

var groupings = []GroupBy{GroupByTypes, GroupByTags, GroupByFeatures, GroupByBalanced}

// ParseGroupBy parses a grouping. An empty string means "types".
func ParseGroupBy(value string) (GroupBy, error) {
	if value == "" {
		return GroupByTypes, nil
	}

	for _, groupBy := range groupings {
		if strings.EqualFold(value, string(groupBy)) {
			return groupBy, nil
		}
	}

	return "", errors.NewConfigurationError(
		fmt.Sprintf("Unknown grouping %q", value),
		"The grouping decides how a parallel run of all tests is split up.",
		"Use one of types, tags, features, or balanced.",
	)
}
