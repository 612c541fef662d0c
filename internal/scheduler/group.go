// Package scheduler partitions a requested test scope into groups that can be executed independently of each other.
package scheduler

import (
	"fmt"
	"strings"

	"github.com/rwx-research/conductor/internal/errors"
)

// GroupType decides which execution environment a group needs. API groups don't launch a browser.
type GroupType string

const (
	GroupTypeAPI   GroupType = "api"
	GroupTypeUI    GroupType = "ui"
	GroupTypeMixed GroupType = "mixed"
)

// TestGroup is a unit of independent execution. Groups are built right before a run and consumed once.
type TestGroup struct {
	Name      string    `yaml:"name"`
	Tags      []string  `yaml:"tags"`
	Type      GroupType `yaml:"type"`
	Features  []string  `yaml:"features"`
	Scenarios []string  `yaml:"scenarios"`
}

// Validate checks that the group can be executed
func (g TestGroup) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return errors.NewConfigurationError(
			"Missing group name",
			"Every test group needs a name. It is used to prefix the console output and to name the result file.",
			"Please set a `name` for every group.",
		)
	}

	switch g.Type {
	case GroupTypeAPI, GroupTypeUI, GroupTypeMixed:
	default:
		return errors.NewConfigurationError(
			fmt.Sprintf("Unknown group type %q", g.Type),
			fmt.Sprintf("The group %q has a type that is not supported.", g.Name),
			"The type of a group needs to be one of api, ui, or mixed.",
		)
	}

	return nil
}

// NormalizedName is the group name as used in file names, e.g. "API Tests" becomes "api_tests"
func (g TestGroup) NormalizedName() string {
	return strings.ToLower(strings.ReplaceAll(g.Name, " ", "_"))
}

// ResultFileName is the name of the JSON result file the runner writes for this group
func (g TestGroup) ResultFileName() string {
	return g.NormalizedName() + "_results.json"
}

// String implements fmt.Stringer
func (g TestGroup) String() string {
	return fmt.Sprintf("%s (tags: %s)", g.Name, strings.Join(g.Tags, ", "))
}
