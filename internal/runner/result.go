package runner

import (
	"sort"

	"github.com/rwx-research/conductor/internal/results"
)

// GroupResult is the outcome of executing one group. It is not modified once returned.
type GroupResult struct {
	GroupName       string  `json:"group_name"`
	GroupType       string  `json:"group_type"`
	State           State   `json:"state"`
	Success         bool    `json:"success"`
	DurationSeconds float64 `json:"duration"`
	Stdout          string  `json:"stdout"`
	ReturnCode      int     `json:"return_code"`
	Error           string  `json:"error,omitempty"`
	OutputFile      string  `json:"output_file,omitempty"`
	Attempts        int     `json:"attempts"`
}

// ParallelSummary aggregates the results of all groups. The results are in completion order.
type ParallelSummary struct {
	TotalGroups          int           `json:"total_groups"`
	Passed               int           `json:"passed"`
	Failed               int           `json:"failed"`
	TotalDurationSeconds float64       `json:"total_duration"`
	GroupResults         []GroupResult `json:"group_results"`
}

// NewParallelSummary counts passed & failed groups. Every result that is not successful counts as failed.
func NewParallelSummary(groupResults []GroupResult, durationSeconds float64) ParallelSummary {
	summary := ParallelSummary{
		TotalGroups:          len(groupResults),
		TotalDurationSeconds: results.Round(results.SafeDuration(durationSeconds), 3),
		GroupResults:         groupResults,
	}

	for _, result := range groupResults {
		if result.Success {
			summary.Passed++
		} else {
			summary.Failed++
		}
	}

	return summary
}

// Success is true if no group failed
func (s ParallelSummary) Success() bool {
	return s.Failed == 0
}

// SortedByName returns a copy of the summary with the group results sorted by group name, for stable output
func (s ParallelSummary) SortedByName() ParallelSummary {
	sorted := make([]GroupResult, len(s.GroupResults))
	copy(sorted, s.GroupResults)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].GroupName < sorted[j].GroupName
	})

	s.GroupResults = sorted
	return s
}

// FirstFailure returns the first failed group, if any
func (s ParallelSummary) FirstFailure() (GroupResult, bool) {
	for _, result := range s.GroupResults {
		if !result.Success {
			return result, true
		}
	}

	return GroupResult{}, false
}
