package reporting

import (
	"encoding/json"
	"io"

	"github.com/rwx-research/conductor/internal/errors"
	"github.com/rwx-research/conductor/internal/fs"
	"github.com/rwx-research/conductor/internal/results"
)

type jsonReport struct {
	Timestamp string                   `json:"timestamp"`
	RunID     string                   `json:"run_id,omitempty"`
	Commit    string                   `json:"commit,omitempty"`
	Summary   Metrics                  `json:"summary"`
	Scenarios []results.TestOutcome    `json:"scenarios"`
	Features  []results.FeatureOutcome `json:"features"`
}

func WriteJSONReport(file fs.File, set results.ResultSet, cfg Configuration) error {
	snapshot := NewSnapshot(set, cfg)

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	report := jsonReport{
		Timestamp: snapshot.Timestamp,
		RunID:     snapshot.RunID,
		Commit:    snapshot.Commit,
		Summary:   snapshot.Metrics,
		Scenarios: snapshot.Scenarios,
		Features:  snapshot.Features,
	}

	if err := encoder.Encode(report); err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// WriteResultSet writes the bare result set, e.g. for `conductor parse results`
func WriteResultSet(file io.Writer, set results.ResultSet, _ Configuration) error {
	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	return errors.WithStack(encoder.Encode(set))
}
