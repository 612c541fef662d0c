package reporting

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/rwx-research/conductor/internal/errors"
	"github.com/rwx-research/conductor/internal/fs"
	"github.com/rwx-research/conductor/internal/results"
)

const (
	// HistoryFileName is the name of the history file inside the reports directory
	HistoryFileName = "historical_results.json"

	// DefaultHistoryLimit is how many snapshots are kept. Older ones are dropped first.
	DefaultHistoryLimit = 50
)

// Snapshot is the persisted record of one run
type Snapshot struct {
	Timestamp string                   `json:"timestamp"`
	RunID     string                   `json:"run_id,omitempty"`
	Commit    string                   `json:"commit,omitempty"`
	Metrics   Metrics                  `json:"metrics"`
	Scenarios []results.TestOutcome    `json:"scenarios"`
	Features  []results.FeatureOutcome `json:"features"`
}

// NewSnapshot captures a result set for the history
func NewSnapshot(set results.ResultSet, cfg Configuration) Snapshot {
	generatedAt := cfg.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Now()
	}

	scenarios := set.Scenarios
	if scenarios == nil {
		scenarios = []results.TestOutcome{}
	}

	features := set.Features
	if features == nil {
		features = []results.FeatureOutcome{}
	}

	return Snapshot{
		Timestamp: generatedAt.Format(time.RFC3339),
		RunID:     cfg.RunID,
		Commit:    cfg.Commit,
		Metrics:   ComputeMetrics(set),
		Scenarios: scenarios,
		Features:  features,
	}
}

// HistoryStore keeps the snapshots of previous runs as a JSON array
type HistoryStore struct {
	Log        *zap.SugaredLogger
	FileSystem fs.FileSystem
	Path       string
	Limit      int
}

// NewHistoryStore returns a store for `<reportsDir>/historical_results.json`
func NewHistoryStore(log *zap.SugaredLogger, fileSystem fs.FileSystem, reportsDir string) *HistoryStore {
	return &HistoryStore{
		Log:        log,
		FileSystem: fileSystem,
		Path:       filepath.Join(reportsDir, HistoryFileName),
		Limit:      DefaultHistoryLimit,
	}
}

// Load returns all snapshots, oldest first. A missing file is an empty history.
func (s *HistoryStore) Load() ([]Snapshot, error) {
	data, err := fs.ReadFile(s.FileSystem, s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Snapshot{}, nil
		}

		return []Snapshot{}, errors.NewSystemError("unable to read %q: %s", s.Path, err)
	}

	snapshots := make([]Snapshot, 0)
	if err := json.Unmarshal(data, &snapshots); err != nil {
		return []Snapshot{}, errors.NewInputError("unable to parse %q: %s", s.Path, err)
	}

	return snapshots, nil
}

// Append adds a snapshot and drops the oldest ones beyond the limit. An unreadable history is replaced.
func (s *HistoryStore) Append(snapshot Snapshot) ([]Snapshot, error) {
	snapshots, err := s.Load()
	if err != nil {
		s.Log.Warnf("Could not load historical data: %s", err)
		snapshots = []Snapshot{}
	}

	snapshots = append(snapshots, snapshot)

	limit := s.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	if len(snapshots) > limit {
		snapshots = snapshots[len(snapshots)-limit:]
	}

	if err := s.FileSystem.MkdirAll(filepath.Dir(s.Path)); err != nil {
		return snapshots, errors.NewSystemError("unable to create %q: %s", filepath.Dir(s.Path), err)
	}

	data, err := json.MarshalIndent(snapshots, "", "  ")
	if err != nil {
		return snapshots, errors.WithStack(err)
	}

	if err := fs.WriteFile(s.FileSystem, s.Path, data); err != nil {
		return snapshots, errors.NewSystemError("unable to write %q: %s", s.Path, err)
	}

	return snapshots, nil
}
