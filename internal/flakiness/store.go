package flakiness

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rwx-research/conductor/internal/errors"
	"github.com/rwx-research/conductor/internal/fs"
)

// HistoryFileName is the name of the file the history is persisted to inside the reports directory
const HistoryFileName = "flakiness_history.json"

// History maps test identities to their records
type History map[string]Record

// Store persists the history between runs
type Store interface {
	Load() (History, error)
	Save(History) error
	Clear() error
}

type historyFile struct {
	LastUpdated float64 `json:"last_updated"`
	TestHistory History `json:"test_history"`
}

// FileStore keeps the history as a single JSON document. The whole file is rewritten on every save, concurrent
// writers from different processes are not coordinated.
type FileStore struct {
	FileSystem fs.FileSystem
	Path       string

	// Now returns the current time as fractional epoch seconds. It's written as `last_updated`.
	Now func() float64
}

// NewFileStore returns a store for `<reportsDir>/flakiness_history.json`
func NewFileStore(fileSystem fs.FileSystem, reportsDir string, now func() float64) *FileStore {
	return &FileStore{FileSystem: fileSystem, Path: filepath.Join(reportsDir, HistoryFileName), Now: now}
}

// Load reads the history. A missing file is an empty history.
func (s *FileStore) Load() (History, error) {
	data, err := fs.ReadFile(s.FileSystem, s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return History{}, nil
		}

		return History{}, errors.NewSystemError("unable to read %q: %s", s.Path, err)
	}

	var file historyFile
	if err := json.Unmarshal(data, &file); err != nil {
		return History{}, errors.NewInputError("unable to parse %q: %s", s.Path, err)
	}

	if file.TestHistory == nil {
		file.TestHistory = History{}
	}

	return file.TestHistory, nil
}

// Save replaces the file with the given history
func (s *FileStore) Save(history History) error {
	if err := s.FileSystem.MkdirAll(filepath.Dir(s.Path)); err != nil {
		return errors.NewSystemError("unable to create %q: %s", filepath.Dir(s.Path), err)
	}

	file := historyFile{TestHistory: history}
	if s.Now != nil {
		file.LastUpdated = s.Now()
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return errors.NewInternalError("unable to encode flakiness history: %s", err)
	}

	if err := fs.WriteFile(s.FileSystem, s.Path, data); err != nil {
		return errors.NewSystemError("unable to write %q: %s", s.Path, err)
	}

	return nil
}

// Clear removes the file. A missing file is not an error.
func (s *FileStore) Clear() error {
	if err := s.FileSystem.Remove(s.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.NewSystemError("unable to remove %q: %s", s.Path, err)
	}

	return nil
}
