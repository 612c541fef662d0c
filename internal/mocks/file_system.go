package mocks

import (
	"os"

	"github.com/rwx-research/conductor/internal/errors"
	"github.com/rwx-research/conductor/internal/fs"
)

// FileSystem is a mocked implementation of 'fs.FileSystem'.
type FileSystem struct {
	MockCreate    func(filePath string) (fs.File, error)
	MockOpen      func(name string) (fs.File, error)
	MockGlob      func(pattern string) ([]string, error)
	MockGlobMany  func(patterns []string) ([]string, error)
	MockMkdirAll  func(path string) error
	MockReadDir   func(name string) ([]os.DirEntry, error)
	MockRemove    func(name string) error
	MockRemoveAll func(name string) error
	MockRename    func(oldname string, newname string) error
	MockStat      func(name string) (os.FileInfo, error)
}

// Create either calls the configured mock of itself or returns an error if that doesn't exist.
func (f *FileSystem) Create(filePath string) (fs.File, error) {
	if f.MockCreate != nil {
		return f.MockCreate(filePath)
	}

	return nil, errors.NewInternalError("MockCreate was not configured")
}

// Open either calls the configured mock of itself or returns an error if that doesn't exist.
func (f *FileSystem) Open(name string) (fs.File, error) {
	if f.MockOpen != nil {
		return f.MockOpen(name)
	}

	return nil, errors.NewInternalError("MockOpen was not configured")
}

// Glob either calls the configured mock of itself or returns an error if that doesn't exist.
func (f *FileSystem) Glob(pattern string) ([]string, error) {
	if f.MockGlob != nil {
		return f.MockGlob(pattern)
	}

	return nil, errors.NewInternalError("MockGlob was not configured")
}

// GlobMany either calls the configured mock of itself, falls back to `MockGlob`, or returns an error.
func (f *FileSystem) GlobMany(patterns []string) ([]string, error) {
	if f.MockGlobMany != nil {
		return f.MockGlobMany(patterns)
	}

	if f.MockGlob != nil {
		paths := make([]string, 0)
		for _, pattern := range patterns {
			expanded, err := f.MockGlob(pattern)
			if err != nil {
				return nil, err
			}
			paths = append(paths, expanded...)
		}
		return paths, nil
	}

	return nil, errors.NewInternalError("MockGlobMany was not configured")
}

// MkdirAll either calls the configured mock of itself or returns nil.
func (f *FileSystem) MkdirAll(path string) error {
	if f.MockMkdirAll != nil {
		return f.MockMkdirAll(path)
	}

	return nil
}

// ReadDir either calls the configured mock of itself or returns an error if that doesn't exist.
func (f *FileSystem) ReadDir(name string) ([]os.DirEntry, error) {
	if f.MockReadDir != nil {
		return f.MockReadDir(name)
	}

	return nil, errors.NewInternalError("MockReadDir was not configured")
}

// Remove either calls the configured mock of itself or returns an error if that doesn't exist.
func (f *FileSystem) Remove(name string) error {
	if f.MockRemove != nil {
		return f.MockRemove(name)
	}

	return errors.NewInternalError("MockRemove was not configured")
}

// RemoveAll either calls the configured mock of itself or returns an error if that doesn't exist.
func (f *FileSystem) RemoveAll(name string) error {
	if f.MockRemoveAll != nil {
		return f.MockRemoveAll(name)
	}

	return errors.NewInternalError("MockRemoveAll was not configured")
}

// Rename either calls the configured mock of itself or returns an error if that doesn't exist.
func (f *FileSystem) Rename(oldname string, newname string) error {
	if f.MockRename != nil {
		return f.MockRename(oldname, newname)
	}

	return errors.NewInternalError("MockRename was not configured")
}

// Stat either calls the configured mock of itself or returns an error if that doesn't exist.
func (f *FileSystem) Stat(name string) (os.FileInfo, error) {
	if f.MockStat != nil {
		return f.MockStat(name)
	}

	return nil, errors.NewInternalError("MockStat was not configured")
}
