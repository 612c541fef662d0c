// Package fs is a thin wrapper around potential file-systems. By default, it is an abstraction over the `os` package
// from the standard library.
package fs

import (
	"os"
	"sort"

	"github.com/yargevad/filepathx"

	"github.com/rwx-research/conductor/internal/errors"
)

// Local is a local file-system. It wraps the default `os` package
type Local struct{}

// Create creates or truncates the named file.
func (l Local) Create(filePath string) (File, error) {
	f, err := os.Create(filePath)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return f, nil
}

// Open opens a file for further processing
func (l Local) Open(name string) (File, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return f, nil
}

// Glob expands a pattern. Unlike `filepath.Glob`, this supports `**` for matching nested directories.
func (l Local) Glob(pattern string) ([]string, error) {
	paths, err := filepathx.Glob(pattern)
	return paths, errors.WithStack(err)
}

// GlobMany expands all patterns and returns a sorted list of unique paths
func (l Local) GlobMany(patterns []string) ([]string, error) {
	seen := make(map[string]struct{})
	expanded := make([]string, 0)

	for _, pattern := range patterns {
		paths, err := l.Glob(pattern)
		if err != nil {
			return nil, err
		}

		for _, path := range paths {
			if _, ok := seen[path]; ok {
				continue
			}

			seen[path] = struct{}{}
			expanded = append(expanded, path)
		}
	}

	sort.Strings(expanded)

	return expanded, nil
}

// MkdirAll creates a directory including any missing parents
func (l Local) MkdirAll(path string) error {
	return errors.WithStack(os.MkdirAll(path, 0o755))
}

// ReadDir lists the entries of a directory
func (l Local) ReadDir(name string) ([]os.DirEntry, error) {
	entries, err := os.ReadDir(name)
	return entries, errors.WithStack(err)
}

// Remove removes a file or an empty directory
func (l Local) Remove(name string) error {
	return errors.WithStack(os.Remove(name))
}

// RemoveAll removes a path and any children it contains
func (l Local) RemoveAll(name string) error {
	return errors.WithStack(os.RemoveAll(name))
}

// Rename moves a file
func (l Local) Rename(oldname string, newname string) error {
	return errors.WithStack(os.Rename(oldname, newname))
}

// Stat returns file information
func (l Local) Stat(name string) (os.FileInfo, error) {
	info, err := os.Stat(name)
	return info, errors.WithStack(err)
}
