package fs

import (
	"io"

	"github.com/rwx-research/conductor/internal/errors"
)

// ReadFile reads the whole file at `name`.
func ReadFile(fileSystem FileSystem, name string) ([]byte, error) {
	fd, err := fileSystem.Open(name)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer fd.Close()

	data, err := io.ReadAll(fd)
	return data, errors.WithStack(err)
}

// WriteFile replaces the file at `name` with `data`. The data is written to a sibling file first which is then
// renamed, so readers never observe a half-written file.
func WriteFile(fileSystem FileSystem, name string, data []byte) error {
	tmpName := name + ".tmp"

	fd, err := fileSystem.Create(tmpName)
	if err != nil {
		return errors.WithStack(err)
	}

	if _, err := fd.Write(data); err != nil {
		fd.Close()
		return errors.WithStack(err)
	}

	if err := fd.Sync(); err != nil {
		fd.Close()
		return errors.WithStack(err)
	}

	if err := fd.Close(); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(fileSystem.Rename(tmpName, name))
}
