package mocks

import (
	"io/fs"
	"os"
	"strings"
	"time"
)

// File is a mocked implementation of `os.File`. Reads are served from `Reader`, writes end up in `Builder`.
type File struct {
	*strings.Builder
	*strings.Reader

	MockModTime func() time.Time
	MockName    func() string
	MockWrite   func(p []byte) (int, error)
}

// NewFile returns a file that reads `content`
func NewFile(name, content string) *File {
	return &File{
		Builder:  new(strings.Builder),
		Reader:   strings.NewReader(content),
		MockName: func() string { return name },
	}
}

// Close will always return nil.
func (f *File) Close() error {
	return nil
}

// Mode will always return `fs.ModeIrregular`
func (f *File) Mode() fs.FileMode {
	return fs.ModeIrregular
}

// IsDir will always return false.
func (f *File) IsDir() bool {
	return false
}

// ModTime either calls the configured mock of itself or returns `time.Now`
func (f *File) ModTime() time.Time {
	if f.MockModTime != nil {
		return f.MockModTime()
	}

	return time.Now()
}

// Name either calls the configured mock of itself or returns an empty string
func (f *File) Name() string {
	if f.MockName != nil {
		return f.MockName()
	}

	return ""
}

// Write either calls the configured mock of itself or appends to the builder.
func (f *File) Write(p []byte) (int, error) {
	if f.MockWrite != nil {
		return f.MockWrite(p)
	}

	return f.Builder.Write(p)
}

// Stat is a no-op. This mocked file implementation covers the `os.FileInfo` interface already.
func (f *File) Stat() (os.FileInfo, error) {
	return f, nil
}

// Sync always returns nil.
func (f *File) Sync() error {
	return nil
}

// Sys always returns nil.
func (f *File) Sys() any {
	return nil
}
