package runner

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/acarl005/stripansi"
)

// consoleKeywords are the markers of lines that are worth showing while several groups write to the console at once
var consoleKeywords = []string{"info", "error", "warning", "starting", "completed", "failed", "passed"}

// outputStream captures the combined output of a group. Every byte ends up in the buffer. Complete lines are
// mirrored to the console with the group name as prefix.
type outputStream struct {
	console io.Writer
	prefix  string
	verbose bool

	mu      sync.Mutex
	buffer  bytes.Buffer
	pending []byte

	// consoleMu is shared between all streams of a run so lines of different groups don't interleave mid-line
	consoleMu *sync.Mutex
}

func newOutputStream(console io.Writer, consoleMu *sync.Mutex, group string, verbose bool) *outputStream {
	if console == nil {
		console = io.Discard
	}

	if consoleMu == nil {
		consoleMu = new(sync.Mutex)
	}

	return &outputStream{console: console, consoleMu: consoleMu, prefix: fmt.Sprintf("[%s] ", group), verbose: verbose}
}

func (s *outputStream) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buffer.Write(p)
	s.pending = append(s.pending, p...)

	for {
		newline := bytes.IndexByte(s.pending, '\n')
		if newline < 0 {
			break
		}

		s.mirror(string(s.pending[:newline]))
		s.pending = s.pending[newline+1:]
	}

	return len(p), nil
}

// Flush mirrors a trailing line without newline
func (s *outputStream) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) > 0 {
		s.mirror(string(s.pending))
		s.pending = nil
	}
}

// String is everything written so far
func (s *outputStream) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.buffer.String()
}

func (s *outputStream) mirror(line string) {
	line = strings.TrimRight(line, "\r")
	if !showOnConsole(line, s.verbose) {
		return
	}

	s.consoleMu.Lock()
	defer s.consoleMu.Unlock()

	fmt.Fprintf(s.console, "%s%s\n", s.prefix, line)
}

// showOnConsole hides the JSON records of the json formatter. Unless verbose, only lines with one of the console
// keywords are shown.
func showOnConsole(line string, verbose bool) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}

	if strings.HasPrefix(trimmed, `{"keyword":`) || strings.HasPrefix(trimmed, `[{"keyword":`) {
		return false
	}

	if verbose {
		return true
	}

	lower := strings.ToLower(stripansi.Strip(trimmed))
	for _, keyword := range consoleKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}

	return false
}
