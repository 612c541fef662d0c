package cli

import (
	"context"

	"github.com/rwx-research/conductor/internal/errors"
	"github.com/rwx-research/conductor/internal/parsing"
	"github.com/rwx-research/conductor/internal/reporting"
	"github.com/rwx-research/conductor/internal/results"
)

const (
	ParseFormatJSON = "json"
	ParseFormatText = "text"
)

// ParseConfig is the configuration of `conductor parse results`
type ParseConfig struct {
	Files  []string
	Format string
}

// Parse parses the supplied result files and prints the merged result set, either as JSON or as a plain-text summary.
func (s Service) Parse(_ context.Context, cfg ParseConfig) error {
	write := reporting.WriteResultSet
	switch cfg.Format {
	case "", ParseFormatJSON:
	case ParseFormatText:
		write = reporting.WriteTextSummary
	default:
		return errors.NewConfigurationError(
			"Unsupported output format",
			"Results can only be printed as 'json' or 'text'.",
			"Please use one of the supported values for --format.",
		)
	}

	set, err := s.parse(cfg.Files)
	if err != nil {
		return errors.WithStack(err)
	}

	if err := write(s.console(), set, reporting.Configuration{}); err != nil {
		return errors.NewInternalError("Unable to output test results: %s", err)
	}

	return nil
}

func (s Service) parse(filepaths []string) (results.ResultSet, error) {
	sets := make([]results.ResultSet, 0, len(filepaths))

	for _, path := range filepaths {
		s.Log.Debugf("Attempting to parse %q", path)

		fd, err := s.FileSystem.Open(path)
		if err != nil {
			return results.ResultSet{}, errors.NewSystemError("unable to open file: %s", err)
		}

		set := parsing.ParseReader(fd, parsing.Config{Logger: s.Log})
		fd.Close()

		if set.IsEmpty() {
			s.Log.Warnf("No scenarios were found in %q", path)
		}

		sets = append(sets, set)
	}

	return results.Merge(sets...), nil
}
