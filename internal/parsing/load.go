package parsing

import (
	"path/filepath"

	"github.com/rwx-research/conductor/internal/fs"
	"github.com/rwx-research/conductor/internal/results"
)

// minResultFileSize is the size below which a result file can't hold a single record. Behave leaves such files behind
// when it is interrupted early.
const minResultFileSize = 10

// ResultFilePattern matches every result file written by the runner inside the reports directory
const ResultFilePattern = "*_results.json"

// LoadResultFiles parses and merges every result file in `dir`. Unreadable files are logged & skipped. Only files
// that contained at least one scenario are reported as loaded.
func LoadResultFiles(fileSystem fs.FileSystem, dir string, cfg Config) (results.ResultSet, []string) {
	paths, err := fileSystem.Glob(filepath.Join(dir, ResultFilePattern))
	if err != nil {
		if cfg.Logger != nil {
			cfg.Logger.Warnf("Unable to list result files in %q: %s", dir, err)
		}
		return results.NewResultSet(), nil
	}

	sets := make([]results.ResultSet, 0, len(paths))
	loaded := make([]string, 0, len(paths))

	for _, path := range paths {
		if cfg.isIgnored(filepath.Base(path)) {
			continue
		}

		info, err := fileSystem.Stat(path)
		if err != nil || info.IsDir() || info.Size() < minResultFileSize {
			continue
		}

		raw, err := fs.ReadFile(fileSystem, path)
		if err != nil {
			if cfg.Logger != nil {
				cfg.Logger.Warnf("Could not load results from %q: %s", path, err)
			}
			continue
		}

		if cfg.Logger != nil {
			cfg.Logger.Debugf("Loading results from %q", path)
		}

		set := Parse(raw, cfg)
		if set.IsEmpty() {
			if cfg.Logger != nil {
				cfg.Logger.Debugf("No scenarios were found in %q", path)
			}
			continue
		}

		sets = append(sets, set)
		loaded = append(loaded, path)
	}

	return results.Merge(sets...), loaded
}

func (c Config) isIgnored(name string) bool {
	for _, ignored := range c.IgnoredFiles {
		if name == ignored {
			return true
		}
	}

	return false
}
