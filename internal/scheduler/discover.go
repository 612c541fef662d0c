package scheduler

import (
	"bufio"
	"path/filepath"
	"strings"

	"github.com/rwx-research/conductor/internal/errors"
	"github.com/rwx-research/conductor/internal/fs"
)

// DiscoverFeatures returns every feature file below `dir` that carries at least one of `include` (or any file if
// `include` is empty) and none of `exclude`. Tags are collected from every line starting with `@`, which means
// scenario tags count towards the file as well.
func DiscoverFeatures(fileSystem fs.FileSystem, dir string, include, exclude []string) ([]string, error) {
	paths, err := fileSystem.Glob(filepath.Join(dir, "**", "*.feature"))
	if err != nil {
		return nil, errors.NewSystemError("unable to list feature files in %q: %s", dir, err)
	}

	discovered := make([]string, 0)
	for _, path := range paths {
		tags, err := featureTags(fileSystem, path)
		if err != nil {
			continue
		}

		included := len(include) == 0 || containsAny(tags, include)
		excluded := containsAny(tags, exclude)

		if included && !excluded {
			discovered = append(discovered, path)
		}
	}

	return discovered, nil
}

// FeaturesForTestType discovers the feature files of an API or UI run. The other test types select by tag only.
func FeaturesForTestType(fileSystem fs.FileSystem, dir string, testType TestType) ([]string, error) {
	switch testType {
	case TestTypeAPI:
		return DiscoverFeatures(fileSystem, dir, []string{"@api"}, []string{"@ui"})
	case TestTypeUI:
		return DiscoverFeatures(fileSystem, dir, []string{"@ui"}, []string{"@api"})
	default:
		return nil, nil
	}
}

// DiscoverScenarios lists the scenarios of every feature file below `dir`. The tags of a scenario are its own tags
// plus the tags of its feature.
func DiscoverScenarios(fileSystem fs.FileSystem, dir string) ([]ScenarioRef, error) {
	paths, err := fileSystem.Glob(filepath.Join(dir, "**", "*.feature"))
	if err != nil {
		return nil, errors.NewSystemError("unable to list feature files in %q: %s", dir, err)
	}

	scenarios := make([]ScenarioRef, 0)
	for _, path := range paths {
		refs, err := featureScenarios(fileSystem, path)
		if err != nil {
			continue
		}

		scenarios = append(scenarios, refs...)
	}

	return scenarios, nil
}

var scenarioKeywords = []string{"Scenario Outline:", "Scenario Template:", "Scenario:"}

func featureScenarios(fileSystem fs.FileSystem, path string) ([]ScenarioRef, error) {
	fd, err := fileSystem.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer fd.Close()

	var (
		featureTags []string
		pendingTags []string
	)

	scenarios := make([]ScenarioRef, 0)
	scanner := bufio.NewScanner(fd)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch {
		case strings.HasPrefix(line, "@"):
			for _, token := range strings.Fields(line) {
				if strings.HasPrefix(token, "@") {
					pendingTags = append(pendingTags, token)
				}
			}
		case strings.HasPrefix(line, "Feature:"):
			featureTags = pendingTags
			pendingTags = nil
		default:
			for _, keyword := range scenarioKeywords {
				if !strings.HasPrefix(line, keyword) {
					continue
				}

				tags := append(append([]string{}, featureTags...), pendingTags...)
				scenarios = append(scenarios, ScenarioRef{
					Name: strings.TrimSpace(strings.TrimPrefix(line, keyword)),
					Tags: tags,
				})
				pendingTags = nil

				break
			}
		}
	}

	return scenarios, errors.WithStack(scanner.Err())
}

func featureTags(fileSystem fs.FileSystem, path string) ([]string, error) {
	fd, err := fileSystem.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer fd.Close()

	tags := make([]string, 0)
	scanner := bufio.NewScanner(fd)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "@") {
			continue
		}

		for _, token := range strings.Fields(line) {
			if strings.HasPrefix(token, "@") {
				tags = append(tags, token)
			}
		}
	}

	return tags, errors.WithStack(scanner.Err())
}

func containsAny(values []string, candidates []string) bool {
	for _, candidate := range candidates {
		if contains(values, candidate) {
			return true
		}
	}

	return false
}
