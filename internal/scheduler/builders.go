package scheduler

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ByTags builds one group per tag. The group type is derived from the tag name.
func ByTags(tags []string) []TestGroup {
	groups := make([]TestGroup, 0, len(tags))

	for _, tag := range tags {
		groupType := GroupTypeMixed
		switch lower := strings.ToLower(tag); {
		case strings.Contains(lower, "api"):
			groupType = GroupTypeAPI
		case strings.Contains(lower, "ui"):
			groupType = GroupTypeUI
		}

		groups = append(groups, TestGroup{
			Name: fmt.Sprintf("Tests with tag %s", tag),
			Tags: []string{tag},
			Type: groupType,
		})
	}

	return groups
}

// ByFeatures builds one group per feature file. Feature files with "api" in their name are API groups.
func ByFeatures(paths []string) []TestGroup {
	groups := make([]TestGroup, 0, len(paths))

	for _, path := range paths {
		stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

		groupType := GroupTypeUI
		if strings.Contains(strings.ToLower(stem), "api") {
			groupType = GroupTypeAPI
		}

		groups = append(groups, TestGroup{
			Name:     fmt.Sprintf("Feature %s", stem),
			Tags:     []string{},
			Type:     groupType,
			Features: []string{path},
		})
	}

	return groups
}

// ScenarioRef identifies a scenario for scenario-level partitioning
type ScenarioRef struct {
	Name string
	Tags []string
}

// Balanced distributes scenarios round-robin over `count` groups. The tags of every scenario are added to the tags of
// its group, without duplicates.
func Balanced(scenarios []ScenarioRef, count int) []TestGroup {
	if count < 1 {
		count = 1
	}

	groups := make([]TestGroup, count)
	for i := range groups {
		groups[i] = TestGroup{
			Name:      fmt.Sprintf("Group %d", i+1),
			Tags:      []string{},
			Type:      GroupTypeMixed,
			Scenarios: []string{},
		}
	}

	for i, scenario := range scenarios {
		group := &groups[i%count]
		group.Scenarios = append(group.Scenarios, scenario.Name)

		for _, tag := range scenario.Tags {
			if !contains(group.Tags, tag) {
				group.Tags = append(group.Tags, tag)
			}
		}
	}

	return groups
}

// Builder assembles a list of groups
type Builder struct {
	groups []TestGroup
}

func (b *Builder) AddSmokeTests() *Builder {
	return b.AddCustomGroup("Smoke Tests", []string{"@smoke"}, GroupTypeMixed)
}

func (b *Builder) AddAPITests() *Builder {
	return b.AddCustomGroup("API Tests", []string{"@api"}, GroupTypeAPI)
}

func (b *Builder) AddUITests() *Builder {
	return b.AddCustomGroup("UI Tests", []string{"@ui"}, GroupTypeUI)
}

func (b *Builder) AddRegressionTests() *Builder {
	return b.AddCustomGroup("Regression Tests", []string{"@regression"}, GroupTypeMixed)
}

// AddCustomGroup adds a group with arbitrary tags. An empty type means mixed.
func (b *Builder) AddCustomGroup(name string, tags []string, groupType GroupType) *Builder {
	if groupType == "" {
		groupType = GroupTypeMixed
	}

	b.groups = append(b.groups, TestGroup{Name: name, Tags: append([]string{}, tags...), Type: groupType})
	return b
}

// Build returns a copy of the groups added so far
func (b *Builder) Build() []TestGroup {
	groups := make([]TestGroup, len(b.groups))
	copy(groups, b.groups)
	return groups
}

// DefaultGroups are the smoke, API, UI, and regression groups
func DefaultGroups() []TestGroup {
	return new(Builder).
		AddSmokeTests().
		AddAPITests().
		AddUITests().
		AddRegressionTests().
		Build()
}

// ForTestType builds the groups of a parallel run. Tag-scoped types get `count` identical groups, "all" gets the
// default groups. `apiFeatures` are the feature files of API groups, the complete features directory is used if
// empty. `customTags` is a comma-separated list of tags that is appended to every group.
func ForTestType(testType TestType, count int, customTags string, apiFeatures []string) []TestGroup {
	if count < 1 {
		count = 1
	}

	var groups []TestGroup

	switch testType {
	case TestTypeAPI, TestTypeUI, TestTypeSmoke, TestTypeRegression:
		label := strings.ToUpper(string(testType))
		if testType == TestTypeSmoke || testType == TestTypeRegression {
			label = strings.ToUpper(string(testType[:1])) + string(testType[1:])
		}

		for i := 0; i < count; i++ {
			group := TestGroup{
				Name: fmt.Sprintf("%s Tests Group %d", label, i+1),
				Tags: []string{testType.Tag()},
				Type: testType.GroupType(),
			}

			if testType == TestTypeAPI {
				group.Features = append([]string{}, apiFeatures...)
				if len(group.Features) == 0 {
					group.Features = []string{"features"}
				}
			}

			groups = append(groups, group)
		}
	default:
		groups = DefaultGroups()
	}

	for i := range groups {
		groups[i].Tags = append(groups[i].Tags, SplitTags(customTags)...)
	}

	return groups
}

// SplitTags splits a comma-separated list of tags, dropping empty entries
func SplitTags(tags string) []string {
	split := make([]string, 0)
	for _, tag := range strings.Split(tags, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			split = append(split, tag)
		}
	}

	return split
}

func contains(values []string, value string) bool {
	for _, candidate := range values {
		if candidate == value {
			return true
		}
	}

	return false
}

// ForSequentialRun builds the single group of a sequential run. The group is named after the test type so the
// results end up in `<type>_results.json`. `features` are the feature files selected for the type. Without any, the
// complete features directory is run and the opposite surface is excluded by tag.
func ForSequentialRun(testType TestType, customTags string, features []string) TestGroup {
	group := TestGroup{
		Name:     string(testType),
		Tags:     []string{},
		Type:     testType.GroupType(),
		Features: append([]string{}, features...),
	}

	if testType != TestTypeAPI && testType != TestTypeUI {
		group.Features = nil
	}

	switch testType {
	case TestTypeAPI:
		group.Tags = append(group.Tags, "@api")
		if len(group.Features) == 0 {
			group.Tags = append(group.Tags, "~@ui")
		}
	case TestTypeUI:
		group.Tags = append(group.Tags, "@ui")
		if len(group.Features) == 0 {
			group.Tags = append(group.Tags, "~@api")
		}
	case TestTypeSmoke, TestTypeRegression:
		group.Tags = append(group.Tags, testType.Tag())
	}

	group.Tags = append(group.Tags, SplitTags(customTags)...)

	return group
}
