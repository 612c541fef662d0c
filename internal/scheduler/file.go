package scheduler

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/rwx-research/conductor/internal/errors"
)

type groupsFile struct {
	Groups []TestGroup `yaml:"groups"`
}

// LoadGroups decodes a YAML file with custom groups:
//
//	groups:
//	  - name: Checkout
//	    tags: ["@checkout"]
//	    type: ui
//
// Unknown keys are rejected and every group is validated. A group without a type is mixed.
func LoadGroups(r io.Reader) ([]TestGroup, error) {
	var file groupsFile

	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	if err := decoder.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.NewConfigurationError(
				"Empty groups file",
				"The groups file does not define any groups.",
				"Please add at least one group under the `groups` key.",
			)
		}

		return nil, errors.NewConfigurationError(
			"Unable to parse the groups file",
			err.Error(),
			"Please make sure the groups file is valid YAML and only uses the keys name, tags, type, features, and scenarios.",
		)
	}

	if len(file.Groups) == 0 {
		return nil, errors.NewConfigurationError(
			"Empty groups file",
			"The groups file does not define any groups.",
			"Please add at least one group under the `groups` key.",
		)
	}

	for i := range file.Groups {
		if file.Groups[i].Type == "" {
			file.Groups[i].Type = GroupTypeMixed
		}

		if file.Groups[i].Tags == nil {
			file.Groups[i].Tags = []string{}
		}

		if err := file.Groups[i].Validate(); err != nil {
			return nil, errors.WithStack(err)
		}
	}

	return file.Groups, nil
}
