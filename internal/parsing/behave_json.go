package parsing

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/rwx-research/conductor/internal/errors"
	"github.com/rwx-research/conductor/internal/results"
)

// BehaveFeature is a feature record as written by behave's json formatter
type BehaveFeature struct {
	Keyword  string          `json:"keyword"`
	Name     string          `json:"name"`
	Location string          `json:"location"`
	Status   string          `json:"status"`
	Tags     tagList         `json:"tags"`
	Elements []BehaveElement `json:"elements"`
}

// BehaveElement is either a scenario or a background. Steps is nil if the record has no "steps" key at all.
type BehaveElement struct {
	Type     string        `json:"type"`
	Keyword  string        `json:"keyword"`
	Name     string        `json:"name"`
	Location string        `json:"location"`
	Status   string        `json:"status"`
	Tags     tagList       `json:"tags"`
	Steps    *[]BehaveStep `json:"steps"`
}

type BehaveStep struct {
	Keyword  string            `json:"keyword"`
	StepType string            `json:"step_type"`
	Name     string            `json:"name"`
	Location string            `json:"location"`
	Result   *BehaveStepResult `json:"result"`
}

type BehaveStepResult struct {
	Status       string   `json:"status"`
	Duration     *float64 `json:"duration"`
	ErrorMessage message  `json:"error_message"`
}

// message is either a plain string or a list of lines
type message string

func (m *message) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*m = message(single)
		return nil
	}

	var lines []string
	if err := json.Unmarshal(data, &lines); err != nil {
		return errors.NewInputError("error_message is neither a string nor a list of strings: %s", err)
	}

	*m = message(strings.Join(lines, "\n"))
	return nil
}

// tagList is either a list of strings (behave) or a list of {"name": ...} objects (cucumber)
type tagList []string

func (t *tagList) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err == nil {
		*t = names
		return nil
	}

	var objects []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &objects); err != nil {
		return errors.NewInputError("tags are neither a list of strings nor a list of objects: %s", err)
	}

	names = make([]string, 0, len(objects))
	for _, object := range objects {
		names = append(names, strings.TrimPrefix(object.Name, "@"))
	}

	*t = names
	return nil
}

// Python's json module happily writes NaN & Infinity, which are not valid JSON.
var nonFiniteNumber = regexp.MustCompile(`([:\[,]\s*)-?(?:NaN|Infinity)\b`)

func replaceNonFiniteNumbers(raw []byte) []byte {
	return nonFiniteNumber.ReplaceAll(raw, []byte("${1}null"))
}

// JSONArrayDecoder decodes a complete JSON document: either an array of features or a single feature object.
type JSONArrayDecoder struct{}

func (d JSONArrayDecoder) Decode(raw []byte) ([]results.TestOutcome, error) {
	raw = replaceNonFiniteNumbers(raw)

	switch {
	case bytes.HasPrefix(raw, []byte("[")):
		var features []BehaveFeature
		if err := json.Unmarshal(raw, &features); err != nil {
			return nil, errors.NewInputError("Unable to parse test output as a JSON array: %s", err)
		}

		return outcomesFromFeatures(features), nil
	case bytes.HasPrefix(raw, []byte("{")):
		var feature BehaveFeature
		if err := json.Unmarshal(raw, &feature); err != nil {
			return nil, errors.NewInputError("Unable to parse test output as a JSON object: %s", err)
		}

		if !feature.isRecord() {
			return nil, errors.NewInputError("JSON object is not a feature record")
		}

		return outcomesFromFeatures([]BehaveFeature{feature}), nil
	default:
		return nil, errors.NewInputError("Test output does not start with a JSON array or object")
	}
}

// NDJSONDecoder decodes newline-delimited feature records. Malformed lines are skipped, which also recovers the
// complete features of an array that was cut short, e.g. because the runner was killed.
type NDJSONDecoder struct{}

func (d NDJSONDecoder) Decode(raw []byte) ([]results.TestOutcome, error) {
	raw = replaceNonFiniteNumbers(raw)

	features := make([]BehaveFeature, 0)
	parsedLines := 0

	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSuffix(strings.TrimSpace(line), ",")
		if line == "" {
			continue
		}

		switch line[0] {
		case '{':
			var feature BehaveFeature
			if err := json.Unmarshal([]byte(line), &feature); err != nil || !feature.isRecord() {
				continue
			}

			features = append(features, feature)
			parsedLines++
		case '[':
			var batch []BehaveFeature
			if err := json.Unmarshal([]byte(line), &batch); err != nil {
				continue
			}

			features = append(features, batch...)
			parsedLines++
		}
	}

	if parsedLines == 0 {
		return nil, errors.NewInputError("No line of the test output contained a JSON record")
	}

	return outcomesFromFeatures(features), nil
}

// isRecord distinguishes feature records from arbitrary JSON objects that were printed by step definitions.
func (f BehaveFeature) isRecord() bool {
	return f.Keyword != "" || len(f.Elements) > 0
}

func outcomesFromFeatures(features []BehaveFeature) []results.TestOutcome {
	outcomes := make([]results.TestOutcome, 0)

	for _, feature := range features {
		for _, element := range feature.Elements {
			if element.Type != "scenario" {
				continue
			}

			outcome := results.NewTestOutcome(
				feature.Name,
				element.Name,
				scenarioStatus(element),
				scenarioDuration(element),
			)
			outcome.Location = element.Location
			outcome.Tags = append([]string(nil), element.Tags...)
			outcome.FailedSteps = failedSteps(element)

			outcomes = append(outcomes, outcome)
		}
	}

	return outcomes
}

func isFailedStepStatus(status string) bool {
	return status == "failed" || status == "error"
}

func scenarioStatus(element BehaveElement) results.Status {
	if element.Steps == nil {
		return results.StatusUnknown
	}

	steps := *element.Steps
	skipped := 0

	for _, step := range steps {
		if step.Result == nil {
			skipped++
			continue
		}

		if isFailedStepStatus(step.Result.Status) {
			return results.StatusFailed
		}

		if results.ParseStatus(step.Result.Status) == results.StatusSkipped {
			skipped++
		}
	}

	if element.Status == "skipped" || (len(steps) > 0 && skipped == len(steps)) {
		return results.StatusSkipped
	}

	return results.StatusPassed
}

func scenarioDuration(element BehaveElement) float64 {
	if element.Steps == nil {
		return 0
	}

	total := 0.0
	for _, step := range *element.Steps {
		if step.Result == nil || step.Result.Duration == nil {
			continue
		}

		total += results.SafeDuration(*step.Result.Duration)
	}

	return results.Round(total, 3)
}

func failedSteps(element BehaveElement) []results.StepFailure {
	if element.Steps == nil {
		return nil
	}

	var failures []results.StepFailure
	for _, step := range *element.Steps {
		if step.Result == nil || !isFailedStepStatus(step.Result.Status) {
			continue
		}

		msg := string(step.Result.ErrorMessage)
		if msg == "" {
			msg = "No error message"
		}

		failures = append(failures, results.StepFailure{
			Keyword:  strings.TrimSpace(step.Keyword),
			Name:     step.Name,
			Location: step.Location,
			Message:  msg,
		})
	}

	return failures
}
