package reporting

import (
	"encoding/xml"
	"strings"

	"github.com/acarl005/stripansi"

	"github.com/rwx-research/conductor/internal/errors"
	"github.com/rwx-research/conductor/internal/fs"
	"github.com/rwx-research/conductor/internal/results"
)

type junitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Name       string           `xml:"name,attr,omitempty"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Skipped    int              `xml:"skipped,attr"`
	Time       float64          `xml:"time,attr"`
	TestSuites []junitTestSuite `xml:"testsuite"`
}

type junitTestSuite struct {
	Name      string          `xml:"name,attr"`
	Tests     int             `xml:"tests,attr"`
	Failures  int             `xml:"failures,attr"`
	Errors    int             `xml:"errors,attr"`
	Skipped   int             `xml:"skipped,attr"`
	Time      float64         `xml:"time,attr"`
	Timestamp string          `xml:"timestamp,attr,omitempty"`
	TestCases []junitTestCase `xml:"testcase"`
}

type junitTestCase struct {
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	File      string        `xml:"file,attr,omitempty"`
	Time      float64       `xml:"time,attr"`
	Failure   *junitMessage `xml:"failure,omitempty"`
	Error     *junitMessage `xml:"error,omitempty"`
	Skipped   *junitMessage `xml:"skipped,omitempty"`
}

type junitMessage struct {
	Message  string `xml:"message,attr,omitempty"`
	Contents string `xml:",chardata"`
}

// WriteJUnitSummary writes one test suite per feature and one test case per scenario.
// Scenarios with an unknown status are reported as errors.
func WriteJUnitSummary(file fs.File, set results.ResultSet, cfg Configuration) error {
	suites := junitTestSuites{
		Name:       cfg.suiteName(),
		TestSuites: make([]junitTestSuite, 0, len(set.Features)),
	}

	indexByFeature := make(map[string]int)
	timestamp := cfg.GeneratedAt.Format("2006-01-02T15:04:05")
	if cfg.GeneratedAt.IsZero() {
		timestamp = ""
	}

	for _, scenario := range set.Scenarios {
		index, ok := indexByFeature[scenario.Feature]
		if !ok {
			index = len(suites.TestSuites)
			indexByFeature[scenario.Feature] = index
			suites.TestSuites = append(suites.TestSuites, junitTestSuite{
				Name:      scenario.Feature,
				Timestamp: timestamp,
				TestCases: make([]junitTestCase, 0),
			})
		}

		suite := &suites.TestSuites[index]
		duration := results.Round(results.SafeDuration(scenario.DurationSeconds), 3)

		testCase := junitTestCase{
			Name:      scenario.Scenario,
			Classname: scenario.Feature,
			File:      locationFile(scenario.Location),
			Time:      duration,
		}

		switch scenario.Status {
		case results.StatusFailed:
			testCase.Failure = junitFailure(scenario)
			suite.Failures++
		case results.StatusSkipped:
			testCase.Skipped = &junitMessage{}
			suite.Skipped++
		case results.StatusUnknown:
			testCase.Error = &junitMessage{Message: "The scenario did not report a status"}
			suite.Errors++
		}

		suite.Tests++
		suite.Time = results.Round(suite.Time+duration, 3)
		suite.TestCases = append(suite.TestCases, testCase)

		suites.Tests++
		suites.Time = results.Round(suites.Time+duration, 3)
	}

	for _, suite := range suites.TestSuites {
		suites.Failures += suite.Failures
		suites.Skipped += suite.Skipped
	}

	_, err := file.Write([]byte("<?xml version=\"1.0\" encoding=\"utf-8\"?>\n"))
	if err != nil {
		return errors.WithStack(err)
	}

	encoder := xml.NewEncoder(file)
	encoder.Indent("", "  ")

	if err := encoder.Encode(suites); err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func junitFailure(scenario results.TestOutcome) *junitMessage {
	if len(scenario.FailedSteps) == 0 {
		return &junitMessage{Message: "Scenario failed"}
	}

	contents := make([]string, 0, len(scenario.FailedSteps))
	for _, step := range scenario.FailedSteps {
		contents = append(contents, strings.TrimSpace(step.Keyword+" "+step.Name)+"\n"+stripansi.Strip(step.Message))
	}

	first := scenario.FailedSteps[0]
	message, _, _ := strings.Cut(stripansi.Strip(first.Message), "\n")

	return &junitMessage{Message: message, Contents: strings.Join(contents, "\n\n")}
}

// locationFile drops the line number of a `file:line` location
func locationFile(location string) string {
	file, _, _ := strings.Cut(location, ":")
	return file
}
