package main

// These constants hold the "long" description of a subcommand. These get printed when running `--help`, for example.
const (
	descriptionConductor = `conductor orchestrates BDD test suites: it decides what to run, runs groups of
scenarios in parallel, retries transient failures, detects flaky tests, and turns
the results into reports.`

	descriptionRun = `'conductor run' executes the BDD suite and builds every report afterwards.

Example use:

	conductor run --test-type api --retry

	conductor run --parallel 4 --browser firefox --env stg

	conductor run --groups-file groups.yaml --analyze-flakiness`

	descriptionReport = `'conductor report' builds the HTML, JSON, JUnit, and Markdown reports from existing result
files, e.g. after a run was interrupted.

Example use:

	conductor report --save-history

	conductor report --results reports/api_results.json`

	descriptionFlakiness = `'conductor flakiness' inspects the recorded history of every test.

Example use:

	conductor flakiness analyze --flakiness-threshold 0.2

	conductor flakiness clear`

	descriptionTrend = `'conductor trend' charts pass rates & durations of the recorded runs.

Example use:

	conductor trend --reports-dir reports`
)
