package runner

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// PrintSummary renders the results of a parallel run, sorted by group name
func PrintSummary(w io.Writer, summary ParallelSummary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Parallel Execution Summary")
	t.AppendHeader(table.Row{"Group", "Status", "Duration", "Exit Code", "Error"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Exit Code", Align: text.AlignRight},
		{Name: "Error", WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
	})

	for _, result := range summary.SortedByName().GroupResults {
		status := "PASSED"
		if !result.Success {
			status = "FAILED"
			if result.State == StateTimedOut || result.State == StateErrored {
				status = fmt.Sprintf("FAILED (%s)", result.State)
			}
		}

		t.AppendRow(table.Row{
			result.GroupName,
			status,
			fmt.Sprintf("%.2fs", result.DurationSeconds),
			result.ReturnCode,
			result.Error,
		})
	}

	t.AppendFooter(table.Row{
		fmt.Sprintf("%d group(s)", summary.TotalGroups),
		fmt.Sprintf("%d passed, %d failed", summary.Passed, summary.Failed),
		fmt.Sprintf("%.2fs", summary.TotalDurationSeconds),
		"",
		"",
	})

	t.SetStyle(table.StyleLight)
	t.Render()
}
