// Package reporting renders run results for humans
package reporting

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ethereum-optimism/infra/op-harness/runner"
	"github.com/ethereum-optimism/infra/op-harness/types"
)

// RenderTable writes a summary table of res to w
func RenderTable(w io.Writer, res *runner.RunnerResult) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(fmt.Sprintf("Harness Results (%s)", formatDuration(res.Duration)))

	t.AppendHeader(table.Row{
		"Type", "ID", "Duration", "Tests", "Passed", "Failed", "Skipped", "Status", "Message",
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Type", AutoMerge: true},
		{Name: "ID", WidthMax: 50},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Tests", Align: text.AlignRight},
		{Name: "Passed", Align: text.AlignRight},
		{Name: "Failed", Align: text.AlignRight},
		{Name: "Skipped", Align: text.AlignRight},
		{Name: "Message", WidthMax: 80},
	})

	for _, suite := range res.Suites {
		t.AppendRow(table.Row{
			"Suite",
			suite.Name,
			formatDuration(suite.Duration),
			"-",
			suite.Tally.Success,
			suite.Tally.Failed,
			suite.Tally.Skipped,
			getResultString(suite.Tally.Status()),
			"",
		})

		for i, c := range suite.Cases {
			prefix := "├──"
			if i == len(suite.Cases)-1 {
				prefix = "└──"
			}
			t.AppendRow(table.Row{
				"Case",
				fmt.Sprintf("%s %s", prefix, c.Name),
				formatDuration(c.Duration),
				"1",
				boolToInt(c.Outcome.Status == types.TestStatusPass),
				boolToInt(c.Outcome.Status == types.TestStatusFail),
				boolToInt(c.Outcome.Status == types.TestStatusSkip),
				getResultString(c.Outcome.Status),
				c.Outcome.Message(),
			})
		}
		t.AppendSeparator()
	}

	switch res.Status {
	case types.TestStatusPass:
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	case types.TestStatusSkip:
		t.SetStyle(table.StyleColoredBlackOnYellowWhite)
	default:
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	}

	t.AppendFooter(table.Row{
		"TOTAL",
		"",
		formatDuration(res.Duration),
		res.Totals.Total(),
		res.Totals.Success,
		res.Totals.Failed,
		res.Totals.Skipped,
		getResultString(res.Status),
		"",
	})

	t.Render()
}

// Summary is a one-line description of a run
func Summary(res *runner.RunnerResult) string {
	return fmt.Sprintf("run %s: %s in %s (%s)",
		res.RunID, res.Status, formatDuration(res.Duration), res.Totals)
}

// Helper function to convert bool to int
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// getResultString returns a string representing the case result
func getResultString(status types.TestStatus) string {
	switch status {
	case types.TestStatusPass:
		return "✓ pass"
	case types.TestStatusSkip:
		return "- skip"
	default:
		return "✗ fail"
	}
}

// Helper function to format duration to seconds with 1 decimal place
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}
