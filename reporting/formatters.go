package reporting

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ethereum-optimism/craft-report/types"
)

// StatusDisplay represents display information for a test status
type StatusDisplay struct {
	Text  string // Human-readable status text
	Class string // CSS class or style identifier
}

// GetStatusDisplay returns human-readable status text and CSS class
func GetStatusDisplay(status types.TestStatus) StatusDisplay {
	switch status {
	case types.TestStatusPassed:
		return StatusDisplay{Text: "✓ pass", Class: "passed"}
	case types.TestStatusFailed:
		return StatusDisplay{Text: "✗ fail", Class: "failed"}
	case types.TestStatusTimedOut:
		return StatusDisplay{Text: "✗ timeout", Class: "timedOut"}
	case types.TestStatusSkipped:
		return StatusDisplay{Text: "- skip", Class: "skipped"}
	default:
		return StatusDisplay{Text: "? unknown", Class: "unknown"}
	}
}

// FormatDuration formats a duration for display
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Truncate(time.Millisecond).String()
}

// SummaryTableFormatter renders the end-of-run console summary
type SummaryTableFormatter struct {
	maxErrorWidth int
}

// NewSummaryTableFormatter creates a formatter for the console summary
func NewSummaryTableFormatter() *SummaryTableFormatter {
	return &SummaryTableFormatter{maxErrorWidth: 80}
}

// Format renders the totals table, followed by a table of failed tests when there are any.
// artifacts may be nil when nothing was written.
func (f *SummaryTableFormatter) Format(summary *types.RunSummary, artifacts *Artifacts) string {
	var buf bytes.Buffer

	t := table.NewWriter()
	t.SetOutputMirror(&buf)
	t.Style().Format.Footer = text.FormatDefault
	t.SetTitle(fmt.Sprintf("%s (%s)", summary.Title, FormatDuration(summary.Duration())))
	t.AppendHeader(table.Row{"Total", "Passed", "Failed", "Skipped", "Retried", "Duration"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Total", Align: text.AlignRight},
		{Name: "Passed", Align: text.AlignRight},
		{Name: "Failed", Align: text.AlignRight},
		{Name: "Skipped", Align: text.AlignRight},
		{Name: "Retried", Align: text.AlignRight},
		{Name: "Duration", Align: text.AlignRight},
	})
	t.AppendRow(table.Row{
		summary.Total,
		summary.Passed,
		summary.Failed,
		summary.Skipped,
		summary.Flaky,
		FormatDuration(summary.Duration()),
	})
	if artifacts != nil {
		t.AppendFooter(table.Row{
			"Report", fmt.Sprintf("%s (%s)", artifacts.DocumentPath, humanize.Bytes(uint64(artifacts.DocumentSize))),
		})
		t.AppendFooter(table.Row{
			"Data", fmt.Sprintf("%s (%s)", artifacts.DataPath, humanize.Bytes(uint64(artifacts.DataSize))),
		})
	}
	t.Render()

	failed := summary.FailedTests()
	if len(failed) == 0 {
		return buf.String()
	}

	ft := table.NewWriter()
	ft.SetOutputMirror(&buf)
	ft.SetTitle(fmt.Sprintf("Failed tests (%d)", len(failed)))
	ft.AppendHeader(table.Row{"Test", "Status", "Duration", "Retry", "Error"})
	ft.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Test", WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Retry", Align: text.AlignRight},
		{Name: "Error", WidthMax: f.maxErrorWidth, WidthMaxEnforcer: text.WrapSoft},
	})
	for _, test := range failed {
		name := test.FullTitle
		if name == "" {
			name = test.Title
		}
		ft.AppendRow(table.Row{
			name,
			GetStatusDisplay(test.Status).Text,
			FormatDuration(test.Duration()),
			test.Retry,
			firstLine(test.Error),
		})
	}
	ft.Render()

	return buf.String()
}

// PrintSummary writes the console summary to w
func PrintSummary(w io.Writer, summary *types.RunSummary, artifacts *Artifacts) error {
	_, err := io.WriteString(w, NewSummaryTableFormatter().Format(summary, artifacts))
	return err
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
