// internal/reporting/text_reporter.go
package reporting

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/xkilldash9x/scenario-cli/api/schemas"
	"github.com/xkilldash9x/scenario-cli/internal/results"
)

// TextReporter writes the human summary: one line per scenario, then the
// failing step of every non-passing scenario, errored first.
type TextReporter struct {
	writer io.WriteCloser
}

func NewTextReporter(writer io.WriteCloser) *TextReporter {
	return &TextReporter{writer: writer}
}

func (r *TextReporter) Write(report *schemas.RunReport) error {
	tw := tabwriter.NewWriter(r.writer, 0, 4, 2, ' ', 0)

	title := report.Suite
	if title == "" {
		title = "scenarios"
	}
	fmt.Fprintf(tw, "Run %s (%s)\n\n", report.ID, title)
	for _, res := range report.Results {
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", res.Status, res.Name, res.FinishedAt.Sub(res.StartedAt).Round(time.Millisecond))
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to write text report: %w", err)
	}

	failures := results.Failures(report)
	if len(failures) > 0 {
		fmt.Fprintf(r.writer, "\nFailures:\n")
	}
	for _, res := range failures {
		fmt.Fprintf(r.writer, "\n  %s [%s]\n", res.Name, res.Status)
		last, ok := res.Terminal()
		if !ok {
			continue
		}
		fmt.Fprintf(r.writer, "    step %d: %s\n", last.StepIndex, stepLabel(last))
		fmt.Fprintf(r.writer, "    %s: %s\n", last.Detail, describe(last))
		if res.Attempts > 1 {
			fmt.Fprintf(r.writer, "    attempts: %d\n", res.Attempts)
		}
		if last.Screenshot != "" {
			fmt.Fprintf(r.writer, "    screenshot: %s\n", last.Screenshot)
		}
	}

	s := report.Summary
	_, err := fmt.Fprintf(r.writer, "\n%d scenarios, %d passed, %d failed, %d errored (%d steps) in %s\n",
		s.Total, s.Passed, s.Failed, s.Errored, s.Steps, report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	if err != nil {
		return fmt.Errorf("failed to write text report: %w", err)
	}
	return nil
}

func (r *TextReporter) Close() error {
	return r.writer.Close()
}
