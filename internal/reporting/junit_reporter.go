// internal/reporting/junit_reporter.go
package reporting

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scenario-cli/api/schemas"
)

// JUnitReporter renders reports as JUnit XML for CI dashboards. Each report
// becomes one <testsuite>, each scenario one <testcase>. The document is
// written on Close.
type JUnitReporter struct {
	writer io.WriteCloser
	logger *zap.Logger

	mu     sync.Mutex
	doc    *etree.Document
	suites *etree.Element
	totals schemas.Summary
}

func NewJUnitReporter(writer io.WriteCloser, logger *zap.Logger) *JUnitReporter {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	suites := doc.CreateElement("testsuites")
	suites.CreateAttr("name", "scenario-cli")
	return &JUnitReporter{
		writer: writer,
		logger: logger.Named("junit_reporter"),
		doc:    doc,
		suites: suites,
	}
}

func (r *JUnitReporter) Write(report *schemas.RunReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := report.Suite
	if name == "" {
		name = "scenarios"
	}
	ts := r.suites.CreateElement("testsuite")
	ts.CreateAttr("name", name)
	ts.CreateAttr("id", report.ID)
	ts.CreateAttr("tests", strconv.Itoa(report.Summary.Total))
	ts.CreateAttr("failures", strconv.Itoa(report.Summary.Failed))
	ts.CreateAttr("errors", strconv.Itoa(report.Summary.Errored))
	ts.CreateAttr("timestamp", report.StartedAt.UTC().Format(time.RFC3339))
	ts.CreateAttr("time", seconds(report.FinishedAt.Sub(report.StartedAt)))

	for _, res := range report.Results {
		tc := ts.CreateElement("testcase")
		tc.CreateAttr("name", res.Name)
		tc.CreateAttr("classname", name)
		tc.CreateAttr("time", seconds(res.FinishedAt.Sub(res.StartedAt)))

		last, ok := res.Terminal()
		if !ok || res.Status == schemas.StatusPassed {
			continue
		}
		tag := "failure"
		if res.Status == schemas.StatusErrored {
			tag = "error"
		}
		el := tc.CreateElement(tag)
		el.CreateAttr("type", string(last.Detail))
		el.CreateAttr("message", describe(last))
		el.SetText(stepTrace(res))
	}

	r.totals.Total += report.Summary.Total
	r.totals.Failed += report.Summary.Failed
	r.totals.Errored += report.Summary.Errored
	return nil
}

// stepTrace lists every attempted step so the CI log shows how far the
// scenario got.
func stepTrace(res schemas.ScenarioResult) string {
	var b strings.Builder
	for _, o := range res.Outcomes {
		fmt.Fprintf(&b, "step %d %s %s", o.StepIndex, o.Status, stepLabel(o))
		if o.Status != schemas.StatusPassed {
			fmt.Fprintf(&b, ": %s", describe(o))
		}
		b.WriteByte('\n')
	}
	if last, ok := res.Terminal(); ok && last.Screenshot != "" {
		fmt.Fprintf(&b, "screenshot: %s\n", last.Screenshot)
	}
	return b.String()
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}

func (r *JUnitReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.suites.CreateAttr("tests", strconv.Itoa(r.totals.Total))
	r.suites.CreateAttr("failures", strconv.Itoa(r.totals.Failed))
	r.suites.CreateAttr("errors", strconv.Itoa(r.totals.Errored))
	r.doc.Indent(2)

	_, writeErr := r.doc.WriteTo(r.writer)
	closeErr := r.writer.Close()
	if writeErr != nil {
		r.logger.Error("Failed to write JUnit report", zap.Error(writeErr))
		return fmt.Errorf("failed to write JUnit output: %w", writeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close output writer: %w", closeErr)
	}
	return nil
}
