package reporting

import (
	"bytes"
	"errors"
	"time"

	"github.com/xkilldash9x/scenario-cli/api/schemas"
)

// MockWriteCloser allows capturing output and simulating I/O errors.
type MockWriteCloser struct {
	Buffer    *bytes.Buffer
	FailWrite bool
	FailClose bool
	Closed    bool
}

func newMockWriter() *MockWriteCloser {
	return &MockWriteCloser{Buffer: new(bytes.Buffer)}
}

func (m *MockWriteCloser) Write(p []byte) (n int, err error) {
	if m.FailWrite {
		return 0, errors.New("simulated write error")
	}
	return m.Buffer.Write(p)
}

func (m *MockWriteCloser) Close() error {
	m.Closed = true
	if m.FailClose {
		return errors.New("simulated close error")
	}
	return nil
}

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func valuePtr(v schemas.Value) *schemas.Value { return &v }

// sampleReport has one scenario of each status.
func sampleReport() *schemas.RunReport {
	passed := schemas.NewScenarioResult("Page Title", []schemas.StepOutcome{
		{StepIndex: 0, Status: schemas.StatusPassed, ActionKind: schemas.ActionNavigate, Attempts: 1},
		{StepIndex: 1, Status: schemas.StatusPassed, ActionKind: schemas.ActionReadTitle, Attempts: 1,
			Assertion: schemas.AssertEquals, Expected: valuePtr(schemas.StringValue("Swag Labs")), Actual: valuePtr(schemas.StringValue("Swag Labs"))},
	}, t0, t0.Add(1200*time.Millisecond))

	failed := schemas.NewScenarioResult("Invalid Login", []schemas.StepOutcome{
		{StepIndex: 0, Status: schemas.StatusPassed, ActionKind: schemas.ActionNavigate, Attempts: 1},
		{StepIndex: 1, Status: schemas.StatusFailed, ActionKind: schemas.ActionReadText, Target: ".error", Attempts: 1,
			Assertion: schemas.AssertContains, Expected: valuePtr(schemas.StringValue("do not match")), Actual: valuePtr(schemas.StringValue("locked out")),
			Detail: schemas.DetailAssertionFailed, Message: `expected CONTAINS "do not match", got "locked out"`},
	}, t0, t0.Add(2*time.Second))

	errored := schemas.NewScenarioResult("Add to Cart Without Login", []schemas.StepOutcome{
		{StepIndex: 0, Status: schemas.StatusPassed, ActionKind: schemas.ActionNavigate, Attempts: 1},
		{StepIndex: 1, Status: schemas.StatusErrored, ActionKind: schemas.ActionClick, Target: "#add", Attempts: 12,
			Detail: schemas.DetailElementNotFound, Message: "element not found: gave up after 12 attempts", Screenshot: "/tmp/shot.png"},
	}, t0, t0.Add(10*time.Second))
	errored.Attempts = 2

	results := []schemas.ScenarioResult{passed, failed, errored}
	return &schemas.RunReport{
		ID:         "run-1",
		Suite:      "saucedemo",
		Results:    results,
		Summary:    schemas.Summarize(results),
		StartedAt:  t0,
		FinishedAt: t0.Add(10 * time.Second),
	}
}

func passingReport() *schemas.RunReport {
	r := sampleReport()
	r.Results = r.Results[:1]
	r.Summary = schemas.Summarize(r.Results)
	return r
}
