package schemas

import "time"

// StepStatus is the outcome classification of a step or a scenario.
type StepStatus string

const (
	StatusPassed StepStatus = "PASSED"
	// StatusFailed means an expectation was violated (a real regression).
	StatusFailed StepStatus = "FAILED"
	// StatusErrored means infrastructure or authoring trouble kept the step
	// from being judged (flakiness, crashes, bad scenario definitions).
	StatusErrored StepStatus = "ERRORED"
)

// OutcomeDetail explains a non-passing outcome.
type OutcomeDetail string

const (
	DetailNone                OutcomeDetail = ""
	DetailAssertionFailed     OutcomeDetail = "AssertionFailed"
	DetailTypeMismatch        OutcomeDetail = "TypeMismatch"
	DetailElementNotFound     OutcomeDetail = "ElementNotFound"
	DetailTimeout             OutcomeDetail = "Timeout"
	DetailNavigation          OutcomeDetail = "NavigationFailed"
	DetailBackendDisconnected OutcomeDetail = "BackendDisconnected"
	DetailBackendError        OutcomeDetail = "BackendError"
	DetailCancelled           OutcomeDetail = "Cancelled"
)

// StepOutcome is recorded once per attempted step.
type StepOutcome struct {
	StepIndex  int           `json:"step_index"`
	Status     StepStatus    `json:"status"`
	ActionKind ActionKind    `json:"action_kind"`
	Target     string        `json:"target,omitempty"`
	Expected   *Value        `json:"expected,omitempty"`
	Assertion  AssertionKind `json:"assertion,omitempty"`
	Actual     *Value        `json:"actual,omitempty"`
	Detail     OutcomeDetail `json:"detail,omitempty"`
	Message    string        `json:"message,omitempty"`
	Attempts   int           `json:"attempts"`
	Duration   time.Duration `json:"duration"`
	Screenshot string        `json:"screenshot,omitempty"`
}

// ScenarioResult is the recorded outcome of running one scenario once.
type ScenarioResult struct {
	Name       string        `json:"name"`
	Status     StepStatus    `json:"status"`
	Outcomes   []StepOutcome `json:"outcomes"`
	Attempts   int           `json:"attempts"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}

// NewScenarioResult seals outcomes into a result with its derived status.
func NewScenarioResult(name string, outcomes []StepOutcome, startedAt, finishedAt time.Time) ScenarioResult {
	if outcomes == nil {
		outcomes = []StepOutcome{}
	}
	return ScenarioResult{
		Name:       name,
		Status:     DeriveStatus(outcomes),
		Outcomes:   outcomes,
		Attempts:   1,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
	}
}

// DeriveStatus folds step outcomes into a scenario status. Errored wins over
// Failed so that infrastructure trouble is never reported as a regression.
func DeriveStatus(outcomes []StepOutcome) StepStatus {
	status := StatusPassed
	for _, o := range outcomes {
		switch o.Status {
		case StatusErrored:
			return StatusErrored
		case StatusFailed:
			status = StatusFailed
		}
	}
	return status
}

// Terminal returns the last outcome, which is the failing one for any
// non-passing scenario.
func (r ScenarioResult) Terminal() (StepOutcome, bool) {
	if len(r.Outcomes) == 0 {
		return StepOutcome{}, false
	}
	return r.Outcomes[len(r.Outcomes)-1], true
}

// Summary counts scenarios per status.
type Summary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Errored int `json:"errored"`
	Steps   int `json:"steps"`
}

// RunReport is the sealed aggregate of a run. Results keep the order in
// which scenarios were added. Consumers treat it as read-only.
type RunReport struct {
	ID         string           `json:"id"`
	Suite      string           `json:"suite,omitempty"`
	Results    []ScenarioResult `json:"results"`
	Summary    Summary          `json:"summary"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
}

// OK reports whether every scenario passed.
func (r *RunReport) OK() bool {
	return r.Summary.Failed == 0 && r.Summary.Errored == 0
}

// Summarize folds results in order into a Summary.
func Summarize(results []ScenarioResult) Summary {
	var s Summary
	for _, r := range results {
		s.Total++
		s.Steps += len(r.Outcomes)
		switch r.Status {
		case StatusPassed:
			s.Passed++
		case StatusFailed:
			s.Failed++
		default:
			s.Errored++
		}
	}
	return s
}
