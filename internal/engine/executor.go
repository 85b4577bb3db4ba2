// internal/engine/executor.go
package engine

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/scenario-cli/api/schemas"
	"github.com/xkilldash9x/scenario-cli/internal/assertion"
)

const (
	closeTimeout      = 10 * time.Second
	screenshotTimeout = 10 * time.Second
)

// Executor runs one scenario at a time against a session it acquires from a
// SessionFactory. It is safe for concurrent use: all per-run state lives on
// the stack of Run.
type Executor struct {
	policy      Policy
	logger      *zap.Logger
	screenshots bool
	now         func() time.Time
}

// Option customizes an Executor.
type Option func(*Executor)

// WithScreenshots captures the page after every failed or errored step when
// the backend supports it.
func WithScreenshots(enabled bool) Option {
	return func(e *Executor) { e.screenshots = enabled }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

// New creates an Executor with the given polling policy.
func New(policy Policy, logger *zap.Logger, opts ...Option) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Executor{
		policy: policy.withDefaults(),
		logger: logger.Named("engine"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the effective polling policy.
func (e *Executor) Policy() Policy { return e.policy }

// Run acquires a fresh session, executes every step of sc in order and
// releases the session on every exit path. Failures never surface as a Go
// error: they are recorded in the returned result.
func (e *Executor) Run(ctx context.Context, sc *schemas.Scenario, sessions SessionFactory) schemas.ScenarioResult {
	startedAt := e.now()
	log := e.logger.With(zap.String("scenario", sc.Name()))

	if err := ctx.Err(); err != nil {
		outcome := e.abortOutcome(sc, 0, fmt.Errorf("%w: %v", schemas.ErrCancelled, err))
		return schemas.NewScenarioResult(sc.Name(), []schemas.StepOutcome{outcome}, startedAt, e.now())
	}

	backend, err := sessions.NewSession(ctx)
	if err != nil {
		if ctx.Err() != nil {
			err = fmt.Errorf("%w: %v", schemas.ErrCancelled, ctx.Err())
		} else if !errors.Is(err, schemas.ErrBackendDisconnected) {
			err = fmt.Errorf("%w: acquiring session: %v", schemas.ErrBackendDisconnected, err)
		}
		log.Error("Could not acquire a browser session.", zap.Error(err))
		outcome := e.abortOutcome(sc, 0, err)
		return schemas.NewScenarioResult(sc.Name(), []schemas.StepOutcome{outcome}, startedAt, e.now())
	}
	defer func() {
		// The run context may already be cancelled, the session must still go.
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
		defer cancel()
		if err := backend.Close(closeCtx); err != nil {
			log.Warn("Failed to close browser session cleanly.", zap.Error(err))
		}
	}()

	outcomes := e.RunWithBackend(ctx, sc, backend)
	return schemas.NewScenarioResult(sc.Name(), outcomes, startedAt, e.now())
}

// RunWithBackend executes the steps of sc on an already acquired backend. The
// caller keeps ownership of the backend. Outcomes stop at the first step that
// is not Passed.
func (e *Executor) RunWithBackend(ctx context.Context, sc *schemas.Scenario, backend Backend) []schemas.StepOutcome {
	log := e.logger.With(zap.String("scenario", sc.Name()))
	outcomes := make([]schemas.StepOutcome, 0, sc.Len())

	for i, step := range sc.Steps() {
		// Cancellation is observed at every step boundary.
		if err := ctx.Err(); err != nil {
			log.Warn("Run cancelled, stopping scenario.", zap.Int("step", i))
			outcomes = append(outcomes, e.abortOutcome(sc, i, fmt.Errorf("%w: %v", schemas.ErrCancelled, err)))
			break
		}

		outcome := e.runStep(ctx, i, step, backend)
		if outcome.Status != schemas.StatusPassed {
			log.Warn("Step did not pass, skipping remaining steps.",
				zap.Int("step", i),
				zap.String("action", step.Action().String()),
				zap.String("status", string(outcome.Status)),
				zap.String("detail", string(outcome.Detail)),
				zap.String("message", outcome.Message),
			)
			outcome.Screenshot = e.capture(ctx, sc.Name(), i, backend)
			outcomes = append(outcomes, outcome)
			break
		}
		log.Debug("Step passed.", zap.Int("step", i), zap.String("action", step.Action().String()),
			zap.Int("attempts", outcome.Attempts))
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// runStep dispatches one step and evaluates its assertion.
func (e *Executor) runStep(ctx context.Context, index int, step schemas.Step, backend Backend) schemas.StepOutcome {
	started := e.now()
	action := step.Action()
	outcome := schemas.StepOutcome{
		StepIndex:  index,
		ActionKind: action.Kind(),
		Target:     action.Target(),
	}
	as, hasAssertion := step.Assertion()
	if hasAssertion {
		expected := as.Expected()
		outcome.Assertion = as.Kind()
		outcome.Expected = &expected
	}

	value, attempts, err := e.dispatch(ctx, backend, action)
	outcome.Attempts = attempts

	if err != nil {
		outcome.Status = schemas.StatusErrored
		outcome.Detail = schemas.DetailFor(err)
		outcome.Message = err.Error()
		outcome.Duration = e.now().Sub(started)
		return outcome
	}
	if !value.IsZero() {
		actual := value
		outcome.Actual = &actual
	}

	if !hasAssertion {
		outcome.Status = schemas.StatusPassed
		outcome.Duration = e.now().Sub(started)
		return outcome
	}

	status, err := assertion.Evaluate(as, value)
	outcome.Status = status
	switch {
	case err != nil:
		outcome.Detail = schemas.DetailFor(err)
		outcome.Message = err.Error()
	case status == schemas.StatusFailed:
		outcome.Detail = schemas.DetailAssertionFailed
		outcome.Message = fmt.Sprintf("expected %s %s, got %s", as.Kind(), as.Expected(), value)
	}
	outcome.Duration = e.now().Sub(started)
	return outcome
}

// abortOutcome records a step that could not be attempted at all.
func (e *Executor) abortOutcome(sc *schemas.Scenario, index int, err error) schemas.StepOutcome {
	o := schemas.StepOutcome{
		StepIndex: index,
		Status:    schemas.StatusErrored,
		Detail:    schemas.DetailFor(err),
		Message:   err.Error(),
	}
	if index < sc.Len() {
		a := sc.Step(index).Action()
		o.ActionKind = a.Kind()
		o.Target = a.Target()
	}
	return o
}

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// capture grabs a screenshot for a non-passing step. Failures to capture are
// logged and otherwise ignored.
func (e *Executor) capture(ctx context.Context, scenario string, index int, backend Backend) string {
	if !e.screenshots || ctx.Err() != nil {
		return ""
	}
	shooter, ok := backend.(Screenshotter)
	if !ok {
		return ""
	}
	shotCtx, cancel := context.WithTimeout(ctx, screenshotTimeout)
	defer cancel()

	slug := strings.Trim(unsafeName.ReplaceAllString(strings.ToLower(scenario), "-"), "-")
	path, err := shooter.Screenshot(shotCtx, fmt.Sprintf("%s-step%02d", slug, index))
	if err != nil {
		e.logger.Debug("Failure screenshot not captured.", zap.String("scenario", scenario), zap.Error(err))
		return ""
	}
	return path
}
