// File: internal/orchestrator/orchestrator.go
// Description: Runs a batch of scenarios through the engine with bounded
// parallelism and folds their results into one sealed run report.

package orchestrator

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/xkilldash9x/scenario-cli/api/schemas"
	"github.com/xkilldash9x/scenario-cli/internal/config"
	"github.com/xkilldash9x/scenario-cli/internal/engine"
	"github.com/xkilldash9x/scenario-cli/internal/observability"
	"github.com/xkilldash9x/scenario-cli/internal/results"
)

const persistTimeout = 30 * time.Second

// ScenarioRunner executes one scenario on a session drawn from sessions.
// *engine.Executor is the production implementation.
type ScenarioRunner interface {
	Run(ctx context.Context, sc *schemas.Scenario, sessions engine.SessionFactory) schemas.ScenarioResult
}

// ReportSink persists sealed reports. *store.Store implements it.
type ReportSink interface {
	SaveReport(ctx context.Context, report *schemas.RunReport) error
}

// Orchestrator runs scenarios concurrently, each in its own session.
type Orchestrator struct {
	runner      ScenarioRunner
	sessions    engine.SessionFactory
	logger      *zap.Logger
	concurrency int
	maxSessions int
	retries     int
	sink        ReportSink
	suite       string
	runID       string
	onResult    func(schemas.ScenarioResult)
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithConcurrency sets the number of scenarios run at once.
func WithConcurrency(n int) Option { return func(o *Orchestrator) { o.concurrency = n } }

// WithMaxSessions caps the number of browser sessions open at once.
func WithMaxSessions(n int) Option { return func(o *Orchestrator) { o.maxSessions = n } }

// WithScenarioRetries re-runs a scenario on a fresh session, up to n more
// times, when its backend disconnected.
func WithScenarioRetries(n int) Option { return func(o *Orchestrator) { o.retries = n } }

// WithReportSink persists every sealed report.
func WithReportSink(sink ReportSink) Option { return func(o *Orchestrator) { o.sink = sink } }

// WithSuiteName labels reports with the suite they came from.
func WithSuiteName(name string) Option { return func(o *Orchestrator) { o.suite = name } }

// WithRunID fixes the run identifier instead of generating one.
func WithRunID(id string) Option { return func(o *Orchestrator) { o.runID = id } }

// WithResultHook is called once per scenario as soon as it finishes, from
// the worker goroutine.
func WithResultHook(fn func(schemas.ScenarioResult)) Option {
	return func(o *Orchestrator) { o.onResult = fn }
}

// FromConfig applies the engine and browser limits from cfg.
func FromConfig(cfg config.Interface) Option {
	return func(o *Orchestrator) {
		o.concurrency = cfg.Engine().Concurrency
		o.retries = cfg.Engine().ScenarioRetries
		o.maxSessions = cfg.Browser().MaxSessions
	}
}

// New creates an Orchestrator. runner and sessions are required.
func New(runner ScenarioRunner, sessions engine.SessionFactory, logger *zap.Logger, opts ...Option) (*Orchestrator, error) {
	if runner == nil || sessions == nil {
		return nil, fmt.Errorf("cannot initialize orchestrator with nil dependencies")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &Orchestrator{
		runner:      runner,
		sessions:    sessions,
		logger:      logger.Named("orchestrator"),
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.concurrency < 1 {
		o.concurrency = 1
	}
	if o.maxSessions < 1 {
		o.maxSessions = o.concurrency
	}
	if o.retries < 0 {
		o.retries = 0
	}
	return o, nil
}

// Run executes every scenario and returns the sealed report. Results appear
// in input order regardless of completion order. A non-nil error means the
// report could not be sealed or persisted; in the latter case the report is
// still returned.
func (o *Orchestrator) Run(ctx context.Context, scenarios []*schemas.Scenario) (*schemas.RunReport, error) {
	aggOpts := []results.Option{results.WithSuite(o.suite)}
	if o.runID != "" {
		aggOpts = append(aggOpts, results.WithRunID(o.runID))
	}
	agg := results.NewAggregator(o.logger, aggOpts...)
	runID := agg.RunID()

	o.logger.Info("Starting run.",
		zap.String("run_id", runID),
		zap.String("suite", o.suite),
		zap.Int("scenarios", len(scenarios)),
		zap.Int("concurrency", o.concurrency),
		zap.Int("max_sessions", o.maxSessions),
	)

	collected := make([]schemas.ScenarioResult, len(scenarios))
	slots := semaphore.NewWeighted(int64(o.maxSessions))
	jobs := make(chan int)

	workers := o.concurrency
	if workers > len(scenarios) {
		workers = len(scenarios)
	}
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				collected[i] = o.runOne(ctx, runID, scenarios[i], slots)
				if o.onResult != nil {
					o.onResult(collected[i])
				}
			}
		}()
	}
	for i := range scenarios {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for _, r := range collected {
		if err := agg.AddResult(r); err != nil {
			return nil, err
		}
	}
	report, err := agg.Seal()
	if err != nil {
		return nil, err
	}

	if o.sink != nil {
		// An interrupted run is still worth keeping.
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
		defer cancel()
		if err := o.sink.SaveReport(saveCtx, report); err != nil {
			o.logger.Error("Failed to persist run report.", zap.String("run_id", runID), zap.Error(err))
			return report, fmt.Errorf("persisting run %s: %w", runID, err)
		}
		o.logger.Info("Run report persisted.", zap.String("run_id", runID))
	}
	return report, nil
}

// runOne runs a single scenario inside a session slot, retrying on backend
// disconnects. It never panics and never returns without a result.
func (o *Orchestrator) runOne(ctx context.Context, runID string, sc *schemas.Scenario, slots *semaphore.Weighted) (result schemas.ScenarioResult) {
	if err := ctx.Err(); err != nil {
		return cancelledResult(sc, err)
	}
	if err := slots.Acquire(ctx, 1); err != nil {
		return cancelledResult(sc, err)
	}
	defer slots.Release(1)

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("Panic while running scenario.",
				zap.String("run_id", runID),
				zap.String("scenario", sc.Name()),
				zap.Any("panic_reason", r),
				zap.String("stack", string(debug.Stack())),
			)
			result = firstStepErrored(sc, schemas.DetailBackendError, fmt.Sprintf("panic: %v", r))
		}
	}()

	for attempt := 1; ; attempt++ {
		log := o.logger.With(observability.ScenarioFields(runID, sc.Name(), attempt)...)
		log.Debug("Running scenario.")

		result = o.runner.Run(ctx, sc, o.sessions)
		result.Attempts = attempt

		terminal, _ := result.Terminal()
		if terminal.Detail != schemas.DetailBackendDisconnected || attempt > o.retries || ctx.Err() != nil {
			log.Info("Scenario finished.",
				zap.String("status", string(result.Status)),
				zap.Int("steps", len(result.Outcomes)),
				zap.Duration("elapsed", result.FinishedAt.Sub(result.StartedAt)),
			)
			return result
		}
		log.Warn("Backend disconnected, retrying scenario on a fresh session.",
			zap.String("message", terminal.Message))
	}
}

// cancelledResult records a scenario the run never got to.
func cancelledResult(sc *schemas.Scenario, cause error) schemas.ScenarioResult {
	err := fmt.Errorf("%w: scenario not started: %v", schemas.ErrCancelled, cause)
	result := firstStepErrored(sc, schemas.DetailFor(err), err.Error())
	result.Attempts = 0
	return result
}

// firstStepErrored builds a result whose only outcome is an error charged to
// the scenario's first step, labelled with that step's action.
func firstStepErrored(sc *schemas.Scenario, detail schemas.OutcomeDetail, message string) schemas.ScenarioResult {
	outcome := schemas.StepOutcome{
		StepIndex: 0,
		Status:    schemas.StatusErrored,
		Detail:    detail,
		Message:   message,
	}
	if sc.Len() > 0 {
		a := sc.Step(0).Action()
		outcome.ActionKind = a.Kind()
		outcome.Target = a.Target()
	}
	now := time.Now()
	return schemas.NewScenarioResult(sc.Name(), []schemas.StepOutcome{outcome}, now, now)
}

// IsInterrupted reports whether a report contains scenarios cut short by
// cancellation.
func IsInterrupted(report *schemas.RunReport) bool {
	for _, r := range report.Results {
		if t, ok := r.Terminal(); ok && t.Detail == schemas.DetailCancelled {
			return true
		}
	}
	return false
}

var _ ScenarioRunner = (*engine.Executor)(nil)
