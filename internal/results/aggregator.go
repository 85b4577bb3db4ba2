// File: internal/results/aggregator.go
package results

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scenario-cli/api/schemas"
)

// Aggregator collects scenario results for one run and seals them into a
// RunReport. AddResult may be called from many goroutines. Results keep
// the order in which they were added.
type Aggregator struct {
	mu        sync.Mutex
	id        string
	suite     string
	results   []schemas.ScenarioResult
	sealed    bool
	startedAt time.Time
	now       func() time.Time
	logger    *zap.Logger
}

// Option customizes an Aggregator.
type Option func(*Aggregator)

// WithRunID overrides the generated run identifier.
func WithRunID(id string) Option {
	return func(a *Aggregator) { a.id = id }
}

// WithSuite records the name of the suite being run.
func WithSuite(name string) Option {
	return func(a *Aggregator) { a.suite = name }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// NewAggregator starts an empty, open report.
func NewAggregator(logger *zap.Logger, opts ...Option) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Aggregator{
		id:     uuid.NewString(),
		now:    time.Now,
		logger: logger.Named("results"),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.startedAt = a.now()
	return a
}

// RunID is the identifier the sealed report will carry.
func (a *Aggregator) RunID() string { return a.id }

// AddResult appends r. It fails with schemas.ErrReportAlreadySealed once
// Seal has been called.
func (a *Aggregator) AddResult(r schemas.ScenarioResult) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sealed {
		return fmt.Errorf("%w: cannot add %q to run %s", schemas.ErrReportAlreadySealed, r.Name, a.id)
	}
	a.results = append(a.results, r)
	a.logger.Debug("Scenario result recorded.",
		zap.String("run_id", a.id),
		zap.String("scenario", r.Name),
		zap.String("status", string(r.Status)),
	)
	return nil
}

// Len returns the number of results added so far.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.results)
}

// Seal closes the report and returns it with its summary. Sealing twice is
// a contract violation and returns schemas.ErrReportAlreadySealed.
func (a *Aggregator) Seal() (*schemas.RunReport, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sealed {
		return nil, fmt.Errorf("%w: run %s", schemas.ErrReportAlreadySealed, a.id)
	}
	a.sealed = true

	results := a.results
	if results == nil {
		results = []schemas.ScenarioResult{}
	}
	report := &schemas.RunReport{
		ID:         a.id,
		Suite:      a.suite,
		Results:    results,
		Summary:    schemas.Summarize(results),
		StartedAt:  a.startedAt,
		FinishedAt: a.now(),
	}
	a.logger.Info("Run report sealed.",
		zap.String("run_id", a.id),
		zap.Int("total", report.Summary.Total),
		zap.Int("passed", report.Summary.Passed),
		zap.Int("failed", report.Summary.Failed),
		zap.Int("errored", report.Summary.Errored),
	)
	return report, nil
}
