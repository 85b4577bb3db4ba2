package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scenario-cli/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrRunNotFound is returned by LoadReport for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// DBPool is an interface that abstracts the pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store persists sealed run reports in PostgreSQL.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a new store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS runs (
    id          TEXT PRIMARY KEY,
    suite       TEXT NOT NULL DEFAULT '',
    started_at  TIMESTAMPTZ NOT NULL,
    finished_at TIMESTAMPTZ NOT NULL,
    total       INTEGER NOT NULL,
    passed      INTEGER NOT NULL,
    failed      INTEGER NOT NULL,
    errored     INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS scenario_results (
    run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    position    INTEGER NOT NULL,
    name        TEXT NOT NULL,
    status      TEXT NOT NULL,
    attempts    INTEGER NOT NULL,
    started_at  TIMESTAMPTZ NOT NULL,
    finished_at TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (run_id, position)
);
CREATE TABLE IF NOT EXISTS step_outcomes (
    run_id            TEXT NOT NULL,
    scenario_position INTEGER NOT NULL,
    step_index        INTEGER NOT NULL,
    status            TEXT NOT NULL,
    action_kind       TEXT NOT NULL,
    target            TEXT NOT NULL DEFAULT '',
    assertion         TEXT NOT NULL DEFAULT '',
    expected          JSONB,
    actual            JSONB,
    detail            TEXT NOT NULL DEFAULT '',
    message           TEXT NOT NULL DEFAULT '',
    attempts          INTEGER NOT NULL,
    duration_ns       BIGINT NOT NULL,
    screenshot        TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (run_id, scenario_position, step_index),
    FOREIGN KEY (run_id, scenario_position) REFERENCES scenario_results(run_id, position) ON DELETE CASCADE
);
`

// EnsureSchema creates the report tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

const (
	sqlInsertRun = `
        INSERT INTO runs (id, suite, started_at, finished_at, total, passed, failed, errored)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
    `
	sqlInsertScenario = `
        INSERT INTO scenario_results (run_id, position, name, status, attempts, started_at, finished_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7);
    `
)

var outcomeColumns = []string{
	"run_id", "scenario_position", "step_index", "status", "action_kind", "target", "assertion",
	"expected", "actual", "detail", "message", "attempts", "duration_ns", "screenshot",
}

// SaveReport writes a sealed report in one transaction.
func (s *Store) SaveReport(ctx context.Context, report *schemas.RunReport) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		// Rollback after a successful commit returns ErrTxClosed.
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	sum := report.Summary
	if _, err := tx.Exec(ctx, sqlInsertRun,
		report.ID, report.Suite, report.StartedAt.UTC(), report.FinishedAt.UTC(),
		sum.Total, sum.Passed, sum.Failed, sum.Errored,
	); err != nil {
		return fmt.Errorf("failed to insert run %s: %w", report.ID, err)
	}

	if err := s.persistScenarios(ctx, tx, report); err != nil {
		return err
	}
	if err := s.persistOutcomes(ctx, tx, report); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.log.Info("Run report persisted.", zap.String("run_id", report.ID), zap.Int("scenarios", len(report.Results)))
	return nil
}

func (s *Store) persistScenarios(ctx context.Context, tx pgx.Tx, report *schemas.RunReport) error {
	if len(report.Results) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for i, r := range report.Results {
		batch.Queue(sqlInsertScenario, report.ID, i, r.Name, string(r.Status), r.Attempts, r.StartedAt.UTC(), r.FinishedAt.UTC())
	}

	br := tx.SendBatch(ctx, batch)
	if br == nil {
		return fmt.Errorf("failed to send batch: batch results is nil")
	}
	defer func() {
		_ = br.Close()
	}()

	for i := range report.Results {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to insert scenario %q (index %d): %w", report.Results[i].Name, i, err)
		}
	}
	return nil
}

func (s *Store) persistOutcomes(ctx context.Context, tx pgx.Tx, report *schemas.RunReport) error {
	var rows [][]interface{}
	for i, r := range report.Results {
		for _, o := range r.Outcomes {
			expected, err := encodeValue(o.Expected)
			if err != nil {
				return err
			}
			actual, err := encodeValue(o.Actual)
			if err != nil {
				return err
			}
			rows = append(rows, []interface{}{
				report.ID, i, o.StepIndex, string(o.Status), string(o.ActionKind), o.Target, string(o.Assertion),
				expected, actual, string(o.Detail), o.Message, o.Attempts, int64(o.Duration), o.Screenshot,
			})
		}
	}
	if len(rows) == 0 {
		return nil
	}

	copyCount, err := tx.CopyFrom(ctx, pgx.Identifier{"step_outcomes"}, outcomeColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to copy step outcomes: %w", err)
	}
	if int(copyCount) != len(rows) {
		return fmt.Errorf("mismatch in copied step outcomes count: expected %d, got %d", len(rows), copyCount)
	}
	return nil
}

// encodeValue renders an optional value as JSONB; nil stays NULL.
func encodeValue(v *schemas.Value) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode value: %w", err)
	}
	return data, nil
}

func decodeValue(data []byte) (*schemas.Value, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var v schemas.Value
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to decode value: %w", err)
	}
	return &v, nil
}

const (
	sqlSelectRun = `
        SELECT suite, started_at, finished_at
        FROM runs
        WHERE id = $1;
    `
	sqlSelectScenarios = `
        SELECT position, name, status, attempts, started_at, finished_at
        FROM scenario_results
        WHERE run_id = $1
        ORDER BY position ASC;
    `
	sqlSelectOutcomes = `
        SELECT scenario_position, step_index, status, action_kind, target, assertion,
               expected, actual, detail, message, attempts, duration_ns, screenshot
        FROM step_outcomes
        WHERE run_id = $1
        ORDER BY scenario_position ASC, step_index ASC;
    `
)

// LoadReport reconstructs a persisted report. The summary is recomputed
// from the stored results.
func (s *Store) LoadReport(ctx context.Context, runID string) (*schemas.RunReport, error) {
	report := &schemas.RunReport{ID: runID}
	err := s.pool.QueryRow(ctx, sqlSelectRun, runID).Scan(&report.Suite, &report.StartedAt, &report.FinishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}

	results, err := s.loadScenarios(ctx, runID)
	if err != nil {
		return nil, err
	}
	if err := s.loadOutcomes(ctx, runID, results); err != nil {
		return nil, err
	}
	report.Results = results
	report.Summary = schemas.Summarize(results)
	return report, nil
}

func (s *Store) loadScenarios(ctx context.Context, runID string) ([]schemas.ScenarioResult, error) {
	rows, err := s.pool.Query(ctx, sqlSelectScenarios, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query scenario results: %w", err)
	}
	defer rows.Close()

	results := []schemas.ScenarioResult{}
	for rows.Next() {
		var (
			position int
			r        schemas.ScenarioResult
			status   string
		)
		if err := rows.Scan(&position, &r.Name, &status, &r.Attempts, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan scenario row: %w", err)
		}
		if position != len(results) {
			return nil, fmt.Errorf("scenario positions for run %s are not contiguous at %d", runID, position)
		}
		r.Status = schemas.StepStatus(status)
		r.Outcomes = []schemas.StepOutcome{}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return results, nil
}

func (s *Store) loadOutcomes(ctx context.Context, runID string, results []schemas.ScenarioResult) error {
	rows, err := s.pool.Query(ctx, sqlSelectOutcomes, runID)
	if err != nil {
		return fmt.Errorf("failed to query step outcomes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			position                        int
			o                               schemas.StepOutcome
			status, kind, assertion, detail string
			expected, actual                []byte
			durationNS                      int64
		)
		if err := rows.Scan(&position, &o.StepIndex, &status, &kind, &o.Target, &assertion,
			&expected, &actual, &detail, &o.Message, &o.Attempts, &durationNS, &o.Screenshot); err != nil {
			return fmt.Errorf("failed to scan step outcome row: %w", err)
		}
		if position < 0 || position >= len(results) {
			return fmt.Errorf("step outcome references unknown scenario position %d", position)
		}
		if o.Expected, err = decodeValue(expected); err != nil {
			return err
		}
		if o.Actual, err = decodeValue(actual); err != nil {
			return err
		}
		o.Status = schemas.StepStatus(status)
		o.ActionKind = schemas.ActionKind(kind)
		o.Assertion = schemas.AssertionKind(assertion)
		o.Detail = schemas.OutcomeDetail(detail)
		o.Duration = time.Duration(durationNS)
		results[position].Outcomes = append(results[position].Outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error during row iteration: %w", err)
	}
	return nil
}

// RunSummary is one line of the run history.
type RunSummary struct {
	ID         string
	Suite      string
	StartedAt  time.Time
	FinishedAt time.Time
	Summary    schemas.Summary
}

const sqlListRuns = `
    SELECT id, suite, started_at, finished_at, total, passed, failed, errored
    FROM runs
    ORDER BY started_at DESC
    LIMIT $1;
`

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, sqlListRuns, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.Suite, &r.StartedAt, &r.FinishedAt,
			&r.Summary.Total, &r.Summary.Passed, &r.Summary.Failed, &r.Summary.Errored); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return runs, nil
}
