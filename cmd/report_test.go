// File: cmd/report_test.go
package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/scenario-cli/api/schemas"
	"github.com/xkilldash9x/scenario-cli/internal/config"
	"github.com/xkilldash9x/scenario-cli/internal/store"
)

func storedReport() *schemas.RunReport {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	results := []schemas.ScenarioResult{
		schemas.NewScenarioResult("Page Title", []schemas.StepOutcome{
			{StepIndex: 0, Status: schemas.StatusPassed, ActionKind: schemas.ActionReadTitle, Attempts: 1},
		}, start, start.Add(time.Second)),
		schemas.NewScenarioResult("Invalid Login", []schemas.StepOutcome{
			{StepIndex: 0, Status: schemas.StatusFailed, ActionKind: schemas.ActionReadText, Target: ".error", Detail: schemas.DetailAssertionFailed, Attempts: 4},
		}, start, start.Add(2*time.Second)),
	}
	return &schemas.RunReport{
		ID:         "run-42",
		Suite:      "saucedemo",
		Results:    results,
		Summary:    schemas.Summarize(results),
		StartedAt:  start,
		FinishedAt: start.Add(3 * time.Second),
	}
}

func TestRunReport(t *testing.T) {
	logger := zaptest.NewLogger(t)

	t.Run("renders a stored run", func(t *testing.T) {
		dir := t.TempDir()
		fs := newFakeStore()
		fs.reports["run-42"] = storedReport()

		cfg := config.NewDefaultConfig()
		cfg.SetReportFormat("junit")
		cfg.SetReportOutput(filepath.Join(dir, "junit.xml"))

		err := runReport(context.Background(), logger, cfg, "run-42", &fakeStoreProvider{store: fs})
		require.NoError(t, err)
		assert.True(t, fs.closed)

		doc := etree.NewDocument()
		require.NoError(t, doc.ReadFromFile(filepath.Join(dir, "junit.xml")))
		suite := doc.FindElement("//testsuite")
		require.NotNil(t, suite)
		assert.Equal(t, "run-42", suite.SelectAttrValue("id", ""))
		assert.Equal(t, "1", suite.SelectAttrValue("failures", ""))
	})

	t.Run("unknown run", func(t *testing.T) {
		cfg := config.NewDefaultConfig()
		err := runReport(context.Background(), logger, cfg, "missing", &fakeStoreProvider{store: newFakeStore()})
		require.Error(t, err)
		assert.True(t, errors.Is(err, store.ErrRunNotFound))
	})

	t.Run("store failure", func(t *testing.T) {
		cfg := config.NewDefaultConfig()
		err := runReport(context.Background(), logger, cfg, "run-42", &fakeStoreProvider{err: errors.New("refused")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to initialize store: refused")
	})
}

func TestRunListRuns(t *testing.T) {
	logger := zaptest.NewLogger(t)
	cfg := config.NewDefaultConfig()

	t.Run("empty", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, runListRuns(context.Background(), logger, cfg, 5, &out, &fakeStoreProvider{store: newFakeStore()}))
		assert.Equal(t, "No runs stored.\n", out.String())
	})

	t.Run("table", func(t *testing.T) {
		fs := newFakeStore()
		fs.reports["run-42"] = storedReport()
		var out bytes.Buffer
		require.NoError(t, runListRuns(context.Background(), logger, cfg, 5, &out, &fakeStoreProvider{store: fs}))
		assert.Equal(t, 5, fs.listLimit)
		assert.Contains(t, out.String(), "RUN")
		assert.Contains(t, out.String(), "run-42")
		assert.Contains(t, out.String(), "saucedemo")
		assert.Contains(t, out.String(), "3s")
	})
}

func TestReportCmd(t *testing.T) {
	t.Run("requires a run id", func(t *testing.T) {
		resetForTest(t)
		_, err := executeCommand(t, dependencies{stores: &fakeStoreProvider{store: newFakeStore()}}, "report")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--run-id is required")
	})

	t.Run("flags override config", func(t *testing.T) {
		dir := resetForTest(t)
		fs := newFakeStore()
		fs.reports["run-42"] = storedReport()
		out := filepath.Join(dir, "run.sarif")

		_, err := executeCommand(t, dependencies{stores: &fakeStoreProvider{store: fs}},
			"report", "--run-id", "run-42", "--format", "sarif", "--output", out)
		require.NoError(t, err)

		data, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"version": "2.1.0"`)
		assert.Contains(t, string(data), "scenario/failed/AssertionFailed")
	})

	t.Run("list", func(t *testing.T) {
		resetForTest(t)
		fs := newFakeStore()
		fs.reports["run-42"] = storedReport()
		out, err := executeCommand(t, dependencies{stores: &fakeStoreProvider{store: fs}}, "report", "--list", "--limit", "3")
		require.NoError(t, err)
		assert.Contains(t, out, "run-42")
		assert.Equal(t, 3, fs.listLimit)
	})
}
