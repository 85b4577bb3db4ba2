// File: cmd/helpers_test.go
package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scenario-cli/api/schemas"
	"github.com/xkilldash9x/scenario-cli/internal/config"
	"github.com/xkilldash9x/scenario-cli/internal/engine"
	"github.com/xkilldash9x/scenario-cli/internal/observability"
	"github.com/xkilldash9x/scenario-cli/internal/store"
)

// testConfigYAML keeps step polling short and the logger quiet.
const testConfigYAML = `
logger:
  level: fatal
  format: console
browser:
  screenshots: false
  max_sessions: 2
engine:
  poll_interval: 10ms
  step_timeout: 150ms
  attempt_timeout: 100ms
  concurrency: 2
  run_timeout: 30s
`

// resetForTest provides the single source of truth for resetting test state.
// It moves into a fresh directory holding a test config file.
func resetForTest(t *testing.T) string {
	t.Helper()
	observability.ResetForTest()
	t.Cleanup(observability.ResetForTest)

	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(testConfigYAML), 0o644))
	return dir
}

// executeCommand runs the command tree built from deps with args and
// returns what it printed.
func executeCommand(t *testing.T, deps dependencies, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand(deps)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

// --- Fakes ---

// pageBackend is a browser stand-in whose page only has a title.
type pageBackend struct {
	title  string
	url    string
	closed bool
}

var _ engine.Backend = (*pageBackend)(nil)

func (b *pageBackend) Open(_ context.Context, url string) error { b.url = url; return nil }
func (b *pageBackend) Fill(context.Context, string, string) error {
	return schemas.ErrElementNotFound
}
func (b *pageBackend) Click(context.Context, string) error { return schemas.ErrElementNotFound }
func (b *pageBackend) SelectOption(context.Context, string, string) error {
	return schemas.ErrElementNotFound
}
func (b *pageBackend) GetText(context.Context, string) (string, error) {
	return "", schemas.ErrElementNotFound
}
func (b *pageBackend) GetAttribute(context.Context, string, string) (string, bool, error) {
	return "", false, schemas.ErrElementNotFound
}
func (b *pageBackend) Count(context.Context, string) (int, error) { return 0, nil }
func (b *pageBackend) CurrentURL(context.Context) (string, error) { return b.url, nil }
func (b *pageBackend) Title(context.Context) (string, error)      { return b.title, nil }
func (b *pageBackend) Close(context.Context) error                { b.closed = true; return nil }

// fakeBrowserProvider serves pageBackends and records shutdown.
type fakeBrowserProvider struct {
	title string
	err   error

	mu       sync.Mutex
	sessions int
	shutdown bool
}

func (p *fakeBrowserProvider) NewSessionFactory(config.Interface, *zap.Logger) (engine.SessionFactory, func(), error) {
	if p.err != nil {
		return nil, nil, p.err
	}
	factory := engine.SessionFactoryFunc(func(context.Context) (engine.Backend, error) {
		p.mu.Lock()
		p.sessions++
		p.mu.Unlock()
		return &pageBackend{title: p.title}, nil
	})
	return factory, func() {
		p.mu.Lock()
		p.shutdown = true
		p.mu.Unlock()
	}, nil
}

// fakeStore is an in-memory reportStore.
type fakeStore struct {
	mu        sync.Mutex
	reports   map[string]*schemas.RunReport
	schemaOK  bool
	saveErr   error
	closed    bool
	listLimit int
}

func newFakeStore() *fakeStore {
	return &fakeStore{reports: make(map[string]*schemas.RunReport)}
}

func (s *fakeStore) EnsureSchema(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schemaOK = true
	return nil
}

func (s *fakeStore) SaveReport(_ context.Context, report *schemas.RunReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.reports[report.ID] = report
	return nil
}

func (s *fakeStore) LoadReport(_ context.Context, runID string) (*schemas.RunReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[runID]
	if !ok {
		return nil, store.ErrRunNotFound
	}
	return r, nil
}

func (s *fakeStore) ListRuns(_ context.Context, limit int) ([]store.RunSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listLimit = limit
	var out []store.RunSummary
	for _, r := range s.reports {
		out = append(out, store.RunSummary{ID: r.ID, Suite: r.Suite, StartedAt: r.StartedAt, FinishedAt: r.FinishedAt, Summary: r.Summary})
	}
	return out, nil
}

type fakeStoreProvider struct {
	store *fakeStore
	err   error
}

func (p *fakeStoreProvider) NewStore(context.Context, config.Interface, *zap.Logger) (reportStore, func(), error) {
	if p.err != nil {
		return nil, nil, p.err
	}
	return p.store, func() {
		p.store.mu.Lock()
		p.store.closed = true
		p.store.mu.Unlock()
	}, nil
}
