// File: internal/mocks/mocks.go
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/scenario-cli/api/schemas"
	"github.com/xkilldash9x/scenario-cli/internal/config"
	"github.com/xkilldash9x/scenario-cli/internal/engine"
)

// -- Config Mock --

// MockConfig mocks the config.Interface.
type MockConfig struct {
	mock.Mock
}

// --- Getters ---

func (m *MockConfig) Logger() config.LoggerConfig {
	args := m.Called()
	return args.Get(0).(config.LoggerConfig)
}

func (m *MockConfig) Browser() config.BrowserConfig {
	args := m.Called()
	return args.Get(0).(config.BrowserConfig)
}

func (m *MockConfig) Engine() config.EngineConfig {
	args := m.Called()
	return args.Get(0).(config.EngineConfig)
}

func (m *MockConfig) Database() config.DatabaseConfig {
	args := m.Called()
	return args.Get(0).(config.DatabaseConfig)
}

func (m *MockConfig) Report() config.ReportConfig {
	args := m.Called()
	return args.Get(0).(config.ReportConfig)
}

// --- Setters ---

func (m *MockConfig) SetBrowserHeadless(b bool)  { m.Called(b) }
func (m *MockConfig) SetEngineConcurrency(n int) { m.Called(n) }
func (m *MockConfig) SetReportFormat(f string)   { m.Called(f) }
func (m *MockConfig) SetReportOutput(p string)   { m.Called(p) }

var _ config.Interface = (*MockConfig)(nil)

// -- Backend Mock --

// MockBackend mocks engine.Backend.
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) Open(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

func (m *MockBackend) Fill(ctx context.Context, selector, text string) error {
	return m.Called(ctx, selector, text).Error(0)
}

func (m *MockBackend) Click(ctx context.Context, selector string) error {
	return m.Called(ctx, selector).Error(0)
}

func (m *MockBackend) SelectOption(ctx context.Context, selector, value string) error {
	return m.Called(ctx, selector, value).Error(0)
}

func (m *MockBackend) GetText(ctx context.Context, selector string) (string, error) {
	args := m.Called(ctx, selector)
	return args.String(0), args.Error(1)
}

func (m *MockBackend) GetAttribute(ctx context.Context, selector, name string) (string, bool, error) {
	args := m.Called(ctx, selector, name)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockBackend) Count(ctx context.Context, selector string) (int, error) {
	args := m.Called(ctx, selector)
	return args.Int(0), args.Error(1)
}

func (m *MockBackend) CurrentURL(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockBackend) Title(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockBackend) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

var _ engine.Backend = (*MockBackend)(nil)

// -- Session Factory Mock --

// MockSessionFactory mocks engine.SessionFactory.
type MockSessionFactory struct {
	mock.Mock
}

func (m *MockSessionFactory) NewSession(ctx context.Context) (engine.Backend, error) {
	args := m.Called(ctx)
	if b := args.Get(0); b != nil {
		return b.(engine.Backend), args.Error(1)
	}
	return nil, args.Error(1)
}

var _ engine.SessionFactory = (*MockSessionFactory)(nil)

// -- Report Sink Mock --

// MockReportSink mocks the orchestrator's persistence hook.
type MockReportSink struct {
	mock.Mock
}

func (m *MockReportSink) SaveReport(ctx context.Context, report *schemas.RunReport) error {
	return m.Called(ctx, report).Error(0)
}
