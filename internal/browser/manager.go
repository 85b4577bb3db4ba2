// internal/browser/manager.go
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scenario-cli/api/schemas"
	"github.com/xkilldash9x/scenario-cli/internal/config"
	"github.com/xkilldash9x/scenario-cli/internal/engine"
)

const (
	defaultLaunchTimeout = 60 * time.Second
	sessionOpenTimeout   = 30 * time.Second
	sessionCloseTimeout  = 10 * time.Second
	shutdownGracePeriod  = 15 * time.Second
)

// Manager owns one Chrome process and hands out isolated sessions, each in
// its own incognito-like browser context. The process is started on the
// first NewSession call.
type Manager struct {
	cfg    config.BrowserConfig
	logger *zap.Logger
	// allocate creates the allocator context the browser process hangs off.
	allocate func() (context.Context, context.CancelFunc)

	mu            sync.Mutex
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	sessions      map[string]*Session
	closed        bool
	wg            sync.WaitGroup
}

var _ engine.SessionFactory = (*Manager)(nil)

// NewManager creates a browser manager. Initialization is deferred until
// the first session is requested.
func NewManager(cfg config.BrowserConfig, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		cfg:      cfg,
		logger:   logger.Named("browser_manager"),
		sessions: make(map[string]*Session),
	}
	// The process must outlive any single request, so it hangs off Background.
	m.allocate = func() (context.Context, context.CancelFunc) {
		return chromedp.NewExecAllocator(context.Background(), DefaultAllocatorOptions(m.cfg)...)
	}
	return m
}

// start launches Chrome. Callers hold m.mu.
func (m *Manager) start(ctx context.Context) error {
	if m.browserCtx != nil {
		if m.browserCtx.Err() == nil {
			return nil
		}
		// The browser died; start over.
		m.logger.Warn("Browser process is gone, relaunching.")
		m.allocCancel()
		m.browserCtx = nil
	}

	m.logger.Info("Launching browser.", zap.Bool("headless", m.cfg.Headless))
	allocCtx, allocCancel := m.allocate()
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(m.logger.Sugar().Debugf),
		chromedp.WithErrorf(m.logger.Sugar().Debugf),
	)

	timeout := m.cfg.LaunchTimeout
	if timeout <= 0 {
		timeout = defaultLaunchTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	// The first Run allocates the browser; it must see browserCtx itself,
	// not a derived deadline, or the process dies with the deadline.
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(browserCtx) }()

	var err error
	select {
	case err = <-done:
	case <-timer.C:
		err = fmt.Errorf("browser did not start within %s", timeout)
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		browserCancel()
		allocCancel()
		<-done
		return fmt.Errorf("%w: launching browser: %v", schemas.ErrBackendDisconnected, err)
	}

	m.allocCtx, m.allocCancel = allocCtx, allocCancel
	m.browserCtx, m.browserCancel = browserCtx, browserCancel
	m.logger.Info("Browser launched.")
	return nil
}

// NewSession opens a fresh browser context and tab. Sessions never share
// cookies or storage.
func (m *Manager) NewSession(ctx context.Context) (engine.Backend, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: opening session: %v", schemas.ErrCancelled, err)
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: browser manager is shut down", schemas.ErrBackendDisconnected)
	}
	if err := m.start(ctx); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	browserCtx := m.browserCtx
	m.wg.Add(1)
	m.mu.Unlock()

	tabCtx, tabCancel := chromedp.NewContext(browserCtx, chromedp.WithNewBrowserContext())

	var s *Session
	s = newSession(tabCtx, tabCancel, m.cfg.ArtifactsDir, m.logger, func() { m.unregister(s) })
	s.listen()

	fail := func(err error) (engine.Backend, error) {
		tabCancel()
		m.wg.Done()
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: opening session: %v", schemas.ErrCancelled, ctx.Err())
		}
		return nil, fmt.Errorf("%w: opening session: %v", schemas.ErrBackendDisconnected, err)
	}

	// The first Run creates the target and starts its event loop under the
	// context it is given, so it must be tabCtx itself. ctx only bounds the wait.
	timer := time.NewTimer(sessionOpenTimeout)
	defer timer.Stop()
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(tabCtx) }()
	select {
	case err := <-done:
		if err != nil {
			return fail(err)
		}
	case <-timer.C:
		tabCancel()
		<-done
		return fail(fmt.Errorf("tab did not open within %s", sessionOpenTimeout))
	case <-ctx.Done():
		tabCancel()
		<-done
		return fail(ctx.Err())
	}

	if m.cfg.WindowWidth > 0 && m.cfg.WindowHeight > 0 {
		viewport := chromedp.EmulateViewport(int64(m.cfg.WindowWidth), int64(m.cfg.WindowHeight))
		if err := s.run(ctx, "viewport", viewport); err != nil {
			return fail(err)
		}
	}

	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()
	m.logger.Debug("Session opened.", zap.String("session_id", s.ID()))
	return s, nil
}

func (m *Manager) unregister(s *Session) {
	m.mu.Lock()
	delete(m.sessions, s.ID())
	m.mu.Unlock()
	m.wg.Done()
}

// ActiveSessions returns the number of sessions not yet closed.
func (m *Manager) ActiveSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Shutdown closes every open session and then the browser process.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	if m.browserCtx == nil {
		m.mu.Unlock()
		m.logger.Debug("Browser was never started, nothing to shut down.")
		return nil
	}
	open := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		open = append(open, s)
	}
	m.mu.Unlock()

	m.logger.Info("Shutting down browser manager.", zap.Int("open_sessions", len(open)))
	for _, s := range open {
		go func(s *Session) {
			if err := s.Close(ctx); err != nil {
				m.logger.Warn("Error during session close in shutdown.", zap.String("session_id", s.ID()), zap.Error(err))
			}
		}(s)
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		m.logger.Warn("Timeout waiting for sessions to close. Proceeding with forceful shutdown.", zap.Error(ctx.Err()))
	}

	// chromedp.Cancel blocks until the process exits.
	exited := make(chan error, 1)
	go func() { exited <- chromedp.Cancel(m.browserCtx) }()

	var err error
	select {
	case err = <-exited:
	case <-time.After(shutdownGracePeriod):
		err = fmt.Errorf("browser did not exit within %s", shutdownGracePeriod)
	}
	m.browserCancel()
	m.allocCancel()
	if err != nil && err != context.Canceled {
		m.logger.Error("Failed to close browser cleanly.", zap.Error(err))
		return err
	}
	m.logger.Info("Browser manager shutdown complete.")
	return nil
}
