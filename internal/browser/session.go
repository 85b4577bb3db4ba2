// internal/browser/session.go
package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scenario-cli/api/schemas"
	"github.com/xkilldash9x/scenario-cli/internal/engine"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Session is one isolated browser context with a single tab. It implements
// engine.Backend and engine.Screenshotter. Element operations check for the
// element once and never wait for it: polling is the engine's job.
type Session struct {
	id           string
	ctx          context.Context
	cancel       context.CancelFunc
	logger       *zap.Logger
	artifactsDir string

	onClose func()

	mu       sync.Mutex
	isClosed bool
}

var (
	_ engine.Backend       = (*Session)(nil)
	_ engine.Screenshotter = (*Session)(nil)
)

func newSession(ctx context.Context, cancel context.CancelFunc, artifactsDir string, logger *zap.Logger, onClose func()) *Session {
	id := uuid.NewString()
	return &Session{
		id:           id,
		ctx:          ctx,
		cancel:       cancel,
		logger:       logger.With(zap.String("session_id", id)),
		artifactsDir: artifactsDir,
		onClose:      onClose,
	}
}

// ID returns the unique identifier for the session.
func (s *Session) ID() string { return s.id }

// run executes chromedp actions bounded by both the tab's lifetime and the
// caller's context, and classifies any error.
func (s *Session) run(ctx context.Context, op string, actions ...chromedp.Action) error {
	runCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()
	return classify(op, chromedp.Run(runCtx, actions...), runCtx, s.ctx)
}

// elementState is what the page reports about the first match of a selector.
type elementState struct {
	Found   bool   `json:"found"`
	Visible bool   `json:"visible"`
	Text    string `json:"text"`
	HasAttr bool   `json:"hasAttr"`
	Attr    string `json:"attr"`
}

const inspectScript = `(() => {
	const el = document.querySelector(%s);
	if (!el) return {found: false};
	const attr = %s;
	const r = el.getBoundingClientRect();
	return {
		found: true,
		visible: r.width > 0 && r.height > 0,
		text: el.textContent || "",
		hasAttr: attr !== "" && el.hasAttribute(attr),
		attr: attr !== "" ? (el.getAttribute(attr) || "") : "",
	};
})()`

// inspect reports on the first element matching selector without waiting.
func (s *Session) inspect(ctx context.Context, selector, attr string) (elementState, error) {
	sel, err := json.Marshal(selector)
	if err != nil {
		return elementState{}, fmt.Errorf("encoding selector: %w", err)
	}
	name, err := json.Marshal(attr)
	if err != nil {
		return elementState{}, fmt.Errorf("encoding attribute name: %w", err)
	}
	var state elementState
	if err := s.run(ctx, "inspect "+selector, chromedp.Evaluate(fmt.Sprintf(inspectScript, sel, name), &state)); err != nil {
		return elementState{}, err
	}
	return state, nil
}

// require inspects selector and fails with ErrElementNotFound when it is
// absent, or not visible when visible is set.
func (s *Session) require(ctx context.Context, selector string, visible bool) (elementState, error) {
	state, err := s.inspect(ctx, selector, "")
	if err != nil {
		return state, err
	}
	if !state.Found {
		return state, fmt.Errorf("%w: %s", schemas.ErrElementNotFound, selector)
	}
	if visible && !state.Visible {
		return state, fmt.Errorf("%w: %s is not visible", schemas.ErrElementNotFound, selector)
	}
	return state, nil
}

// Open loads url in the tab.
func (s *Session) Open(ctx context.Context, url string) error {
	s.logger.Debug("Navigating to URL", zap.String("url", url))
	return s.run(ctx, "navigate "+url, chromedp.Navigate(url))
}

// Fill replaces the content of an input with text using real key events,
// so framework-managed inputs see the change.
func (s *Session) Fill(ctx context.Context, selector, text string) error {
	if _, err := s.require(ctx, selector, true); err != nil {
		return err
	}
	return s.run(ctx, "fill "+selector,
		chromedp.Focus(selector, chromedp.ByQuery),
		chromedp.SetValue(selector, "", chromedp.ByQuery),
		chromedp.SendKeys(selector, text, chromedp.ByQuery),
	)
}

// Click clicks the first visible element matching selector.
func (s *Session) Click(ctx context.Context, selector string) error {
	if _, err := s.require(ctx, selector, true); err != nil {
		return err
	}
	return s.run(ctx, "click "+selector, chromedp.Click(selector, chromedp.ByQuery))
}

// selectScript picks an option by value through the native setter and
// fires the events frameworks listen for.
const selectScript = `(() => {
	const el = document.querySelector(%s);
	if (!el) return "missing";
	const value = %s;
	if (![...el.options].some(o => o.value === value)) return "no-option";
	const setter = Object.getOwnPropertyDescriptor(HTMLSelectElement.prototype, "value").set;
	setter.call(el, value);
	el.dispatchEvent(new Event("input", {bubbles: true}));
	el.dispatchEvent(new Event("change", {bubbles: true}));
	return "ok";
})()`

// SelectOption chooses the option with the given value in a <select>.
func (s *Session) SelectOption(ctx context.Context, selector, value string) error {
	sel, err := json.Marshal(selector)
	if err != nil {
		return fmt.Errorf("encoding selector: %w", err)
	}
	val, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding option value: %w", err)
	}
	var result string
	if err := s.run(ctx, "select "+selector, chromedp.Evaluate(fmt.Sprintf(selectScript, sel, val), &result)); err != nil {
		return err
	}
	switch result {
	case "ok":
		return nil
	case "missing":
		return fmt.Errorf("%w: %s", schemas.ErrElementNotFound, selector)
	default:
		// Options are often rendered after the select itself.
		return fmt.Errorf("%w: %s has no option %q", schemas.ErrElementNotFound, selector, value)
	}
}

// GetText returns the text content of the first match.
func (s *Session) GetText(ctx context.Context, selector string) (string, error) {
	state, err := s.require(ctx, selector, false)
	if err != nil {
		return "", err
	}
	return state.Text, nil
}

// GetAttribute returns an attribute of the first match. ok is false when
// the element exists without that attribute.
func (s *Session) GetAttribute(ctx context.Context, selector, name string) (string, bool, error) {
	state, err := s.inspect(ctx, selector, name)
	if err != nil {
		return "", false, err
	}
	if !state.Found {
		return "", false, fmt.Errorf("%w: %s", schemas.ErrElementNotFound, selector)
	}
	return state.Attr, state.HasAttr, nil
}

// Count returns how many elements match selector right now. Zero is a
// valid answer, not an error.
func (s *Session) Count(ctx context.Context, selector string) (int, error) {
	sel, err := json.Marshal(selector)
	if err != nil {
		return 0, fmt.Errorf("encoding selector: %w", err)
	}
	var n int
	if err := s.run(ctx, "count "+selector,
		chromedp.Evaluate(fmt.Sprintf("document.querySelectorAll(%s).length", sel), &n)); err != nil {
		return 0, err
	}
	return n, nil
}

// CurrentURL returns the tab's location.
func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := s.run(ctx, "location", chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

// Title returns the document title.
func (s *Session) Title(ctx context.Context) (string, error) {
	var title string
	if err := s.run(ctx, "title", chromedp.Title(&title)); err != nil {
		return "", err
	}
	return title, nil
}

// Screenshot captures the full page as PNG under the artifacts directory
// and returns the file path.
func (s *Session) Screenshot(ctx context.Context, name string) (string, error) {
	if s.artifactsDir == "" {
		return "", fmt.Errorf("no artifacts directory configured")
	}
	var buf []byte
	if err := s.run(ctx, "screenshot", chromedp.FullScreenshot(&buf, 100)); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.artifactsDir, 0o755); err != nil {
		return "", fmt.Errorf("creating artifacts directory: %w", err)
	}
	path := filepath.Join(s.artifactsDir, fmt.Sprintf("%s-%s.png", name, s.id[:8]))
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return "", fmt.Errorf("writing screenshot: %w", err)
	}
	s.logger.Debug("Screenshot saved.", zap.String("path", path))
	return path, nil
}

// Close disposes the tab and its browser context. It is safe to call more
// than once.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.isClosed {
		s.mu.Unlock()
		return nil
	}
	s.isClosed = true
	s.mu.Unlock()

	s.logger.Debug("Closing browser session.")
	defer func() {
		if s.onClose != nil {
			s.onClose()
		}
	}()

	// chromedp.Cancel blocks until the target is gone; bound it by ctx.
	done := make(chan error, 1)
	go func() { done <- chromedp.Cancel(s.ctx) }()

	select {
	case err := <-done:
		if err != nil && s.ctx.Err() == nil {
			return fmt.Errorf("closing session %s: %w", s.id, err)
		}
		return nil
	case <-ctx.Done():
		s.cancel()
		return fmt.Errorf("closing session %s: %w", s.id, ctx.Err())
	case <-time.After(sessionCloseTimeout):
		s.cancel()
		return fmt.Errorf("closing session %s: timed out after %s", s.id, sessionCloseTimeout)
	}
}
