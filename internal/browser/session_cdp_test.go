// internal/browser/session_cdp_test.go
package browser

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scenario-cli/api/schemas"
	"github.com/xkilldash9x/scenario-cli/internal/config"
)

// fakeBrowser speaks just enough of the DevTools protocol over a websocket
// for chromedp to open tabs and evaluate expressions, so session plumbing
// can be tested without a Chrome binary.
type fakeBrowser struct {
	srv *httptest.Server
	seq atomic.Int64
	// evaluate answers Runtime.evaluate. ok false leaves the call unanswered.
	evaluate func(expr string) (value any, ok bool)
}

type cdpRequest struct {
	ID        int64          `json:"id"`
	SessionID string         `json:"sessionId,omitempty"`
	Method    string         `json:"method"`
	Params    map[string]any `json:"params,omitempty"`
}

func newFakeBrowser(t *testing.T, evaluate func(string) (any, bool)) *fakeBrowser {
	t.Helper()
	f := &fakeBrowser{evaluate: evaluate}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeBrowser) wsURL() string {
	return "ws" + strings.TrimPrefix(f.srv.URL, "http")
}

func (f *fakeBrowser) serve(w http.ResponseWriter, r *http.Request) {
	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		return
	}
	defer conn.Close()
	for {
		data, err := wsutil.ReadClientText(conn)
		if err != nil {
			return
		}
		var req cdpRequest
		if err := json.Unmarshal(data, &req); err != nil {
			continue
		}
		result, answer := f.handle(req)
		if !answer {
			continue
		}
		reply := map[string]any{"id": req.ID, "result": result}
		if req.SessionID != "" {
			reply["sessionId"] = req.SessionID
		}
		out, err := json.Marshal(reply)
		if err != nil {
			return
		}
		if err := wsutil.WriteServerText(conn, out); err != nil {
			return
		}
	}
}

func (f *fakeBrowser) handle(req cdpRequest) (map[string]any, bool) {
	switch req.Method {
	case "Target.createBrowserContext":
		return map[string]any{"browserContextId": fmt.Sprintf("context-%d", f.seq.Add(1))}, true
	case "Target.createTarget":
		return map[string]any{"targetId": fmt.Sprintf("page-%d", f.seq.Add(1))}, true
	case "Target.attachToTarget":
		return map[string]any{"sessionId": fmt.Sprintf("session-%v", req.Params["targetId"])}, true
	case "Runtime.evaluate":
		expr, _ := req.Params["expression"].(string)
		if expr == "self" {
			return map[string]any{"result": map[string]any{"type": "object", "className": "Window"}}, true
		}
		value, ok := f.evaluate(expr)
		if !ok {
			return nil, false
		}
		return map[string]any{"result": remoteObject(value)}, true
	default:
		return map[string]any{}, true
	}
}

func remoteObject(v any) map[string]any {
	switch v.(type) {
	case string:
		return map[string]any{"type": "string", "value": v}
	case int, float64:
		return map[string]any{"type": "number", "value": v}
	default:
		return map[string]any{"type": "object", "value": v}
	}
}

// swagLabs answers the expressions Session issues against a product list.
// Queries for ".never" hang.
func swagLabs(expr string) (any, bool) {
	switch {
	case strings.Contains(expr, ".never"):
		return nil, false
	case expr == "document.title":
		return "Swag Labs", true
	case strings.Contains(expr, "querySelectorAll"):
		return 2, true
	default:
		return map[string]any{"found": true, "visible": true, "text": "$29.99"}, true
	}
}

func newRemoteManager(t *testing.T, f *fakeBrowser) *Manager {
	t.Helper()
	m := NewManager(config.BrowserConfig{WindowWidth: 1280, WindowHeight: 800}, zap.NewNop())
	m.allocate = func() (context.Context, context.CancelFunc) {
		return chromedp.NewRemoteAllocator(context.Background(), f.wsURL(), chromedp.NoModifyURL)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, m.Shutdown(ctx))
	})
	return m
}

func TestSession_OutlivesOpeningContext(t *testing.T) {
	m := newRemoteManager(t, newFakeBrowser(t, swagLabs))

	openCtx, cancelOpen := context.WithTimeout(context.Background(), 5*time.Second)
	backend, err := m.NewSession(openCtx)
	// The tab must keep working once the context used to open it is gone.
	cancelOpen()
	require.NoError(t, err)
	assert.Equal(t, 1, m.ActiveSessions())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	title, err := backend.Title(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Swag Labs", title)
	assert.Less(t, time.Since(start), time.Second)

	n, err := backend.Count(ctx, ".inventory_item_price")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	text, err := backend.GetText(ctx, ".inventory_item_price")
	require.NoError(t, err)
	assert.Equal(t, "$29.99", text)

	require.NoError(t, backend.Close(ctx))
	assert.Equal(t, 0, m.ActiveSessions())
}

func TestSession_UnansweredCallIsRetryableTimeout(t *testing.T) {
	m := newRemoteManager(t, newFakeBrowser(t, swagLabs))

	backend, err := m.NewSession(context.Background())
	require.NoError(t, err)
	defer backend.Close(context.Background())

	attemptCtx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = backend.Count(attemptCtx, ".never")
	require.Error(t, err)
	assert.ErrorIs(t, err, schemas.ErrTimeout)
	assert.True(t, schemas.Retryable(err))

	// The tab is still usable after a timed out call.
	ctx, cancelNext := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancelNext()
	title, err := backend.Title(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Swag Labs", title)
}

func TestManager_NewSessionHonoursCancelledContext(t *testing.T) {
	m := newRemoteManager(t, newFakeBrowser(t, swagLabs))

	// Launch the browser first so only tab creation sees the dead context.
	first, err := m.NewSession(context.Background())
	require.NoError(t, err)
	defer first.Close(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.NewSession(ctx)
	assert.ErrorIs(t, err, schemas.ErrCancelled)
	assert.Equal(t, 1, m.ActiveSessions())
}
