// internal/browser/errors.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chromedp/chromedp"

	"github.com/xkilldash9x/scenario-cli/api/schemas"
)

// disconnectMarkers are fragments of CDP errors raised once the tab, the
// browser context or the websocket is gone.
var disconnectMarkers = []string{
	"target closed",
	"no target with given id",
	"session with given id not found",
	"websocket",
	"connection reset",
	"broken pipe",
	"browser has disconnected",
}

// classify maps a chromedp error onto the schemas error taxonomy. opCtx is
// the context the operation ran under and sessionCtx the tab's own context.
// An opCtx that ended on a deadline yields a timeout even when chromedp
// reports a plain context.Canceled.
func classify(op string, err error, opCtx, sessionCtx context.Context) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{
		schemas.ErrElementNotFound, schemas.ErrTimeout, schemas.ErrNavigation,
		schemas.ErrBackendDisconnected, schemas.ErrCancelled,
	} {
		if errors.Is(err, known) {
			return err
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case sessionCtx.Err() != nil,
		errors.Is(err, chromedp.ErrInvalidContext),
		errors.Is(err, chromedp.ErrChannelClosed),
		errors.Is(err, chromedp.ErrInvalidTarget),
		containsAny(msg, disconnectMarkers):
		return fmt.Errorf("%w: %s: %v", schemas.ErrBackendDisconnected, op, err)
	case strings.Contains(msg, "net::err_"):
		return fmt.Errorf("%w: %s: %v", schemas.ErrNavigation, op, err)
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, chromedp.ErrPollingTimeout),
		errors.Is(context.Cause(opCtx), context.DeadlineExceeded):
		return fmt.Errorf("%w: %s: %v", schemas.ErrTimeout, op, err)
	case errors.Is(err, chromedp.ErrNoResults):
		return fmt.Errorf("%w: %s: %v", schemas.ErrElementNotFound, op, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
