// internal/browser/listeners.go
package browser

import (
	"strings"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// listen attaches the tab event handlers. JavaScript dialogs are accepted at
// once, since an open alert blocks every later CDP call on the tab. Console
// output and uncaught exceptions are logged at debug level.
func (s *Session) listen() {
	chromedp.ListenTarget(s.ctx, func(ev interface{}) {
		switch ev := ev.(type) {
		case *page.EventJavascriptDialogOpening:
			s.logger.Debug("Accepting JavaScript dialog.",
				zap.String("type", string(ev.Type)),
				zap.String("message", ev.Message))
			// The listener must not block on a CDP round trip.
			go func() {
				if err := chromedp.Run(s.ctx, page.HandleJavaScriptDialog(true)); err != nil && s.ctx.Err() == nil {
					s.logger.Warn("Failed to dismiss JavaScript dialog.", zap.Error(err))
				}
			}()
		case *runtime.EventConsoleAPICalled:
			args := make([]string, 0, len(ev.Args))
			for _, arg := range ev.Args {
				if arg.Value != nil {
					args = append(args, string(arg.Value))
				} else if arg.Description != "" {
					args = append(args, arg.Description)
				}
			}
			s.logger.Debug("Page console message.",
				zap.String("level", string(ev.Type)),
				zap.String("text", strings.Join(args, " ")))
		case *runtime.EventExceptionThrown:
			if ev.ExceptionDetails != nil {
				s.logger.Debug("Uncaught page exception.", zap.String("text", ev.ExceptionDetails.Text))
			}
		}
	})
}
