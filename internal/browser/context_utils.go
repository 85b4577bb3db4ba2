// internal/browser/context_utils.go
package browser

import "context"

// CombineContext derives a context from ctx1 (which carries the CDP target)
// that is also cancelled when ctx2 (which carries the caller's deadline) is.
// Values, including the chromedp target, come from ctx1 only. When ctx2 ends
// first, context.Cause of the result reports ctx2's cause, so an expired
// caller deadline stays visible as context.DeadlineExceeded.
func CombineContext(ctx1, ctx2 context.Context) (context.Context, context.CancelFunc) {
	combined, cancelCause := context.WithCancelCause(ctx1)
	release := func() { cancelCause(context.Canceled) }
	if deadline, ok := ctx2.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		combined, cancelDeadline = context.WithDeadline(combined, deadline)
		inner := release
		release = func() { cancelDeadline(); inner() }
	}
	stop := context.AfterFunc(ctx2, func() { cancelCause(context.Cause(ctx2)) })
	return combined, func() {
		stop()
		release()
	}
}
