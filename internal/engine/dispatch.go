// internal/engine/dispatch.go
package engine

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/xkilldash9x/scenario-cli/api/schemas"
)

// dispatch performs an action under the retry policy. Only retryable errors
// (element not found, per-attempt timeout) are retried, no more often than
// once per Interval, until the step's Timeout budget is spent. It returns the
// value read, the number of attempts made and the final error.
func (e *Executor) dispatch(ctx context.Context, backend Backend, action schemas.Action) (schemas.Value, int, error) {
	stepCtx, cancel := context.WithTimeout(ctx, e.policy.Timeout)
	defer cancel()

	// Burst of one: the first attempt is immediate, later ones are paced.
	limiter := rate.NewLimiter(rate.Every(e.policy.Interval), 1)

	var (
		attempts int
		lastErr  error
	)
	for {
		// Wait fails early when the next slot lies past the step deadline.
		if err := limiter.Wait(stepCtx); err != nil {
			break
		}
		attempts++

		attemptCtx, cancelAttempt := context.WithTimeout(stepCtx, e.policy.AttemptTimeout)
		value, err := perform(attemptCtx, backend, action)
		attemptErr := attemptCtx.Err()
		cancelAttempt()

		if err == nil {
			return value, attempts, nil
		}
		if ctx.Err() != nil {
			return schemas.NoValue(), attempts, fmt.Errorf("%w: %s interrupted: %v", schemas.ErrCancelled, action, ctx.Err())
		}
		if attemptTimedOut(err, attemptErr) {
			err = fmt.Errorf("%w: %s: %v", schemas.ErrTimeout, action, err)
		}
		if !schemas.Retryable(err) {
			return schemas.NoValue(), attempts, err
		}
		lastErr = err
	}

	if ctx.Err() != nil {
		return schemas.NoValue(), attempts, fmt.Errorf("%w: %s interrupted: %v", schemas.ErrCancelled, action, ctx.Err())
	}
	if lastErr == nil {
		lastErr = schemas.ErrTimeout
	}
	if errors.Is(lastErr, schemas.ErrElementNotFound) {
		return schemas.NoValue(), attempts, fmt.Errorf("%w (gave up after %d attempts in %s)", lastErr, attempts, e.policy.Timeout)
	}
	return schemas.NoValue(), attempts, fmt.Errorf("%w: %s did not complete within %s (%d attempts): %v",
		schemas.ErrTimeout, action, e.policy.Timeout, attempts, lastErr)
}

// attemptTimedOut reports whether a failed attempt should count as a
// per-attempt timeout. Backends often see the expired deadline as a plain
// cancellation, so the attempt context decides, not the error chain. A lost
// backend or a failed navigation keeps its own diagnosis.
func attemptTimedOut(err, attemptErr error) bool {
	if !errors.Is(attemptErr, context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return !schemas.Retryable(err) &&
		!errors.Is(err, schemas.ErrBackendDisconnected) &&
		!errors.Is(err, schemas.ErrNavigation)
}

// perform maps one action onto the backend and wraps what it reads.
func perform(ctx context.Context, b Backend, a schemas.Action) (schemas.Value, error) {
	switch a.Kind() {
	case schemas.ActionNavigate:
		return schemas.NoValue(), b.Open(ctx, a.Value())
	case schemas.ActionFill:
		return schemas.NoValue(), b.Fill(ctx, a.Target(), a.Value())
	case schemas.ActionClick:
		return schemas.NoValue(), b.Click(ctx, a.Target())
	case schemas.ActionSelect:
		return schemas.NoValue(), b.SelectOption(ctx, a.Target(), a.Value())
	case schemas.ActionReadText:
		s, err := b.GetText(ctx, a.Target())
		if err != nil {
			return schemas.NoValue(), err
		}
		return schemas.StringValue(s), nil
	case schemas.ActionReadAttribute:
		s, ok, err := b.GetAttribute(ctx, a.Target(), a.Attribute())
		if err != nil {
			return schemas.NoValue(), err
		}
		if !ok {
			return schemas.NullValue(), nil
		}
		return schemas.StringValue(s), nil
	case schemas.ActionReadCount:
		n, err := b.Count(ctx, a.Target())
		if err != nil {
			return schemas.NoValue(), err
		}
		return schemas.IntValue(n), nil
	case schemas.ActionReadTitle:
		s, err := b.Title(ctx)
		if err != nil {
			return schemas.NoValue(), err
		}
		return schemas.StringValue(s), nil
	case schemas.ActionReadURL:
		s, err := b.CurrentURL(ctx)
		if err != nil {
			return schemas.NoValue(), err
		}
		return schemas.StringValue(s), nil
	default:
		return schemas.NoValue(), fmt.Errorf("%w: unsupported kind %q", schemas.ErrMalformedAction, a.Kind())
	}
}
