package engine

import "context"

// Backend is the narrow browser automation capability the engine drives.
// Implementations must be owned by exactly one scenario at a time. Element
// operations should not wait for the element themselves: they return
// schemas.ErrElementNotFound (or schemas.ErrTimeout) and leave polling to
// the engine's Policy.
type Backend interface {
	Open(ctx context.Context, url string) error
	Fill(ctx context.Context, selector, text string) error
	Click(ctx context.Context, selector string) error
	SelectOption(ctx context.Context, selector, value string) error
	GetText(ctx context.Context, selector string) (string, error)
	// GetAttribute reports ok=false when the element exists but has no such attribute.
	GetAttribute(ctx context.Context, selector, name string) (value string, ok bool, err error)
	Count(ctx context.Context, selector string) (int, error)
	CurrentURL(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
	// Close releases the session. It must be safe to call more than once.
	Close(ctx context.Context) error
}

// Screenshotter is implemented by backends able to capture the page for
// failure diagnostics. It returns a handle (usually a file path).
type Screenshotter interface {
	Screenshot(ctx context.Context, name string) (string, error)
}

// SessionFactory hands out isolated sessions: no cookies, storage or page
// state may be shared between two Backends it returns.
type SessionFactory interface {
	NewSession(ctx context.Context) (Backend, error)
}

// SessionFactoryFunc adapts a function to SessionFactory.
type SessionFactoryFunc func(ctx context.Context) (Backend, error)

func (f SessionFactoryFunc) NewSession(ctx context.Context) (Backend, error) { return f(ctx) }
