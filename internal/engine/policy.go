package engine

import (
	"fmt"
	"time"

	"github.com/xkilldash9x/scenario-cli/internal/config"
)

// Default polling policy: poll every 100ms for up to 30s per step.
const (
	DefaultInterval       = 100 * time.Millisecond
	DefaultTimeout        = 30 * time.Second
	DefaultAttemptTimeout = 5 * time.Second
)

// Policy is the fixed wait/retry policy applied to every step dispatch.
type Policy struct {
	// Interval is the minimum spacing between two attempts.
	Interval time.Duration
	// Timeout bounds the whole step, retries included.
	Timeout time.Duration
	// AttemptTimeout bounds a single backend call.
	AttemptTimeout time.Duration
}

// DefaultPolicy returns the 100ms / 30s policy.
func DefaultPolicy() Policy {
	return Policy{Interval: DefaultInterval, Timeout: DefaultTimeout, AttemptTimeout: DefaultAttemptTimeout}
}

// PolicyFromConfig builds a Policy from engine configuration, falling back
// to defaults for unset values.
func PolicyFromConfig(cfg config.EngineConfig) Policy {
	p := Policy{Interval: cfg.PollInterval, Timeout: cfg.StepTimeout, AttemptTimeout: cfg.AttemptTimeout}
	return p.withDefaults()
}

func (p Policy) withDefaults() Policy {
	if p.Interval <= 0 {
		p.Interval = DefaultInterval
	}
	if p.Timeout <= 0 {
		p.Timeout = DefaultTimeout
	}
	if p.AttemptTimeout <= 0 {
		p.AttemptTimeout = DefaultAttemptTimeout
	}
	if p.AttemptTimeout > p.Timeout {
		p.AttemptTimeout = p.Timeout
	}
	return p
}

func (p Policy) String() string {
	return fmt.Sprintf("every %s for up to %s (attempt timeout %s)", p.Interval, p.Timeout, p.AttemptTimeout)
}
