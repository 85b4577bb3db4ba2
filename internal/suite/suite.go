package suite

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/xkilldash9x/scenario-cli/api/schemas"
)

// ErrNoScenarios is returned when a filter selects nothing.
var ErrNoScenarios = errors.New("no scenarios selected")

// Suite is a loaded, validated set of scenarios.
type Suite struct {
	Name      string
	BaseURL   string
	Source    string
	Scenarios []*schemas.Scenario
}

// Filter returns the scenarios whose name matches pattern, a regular
// expression. An empty pattern selects everything.
func (s *Suite) Filter(pattern string) ([]*schemas.Scenario, error) {
	if pattern == "" {
		if len(s.Scenarios) == 0 {
			return nil, ErrNoScenarios
		}
		return s.Scenarios, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid filter %q: %w", pattern, err)
	}
	var out []*schemas.Scenario
	for _, sc := range s.Scenarios {
		if re.MatchString(sc.Name()) {
			out = append(out, sc)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: filter %q matched none of %d scenarios", ErrNoScenarios, pattern, len(s.Scenarios))
	}
	return out, nil
}

// Validation phases, in the order they run.
const (
	PhaseStructural = "structural"
	PhaseSemantic   = "semantic"
	PhaseDomain     = "domain"
)

// ValidationError is a single problem found in a suite document.
type ValidationError struct {
	Phase   string `json:"phase"`
	Path    string `json:"path"`
	Message string `json:"message"`

	err error
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("[%s] %s", e.Phase, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Phase, e.Path, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.err }

// ValidationErrors is every problem found in one document.
type ValidationErrors []*ValidationError

func (ve ValidationErrors) Error() string {
	msgs := make([]string, len(ve))
	for i, e := range ve {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("%d problem(s) in suite:\n  %s", len(ve), strings.Join(msgs, "\n  "))
}

// Unwrap exposes the underlying sentinels, e.g. schemas.ErrMalformedAction.
func (ve ValidationErrors) Unwrap() []error {
	out := make([]error, 0, len(ve))
	for _, e := range ve {
		out = append(out, e)
	}
	return out
}
