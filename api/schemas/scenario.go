package schemas

import (
	"fmt"
	"iter"
)

// Step is one action plus an optional assertion on the value it produces.
type Step struct {
	action    Action
	assertion *Assertion
}

// Do builds a pure action step with nothing to check.
func Do(a Action) Step { return Step{action: a} }

// Check builds a step whose action result is evaluated against as.
func Check(a Action, as Assertion) Step {
	return Step{action: a, assertion: &as}
}

func (s Step) Action() Action { return s.action }

// Assertion returns the step's assertion and whether it has one.
func (s Step) Assertion() (Assertion, bool) {
	if s.assertion == nil {
		return Assertion{}, false
	}
	return *s.assertion, true
}

// Scenario is a named, ordered list of steps forming one end-to-end test
// case. It is never mutated after construction and may be executed any
// number of times.
type Scenario struct {
	name  string
	steps []Step
}

// NewScenario copies steps into a new Scenario. Every step must carry a
// constructed action.
func NewScenario(name string, steps ...Step) (*Scenario, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: scenario name is required", ErrMalformedScenario)
	}
	for i, s := range steps {
		if s.action.IsZero() {
			return nil, fmt.Errorf("%w: %q step %d has no action", ErrMalformedScenario, name, i)
		}
	}
	return &Scenario{name: name, steps: append([]Step(nil), steps...)}, nil
}

// MustScenario is NewScenario for statically defined suites.
func MustScenario(name string, steps ...Step) *Scenario {
	sc, err := NewScenario(name, steps...)
	if err != nil {
		panic(err)
	}
	return sc
}

func (sc *Scenario) Name() string { return sc.name }
func (sc *Scenario) Len() int     { return len(sc.steps) }

// Step returns the i-th step. It panics when i is out of range, like a slice.
func (sc *Scenario) Step(i int) Step { return sc.steps[i] }

// Steps yields (index, step) pairs in declaration order. The sequence is
// lazy and can be ranged over again for every execution of the scenario.
func (sc *Scenario) Steps() iter.Seq2[int, Step] {
	return func(yield func(int, Step) bool) {
		for i, s := range sc.steps {
			if !yield(i, s) {
				return
			}
		}
	}
}
