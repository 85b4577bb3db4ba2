// Package assertion evaluates expected outcomes against values read from the
// page. It performs no retries and has no dependencies on the backend.
package assertion

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xkilldash9x/scenario-cli/api/schemas"
)

// Evaluate compares actual against a. It returns StatusPassed or
// StatusFailed, or a non-nil error wrapping schemas.ErrTypeMismatch when
// actual has the wrong shape for the assertion kind.
func Evaluate(a schemas.Assertion, actual schemas.Value) (schemas.StepStatus, error) {
	if actual.Kind() == schemas.ValueNone {
		return schemas.StatusErrored, fmt.Errorf("%w: %s needs a value but the action produced none", schemas.ErrTypeMismatch, a.Kind())
	}

	switch a.Kind() {
	case schemas.AssertEquals:
		return equals(a.Expected(), actual)
	case schemas.AssertContains:
		return contains(a.Expected(), actual)
	case schemas.AssertCountEquals:
		return countEquals(a.Expected(), actual)
	default:
		return schemas.StatusErrored, fmt.Errorf("%w: unknown assertion kind %q", schemas.ErrTypeMismatch, a.Kind())
	}
}

func equals(expected, actual schemas.Value) (schemas.StepStatus, error) {
	// A missing attribute simply is not the expected value.
	if actual.Kind() == schemas.ValueNull {
		return schemas.StatusFailed, nil
	}
	if expected.Kind() != actual.Kind() {
		return schemas.StatusErrored, fmt.Errorf("%w: cannot compare %s with %s", schemas.ErrTypeMismatch, expected.Kind(), actual.Kind())
	}
	if expected == actual {
		return schemas.StatusPassed, nil
	}
	return schemas.StatusFailed, nil
}

func contains(expected, actual schemas.Value) (schemas.StepStatus, error) {
	want, _ := expected.Str()
	got, ok := actual.Str()
	if !ok {
		return schemas.StatusErrored, fmt.Errorf("%w: contains requires a string, got %s", schemas.ErrTypeMismatch, actual.Kind())
	}
	if strings.Contains(got, want) {
		return schemas.StatusPassed, nil
	}
	return schemas.StatusFailed, nil
}

func countEquals(expected, actual schemas.Value) (schemas.StepStatus, error) {
	want, _ := expected.Int()
	got, err := asCount(actual)
	if err != nil {
		return schemas.StatusErrored, err
	}
	if got == want {
		return schemas.StatusPassed, nil
	}
	return schemas.StatusFailed, nil
}

// asCount accepts integers and integer-looking text, e.g. a cart badge.
func asCount(v schemas.Value) (int, error) {
	if n, ok := v.Int(); ok {
		return n, nil
	}
	if s, ok := v.Str(); ok {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return 0, fmt.Errorf("%w: %s is not a count", schemas.ErrTypeMismatch, v)
		}
		return n, nil
	}
	return 0, fmt.Errorf("%w: count-equals requires an integer, got %s", schemas.ErrTypeMismatch, v.Kind())
}
