package schemas

import "fmt"

// AssertionKind selects how an expected value is compared to the actual one.
type AssertionKind string

const (
	AssertEquals      AssertionKind = "EQUALS"
	AssertContains    AssertionKind = "CONTAINS"
	AssertCountEquals AssertionKind = "COUNT_EQUALS"
)

// Assertion is an expected outcome for the value produced by a step's action.
// Evaluation lives in internal/assertion so this type stays plain data.
type Assertion struct {
	kind     AssertionKind
	expected Value
}

// Equals expects the actual value to be exactly the given string.
func Equals(expected string) Assertion {
	return Assertion{kind: AssertEquals, expected: StringValue(expected)}
}

// EqualsInt expects the actual value to be exactly the given integer.
func EqualsInt(expected int) Assertion {
	return Assertion{kind: AssertEquals, expected: IntValue(expected)}
}

// Contains expects the actual string to contain the given substring.
func Contains(substr string) Assertion {
	return Assertion{kind: AssertContains, expected: StringValue(substr)}
}

// CountEquals expects the actual value to be the given count.
func CountEquals(n int) Assertion {
	return Assertion{kind: AssertCountEquals, expected: IntValue(n)}
}

func (a Assertion) Kind() AssertionKind { return a.kind }
func (a Assertion) Expected() Value     { return a.expected }

func (a Assertion) String() string {
	return fmt.Sprintf("%s %s", a.kind, a.expected)
}
