package assertion

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xkilldash9x/scenario-cli/api/schemas"
)

func TestEvaluate(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name      string
		assertion schemas.Assertion
		actual    schemas.Value
		want      schemas.StepStatus
		mismatch  bool
	}{
		{"equals title", schemas.Equals("Swag Labs"), schemas.StringValue("Swag Labs"), schemas.StatusPassed, false},
		{"equals is exact", schemas.Equals("Swag Labs"), schemas.StringValue("Swag Labs "), schemas.StatusFailed, false},
		{"equals int", schemas.EqualsInt(3), schemas.IntValue(3), schemas.StatusPassed, false},
		{"equals null attribute", schemas.Equals("https://twitter.com/saucelabs"), schemas.NullValue(), schemas.StatusFailed, false},
		{"equals string vs int", schemas.Equals("1"), schemas.IntValue(1), schemas.StatusErrored, true},
		{"contains hit", schemas.Contains("Username and password do not match"),
			schemas.StringValue("Epic sadface: Username and password do not match any user in this service"), schemas.StatusPassed, false},
		{"contains miss", schemas.Contains("Epic sadface"), schemas.StringValue(""), schemas.StatusFailed, false},
		{"contains on int", schemas.Contains("1"), schemas.IntValue(1), schemas.StatusErrored, true},
		{"contains on null", schemas.Contains("x"), schemas.NullValue(), schemas.StatusErrored, true},
		{"count equals int", schemas.CountEquals(0), schemas.IntValue(0), schemas.StatusPassed, false},
		{"count equals badge text", schemas.CountEquals(1), schemas.StringValue(" 1\n"), schemas.StatusPassed, false},
		{"count equals wrong", schemas.CountEquals(1), schemas.IntValue(2), schemas.StatusFailed, false},
		{"count equals non numeric", schemas.CountEquals(1), schemas.StringValue("one"), schemas.StatusErrored, true},
		{"no value", schemas.Equals("x"), schemas.NoValue(), schemas.StatusErrored, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := Evaluate(tc.assertion, tc.actual)
			assert.Equal(t, tc.want, got)
			if tc.mismatch {
				assert.True(t, errors.Is(err, schemas.ErrTypeMismatch), "expected type mismatch, got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEvaluate_NeverRetries(t *testing.T) {
	t.Parallel()
	// Same inputs, same answer: evaluation holds no state between calls.
	for i := 0; i < 3; i++ {
		got, err := Evaluate(schemas.Contains("carry.allTheThings()"), schemas.StringValue("carry.allTheThings() with the sleek"))
		assert.NoError(t, err)
		assert.Equal(t, schemas.StatusPassed, got)
	}
}
