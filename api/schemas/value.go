package schemas

import (
	"fmt"
	"strconv"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ValueKind describes the shape of a value produced by an action.
type ValueKind string

const (
	// ValueNone is what pure actions (navigate, fill, click, select) produce.
	ValueNone   ValueKind = "none"
	ValueNull   ValueKind = "null"
	ValueString ValueKind = "string"
	ValueInt    ValueKind = "int"
)

// Value is a tagged union over the things an action can read from a page.
// The zero Value is ValueNone.
type Value struct {
	kind ValueKind
	str  string
	num  int
}

// NoValue is returned by actions that do not read anything.
func NoValue() Value { return Value{kind: ValueNone} }

// NullValue represents an absent attribute.
func NullValue() Value { return Value{kind: ValueNull} }

// StringValue wraps a string read from the page.
func StringValue(s string) Value { return Value{kind: ValueString, str: s} }

// IntValue wraps an integer read from the page.
func IntValue(n int) Value { return Value{kind: ValueInt, num: n} }

// Kind returns the value's shape. The zero Value reports ValueNone.
func (v Value) Kind() ValueKind {
	if v.kind == "" {
		return ValueNone
	}
	return v.kind
}

// Str returns the string payload and whether the value is a string.
func (v Value) Str() (string, bool) { return v.str, v.kind == ValueString }

// Int returns the integer payload and whether the value is an integer.
func (v Value) Int() (int, bool) { return v.num, v.kind == ValueInt }

// IsZero reports whether the value carries nothing at all.
func (v Value) IsZero() bool { return v.Kind() == ValueNone }

// String renders the value for reports and logs.
func (v Value) String() string {
	switch v.Kind() {
	case ValueString:
		return strconv.Quote(v.str)
	case ValueInt:
		return strconv.Itoa(v.num)
	case ValueNull:
		return "<null>"
	default:
		return "<none>"
	}
}

// valueJSON is the wire form, so reports survive a round trip through the
// JSON reporter and the store.
type valueJSON struct {
	Kind   ValueKind `json:"kind"`
	String *string   `json:"string,omitempty"`
	Int    *int      `json:"int,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	out := valueJSON{Kind: v.Kind()}
	switch out.Kind {
	case ValueString:
		s := v.str
		out.String = &s
	case ValueInt:
		n := v.num
		out.Int = &n
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	var in valueJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	switch in.Kind {
	case ValueString:
		if in.String == nil {
			return fmt.Errorf("string value without payload")
		}
		*v = StringValue(*in.String)
	case ValueInt:
		if in.Int == nil {
			return fmt.Errorf("int value without payload")
		}
		*v = IntValue(*in.Int)
	case ValueNull:
		*v = NullValue()
	case ValueNone, "":
		*v = NoValue()
	default:
		return fmt.Errorf("unknown value kind %q", in.Kind)
	}
	return nil
}
