// Package suite loads scenario suites from YAML. A document is decoded
// strictly, checked against a JSON Schema generated from the types below and
// then built into immutable schemas.Scenario values.
package suite

import "github.com/invopop/jsonschema"

// Document is the on-disk form of a suite.
type Document struct {
	Name      string        `yaml:"name" json:"name" jsonschema:"minLength=1,description=Suite name used in reports"`
	BaseURL   string        `yaml:"base_url,omitempty" json:"base_url,omitempty" jsonschema:"format=uri,description=Relative navigate targets resolve against this URL"`
	Scenarios []ScenarioDoc `yaml:"scenarios" json:"scenarios" jsonschema:"minItems=1"`
}

// ScenarioDoc is one named scenario.
type ScenarioDoc struct {
	Name  string    `yaml:"name" json:"name" jsonschema:"minLength=1"`
	Steps []StepDoc `yaml:"steps" json:"steps"`
}

// StepDoc holds exactly one action key and an optional expectation.
type StepDoc struct {
	Navigate      *string       `yaml:"navigate,omitempty" json:"navigate,omitempty" jsonschema:"minLength=1"`
	Fill          *FillDoc      `yaml:"fill,omitempty" json:"fill,omitempty"`
	Click         *string       `yaml:"click,omitempty" json:"click,omitempty" jsonschema:"minLength=1"`
	Select        *SelectDoc    `yaml:"select,omitempty" json:"select,omitempty"`
	ReadText      *string       `yaml:"read_text,omitempty" json:"read_text,omitempty" jsonschema:"minLength=1"`
	ReadAttribute *AttributeDoc `yaml:"read_attribute,omitempty" json:"read_attribute,omitempty"`
	ReadCount     *string       `yaml:"read_count,omitempty" json:"read_count,omitempty" jsonschema:"minLength=1"`
	ReadTitle     *Empty        `yaml:"read_title,omitempty" json:"read_title,omitempty"`
	ReadURL       *Empty        `yaml:"read_url,omitempty" json:"read_url,omitempty"`
	Expect        *ExpectDoc    `yaml:"expect,omitempty" json:"expect,omitempty"`
}

// actionKeys are the mutually exclusive action fields of StepDoc.
var actionKeys = []string{
	"navigate", "fill", "click", "select",
	"read_text", "read_attribute", "read_count", "read_title", "read_url",
}

// JSONSchemaExtend requires exactly one action key per step.
func (StepDoc) JSONSchemaExtend(s *jsonschema.Schema) {
	for _, key := range actionKeys {
		s.OneOf = append(s.OneOf, &jsonschema.Schema{Required: []string{key}})
	}
}

type FillDoc struct {
	Selector string `yaml:"selector" json:"selector" jsonschema:"minLength=1"`
	// Text may be empty to clear a field.
	Text string `yaml:"text" json:"text"`
}

type SelectDoc struct {
	Selector string `yaml:"selector" json:"selector" jsonschema:"minLength=1"`
	Value    string `yaml:"value" json:"value" jsonschema:"minLength=1"`
}

type AttributeDoc struct {
	Selector string `yaml:"selector" json:"selector" jsonschema:"minLength=1"`
	Name     string `yaml:"name" json:"name" jsonschema:"minLength=1"`
}

// Empty is the argument of actions that take none, written `{}`.
type Empty struct{}

// ExpectDoc holds exactly one of its fields.
type ExpectDoc struct {
	Equals      *string `yaml:"equals,omitempty" json:"equals,omitempty"`
	Contains    *string `yaml:"contains,omitempty" json:"contains,omitempty"`
	CountEquals *int    `yaml:"count_equals,omitempty" json:"count_equals,omitempty" jsonschema:"minimum=0"`
}

// JSONSchemaExtend requires exactly one assertion key.
func (ExpectDoc) JSONSchemaExtend(s *jsonschema.Schema) {
	for _, key := range []string{"equals", "contains", "count_equals"} {
		s.OneOf = append(s.OneOf, &jsonschema.Schema{Required: []string{key}})
	}
}
