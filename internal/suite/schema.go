package suite

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	jsoniter "github.com/json-iterator/go"
	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const schemaID = "https://github.com/xkilldash9x/scenario-cli/schemas/suite-v1.json"

// GenerateJSONSchema produces the JSON Schema (Draft 2020-12) for suite
// documents from the Document type.
func GenerateJSONSchema() ([]byte, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = false

	s := r.Reflect(&Document{})
	s.ID = schemaID
	s.Title = "Scenario Suite v1"
	s.Description = "Schema for scenario-cli suite YAML documents"

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return data, nil
}

var (
	compileOnce sync.Once
	compiled    *sjsonschema.Schema
	compileErr  error
)

// compiledSchema compiles the generated schema once per process.
func compiledSchema() (*sjsonschema.Schema, error) {
	compileOnce.Do(func() {
		data, err := GenerateJSONSchema()
		if err != nil {
			compileErr = err
			return
		}
		var doc interface{}
		if err := json.Unmarshal(data, &doc); err != nil {
			compileErr = fmt.Errorf("unmarshal schema: %w", err)
			return
		}
		c := sjsonschema.NewCompiler()
		if err := c.AddResource(schemaID, doc); err != nil {
			compileErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		compiled, compileErr = c.Compile(schemaID)
	})
	return compiled, compileErr
}

// validateSemantic checks doc against the JSON Schema.
func validateSemantic(doc *Document) []*ValidationError {
	sch, err := compiledSchema()
	if err != nil {
		return []*ValidationError{{Phase: PhaseSemantic, Message: err.Error()}}
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return []*ValidationError{{Phase: PhaseSemantic, Message: fmt.Sprintf("marshal for schema validation: %v", err)}}
	}
	var instance interface{}
	if err := json.Unmarshal(data, &instance); err != nil {
		return []*ValidationError{{Phase: PhaseSemantic, Message: fmt.Sprintf("unmarshal document: %v", err)}}
	}

	err = sch.Validate(instance)
	if err == nil {
		return nil
	}
	ve, ok := err.(*sjsonschema.ValidationError)
	if !ok {
		return []*ValidationError{{Phase: PhaseSemantic, Message: err.Error()}}
	}
	printer := message.NewPrinter(language.English)
	var errs []*ValidationError
	for _, cause := range flattenValidationErrors(ve) {
		errs = append(errs, &ValidationError{
			Phase:   PhaseSemantic,
			Path:    locate(cause.InstanceLocation),
			Message: cause.ErrorKind.LocalizedString(printer),
		})
	}
	return errs
}

// flattenValidationErrors recursively collects all leaf validation errors.
func flattenValidationErrors(ve *sjsonschema.ValidationError) []*sjsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*sjsonschema.ValidationError{ve}
	}
	var flat []*sjsonschema.ValidationError
	for _, cause := range ve.Causes {
		flat = append(flat, flattenValidationErrors(cause)...)
	}
	return flat
}

// locate renders a JSON pointer as "scenarios[2].steps[1]".
func locate(segments []string) string {
	var b strings.Builder
	for _, seg := range segments {
		if _, err := strconv.Atoi(seg); err == nil {
			b.WriteString("[" + seg + "]")
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(seg)
	}
	return b.String()
}
