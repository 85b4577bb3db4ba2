package suite

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/scenario-cli/api/schemas"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// baseURLVar is replaced by the suite's base URL in navigate targets and
// expected values.
const baseURLVar = "${base_url}"

type loadOptions struct {
	baseURL string
}

// Option adjusts how a suite is built.
type Option func(*loadOptions)

// WithBaseURL overrides the document's base_url, e.g. to point a suite at a
// staging deployment.
func WithBaseURL(u string) Option {
	return func(o *loadOptions) { o.baseURL = u }
}

// Decode parses a document with unknown-field rejection.
func Decode(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode suite: document is empty")
		}
		return nil, fmt.Errorf("decode suite: %w", err)
	}
	return &doc, nil
}

// Parse runs the full pipeline on data: strict decode, schema validation,
// then domain construction. source names the document in errors.
func Parse(data []byte, source string, opts ...Option) (*Suite, error) {
	doc, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, ValidationErrors{{Phase: PhaseStructural, Message: err.Error()}}
	}
	if errs := validateSemantic(doc); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	s, errs := build(doc, opts...)
	if len(errs) > 0 {
		return nil, errs
	}
	s.Source = source
	return s, nil
}

// LoadFile reads and parses a suite file. A leading ~ is expanded.
func LoadFile(p string, opts ...Option) (*Suite, error) {
	expanded, err := homedir.Expand(p)
	if err != nil {
		return nil, fmt.Errorf("expand path %q: %w", p, err)
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return nil, fmt.Errorf("open suite: %w", err)
	}
	return Parse(data, expanded, opts...)
}

// Builtin returns one of the suites compiled into the binary.
func Builtin(name string, opts ...Option) (*Suite, error) {
	data, err := builtinFS.ReadFile(path.Join("builtin", name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("unknown built-in suite %q (available: %s)", name, strings.Join(BuiltinNames(), ", "))
	}
	return Parse(data, "builtin:"+name, opts...)
}

// BuiltinNames lists the embedded suites.
func BuiltinNames() []string {
	entries, _ := builtinFS.ReadDir("builtin")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

// build turns a schema-valid document into scenarios, collecting every
// domain error with its location.
func build(doc *Document, opts ...Option) (*Suite, ValidationErrors) {
	o := loadOptions{baseURL: doc.BaseURL}
	for _, opt := range opts {
		opt(&o)
	}

	var errs ValidationErrors
	fail := func(p string, err error) {
		errs = append(errs, &ValidationError{Phase: PhaseDomain, Path: p, Message: err.Error(), err: err})
	}

	var base *url.URL
	if o.baseURL != "" {
		u, err := url.Parse(o.baseURL)
		if err != nil || !u.IsAbs() {
			fail("base_url", fmt.Errorf("%q is not an absolute URL", o.baseURL))
		} else {
			base = u
		}
	}

	s := &Suite{Name: doc.Name, BaseURL: o.baseURL}
	seen := make(map[string]int, len(doc.Scenarios))
	for i, sd := range doc.Scenarios {
		where := fmt.Sprintf("scenarios[%d]", i)
		if first, dup := seen[sd.Name]; dup {
			fail(where+".name", fmt.Errorf("%w: duplicate scenario name %q (first at scenarios[%d])", schemas.ErrMalformedScenario, sd.Name, first))
			continue
		}
		seen[sd.Name] = i

		steps := make([]schemas.Step, 0, len(sd.Steps))
		ok := true
		for j, step := range sd.Steps {
			built, err := buildStep(step, base, o.baseURL)
			if err != nil {
				fail(fmt.Sprintf("%s.steps[%d]", where, j), err)
				ok = false
				continue
			}
			steps = append(steps, built)
		}
		if !ok {
			continue
		}
		sc, err := schemas.NewScenario(sd.Name, steps...)
		if err != nil {
			fail(where, err)
			continue
		}
		s.Scenarios = append(s.Scenarios, sc)
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return s, nil
}

func buildStep(sd StepDoc, base *url.URL, baseURL string) (schemas.Step, error) {
	action, err := buildAction(sd, base, baseURL)
	if err != nil {
		return schemas.Step{}, err
	}
	if sd.Expect == nil {
		return schemas.Do(action), nil
	}
	if !action.Reads() {
		return schemas.Step{}, fmt.Errorf("%w: %s produces no value to check", schemas.ErrTypeMismatch, action.Kind())
	}
	as, err := buildAssertion(*sd.Expect, action, baseURL)
	if err != nil {
		return schemas.Step{}, err
	}
	return schemas.Check(action, as), nil
}

func buildAction(sd StepDoc, base *url.URL, baseURL string) (schemas.Action, error) {
	switch {
	case sd.Navigate != nil:
		target, err := resolve(*sd.Navigate, base, baseURL)
		if err != nil {
			return schemas.Action{}, err
		}
		return schemas.Navigate(target)
	case sd.Fill != nil:
		return schemas.Fill(sd.Fill.Selector, sd.Fill.Text)
	case sd.Click != nil:
		return schemas.Click(*sd.Click)
	case sd.Select != nil:
		return schemas.SelectOption(sd.Select.Selector, sd.Select.Value)
	case sd.ReadText != nil:
		return schemas.ReadText(*sd.ReadText)
	case sd.ReadAttribute != nil:
		return schemas.ReadAttribute(sd.ReadAttribute.Selector, sd.ReadAttribute.Name)
	case sd.ReadCount != nil:
		return schemas.ReadCount(*sd.ReadCount)
	case sd.ReadTitle != nil:
		return schemas.ReadTitle(), nil
	case sd.ReadURL != nil:
		return schemas.ReadURL(), nil
	default:
		return schemas.Action{}, fmt.Errorf("%w: step has no action", schemas.ErrMalformedAction)
	}
}

// resolve expands ${base_url} and resolves relative targets against base.
func resolve(target string, base *url.URL, baseURL string) (string, error) {
	target = strings.ReplaceAll(target, baseURLVar, baseURL)
	ref, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("%w: navigate target %q: %v", schemas.ErrMalformedAction, target, err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	if base == nil {
		return "", fmt.Errorf("%w: relative navigate target %q needs a base_url", schemas.ErrMalformedAction, target)
	}
	return base.ResolveReference(ref).String(), nil
}

func buildAssertion(e ExpectDoc, action schemas.Action, baseURL string) (schemas.Assertion, error) {
	switch {
	case e.Equals != nil:
		want := strings.ReplaceAll(*e.Equals, baseURLVar, baseURL)
		// Counts compare as integers.
		if action.Kind() == schemas.ActionReadCount {
			n, err := strconv.Atoi(strings.TrimSpace(want))
			if err != nil {
				return schemas.Assertion{}, fmt.Errorf("%w: read_count expects an integer, got %q", schemas.ErrTypeMismatch, want)
			}
			return schemas.EqualsInt(n), nil
		}
		return schemas.Equals(want), nil
	case e.Contains != nil:
		return schemas.Contains(strings.ReplaceAll(*e.Contains, baseURLVar, baseURL)), nil
	case e.CountEquals != nil:
		return schemas.CountEquals(*e.CountEquals), nil
	default:
		return schemas.Assertion{}, fmt.Errorf("%w: expect has no assertion", schemas.ErrMalformedAction)
	}
}
