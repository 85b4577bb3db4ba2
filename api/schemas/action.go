package schemas

import "fmt"

// ActionKind identifies a single browser interaction.
type ActionKind string

const (
	ActionNavigate      ActionKind = "NAVIGATE"
	ActionFill          ActionKind = "FILL"
	ActionClick         ActionKind = "CLICK"
	ActionSelect        ActionKind = "SELECT"
	ActionReadText      ActionKind = "READ_TEXT"
	ActionReadAttribute ActionKind = "READ_ATTRIBUTE"
	ActionReadCount     ActionKind = "READ_COUNT"
	ActionReadTitle     ActionKind = "READ_TITLE"
	ActionReadURL       ActionKind = "READ_URL"
)

// ActionKinds lists every supported kind in a stable order.
var ActionKinds = []ActionKind{
	ActionNavigate, ActionFill, ActionClick, ActionSelect,
	ActionReadText, ActionReadAttribute, ActionReadCount,
	ActionReadTitle, ActionReadURL,
}

// fieldRules records which optional fields each kind requires.
type fieldRules struct {
	target    bool
	value     bool
	attribute bool
	reads     bool
}

var actionRules = map[ActionKind]fieldRules{
	ActionNavigate:      {value: true},
	ActionFill:          {target: true, value: true},
	ActionClick:         {target: true},
	ActionSelect:        {target: true, value: true},
	ActionReadText:      {target: true, reads: true},
	ActionReadAttribute: {target: true, attribute: true, reads: true},
	ActionReadCount:     {target: true, reads: true},
	ActionReadTitle:     {reads: true},
	ActionReadURL:       {reads: true},
}

// Action describes one interaction with the page. It is immutable once
// constructed; use the kind specific constructors or NewAction.
type Action struct {
	kind      ActionKind
	target    string
	value     string
	attribute string
}

// NewAction validates the field combination for kind and builds the Action.
// Fill accepts an empty value (clearing a field is a legitimate fill), every
// other required field must be non-empty.
func NewAction(kind ActionKind, target, value, attribute string) (Action, error) {
	rules, ok := actionRules[kind]
	if !ok {
		return Action{}, fmt.Errorf("%w: unknown kind %q", ErrMalformedAction, kind)
	}
	if rules.target && target == "" {
		return Action{}, fmt.Errorf("%w: %s requires a target selector", ErrMalformedAction, kind)
	}
	if !rules.target && target != "" {
		return Action{}, fmt.Errorf("%w: %s does not take a target", ErrMalformedAction, kind)
	}
	if rules.value && value == "" && kind != ActionFill {
		return Action{}, fmt.Errorf("%w: %s requires a value", ErrMalformedAction, kind)
	}
	if !rules.value && value != "" {
		return Action{}, fmt.Errorf("%w: %s does not take a value", ErrMalformedAction, kind)
	}
	if rules.attribute && attribute == "" {
		return Action{}, fmt.Errorf("%w: %s requires an attribute name", ErrMalformedAction, kind)
	}
	if !rules.attribute && attribute != "" {
		return Action{}, fmt.Errorf("%w: attribute is only valid for %s", ErrMalformedAction, ActionReadAttribute)
	}
	return Action{kind: kind, target: target, value: value, attribute: attribute}, nil
}

// -- Constructors --

func Navigate(url string) (Action, error) { return NewAction(ActionNavigate, "", url, "") }

func Fill(selector, text string) (Action, error) {
	return NewAction(ActionFill, selector, text, "")
}

func Click(selector string) (Action, error) { return NewAction(ActionClick, selector, "", "") }

func SelectOption(selector, value string) (Action, error) {
	return NewAction(ActionSelect, selector, value, "")
}

func ReadText(selector string) (Action, error) { return NewAction(ActionReadText, selector, "", "") }

func ReadAttribute(selector, name string) (Action, error) {
	return NewAction(ActionReadAttribute, selector, "", name)
}

func ReadCount(selector string) (Action, error) { return NewAction(ActionReadCount, selector, "", "") }

func ReadTitle() Action { return Action{kind: ActionReadTitle} }

func ReadURL() Action { return Action{kind: ActionReadURL} }

// Must panics if err is non-nil. It is meant for suites defined in Go
// source, where a malformed action is a programming error.
func Must(a Action, err error) Action {
	if err != nil {
		panic(err)
	}
	return a
}

// -- Accessors --

func (a Action) Kind() ActionKind  { return a.kind }
func (a Action) Target() string    { return a.target }
func (a Action) Value() string     { return a.value }
func (a Action) Attribute() string { return a.attribute }

// Reads reports whether the action produces a value for an assertion.
func (a Action) Reads() bool { return actionRules[a.kind].reads }

// IsZero reports whether the action was never constructed.
func (a Action) IsZero() bool { return a.kind == "" }

// String renders the action the way it appears in failure summaries.
func (a Action) String() string {
	switch a.kind {
	case ActionNavigate:
		return fmt.Sprintf("%s(%q)", a.kind, a.value)
	case ActionFill, ActionSelect:
		return fmt.Sprintf("%s(%q, %q)", a.kind, a.target, a.value)
	case ActionReadAttribute:
		return fmt.Sprintf("%s(%q, %q)", a.kind, a.target, a.attribute)
	case ActionReadTitle, ActionReadURL:
		return fmt.Sprintf("%s()", a.kind)
	default:
		return fmt.Sprintf("%s(%q)", a.kind, a.target)
	}
}
