package schemas

import "errors"

// -- Error Taxonomy --

var (
	// ErrMalformedAction is returned when an Action is constructed with fields
	// missing (or present) in violation of its kind's requirements.
	ErrMalformedAction = errors.New("malformed action")

	// ErrMalformedScenario is returned for scenario or step definitions that
	// cannot be built (empty name, nil step data, duplicate names in a suite).
	ErrMalformedScenario = errors.New("malformed scenario")

	// ErrTypeMismatch indicates an assertion was evaluated against a value of
	// the wrong shape. It is an authoring bug in the scenario.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrElementNotFound is returned by a backend when the selector matches
	// nothing, or nothing interactable, at the time of the call.
	ErrElementNotFound = errors.New("element not found")

	// ErrTimeout is returned when a backend call or a step's retry budget
	// exceeds its deadline.
	ErrTimeout = errors.New("timeout")

	// ErrBackendDisconnected signals an infrastructure fault: the browser
	// crashed, the protocol connection dropped, or the session is gone.
	ErrBackendDisconnected = errors.New("backend disconnected")

	// ErrNavigation is returned when the page could not be loaded at all.
	ErrNavigation = errors.New("navigation failed")

	// ErrCancelled marks work interrupted by run-level cancellation.
	ErrCancelled = errors.New("cancelled")

	// ErrReportAlreadySealed is a contract violation: results were added to, or
	// sealed on, a report that was already sealed.
	ErrReportAlreadySealed = errors.New("report already sealed")
)

// Retryable reports whether a backend error may clear up on its own while
// the page settles.
func Retryable(err error) bool {
	return errors.Is(err, ErrElementNotFound) || errors.Is(err, ErrTimeout)
}

// DetailFor maps an error onto the outcome detail recorded in reports.
func DetailFor(err error) OutcomeDetail {
	switch {
	case err == nil:
		return DetailNone
	case errors.Is(err, ErrCancelled):
		return DetailCancelled
	case errors.Is(err, ErrTypeMismatch):
		return DetailTypeMismatch
	case errors.Is(err, ErrElementNotFound):
		return DetailElementNotFound
	case errors.Is(err, ErrTimeout):
		return DetailTimeout
	case errors.Is(err, ErrNavigation):
		return DetailNavigation
	case errors.Is(err, ErrBackendDisconnected):
		return DetailBackendDisconnected
	default:
		return DetailBackendError
	}
}
