package types

import (
	"errors"
	"fmt"
)

// ErrorKind identifies the category of a step-level failure.
type ErrorKind string

const (
	ErrorKindElementNotFound        ErrorKind = "element_not_found"
	ErrorKindTimeout                ErrorKind = "timeout"
	ErrorKindNavigationFailure      ErrorKind = "navigation_failure"
	ErrorKindFieldNotEditable       ErrorKind = "field_not_editable"
	ErrorKindNoMatchingOption       ErrorKind = "no_matching_option"
	ErrorKindSignInFlowIncomplete   ErrorKind = "sign_in_flow_incomplete"
	ErrorKindReportDegraded         ErrorKind = "report_generation_degraded"
	ErrorKindPersistenceUnavailable ErrorKind = "persistence_unavailable"
)

// StepError is a step-level failure carried as data in a step result.
//
// Executor code returns these instead of panicking; the orchestrator decides
// whether a given kind halts the run.
type StepError struct {
	Kind    ErrorKind
	Message string
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewStepError creates a StepError with a formatted message.
func NewStepError(kind ErrorKind, format string, args ...interface{}) *StepError {
	return &StepError{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// KindOf extracts the ErrorKind from err. It returns the empty kind when err
// is nil or does not wrap a StepError.
func KindOf(err error) ErrorKind {
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr.Kind
	}
	return ""
}

// IsRecoverable reports whether a failure of this kind aborts only its own
// sub-flow rather than the whole run.
func (k ErrorKind) IsRecoverable() bool {
	return k == ErrorKindSignInFlowIncomplete || k == ErrorKindReportDegraded
}
