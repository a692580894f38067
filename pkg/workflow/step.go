// Package workflow defines the step schema executed by the engine.
//
// A workflow is an ordered list of atomic browser actions produced by an
// upstream planner (or written by hand) and validated here before execution.
package workflow

import "fmt"

// StepType represents the kind of browser action a step performs.
type StepType string

const (
	StepNavigate   StepType = "navigate"
	StepClick      StepType = "click"
	StepTypeText   StepType = "type"
	StepWait       StepType = "wait"
	StepSelect     StepType = "select"
	StepExtract    StepType = "extract"
	StepScreenshot StepType = "screenshot"
)

// AllStepTypes lists every supported step type in a stable order.
var AllStepTypes = []StepType{
	StepNavigate,
	StepClick,
	StepTypeText,
	StepWait,
	StepSelect,
	StepExtract,
	StepScreenshot,
}

// Step is one atomic browser-action instruction in a workflow.
//
// Selector holds either an exact CSS selector or a natural-language
// description of the target; resolution between the two happens at execution
// time. Timeout is in milliseconds and zero means the engine default.
type Step struct {
	ID          string   `json:"id,omitempty"`
	Type        StepType `json:"type"`
	URL         string   `json:"url,omitempty"`
	Selector    string   `json:"selector,omitempty"`
	Value       string   `json:"value,omitempty"`
	Timeout     float64  `json:"timeout,omitempty"`
	Description string   `json:"description,omitempty"`
}

// Validate checks that the fields required by the step's type are present.
func (s *Step) Validate() error {
	switch s.Type {
	case StepNavigate:
		if s.URL == "" {
			return fmt.Errorf("navigate step requires a url")
		}
	case StepClick:
		if s.Selector == "" {
			return fmt.Errorf("click step requires a selector or description")
		}
	case StepTypeText:
		if s.Selector == "" {
			return fmt.Errorf("type step requires a selector or description")
		}
		if s.Value == "" {
			return fmt.Errorf("type step requires a value")
		}
	case StepSelect:
		if s.Selector == "" {
			return fmt.Errorf("select step requires a selector or description")
		}
		if s.Value == "" {
			return fmt.Errorf("select step requires a value")
		}
	case StepExtract:
		if s.Selector == "" {
			return fmt.Errorf("extract step requires a selector or description")
		}
	case StepWait:
		if s.Selector == "" && s.Timeout <= 0 {
			return fmt.Errorf("wait step requires a selector or a positive timeout")
		}
	case StepScreenshot:
		// Nothing required; captures the current viewport.
	default:
		return fmt.Errorf("unsupported step type %q", s.Type)
	}
	return nil
}

// Target returns the step's target: the URL for navigate steps, the selector
// or description otherwise.
func (s *Step) Target() string {
	if s.Type == StepNavigate {
		return s.URL
	}
	return s.Selector
}

// Summary returns a short human-readable line describing the step, preferring
// the author-supplied description.
func (s *Step) Summary() string {
	if s.Description != "" {
		return s.Description
	}
	switch s.Type {
	case StepNavigate:
		return fmt.Sprintf("Navigate to %s", s.URL)
	case StepClick:
		return fmt.Sprintf("Click %s", s.Selector)
	case StepTypeText:
		return fmt.Sprintf("Type into %s", s.Selector)
	case StepWait:
		if s.Selector != "" {
			return fmt.Sprintf("Wait for %s", s.Selector)
		}
		return fmt.Sprintf("Wait %.0fms", s.Timeout)
	case StepSelect:
		return fmt.Sprintf("Select %q in %s", s.Value, s.Selector)
	case StepExtract:
		return fmt.Sprintf("Extract content from %s", s.Selector)
	case StepScreenshot:
		return "Capture screenshot"
	default:
		return string(s.Type)
	}
}
