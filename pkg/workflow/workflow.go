package workflow

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Workflow is an ordered sequence of steps run against one browser session.
type Workflow struct {
	Name  string `json:"name,omitempty"`
	Task  string `json:"task,omitempty"`
	Steps []Step `json:"steps"`
}

// Validate checks the workflow has at least one step and every step is valid.
func (w *Workflow) Validate() error {
	if len(w.Steps) == 0 {
		return fmt.Errorf("workflow has no steps")
	}
	for i := range w.Steps {
		if err := w.Steps[i].Validate(); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}
	return nil
}

// ParseWorkflow decodes and validates a workflow document. It accepts either
// a workflow object or a bare JSON array of steps, which is how exported step
// lists commonly arrive.
func ParseWorkflow(data []byte) (*Workflow, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("workflow document is empty")
	}

	var wf Workflow
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &wf.Steps); err != nil {
			return nil, fmt.Errorf("failed to parse step list: %w", err)
		}
	} else {
		if err := json.Unmarshal(trimmed, &wf); err != nil {
			return nil, fmt.Errorf("failed to parse workflow: %w", err)
		}
	}

	if err := wf.Validate(); err != nil {
		return nil, err
	}
	return &wf, nil
}
