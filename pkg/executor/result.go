package executor

import (
	"strings"
	"time"

	"github.com/webpilot-ai/webpilot/pkg/types"
	"github.com/webpilot-ai/webpilot/pkg/workflow"
)

// Status of a single step execution.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Result records the outcome of one step execution.
//
// Failures are carried as data: Status flips to error and ErrorKind names the
// category, but the executor never returns a Go error for a step that merely
// failed. Screenshot holds the diagnostic capture taken after the step ran,
// success or not.
type Result struct {
	StepType   workflow.StepType `json:"step_type"`
	Status     Status            `json:"status"`
	Message    string            `json:"message"`
	Screenshot []byte            `json:"screenshot,omitempty"`
	Data       string            `json:"data,omitempty"`
	DurationMs int64             `json:"duration_ms"`
	Timestamp  time.Time         `json:"timestamp"`
	ErrorKind  types.ErrorKind   `json:"error_kind,omitempty"`
}

// Succeeded reports whether the step completed without error.
func (r *Result) Succeeded() bool {
	return r.Status == StatusSuccess
}

// classifyError maps err to an ErrorKind. A StepError keeps its own kind,
// driver timeouts become Timeout, and anything else gets the fallback kind of
// the operation that produced it.
func classifyError(err error, fallback types.ErrorKind) types.ErrorKind {
	if kind := types.KindOf(err); kind != "" {
		return kind
	}
	if strings.Contains(strings.ToLower(err.Error()), "timeout") {
		return types.ErrorKindTimeout
	}
	return fallback
}
