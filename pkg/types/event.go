package types

// ProgressEventType defines the type of event emitted during workflow execution.
type ProgressEventType string

const (
	EventTypeStepStart    ProgressEventType = "step_start"    // EventTypeStepStart indicates a step is about to execute.
	EventTypeStepComplete ProgressEventType = "step_complete" // EventTypeStepComplete indicates a step finished, success or error.
	EventTypeRunComplete  ProgressEventType = "run_complete"  // EventTypeRunComplete indicates the whole session finished.
	EventTypeRunStopped   ProgressEventType = "run_stopped"   // EventTypeRunStopped indicates the session was cancelled between steps.
)

// ProgressEvent is emitted to the external UI layer as a session advances.
//
// Screenshot carries the step's diagnostic capture and is only populated on
// step completion events.
type ProgressEvent struct {
	Type       ProgressEventType `json:"type"`
	SessionID  string            `json:"session_id"`
	StepIndex  int               `json:"step_index"`
	Status     string            `json:"status"`
	Screenshot []byte            `json:"screenshot,omitempty"`
	URL        string            `json:"url,omitempty"`
	Title      string            `json:"title,omitempty"`
}

// NewStepStartEvent creates a step start event.
func NewStepStartEvent(sessionID string, stepIndex int) *ProgressEvent {
	return &ProgressEvent{
		Type:      EventTypeStepStart,
		SessionID: sessionID,
		StepIndex: stepIndex,
		Status:    "running",
	}
}

// NewStepCompleteEvent creates a step completion event carrying the page state
// observed after the step ran.
func NewStepCompleteEvent(sessionID string, stepIndex int, status string, screenshot []byte, url, title string) *ProgressEvent {
	return &ProgressEvent{
		Type:       EventTypeStepComplete,
		SessionID:  sessionID,
		StepIndex:  stepIndex,
		Status:     status,
		Screenshot: screenshot,
		URL:        url,
		Title:      title,
	}
}

// NewRunCompleteEvent creates a run completion event.
func NewRunCompleteEvent(sessionID string, stepIndex int, status string) *ProgressEvent {
	return &ProgressEvent{
		Type:      EventTypeRunComplete,
		SessionID: sessionID,
		StepIndex: stepIndex,
		Status:    status,
	}
}

// NewRunStoppedEvent creates a run stopped event.
func NewRunStoppedEvent(sessionID string, stepIndex int) *ProgressEvent {
	return &ProgressEvent{
		Type:      EventTypeRunStopped,
		SessionID: sessionID,
		StepIndex: stepIndex,
		Status:    "stopped",
	}
}

// IsTerminal returns true if this event ends the session's run.
func (e *ProgressEvent) IsTerminal() bool {
	return e.Type == EventTypeRunComplete || e.Type == EventTypeRunStopped
}
