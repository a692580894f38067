package executor

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/webpilot-ai/webpilot/pkg/workflow"
)

// SessionStatus of a workflow execution as a whole.
type SessionStatus string

const (
	SessionPending SessionStatus = "pending"
	SessionRunning SessionStatus = "running"
	SessionSuccess SessionStatus = "success"
	SessionError   SessionStatus = "error"
	SessionStopped SessionStatus = "stopped"
)

// Session tracks one workflow execution: the step list, the cursor, and the
// per-step results. It is safe for concurrent use so status can be polled
// while a run is in flight.
type Session struct {
	mu           sync.RWMutex
	id           string
	steps        []workflow.Step
	currentIndex int
	results      map[int]*Result
	status       SessionStatus
	url          string
	title        string
	startedAt    time.Time
	finishedAt   time.Time
}

// NewSession creates a pending session for the given steps.
func NewSession(steps []workflow.Step) *Session {
	return &Session{
		id:      uuid.New().String(),
		steps:   steps,
		results: make(map[int]*Result),
		status:  SessionPending,
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// Steps returns a copy of the session's step list.
func (s *Session) Steps() []workflow.Step {
	s.mu.RLock()
	defer s.mu.RUnlock()
	steps := make([]workflow.Step, len(s.steps))
	copy(steps, s.steps)
	return steps
}

// StepCount returns the total number of steps in the workflow.
func (s *Session) StepCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.steps)
}

// Status returns the session's current status.
func (s *Session) Status() SessionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// SetStatus updates the session's status, stamping start and finish times on
// the transitions into and out of the running state.
func (s *Session) SetStatus(status SessionStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == SessionRunning && s.startedAt.IsZero() {
		s.startedAt = time.Now()
	}
	if status != SessionRunning && status != SessionPending {
		s.finishedAt = time.Now()
	}
	s.status = status
}

// CurrentIndex returns the index of the next step to execute.
func (s *Session) CurrentIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentIndex
}

// NextStep returns the step at the cursor. ok is false once the cursor has
// moved past the last step.
func (s *Session) NextStep() (workflow.Step, int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.currentIndex >= len(s.steps) {
		return workflow.Step{}, s.currentIndex, false
	}
	return s.steps[s.currentIndex], s.currentIndex, true
}

// Advance moves the cursor to the next step.
func (s *Session) Advance() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentIndex++
}

// RecordResult stores the result for the step at index.
func (s *Session) RecordResult(index int, result *Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[index] = result
}

// Result returns the recorded result for the step at index, or nil.
func (s *Session) Result(index int) *Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.results[index]
}

// Results returns all recorded results in step order. Steps that never ran
// have no entry.
func (s *Session) Results() []*Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	results := make([]*Result, 0, len(s.results))
	for i := 0; i < len(s.steps); i++ {
		if r, ok := s.results[i]; ok {
			results = append(results, r)
		}
	}
	return results
}

// ExecutedSteps returns the number of steps that completed successfully.
func (s *Session) ExecutedSteps() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, r := range s.results {
		if r.Succeeded() {
			count++
		}
	}
	return count
}

// UpdatePage records the page state observed after the most recent step.
func (s *Session) UpdatePage(url, title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.url = url
	s.title = title
}

// PageState returns the last recorded page URL and title.
func (s *Session) PageState() (url, title string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.url, s.title
}

// Reset clears results and rewinds the cursor so the session can run again.
// The step list is kept.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

// Clear wipes the session completely: steps, results, cursor, and page state.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps = nil
	s.url = ""
	s.title = ""
	s.resetLocked()
}

// SetSteps replaces the session's workflow and resets it.
func (s *Session) SetSteps(steps []workflow.Step) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps = steps
	s.resetLocked()
}

func (s *Session) resetLocked() {
	s.currentIndex = 0
	s.results = make(map[int]*Result)
	s.status = SessionPending
	s.startedAt = time.Time{}
	s.finishedAt = time.Time{}
}

// Duration returns how long the session ran, or the elapsed time so far for a
// session still in flight.
func (s *Session) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.startedAt.IsZero() {
		return 0
	}
	if s.finishedAt.IsZero() {
		return time.Since(s.startedAt)
	}
	return s.finishedAt.Sub(s.startedAt)
}

// SessionSnapshot is a point-in-time copy of a session for serialization.
type SessionSnapshot struct {
	ID            string        `json:"id"`
	Status        SessionStatus `json:"status"`
	TotalSteps    int           `json:"total_steps"`
	ExecutedSteps int           `json:"executed_steps"`
	CurrentIndex  int           `json:"current_index"`
	Results       []*Result     `json:"results"`
	URL           string        `json:"url,omitempty"`
	Title         string        `json:"title,omitempty"`
	DurationMs    int64         `json:"duration_ms"`
}

// Snapshot captures the session's current state.
func (s *Session) Snapshot() *SessionSnapshot {
	snap := &SessionSnapshot{
		ID:            s.ID(),
		Status:        s.Status(),
		TotalSteps:    s.StepCount(),
		ExecutedSteps: s.ExecutedSteps(),
		CurrentIndex:  s.CurrentIndex(),
		Results:       s.Results(),
		DurationMs:    s.Duration().Milliseconds(),
	}
	snap.URL, snap.Title = s.PageState()
	return snap
}
