package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/webpilot-ai/webpilot/pkg/browser"
	"github.com/webpilot-ai/webpilot/pkg/executor"
	"github.com/webpilot-ai/webpilot/pkg/feedback"
	"github.com/webpilot-ai/webpilot/pkg/workflow"
)

type executeStepRequest struct {
	Step workflow.Step `json:"step"`
	// ContinueFromCurrent keeps the debug session's page instead of
	// starting a fresh one.
	ContinueFromCurrent bool  `json:"continue_from_current"`
	Headless            *bool `json:"headless,omitempty"`
}

type executeStepResponse struct {
	Success bool             `json:"success"`
	Result  *executor.Result `json:"result"`
}

type executeWorkflowRequest struct {
	Steps    []workflow.Step `json:"steps"`
	Headless *bool           `json:"headless,omitempty"`
	Task     string          `json:"task,omitempty"`
}

type executeWorkflowResponse struct {
	Success       bool               `json:"success"`
	ExecutionID   string             `json:"execution_id"`
	TotalSteps    int                `json:"total_steps"`
	ExecutedSteps int                `json:"executed_steps"`
	Results       []*executor.Result `json:"results"`
	// Error carries the first failed step's message, verbatim.
	Error string `json:"error,omitempty"`
}

type feedbackRequest struct {
	OriginalTask   string          `json:"original_task"`
	GeneratedSteps []workflow.Step `json:"generated_steps"`
	CorrectedSteps []workflow.Step `json:"corrected_steps"`
	FeedbackType   string          `json:"feedback_type"`
	URL            string          `json:"url,omitempty"`
	Notes          string          `json:"notes,omitempty"`
}

type feedbackResponse struct {
	Success   bool `json:"success"`
	Frequency int  `json:"frequency"`
}

type suggestionsRequest struct {
	TaskDescription string `json:"task_description"`
	URL             string `json:"url,omitempty"`
}

type suggestionsResponse struct {
	Suggestions []feedback.Suggestion `json:"suggestions"`
}

// handleExecuteStep runs one step against the shared debug browser session.
// The session's page survives between calls when continue_from_current is
// set, so callers can probe a workflow step by step.
func (s *Server) handleExecuteStep(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	var req executeStepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON: %v", err)
		return
	}
	if err := req.Step.Validate(); err != nil {
		s.writeError(w, http.StatusBadRequest, "%v", err)
		return
	}

	s.debugMu.Lock()
	defer s.debugMu.Unlock()

	page, err := s.debugPage(req.ContinueFromCurrent, s.headlessFor(req.Headless))
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "browser session unavailable: %v", err)
		return
	}

	result := s.executor.Execute(r.Context(), page, req.Step)
	s.writeJSON(w, http.StatusOK, executeStepResponse{
		Success: result.Succeeded(),
		Result:  result,
	})
}

func (s *Server) debugPage(continueFromCurrent, headless bool) (browser.Page, error) {
	if continueFromCurrent {
		return s.pages.Ensure(debugSessionName, headless)
	}
	// A fresh run always restarts the page; a stale one may not exist yet.
	_ = s.pages.Close(debugSessionName)
	return s.pages.Open(debugSessionName, headless)
}

// handleExecuteWorkflow runs a full workflow in its own browser session and
// compiles its report. Concurrent requests each get an isolated session.
func (s *Server) handleExecuteWorkflow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	var req executeWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON: %v", err)
		return
	}
	wf := workflow.Workflow{Task: req.Task, Steps: req.Steps}
	if err := wf.Validate(); err != nil {
		s.writeError(w, http.StatusBadRequest, "%v", err)
		return
	}

	session := executor.NewSession(req.Steps)
	headless := s.headlessFor(req.Headless)

	page, err := s.pages.Open(session.ID(), headless)
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "browser session unavailable: %v", err)
		return
	}
	defer func() {
		if closeErr := s.pages.Close(session.ID()); closeErr != nil {
			s.logger.Warnf("failed to close browser session %s: %v", session.ID(), closeErr)
		}
	}()

	provider := func(ctx context.Context) (browser.Page, error) {
		if err := s.pages.Close(session.ID()); err != nil {
			return nil, err
		}
		return s.pages.Open(session.ID(), headless)
	}
	orch := executor.NewOrchestrator(session, page, s.executor, executor.WithPageProvider(provider))
	if err := orch.Run(r.Context()); err != nil {
		s.writeError(w, http.StatusInternalServerError, "workflow run failed: %v", err)
		return
	}

	results := session.Results()
	resp := executeWorkflowResponse{
		Success:       session.Status() == executor.SessionSuccess,
		ExecutionID:   session.ID(),
		TotalSteps:    session.StepCount(),
		ExecutedSteps: session.ExecutedSteps(),
		Results:       results,
		Error:         firstErrorMessage(results),
	}

	rep := s.compiler.Compile(r.Context(), session, req.Task)
	s.storeReport(rep)
	if s.artifacts != nil {
		if err := s.artifacts.WriteAll(rep, results); err != nil {
			s.logger.Warnf("artifact write failed for %s: %v", session.ID(), err)
		}
	}

	s.logger.Infof("workflow %s finished: status=%s executed=%d/%d",
		session.ID(), session.Status(), resp.ExecutedSteps, resp.TotalSteps)
	s.writeJSON(w, http.StatusOK, resp)
}

// handleFeedback records a correction or outcome report for a generated
// workflow.
func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.store == nil {
		s.writeError(w, http.StatusServiceUnavailable, "feedback store not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON: %v", err)
		return
	}

	sub := feedback.Submission{
		OriginalTask:   req.OriginalTask,
		GeneratedSteps: req.GeneratedSteps,
		CorrectedSteps: req.CorrectedSteps,
		Type:           feedback.FeedbackType(req.FeedbackType),
		URL:            req.URL,
		Notes:          req.Notes,
	}
	if err := sub.Validate(); err != nil {
		s.writeError(w, http.StatusBadRequest, "%v", err)
		return
	}

	record, err := s.store.SubmitFeedback(r.Context(), sub)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to store feedback: %v", err)
		return
	}

	s.writeJSON(w, http.StatusOK, feedbackResponse{
		Success:   true,
		Frequency: record.Frequency,
	})
}

// handleSuggestions serves similarity-matched learning records for a task.
// GET passes task/url as query parameters; POST passes a JSON body.
func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	var task, taskURL string
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		task = q.Get("task")
		if task == "" {
			task = q.Get("task_description")
		}
		taskURL = q.Get("url")
	case http.MethodPost:
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
		var req suggestionsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid JSON: %v", err)
			return
		}
		task = req.TaskDescription
		taskURL = req.URL
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if task == "" {
		s.writeError(w, http.StatusBadRequest, "task_description is required")
		return
	}
	if s.store == nil {
		// No history to draw on; an empty list is still a valid answer.
		s.writeJSON(w, http.StatusOK, suggestionsResponse{Suggestions: []feedback.Suggestion{}})
		return
	}

	suggestions, err := s.store.GetSuggestions(r.Context(), task, taskURL)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load suggestions: %v", err)
		return
	}

	s.writeJSON(w, http.StatusOK, suggestionsResponse{Suggestions: suggestions})
}

// handleReport serves a stored report by execution id.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	executionID := strings.TrimPrefix(r.URL.Path, "/api/reports/")
	if executionID == "" || strings.Contains(executionID, "/") {
		s.writeError(w, http.StatusBadRequest, "execution id required")
		return
	}

	rep, ok := s.reportByID(executionID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "report %q not found", executionID)
		return
	}

	s.writeJSON(w, http.StatusOK, rep)
}

// handleHealth reports liveness and the open browser session count.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.pages.Active(),
	})
}

// firstErrorMessage surfaces the first failed result's message verbatim.
func firstErrorMessage(results []*executor.Result) string {
	for _, result := range results {
		if result != nil && !result.Succeeded() {
			return result.Message
		}
	}
	return ""
}
