// Package server exposes the automation engine over an HTTP JSON API.
//
// Handlers are thin: they translate wire shapes to engine calls and let the
// executor's errors-as-results model do the rest. Step failures travel back
// as result objects with HTTP 200; non-200 statuses are reserved for
// malformed requests and unavailable collaborators.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/webpilot-ai/webpilot/pkg/browser"
	"github.com/webpilot-ai/webpilot/pkg/config"
	"github.com/webpilot-ai/webpilot/pkg/executor"
	"github.com/webpilot-ai/webpilot/pkg/feedback"
	"github.com/webpilot-ai/webpilot/pkg/logging"
	"github.com/webpilot-ai/webpilot/pkg/report"
)

const (
	// debugSessionName is the shared browser session single-step runs use.
	debugSessionName = "debug"

	// maxRequestBytes caps request bodies. Workflows are small; anything
	// larger is a client bug.
	maxRequestBytes = 1 << 20

	// maxStoredReports bounds the in-memory report registry. Oldest
	// executions roll off first.
	maxStoredReports = 128
)

// PageFactory opens and closes browser pages for executions. The production
// factory is backed by browser.SessionManager; tests substitute fakes so no
// browser launches.
type PageFactory interface {
	// Open starts a fresh page under the given session name.
	Open(name string, headless bool) (browser.Page, error)
	// Ensure returns the named session's page, starting one when absent.
	Ensure(name string, headless bool) (browser.Page, error)
	// Close tears the named session down.
	Close(name string) error
	// Active reports how many sessions are open.
	Active() int
}

// Server wires the engine components behind the HTTP API.
type Server struct {
	pages     PageFactory
	executor  *executor.StepExecutor
	compiler  *report.Compiler
	store     *feedback.Store
	artifacts *report.ArtifactWriter
	headless  bool
	logger    *logging.Logger

	mu          sync.RWMutex
	reports     map[string]*report.Report
	reportOrder []string

	// debugMu serializes single-step runs; they share one browser session.
	debugMu sync.Mutex
}

// Option configures a Server.
type Option func(*Server)

// WithFeedbackStore enables the feedback and suggestions endpoints.
func WithFeedbackStore(store *feedback.Store) Option {
	return func(s *Server) {
		s.store = store
	}
}

// WithArtifactWriter persists report artifacts to disk after each workflow
// run.
func WithArtifactWriter(writer *report.ArtifactWriter) Option {
	return func(s *Server) {
		s.artifacts = writer
	}
}

// WithDefaultHeadless sets the browser mode used when requests omit the
// headless flag.
func WithDefaultHeadless(headless bool) Option {
	return func(s *Server) {
		s.headless = headless
	}
}

// New creates a Server. The feedback store and artifact writer are optional;
// their endpoints degrade gracefully when absent.
func New(pages PageFactory, stepExecutor *executor.StepExecutor, compiler *report.Compiler, opts ...Option) *Server {
	s := &Server{
		pages:    pages,
		executor: stepExecutor,
		compiler: compiler,
		headless: true,
		logger:   logging.NewLogger("server"),
		reports:  make(map[string]*report.Report),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the API routes. The caller owns the http.Server lifecycle.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/execute-step", s.handleExecuteStep)
	mux.HandleFunc("/api/execute-workflow", s.handleExecuteWorkflow)
	mux.HandleFunc("/api/feedback", s.handleFeedback)
	mux.HandleFunc("/api/suggestions", s.handleSuggestions)
	mux.HandleFunc("/api/reports/", s.handleReport)
	mux.HandleFunc("/api/health", s.handleHealth)
	return mux
}

// headlessFor resolves a request's optional headless flag against the
// server default.
func (s *Server) headlessFor(requested *bool) bool {
	if requested != nil {
		return *requested
	}
	return s.headless
}

func (s *Server) storeReport(rep *report.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reports[rep.ExecutionID]; !exists {
		s.reportOrder = append(s.reportOrder, rep.ExecutionID)
	}
	s.reports[rep.ExecutionID] = rep

	for len(s.reportOrder) > maxStoredReports {
		oldest := s.reportOrder[0]
		s.reportOrder = s.reportOrder[1:]
		delete(s.reports, oldest)
	}
}

func (s *Server) reportByID(executionID string) (*report.Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rep, ok := s.reports[executionID]
	return rep, ok
}

// BrowserFactory is the PageFactory backed by a live SessionManager.
type BrowserFactory struct {
	manager *browser.SessionManager
	cfg     config.BrowserConfig
}

// NewBrowserFactory creates a factory opening pages through manager using
// the configured viewport and timeouts.
func NewBrowserFactory(manager *browser.SessionManager, cfg config.BrowserConfig) *BrowserFactory {
	return &BrowserFactory{
		manager: manager,
		cfg:     cfg,
	}
}

func (f *BrowserFactory) options(headless bool) browser.SessionOptions {
	return browser.SessionOptions{
		Headless: headless,
		Viewport: &browser.Viewport{
			Width:  f.cfg.ViewportWidth,
			Height: f.cfg.ViewportHeight,
		},
		Timeout: f.cfg.StepTimeoutMs,
	}
}

// Open starts a fresh browser session.
func (f *BrowserFactory) Open(name string, headless bool) (browser.Page, error) {
	session, err := f.manager.StartSession(name, f.options(headless))
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Ensure reuses the named session or starts one.
func (f *BrowserFactory) Ensure(name string, headless bool) (browser.Page, error) {
	session, err := f.manager.EnsureSession(name, f.options(headless))
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Close closes the named session.
func (f *BrowserFactory) Close(name string) error {
	return f.manager.CloseSession(name)
}

// Active reports the open session count.
func (f *BrowserFactory) Active() int {
	return len(f.manager.ListSessions())
}

// writeJSON is the JSON response helper all handlers share.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Errorf("failed to encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, format string, args ...any) {
	s.writeJSON(w, status, map[string]string{"error": fmt.Sprintf(format, args...)})
}
