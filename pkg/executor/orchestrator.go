package executor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/webpilot-ai/webpilot/pkg/browser"
	"github.com/webpilot-ai/webpilot/pkg/logging"
	"github.com/webpilot-ai/webpilot/pkg/types"
	"github.com/webpilot-ai/webpilot/pkg/workflow"
)

// ProgressListener receives events as a session advances. Listeners are
// called on the orchestrator's goroutine and should return quickly.
type ProgressListener func(event *types.ProgressEvent)

// PageProvider returns a fresh page backed by a new browser context. Used by
// hard resets to discard accumulated page state.
type PageProvider func(ctx context.Context) (browser.Page, error)

// Orchestrator drives a session's steps through a StepExecutor in order.
//
// The run halts on the first failed step; re-invoking Run afterwards resumes
// from the failed index, and whether to do so is the caller's call. There is
// no retry inside the loop.
type Orchestrator struct {
	session  *Session
	executor *StepExecutor
	logger   *logging.Logger

	mu           sync.RWMutex
	page         browser.Page
	listeners    []ProgressListener
	pageProvider PageProvider

	stopped atomic.Bool
	running atomic.Bool
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithPageProvider sets the factory hard resets use to replace the browser
// context. Without one, a hard reset falls back to navigating the existing
// page to about:blank.
func WithPageProvider(p PageProvider) OrchestratorOption {
	return func(o *Orchestrator) {
		o.pageProvider = p
	}
}

// NewOrchestrator creates an orchestrator that runs session against page.
func NewOrchestrator(session *Session, page browser.Page, stepExecutor *StepExecutor, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		session:  session,
		page:     page,
		executor: stepExecutor,
		logger:   logging.NewLogger("orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Session returns the session this orchestrator drives.
func (o *Orchestrator) Session() *Session {
	return o.session
}

// OnProgress registers a listener for progress events.
func (o *Orchestrator) OnProgress(l ProgressListener) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.listeners = append(o.listeners, l)
}

// Run executes the session's steps from the current cursor until they are
// exhausted, a step fails, or a stop lands on a step boundary. Step failures
// set the session status; Run itself only errors when the session is already
// running.
func (o *Orchestrator) Run(ctx context.Context) error {
	if !o.running.CompareAndSwap(false, true) {
		return fmt.Errorf("session %s is already running", o.session.ID())
	}
	defer o.running.Store(false)

	o.stopped.Store(false)
	o.session.SetStatus(SessionRunning)
	o.logger.Infof("session %s started (%d steps)", o.session.ID(), o.session.StepCount())

	for {
		step, index, ok := o.session.NextStep()
		if !ok {
			break
		}
		// Cancellation lands on step boundaries only; a step in flight
		// always runs to completion.
		if o.stopped.Load() || ctx.Err() != nil {
			o.session.SetStatus(SessionStopped)
			o.emit(types.NewRunStoppedEvent(o.session.ID(), index))
			o.logger.Infof("session %s stopped before step %d", o.session.ID(), index)
			return nil
		}

		o.emit(types.NewStepStartEvent(o.session.ID(), index))
		result := o.runStep(ctx, index, step)
		if !result.Succeeded() {
			o.session.SetStatus(SessionError)
			o.emit(types.NewRunCompleteEvent(o.session.ID(), index, string(SessionError)))
			o.logger.Warnf("session %s halted at step %d: %s", o.session.ID(), index, result.Message)
			return nil
		}
		o.session.Advance()
	}

	o.session.SetStatus(SessionSuccess)
	o.emit(types.NewRunCompleteEvent(o.session.ID(), o.session.CurrentIndex(), string(SessionSuccess)))
	o.logger.Infof("session %s completed", o.session.ID())
	return nil
}

// ExecuteStep runs one step against the current live page without touching
// the session: the cursor does not move and no result is recorded. This is
// the debugging surface for trying a step before committing it to a workflow.
func (o *Orchestrator) ExecuteStep(ctx context.Context, step workflow.Step) (*Result, error) {
	if o.running.Load() {
		return nil, fmt.Errorf("session %s is already running", o.session.ID())
	}
	return o.executor.Execute(ctx, o.currentPage(), step), nil
}

// Stop requests cancellation. The flag is honored at the next step boundary.
func (o *Orchestrator) Stop() {
	o.stopped.Store(true)
}

// SoftReset clears results and rewinds the cursor, keeping the steps and the
// browser context.
func (o *Orchestrator) SoftReset() error {
	if o.running.Load() {
		return fmt.Errorf("cannot reset session %s while it is running", o.session.ID())
	}
	o.stopped.Store(false)
	o.session.Reset()
	o.logger.Infof("session %s soft reset", o.session.ID())
	return nil
}

// HardReset wipes the session completely and replaces the browser context
// through the configured page provider. Without a provider the existing page
// is pointed at about:blank instead.
func (o *Orchestrator) HardReset(ctx context.Context) error {
	if o.running.Load() {
		return fmt.Errorf("cannot reset session %s while it is running", o.session.ID())
	}
	o.stopped.Store(false)
	o.session.Clear()

	o.mu.Lock()
	provider := o.pageProvider
	o.mu.Unlock()

	if provider == nil {
		if err := o.currentPage().Navigate("about:blank", browser.NavigateOptions{}); err != nil {
			return fmt.Errorf("page reset failed: %w", err)
		}
	} else {
		page, err := provider(ctx)
		if err != nil {
			return fmt.Errorf("browser context replacement failed: %w", err)
		}
		o.setPage(page)
	}
	o.logger.Infof("session %s hard reset", o.session.ID())
	return nil
}

func (o *Orchestrator) runStep(ctx context.Context, index int, step workflow.Step) *Result {
	result := o.executor.Execute(ctx, o.currentPage(), step)
	o.session.RecordResult(index, result)

	url := o.currentPage().URL()
	title, err := o.currentPage().Title()
	if err != nil {
		title = ""
	}
	o.session.UpdatePage(url, title)

	o.emit(types.NewStepCompleteEvent(o.session.ID(), index, string(result.Status), result.Screenshot, url, title))
	return result
}

func (o *Orchestrator) emit(event *types.ProgressEvent) {
	o.mu.RLock()
	listeners := make([]ProgressListener, len(o.listeners))
	copy(listeners, o.listeners)
	o.mu.RUnlock()
	for _, l := range listeners {
		l(event)
	}
}

func (o *Orchestrator) currentPage() browser.Page {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.page
}

func (o *Orchestrator) setPage(page browser.Page) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.page = page
}
