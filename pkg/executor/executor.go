// Package executor runs workflow steps against a live browser page.
//
// StepExecutor maps each step type onto browser operations and records the
// outcome as a Result. Orchestrator drives a whole session through a
// StepExecutor, halting on the first failed step and emitting progress events
// along the way.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/webpilot-ai/webpilot/pkg/browser"
	"github.com/webpilot-ai/webpilot/pkg/logging"
	"github.com/webpilot-ai/webpilot/pkg/resolver"
	"github.com/webpilot-ai/webpilot/pkg/signin"
	"github.com/webpilot-ai/webpilot/pkg/types"
	"github.com/webpilot-ai/webpilot/pkg/workflow"
)

const (
	// clickSettleMs is the pause after a click, giving any triggered
	// navigation a chance to start before the next step runs.
	clickSettleMs = 500.0
	// waitPollMs is the interval between resolution attempts while waiting
	// for an element to appear.
	waitPollMs = 250.0
)

// StepExecutor executes individual workflow steps against a page.
type StepExecutor struct {
	resolver *resolver.Resolver
	detector *signin.Detector
	logger   *logging.Logger
}

// ExecutorOption configures a StepExecutor.
type ExecutorOption func(*StepExecutor)

// WithSignInDetector enables sign-in detection after navigate steps.
func WithSignInDetector(d *signin.Detector) ExecutorOption {
	return func(e *StepExecutor) {
		e.detector = d
	}
}

// NewStepExecutor creates a step executor using the given selector resolver.
func NewStepExecutor(res *resolver.Resolver, opts ...ExecutorOption) *StepExecutor {
	e := &StepExecutor{
		resolver: res,
		logger:   logging.NewLogger("executor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs a single step and returns its result. Step failures are
// reported in the result, never as a Go error. Every result carries a
// diagnostic screenshot when the page can produce one.
func (e *StepExecutor) Execute(ctx context.Context, page browser.Page, step workflow.Step) *Result {
	start := time.Now()
	result := &Result{
		StepType:  step.Type,
		Status:    StatusSuccess,
		Timestamp: start,
	}

	if err := step.Validate(); err != nil {
		result.Status = StatusError
		result.Message = err.Error()
	} else {
		switch step.Type {
		case workflow.StepNavigate:
			e.navigate(ctx, page, step, result)
		case workflow.StepClick:
			e.click(ctx, page, step, result)
		case workflow.StepTypeText:
			e.typeText(ctx, page, step, result)
		case workflow.StepSelect:
			e.selectOption(ctx, page, step, result)
		case workflow.StepWait:
			e.wait(ctx, page, step, result)
		case workflow.StepExtract:
			e.extract(ctx, page, step, result)
		case workflow.StepScreenshot:
			// The diagnostic capture below is the step's whole job.
		}
	}

	e.attachScreenshot(page, result)
	if result.Message == "" {
		result.Message = step.Summary()
	}
	result.DurationMs = time.Since(start).Milliseconds()
	return result
}

func (e *StepExecutor) navigate(ctx context.Context, page browser.Page, step workflow.Step, result *Result) {
	opts := browser.NavigateOptions{WaitUntil: "load", Timeout: step.Timeout}
	if err := page.Navigate(step.URL, opts); err != nil {
		e.fail(result, err, types.ErrorKindNavigationFailure)
		return
	}
	result.Message = fmt.Sprintf("Navigated to %s", step.URL)
	if e.detector == nil {
		return
	}
	if _, err := e.detector.Run(ctx, page); err != nil {
		// A stalled sign-in flow warns on the step instead of failing it.
		e.logger.Warnf("sign-in detection: %v", err)
		result.Message = fmt.Sprintf("Navigated to %s (sign-in flow incomplete)", step.URL)
	}
}

func (e *StepExecutor) click(ctx context.Context, page browser.Page, step workflow.Step, result *Result) {
	res, err := e.resolver.Resolve(ctx, page, step.Selector)
	if err != nil {
		e.fail(result, err, types.ErrorKindElementNotFound)
		return
	}
	if err := page.Click(browser.ClickOptions{Selector: res.Selector, Timeout: step.Timeout}); err != nil {
		e.fail(result, err, types.ErrorKindElementNotFound)
		return
	}
	// Give any navigation the click triggered a chance to start.
	_ = page.Wait(browser.WaitOptions{Timeout: clickSettleMs})
	result.Message = fmt.Sprintf("Clicked %s", res.Selector)
}

func (e *StepExecutor) typeText(ctx context.Context, page browser.Page, step workflow.Step, result *Result) {
	res, err := e.resolver.Resolve(ctx, page, step.Selector)
	if err != nil {
		e.fail(result, err, types.ErrorKindElementNotFound)
		return
	}
	editable, err := page.IsEditable(res.Selector)
	if err != nil {
		e.fail(result, err, types.ErrorKindElementNotFound)
		return
	}
	if !editable {
		e.fail(result, types.NewStepError(types.ErrorKindFieldNotEditable, "element %s is not editable", res.Selector), types.ErrorKindFieldNotEditable)
		return
	}
	if err := page.Fill(browser.FillOptions{Selector: res.Selector, Value: step.Value, Timeout: step.Timeout}); err != nil {
		e.fail(result, err, types.ErrorKindFieldNotEditable)
		return
	}
	result.Message = fmt.Sprintf("Typed into %s", res.Selector)
}

func (e *StepExecutor) selectOption(ctx context.Context, page browser.Page, step workflow.Step, result *Result) {
	res, err := e.resolver.Resolve(ctx, page, step.Selector)
	if err != nil {
		e.fail(result, err, types.ErrorKindElementNotFound)
		return
	}
	// Match by visible label first, then by option value.
	selected, err := page.SelectOption(browser.SelectOptions{Selector: res.Selector, Label: step.Value, Timeout: step.Timeout})
	if err != nil || len(selected) == 0 {
		selected, err = page.SelectOption(browser.SelectOptions{Selector: res.Selector, Value: step.Value, Timeout: step.Timeout})
	}
	if err != nil {
		e.fail(result, err, types.ErrorKindNoMatchingOption)
		return
	}
	if len(selected) == 0 {
		e.fail(result, types.NewStepError(types.ErrorKindNoMatchingOption, "no option matching %q in %s", step.Value, res.Selector), types.ErrorKindNoMatchingOption)
		return
	}
	result.Message = fmt.Sprintf("Selected %q in %s", step.Value, res.Selector)
}

func (e *StepExecutor) wait(ctx context.Context, page browser.Page, step workflow.Step, result *Result) {
	if step.Selector == "" {
		if err := page.Wait(browser.WaitOptions{Timeout: step.Timeout}); err != nil {
			e.fail(result, err, types.ErrorKindTimeout)
		}
		return
	}

	timeout := step.Timeout
	if timeout <= 0 {
		timeout = browser.DefaultTimeout
	}
	// Descriptions are valid wait targets too, so poll through the resolver
	// instead of handing the selector straight to the driver.
	deadline := time.Now().Add(time.Duration(timeout) * time.Millisecond)
	for {
		if _, err := e.resolver.Resolve(ctx, page, step.Selector); err == nil {
			result.Message = fmt.Sprintf("%s appeared", step.Selector)
			return
		}
		if ctx.Err() != nil || time.Now().After(deadline) {
			e.fail(result, types.NewStepError(types.ErrorKindTimeout, "timed out waiting for %s", step.Selector), types.ErrorKindTimeout)
			return
		}
		_ = page.Wait(browser.WaitOptions{Timeout: waitPollMs})
	}
}

// extract reads content from the resolved element into the result's data.
// The step's value selects the form: empty for text, "article" for reader
// mode, anything else is treated as an attribute name.
func (e *StepExecutor) extract(ctx context.Context, page browser.Page, step workflow.Step, result *Result) {
	res, err := e.resolver.Resolve(ctx, page, step.Selector)
	if err != nil {
		e.fail(result, err, types.ErrorKindElementNotFound)
		return
	}
	opts := browser.ExtractOptions{Format: browser.FormatText, Selector: res.Selector}
	switch step.Value {
	case "":
	case "article":
		opts.Format = browser.FormatArticle
	default:
		opts.Format = browser.FormatAttribute
		opts.Attribute = step.Value
	}
	data, err := page.Extract(opts)
	if err != nil {
		e.fail(result, err, types.ErrorKindElementNotFound)
		return
	}
	result.Data = data
	result.Message = fmt.Sprintf("Extracted %d characters from %s", len(data), res.Selector)
}

// attachScreenshot captures the viewport into the result. Capture is best
// effort; a failure leaves the result without one.
func (e *StepExecutor) attachScreenshot(page browser.Page, result *Result) {
	shot, err := page.Screenshot(false)
	if err != nil {
		e.logger.Debugf("screenshot capture failed: %v", err)
		return
	}
	result.Screenshot = shot
}

func (e *StepExecutor) fail(result *Result, err error, fallback types.ErrorKind) {
	result.Status = StatusError
	result.Message = err.Error()
	result.ErrorKind = classifyError(err, fallback)
	e.logger.Warnf("step failed: %v", err)
}
