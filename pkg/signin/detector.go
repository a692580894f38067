// Package signin drives provider sign-in flows encountered during
// workflow execution. The detector is a state machine that scans for a
// sign-in affordance, walks the provider's email/password/consent
// steps, and waits for the redirect back to the application. A page
// with no sign-in affordance is not an error; the flow simply reports
// NotApplicable and the workflow continues.
package signin

import (
	"context"
	"sync"
	"time"

	"github.com/webpilot-ai/webpilot/pkg/browser"
	"github.com/webpilot-ai/webpilot/pkg/logging"
	"github.com/webpilot-ai/webpilot/pkg/resolver"
	"github.com/webpilot-ai/webpilot/pkg/types"
)

// State identifies a position in the sign-in flow.
type State string

const (
	StateIdle            State = "idle"
	StateScanning        State = "scanning"
	StateButtonFound     State = "button_found"
	StateEmailEntered    State = "email_entered"
	StatePasswordEntered State = "password_entered"
	StateConsentHandled  State = "consent_handled"
	StateRedirected      State = "redirected"
	StateNotApplicable   State = "not_applicable"
	StateDone            State = "done"
)

// Page is the browser surface the detector drives.
type Page interface {
	Content() (string, error)
	Exists(selector string) bool
	Click(opts browser.ClickOptions) error
	Fill(opts browser.FillOptions) error
	URL() string
}

// Field selectors tried in order at each step. The provider-specific
// ids cover Google's staged form.
var (
	emailFieldSelectors = []string{
		`input[type="email"]`,
		`input[name="identifier"]`,
		`input[name="email"]`,
		`#identifierId`,
	}

	passwordFieldSelectors = []string{
		`input[type="password"]`,
		`input[name="password"]`,
		`input[name="Passwd"]`,
	}

	nextButtonSelectors = []string{
		`#identifierNext`,
		`#passwordNext`,
		`button[type="submit"]`,
		`input[type="submit"]`,
	}

	consentButtonSelectors = []string{
		`#submit_approve_access`,
	}
)

// Default timeouts.
const (
	DefaultScanTimeout  = 3 * time.Second
	DefaultFieldTimeout = 5 * time.Second

	pollInterval = 250 * time.Millisecond
)

// Detector walks a sign-in flow on the current page.
type Detector struct {
	patterns     *PatternMatcher
	supplier     CredentialSupplier
	scanTimeout  time.Duration
	fieldTimeout time.Duration
	logger       *logging.Logger

	mu    sync.Mutex
	state State
	trail []State
}

// Option configures the detector.
type Option func(*Detector)

// WithScanTimeout sets how long the detector scans for an affordance
// before giving up.
func WithScanTimeout(timeout time.Duration) Option {
	return func(d *Detector) {
		d.scanTimeout = timeout
	}
}

// WithFieldTimeout sets how long the detector waits for each form
// field to appear.
func WithFieldTimeout(timeout time.Duration) Option {
	return func(d *Detector) {
		d.fieldTimeout = timeout
	}
}

// NewDetector creates a detector drawing credentials from the supplier.
func NewDetector(supplier CredentialSupplier, opts ...Option) (*Detector, error) {
	patterns, err := NewPatternMatcher()
	if err != nil {
		return nil, err
	}

	d := &Detector{
		patterns:     patterns,
		supplier:     supplier,
		scanTimeout:  DefaultScanTimeout,
		fieldTimeout: DefaultFieldTimeout,
		logger:       logging.NewLogger("signin"),
		state:        StateIdle,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d, nil
}

// State returns the detector's current state.
func (d *Detector) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// History returns the states visited during the last run, in order.
func (d *Detector) History() []State {
	d.mu.Lock()
	defer d.mu.Unlock()
	trail := make([]State, len(d.trail))
	copy(trail, d.trail)
	return trail
}

// Reset returns the detector to Idle, clearing the recorded trail.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = StateIdle
	d.trail = nil
}

func (d *Detector) setState(s State) {
	d.mu.Lock()
	d.state = s
	d.trail = append(d.trail, s)
	d.mu.Unlock()
	d.logger.Debugf("state -> %s", s)
}

// Run drives the sign-in flow against the current page. The returned
// state is StateDone when the flow completed and StateNotApplicable
// when the page offered nothing to sign in with or the flow could not
// finish. A non-nil error always carries kind SignInFlowIncomplete;
// callers treat it as a warning and keep the workflow going.
func (d *Detector) Run(ctx context.Context, page Page) (State, error) {
	d.Reset()
	d.setState(StateScanning)

	affordance, found := d.scanForAffordance(ctx, page)
	if !found {
		d.setState(StateNotApplicable)
		d.setState(StateDone)
		return StateNotApplicable, nil
	}

	d.setState(StateButtonFound)
	d.logger.Infof("sign-in affordance found: %s", affordance)

	if err := page.Click(d.clickOptions(affordance)); err != nil {
		return d.incomplete("failed to open sign-in flow: %v", err)
	}

	if d.supplier == nil {
		return d.incomplete("no credential supplier configured")
	}

	// Email step
	emailField, ok := d.waitForAny(ctx, page, emailFieldSelectors)
	if !ok {
		return d.incomplete("email field never appeared")
	}
	email, err := d.supplier.Email()
	if err != nil {
		return d.incomplete("email credential unavailable: %v", err)
	}
	if err := page.Fill(d.fillOptions(emailField, email)); err != nil {
		return d.incomplete("failed to enter email: %v", err)
	}
	d.setState(StateEmailEntered)
	d.advance(page)

	// Password step
	passwordField, ok := d.waitForAny(ctx, page, passwordFieldSelectors)
	if !ok {
		return d.incomplete("password field never appeared")
	}
	password, err := d.supplier.Password()
	if err != nil {
		return d.incomplete("password credential unavailable: %v", err)
	}
	if err := page.Fill(d.fillOptions(passwordField, password)); err != nil {
		return d.incomplete("failed to enter password: %v", err)
	}
	d.setState(StatePasswordEntered)
	d.advance(page)

	// Consent step, when the provider asks for it
	if selector, ok := d.findConsent(ctx, page); ok {
		if err := page.Click(d.clickOptions(selector)); err != nil {
			return d.incomplete("failed to grant consent: %v", err)
		}
		d.setState(StateConsentHandled)
	}

	// Redirect back to the application
	if !d.waitForRedirect(ctx, page) {
		return d.incomplete("still on the identity provider after sign-in")
	}

	d.setState(StateRedirected)
	d.setState(StateDone)
	return StateDone, nil
}

// incomplete aborts the flow with a recoverable warning.
func (d *Detector) incomplete(format string, args ...interface{}) (State, error) {
	d.setState(StateNotApplicable)
	d.setState(StateDone)
	return StateNotApplicable, types.NewStepError(types.ErrorKindSignInFlowIncomplete, format, args...)
}

// scanForAffordance polls the page for a sign-in affordance until the
// scan window closes. The page is always scanned at least once.
func (d *Detector) scanForAffordance(ctx context.Context, page Page) (string, bool) {
	deadline := time.Now().Add(d.scanTimeout)
	for {
		if selector, ok := d.scanOnce(page); ok {
			return selector, true
		}
		if ctx.Err() != nil || time.Now().After(deadline) {
			return "", false
		}
		time.Sleep(pollInterval)
	}
}

func (d *Detector) scanOnce(page Page) (string, bool) {
	content, err := page.Content()
	if err != nil {
		return "", false
	}
	elements, err := resolver.Interactives(content)
	if err != nil {
		return "", false
	}
	return d.patterns.FindAffordance(elements)
}

// waitForAny polls until one of the selectors exists on the page.
func (d *Detector) waitForAny(ctx context.Context, page Page, selectors []string) (string, bool) {
	deadline := time.Now().Add(d.fieldTimeout)
	for {
		for _, selector := range selectors {
			if page.Exists(selector) {
				return selector, true
			}
		}
		if ctx.Err() != nil || time.Now().After(deadline) {
			return "", false
		}
		time.Sleep(pollInterval)
	}
}

// advance clicks the button that moves a staged form to its next step.
// Single-page forms have no such button; that is fine.
func (d *Detector) advance(page Page) {
	for _, selector := range nextButtonSelectors {
		if page.Exists(selector) {
			if err := page.Click(d.clickOptions(selector)); err == nil {
				return
			}
		}
	}

	content, err := page.Content()
	if err != nil {
		return
	}
	elements, err := resolver.Interactives(content)
	if err != nil {
		return
	}
	if selector, ok := d.patterns.FindNext(elements); ok {
		_ = page.Click(d.clickOptions(selector))
	}
}

// findConsent polls for a consent button while the page is still on the
// identity provider. Leaving the provider means no consent screen was
// shown.
func (d *Detector) findConsent(ctx context.Context, page Page) (string, bool) {
	deadline := time.Now().Add(d.fieldTimeout)
	for {
		for _, selector := range consentButtonSelectors {
			if page.Exists(selector) {
				return selector, true
			}
		}

		if content, err := page.Content(); err == nil {
			if elements, err := resolver.Interactives(content); err == nil {
				if selector, ok := d.patterns.FindConsent(elements); ok {
					return selector, true
				}
			}
		}

		if !d.patterns.MatchesProviderURL(page.URL()) {
			return "", false
		}
		if ctx.Err() != nil || time.Now().After(deadline) {
			return "", false
		}
		time.Sleep(pollInterval)
	}
}

// waitForRedirect waits for the page to leave the identity provider.
// Flows that never visited a provider URL pass immediately.
func (d *Detector) waitForRedirect(ctx context.Context, page Page) bool {
	deadline := time.Now().Add(d.fieldTimeout)
	for {
		if !d.patterns.MatchesProviderURL(page.URL()) {
			return true
		}
		if ctx.Err() != nil || time.Now().After(deadline) {
			return false
		}
		time.Sleep(pollInterval)
	}
}

func (d *Detector) clickOptions(selector string) browser.ClickOptions {
	return browser.ClickOptions{
		Selector: selector,
		Timeout:  float64(d.fieldTimeout.Milliseconds()),
	}
}

func (d *Detector) fillOptions(selector, value string) browser.FillOptions {
	return browser.FillOptions{
		Selector: selector,
		Value:    value,
		Timeout:  float64(d.fieldTimeout.Milliseconds()),
	}
}
