package signin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webpilot-ai/webpilot/pkg/browser"
	"github.com/webpilot-ai/webpilot/pkg/types"
)

type fakePage struct {
	content   string
	selectors map[string]bool
	url       string
	clicks    []string
	fills     map[string]string
	onClick   func(f *fakePage, selector string)
}

func newFakePage(content, url string) *fakePage {
	return &fakePage{
		content:   content,
		url:       url,
		selectors: map[string]bool{},
		fills:     map[string]string{},
	}
}

func (f *fakePage) Content() (string, error) { return f.content, nil }

func (f *fakePage) Exists(selector string) bool { return f.selectors[selector] }

func (f *fakePage) Click(opts browser.ClickOptions) error {
	f.clicks = append(f.clicks, opts.Selector)
	if f.onClick != nil {
		f.onClick(f, opts.Selector)
	}
	return nil
}

func (f *fakePage) Fill(opts browser.FillOptions) error {
	f.fills[opts.Selector] = opts.Value
	return nil
}

func (f *fakePage) URL() string { return f.url }

const appLoginPage = `<html><body>
<h1>Welcome back</h1>
<button id="google-signin">Sign in with Google</button>
</body></html>`

func setCredentials(t *testing.T) {
	t.Setenv(DefaultEmailEnv, "robot@example.com")
	t.Setenv(DefaultPasswordEnv, "hunter2-but-longer")
}

func newTestDetector(t *testing.T) *Detector {
	d, err := NewDetector(
		NewEnvCredentialSupplier("", ""),
		WithScanTimeout(20*time.Millisecond),
		WithFieldTimeout(50*time.Millisecond),
	)
	require.NoError(t, err)
	return d
}

func TestRun_CompletesStagedFlow(t *testing.T) {
	setCredentials(t)

	page := newFakePage(appLoginPage, "https://app.example.com/login")
	page.onClick = func(f *fakePage, selector string) {
		switch selector {
		case "#google-signin":
			f.url = "https://accounts.google.com/v3/signin/identifier"
			f.selectors = map[string]bool{
				`input[type="email"]`: true,
				`#identifierNext`:     true,
			}
		case "#identifierNext":
			f.selectors = map[string]bool{
				`input[type="password"]`: true,
				`#passwordNext`:          true,
			}
		case "#passwordNext":
			f.url = "https://app.example.com/dashboard"
			f.content = `<html><body><h1>Dashboard</h1></body></html>`
			f.selectors = map[string]bool{}
		}
	}

	d := newTestDetector(t)
	state, err := d.Run(context.Background(), page)
	require.NoError(t, err)
	assert.Equal(t, StateDone, state)

	assert.Equal(t, "robot@example.com", page.fills[`input[type="email"]`])
	assert.Equal(t, "hunter2-but-longer", page.fills[`input[type="password"]`])
	assert.Equal(t, []string{"#google-signin", "#identifierNext", "#passwordNext"}, page.clicks)

	history := d.History()
	assert.Contains(t, history, StateButtonFound)
	assert.Contains(t, history, StateEmailEntered)
	assert.Contains(t, history, StatePasswordEntered)
	assert.Contains(t, history, StateRedirected)
	assert.NotContains(t, history, StateConsentHandled)
}

func TestRun_HandlesConsentScreen(t *testing.T) {
	setCredentials(t)

	page := newFakePage(appLoginPage, "https://app.example.com/login")
	page.onClick = func(f *fakePage, selector string) {
		switch selector {
		case "#google-signin":
			f.url = "https://accounts.google.com/v3/signin/identifier"
			f.selectors = map[string]bool{
				`input[type="email"]`: true,
				`#identifierNext`:     true,
			}
		case "#identifierNext":
			f.selectors = map[string]bool{
				`input[type="password"]`: true,
				`#passwordNext`:          true,
			}
		case "#passwordNext":
			f.url = "https://accounts.google.com/signin/oauth/consent"
			f.content = `<html><body><p>App wants access to your account.</p>
				<button id="approve">Allow</button></body></html>`
			f.selectors = map[string]bool{"#approve": true}
		case "#approve":
			f.url = "https://app.example.com/dashboard"
			f.content = `<html><body><h1>Dashboard</h1></body></html>`
			f.selectors = map[string]bool{}
		}
	}

	d := newTestDetector(t)
	state, err := d.Run(context.Background(), page)
	require.NoError(t, err)
	assert.Equal(t, StateDone, state)
	assert.Contains(t, d.History(), StateConsentHandled)
	assert.Contains(t, page.clicks, "#approve")
}

func TestRun_NoAffordanceIsNotApplicable(t *testing.T) {
	setCredentials(t)

	page := newFakePage(`<html><body><h1>Plain content page</h1>
		<a href="/pricing">Pricing</a></body></html>`, "https://app.example.com")

	d := newTestDetector(t)
	state, err := d.Run(context.Background(), page)
	require.NoError(t, err)
	assert.Equal(t, StateNotApplicable, state)
	assert.Empty(t, page.clicks)
	assert.Equal(t, []State{StateScanning, StateNotApplicable, StateDone}, d.History())
}

func TestRun_MissingPasswordFieldAbortsWithWarning(t *testing.T) {
	setCredentials(t)

	page := newFakePage(appLoginPage, "https://app.example.com/login")
	page.onClick = func(f *fakePage, selector string) {
		if selector == "#google-signin" {
			f.url = "https://accounts.google.com/v3/signin/identifier"
			f.selectors = map[string]bool{`input[type="email"]`: true}
		}
	}

	d := newTestDetector(t)
	state, err := d.Run(context.Background(), page)
	require.Error(t, err)
	assert.Equal(t, StateNotApplicable, state)
	assert.Equal(t, types.ErrorKindSignInFlowIncomplete, types.KindOf(err))
	assert.Contains(t, err.Error(), "password field")
	assert.True(t, types.KindOf(err).IsRecoverable())
}

func TestRun_MissingCredentialsAbortWithWarning(t *testing.T) {
	t.Setenv(DefaultEmailEnv, "")
	t.Setenv(DefaultPasswordEnv, "")

	page := newFakePage(appLoginPage, "https://app.example.com/login")
	page.onClick = func(f *fakePage, selector string) {
		if selector == "#google-signin" {
			f.selectors = map[string]bool{`input[type="email"]`: true}
		}
	}

	d := newTestDetector(t)
	state, err := d.Run(context.Background(), page)
	require.Error(t, err)
	assert.Equal(t, StateNotApplicable, state)
	assert.Equal(t, types.ErrorKindSignInFlowIncomplete, types.KindOf(err))

	// The flow must not leak what it could not read
	assert.Empty(t, page.fills)
}

func TestEnvCredentialSupplier(t *testing.T) {
	t.Setenv("CUSTOM_EMAIL", "user@example.com")
	t.Setenv("CUSTOM_PASSWORD", "")

	s := NewEnvCredentialSupplier("CUSTOM_EMAIL", "CUSTOM_PASSWORD")

	email, err := s.Email()
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", email)

	_, err = s.Password()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CUSTOM_PASSWORD")

	assert.False(t, s.Configured())

	t.Setenv("CUSTOM_PASSWORD", "secret")
	assert.True(t, s.Configured())
}

func TestEnvCredentialSupplier_Defaults(t *testing.T) {
	s := NewEnvCredentialSupplier("", "")
	assert.Equal(t, DefaultEmailEnv, s.EmailVar)
	assert.Equal(t, DefaultPasswordEnv, s.PasswordVar)
}
