package signin

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"

	"github.com/webpilot-ai/webpilot/pkg/resolver"
)

// affordancePatterns match the visible text of sign-in buttons and
// links. Order is priority: provider-branded affordances win over
// generic ones.
var affordancePatterns = []string{
	"sign in with google*",
	"continue with google*",
	"log in with google*",
	"login with google*",
	"sign in with *",
	"continue with *",
	"log in with *",
	"sign in*",
	"log in*",
	"login*",
}

// providerURLPatterns confirm the browser landed on an identity
// provider after the affordance click.
var providerURLPatterns = []string{
	"*accounts.google.com*",
	"*accounts.youtube.com*",
	"*myaccount.google.com*",
	"*login.microsoftonline.com*",
	"*github.com/login*",
}

// nextPatterns match the button that advances a sign-in form.
var nextPatterns = []string{
	"next*",
	"continue*",
	"submit*",
	"sign in*",
	"log in*",
}

// consentPatterns match the button that grants the requested access.
var consentPatterns = []string{
	"allow*",
	"i agree*",
	"agree*",
	"accept*",
	"confirm*",
	"continue*",
	"grant*",
}

// PatternMatcher holds the compiled glob sets the detector scans with.
type PatternMatcher struct {
	affordances []glob.Glob
	providers   []glob.Glob
	next        []glob.Glob
	consent     []glob.Glob
}

// NewPatternMatcher compiles the built-in pattern sets.
func NewPatternMatcher() (*PatternMatcher, error) {
	affordances, err := compilePatterns(affordancePatterns)
	if err != nil {
		return nil, err
	}
	providers, err := compilePatterns(providerURLPatterns)
	if err != nil {
		return nil, err
	}
	next, err := compilePatterns(nextPatterns)
	if err != nil {
		return nil, err
	}
	consent, err := compilePatterns(consentPatterns)
	if err != nil {
		return nil, err
	}

	return &PatternMatcher{
		affordances: affordances,
		providers:   providers,
		next:        next,
		consent:     consent,
	}, nil
}

func compilePatterns(patterns []string) ([]glob.Glob, error) {
	compiled := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern '%s': %w", pattern, err)
		}
		compiled = append(compiled, g)
	}
	return compiled, nil
}

// FindAffordance returns the selector of the first element whose text
// matches a sign-in affordance pattern. Patterns are tried in priority
// order, elements in document order.
func (pm *PatternMatcher) FindAffordance(elements []resolver.Element) (string, bool) {
	return findByText(pm.affordances, elements)
}

// FindNext returns the selector of the first element that advances a
// sign-in form.
func (pm *PatternMatcher) FindNext(elements []resolver.Element) (string, bool) {
	return findByText(pm.next, elements)
}

// FindConsent returns the selector of the first consent-granting
// element.
func (pm *PatternMatcher) FindConsent(elements []resolver.Element) (string, bool) {
	return findByText(pm.consent, elements)
}

// MatchesProviderURL reports whether the URL belongs to a known
// identity provider.
func (pm *PatternMatcher) MatchesProviderURL(url string) bool {
	lowered := strings.ToLower(url)
	for _, pattern := range pm.providers {
		if pattern.Match(lowered) {
			return true
		}
	}
	return false
}

// MatchesAffordance reports whether the text reads like a sign-in
// affordance.
func (pm *PatternMatcher) MatchesAffordance(text string) bool {
	normalized := normalizeText(text)
	for _, pattern := range pm.affordances {
		if pattern.Match(normalized) {
			return true
		}
	}
	return false
}

func findByText(patterns []glob.Glob, elements []resolver.Element) (string, bool) {
	for _, pattern := range patterns {
		for _, element := range elements {
			if pattern.Match(normalizeText(element.Text)) {
				return element.Selector, true
			}
			if label := element.Attrs["aria-label"]; label != "" && pattern.Match(normalizeText(label)) {
				return element.Selector, true
			}
		}
	}
	return "", false
}

func normalizeText(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}
