// Package resolver turns natural-language element descriptors into CSS
// selectors. Strategies are tried in order (exact, heuristic, model) and
// the first confident answer wins, so callers never deal with more than
// one resolution path.
package resolver

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/webpilot-ai/webpilot/pkg/logging"
	"github.com/webpilot-ai/webpilot/pkg/types"
)

// Page is the subset of browser state selector resolution needs.
type Page interface {
	Content() (string, error)
	Exists(selector string) bool
}

// Resolution is a resolved element target.
type Resolution struct {
	// Selector is the CSS selector to act on
	Selector string
	// Confidence in the range (0, 1]; exact matches score 1.0
	Confidence float64
	// Strategy that produced the resolution
	Strategy string
	// Index is the 1-based match index when the descriptor asked for one
	Index int
}

// Strategy resolves a descriptor against a page. A nil resolution with a
// nil error means the strategy has no answer and the next one is tried.
type Strategy interface {
	Name() string
	Resolve(ctx context.Context, page Page, descriptor string) (*Resolution, error)
}

// DefaultConfidenceThreshold is the minimum heuristic match score.
const DefaultConfidenceThreshold = 0.5

// Resolver resolves element descriptors through an ordered strategy list.
type Resolver struct {
	strategies []Strategy
	logger     *logging.Logger
}

// Option configures the resolver.
type Option func(*Resolver)

// WithThreshold overrides the heuristic confidence threshold.
func WithThreshold(threshold float64) Option {
	return func(r *Resolver) {
		for _, s := range r.strategies {
			if h, ok := s.(*heuristicStrategy); ok {
				h.threshold = threshold
			}
		}
	}
}

// WithStrategies replaces the default strategy list.
func WithStrategies(strategies ...Strategy) Option {
	return func(r *Resolver) {
		r.strategies = strategies
	}
}

// New creates a resolver with the default exact and heuristic strategies.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		strategies: []Strategy{
			&exactStrategy{},
			&heuristicStrategy{threshold: DefaultConfidenceThreshold},
		},
		logger: logging.NewLogger("resolver"),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// indexSuffix matches a trailing " #<n>" match-index request.
var indexSuffix = regexp.MustCompile(`\s+#(\d+)$`)

// splitIndex separates a trailing match-index request from the
// descriptor. "delete #2" yields ("delete", 2); descriptors without a
// trailing index yield index 0.
func splitIndex(descriptor string) (string, int) {
	match := indexSuffix.FindStringSubmatch(descriptor)
	if match == nil {
		return descriptor, 0
	}

	index, err := strconv.Atoi(match[1])
	if err != nil || index < 1 {
		return descriptor, 0
	}

	return strings.TrimSpace(indexSuffix.ReplaceAllString(descriptor, "")), index
}

// Resolve resolves a descriptor to a selector. Resolution is a pure
// function of the page content and the descriptor, so repeated calls on
// an unchanged page return the same answer.
func (r *Resolver) Resolve(ctx context.Context, page Page, descriptor string) (*Resolution, error) {
	descriptor = strings.TrimSpace(descriptor)
	if descriptor == "" {
		return nil, types.NewStepError(types.ErrorKindElementNotFound, "empty element descriptor")
	}

	for _, strategy := range r.strategies {
		resolution, err := strategy.Resolve(ctx, page, descriptor)
		if err != nil {
			// A failing strategy never fails the resolution; the next
			// strategy still gets its chance.
			r.logger.Warnf("%s strategy failed for %q: %v", strategy.Name(), descriptor, err)
			continue
		}
		if resolution == nil {
			continue
		}

		r.logger.Debugf("resolved %q to %q (strategy=%s confidence=%.2f)",
			descriptor, resolution.Selector, resolution.Strategy, resolution.Confidence)
		return resolution, nil
	}

	return nil, types.NewStepError(types.ErrorKindElementNotFound, "no element matched %q", descriptor)
}

// dangerousPatterns are rejected anywhere in a selector.
var dangerousPatterns = []string{"javascript:", "<script", "onerror=", "onload="}

// ContainsDangerousPattern checks if a selector contains script
// injection patterns.
func ContainsDangerousPattern(selector string) (string, bool) {
	lowerSelector := strings.ToLower(selector)
	for _, pattern := range dangerousPatterns {
		if strings.Contains(lowerSelector, pattern) {
			return pattern, true
		}
	}
	return "", false
}

// validSelectorStartChars contains non-alphabetic characters that may
// begin a CSS selector.
const validSelectorStartChars = "#.[*"

func isValidSelectorStart(ch byte) bool {
	c := rune(ch)
	if c >= 'a' && c <= 'z' {
		return true
	}
	if c >= 'A' && c <= 'Z' {
		return true
	}
	return strings.ContainsRune(validSelectorStartChars, c)
}

// ValidateSelector validates a CSS selector for safety and basic
// syntactic plausibility.
func ValidateSelector(selector string) error {
	if selector == "" {
		return fmt.Errorf("selector is empty")
	}
	if len(selector) > 1000 {
		return fmt.Errorf("selector exceeds 1000 characters")
	}
	if pattern, found := ContainsDangerousPattern(selector); found {
		return fmt.Errorf("selector contains dangerous pattern: %s", pattern)
	}
	if !isValidSelectorStart(selector[0]) {
		return fmt.Errorf("selector must start with a valid CSS selector character")
	}
	return nil
}
