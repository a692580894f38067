package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/webpilot-ai/webpilot/pkg/llm"
	"github.com/webpilot-ai/webpilot/pkg/types"
)

// modelPromptMaxHTML caps how much compacted page HTML goes into the
// selector prompt.
const modelPromptMaxHTML = 30000

// modelConfidence is assigned to model answers that survived the
// existence check.
const modelConfidence = 0.8

const selectorSystemPrompt = `You locate elements on web pages. Given a page's HTML and a description of one element, reply with a single CSS selector that uniquely matches that element. Reply with the selector only: no explanation, no backticks, no quotes. If no element matches the description, reply with the single word NONE.`

// modelStrategy asks an LLM to pick a selector when the cheaper
// strategies found nothing. Its answer is only trusted after the
// selector is confirmed to exist on the page.
type modelStrategy struct {
	provider llm.Provider
}

// WithProvider appends a model-assisted strategy backed by the given
// provider.
func WithProvider(provider llm.Provider) Option {
	return func(r *Resolver) {
		if provider == nil {
			return
		}
		r.strategies = append(r.strategies, &modelStrategy{provider: provider})
	}
}

func (m *modelStrategy) Name() string { return "model" }

func (m *modelStrategy) Resolve(ctx context.Context, page Page, descriptor string) (*Resolution, error) {
	content, err := page.Content()
	if err != nil {
		return nil, fmt.Errorf("failed to read page content: %w", err)
	}

	compacted, err := compactHTML(content, modelPromptMaxHTML)
	if err != nil {
		return nil, err
	}

	messages := []*types.Message{
		types.NewSystemMessage(selectorSystemPrompt),
		types.NewUserMessage(buildSelectorPrompt(compacted, descriptor)),
	}

	response, err := m.provider.Complete(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("LLM call failed: %w", err)
	}

	selector := sanitizeModelSelector(response.Content)
	if selector == "" || strings.EqualFold(selector, "NONE") {
		return nil, nil
	}
	if err := ValidateSelector(selector); err != nil {
		return nil, nil
	}
	if !page.Exists(selector) {
		return nil, nil
	}

	return &Resolution{
		Selector:   selector,
		Confidence: modelConfidence,
		Strategy:   "model",
	}, nil
}

// buildSelectorPrompt assembles the user message for the selector
// request.
func buildSelectorPrompt(compactedHTML, descriptor string) string {
	var prompt strings.Builder

	prompt.WriteString("Page HTML (compacted, targeting attributes preserved):\n")
	prompt.WriteString("```html\n")
	prompt.WriteString(compactedHTML)
	prompt.WriteString("\n```\n\n")
	prompt.WriteString(fmt.Sprintf("Element description: %s\n", descriptor))

	return prompt.String()
}

// sanitizeModelSelector strips the wrapping models tend to add around
// selectors and keeps only the first line.
func sanitizeModelSelector(answer string) string {
	answer = strings.TrimSpace(answer)

	if idx := strings.IndexByte(answer, '\n'); idx >= 0 {
		answer = answer[:idx]
	}

	answer = strings.Trim(answer, "`'\"")
	answer = strings.TrimPrefix(answer, "css")
	return strings.TrimSpace(answer)
}
