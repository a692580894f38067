package browser

import (
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

// UpdateLastUsed updates the LastUsedAt timestamp to the current time.
func (s *Session) UpdateLastUsed() {
	s.LastUsedAt = time.Now()
}

// Navigate navigates the session's page to the specified URL.
func (s *Session) Navigate(url string, opts NavigateOptions) error {
	s.UpdateLastUsed()

	playwrightOpts := playwright.PageGotoOptions{}

	if opts.WaitUntil != "" {
		waitUntil := playwright.WaitUntilState(opts.WaitUntil)
		playwrightOpts.WaitUntil = &waitUntil
	}

	if opts.Timeout > 0 {
		playwrightOpts.Timeout = &opts.Timeout
	}

	_, err := s.Page.Goto(url, playwrightOpts)
	if err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}

	// Update current URL
	s.CurrentURL = s.Page.URL()
	return nil
}

// Click clicks an element matching the selector.
func (s *Session) Click(opts ClickOptions) error {
	s.UpdateLastUsed()

	playwrightOpts := playwright.PageClickOptions{}

	if opts.Button != "" {
		button := playwright.MouseButton(opts.Button)
		playwrightOpts.Button = &button
	}

	if opts.ClickCount > 0 {
		playwrightOpts.ClickCount = &opts.ClickCount
	}

	if opts.Timeout > 0 {
		playwrightOpts.Timeout = &opts.Timeout
	}

	err := s.Page.Click(opts.Selector, playwrightOpts)
	if err != nil {
		return fmt.Errorf("click failed: %w", err)
	}

	// Update current URL in case click caused navigation
	s.CurrentURL = s.Page.URL()
	return nil
}

// Fill fills an input element with the specified value.
func (s *Session) Fill(opts FillOptions) error {
	s.UpdateLastUsed()

	playwrightOpts := playwright.PageFillOptions{}

	if opts.Timeout > 0 {
		playwrightOpts.Timeout = &opts.Timeout
	}

	err := s.Page.Fill(opts.Selector, opts.Value, playwrightOpts)
	if err != nil {
		return fmt.Errorf("fill failed: %w", err)
	}

	return nil
}

// SelectOption selects a dropdown option by visible label or value
// attribute and returns the values that were selected.
func (s *Session) SelectOption(opts SelectOptions) ([]string, error) {
	s.UpdateLastUsed()

	playwrightOpts := playwright.PageSelectOptionOptions{}

	if opts.Timeout > 0 {
		playwrightOpts.Timeout = &opts.Timeout
	}

	values := playwright.SelectOptionValues{}
	switch {
	case opts.Label != "":
		values.Labels = &[]string{opts.Label}
	case opts.Value != "":
		values.Values = &[]string{opts.Value}
	default:
		return nil, fmt.Errorf("select requires a label or value")
	}

	selected, err := s.Page.SelectOption(opts.Selector, values, playwrightOpts)
	if err != nil {
		return nil, fmt.Errorf("select failed: %w", err)
	}

	return selected, nil
}

// Wait waits for an element to reach the requested state, or pauses
// for the given timeout when no selector is set.
func (s *Session) Wait(opts WaitOptions) error {
	s.UpdateLastUsed()

	if opts.Selector == "" {
		if opts.Timeout <= 0 {
			return fmt.Errorf("wait requires a selector or a positive timeout")
		}
		s.Page.WaitForTimeout(opts.Timeout)
		return nil
	}

	playwrightOpts := playwright.PageWaitForSelectorOptions{}

	if opts.State != "" {
		state := playwright.WaitForSelectorState(opts.State)
		playwrightOpts.State = &state
	}

	if opts.Timeout > 0 {
		playwrightOpts.Timeout = &opts.Timeout
	}

	_, err := s.Page.WaitForSelector(opts.Selector, playwrightOpts)
	if err != nil {
		return fmt.Errorf("wait failed: %w", err)
	}

	return nil
}

// Content returns the full HTML of the current page.
func (s *Session) Content() (string, error) {
	s.UpdateLastUsed()

	html, err := s.Page.Content()
	if err != nil {
		return "", fmt.Errorf("content read failed: %w", err)
	}

	return html, nil
}

// Text returns the text content of the first element matching the selector.
func (s *Session) Text(selector string) (string, error) {
	s.UpdateLastUsed()

	element, err := s.Page.QuerySelector(selector)
	if err != nil {
		return "", fmt.Errorf("selector query failed: %w", err)
	}
	if element == nil {
		return "", fmt.Errorf("no element found matching selector: %s", selector)
	}

	text, err := element.TextContent()
	if err != nil {
		return "", fmt.Errorf("text extraction failed: %w", err)
	}

	return text, nil
}

// Attribute returns the named attribute of the first element matching
// the selector. A missing attribute yields an empty string.
func (s *Session) Attribute(selector, name string) (string, error) {
	s.UpdateLastUsed()

	element, err := s.Page.QuerySelector(selector)
	if err != nil {
		return "", fmt.Errorf("selector query failed: %w", err)
	}
	if element == nil {
		return "", fmt.Errorf("no element found matching selector: %s", selector)
	}

	value, err := element.GetAttribute(name)
	if err != nil {
		return "", fmt.Errorf("attribute read failed: %w", err)
	}

	return value, nil
}

// Exists reports whether at least one element matches the selector.
// Invalid selectors count as not found.
func (s *Session) Exists(selector string) bool {
	element, err := s.Page.QuerySelector(selector)
	return err == nil && element != nil
}

// IsEditable reports whether the first element matching the selector
// accepts text input.
func (s *Session) IsEditable(selector string) (bool, error) {
	s.UpdateLastUsed()

	element, err := s.Page.QuerySelector(selector)
	if err != nil {
		return false, fmt.Errorf("selector query failed: %w", err)
	}
	if element == nil {
		return false, fmt.Errorf("no element found matching selector: %s", selector)
	}

	editable, err := element.IsEditable()
	if err != nil {
		return false, fmt.Errorf("editability check failed: %w", err)
	}

	return editable, nil
}

// Screenshot captures the current page as a PNG.
func (s *Session) Screenshot(fullPage bool) ([]byte, error) {
	s.UpdateLastUsed()

	playwrightOpts := playwright.PageScreenshotOptions{}

	if fullPage {
		playwrightOpts.FullPage = &fullPage
	}

	data, err := s.Page.Screenshot(playwrightOpts)
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}

	return data, nil
}

// URL returns the current page URL.
func (s *Session) URL() string {
	return s.Page.URL()
}

// Title returns the current page title.
func (s *Session) Title() (string, error) {
	title, err := s.Page.Title()
	if err != nil {
		return "", fmt.Errorf("title read failed: %w", err)
	}

	return title, nil
}
