package browser

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"
)

// Extract extracts page content in the requested format.
func (s *Session) Extract(opts ExtractOptions) (string, error) {
	s.UpdateLastUsed()

	// Set defaults
	if opts.Format == "" {
		opts.Format = FormatText
	}
	if opts.MaxLength == 0 {
		opts.MaxLength = DefaultMaxLength
	}

	switch opts.Format {
	case FormatText:
		return s.extractText(opts)
	case FormatAttribute:
		return s.extractAttribute(opts)
	case FormatArticle:
		return s.extractArticle(opts)
	default:
		return "", fmt.Errorf("unsupported format: %s", opts.Format)
	}
}

// extractText extracts plain text from the page or a specific element.
func (s *Session) extractText(opts ExtractOptions) (string, error) {
	selector := opts.Selector
	if selector == "" {
		selector = "body"
	}

	element, err := s.Page.QuerySelector(selector)
	if err != nil {
		return "", fmt.Errorf("selector query failed: %w", err)
	}
	if element == nil {
		return "", fmt.Errorf("no element found matching selector: %s", selector)
	}

	content, err := element.TextContent()
	if err != nil {
		return "", fmt.Errorf("text extraction failed: %w", err)
	}

	return truncateContent(content, opts.MaxLength), nil
}

// extractAttribute extracts a single attribute value from an element.
func (s *Session) extractAttribute(opts ExtractOptions) (string, error) {
	if opts.Selector == "" {
		return "", fmt.Errorf("selector is required for attribute extraction")
	}
	if opts.Attribute == "" {
		return "", fmt.Errorf("attribute name is required for attribute extraction")
	}

	value, err := s.Attribute(opts.Selector, opts.Attribute)
	if err != nil {
		return "", err
	}

	return truncateContent(value, opts.MaxLength), nil
}

// extractArticle extracts the readable article body of the current page.
func (s *Session) extractArticle(opts ExtractOptions) (string, error) {
	html, err := s.Content()
	if err != nil {
		return "", err
	}

	article, err := articleFromHTML(html, s.URL())
	if err != nil {
		return "", err
	}

	return truncateContent(article, opts.MaxLength), nil
}

// articleFromHTML runs readability extraction over raw HTML and returns
// the article as sanitized plain text, prefixed with its title when one
// was detected.
func articleFromHTML(html, pageURL string) (string, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse page URL: %w", err)
	}

	article, err := readability.FromReader(strings.NewReader(html), parsed)
	if err != nil {
		return "", fmt.Errorf("failed to parse article: %w", err)
	}

	// Sanitize output (remove any remaining HTML tags or scripts)
	sanitized := bluemonday.StrictPolicy().Sanitize(article.TextContent)
	sanitized = strings.TrimSpace(sanitized)

	if article.Title != "" {
		return fmt.Sprintf("%s\n\n%s", article.Title, sanitized), nil
	}

	return sanitized, nil
}

// truncateContent trims content to maxLength and appends a note about
// how much was cut.
func truncateContent(content string, maxLength int) string {
	if maxLength <= 0 || len(content) <= maxLength {
		return content
	}

	warning := fmt.Sprintf("\n\n[Content truncated: %d of %d characters shown]", maxLength, len(content))
	return content[:maxLength] + warning
}
