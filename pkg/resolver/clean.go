package resolver

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// targetingAttrs are kept when compacting HTML for model prompts. They
// are the attributes a CSS selector can be built from.
var targetingAttrs = map[string]bool{
	"id":          true,
	"class":       true,
	"name":        true,
	"type":        true,
	"role":        true,
	"href":        true,
	"value":       true,
	"placeholder": true,
	"title":       true,
	"alt":         true,
	"aria-label":  true,
	"onclick":     true,
}

// compactHTML reduces a page to its semantic skeleton: scripts, styles,
// and presentation noise removed, targeting attributes kept, text
// trimmed. The result fits in a model prompt without losing the
// elements a selector could point at.
func compactHTML(rawHTML string, maxLength int) (string, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	var builder strings.Builder
	length := 0

	var walk func(n *html.Node) bool
	walk = func(n *html.Node) bool {
		if length >= maxLength {
			return true
		}

		switch n.Type {
		case html.CommentNode:
			return false

		case html.TextNode:
			text := strings.Join(strings.Fields(n.Data), " ")
			if text == "" {
				return false
			}
			if length+len(text) > maxLength {
				text = text[:maxLength-length]
			}
			builder.WriteString(text)
			length += len(text)
			return length >= maxLength

		case html.ElementNode:
			tag := strings.ToLower(n.Data)
			if skippedContainers[tag] {
				return false
			}

			builder.WriteString("<")
			builder.WriteString(tag)
			for _, attr := range n.Attr {
				key := strings.ToLower(attr.Key)
				if targetingAttrs[key] || strings.HasPrefix(key, "data-") {
					fmt.Fprintf(&builder, " %s=%q", key, attr.Val)
				}
			}
			builder.WriteString(">")
			length += len(tag) + 2

			truncated := false
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if walk(c) {
					truncated = true
					break
				}
			}

			builder.WriteString("</")
			builder.WriteString(tag)
			builder.WriteString(">")
			length += len(tag) + 3
			return truncated
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(doc)

	return builder.String(), nil
}
