package resolver

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Element is a visible, enabled interactive element found on a page.
type Element struct {
	// Selector is a stable CSS selector for the element
	Selector string
	// Tag is the lowercased element name
	Tag string
	// Text is the element's collapsed text content
	Text string
	// Attrs holds the element's attributes, keys lowercased
	Attrs map[string]string
}

// Interactives enumerates the visible, enabled interactive elements of
// an HTML document in document order. Other packages use this to scan a
// page without repeating the resolver's walk.
func Interactives(rawHTML string) ([]Element, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	idx := indexPage(doc)
	elements := make([]Element, 0, len(idx.candidates))
	for _, c := range idx.candidates {
		elements = append(elements, Element{
			Selector: selectorFor(c, idx.classCounts),
			Tag:      c.tag,
			Text:     c.text,
			Attrs:    c.attrs,
		})
	}

	return elements, nil
}
