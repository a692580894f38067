package resolver

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

// heuristicStrategy matches descriptors against the visible interactive
// elements of the page by token overlap.
type heuristicStrategy struct {
	threshold float64
}

func (h *heuristicStrategy) Name() string { return "heuristic" }

func (h *heuristicStrategy) Resolve(_ context.Context, page Page, descriptor string) (*Resolution, error) {
	base, index := splitIndex(descriptor)

	content, err := page.Content()
	if err != nil {
		return nil, fmt.Errorf("failed to read page content: %w", err)
	}

	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	idx := indexPage(doc)
	tokens, hints := splitHints(tokenize(base))

	type scored struct {
		c     *candidate
		score float64
	}

	// Candidates arrive in document order; qualifying preserves it.
	var qualifying []scored
	for _, c := range idx.candidates {
		score := h.score(tokens, hints, c)
		if score >= h.threshold {
			qualifying = append(qualifying, scored{c, score})
		}
	}

	if len(qualifying) == 0 {
		return nil, nil
	}

	if index > 0 {
		if index > len(qualifying) {
			return nil, nil
		}
		pick := qualifying[index-1]
		return &Resolution{
			Selector:   selectorFor(pick.c, idx.classCounts),
			Confidence: pick.score,
			Strategy:   "heuristic",
			Index:      index,
		}, nil
	}

	// Strict greater-than keeps the earliest candidate on ties.
	best := qualifying[0]
	for _, s := range qualifying[1:] {
		if s.score > best.score {
			best = s
		}
	}

	return &Resolution{
		Selector:   selectorFor(best.c, idx.classCounts),
		Confidence: best.score,
		Strategy:   "heuristic",
	}, nil
}

// score rates how well the descriptor tokens describe the candidate.
// Descriptors made only of element-kind words ("the button") score at
// the threshold when the kind matches, so the first such element wins.
func (h *heuristicStrategy) score(tokens []string, hints map[string]bool, c *candidate) float64 {
	hintMatched := matchesHint(hints, c)

	if len(tokens) == 0 {
		if len(hints) > 0 && hintMatched {
			return h.threshold
		}
		return 0
	}

	haystack := c.haystack()
	matched := 0
	for _, token := range tokens {
		if haystack[token] {
			matched++
		}
	}

	score := float64(matched) / float64(len(tokens))
	if score > 0 && hintMatched {
		score += 0.2
		if score > 1 {
			score = 1
		}
	}

	return score
}

// candidate is an interactive element discovered during the page walk.
type candidate struct {
	node    *html.Node
	tag     string
	attrs   map[string]string
	classes []string
	text    string
	label   string
	order   int
}

// haystack returns the lowercased token set a descriptor is matched
// against: element text, associated label, and targeting attributes.
func (c *candidate) haystack() map[string]bool {
	fields := []string{
		c.text,
		c.label,
		c.attrs["aria-label"],
		c.attrs["placeholder"],
		c.attrs["name"],
		c.attrs["id"],
		c.attrs["title"],
		c.attrs["value"],
		c.attrs["alt"],
	}

	set := make(map[string]bool)
	for _, field := range fields {
		for _, token := range tokenizeAll(field) {
			set[token] = true
		}
	}
	return set
}

// pageIndex holds everything the scorer needs from one parsed page.
type pageIndex struct {
	candidates  []*candidate
	classCounts map[string]int
}

// skippedContainers are subtrees that never contain actionable elements.
var skippedContainers = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"head":     true,
	"iframe":   true,
	"svg":      true,
}

// interactiveTags are element types a workflow can act on.
var interactiveTags = map[string]bool{
	"a":        true,
	"button":   true,
	"input":    true,
	"select":   true,
	"textarea": true,
}

// interactiveRoles make any element actionable regardless of tag.
var interactiveRoles = map[string]bool{
	"button":   true,
	"link":     true,
	"checkbox": true,
	"radio":    true,
	"tab":      true,
	"menuitem": true,
	"combobox": true,
	"textbox":  true,
}

// indexPage walks the document once, collecting visible enabled
// interactive elements in document order plus tag.class frequency
// counts for selector generation.
func indexPage(root *html.Node) *pageIndex {
	labels := collectLabels(root)
	idx := &pageIndex{classCounts: make(map[string]int)}
	order := 0

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			tag := strings.ToLower(n.Data)
			if skippedContainers[tag] {
				return
			}

			attrs := attrMap(n)
			if !isRendered(tag, attrs) {
				// Hidden subtrees are invisible to the user too
				return
			}

			for _, class := range splitClasses(attrs["class"]) {
				idx.classCounts[tag+"."+class]++
			}

			if isInteractive(tag, attrs) && isEnabled(attrs) {
				order++
				c := &candidate{
					node:    n,
					tag:     tag,
					attrs:   attrs,
					classes: splitClasses(attrs["class"]),
					text:    elementText(n),
					order:   order,
				}
				c.label = fieldLabel(c, labels)
				idx.candidates = append(idx.candidates, c)
			}
		}

		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)

	return idx
}

// collectLabels maps label "for" targets to their text.
func collectLabels(root *html.Node) map[string]string {
	labels := make(map[string]string)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && strings.ToLower(n.Data) == "label" {
			if forID, ok := attrMap(n)["for"]; ok && forID != "" {
				labels[forID] = elementText(n)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return labels
}

// fieldLabel finds the label text for a form field, first through the
// label "for" map, then through an enclosing label element.
func fieldLabel(c *candidate, labels map[string]string) string {
	if c.tag != "input" && c.tag != "select" && c.tag != "textarea" {
		return ""
	}

	if id := c.attrs["id"]; id != "" {
		if text, ok := labels[id]; ok {
			return text
		}
	}

	for p := c.node.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && strings.ToLower(p.Data) == "label" {
			return elementText(p)
		}
	}

	return ""
}

func attrMap(n *html.Node) map[string]string {
	attrs := make(map[string]string, len(n.Attr))
	for _, attr := range n.Attr {
		attrs[strings.ToLower(attr.Key)] = attr.Val
	}
	return attrs
}

func splitClasses(class string) []string {
	return strings.Fields(class)
}

// isRendered filters out elements the user cannot see.
func isRendered(tag string, attrs map[string]string) bool {
	if _, hidden := attrs["hidden"]; hidden {
		return false
	}
	if attrs["aria-hidden"] == "true" {
		return false
	}
	if tag == "input" && strings.EqualFold(attrs["type"], "hidden") {
		return false
	}

	style := strings.ReplaceAll(strings.ToLower(attrs["style"]), " ", "")
	if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
		return false
	}

	return true
}

// isEnabled filters out elements the user cannot act on.
func isEnabled(attrs map[string]string) bool {
	if _, disabled := attrs["disabled"]; disabled {
		return false
	}
	return attrs["aria-disabled"] != "true"
}

func isInteractive(tag string, attrs map[string]string) bool {
	if interactiveTags[tag] {
		return true
	}
	if interactiveRoles[strings.ToLower(attrs["role"])] {
		return true
	}
	_, hasOnclick := attrs["onclick"]
	return hasOnclick
}

// elementText returns the element's text content with whitespace
// collapsed.
func elementText(n *html.Node) string {
	var sb strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)

	return strings.Join(strings.Fields(sb.String()), " ")
}

// nthOfType returns the element's 1-based position among same-tag
// siblings.
func nthOfType(n *html.Node, tag string) int {
	nth := 1
	for sib := n.PrevSibling; sib != nil; sib = sib.PrevSibling {
		if sib.Type == html.ElementNode && strings.ToLower(sib.Data) == tag {
			nth++
		}
	}
	return nth
}

// stopwords are dropped from descriptors before matching.
var stopwords = map[string]bool{
	"the":  true,
	"a":    true,
	"an":   true,
	"to":   true,
	"of":   true,
	"in":   true,
	"on":   true,
	"for":  true,
	"with": true,
}

// tagHints map descriptor words to the element kinds they imply.
var tagHints = map[string][]string{
	"button":   {"button"},
	"link":     {"a", "link"},
	"input":    {"input", "textarea", "textbox"},
	"field":    {"input", "textarea", "select", "textbox"},
	"textbox":  {"input", "textarea", "textbox"},
	"dropdown": {"select", "combobox"},
	"checkbox": {"input", "checkbox"},
	"menu":     {"select", "menuitem"},
}

// tokenize lowercases, splits on non-alphanumerics, and drops
// stopwords.
func tokenize(s string) []string {
	var out []string
	for _, token := range tokenizeAll(s) {
		if !stopwords[token] {
			out = append(out, token)
		}
	}
	return out
}

// tokenizeAll is tokenize without stopword removal.
func tokenizeAll(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// splitHints separates element-kind words from content words.
func splitHints(tokens []string) ([]string, map[string]bool) {
	var content []string
	hints := make(map[string]bool)

	for _, token := range tokens {
		if _, ok := tagHints[token]; ok {
			hints[token] = true
			continue
		}
		content = append(content, token)
	}

	return content, hints
}

// matchesHint reports whether the candidate's tag or role satisfies any
// of the hinted element kinds.
func matchesHint(hints map[string]bool, c *candidate) bool {
	if len(hints) == 0 {
		return false
	}

	role := strings.ToLower(c.attrs["role"])
	for hint := range hints {
		for _, kind := range tagHints[hint] {
			if c.tag == kind || (role != "" && role == kind) {
				return true
			}
		}
	}

	return false
}

// simpleToken matches identifiers safe to splice into a CSS selector.
var simpleToken = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

// selectorFor builds the most specific stable selector available for a
// candidate: id, then name, then a unique tag.class, then a positional
// path anchored at the nearest identified ancestor.
func selectorFor(c *candidate, classCounts map[string]int) string {
	if id := c.attrs["id"]; id != "" && simpleToken.MatchString(id) {
		return "#" + id
	}

	if name := c.attrs["name"]; name != "" && simpleToken.MatchString(name) {
		return fmt.Sprintf("%s[name=%q]", c.tag, name)
	}

	for _, class := range c.classes {
		if simpleToken.MatchString(class) && classCounts[c.tag+"."+class] == 1 {
			return c.tag + "." + class
		}
	}

	return positionalSelector(c.node)
}

// positionalSelector builds a child-combinator path from the nearest
// ancestor carrying an id (or the body) down to the element. Each hop
// is a direct child, so the path stays unambiguous even when siblings
// repeat the same structure.
func positionalSelector(node *html.Node) string {
	var segments []string

	for node != nil && node.Type == html.ElementNode {
		tag := strings.ToLower(node.Data)
		if tag == "body" || tag == "html" {
			break
		}

		if id := attrMap(node)["id"]; id != "" && simpleToken.MatchString(id) && len(segments) > 0 {
			return "#" + id + " > " + strings.Join(segments, " > ")
		}

		segment := fmt.Sprintf("%s:nth-of-type(%d)", tag, nthOfType(node, tag))
		segments = append([]string{segment}, segments...)
		node = node.Parent
	}

	return "body > " + strings.Join(segments, " > ")
}
