package report

import (
	"strings"
	"unicode"

	"github.com/webpilot-ai/webpilot/pkg/workflow"
)

// Category classifies the kind of task a workflow performs. The compiler
// uses it to pick success criteria and follow-up suggestions for the
// ending note.
type Category string

const (
	CategoryProjectManagement Category = "Project Management"
	CategoryEcommerce         Category = "E-commerce"
	CategoryDocumentCreation  Category = "Document Creation"
	CategoryTravelBooking     Category = "Travel Booking"
	CategoryContentResearch   Category = "Content Research"
	CategoryGeneric           Category = "Generic"
)

// categoryOrder fixes tie-breaking: on equal keyword hits the earlier
// category wins.
var categoryOrder = []Category{
	CategoryProjectManagement,
	CategoryEcommerce,
	CategoryDocumentCreation,
	CategoryTravelBooking,
	CategoryContentResearch,
}

var categoryKeywords = map[Category][]string{
	CategoryProjectManagement: {
		"jira", "asana", "trello", "linear", "monday", "clickup",
		"ticket", "sprint", "board", "backlog", "kanban", "issue", "standup",
	},
	CategoryEcommerce: {
		"cart", "checkout", "shop", "store", "product", "order",
		"amazon", "ebay", "etsy", "shopify", "buy", "purchase", "shipping",
	},
	CategoryDocumentCreation: {
		"docs", "document", "notion", "confluence", "draft", "sheet",
		"spreadsheet", "slides", "template", "editor", "wiki",
	},
	CategoryTravelBooking: {
		"flight", "hotel", "booking", "airbnb", "expedia", "kayak",
		"travel", "trip", "reservation", "airline", "itinerary",
	},
	CategoryContentResearch: {
		"search", "wikipedia", "research", "article", "news", "blog",
		"scholar", "arxiv", "reference", "summary",
	},
}

// categoryCriteria states what a successful run of each category looks
// like. The ending note weighs step outcomes against this.
var categoryCriteria = map[Category]string{
	CategoryProjectManagement: "the tracked item was created or updated and is visible on the board",
	CategoryEcommerce:         "the intended product reached the cart or the order was placed",
	CategoryDocumentCreation:  "the document exists with the intended content saved",
	CategoryTravelBooking:     "the searched dates and destination produced a held or booked reservation",
	CategoryContentResearch:   "the sought information was located and extracted",
	CategoryGeneric:           "every step completed without error",
}

var categoryFollowUps = map[Category]string{
	CategoryProjectManagement: "Verify the item's assignee and status in the tracker.",
	CategoryEcommerce:         "Check the order confirmation email before considering the purchase final.",
	CategoryDocumentCreation:  "Open the document to confirm formatting survived the save.",
	CategoryTravelBooking:     "Confirm the reservation details and cancellation policy.",
	CategoryContentResearch:   "Cross-check the extracted information against a second source.",
	CategoryGeneric:           "Review the step screenshots to confirm the pages look as expected.",
}

// DetectCategory matches the workflow's navigate URLs and step descriptions
// against each category's keyword set. Zero hits anywhere means Generic.
func DetectCategory(steps []workflow.Step) Category {
	tokens := make(map[string]bool)
	for _, step := range steps {
		if step.Type == workflow.StepNavigate {
			collectTokens(step.URL, tokens)
		}
		collectTokens(step.Description, tokens)
	}

	best := CategoryGeneric
	bestHits := 0
	for _, cat := range categoryOrder {
		hits := 0
		for _, kw := range categoryKeywords[cat] {
			if tokens[kw] {
				hits++
			}
		}
		if hits > bestHits {
			best = cat
			bestHits = hits
		}
	}
	return best
}

// Criteria returns the category's success criteria sentence.
func (c Category) Criteria() string {
	if s, ok := categoryCriteria[c]; ok {
		return s
	}
	return categoryCriteria[CategoryGeneric]
}

// FollowUp returns the category's suggested follow-up action.
func (c Category) FollowUp() string {
	if s, ok := categoryFollowUps[c]; ok {
		return s
	}
	return categoryFollowUps[CategoryGeneric]
}

func collectTokens(text string, into map[string]bool) {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, w := range words {
		into[w] = true
	}
}
