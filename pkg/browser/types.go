package browser

import (
	"time"

	"github.com/playwright-community/playwright-go"
)

// Session represents an active browser automation session
type Session struct {
	// Name is the unique identifier for this session
	Name string
	// Browser is the Playwright browser instance
	Browser playwright.Browser
	// Context is the browser context for this session
	Context playwright.BrowserContext
	// Page is the active page in this session
	Page playwright.Page
	// Headless indicates if the browser is running in headless mode
	Headless bool
	// CreatedAt is when the session was created
	CreatedAt time.Time
	// LastUsedAt is when the session was last accessed
	LastUsedAt time.Time
	// CurrentURL is the last known URL of the page
	CurrentURL string
}

// SessionOptions configures a new browser session
type SessionOptions struct {
	// Headless determines if the browser runs without a visible window
	Headless bool
	// Viewport sets the browser window dimensions
	Viewport *Viewport
	// Timeout is the default timeout for operations in milliseconds
	Timeout float64
}

// Viewport defines browser window dimensions
type Viewport struct {
	Width  int
	Height int
}

// NavigateOptions configures page navigation
type NavigateOptions struct {
	// WaitUntil determines when navigation is considered complete
	// Options: "load", "domcontentloaded", "networkidle"
	WaitUntil string
	// Timeout in milliseconds
	Timeout float64
}

// ClickOptions configures element clicking
type ClickOptions struct {
	// Selector is the CSS selector of the element to click
	Selector string
	// Button specifies which mouse button ("left", "right", "middle")
	Button string
	// ClickCount for multiple clicks (default 1)
	ClickCount int
	// Timeout in milliseconds
	Timeout float64
}

// FillOptions configures form field filling
type FillOptions struct {
	// Selector is the CSS selector of the input element
	Selector string
	// Value is the text to fill
	Value string
	// Timeout in milliseconds
	Timeout float64
}

// SelectOptions configures dropdown option selection
type SelectOptions struct {
	// Selector is the CSS selector of the select element
	Selector string
	// Label matches an option by its visible text
	Label string
	// Value matches an option by its value attribute
	Value string
	// Timeout in milliseconds
	Timeout float64
}

// WaitOptions configures waiting for page conditions. When Selector is
// empty and Timeout is positive the wait is a fixed pause.
type WaitOptions struct {
	// Selector to wait for
	Selector string
	// State to wait for: "visible", "hidden", "attached", "detached"
	State string
	// Timeout in milliseconds
	Timeout float64
}

// ExtractFormat specifies the content extraction format
type ExtractFormat string

const (
	// FormatText extracts plain text content
	FormatText ExtractFormat = "text"
	// FormatAttribute extracts a single attribute value
	FormatAttribute ExtractFormat = "attribute"
	// FormatArticle extracts the readable article body of the page
	FormatArticle ExtractFormat = "article"
)

// ExtractOptions configures content extraction
type ExtractOptions struct {
	// Format determines how content is extracted
	Format ExtractFormat
	// Selector optionally limits extraction to matching elements
	Selector string
	// Attribute is the attribute name for FormatAttribute
	Attribute string
	// MaxLength limits the extracted content size (0 = default limit)
	MaxLength int
}

// Page is the per-session browser surface the automation engine drives.
// *Session implements it over Playwright.
type Page interface {
	Navigate(url string, opts NavigateOptions) error
	Click(opts ClickOptions) error
	Fill(opts FillOptions) error
	SelectOption(opts SelectOptions) ([]string, error)
	Wait(opts WaitOptions) error
	Extract(opts ExtractOptions) (string, error)
	Content() (string, error)
	Text(selector string) (string, error)
	Attribute(selector, name string) (string, error)
	Exists(selector string) bool
	IsEditable(selector string) (bool, error)
	Screenshot(fullPage bool) ([]byte, error)
	URL() string
	Title() (string, error)
}

// Default values
const (
	DefaultTimeout        = 30000.0 // 30 seconds in milliseconds
	DefaultMaxLength      = 10000   // Maximum content length for extraction
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
	DefaultMaxSessions    = 5   // Maximum concurrent sessions
	DefaultIdleTimeout    = 300 // 5 minutes in seconds
)
