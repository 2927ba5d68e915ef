package scrapers

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"
)

// MaxResults is the cap on image references returned by one search.
const MaxResults = 10

// DefaultSearchURL is the DuckDuckGo image search endpoint. %s receives the escaped query.
const DefaultSearchURL = "https://duckduckgo.com/?q=%s&t=h_&iar=images&iax=images&ia=images"

var (
	ErrSessionAcquisition = errors.New("browser session unavailable")
	ErrNavigation         = errors.New("navigation failed")
	ErrScroll             = errors.New("scroll failed")
	ErrExtraction         = errors.New("image extraction failed")
	ErrRenderTimeout      = errors.New("page did not settle in time")
)

// ScraperConfig holds configuration for image searches
type ScraperConfig struct {
	SearchURL    string
	Headless     bool
	Timeout      time.Duration
	SettleBudget time.Duration
	ScrollBudget time.Duration
	PollInterval time.Duration
	MaxSessions  int
}

// DefaultScraperConfig returns the configuration used when nothing is overridden.
// SettleBudget and ScrollBudget together give the page seven seconds to render.
func DefaultScraperConfig() *ScraperConfig {
	return &ScraperConfig{
		SearchURL:    DefaultSearchURL,
		Headless:     true,
		Timeout:      60 * time.Second,
		SettleBudget: 5 * time.Second,
		ScrollBudget: 2 * time.Second,
		PollInterval: 250 * time.Millisecond,
		MaxSessions:  2,
	}
}

// Result is the single value delivered for a search.
// Err is nil both on success and when the page simply had no usable images.
type Result struct {
	ID       string
	Query    string
	Images   []string
	Err      error
	Duration time.Duration
}

// Failed reports whether the search ended on a fault rather than a normal page.
func (r Result) Failed() bool {
	return r.Err != nil
}

// Browser launches automation sessions.
type Browser interface {
	// Open starts a new session bound to ctx. Cancelling ctx tears the session down.
	Open(ctx context.Context) (Session, error)
}

// Session is the capability surface the image scraper needs from a browser.
type Session interface {
	Navigate(url string) error
	// Evaluate runs a script in the page and stores its JSON result in res (may be nil).
	Evaluate(script string, res any) error
	// FindAll returns every element with the given tag in document order.
	FindAll(tag string) ([]Element, error)
	// Close releases the session. Calling it more than once is harmless.
	Close() error
}

// Element is a snapshot of a rendered DOM element.
type Element struct {
	Tag   string
	Attrs map[string]string
}

// Attribute returns the attribute value and whether it was set.
func (e Element) Attribute(name string) (string, bool) {
	v, ok := e.Attrs[name]
	return v, ok
}

// IsFetchable reports whether ref points at a network resource (http or https with a host).
func IsFetchable(ref string) bool {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return false
	}
	u, err := url.Parse(ref)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return u.Host != ""
	default:
		return false
	}
}
