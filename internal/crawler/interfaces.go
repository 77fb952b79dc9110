package crawler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrInvalidSeedURL aborts a run before any page is fetched
	ErrInvalidSeedURL = errors.New("invalid seed URL")

	// ErrFetchFailed covers network errors and dead-end HTTP statuses
	ErrFetchFailed = errors.New("fetch failed")

	// ErrContentRead means a response arrived but its body could not be read
	ErrContentRead = errors.New("content unreadable")
)

// Fetcher retrieves the content of a page
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

// FetcherFunc adapts a function to the Fetcher interface
type FetcherFunc func(ctx context.Context, pageURL string) (string, error)

// Fetch calls f(ctx, pageURL)
func (f FetcherFunc) Fetch(ctx context.Context, pageURL string) (string, error) {
	return f(ctx, pageURL)
}

// Extractor pulls raw candidate link strings out of page content
type Extractor interface {
	Extract(content string) []string
}

// ExtractorFunc adapts a function to the Extractor interface
type ExtractorFunc func(content string) []string

// Extract calls f(content)
func (f ExtractorFunc) Extract(content string) []string {
	return f(content)
}

// Reporter receives per-link and per-page crawl events
type Reporter interface {
	// Discovered is called for every recorded edge
	Discovered(parentKey, childURL string, branching int)
	// Invalid is called for discarded fetches and rejected links
	Invalid(target string, reason string)
	// Failed is called when content could not be read
	Failed(target string, err error)
}

// Verbosity selects which events reach the console
type Verbosity int

const (
	VerbosityNone Verbosity = iota
	VerbositySuccesses
	VerbosityAll
)

// ParseVerbosity converts the CLI level (0, 1, 2 or a name) to a Verbosity
func ParseVerbosity(s string) (Verbosity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "off":
		return VerbosityNone, nil
	case "successes", "success":
		return VerbositySuccesses, nil
	case "all":
		return VerbosityAll, nil
	}

	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < int(VerbosityNone) || n > int(VerbosityAll) {
		return VerbosityNone, fmt.Errorf("verbosity must be between 0 and 2, got %q", s)
	}
	return Verbosity(n), nil
}

func (v Verbosity) String() string {
	switch v {
	case VerbosityNone:
		return "none"
	case VerbositySuccesses:
		return "successes"
	case VerbosityAll:
		return "all"
	}
	return "unknown"
}
