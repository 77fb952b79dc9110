package crawler

import (
	"net/url"
	"strings"
)

// DefaultIgnoredExtensions lists file types that never name a crawlable page
var DefaultIgnoredExtensions = []string{".png", ".gif", ".jpeg", ".webp", ".svg", ".css", ".ico", ".jpg"}

// Rejection names the predicate that turned a link down
type Rejection string

const (
	Accepted          Rejection = ""
	RejectScheme      Rejection = "unsupported scheme"
	RejectExtension   Rejection = "ignored file type"
	RejectFragment    Rejection = "in-page anchor"
	RejectNoMatch     Rejection = "does not match"
	RejectIgnored     Rejection = "ignored substring"
	RejectUnparseable Rejection = "unparseable"
)

// Filter decides whether a resolved link is worth crawling
type Filter struct {
	MatchSubstring   string
	IgnoreSubstrings []string
	IgnoreExtensions []string
}

// NewFilter creates a filter; a nil extension list selects the defaults
func NewFilter(match string, ignore, extensions []string) *Filter {
	if extensions == nil {
		extensions = DefaultIgnoredExtensions
	}

	lowered := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		lowered = append(lowered, ext)
	}

	return &Filter{
		MatchSubstring:   match,
		IgnoreSubstrings: ignore,
		IgnoreExtensions: lowered,
	}
}

// Accept reports whether candidate passes every predicate
func (f *Filter) Accept(candidate string) bool {
	return len(f.Reasons(candidate)) == 0
}

// Reason returns the first failing predicate, or Accepted
func (f *Filter) Reason(candidate string) Rejection {
	reasons := f.Reasons(candidate)
	if len(reasons) == 0 {
		return Accepted
	}
	return reasons[0]
}

// Reasons evaluates every predicate and returns all that failed
func (f *Filter) Reasons(candidate string) []Rejection {
	var reasons []Rejection

	parsed, err := url.Parse(candidate)
	if err != nil {
		return []Rejection{RejectUnparseable}
	}

	if !isWebScheme(parsed.Scheme) {
		reasons = append(reasons, RejectScheme)
	}

	if hasExtension(parsed.Path, f.IgnoreExtensions) {
		reasons = append(reasons, RejectExtension)
	}

	if strings.Contains(candidate, "#") {
		reasons = append(reasons, RejectFragment)
	}

	if f.MatchSubstring != "" && !strings.Contains(candidate, f.MatchSubstring) {
		reasons = append(reasons, RejectNoMatch)
	}

	for _, ignore := range f.IgnoreSubstrings {
		if ignore != "" && strings.Contains(candidate, ignore) {
			reasons = append(reasons, RejectIgnored)
			break
		}
	}

	return reasons
}

// hasExtension checks the lowercased path against the extension list
func hasExtension(path string, extensions []string) bool {
	path = strings.ToLower(path)
	for _, ext := range extensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}
