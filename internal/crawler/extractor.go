package crawler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

var (
	// quotedLiteral captures the body of "...", '...' and `...` literals
	quotedLiteral = regexp.MustCompile("[\"'`]([^\"'`]*?)[\"'`]")

	// linkLike keeps absolute http(s) links and root-relative paths
	linkLike = regexp.MustCompile(`^(https?://|/)\S*$`)
)

// LiteralExtractor scans every quoted string in the content and keeps the
// ones shaped like links. It works on HTML and inline JavaScript alike.
type LiteralExtractor struct{}

// Extract returns link-shaped literals in order of appearance
func (LiteralExtractor) Extract(content string) []string {
	var candidates []string
	for _, match := range quotedLiteral.FindAllStringSubmatch(content, -1) {
		if linkLike.MatchString(match[1]) {
			candidates = append(candidates, match[1])
		}
	}
	return candidates
}

// linkAttributes maps element selectors to the attribute holding the link
var linkAttributes = []struct {
	selector string
	attr     string
}{
	{"a[href]", "href"},
	{"area[href]", "href"},
	{"link[href]", "href"},
	{"iframe[src]", "src"},
	{"frame[src]", "src"},
}

// HTMLExtractor parses the content as HTML and collects link attributes
type HTMLExtractor struct{}

// Extract returns link attribute values in document order per selector
func (HTMLExtractor) Extract(content string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		logrus.Debugf("HTML extractor: failed to parse content: %v", err)
		return nil
	}

	var candidates []string
	for _, la := range linkAttributes {
		doc.Find(la.selector).Each(func(_ int, s *goquery.Selection) {
			if val, ok := s.Attr(la.attr); ok {
				if val = strings.TrimSpace(val); val != "" {
					candidates = append(candidates, val)
				}
			}
		})
	}
	return candidates
}

// MultiExtractor runs several extractors and merges their output,
// keeping the first occurrence of each candidate
type MultiExtractor []Extractor

// Extract concatenates and deduplicates the results of every extractor
func (m MultiExtractor) Extract(content string) []string {
	seen := make(map[string]bool)
	var candidates []string
	for _, extractor := range m {
		for _, candidate := range extractor.Extract(content) {
			if seen[candidate] {
				continue
			}
			seen[candidate] = true
			candidates = append(candidates, candidate)
		}
	}
	return candidates
}

// NewExtractor returns the extractor registered under name:
// "literal", "html" or "both"
func NewExtractor(name string) (Extractor, error) {
	switch strings.ToLower(name) {
	case "", "literal":
		return LiteralExtractor{}, nil
	case "html":
		return HTMLExtractor{}, nil
	case "both":
		return MultiExtractor{HTMLExtractor{}, LiteralExtractor{}}, nil
	}
	return nil, fmt.Errorf("unknown extractor %q", name)
}
