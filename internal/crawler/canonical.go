package crawler

import (
	"net/url"
	"strings"
)

// isWebScheme reports whether scheme is http or https
func isWebScheme(scheme string) bool {
	scheme = strings.ToLower(scheme)
	return scheme == "http" || scheme == "https"
}

// parseAbsolute parses rawURL and requires an http(s) scheme and a host
func parseAbsolute(rawURL string) (*url.URL, bool) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, false
	}
	if !isWebScheme(parsed.Scheme) || parsed.Host == "" {
		return nil, false
	}
	return parsed, true
}

// Resolve turns a candidate link found on parent into an absolute URL.
// Absolute http(s) candidates are returned unchanged; everything else is
// joined against parent as a relative reference. The second return value is
// false when the link cannot be resolved.
func Resolve(candidate, parent string) (string, bool) {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return "", false
	}

	if _, ok := parseAbsolute(candidate); ok {
		return candidate, true
	}

	base, ok := parseAbsolute(parent)
	if !ok {
		return "", false
	}

	ref, err := url.Parse(candidate)
	if err != nil {
		return "", false
	}

	return base.ResolveReference(ref).String(), true
}

// CanonicalKey returns the identity of an absolute URL: lowercased host
// without a leading "www." followed by the path, minus one trailing slash.
// Scheme, query and fragment do not take part in the key. Repeated slashes
// inside the path are kept.
func CanonicalKey(absoluteURL string) string {
	parsed, err := url.Parse(absoluteURL)
	if err != nil {
		return ""
	}

	host := strings.ToLower(parsed.Host)
	host = strings.TrimPrefix(host, "www.")

	path := parsed.EscapedPath()
	path = strings.TrimSuffix(path, "/")

	return host + path
}
