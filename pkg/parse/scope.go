package parse

import (
	"net/url"
	"strings"
)

// ScopeFilter decides whether a URL belongs to the crawled domain
type ScopeFilter struct {
	suffix string
}

// NewScopeFilter creates a filter accepting any hostname that ends with suffix (e.g. "hse.ie").
// Matching is a plain string suffix test, so "nothse.ie" also matches "hse.ie".
func NewScopeFilter(suffix string) *ScopeFilter {
	return &ScopeFilter{suffix: strings.ToLower(strings.TrimSpace(suffix))}
}

// Suffix returns the configured domain suffix
func (s *ScopeFilter) Suffix() string {
	return s.suffix
}

// IsInternal reports whether rawURL's hostname ends with the domain suffix.
// Unparseable URLs and URLs without a hostname are never internal.
func (s *ScopeFilter) IsInternal(rawURL string) bool {
	if s.suffix == "" {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}
	return strings.HasSuffix(host, s.suffix)
}
