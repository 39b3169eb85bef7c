package models

import "time"

// QueueItem is a URL waiting in the crawl frontier
type QueueItem struct {
	URL            string `json:"url"`
	DiscoveredFrom string `json:"discovered_from,omitempty"` // Page whose link or redirect queued this URL (empty for the seed)
}

// CrawlResult records the outcome of fetching one URL.
// JSON field names match the results.json layout consumed by existing tooling.
type CrawlResult struct {
	URL            string `json:"url" yaml:"url"`
	HTTPCode       int    `json:"httpCode" yaml:"http_code"`
	RedirectsTo    string `json:"redirectsTo,omitempty" yaml:"redirects_to,omitempty"`
	Referer        string `json:"referer,omitempty" yaml:"referer,omitempty"`
	DiscoveredFrom string `json:"discoveredFrom,omitempty" yaml:"discovered_from,omitempty"`
}

// IsRedirect reports whether the result carries a redirect target
func (r CrawlResult) IsRedirect() bool {
	return r.RedirectsTo != ""
}

// IsBroken reports whether the result is a client or server error
func (r CrawlResult) IsBroken() bool {
	return r.HTTPCode >= 400
}

// StatusClass returns "1xx".."5xx", or "other" for codes outside that range
func (r CrawlResult) StatusClass() string {
	return StatusClassOf(r.HTTPCode)
}

// StatusClassOf buckets an HTTP status code into its class label
func StatusClassOf(code int) string {
	switch {
	case code >= 100 && code < 200:
		return "1xx"
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	}
	return "other"
}

// CrawlSummary aggregates a result set for reports and tool output
type CrawlSummary struct {
	TotalResults      int            `json:"total_results" yaml:"total_results"`
	ByStatusClass     map[string]int `json:"by_status_class" yaml:"by_status_class"`
	Redirects         int            `json:"redirects" yaml:"redirects"`
	InternalRedirects int            `json:"internal_redirects" yaml:"internal_redirects"`
	BrokenLinks       int            `json:"broken_links" yaml:"broken_links"`
}

// CrawlReport is the full report written at the end of a crawl
type CrawlReport struct {
	RunID        string        `json:"run_id" yaml:"run_id"`
	BaseURL      string        `json:"base_url" yaml:"base_url"`
	DomainSuffix string        `json:"domain_suffix" yaml:"domain_suffix"`
	StartedAt    time.Time     `json:"started_at" yaml:"started_at"`
	FinishedAt   time.Time     `json:"finished_at" yaml:"finished_at"`
	Summary      CrawlSummary  `json:"summary" yaml:"summary"`
	Results      []CrawlResult `json:"results" yaml:"results"`
}
