// Package report turns crawl results into files and console output.
package report

import (
	"time"

	"github.com/Sriram-PR/link-auditor/pkg/models"
	"github.com/Sriram-PR/link-auditor/pkg/parse"
)

// Meta describes the crawl a report belongs to
type Meta struct {
	RunID        string
	BaseURL      string
	DomainSuffix string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Summarize counts results by status class, redirects and broken links.
// A redirect is internal when its target is inside domainSuffix.
func Summarize(results []models.CrawlResult, domainSuffix string) models.CrawlSummary {
	scope := parse.NewScopeFilter(domainSuffix)
	summary := models.CrawlSummary{
		TotalResults:  len(results),
		ByStatusClass: make(map[string]int),
	}

	for _, r := range results {
		summary.ByStatusClass[r.StatusClass()]++
		if r.IsRedirect() {
			summary.Redirects++
			if scope.IsInternal(r.RedirectsTo) {
				summary.InternalRedirects++
			}
		}
		if r.IsBroken() {
			summary.BrokenLinks++
		}
	}
	return summary
}

// NewReport bundles results with their crawl metadata and summary
func NewReport(meta Meta, results []models.CrawlResult) *models.CrawlReport {
	if results == nil {
		results = []models.CrawlResult{}
	}
	return &models.CrawlReport{
		RunID:        meta.RunID,
		BaseURL:      meta.BaseURL,
		DomainSuffix: meta.DomainSuffix,
		StartedAt:    meta.StartedAt,
		FinishedAt:   meta.FinishedAt,
		Summary:      Summarize(results, meta.DomainSuffix),
		Results:      results,
	}
}

// Broken filters results down to 4xx and 5xx responses
func Broken(results []models.CrawlResult) []models.CrawlResult {
	var broken []models.CrawlResult
	for _, r := range results {
		if r.IsBroken() {
			broken = append(broken, r)
		}
	}
	return broken
}
