package crawler

import "time"

// CrawlerProgress is a point-in-time view of a crawl, safe to take from any goroutine
type CrawlerProgress struct {
	RunID     string    `json:"runId"`
	Running   bool      `json:"running"`
	Processed int64     `json:"processed"` // Results recorded
	Failures  int64     `json:"failures"`  // Fetches with no HTTP response
	Queued    int64     `json:"queued"`
	Visited   int       `json:"visited"`
	StartedAt time.Time `json:"startedAt,omitzero"`
}

// Progress reports the crawler's counters
func (c *Crawler) Progress() CrawlerProgress {
	p := CrawlerProgress{
		RunID:     c.runID,
		Running:   c.running.Load(),
		Processed: c.processed.Load(),
		Failures:  c.failures.Load(),
		Queued:    c.queued.Load(),
	}
	if visited, err := c.store.VisitedCount(); err == nil {
		p.Visited = visited
	}
	if started := c.startedAt.Load(); started != 0 {
		p.StartedAt = time.Unix(0, started)
	}
	return p
}
