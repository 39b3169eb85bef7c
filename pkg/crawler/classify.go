package crawler

import (
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/link-auditor/pkg/fetch"
	"github.com/Sriram-PR/link-auditor/pkg/models"
	"github.com/Sriram-PR/link-auditor/pkg/parse"
	"github.com/Sriram-PR/link-auditor/pkg/utils"
)

// Classify decides how a response is handled.
// A 3xx with a Location header is a redirect. A 200 whose Content-Type mentions
// text/html is parsed for links, but only when currentURL lies under baseURL.
// Everything else is only recorded.
func Classify(resp *fetch.Response, currentURL, baseURL string) models.ResponseKind {
	if resp.StatusCode >= 300 && resp.StatusCode < 400 && resp.Location() != "" {
		return models.ResponseKindRedirect
	}
	if resp.StatusCode == http.StatusOK && isHTML(resp.ContentTypes()) && strings.HasPrefix(currentURL, baseURL) {
		return models.ResponseKindHTML
	}
	return models.ResponseKindOther
}

// isHTML matches any Content-Type value containing text/html, case-insensitively
func isHTML(contentTypes []string) bool {
	for _, ct := range contentTypes {
		if strings.Contains(strings.ToLower(ct), "text/html") {
			return true
		}
	}
	return false
}

// handleOutcome records a finished fetch and grows the frontier.
// Returns true when a result was stored.
func (c *Crawler) handleOutcome(out fetchOutcome) bool {
	taskLog := c.log.WithField("url", out.item.URL)

	if out.err != nil {
		category := utils.CategorizeError(out.err)
		c.failures.Add(1)
		c.metrics.FetchFailed(category)
		taskLog.WithFields(logrus.Fields{
			"error_type": category,
			"duration":   out.elapsed.String(),
		}).Warnf("Fetch failed, no result recorded: %v", out.err)
		return false
	}

	result, kind := c.processResponse(out.item, out.resp, taskLog)
	c.metrics.ObserveFetch(kind, out.resp.StatusCode, out.elapsed)

	if err := c.store.AppendResult(result); err != nil {
		taskLog.WithField("error_type", utils.CategorizeError(err)).Errorf("Failed to record result: %v", err)
		return false
	}
	c.processed.Add(1)

	taskLog.WithFields(logrus.Fields{
		"status_code": out.resp.StatusCode,
		"kind":        kind.String(),
		"remaining":   c.frontier.Len(),
	}).Info("Fetched")
	return true
}

// processResponse builds the result for one response and pushes any newly discovered URLs
func (c *Crawler) processResponse(item models.QueueItem, resp *fetch.Response, taskLog *logrus.Entry) (models.CrawlResult, models.ResponseKind) {
	current := item.URL
	result := models.CrawlResult{
		URL:            current,
		HTTPCode:       resp.StatusCode,
		Referer:        current,
		DiscoveredFrom: item.DiscoveredFrom,
	}

	kind := Classify(resp, current, c.baseURL)
	switch kind {
	case models.ResponseKindRedirect:
		location := resp.Location()
		target, err := parse.Resolve(location, current)
		if err != nil {
			taskLog.Warnf("Unresolvable Location header %q, recording without redirect target: %v", location, err)
			return result, models.ResponseKindOther
		}
		result.RedirectsTo = target
		c.enqueueRedirect(target, current, taskLog)

	case models.ResponseKindHTML:
		if resp.Truncated {
			taskLog.Warn("Body truncated at max_body_bytes, links past the cut are not followed")
		}
		added := c.enqueueLinks(string(resp.Body), current, taskLog)
		taskLog.Debugf("Queued %d new link(s)", added)
	}

	return result, kind
}

// enqueueRedirect pushes an internal, unvisited redirect target.
// No frontier membership check: duplicates are dropped at pop time.
func (c *Crawler) enqueueRedirect(target, current string, taskLog *logrus.Entry) {
	if !c.scope.IsInternal(target) {
		taskLog.WithField("target", target).Debug("Redirect leaves domain, not followed")
		return
	}
	if c.isVisited(target, taskLog) {
		return
	}
	c.frontier.Push(models.QueueItem{URL: target, DiscoveredFrom: current})
}

// enqueueLinks normalizes every anchor on the page and pushes the internal ones not yet seen
func (c *Crawler) enqueueLinks(body, current string, taskLog *logrus.Entry) int {
	added := 0
	for href := range parse.ExtractLinks(body) {
		link, err := parse.Normalize(href, current, c.cfg.PaginationMode)
		if err != nil {
			taskLog.WithField("href", href).Debugf("Skipping link: %v", err)
			continue
		}
		if !c.scope.IsInternal(link) || c.frontier.Contains(link) || c.isVisited(link, taskLog) {
			continue
		}
		c.frontier.Push(models.QueueItem{URL: link, DiscoveredFrom: current})
		added++
	}
	return added
}

// isVisited treats a store error as not visited; MarkVisited at dequeue still prevents a refetch
func (c *Crawler) isVisited(url string, taskLog *logrus.Entry) bool {
	visited, err := c.store.IsVisited(url)
	if err != nil {
		taskLog.WithField("target", url).Warnf("Visited check failed: %v", err)
		return false
	}
	return visited
}
