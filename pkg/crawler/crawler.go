package crawler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Sriram-PR/link-auditor/pkg/config"
	"github.com/Sriram-PR/link-auditor/pkg/fetch"
	"github.com/Sriram-PR/link-auditor/pkg/metrics"
	"github.com/Sriram-PR/link-auditor/pkg/models"
	"github.com/Sriram-PR/link-auditor/pkg/parse"
	"github.com/Sriram-PR/link-auditor/pkg/queue"
	"github.com/Sriram-PR/link-auditor/pkg/storage"
)

// ErrAlreadyRunning is returned when Run is called on a crawler that is mid-crawl
var ErrAlreadyRunning = errors.New("crawl already running")

const progressInterval = 30 * time.Second

// Crawler walks a single domain from its base URL, following internal links and redirects.
// One coordinator goroutine owns the frontier and all classification; fetches may run
// on up to NumWorkers goroutines.
type Crawler struct {
	cfg     *config.AppConfig
	baseURL string // normalized
	scope   *parse.ScopeFilter
	fetcher fetch.HTTPFetcher
	store   storage.CrawlStore
	metrics metrics.Recorder
	log     *logrus.Entry
	runID   string

	frontier *queue.Frontier // coordinator-owned

	// Progress counters, safe to read from other goroutines
	processed atomic.Int64
	failures  atomic.Int64
	queued    atomic.Int64
	running   atomic.Bool
	startedAt atomic.Int64 // unix nanos
}

// fetchOutcome carries a finished fetch back to the coordinator
type fetchOutcome struct {
	item    models.QueueItem
	resp    *fetch.Response
	err     error
	elapsed time.Duration
}

// NewCrawler creates a crawler for cfg.BaseURL. cfg must already be validated.
// A nil recorder disables metrics.
func NewCrawler(cfg *config.AppConfig, fetcher fetch.HTTPFetcher, store storage.CrawlStore, recorder metrics.Recorder, baseLogger *logrus.Entry) (*Crawler, error) {
	baseURL, err := parse.Normalize(cfg.BaseURL, cfg.BaseURL, cfg.PaginationMode)
	if err != nil {
		return nil, fmt.Errorf("base URL: %w", err)
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}

	runID := uuid.New().String()
	return &Crawler{
		cfg:      cfg,
		baseURL:  baseURL,
		scope:    parse.NewScopeFilter(cfg.DomainSuffix),
		fetcher:  fetcher,
		store:    store,
		metrics:  recorder,
		runID:    runID,
		frontier: queue.NewFrontier(),
		log: baseLogger.WithFields(logrus.Fields{
			"run_id":   runID,
			"base_url": baseURL,
		}),
	}, nil
}

// RunID identifies this crawler in logs and reports
func (c *Crawler) RunID() string { return c.runID }

// BaseURL returns the normalized seed URL
func (c *Crawler) BaseURL() string { return c.baseURL }

// Run crawls until the frontier is empty and returns every recorded result.
// With resume, the frontier checkpoint and visited set in the store are reused.
// On cancellation or global timeout, in-flight fetches finish, URLs whose fetch
// was cut short go back to the front of the frontier, the frontier is
// checkpointed, and the results gathered so far are returned alongside ctx.Err().
// Results are nil only when the crawl could not start; a crawl that recorded
// nothing returns an empty slice.
func (c *Crawler) Run(ctx context.Context, resume bool) ([]models.CrawlResult, error) {
	if !c.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	defer c.running.Store(false)

	start := time.Now()
	c.startedAt.Store(start.UnixNano())

	if c.cfg.GlobalCrawlTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.GlobalCrawlTimeout)
		defer cancel()
	}

	runLogFields := logrus.Fields{
		"domain_suffix": c.scope.Suffix(),
		"workers":       c.cfg.NumWorkers,
		"resume":        resume,
	}

	if err := c.seedFrontier(resume); err != nil {
		return nil, err
	}
	c.log.WithFields(runLogFields).Infof("Crawl starting with %d queued URL(s)", c.frontier.Len())

	stopProgress := c.startProgressReporter(ctx)
	crawlErr := c.crawl(ctx)
	stopProgress()

	c.checkpoint()

	results, err := c.store.Results()
	if err != nil {
		return nil, err
	}
	c.logSummary(start, results, crawlErr)
	return results, crawlErr
}

// seedFrontier fills the frontier from the checkpoint (resume) or with the base URL
func (c *Crawler) seedFrontier(resume bool) error {
	if resume {
		items, err := c.store.LoadFrontier()
		if err != nil {
			return fmt.Errorf("load frontier checkpoint: %w", err)
		}
		visited, err := c.store.VisitedCount()
		if err != nil {
			c.log.Warnf("Failed to count visited URLs: %v", err)
		}
		if len(items) > 0 || visited > 0 {
			c.frontier = queue.NewFrontier(items...)
			c.log.WithFields(logrus.Fields{"pending": len(items), "visited": visited}).Info("Resuming from stored crawl state")
			c.publishGauges()
			return nil
		}
		c.log.Info("Resume requested but no stored state found, starting from base URL")
	}

	c.frontier = queue.NewFrontier(models.QueueItem{URL: c.baseURL})
	c.publishGauges()
	return nil
}

// crawl is the coordinator loop
func (c *Crawler) crawl(ctx context.Context) error {
	workers := max(1, c.cfg.NumWorkers)
	outcomes := make(chan fetchOutcome, workers) // never blocks a fetch goroutine: inFlight <= workers
	var g errgroup.Group
	inFlight := 0
	sinceCheckpoint := 0
	var interrupted []models.QueueItem

	handle := func(out fetchOutcome) {
		inFlight--
		if isInterrupted(ctx, out.err) {
			if c.release(out.item) {
				interrupted = append(interrupted, out.item)
			}
			return
		}
		if c.handleOutcome(out) {
			sinceCheckpoint++
		}
		if sinceCheckpoint >= c.cfg.CheckpointInterval && c.cfg.CheckpointInterval > 0 {
			c.checkpoint()
			sinceCheckpoint = 0
		}
		c.publishGauges()
	}

	for {
		// Absorb finished fetches first so their links join the frontier
		for drained := false; !drained; {
			select {
			case out := <-outcomes:
				handle(out)
			default:
				drained = true
			}
		}

		if ctx.Err() != nil {
			break
		}

		if c.frontier.Len() == 0 || inFlight >= workers {
			if inFlight == 0 {
				break
			}
			select {
			case out := <-outcomes:
				handle(out)
			case <-ctx.Done():
			}
			continue
		}

		item, _ := c.frontier.Pop()
		c.queued.Store(int64(c.frontier.Len()))

		added, err := c.store.MarkVisited(item.URL)
		if err != nil {
			c.failures.Add(1)
			c.log.WithField("url", item.URL).Errorf("Cannot mark URL visited, skipping: %v", err)
			continue
		}
		if !added {
			c.log.WithField("url", item.URL).Debug("Already visited, skipping")
			continue
		}

		inFlight++
		g.Go(func() error {
			outcomes <- c.fetchOne(ctx, item)
			return nil
		})
	}

	_ = g.Wait()
	close(outcomes)
	for out := range outcomes {
		handle(out)
	}

	if len(interrupted) > 0 {
		c.frontier = queue.NewFrontier(append(interrupted, c.frontier.Snapshot()...)...)
		c.publishGauges()
		c.log.WithField("requeued", len(interrupted)).Info("Interrupted fetches returned to the frontier")
	}
	return ctx.Err()
}

// isInterrupted reports whether a fetch failed only because the crawl itself was
// cancelled or timed out. A per-request client timeout leaves ctx intact and stays a fetch failure.
func isInterrupted(ctx context.Context, err error) bool {
	if err == nil || ctx.Err() == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// release unmarks an interrupted URL so a resumed crawl fetches it again
func (c *Crawler) release(item models.QueueItem) bool {
	if err := c.store.UnmarkVisited(item.URL); err != nil {
		c.log.WithField("url", item.URL).Warnf("Cannot requeue interrupted fetch: %v", err)
		return false
	}
	return true
}

// fetchOne runs on a fetch goroutine; a panic becomes a failed outcome
func (c *Crawler) fetchOne(ctx context.Context, item models.QueueItem) (out fetchOutcome) {
	start := time.Now()
	out.item = item
	defer func() {
		if r := recover(); r != nil {
			out.resp = nil
			out.err = fmt.Errorf("panic: %v", r)
			c.log.WithFields(logrus.Fields{
				"url":         item.URL,
				"panic_info":  r,
				"stack_trace": string(debug.Stack()),
			}).Error("PANIC recovered in fetch")
		}
		out.elapsed = time.Since(start)
	}()

	out.resp, out.err = c.fetcher.Fetch(ctx, item.URL)
	return out
}

// checkpoint saves the frontier so a resumed crawl can continue from here
func (c *Crawler) checkpoint() {
	if err := c.store.SaveFrontier(c.frontier.Snapshot()); err != nil {
		c.log.Warnf("Failed to checkpoint frontier: %v", err)
	}
}

func (c *Crawler) publishGauges() {
	n := c.frontier.Len()
	c.queued.Store(int64(n))
	c.metrics.SetQueueLength(n)
	if visited, err := c.store.VisitedCount(); err == nil {
		c.metrics.SetVisited(visited)
	}
}

func (c *Crawler) startProgressReporter(ctx context.Context) (stop func()) {
	done := make(chan struct{})
	ticker := time.NewTicker(progressInterval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				p := c.Progress()
				c.log.WithFields(logrus.Fields{
					"visited":   p.Visited,
					"queue_len": p.Queued,
					"processed": p.Processed,
					"failures":  p.Failures,
				}).Info("Crawl Progress")
			}
		}
	}()

	return func() { close(done) }
}

func (c *Crawler) logSummary(start time.Time, results []models.CrawlResult, crawlErr error) {
	visited, _ := c.store.VisitedCount()
	redirects, broken := 0, 0
	for _, r := range results {
		if r.IsRedirect() {
			redirects++
		}
		if r.IsBroken() {
			broken++
		}
	}

	status := "CRAWL FINISHED"
	if crawlErr != nil {
		status = fmt.Sprintf("CRAWL STOPPED (%v)", crawlErr)
	}

	summaryLog := c.log.WithField("domain_suffix", c.scope.Suffix())
	summaryLog.Info("========================================================================")
	summaryLog.Info(status)
	summaryLog.Infof("Duration:         %v", time.Since(start))
	summaryLog.Infof("Final Stats: Visited: %d, Results: %d, Redirects: %d, Broken: %d, Fetch failures: %d, Pending: %d",
		visited, len(results), redirects, broken, c.failures.Load(), c.frontier.Len())
	summaryLog.Info("========================================================================")
}
