package storage

import (
	"context"
	"time"

	"github.com/Sriram-PR/link-auditor/pkg/models"
)

// VisitedStore holds the set of URLs that have been dequeued for fetching
type VisitedStore interface {
	// MarkVisited adds a normalized URL to the visited set
	// Returns true if the URL was newly added, false if it already existed
	MarkVisited(normalizedURL string) (bool, error)

	// IsVisited reports whether the URL is in the visited set
	IsVisited(normalizedURL string) (bool, error)

	// UnmarkVisited removes a URL whose fetch was interrupted so a resumed crawl fetches it again
	UnmarkVisited(normalizedURL string) error

	// VisitedCount returns the size of the visited set
	VisitedCount() (int, error)
}

// ResultStore accumulates crawl results in the order they are recorded
type ResultStore interface {
	AppendResult(result models.CrawlResult) error
	// Results is never nil on success, so an empty crawl still serializes as []
	Results() ([]models.CrawlResult, error)
	ResultCount() (int, error)
}

// FrontierStore checkpoints the pending queue so an interrupted crawl can resume
type FrontierStore interface {
	// SaveFrontier replaces the stored checkpoint with items, in pop order
	SaveFrontier(items []models.QueueItem) error

	// LoadFrontier returns the last checkpoint (empty if none)
	LoadFrontier() ([]models.QueueItem, error)
}

// StoreAdmin handles lifecycle and administrative operations
type StoreAdmin interface {
	// WriteVisitedLog writes every visited URL, sorted, one per line
	WriteVisitedLog(filePath string) error

	// RunGC runs periodic garbage collection. Should be run in a goroutine
	RunGC(ctx context.Context, interval time.Duration)

	// Close releases the store
	Close() error
}

// CrawlStore combines all store interfaces for the crawl engine
type CrawlStore interface {
	VisitedStore
	ResultStore
	FrontierStore
	StoreAdmin
}
