package queue

import "github.com/Sriram-PR/link-auditor/pkg/models"

// compactThreshold is the number of consumed slots after which the backing slice is compacted
const compactThreshold = 1024

// Frontier is the FIFO of URLs waiting to be fetched.
// Duplicates are allowed; a membership count per URL answers Contains in O(1).
// It is not safe for concurrent use: the crawl coordinator owns it.
type Frontier struct {
	items  []models.QueueItem
	head   int            // Index of the next item to pop
	queued map[string]int // URL -> pending occurrences
}

// NewFrontier creates an empty frontier, optionally preloaded with items in order
func NewFrontier(items ...models.QueueItem) *Frontier {
	f := &Frontier{queued: make(map[string]int, len(items))}
	for _, item := range items {
		f.Push(item)
	}
	return f
}

// Push appends an item to the back of the queue
func (f *Frontier) Push(item models.QueueItem) {
	f.items = append(f.items, item)
	f.queued[item.URL]++
}

// Pop removes and returns the front item.
// Returns false when the frontier is empty.
func (f *Frontier) Pop() (models.QueueItem, bool) {
	if f.head >= len(f.items) {
		return models.QueueItem{}, false
	}

	item := f.items[f.head]
	f.items[f.head] = models.QueueItem{}
	f.head++

	if n := f.queued[item.URL]; n <= 1 {
		delete(f.queued, item.URL)
	} else {
		f.queued[item.URL] = n - 1
	}

	f.compact()
	return item, true
}

// Contains reports whether url is currently waiting in the queue
func (f *Frontier) Contains(url string) bool {
	return f.queued[url] > 0
}

// Len returns the number of pending items, duplicates included
func (f *Frontier) Len() int {
	return len(f.items) - f.head
}

// Snapshot returns the pending items in pop order
func (f *Frontier) Snapshot() []models.QueueItem {
	out := make([]models.QueueItem, f.Len())
	copy(out, f.items[f.head:])
	return out
}

func (f *Frontier) compact() {
	if f.head == len(f.items) {
		f.items = f.items[:0]
		f.head = 0
		return
	}
	if f.head >= compactThreshold && f.head*2 >= len(f.items) {
		n := copy(f.items, f.items[f.head:])
		clear(f.items[n:])
		f.items = f.items[:n]
		f.head = 0
	}
}
