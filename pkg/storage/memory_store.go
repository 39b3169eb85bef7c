package storage

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/Sriram-PR/link-auditor/pkg/models"
	"github.com/Sriram-PR/link-auditor/pkg/utils"
)

// MemoryStore is the default CrawlStore; nothing survives the process
type MemoryStore struct {
	mu       sync.RWMutex
	visited  map[string]struct{}
	results  []models.CrawlResult
	frontier []models.QueueItem
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{visited: make(map[string]struct{})}
}

func (s *MemoryStore) MarkVisited(normalizedURL string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.visited[normalizedURL]; ok {
		return false, nil
	}
	s.visited[normalizedURL] = struct{}{}
	return true, nil
}

func (s *MemoryStore) IsVisited(normalizedURL string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.visited[normalizedURL]
	return ok, nil
}

func (s *MemoryStore) UnmarkVisited(normalizedURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.visited, normalizedURL)
	return nil
}

func (s *MemoryStore) VisitedCount() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.visited), nil
}

func (s *MemoryStore) AppendResult(result models.CrawlResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result)
	return nil
}

// Results returns a copy of the recorded results
func (s *MemoryStore) Results() ([]models.CrawlResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.CrawlResult{}, s.results...), nil
}

func (s *MemoryStore) ResultCount() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results), nil
}

func (s *MemoryStore) SaveFrontier(items []models.QueueItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frontier = slices.Clone(items)
	return nil
}

func (s *MemoryStore) LoadFrontier() ([]models.QueueItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.frontier), nil
}

func (s *MemoryStore) WriteVisitedLog(filePath string) error {
	s.mu.RLock()
	urls := make([]string, 0, len(s.visited))
	for u := range s.visited {
		urls = append(urls, u)
	}
	s.mu.RUnlock()
	slices.Sort(urls)

	return writeLines(filePath, urls)
}

// RunGC is a no-op; there is nothing to collect
func (s *MemoryStore) RunGC(ctx context.Context, interval time.Duration) {}

func (s *MemoryStore) Close() error { return nil }

func writeLines(filePath string, lines []string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("%w: create visited log '%s': %w", utils.ErrFilesystem, filePath, err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, line := range lines {
		if _, err := writer.WriteString(line + "\n"); err != nil {
			return fmt.Errorf("%w: write visited log '%s': %w", utils.ErrFilesystem, filePath, err)
		}
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("%w: flush visited log '%s': %w", utils.ErrFilesystem, filePath, err)
	}
	return nil
}
