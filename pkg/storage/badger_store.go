package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/link-auditor/pkg/log"
	"github.com/Sriram-PR/link-auditor/pkg/models"
	"github.com/Sriram-PR/link-auditor/pkg/utils"
)

const (
	visitedKeyPrefix  = "visited:"  // visited:<normalized url> -> empty
	resultKeyPrefix   = "result:"   // result:<seq> -> JSON CrawlResult
	frontierKeyPrefix = "frontier:" // frontier:<seq> -> JSON QueueItem
	crawlDBDir        = "crawl_db"  // Subdirectory suffix within stateDir for Badger DB files
)

// BadgerStore implements CrawlStore on BadgerDB so a crawl can be resumed
type BadgerStore struct {
	db           *badger.DB
	log          *logrus.Entry
	visitedCount atomic.Int64 // Cached counts for O(1) lookups
	resultSeq    atomic.Int64 // Next result sequence number
}

// NewBadgerStore opens (or creates) the state database for siteHost under stateDir.
// Without resume, any existing state for the host is removed first.
func NewBadgerStore(ctx context.Context, stateDir, siteHost string, resume bool, logger *logrus.Entry) (*BadgerStore, error) {
	store := &BadgerStore{log: logger}

	dbPath := filepath.Join(stateDir, utils.SanitizeFilename(siteHost)+"_"+crawlDBDir)

	if !resume {
		logger.Warnf("Resume flag is false. REMOVING existing state directory: %s", dbPath)
		if err := os.RemoveAll(dbPath); err != nil {
			logger.Errorf("Failed to remove existing state directory %s: %v", dbPath, err)
		}
	}

	logger.Infof("Initializing crawl state database at: %s (Resume: %v)", dbPath, resume)

	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("%w: cannot create state directory %s: %w", utils.ErrFilesystem, dbPath, err)
	}

	opts := badger.DefaultOptions(dbPath).
		WithLogger(log.NewBadgerLogrusAdapter(logger)).
		WithNumVersionsToKeep(1)

	var err error
	store.db, err = badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open badger database at %s: %w", utils.ErrDatabase, dbPath, err)
	}

	if resume {
		visited, err := store.countPrefix(ctx, visitedKeyPrefix)
		if err != nil {
			store.db.Close()
			return nil, err
		}
		results, err := store.countPrefix(ctx, resultKeyPrefix)
		if err != nil {
			store.db.Close()
			return nil, err
		}
		store.visitedCount.Store(int64(visited))
		store.resultSeq.Store(int64(results))
		logger.WithFields(logrus.Fields{"visited": visited, "results": results}).Info("Loaded existing crawl state on resume")
	}

	return store, nil
}

// countPrefix performs a key-only scan (used only during initialization on resume)
func (s *BadgerStore) countPrefix(ctx context.Context, prefix string) (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: counting '%s' keys: %w", utils.ErrDatabase, prefix, err)
	}
	return count, nil
}

const maxConflictRetries = 10

// dbUpdate wraps db.Update with a retry loop for BadgerDB transaction conflicts.
func (s *BadgerStore) dbUpdate(fn func(txn *badger.Txn) error) error {
	for i := range maxConflictRetries {
		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		s.log.Debugf("BadgerDB transaction conflict (attempt %d/%d), retrying", i+1, maxConflictRetries)
	}
	return fmt.Errorf("%w: transaction conflict not resolved after %d retries", utils.ErrDatabase, maxConflictRetries)
}

// MarkVisited implements the VisitedStore interface
func (s *BadgerStore) MarkVisited(normalizedURL string) (bool, error) {
	added := false
	key := []byte(visitedKeyPrefix + normalizedURL)

	err := s.dbUpdate(func(txn *badger.Txn) error {
		added = false
		_, errGet := txn.Get(key)
		if errors.Is(errGet, badger.ErrKeyNotFound) {
			if errSet := txn.SetEntry(badger.NewEntry(key, []byte{})); errSet != nil {
				return errSet
			}
			added = true
			return nil
		}
		return errGet // nil when the key already exists
	})
	if err != nil {
		return false, fmt.Errorf("%w: marking visited '%s': %w", utils.ErrDatabase, normalizedURL, err)
	}
	if added {
		s.visitedCount.Add(1)
	}
	return added, nil
}

// IsVisited implements the VisitedStore interface
func (s *BadgerStore) IsVisited(normalizedURL string) (bool, error) {
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		_, errGet := txn.Get([]byte(visitedKeyPrefix + normalizedURL))
		if errors.Is(errGet, badger.ErrKeyNotFound) {
			return nil
		}
		if errGet != nil {
			return errGet
		}
		found = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%w: checking visited '%s': %w", utils.ErrDatabase, normalizedURL, err)
	}
	return found, nil
}

// UnmarkVisited implements the VisitedStore interface
func (s *BadgerStore) UnmarkVisited(normalizedURL string) error {
	removed := false
	key := []byte(visitedKeyPrefix + normalizedURL)

	err := s.dbUpdate(func(txn *badger.Txn) error {
		removed = false
		_, errGet := txn.Get(key)
		if errors.Is(errGet, badger.ErrKeyNotFound) {
			return nil
		}
		if errGet != nil {
			return errGet
		}
		removed = true
		return txn.Delete(key)
	})
	if err != nil {
		return fmt.Errorf("%w: unmarking visited '%s': %w", utils.ErrDatabase, normalizedURL, err)
	}
	if removed {
		s.visitedCount.Add(-1)
	}
	return nil
}

// VisitedCount returns the cached visited count
func (s *BadgerStore) VisitedCount() (int, error) {
	return int(s.visitedCount.Load()), nil
}

// AppendResult implements the ResultStore interface
func (s *BadgerStore) AppendResult(result models.CrawlResult) error {
	val, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("%w: encoding result for '%s': %w", utils.ErrParsing, result.URL, err)
	}

	seq := s.resultSeq.Add(1) - 1
	key := []byte(fmt.Sprintf("%s%020d", resultKeyPrefix, seq))
	if err := s.dbUpdate(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(key, val))
	}); err != nil {
		return fmt.Errorf("%w: storing result for '%s': %w", utils.ErrDatabase, result.URL, err)
	}
	return nil
}

// Results returns every stored result in the order it was appended
func (s *BadgerStore) Results() ([]models.CrawlResult, error) {
	results := []models.CrawlResult{}
	err := s.scanPrefix(resultKeyPrefix, func(val []byte) error {
		var r models.CrawlResult
		if err := json.Unmarshal(val, &r); err != nil {
			return fmt.Errorf("%w: decoding stored result: %w", utils.ErrParsing, err)
		}
		results = append(results, r)
		return nil
	})
	return results, err
}

// ResultCount returns the number of stored results
func (s *BadgerStore) ResultCount() (int, error) {
	return int(s.resultSeq.Load()), nil
}

// SaveFrontier implements the FrontierStore interface
func (s *BadgerStore) SaveFrontier(items []models.QueueItem) error {
	if err := s.db.DropPrefix([]byte(frontierKeyPrefix)); err != nil {
		return fmt.Errorf("%w: clearing frontier checkpoint: %w", utils.ErrDatabase, err)
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for i, item := range items {
		val, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("%w: encoding frontier item '%s': %w", utils.ErrParsing, item.URL, err)
		}
		if err := wb.Set([]byte(fmt.Sprintf("%s%020d", frontierKeyPrefix, i)), val); err != nil {
			return fmt.Errorf("%w: writing frontier checkpoint: %w", utils.ErrDatabase, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("%w: flushing frontier checkpoint: %w", utils.ErrDatabase, err)
	}

	s.log.Debugf("Saved frontier checkpoint with %d items", len(items))
	return nil
}

// LoadFrontier implements the FrontierStore interface
func (s *BadgerStore) LoadFrontier() ([]models.QueueItem, error) {
	var items []models.QueueItem
	err := s.scanPrefix(frontierKeyPrefix, func(val []byte) error {
		var item models.QueueItem
		if err := json.Unmarshal(val, &item); err != nil {
			return fmt.Errorf("%w: decoding frontier item: %w", utils.ErrParsing, err)
		}
		items = append(items, item)
		return nil
	})
	return items, err
}

// scanPrefix calls fn with the value of every key under prefix, in key order
func (s *BadgerStore) scanPrefix(prefix string, fn func(val []byte) error) error {
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := it.Item().Value(fn); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, utils.ErrParsing) {
		return fmt.Errorf("%w: scanning '%s': %w", utils.ErrDatabase, prefix, err)
	}
	return err
}

// RunGC runs BadgerDB's value log garbage collection periodically
func (s *BadgerStore) RunGC(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if s.db.IsClosed() {
				return
			}
			var err error
			for err == nil {
				// Rewrite while at least half of a value log file is reclaimable
				err = s.db.RunValueLogGC(0.5)
			}
			if !errors.Is(err, badger.ErrNoRewrite) {
				s.log.Errorf("BadgerDB GC error: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// WriteVisitedLog implements the StoreAdmin interface
func (s *BadgerStore) WriteVisitedLog(filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("%w: create visited log '%s': %w", utils.ErrFilesystem, filePath, err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	written := 0
	prefix := []byte(visitedKeyPrefix)

	dbErr := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().Key()
			if _, err := writer.Write(key[len(prefix):]); err != nil {
				return err
			}
			if err := writer.WriteByte('\n'); err != nil {
				return err
			}
			written++
		}
		return nil
	})
	if dbErr != nil {
		return fmt.Errorf("%w: writing visited log '%s': %w", utils.ErrDatabase, filePath, dbErr)
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("%w: flush visited log '%s': %w", utils.ErrFilesystem, filePath, err)
	}

	s.log.Infof("Wrote %d visited URLs to %s", written, filePath)
	return nil
}

// Close cleanly closes the database
func (s *BadgerStore) Close() error {
	if s.db == nil || s.db.IsClosed() {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("%w: closing badger database: %w", utils.ErrDatabase, err)
	}
	return nil
}
