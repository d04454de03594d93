package storage

import (
	"context"
	"sync"

	"mercator-hq/epsilon/pkg/ledger"
)

// MemoryStorage implements ledger.Storage in memory. When MaxEntries is
// reached the oldest entry is evicted.
type MemoryStorage struct {
	entries    []*ledger.Entry
	maxEntries int
	evicted    int64
	closed     bool
	mu         sync.RWMutex
}

// NewMemoryStorage creates a new in-memory backend. maxEntries <= 0 means
// unbounded.
func NewMemoryStorage(maxEntries int) *MemoryStorage {
	return &MemoryStorage{maxEntries: maxEntries}
}

// Append stores a copy of entry.
func (s *MemoryStorage) Append(ctx context.Context, entry *ledger.Entry) error {
	if entry == nil {
		return ledger.NewStorageError("memory", "append", errNilEntry)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ledger.NewStorageError("memory", "append", ErrClosed)
	}

	c := *entry
	s.entries = append(s.entries, &c)

	if s.maxEntries > 0 && len(s.entries) > s.maxEntries {
		drop := len(s.entries) - s.maxEntries
		// entries are appended in arrival order; the head is the oldest
		s.entries = append([]*ledger.Entry(nil), s.entries[drop:]...)
		s.evicted += int64(drop)
	}

	return nil
}

// Query returns copies of matching entries.
func (s *MemoryStorage) Query(ctx context.Context, query *ledger.Query) ([]*ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ledger.NewStorageError("memory", "query", ErrClosed)
	}

	results := []*ledger.Entry{}
	for _, e := range s.entries {
		if query.Matches(e) {
			c := *e
			results = append(results, &c)
		}
	}

	return query.Page(results), nil
}

// Count returns the number of matching entries.
func (s *MemoryStorage) Count(ctx context.Context, query *ledger.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, ledger.NewStorageError("memory", "count", ErrClosed)
	}

	var n int64
	for _, e := range s.entries {
		if query.Matches(e) {
			n++
		}
	}
	return n, nil
}

// Delete removes matching entries.
func (s *MemoryStorage) Delete(ctx context.Context, query *ledger.Query) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ledger.NewStorageError("memory", "delete", ErrClosed)
	}

	kept := s.entries[:0]
	var deleted int64
	for _, e := range s.entries {
		if query.Matches(e) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	for i := len(kept); i < len(s.entries); i++ {
		s.entries[i] = nil
	}
	s.entries = kept

	return deleted, nil
}

// Ping fails once the backend is closed.
func (s *MemoryStorage) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ledger.NewStorageError("memory", "ping", ErrClosed)
	}
	return nil
}

// Close discards all entries. Close is idempotent.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = nil
	s.closed = true
	return nil
}

// Size returns the number of stored entries.
func (s *MemoryStorage) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Evicted returns how many entries were dropped to honor MaxEntries.
func (s *MemoryStorage) Evicted() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.evicted
}
