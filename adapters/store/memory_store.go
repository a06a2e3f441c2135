package store

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/layer-3/tagdesk/ports"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

// MemoryStore is an in-memory implementation of the Store interface.
// Entries expire lazily on access. Used by tests and CACHE_DRIVER=memory.
type MemoryStore struct {
	entries map[string]memoryEntry
	mu      sync.RWMutex
	now     func() time.Time
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// WithClock replaces the time source. Tests only.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

func (s *MemoryStore) SetCache(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.entries[key] = e
	return nil
}

func (s *MemoryStore) GetCache(ctx context.Context, key string) (string, bool, error) {
	e, ok := s.lookup(key)
	if !ok {
		return "", false, nil
	}
	return e.value, true, nil
}

func (s *MemoryStore) GetTTL(ctx context.Context, key string) (int64, error) {
	e, ok := s.lookup(key)
	if !ok {
		return -2, nil
	}
	if e.expiresAt.IsZero() {
		return -1, nil
	}
	// Redis rounds the remaining milliseconds to the nearest second
	return int64(math.Round(e.expiresAt.Sub(s.now()).Seconds())), nil
}

func (s *MemoryStore) ClearCache(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[key]; !ok {
		return 0, nil
	}
	delete(s.entries, key)
	return 1, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) lookup(key string) (memoryEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		delete(s.entries, key)
		return memoryEntry{}, false
	}
	return e, true
}

var _ ports.Store = (*MemoryStore)(nil)
