package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"photostamp-api/internal/models"
)

// cacheVersion tags every key so a format change invalidates old entries.
const cacheVersion = "loc_v6"

// CacheKey builds the store key for a coordinate, rounded to 4 decimal
// places (~11m) to avoid cache fragmentation between near-identical shots.
func CacheKey(coords models.Coordinates) string {
	return fmt.Sprintf("%s_%.4f_%.4f", cacheVersion, coords.Lat, coords.Lng)
}

// LocationStore is the resolver's cache capability. Entries are advisory:
// losing one only costs a redundant provider round trip, so implementations
// are free to drop data under pressure.
type LocationStore interface {
	// Get returns a fresh entry, or reports a miss. Stale entries are
	// treated as absent and purged.
	Get(ctx context.Context, key string) (*models.CacheEntry, bool)
	// Set stores an entry, overwriting any previous one for the key.
	Set(ctx context.Context, key string, entry models.CacheEntry)
	// Delete removes an entry if present.
	Delete(ctx context.Context, key string)
}

// MemoryStore is the default in-process LocationStore.
type MemoryStore struct {
	entries         map[string]models.CacheEntry
	mu              sync.RWMutex
	ttl             time.Duration
	cleanupInterval time.Duration
}

func NewMemoryStore(ttl, cleanupInterval time.Duration) *MemoryStore {
	ms := &MemoryStore{
		entries:         make(map[string]models.CacheEntry),
		ttl:             ttl,
		cleanupInterval: cleanupInterval,
	}

	// Start cleanup goroutine
	go ms.cleanupExpired()

	return ms
}

func (ms *MemoryStore) Get(ctx context.Context, key string) (*models.CacheEntry, bool) {
	ms.mu.RLock()
	entry, ok := ms.entries[key]
	ms.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if ms.expired(entry, time.Now()) {
		ms.Delete(ctx, key)
		return nil, false
	}

	return &entry, true
}

func (ms *MemoryStore) Set(_ context.Context, key string, entry models.CacheEntry) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.entries[key] = entry
}

func (ms *MemoryStore) Delete(_ context.Context, key string) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	delete(ms.entries, key)
}

func (ms *MemoryStore) expired(entry models.CacheEntry, now time.Time) bool {
	return now.UnixMilli()-entry.Timestamp > ms.ttl.Milliseconds()
}

// Periodically removes expired entries. Runs in a background goroutine
// started by NewMemoryStore.
func (ms *MemoryStore) cleanupExpired() {
	ticker := time.NewTicker(ms.cleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		ms.mu.Lock()
		for k, v := range ms.entries {
			if ms.expired(v, now) {
				delete(ms.entries, k)
			}
		}
		ms.mu.Unlock()
	}
}
