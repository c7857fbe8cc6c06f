package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/immodex/immo-mcp/internal/domain/providers"
)

// MemoryAdapter implements the CacheProvider interface with a process-local
// map. Expiry is lazy: entries past their TTL are treated as absent on read
// and dropped, no background sweep runs.
type MemoryAdapter struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryAdapter creates a new in-memory cache adapter
func NewMemoryAdapter() providers.CacheProvider {
	return NewMemoryAdapterWithClock(time.Now)
}

// NewMemoryAdapterWithClock allows injecting the clock (used for tests)
func NewMemoryAdapterWithClock(now func() time.Time) providers.CacheProvider {
	if now == nil {
		now = time.Now
	}
	return &MemoryAdapter{
		entries: make(map[string]memoryEntry),
		now:     now,
	}
}

// Get retrieves a value from cache; expired entries count as absent
func (a *MemoryAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	a.mu.RLock()
	entry, ok := a.entries[key]
	a.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("key not found: %s", key)
	}
	if a.expired(entry) {
		a.mu.Lock()
		// Re-check under the write lock, another goroutine may have replaced it
		if current, ok := a.entries[key]; ok && a.expired(current) {
			delete(a.entries, key)
		}
		a.mu.Unlock()
		return nil, fmt.Errorf("key not found: %s", key)
	}

	value := make([]byte, len(entry.value))
	copy(value, entry.value)
	return value, nil
}

// Set stores a value in cache with expiration
func (a *MemoryAdapter) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	entry := memoryEntry{value: stored}
	if expirationSeconds > 0 {
		entry.expiresAt = a.now().Add(time.Duration(expirationSeconds) * time.Second)
	}

	a.mu.Lock()
	a.entries[key] = entry
	a.mu.Unlock()
	return nil
}

// Delete removes a value from cache
func (a *MemoryAdapter) Delete(ctx context.Context, key string) error {
	a.mu.Lock()
	delete(a.entries, key)
	a.mu.Unlock()
	return nil
}

// Exists checks if a key exists in cache
func (a *MemoryAdapter) Exists(ctx context.Context, key string) (bool, error) {
	a.mu.RLock()
	entry, ok := a.entries[key]
	a.mu.RUnlock()
	return ok && !a.expired(entry), nil
}

func (a *MemoryAdapter) expired(entry memoryEntry) bool {
	return !entry.expiresAt.IsZero() && !a.now().Before(entry.expiresAt)
}
