// Package cache provides the TTL key-value store that memoizes derived
// analytics. It is never a correctness dependency: every cached value can be
// recomputed from the transaction store, and backend failures degrade to a
// cache miss instead of failing the request.
package cache

import (
	"context"
	"strconv"
	"time"
)

// Store is the capability interface injected into the components that cache.
// Implementations must be safe for concurrent use and must not return errors:
// a broken backend behaves as an always-miss store.
type Store interface {
	// Get retrieves a value, reporting whether it was present and unexpired.
	Get(ctx context.Context, key string) (string, bool)

	// Set stores a value with the given time-to-live.
	Set(ctx context.Context, key, value string, ttl time.Duration)

	// Delete removes a key. Deleting an absent key is a no-op.
	Delete(ctx context.Context, key string)
}

// CategoriesKey is the shared cache key for the global category list.
const CategoriesKey = "categories:list"

// AnalyticsKey returns the per-user analytics cache key.
func AnalyticsKey(userID int64) string {
	return "analytics:user:" + strconv.FormatInt(userID, 10)
}

// Cleaner interface for caches that support expired-entry cleanup
type Cleaner interface {
	CleanExpired() int
}

// Manager handles cache lifecycle and cleanup
type Manager struct {
	caches      []Cleaner
	stopCleanup chan struct{}
	cleanupDone chan struct{}
	started     bool
}

// NewManager creates a new cache manager
func NewManager() *Manager {
	return &Manager{
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Register adds a cache to the manager for cleanup
func (m *Manager) Register(cache Cleaner) {
	m.caches = append(m.caches, cache)
}

// StartCleanup begins periodic cleanup of all registered caches. Calling it
// more than once has no effect.
func (m *Manager) StartCleanup(interval time.Duration) {
	if m.started {
		return
	}
	m.started = true
	go m.cleanup(interval)
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, cache := range m.caches {
				cache.CleanExpired()
			}
		case <-m.stopCleanup:
			return
		}
	}
}

// Stop gracefully stops the cleanup routine. Safe to call even when
// StartCleanup never ran; it only waits for a goroutine that exists.
func (m *Manager) Stop() {
	if m.stopCleanup != nil {
		close(m.stopCleanup)
		if m.started {
			<-m.cleanupDone
		}
	}
}
