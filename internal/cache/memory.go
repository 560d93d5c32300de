package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process LRU cache with per-entry TTL and size-based
// eviction. It is the local counterpart of the hosted Redis store.
type MemoryStore struct {
	mu      sync.Mutex
	maxSize int
	items   map[string]*list.Element
	lru     *list.List
}

type memoryItem struct {
	key       string
	data      string
	expiresAt time.Time
}

// NewMemoryStore creates a memory store holding at most maxSize entries.
func NewMemoryStore(maxSize int) *MemoryStore {
	return &MemoryStore{
		maxSize: maxSize,
		items:   make(map[string]*list.Element),
		lru:     list.New(),
	}
}

// Get retrieves a value from the cache
func (c *MemoryStore) Get(_ context.Context, key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, exists := c.items[key]
	if !exists {
		return "", false
	}

	item := elem.Value.(*memoryItem)

	// Check if expired
	if time.Now().After(item.expiresAt) {
		c.removeElement(elem)
		return "", false
	}

	// Move to front (most recently used)
	c.lru.MoveToFront(elem)
	return item.data, true
}

// Set stores a value in the cache
func (c *MemoryStore) Set(_ context.Context, key, data string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item := &memoryItem{
		key:       key,
		data:      data,
		expiresAt: time.Now().Add(ttl),
	}

	// Check if key already exists
	if elem, exists := c.items[key]; exists {
		elem.Value = item
		c.lru.MoveToFront(elem)
		return
	}

	// Add new item
	elem := c.lru.PushFront(item)
	c.items[key] = elem

	// Evict if over capacity
	if c.lru.Len() > c.maxSize {
		oldest := c.lru.Back()
		if oldest != nil {
			c.removeElement(oldest)
		}
	}
}

// Delete removes a key from the cache
func (c *MemoryStore) Delete(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, exists := c.items[key]; exists {
		c.removeElement(elem)
	}
}

func (c *MemoryStore) removeElement(elem *list.Element) {
	item := elem.Value.(*memoryItem)
	delete(c.items, item.key)
	c.lru.Remove(elem)
}

// CleanExpired removes all expired entries and returns count of removed items
func (c *MemoryStore) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	var toRemove []*list.Element

	for elem := c.lru.Front(); elem != nil; elem = elem.Next() {
		item := elem.Value.(*memoryItem)
		if now.After(item.expiresAt) {
			toRemove = append(toRemove, elem)
		}
	}

	for _, elem := range toRemove {
		c.removeElement(elem)
	}

	return len(toRemove)
}

// Size returns the current number of items in the cache
func (c *MemoryStore) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
