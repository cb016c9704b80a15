package cache

import (
	"context"
	"sync"
	"time"

	"github.com/fastlane/backend/internal/domain"
)

// DefaultPurgeAfter is how long a stored record survives before it is physically removed.
// It is independent of, and much longer than, the price validity window.
const DefaultPurgeAfter = time.Hour

// cacheItem represents the stored record with its purge deadline
type cacheItem struct {
	Record     domain.PriceRecord
	Expiration time.Time
}

// MemoryPriceCache is a thread-safe in-process price cache
type MemoryPriceCache struct {
	data       map[string]cacheItem
	mutex      sync.RWMutex
	purgeAfter time.Duration
	now        func() time.Time
	stop       chan struct{}
	stopOnce   sync.Once
}

// NewMemoryPriceCache creates a new in-memory price cache.
// A non-positive purgeAfter falls back to DefaultPurgeAfter.
func NewMemoryPriceCache(purgeAfter time.Duration) *MemoryPriceCache {
	if purgeAfter <= 0 {
		purgeAfter = DefaultPurgeAfter
	}

	cache := &MemoryPriceCache{
		data:       make(map[string]cacheItem),
		purgeAfter: purgeAfter,
		now:        time.Now,
		stop:       make(chan struct{}),
	}

	// Start cleanup goroutine to remove purged entries every 10 minutes
	go cache.cleanupExpired(10 * time.Minute)

	return cache
}

// ReadCurrent returns the current price record
func (c *MemoryPriceCache) ReadCurrent(ctx context.Context) (*domain.PriceRecord, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	item, exists := c.data[domain.CurrentPriceKey]
	if !exists {
		return nil, domain.ErrCacheMiss
	}

	if c.now().After(item.Expiration) {
		return nil, domain.ErrCacheMiss
	}

	record := item.Record
	return &record, nil
}

// WriteCurrent replaces the current price record
func (c *MemoryPriceCache) WriteCurrent(ctx context.Context, price int, observedAt time.Time) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data[domain.CurrentPriceKey] = cacheItem{
		Record:     domain.PriceRecord{Value: price, ObservedAt: observedAt},
		Expiration: c.now().Add(c.purgeAfter),
	}

	return nil
}

// cleanupExpired removes purged entries from the cache periodically
func (c *MemoryPriceCache) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.purge()
		}
	}
}

func (c *MemoryPriceCache) purge() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	for key, item := range c.data {
		if now.After(item.Expiration) {
			delete(c.data, key)
		}
	}
}

// Size returns the current number of items in the cache (for debugging/monitoring)
func (c *MemoryPriceCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.data)
}

// Close stops the cleanup goroutine
func (c *MemoryPriceCache) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	return nil
}
