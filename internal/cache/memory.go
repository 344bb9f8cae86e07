package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/statlens/statlens/internal/models"
	"github.com/statlens/statlens/internal/utils"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache keeps encoded results in process memory with a TTL.
// A background loop sweeps expired entries until Close is called.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*entry
	ttl     time.Duration
	now     func() time.Time
	stopCh  chan struct{}
	once    sync.Once
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = utils.DefaultAnalyticsTTL
	}

	c := &MemoryCache{
		entries: make(map[string]*entry),
		ttl:     ttl,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}

	go c.cleanup(utils.CacheCleanupInterval)

	return c
}

// Get retrieves a result from cache
func (c *MemoryCache) Get(_ context.Context, datasetID, metric string) (*models.AnalyticsResult, bool, error) {
	c.mu.RLock()
	e, exists := c.entries[Key(datasetID, metric)]
	c.mu.RUnlock()

	if !exists || c.now().After(e.expiresAt) {
		return nil, false, nil
	}

	result, err := decode(e.value)
	if err != nil {
		return nil, false, err
	}
	return result, true, nil
}

// Set stores a result in cache
func (c *MemoryCache) Set(_ context.Context, result *models.AnalyticsResult) error {
	data, err := encode(result)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[Key(result.DatasetID, result.Metric)] = &entry{
		value:     data,
		expiresAt: c.now().Add(c.ttl),
	}
	return nil
}

// InvalidateDataset removes all keys of a dataset
func (c *MemoryCache) InvalidateDataset(_ context.Context, datasetID string) error {
	prefix := DatasetPrefix(datasetID)

	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	return nil
}

// cleanup periodically removes expired entries
func (c *MemoryCache) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stopCh:
			return
		}
	}
}

func (c *MemoryCache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}

// Close stops the cleanup goroutine
func (c *MemoryCache) Close() error {
	c.once.Do(func() { close(c.stopCh) })
	return nil
}

// Stats returns cache statistics
func (c *MemoryCache) Stats() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	expired := 0
	now := c.now()
	for _, e := range c.entries {
		if now.After(e.expiresAt) {
			expired++
		}
	}

	return map[string]interface{}{
		"total_entries":   len(c.entries),
		"expired_entries": expired,
		"active_entries":  len(c.entries) - expired,
		"ttl_seconds":     c.ttl.Seconds(),
	}
}
