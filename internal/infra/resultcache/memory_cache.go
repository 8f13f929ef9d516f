package resultcache

import (
	"context"
	"sync"
	"time"

	"github.com/helpline/faqmatch/internal/domain/matching"
)

type cachedRecord struct {
	payload   matching.InboundRecord
	expiresAt time.Time
}

// MemoryCache is an in-memory implementation of the result cache for
// tests/dev.
type MemoryCache struct {
	mu      sync.RWMutex
	records map[int64]cachedRecord
}

// NewMemoryCache constructs a cache backed by process memory.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{records: make(map[int64]cachedRecord)}
}

// Get implements matching.ResultCache.
func (c *MemoryCache) Get(_ context.Context, id int64) (matching.InboundRecord, bool, error) {
	c.mu.RLock()
	record, ok := c.records[id]
	c.mu.RUnlock()
	if !ok {
		return matching.InboundRecord{}, false, nil
	}
	if hasExpired(record.expiresAt) {
		c.mu.Lock()
		delete(c.records, id)
		c.mu.Unlock()
		return matching.InboundRecord{}, false, nil
	}
	return record.payload, true, nil
}

// Set caches the record with optional TTL.
func (c *MemoryCache) Set(_ context.Context, rec matching.InboundRecord, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	exp := time.Time{}
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	c.records[rec.ID] = cachedRecord{payload: rec, expiresAt: exp}
	return nil
}

// Invalidate implements matching.ResultCache.
func (c *MemoryCache) Invalidate(_ context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.records, id)
	return nil
}

func hasExpired(ts time.Time) bool {
	if ts.IsZero() {
		return false
	}
	return ts.Before(time.Now())
}

var _ matching.ResultCache = (*MemoryCache)(nil)
