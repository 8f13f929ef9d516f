package matching

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	apperrors "github.com/helpline/faqmatch/pkg/errors"
	"github.com/helpline/faqmatch/pkg/util"
)

// refreshCache keeps a lazily refreshed snapshot of backing-store state.
// Staleness is bucketed into epochs (wall clock divided by the TTL): the
// first request in a new epoch reloads, every other request in the same
// epoch reuses the published snapshot. Snapshots are built fully off to the
// side and published with a single atomic pointer swap, so readers never see
// a half-built snapshot. A ttl of zero forces a reload on every call.
type refreshCache[T any] struct {
	ttl    time.Duration
	now    func() time.Time
	load   func(ctx context.Context) (T, error)
	logger *slog.Logger

	current atomic.Pointer[cacheEntry[T]]

	// refreshMu single-flights the reload itself; readers with a fresh
	// snapshot never touch it.
	refreshMu sync.Mutex
}

type cacheEntry[T any] struct {
	epoch int64
	value T
}

// staleEpoch never matches a real epoch, so a poisoned entry always reloads.
const staleEpoch = int64(-1)

func newRefreshCache[T any](ttl time.Duration, now func() time.Time, load func(ctx context.Context) (T, error), logger *slog.Logger) *refreshCache[T] {
	return &refreshCache[T]{ttl: ttl, now: now, load: load, logger: logger}
}

// Get returns the snapshot for the current epoch, reloading it first if the
// epoch has rolled over. A failed reload degrades to the last known good
// snapshot with a warning; only a cold-start failure surfaces to the caller.
func (c *refreshCache[T]) Get(ctx context.Context) (T, error) {
	epoch := c.epoch()
	if cur := c.current.Load(); cur != nil && cur.epoch == epoch && c.ttl > 0 {
		return cur.value, nil
	}

	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	// Another request may have refreshed while we waited.
	if cur := c.current.Load(); cur != nil && cur.epoch == epoch && c.ttl > 0 {
		return cur.value, nil
	}

	value, err := c.load(ctx)
	if err != nil {
		if cur := c.current.Load(); cur != nil {
			c.logger.Warn("cache refresh failed, serving last known snapshot", "error", err)
			return cur.value, nil
		}
		var zero T
		return zero, apperrors.Wrap("storage_error", "cache refresh failed with no snapshot loaded", err)
	}

	c.current.Store(&cacheEntry[T]{epoch: epoch, value: value})
	return value, nil
}

// Refresh reloads immediately, off-epoch. Unlike Get it reports the reload
// failure to the caller, but the previous snapshot stays published so
// concurrent and later reads keep degrading to it.
func (c *refreshCache[T]) Refresh(ctx context.Context) (T, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	value, err := c.load(ctx)
	if err != nil {
		var zero T
		return zero, apperrors.Wrap("storage_error", "cache refresh failed", err)
	}
	c.current.Store(&cacheEntry[T]{epoch: c.epoch(), value: value})
	return value, nil
}

// Invalidate marks the published snapshot stale so the next Get reloads. The
// snapshot itself is retained; if that reload fails, Get still degrades to it.
func (c *refreshCache[T]) Invalidate() {
	if cur := c.current.Load(); cur != nil {
		c.current.Store(&cacheEntry[T]{epoch: staleEpoch, value: cur.value})
	}
}

func (c *refreshCache[T]) epoch() int64 {
	return util.FloorEpoch(c.now(), c.ttl)
}
