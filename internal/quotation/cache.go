package quotation

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"cctvstore/backend/internal/cache"
)

// TableCache keeps the current price table for the whole process. Loading
// never fails: a broken source is logged and the built-in table is served in
// its place. A miss holds the write lock while the source is fetched, so a
// slow upstream stalls concurrent callers until the fetch returns or the
// caller's context is done.
type TableCache struct {
	source    Source
	snapshots cache.PriceTableCache
	ttl       time.Duration
	logger    *zap.Logger
	now       func() time.Time

	mu       sync.RWMutex
	table    *PriceTable
	loadedAt time.Time
	fallback bool
}

type TableCacheOption func(*TableCache)

// WithSnapshots shares loaded tables through an external cache.
func WithSnapshots(snapshots cache.PriceTableCache) TableCacheOption {
	return func(c *TableCache) {
		if snapshots != nil {
			c.snapshots = snapshots
		}
	}
}

// WithTTL makes a loaded table expire. Zero keeps it until Refresh.
func WithTTL(ttl time.Duration) TableCacheOption {
	return func(c *TableCache) { c.ttl = ttl }
}

func WithLogger(logger *zap.Logger) TableCacheOption {
	return func(c *TableCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func withClock(now func() time.Time) TableCacheOption {
	return func(c *TableCache) { c.now = now }
}

// NewTableCache builds a cache over source. A nil source always serves the
// built-in table.
func NewTableCache(source Source, opts ...TableCacheOption) *TableCache {
	c := &TableCache{
		source:    source,
		snapshots: cache.NoopPriceTableCache{},
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load returns the cached table, loading it on first use or after expiry.
// The fetch is bounded by ctx and by the source's own timeout.
func (c *TableCache) Load(ctx context.Context) *PriceTable {
	c.mu.RLock()
	table := c.table
	fresh := table != nil && (c.ttl <= 0 || c.now().Sub(c.loadedAt) < c.ttl)
	c.mu.RUnlock()
	if fresh {
		return table
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.table != nil && (c.ttl <= 0 || c.now().Sub(c.loadedAt) < c.ttl) {
		return c.table
	}
	return c.loadLocked(ctx)
}

// Refresh drops the cached table, the shared snapshot included, and loads
// again.
func (c *TableCache) Refresh(ctx context.Context) *PriceTable {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropLocked(ctx)
	return c.loadLocked(ctx)
}

// Invalidate drops the cached table; the next Load fetches a new one.
func (c *TableCache) Invalidate(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropLocked(ctx)
}

// Fallback reports whether the current table is the built-in one because the
// source failed.
func (c *TableCache) Fallback() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fallback
}

func (c *TableCache) dropLocked(ctx context.Context) {
	c.table = nil
	c.fallback = false
	if err := c.snapshots.Delete(ctx, cache.PriceTableKey); err != nil {
		c.logger.Warn("price table snapshot delete failed", zap.Error(err))
	}
}

func (c *TableCache) loadLocked(ctx context.Context) *PriceTable {
	c.loadedAt = c.now()
	c.fallback = false

	if c.source == nil {
		c.table = DefaultTable()
		return c.table
	}

	doc, ok, err := c.snapshots.Get(ctx, cache.PriceTableKey)
	if err != nil {
		c.logger.Warn("price table snapshot read failed", zap.Error(err))
	}
	if ok && doc != nil {
		c.table = NewPriceTable(*doc)
		return c.table
	}

	fetched, err := c.source.Fetch(ctx)
	if err != nil {
		c.logger.Warn("price table load failed, using built-in defaults", zap.Error(err))
		c.table = DefaultTable()
		c.fallback = true
		return c.table
	}

	if err := c.snapshots.Set(ctx, cache.PriceTableKey, &fetched, c.ttl); err != nil {
		c.logger.Warn("price table snapshot write failed", zap.Error(err))
	}
	c.table = NewPriceTable(fetched)
	c.logger.Debug("price table loaded",
		zap.Int("camera_types", len(fetched.CameraTypes)),
		zap.Int("brands", len(fetched.Brands)),
		zap.Int("channels", len(fetched.Channels)),
	)
	return c.table
}
