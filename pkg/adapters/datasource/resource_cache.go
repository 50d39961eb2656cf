package datasource

import (
	"context"
	"fmt"

	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/db2api/gateway/pkg/logging"
	"github.com/db2api/gateway/pkg/retry"
)

// ResourceCache maps a connection id to its long-lived pooled resource.
// Resources are built lazily with single-flight semantics: concurrent
// Resolve calls for the same id share one construction. Invalidate removes
// and closes the resource; later Resolve calls rebuild it.
//
// The cache mutex covers only map bookkeeping. Construction and teardown,
// both blocking network work, happen outside the lock.
type ResourceCache struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*cacheEntry
	poolCfg PoolConfig
	closed  bool
	logger  *zap.Logger
}

// cacheEntry is a future for one resource construction. ready is closed
// when conn/err are set; waiters block on it without holding the cache lock.
type cacheEntry struct {
	ready chan struct{}
	conn  PoolConnector
	err   error
}

// NewResourceCache creates an empty cache. poolCfg bounds every resource
// the cache builds.
func NewResourceCache(poolCfg PoolConfig, logger *zap.Logger) *ResourceCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResourceCache{
		entries: make(map[uuid.UUID]*cacheEntry),
		poolCfg: poolCfg,
		logger:  logger,
	}
}

// Resolve returns the cached resource for id, building it on first use.
// Exactly one construction runs per id regardless of concurrent callers;
// the losers wait on the winner's result. A failed construction is not
// cached - the next Resolve retries.
func (c *ResourceCache) Resolve(ctx context.Context, id uuid.UUID, driver string, cfg ConnConfig) (PoolConnector, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, fmt.Errorf("resource cache is closed")
	}

	if entry, ok := c.entries[id]; ok {
		c.mu.Unlock()
		select {
		case <-entry.ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if entry.err != nil {
			return nil, entry.err
		}
		return entry.conn, nil
	}

	// We are the builder for this id.
	entry := &cacheEntry{ready: make(chan struct{})}
	c.entries[id] = entry
	c.mu.Unlock()

	reg, err := Lookup(driver)
	if err == nil {
		entry.conn, entry.err = retry.DoWithResult(ctx, retry.DefaultConfig(), func() (PoolConnector, error) {
			return reg.PoolFactory(ctx, cfg, c.poolCfg)
		})
	} else {
		entry.err = err
	}
	close(entry.ready)

	if entry.err != nil {
		c.mu.Lock()
		// Only remove our own failed entry; an Invalidate may have raced us.
		if c.entries[id] == entry {
			delete(c.entries, id)
		}
		c.mu.Unlock()

		c.logger.Error("failed to build connection resource",
			zap.String("connection_id", id.String()),
			zap.String("driver", driver),
			zap.String("error", logging.SanitizeError(entry.err)),
		)
		return nil, entry.err
	}

	c.logger.Info("created connection resource",
		zap.String("connection_id", id.String()),
		zap.String("driver", driver),
	)
	return entry.conn, nil
}

// Invalidate removes the resource for id and closes it. In-flight users of
// a pgx or database/sql pool finish their statements before the pool's
// Close returns, so teardown never yanks a handle mid-query.
func (c *ResourceCache) Invalidate(id uuid.UUID) {
	c.mu.Lock()
	entry, ok := c.entries[id]
	if ok {
		delete(c.entries, id)
	}
	c.mu.Unlock()

	if !ok {
		return
	}

	// Wait out a concurrent construction before closing its result.
	<-entry.ready
	if entry.err == nil && entry.conn != nil {
		if err := entry.conn.Close(); err != nil {
			c.logger.Warn("failed to close invalidated resource",
				zap.String("connection_id", id.String()),
				zap.Error(err),
			)
		}
	}

	c.logger.Info("invalidated connection resource", zap.String("connection_id", id.String()))
}

// Len returns the number of cached resources, including ones still building.
func (c *ResourceCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close tears down every cached resource. Idempotent.
func (c *ResourceCache) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	entries := c.entries
	c.entries = make(map[uuid.UUID]*cacheEntry)
	c.mu.Unlock()

	for id, entry := range entries {
		<-entry.ready
		if entry.err == nil && entry.conn != nil {
			if err := entry.conn.Close(); err != nil {
				c.logger.Warn("failed to close resource during shutdown",
					zap.String("connection_id", id.String()),
					zap.Error(err),
				)
			}
		}
	}

	c.logger.Info("resource cache closed")
	return nil
}
