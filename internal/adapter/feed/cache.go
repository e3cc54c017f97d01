package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/tom-villanueva/marea-tigre/internal/observability"
)

// CachedClient wraps a Fetcher with a three-tier TTL policy keyed by source
// URL. A fresh entry is served as-is; a stale one (past freshFor, within
// staleFor) is served immediately while a background refresh replaces it; an
// expired entry forces a blocking refetch. Only successful responses enter
// the cache, so a failing source keeps being retried.
type CachedClient struct {
	inner          Fetcher
	freshFor       time.Duration
	staleFor       time.Duration
	refreshTimeout time.Duration
	clock          clockwork.Clock
	logger         *slog.Logger
	metrics        *observability.Metrics

	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	result    Result
	fetchedAt time.Time
}

// NewCachedClient creates the cache decorator. freshFor must be shorter than
// staleFor; config validation upholds that.
func NewCachedClient(inner Fetcher, freshFor, staleFor, refreshTimeout time.Duration, clk clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *CachedClient {
	return &CachedClient{
		inner:          inner,
		freshFor:       freshFor,
		staleFor:       staleFor,
		refreshTimeout: refreshTimeout,
		clock:          clk,
		logger:         logger,
		metrics:        metrics,
		entries:        make(map[string]cacheEntry),
	}
}

// Fetch serves rawURL according to the entry's age tier.
func (c *CachedClient) Fetch(ctx context.Context, rawURL string) (Result, error) {
	source := sourceLabel(rawURL)
	entry, ok := c.lookup(rawURL)
	if ok {
		age := c.clock.Now().Sub(entry.fetchedAt)
		switch {
		case age <= c.freshFor:
			c.metrics.CacheLookups.WithLabelValues(source, "fresh").Inc()
			return entry.result, nil
		case age <= c.staleFor:
			c.metrics.CacheLookups.WithLabelValues(source, "stale").Inc()
			go c.refresh(rawURL)
			return entry.result, nil
		default:
			c.metrics.CacheLookups.WithLabelValues(source, "expired").Inc()
		}
	} else {
		c.metrics.CacheLookups.WithLabelValues(source, "miss").Inc()
	}

	result, err := c.inner.Fetch(ctx, rawURL)
	if err != nil {
		return Result{}, err
	}
	c.store(rawURL, result)
	return result, nil
}

// refresh re-fetches a stale entry off the caller's path. Concurrent
// refreshes of the same source may race; entries are whole-value
// replacements, so the worst case is a duplicate fetch.
func (c *CachedClient) refresh(rawURL string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.refreshTimeout)
	defer cancel()

	result, err := c.inner.Fetch(ctx, rawURL)
	if err != nil {
		c.logger.Warn("background refresh failed", "url", rawURL, "error", err)
		return
	}
	c.store(rawURL, result)
}

func (c *CachedClient) lookup(rawURL string) (cacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[rawURL]
	return entry, ok
}

func (c *CachedClient) store(rawURL string, result Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[rawURL] = cacheEntry{result: result, fetchedAt: c.clock.Now()}
}
