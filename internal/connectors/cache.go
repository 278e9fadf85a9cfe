package connectors

import (
	"context"
	"sync"
	"time"
)

// Source is the fetch contract shared by the connectors.
type Source interface {
	Name() string
	Fetch(ctx context.Context, start, end time.Time) (orders int, revenue float64)
}

// Snapshot is one cached connector result.
type Snapshot struct {
	Orders    int
	Revenue   float64
	FetchedAt time.Time
}

// Cached wraps a Source with a TTL snapshot so KPI reads do not pay for an
// external round trip on every request. The cron refresher keeps the
// snapshot warm; a stale snapshot falls back to a live fetch.
type Cached struct {
	Src Source
	TTL time.Duration

	mu   sync.RWMutex
	snap Snapshot
}

func NewCached(src Source, ttl time.Duration) *Cached {
	return &Cached{Src: src, TTL: ttl}
}

func (c *Cached) Name() string { return c.Src.Name() }

// Fetch serves the snapshot while it is fresh and delegates to the wrapped
// source otherwise, storing the result.
func (c *Cached) Fetch(ctx context.Context, start, end time.Time) (int, float64) {
	c.mu.RLock()
	snap := c.snap
	c.mu.RUnlock()
	if !snap.FetchedAt.IsZero() && time.Since(snap.FetchedAt) < c.TTL {
		return snap.Orders, snap.Revenue
	}
	orders, revenue := c.Src.Fetch(ctx, start, end)
	c.mu.Lock()
	c.snap = Snapshot{Orders: orders, Revenue: revenue, FetchedAt: time.Now()}
	c.mu.Unlock()
	return orders, revenue
}

var (
	defaultOnce    sync.Once
	defaultSources []*Cached
)

// DefaultSources returns the process-wide cached connector pair (Shopify +
// Google Analytics), built from the environment on first use. The sales
// service blends them into KPIs and the cron service refreshes them.
func DefaultSources(ttl time.Duration) []*Cached {
	defaultOnce.Do(func() {
		defaultSources = []*Cached{
			NewCached(NewShopifyFromEnv(), ttl),
			NewCached(NewGoogleAnalyticsFromEnv(), ttl),
		}
	})
	return defaultSources
}

// Refresh forces a live fetch over the trailing window, replacing the
// snapshot regardless of age.
func (c *Cached) Refresh(ctx context.Context, windowDays int) {
	end := time.Now()
	start := end.AddDate(0, 0, -windowDays)
	orders, revenue := c.Src.Fetch(ctx, start, end)
	c.mu.Lock()
	c.snap = Snapshot{Orders: orders, Revenue: revenue, FetchedAt: time.Now()}
	c.mu.Unlock()
}
