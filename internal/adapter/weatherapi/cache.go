package weatherapi

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/weather-alert-service/internal/domain"
)

// CachedProvider wraps a Provider with a per-region TTL cache. Forecasts only
// change when the provider re-runs its model, so cycles close together (or a
// manual check right after a scheduled one) reuse the previous response
// instead of burning API quota.
type CachedProvider struct {
	inner Provider
	ttl   time.Duration
	clock clockwork.Clock

	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	records   []domain.ForecastRecord
	fetchedAt time.Time
}

// NewCachedProvider creates a TTL cache decorator around a provider.
func NewCachedProvider(inner Provider, ttl time.Duration, clock clockwork.Clock) *CachedProvider {
	return &CachedProvider{
		inner:   inner,
		ttl:     ttl,
		clock:   clock,
		entries: make(map[string]cacheEntry),
	}
}

// Forecast returns the cached records for the region when fresh, fetching
// through to the inner provider otherwise. Errors are never cached, so a
// failed region is retried on the next call.
func (c *CachedProvider) Forecast(ctx context.Context, region string) ([]domain.ForecastRecord, error) {
	now := c.clock.Now()

	c.mu.Lock()
	e, ok := c.entries[region]
	c.mu.Unlock()
	if ok && now.Sub(e.fetchedAt) < c.ttl {
		return e.records, nil
	}

	records, err := c.inner.Forecast(ctx, region)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[region] = cacheEntry{records: records, fetchedAt: now}
	c.mu.Unlock()
	return records, nil
}

// Invalidate drops the cached forecast for a region, forcing the next call
// through to the provider.
func (c *CachedProvider) Invalidate(region string) {
	c.mu.Lock()
	delete(c.entries, region)
	c.mu.Unlock()
}
