package jdcache

import (
	"context"
	"encoding/json"
	"time"

	"cvtailor-backend/internal/shared/metrics"
	"cvtailor-backend/internal/shared/telemetry"
)

// DefaultTTL applies when the configured TTL is not positive.
const DefaultTTL = 7 * 24 * time.Hour

// Backend is the storage behind a Cache. Keys arrive already normalized.
type Backend interface {
	// Bump increments use_count and sets last_used_at to now in a single
	// atomic step, but only for an entry cached at or after notBefore.
	Bump(ctx context.Context, key Key, now, notBefore time.Time) (Entry, bool, error)
	// Put replaces the entry for e.Key wholesale.
	Put(ctx context.Context, e Entry, ttl time.Duration) error
	Delete(ctx context.Context, key Key) error
	// Peek reads an entry without touching its usage metadata.
	Peek(ctx context.Context, key Key) (Entry, bool, error)
}

// Cache is the JD analysis cache used by the orchestrator.
type Cache struct {
	backend Backend
	ttl     time.Duration
	now     func() time.Time
}

// Option customizes a Cache.
type Option func(*Cache)

// WithClock replaces time.Now, mainly for expiry tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New constructs a Cache over backend.
func New(backend Backend, ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		backend: backend,
		ttl:     ttl,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the validity window applied to entries.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Lookup returns a valid entry and counts the reuse. Absent, expired, and
// corrupt entries are misses; corrupt ones are evicted.
func (c *Cache) Lookup(ctx context.Context, userID, company, jdURL string) (Entry, bool, error) {
	key, err := NewKey(userID, company, jdURL)
	if err != nil {
		return Entry{}, false, err
	}
	now := c.now()
	e, ok, err := c.backend.Bump(ctx, key, now, now.Add(-c.ttl))
	if err != nil {
		return Entry{}, false, err
	}
	if !ok {
		metrics.IncJDCacheMiss()
		return Entry{}, false, nil
	}
	if !isJSONObject(e.Analysis) {
		metrics.IncJDCacheCorrupt()
		metrics.IncJDCacheMiss()
		telemetry.Warn("jdcache.corrupt", map[string]any{
			"user_id": key.UserID,
			"company": key.Company,
			"jd_url":  key.JDURL,
		})
		if err := c.backend.Delete(ctx, key); err != nil {
			telemetry.Error("jdcache.evict_failed", map[string]any{
				"company": key.Company,
				"jd_url":  key.JDURL,
				"error":   err.Error(),
			})
		}
		return Entry{}, false, nil
	}
	metrics.IncJDCacheHit()
	return e, true, nil
}

// Store replaces any entry for the key with a fresh one (useCount 0).
func (c *Cache) Store(ctx context.Context, userID, company, jdURL string, analysis json.RawMessage) (Entry, error) {
	key, err := NewKey(userID, company, jdURL)
	if err != nil {
		return Entry{}, err
	}
	if !isJSONObject(analysis) {
		return Entry{}, ErrInvalidAnalysis
	}
	now := c.now()
	e := Entry{
		Key:        key,
		Analysis:   analysis,
		CachedAt:   now,
		LastUsedAt: now,
		UseCount:   0,
	}
	if err := c.backend.Put(ctx, e, c.ttl); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// Invalidate evicts the entry for the key, if any.
func (c *Cache) Invalidate(ctx context.Context, userID, company, jdURL string) error {
	key, err := NewKey(userID, company, jdURL)
	if err != nil {
		return err
	}
	return c.backend.Delete(ctx, key)
}

// Stats peeks at the entry without counting a use.
func (c *Cache) Stats(ctx context.Context, userID, company, jdURL string) (Stats, error) {
	key, err := NewKey(userID, company, jdURL)
	if err != nil {
		return Stats{}, err
	}
	e, ok, err := c.backend.Peek(ctx, key)
	if err != nil {
		return Stats{}, err
	}
	return StatsFor(e, ok, c.ttl, c.now()), nil
}

// StatsOf describes an entry already in hand, e.g. one returned by Lookup.
func (c *Cache) StatsOf(e Entry, found bool) Stats {
	return StatsFor(e, found, c.ttl, c.now())
}
