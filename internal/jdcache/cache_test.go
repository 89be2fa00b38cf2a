package jdcache

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestCache(ttl time.Duration) (*Cache, *MemoryBackend, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	backend := NewMemoryBackend()
	return New(backend, ttl, WithClock(clock.Now)), backend, clock
}

var sampleAnalysis = json.RawMessage(`{"skills":["go","postgres"],"title":"Backend Engineer"}`)

func TestStoreThenLookupCountsFirstUse(t *testing.T) {
	cache, _, clock := newTestCache(time.Hour)
	ctx := context.Background()

	stored, err := cache.Store(ctx, "user-1", "acme", "https://x.com/job", sampleAnalysis)
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	clock.Advance(time.Second)

	e, ok, err := cache.Lookup(ctx, "user-1", "acme", "https://x.com/job")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !ok {
		t.Fatalf("expected hit")
	}
	if e.UseCount != 1 {
		t.Fatalf("expected useCount 1, got %d", e.UseCount)
	}
	if e.LastUsedAt.Before(e.CachedAt) {
		t.Fatalf("lastUsedAt %v before cachedAt %v", e.LastUsedAt, e.CachedAt)
	}
	if !e.CachedAt.Equal(stored.CachedAt) {
		t.Fatalf("lookup changed cachedAt")
	}
	if string(e.Analysis) != string(sampleAnalysis) {
		t.Fatalf("unexpected analysis %s", e.Analysis)
	}
}

func TestLookupNormalizesCompanyAndURL(t *testing.T) {
	cache, _, _ := newTestCache(time.Hour)
	ctx := context.Background()

	if _, err := cache.Store(ctx, "user-1", "acme", "https://x.com/job", sampleAnalysis); err != nil {
		t.Fatalf("Store: %v", err)
	}
	_, ok, err := cache.Lookup(ctx, "user-1", "Acme ", "https://x.com/job/")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !ok {
		t.Fatalf("expected normalized lookup to hit")
	}
	_, ok, err = cache.Lookup(ctx, "user-1", "ACME", "HTTPS://X.COM/job?utm_source=li#apply")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !ok {
		t.Fatalf("expected tracking params and fragment to be ignored")
	}
}

func TestLookupIsScopedPerUser(t *testing.T) {
	cache, _, _ := newTestCache(time.Hour)
	ctx := context.Background()

	if _, err := cache.Store(ctx, "user-1", "acme", "https://x.com/job", sampleAnalysis); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if _, ok, _ := cache.Lookup(ctx, "user-2", "acme", "https://x.com/job"); ok {
		t.Fatalf("expected miss for another user")
	}
}

func TestConcurrentLookupsSeeDistinctCounts(t *testing.T) {
	cache, _, _ := newTestCache(time.Hour)
	ctx := context.Background()
	if _, err := cache.Store(ctx, "user-1", "acme", "https://x.com/job", sampleAnalysis); err != nil {
		t.Fatalf("Store: %v", err)
	}

	const n = 50
	counts := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e, ok, err := cache.Lookup(ctx, "user-1", "acme", "https://x.com/job")
			if err != nil || !ok {
				return
			}
			counts[i] = e.UseCount
		}(i)
	}
	wg.Wait()

	sort.Ints(counts)
	for i, c := range counts {
		if c != i+1 {
			t.Fatalf("expected counts 1..%d, got %v", n, counts)
		}
	}
	st, err := cache.Stats(ctx, "user-1", "acme", "https://x.com/job")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.UseCount != n {
		t.Fatalf("expected useCount %d, got %d", n, st.UseCount)
	}
}

func TestLookupMissesExpiredEntry(t *testing.T) {
	ttl := 24 * time.Hour
	cache, _, clock := newTestCache(ttl)
	ctx := context.Background()

	if _, err := cache.Store(ctx, "user-1", "acme", "https://x.com/job", sampleAnalysis); err != nil {
		t.Fatalf("Store: %v", err)
	}
	clock.Advance(ttl + time.Second)

	if _, ok, err := cache.Lookup(ctx, "user-1", "acme", "https://x.com/job"); err != nil || ok {
		t.Fatalf("expected miss for expired entry, ok=%v err=%v", ok, err)
	}
	st, err := cache.Stats(ctx, "user-1", "acme", "https://x.com/job")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if !st.HasCache || st.CacheValid || st.UseCount != 0 {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestLookupHitsAtExactTTL(t *testing.T) {
	ttl := time.Hour
	cache, _, clock := newTestCache(ttl)
	ctx := context.Background()

	if _, err := cache.Store(ctx, "user-1", "acme", "https://x.com/job", sampleAnalysis); err != nil {
		t.Fatalf("Store: %v", err)
	}
	clock.Advance(ttl)
	if _, ok, _ := cache.Lookup(ctx, "user-1", "acme", "https://x.com/job"); !ok {
		t.Fatalf("expected hit at exactly ttl")
	}
}

func TestStoreReplacesAndResetsUseCount(t *testing.T) {
	cache, _, clock := newTestCache(time.Hour)
	ctx := context.Background()

	if _, err := cache.Store(ctx, "user-1", "acme", "https://x.com/job", sampleAnalysis); err != nil {
		t.Fatalf("Store: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, ok, _ := cache.Lookup(ctx, "user-1", "acme", "https://x.com/job"); !ok {
			t.Fatalf("expected hit")
		}
	}
	clock.Advance(time.Minute)
	replacement := json.RawMessage(`{"skills":["rust"]}`)
	if _, err := cache.Store(ctx, "user-1", "acme", "https://x.com/job", replacement); err != nil {
		t.Fatalf("Store: %v", err)
	}

	st, err := cache.Stats(ctx, "user-1", "acme", "https://x.com/job")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.UseCount != 0 || !st.CachedAt.Equal(clock.Now()) {
		t.Fatalf("expected fresh entry, got %+v", st)
	}
	e, _, _ := cache.Lookup(ctx, "user-1", "acme", "https://x.com/job")
	if string(e.Analysis) != string(replacement) || e.UseCount != 1 {
		t.Fatalf("unexpected entry %+v", e)
	}
}

func TestCorruptEntryIsEvictedAndMissed(t *testing.T) {
	cache, backend, clock := newTestCache(time.Hour)
	ctx := context.Background()

	key, err := NewKey("user-1", "acme", "https://x.com/job")
	if err != nil {
		t.Fatalf("NewKey: %v", err)
	}
	now := clock.Now()
	if err := backend.Put(ctx, Entry{Key: key, Analysis: json.RawMessage(`{"skills":[`), CachedAt: now, LastUsedAt: now}, time.Hour); err != nil {
		t.Fatalf("Put: %v", err)
	}

	_, ok, err := cache.Lookup(ctx, "user-1", "acme", "https://x.com/job")
	if err != nil {
		t.Fatalf("corrupt entry must not surface as error: %v", err)
	}
	if ok {
		t.Fatalf("expected miss for corrupt entry")
	}
	if _, found, _ := backend.Peek(ctx, key); found {
		t.Fatalf("expected corrupt entry to be evicted")
	}
}

func TestInvalidateEvicts(t *testing.T) {
	cache, _, _ := newTestCache(time.Hour)
	ctx := context.Background()

	if _, err := cache.Store(ctx, "user-1", "acme", "https://x.com/job", sampleAnalysis); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := cache.Invalidate(ctx, "user-1", " ACME", "https://x.com/job/"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if _, ok, _ := cache.Lookup(ctx, "user-1", "acme", "https://x.com/job"); ok {
		t.Fatalf("expected miss after invalidate")
	}
}

func TestStoreRejectsNonObjectAnalysis(t *testing.T) {
	cache, _, _ := newTestCache(time.Hour)
	if _, err := cache.Store(context.Background(), "user-1", "acme", "https://x.com/job", json.RawMessage(`"text"`)); err != ErrInvalidAnalysis {
		t.Fatalf("expected ErrInvalidAnalysis, got %v", err)
	}
	if _, err := cache.Store(context.Background(), "user-1", "  ", "https://x.com/job", sampleAnalysis); err != ErrInvalidKey {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}

func TestStatsForMissingEntry(t *testing.T) {
	cache, _, _ := newTestCache(48 * time.Hour)
	st, err := cache.Stats(context.Background(), "user-1", "acme", "https://x.com/job")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.HasCache || st.CacheValid || st.CachedAt != nil || st.TTLHours != 48 {
		t.Fatalf("unexpected stats %+v", st)
	}
}
