package jdcache

import (
	"context"
	"sync"
	"time"
)

// MemoryBackend keeps entries in process. One mutex guards every key, which
// makes Bump a plain read-modify-write.
type MemoryBackend struct {
	mu      sync.Mutex
	entries map[Key]Entry
}

// NewMemoryBackend constructs a MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[Key]Entry)}
}

func (b *MemoryBackend) Bump(ctx context.Context, key Key, now, notBefore time.Time) (Entry, bool, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, false, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[key]
	if !ok || e.CachedAt.Before(notBefore) {
		return Entry{}, false, nil
	}
	e.UseCount++
	e.LastUsedAt = now
	b.entries[key] = e
	return e, true, nil
}

func (b *MemoryBackend) Put(ctx context.Context, e Entry, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	analysis := make([]byte, len(e.Analysis))
	copy(analysis, e.Analysis)
	e.Analysis = analysis

	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[e.Key] = e
	return nil
}

func (b *MemoryBackend) Delete(ctx context.Context, key Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.entries, key)
	return nil
}

func (b *MemoryBackend) Peek(ctx context.Context, key Key) (Entry, bool, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, false, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[key]
	return e, ok, nil
}

var _ Backend = (*MemoryBackend)(nil)
